package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/alumnihub/apiserver/types"
)

// OtpRepository handles persistence for password-reset codes.
// password_otps is keyed by email, so a single upsert both supersedes
// any earlier code and guarantees at most one active row per address,
// even under concurrent requests.
type OtpRepository struct {
	db *sql.DB
}

func NewOtpRepository(db *sql.DB) *OtpRepository {
	return &OtpRepository{db: db}
}

// Upsert issues code for email, replacing any previous code atomically.
func (r *OtpRepository) Upsert(ctx context.Context, email, code string) (types.Otp, error) {
	otp := types.Otp{
		Email:     normalizeEmail(email),
		Code:      code,
		CreatedAt: time.Now(),
	}

	const query = `
		INSERT INTO password_otps (email, code, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (email)
		DO UPDATE SET code = EXCLUDED.code, created_at = EXCLUDED.created_at`
	if _, err := r.db.ExecContext(ctx, query, otp.Email, otp.Code, otp.CreatedAt); err != nil {
		return types.Otp{}, err
	}
	return otp, nil
}

// Get returns the active code for email, if any.
func (r *OtpRepository) Get(ctx context.Context, email string) (types.Otp, error) {
	const query = `
		SELECT email, code, created_at
		FROM password_otps
		WHERE email = $1`
	var otp types.Otp
	err := r.db.QueryRowContext(ctx, query, normalizeEmail(email)).Scan(
		&otp.Email,
		&otp.Code,
		&otp.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Otp{}, ErrNotFound
		}
		return types.Otp{}, err
	}
	return otp, nil
}

// DeleteByEmail consumes the active code for email. Deleting a
// non-existent row is not an error: consumption is idempotent.
func (r *OtpRepository) DeleteByEmail(ctx context.Context, email string) error {
	const query = `DELETE FROM password_otps WHERE email = $1`
	_, err := r.db.ExecContext(ctx, query, normalizeEmail(email))
	return err
}
