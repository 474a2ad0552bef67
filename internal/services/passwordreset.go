package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/alumnihub/apiserver/internal/store"
	"github.com/alumnihub/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

// ErrUnknownEmail is returned when a reset is requested for an email
// with no account. This path stays declarative: the caller already
// claims to own the account and no token is issued.
var ErrUnknownEmail = errors.New("user with this email does not exist")

// ErrInvalidOtp covers wrong, missing, and expired codes alike.
var ErrInvalidOtp = errors.New("invalid or expired OTP")

// OtpRepository defines persistence operations for reset codes.
type OtpRepository interface {
	Upsert(ctx context.Context, email, code string) (types.Otp, error)
	Get(ctx context.Context, email string) (types.Otp, error)
	DeleteByEmail(ctx context.Context, email string) error
}

// Notifier delivers a reset code to the account holder.
type Notifier interface {
	SendPasswordResetCode(ctx context.Context, email, code string, ttl time.Duration) error
}

// PasswordResetService drives the OTP state machine per email:
// request issues (and supersedes) a code, verify checks it without
// consuming, reset re-verifies, rewrites the hash, and consumes.
type PasswordResetService struct {
	users    UserRepository
	otps     OtpRepository
	notifier Notifier
	ttl      time.Duration
	now      func() time.Time
}

func NewPasswordResetService(users UserRepository, otps OtpRepository, notifier Notifier) *PasswordResetService {
	return &PasswordResetService{
		users:    users,
		otps:     otps,
		notifier: notifier,
		ttl:      types.OtpTTL,
		now:      time.Now,
	}
}

// Request issues a fresh code for email and hands it to the notifier.
// Any earlier code for the same email stops working.
func (s *PasswordResetService) Request(ctx context.Context, email string) error {
	if _, err := s.users.GetByEmail(ctx, email); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUnknownEmail
		}
		return err
	}

	code, err := generateOtpCode()
	if err != nil {
		return err
	}

	otp, err := s.otps.Upsert(ctx, email, code)
	if err != nil {
		return err
	}

	return s.notifier.SendPasswordResetCode(ctx, otp.Email, otp.Code, s.ttl)
}

// Verify checks the code without consuming it. Expiry is checked here
// against the issue timestamp, not left to storage cleanup.
func (s *PasswordResetService) Verify(ctx context.Context, email, code string) error {
	otp, err := s.otps.Get(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidOtp
		}
		return err
	}
	if otp.Code != code || otp.Expired(s.now()) {
		return ErrInvalidOtp
	}
	return nil
}

// Reset re-verifies the code, rewrites the password hash, and consumes
// the code. A second reset with the same code fails because the row is
// gone.
func (s *PasswordResetService) Reset(ctx context.Context, email, code, newPassword string) error {
	if err := s.Verify(ctx, email, code); err != nil {
		return err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	if err := s.users.UpdatePassword(ctx, email, string(hashed)); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUnknownEmail
		}
		return err
	}

	return s.otps.DeleteByEmail(ctx, email)
}

func generateOtpCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
