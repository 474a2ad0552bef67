package types

import "time"

// OtpTTL is how long a password-reset code stays valid after issue.
const OtpTTL = 5 * time.Minute

// Otp is a one-time password-reset code bound to an email address.
// At most one active row exists per email; the row is deleted when the
// reset completes.
type Otp struct {
	// Email the code was issued for (lowercase).
	Email string `json:"email" db:"email"`

	// Code is the 6-digit numeric reset code.
	Code string `json:"code" db:"code"`

	// CreatedAt is when the code was issued; validity is CreatedAt+OtpTTL.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Expired reports whether the code's TTL has elapsed at now.
func (o Otp) Expired(now time.Time) bool {
	return now.Sub(o.CreatedAt) > OtpTTL
}
