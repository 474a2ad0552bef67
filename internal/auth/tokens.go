// Package auth holds the stateless token codec and the per-role
// profile validation shared by the direct and federated signup paths.
package auth

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// SessionTTL bounds how long a session cookie stays valid.
	SessionTTL = 24 * time.Hour

	// SignupTTL bounds the window between an OAuth callback and the
	// completion request it authorizes.
	SignupTTL = time.Hour
)

// Purpose claims keep the two token kinds from crossing flows: a
// signup-completion token is never accepted as a session and vice versa.
const (
	purposeSession = "session"
	purposeSignup  = "signup"
)

// ErrInvalidToken covers bad signatures, expiry, and purpose mismatch.
var ErrInvalidToken = errors.New("invalid or expired token")

// SessionClaims is carried by the session cookie. It asserts identity
// only; the role is always re-read from the store at authorization time.
type SessionClaims struct {
	Email   string `json:"email"`
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// SignupClaims is carried by the temp signup token issued after a
// provider verified the identity but no local account exists yet.
type SignupClaims struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture,omitempty"`
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// TokenCodec signs and verifies the HS256 tokens used by the auth flows.
type TokenCodec struct {
	secret     []byte
	sessionTTL time.Duration
	signupTTL  time.Duration
}

func NewTokenCodec(secret string) *TokenCodec {
	return &TokenCodec{
		secret:     []byte(secret),
		sessionTTL: SessionTTL,
		signupTTL:  SignupTTL,
	}
}

// IssueSession creates a session token for an authenticated user.
func (c *TokenCodec) IssueSession(userID int, email string) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		Email:   email,
		Purpose: purposeSession,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.Itoa(userID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.sessionTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(c.secret)
}

// ParseSession verifies a session token and returns the user id and
// email it asserts.
func (c *TokenCodec) ParseSession(tokenString string) (int, string, error) {
	claims := SessionClaims{}
	if err := c.parse(tokenString, &claims); err != nil {
		return 0, "", err
	}
	if claims.Purpose != purposeSession {
		return 0, "", ErrInvalidToken
	}
	userID, err := strconv.Atoi(claims.Subject)
	if err != nil || userID < 1 {
		return 0, "", ErrInvalidToken
	}
	return userID, claims.Email, nil
}

// IssueSignup creates a signup-completion token embedding the
// provider-verified identity.
func (c *TokenCodec) IssueSignup(email, name, picture string) (string, error) {
	now := time.Now()
	claims := SignupClaims{
		Email:   email,
		Name:    name,
		Picture: picture,
		Purpose: purposeSignup,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.signupTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(c.secret)
}

// ParseSignup verifies a signup-completion token and returns the
// verified identity claims.
func (c *TokenCodec) ParseSignup(tokenString string) (SignupClaims, error) {
	claims := SignupClaims{}
	if err := c.parse(tokenString, &claims); err != nil {
		return SignupClaims{}, err
	}
	if claims.Purpose != purposeSignup || claims.Email == "" {
		return SignupClaims{}, ErrInvalidToken
	}
	return claims, nil
}

func (c *TokenCodec) parse(tokenString string, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return c.secret, nil
	})
	if err != nil || !token.Valid {
		return ErrInvalidToken
	}
	return nil
}
