// Package auth verifies bearer tokens and carries the resulting identity
// through request contexts.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrMissingToken = errors.New("missing token")
)

// Session is the identity of the caller. The zero value is a guest.
type Session struct {
	UserID  string `json:"user_id,omitempty"`
	Email   string `json:"email,omitempty"`
	Name    string `json:"name,omitempty"`
	IsAdmin bool   `json:"is_admin"`
}

func (s Session) Authenticated() bool {
	return s.UserID != ""
}

type Claims struct {
	Email   string `json:"email,omitempty"`
	Name    string `json:"name,omitempty"`
	IsAdmin bool   `json:"is_admin,omitempty"`
	jwt.RegisteredClaims
}

type Verifier struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewVerifier(secret string, ttl time.Duration) *Verifier {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Verifier{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Verify parses an HS256 token. The subject claim is the user id.
func (v *Verifier) Verify(raw string) (Session, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil || !token.Valid {
		return Session{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return Session{}, fmt.Errorf("%w: subject claim missing", ErrInvalidToken)
	}
	return Session{
		UserID:  claims.Subject,
		Email:   claims.Email,
		Name:    claims.Name,
		IsAdmin: claims.IsAdmin,
	}, nil
}

// VerifyHeader verifies an Authorization header value of the form
// "Bearer <token>".
func (v *Verifier) VerifyHeader(header string) (Session, error) {
	raw := strings.TrimSpace(header)
	if raw == "" {
		return Session{}, ErrMissingToken
	}
	parts := strings.Split(raw, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return Session{}, fmt.Errorf("%w: bad authorization header", ErrInvalidToken)
	}
	return v.Verify(parts[1])
}

// Issue signs a token for s. Used by tooling and tests; login itself belongs
// to the identity provider.
func (v *Verifier) Issue(s Session) (string, error) {
	now := v.now()
	claims := Claims{
		Email:   s.Email,
		Name:    s.Name,
		IsAdmin: s.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(v.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

type sessionKey struct{}

func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// FromContext returns the caller identity, or a guest session.
func FromContext(ctx context.Context) Session {
	s, _ := ctx.Value(sessionKey{}).(Session)
	return s
}
