package resumes

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenKind = "resume_access"

type accessClaims struct {
	Kind string `json:"kind"`
	jwt.RegisteredClaims
}

// TokenIssuer mints and verifies the stateless access tokens that gate
// resume viewing and export. Tokens are HS256 with the resume ID as
// subject and always carry an expiry.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer constructs a TokenIssuer.
func NewTokenIssuer(secret string, ttl time.Duration) (*TokenIssuer, error) {
	if secret == "" {
		return nil, fmt.Errorf("token secret is required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("token ttl must be positive")
	}
	return &TokenIssuer{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// Issue mints an access token for one resume.
func (t *TokenIssuer) Issue(resumeID string) (string, error) {
	now := t.now().UTC()
	claims := accessClaims{
		Kind: tokenKind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   resumeID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// Verify checks a token and returns the resume ID it grants access to.
// Any failure, including a missing expiry, yields ErrAccessDenied.
func (t *TokenIssuer) Verify(token string) (string, error) {
	var claims accessClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(tok *jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return t.now() }),
	)
	if err != nil || !parsed.Valid {
		return "", ErrAccessDenied
	}
	if claims.Kind != tokenKind || claims.Subject == "" {
		return "", ErrAccessDenied
	}
	return claims.Subject, nil
}
