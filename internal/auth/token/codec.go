// Package token implements the bearer token codec: HS256-signed claims
// carrying the identity, role, and expiry. The codec is stateless; session
// liveness is the session store's concern.
package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	id "tenderdesk/pkg/domain"
	dErrors "tenderdesk/pkg/domain-errors"
)

// MinSecretBytes mirrors the startup requirement: the codec refuses to be
// constructed with a secret shorter than this.
const MinSecretBytes = 32

// Claims are the verified contents of a bearer token.
type Claims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Codec signs and verifies bearer tokens.
type Codec struct {
	signingKey []byte
	issuer     string
	audience   string
	now        func() time.Time
}

// Option configures a Codec.
type Option func(*Codec)

// WithClock overrides the codec's clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) {
		c.now = now
	}
}

// NewCodec constructs a token codec. It fails rather than accept a weak
// signing secret.
func NewCodec(signingSecret, issuer, audience string, opts ...Option) (*Codec, error) {
	if len(signingSecret) < MinSecretBytes {
		return nil, fmt.Errorf("token: signing secret must be at least %d bytes", MinSecretBytes)
	}
	c := &Codec{
		signingKey: []byte(signingSecret),
		issuer:     issuer,
		audience:   audience,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Issue signs a token for the given identity with the given TTL. Each token
// gets a fresh jti, so two logins never produce the same token.
func (c *Codec) Issue(userID id.UserID, role string, ttl time.Duration) (string, error) {
	now := c.now()
	claims := Claims{
		UserID: userID.String(),
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    c.issuer,
			Audience:  []string{c.audience},
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.signingKey)
	if err != nil {
		return "", fmt.Errorf("token: signing failed: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and expiry of a token. Every failure mode
// (tampering, expiry, wrong algorithm, garbage input) yields the same
// unauthorized error so callers cannot be used as an oracle.
func (c *Codec) Verify(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return c.signingKey, nil
	}, jwt.WithTimeFunc(c.now))
	if err != nil || !parsed.Valid {
		return nil, errInvalidToken()
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, errInvalidToken()
	}
	if _, err := id.ParseUserID(claims.UserID); err != nil {
		return nil, errInvalidToken()
	}
	return claims, nil
}

func errInvalidToken() error {
	return dErrors.New(dErrors.CodeUnauthorized, "invalid or expired token")
}
