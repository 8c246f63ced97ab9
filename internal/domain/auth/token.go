package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"worklog-server-go/internal/domain/auth/model"
)

const defaultTokenTTL = 7 * 24 * time.Hour

// Claims is the bearer token payload. SessionID binds the token to a server
// side session; a token without it cannot pass the request gate.
type Claims struct {
	UserID    uint   `json:"user_id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	SessionID string `json:"session_id,omitempty"`
	jwt.RegisteredClaims
}

// Identity reconstructs the principal carried by the claims. An unparseable
// role degrades to observer rather than failing the request; role authority
// is re-checked against storage for privileged operations anyway.
func (c *Claims) Identity() model.Identity {
	role, err := model.ParseRole(c.Role)
	if err != nil {
		role = model.RoleObserver
	}
	return model.Identity{
		ID:     c.UserID,
		Email:  c.Email,
		Role:   role,
		Status: model.StatusActive,
	}
}

// Codec signs and verifies HS256 bearer tokens.
type Codec struct {
	secret []byte
	ttl    time.Duration
}

// NewCodec builds a Codec over the shared signing secret.
func NewCodec(secret string) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("token codec requires a signing secret")
	}
	return &Codec{
		secret: []byte(secret),
		ttl:    defaultTokenTTL,
	}, nil
}

// WithTTL overrides the token lifetime.
func (c *Codec) WithTTL(ttl time.Duration) *Codec {
	if ttl > 0 {
		c.ttl = ttl
	}
	return c
}

// Encode issues a signed token binding the identity to the session.
func (c *Codec) Encode(identity model.Identity, sessionID string) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:    identity.ID,
		Email:     identity.Email,
		Role:      identity.Role.String(),
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
			Subject:   fmt.Sprintf("%d", identity.ID),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Decode verifies signature and expiry. Any parse or validation failure maps
// to ErrInvalidToken; callers never learn which check tripped.
func (c *Codec) Decode(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
