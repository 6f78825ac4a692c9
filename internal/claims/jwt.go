package claims

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// JWTDecoder verifies HS256-signed credentials and returns their claims.
// It is selected with AUTH_MODE=jwt; the opaque decoder remains the default.
type JWTDecoder struct {
	secret []byte
}

// NewJWTDecoder constructs a JWTDecoder for the given shared secret.
func NewJWTDecoder(secret string) (*JWTDecoder, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("jwt secret not configured")
	}
	return &JWTDecoder{secret: []byte(secret)}, nil
}

// Decode implements Decoder.
func (d *JWTDecoder) Decode(token string) (map[string]any, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return d.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	mapClaims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	return map[string]any(mapClaims), nil
}

// Sign issues an HS256 credential carrying the given claim. Used by tests and
// local tooling that need a token the JWT mode accepts.
func (d *JWTDecoder) Sign(claim UserClaim, extra jwt.MapClaims) (string, error) {
	payload := jwt.MapClaims{"userId": claim.UserID}
	if claim.Email != "" {
		payload["email"] = claim.Email
	}
	for k, v := range extra {
		payload[k] = v
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, payload).SignedString(d.secret)
}
