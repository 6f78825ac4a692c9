package claims

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadIngestClaimPlainAndDoubleEncoded(t *testing.T) {
	reader := NewReader(nil)

	plain := `{"userId":"u1","email":"u1@example.com"}`
	quoted, err := json.Marshal(plain)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
	}{
		{name: "plain", header: "Bearer " + plain},
		{name: "double encoded", header: "Bearer " + string(quoted)},
		{name: "extra whitespace", header: "Bearer   " + plain + "  "},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			claim, err := reader.ReadIngestClaim(tt.header)
			require.NoError(t, err)
			assert.Equal(t, UserClaim{UserID: "u1", Email: "u1@example.com"}, claim)
		})
	}
}

func TestReadIngestClaimRejects(t *testing.T) {
	reader := NewReader(nil)

	tests := []struct {
		name   string
		header string
	}{
		{name: "empty", header: ""},
		{name: "bearer only", header: "Bearer "},
		{name: "not json", header: "Bearer abc.def.ghi"},
		{name: "bad inner json", header: `Bearer "not-json"`},
		{name: "array", header: `Bearer ["u1"]`},
		{name: "missing userId", header: `Bearer {"email":"a@b.c"}`},
		{name: "blank userId", header: `Bearer {"userId":"  "}`},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			_, err := reader.ReadIngestClaim(tt.header)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidToken))
		})
	}
}

func TestMissingIdentityIsDistinguishable(t *testing.T) {
	reader := NewReader(nil)

	_, err := reader.ReadIngestClaim(`Bearer {"email":"a@b.c"}`)
	assert.ErrorIs(t, err, ErrMissingIdentity)

	_, err = reader.ReadIngestClaim(`Bearer nope`)
	assert.NotErrorIs(t, err, ErrMissingIdentity)
}

func TestReadListingClaimUsesEmail(t *testing.T) {
	reader := NewReader(nil)

	claim, err := reader.ReadListingClaim(`Bearer {"userId":"u1","email":"u1@example.com"}`)
	require.NoError(t, err)
	assert.Equal(t, "u1@example.com", claim.UserID)
	assert.Equal(t, "u1@example.com", claim.Email)

	_, err = reader.ReadListingClaim(`Bearer {"userId":"u1"}`)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNumericUserID(t *testing.T) {
	reader := NewReader(nil)

	claim, err := reader.ReadIngestClaim(`Bearer {"userId":42}`)
	require.NoError(t, err)
	assert.Equal(t, "42", claim.UserID)
}

func TestJWTDecoder(t *testing.T) {
	decoder, err := NewJWTDecoder("test-secret")
	require.NoError(t, err)
	reader := NewReader(decoder)

	token, err := decoder.Sign(UserClaim{UserID: "u1", Email: "u1@example.com"}, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	require.NoError(t, err)

	claim, err := reader.ReadIngestClaim("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claim.UserID)

	other, err := NewJWTDecoder("other-secret")
	require.NoError(t, err)
	_, err = NewReader(other).ReadIngestClaim("Bearer " + token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, err := decoder.Sign(UserClaim{UserID: "u1"}, jwt.MapClaims{
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	require.NoError(t, err)
	_, err = reader.ReadIngestClaim("Bearer " + expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = reader.ReadIngestClaim(`Bearer {"userId":"u1"}`)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewJWTDecoderRequiresSecret(t *testing.T) {
	_, err := NewJWTDecoder(" ")
	assert.Error(t, err)
}
