// Package claims decodes user identity from the bearer credential sent by the
// frontend. In the default opaque mode the credential is a JSON object (or a
// JSON string holding that object) and is trusted as-is.
package claims

import (
	"encoding/json"
	"errors"
	"strings"
)

const bearerPrefix = "Bearer "

var (
	// ErrInvalidToken is returned when the credential cannot be decoded.
	ErrInvalidToken = errors.New("invalid token")
	// ErrMissingIdentity is returned when the decoded credential lacks the key
	// required by the calling context. It wraps ErrInvalidToken.
	ErrMissingIdentity = missingIdentityError{}
)

type missingIdentityError struct{}

func (missingIdentityError) Error() string        { return "token missing identifier" }
func (missingIdentityError) Is(target error) bool { return target == ErrInvalidToken }

// UserClaim is the identity carried by a credential.
type UserClaim struct {
	UserID string `json:"userId"`
	Email  string `json:"email,omitempty"`
}

// Decoder turns the raw credential (prefix already stripped) into a field map.
type Decoder interface {
	Decode(token string) (map[string]any, error)
}

// Reader extracts claims for the two lookup contexts the API uses.
type Reader struct {
	decoder Decoder
}

// NewReader constructs a Reader. A nil decoder selects opaque JSON decoding.
func NewReader(decoder Decoder) *Reader {
	if decoder == nil {
		decoder = OpaqueDecoder{}
	}
	return &Reader{decoder: decoder}
}

// ReadIngestClaim returns the claim keyed by userId, used when storing uploads.
func (r *Reader) ReadIngestClaim(header string) (UserClaim, error) {
	fields, err := r.decode(header)
	if err != nil {
		return UserClaim{}, err
	}
	claim := UserClaim{
		UserID: stringField(fields, "userId"),
		Email:  stringField(fields, "email"),
	}
	if claim.UserID == "" {
		return UserClaim{}, ErrMissingIdentity
	}
	return claim, nil
}

// ReadListingClaim returns the claim keyed by email, used when listing a
// user's invoices. The email becomes the lookup key for the userId column.
func (r *Reader) ReadListingClaim(header string) (UserClaim, error) {
	fields, err := r.decode(header)
	if err != nil {
		return UserClaim{}, err
	}
	email := stringField(fields, "email")
	if email == "" {
		return UserClaim{}, ErrMissingIdentity
	}
	return UserClaim{UserID: email, Email: email}, nil
}

func (r *Reader) decode(header string) (map[string]any, error) {
	token := strings.TrimSpace(strings.ReplaceAll(header, bearerPrefix, ""))
	if token == "" {
		return nil, ErrInvalidToken
	}
	return r.decoder.Decode(token)
}

// OpaqueDecoder parses the credential as JSON, unwrapping one level of
// string encoding.
type OpaqueDecoder struct{}

// Decode implements Decoder.
func (OpaqueDecoder) Decode(token string) (map[string]any, error) {
	var parsed any
	if err := json.Unmarshal([]byte(token), &parsed); err != nil {
		return nil, ErrInvalidToken
	}
	if inner, ok := parsed.(string); ok {
		if err := json.Unmarshal([]byte(inner), &parsed); err != nil {
			return nil, ErrInvalidToken
		}
	}
	fields, ok := parsed.(map[string]any)
	if !ok {
		return nil, ErrInvalidToken
	}
	return fields, nil
}

func stringField(fields map[string]any, key string) string {
	switch v := fields[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return formatNumber(v)
	default:
		return ""
	}
}

func formatNumber(v float64) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
