package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"invoice-backend/internal/claims"
	"invoice-backend/internal/shared/server/respond"
)

const (
	userIDKey    = "userId"
	userClaimKey = "userClaim"
)

// ClaimReader is the subset of claims.Reader the middleware needs.
type ClaimReader interface {
	ReadIngestClaim(header string) (claims.UserClaim, error)
	ReadListingClaim(header string) (claims.UserClaim, error)
}

// IngestClaim requires a credential carrying userId and stores the claim in
// context for upload routes.
func IngestClaim(reader ClaimReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		claim, err := reader.ReadIngestClaim(c.GetHeader("Authorization"))
		if err != nil {
			message := "Invalid token format"
			if errors.Is(err, claims.ErrMissingIdentity) {
				message = "Token missing email identifier"
			}
			respond.Failure(c, http.StatusUnauthorized, "unauthorized", message, nil)
			return
		}
		setClaim(c, claim)
		c.Next()
	}
}

// ListingClaim requires a credential carrying email; the email becomes the
// user key for listing routes.
func ListingClaim(reader ClaimReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		claim, err := reader.ReadListingClaim(c.GetHeader("Authorization"))
		if err != nil {
			respond.Failure(c, http.StatusUnauthorized, "unauthorized", "Invalid token", nil)
			return
		}
		setClaim(c, claim)
		c.Next()
	}
}

func setClaim(c *gin.Context, claim claims.UserClaim) {
	c.Set(userIDKey, claim.UserID)
	c.Set(userClaimKey, claim)
}

// UserIDFromContext fetches the user ID set by the claim middleware.
func UserIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(userIDKey)
	if id, ok := val.(string); ok {
		return id
	}
	return ""
}

// ClaimFromContext fetches the claim set by the claim middleware.
func ClaimFromContext(c *gin.Context) (claims.UserClaim, bool) {
	if c == nil {
		return claims.UserClaim{}, false
	}
	val, ok := c.Get(userClaimKey)
	if !ok {
		return claims.UserClaim{}, false
	}
	claim, ok := val.(claims.UserClaim)
	return claim, ok
}
