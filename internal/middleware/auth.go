package middleware

import (
	"net/http"
	"strings"

	"stockpos/internal/apierror"
	"stockpos/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	ClaimsKey = "claims"
	UserIDKey = "user_id"

	// AccessTokenCookie carries the access token for browser clients that log
	// in through the form endpoints.
	AccessTokenCookie = "access_token"
)

// JWTAuth validates the access token on every protected route. The token is
// read from the Authorization Bearer header first, then from the cookie.
func JWTAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := bearerToken(c)
		if tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("Please log in to access this page."))
			return
		}

		claims, err := service.ParseToken(secret, tokenStr)
		if err != nil || claims.Type != service.TokenAccess {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("Session expired. Please log in again."))
			return
		}

		c.Set(ClaimsKey, claims)
		c.Set(UserIDKey, claims.UserID)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	if cookie, err := c.Cookie(AccessTokenCookie); err == nil {
		return cookie
	}
	return ""
}

// GetClaims is a helper to retrieve typed claims from the Gin context.
func GetClaims(c *gin.Context) *service.TokenClaims {
	claims, _ := c.Get(ClaimsKey)
	tc, _ := claims.(*service.TokenClaims)
	return tc
}

// GetUserID returns the authenticated user's id, or 0 outside JWTAuth.
func GetUserID(c *gin.Context) uint {
	return c.GetUint(UserIDKey)
}
