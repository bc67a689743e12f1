package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/romana/rlog"

	"slopcel/constants"
)

const contextUserId = "auth_user_id"
const contextUserEmail = "auth_user_email"

// Claims is the subset of the hosted auth service's access token this service
// reads. Subject carries the user id.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

func tokenFromRequest(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
		return ""
	}
	cookie, err := c.Cookie("access_token")
	if err != nil {
		return ""
	}
	return cookie
}

// Middleware validates the hosted auth service's JWT. With required=false the
// request proceeds unauthenticated when no valid token is present, so
// handlers can treat the session as optional.
func Middleware(secret string, required bool) gin.HandlerFunc {
	key := []byte(secret)
	return func(c *gin.Context) {
		tokenString := tokenFromRequest(c)
		if tokenString == "" {
			if required {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": constants.UNAUTHENTICATED})
				return
			}
			c.Next()
			return
		}

		claims := Claims{}
		token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
			return key, nil
		}, jwt.WithValidMethods([]string{"HS256"}))
		if err != nil || !token.Valid || claims.Subject == "" {
			if required {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": constants.UNAUTHENTICATED})
				return
			}
			rlog.Debug("Ignoring invalid token on optional-auth endpoint")
			c.Next()
			return
		}

		c.Set(contextUserId, claims.Subject)
		c.Set(contextUserEmail, claims.Email)
		c.Next()
	}
}

// CurrentUser returns the authenticated user id and email, if any.
func CurrentUser(c *gin.Context) (string, string, bool) {
	id, exists := c.Get(contextUserId)
	if !exists {
		return "", "", false
	}
	email, _ := c.Get(contextUserEmail)
	emailStr, _ := email.(string)
	idStr, ok := id.(string)
	return idStr, emailStr, ok
}

// AdminOnly gates a route group on the configured admin email allowlist.
// Must run after Middleware.
func AdminOnly(adminEmails []string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(adminEmails))
	for _, email := range adminEmails {
		allowed[strings.ToLower(email)] = true
	}
	return func(c *gin.Context) {
		_, email, ok := CurrentUser(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": constants.UNAUTHENTICATED})
			return
		}
		if !allowed[strings.ToLower(email)] {
			rlog.Infof("Admin access denied for %s", email)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": constants.ADMIN_ONLY})
			return
		}
		c.Next()
	}
}
