package middlewares

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"punchexport.com/punchexport/security"
	"punchexport.com/punchexport/web/common"
)

const (
	SessionCookie = "punchexport.session"
	IdentityKey   = "identity"
)

// Authentication checks for a valid Bearer token, falling back to the
// session cookie.
func Authentication(jwtSecret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := ""

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			cookie, err := c.Cookie(SessionCookie)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, common.NewErrorResponse("missing token"))
				return
			}
			tokenStr = cookie
		} else {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				c.AbortWithStatusJSON(http.StatusUnauthorized, common.NewErrorResponse("invalid authorization header"))
				return
			}
			tokenStr = parts[1]
		}

		claims, err := security.ParseIdentityToken(tokenStr, jwtSecret)
		if err != nil {
			message := "invalid token"
			if errors.Is(err, jwt.ErrTokenExpired) {
				message = "token expired"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, common.NewErrorResponse(message))
			return
		}

		c.Set(IdentityKey, claims.Identity)
		c.Next()
	}
}

// CurrentIdentity returns the identity set by Authentication.
func CurrentIdentity(c *gin.Context) (security.Identity, bool) {
	v, ok := c.Get(IdentityKey)
	if !ok {
		return security.Identity{}, false
	}
	identity, ok := v.(security.Identity)
	return identity, ok
}
