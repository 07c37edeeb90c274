package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/medrecords-users/internal/domain/identity"
	"github.com/oksasatya/medrecords-users/pkg/helpers"
	"github.com/oksasatya/medrecords-users/pkg/response"
)

const CtxUserIDKey = "userID"

// Auth validates the access token from the Authorization header (Bearer)
// or the access_token cookie. On success the user id becomes the acting
// user for repository writes and is also set as "userID" in the Gin context.
func Auth(jwt *helpers.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			response.Abort(c, http.StatusUnauthorized, "missing access token", nil)
			return
		}
		claims, err := jwt.ParseAccessToken(token)
		if err != nil {
			response.Abort(c, http.StatusUnauthorized, "invalid access token", err.Error())
			return
		}

		c.Set(CtxUserIDKey, claims.UserID)
		c.Set("userName", claims.Username)
		c.Request = c.Request.WithContext(identity.WithActor(c.Request.Context(), claims.UserID))
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	token, err := c.Cookie("access_token")
	if err != nil {
		return ""
	}
	return token
}
