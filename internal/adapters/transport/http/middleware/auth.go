package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/Miraines/MoonyAndStarry/video-service/internal/adapters/transport/http/response"
	authErrors "github.com/Miraines/MoonyAndStarry/video-service/internal/domain/auth/errors"
	"github.com/Miraines/MoonyAndStarry/video-service/internal/domain/auth/model"
	"github.com/gin-gonic/gin"
)

const (
	AccessCookie = "accessToken"
	userKey      = "authUser"
)

type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (model.Profile, error)
}

// RequireAuth is the access gate: cookie first, then the Bearer header.
func RequireAuth(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := accessToken(c)
		if token == "" {
			response.Error(c, authErrors.NewInvalidToken(errors.New("access token is missing")))
			return
		}

		user, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			response.Error(c, err)
			return
		}
		c.Set(userKey, user)
		c.Next()
	}
}

func accessToken(c *gin.Context) string {
	if v, err := c.Cookie(AccessCookie); err == nil && v != "" {
		return v
	}
	h := c.GetHeader("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// UserFrom returns the profile stored by RequireAuth.
func UserFrom(c *gin.Context) (model.Profile, bool) {
	v, ok := c.Get(userKey)
	if !ok {
		return model.Profile{}, false
	}
	p, ok := v.(model.Profile)
	return p, ok
}
