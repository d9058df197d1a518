package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Miraines/MoonyAndStarry/video-service/internal/adapters/transport/http/response"
	authErrors "github.com/Miraines/MoonyAndStarry/video-service/internal/domain/auth/errors"
	"github.com/Miraines/MoonyAndStarry/video-service/internal/domain/auth/model"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type authStub struct {
	valid map[string]model.Profile
	err   error
}

func (a authStub) Authenticate(_ context.Context, token string) (model.Profile, error) {
	if a.err != nil {
		return model.Profile{}, a.err
	}
	p, ok := a.valid[token]
	if !ok {
		return model.Profile{}, authErrors.NewInvalidToken(errors.New("token is malformed"))
	}
	return p, nil
}

func gatedRouter(auth Authenticator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", RequireAuth(auth), func(c *gin.Context) {
		u, ok := UserFrom(c)
		if !ok {
			c.Status(http.StatusTeapot)
			return
		}
		c.String(http.StatusOK, u.Username)
	})
	return r
}

func TestRequireAuth(t *testing.T) {
	ana := model.Profile{ID: uuid.New(), Username: "ana"}
	r := gatedRouter(authStub{valid: map[string]model.Profile{"good": ana}})

	cases := []struct {
		name   string
		setup  func(*http.Request)
		status int
	}{
		{"cookie", func(req *http.Request) { req.AddCookie(&http.Cookie{Name: AccessCookie, Value: "good"}) }, http.StatusOK},
		{"bearer", func(req *http.Request) { req.Header.Set("Authorization", "Bearer good") }, http.StatusOK},
		{"bearer lowercase", func(req *http.Request) { req.Header.Set("Authorization", "bearer good") }, http.StatusOK},
		{"missing", func(*http.Request) {}, http.StatusUnauthorized},
		{"bad token", func(req *http.Request) { req.Header.Set("Authorization", "Bearer nope") }, http.StatusUnauthorized},
		{"basic scheme", func(req *http.Request) { req.Header.Set("Authorization", "Basic good") }, http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			tc.setup(req)
			r.ServeHTTP(w, req)

			require.Equal(t, tc.status, w.Code)
			if tc.status == http.StatusOK {
				require.Equal(t, "ana", w.Body.String())
			} else {
				var env response.Envelope
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
				require.False(t, env.Success)
				require.Equal(t, http.StatusUnauthorized, env.StatusCode)
				require.True(t, strings.HasPrefix(env.Message, "invalid token"), env.Message)
			}
		})
	}
}

func TestRequireAuth_BackendFailure(t *testing.T) {
	r := gatedRouter(authStub{err: authErrors.WrapInternal(errors.New("db down"), "Authenticate")})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer good")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.NotContains(t, w.Body.String(), "db down")
}
