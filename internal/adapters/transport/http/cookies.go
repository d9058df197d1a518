package http

import (
	"net/http"

	"github.com/Miraines/MoonyAndStarry/video-service/internal/adapters/transport/http/middleware"
	"github.com/Miraines/MoonyAndStarry/video-service/internal/domain/auth/model"
	"github.com/gin-gonic/gin"
)

const refreshCookie = "refreshToken"

func (h *Handler) setTokenCookies(c *gin.Context, pair model.TokenPair) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(
		middleware.AccessCookie,
		pair.AccessToken,
		int(pair.AccessTTL.Seconds()),
		"/",
		h.cfg.CookieDomain,
		h.cfg.CookieSecure,
		true, // httpOnly
	)
	c.SetCookie(
		refreshCookie,
		pair.RefreshToken,
		int(pair.RefreshTTL.Seconds()),
		"/",
		h.cfg.CookieDomain,
		h.cfg.CookieSecure,
		true,
	)
}

func (h *Handler) clearTokenCookies(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	for _, name := range []string{middleware.AccessCookie, refreshCookie} {
		c.SetCookie(name, "", -1, "/", h.cfg.CookieDomain, h.cfg.CookieSecure, true)
	}
}
