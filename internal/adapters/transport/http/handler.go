package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Miraines/MoonyAndStarry/video-service/internal/adapters/transport/http/dto"
	"github.com/Miraines/MoonyAndStarry/video-service/internal/adapters/transport/http/middleware"
	"github.com/Miraines/MoonyAndStarry/video-service/internal/adapters/transport/http/response"
	appsvc "github.com/Miraines/MoonyAndStarry/video-service/internal/app/auth/service"
	authErrors "github.com/Miraines/MoonyAndStarry/video-service/internal/domain/auth/errors"
	"github.com/Miraines/MoonyAndStarry/video-service/internal/domain/auth/model"
	"github.com/Miraines/MoonyAndStarry/video-service/internal/infra/config"
	lg "github.com/Miraines/MoonyAndStarry/video-service/internal/infra/log"
	"github.com/Miraines/MoonyAndStarry/video-service/internal/infra/metrics"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Pinger is anything /health can probe: the database, redis.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	svc     appsvc.Service
	cfg     *config.Config
	log     *zap.Logger
	metrics *metrics.Metrics
	checks  map[string]Pinger
}

func NewHandler(svc appsvc.Service, cfg *config.Config, log *zap.Logger, m *metrics.Metrics, checks map[string]Pinger) *Handler {
	return &Handler{svc: svc, cfg: cfg, log: log, metrics: m, checks: checks}
}

type loginData struct {
	User         model.Profile `json:"user"`
	AccessToken  string        `json:"accessToken"`
	RefreshToken string        `json:"refreshToken"`
}

type tokenData struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

func badBody(err error) error {
	return authErrors.NewInvalidArgument(fmt.Sprintf("invalid request body: %v", err))
}

func (h *Handler) Register(c *gin.Context) {
	var body dto.RegisterDTO
	if err := c.ShouldBind(&body); err != nil {
		response.Error(c, badBody(err))
		return
	}

	avatar, cleanAvatar, err := h.saveUpload(c, "avatar")
	defer cleanAvatar()
	if err != nil {
		response.Error(c, err)
		return
	}
	cover, cleanCover, err := h.saveUpload(c, "coverImage")
	defer cleanCover()
	if err != nil {
		response.Error(c, err)
		return
	}
	body.AvatarPath, body.CoverImagePath = avatar, cover

	h.log.Info("/register", lg.Identity(body.Email))
	profile, err := h.svc.Register(c.Request.Context(), body)
	h.metrics.AuthEvent("register", err)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusCreated, "User registered successfully", profile)
}

func (h *Handler) Login(c *gin.Context) {
	var body dto.LoginDTO
	if err := c.ShouldBind(&body); err != nil {
		response.Error(c, badBody(err))
		return
	}

	session, err := h.svc.Login(c.Request.Context(), body)
	h.metrics.AuthEvent("login", err)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.setTokenCookies(c, session.Tokens)
	response.OK(c, http.StatusOK, "User logged in successfully", loginData{
		User:         session.User,
		AccessToken:  session.Tokens.AccessToken,
		RefreshToken: session.Tokens.RefreshToken,
	})
}

func (h *Handler) Logout(c *gin.Context) {
	user, ok := middleware.UserFrom(c)
	if !ok {
		response.Error(c, authErrors.ErrInvalidToken)
		return
	}

	err := h.svc.Logout(c.Request.Context(), user.ID)
	h.metrics.AuthEvent("logout", err)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.clearTokenCookies(c)
	response.OK(c, http.StatusOK, "User logged out", gin.H{})
}

func (h *Handler) RefreshToken(c *gin.Context) {
	var body dto.RefreshDTO
	if v, err := c.Cookie(refreshCookie); err == nil && v != "" {
		body.RefreshToken = v
	} else if c.Request.ContentLength != 0 {
		if err := c.ShouldBind(&body); err != nil && !errors.Is(err, io.EOF) {
			response.Error(c, badBody(err))
			return
		}
	}

	pair, err := h.svc.Refresh(c.Request.Context(), body)
	h.metrics.AuthEvent("refresh", err)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.setTokenCookies(c, pair)
	response.OK(c, http.StatusOK, "Access token refreshed", tokenData{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

func (h *Handler) ChangePassword(c *gin.Context) {
	user, ok := middleware.UserFrom(c)
	if !ok {
		response.Error(c, authErrors.ErrInvalidToken)
		return
	}
	var body dto.ChangePasswordDTO
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, badBody(err))
		return
	}

	err := h.svc.ChangePassword(c.Request.Context(), user.ID, body)
	h.metrics.AuthEvent("change_password", err)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, "Password changed successfully", gin.H{})
}

func (h *Handler) CurrentUser(c *gin.Context) {
	user, ok := middleware.UserFrom(c)
	if !ok {
		response.Error(c, authErrors.ErrInvalidToken)
		return
	}
	profile, err := h.svc.CurrentUser(c.Request.Context(), user.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, "User fetched successfully", profile)
}

func (h *Handler) UpdateAccount(c *gin.Context) {
	user, ok := middleware.UserFrom(c)
	if !ok {
		response.Error(c, authErrors.ErrInvalidToken)
		return
	}
	var body dto.UpdateAccountDTO
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, badBody(err))
		return
	}

	profile, err := h.svc.UpdateAccountDetails(c.Request.Context(), user.ID, body)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, "Account details updated successfully", profile)
}

func (h *Handler) UpdateAvatar(c *gin.Context) {
	h.updateImage(c, "avatar", h.svc.UpdateAvatar, "Avatar updated successfully")
}

func (h *Handler) UpdateCoverImage(c *gin.Context) {
	h.updateImage(c, "coverImage", h.svc.UpdateCoverImage, "Cover image updated successfully")
}

func (h *Handler) updateImage(
	c *gin.Context,
	field string,
	update func(context.Context, uuid.UUID, string) (model.Profile, error),
	message string,
) {
	user, ok := middleware.UserFrom(c)
	if !ok {
		response.Error(c, authErrors.ErrInvalidToken)
		return
	}

	path, cleanup, err := h.saveUpload(c, field)
	defer cleanup()
	if err != nil {
		response.Error(c, err)
		return
	}

	profile, err := update(c.Request.Context(), user.ID, path)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, message, profile)
}

// saveUpload stores the multipart file under the temp dir. A missing field
// yields an empty path; the returned cleanup is always safe to call.
func (h *Handler) saveUpload(c *gin.Context, field string) (string, func(), error) {
	noop := func() {}

	fh, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return "", noop, nil
		}
		return "", noop, authErrors.NewInvalidArgument(fmt.Sprintf("%s: %v", field, err))
	}
	if h.cfg.MaxUploadBytes > 0 && fh.Size > h.cfg.MaxUploadBytes {
		return "", noop, authErrors.NewInvalidArgument(fmt.Sprintf("%s exceeds %d bytes", field, h.cfg.MaxUploadBytes))
	}

	if err := os.MkdirAll(h.cfg.UploadTempDir, 0o755); err != nil {
		return "", noop, authErrors.WrapInternal(err, "create temp dir")
	}
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	dst := filepath.Join(h.cfg.UploadTempDir, uuid.NewString()+ext)

	cleanup := func() {
		if err := os.Remove(dst); err != nil && !errors.Is(err, os.ErrNotExist) {
			h.log.Warn("remove temp upload", zap.String("path", dst), zap.Error(err))
		}
	}
	if err := c.SaveUploadedFile(fh, dst); err != nil {
		return "", cleanup, authErrors.WrapInternal(err, "save upload")
	}
	return dst, cleanup, nil
}

func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	deps := gin.H{}
	for name, p := range h.checks {
		if err := p.Ping(ctx); err != nil {
			h.log.Warn("health check failed", zap.String("dependency", name), zap.Error(err))
			deps[name] = "down"
			status = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "ok"
	}

	c.JSON(status, gin.H{"status": http.StatusText(status), "deps": deps, "time": time.Now().Unix()})
}
