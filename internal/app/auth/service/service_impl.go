package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/Miraines/MoonyAndStarry/video-service/internal/adapters/transport/http/dto"
	customErrors "github.com/Miraines/MoonyAndStarry/video-service/internal/domain/auth/errors"
	"github.com/Miraines/MoonyAndStarry/video-service/internal/domain/auth/jwt"
	"github.com/Miraines/MoonyAndStarry/video-service/internal/domain/auth/model"
	"github.com/Miraines/MoonyAndStarry/video-service/internal/domain/auth/repo"
	"github.com/Miraines/MoonyAndStarry/video-service/internal/infra/config"
	lg "github.com/Miraines/MoonyAndStarry/video-service/internal/infra/log"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var errStaleRefresh = errors.New("refresh token is expired or used")

type PasswordHasher interface {
	Hash(secret string) (string, error)
	Verify(secret, encodedHash string) bool
}

type Service interface {
	Register(context.Context, dto.RegisterDTO) (model.Profile, error)
	Login(context.Context, dto.LoginDTO) (model.Session, error)
	Logout(ctx context.Context, userID uuid.UUID) error
	Refresh(context.Context, dto.RefreshDTO) (model.TokenPair, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, in dto.ChangePasswordDTO) error
	Authenticate(ctx context.Context, accessToken string) (model.Profile, error)
	CurrentUser(ctx context.Context, userID uuid.UUID) (model.Profile, error)
	UpdateAccountDetails(ctx context.Context, userID uuid.UUID, in dto.UpdateAccountDTO) (model.Profile, error)
	UpdateAvatar(ctx context.Context, userID uuid.UUID, localPath string) (model.Profile, error)
	UpdateCoverImage(ctx context.Context, userID uuid.UUID, localPath string) (model.Profile, error)
}

// Deps wires the service. Limiter and Logger are optional.
type Deps struct {
	Users     repo.UserRepo
	Sessions  repo.SessionStore
	Tokens    jwt.JWTUtil
	Passwords PasswordHasher
	Media     repo.MediaUploader
	Limiter   repo.LoginLimiter
	Config    *config.Config
	Validator *validator.Validate
	Logger    *zap.Logger
}

type authService struct {
	userRepo repo.UserRepo
	sessions repo.SessionStore
	jwtUtil  jwt.JWTUtil
	hasher   PasswordHasher
	media    repo.MediaUploader
	limiter  repo.LoginLimiter
	cfg      *config.Config
	v        *validator.Validate
	log      *zap.Logger
}

func New(d Deps) Service {
	if d.Validator == nil {
		d.Validator = NewValidator()
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return &authService{
		userRepo: d.Users,
		sessions: d.Sessions,
		jwtUtil:  d.Tokens,
		hasher:   d.Passwords,
		media:    d.Media,
		limiter:  d.Limiter,
		cfg:      d.Config,
		v:        d.Validator,
		log:      d.Logger,
	}
}

// call bounds a single collaborator round trip.
func (a *authService) call(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.cfg == nil || a.cfg.ExternalCallTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.cfg.ExternalCallTimeout)
}

func (a *authService) Register(ctx context.Context, in dto.RegisterDTO) (model.Profile, error) {
	in.Normalize()
	if err := a.v.Struct(in); err != nil {
		return model.Profile{}, validationError(err)
	}

	cctx, cancel := a.call(ctx)
	_, err := a.userRepo.GetUserByUsernameOrEmail(cctx, in.Username, in.Email)
	cancel()
	switch {
	case err == nil:
		return model.Profile{}, customErrors.NewAlreadyExists("user with this username or email")
	case !customErrors.IsNotFound(err):
		return model.Profile{}, customErrors.WrapInternal(err, "Register")
	}

	avatarURL, err := a.upload(ctx, in.AvatarPath)
	if err != nil {
		return model.Profile{}, customErrors.WrapInternal(err, "upload avatar")
	}
	var coverURL string
	if in.CoverImagePath != "" {
		if coverURL, err = a.upload(ctx, in.CoverImagePath); err != nil {
			a.discardUploads(ctx, avatarURL)
			return model.Profile{}, customErrors.WrapInternal(err, "upload cover image")
		}
	}

	passwordHash, err := a.hasher.Hash(in.Password)
	if err != nil {
		a.discardUploads(ctx, avatarURL, coverURL)
		return model.Profile{}, customErrors.WrapInternal(err, "Register")
	}

	user := model.User{
		ID:           uuid.New(),
		Username:     in.Username,
		Email:        in.Email,
		FullName:     in.FullName,
		PasswordHash: passwordHash,
		Avatar:       avatarURL,
		CoverImage:   coverURL,
	}

	cctx, cancel = a.call(ctx)
	id, err := a.userRepo.CreateUser(cctx, user)
	cancel()
	if err != nil {
		// пользователь не создан, загруженные файлы никому не принадлежат
		a.discardUploads(ctx, avatarURL, coverURL)
		if customErrors.IsAlreadyExists(err) {
			return model.Profile{}, err
		}
		return model.Profile{}, customErrors.WrapInternal(err, "Register")
	}

	cctx, cancel = a.call(ctx)
	created, err := a.userRepo.GetUserByID(cctx, id)
	cancel()
	if err != nil {
		return model.Profile{}, customErrors.WrapInternal(err, "read back created user")
	}

	a.log.Info("user registered", zap.String("user_id", created.ID.String()))
	return created.Profile(), nil
}

// discardUploads is best effort: a failed delete only leaves an orphan object.
func (a *authService) discardUploads(ctx context.Context, urls ...string) {
	ctx = context.WithoutCancel(ctx)
	for _, url := range urls {
		if url == "" {
			continue
		}
		cctx, cancel := a.call(ctx)
		err := a.media.Delete(cctx, url)
		cancel()
		if err != nil {
			a.log.Warn("failed to delete orphaned upload", zap.String("url", url), zap.Error(err))
		}
	}
}

func (a *authService) upload(ctx context.Context, path string) (string, error) {
	cctx, cancel := a.call(ctx)
	defer cancel()
	return a.media.Upload(cctx, path)
}

func (a *authService) Login(ctx context.Context, in dto.LoginDTO) (model.Session, error) {
	identifier := in.LoginIdentifier()
	if identifier == "" {
		return model.Session{}, customErrors.NewInvalidArgument("username or email is required")
	}
	if err := a.v.Struct(in); err != nil {
		return model.Session{}, validationError(err)
	}

	if a.isLocked(ctx, identifier) {
		a.log.Warn("login locked out", lg.Identity(identifier))
		return model.Session{}, customErrors.ErrTooManyRequests
	}

	cctx, cancel := a.call(ctx)
	user, err := a.userRepo.GetUserByUsernameOrEmail(cctx, identifier, identifier)
	cancel()
	switch {
	case customErrors.IsNotFound(err):
		a.recordFailure(ctx, identifier)
		return model.Session{}, customErrors.ErrInvalidCredentials
	case err != nil:
		return model.Session{}, customErrors.WrapInternal(err, "Login")
	}

	if !a.hasher.Verify(in.Password, user.PasswordHash) {
		a.recordFailure(ctx, identifier)
		return model.Session{}, customErrors.ErrInvalidCredentials
	}

	pair, err := a.issueTokens(user.ID)
	if err != nil {
		return model.Session{}, err
	}

	// новый вход перезаписывает прежний refresh token: одна сессия на аккаунт
	cctx, cancel = a.call(ctx)
	err = a.sessions.SetRefreshToken(cctx, user.ID, pair.RefreshToken)
	cancel()
	if err != nil {
		return model.Session{}, customErrors.WrapInternal(err, "StoreRefresh")
	}

	a.resetFailures(ctx, identifier)
	a.log.Info("user logged in", zap.String("user_id", user.ID.String()))
	return model.Session{Tokens: pair, User: user.Profile()}, nil
}

// isLocked fails open: an unreachable limiter must not block every login.
func (a *authService) isLocked(ctx context.Context, identifier string) bool {
	if a.limiter == nil {
		return false
	}
	cctx, cancel := a.call(ctx)
	defer cancel()
	locked, err := a.limiter.Locked(cctx, identifier)
	if err != nil {
		a.log.Warn("login limiter unavailable", zap.Error(err))
		return false
	}
	return locked
}

func (a *authService) recordFailure(ctx context.Context, identifier string) {
	a.log.Info("login failed", lg.Identity(identifier))
	if a.limiter == nil {
		return
	}
	cctx, cancel := a.call(ctx)
	defer cancel()
	if err := a.limiter.RecordFailure(cctx, identifier); err != nil {
		a.log.Warn("login limiter unavailable", zap.Error(err))
	}
}

func (a *authService) resetFailures(ctx context.Context, identifier string) {
	if a.limiter == nil {
		return
	}
	cctx, cancel := a.call(ctx)
	defer cancel()
	if err := a.limiter.Reset(cctx, identifier); err != nil {
		a.log.Warn("login limiter unavailable", zap.Error(err))
	}
}

func (a *authService) Logout(ctx context.Context, userID uuid.UUID) error {
	cctx, cancel := a.call(ctx)
	defer cancel()
	if err := a.sessions.ClearRefreshToken(cctx, userID); err != nil {
		return customErrors.WrapInternal(err, "Logout")
	}
	a.log.Info("user logged out", zap.String("user_id", userID.String()))
	return nil
}

func (a *authService) Refresh(ctx context.Context, in dto.RefreshDTO) (model.TokenPair, error) {
	if in.RefreshToken == "" {
		return model.TokenPair{}, customErrors.NewInvalidToken(errors.New("refresh token is missing"))
	}

	claims, err := a.jwtUtil.ValidateRefreshToken(in.RefreshToken)
	if err != nil {
		return model.TokenPair{}, err
	}
	uid, err := uuid.Parse(claims.Subject)
	if err != nil {
		return model.TokenPair{}, customErrors.NewInvalidToken(err)
	}

	cctx, cancel := a.call(ctx)
	user, err := a.userRepo.GetUserByID(cctx, uid)
	cancel()
	switch {
	case customErrors.IsNotFound(err):
		return model.TokenPair{}, customErrors.NewInvalidToken(errors.New("user not found"))
	case err != nil:
		return model.TokenPair{}, customErrors.WrapInternal(err, "Refresh")
	}

	if subtle.ConstantTimeCompare([]byte(user.RefreshToken), []byte(in.RefreshToken)) != 1 {
		a.log.Warn("stale refresh token presented", zap.String("user_id", uid.String()))
		return model.TokenPair{}, customErrors.NewInvalidToken(errStaleRefresh)
	}

	pair, err := a.issueTokens(uid)
	if err != nil {
		return model.TokenPair{}, err
	}

	cctx, cancel = a.call(ctx)
	swapped, err := a.sessions.SwapRefreshToken(cctx, uid, in.RefreshToken, pair.RefreshToken)
	cancel()
	if err != nil {
		return model.TokenPair{}, customErrors.WrapInternal(err, "RotateRefresh")
	}
	if !swapped {
		// параллельный refresh успел первым
		return model.TokenPair{}, customErrors.NewInvalidToken(errStaleRefresh)
	}

	return pair, nil
}

func (a *authService) ChangePassword(ctx context.Context, userID uuid.UUID, in dto.ChangePasswordDTO) error {
	if err := a.v.Struct(in); err != nil {
		return validationError(err)
	}

	cctx, cancel := a.call(ctx)
	user, err := a.userRepo.GetUserByID(cctx, userID)
	cancel()
	switch {
	case customErrors.IsNotFound(err):
		return customErrors.NewNotFound("user")
	case err != nil:
		return customErrors.WrapInternal(err, "ChangePassword")
	}

	if !a.hasher.Verify(in.CurrentPassword, user.PasswordHash) {
		return customErrors.ErrInvalidCredentials
	}

	hash, err := a.hasher.Hash(in.NewPassword)
	if err != nil {
		return customErrors.WrapInternal(err, "ChangePassword")
	}

	cctx, cancel = a.call(ctx)
	err = a.userRepo.UpdatePassword(cctx, userID, hash)
	cancel()
	switch {
	case customErrors.IsNotFound(err):
		return customErrors.NewNotFound("user")
	case err != nil:
		return customErrors.WrapInternal(err, "ChangePassword")
	}

	if a.cfg != nil && a.cfg.RevokeSessionsOnPasswordChange {
		cctx, cancel = a.call(ctx)
		err = a.sessions.ClearRefreshToken(cctx, userID)
		cancel()
		if err != nil {
			return customErrors.WrapInternal(err, "ChangePassword")
		}
	}

	a.log.Info("password changed", zap.String("user_id", userID.String()))
	return nil
}

func (a *authService) Authenticate(ctx context.Context, accessToken string) (model.Profile, error) {
	claims, err := a.jwtUtil.ValidateAccessToken(accessToken)
	if err != nil {
		return model.Profile{}, err
	}
	uid, err := uuid.Parse(claims.Subject)
	if err != nil {
		return model.Profile{}, customErrors.NewInvalidToken(err)
	}

	cctx, cancel := a.call(ctx)
	user, err := a.userRepo.GetUserByID(cctx, uid)
	cancel()
	switch {
	case customErrors.IsNotFound(err):
		return model.Profile{}, customErrors.NewInvalidToken(errors.New("user not found"))
	case err != nil:
		return model.Profile{}, customErrors.WrapInternal(err, "Authenticate")
	}
	return user.Profile(), nil
}

func (a *authService) CurrentUser(ctx context.Context, userID uuid.UUID) (model.Profile, error) {
	return a.profile(ctx, userID)
}

func (a *authService) profile(ctx context.Context, userID uuid.UUID) (model.Profile, error) {
	cctx, cancel := a.call(ctx)
	defer cancel()
	user, err := a.userRepo.GetUserByID(cctx, userID)
	switch {
	case customErrors.IsNotFound(err):
		return model.Profile{}, customErrors.NewNotFound("user")
	case err != nil:
		return model.Profile{}, customErrors.WrapInternal(err, "GetUserByID")
	}
	return user.Profile(), nil
}

func (a *authService) UpdateAccountDetails(ctx context.Context, userID uuid.UUID, in dto.UpdateAccountDTO) (model.Profile, error) {
	in.Normalize()
	if err := a.v.Struct(in); err != nil {
		return model.Profile{}, validationError(err)
	}

	cctx, cancel := a.call(ctx)
	other, err := a.userRepo.GetUserByUsernameOrEmail(cctx, "", in.Email)
	cancel()
	switch {
	case err == nil && other.ID != userID:
		return model.Profile{}, customErrors.NewAlreadyExists("email is already taken")
	case err != nil && !customErrors.IsNotFound(err):
		return model.Profile{}, customErrors.WrapInternal(err, "UpdateAccountDetails")
	}

	if err := a.updateProfile(ctx, userID, repo.ProfileFields{FullName: in.FullName, Email: in.Email}); err != nil {
		return model.Profile{}, err
	}
	return a.profile(ctx, userID)
}

func (a *authService) UpdateAvatar(ctx context.Context, userID uuid.UUID, localPath string) (model.Profile, error) {
	if localPath == "" {
		return model.Profile{}, customErrors.NewInvalidArgument("avatar file is missing")
	}
	url, err := a.upload(ctx, localPath)
	if err != nil {
		return model.Profile{}, customErrors.WrapInternal(err, "upload avatar")
	}
	if err := a.updateProfile(ctx, userID, repo.ProfileFields{Avatar: url}); err != nil {
		return model.Profile{}, err
	}
	return a.profile(ctx, userID)
}

func (a *authService) UpdateCoverImage(ctx context.Context, userID uuid.UUID, localPath string) (model.Profile, error) {
	if localPath == "" {
		return model.Profile{}, customErrors.NewInvalidArgument("coverImage file is missing")
	}
	url, err := a.upload(ctx, localPath)
	if err != nil {
		return model.Profile{}, customErrors.WrapInternal(err, "upload cover image")
	}
	if err := a.updateProfile(ctx, userID, repo.ProfileFields{CoverImage: url}); err != nil {
		return model.Profile{}, err
	}
	return a.profile(ctx, userID)
}

func (a *authService) updateProfile(ctx context.Context, userID uuid.UUID, f repo.ProfileFields) error {
	cctx, cancel := a.call(ctx)
	defer cancel()
	err := a.userRepo.UpdateProfile(cctx, userID, f)
	switch {
	case err == nil:
		return nil
	case customErrors.IsAlreadyExists(err):
		return err
	case customErrors.IsNotFound(err):
		return customErrors.NewNotFound("user")
	default:
		return customErrors.WrapInternal(err, "UpdateProfile")
	}
}

func (a *authService) issueTokens(uid uuid.UUID) (model.TokenPair, error) {
	at, atExp, _, err := a.jwtUtil.GenerateAccessToken(uid)
	if err != nil {
		return model.TokenPair{}, customErrors.WrapInternal(err, "GenerateAccessToken")
	}
	rt, rtExp, _, err := a.jwtUtil.GenerateRefreshToken(uid)
	if err != nil {
		return model.TokenPair{}, customErrors.WrapInternal(err, "GenerateRefreshToken")
	}

	now := time.Now()
	return model.TokenPair{
		AccessToken:  at,
		RefreshToken: rt,
		AccessTTL:    atExp.Sub(now),
		RefreshTTL:   rtExp.Sub(now),
		UserId:       uid,
	}, nil
}
