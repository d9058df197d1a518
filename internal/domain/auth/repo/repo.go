package repo

import (
	"context"

	"github.com/Miraines/MoonyAndStarry/video-service/internal/domain/auth/model"
	"github.com/google/uuid"
)

type UserRepo interface {
	CreateUser(ctx context.Context, u model.User) (uuid.UUID, error)

	GetUserByID(ctx context.Context, id uuid.UUID) (model.User, error)

	// GetUserByUsernameOrEmail matches either column; both arguments are
	// expected to be normalized already.
	GetUserByUsernameOrEmail(ctx context.Context, username, email string) (model.User, error)

	UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error

	UpdateProfile(ctx context.Context, id uuid.UUID, fields ProfileFields) error
}

// ProfileFields lists the columns UpdateProfile may touch. Empty values are
// left as they are.
type ProfileFields struct {
	FullName   string
	Email      string
	Avatar     string
	CoverImage string
}

// SessionStore keeps the single outstanding refresh token of a user.
type SessionStore interface {
	SetRefreshToken(ctx context.Context, id uuid.UUID, token string) error

	ClearRefreshToken(ctx context.Context, id uuid.UUID) error

	// SwapRefreshToken replaces old with next only if old is still stored.
	SwapRefreshToken(ctx context.Context, id uuid.UUID, old, next string) (bool, error)
}

type MediaUploader interface {
	Upload(ctx context.Context, localFilePath string) (url string, err error)
	Delete(ctx context.Context, url string) error
}

type LoginLimiter interface {
	Locked(ctx context.Context, identifier string) (bool, error)

	RecordFailure(ctx context.Context, identifier string) error

	Reset(ctx context.Context, identifier string) error
}
