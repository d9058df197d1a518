package postgres

import (
	"context"
	"errors"

	customErrors "github.com/Miraines/MoonyAndStarry/video-service/internal/domain/auth/errors"
	"github.com/Miraines/MoonyAndStarry/video-service/internal/domain/auth/model"
	"github.com/Miraines/MoonyAndStarry/video-service/internal/domain/auth/repo"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const uniqueViolation = "23505"

type PostgresUserRepo struct {
	db *gorm.DB
}

func NewPostgresUserRepo(db *gorm.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func (p *PostgresUserRepo) CreateUser(ctx context.Context, user model.User) (uuid.UUID, error) {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	res := p.db.WithContext(ctx).Create(&user)
	if err := res.Error; err != nil {
		if isDuplicate(err) {
			return uuid.Nil, customErrors.NewAlreadyExists("user with this username or email")
		}
		return uuid.Nil, customErrors.WrapInternal(err, "CreateUser")
	}
	return user.ID, nil
}

func (p *PostgresUserRepo) GetUserByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	var u model.User
	res := p.db.WithContext(ctx).Where("id = ?", id).First(&u)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return model.User{}, customErrors.ErrNotFound
	}
	if err := res.Error; err != nil {
		return model.User{}, customErrors.WrapInternal(err, "GetUserByID")
	}

	return u, nil
}

func (p *PostgresUserRepo) GetUserByUsernameOrEmail(ctx context.Context, username, email string) (model.User, error) {
	var u model.User
	res := p.db.WithContext(ctx).
		Where("username = ? OR email = ?", username, email).
		Order("created_at").
		First(&u)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return model.User{}, customErrors.ErrNotFound
	}
	if err := res.Error; err != nil {
		return model.User{}, customErrors.WrapInternal(err, "GetUserByUsernameOrEmail")
	}

	return u, nil
}

// UpdatePassword touches only the hash column; the rest of the profile is
// not re-validated on this path.
func (p *PostgresUserRepo) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	res := p.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", id).
		Update("password_hash", hash)
	if err := res.Error; err != nil {
		return customErrors.WrapInternal(err, "UpdatePassword")
	}
	if res.RowsAffected == 0 {
		return customErrors.ErrNotFound
	}
	return nil
}

func (p *PostgresUserRepo) UpdateProfile(ctx context.Context, id uuid.UUID, f repo.ProfileFields) error {
	set := map[string]any{}
	if f.FullName != "" {
		set["full_name"] = f.FullName
	}
	if f.Email != "" {
		set["email"] = f.Email
	}
	if f.Avatar != "" {
		set["avatar"] = f.Avatar
	}
	if f.CoverImage != "" {
		set["cover_image"] = f.CoverImage
	}
	if len(set) == 0 {
		return nil
	}

	res := p.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Updates(set)
	if err := res.Error; err != nil {
		if isDuplicate(err) {
			return customErrors.NewAlreadyExists("email is already taken")
		}
		return customErrors.WrapInternal(err, "UpdateProfile")
	}
	if res.RowsAffected == 0 {
		return customErrors.ErrNotFound
	}
	return nil
}

func (p *PostgresUserRepo) SetRefreshToken(ctx context.Context, id uuid.UUID, token string) error {
	res := p.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", id).
		Update("refresh_token", token)
	if err := res.Error; err != nil {
		return customErrors.WrapInternal(err, "SetRefreshToken")
	}
	if res.RowsAffected == 0 {
		return customErrors.ErrNotFound
	}
	return nil
}

func (p *PostgresUserRepo) ClearRefreshToken(ctx context.Context, id uuid.UUID) error {
	// повторный logout не ошибка, поэтому RowsAffected не проверяем
	res := p.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", id).
		Update("refresh_token", "")
	if err := res.Error; err != nil {
		return customErrors.WrapInternal(err, "ClearRefreshToken")
	}
	return nil
}

// SwapRefreshToken is a single conditional UPDATE, so two concurrent
// rotations of the same token cannot both win.
func (p *PostgresUserRepo) SwapRefreshToken(ctx context.Context, id uuid.UUID, old, next string) (bool, error) {
	if old == "" {
		return false, nil
	}
	res := p.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ? AND refresh_token = ?", id, old).
		Update("refresh_token", next)
	if err := res.Error; err != nil {
		return false, customErrors.WrapInternal(err, "SwapRefreshToken")
	}
	return res.RowsAffected == 1, nil
}

func (p *PostgresUserRepo) Ping(ctx context.Context) error {
	return p.db.WithContext(ctx).Exec("SELECT 1").Error
}
