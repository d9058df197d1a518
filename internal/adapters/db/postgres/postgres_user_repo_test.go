package postgres

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/Miraines/MoonyAndStarry/video-service/internal/domain/auth/errors"
	"github.com/Miraines/MoonyAndStarry/video-service/internal/domain/auth/model"
	"github.com/Miraines/MoonyAndStarry/video-service/internal/domain/auth/repo"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.User{}))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// sqlite в памяти: одно соединение, чтобы запись не упиралась в table lock
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func newUser(username, email string) model.User {
	return model.User{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		FullName:     "Ana Ng",
		PasswordHash: "hash",
		Avatar:       "https://cdn/a.png",
	}
}

func TestPostgresUserRepo_CRUD(t *testing.T) {
	r := NewPostgresUserRepo(setupDB(t))
	ctx := context.Background()
	user := newUser("ana", "a@b.com")

	id, err := r.CreateUser(ctx, user)
	require.NoError(t, err)
	require.Equal(t, user.ID, id)

	got, err := r.GetUserByUsernameOrEmail(ctx, "ana", "")
	require.NoError(t, err)
	require.Equal(t, user.ID, got.ID)

	got, err = r.GetUserByUsernameOrEmail(ctx, "", "a@b.com")
	require.NoError(t, err)
	require.Equal(t, user.ID, got.ID)
	require.Empty(t, got.RefreshToken)
	require.Empty(t, got.CoverImage)

	got2, err := r.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, user.Email, got2.Email)

	_, err = r.GetUserByID(ctx, uuid.New())
	require.True(t, errors.IsNotFound(err))

	_, err = r.GetUserByUsernameOrEmail(ctx, "nobody", "nobody@x.com")
	require.True(t, errors.IsNotFound(err))
}

func TestPostgresUserRepo_Duplicate(t *testing.T) {
	r := NewPostgresUserRepo(setupDB(t))
	ctx := context.Background()

	_, err := r.CreateUser(ctx, newUser("ana", "a@b.com"))
	require.NoError(t, err)

	_, err = r.CreateUser(ctx, newUser("ana", "other@b.com"))
	require.True(t, errors.IsAlreadyExists(err), "got %v", err)

	_, err = r.CreateUser(ctx, newUser("bob", "a@b.com"))
	require.True(t, errors.IsAlreadyExists(err), "got %v", err)

	var count int64
	require.NoError(t, r.db.Model(&model.User{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestPostgresUserRepo_UpdatePasswordAndProfile(t *testing.T) {
	r := NewPostgresUserRepo(setupDB(t))
	ctx := context.Background()
	user := newUser("ana", "a@b.com")
	_, err := r.CreateUser(ctx, user)
	require.NoError(t, err)
	_, err = r.CreateUser(ctx, newUser("bob", "bob@b.com"))
	require.NoError(t, err)

	require.NoError(t, r.UpdatePassword(ctx, user.ID, "new-hash"))
	require.True(t, errors.IsNotFound(r.UpdatePassword(ctx, uuid.New(), "x")))

	require.NoError(t, r.UpdateProfile(ctx, user.ID, repo.ProfileFields{FullName: "Ana B", CoverImage: "https://cdn/c.png"}))
	got, err := r.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, "new-hash", got.PasswordHash)
	require.Equal(t, "Ana B", got.FullName)
	require.Equal(t, "a@b.com", got.Email)
	require.Equal(t, "https://cdn/c.png", got.CoverImage)
	require.Equal(t, user.Avatar, got.Avatar)

	err = r.UpdateProfile(ctx, user.ID, repo.ProfileFields{Email: "bob@b.com"})
	require.True(t, errors.IsAlreadyExists(err), "got %v", err)

	require.NoError(t, r.UpdateProfile(ctx, user.ID, repo.ProfileFields{}))
}

func TestPostgresUserRepo_SessionLifecycle(t *testing.T) {
	r := NewPostgresUserRepo(setupDB(t))
	ctx := context.Background()
	user := newUser("ana", "a@b.com")
	_, err := r.CreateUser(ctx, user)
	require.NoError(t, err)

	require.NoError(t, r.SetRefreshToken(ctx, user.ID, "rt-1"))
	require.True(t, errors.IsNotFound(r.SetRefreshToken(ctx, uuid.New(), "rt-x")))

	ok, err := r.SwapRefreshToken(ctx, user.ID, "rt-stale", "rt-2")
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = r.SwapRefreshToken(ctx, user.ID, "rt-1", "rt-2")
	require.NoError(t, err)
	require.True(t, ok)

	// старый токен уже не подходит
	ok, err = r.SwapRefreshToken(ctx, user.ID, "rt-1", "rt-3")
	require.NoError(t, err)
	require.False(t, ok)

	got, err := r.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, "rt-2", got.RefreshToken)

	require.NoError(t, r.ClearRefreshToken(ctx, user.ID))
	require.NoError(t, r.ClearRefreshToken(ctx, user.ID))
	got, err = r.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	require.Empty(t, got.RefreshToken)

	ok, err = r.SwapRefreshToken(ctx, user.ID, "", "rt-4")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestPostgresUserRepo_ConcurrentSwap(t *testing.T) {
	db := setupDB(t)
	r := NewPostgresUserRepo(db)
	ctx := context.Background()
	user := newUser("ana", "a@b.com")
	_, err := r.CreateUser(ctx, user)
	require.NoError(t, err)
	require.NoError(t, r.SetRefreshToken(ctx, user.ID, "rt-0"))

	const n = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ok, err := r.SwapRefreshToken(ctx, user.ID, "rt-0", fmt.Sprintf("rt-%d", i+1))
			if err != nil {
				return
			}
			if ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	require.Equal(t, 1, wins)
}
