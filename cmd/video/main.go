package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	myPostgresRepo "github.com/Miraines/MoonyAndStarry/video-service/internal/adapters/db/postgres"
	myRedisRepo "github.com/Miraines/MoonyAndStarry/video-service/internal/adapters/db/redis"
	s3media "github.com/Miraines/MoonyAndStarry/video-service/internal/adapters/media/s3"
	httptransport "github.com/Miraines/MoonyAndStarry/video-service/internal/adapters/transport/http"
	"github.com/Miraines/MoonyAndStarry/video-service/internal/app/auth/jwt"
	"github.com/Miraines/MoonyAndStarry/video-service/internal/app/auth/password"
	appsvc "github.com/Miraines/MoonyAndStarry/video-service/internal/app/auth/service"
	"github.com/Miraines/MoonyAndStarry/video-service/internal/domain/auth/repo"
	"github.com/Miraines/MoonyAndStarry/video-service/internal/infra/config"
	lg "github.com/Miraines/MoonyAndStarry/video-service/internal/infra/log"
	"github.com/Miraines/MoonyAndStarry/video-service/internal/infra/metrics"
	"github.com/Miraines/MoonyAndStarry/video-service/internal/infra/migrate"
	"github.com/Miraines/MoonyAndStarry/video-service/internal/infra/server"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		lg.Must("info").Fatal("failed to load config", zap.Error(err))
	}

	zapLog := lg.Must(cfg.LogLevel)
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	// os.Exit не выполняет defer, поэтому вся работа живёт в run
	err = run(cfg, zapLog)
	if err != nil {
		zapLog.Error("service terminated", zap.Error(err))
	}
	_ = zapLog.Sync()
	if err != nil {
		os.Exit(1)
	}
}

func run(cfg *config.Config, zapLog *zap.Logger) error {
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{TranslateError: true})
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("db handle: %w", err)
	}
	defer sqlDB.Close()
	if err := migrate.Up(sqlDB, zapLog.Named("migrate")); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	userRepo := myPostgresRepo.NewPostgresUserRepo(db)
	checks := map[string]httptransport.Pinger{"postgres": userRepo}

	// без redis сервис работает, но без блокировки перебора паролей
	var limiter repo.LoginLimiter
	if cfg.RedisAddress != "" {
		redisCli := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddress,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisCli.Close()
		redisLimiter := myRedisRepo.NewRedisLoginLimiter(redisCli, cfg.LoginMaxAttempts, cfg.LoginLockoutWindow)
		limiter = redisLimiter
		checks["redis"] = redisLimiter
	} else {
		zapLog.Warn("REDIS_ADDRESS is empty, login lockout disabled")
	}

	uploader, err := s3media.NewUploader(rootCtx, cfg)
	if err != nil {
		return fmt.Errorf("init media uploader: %w", err)
	}

	jwtUtil, err := jwt.NewJWTUtil(cfg)
	if err != nil {
		return fmt.Errorf("init JWT util: %w", err)
	}

	svc := appsvc.New(appsvc.Deps{
		Users:     userRepo,
		Sessions:  userRepo,
		Tokens:    jwtUtil,
		Passwords: password.NewHasher(cfg.PasswordPepper),
		Media:     uploader,
		Limiter:   limiter,
		Config:    cfg,
		Validator: appsvc.NewValidator(),
		Logger:    zapLog.Named("auth"),
	})

	handler := httptransport.NewHandler(svc, cfg, zapLog, metrics.New(), checks)

	g, ctx := errgroup.WithContext(rootCtx)
	router := httptransport.NewRouter(ctx, handler)

	g.Go(func() error {
		return server.StartHTTPServer(ctx, cfg, router, zapLog)
	})

	<-ctx.Done()
	zapLog.Info("shutdown signal received")
	return g.Wait()
}
