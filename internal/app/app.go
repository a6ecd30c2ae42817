// Package app 三个二进制共用的装配：DB、缓存、对象存储、业务服务。
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"

	"skillswap/internal/core/auth"
	"skillswap/internal/core/cache"
	"skillswap/internal/core/config"
	"skillswap/internal/core/database"
	"skillswap/internal/core/logger"
	"skillswap/internal/core/storage"
	"skillswap/internal/repo"
	"skillswap/internal/service"
)

type App struct {
	Cfg      *config.Config
	Log      *zap.Logger
	DB       *gorm.DB
	Cache    *cache.Cache
	Storage  *storage.Storage
	Services *service.Services
	JWT      *auth.JWTer
}

// OpenDB 按配置连库；gorm 日志走 zap
func OpenDB(cfg *config.Config, l *zap.Logger) (*gorm.DB, error) {
	db, err := database.NewGorm(database.Opts{
		Driver:             cfg.DB.Driver,
		DSN:                cfg.DB.DSN,
		Username:           cfg.DB.Username,
		Password:           cfg.DB.Password,
		MaxOpenConns:       cfg.DB.MaxOpenConns,
		MaxIdleConns:       cfg.DB.MaxIdleConns,
		ConnMaxLifetimeMin: cfg.DB.ConnMaxLifetimeMin,
		LogLevel:           cfg.DB.LogLevel,
		Writer:             logger.ToStdLogger(l.Named("gorm"), zapcore.WarnLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s (%s): %w", cfg.DB.Driver, database.MaskDSN(cfg.DB.DSN), err)
	}
	l.Info("database connected", zap.String("driver", cfg.DB.Driver), zap.String("dsn", database.MaskDSN(cfg.DB.DSN)))
	return db, nil
}

// New 连库 + 可选迁移 + 缓存/存储降级 + 组装服务
func New(ctx context.Context, cfg *config.Config, l *zap.Logger) (*App, func(), error) {
	db, err := OpenDB(cfg, l)
	if err != nil {
		return nil, nil, err
	}
	if cfg.DB.AutoMigrate {
		if err := repo.Migrate(db); err != nil {
			return nil, nil, fmt.Errorf("automigrate: %w", err)
		}
		l.Info("automigrate done")
	}

	// Redis 连不上不致命，按无缓存跑
	c, err := cache.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		l.Warn("redis unavailable, profile cache disabled", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
	}
	st, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		l.Warn("object storage unavailable, avatar upload disabled", zap.String("endpoint", cfg.Storage.Endpoint), zap.Error(err))
		st = nil
	}

	svc := service.New(repo.NewStore(db), service.Options{
		Log:            l,
		Cache:          c,
		Storage:        st,
		ProfileTTL:     time.Duration(cfg.Redis.ProfileTTL) * time.Second,
		MaxAvatarBytes: int64(cfg.Storage.MaxAvatarKB) << 10,
	})
	if _, err := svc.Aggregator.SeedBadges(ctx); err != nil {
		return nil, nil, fmt.Errorf("seed badges: %w", err)
	}

	a := &App{
		Cfg:      cfg,
		Log:      l,
		DB:       db,
		Cache:    c,
		Storage:  st,
		Services: svc,
		JWT:      auth.NewJWTer(cfg.JWT),
	}
	cleanup := func() {
		if c != nil {
			_ = c.Close()
		}
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	return a, cleanup, nil
}
