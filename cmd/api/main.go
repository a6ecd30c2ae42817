package main

import (
	"context"
	"os"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"skillswap/internal/app"
	"skillswap/internal/core/config"
	"skillswap/internal/core/logger"
	"skillswap/internal/core/server"
	"skillswap/internal/transport/http/router"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load(os.Getenv("CONFIG_PATH"))
	log, cleanup := logger.FromConfig(cfg.Log,
		zap.String("app", cfg.App.Name), zap.String("env", cfg.App.Env), zap.String("bin", "api"))
	defer cleanup()
	defer logger.RedirectStdLog(log, zapcore.InfoLevel)()

	ctx := context.Background()
	a, closeApp, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal("bootstrap failed", zap.Error(err))
	}
	defer closeApp()

	r := router.NewAPIEngine(log, a.Services, a.JWT, router.Options{
		Server: server.Options{Mode: cfg.App.Mode, CORSOrigins: cfg.App.CORSOrigins},
		Limits: cfg.Limits,
	})
	srv := server.FromHTTP(cfg.App.HTTP, cfg.App.HTTP.Host, cfg.App.HTTP.Port, r)

	base := server.HumanURL(cfg.App.HTTP.Host, cfg.App.HTTP.Port)
	log.Info("user api starting",
		zap.String("health", base+"/health"),
		zap.String("api_v1", base+"/api/v1"),
		zap.Bool("cache", a.Cache != nil),
		zap.Bool("avatars", a.Storage.Enabled()),
	)
	if err := server.Serve(ctx, srv, log, "user api", 10*time.Second); err != nil {
		log.Error("user api exited", zap.Error(err))
	}
}
