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

// 后台：用户封禁、交换监控、广播、统计和 /metrics，默认只监听本机
func main() {
	_ = godotenv.Load()
	cfg := config.Load(os.Getenv("CONFIG_PATH"))
	log, cleanup := logger.FromConfig(cfg.Log,
		zap.String("app", cfg.App.Name), zap.String("env", cfg.App.Env), zap.String("bin", "admin"))
	defer cleanup()
	defer logger.RedirectStdLog(log, zapcore.InfoLevel)()

	ctx := context.Background()
	a, closeApp, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal("bootstrap failed", zap.Error(err))
	}
	defer closeApp()

	r := router.NewAdminEngine(log, a.Services, a.JWT, router.Options{
		Server: server.Options{Mode: cfg.App.Mode, CORSOrigins: cfg.App.CORSOrigins},
		Limits: cfg.Limits,
	})
	srv := server.FromHTTP(cfg.App.HTTP, cfg.App.Admin.Host, cfg.App.Admin.Port, r)

	base := server.HumanURL(cfg.App.Admin.Host, cfg.App.Admin.Port)
	log.Info("admin api starting",
		zap.String("metrics", base+"/metrics"),
		zap.String("admin_v1", base+"/admin/v1"),
	)
	if err := server.Serve(ctx, srv, log, "admin api", 10*time.Second); err != nil {
		log.Error("admin api exited", zap.Error(err))
	}
}
