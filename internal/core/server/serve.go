package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"skillswap/internal/core/config"
)

// FromHTTP 用 app.http 的超时配置在 host:port 上建 server
func FromHTTP(c config.HTTP, host string, port int, h http.Handler) *http.Server {
	sec := func(n, def int) time.Duration {
		if n <= 0 {
			n = def
		}
		return time.Duration(n) * time.Second
	}
	return BuildServer(Addr(host, port), h, sec(c.ReadTimeoutSec, 5), sec(c.WriteTimeoutSec, 10), sec(c.IdleTimeoutSec, 60))
}

// Serve 启动 srv，收到 SIGINT/SIGTERM（或 ctx 结束）后在 grace 内优雅关闭
func Serve(ctx context.Context, srv *http.Server, l *zap.Logger, name string, grace time.Duration) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	l.Info(name+" started", zap.String("addr", srv.Addr))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("%s listen: %w", name, err)
	case <-ctx.Done():
	}

	sctx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("%s shutdown: %w", name, err)
	}
	l.Info(name + " stopped gracefully")
	return nil
}
