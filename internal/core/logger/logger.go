package logger

import (
	"log"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"skillswap/internal/core/config"
)

const timeLayout = "2006-01-02 15:04:05.000"

// FromConfig 按 log 配置构建 logger：
//   - json=false 控制台彩色输出，json=true 生产 JSON
//   - file 非空时追加一路 lumberjack 切割文件（不带颜色）
//   - fields 挂到每条日志上（如 app/bin/env）
//
// 返回的 cleanup 负责 Sync 并关闭切割文件。
func FromConfig(c config.Log, fields ...zap.Field) (*zap.Logger, func()) {
	lvl := parseLevel(c.Level)
	cores := []zapcore.Core{zapcore.NewCore(encoder(c.JSON, !c.JSON), zapcore.Lock(os.Stdout), lvl)}

	var rot *lumberjack.Logger
	if c.File != "" {
		rot = &lumberjack.Logger{
			Filename:   c.File,
			MaxSize:    max(1, c.MaxSizeMB),
			MaxBackups: max(0, c.MaxBackups),
			MaxAge:     max(0, c.MaxAgeDays),
			Compress:   c.Compress,
		}
		cores = append(cores, zapcore.NewCore(encoder(c.JSON, false), zapcore.AddSync(rot), lvl))
	}

	// 同一秒内同样的消息超过 100 条后每 100 条采样 1 条
	core := zapcore.NewSamplerWithOptions(zapcore.NewTee(cores...), time.Second, 100, 100)
	opts := []zap.Option{zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel), zap.Fields(fields...)}
	if !c.JSON {
		opts = append(opts, zap.Development())
	}
	l := zap.New(core, opts...)
	return l, func() {
		_ = l.Sync()
		if rot != nil {
			_ = rot.Close()
		}
	}
}

func parseLevel(s string) zapcore.Level {
	var lvl zapcore.Level
	if err := lvl.Set(s); err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

func encoder(json, color bool) zapcore.Encoder {
	if json {
		cfg := zap.NewProductionEncoderConfig()
		cfg.TimeKey = "ts"
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.EncodeCaller = zapcore.ShortCallerEncoder
		return zapcore.NewJSONEncoder(cfg)
	}
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout(timeLayout)
	cfg.EncodeCaller = zapcore.ShortCallerEncoder
	if color {
		cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	return zapcore.NewConsoleEncoder(cfg)
}

// ToStdLogger 给只认 *log.Logger 的组件（gorm logger 等）用
func ToStdLogger(l *zap.Logger, level zapcore.Level) *log.Logger {
	std, err := zap.NewStdLogAt(l, level)
	if err != nil {
		return zap.NewStdLog(l)
	}
	return std
}

func RedirectStdLog(l *zap.Logger, level zapcore.Level) func() {
	undo, err := zap.RedirectStdLogAt(l, level)
	if err != nil {
		return func() {}
	}
	return undo
}
