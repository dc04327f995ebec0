// Package logging 进程级 zap 日志：lumberjack 滚动文件，可选同时输出到 stderr。
package logging

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Log 是全局可用的 SugaredLogger；Init 之前为 no-op，测试与库代码可直接使用
var Log = zap.NewNop().Sugar()

// Config 日志输出配置
type Config struct {
	Path  string // 日志文件，如 "server.log"
	Level string // debug/info/warn/error
	JSON  bool   // 默认控制台风格

	// Stderr 同时写到标准错误；终端客户端占用屏幕时不要开启
	Stderr bool

	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// DefaultConfig 10MB 每文件，保留 3 个备份，保留 7 天，Debug 级别
func DefaultConfig(path string) Config {
	return Config{
		Path:       path,
		Level:      "debug",
		MaxSizeMB:  10,
		MaxBackups: 3,
		MaxAgeDays: 7,
	}
}

// Init 按配置替换全局 Log；级别非法时保持原 logger 不变
func Init(cfg Config) error {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("logging: %w", err)
	}

	encCfg := zapcore.EncoderConfig{
		TimeKey:       "ts",
		LevelKey:      "level",
		NameKey:       "logger",
		CallerKey:     "caller",
		MessageKey:    "msg",
		StacktraceKey: "stack",
		LineEnding:    zapcore.DefaultLineEnding,
		EncodeLevel:   zapcore.CapitalLevelEncoder,
		EncodeTime:    zapcore.ISO8601TimeEncoder,
		EncodeCaller:  zapcore.ShortCallerEncoder,
	}
	encoder := zapcore.NewConsoleEncoder(encCfg)
	if cfg.JSON {
		encoder = zapcore.NewJSONEncoder(encCfg)
	}

	var cores []zapcore.Core
	if cfg.Path != "" {
		lj := &lumberjack.Logger{
			Filename:   cfg.Path,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
		}
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(lj), level))
	}
	if cfg.Stderr {
		cores = append(cores, zapcore.NewCore(encoder.Clone(), zapcore.Lock(os.Stderr), level))
	}

	Log = zap.New(zapcore.NewTee(cores...), zap.AddCaller()).Sugar()
	return nil
}

// Named 返回带子模块名的 logger，例如 "room" / "viewer"
// 须在 Init 之后调用，否则拿到的是 no-op
func Named(name string) *zap.SugaredLogger {
	return Log.Named(name)
}

// Sync 清理和同步缓冲
func Sync() {
	_ = Log.Sync()
}
