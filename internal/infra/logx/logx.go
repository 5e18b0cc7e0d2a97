// Package logx 构造进程级的 slog.Logger：控制台 + 可选的滚动日志文件。
package logx

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

type Options struct {
	// Level 取值 debug|info|warn|error，空值为 info。
	Level string

	// File 非空时额外写入该文件，按大小滚动。
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool

	// JSON 为 true 时使用 JSONHandler（serve 模式），否则 TextHandler。
	JSON bool
}

// New 返回 logger 与一个 closer（关闭滚动文件）；没有文件时 closer 是 no-op。
func New(console io.Writer, o Options) (*slog.Logger, func() error, error) {
	level, err := ParseLevel(o.Level)
	if err != nil {
		return nil, nil, err
	}
	if console == nil {
		console = os.Stderr
	}

	w := console
	closer := func() error { return nil }
	if f := strings.TrimSpace(o.File); f != "" {
		if err := os.MkdirAll(filepath.Dir(f), 0o755); err != nil {
			return nil, nil, fmt.Errorf("创建日志目录失败：%w", err)
		}
		lj := &lumberjack.Logger{
			Filename:   f,
			MaxSize:    o.MaxSizeMB,
			MaxBackups: o.MaxBackups,
			MaxAge:     o.MaxAgeDays,
			Compress:   o.Compress,
		}
		w = io.MultiWriter(console, lj)
		closer = lj.Close
	}

	ho := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if o.JSON {
		h = slog.NewJSONHandler(w, ho)
	} else {
		h = slog.NewTextHandler(w, ho)
	}
	return slog.New(h), closer, nil
}

func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("未知日志级别：%q", s)
	}
}

// Discard 用于测试与不需要日志的调用方。
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
