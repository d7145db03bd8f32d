package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"gopkg.in/natefinch/lumberjack.v2"
)

type ctxKey struct{}

const ginKey = "logger"

var (
	once sync.Once
	base *slog.Logger
)

// Init configures the process logger once. An empty filePath logs to stdout only.
func Init(component, level, filePath string) *slog.Logger {
	once.Do(func() {
		var w io.Writer = os.Stdout
		if filePath != "" {
			_ = os.MkdirAll(filepath.Dir(filePath), 0o755)
			w = io.MultiWriter(os.Stdout, &lumberjack.Logger{
				Filename:   filePath,
				MaxSize:    50, // MB
				MaxBackups: 3,
				MaxAge:     7, // days
			})
		}
		h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)})
		base = slog.New(h).With("service", component)
	})
	return base
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// Base returns the process logger, falling back to stdout when Init was never called.
func Base() *slog.Logger {
	if base == nil {
		return Init("storefront", "info", "")
	}
	return base
}

// New returns a child logger sharing the process handler.
func New(component string) *slog.Logger {
	return Base().With("component", component)
}

// Discard is a logger for tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func WithCtx(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

func FromCtx(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return Base()
}

// With stores the request-scoped logger on the gin context.
func With(c *gin.Context, l *slog.Logger) {
	c.Set(ginKey, l)
	c.Request = c.Request.WithContext(WithCtx(c.Request.Context(), l))
}

func From(c *gin.Context) *slog.Logger {
	if v, ok := c.Get(ginKey); ok {
		if l, ok := v.(*slog.Logger); ok && l != nil {
			return l
		}
	}
	return Base()
}
