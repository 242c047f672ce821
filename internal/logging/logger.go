package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	With(args ...any) Logger
}

type Config struct {
	Level  string // "debug", "info", "warn", "error"
	Format string // "json", "text", "dev"
	Output io.Writer
}

type logger struct {
	slog *slog.Logger
}

// Tokens and credentials must never reach the log output, whatever
// the caller interpolated into the message.
var sensitivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(api[_-]?key|token|secret|password|pw)["\s]*[:=]["\s]*([^\s"&]+)`),
	regexp.MustCompile(`(?i)x-emby-token:\s*([^\s"&]+)`),
	regexp.MustCompile(`(?i)x-emby-authorization:\s*([^\r\n]+)`),
}

func New(cfg *Config) Logger {
	if cfg == nil {
		cfg = &Config{Level: "info", Format: "text"}
	}
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}

	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(out, opts)
	case "dev":
		handler = newDevHandler(out, opts)
	default:
		handler = slog.NewTextHandler(out, opts)
	}

	return &logger{slog: slog.New(handler)}
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (l *logger) Debug(msg string, args ...any) { l.slog.Debug(sanitize(msg), sanitizeArgs(args)...) }
func (l *logger) Info(msg string, args ...any)  { l.slog.Info(sanitize(msg), sanitizeArgs(args)...) }
func (l *logger) Warn(msg string, args ...any)  { l.slog.Warn(sanitize(msg), sanitizeArgs(args)...) }
func (l *logger) Error(msg string, args ...any) { l.slog.Error(sanitize(msg), sanitizeArgs(args)...) }

func (l *logger) With(args ...any) Logger {
	return &logger{slog: l.slog.With(sanitizeArgs(args)...)}
}

func sanitize(msg string) string {
	for _, pattern := range sensitivePatterns {
		msg = pattern.ReplaceAllStringFunc(msg, func(match string) string {
			if parts := strings.SplitN(match, ":", 2); len(parts) == 2 {
				return parts[0] + ": [REDACTED]"
			}
			if parts := strings.SplitN(match, "=", 2); len(parts) == 2 {
				return parts[0] + "=[REDACTED]"
			}
			return "[REDACTED]"
		})
	}
	return msg
}

func sanitizeArgs(args []any) []any {
	sanitized := make([]any, len(args))
	for i, arg := range args {
		if str, ok := arg.(string); ok {
			sanitized[i] = sanitize(str)
		} else {
			sanitized[i] = arg
		}
	}
	return sanitized
}

// devHandler renders "[15:04:05 LEVEL] message key=value" with ANSI colors.
type devHandler struct {
	opts   *slog.HandlerOptions
	output io.Writer
}

func newDevHandler(output io.Writer, opts *slog.HandlerOptions) *devHandler {
	return &devHandler{opts: opts, output: output}
}

func (h *devHandler) Enabled(_ context.Context, level slog.Level) bool {
	minLevel := slog.LevelInfo
	if h.opts.Level != nil {
		minLevel = h.opts.Level.Level()
	}
	return level >= minLevel
}

func (h *devHandler) Handle(_ context.Context, record slog.Record) error {
	var levelColor string
	switch record.Level {
	case slog.LevelDebug:
		levelColor = "\033[36m"
	case slog.LevelInfo:
		levelColor = "\033[32m"
	case slog.LevelWarn:
		levelColor = "\033[33m"
	case slog.LevelError:
		levelColor = "\033[31m"
	default:
		levelColor = "\033[0m"
	}

	line := fmt.Sprintf("%s[%s %s]\033[0m %s",
		levelColor, record.Time.Format("15:04:05"), strings.ToUpper(record.Level.String()), record.Message)
	record.Attrs(func(attr slog.Attr) bool {
		line += fmt.Sprintf(" %s=%v", attr.Key, attr.Value)
		return true
	})
	line += "\n"

	_, err := h.output.Write([]byte(line))
	return err
}

func (h *devHandler) WithAttrs(attrs []slog.Attr) slog.Handler { return h }
func (h *devHandler) WithGroup(name string) slog.Handler       { return h }

var defaultLogger Logger

func SetDefault(l Logger) {
	defaultLogger = l
}

func Default() Logger {
	if defaultLogger == nil {
		defaultLogger = New(nil)
	}
	return defaultLogger
}

func Debug(msg string, args ...any) { Default().Debug(msg, args...) }
func Info(msg string, args ...any)  { Default().Info(msg, args...) }
func Warn(msg string, args ...any)  { Default().Warn(msg, args...) }
func Error(msg string, args ...any) { Default().Error(msg, args...) }

// FiberMiddleware logs each request with a generated request id.
func FiberMiddleware(log Logger) fiber.Handler {
	return func(c fiber.Ctx) error {
		start := time.Now()
		requestID := uuid.NewString()
		c.Locals("request_id", requestID)

		err := c.Next()

		status := c.Response().StatusCode()
		args := []any{
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", requestID,
			"ip", c.IP(),
		}
		msg := fmt.Sprintf("%s %s - %d", c.Method(), c.Path(), status)
		switch {
		case status >= 500:
			log.Error(msg, args...)
		case status >= 400:
			log.Warn(msg, args...)
		default:
			log.Info(msg, args...)
		}
		return err
	}
}
