package logger

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
)

var defaultLogger *slog.Logger

type ctxAttrsKey struct{}

// Initialize sets up the global logger with the specified level and format
func Initialize(level, format string) {
	InitializeWithWriter(os.Stdout, level, format)
}

// InitializeWithWriter is Initialize with an explicit sink, used by tests.
func InitializeWithWriter(w io.Writer, level, format string) {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}

	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	defaultLogger = slog.New(&contextHandler{Handler: handler})
	slog.SetDefault(defaultLogger)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// contextHandler appends attributes stored with WithContextAttrs to every
// record logged through a *Context call.
type contextHandler struct {
	slog.Handler
}

func (h *contextHandler) Handle(ctx context.Context, r slog.Record) error {
	if attrs, ok := ctx.Value(ctxAttrsKey{}).([]slog.Attr); ok {
		r.AddAttrs(attrs...)
	}
	return h.Handler.Handle(ctx, r)
}

func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &contextHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{Handler: h.Handler.WithGroup(name)}
}

// WithContextAttrs returns a context whose log lines carry the given key/value pairs,
// e.g. the HTTP request id or the acting user.
func WithContextAttrs(ctx context.Context, args ...any) context.Context {
	existing, _ := ctx.Value(ctxAttrsKey{}).([]slog.Attr)
	attrs := append([]slog.Attr(nil), existing...)
	for len(args) >= 2 {
		key, ok := args[0].(string)
		if !ok {
			break
		}
		attrs = append(attrs, slog.Any(key, args[1]))
		args = args[2:]
	}
	return context.WithValue(ctx, ctxAttrsKey{}, attrs)
}

// Get returns the default logger
func Get() *slog.Logger {
	if defaultLogger == nil {
		Initialize("info", "text")
	}
	return defaultLogger
}

func Debug(msg string, args ...any) {
	Get().Debug(msg, args...)
}

func Info(msg string, args ...any) {
	Get().Info(msg, args...)
}

func Warn(msg string, args ...any) {
	Get().Warn(msg, args...)
}

func Error(msg string, args ...any) {
	Get().Error(msg, args...)
}

func DebugContext(ctx context.Context, msg string, args ...any) {
	Get().DebugContext(ctx, msg, args...)
}

func InfoContext(ctx context.Context, msg string, args ...any) {
	Get().InfoContext(ctx, msg, args...)
}

func WarnContext(ctx context.Context, msg string, args ...any) {
	Get().WarnContext(ctx, msg, args...)
}

func ErrorContext(ctx context.Context, msg string, args ...any) {
	Get().ErrorContext(ctx, msg, args...)
}

// WithService returns a logger with service name attached
func WithService(serviceName string) *slog.Logger {
	return Get().With("service", serviceName)
}

// EnterMethod logs method entry (process tracking)
func EnterMethod(methodName string, args ...any) {
	allArgs := append([]any{"method", methodName, "event", "enter"}, args...)
	Get().Debug("→ Method entered", allArgs...)
}

// ExitMethod logs method exit (process tracking)
func ExitMethod(methodName string, args ...any) {
	allArgs := append([]any{"method", methodName, "event", "exit"}, args...)
	Get().Debug("← Method exited", allArgs...)
}

// ExitMethodWithError logs method exit with error. Business rejections are
// expected outcomes and go to warn; everything else is an error.
func ExitMethodWithError(methodName string, err error, args ...any) {
	allArgs := append([]any{"method", methodName, "event", "exit", "error", err}, args...)
	if isRejection(err) {
		Get().Warn("← Method rejected", allArgs...)
		return
	}
	Get().Error("← Method exited with error", allArgs...)
}

// DatabaseCall logs database operation (debug log for external resources)
func DatabaseCall(operation, table string, args ...any) {
	allArgs := append([]any{"operation", operation, "table", table}, args...)
	Get().Debug("→ Database call", allArgs...)
}

// DatabaseResult logs database operation result (debug log for external resources)
func DatabaseResult(operation string, rowsAffected int64, err error, args ...any) {
	allArgs := append([]any{"operation", operation, "rows_affected", rowsAffected}, args...)
	if err != nil {
		allArgs = append(allArgs, "error", err)
		Get().Error("← Database call failed", allArgs...)
	} else {
		Get().Debug("← Database call succeeded", allArgs...)
	}
}

// ExternalServiceCall logs a call to a payment, email, lock or shipment backend.
func ExternalServiceCall(service, operation string, args ...any) {
	allArgs := append([]any{"service", service, "operation", operation}, args...)
	Get().Debug("→ External service call", allArgs...)
}

// ExternalServiceResult logs external service result (debug log for external resources)
func ExternalServiceResult(service, operation string, err error, args ...any) {
	allArgs := append([]any{"service", service, "operation", operation}, args...)
	if err != nil {
		allArgs = append(allArgs, "error", err)
		Get().Error("← External service call failed", allArgs...)
	} else {
		Get().Debug("← External service call succeeded", allArgs...)
	}
}

// isRejection recognizes expected business outcomes (domain errors implement
// IsRejection); the logger cannot import domain.
func isRejection(err error) bool {
	var r interface{ IsRejection() bool }
	return errors.As(err, &r) && r.IsRejection()
}
