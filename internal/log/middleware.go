package log

import (
	"context"
	"log/slog"
	"net/http"
)

// Middleware stores a request-scoped logger in the request context. When
// requestID is non-nil its result is attached to every record.
func Middleware(logger *Logger, requestID func(context.Context) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			l := logger.With(FieldMethod, r.Method, FieldPath, r.URL.Path)
			if requestID != nil {
				if id := requestID(r.Context()); id != "" {
					l = l.With(FieldRequestID, id)
				}
			}
			next.ServeHTTP(w, r.WithContext(IntoContext(r.Context(), l)))
		})
	}
}

// LogError logs err with the operation and component attached.
func LogError(ctx context.Context, msg string, err error, component, operation string, fields LogFields) {
	if fields == nil {
		fields = NewFields()
	}
	all := fields.WithError(err).WithOperation(operation).WithComponent(component)
	FromContext(ctx).ErrorContext(ctx, msg, all.ToSlice()...)
}

// LogRequestEnd logs the completion of an HTTP request at a level matching
// the status code.
func LogRequestEnd(ctx context.Context, r *http.Request, statusCode int, durationMs int64, clientIP string) {
	level := slog.LevelInfo
	if statusCode >= 400 && statusCode < 500 {
		level = slog.LevelWarn
	} else if statusCode >= 500 {
		level = slog.LevelError
	}
	fields := NewFields().WithHTTPResponse(statusCode, durationMs)
	fields[FieldClientIP] = clientIP
	FromContext(ctx).Log(ctx, level, "HTTP request completed", fields.ToSlice()...)
}
