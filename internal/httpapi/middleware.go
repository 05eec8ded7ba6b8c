package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"gxshared/internal/debuglog"
)

type ctxKey int

const (
	requestIDKey ctxKey = iota
	debuggerKey
)

// DebugCookie carries a per-browser debug level, the server side
// counterpart of a stored client debug setting.
const DebugCookie = "debugLevel"

func RequestID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get("X-Request-Id")
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set("X-Request-Id", id)
			ctx := context.WithValue(r.Context(), requestIDKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetRequestID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey).(string)
	return id, ok
}

// Debug attaches d to the request context, switched to the level stored
// in DebugCookie when the client has one.
func Debug(d *debuglog.Debugger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rd := d
			src := debuglog.CookieLevel(r, DebugCookie)
			if _, ok := src.DebugLevel(); ok && d != nil {
				rd = d.WithLevel(src)
			}
			ctx := context.WithValue(r.Context(), debuggerKey, rd)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetDebugger returns the request debugger; nil is safe to use.
func GetDebugger(ctx context.Context) *debuglog.Debugger {
	d, _ := ctx.Value(debuggerKey).(*debuglog.Debugger)
	return d
}

func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: 200}

			next.ServeHTTP(rec, r)

			fields := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"bytes", rec.bytes,
				"duration_ms", time.Since(start).Milliseconds(),
			}
			if rid, ok := GetRequestID(r.Context()); ok {
				fields = append(fields, "request_id", rid)
			}
			if loc := rec.Header().Get("Location"); loc != "" {
				fields = append(fields, "location", loc)
			}
			logger.Info("http request", fields...)
		})
	}
}

func Recoverer(logger *slog.Logger, isProd bool) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if isProd {
						logger.Error("panic", "panic", rec, "path", r.URL.Path)
					} else {
						logger.Error("panic", "panic", rec, "path", r.URL.Path, "stack", string(debug.Stack()))
					}
					WriteError(w, http.StatusInternalServerError, "internal_error", "internal server error")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(statusCode int) {
	r.status = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}

func (r *statusRecorder) Write(p []byte) (int, error) {
	n, err := r.ResponseWriter.Write(p)
	r.bytes += n
	return n, err
}
