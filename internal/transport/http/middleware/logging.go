package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	logctx "github.com/pribylovaa/videotube-accounts/internal/pkg/log"
	"github.com/pribylovaa/videotube-accounts/internal/transport/http/apierrors"
)

// requestInfo — то, что внутренние мидлвары сообщают внешним
// (Authenticate -> Logging/Recover) после того, как запрос прошёл глубже.
type requestInfo struct {
	userID string
}

type infoKey struct{}

func setUserID(ctx context.Context, id string) {
	if info, ok := ctx.Value(infoKey{}).(*requestInfo); ok {
		info.userID = id
	}
}

func userIDFrom(ctx context.Context) string {
	if info, ok := ctx.Value(infoKey{}).(*requestInfo); ok {
		return info.userID
	}

	return ""
}

// routePattern — шаблон chi ("/api/v1/users/c/{username}"), а не сырой путь:
// имена каналов в логах не нужны.
func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}

	return "unmatched"
}

// Logging кладёт request-scoped логгер (с request_id) в контекст и пишет
// одну запись http_request на запрос: route, status, dur, bytes и user_id,
// если запрос прошёл Authenticate. 5xx пишутся как error, 4xx как warn.
func Logging(l *slog.Logger) Middleware {
	if l == nil {
		l = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqLogger := l
			if rid := apierrors.RequestID(r.Context()); rid != "" {
				reqLogger = reqLogger.With(slog.String("request_id", rid))
			}

			info := &requestInfo{}
			ctx := context.WithValue(logctx.Into(r.Context(), reqLogger), infoKey{}, info)
			r = r.WithContext(ctx)

			rw := wrap(w)
			start := time.Now()

			next.ServeHTTP(rw, r)

			status := rw.statusCode()
			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("route", routePattern(r)),
				slog.Int("status", status),
				slog.Duration("dur", time.Since(start)),
				slog.Int("bytes", rw.bytes),
			}
			if info.userID != "" {
				attrs = append(attrs, slog.String("user_id", info.userID))
			}

			level := slog.LevelInfo
			switch {
			case status >= http.StatusInternalServerError:
				level = slog.LevelError
			case status >= http.StatusBadRequest:
				level = slog.LevelWarn
			}

			reqLogger.LogAttrs(ctx, level, "http_request", attrs...)
		})
	}
}
