package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	logctx "github.com/pribylovaa/videotube-accounts/internal/pkg/log"
	"github.com/pribylovaa/videotube-accounts/internal/transport/http/apierrors"
)

// Timeout ограничивает время операции сервиса, если у запроса ещё нет дедлайна.
// Обработчик, который вернулся после дедлайна, ничего не записав, получает
// за него ответ 504/deadline_exceeded. Значение <=0 отключает мидлвар.
func Timeout(d time.Duration) Middleware {
	return func(next http.Handler) http.Handler {
		if d <= 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := r.Context().Deadline(); ok {
				next.ServeHTTP(w, r)
				return
			}

			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()

			rw := wrap(w)
			r = r.WithContext(ctx)
			next.ServeHTTP(rw, r)

			if rw.written() || !errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return
			}

			logctx.From(ctx).Warn("request_timeout",
				slog.String("route", routePattern(r)),
				slog.Duration("timeout", d),
			)
			apierrors.WriteError(rw, r, ctx.Err())
		})
	}
}
