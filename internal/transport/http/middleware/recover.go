package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"

	logctx "github.com/pribylovaa/videotube-accounts/internal/pkg/log"
	"github.com/pribylovaa/videotube-accounts/internal/transport/http/apierrors"
)

var errPanic = errors.New("panic recovered")

// Recover перехватывает panic и отвечает 500/internal через apierrors.
// Если обработчик успел отправить заголовки, второй ответ не пишется.
// http.ErrAbortHandler пробрасывается дальше: это штатный обрыв ответа.
func Recover() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rw := wrap(w)

			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				attrs := []slog.Attr{
					slog.String("route", routePattern(r)),
					slog.Any("reason", rec),
					slog.String("stack", string(debug.Stack())),
				}
				if uid := userIDFrom(r.Context()); uid != "" {
					attrs = append(attrs, slog.String("user_id", uid))
				}
				logctx.From(r.Context()).LogAttrs(r.Context(), slog.LevelError, "panic_recovered", attrs...)

				if rw.written() {
					return
				}
				apierrors.WriteError(rw, r, errPanic)
			}()

			next.ServeHTTP(rw, r)
		})
	}
}
