package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/pribylovaa/videotube-accounts/internal/models"
	logctx "github.com/pribylovaa/videotube-accounts/internal/pkg/log"
	"github.com/pribylovaa/videotube-accounts/internal/service"
	"github.com/pribylovaa/videotube-accounts/internal/transport/http/apierrors"
)

// AccessCookie — имя cookie с access-токеном.
const AccessCookie = "accessToken"

// Authenticator проверяет access-токен и возвращает владельца.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*models.PublicUser, error)
}

type userKey struct{}

// Authenticate требует валидный access-токен: сначала из cookie accessToken,
// затем из заголовка Authorization: Bearer. Профиль владельца кладётся
// в контекст, его читает CurrentUser; id пользователя попадает в запись Logging.
func Authenticate(a Authenticator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := accessToken(r)
			if raw == "" {
				apierrors.WriteError(w, r, service.ErrUnauthorized)
				return
			}

			user, err := a.Authenticate(r.Context(), raw)
			if err != nil {
				apierrors.WriteError(w, r, err)
				return
			}

			setUserID(r.Context(), user.ID.String())

			ctx := withUser(r.Context(), user)
			ctx = logctx.With(ctx, "user_id", user.ID.String())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// CurrentUser возвращает аутентифицированного пользователя запроса.
func CurrentUser(ctx context.Context) (*models.PublicUser, bool) {
	u, ok := ctx.Value(userKey{}).(*models.PublicUser)
	return u, ok && u != nil
}

func withUser(ctx context.Context, u *models.PublicUser) context.Context {
	return context.WithValue(ctx, userKey{}, u)
}

func accessToken(r *http.Request) string {
	if c, err := r.Cookie(AccessCookie); err == nil && strings.TrimSpace(c.Value) != "" {
		return strings.TrimSpace(c.Value)
	}

	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if strings.HasPrefix(auth, prefix) && len(auth) > len(prefix) {
		return strings.TrimSpace(auth[len(prefix):])
	}

	return ""
}
