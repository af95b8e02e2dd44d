package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/pribylovaa/videotube-accounts/internal/transport/http/apierrors"
)

// HeaderRequestID — заголовок с id запроса (в обе стороны).
const HeaderRequestID = "X-Request-Id"

const maxRequestIDLen = 64

// RequestID принимает X-Request-Id клиента, если он короткий и состоит из
// [A-Za-z0-9._-], иначе выдаёт новый UUID. Id возвращается в ответе и кладётся
// в контекст: оттуда его берут Logging и apierrors.WriteError.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(HeaderRequestID)
			if !validRequestID(id) {
				id = uuid.NewString()
			}
			w.Header().Set(HeaderRequestID, id)

			next.ServeHTTP(w, r.WithContext(apierrors.WithRequestID(r.Context(), id)))
		})
	}
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}

	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '.', c == '_', c == '-':
		default:
			return false
		}
	}

	return true
}
