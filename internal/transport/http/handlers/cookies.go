package handlers

import (
	"net/http"
	"time"

	"github.com/pribylovaa/videotube-accounts/internal/config"
	"github.com/pribylovaa/videotube-accounts/internal/models"
	"github.com/pribylovaa/videotube-accounts/internal/transport/http/middleware"
)

// RefreshCookie — имя cookie с refresh-токеном.
const RefreshCookie = "refreshToken"

// cookieJar выставляет и сбрасывает cookie с токенами.
// Cookie всегда HttpOnly; Secure и SameSite берутся из конфигурации.
type cookieJar struct {
	cfg        config.CookieConfig
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func (j cookieJar) setSession(w http.ResponseWriter, t models.TokenPair) {
	http.SetCookie(w, j.cookie(middleware.AccessCookie, t.AccessToken, int(j.accessTTL.Seconds())))
	http.SetCookie(w, j.cookie(RefreshCookie, t.RefreshToken, int(j.refreshTTL.Seconds())))
}

func (j cookieJar) clearSession(w http.ResponseWriter) {
	http.SetCookie(w, j.cookie(middleware.AccessCookie, "", -1))
	http.SetCookie(w, j.cookie(RefreshCookie, "", -1))
}

func (j cookieJar) cookie(name, value string, maxAge int) *http.Cookie {
	path := j.cfg.Path
	if path == "" {
		path = "/"
	}

	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Domain:   j.cfg.Domain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   j.cfg.Secure(),
		SameSite: j.cfg.SameSiteMode(),
	}
}
