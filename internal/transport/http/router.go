package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/videotube-accounts/internal/config"
	"github.com/pribylovaa/videotube-accounts/internal/metrics"
	"github.com/pribylovaa/videotube-accounts/internal/transport/http/handlers"
	"github.com/pribylovaa/videotube-accounts/internal/transport/http/middleware"
)

// Service — всё, что роутеру нужно от сервисного слоя.
type Service interface {
	handlers.Service
	middleware.Authenticator
	AccessTTL() time.Duration
	RefreshTTL() time.Duration
}

// Options — параметры сборки HTTP-роутера.
type Options struct {
	Logger   *slog.Logger
	Timeout  time.Duration
	BasePath string // например, "/api/v1"; если пустой — роуты регистрируются на корне.
	Cookies  config.CookieConfig
	Metrics  *metrics.Metrics // может быть nil
}

// NewRouter собирает http.Handler с chi и подключёнными middleware/роутами.
func NewRouter(svc Service, opts Options) http.Handler {
	root := chi.NewRouter()

	// Middleware (внешний -> внутренний).
	root.Use(
		middleware.RequestID(),          // X-Request-Id в контекст (его читают логгер и apierrors)
		middleware.Logging(opts.Logger), // request-scoped логгер; запись видит 500 от Recover
		middleware.Recover(),            // паника -> 500 с request_id и user_id в логе
		opts.Metrics.Middleware,         // route-метки доступны после маршрутизации
	)

	if opts.Timeout > 0 {
		root.Use(middleware.Timeout(opts.Timeout))
	}

	h := handlers.New(svc, opts.Cookies, svc.AccessTTL(), svc.RefreshTTL())
	auth := middleware.Authenticate(svc)

	if opts.BasePath != "" {
		sub := chi.NewRouter()
		registerRoutes(sub, h, auth)
		root.Mount(opts.BasePath, sub)
		return root
	}

	registerRoutes(root, h, auth)
	return root
}

// registerRoutes — единая точка регистрации всех REST-эндпойнтов.
func registerRoutes(r chi.Router, h *handlers.Handlers, auth middleware.Middleware) {
	r.Route("/users", func(r chi.Router) {
		// public
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Post("/refresh-token", h.RefreshToken)

		// secured
		r.Group(func(r chi.Router) {
			r.Use(auth)

			r.Post("/logout", h.Logout)
			r.Post("/change-password", h.ChangePassword)
			r.Get("/current-user", h.CurrentUser)
			r.Patch("/update-account", h.UpdateAccount)

			r.Post("/{kind}/presign", h.MediaPresign)
			r.Post("/{kind}/confirm", h.MediaConfirm)

			r.Get("/c/{username}", h.ChannelProfile)
			r.Post("/c/{username}/subscription", h.Subscribe)
			r.Delete("/c/{username}/subscription", h.Unsubscribe)

			r.Get("/history", h.WatchHistory)
		})
	})
}
