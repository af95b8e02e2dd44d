// handlers — REST-эндпойнты accounts-service поверх сервисного слоя.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/pribylovaa/videotube-accounts/internal/config"
	"github.com/pribylovaa/videotube-accounts/internal/models"
	"github.com/pribylovaa/videotube-accounts/internal/service"
	"github.com/pribylovaa/videotube-accounts/internal/transport/http/apierrors"
	"github.com/pribylovaa/videotube-accounts/internal/transport/http/middleware"
)

// Service — операции сервисного слоя, которые нужны хендлерам.
type Service interface {
	Register(ctx context.Context, in service.RegisterInput) (*models.PublicUser, error)
	Login(ctx context.Context, in service.LoginInput) (*models.Session, error)
	RefreshSession(ctx context.Context, presented string) (*models.Session, error)
	Logout(ctx context.Context, userID uuid.UUID) error
	ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword string) error
	UpdateAccount(ctx context.Context, userID uuid.UUID, in service.UpdateAccountInput) (*models.PublicUser, error)

	MediaUploadURL(ctx context.Context, userID uuid.UUID, kind models.MediaKind, contentType string, contentLength int64) (*models.UploadInfo, error)
	ConfirmMediaUpload(ctx context.Context, userID uuid.UUID, kind models.MediaKind, key string) (*models.PublicUser, error)

	ChannelProfile(ctx context.Context, username string, viewerID uuid.UUID) (*models.ChannelProfile, error)
	Subscribe(ctx context.Context, subscriberID uuid.UUID, channelUsername string) error
	Unsubscribe(ctx context.Context, subscriberID uuid.UUID, channelUsername string) error
	WatchHistory(ctx context.Context, userID uuid.UUID) ([]models.WatchedVideo, error)
}

// Handlers агрегирует зависимости хендлеров.
type Handlers struct {
	svc     Service
	cookies cookieJar
}

// New создаёт Handlers. TTL нужны для MaxAge cookie и совпадают со сроками токенов.
func New(svc Service, cookies config.CookieConfig, accessTTL, refreshTTL time.Duration) *Handlers {
	return &Handlers{
		svc: svc,
		cookies: cookieJar{
			cfg:        cookies,
			accessTTL:  accessTTL,
			refreshTTL: refreshTTL,
		},
	}
}

// writeJSON — единый ответ JSON с нужным Content-Type.
// Ошибки выводим через apierrors.WriteError.
func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// decodeStrict — строгий JSON-декодер: запрещаем неизвестные поля.
func decodeStrict(r *http.Request, value any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(value); err != nil {
		return apierrors.ErrBadRequest
	}

	return nil
}

// decodeOptional — как decodeStrict, но пустое тело не ошибка.
func decodeOptional(r *http.Request, value any) error {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(value); err != nil && !errors.Is(err, io.EOF) {
		return apierrors.ErrBadRequest
	}

	return nil
}

// currentUser достаёт пользователя, положенного middleware.Authenticate.
// Отсутствие пользователя на защищённом маршруте — ошибка сборки роутера.
func currentUser(w http.ResponseWriter, r *http.Request) (*models.PublicUser, bool) {
	u, ok := middleware.CurrentUser(r.Context())
	if !ok {
		apierrors.WriteError(w, r, service.ErrUnauthorized)
		return nil, false
	}

	return u, true
}

type okResponse struct {
	OK bool `json:"ok"`
}
