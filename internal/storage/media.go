package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/pribylovaa/videotube-accounts/internal/models"
)

// ErrInvalidArgument — нарушены ограничения на загружаемый объект
// (тип, размер, чужой ключ).
var ErrInvalidArgument = errors.New("invalid argument")

// MediaStorage — presigned-загрузка изображений профиля (аватар, обложка).
// Отсутствующий объект при подтверждении — ErrNotFound.
type MediaStorage interface {
	// UploadURL валидирует тип и размер и выдаёт presigned PUT.
	UploadURL(ctx context.Context, userID uuid.UUID, kind models.MediaKind, contentType string, contentLength int64) (*models.UploadInfo, error)
	// ConfirmUpload проверяет, что объект загружен и удовлетворяет ограничениям,
	// и возвращает его публичный URL.
	ConfirmUpload(ctx context.Context, userID uuid.UUID, kind models.MediaKind, key string) (string, error)
	// Remove удаляет объект; отсутствие объекта ошибкой не считается.
	Remove(ctx context.Context, key string) error
}
