package minio

import (
	"context"
	"fmt"
	"path"
	"slices"
	"strconv"
	"strings"

	"github.com/google/uuid"
	mclient "github.com/minio/minio-go/v7"

	"github.com/pribylovaa/videotube-accounts/internal/models"
	"github.com/pribylovaa/videotube-accounts/internal/storage"
)

// keyPrefix возвращает префикс ключей пользователя для вида медиа:
// "avatars/<userID>/" или "covers/<userID>/".
func keyPrefix(kind models.MediaKind, userID uuid.UUID) string {
	dir := "avatars"
	if kind == models.MediaCover {
		dir = "covers"
	}

	return dir + "/" + userID.String() + "/"
}

func extByContentType(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	default:
		return ""
	}
}

// UploadURL генерирует presigned PUT URL.
// Ключ имеет вид "<avatars|covers>/<userID>/<uuid>.<ext>"; RequiredHeader
// перечисляет заголовки, которые клиент обязан передать при PUT.
func (s *MediaStorage) UploadURL(ctx context.Context, userID uuid.UUID, kind models.MediaKind, contentType string, contentLength int64) (*models.UploadInfo, error) {
	const op = "storage/minio/UploadURL"

	if !kind.Valid() {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrInvalidArgument)
	}

	if contentLength <= 0 || contentLength > s.limits.MaxSizeBytes {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrInvalidArgument)
	}

	if !slices.Contains(s.limits.AllowedContentTypes, contentType) {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrInvalidArgument)
	}

	key := path.Join(keyPrefix(kind, userID), uuid.NewString()+extByContentType(contentType))

	u, err := s.client.PresignedPutObject(ctx, s.s3.Bucket, key, s.s3.PresignTTL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &models.UploadInfo{
		UploadURL: u.String(),
		Key:       key,
		Expires:   s.s3.PresignTTL,
		RequiredHeader: map[string]string{
			"Content-Type":   contentType,
			"Content-Length": strconv.FormatInt(contentLength, 10),
		},
	}, nil
}

// ConfirmUpload подтверждает факт загрузки по key: объект существует, лежит
// под префиксом пользователя и удовлетворяет ограничениям размера/типа.
func (s *MediaStorage) ConfirmUpload(ctx context.Context, userID uuid.UUID, kind models.MediaKind, key string) (string, error) {
	const op = "storage/minio/ConfirmUpload"

	if !kind.Valid() || !strings.HasPrefix(key, keyPrefix(kind, userID)) || strings.Contains(key, "..") {
		return "", fmt.Errorf("%s: %w", op, storage.ErrInvalidArgument)
	}

	info, err := s.client.StatObject(ctx, s.s3.Bucket, key, mclient.StatObjectOptions{})
	if err != nil {
		errResp := mclient.ToErrorResponse(err)
		if errResp.Code == "NoSuchKey" || errResp.StatusCode == 404 {
			return "", fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return "", fmt.Errorf("%s: %w", op, err)
	}

	if info.Size <= 0 || info.Size > s.limits.MaxSizeBytes {
		return "", fmt.Errorf("%s: %w", op, storage.ErrInvalidArgument)
	}

	if ct := info.ContentType; ct != "" && !slices.Contains(s.limits.AllowedContentTypes, ct) {
		return "", fmt.Errorf("%s: %w", op, storage.ErrInvalidArgument)
	}

	return s.publicURL(key), nil
}

// Remove удаляет объект из бакета.
func (s *MediaStorage) Remove(ctx context.Context, key string) error {
	const op = "storage/minio/Remove"

	if key == "" {
		return nil
	}

	if err := s.client.RemoveObject(ctx, s.s3.Bucket, key, mclient.RemoveObjectOptions{}); err != nil {
		if mclient.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// publicURL строит адрес объекта: PublicBaseURL + key, а без него —
// path-style адрес самого S3 endpoint.
func (s *MediaStorage) publicURL(key string) string {
	if s.s3.PublicBaseURL != "" {
		return strings.TrimRight(s.s3.PublicBaseURL, "/") + "/" + key
	}

	u := *s.client.EndpointURL()
	u.Path = "/" + path.Join(s.s3.Bucket, key)

	return u.String()
}
