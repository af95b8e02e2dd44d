package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/pribylovaa/videotube-accounts/internal/models"
	logctx "github.com/pribylovaa/videotube-accounts/internal/pkg/log"
	"github.com/pribylovaa/videotube-accounts/internal/storage"
)

// MediaUploadURL выдаёт presigned PUT для загрузки аватара или обложки.
// Тип и размер проверяются хранилищем медиа по конфигурации.
func (s *Service) MediaUploadURL(ctx context.Context, userID uuid.UUID, kind models.MediaKind, contentType string, contentLength int64) (*models.UploadInfo, error) {
	const op = "service.media.MediaUploadURL"

	if s.media == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrMediaUnavailable)
	}

	if !kind.Valid() || strings.TrimSpace(contentType) == "" || contentLength <= 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	info, err := s.media.UploadURL(ctx, userID, kind, strings.TrimSpace(contentType), contentLength)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidArgument) {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return info, nil
}

// ConfirmMediaUpload подтверждает загрузку: проверяет объект в бакете,
// записывает его публичный URL в профиль и удаляет предыдущий объект.
// Ошибка удаления старого объекта не влияет на результат.
func (s *Service) ConfirmMediaUpload(ctx context.Context, userID uuid.UUID, kind models.MediaKind, key string) (*models.PublicUser, error) {
	const op = "service.media.ConfirmMediaUpload"

	if s.media == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrMediaUnavailable)
	}

	key = strings.TrimSpace(key)
	if key == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrMissingFields)
	}

	if !kind.Valid() {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	current, err := s.storage.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	url, err := s.media.ConfirmUpload(ctx, userID, kind, key)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrInvalidArgument):
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
		case errors.Is(err, storage.ErrNotFound):
			return nil, fmt.Errorf("%s: %w", op, ErrMediaNotUploaded)
		default:
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	var (
		fields models.UserFields
		oldKey string
	)
	switch kind {
	case models.MediaAvatar:
		fields = models.UserFields{AvatarURL: &url, AvatarKey: &key}
		oldKey = current.AvatarKey
	case models.MediaCover:
		fields = models.UserFields{CoverImageURL: &url, CoverImageKey: &key}
		oldKey = current.CoverImageKey
	}

	user, err := s.storage.UpdateUserFields(ctx, userID, fields)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.invalidate(ctx, userID)

	if oldKey != "" && oldKey != key {
		if err := s.media.Remove(ctx, oldKey); err != nil {
			logctx.From(ctx).Warn("media_remove_failed",
				"op", op,
				"user_id", userID.String(),
				"kind", string(kind),
				"key", oldKey,
				"err", err,
			)
		}
	}

	logctx.From(ctx).Info("media_confirmed", "user_id", userID.String(), "kind", string(kind))

	pub := user.Public()
	return &pub, nil
}
