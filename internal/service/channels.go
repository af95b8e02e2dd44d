package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/pribylovaa/videotube-accounts/internal/models"
	logctx "github.com/pribylovaa/videotube-accounts/internal/pkg/log"
	"github.com/pribylovaa/videotube-accounts/internal/storage"
)

// ChannelProfile возвращает страницу канала с числом подписчиков, подписок
// и признаком подписки зрителя viewerID.
func (s *Service) ChannelProfile(ctx context.Context, username string, viewerID uuid.UUID) (*models.ChannelProfile, error) {
	const op = "service.channels.ChannelProfile"

	username = normalize(username)
	if username == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrMissingFields)
	}

	profile, err := s.storage.ChannelProfile(ctx, username, viewerID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrChannelNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return profile, nil
}

// Subscribe подписывает subscriberID на канал. Повторная подписка не ошибка.
func (s *Service) Subscribe(ctx context.Context, subscriberID uuid.UUID, channelUsername string) error {
	const op = "service.channels.Subscribe"

	channel, err := s.channelByUsername(ctx, subscriberID, channelUsername)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.storage.Subscribe(ctx, subscriberID, channel.ID); err != nil {
		switch {
		case errors.Is(err, storage.ErrAlreadyExists):
			return nil
		case errors.Is(err, storage.ErrNotFound):
			return fmt.Errorf("%s: %w", op, ErrChannelNotFound)
		default:
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	logctx.From(ctx).Info("subscribed",
		"subscriber_id", subscriberID.String(),
		"channel_id", channel.ID.String(),
	)

	return nil
}

// Unsubscribe отменяет подписку. Отсутствующая подписка не ошибка.
func (s *Service) Unsubscribe(ctx context.Context, subscriberID uuid.UUID, channelUsername string) error {
	const op = "service.channels.Unsubscribe"

	channel, err := s.channelByUsername(ctx, subscriberID, channelUsername)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.storage.Unsubscribe(ctx, subscriberID, channel.ID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	logctx.From(ctx).Info("unsubscribed",
		"subscriber_id", subscriberID.String(),
		"channel_id", channel.ID.String(),
	)

	return nil
}

// WatchHistory возвращает историю просмотров пользователя с владельцами видео.
func (s *Service) WatchHistory(ctx context.Context, userID uuid.UUID) ([]models.WatchedVideo, error) {
	const op = "service.channels.WatchHistory"

	history, err := s.storage.WatchHistory(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if history == nil {
		history = []models.WatchedVideo{}
	}

	return history, nil
}

// channelByUsername находит канал и запрещает подписку на самого себя.
func (s *Service) channelByUsername(ctx context.Context, subscriberID uuid.UUID, username string) (*models.User, error) {
	username = normalize(username)
	if username == "" {
		return nil, ErrMissingFields
	}

	channel, err := s.storage.UserByUsernameOrEmail(ctx, username, "")
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrChannelNotFound
		}

		return nil, err
	}

	if channel.ID == subscriberID {
		return nil, ErrSelfSubscription
	}

	return channel, nil
}
