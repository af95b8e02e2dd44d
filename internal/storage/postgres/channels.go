package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pribylovaa/videotube-accounts/internal/models"
	"github.com/pribylovaa/videotube-accounts/internal/storage"
)

// ChannelProfile собирает профиль канала с агрегатами подписок одним запросом.
func (s *Storage) ChannelProfile(ctx context.Context, username string, viewerID uuid.UUID) (*models.ChannelProfile, error) {
	const op = "storage.postgres.ChannelProfile"

	query := `
		SELECT u.id, u.username, u.email, u.full_name, u.avatar_url, u.cover_image_url,
			(SELECT count(*) FROM subscriptions s WHERE s.channel_id = u.id),
			(SELECT count(*) FROM subscriptions s WHERE s.subscriber_id = u.id),
			EXISTS(SELECT 1 FROM subscriptions s WHERE s.channel_id = u.id AND s.subscriber_id = $2)
		FROM users u
		WHERE u.username = $1
	`

	var p models.ChannelProfile
	err := s.db.QueryRow(ctx, query, username, viewerID).Scan(
		&p.ID,
		&p.Username,
		&p.Email,
		&p.FullName,
		&p.AvatarURL,
		&p.CoverImageURL,
		&p.SubscribersCount,
		&p.SubscribedToCount,
		&p.IsSubscribed,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &p, nil
}

// WatchHistory возвращает историю просмотров в порядке добавления.
// Видео, которых уже нет, отбрасываются JOIN'ом.
func (s *Storage) WatchHistory(ctx context.Context, userID uuid.UUID) ([]models.WatchedVideo, error) {
	const op = "storage.postgres.WatchHistory"

	var exists bool
	if err := s.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !exists {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	query := `
		SELECT v.id, v.owner_id, v.title, v.description, v.video_url, v.thumbnail_url,
			v.duration_ms, v.views, v.is_published, v.created_at, v.updated_at,
			o.id, o.username, o.full_name, o.avatar_url
		FROM watch_history h
		JOIN videos v ON v.id = h.video_id
		JOIN users o ON o.id = v.owner_id
		WHERE h.user_id = $1
		ORDER BY h.id
	`

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	out := make([]models.WatchedVideo, 0)
	for rows.Next() {
		var (
			wv         models.WatchedVideo
			durationMS int64
		)

		if err := rows.Scan(
			&wv.ID,
			&wv.OwnerID,
			&wv.Title,
			&wv.Description,
			&wv.VideoURL,
			&wv.ThumbnailURL,
			&durationMS,
			&wv.Views,
			&wv.IsPublished,
			&wv.CreatedAt,
			&wv.UpdatedAt,
			&wv.Owner.ID,
			&wv.Owner.Username,
			&wv.Owner.FullName,
			&wv.Owner.AvatarURL,
		); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}

		wv.Duration = time.Duration(durationMS) * time.Millisecond
		wv.CreatedAt = wv.CreatedAt.UTC()
		wv.UpdatedAt = wv.UpdatedAt.UTC()
		out = append(out, wv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", op, err)
	}

	return out, nil
}

// Subscribe создаёт подписку. Отсутствующий канал (нарушение FK) — storage.ErrNotFound.
func (s *Storage) Subscribe(ctx context.Context, subscriberID, channelID uuid.UUID) error {
	const op = "storage.postgres.Subscribe"

	query := `
		INSERT INTO subscriptions(id, subscriber_id, channel_id, created_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := s.db.Exec(ctx, query, uuid.New(), subscriberID, channelID, time.Now().UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case pgerrcode.UniqueViolation:
				return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
			case pgerrcode.ForeignKeyViolation:
				return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
			}
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Unsubscribe удаляет подписку.
func (s *Storage) Unsubscribe(ctx context.Context, subscriberID, channelID uuid.UUID) error {
	const op = "storage.postgres.Unsubscribe"

	cmdTag, err := s.db.Exec(ctx,
		`DELETE FROM subscriptions WHERE subscriber_id = $1 AND channel_id = $2`,
		subscriberID, channelID,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

// PutVideo добавляет или заменяет видео (наполнение окружения и тесты).
func (s *Storage) PutVideo(ctx context.Context, v models.Video) error {
	const op = "storage.postgres.PutVideo"

	query := `
		INSERT INTO videos(id, owner_id, title, description, video_url, thumbnail_url,
			duration_ms, views, is_published, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			video_url = EXCLUDED.video_url,
			thumbnail_url = EXCLUDED.thumbnail_url,
			duration_ms = EXCLUDED.duration_ms,
			views = EXCLUDED.views,
			is_published = EXCLUDED.is_published,
			updated_at = EXCLUDED.updated_at
	`

	_, err := s.db.Exec(ctx, query,
		v.ID, v.OwnerID, v.Title, v.Description, v.VideoURL, v.ThumbnailURL,
		v.Duration.Milliseconds(), v.Views, v.IsPublished, v.CreatedAt, v.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// RecordView дописывает видео в историю просмотров.
func (s *Storage) RecordView(ctx context.Context, userID, videoID uuid.UUID) error {
	const op = "storage.postgres.RecordView"

	_, err := s.db.Exec(ctx,
		`INSERT INTO watch_history(user_id, video_id) VALUES ($1, $2)`,
		userID, videoID,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
