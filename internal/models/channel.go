package models

import (
	"time"

	"github.com/google/uuid"
)

// Subscription — подписка SubscriberID на канал ChannelID.
// Пара (SubscriberID, ChannelID) уникальна.
type Subscription struct {
	ID           uuid.UUID
	SubscriberID uuid.UUID
	ChannelID    uuid.UUID
	CreatedAt    time.Time
}

// Video — видео канала. Принадлежит video-сервису, здесь только читается
// для истории просмотров.
type Video struct {
	ID           uuid.UUID     `json:"id"`
	OwnerID      uuid.UUID     `json:"owner_id"`
	Title        string        `json:"title"`
	Description  string        `json:"description"`
	VideoURL     string        `json:"video_url"`
	ThumbnailURL string        `json:"thumbnail_url"`
	Duration     time.Duration `json:"duration"`
	Views        int64         `json:"views"`
	IsPublished  bool          `json:"is_published"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// VideoOwner — краткие сведения о владельце видео.
type VideoOwner struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	FullName  string    `json:"full_name"`
	AvatarURL string    `json:"avatar_url"`
}

// WatchedVideo — элемент истории просмотров.
type WatchedVideo struct {
	Video
	Owner VideoOwner `json:"owner"`
}

// ChannelProfile — публичная страница канала с агрегатами подписок.
type ChannelProfile struct {
	ID                uuid.UUID `json:"id"`
	Username          string    `json:"username"`
	Email             string    `json:"email"`
	FullName          string    `json:"full_name"`
	AvatarURL         string    `json:"avatar_url"`
	CoverImageURL     string    `json:"cover_image_url"`
	SubscribersCount  int64     `json:"subscribers_count"`
	SubscribedToCount int64     `json:"channels_subscribed_to_count"`
	IsSubscribed      bool      `json:"is_subscribed"`
}
