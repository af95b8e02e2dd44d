package mongo

import (
	"time"

	"github.com/google/uuid"

	"github.com/pribylovaa/videotube-accounts/internal/models"
)

// Идентификаторы хранятся строками: их удобно сравнивать в $lookup.

type userDoc struct {
	ID               string    `bson:"_id"`
	Username         string    `bson:"username"`
	Email            string    `bson:"email"`
	FullName         string    `bson:"full_name"`
	AvatarURL        string    `bson:"avatar_url"`
	AvatarKey        string    `bson:"avatar_key"`
	CoverImageURL    string    `bson:"cover_image_url"`
	CoverImageKey    string    `bson:"cover_image_key"`
	PasswordHash     string    `bson:"password_hash"`
	RefreshTokenHash string    `bson:"refresh_token_hash"`
	WatchHistory     []string  `bson:"watch_history"`
	CreatedAt        time.Time `bson:"created_at"`
	UpdatedAt        time.Time `bson:"updated_at"`
}

type subscriptionDoc struct {
	ID         string    `bson:"_id"`
	Subscriber string    `bson:"subscriber"`
	Channel    string    `bson:"channel"`
	CreatedAt  time.Time `bson:"created_at"`
}

// videoDoc — видео; duration хранится в секундах.
type videoDoc struct {
	ID           string    `bson:"_id"`
	Owner        string    `bson:"owner"`
	Title        string    `bson:"title"`
	Description  string    `bson:"description"`
	VideoURL     string    `bson:"video_url"`
	ThumbnailURL string    `bson:"thumbnail_url"`
	Duration     float64   `bson:"duration"`
	Views        int64     `bson:"views"`
	IsPublished  bool      `bson:"is_published"`
	CreatedAt    time.Time `bson:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at"`
}

type ownerDoc struct {
	ID        string `bson:"_id"`
	Username  string `bson:"username"`
	FullName  string `bson:"full_name"`
	AvatarURL string `bson:"avatar_url"`
}

type watchedDoc struct {
	Video videoDoc `bson:"video"`
	Owner ownerDoc `bson:"owner"`
}

type channelDoc struct {
	User              userDoc `bson:",inline"`
	SubscribersCount  int64 `bson:"subscribers_count"`
	SubscribedToCount int64 `bson:"subscribed_to_count"`
	IsSubscribed      bool  `bson:"is_subscribed"`
}

func toUserDoc(u *models.User) userDoc {
	history := make([]string, 0, len(u.WatchHistory))
	for _, id := range u.WatchHistory {
		history = append(history, id.String())
	}

	return userDoc{
		ID:               u.ID.String(),
		Username:         u.Username,
		Email:            u.Email,
		FullName:         u.FullName,
		AvatarURL:        u.AvatarURL,
		AvatarKey:        u.AvatarKey,
		CoverImageURL:    u.CoverImageURL,
		CoverImageKey:    u.CoverImageKey,
		PasswordHash:     u.PasswordHash,
		RefreshTokenHash: u.RefreshTokenHash,
		WatchHistory:     history,
		CreatedAt:        toMS(u.CreatedAt),
		UpdatedAt:        toMS(u.UpdatedAt),
	}
}

func (d userDoc) model() *models.User {
	id, _ := uuid.Parse(d.ID)

	history := make([]uuid.UUID, 0, len(d.WatchHistory))
	for _, raw := range d.WatchHistory {
		if id, err := uuid.Parse(raw); err == nil {
			history = append(history, id)
		}
	}

	return &models.User{
		ID:               id,
		Username:         d.Username,
		Email:            d.Email,
		FullName:         d.FullName,
		AvatarURL:        d.AvatarURL,
		AvatarKey:        d.AvatarKey,
		CoverImageURL:    d.CoverImageURL,
		CoverImageKey:    d.CoverImageKey,
		PasswordHash:     d.PasswordHash,
		RefreshTokenHash: d.RefreshTokenHash,
		WatchHistory:     history,
		CreatedAt:        d.CreatedAt.UTC(),
		UpdatedAt:        d.UpdatedAt.UTC(),
	}
}

func toVideoDoc(v models.Video) videoDoc {
	return videoDoc{
		ID:           v.ID.String(),
		Owner:        v.OwnerID.String(),
		Title:        v.Title,
		Description:  v.Description,
		VideoURL:     v.VideoURL,
		ThumbnailURL: v.ThumbnailURL,
		Duration:     v.Duration.Seconds(),
		Views:        v.Views,
		IsPublished:  v.IsPublished,
		CreatedAt:    toMS(v.CreatedAt),
		UpdatedAt:    toMS(v.UpdatedAt),
	}
}

func (d videoDoc) model() models.Video {
	id, _ := uuid.Parse(d.ID)
	owner, _ := uuid.Parse(d.Owner)

	return models.Video{
		ID:           id,
		OwnerID:      owner,
		Title:        d.Title,
		Description:  d.Description,
		VideoURL:     d.VideoURL,
		ThumbnailURL: d.ThumbnailURL,
		Duration:     time.Duration(d.Duration * float64(time.Second)),
		Views:        d.Views,
		IsPublished:  d.IsPublished,
		CreatedAt:    d.CreatedAt.UTC(),
		UpdatedAt:    d.UpdatedAt.UTC(),
	}
}

func (d ownerDoc) model() models.VideoOwner {
	id, _ := uuid.Parse(d.ID)

	return models.VideoOwner{
		ID:        id,
		Username:  d.Username,
		FullName:  d.FullName,
		AvatarURL: d.AvatarURL,
	}
}

func (d channelDoc) model() *models.ChannelProfile {
	id, _ := uuid.Parse(d.User.ID)

	return &models.ChannelProfile{
		ID:                id,
		Username:          d.User.Username,
		Email:             d.User.Email,
		FullName:          d.User.FullName,
		AvatarURL:         d.User.AvatarURL,
		CoverImageURL:     d.User.CoverImageURL,
		SubscribersCount:  d.SubscribersCount,
		SubscribedToCount: d.SubscribedToCount,
		IsSubscribed:      d.IsSubscribed,
	}
}
