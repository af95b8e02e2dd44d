// storage описывает контракт хранилища пользователей, подписок и истории
// просмотров. Реализации: mongo (по умолчанию), postgres и memory.
package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/pribylovaa/videotube-accounts/internal/models"
)

var (
	// ErrNotFound — запись не найдена (пользователь/подписка).
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists — нарушение уникальности (username/email/подписка).
	ErrAlreadyExists = errors.New("already exists")
)

// UserStorage выполняет операции над пользователями.
type UserStorage interface {
	// SaveUser создаёт нового пользователя.
	SaveUser(ctx context.Context, user *models.User) error
	// UserByID находит пользователя по ID.
	UserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	// UserByUsernameOrEmail находит пользователя, у которого совпадает
	// username ИЛИ email. Пустые аргументы не участвуют в поиске.
	UserByUsernameOrEmail(ctx context.Context, username, email string) (*models.User, error)
	// UpdateUserFields обновляет только заданные поля и возвращает свежую запись.
	UpdateUserFields(ctx context.Context, id uuid.UUID, fields models.UserFields) (*models.User, error)
}

// SessionStorage управляет единственным действующим refresh-токеном пользователя.
type SessionStorage interface {
	// SetRefreshToken безусловно записывает хэш refresh-токена ("" — сброс).
	SetRefreshToken(ctx context.Context, id uuid.UUID, hash string) error
	// SwapRefreshToken заменяет хэш на next, только если сейчас сохранён expected.
	// Возвращает false, если сохранённое значение уже другое.
	SwapRefreshToken(ctx context.Context, id uuid.UUID, expected, next string) (bool, error)
}

// ChannelStorage — подписки и агрегаты для страницы канала.
type ChannelStorage interface {
	// ChannelProfile собирает профиль канала с числом подписчиков/подписок
	// и признаком подписки viewerID (uuid.Nil — анонимный зритель).
	ChannelProfile(ctx context.Context, username string, viewerID uuid.UUID) (*models.ChannelProfile, error)
	// WatchHistory возвращает просмотренные видео с владельцами в порядке истории.
	WatchHistory(ctx context.Context, userID uuid.UUID) ([]models.WatchedVideo, error)
	// Subscribe создаёт подписку; повторная подписка — ErrAlreadyExists.
	Subscribe(ctx context.Context, subscriberID, channelID uuid.UUID) error
	// Unsubscribe удаляет подписку; отсутствующая — ErrNotFound.
	Unsubscribe(ctx context.Context, subscriberID, channelID uuid.UUID) error
}

// Storage задает контракт работы с БД.
type Storage interface {
	UserStorage
	SessionStorage
	ChannelStorage
	Close()
}
