// memory — хранилище в памяти процесса для локального запуска и тестов.
// Все операции сериализуются одним RWMutex; наружу отдаются только копии.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pribylovaa/videotube-accounts/internal/models"
	"github.com/pribylovaa/videotube-accounts/internal/storage"
)

type subKey struct {
	subscriber uuid.UUID
	channel    uuid.UUID
}

// Storage — реализация storage.Storage в памяти.
type Storage struct {
	mu     sync.RWMutex
	users  map[uuid.UUID]*models.User
	subs   map[subKey]models.Subscription
	videos map[uuid.UUID]models.Video
	now    func() time.Time
}

// New создаёт пустое хранилище.
func New() *Storage {
	return &Storage{
		users:  make(map[uuid.UUID]*models.User),
		subs:   make(map[subKey]models.Subscription),
		videos: make(map[uuid.UUID]models.Video),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Close ничего не освобождает.
func (s *Storage) Close() {}

// SaveUser создаёт нового пользователя.
func (s *Storage) SaveUser(ctx context.Context, user *models.User) error {
	const op = "storage.memory.SaveUser"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; ok {
		return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
	}

	for _, u := range s.users {
		if u.Username == user.Username || u.Email == user.Email {
			return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
		}
	}

	s.users[user.ID] = cloneUser(user)

	return nil
}

// UserByID находит пользователя по ID.
func (s *Storage) UserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	const op = "storage.memory.UserByID"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return cloneUser(u), nil
}

// UserByUsernameOrEmail находит пользователя по username или email.
func (s *Storage) UserByUsernameOrEmail(ctx context.Context, username, email string) (*models.User, error) {
	const op = "storage.memory.UserByUsernameOrEmail"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if u := s.findLocked(username, email); u != nil {
		return cloneUser(u), nil
	}

	return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
}

// UpdateUserFields обновляет заданные поля.
func (s *Storage) UpdateUserFields(ctx context.Context, id uuid.UUID, f models.UserFields) (*models.User, error) {
	const op = "storage.memory.UpdateUserFields"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	if f.Email != nil && *f.Email != u.Email {
		for _, other := range s.users {
			if other.ID != id && other.Email == *f.Email {
				return nil, fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
			}
		}
	}

	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}

	set(&u.FullName, f.FullName)
	set(&u.Email, f.Email)
	set(&u.AvatarURL, f.AvatarURL)
	set(&u.AvatarKey, f.AvatarKey)
	set(&u.CoverImageURL, f.CoverImageURL)
	set(&u.CoverImageKey, f.CoverImageKey)
	set(&u.PasswordHash, f.PasswordHash)
	u.UpdatedAt = s.now()

	return cloneUser(u), nil
}

// SetRefreshToken безусловно записывает хэш refresh-токена.
func (s *Storage) SetRefreshToken(ctx context.Context, id uuid.UUID, hash string) error {
	const op = "storage.memory.SetRefreshToken"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	u.RefreshTokenHash = hash

	return nil
}

// SwapRefreshToken заменяет хэш, если сохранён expected.
func (s *Storage) SwapRefreshToken(ctx context.Context, id uuid.UUID, expected, next string) (bool, error) {
	const op = "storage.memory.SwapRefreshToken"

	if err := ctx.Err(); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return false, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	if expected == "" || u.RefreshTokenHash != expected {
		return false, nil
	}

	u.RefreshTokenHash = next

	return true, nil
}

// ChannelProfile собирает профиль канала.
func (s *Storage) ChannelProfile(ctx context.Context, username string, viewerID uuid.UUID) (*models.ChannelProfile, error) {
	const op = "storage.memory.ChannelProfile"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	u := s.findLocked(username, "")
	if u == nil {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	p := &models.ChannelProfile{
		ID:            u.ID,
		Username:      u.Username,
		Email:         u.Email,
		FullName:      u.FullName,
		AvatarURL:     u.AvatarURL,
		CoverImageURL: u.CoverImageURL,
	}

	for k := range s.subs {
		if k.channel == u.ID {
			p.SubscribersCount++
			if viewerID != uuid.Nil && k.subscriber == viewerID {
				p.IsSubscribed = true
			}
		}
		if k.subscriber == u.ID {
			p.SubscribedToCount++
		}
	}

	return p, nil
}

// WatchHistory возвращает историю просмотров. Удалённые видео пропускаются.
func (s *Storage) WatchHistory(ctx context.Context, userID uuid.UUID) ([]models.WatchedVideo, error) {
	const op = "storage.memory.WatchHistory"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[userID]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	out := make([]models.WatchedVideo, 0, len(u.WatchHistory))
	for _, vid := range u.WatchHistory {
		v, ok := s.videos[vid]
		if !ok {
			continue
		}

		wv := models.WatchedVideo{Video: v}
		if owner, ok := s.users[v.OwnerID]; ok {
			wv.Owner = models.VideoOwner{
				ID:        owner.ID,
				Username:  owner.Username,
				FullName:  owner.FullName,
				AvatarURL: owner.AvatarURL,
			}
		}
		out = append(out, wv)
	}

	return out, nil
}

// Subscribe создаёт подписку.
func (s *Storage) Subscribe(ctx context.Context, subscriberID, channelID uuid.UUID) error {
	const op = "storage.memory.Subscribe"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[channelID]; !ok {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	k := subKey{subscriber: subscriberID, channel: channelID}
	if _, ok := s.subs[k]; ok {
		return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
	}

	s.subs[k] = models.Subscription{
		ID:           uuid.New(),
		SubscriberID: subscriberID,
		ChannelID:    channelID,
		CreatedAt:    s.now(),
	}

	return nil
}

// Unsubscribe удаляет подписку.
func (s *Storage) Unsubscribe(ctx context.Context, subscriberID, channelID uuid.UUID) error {
	const op = "storage.memory.Unsubscribe"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	k := subKey{subscriber: subscriberID, channel: channelID}
	if _, ok := s.subs[k]; !ok {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	delete(s.subs, k)

	return nil
}

// PutVideo добавляет или заменяет видео. Видео принадлежат video-сервису;
// метод нужен для наполнения локального окружения и тестов.
func (s *Storage) PutVideo(v models.Video) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.videos[v.ID] = v
}

// RecordView дописывает видео в историю просмотров пользователя.
func (s *Storage) RecordView(userID, videoID uuid.UUID) error {
	const op = "storage.memory.RecordView"

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	u.WatchHistory = append(u.WatchHistory, videoID)

	return nil
}

func (s *Storage) findLocked(username, email string) *models.User {
	if username == "" && email == "" {
		return nil
	}

	for _, u := range s.users {
		if (username != "" && u.Username == username) || (email != "" && u.Email == email) {
			return u
		}
	}

	return nil
}

func cloneUser(u *models.User) *models.User {
	c := *u
	c.WatchHistory = slices.Clone(u.WatchHistory)
	return &c
}

// Проверка на соответствие интерфейсу Storage.
var _ storage.Storage = (*Storage)(nil)
