// service содержит бизнес-логику accounts-сервиса:
// регистрацию и вход, выпуск/ротацию/отзыв пары токенов, смену пароля,
// медиа профиля (аватар, обложка) и подписки на каналы.
//
// Основные аспекты:
//   - Service не хранит состояние запроса; экземпляр безопасен для
//     конкурентного использования при потокобезопасном storage.Storage.
//   - Единственный «шлюз» конкурентной ротации — условное обновление
//     storage.SwapRefreshToken: из двух параллельных refresh одним токеном
//     успешен ровно один.
//   - Ошибки возвращаются сентинелами ниже и маппятся транспортом
//     (internal/transport/http/apierrors) в HTTP-статусы.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/pribylovaa/videotube-accounts/internal/cache"
	"github.com/pribylovaa/videotube-accounts/internal/credential"
	"github.com/pribylovaa/videotube-accounts/internal/metrics"
	logctx "github.com/pribylovaa/videotube-accounts/internal/pkg/log"
	"github.com/pribylovaa/videotube-accounts/internal/storage"
	"github.com/pribylovaa/videotube-accounts/internal/token"
)

var (
	// ErrMissingFields — не заполнены обязательные поля. HTTP 400.
	ErrMissingFields = errors.New("All fields are required")

	// ErrInvalidEmail — e-mail имеет некорректный формат. HTTP 400.
	ErrInvalidEmail = errors.New("invalid email format")

	// ErrInvalidUsername — username содержит недопустимые символы. HTTP 400.
	ErrInvalidUsername = errors.New("username may contain only a-z, 0-9, '.', '_' and '-' (3-30 chars)")

	// ErrWeakPassword — пароль не удовлетворяет политике сложности. HTTP 400.
	ErrWeakPassword = errors.New("password is too weak")

	// ErrInvalidArgument — прочие некорректные входные данные. HTTP 400.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrSelfSubscription — попытка подписаться на собственный канал. HTTP 400.
	ErrSelfSubscription = errors.New("cannot subscribe to own channel")

	// ErrMediaNotUploaded — подтверждается загрузка, которой нет в бакете. HTTP 400.
	ErrMediaNotUploaded = errors.New("uploaded file is missing")

	// ErrUserExists — username или e-mail уже заняты. HTTP 409.
	ErrUserExists = errors.New("User already exists")

	// ErrUnauthorized — запрос без токена. HTTP 401.
	ErrUnauthorized = errors.New("Unauthorized request")

	// ErrInvalidRefreshToken — refresh-токен не прошёл проверку подписи/срока
	// или его владелец не найден. HTTP 401.
	ErrInvalidRefreshToken = errors.New("Invalid refresh token")

	// ErrInvalidAccessToken — access-токен не прошёл проверку или его
	// владелец не найден. HTTP 401.
	ErrInvalidAccessToken = errors.New("Invalid access token")

	// ErrRefreshTokenReused — предъявлен валидный по подписи, но уже не
	// действующий refresh-токен (использован при ротации или отозван). HTTP 401.
	ErrRefreshTokenReused = errors.New("Refresh token is expired or used")

	// ErrInvalidCredentials — пользователь не найден или пароль неверен. HTTP 401.
	ErrInvalidCredentials = errors.New("Invalid user credentials")

	// ErrInvalidOldPassword — при смене пароля неверно указан текущий. HTTP 400.
	ErrInvalidOldPassword = errors.New("Invalid old password")

	// ErrNotFound — пользователь не найден. HTTP 404.
	ErrNotFound = errors.New("User does not exist")

	// ErrChannelNotFound — канала с таким username нет. HTTP 404.
	ErrChannelNotFound = errors.New("Channel does not exist")

	// ErrMediaUnavailable — хранилище медиа не сконфигурировано. HTTP 503.
	ErrMediaUnavailable = errors.New("media storage is not configured")
)

// Service описывает бизнес-логику accounts-сервиса.
type Service struct {
	storage storage.Storage
	tokens  *token.Manager
	hasher  *credential.Hasher

	media   storage.MediaStorage // может быть nil, если S3 не сконфигурирован
	cache   cache.UserCache      // может быть nil, если Redis не сконфигурирован
	metrics *metrics.Metrics     // может быть nil

	now func() time.Time
}

// New создаёт новый экземпляр Service.
func New(storage storage.Storage, tokens *token.Manager, hasher *credential.Hasher) *Service {
	return &Service{
		storage: storage,
		tokens:  tokens,
		hasher:  hasher,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// SetMediaStorage устанавливает хранилище медиа профиля (опционально).
func (s *Service) SetMediaStorage(m storage.MediaStorage) {
	s.media = m
}

// SetUserCache устанавливает кэш публичных профилей (опционально).
func (s *Service) SetUserCache(c cache.UserCache) {
	s.cache = c
}

// SetMetrics устанавливает счётчики аутентификации (опционально).
func (s *Service) SetMetrics(m *metrics.Metrics) {
	s.metrics = m
}

// AccessTTL и RefreshTTL нужны транспорту для MaxAge cookie.
func (s *Service) AccessTTL() time.Duration  { return s.tokens.AccessTTL() }
func (s *Service) RefreshTTL() time.Duration { return s.tokens.RefreshTTL() }

// invalidate сбрасывает профиль в кэше; ошибки кэша не фатальны.
func (s *Service) invalidate(ctx context.Context, id uuid.UUID) {
	if s.cache == nil {
		return
	}

	if err := s.cache.Invalidate(ctx, id); err != nil {
		logctx.From(ctx).Warn("user_cache_invalidate_failed", "user_id", id.String(), "err", err)
	}
}
