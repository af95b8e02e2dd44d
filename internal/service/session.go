package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/pribylovaa/videotube-accounts/internal/credential"
	"github.com/pribylovaa/videotube-accounts/internal/metrics"
	"github.com/pribylovaa/videotube-accounts/internal/models"
	logctx "github.com/pribylovaa/videotube-accounts/internal/pkg/log"
	"github.com/pribylovaa/videotube-accounts/internal/pkg/redact"
	"github.com/pribylovaa/videotube-accounts/internal/storage"
	"github.com/pribylovaa/videotube-accounts/internal/token"
)

// LoginInput — входные данные для входа. Достаточно username ИЛИ email.
type LoginInput struct {
	Username string
	Email    string
	Password string
}

// Login проверяет учётные данные и открывает новую сессию: выпускает пару
// токенов и сохраняет хэш refresh-токена, вытесняя предыдущий.
// Неизвестный пользователь и неверный пароль неразличимы для клиента.
func (s *Service) Login(ctx context.Context, in LoginInput) (*models.Session, error) {
	const op = "service.session.Login"

	username := normalize(in.Username)
	email := normalize(in.Email)
	if username == "" && email == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrMissingFields)
	}

	login := username
	if login == "" {
		login = email
	}

	lg := logctx.From(ctx).With("op", op, "login", redact.Login(login))

	user, err := s.storage.UserByUsernameOrEmail(ctx, username, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			lg.Info("login_rejected", "reason", "user_not_found")
			s.metrics.ObserveLogin(metrics.ResultRejected)
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}

		s.metrics.ObserveLogin(metrics.ResultError)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !s.hasher.Verify(in.Password, user.PasswordHash) {
		lg.Info("login_rejected", "reason", "wrong_password", "user_id", user.ID.String())
		s.metrics.ObserveLogin(metrics.ResultRejected)
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	pair, err := s.tokens.IssuePair(user.ID)
	if err != nil {
		s.metrics.ObserveLogin(metrics.ResultError)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.storage.SetRefreshToken(ctx, user.ID, token.Digest(pair.Refresh.Value)); err != nil {
		s.metrics.ObserveLogin(metrics.ResultError)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	lg.Info("login_succeeded", "user_id", user.ID.String())
	s.metrics.ObserveLogin(metrics.ResultOK)

	return newSession(user, pair), nil
}

// RefreshSession обменивает действующий refresh-токен на новую пару.
//
// Порядок:
//  1. подпись/срок/issuer проверяются без обращения к хранилищу;
//  2. запись пользователя перечитывается непосредственно перед сравнением;
//  3. хэш предъявленного токена должен совпасть с сохранённым;
//  4. новый хэш записывается условно (SwapRefreshToken): если между шагами 2
//     и 4 токен уже ротировал кто-то другой, запрос проигрывает гонку.
//
// При любой ошибке сохранённое значение не меняется.
func (s *Service) RefreshSession(ctx context.Context, presented string) (*models.Session, error) {
	const op = "service.session.RefreshSession"

	if strings.TrimSpace(presented) == "" {
		s.metrics.ObserveRefresh(metrics.ResultRejected)
		return nil, fmt.Errorf("%s: %w", op, ErrUnauthorized)
	}

	lg := logctx.From(ctx).With("op", op)

	claims, err := s.tokens.VerifyRefresh(presented)
	if err != nil {
		lg.Info("refresh_rejected", "reason", rejectReason(err))
		s.metrics.ObserveRefresh(metrics.ResultRejected)
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidRefreshToken)
	}

	lg = lg.With("user_id", claims.UserID.String())

	user, err := s.storage.UserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			lg.Info("refresh_rejected", "reason", "user_not_found")
			s.metrics.ObserveRefresh(metrics.ResultRejected)
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidRefreshToken)
		}

		s.metrics.ObserveRefresh(metrics.ResultError)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	current := token.Digest(presented)
	if !sameDigest(current, user.RefreshTokenHash) {
		lg.Warn("refresh_token_reuse", "jti", claims.ID)
		s.metrics.ObserveRefresh(metrics.ResultReused)
		return nil, fmt.Errorf("%s: %w", op, ErrRefreshTokenReused)
	}

	pair, err := s.tokens.IssuePair(user.ID)
	if err != nil {
		s.metrics.ObserveRefresh(metrics.ResultError)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	swapped, err := s.storage.SwapRefreshToken(ctx, user.ID, current, token.Digest(pair.Refresh.Value))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.metrics.ObserveRefresh(metrics.ResultRejected)
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidRefreshToken)
		}

		s.metrics.ObserveRefresh(metrics.ResultError)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !swapped {
		lg.Warn("refresh_token_reuse", "jti", claims.ID, "reason", "lost_rotation_race")
		s.metrics.ObserveRefresh(metrics.ResultReused)
		return nil, fmt.Errorf("%s: %w", op, ErrRefreshTokenReused)
	}

	lg.Info("refresh_succeeded")
	s.metrics.ObserveRefresh(metrics.ResultOK)

	return newSession(user, pair), nil
}

// Logout безусловно сбрасывает сохранённый refresh-токен пользователя.
// Уже выданный access-токен продолжает действовать до истечения срока.
func (s *Service) Logout(ctx context.Context, userID uuid.UUID) error {
	const op = "service.session.Logout"

	if err := s.storage.SetRefreshToken(ctx, userID, ""); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrUnauthorized)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	logctx.From(ctx).Info("logout", "user_id", userID.String())

	return nil
}

// ChangePassword меняет пароль после проверки текущего.
// Действующий refresh-токен при этом не отзывается.
func (s *Service) ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword string) error {
	const op = "service.session.ChangePassword"

	if oldPassword == "" || newPassword == "" {
		return fmt.Errorf("%s: %w", op, ErrMissingFields)
	}

	user, err := s.storage.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	if !s.hasher.Verify(oldPassword, user.PasswordHash) {
		return fmt.Errorf("%s: %w", op, ErrInvalidOldPassword)
	}

	if err := validatePassword(newPassword); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	hash, err := s.hasher.Resolve(credential.PasswordChange{Plaintext: newPassword, Changing: true}, user.PasswordHash)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if _, err := s.storage.UpdateUserFields(ctx, userID, models.UserFields{PasswordHash: &hash}); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	logctx.From(ctx).Info("password_changed", "user_id", userID.String())

	return nil
}

// Authenticate проверяет access-токен и возвращает публичный профиль владельца.
// Профиль сначала ищется в кэше (если он сконфигурирован).
func (s *Service) Authenticate(ctx context.Context, accessToken string) (*models.PublicUser, error) {
	const op = "service.session.Authenticate"

	if strings.TrimSpace(accessToken) == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrUnauthorized)
	}

	claims, err := s.tokens.VerifyAccess(accessToken)
	if err != nil {
		logctx.From(ctx).Debug("access_rejected", "op", op, "reason", rejectReason(err))
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidAccessToken)
	}

	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, claims.UserID)
		switch {
		case err != nil:
			logctx.From(ctx).Warn("user_cache_get_failed", "op", op, "err", err)
		case ok:
			return cached, nil
		}
	}

	user, err := s.storage.UserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidAccessToken)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	pub := user.Public()

	if s.cache != nil {
		if err := s.cache.Set(ctx, pub); err != nil {
			logctx.From(ctx).Warn("user_cache_set_failed", "op", op, "err", err)
		}
	}

	return &pub, nil
}

func newSession(user *models.User, pair token.Pair) *models.Session {
	return &models.Session{
		User: user.Public(),
		Tokens: models.TokenPair{
			AccessToken:      pair.Access.Value,
			AccessExpiresAt:  pair.Access.ExpiresAt,
			RefreshToken:     pair.Refresh.Value,
			RefreshExpiresAt: pair.Refresh.ExpiresAt,
		},
	}
}

// sameDigest сравнивает хэши за постоянное время; пустой сохранённый хэш
// означает, что активной сессии нет.
func sameDigest(presented, stored string) bool {
	if stored == "" {
		return false
	}

	return subtle.ConstantTimeCompare([]byte(presented), []byte(stored)) == 1
}

func rejectReason(err error) string {
	if errors.Is(err, token.ErrExpired) {
		return "expired"
	}

	return "invalid"
}
