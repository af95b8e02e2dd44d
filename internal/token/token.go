// token выпускает и проверяет пары access/refresh JWT (HS256).
//
// Access и refresh подписываются разными секретами: токен одного вида
// никогда не проходит проверку как токен другого. Manager не хранит состояние
// между вызовами и безопасен для конкурентного использования; сохранение
// refresh-токена на записи пользователя — ответственность вызывающего.
package token

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/pribylovaa/videotube-accounts/internal/config"
)

var (
	// ErrInvalidToken — токен некорректен: формат, подпись, алгоритм, issuer/audience,
	// subject или срок действия. Любая ошибка проверки оборачивает её.
	ErrInvalidToken = errors.New("invalid token")

	// ErrExpired — срок действия истёк. Всегда сопровождается ErrInvalidToken;
	// отдельно нужен только для логов.
	ErrExpired = errors.New("token expired")
)

// Token — подписанный токен и момент его истечения.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

// Pair — пара токенов, выпускаемая при входе и при каждой ротации.
type Pair struct {
	Access  Token
	Refresh Token
}

// Claims — проверенные утверждения токена.
type Claims struct {
	UserID    uuid.UUID
	ID        string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type kind struct {
	secret []byte
	ttl    time.Duration
}

// Manager выпускает и проверяет токены обоих видов.
type Manager struct {
	access   kind
	refresh  kind
	issuer   string
	audience []string
	now      func() time.Time
}

// Option настраивает Manager.
type Option func(*Manager)

// WithClock подменяет источник времени (для тестов).
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// New создаёт Manager из конфигурации. Секреты и TTL фиксируются один раз.
func New(cfg config.AuthConfig, opts ...Option) *Manager {
	m := &Manager{
		access:   kind{secret: []byte(cfg.AccessTokenSecret), ttl: cfg.AccessTokenTTL},
		refresh:  kind{secret: []byte(cfg.RefreshTokenSecret), ttl: cfg.RefreshTokenTTL},
		issuer:   cfg.Issuer,
		audience: append([]string(nil), cfg.Audience...),
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// AccessTTL возвращает время жизни access-токена.
func (m *Manager) AccessTTL() time.Duration { return m.access.ttl }

// RefreshTTL возвращает время жизни refresh-токена.
func (m *Manager) RefreshTTL() time.Duration { return m.refresh.ttl }

// IssueAccess подписывает access-токен для пользователя.
func (m *Manager) IssueAccess(userID uuid.UUID) (Token, error) {
	const op = "token.IssueAccess"

	t, err := m.issue(m.access, userID, m.now().UTC())
	if err != nil {
		return Token{}, fmt.Errorf("%s: %w", op, err)
	}

	return t, nil
}

// IssueRefresh подписывает refresh-токен для пользователя. Ничего не сохраняет.
func (m *Manager) IssueRefresh(userID uuid.UUID) (Token, error) {
	const op = "token.IssueRefresh"

	t, err := m.issue(m.refresh, userID, m.now().UTC())
	if err != nil {
		return Token{}, fmt.Errorf("%s: %w", op, err)
	}

	return t, nil
}

// IssuePair выпускает access и refresh с общим моментом выпуска.
func (m *Manager) IssuePair(userID uuid.UUID) (Pair, error) {
	const op = "token.IssuePair"

	now := m.now().UTC()

	access, err := m.issue(m.access, userID, now)
	if err != nil {
		return Pair{}, fmt.Errorf("%s: %w", op, err)
	}

	refresh, err := m.issue(m.refresh, userID, now)
	if err != nil {
		return Pair{}, fmt.Errorf("%s: %w", op, err)
	}

	return Pair{Access: access, Refresh: refresh}, nil
}

// VerifyAccess проверяет access-токен.
func (m *Manager) VerifyAccess(raw string) (Claims, error) {
	const op = "token.VerifyAccess"

	c, err := m.verify(m.access, raw)
	if err != nil {
		return Claims{}, fmt.Errorf("%s: %w", op, err)
	}

	return c, nil
}

// VerifyRefresh проверяет подпись и срок refresh-токена. Сверка с сохранённым
// значением выполняется вызывающим.
func (m *Manager) VerifyRefresh(raw string) (Claims, error) {
	const op = "token.VerifyRefresh"

	c, err := m.verify(m.refresh, raw)
	if err != nil {
		return Claims{}, fmt.Errorf("%s: %w", op, err)
	}

	return c, nil
}

// Digest возвращает SHA-256 (base64url) от токена: в хранилище лежит только он.
func Digest(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

func (m *Manager) issue(k kind, userID uuid.UUID, now time.Time) (Token, error) {
	if userID == uuid.Nil {
		return Token{}, fmt.Errorf("empty subject")
	}

	exp := now.Add(k.ttl)

	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
		Issuer:    m.issuer,
		Audience:  jwt.ClaimStrings(m.audience),
		ID:        uuid.NewString(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(k.secret)
	if err != nil {
		return Token{}, err
	}

	return Token{Value: signed, ExpiresAt: exp}, nil
}

func (m *Manager) verify(k kind, raw string) (Claims, error) {
	if raw == "" {
		return Claims{}, ErrInvalidToken
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}
	if len(m.audience) > 0 {
		opts = append(opts, jwt.WithAudience(m.audience...))
	}

	var claims jwt.RegisteredClaims
	tok, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}

		return k.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, fmt.Errorf("%w: %w", ErrInvalidToken, ErrExpired)
		}

		return Claims{}, ErrInvalidToken
	}

	if !tok.Valid || claims.ExpiresAt == nil || claims.IssuedAt == nil {
		return Claims{}, ErrInvalidToken
	}

	uid, err := uuid.Parse(claims.Subject)
	if err != nil || uid == uuid.Nil {
		return Claims{}, ErrInvalidToken
	}

	return Claims{
		UserID:    uid,
		ID:        claims.ID,
		IssuedAt:  claims.IssuedAt.Time.UTC(),
		ExpiresAt: claims.ExpiresAt.Time.UTC(),
	}, nil
}
