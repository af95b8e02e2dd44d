package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/pribylovaa/videotube-accounts/internal/credential"
	"github.com/pribylovaa/videotube-accounts/internal/models"
	logctx "github.com/pribylovaa/videotube-accounts/internal/pkg/log"
	"github.com/pribylovaa/videotube-accounts/internal/pkg/redact"
	"github.com/pribylovaa/videotube-accounts/internal/storage"
)

// Username попадает в путь /c/{username}, поэтому набор символов ограничен.
var usernameRe = regexp.MustCompile(`^[a-z0-9._-]{3,30}$`)

// RegisterInput — входные данные регистрации. Все поля обязательны.
type RegisterInput struct {
	Username string
	Email    string
	FullName string
	Password string
}

// UpdateAccountInput — изменяемые поля аккаунта. Оба поля обязательны.
type UpdateAccountInput struct {
	FullName string
	Email    string
}

// Register создаёт пользователя и возвращает его публичное представление.
// Сессия при регистрации не открывается: клиент выполняет Login отдельно.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.PublicUser, error) {
	const op = "service.accounts.Register"

	username := normalize(in.Username)
	fullName := strings.TrimSpace(in.FullName)
	if username == "" || fullName == "" || strings.TrimSpace(in.Email) == "" || strings.TrimSpace(in.Password) == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrMissingFields)
	}

	email, err := validateEmail(in.Email)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !usernameRe.MatchString(username) {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidUsername)
	}

	if err := validatePassword(in.Password); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	_, err = s.storage.UserByUsernameOrEmail(ctx, username, email)
	if err == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrUserExists)
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	hash, err := s.hasher.Resolve(credential.PasswordChange{Plaintext: in.Password, Changing: true}, "")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	now := s.now()
	user := &models.User{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		FullName:     fullName,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.storage.SaveUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return nil, fmt.Errorf("%s: %w", op, ErrUserExists)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	logctx.From(ctx).Info("user_registered",
		"user_id", user.ID.String(),
		"email", redact.Email(email),
	)

	pub := user.Public()
	return &pub, nil
}

// UpdateAccount обновляет имя и e-mail. Занятый e-mail — ErrUserExists.
func (s *Service) UpdateAccount(ctx context.Context, userID uuid.UUID, in UpdateAccountInput) (*models.PublicUser, error) {
	const op = "service.accounts.UpdateAccount"

	fullName := strings.TrimSpace(in.FullName)
	if fullName == "" || strings.TrimSpace(in.Email) == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrMissingFields)
	}

	email, err := validateEmail(in.Email)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user, err := s.storage.UpdateUserFields(ctx, userID, models.UserFields{
		FullName: &fullName,
		Email:    &email,
	})
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrAlreadyExists):
			return nil, fmt.Errorf("%s: %w", op, ErrUserExists)
		case errors.Is(err, storage.ErrNotFound):
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		default:
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	s.invalidate(ctx, userID)

	pub := user.Public()
	return &pub, nil
}

// normalize приводит username/email к виду, в котором они хранятся.
func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// validateEmail проверяет базовый формат email и возвращает нормализованное значение.
func validateEmail(raw string) (string, error) {
	const op = "service.accounts.validateEmail"

	email := strings.TrimSpace(raw)
	if email == "" {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidEmail)
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidEmail)
	}

	return strings.ToLower(email), nil
}

// validatePassword проверяет минимальные требования к паролю.
// Политика: длина >= 8, хотя бы одна строчная, заглавная, цифра и спецсимвол.
func validatePassword(pw string) error {
	const op = "service.accounts.validatePassword"

	if len([]rune(pw)) < 8 {
		return fmt.Errorf("%s: %w", op, ErrWeakPassword)
	}

	var hasLower, hasUpper, hasDigit, hasSpecial bool
	for _, r := range pw {
		switch {
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSpecial = true
		}
	}

	if !(hasLower && hasUpper && hasDigit && hasSpecial) {
		return fmt.Errorf("%s: %w", op, ErrWeakPassword)
	}

	return nil
}
