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

// История просмотров лежит в отдельной таблице и в models.User не подгружается:
// её читает только WatchHistory.
const userColumns = `
	id, username, email, full_name,
	avatar_url, avatar_key, cover_image_url, cover_image_key,
	password_hash, refresh_token_hash, created_at, updated_at
`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.FullName,
		&u.AvatarURL,
		&u.AvatarKey,
		&u.CoverImageURL,
		&u.CoverImageKey,
		&u.PasswordHash,
		&u.RefreshTokenHash,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()

	return &u, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

// SaveUser создает нового пользователя в БД.
func (s *Storage) SaveUser(ctx context.Context, user *models.User) error {
	const op = "storage.postgres.SaveUser"

	query := `
		INSERT INTO users(id, username, email, full_name,
			avatar_url, avatar_key, cover_image_url, cover_image_key,
			password_hash, refresh_token_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := s.db.Exec(ctx, query,
		user.ID,
		user.Username,
		user.Email,
		user.FullName,
		user.AvatarURL,
		user.AvatarKey,
		user.CoverImageURL,
		user.CoverImageKey,
		user.PasswordHash,
		user.RefreshTokenHash,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// UserByID находит пользователя по ID.
func (s *Storage) UserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	const op = "storage.postgres.UserByID"

	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	u, err := scanUser(s.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return u, nil
}

// UserByUsernameOrEmail находит пользователя по username или email.
// Пустая строка в аргументе не совпадает ни с одной записью.
func (s *Storage) UserByUsernameOrEmail(ctx context.Context, username, email string) (*models.User, error) {
	const op = "storage.postgres.UserByUsernameOrEmail"

	query := `SELECT ` + userColumns + ` FROM users
		WHERE ($1 <> '' AND username = $1) OR ($2 <> '' AND email = $2)
		LIMIT 1`

	u, err := scanUser(s.db.QueryRow(ctx, query, username, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return u, nil
}

// UpdateUserFields обновляет заданные поля: NULL-параметр оставляет значение колонки.
func (s *Storage) UpdateUserFields(ctx context.Context, id uuid.UUID, f models.UserFields) (*models.User, error) {
	const op = "storage.postgres.UpdateUserFields"

	query := `
		UPDATE users SET
			full_name       = COALESCE($2, full_name),
			email           = COALESCE($3, email),
			avatar_url      = COALESCE($4, avatar_url),
			avatar_key      = COALESCE($5, avatar_key),
			cover_image_url = COALESCE($6, cover_image_url),
			cover_image_key = COALESCE($7, cover_image_key),
			password_hash   = COALESCE($8, password_hash),
			updated_at      = $9
		WHERE id = $1
		RETURNING ` + userColumns

	u, err := scanUser(s.db.QueryRow(ctx, query,
		id,
		f.FullName,
		f.Email,
		f.AvatarURL,
		f.AvatarKey,
		f.CoverImageURL,
		f.CoverImageKey,
		f.PasswordHash,
		time.Now().UTC(),
	))
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		case isUniqueViolation(err):
			return nil, fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return u, nil
}

// SetRefreshToken безусловно записывает хэш refresh-токена.
func (s *Storage) SetRefreshToken(ctx context.Context, id uuid.UUID, hash string) error {
	const op = "storage.postgres.SetRefreshToken"

	cmdTag, err := s.db.Exec(ctx, `UPDATE users SET refresh_token_hash = $2 WHERE id = $1`, id, hash)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

// SwapRefreshToken заменяет хэш, только если сохранён expected.
// Возвращает:
//
//	(true, nil)  — значение совпало и заменено;
//	(false, nil) — пользователь есть, но сохранено другое значение;
//	(false, ErrNotFound) — пользователя нет.
func (s *Storage) SwapRefreshToken(ctx context.Context, id uuid.UUID, expected, next string) (bool, error) {
	const op = "storage.postgres.SwapRefreshToken"

	const upd = `
		UPDATE users
		SET refresh_token_hash = $3
		WHERE id = $1 AND refresh_token_hash = $2 AND $2 <> ''
	`

	cmdTag, err := s.db.Exec(ctx, upd, id, expected, next)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	if cmdTag.RowsAffected() == 1 {
		return true, nil
	}

	var exists bool
	if err := s.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	if !exists {
		return false, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return false, nil
}
