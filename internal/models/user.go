// models содержит доменные сущности accounts-сервиса.
// Эти типы используются слоями бизнес-логики, хранилища и транспорта.
package models

import (
	"time"

	"github.com/google/uuid"
)

// User — учётная запись пользователя (канала).
//
// Важно:
//   - Username/Email хранятся в нормализованном виде (trim + lower) и уникальны;
//   - PasswordHash — bcrypt-хэш, открытый пароль нигде не хранится;
//   - RefreshTokenHash — SHA-256 (base64url) единственного действующего refresh-токена,
//     пустая строка означает «активной сессии нет»;
//   - WatchHistory — идентификаторы просмотренных видео, новые в конце.
type User struct {
	ID               uuid.UUID
	Username         string
	Email            string
	FullName         string
	AvatarURL        string
	AvatarKey        string
	CoverImageURL    string
	CoverImageKey    string
	PasswordHash     string
	RefreshTokenHash string
	WatchHistory     []uuid.UUID
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Public возвращает представление пользователя без секретов.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:            u.ID,
		Username:      u.Username,
		Email:         u.Email,
		FullName:      u.FullName,
		AvatarURL:     u.AvatarURL,
		CoverImageURL: u.CoverImageURL,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

// PublicUser — пользователь в том виде, в каком его можно отдавать наружу.
type PublicUser struct {
	ID            uuid.UUID `json:"id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	FullName      string    `json:"full_name"`
	AvatarURL     string    `json:"avatar_url"`
	CoverImageURL string    `json:"cover_image_url"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// UserFields — частичное обновление записи пользователя.
// nil-поле не трогается; пустая строка в указателе записывается как есть.
type UserFields struct {
	FullName      *string
	Email         *string
	AvatarURL     *string
	AvatarKey     *string
	CoverImageURL *string
	CoverImageKey *string
	PasswordHash  *string
}

// IsEmpty сообщает, что обновлять нечего.
func (f UserFields) IsEmpty() bool {
	return f.FullName == nil && f.Email == nil &&
		f.AvatarURL == nil && f.AvatarKey == nil &&
		f.CoverImageURL == nil && f.CoverImageKey == nil &&
		f.PasswordHash == nil
}
