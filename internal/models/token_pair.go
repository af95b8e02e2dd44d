package models

import "time"

// TokenPair — пара токенов, выдаваемая при входе и при ротации.
//
// Описание:
//   - AccessToken — короткоживущий JWT для доступа к API, в хранилище не сверяется;
//   - RefreshToken — долгоживущий JWT для выпуска новой пары; действителен,
//     только пока его хэш совпадает с сохранённым у пользователя;
//   - *ExpiresAt — моменты истечения токенов (UTC).
type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// Session — результат успешного входа или ротации.
type Session struct {
	User   PublicUser
	Tokens TokenPair
}
