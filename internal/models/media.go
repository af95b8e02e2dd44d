package models

import "time"

// MediaKind — вид изображения профиля.
type MediaKind string

const (
	MediaAvatar MediaKind = "avatar"
	MediaCover  MediaKind = "cover"
)

// Valid сообщает, что вид медиа поддерживается.
func (k MediaKind) Valid() bool {
	return k == MediaAvatar || k == MediaCover
}

// UploadInfo — информация для клиента о presigned PUT загрузке.
//   - UploadURL: конечная URL для PUT-запроса.
//   - Key: ключ (путь) будущего объекта в бакете.
//   - Expires: время жизни подписи.
//   - RequiredHeader: заголовки, которые клиент ОБЯЗАН передать при PUT.
type UploadInfo struct {
	UploadURL      string
	Key            string
	Expires        time.Duration
	RequiredHeader map[string]string
}
