package handlers

import (
	"time"

	"github.com/pribylovaa/videotube-accounts/internal/models"
)

// Входные/выходные модели REST.

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

type updateAccountRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
}

type presignRequest struct {
	ContentType   string `json:"content_type"`
	ContentLength int64  `json:"content_length"`
}

type confirmRequest struct {
	Key string `json:"key"`
}

type sessionResponse struct {
	User             models.PublicUser `json:"user"`
	AccessToken      string            `json:"access_token"`
	AccessExpiresAt  time.Time         `json:"access_expires_at"`
	RefreshToken     string            `json:"refresh_token"`
	RefreshExpiresAt time.Time         `json:"refresh_expires_at"`
}

func sessionFromModel(s *models.Session) sessionResponse {
	return sessionResponse{
		User:             s.User,
		AccessToken:      s.Tokens.AccessToken,
		AccessExpiresAt:  s.Tokens.AccessExpiresAt,
		RefreshToken:     s.Tokens.RefreshToken,
		RefreshExpiresAt: s.Tokens.RefreshExpiresAt,
	}
}

type presignResponse struct {
	UploadURL        string            `json:"upload_url"`
	Key              string            `json:"key"`
	ExpiresInSeconds int64             `json:"expires_in_seconds"`
	RequiredHeaders  map[string]string `json:"required_headers"`
}

func presignFromModel(u *models.UploadInfo) presignResponse {
	return presignResponse{
		UploadURL:        u.UploadURL,
		Key:              u.Key,
		ExpiresInSeconds: int64(u.Expires / time.Second),
		RequiredHeaders:  u.RequiredHeader,
	}
}

type historyResponse struct {
	Items []models.WatchedVideo `json:"items"`
}
