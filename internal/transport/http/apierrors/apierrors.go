// apierrors стандартизирует ответы об ошибках HTTP-слоя accounts-service.
// На вход он принимает ошибку сервисного слоя (сентинелы пакета service),
// а на выход даёт:
//   - корректный HTTP-статус;
//   - стабильный машиночитаемый code;
//   - безопасное message без утечки деталей (текст сентинела).
//
// Любая ошибка, не распознанная таблицей, становится 500/internal:
// детали (ошибки БД, S3 и т.п.) остаются только в логах.
package apierrors

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	logctx "github.com/pribylovaa/videotube-accounts/internal/pkg/log"
	"github.com/pribylovaa/videotube-accounts/internal/service"
)

// Нестандартный код часто используемый для "клиент закрыл соединение".
const StatusClientClosedRequest = 499

// Стабильные коды для фронта.
const (
	CodeValidation        = "validation_error"
	CodeConflict          = "conflict"
	CodeUnauthorized      = "unauthorized"
	CodeInvalidToken      = "invalid_token"
	CodeTokenReuse        = "token_reuse"
	CodeInvalidCredential = "invalid_credential"
	CodeNotFound          = "not_found"
	CodeUnavailable       = "unavailable"
	CodeCanceled          = "canceled"
	CodeDeadlineExceeded  = "deadline_exceeded"
	CodeInternal          = "internal"
)

// ErrBadRequest — тело запроса не разбирается (битый JSON, лишние поля).
var ErrBadRequest = errors.New("invalid request body")

// APIError — единый формат для фронта.
// Code — короткий стабильный код для машиночитаемой обработки на FE.
// Message — безопасное человекочитаемое описание.
// RequestID — id запроса из контекста (его кладёт middleware.RequestID).
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorResponse — корневой объект в ответе.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

type requestIDKey struct{}

// WithRequestID кладёт id запроса в контекст.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID возвращает id запроса ("" если его нет).
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

type mapping struct {
	target error
	status int
	code   string
}

// table — порядок важен только для читаемости: сентинелы не оборачивают друг друга.
var table = []mapping{
	{ErrBadRequest, http.StatusBadRequest, CodeValidation},
	{service.ErrMissingFields, http.StatusBadRequest, CodeValidation},
	{service.ErrInvalidEmail, http.StatusBadRequest, CodeValidation},
	{service.ErrInvalidUsername, http.StatusBadRequest, CodeValidation},
	{service.ErrWeakPassword, http.StatusBadRequest, CodeValidation},
	{service.ErrInvalidArgument, http.StatusBadRequest, CodeValidation},
	{service.ErrSelfSubscription, http.StatusBadRequest, CodeValidation},
	{service.ErrMediaNotUploaded, http.StatusBadRequest, CodeValidation},

	{service.ErrUserExists, http.StatusConflict, CodeConflict},

	{service.ErrUnauthorized, http.StatusUnauthorized, CodeUnauthorized},
	{service.ErrInvalidRefreshToken, http.StatusUnauthorized, CodeInvalidToken},
	{service.ErrInvalidAccessToken, http.StatusUnauthorized, CodeInvalidToken},
	{service.ErrRefreshTokenReused, http.StatusUnauthorized, CodeTokenReuse},
	{service.ErrInvalidCredentials, http.StatusUnauthorized, CodeInvalidCredential},
	{service.ErrInvalidOldPassword, http.StatusBadRequest, CodeInvalidCredential},

	{service.ErrNotFound, http.StatusNotFound, CodeNotFound},
	{service.ErrChannelNotFound, http.StatusNotFound, CodeNotFound},

	{service.ErrMediaUnavailable, http.StatusServiceUnavailable, CodeUnavailable},
}

// ToHTTP конвертирует ошибку сервиса в HTTP-статус и унифицированный ответ.
//
// Поведение:
//   - err == nil — программная ошибка вызова: 500/internal, чтобы не послать
//     "200 OK" с телом ошибки и не маскировать баг;
//   - сентинел из таблицы — его статус, код и текст;
//   - context.Canceled — 499, context.DeadlineExceeded — 504;
//   - прочее — 500/internal.
func ToHTTP(err error) (int, ErrorResponse) {
	if err == nil {
		return internal()
	}

	for _, m := range table {
		if errors.Is(err, m.target) {
			return m.status, ErrorResponse{Error: APIError{Code: m.code, Message: m.target.Error()}}
		}
	}

	switch {
	case errors.Is(err, context.Canceled):
		return StatusClientClosedRequest, ErrorResponse{Error: APIError{Code: CodeCanceled, Message: "canceled"}}
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, ErrorResponse{Error: APIError{Code: CodeDeadlineExceeded, Message: "deadline exceeded"}}
	}

	return internal()
}

// WriteError — хелпер для HTTP-хендлеров.
// Пишет статус/тело, добавляет request_id из контекста, логирует 5xx с деталями.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := ToHTTP(err)
	resp.Error.RequestID = RequestID(r.Context())

	if status >= http.StatusInternalServerError {
		logctx.From(r.Context()).Error("request_failed",
			"path", r.URL.Path,
			"status", status,
			"err", err,
		)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

func internal() (int, ErrorResponse) {
	return http.StatusInternalServerError, ErrorResponse{
		Error: APIError{
			Code:    CodeInternal,
			Message: "internal error",
		},
	}
}
