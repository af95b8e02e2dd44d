package middleware

import (
	"net/http"
)

// Middleware — net/http мидлвар в форме, которую принимает chi.Router.Use.
type Middleware func(http.Handler) http.Handler

// responseWriter запоминает статус и размер ответа. Recover и Timeout по нему
// решают, можно ли ещё писать конверт ошибки, Logging берёт из него status/bytes.
type responseWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

// wrap переиспользует уже навешенный responseWriter, чтобы мидлвары одного
// запроса видели одно и то же состояние.
func wrap(w http.ResponseWriter) *responseWriter {
	if rw, ok := w.(*responseWriter); ok {
		return rw
	}

	return &responseWriter{ResponseWriter: w}
}

func (w *responseWriter) WriteHeader(code int) {
	if w.status != 0 {
		return
	}

	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *responseWriter) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.WriteHeader(http.StatusOK)
	}

	n, err := w.ResponseWriter.Write(p)
	w.bytes += n

	return n, err
}

// Unwrap нужен http.ResponseController.
func (w *responseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// written сообщает, что заголовки уже ушли клиенту.
func (w *responseWriter) written() bool {
	return w.status != 0
}

// statusCode — фактический статус; пустой ответ net/http отдаёт как 200.
func (w *responseWriter) statusCode() int {
	if w.status == 0 {
		return http.StatusOK
	}

	return w.status
}
