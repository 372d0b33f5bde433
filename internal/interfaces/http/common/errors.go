package common

import (
	"errors"
	"html/template"
	"log"
	"net/http"

	accountdomain "github.com/sngm3741/wanderlust/api/internal/account/domain"
	"github.com/sngm3741/wanderlust/api/internal/listing/domain"
)

const (
	messageNotFound      = "Page Not Found!"
	messageInternal      = "Something went wrong!"
	messageStoreDown     = "The database is currently unavailable. Please try again shortly."
	messageTooLarge      = "Uploaded file is too large"
	messageUnauthorized  = "You must be logged in"
	messageForbidden     = "You don't have permission to do that"
	messageInvalidFields = "Invalid input"
)

var errorPage = template.Must(template.New("error").Parse(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>Error {{.Status}}</title></head>
<body>
<div class="alert alert-danger" role="alert">
<h4>{{.Status}}</h4>
<p>{{.Message}}</p>
{{range $field, $msg := .Fields}}<p>{{$field}} {{$msg}}</p>{{end}}
</div>
<a href="/listings">Back to listings</a>
</body>
</html>
`))

// HTTPError lets handlers attach an explicit status to an error.
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string { return e.Message }

// NewHTTPError builds an HTTPError.
func NewHTTPError(status int, message string) error {
	return &HTTPError{Status: status, Message: message}
}

// ErrorResponder is the single error boundary for every handler.
// JSON か HTML かは Accept ヘッダで決め、本番環境では内部エラーの詳細を伏せる。
type ErrorResponder struct {
	Logger     *log.Logger
	Production bool
}

type errorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

type errorView struct {
	Status  int
	Message string
	Fields  map[string]string
}

// Respond maps err to a status code and writes the response.
func (e ErrorResponder) Respond(w http.ResponseWriter, r *http.Request, err error) {
	status, message, fields := e.classify(r, err)
	if status >= http.StatusInternalServerError && e.Logger != nil {
		e.Logger.Printf("%s %s: %v", r.Method, r.URL.Path, err)
	}

	if WantsJSON(r) {
		WriteJSON(e.Logger, w, status, errorBody{Error: message, Fields: fields})
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := errorPage.Execute(w, errorView{Status: status, Message: message, Fields: fields}); err != nil && e.Logger != nil {
		e.Logger.Printf("エラーページの描画に失敗: %v", err)
	}
}

// NotFound is the router's fallback handler.
func (e ErrorResponder) NotFound(w http.ResponseWriter, r *http.Request) {
	e.Respond(w, r, NewHTTPError(http.StatusNotFound, messageNotFound))
}

// MethodNotAllowed is the router's 405 handler.
func (e ErrorResponder) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	e.Respond(w, r, NewHTTPError(http.StatusMethodNotAllowed, "Method not allowed"))
}

func (e ErrorResponder) classify(r *http.Request, err error) (int, string, map[string]string) {
	var (
		validation *domain.ValidationError
		httpErr    *HTTPError
		tooLarge   *http.MaxBytesError
	)

	status := http.StatusInternalServerError
	message := err.Error()
	var fields map[string]string

	switch {
	case errors.As(err, &validation):
		status, message, fields = http.StatusBadRequest, messageInvalidFields, validation.Fields
	case errors.As(err, &httpErr):
		status, message = httpErr.Status, httpErr.Message
	case errors.As(err, &tooLarge):
		status, message = http.StatusRequestEntityTooLarge, messageTooLarge
	case errors.Is(err, domain.ErrNotFound):
		status, message = http.StatusNotFound, messageNotFound
	case errors.Is(err, domain.ErrForbidden):
		status, message = http.StatusForbidden, messageForbidden
	case errors.Is(err, accountdomain.ErrInvalidCredentials):
		status = http.StatusUnauthorized
	case errors.Is(err, accountdomain.ErrInvalidToken):
		status, message = http.StatusUnauthorized, messageUnauthorized
	case errors.Is(err, accountdomain.ErrUsernameTaken):
		status = http.StatusConflict
	}

	if status >= http.StatusInternalServerError {
		if state, ok := ConnectionStateFromContext(r.Context()); ok && !state.Connected {
			status, message = http.StatusServiceUnavailable, messageStoreDown
		}
	}

	if e.Production {
		switch {
		case status == http.StatusNotFound:
			message = messageNotFound
		case status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable:
			message = messageInternal
		}
	}
	return status, message, fields
}
