package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind классифицирует ошибку бэкенда один раз, при разборе ответа.
type Kind int

const (
	KindOther Kind = iota
	KindConflict
	KindUnauthorized
	KindNotFound
	KindValidation
	KindServer
)

func (k Kind) String() string {
	switch k {
	case KindConflict:
		return "conflict"
	case KindUnauthorized:
		return "unauthorized"
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	case KindServer:
		return "server"
	}
	return "other"
}

// APIError описывает не-2xx ответ бэкенда.
type APIError struct {
	Status  int
	Kind    Kind
	Code    string
	Message string
	Payload json.RawMessage
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend responded %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("backend responded %d", e.Status)
}

var conflictCodes = map[string]struct{}{
	"VERSION_CONFLICT": {},
	"CONFLICT":         {},
	"STALE_VERSION":    {},
}

type errorPayload struct {
	Message string `json:"message"`
	Error   string `json:"error"`
	Code    string `json:"code"`
}

func newAPIError(status int, body []byte) *APIError {
	e := &APIError{Status: status}
	if len(body) > 0 && json.Valid(body) {
		e.Payload = json.RawMessage(body)

		var p errorPayload
		if err := json.Unmarshal(body, &p); err == nil {
			e.Code = p.Code
			e.Message = p.Message
			if e.Message == "" {
				e.Message = p.Error
			}
		}
	} else if len(body) > 0 {
		e.Message = strings.TrimSpace(string(body))
	}
	if e.Message == "" {
		e.Message = http.StatusText(status)
	}

	e.Kind = classify(status, e.Code, e.Message)
	return e
}

func classify(status int, code, message string) Kind {
	if status == http.StatusConflict {
		return KindConflict
	}
	if _, ok := conflictCodes[strings.ToUpper(code)]; ok {
		return KindConflict
	}
	// Старые эндпоинты сообщают о конфликте версий только текстом.
	lower := strings.ToLower(message)
	if strings.Contains(lower, "version") || strings.Contains(lower, "conflict") {
		return KindConflict
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindUnauthorized
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return KindValidation
	case status >= 500:
		return KindServer
	}
	return KindOther
}

// KindOf возвращает класс ошибки бэкенда или KindOther для прочих ошибок.
func KindOf(err error) Kind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindOther
}

// IsConflict сообщает, является ли ошибка конфликтом оптимистичной блокировки.
func IsConflict(err error) bool {
	return KindOf(err) == KindConflict
}
