package httpx

import (
	"bytes"
	"encoding/json"
	"mime"
	"net/http"
	"strings"

	apperrors "github.com/target/municipal-portal/internal/errors"
)

// WriteJSON encodes v before touching the response so an encoding failure
// still produces a clean 500.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = buf.WriteTo(w)
}

type errorBody struct {
	Error   apperrors.ErrorCode `json:"error"`
	Message string              `json:"message"`
	Field   string              `json:"field,omitempty"`
}

// WriteError writes err as {"error": code, "message": ...} with the status
// its code maps to. Errors outside the taxonomy are reported as internal
// without leaking their text.
func WriteError(w http.ResponseWriter, err error) {
	code := apperrors.GetCode(err)
	body := errorBody{Error: code, Message: apperrors.Message(err), Field: apperrors.GetField(err)}
	if code == "" {
		body = errorBody{Error: apperrors.ErrCodeInternal, Message: msgUnexpected}
	}
	WriteJSON(w, statusForCode(body.Error), body)
}

func statusForCode(code apperrors.ErrorCode) int {
	switch code {
	case apperrors.ErrCodeNetwork:
		return http.StatusBadGateway
	case apperrors.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case apperrors.ErrCodeForbidden:
		return http.StatusForbidden
	case apperrors.ErrCodeNotFound:
		return http.StatusNotFound
	case apperrors.ErrCodeValidation, apperrors.ErrCodeConflict:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// wantsJSON reports whether a non-htmx caller asked for JSON first.
func wantsJSON(r *http.Request) bool {
	if IsHTMX(r) {
		return false
	}
	for _, part := range strings.Split(r.Header.Get("Accept"), ",") {
		mt, _, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		return mt == "application/json"
	}
	return false
}
