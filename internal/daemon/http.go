package daemon

import (
	"encoding/json"
	"net/http"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeServiceError renders an error response. The kind travels in the body
// so CLI clients can branch on it without parsing the message text.
func writeServiceError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	message := err.Error()
	kind := ServiceErrorUnavailable
	if svcErr, ok := err.(*ServiceError); ok {
		kind = svcErr.Kind
		if svcErr.Message != "" {
			message = svcErr.Message
		}
	}
	writeJSON(w, statusForKind(kind), map[string]string{
		"error": message,
		"kind":  string(kind),
	})
}

func statusForKind(kind ServiceErrorKind) int {
	switch kind {
	case ServiceErrorInvalid:
		return http.StatusBadRequest
	case ServiceErrorNotFound:
		return http.StatusNotFound
	case ServiceErrorUnauthorized:
		return http.StatusUnauthorized
	case ServiceErrorConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
