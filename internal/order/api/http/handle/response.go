package handle

import (
	"encoding/json"
	"errors"
	"net/http"

	"room-service/internal/order/app/core"
)

var errInternal = errors.New("internal error, see server logs")

// jsonResponse writes data as a JSON-encoded HTTP response with the given status code.
func jsonResponse(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if data == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(data)
}

// jsonError writes an error response as JSON with the specified HTTP status code.
func jsonError(w http.ResponseWriter, code int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": err.Error(),
		"code":  code,
	})
}

// serviceError maps a service failure to its HTTP status. Unexpected errors
// are reported without details.
func serviceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrValidation):
		jsonError(w, http.StatusBadRequest, err)
	case errors.Is(err, core.ErrUnauthorized):
		jsonError(w, http.StatusUnauthorized, err)
	case errors.Is(err, core.ErrOrderNotFound):
		jsonError(w, http.StatusNotFound, core.ErrOrderNotFound)
	case errors.Is(err, core.ErrOrderNumberTaken), errors.Is(err, core.ErrInvalidTransition):
		jsonError(w, http.StatusConflict, err)
	default:
		jsonError(w, http.StatusInternalServerError, errInternal)
	}
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.New("failed to parse JSON")
	}
	return nil
}
