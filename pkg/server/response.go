package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/NicolasHaas/godata/pkg/datastore"
	"github.com/NicolasHaas/godata/pkg/model"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrBadRequest    = errors.New("bad request")
	ErrAlreadyExists = errors.New("already exists")
)

// validationErrors are reported as 422.
var validationErrors = []error{
	model.ErrUsernameEmpty,
	model.ErrUsernameTooLong,
	model.ErrUsernameInvalidChars,
	model.ErrInvalidRole,
	model.ErrInvalidEmail,
	model.ErrTeamNameEmpty,
	model.ErrTeamNameTooLong,
	model.ErrTeamNotFound,
}

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToStatus(err)
	logRequestError(r, status, err)

	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	writeJSON(w, status, errorResponse{Error: msg, RequestID: RequestIDFrom(r.Context())})
}

func mapErrorToStatus(err error) int {
	for _, v := range validationErrors {
		if errors.Is(err, v) {
			return http.StatusUnprocessableEntity
		}
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrVetoed):
		return http.StatusConflict
	case errors.Is(err, ErrAlreadyExists), datastore.IsUniqueViolation(err):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
