package common

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
)

type ErrorResponse struct {
	Error      string   `json:"error"`
	RetryAfter *float64 `json:"retry_after,omitempty"`
}

func RespondWithError(w http.ResponseWriter, code int, message string) {
	RespondWithJSON(w, code, ErrorResponse{Error: message})
}

// RespondWithDomainError picks the status from the error and adds a Retry-After hint for cooldowns.
func RespondWithDomainError(w http.ResponseWriter, err error) {
	var cd *CooldownError
	if errors.As(err, &cd) {
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(cd.RetryAfter))))
		retry := cd.RetryAfter
		RespondWithJSON(w, http.StatusTooManyRequests, ErrorResponse{Error: err.Error(), RetryAfter: &retry})
		return
	}
	status := HTTPStatusFromError(err)
	if status == http.StatusInternalServerError {
		// Store details stay in the logs.
		RespondWithError(w, status, "internal server error")
		return
	}
	RespondWithError(w, status, err.Error())
}

func RespondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Failed to marshal JSON response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
