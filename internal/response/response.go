// Package response writes the JSON envelope every endpoint answers with.
package response

import (
	"encoding/json"
	"net/http"

	"github.com/sbilibin2017/gw-user-accounts/internal/apperrors"
	"github.com/sbilibin2017/gw-user-accounts/internal/logger"
)

// Envelope is the body of a successful response.
// swagger:model Envelope
type Envelope struct {
	StatusCode int    `json:"statusCode" example:"200"`
	Data       any    `json:"data"`
	Message    string `json:"message" example:"Success"`
	Success    bool   `json:"success" example:"true"`
}

// ErrorEnvelope is the body of a failed response.
// swagger:model ErrorEnvelope
type ErrorEnvelope struct {
	StatusCode int      `json:"statusCode" example:"401"`
	Message    string   `json:"message" example:"invalid refresh token"`
	Success    bool     `json:"success" example:"false"`
	Errors     []string `json:"errors"`
}

// JSON writes data wrapped in a success envelope.
func JSON(w http.ResponseWriter, status int, data any, message string) {
	write(w, status, Envelope{
		StatusCode: status,
		Data:       data,
		Message:    message,
		Success:    status < http.StatusBadRequest,
	})
}

// Error maps err to its status code and writes an error envelope.
// Internal causes are logged, never sent.
func Error(w http.ResponseWriter, err error) {
	status := apperrors.Code(err)
	if status >= http.StatusInternalServerError {
		logger.Log.Errorw("internal server error", "err", err)
	}

	fields := apperrors.Fields(err)
	if fields == nil {
		fields = []string{}
	}

	write(w, status, ErrorEnvelope{
		StatusCode: status,
		Message:    apperrors.Message(err),
		Success:    false,
		Errors:     fields,
	})
}

func write(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Log.Errorw("failed to encode response", "err", err)
	}
}
