package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	apperrors "trade-journal/internal/errors"
)

// Meta contains response metadata.
type Meta struct {
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// SuccessResponse is the standard success response format.
type SuccessResponse struct {
	Data any  `json:"data"`
	Meta Meta `json:"meta"`
}

// ErrorDetail contains error information.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// errorMapping ties a sentinel to its HTTP status and public code.
var errorMapping = []struct {
	err    error
	status int
	code   string
}{
	{apperrors.ErrUnknownPreset, http.StatusBadRequest, "UNKNOWN_PRESET"},
	{apperrors.ErrUnknownDimension, http.StatusBadRequest, "UNKNOWN_DIMENSION"},
	{apperrors.ErrUnknownScorer, http.StatusBadRequest, "UNKNOWN_SCORER"},
	{apperrors.ErrInputValidation, http.StatusBadRequest, "INVALID_INPUT"},
	{apperrors.ErrAccountNotFound, http.StatusNotFound, "ACCOUNT_NOT_FOUND"},
	{apperrors.ErrTradeNotFound, http.StatusNotFound, "TRADE_NOT_FOUND"},
	{apperrors.ErrRateLimited, http.StatusTooManyRequests, "RATE_LIMITED"},
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// JSON writes a success response with data.
func JSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	writeJSON(w, status, SuccessResponse{
		Data: data,
		Meta: Meta{Timestamp: time.Now().UTC(), RequestID: requestID(r)},
	})
}

// Error writes an error response. Known domain errors keep their message;
// anything else is reported as an internal error.
func Error(w http.ResponseWriter, err error) {
	for _, m := range errorMapping {
		if errors.Is(err, m.err) {
			writeJSON(w, m.status, ErrorResponse{Error: ErrorDetail{Code: m.code, Message: err.Error()}})
			return
		}
	}
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: ErrorDetail{
		Code:    "INTERNAL_ERROR",
		Message: "an internal error occurred",
	}})
}

// statusOf returns the status Error would write for err.
func statusOf(err error) int {
	for _, m := range errorMapping {
		if errors.Is(err, m.err) {
			return m.status
		}
	}
	return http.StatusInternalServerError
}
