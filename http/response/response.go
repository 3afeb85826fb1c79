package response

import (
	"encoding/json"
	"net/http"

	apperrors "online-admission/errors"
	"online-admission/logger"
)

// StandardResponse represents the standard API response structure
type StandardResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Kind    string      `json:"kind,omitempty"`
}

// SuccessResponse sends a success response with given status code, message, and data
func SuccessResponse(w http.ResponseWriter, statusCode int, message string, data interface{}) {
	response := StandardResponse{
		Status:  "success",
		Message: message,
		Data:    data,
	}
	SendJSON(w, statusCode, response)
}

// ErrorResponse sends an error response with given status code and error message
func ErrorResponse(w http.ResponseWriter, statusCode int, errorMsg string) {
	response := StandardResponse{
		Status: "error",
		Error:  errorMsg,
	}
	SendJSON(w, statusCode, response)
}

// FromError responds with the status code of err's kind. Unclassified
// errors are logged and reported as a generic internal error.
func FromError(w http.ResponseWriter, err error) {
	FromErrorWithData(w, err, nil)
}

// FromErrorWithData is FromError with a data payload, used to report
// partial progress alongside the failure.
func FromErrorWithData(w http.ResponseWriter, err error, data interface{}) {
	kind := apperrors.KindOf(err)
	msg := apperrors.MessageOf(err)
	if kind == apperrors.Other {
		logger.Error("Unhandled error: %v", err)
		msg = "internal server error"
	}
	SendJSON(w, kind.HTTPStatus(), StandardResponse{
		Status: "error",
		Error:  msg,
		Kind:   kind.String(),
		Data:   data,
	})
}

// SendJSON encodes and sends a JSON response
func SendJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("Error encoding JSON response: %v", err)
	}
}
