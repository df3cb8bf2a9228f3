package apierror

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"
)

type ErrorCode string

const (
	ErrNotFound       ErrorCode = "NOT_FOUND"
	ErrConflict       ErrorCode = "CONFLICT"
	ErrBadRequest     ErrorCode = "BAD_REQUEST"
	ErrInvalidInput   ErrorCode = "INVALID_INPUT"
	ErrInternalServer ErrorCode = "INTERNAL_SERVER_ERROR"
)

type APIError struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// Response is the body rendered to API callers.
type Response struct {
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

func (e APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause so sentinels survive the API mapping.
func (e APIError) Unwrap() error {
	if err, ok := e.Details.(error); ok {
		return err
	}
	return nil
}

func NewAPIError(code ErrorCode, message string, details interface{}) APIError {
	if code == ErrInternalServer {
		logrus.Error(details)
	} else {
		logrus.Debug(details)
	}
	return APIError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// NewDetailedValidationError builds an INVALID_INPUT error carrying a list of
// human readable details.
func NewDetailedValidationError(message string, details ...string) APIError {
	return APIError{
		Code:    ErrInvalidInput,
		Message: message,
		Details: details,
	}
}

// Is reports whether err is, or wraps, an APIError with the given code.
func Is(err error, code ErrorCode) bool {
	var apiErr APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == code
	}
	return false
}

func MapErrorToHTTPStatus(err error) int {
	var apiErr APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case ErrNotFound:
			return http.StatusNotFound
		case ErrConflict:
			return http.StatusConflict
		case ErrInvalidInput, ErrBadRequest:
			return http.StatusBadRequest
		case ErrInternalServer:
			return http.StatusInternalServerError
		default:
			return http.StatusInternalServerError
		}
	}
	return http.StatusInternalServerError
}

// ToResponse renders err for an API caller. Internal details never leave the process.
func ToResponse(err error) Response {
	var apiErr APIError
	if !errors.As(err, &apiErr) {
		return Response{Message: "Internal server error"}
	}
	resp := Response{Message: apiErr.Message}
	if apiErr.Code == ErrInternalServer {
		return resp
	}
	switch d := apiErr.Details.(type) {
	case []string:
		resp.Details = d
	case string:
		if d != "" {
			resp.Details = []string{d}
		}
	}
	return resp
}
