package api

import (
	"errors"
	"net/http"

	"matching-core/internal/book"
	"matching-core/internal/engine"
	"matching-core/internal/projection"
)

// ErrorCode represents unified API error codes
type ErrorCode string

const (
	ErrorCodeInvalidArgument  ErrorCode = "INVALID_ARGUMENT"
	ErrorCodeBookNotFound     ErrorCode = "BOOK_NOT_FOUND"
	ErrorCodeEntryNotFound    ErrorCode = "ENTRY_NOT_FOUND"
	ErrorCodeDuplicateRequest ErrorCode = "DUPLICATE_REQUEST"
	ErrorCodeConflict         ErrorCode = "CONFLICT"
	ErrorCodeUnavailable      ErrorCode = "UNAVAILABLE"
	ErrorCodeInternalError    ErrorCode = "INTERNAL_ERROR"
)

// MapErrorToHTTP maps errors to HTTP status codes and error responses
func MapErrorToHTTP(err error) (int, ErrorResponse) {
	if err == nil {
		return http.StatusOK, ErrorResponse{}
	}

	switch {
	case errors.Is(err, book.ErrBooksNotFound):
		return http.StatusNotFound, ErrorResponse{
			Code:    string(ErrorCodeBookNotFound),
			Message: err.Error(),
		}

	case errors.Is(err, projection.ErrEntryNotFound):
		return http.StatusNotFound, ErrorResponse{
			Code:    string(ErrorCodeEntryNotFound),
			Message: err.Error(),
		}

	case errors.Is(err, projection.ErrInvalidArgument):
		return http.StatusBadRequest, ErrorResponse{
			Code:    string(ErrorCodeInvalidArgument),
			Message: err.Error(),
		}

	case errors.Is(err, engine.ErrBookExists), errors.Is(err, engine.ErrStaleAggregate):
		return http.StatusConflict, ErrorResponse{
			Code:    string(ErrorCodeConflict),
			Message: err.Error(),
		}

	case errors.Is(err, engine.ErrShardStopped):
		return http.StatusServiceUnavailable, ErrorResponse{
			Code:    string(ErrorCodeUnavailable),
			Message: err.Error(),
		}
	}

	// Default to internal error
	return http.StatusInternalServerError, ErrorResponse{
		Code:    string(ErrorCodeInternalError),
		Message: err.Error(),
	}
}

// MapEngineErrorToHTTP maps engine error codes to HTTP status codes and error responses
func MapEngineErrorToHTTP(errorCode engine.ErrorCode, err error) (int, ErrorResponse) {
	switch errorCode {
	case engine.ErrorCodeNone:
		return http.StatusOK, ErrorResponse{}

	case engine.ErrorCodeInvalidArgument:
		return http.StatusBadRequest, ErrorResponse{
			Code:    string(ErrorCodeInvalidArgument),
			Message: getErrorMessage(err, "invalid argument"),
		}

	case engine.ErrorCodeBookNotFound:
		return http.StatusNotFound, ErrorResponse{
			Code:    string(ErrorCodeBookNotFound),
			Message: getErrorMessage(err, "book not found"),
		}

	case engine.ErrorCodeDuplicateRequest:
		return http.StatusConflict, ErrorResponse{
			Code:    string(ErrorCodeDuplicateRequest),
			Message: getErrorMessage(err, "duplicate request with different payload"),
		}

	case engine.ErrorCodeConflict:
		return http.StatusConflict, ErrorResponse{
			Code:    string(ErrorCodeConflict),
			Message: getErrorMessage(err, "conflicting concurrent update"),
		}

	case engine.ErrorCodeUnavailable:
		return http.StatusServiceUnavailable, ErrorResponse{
			Code:    string(ErrorCodeUnavailable),
			Message: getErrorMessage(err, "service unavailable"),
		}

	default:
		return http.StatusInternalServerError, ErrorResponse{
			Code:    string(ErrorCodeInternalError),
			Message: getErrorMessage(err, "internal error"),
		}
	}
}

func getErrorMessage(err error, defaultMsg string) string {
	if err != nil {
		return err.Error()
	}
	return defaultMsg
}
