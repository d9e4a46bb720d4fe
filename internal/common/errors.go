package common

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound       = errors.New("requested resource not found")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// ErrValidation rejects a request before any judge interaction happens.
	ErrValidation = errors.New("validation failed")
	// ErrJudgeUnavailable covers transport failures, timeouts and replies that break the judge contract.
	ErrJudgeUnavailable = errors.New("judge unavailable")
	// ErrPersistence is non-fatal: editing and submitting continue without the draft backend.
	ErrPersistence = errors.New("draft persistence failed")

	ErrSubmissionInFlight = errors.New("a submission is already in progress for this session")
	ErrLockFailed         = errors.New("failed to acquire judge lock")
)

// HTTPStatusFromError maps domain errors to HTTP status codes.
func HTTPStatusFromError(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrBadRequest) || errors.Is(err, ErrValidation) {
		return http.StatusBadRequest
	}
	if errors.Is(err, ErrSubmissionInFlight) || errors.Is(err, ErrLockFailed) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrJudgeUnavailable) {
		return http.StatusServiceUnavailable
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == "53300" { // too_many_connections
			return http.StatusServiceUnavailable
		}
	}

	return http.StatusInternalServerError
}

// Errorf creates a new error with formatting, useful for wrapping.
func Errorf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}
