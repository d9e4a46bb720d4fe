package common

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusFromError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"validation", fmt.Errorf("source is empty: %w", ErrValidation), http.StatusBadRequest},
		{"bad request", ErrBadRequest, http.StatusBadRequest},
		{"not found", fmt.Errorf("session x: %w", ErrNotFound), http.StatusNotFound},
		{"in flight", ErrSubmissionInFlight, http.StatusConflict},
		{"judge", fmt.Errorf("dial: %w", ErrJudgeUnavailable), http.StatusServiceUnavailable},
		{"persistence", fmt.Errorf("quota: %w", ErrPersistence), http.StatusInternalServerError},
		{"pg overload", &pgconn.PgError{Code: "53300"}, http.StatusServiceUnavailable},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, HTTPStatusFromError(tc.err))
		})
	}
}

func TestRespondWithDomainError(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondWithDomainError(rec, fmt.Errorf("source is empty: %w", ErrValidation))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"source is empty: validation failed"}`, rec.Body.String())
}
