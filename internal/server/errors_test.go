package server

import (
	"errors"
	"net/http"
	"testing"

	billdomain "github.com/smallbiznis/opsdesk/internal/bill/domain"
	clientdomain "github.com/smallbiznis/opsdesk/internal/client/domain"
	staffdomain "github.com/smallbiznis/opsdesk/internal/staff/domain"
	ticketdomain "github.com/smallbiznis/opsdesk/internal/ticket/domain"
	"github.com/stretchr/testify/assert"
)

func TestMapErrorStatuses(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"validation ticket subject", ticketdomain.ErrInvalidSubject, http.StatusBadRequest},
		{"validation bill tax", billdomain.ErrInvalidTax, http.StatusBadRequest},
		{"validation missing items", billdomain.ErrNoItems, http.StatusBadRequest},
		{"ticket not found", ticketdomain.ErrNotFound, http.StatusNotFound},
		{"bill not found", billdomain.ErrNotFound, http.StatusNotFound},
		{"client not found", clientdomain.ErrNotFound, http.StatusNotFound},
		{"staff not found", staffdomain.ErrNotFound, http.StatusNotFound},
		{"gate refused", ticketdomain.ErrNotResolved, http.StatusConflict},
		{"already billed", ticketdomain.ErrAlreadyBilled, http.StatusConflict},
		{"bill completed", billdomain.ErrCompleted, http.StatusConflict},
		{"unauthorized", ErrUnauthorized, http.StatusUnauthorized},
		{"forbidden", ErrForbidden, http.StatusForbidden},
		{"rate limited", ErrRateLimited, http.StatusTooManyRequests},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, _ := mapError(tc.err)
			assert.Equal(t, tc.status, status)
		})
	}
}

func TestMapErrorValidationPayload(t *testing.T) {
	status, payload := mapError(newValidationError("staff_id", "invalid_staff_id", "staff_id is required"))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "validation_error", payload.Type)
	if assert.Len(t, payload.Errors, 1) {
		assert.Equal(t, "staff_id", payload.Errors[0].Field)
		assert.Equal(t, "invalid_staff_id", payload.Errors[0].Code)
	}
}

func TestClassifyErrorForLog(t *testing.T) {
	errType, code := classifyErrorForLog(ticketdomain.ErrInvalidSubject)
	assert.Equal(t, "validation_error", errType)
	assert.Equal(t, "invalid_subject", code)

	errType, code = classifyErrorForLog(errors.New("boom"))
	assert.Equal(t, "server_error", errType)
	assert.Equal(t, "internal_error", code)
}
