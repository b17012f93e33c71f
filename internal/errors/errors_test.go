package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusFromErr(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"unauthenticated", NewError("no token").Mark(ErrUnauthenticated), http.StatusUnauthorized},
		{"permission", NewError("cashier").Mark(ErrPermissionDenied), http.StatusForbidden},
		{"argument", NewError("amount").Mark(ErrInvalidArgument), http.StatusBadRequest},
		{"not found", NewError("counter").Mark(ErrNotFound), http.StatusNotFound},
		{"state", NewError("approved").Mark(ErrInvalidState), http.StatusConflict},
		{"conflict", NewError("race").Mark(ErrConflict), http.StatusConflict},
		{"unavailable", NewError("down").Mark(ErrUnavailable), http.StatusServiceUnavailable},
		{"wrapped", fmt.Errorf("approve: %w", NewError("counter").Mark(ErrNotFound)), http.StatusNotFound},
		{"plain", fmt.Errorf("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatusFromErr(tt.err))
		})
	}
}

func TestDisplayMessagePrefersHint(t *testing.T) {
	err := NewError("order 42 status approved").
		WithHint("Order is no longer pending").
		Mark(ErrInvalidState)

	assert.Equal(t, "Order is no longer pending", DisplayMessage(err))
	assert.True(t, IsInvalidState(err))
	assert.False(t, IsConflict(err))
}

func TestWithErrorKeepsCause(t *testing.T) {
	cause := fmt.Errorf("driver: connection reset")
	err := WithError(cause).WithMessage("load order").Mark(ErrInternal)

	assert.True(t, Is(err, ErrInternal))
	assert.False(t, IsConflict(err))
	assert.Contains(t, err.Error(), "connection reset")
	assert.Equal(t, "", DisplayMessage(nil))
}

func TestReportableDetails(t *testing.T) {
	cause := NewError("disk full").Mark(ErrInternal)
	err := WithError(cause).
		WithReportableDetails(map[string]any{"order_id": "o-1", "line": 2}).
		Error()
	err = fmt.Errorf("approve: %w", err)

	details := ReportableDetails(err)
	assert.Equal(t, "o-1", details["order_id"])
	assert.Equal(t, float64(2), details["line"])
	assert.True(t, Is(err, ErrInternal))
	assert.Empty(t, ReportableDetails(cause))
}
