package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestSafeMessageAndCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantMsg  string
	}{
		{"validation", NewValidation("month must be 1-12"), http.StatusUnprocessableEntity, "month must be 1-12"},
		{"upstream", NewBadGateway(errors.New("dial tcp: refused")), http.StatusBadGateway, "The rental service did not respond correctly. Please try again."},
		{"plain error", errors.New("sql: table timeline_preferences missing"), http.StatusInternalServerError, "an unexpected error occurred"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SafeCode(tt.err); got != tt.wantCode {
				t.Errorf("SafeCode = %d, want %d", got, tt.wantCode)
			}
			if got := SafeMessage(tt.err); got != tt.wantMsg {
				t.Errorf("SafeMessage = %q, want %q", got, tt.wantMsg)
			}
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := fmt.Errorf("listing fleets: %w", NewBadGateway(cause))

	if !errors.Is(err, cause) {
		t.Error("expected the upstream cause to be reachable")
	}
	var appErr *AppError
	if !errors.As(err, &appErr) || appErr.Code != http.StatusBadGateway {
		t.Errorf("expected a wrapped 502, got %v", err)
	}
}
