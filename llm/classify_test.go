package llm

import (
	"net/http"
	"testing"
)

func TestClassifyHTTPError(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(error) bool
		kind   string
	}{
		{"429 is quota", http.StatusTooManyRequests, IsQuota, "quota"},
		{"503 is transient", http.StatusServiceUnavailable, IsTransient, "transient"},
		{"502 is transient", http.StatusBadGateway, IsTransient, "transient"},
		{"500 is transient", http.StatusInternalServerError, IsTransient, "transient"},
		{"401 is fatal", http.StatusUnauthorized, IsFatal, "fatal"},
		{"403 is fatal", http.StatusForbidden, IsFatal, "fatal"},
		{"400 is fatal", http.StatusBadRequest, IsFatal, "fatal"},
		{"418 defaults to fatal", http.StatusTeapot, IsFatal, "fatal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ClassifyHTTPError(tt.status, []byte("details"))
			if err == nil {
				t.Fatal("expected an error")
			}
			if !tt.check(err) {
				t.Errorf("status %d: expected %s kind, got %v", tt.status, tt.kind, err)
			}
		})
	}
}
