package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatusFromError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"api error", NewAPIError("teapot", http.StatusTeapot), http.StatusTeapot},
		{"wrapped offer not found", fmt.Errorf("get offer: %w", ErrOfferNotFound), http.StatusNotFound},
		{"token expired", ErrTokenExpired, http.StatusUnauthorized},
		{"forbidden", ErrForbidden, http.StatusForbidden},
		{"closed offer", ErrOfferClosed, http.StatusConflict},
		{"invalid transition", fmt.Errorf("%w: sent -> sent", ErrInvalidTransition), http.StatusConflict},
		{"too large", ErrAttachmentTooLarge, http.StatusRequestEntityTooLarge},
		{"rate limited", ErrRateLimited, http.StatusTooManyRequests},
		{"empty message", ErrEmptyMessage, http.StatusBadRequest},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatusFromError(tt.err); got != tt.want {
				t.Errorf("HTTPStatusFromError() = %d, want %d", got, tt.want)
			}
		})
	}
}
