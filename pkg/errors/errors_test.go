package errors

import (
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"app error wins", New(ErrInvalidInput, http.StatusTeapot, "x"), http.StatusTeapot},
		{"language", fmt.Errorf("loading: %w", ErrLanguageNotFound), http.StatusNotFound},
		{"session", ErrSessionNotFound, http.StatusNotFound},
		{"stale", fmt.Errorf("gen 3: %w", ErrStaleQuery), http.StatusConflict},
		{"input", ErrInvalidInput, http.StatusBadRequest},
		{"corpus", ErrCorpusUnavailable, http.StatusServiceUnavailable},
		{"timeout", ErrTimeout, http.StatusServiceUnavailable},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatusCode(tt.err); got != tt.want {
				t.Errorf("HTTPStatusCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestAppErrorUnwrap(t *testing.T) {
	err := Newf(ErrLanguageNotFound, http.StatusNotFound, "no corpus for %q", "xx")
	if !Is(err, ErrLanguageNotFound) {
		t.Fatal("AppError should unwrap to its sentinel")
	}
	if got := err.Error(); got != `language not found: no corpus for "xx"` {
		t.Errorf("Error() = %q", got)
	}
}
