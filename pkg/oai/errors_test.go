package oai

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestTransportError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *TransportError
		contains []string
	}{
		{
			name: "status error",
			err: &TransportError{
				URL:        "http://example.org/oai",
				StatusCode: 503,
				ErrorClass: ErrorClassServer,
				Message:    "503 Service Unavailable",
			},
			contains: []string{"server", "503", "http://example.org/oai"},
		},
		{
			name: "network error with cause",
			err: &TransportError{
				URL:        "http://example.org/oai",
				ErrorClass: ErrorClassNetwork,
				Message:    "request failed",
				Err:        errors.New("connection refused"),
			},
			contains: []string{"network", "request failed", "connection refused"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, want := range tt.contains {
				if !strings.Contains(msg, want) {
					t.Errorf("Error() = %q, want it to contain %q", msg, want)
				}
			}
		})
	}
}

func TestTransportError_Unwrap(t *testing.T) {
	cause := errors.New("dial tcp: timeout")
	err := fmt.Errorf("fetch page: %w", &TransportError{ErrorClass: ErrorClassNetwork, Err: cause})

	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}

	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatal("errors.As should find the TransportError")
	}
	if te.ErrorClass != ErrorClassNetwork {
		t.Errorf("ErrorClass = %s, want network", te.ErrorClass)
	}
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorClass
	}{
		{400, ErrorClassClient},
		{404, ErrorClassClient},
		{429, ErrorClassClient},
		{500, ErrorClassServer},
		{503, ErrorClassServer},
		{304, ErrorClassClient},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			if got := classifyStatus(tt.status); got != tt.want {
				t.Errorf("classifyStatus(%d) = %s, want %s", tt.status, got, tt.want)
			}
		})
	}
}
