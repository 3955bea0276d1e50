package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestGetServiceError(t *testing.T) {
	base := Unauthorized("")

	tests := []struct {
		name string
		err  error
		want *ServiceError
	}{
		{"direct", base, base},
		{"wrapped", fmt.Errorf("fetch members: %w", base), base},
		{"plain error", errors.New("boom"), nil},
		{"nil", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetServiceError(tt.err); got != tt.want {
				t.Errorf("GetServiceError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsUnauthorized(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"unauthorized", Unauthorized(""), true},
		{"invalid token", InvalidToken(errors.New("expired")), true},
		{"invalid credentials", InvalidCredentials(""), false},
		{"upstream", Upstream(http.StatusBadGateway, ""), false},
		{"internal", Internal("", nil), false},
		{"wrapped unauthorized", fmt.Errorf("load: %w", Unauthorized("")), true},
		{"plain error", errors.New("boom"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUnauthorized(tt.err); got != tt.want {
				t.Errorf("IsUnauthorized() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestServiceError_Defaults(t *testing.T) {
	if got := Unauthorized("").Message; got != "Authentication required" {
		t.Errorf("Unauthorized message = %q", got)
	}
	if got := InvalidCredentials("").Message; got != "Invalid email or password" {
		t.Errorf("InvalidCredentials message = %q", got)
	}
	if got := Unauthorized("").HTTPStatus; got != http.StatusUnauthorized {
		t.Errorf("Unauthorized status = %d", got)
	}
	if got := RateLimitExceeded(5, "1s").HTTPStatus; got != http.StatusTooManyRequests {
		t.Errorf("RateLimitExceeded status = %d", got)
	}
}

func TestServiceError_WithDetails(t *testing.T) {
	err := InvalidToken(errors.New("bad segment")).
		WithDetails("stage", "parse").
		WithDetails("length", 12)

	if err.Details["stage"] != "parse" || err.Details["length"] != 12 {
		t.Errorf("Details = %v", err.Details)
	}
}

func TestServiceError_Unwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := Internal("Failed to persist credential", cause)
	if !errors.Is(err, cause) {
		t.Error("Internal should wrap its cause")
	}
}
