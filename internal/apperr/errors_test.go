package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestFromStatus(t *testing.T) {
	cases := []struct {
		status int
		kind   string
		http   int
	}{
		{http.StatusUnauthorized, "authentication_required", http.StatusUnauthorized},
		{http.StatusForbidden, "forbidden", http.StatusForbidden},
		{http.StatusNotFound, "not_found", http.StatusNotFound},
		{http.StatusInternalServerError, "remote_service", http.StatusBadGateway},
		{http.StatusTooManyRequests, "remote_service", http.StatusBadGateway},
	}
	for _, tc := range cases {
		err := FromStatus("list events", tc.status, "body")
		if got := Kind(err); got != tc.kind {
			t.Fatalf("status %d: expected kind %s, got %s", tc.status, tc.kind, got)
		}
		if got := HTTPStatus(err); got != tc.http {
			t.Fatalf("status %d: expected http %d, got %d", tc.status, tc.http, got)
		}
	}
}

func TestRemoteServiceErrorKeepsDiagnostics(t *testing.T) {
	err := fmt.Errorf("create event: %w", FromStatus("create event", 503, "unavailable"))
	var rErr *RemoteServiceError
	if !errors.As(err, &rErr) {
		t.Fatalf("expected RemoteServiceError, got %T", err)
	}
	if rErr.Status != 503 || rErr.Body != "unavailable" {
		t.Fatalf("unexpected diagnostics %+v", rErr)
	}
}

func TestValidationMessagePassesThrough(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", Invalid("subject", "subject is too short"))
	if Message(err) != "subject is too short" {
		t.Fatalf("expected validation message, got %q", Message(err))
	}
	if HTTPStatus(err) != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", HTTPStatus(err))
	}
	if Kind(errors.New("boom")) != "internal" {
		t.Fatalf("expected internal kind for plain errors")
	}
}

func TestWithMessageKeepsKind(t *testing.T) {
	err := fmt.Errorf("request booking: %w", WithMessage(fmt.Errorf("room %q: %w", "Zolder", ErrNotFound), "Ruimte 'Zolder' niet gevonden."))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound to survive wrapping")
	}
	if HTTPStatus(err) != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", HTTPStatus(err))
	}
	if Message(err) != "Ruimte 'Zolder' niet gevonden." {
		t.Fatalf("unexpected message %q", Message(err))
	}
}
