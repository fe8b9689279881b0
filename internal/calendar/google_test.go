package calendar

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"roombooking-service/internal/apperr"
)

func newTestGoogle(t *testing.T, handler http.HandlerFunc) *GoogleGateway {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	gw, err := NewGoogleGateway(context.Background(), srv.Client(), GoogleConfig{
		Rooms:    []Room{{ID: "r1", DisplayName: "Kantine", Address: "kantine@example.org"}},
		TimeZone: "Europe/Amsterdam",
		Endpoint: srv.URL + "/",
	})
	if err != nil {
		t.Fatalf("new gateway: %v", err)
	}
	return gw
}

func TestGoogleListEventsMapsFields(t *testing.T) {
	gw := newTestGoogle(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/events") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("singleEvents") != "true" {
			t.Errorf("expected singleEvents=true")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"items":[{
			"id":"g1","summary":"Standup","status":"tentative","visibility":"private",
			"start":{"dateTime":"2025-11-19T09:00:00+01:00"},"end":{"dateTime":"2025-11-19T09:15:00+01:00"},
			"organizer":{"email":"kantine@example.org"},
			"attendees":[{"email":"kantine@example.org","resource":true,"responseStatus":"needsAction"}]
		}]}`)
	})

	events, err := gw.ListEvents(context.Background(), "kantine@example.org", Window{}, nil)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	ev := events[0]
	if ev.ShowAs != ShowAsTentative || ev.Sensitivity != "private" || !ev.IsOrganizer {
		t.Fatalf("unexpected mapping %+v", ev)
	}
	if ev.Start.Hour() != 9 || ev.Start.Location().String() != "Europe/Amsterdam" {
		t.Fatalf("expected start in configured zone, got %v", ev.Start)
	}
	if len(ev.Attendees) != 1 || ev.Attendees[0].Type != "resource" || ev.Attendees[0].Response != ResponseNone {
		t.Fatalf("unexpected attendees %+v", ev.Attendees)
	}
}

func TestGoogleAclMapsRoles(t *testing.T) {
	gw := newTestGoogle(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"items":[
			{"role":"owner","scope":{"type":"user","value":"boss@example.org"}},
			{"role":"writer","scope":{"type":"user","value":"desk@example.org"}},
			{"role":"reader","scope":{"type":"default"}}
		]}`)
	})

	perms, err := gw.ListPermissions(context.Background(), "kantine@example.org")
	if err != nil {
		t.Fatalf("list permissions: %v", err)
	}
	delegates := Delegates(perms)
	if len(delegates) != 2 || delegates[1].Role != "write" {
		t.Fatalf("unexpected delegates %+v", delegates)
	}
}

func TestGoogleErrorsMapToTaxonomy(t *testing.T) {
	gw := newTestGoogle(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":{"code":404,"message":"Not Found"}}`)
	})

	if _, err := gw.GetEvent(context.Background(), "kantine@example.org", "missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	wh, err := gw.GetWorkingHours(context.Background(), "kantine@example.org")
	if err != nil || wh != nil {
		t.Fatalf("expected no working hours, got %+v, %v", wh, err)
	}
	rooms, _ := gw.ListRooms(context.Background())
	if len(rooms) != 1 || rooms[0].DisplayName != "Kantine" {
		t.Fatalf("expected configured rooms, got %+v", rooms)
	}
}
