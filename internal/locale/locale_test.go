package locale

import (
	"testing"
	"time"
)

func TestLookup(t *testing.T) {
	cases := map[string]string{"nl": "nl", " NL-nl ": "nl", "dutch": "nl", "en": "en", "": "en", "fr": "en"}
	for in, want := range cases {
		if got := Lookup(in).Lang; got != want {
			t.Fatalf("Lookup(%q): expected %s, got %s", in, want, got)
		}
	}
}

func TestBusyLabel(t *testing.T) {
	if got := Dutch.BusyLabel("Jan"); got != "Bezet (Jan)" {
		t.Fatalf("unexpected label %q", got)
	}
	if got := English.BusyLabel(" "); got != "Busy" {
		t.Fatalf("unexpected label %q", got)
	}
}

func TestWeekday(t *testing.T) {
	if got := Dutch.Weekday(time.Monday); got != "maandag" {
		t.Fatalf("expected maandag, got %q", got)
	}
	if got := English.Weekday(time.Sunday); got != "sunday" {
		t.Fatalf("expected sunday, got %q", got)
	}
}

func TestTablesAreComplete(t *testing.T) {
	for _, m := range []Messages{English, Dutch} {
		for name, v := range map[string]string{
			"RoomNotFound":     m.RoomNotFound,
			"OutsideHours":     m.OutsideHours,
			"SubjectRequest":   m.SubjectRequest,
			"SubjectCancelled": m.SubjectCancelled,
			"Mail.Footer":      m.Mail.Footer,
			"Mail.Approve":     m.Mail.Approve,
		} {
			if v == "" {
				t.Fatalf("%s: %s is empty", m.Lang, name)
			}
		}
	}
}
