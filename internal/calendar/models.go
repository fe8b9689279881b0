package calendar

import (
	"strings"
	"time"
)

// Room is a bookable resource with its own calendar.
type Room struct {
	ID          string       `json:"id"`
	DisplayName string       `json:"displayName"`
	Address     string       `json:"emailAddress"`
	Delegates   []Permission `json:"delegates,omitempty"`
}

// Show-as values as reported by the provider.
const (
	ShowAsBusy      = "busy"
	ShowAsTentative = "tentative"
	ShowAsFree      = "free"
)

// Room response values.
const (
	ResponseNone      = "none"
	ResponseAccepted  = "accepted"
	ResponseDeclined  = "declined"
	ResponseTentative = "tentative"
)

// Participant is an addressable identity (organizer, attendee, principal).
type Participant struct {
	Address string `json:"address"`
	Name    string `json:"name"`
}

// Attendee is one entry of an event's attendee list.
type Attendee struct {
	Participant
	Type     string `json:"type"`
	Response string `json:"response"`
}

// Event is the provider record of a calendar entry. Missing provider fields
// resolve to zero values; ShowAs defaults to busy and Response to none.
type Event struct {
	ID          string      `json:"id"`
	Subject     string      `json:"subject"`
	Body        string      `json:"body,omitempty"`
	Start       time.Time   `json:"start"`
	End         time.Time   `json:"end"`
	ShowAs      string      `json:"showAs"`
	IsCancelled bool        `json:"isCancelled"`
	IsOrganizer bool        `json:"isOrganizer"`
	Organizer   Participant `json:"organizer"`
	Location    string      `json:"location,omitempty"`
	Sensitivity string      `json:"sensitivity,omitempty"`
	Response    string      `json:"response"`
	Attendees   []Attendee  `json:"attendees,omitempty"`
	WebLink     string      `json:"webLink,omitempty"`
}

// NewEvent is the payload for creating an event.
type NewEvent struct {
	Subject           string
	HTMLBody          string
	Start             time.Time
	End               time.Time
	Location          string
	Room              Participant
	ShowAs            string
	ResponseRequested bool
}

// EventPatch lists the fields to change. Nil fields are left untouched.
type EventPatch struct {
	Subject  *string
	HTMLBody *string
	Start    *time.Time
	End      *time.Time
	ShowAs   *string
}

// Permission is one entry of a calendar's sharing list.
type Permission struct {
	Address string `json:"email"`
	Name    string `json:"name"`
	Role    string `json:"role"`
}

// Actor is the identity a mutating call is issued as. AccessToken is the
// principal's delegated provider credential.
type Actor struct {
	Participant
	AccessToken string
}

// Window is a half open time range [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// DayWindow spans the whole calendar day of t in loc.
func DayWindow(t time.Time, loc *time.Location) Window {
	local := t.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return Window{Start: start, End: start.AddDate(0, 0, 1)}
}

// WorkingHours is the weekly availability rule of a room.
type WorkingHours struct {
	TimeZone  TimeZone   `json:"timeZone"`
	TimeSlots []TimeSlot `json:"timeSlots"`
}

// TimeZone names the zone the slots are expressed in.
type TimeZone struct {
	Name string `json:"name"`
}

// TimeSlot permits bookings between StartTime and EndTime (HH:MM:SS) on the
// listed weekdays. EndTime may be the 24:00:00 end-of-day sentinel.
type TimeSlot struct {
	DaysOfWeek []string `json:"daysOfWeek"`
	StartTime  string   `json:"startTime"`
	EndTime    string   `json:"endTime"`
}

// DefaultTimeZone is used when a stored rule omits its zone.
const DefaultTimeZone = "W. Europe Standard Time"

// SameAddress compares two mailbox addresses case-insensitively. Empty
// addresses never match.
func SameAddress(a, b string) bool {
	a = strings.TrimSpace(a)
	return a != "" && strings.EqualFold(a, strings.TrimSpace(b))
}
