package booking

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"roombooking-service/internal/apperr"
	"roombooking-service/internal/locale"
	"roombooking-service/internal/workinghours"
)

// Field bounds in characters.
const (
	MaxRoomLength    = 100
	MinSubjectLength = 3
	MaxSubjectLength = 255
	MaxNotesLength   = 1000
)

var (
	datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	timePattern = regexp.MustCompile(`^([0-1]?[0-9]|2[0-3]):[0-5][0-9]$`)
)

// Request is a booking as submitted by a user. Times are HH:MM on Date
// (YYYY-MM-DD) in the service time zone.
type Request struct {
	Room      string `json:"room"`
	Date      string `json:"date"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Subject   string `json:"subject"`
	Notes     string `json:"notes"`
}

// Principal is the authenticated user a call is made for. AccessToken is
// the user's delegated calendar credential.
type Principal struct {
	Address     string
	Name        string
	AccessToken string
}

// slot is a validated date and time range. Text fields of the enclosing
// request are HTML-escaped.
type slot struct {
	date  time.Time
	start time.Time
	end   time.Time
	// seconds since midnight
	startSec int
	endSec   int
}

type validRequest struct {
	room    string
	subject string
	notes   string
	slot
}

func validateRequest(req Request, loc *time.Location, m locale.Messages) (validRequest, error) {
	room, err := cleanText(req.Room, m.FieldRoom, 1, MaxRoomLength, false, m)
	if err != nil {
		return validRequest{}, err
	}
	s, err := parseSlot(req.Date, req.StartTime, req.EndTime, loc, m)
	if err != nil {
		return validRequest{}, err
	}
	subject, err := cleanText(req.Subject, m.FieldSubject, MinSubjectLength, MaxSubjectLength, false, m)
	if err != nil {
		return validRequest{}, err
	}
	notes, err := cleanText(req.Notes, m.FieldNotes, 0, MaxNotesLength, true, m)
	if err != nil {
		return validRequest{}, err
	}
	if err := s.check(m); err != nil {
		return validRequest{}, err
	}
	return validRequest{room: room, subject: subject, notes: notes, slot: s}, nil
}

// check rejects empty and inverted ranges.
func (s slot) check(m locale.Messages) error {
	if s.endSec <= s.startSec {
		return apperr.Invalid("endTime", m.EndBeforeStart)
	}
	return nil
}

// parseSlot checks the date and both times.
func parseSlot(date, start, end string, loc *time.Location, m locale.Messages) (slot, error) {
	day, err := parseDate(date, loc, m)
	if err != nil {
		return slot{}, err
	}
	startSec, err := parseTime(start, m)
	if err != nil {
		return slot{}, err
	}
	endSec, err := parseTime(end, m)
	if err != nil {
		return slot{}, err
	}
	return slot{
		date:     day,
		start:    atClock(day, startSec),
		end:      atClock(day, endSec),
		startSec: startSec,
		endSec:   endSec,
	}, nil
}

// atClock builds the wall clock time secs after midnight of day.
func atClock(day time.Time, secs int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), secs/3600, (secs%3600)/60, secs%60, 0, day.Location())
}

// cleanText trims value, enforces its length in characters and escapes it
// for HTML.
func cleanText(value, field string, min, max int, allowEmpty bool, m locale.Messages) (string, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		if allowEmpty {
			return "", nil
		}
		return "", apperr.Invalid(field, fmt.Sprintf(m.Empty, field))
	}
	n := utf8.RuneCountInString(v)
	if n > max {
		return "", apperr.Invalid(field, fmt.Sprintf(m.TooLong, field, max))
	}
	if n < min {
		return "", apperr.Invalid(field, fmt.Sprintf(m.TooShort, field, min))
	}
	return html.EscapeString(v), nil
}

func parseDate(s string, loc *time.Location, m locale.Messages) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, apperr.Invalid("date", fmt.Sprintf(m.Required, m.FieldDate))
	}
	if !datePattern.MatchString(s) {
		return time.Time{}, apperr.Invalid("date", m.DateFormat)
	}
	d, err := time.ParseInLocation("2006-01-02", s, loc)
	if err != nil {
		return time.Time{}, apperr.Invalid("date", m.DateValue)
	}
	return d, nil
}

func parseTime(s string, m locale.Messages) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, apperr.Invalid("time", fmt.Sprintf(m.Required, m.FieldTime))
	}
	if !timePattern.MatchString(s) {
		return 0, apperr.Invalid("time", m.TimeFormat)
	}
	secs, err := workinghours.ParseClock(s)
	if err != nil {
		return 0, apperr.Invalid("time", m.TimeFormat)
	}
	return secs, nil
}
