// Package workinghours stores per-room weekly availability rules and checks
// bookings against them.
package workinghours

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"roombooking-service/internal/apperr"
	"roombooking-service/internal/calendar"
)

// EndOfDay is the 24:00:00 sentinel in seconds since midnight.
const EndOfDay = 24 * 60 * 60

var (
	clockFull  = regexp.MustCompile(`^(([0-1][0-9]|2[0-3]):[0-5][0-9]:[0-5][0-9]|24:00:00)$`)
	clockShort = regexp.MustCompile(`^(([0-1][0-9]|2[0-3]):[0-5][0-9]|24:00)$`)
)

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// Default is the rule reported for rooms without a stored one.
func Default() calendar.WorkingHours {
	return calendar.WorkingHours{
		TimeZone:  calendar.TimeZone{Name: calendar.DefaultTimeZone},
		TimeSlots: []calendar.TimeSlot{},
	}
}

// Validate checks rule and returns it with every time normalized to
// HH:MM:SS. Weekday names are lower-cased.
func Validate(rule calendar.WorkingHours) (calendar.WorkingHours, error) {
	out := calendar.WorkingHours{TimeZone: rule.TimeZone, TimeSlots: make([]calendar.TimeSlot, 0, len(rule.TimeSlots))}
	if strings.TrimSpace(out.TimeZone.Name) == "" {
		out.TimeZone.Name = calendar.DefaultTimeZone
	}
	for idx, slot := range rule.TimeSlots {
		if len(slot.DaysOfWeek) == 0 {
			return calendar.WorkingHours{}, apperr.Invalid("timeSlots", fmt.Sprintf("time slot %d missing valid daysOfWeek array", idx))
		}
		days := make([]string, 0, len(slot.DaysOfWeek))
		for _, d := range slot.DaysOfWeek {
			name := strings.ToLower(strings.TrimSpace(d))
			if _, ok := weekdays[name]; !ok {
				return calendar.WorkingHours{}, apperr.Invalid("timeSlots", fmt.Sprintf("invalid day: %s", d))
			}
			days = append(days, name)
		}

		start, ok := normalizeClock(slot.StartTime)
		if !ok || start == "24:00:00" {
			return calendar.WorkingHours{}, apperr.Invalid("timeSlots", fmt.Sprintf("invalid startTime format in slot %d: %s", idx, slot.StartTime))
		}
		end, ok := normalizeClock(slot.EndTime)
		if !ok {
			return calendar.WorkingHours{}, apperr.Invalid("timeSlots", fmt.Sprintf("invalid endTime format in slot %d: %s", idx, slot.EndTime))
		}
		startSec, _ := ParseClock(start)
		endSec, _ := ParseClock(end)
		if startSec >= endSec {
			return calendar.WorkingHours{}, apperr.Invalid("timeSlots", fmt.Sprintf("time slot %d must end after it starts", idx))
		}

		out.TimeSlots = append(out.TimeSlots, calendar.TimeSlot{DaysOfWeek: days, StartTime: start, EndTime: end})
	}
	return out, nil
}

func normalizeClock(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if clockShort.MatchString(s) {
		s += ":00"
	}
	return s, clockFull.MatchString(s)
}

// ParseClock converts H:MM, HH:MM or HH:MM:SS to seconds since midnight.
// 24:00 and 24:00:00 parse to EndOfDay.
func ParseClock(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid time string: %s", s)
	}
	var fields [3]int
	limits := [3]int{24, 59, 59}
	for i, p := range parts {
		// Drop fractional seconds ("09:00:00.0000000").
		if i == 2 {
			p, _, _ = strings.Cut(p, ".")
		}
		if p == "" || len(p) > 2 {
			return 0, fmt.Errorf("invalid time string: %s", s)
		}
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > limits[i] {
			return 0, fmt.Errorf("invalid time string: %s", s)
		}
		fields[i] = n
	}
	secs := fields[0]*3600 + fields[1]*60 + fields[2]
	if secs > EndOfDay {
		return 0, fmt.Errorf("invalid time string: %s", s)
	}
	return secs, nil
}

// FormatClock renders seconds since midnight as HH:MM.
func FormatClock(secs int) string {
	return fmt.Sprintf("%02d:%02d", secs/3600, (secs%3600)/60)
}
