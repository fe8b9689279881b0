package workinghours

import (
	"fmt"
	"strings"
	"time"

	"roombooking-service/internal/calendar"
	"roombooking-service/internal/locale"
)

// Decision is the outcome of Check. Message is localized and set only when
// the booking is refused.
type Decision struct {
	Allowed bool
	Message string
}

// Check tests whether [start, end) on date lies entirely inside one slot
// covering that weekday. start and end are seconds since midnight. A nil
// rule or a rule without slots allows everything, as does a slot that
// cannot be parsed.
func Check(rule *calendar.WorkingHours, date time.Time, start, end int, msgs locale.Messages) Decision {
	if rule == nil || len(rule.TimeSlots) == 0 {
		return Decision{Allowed: true}
	}

	weekday := date.Weekday()
	dayName := strings.ToLower(weekday.String())
	type span struct{ start, end int }
	var daySlots []span
	for _, slot := range rule.TimeSlots {
		if !coversDay(slot, dayName) {
			continue
		}
		s, err := ParseClock(slot.StartTime)
		if err != nil {
			return Decision{Allowed: true}
		}
		e, err := ParseClock(slot.EndTime)
		if err != nil {
			return Decision{Allowed: true}
		}
		daySlots = append(daySlots, span{s, e})
	}

	if len(daySlots) == 0 {
		return Decision{Message: fmt.Sprintf(msgs.WeekdayUnavailable, msgs.Weekday(weekday))}
	}
	for _, s := range daySlots {
		if start >= s.start && end <= s.end {
			return Decision{Allowed: true}
		}
	}

	blocks := make([]string, 0, len(daySlots))
	for _, s := range daySlots {
		blocks = append(blocks, FormatClock(s.start)+"-"+FormatClock(s.end))
	}
	return Decision{Message: fmt.Sprintf(msgs.OutsideHours, strings.Join(blocks, ", "))}
}

func coversDay(slot calendar.TimeSlot, day string) bool {
	for _, d := range slot.DaysOfWeek {
		if strings.EqualFold(strings.TrimSpace(d), day) {
			return true
		}
	}
	return false
}
