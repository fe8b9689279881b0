// Package locale holds user facing message tables.
package locale

import (
	"fmt"
	"strings"
	"time"
)

// Messages is one language's table. Format verbs are documented on the
// fields that take arguments.
type Messages struct {
	Lang string

	Weekdays [7]string // indexed by time.Weekday

	Busy          string
	BusyBy        string // %s organizer name
	PrivateHidden string

	WeekdayUnavailable string // %s weekday name
	OutsideHours       string // %s comma joined slot list

	FieldRoom    string
	FieldSubject string
	FieldNotes   string
	FieldDate    string
	FieldTime    string

	Required       string // %s field
	Empty          string // %s field
	TooLong        string // %s field, %d max
	TooShort       string // %s field, %d min
	DateFormat     string
	DateValue      string
	TimeFormat     string
	EndBeforeStart string
	RoomNotFound   string // %s room
	RoomAmbiguous  string // %s room
	NotPending     string

	StatusApproved string
	StatusPending  string

	SubjectRequest   string // %s room, %s status
	SubjectApproved  string // %s room
	SubjectRejected  string // %s room
	SubjectCancelled string // %s room

	Mail MailLabels
}

// MailLabels are the fixed texts of the notification emails.
type MailLabels struct {
	Room      string
	Date      string
	Time      string
	Subject   string
	Requester string
	Name      string
	Email     string
	Notes     string
	Start     string
	End       string

	RequestHeading   string
	AutoApproved     string
	AutoApprovedText string
	Pending          string
	PendingText      string
	Approve          string
	Reject           string
	CancelHint       string
	CancelLink       string

	ApprovedHeading  string
	ApprovedText     string
	RejectedHeading  string
	RejectedText     string
	CancelledHeading string
	CancelledText    string
	DecidedBy        string
	ContactHint      string

	Footer string
}

var English = Messages{
	Lang:     "en",
	Weekdays: [7]string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"},

	Busy:          "Busy",
	BusyBy:        "Busy (%s)",
	PrivateHidden: "Private — subject hidden",

	WeekdayUnavailable: "This room is not available on %s.",
	OutsideHours:       "Booking must be within working hours: %s",

	FieldRoom:    "Room",
	FieldSubject: "Subject",
	FieldNotes:   "Notes",
	FieldDate:    "Date",
	FieldTime:    "Time",

	Required:       "%s is required",
	Empty:          "%s cannot be empty",
	TooLong:        "%s is too long (max %d characters)",
	TooShort:       "%s is too short (min %d characters)",
	DateFormat:     "Invalid date format (use YYYY-MM-DD)",
	DateValue:      "Invalid date value",
	TimeFormat:     "Invalid time format (use HH:MM)",
	EndBeforeStart: "End time must be after start time",
	RoomNotFound:   "Room '%s' not found.",
	RoomAmbiguous:  "Room name '%s' matches more than one room.",
	NotPending:     "This booking is not awaiting approval.",

	StatusApproved: "approved and confirmed",
	StatusPending:  "received and awaiting approval",

	SubjectRequest:   "Meeting room %s - %s",
	SubjectApproved:  "Meeting room approved - %s",
	SubjectRejected:  "Meeting room rejected - %s",
	SubjectCancelled: "Meeting room booking cancelled - %s",

	Mail: MailLabels{
		Room:      "Room",
		Date:      "Date",
		Time:      "Time",
		Subject:   "Subject",
		Requester: "Requester",
		Name:      "Name",
		Email:     "Email",
		Notes:     "Notes",
		Start:     "Start",
		End:       "End",

		RequestHeading:   "Meeting room request",
		AutoApproved:     "Approved automatically",
		AutoApprovedText: "This booking was confirmed immediately under the booking rules.",
		Pending:          "Awaiting approval",
		PendingText:      "The room is tentatively reserved in the calendar.",
		Approve:          "Approve",
		Reject:           "Reject",
		CancelHint:       "For the requester: to cancel this request,",
		CancelLink:       "click here",

		ApprovedHeading:  "Meeting room request approved",
		ApprovedText:     "Your request has been approved. The booking is confirmed.",
		RejectedHeading:  "Meeting room request rejected",
		RejectedText:     "Your request has not been approved.",
		CancelledHeading: "Meeting room booking cancelled",
		CancelledText:    "The booking has been cancelled.",
		DecidedBy:        "Handled by",
		ContactHint:      "Contact the room manager for more information or try another time or room.",

		Footer: "This message was generated automatically by the meeting room system.",
	},
}

var Dutch = Messages{
	Lang:     "nl",
	Weekdays: [7]string{"zondag", "maandag", "dinsdag", "woensdag", "donderdag", "vrijdag", "zaterdag"},

	Busy:          "Bezet",
	BusyBy:        "Bezet (%s)",
	PrivateHidden: "Privé (onderwerp verborgen)",

	WeekdayUnavailable: "Deze ruimte is niet beschikbaar op %s.",
	OutsideHours:       "Boeking moet binnen werkuren zijn: %s",

	FieldRoom:    "Ruimte",
	FieldSubject: "Onderwerp",
	FieldNotes:   "Opmerking",
	FieldDate:    "Datum",
	FieldTime:    "Tijd",

	Required:       "%s is verplicht",
	Empty:          "%s mag niet leeg zijn",
	TooLong:        "%s is te lang (max %d tekens)",
	TooShort:       "%s is te kort (min %d tekens)",
	DateFormat:     "Ongeldige datumnotatie (gebruik JJJJ-MM-DD)",
	DateValue:      "Ongeldige datum",
	TimeFormat:     "Ongeldige tijdnotatie (gebruik UU:MM)",
	EndBeforeStart: "Eindtijd moet na starttijd zijn",
	RoomNotFound:   "Ruimte '%s' niet gevonden.",
	RoomAmbiguous:  "Ruimtenaam '%s' komt overeen met meerdere ruimtes.",
	NotPending:     "Deze boeking wacht niet op goedkeuring.",

	StatusApproved: "goedgekeurd en bevestigd",
	StatusPending:  "ontvangen en wacht op goedkeuring",

	SubjectRequest:   "Vergaderruimte %s - %s",
	SubjectApproved:  "Vergaderruimte goedgekeurd - %s",
	SubjectRejected:  "Vergaderruimte afgewezen - %s",
	SubjectCancelled: "Vergaderruimte geannuleerd - %s",

	Mail: MailLabels{
		Room:      "Ruimte",
		Date:      "Datum",
		Time:      "Tijd",
		Subject:   "Onderwerp",
		Requester: "Aanvrager",
		Name:      "Naam",
		Email:     "Email",
		Notes:     "Opmerking",
		Start:     "Start",
		End:       "Eind",

		RequestHeading:   "Vergaderruimte Aanvraag",
		AutoApproved:     "Automatisch goedgekeurd",
		AutoApprovedText: "Deze reservering is direct bevestigd op basis van de boekingsregels.",
		Pending:          "Wacht op goedkeuring",
		PendingText:      "De ruimte is voorlopig gereserveerd (tentative) in de agenda.",
		Approve:          "Goedkeuren",
		Reject:           "Afwijzen",
		CancelHint:       "Voor de aanvrager: om deze aanvraag te annuleren,",
		CancelLink:       "klik hier",

		ApprovedHeading:  "Vergaderruimte Aanvraag Goedgekeurd",
		ApprovedText:     "Uw aanvraag is goedgekeurd! De reservering is bevestigd.",
		RejectedHeading:  "Vergaderruimte Aanvraag Afgewezen",
		RejectedText:     "Uw aanvraag is afgewezen. De reservering is niet goedgekeurd.",
		CancelledHeading: "Vergadering Geannuleerd",
		CancelledText:    "De reservering is geannuleerd.",
		DecidedBy:        "Afgehandeld door",
		ContactHint:      "Neem contact op met de ruimtebeheerder voor meer informatie of probeer een andere tijd/ruimte te reserveren.",

		Footer: "Dit bericht is automatisch gegenereerd via het vergaderruimte systeem.",
	},
}

// Lookup returns the table for lang, falling back to English.
func Lookup(lang string) Messages {
	switch strings.ToLower(strings.TrimSpace(lang)) {
	case "nl", "nl-nl", "dutch":
		return Dutch
	}
	return English
}

// Weekday returns the localized name of d.
func (m Messages) Weekday(d time.Weekday) string {
	return m.Weekdays[d]
}

// BusyLabel renders the busy placeholder for organizer, or the bare busy
// label when the organizer is unknown.
func (m Messages) BusyLabel(organizer string) string {
	if strings.TrimSpace(organizer) == "" {
		return m.Busy
	}
	return fmt.Sprintf(m.BusyBy, organizer)
}
