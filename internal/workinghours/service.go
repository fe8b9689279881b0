package workinghours

import (
	"context"
	"fmt"
	"log/slog"

	"roombooking-service/internal/apperr"
	"roombooking-service/internal/calendar"
	"roombooking-service/internal/logging"
)

// Service exposes working hours administration and the effective rule used
// when validating bookings.
type Service struct {
	store  Store
	gw     calendar.Gateway
	logger *slog.Logger
}

func NewService(store Store, gw calendar.Gateway, logger *slog.Logger) *Service {
	return &Service{store: store, gw: gw, logger: logger}
}

// Get returns the stored rule for the room, or Default when none is stored,
// plus whether actor may edit it. A failed delegate lookup yields
// canEdit=false.
func (s *Service) Get(ctx context.Context, roomAddress, actor string) (calendar.WorkingHours, bool, error) {
	logger := logging.Service(ctx, s.logger, "WorkingHoursService", "Get", "room", roomAddress)

	stored, err := s.store.Get(ctx, roomAddress)
	if err != nil {
		logger.ErrorContext(ctx, "failed to load working hours", "error", err, "error_kind", apperr.Kind(err))
		return calendar.WorkingHours{}, false, err
	}
	rule := Default()
	if stored != nil {
		rule = *stored
		if rule.TimeSlots == nil {
			rule.TimeSlots = []calendar.TimeSlot{}
		}
	}

	canEdit, err := calendar.IsDelegate(ctx, s.gw, roomAddress, actor)
	if err != nil {
		logger.WarnContext(ctx, "delegate lookup failed", "error", err, "error_kind", apperr.Kind(err))
		canEdit = false
	}
	return rule, canEdit, nil
}

// Set validates and stores rule. Only delegates of the room may change it;
// a failed delegate lookup is treated as not a delegate.
func (s *Service) Set(ctx context.Context, roomAddress string, rule calendar.WorkingHours, actor string) (calendar.WorkingHours, error) {
	logger := logging.Service(ctx, s.logger, "WorkingHoursService", "Set", "room", roomAddress)

	ok, err := calendar.IsDelegate(ctx, s.gw, roomAddress, actor)
	if err != nil {
		logger.WarnContext(ctx, "delegate lookup failed", "error", err, "error_kind", apperr.Kind(err))
	}
	if !ok {
		return calendar.WorkingHours{}, fmt.Errorf("set working hours for %s: %w", roomAddress, apperr.ErrForbidden)
	}

	normalized, err := Validate(rule)
	if err != nil {
		return calendar.WorkingHours{}, err
	}
	if err := s.store.Save(ctx, roomAddress, normalized); err != nil {
		logger.ErrorContext(ctx, "failed to save working hours", "error", err, "error_kind", apperr.Kind(err))
		return calendar.WorkingHours{}, err
	}
	logger.InfoContext(ctx, "working hours saved", "slots", len(normalized.TimeSlots))
	return normalized, nil
}

// Effective returns the rule a booking is checked against: the stored rule
// first, then the provider's mailbox working hours. Nil means unrestricted.
func (s *Service) Effective(ctx context.Context, roomAddress string) (*calendar.WorkingHours, error) {
	stored, err := s.store.Get(ctx, roomAddress)
	if err != nil {
		return nil, err
	}
	if stored != nil {
		return stored, nil
	}
	if s.gw == nil {
		return nil, nil
	}
	return s.gw.GetWorkingHours(ctx, roomAddress)
}
