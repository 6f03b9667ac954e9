package holiday

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/warp/attendance-engine/generic"
)

// =============================================================================
// ADMIN SERVICE - Managing the rule sources
// =============================================================================

// AdminService creates, lists and deletes rule sources. Every operation
// requires an admin actor.
type AdminService struct {
	store Store
	log   logrus.FieldLogger

	// Now is the wall clock in the company time zone.
	Now func() time.Time
}

func NewAdminService(store Store, log logrus.FieldLogger) *AdminService {
	return &AdminService{store: store, log: log, Now: time.Now}
}

// CreatePublicHolidayInput is the admin's request for a new public holiday.
type CreatePublicHolidayInput struct {
	Date        generic.Date
	Name        string
	Description string
}

// CreateWeeklyRuleInput is the admin's request for a new weekly rule.
type CreateWeeklyRuleInput struct {
	Weekday  int
	StartsOn generic.Date
	EndsOn   *generic.Date
}

// CreateExceptionInput is the admin's request for a per-user override.
type CreateExceptionInput struct {
	Date     generic.Date
	Override bool
	Reason   string
}

// =============================================================================
// PUBLIC HOLIDAYS
// =============================================================================

func (s *AdminService) CreatePublicHoliday(ctx context.Context, actor generic.Actor, in CreatePublicHolidayInput) (*PublicHoliday, error) {
	if err := generic.RequireAdmin(actor); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, generic.BadRequest("name is required")
	}
	if in.Date.IsZero() {
		return nil, generic.BadRequest("holiday_date is required")
	}

	h := PublicHoliday{
		ID:          uuid.NewString(),
		Date:        in.Date,
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		CreatedAt:   s.Now().UTC(),
	}
	if err := s.store.SavePublicHoliday(ctx, h); err != nil {
		if errors.Is(err, generic.ErrDuplicate) {
			return nil, generic.BadRequest("a holiday already exists on %s", in.Date)
		}
		return nil, generic.Internal(err, "failed to create holiday")
	}

	s.log.WithFields(logrus.Fields{
		"holiday_id": h.ID,
		"date":       h.Date.String(),
		"actor_id":   actor.UserID,
	}).Info("public holiday created")
	return &h, nil
}

func (s *AdminService) ListPublicHolidays(ctx context.Context, actor generic.Actor) ([]PublicHoliday, error) {
	if err := generic.RequireAdmin(actor); err != nil {
		return nil, err
	}
	list, err := s.store.ListPublicHolidays(ctx)
	if err != nil {
		return nil, generic.Internal(err, "failed to list holidays")
	}
	return list, nil
}

func (s *AdminService) DeletePublicHoliday(ctx context.Context, actor generic.Actor, id string) error {
	if err := generic.RequireAdmin(actor); err != nil {
		return err
	}
	if err := s.store.DeletePublicHoliday(ctx, id); err != nil {
		if errors.Is(err, generic.ErrNotFound) {
			return generic.NotFound("holiday not found")
		}
		return generic.Internal(err, "failed to delete holiday")
	}
	s.log.WithFields(logrus.Fields{"holiday_id": id, "actor_id": actor.UserID}).Info("public holiday deleted")
	return nil
}

// =============================================================================
// WEEKLY RULES
// =============================================================================

// CreateWeeklyRule validates and stores a weekly rule. Rules may only start
// tomorrow or later, except when a system admin creates them.
func (s *AdminService) CreateWeeklyRule(ctx context.Context, actor generic.Actor, in CreateWeeklyRuleInput) (*WeeklyRule, error) {
	if err := generic.RequireAdmin(actor); err != nil {
		return nil, err
	}
	if in.Weekday < 0 || in.Weekday > 6 {
		return nil, generic.BadRequest("weekday must be between 0 (Monday) and 6 (Sunday)")
	}
	if in.StartsOn.IsZero() {
		return nil, generic.BadRequest("starts_on is required")
	}
	if in.EndsOn != nil && in.EndsOn.Before(in.StartsOn) {
		return nil, generic.BadRequest("ends_on must be on or after starts_on")
	}
	now := s.Now()
	tomorrow := generic.DateOf(now).AddDays(1)
	if !actor.IsSystemAdmin() && in.StartsOn.Before(tomorrow) {
		return nil, generic.BadRequest("starts_on must be %s or later", tomorrow)
	}

	rule := WeeklyRule{
		ID:           uuid.NewString(),
		Weekday:      in.Weekday,
		StartsOn:     in.StartsOn,
		EndsOn:       in.EndsOn,
		EnforcedFrom: in.StartsOn,
		EnforcedTo:   in.EndsOn,
		CreatedBy:    actor.UserID,
		CreatedAt:    now.UTC(),
	}
	if err := s.store.SaveWeeklyRule(ctx, rule); err != nil {
		return nil, generic.Internal(err, "failed to create weekly holiday")
	}

	s.log.WithFields(logrus.Fields{
		"rule_id":   rule.ID,
		"weekday":   rule.Weekday,
		"starts_on": rule.StartsOn.String(),
		"actor_id":  actor.UserID,
	}).Info("weekly holiday rule created")
	return &rule, nil
}

func (s *AdminService) ListWeeklyRules(ctx context.Context, actor generic.Actor) ([]WeeklyRule, error) {
	if err := generic.RequireAdmin(actor); err != nil {
		return nil, err
	}
	rules, err := s.store.ListWeeklyRules(ctx)
	if err != nil {
		return nil, generic.Internal(err, "failed to list weekly holidays")
	}
	return rules, nil
}

func (s *AdminService) DeleteWeeklyRule(ctx context.Context, actor generic.Actor, id string) error {
	if err := generic.RequireAdmin(actor); err != nil {
		return err
	}
	if err := s.store.DeleteWeeklyRule(ctx, id); err != nil {
		if errors.Is(err, generic.ErrNotFound) {
			return generic.NotFound("weekly holiday not found")
		}
		return generic.Internal(err, "failed to delete weekly holiday")
	}
	s.log.WithFields(logrus.Fields{"rule_id": id, "actor_id": actor.UserID}).Info("weekly holiday rule deleted")
	return nil
}

// =============================================================================
// EXCEPTIONS
// =============================================================================

func (s *AdminService) CreateException(ctx context.Context, actor generic.Actor, userID string, in CreateExceptionInput) (*Exception, error) {
	if err := generic.RequireAdmin(actor); err != nil {
		return nil, err
	}
	if strings.TrimSpace(userID) == "" {
		return nil, generic.BadRequest("user_id is required")
	}
	if in.Date.IsZero() {
		return nil, generic.BadRequest("exception_date is required")
	}

	exc := Exception{
		ID:        uuid.NewString(),
		UserID:    userID,
		Date:      in.Date,
		Override:  in.Override,
		Reason:    strings.TrimSpace(in.Reason),
		CreatedBy: actor.UserID,
		CreatedAt: s.Now().UTC(),
	}
	if err := s.store.SaveException(ctx, exc); err != nil {
		if errors.Is(err, generic.ErrDuplicate) {
			return nil, generic.Conflict("an exception already exists for this user on %s", in.Date)
		}
		return nil, generic.Internal(err, "failed to create holiday exception")
	}

	s.log.WithFields(logrus.Fields{
		"exception_id": exc.ID,
		"user_id":      userID,
		"date":         exc.Date.String(),
		"override":     exc.Override,
		"actor_id":     actor.UserID,
	}).Info("holiday exception created")
	return &exc, nil
}

func (s *AdminService) ListExceptions(ctx context.Context, actor generic.Actor, userID string, from, to *generic.Date) ([]Exception, error) {
	if err := generic.RequireAdmin(actor); err != nil {
		return nil, err
	}
	if from != nil && to != nil && to.Before(*from) {
		return nil, generic.BadRequest("to must be on or after from")
	}
	list, err := s.store.ListExceptions(ctx, userID, from, to)
	if err != nil {
		return nil, generic.Internal(err, "failed to list holiday exceptions")
	}
	return list, nil
}

func (s *AdminService) DeleteException(ctx context.Context, actor generic.Actor, userID, id string) error {
	if err := generic.RequireAdmin(actor); err != nil {
		return err
	}
	if err := s.store.DeleteException(ctx, userID, id); err != nil {
		if errors.Is(err, generic.ErrNotFound) {
			return generic.NotFound("holiday exception not found")
		}
		return generic.Internal(err, "failed to delete holiday exception")
	}
	s.log.WithFields(logrus.Fields{"exception_id": id, "user_id": userID, "actor_id": actor.UserID}).Info("holiday exception deleted")
	return nil
}
