package calendar

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kirinyoku/gigbook/internal/domain"
	"github.com/kirinyoku/gigbook/internal/logging"
	"github.com/kirinyoku/gigbook/internal/repository"
	"github.com/kirinyoku/gigbook/internal/uow"
	"github.com/rs/zerolog"
)

// maxRange caps a single listing at roughly one year of days.
const maxRange = 366 * 24 * time.Hour

// Invalidator drops cached month projections touched by a write.
type Invalidator interface {
	InvalidateProfileMonth(ctx context.Context, day domain.Date, profileIDs ...int64) error
}

type Service struct {
	store repository.Store
	uow   *uow.UoW
	cache Invalidator
	log   zerolog.Logger
}

// New builds the calendar service. cache may be nil.
func New(store repository.Store, cache Invalidator, log zerolog.Logger) *Service {
	return &Service{
		store: store,
		uow:   uow.NewUoW(store),
		cache: cache,
		log:   log,
	}
}

type CreateInput struct {
	Title     string
	Date      domain.Date
	StartTime string
	EndTime   string
	Type      domain.EventType
	Status    domain.EventStatus
	Client    string
	Location  string
	Notes     string
	Budget    string
	IsPrivate bool
}

func (in *CreateInput) normalize() error {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return domain.ValidationError{Field: "title", Reason: "required"}
	}
	if in.Date.IsZero() {
		return domain.ValidationError{Field: "date", Reason: "required"}
	}

	if in.Type == "" {
		in.Type = domain.EventShow
	}
	if !in.Type.Valid() {
		return domain.ValidationError{Field: "type", Reason: "unknown event type"}
	}
	if in.Status == "" {
		in.Status = domain.EventConfirmed
	}
	if !in.Status.Valid() {
		return domain.ValidationError{Field: "status", Reason: "unknown event status"}
	}

	for field, v := range map[string]string{"start_time": in.StartTime, "end_time": in.EndTime} {
		if v == "" {
			continue
		}
		if _, err := time.Parse("15:04", v); err != nil {
			return domain.ValidationError{Field: field, Reason: "must be HH:MM"}
		}
	}

	return nil
}

// Create adds an event to the acting profile's own calendar.
//
// Defaults: type "event", status "confirmed".
func (s *Service) Create(ctx context.Context, actingProfileID int64, in CreateInput) (*domain.CalendarEvent, error) {
	const op = "service.calendar.Create"

	if err := in.normalize(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	e := &domain.CalendarEvent{
		ProfileID: actingProfileID,
		Title:     in.Title,
		Date:      in.Date,
		StartTime: in.StartTime,
		EndTime:   in.EndTime,
		Type:      in.Type,
		Status:    in.Status,
		Client:    strings.TrimSpace(in.Client),
		Location:  strings.TrimSpace(in.Location),
		Notes:     strings.TrimSpace(in.Notes),
		Budget:    strings.TrimSpace(in.Budget),
		IsPrivate: in.IsPrivate,
	}

	err := s.uow.Do(ctx, func(ctx context.Context, tx repository.Repos, after func(uow.AfterCommit)) error {
		if _, err := tx.Profiles().Get(ctx, actingProfileID); err != nil {
			return profileNotFound(err, actingProfileID)
		}

		if err := tx.Calendar().Create(ctx, e); err != nil {
			return err
		}

		after(func(ctx context.Context) { s.invalidate(ctx, e.Date, e.ProfileID) })
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return e, nil
}

// ListForProfile returns the persisted events of profileID within [from, to].
// Private events are only visible to the owning profile.
func (s *Service) ListForProfile(
	ctx context.Context,
	viewerProfileID, profileID int64,
	from, to domain.Date,
) ([]domain.CalendarEvent, error) {
	const op = "service.calendar.ListForProfile"

	switch {
	case from.IsZero() || to.IsZero():
		return nil, fmt.Errorf("%s: %w", op, domain.ValidationError{Field: "from/to", Reason: "required"})
	case to.Before(from.Time):
		return nil, fmt.Errorf("%s: %w", op, domain.ValidationError{Field: "to", Reason: "must not precede from"})
	case to.Sub(from.Time) > maxRange:
		return nil, fmt.Errorf("%s: %w", op, domain.ValidationError{Field: "to", Reason: "range exceeds one year"})
	}

	events, err := s.store.Calendar().ListForProfile(ctx, profileID, from, to)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if viewerProfileID == profileID {
		return events, nil
	}

	visible := events[:0]
	for _, e := range events {
		if !e.IsPrivate {
			visible = append(visible, e)
		}
	}

	return visible, nil
}

// Delete removes an event owned by the acting profile.
func (s *Service) Delete(ctx context.Context, actingProfileID, eventID int64) error {
	const op = "service.calendar.Delete"

	err := s.uow.Do(ctx, func(ctx context.Context, tx repository.Repos, after func(uow.AfterCommit)) error {
		e, err := tx.Calendar().Get(ctx, eventID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return domain.NotFoundError{Entity: "calendar event", ID: eventID}
			}
			return err
		}
		if e.ProfileID != actingProfileID {
			return domain.PermissionError{Reason: "event belongs to another profile"}
		}

		if err := tx.Calendar().Delete(ctx, eventID); err != nil {
			return err
		}

		after(func(ctx context.Context) { s.invalidate(ctx, e.Date, e.ProfileID) })
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Service) invalidate(ctx context.Context, day domain.Date, profileIDs ...int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateProfileMonth(ctx, day, profileIDs...); err != nil {
		logging.FromContext(ctx, s.log).Warn().Err(err).Msg("calendar cache invalidation failed")
	}
}

func profileNotFound(err error, id int64) error {
	if errors.Is(err, repository.ErrNotFound) {
		return domain.NotFoundError{Entity: "profile", ID: id}
	}
	return err
}
