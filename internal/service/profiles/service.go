package profiles

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kirinyoku/gigbook/internal/domain"
	"github.com/kirinyoku/gigbook/internal/repository"
	"github.com/kirinyoku/gigbook/internal/uow"
)

type Config struct {
	// PurgeAfter is the grace period between a soft delete and the purge.
	PurgeAfter time.Duration
}

type Service struct {
	store repository.Store
	uow   *uow.UoW
	cfg   Config
	now   func() time.Time
}

func New(store repository.Store, cfg Config) *Service {
	if cfg.PurgeAfter <= 0 {
		cfg.PurgeAfter = 30 * 24 * time.Hour
	}

	return &Service{
		store: store,
		uow:   uow.NewUoW(store),
		cfg:   cfg,
		now:   time.Now,
	}
}

type CreateInput struct {
	Type     domain.ProfileType
	Name     string
	Location string
	Bio      string
	ImageURL string
}

// Create adds a profile for userID and makes it the user's active one.
//
// Returns:
//   - error: domain.ValidationError for a bad type or name, or a second
//     audience profile.
func (s *Service) Create(ctx context.Context, userID int64, in CreateInput) (*domain.Profile, error) {
	const op = "service.profiles.Create"

	in.Name = strings.TrimSpace(in.Name)
	switch {
	case userID <= 0:
		return nil, fmt.Errorf("%s: %w", op, domain.ValidationError{Field: "user_id", Reason: "required"})
	case !in.Type.Valid():
		return nil, fmt.Errorf("%s: %w", op, domain.ValidationError{Field: "type", Reason: "must be artist, venue or audience"})
	case in.Name == "":
		return nil, fmt.Errorf("%s: %w", op, domain.ValidationError{Field: "name", Reason: "required"})
	}

	audienceTaken := domain.ValidationError{Field: "type", Reason: "user already has an audience profile"}

	p := &domain.Profile{
		UserID:    userID,
		Type:      in.Type,
		Name:      in.Name,
		Location:  strings.TrimSpace(in.Location),
		Bio:       strings.TrimSpace(in.Bio),
		ImageURL:  strings.TrimSpace(in.ImageURL),
		IsActive:  true,
		CreatedAt: s.now().UTC(),
	}

	err := s.uow.Do(ctx, func(ctx context.Context, tx repository.Repos, _ func(uow.AfterCommit)) error {
		if in.Type == domain.ProfileAudience {
			n, err := tx.Profiles().CountByUserAndType(ctx, userID, domain.ProfileAudience)
			if err != nil {
				return err
			}
			if n > 0 {
				return audienceTaken
			}
		}

		if err := tx.Profiles().DeactivateAll(ctx, userID); err != nil {
			return err
		}

		if err := tx.Profiles().Create(ctx, p); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return audienceTaken
			}
			return err
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return p, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*domain.Profile, error) {
	const op = "service.profiles.Get"

	p, err := s.store.Profiles().Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, notFound(err, id))
	}

	return p, nil
}

// Active returns the profile the user currently acts as.
func (s *Service) Active(ctx context.Context, userID int64) (*domain.Profile, error) {
	const op = "service.profiles.Active"

	p, err := s.store.Profiles().GetActiveByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, domain.NotFoundError{Entity: "active profile for user", ID: userID})
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return p, nil
}

func (s *Service) ListForUser(ctx context.Context, userID int64) ([]domain.Profile, error) {
	const op = "service.profiles.ListForUser"

	list, err := s.store.Profiles().ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return list, nil
}

// Activate switches the user's active profile.
func (s *Service) Activate(ctx context.Context, userID, profileID int64) (*domain.Profile, error) {
	const op = "service.profiles.Activate"

	var out *domain.Profile
	err := s.uow.Do(ctx, func(ctx context.Context, tx repository.Repos, _ func(uow.AfterCommit)) error {
		p, err := s.owned(ctx, tx, userID, profileID)
		if err != nil {
			return err
		}

		if err := tx.Profiles().DeactivateAll(ctx, userID); err != nil {
			return err
		}
		if err := tx.Profiles().SetActive(ctx, p.ID); err != nil {
			return err
		}

		p.IsActive = true
		out = p
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// SoftDelete hides the profile now and leaves it for PurgeDeleted.
func (s *Service) SoftDelete(ctx context.Context, userID, profileID int64) error {
	const op = "service.profiles.SoftDelete"

	err := s.uow.Do(ctx, func(ctx context.Context, tx repository.Repos, _ func(uow.AfterCommit)) error {
		if _, err := s.owned(ctx, tx, userID, profileID); err != nil {
			return err
		}
		return tx.Profiles().SoftDelete(ctx, profileID, s.now().UTC())
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// PurgeDeleted removes profiles whose grace period has run out.
func (s *Service) PurgeDeleted(ctx context.Context) (int64, error) {
	const op = "service.profiles.PurgeDeleted"

	n, err := s.store.Profiles().PurgeDeleted(ctx, s.now().UTC().Add(-s.cfg.PurgeAfter))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return n, nil
}

func (s *Service) owned(ctx context.Context, tx repository.Repos, userID, profileID int64) (*domain.Profile, error) {
	p, err := tx.Profiles().Get(ctx, profileID)
	if err != nil {
		return nil, notFound(err, profileID)
	}
	if p.UserID != userID {
		return nil, domain.PermissionError{Reason: "profile belongs to another user"}
	}
	return p, nil
}

func notFound(err error, id int64) error {
	if errors.Is(err, repository.ErrNotFound) {
		return domain.NotFoundError{Entity: "profile", ID: id}
	}
	return err
}
