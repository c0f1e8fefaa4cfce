// Package contracts runs the contract proposal lifecycle: creation from a
// booking request or directly to a venue, negotiation, acceptance with an
// audit signature, rejection and expiry.
package contracts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kirinyoku/gigbook/internal/domain"
	"github.com/kirinyoku/gigbook/internal/lineup"
	"github.com/kirinyoku/gigbook/internal/logging"
	"github.com/kirinyoku/gigbook/internal/repository"
	"github.com/kirinyoku/gigbook/internal/uow"
	"github.com/rs/zerolog"
)

const rejectionPrefix = "Rejection reason: "

type Notifier interface {
	Notify(ctx context.Context, n domain.Notification) error
}

type Invalidator interface {
	InvalidateProfileMonth(ctx context.Context, day domain.Date, profileIDs ...int64) error
}

type Service struct {
	store    repository.Store
	uow      *uow.UoW
	notifier Notifier
	cache    Invalidator
	log      zerolog.Logger
	now      func() time.Time
}

// New builds the contract service. notifier and cache may be nil.
func New(store repository.Store, notifier Notifier, cache Invalidator, log zerolog.Logger) *Service {
	return &Service{
		store:    store,
		uow:      uow.NewUoW(store),
		notifier: notifier,
		cache:    cache,
		log:      log,
		now:      time.Now,
	}
}

type CreateInput struct {
	// BookingRequestID proposes against an existing request (venue side).
	BookingRequestID int64
	// VenueID proposes directly to a venue (artist side). A pending stub
	// booking request is created to anchor the proposal.
	VenueID int64

	Title        string
	Description  string
	Terms        domain.Terms
	Payment      domain.Payment
	Requirements domain.Requirements
	Attachments  []domain.Attachment
	ExpiresAt    *time.Time
}

// Audit is the request context stored with a signature.
type Audit struct {
	IPAddress string
	UserAgent string
}

func (s *Service) validate(in *CreateInput) error {
	if (in.BookingRequestID == 0) == (in.VenueID == 0) {
		return ErrTargetRequired
	}

	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return ErrTitleRequired
	}
	if in.ExpiresAt != nil && !in.ExpiresAt.After(s.now()) {
		return ErrExpiryInPast
	}

	performers, err := lineup.Normalize(in.Terms.Performers)
	if err != nil {
		return err
	}
	in.Terms.Performers = performers
	in.Terms.RadiusClause.Summary = in.Terms.RadiusClause.Summarize()

	for i, a := range in.Attachments {
		if strings.TrimSpace(a.Name) == "" || strings.TrimSpace(a.URL) == "" {
			return domain.ValidationError{Field: fmt.Sprintf("attachments[%d]", i), Reason: "name and url are required"}
		}
	}
	if in.Attachments == nil {
		in.Attachments = []domain.Attachment{}
	}

	return nil
}

// Create stores a pending proposal and notifies its recipient.
//
// Parameters:
//   - actingProfileID: the proposer; the addressed venue when
//     in.BookingRequestID is set, an artist when in.VenueID is set
//
// Returns:
//   - error: domain.ValidationError for bad input or lineup;
//     domain.PermissionError when the proposer may not propose on that
//     request; domain.NotFoundError for unknown ids.
func (s *Service) Create(ctx context.Context, actingProfileID int64, in CreateInput) (*domain.ContractProposal, error) {
	const op = "service.contracts.Create"

	if err := s.validate(&in); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	now := s.now().UTC()
	p := &domain.ContractProposal{
		ProposedBy:   actingProfileID,
		Title:        in.Title,
		Description:  strings.TrimSpace(in.Description),
		Terms:        in.Terms,
		Payment:      in.Payment,
		Requirements: in.Requirements,
		Attachments:  in.Attachments,
		Status:       domain.ProposalPending,
		ExpiresAt:    in.ExpiresAt,
		CreatedAt:    now,
	}

	err := s.uow.Do(ctx, func(ctx context.Context, tx repository.Repos, after func(uow.AfterCommit)) error {
		proposer, err := tx.Profiles().Get(ctx, actingProfileID)
		if err != nil {
			return profileNotFound(err, actingProfileID)
		}

		var stub *domain.BookingRequest
		if in.BookingRequestID != 0 {
			b, err := tx.Bookings().Get(ctx, in.BookingRequestID)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return domain.NotFoundError{Entity: "booking request", ID: in.BookingRequestID}
				}
				return err
			}
			if b.VenueProfileID != actingProfileID {
				return domain.PermissionError{Reason: "only the addressed venue can propose on a booking request"}
			}
			p.BookingRequestID = b.ID
			p.ProposedTo = b.ArtistProfileID
		} else {
			if proposer.Type != domain.ProfileArtist {
				return domain.PermissionError{Reason: "only artists can propose directly to a venue"}
			}
			venue, err := tx.Profiles().Get(ctx, in.VenueID)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return ErrNotVenue
				}
				return err
			}
			if venue.Type != domain.ProfileVenue {
				return ErrNotVenue
			}

			msg := "Direct contract proposal: " + in.Title
			stub = &domain.BookingRequest{
				ArtistProfileID: proposer.ID,
				VenueProfileID:  venue.ID,
				Status:          domain.BookingPending,
				RequestedAt:     now,
				EventDate:       in.Terms.Timing.EventDate,
				Message:         &msg,
			}
			if err := tx.Bookings().Create(ctx, stub); err != nil {
				return err
			}
			p.BookingRequestID = stub.ID
			p.ProposedTo = venue.ID
		}

		if err := tx.Contracts().Create(ctx, p); err != nil {
			return err
		}

		recipient, err := s.profile(ctx, tx, p.ProposedTo)
		if err != nil {
			return err
		}

		after(func(ctx context.Context) {
			if recipient != nil {
				s.notify(ctx, s.notification(p, recipient, domain.NotifyContractProposed,
					"New contract proposal",
					fmt.Sprintf("%s sent you a contract proposal: %s", proposer.Name, p.Title)))
			}
			if stub != nil && stub.EventDate != nil {
				s.invalidate(ctx, *stub.EventDate, stub.ArtistProfileID, stub.VenueProfileID)
			}
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return p, nil
}

// Accept signs the proposal on behalf of its recipient.
func (s *Service) Accept(ctx context.Context, proposalID, actingProfileID int64, audit Audit) (*domain.ContractProposal, error) {
	const op = "service.contracts.Accept"

	p, err := s.transition(ctx, proposalID, "accept",
		func(p *domain.ContractProposal) error {
			if p.ProposedTo != actingProfileID {
				return domain.PermissionError{Reason: "only the recipient can accept a proposal"}
			}
			return nil
		},
		func(ctx context.Context, tx repository.Repos, p *domain.ContractProposal, now time.Time) error {
			if err := s.move(ctx, tx, p, domain.ProposalAccepted, now, "accept"); err != nil {
				return err
			}
			return tx.Contracts().AddSignature(ctx, &domain.ContractSignature{
				ProposalID: p.ID,
				ProfileID:  actingProfileID,
				IPAddress:  audit.IPAddress,
				UserAgent:  audit.UserAgent,
				SignedAt:   now,
			})
		},
		func(p *domain.ContractProposal) (domain.NotificationKind, int64, string, string) {
			return domain.NotifyContractAccepted, p.ProposedBy,
				"Contract accepted", fmt.Sprintf("Your contract proposal %q was accepted.", p.Title)
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return p, nil
}

// Reject closes the proposal. A non-empty reason is kept in the
// negotiation log.
func (s *Service) Reject(ctx context.Context, proposalID, actingProfileID int64, reason string) (*domain.ContractProposal, error) {
	const op = "service.contracts.Reject"

	reason = strings.TrimSpace(reason)

	p, err := s.transition(ctx, proposalID, "reject",
		func(p *domain.ContractProposal) error {
			if p.ProposedTo != actingProfileID {
				return domain.PermissionError{Reason: "only the recipient can reject a proposal"}
			}
			return nil
		},
		func(ctx context.Context, tx repository.Repos, p *domain.ContractProposal, now time.Time) error {
			if err := s.move(ctx, tx, p, domain.ProposalRejected, now, "reject"); err != nil {
				return err
			}
			if reason == "" {
				return nil
			}
			return tx.Contracts().AddNegotiation(ctx, &domain.ContractNegotiation{
				ProposalID: p.ID,
				ProfileID:  actingProfileID,
				Message:    rejectionPrefix + reason,
				CreatedAt:  now,
			})
		},
		func(p *domain.ContractProposal) (domain.NotificationKind, int64, string, string) {
			msg := fmt.Sprintf("Your contract proposal %q was rejected.", p.Title)
			if reason != "" {
				msg += " " + rejectionPrefix + reason
			}
			return domain.NotifyContractRejected, p.ProposedBy, "Contract rejected", msg
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return p, nil
}

// Negotiate appends a message, with optional proposed changes, from either
// party. The first negotiation moves a pending proposal to negotiating.
func (s *Service) Negotiate(
	ctx context.Context,
	proposalID, actingProfileID int64,
	message string,
	changes []byte,
) (*domain.ContractProposal, error) {
	const op = "service.contracts.Negotiate"

	message = strings.TrimSpace(message)
	if message == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrMessageMissing)
	}

	p, err := s.transition(ctx, proposalID, "negotiate",
		func(p *domain.ContractProposal) error {
			if !p.Party(actingProfileID) {
				return domain.PermissionError{Reason: "not a party to this proposal"}
			}
			return nil
		},
		func(ctx context.Context, tx repository.Repos, p *domain.ContractProposal, now time.Time) error {
			if err := tx.Contracts().AddNegotiation(ctx, &domain.ContractNegotiation{
				ProposalID:      p.ID,
				ProfileID:       actingProfileID,
				Message:         message,
				ProposedChanges: changes,
				CreatedAt:       now,
			}); err != nil {
				return err
			}
			if p.Status == domain.ProposalPending {
				return s.move(ctx, tx, p, domain.ProposalNegotiating, now, "negotiate")
			}
			return nil
		},
		func(p *domain.ContractProposal) (domain.NotificationKind, int64, string, string) {
			return domain.NotifyContractNegotiation, p.Counterparty(actingProfileID),
				"Contract negotiation", fmt.Sprintf("New message on %q: %s", p.Title, message)
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return p, nil
}

type notice func(p *domain.ContractProposal) (kind domain.NotificationKind, recipientProfileID int64, title, message string)

// transition runs one lifecycle step in a transaction. A proposal found past
// its expiry is marked expired and committed before the caller gets a
// domain.StateError.
func (s *Service) transition(
	ctx context.Context,
	proposalID int64,
	action string,
	authorize func(p *domain.ContractProposal) error,
	apply func(ctx context.Context, tx repository.Repos, p *domain.ContractProposal, now time.Time) error,
	describe notice,
) (*domain.ContractProposal, error) {
	var (
		out     *domain.ContractProposal
		expired error
	)

	err := s.uow.Do(ctx, func(ctx context.Context, tx repository.Repos, after func(uow.AfterCommit)) error {
		expired = nil

		p, err := tx.Contracts().Get(ctx, proposalID)
		if err != nil {
			return proposalNotFound(err, proposalID)
		}
		if err := authorize(p); err != nil {
			return err
		}

		now := s.now().UTC()
		if p.Due(now) {
			if _, err := tx.Contracts().TransitionStatus(ctx, p.ID, domain.OpenProposalStatuses, domain.ProposalExpired, now); err != nil {
				return err
			}
			p.Status = domain.ProposalExpired
			expired = stateErr(p, action)
			return nil
		}
		if !p.Status.Open() {
			return stateErr(p, action)
		}

		if err := apply(ctx, tx, p, now); err != nil {
			return err
		}
		p.UpdatedAt = now
		out = p

		kind, to, title, msg := describe(p)
		recipient, err := s.profile(ctx, tx, to)
		if err != nil {
			return err
		}
		if recipient != nil {
			n := s.notification(p, recipient, kind, title, msg)
			after(func(ctx context.Context) { s.notify(ctx, n) })
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if expired != nil {
		return nil, expired
	}

	return out, nil
}

// move performs a guarded status change on p and reports the status it lost
// to when another writer moved the proposal first.
func (s *Service) move(
	ctx context.Context,
	tx repository.Repos,
	p *domain.ContractProposal,
	to domain.ProposalStatus,
	now time.Time,
	action string,
) error {
	ok, err := tx.Contracts().TransitionStatus(ctx, p.ID, domain.OpenProposalStatuses, to, now)
	if err != nil {
		return err
	}
	if !ok {
		cur, err := tx.Contracts().Get(ctx, p.ID)
		if err != nil {
			return proposalNotFound(err, p.ID)
		}
		return stateErr(cur, action)
	}

	p.Status = to
	switch to {
	case domain.ProposalAccepted:
		p.AcceptedAt = &now
	case domain.ProposalRejected:
		p.RejectedAt = &now
	}
	return nil
}

// GetDetail returns the proposal with its negotiation log and signatures.
// Only the two parties may read it. A proposal past its expiry is reported
// as expired.
func (s *Service) GetDetail(ctx context.Context, proposalID, actingProfileID int64) (*domain.ContractDetail, error) {
	const op = "service.contracts.GetDetail"

	var detail *domain.ContractDetail
	err := s.uow.Do(ctx, func(ctx context.Context, tx repository.Repos, _ func(uow.AfterCommit)) error {
		p, err := tx.Contracts().Get(ctx, proposalID)
		if err != nil {
			return proposalNotFound(err, proposalID)
		}
		if !p.Party(actingProfileID) {
			return domain.PermissionError{Reason: "not a party to this proposal"}
		}

		now := s.now().UTC()
		if p.Due(now) {
			if _, err := tx.Contracts().TransitionStatus(ctx, p.ID, domain.OpenProposalStatuses, domain.ProposalExpired, now); err != nil {
				return err
			}
			p.Status = domain.ProposalExpired
			p.UpdatedAt = now
		}

		negotiations, err := tx.Contracts().ListNegotiations(ctx, p.ID)
		if err != nil {
			return err
		}
		signatures, err := tx.Contracts().ListSignatures(ctx, p.ID)
		if err != nil {
			return err
		}

		if negotiations == nil {
			negotiations = []domain.ContractNegotiation{}
		}
		if signatures == nil {
			signatures = []domain.ContractSignature{}
		}
		detail = &domain.ContractDetail{Proposal: *p, Negotiations: negotiations, Signatures: signatures}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return detail, nil
}

// ListForProfile returns every proposal the profile sent or received,
// newest first, after expiring the ones that are due.
func (s *Service) ListForProfile(ctx context.Context, profileID int64) ([]domain.ContractProposal, error) {
	const op = "service.contracts.ListForProfile"

	var list []domain.ContractProposal
	err := s.uow.Do(ctx, func(ctx context.Context, tx repository.Repos, _ func(uow.AfterCommit)) error {
		if _, err := tx.Contracts().ExpireDue(ctx, s.now().UTC(), profileID); err != nil {
			return err
		}

		var err error
		list, err = tx.Contracts().ListForProfile(ctx, profileID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if list == nil {
		list = []domain.ContractProposal{}
	}
	return list, nil
}

// ExpireDue expires every open proposal past its expiry and returns how many
// it moved.
func (s *Service) ExpireDue(ctx context.Context) (int, error) {
	const op = "service.contracts.ExpireDue"

	ids, err := s.store.Contracts().ExpireDue(ctx, s.now().UTC(), 0)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return len(ids), nil
}

// profile looks up a notification recipient. A deleted profile yields nil.
func (s *Service) profile(ctx context.Context, tx repository.Repos, id int64) (*domain.Profile, error) {
	p, err := tx.Profiles().Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

func (s *Service) notification(
	p *domain.ContractProposal,
	recipient *domain.Profile,
	kind domain.NotificationKind,
	title, message string,
) domain.Notification {
	proposalID, bookingID := p.ID, p.BookingRequestID
	return domain.Notification{
		RecipientUserID:    recipient.UserID,
		RecipientProfileID: recipient.ID,
		SenderProfileID:    p.Counterparty(recipient.ID),
		Kind:               kind,
		Title:              title,
		Message:            message,
		BookingRequestID:   &bookingID,
		ContractProposalID: &proposalID,
	}
}

func (s *Service) notify(ctx context.Context, n domain.Notification) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, n); err != nil {
		logging.FromContext(ctx, s.log).Warn().Err(err).
			Str("kind", string(n.Kind)).
			Int64("recipient_user_id", n.RecipientUserID).
			Msg("notification delivery failed")
	}
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
