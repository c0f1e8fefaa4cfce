package repository

import (
	"context"
	"time"

	"github.com/kirinyoku/gigbook/internal/domain"
)

type Profiles interface {
	Create(ctx context.Context, p *domain.Profile) error
	Get(ctx context.Context, id int64) (*domain.Profile, error)
	GetActiveByUser(ctx context.Context, userID int64) (*domain.Profile, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.Profile, error)
	CountByUserAndType(ctx context.Context, userID int64, t domain.ProfileType) (int, error)
	DeactivateAll(ctx context.Context, userID int64) error
	SetActive(ctx context.Context, id int64) error
	SoftDelete(ctx context.Context, id int64, at time.Time) error
	PurgeDeleted(ctx context.Context, before time.Time) (int64, error)
}

type BookingRequests interface {
	Create(ctx context.Context, b *domain.BookingRequest) error
	Get(ctx context.Context, id int64) (*domain.BookingRequest, error)
	// TransitionStatus moves the request out of from. It reports false when
	// the row was no longer in from.
	TransitionStatus(
		ctx context.Context,
		id int64,
		from, to domain.BookingStatus,
		declineMessage *string,
		at time.Time,
	) (bool, error)
	ListByArtist(ctx context.Context, artistID int64) ([]domain.BookingRequestView, error)
	ListByVenue(ctx context.Context, venueID int64) ([]domain.BookingRequestView, error)
	// ListDatedForProfile returns pending and accepted requests with an event
	// date in [from, to] where the profile is either party. Counterpart is
	// the other party.
	ListDatedForProfile(
		ctx context.Context,
		profileID int64,
		from, to domain.Date,
	) ([]domain.BookingRequestView, error)
}

type CalendarEvents interface {
	Create(ctx context.Context, e *domain.CalendarEvent) error
	Get(ctx context.Context, id int64) (*domain.CalendarEvent, error)
	ListForProfile(ctx context.Context, profileID int64, from, to domain.Date) ([]domain.CalendarEvent, error)
	Delete(ctx context.Context, id int64) error
}

type Contracts interface {
	Create(ctx context.Context, p *domain.ContractProposal) error
	Get(ctx context.Context, id int64) (*domain.ContractProposal, error)
	ListForProfile(ctx context.Context, profileID int64) ([]domain.ContractProposal, error)
	// TransitionStatus moves the proposal to `to` only while its status is
	// one of from. It reports false when no row matched.
	TransitionStatus(
		ctx context.Context,
		id int64,
		from []domain.ProposalStatus,
		to domain.ProposalStatus,
		at time.Time,
	) (bool, error)
	// ExpireDue marks open proposals whose expiry is at or before now as
	// expired. profileID 0 means every profile.
	ExpireDue(ctx context.Context, now time.Time, profileID int64) ([]int64, error)
	AddNegotiation(ctx context.Context, n *domain.ContractNegotiation) error
	ListNegotiations(ctx context.Context, proposalID int64) ([]domain.ContractNegotiation, error)
	AddSignature(ctx context.Context, s *domain.ContractSignature) error
	ListSignatures(ctx context.Context, proposalID int64) ([]domain.ContractSignature, error)
}

type Notifications interface {
	Create(ctx context.Context, n *domain.Notification) error
	ListForUser(ctx context.Context, userID int64, limit, offset int) ([]domain.Notification, error)
	MarkRead(ctx context.Context, id, userID int64, at time.Time) error
	DeleteForBooking(
		ctx context.Context,
		kind domain.NotificationKind,
		recipientUserID, bookingRequestID int64,
	) (int64, error)
}

// Repos is a set of repositories sharing one database handle.
type Repos interface {
	Profiles() Profiles
	Bookings() BookingRequests
	Calendar() CalendarEvents
	Contracts() Contracts
	Notifications() Notifications
}

// Store hands out pool-backed repositories and runs transactions whose
// repositories are bound to the transaction.
type Store interface {
	Repos
	InTx(ctx context.Context, fn func(ctx context.Context, tx Repos) error) error
}
