// Package memory is an in-process repository.Store used by service tests and
// local runs without Postgres. Transactions are serialized and roll back by
// restoring a snapshot.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/kirinyoku/gigbook/internal/domain"
	"github.com/kirinyoku/gigbook/internal/repository"
)

type state struct {
	profiles      map[int64]domain.Profile
	bookings      map[int64]domain.BookingRequest
	events        map[int64]domain.CalendarEvent
	proposals     map[int64]domain.ContractProposal
	negotiations  []domain.ContractNegotiation
	signatures    []domain.ContractSignature
	notifications map[int64]domain.Notification
	seq           int64
}

func newState() state {
	return state{
		profiles:      make(map[int64]domain.Profile),
		bookings:      make(map[int64]domain.BookingRequest),
		events:        make(map[int64]domain.CalendarEvent),
		proposals:     make(map[int64]domain.ContractProposal),
		notifications: make(map[int64]domain.Notification),
	}
}

func (s state) clone() state {
	cp := state{
		profiles:      make(map[int64]domain.Profile, len(s.profiles)),
		bookings:      make(map[int64]domain.BookingRequest, len(s.bookings)),
		events:        make(map[int64]domain.CalendarEvent, len(s.events)),
		proposals:     make(map[int64]domain.ContractProposal, len(s.proposals)),
		negotiations:  slices.Clone(s.negotiations),
		signatures:    slices.Clone(s.signatures),
		notifications: make(map[int64]domain.Notification, len(s.notifications)),
		seq:           s.seq,
	}
	for k, v := range s.profiles {
		cp.profiles[k] = v
	}
	for k, v := range s.bookings {
		cp.bookings[k] = v
	}
	for k, v := range s.events {
		cp.events[k] = v
	}
	for k, v := range s.proposals {
		cp.proposals[k] = v
	}
	for k, v := range s.notifications {
		cp.notifications[k] = v
	}
	return cp
}

type Store struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	st   state

	// FailNext, when set, is returned by the next InTx before fn runs and
	// then cleared.
	FailNext error
}

func NewStore() *Store {
	return &Store{st: newState()}
}

func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx repository.Repos) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	if err := s.FailNext; err != nil {
		s.FailNext = nil
		return err
	}

	s.mu.RLock()
	snapshot := s.st.clone()
	s.mu.RUnlock()

	if err := fn(ctx, s); err != nil {
		s.mu.Lock()
		s.st = snapshot
		s.mu.Unlock()
		return err
	}

	return nil
}

func (s *Store) nextID() int64 {
	s.st.seq++
	return s.st.seq
}

func (s *Store) Profiles() repository.Profiles           { return profileRepo{s} }
func (s *Store) Bookings() repository.BookingRequests    { return bookingRepo{s} }
func (s *Store) Calendar() repository.CalendarEvents     { return calendarRepo{s} }
func (s *Store) Contracts() repository.Contracts         { return contractRepo{s} }
func (s *Store) Notifications() repository.Notifications { return notificationRepo{s} }

func notFound(op string) error {
	return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
}

type profileRepo struct{ s *Store }

func (r profileRepo) Create(_ context.Context, p *domain.Profile) error {
	const op = "memory.ProfileRepo.Create"

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, other := range r.s.st.profiles {
		if other.UserID != p.UserID || other.DeletedAt != nil {
			continue
		}
		if (p.IsActive && other.IsActive) ||
			(p.Type == domain.ProfileAudience && other.Type == domain.ProfileAudience) {
			return fmt.Errorf("%s:%w", op, repository.ErrConflict)
		}
	}

	p.ID = r.s.nextID()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	r.s.st.profiles[p.ID] = *p
	return nil
}

func (r profileRepo) Get(_ context.Context, id int64) (*domain.Profile, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.st.profiles[id]
	if !ok || p.DeletedAt != nil {
		return nil, notFound("memory.ProfileRepo.Get")
	}
	return &p, nil
}

func (r profileRepo) GetActiveByUser(_ context.Context, userID int64) (*domain.Profile, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, p := range r.s.st.profiles {
		if p.UserID == userID && p.IsActive && p.DeletedAt == nil {
			return &p, nil
		}
	}
	return nil, notFound("memory.ProfileRepo.GetActiveByUser")
}

func (r profileRepo) ListByUser(_ context.Context, userID int64) ([]domain.Profile, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []domain.Profile
	for _, p := range r.s.st.profiles {
		if p.UserID == userID && p.DeletedAt == nil {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r profileRepo) CountByUserAndType(_ context.Context, userID int64, t domain.ProfileType) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	n := 0
	for _, p := range r.s.st.profiles {
		if p.UserID == userID && p.Type == t && p.DeletedAt == nil {
			n++
		}
	}
	return n, nil
}

func (r profileRepo) DeactivateAll(_ context.Context, userID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for id, p := range r.s.st.profiles {
		if p.UserID == userID && p.IsActive {
			p.IsActive = false
			r.s.st.profiles[id] = p
		}
	}
	return nil
}

func (r profileRepo) SetActive(_ context.Context, id int64) error {
	const op = "memory.ProfileRepo.SetActive"

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.st.profiles[id]
	if !ok || p.DeletedAt != nil {
		return notFound(op)
	}
	for _, other := range r.s.st.profiles {
		if other.ID != id && other.UserID == p.UserID && other.IsActive && other.DeletedAt == nil {
			return fmt.Errorf("%s:%w", op, repository.ErrConflict)
		}
	}
	p.IsActive = true
	r.s.st.profiles[id] = p
	return nil
}

func (r profileRepo) SoftDelete(_ context.Context, id int64, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.st.profiles[id]
	if !ok || p.DeletedAt != nil {
		return notFound("memory.ProfileRepo.SoftDelete")
	}
	p.DeletedAt = &at
	p.IsActive = false
	r.s.st.profiles[id] = p
	return nil
}

func (r profileRepo) PurgeDeleted(_ context.Context, before time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for id, p := range r.s.st.profiles {
		if p.DeletedAt != nil && !p.DeletedAt.After(before) {
			delete(r.s.st.profiles, id)
			n++
		}
	}
	return n, nil
}

type bookingRepo struct{ s *Store }

func (r bookingRepo) Create(_ context.Context, b *domain.BookingRequest) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	b.ID = r.s.nextID()
	r.s.st.bookings[b.ID] = *b
	return nil
}

func (r bookingRepo) Get(_ context.Context, id int64) (*domain.BookingRequest, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	b, ok := r.s.st.bookings[id]
	if !ok {
		return nil, notFound("memory.BookingRepo.Get")
	}
	return &b, nil
}

func (r bookingRepo) TransitionStatus(
	_ context.Context,
	id int64,
	from, to domain.BookingStatus,
	declineMessage *string,
	at time.Time,
) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	b, ok := r.s.st.bookings[id]
	if !ok || b.Status != from {
		return false, nil
	}
	b.Status = to
	b.DeclineMessage = declineMessage
	b.RespondedAt = &at
	r.s.st.bookings[id] = b
	return true, nil
}

func (r bookingRepo) ListByArtist(_ context.Context, artistID int64) ([]domain.BookingRequestView, error) {
	return r.list(func(b domain.BookingRequest) (int64, bool) {
		return b.VenueProfileID, b.ArtistProfileID == artistID
	}, byRequestedDesc), nil
}

func (r bookingRepo) ListByVenue(_ context.Context, venueID int64) ([]domain.BookingRequestView, error) {
	return r.list(func(b domain.BookingRequest) (int64, bool) {
		return b.ArtistProfileID, b.VenueProfileID == venueID
	}, byRequestedDesc), nil
}

func (r bookingRepo) ListDatedForProfile(
	_ context.Context,
	profileID int64,
	from, to domain.Date,
) ([]domain.BookingRequestView, error) {
	return r.list(func(b domain.BookingRequest) (int64, bool) {
		if b.Status != domain.BookingPending && b.Status != domain.BookingAccepted {
			return 0, false
		}
		if b.EventDate == nil || b.EventDate.Before(from.Time) || b.EventDate.After(to.Time) {
			return 0, false
		}
		switch profileID {
		case b.ArtistProfileID:
			return b.VenueProfileID, true
		case b.VenueProfileID:
			return b.ArtistProfileID, true
		}
		return 0, false
	}, byEventDate), nil
}

func (r bookingRepo) list(
	match func(b domain.BookingRequest) (counterpart int64, ok bool),
	less func(a, b domain.BookingRequestView) bool,
) []domain.BookingRequestView {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []domain.BookingRequestView
	for _, b := range r.s.st.bookings {
		cid, ok := match(b)
		if !ok {
			continue
		}
		c, ok := r.s.st.profiles[cid]
		if !ok {
			continue
		}
		out = append(out, domain.BookingRequestView{BookingRequest: b, Counterpart: c.Card()})
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func byRequestedDesc(a, b domain.BookingRequestView) bool {
	if !a.RequestedAt.Equal(b.RequestedAt) {
		return a.RequestedAt.After(b.RequestedAt)
	}
	return a.ID > b.ID
}

func byEventDate(a, b domain.BookingRequestView) bool {
	if !a.EventDate.Equal(b.EventDate.Time) {
		return a.EventDate.Before(b.EventDate.Time)
	}
	return a.ID < b.ID
}

type calendarRepo struct{ s *Store }

func (r calendarRepo) Create(_ context.Context, e *domain.CalendarEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	e.ID = r.s.nextID()
	r.s.st.events[e.ID] = *e
	return nil
}

func (r calendarRepo) Get(_ context.Context, id int64) (*domain.CalendarEvent, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	e, ok := r.s.st.events[id]
	if !ok {
		return nil, notFound("memory.CalendarRepo.Get")
	}
	return &e, nil
}

func (r calendarRepo) ListForProfile(
	_ context.Context,
	profileID int64,
	from, to domain.Date,
) ([]domain.CalendarEvent, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []domain.CalendarEvent
	for _, e := range r.s.st.events {
		if e.ProfileID != profileID || e.Date.Before(from.Time) || e.Date.After(to.Time) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.Before(out[j].Date.Time)
		}
		if out[i].StartTime != out[j].StartTime {
			return out[i].StartTime < out[j].StartTime
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r calendarRepo) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.st.events[id]; !ok {
		return notFound("memory.CalendarRepo.Delete")
	}
	delete(r.s.st.events, id)
	return nil
}

type contractRepo struct{ s *Store }

func cloneProposal(p domain.ContractProposal) domain.ContractProposal {
	p.Terms.Performers = slices.Clone(p.Terms.Performers)
	p.Payment.Schedule = slices.Clone(p.Payment.Schedule)
	p.Requirements.Documents = slices.Clone(p.Requirements.Documents)
	p.Attachments = slices.Clone(p.Attachments)
	return p
}

func (r contractRepo) Create(_ context.Context, p *domain.ContractProposal) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.st.bookings[p.BookingRequestID]; !ok {
		return notFound("memory.ContractRepo.Create")
	}

	p.ID = r.s.nextID()
	p.UpdatedAt = p.CreatedAt
	r.s.st.proposals[p.ID] = cloneProposal(*p)
	return nil
}

func (r contractRepo) Get(_ context.Context, id int64) (*domain.ContractProposal, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.st.proposals[id]
	if !ok {
		return nil, notFound("memory.ContractRepo.Get")
	}
	p = cloneProposal(p)
	return &p, nil
}

func (r contractRepo) ListForProfile(_ context.Context, profileID int64) ([]domain.ContractProposal, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []domain.ContractProposal
	for _, p := range r.s.st.proposals {
		if p.Party(profileID) {
			out = append(out, cloneProposal(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (r contractRepo) TransitionStatus(
	_ context.Context,
	id int64,
	from []domain.ProposalStatus,
	to domain.ProposalStatus,
	at time.Time,
) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.st.proposals[id]
	if !ok || !slices.Contains(from, p.Status) {
		return false, nil
	}
	p.Status = to
	p.UpdatedAt = at
	switch to {
	case domain.ProposalAccepted:
		p.AcceptedAt = &at
	case domain.ProposalRejected:
		p.RejectedAt = &at
	}
	r.s.st.proposals[id] = p
	return true, nil
}

func (r contractRepo) ExpireDue(_ context.Context, now time.Time, profileID int64) ([]int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var ids []int64
	for id, p := range r.s.st.proposals {
		if !p.Due(now) || (profileID != 0 && !p.Party(profileID)) {
			continue
		}
		p.Status = domain.ProposalExpired
		p.UpdatedAt = now
		r.s.st.proposals[id] = p
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

func (r contractRepo) AddNegotiation(_ context.Context, n *domain.ContractNegotiation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.st.proposals[n.ProposalID]; !ok {
		return notFound("memory.ContractRepo.AddNegotiation")
	}
	n.ID = r.s.nextID()
	r.s.st.negotiations = append(r.s.st.negotiations, *n)
	return nil
}

func (r contractRepo) ListNegotiations(_ context.Context, proposalID int64) ([]domain.ContractNegotiation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []domain.ContractNegotiation
	for _, n := range r.s.st.negotiations {
		if n.ProposalID == proposalID {
			out = append(out, n)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r contractRepo) AddSignature(_ context.Context, sig *domain.ContractSignature) error {
	const op = "memory.ContractRepo.AddSignature"

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.st.signatures {
		if existing.ProposalID == sig.ProposalID && existing.ProfileID == sig.ProfileID {
			return fmt.Errorf("%s:%w", op, repository.ErrConflict)
		}
	}
	sig.ID = r.s.nextID()
	r.s.st.signatures = append(r.s.st.signatures, *sig)
	return nil
}

func (r contractRepo) ListSignatures(_ context.Context, proposalID int64) ([]domain.ContractSignature, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []domain.ContractSignature
	for _, sig := range r.s.st.signatures {
		if sig.ProposalID == proposalID {
			out = append(out, sig)
		}
	}
	return out, nil
}

type notificationRepo struct{ s *Store }

func (r notificationRepo) Create(_ context.Context, n *domain.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	n.ID = r.s.nextID()
	r.s.st.notifications[n.ID] = *n
	return nil
}

func (r notificationRepo) ListForUser(_ context.Context, userID int64, limit, offset int) ([]domain.Notification, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []domain.Notification
	for _, n := range r.s.st.notifications {
		if n.RecipientUserID == userID {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})

	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r notificationRepo) MarkRead(_ context.Context, id, userID int64, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	n, ok := r.s.st.notifications[id]
	if !ok || n.RecipientUserID != userID {
		return notFound("memory.NotificationRepo.MarkRead")
	}
	if n.ReadAt == nil {
		n.ReadAt = &at
		r.s.st.notifications[id] = n
	}
	return nil
}

func (r notificationRepo) DeleteForBooking(
	_ context.Context,
	kind domain.NotificationKind,
	recipientUserID, bookingRequestID int64,
) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for id, notif := range r.s.st.notifications {
		if notif.Kind == kind && notif.RecipientUserID == recipientUserID &&
			notif.BookingRequestID != nil && *notif.BookingRequestID == bookingRequestID {
			delete(r.s.st.notifications, id)
			n++
		}
	}
	return n, nil
}

var _ repository.Store = (*Store)(nil)
