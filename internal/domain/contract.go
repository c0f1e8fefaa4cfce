package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type ProposalStatus string

const (
	ProposalPending     ProposalStatus = "pending"
	ProposalNegotiating ProposalStatus = "negotiating"
	ProposalAccepted    ProposalStatus = "accepted"
	ProposalRejected    ProposalStatus = "rejected"
	ProposalExpired     ProposalStatus = "expired"
)

// OpenProposalStatuses are the states from which a proposal can still move.
var OpenProposalStatuses = []ProposalStatus{ProposalPending, ProposalNegotiating}

func (s ProposalStatus) Open() bool {
	return s == ProposalPending || s == ProposalNegotiating
}

const (
	RoleHeadliner = "Headliner"
	RoleSupport   = "Support"
)

type PerformerRole struct {
	ID                  string `json:"id"`
	Name                string `json:"name"`
	Role                string `json:"role"`
	ProfileID           *int64 `json:"profile_id,omitempty"`
	PerformanceOrder    int    `json:"performance_order"`
	SetMinutes          int    `json:"set_minutes,omitempty"`
	SoundcheckMinutes   int    `json:"soundcheck_minutes,omitempty"`
	SetupMinutes        int    `json:"setup_minutes,omitempty"`
	PaymentAmount       string `json:"payment_amount,omitempty"`
	SpecialRequirements string `json:"special_requirements,omitempty"`
}

// IsHeadliner accepts untagged legacy slots whose name is "Headliner".
func (p PerformerRole) IsHeadliner() bool {
	if p.Role != "" {
		return p.Role == RoleHeadliner
	}
	return p.Name == RoleHeadliner
}

type Timing struct {
	EventDate  *Date  `json:"event_date,omitempty"`
	LoadIn     string `json:"load_in,omitempty"`
	Soundcheck string `json:"soundcheck,omitempty"`
	DoorsOpen  string `json:"doors_open,omitempty"`
	SetStart   string `json:"set_start,omitempty"`
	SetEnd     string `json:"set_end,omitempty"`
	Curfew     string `json:"curfew,omitempty"`
}

type Clauses struct {
	Hospitality  string `json:"hospitality,omitempty"`
	Technical    string `json:"technical,omitempty"`
	Cancellation string `json:"cancellation,omitempty"`
	ForceMajeure string `json:"force_majeure,omitempty"`
	Insurance    string `json:"insurance,omitempty"`
	Merchandise  string `json:"merchandise,omitempty"`
	Recording    string `json:"recording,omitempty"`
}

type RadiusClause struct {
	Enabled         bool   `json:"enabled"`
	Distance        string `json:"distance,omitempty"`
	DistanceUnit    string `json:"distance_unit,omitempty"`
	TimeRestriction string `json:"time_restriction,omitempty"`
	TimeUnit        string `json:"time_unit,omitempty"`
	Summary         string `json:"summary,omitempty"`
}

const RadiusPlaceholder = "Radius clause details to be confirmed."

// Summarize renders the human readable clause. It is display-only: missing
// distance or time restriction yields the placeholder.
func (r RadiusClause) Summarize() string {
	if !r.Enabled {
		return ""
	}

	distance := strings.TrimSpace(r.Distance)
	period := strings.TrimSpace(r.TimeRestriction)
	if distance == "" || period == "" {
		return RadiusPlaceholder
	}

	distUnit := r.DistanceUnit
	if distUnit == "" {
		distUnit = "miles"
	}
	timeUnit := r.TimeUnit
	if timeUnit == "" {
		timeUnit = "days"
	}

	return fmt.Sprintf(
		"Artist agrees not to perform within %s %s of the venue for %s %s before and after the event.",
		distance, distUnit, period, timeUnit,
	)
}

type Terms struct {
	Timing       Timing          `json:"timing"`
	Performers   []PerformerRole `json:"performers"`
	Clauses      Clauses         `json:"clauses"`
	RadiusClause RadiusClause    `json:"radius_clause"`
}

type Installment struct {
	Label  string `json:"label"`
	Amount string `json:"amount"`
	DueOn  *Date  `json:"due_on,omitempty"`
}

type Payment struct {
	TotalAmount   string        `json:"total_amount"`
	Currency      string        `json:"currency,omitempty"`
	Deposit       string        `json:"deposit,omitempty"`
	DepositDue    *Date         `json:"deposit_due,omitempty"`
	BalanceDue    *Date         `json:"balance_due,omitempty"`
	Schedule      []Installment `json:"schedule,omitempty"`
	Method        string        `json:"method,omitempty"`
	PaymentTerms  string        `json:"payment_terms,omitempty"`
	IncludesTaxes bool          `json:"includes_taxes"`
}

type RequiredDocument struct {
	Name     string `json:"name"`
	Required bool   `json:"required"`
	Provided bool   `json:"provided"`
}

type Requirements struct {
	Documents []RequiredDocument `json:"documents,omitempty"`
	Notes     string             `json:"notes,omitempty"`
}

type Attachment struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Type string `json:"type,omitempty"`
}

type ContractProposal struct {
	ID               int64          `json:"id"`
	BookingRequestID int64          `json:"booking_request_id"`
	ProposedBy       int64          `json:"proposed_by"`
	ProposedTo       int64          `json:"proposed_to"`
	Title            string         `json:"title"`
	Description      string         `json:"description,omitempty"`
	Terms            Terms          `json:"terms"`
	Payment          Payment        `json:"payment"`
	Requirements     Requirements   `json:"requirements"`
	Attachments      []Attachment   `json:"attachments"`
	Status           ProposalStatus `json:"status"`
	ExpiresAt        *time.Time     `json:"expires_at,omitempty"`
	AcceptedAt       *time.Time     `json:"accepted_at,omitempty"`
	RejectedAt       *time.Time     `json:"rejected_at,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// Due reports whether an open proposal has passed its expiry at now.
func (p ContractProposal) Due(now time.Time) bool {
	return p.Status.Open() && p.ExpiresAt != nil && !now.Before(*p.ExpiresAt)
}

// Party reports whether profileID is the proposer or the recipient.
func (p ContractProposal) Party(profileID int64) bool {
	return profileID == p.ProposedBy || profileID == p.ProposedTo
}

// Counterparty returns the other side of the proposal for a party.
func (p ContractProposal) Counterparty(profileID int64) int64 {
	if profileID == p.ProposedBy {
		return p.ProposedTo
	}
	return p.ProposedBy
}

type ContractNegotiation struct {
	ID              int64           `json:"id"`
	ProposalID      int64           `json:"proposal_id"`
	ProfileID       int64           `json:"profile_id"`
	Message         string          `json:"message"`
	ProposedChanges json.RawMessage `json:"proposed_changes,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

type ContractSignature struct {
	ID         int64     `json:"id"`
	ProposalID int64     `json:"proposal_id"`
	ProfileID  int64     `json:"profile_id"`
	IPAddress  string    `json:"ip_address,omitempty"`
	UserAgent  string    `json:"user_agent,omitempty"`
	SignedAt   time.Time `json:"signed_at"`
}

type ContractDetail struct {
	Proposal     ContractProposal      `json:"proposal"`
	Negotiations []ContractNegotiation `json:"negotiations"`
	Signatures   []ContractSignature   `json:"signatures"`
}
