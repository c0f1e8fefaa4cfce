package httpgin

import (
	"encoding/json"
	"time"

	"github.com/kirinyoku/gigbook/internal/domain"
)

type CreateProfileRequest struct {
	Type     string `json:"type" binding:"required,oneof=artist venue audience"`
	Name     string `json:"name" binding:"required"`
	Location string `json:"location"`
	Bio      string `json:"bio"`
	ImageURL string `json:"image_url"`
}

type CreateCalendarEventRequest struct {
	Title     string      `json:"title" binding:"required"`
	Date      domain.Date `json:"date"`
	StartTime string      `json:"start_time"`
	EndTime   string      `json:"end_time"`
	Type      string      `json:"type"`
	Status    string      `json:"status"`
	Client    string      `json:"client"`
	Location  string      `json:"location"`
	Notes     string      `json:"notes"`
	Budget    string      `json:"budget"`
	IsPrivate bool        `json:"is_private"`
}

type CreateBookingRequest struct {
	VenueID      int64        `json:"venue_id" binding:"required"`
	EventDate    *domain.Date `json:"event_date"`
	EventTime    *string      `json:"event_time"`
	Budget       *string      `json:"budget"`
	Requirements *string      `json:"requirements"`
	Message      *string      `json:"message"`
}

type UpdateBookingStatusRequest struct {
	Status         string  `json:"status" binding:"required"`
	DeclineMessage *string `json:"decline_message"`
}

type CreateProposalRequest struct {
	BookingRequestID int64               `json:"booking_request_id"`
	VenueID          int64               `json:"venue_id"`
	Title            string              `json:"title"`
	Description      string              `json:"description"`
	Terms            domain.Terms        `json:"terms"`
	Payment          domain.Payment      `json:"payment"`
	Requirements     domain.Requirements `json:"requirements"`
	Attachments      []domain.Attachment `json:"attachments"`
	ExpiresAt        *time.Time          `json:"expires_at"`
}

type RejectProposalRequest struct {
	Reason string `json:"reason"`
}

type NegotiateRequest struct {
	Message         string          `json:"message" binding:"required"`
	ProposedChanges json.RawMessage `json:"proposed_changes"`
}

type LineupAddRequest struct {
	Lineup    []domain.PerformerRole `json:"lineup"`
	Performer domain.PerformerRole   `json:"performer"`
}

type LineupRemoveRequest struct {
	Lineup      []domain.PerformerRole `json:"lineup"`
	PerformerID string                 `json:"performer_id" binding:"required"`
}

type LineupReorderRequest struct {
	Lineup      []domain.PerformerRole `json:"lineup"`
	PerformerID string                 `json:"performer_id" binding:"required"`
	NewOrder    int                    `json:"new_order" binding:"required"`
}

type ErrorResponse struct {
	Error         string `json:"error"`
	CurrentStatus string `json:"current_status,omitempty"`
}

type LineupResponse struct {
	Lineup []domain.PerformerRole `json:"lineup"`
}

