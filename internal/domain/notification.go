package domain

import (
	"time"
)

type NotificationKind string

const (
	NotifyBookingRequested    NotificationKind = "booking_requested"
	NotifyBookingConfirmed    NotificationKind = "booking_confirmed"
	NotifyBookingDeclined     NotificationKind = "booking_declined"
	NotifyContractProposed    NotificationKind = "contract_proposed"
	NotifyContractAccepted    NotificationKind = "contract_accepted"
	NotifyContractRejected    NotificationKind = "contract_rejected"
	NotifyContractNegotiation NotificationKind = "contract_negotiation"
)

type Notification struct {
	ID                 int64            `json:"id"`
	RecipientUserID    int64            `json:"recipient_user_id"`
	RecipientProfileID int64            `json:"recipient_profile_id"`
	SenderProfileID    int64            `json:"sender_profile_id,omitempty"`
	Kind               NotificationKind `json:"kind"`
	Title              string           `json:"title"`
	Message            string           `json:"message"`
	BookingRequestID   *int64           `json:"booking_request_id,omitempty"`
	ContractProposalID *int64           `json:"contract_proposal_id,omitempty"`
	ReadAt             *time.Time       `json:"read_at,omitempty"`
	CreatedAt          time.Time        `json:"created_at"`
}
