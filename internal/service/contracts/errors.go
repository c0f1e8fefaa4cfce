package contracts

import (
	"errors"

	"github.com/kirinyoku/gigbook/internal/domain"
	"github.com/kirinyoku/gigbook/internal/repository"
)

var (
	ErrTargetRequired = domain.ValidationError{Field: "booking_request_id", Reason: "exactly one of booking_request_id or venue_id is required"}
	ErrTitleRequired  = domain.ValidationError{Field: "title", Reason: "required"}
	ErrExpiryInPast   = domain.ValidationError{Field: "expires_at", Reason: "must be in the future"}
	ErrMessageMissing = domain.ValidationError{Field: "message", Reason: "required"}
	ErrNotVenue       = domain.ValidationError{Field: "venue_id", Reason: "does not resolve to a venue profile"}
)

func proposalNotFound(err error, id int64) error {
	if errors.Is(err, repository.ErrNotFound) {
		return domain.NotFoundError{Entity: "contract proposal", ID: id}
	}
	return err
}

func stateErr(p *domain.ContractProposal, action string) domain.StateError {
	return domain.StateError{Entity: "contract proposal", ID: p.ID, Current: string(p.Status), Action: action}
}
