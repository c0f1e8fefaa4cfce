package bookings

import (
	"errors"

	"github.com/kirinyoku/gigbook/internal/domain"
	"github.com/kirinyoku/gigbook/internal/repository"
)

var (
	ErrNotArtist = domain.ValidationError{Field: "profile", Reason: "only artist profiles can send booking requests"}
	ErrNotVenue  = domain.ValidationError{Field: "venue_id", Reason: "does not resolve to a venue profile"}
	ErrBadStatus = domain.ValidationError{Field: "status", Reason: "must be accepted or rejected"}
)

func bookingNotFound(err error, id int64) error {
	if errors.Is(err, repository.ErrNotFound) {
		return domain.NotFoundError{Entity: "booking request", ID: id}
	}
	return err
}

func profileNotFound(err error, id int64) error {
	if errors.Is(err, repository.ErrNotFound) {
		return domain.NotFoundError{Entity: "profile", ID: id}
	}
	return err
}
