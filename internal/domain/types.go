package domain

import (
	"time"
)

type ProfileType string

const (
	ProfileArtist   ProfileType = "artist"
	ProfileVenue    ProfileType = "venue"
	ProfileAudience ProfileType = "audience"
)

func (t ProfileType) Valid() bool {
	switch t {
	case ProfileArtist, ProfileVenue, ProfileAudience:
		return true
	}
	return false
}

type Profile struct {
	ID        int64       `json:"id"`
	UserID    int64       `json:"user_id"`
	Type      ProfileType `json:"type"`
	Name      string      `json:"name"`
	Location  string      `json:"location,omitempty"`
	Bio       string      `json:"bio,omitempty"`
	ImageURL  string      `json:"image_url,omitempty"`
	IsActive  bool        `json:"is_active"`
	CreatedAt time.Time   `json:"created_at"`
	DeletedAt *time.Time  `json:"deleted_at,omitempty"`
}

// ProfileCard is the display subset of a counterpart profile.
type ProfileCard struct {
	ID       int64       `json:"id"`
	Type     ProfileType `json:"type"`
	Name     string      `json:"name"`
	ImageURL string      `json:"image_url,omitempty"`
	Location string      `json:"location,omitempty"`
	Bio      string      `json:"bio,omitempty"`
}

func (p Profile) Card() ProfileCard {
	return ProfileCard{
		ID:       p.ID,
		Type:     p.Type,
		Name:     p.Name,
		ImageURL: p.ImageURL,
		Location: p.Location,
		Bio:      p.Bio,
	}
}

type BookingStatus string

const (
	BookingPending  BookingStatus = "pending"
	BookingAccepted BookingStatus = "accepted"
	BookingRejected BookingStatus = "rejected"
)

func (s BookingStatus) Terminal() bool {
	return s == BookingAccepted || s == BookingRejected
}

type BookingRequest struct {
	ID              int64         `json:"id"`
	ArtistProfileID int64         `json:"artist_profile_id"`
	VenueProfileID  int64         `json:"venue_profile_id"`
	Status          BookingStatus `json:"status"`
	RequestedAt     time.Time     `json:"requested_at"`
	EventDate       *Date         `json:"event_date,omitempty"`
	EventTime       *string       `json:"event_time,omitempty"`
	Budget          *string       `json:"budget,omitempty"`
	Requirements    *string       `json:"requirements,omitempty"`
	Message         *string       `json:"message,omitempty"`
	DeclineMessage  *string       `json:"decline_message,omitempty"`
	RespondedAt     *time.Time    `json:"responded_at,omitempty"`
}

type BookingRequestView struct {
	BookingRequest
	Counterpart ProfileCard `json:"counterpart"`
}

type EventType string

const (
	EventBooking     EventType = "booking"
	EventShow        EventType = "event"
	EventRehearsal   EventType = "rehearsal"
	EventMeeting     EventType = "meeting"
	EventUnavailable EventType = "unavailable"
)

func (t EventType) Valid() bool {
	switch t {
	case EventBooking, EventShow, EventRehearsal, EventMeeting, EventUnavailable:
		return true
	}
	return false
}

type EventStatus string

const (
	EventConfirmed EventStatus = "confirmed"
	EventPending   EventStatus = "pending"
	EventCancelled EventStatus = "cancelled"
)

func (s EventStatus) Valid() bool {
	switch s {
	case EventConfirmed, EventPending, EventCancelled:
		return true
	}
	return false
}

type CalendarEvent struct {
	ID               int64       `json:"id"`
	ProfileID        int64       `json:"profile_id"`
	Title            string      `json:"title"`
	Date             Date        `json:"date"`
	StartTime        string      `json:"start_time,omitempty"`
	EndTime          string      `json:"end_time,omitempty"`
	Type             EventType   `json:"type"`
	Status           EventStatus `json:"status"`
	Client           string      `json:"client,omitempty"`
	Location         string      `json:"location,omitempty"`
	Notes            string      `json:"notes,omitempty"`
	Budget           string      `json:"budget,omitempty"`
	IsPrivate        bool        `json:"is_private"`
	BookingRequestID *int64      `json:"booking_request_id,omitempty"`
	Synthetic        bool        `json:"synthetic"`
}

// BlocksAvailability reports whether the event makes its profile unavailable
// for the day.
func (e CalendarEvent) BlocksAvailability() bool {
	if e.Type == EventUnavailable {
		return true
	}
	return e.Status == EventConfirmed && (e.Type == EventBooking || e.Type == EventShow)
}

type AvailabilityState string

const (
	AvailabilityBothUnavailable   AvailabilityState = "both-unavailable"
	AvailabilityArtistUnavailable AvailabilityState = "artist-unavailable"
	AvailabilityVenueUnavailable  AvailabilityState = "venue-unavailable"
	AvailabilityHasEvents         AvailabilityState = "has-events"
	AvailabilityAvailable         AvailabilityState = "available"
)

type DayAvailability struct {
	Date         Date              `json:"date"`
	State        AvailabilityState `json:"state"`
	ArtistEvents []CalendarEvent   `json:"artist_events"`
	VenueEvents  []CalendarEvent   `json:"venue_events"`
}
