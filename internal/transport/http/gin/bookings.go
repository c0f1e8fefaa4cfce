package httpgin

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kirinyoku/gigbook/internal/domain"
	redisrepo "github.com/kirinyoku/gigbook/internal/repository/redis"
	"github.com/kirinyoku/gigbook/internal/service"
	"github.com/kirinyoku/gigbook/internal/service/bookings"
	"github.com/kirinyoku/gigbook/internal/service/calendar"
)

// @Summary  Merged month availability of an artist and a venue
// @Security BearerAuth
// @Param    artistId query int true "Artist profile ID"
// @Param    venueId  query int true "Venue profile ID"
// @Param    month    query int true "1..12"
// @Param    year     query int true "Year"
// @Success  200 {object} map[string]domain.DayAvailability
// @Failure  400 {object} ErrorResponse
// @Router   /v1/availability [get]
func handleGetAvailability(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		days, err := svcs.Availability.GetAvailability(
			c.Request.Context(),
			activeProfile(c).ID,
			parseInt64Default(c.Query("artistId"), 0),
			parseInt64Default(c.Query("venueId"), 0),
			parseIntDefault(c.Query("month"), 0),
			parseIntDefault(c.Query("year"), 0),
		)
		if err != nil {
			respondErr(c, err)
			return
		}
		// per viewer because of redaction, so private caching only
		writeJSONWithCache(c, http.StatusOK, days, "private, max-age=15", true)
	}
}

// @Summary  Add an event to the active profile's calendar
// @Security BearerAuth
// @Param    req body  CreateCalendarEventRequest true "payload"
// @Success  201 {object} domain.CalendarEvent
// @Failure  400 {object} ErrorResponse
// @Router   /v1/calendar/events [post]
func handleCreateCalendarEvent(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateCalendarEventRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		e, err := svcs.Calendar.Create(c.Request.Context(), activeProfile(c).ID, calendar.CreateInput{
			Title:     req.Title,
			Date:      req.Date,
			StartTime: req.StartTime,
			EndTime:   req.EndTime,
			Type:      domain.EventType(req.Type),
			Status:    domain.EventStatus(req.Status),
			Client:    req.Client,
			Location:  req.Location,
			Notes:     req.Notes,
			Budget:    req.Budget,
			IsPrivate: req.IsPrivate,
		})
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, e)
	}
}

// @Summary  List calendar events
// @Security BearerAuth
// @Param    profileId query int    false "Profile ID, defaults to the active profile"
// @Param    from      query string true  "YYYY-MM-DD"
// @Param    to        query string true  "YYYY-MM-DD"
// @Success  200 {array} domain.CalendarEvent
// @Router   /v1/calendar/events [get]
func handleListCalendarEvents(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		viewer := activeProfile(c).ID
		profileID := parseInt64Default(c.Query("profileId"), viewer)

		from, err := domain.ParseDate(c.Query("from"))
		if err != nil {
			badRequest(c, "invalid from (YYYY-MM-DD)")
			return
		}
		to, err := domain.ParseDate(c.Query("to"))
		if err != nil {
			badRequest(c, "invalid to (YYYY-MM-DD)")
			return
		}

		events, err := svcs.Calendar.ListForProfile(c.Request.Context(), viewer, profileID, from, to)
		if err != nil {
			respondErr(c, err)
			return
		}
		if events == nil {
			events = []domain.CalendarEvent{}
		}
		c.JSON(http.StatusOK, events)
	}
}

// @Summary  Delete a calendar event
// @Security BearerAuth
// @Param    id  path  int  true  "Event ID"
// @Success  204
// @Failure  403 {object} ErrorResponse
// @Failure  404 {object} ErrorResponse
// @Router   /v1/calendar/events/{id} [delete]
func handleDeleteCalendarEvent(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		respondErr(c, svcs.Calendar.Delete(c.Request.Context(), activeProfile(c).ID, id))
	}
}

// @Summary  Send a booking request (idempotent)
// @Security BearerAuth
// @Param    req body  CreateBookingRequest true "payload"
// @Header   201 {string} Idempotency-Key "echo"
// @Success  201 {object} domain.BookingRequest
// @Failure  400 {object} ErrorResponse
// @Failure  409 {object} ErrorResponse "idem in progress"
// @Failure  429 {object} ErrorResponse "rate limited"
// @Router   /v1/booking-requests [post]
func handleCreateBookingRequest(svcs *service.Services, idem *redisrepo.IdempotencyStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateBookingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		acting := activeProfile(c).ID
		createOnce(c, idem, "booking", acting, func() (any, error) {
			return svcs.Bookings.Create(c.Request.Context(), acting, bookings.CreateInput{
				VenueID:      req.VenueID,
				EventDate:    req.EventDate,
				EventTime:    req.EventTime,
				Budget:       req.Budget,
				Requirements: req.Requirements,
				Message:      req.Message,
			})
		})
	}
}

// @Summary  List booking requests sent (artist) or received (venue)
// @Security BearerAuth
// @Success  200 {array} domain.BookingRequestView
// @Router   /v1/booking-requests [get]
func handleListBookingRequests(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := activeProfile(c)
		list, err := svcs.Bookings.ListForProfile(c.Request.Context(), p.ID, p.Type)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

// @Summary  Get booking request
// @Security BearerAuth
// @Param    id  path  int  true  "Booking request ID"
// @Success  200 {object} domain.BookingRequest
// @Failure  403 {object} ErrorResponse
// @Failure  404 {object} ErrorResponse
// @Router   /v1/booking-requests/{id} [get]
func handleGetBookingRequest(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		b, err := svcs.Bookings.Get(c.Request.Context(), activeProfile(c).ID, id)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, b)
	}
}

// @Summary  Accept or reject a booking request
// @Security BearerAuth
// @Param    id  path  int  true  "Booking request ID"
// @Param    req body  UpdateBookingStatusRequest true "payload"
// @Success  200 {object} domain.BookingRequest
// @Failure  403 {object} ErrorResponse
// @Failure  409 {object} ErrorResponse "already responded, current_status set"
// @Router   /v1/booking-requests/{id} [patch]
func handleUpdateBookingStatus(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		var req UpdateBookingStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		b, err := svcs.Bookings.UpdateStatus(
			c.Request.Context(),
			id,
			domain.BookingStatus(req.Status),
			activeProfile(c).ID,
			req.DeclineMessage,
		)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, b)
	}
}
