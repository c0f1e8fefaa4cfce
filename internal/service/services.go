package service

import (
	"github.com/kirinyoku/gigbook/internal/notify"
	redisx "github.com/kirinyoku/gigbook/internal/redis"
	"github.com/kirinyoku/gigbook/internal/repository"
	redis "github.com/kirinyoku/gigbook/internal/repository/redis"
	"github.com/kirinyoku/gigbook/internal/service/availability"
	"github.com/kirinyoku/gigbook/internal/service/bookings"
	"github.com/kirinyoku/gigbook/internal/service/calendar"
	"github.com/kirinyoku/gigbook/internal/service/contracts"
	"github.com/kirinyoku/gigbook/internal/service/inbox"
	"github.com/kirinyoku/gigbook/internal/service/profiles"
	"github.com/rs/zerolog"
)

type Services struct {
	Profiles     *profiles.Service
	Calendar     *calendar.Service
	Availability *availability.Service
	Bookings     *bookings.Service
	Contracts    *contracts.Service
	Inbox        *inbox.Service
}

type Config struct {
	Profiles profiles.Config
}

type Deps struct {
	Store      repository.Store
	Cache      *redis.Cache
	PubSub     *redisx.NotificationsPubSub
	Limiter    *redis.SlidingWindowLimiter
	Dispatcher *notify.Dispatcher
}

func NewServices(deps Deps, log zerolog.Logger, cfg Config) *Services {
	bookingDeps := bookings.Deps{}
	if deps.Dispatcher != nil {
		bookingDeps.Notifier = deps.Dispatcher
	}
	if deps.Limiter != nil {
		bookingDeps.Limiter = deps.Limiter
	}

	var (
		invalidator calendar.Invalidator
		monthCache  availability.MonthCache
		notifier    contracts.Notifier
		subscriber  inbox.Subscriber
	)
	if deps.Cache != nil {
		invalidator = deps.Cache
		monthCache = deps.Cache
		bookingDeps.Cache = deps.Cache
	}
	if deps.Dispatcher != nil {
		notifier = deps.Dispatcher
	}
	if deps.PubSub != nil {
		subscriber = deps.PubSub
	}

	return &Services{
		Profiles:     profiles.New(deps.Store, cfg.Profiles),
		Calendar:     calendar.New(deps.Store, invalidator, log),
		Availability: availability.New(deps.Store, monthCache),
		Bookings:     bookings.New(deps.Store, bookingDeps, log),
		Contracts:    contracts.New(deps.Store, notifier, invalidator, log),
		Inbox:        inbox.New(deps.Store, subscriber),
	}
}
