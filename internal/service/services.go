package service

import (
	"log/slog"

	"github.com/kirinyoku/skyseat/internal/lock"
	"github.com/kirinyoku/skyseat/internal/notify"
	"github.com/kirinyoku/skyseat/internal/repository"
	redisrepo "github.com/kirinyoku/skyseat/internal/repository/redis"
	"github.com/kirinyoku/skyseat/internal/service/admin"
	"github.com/kirinyoku/skyseat/internal/service/bookings"
	"github.com/kirinyoku/skyseat/internal/service/query"
	"github.com/kirinyoku/skyseat/internal/service/reservation"
	"github.com/kirinyoku/skyseat/internal/service/users"
)

type Services struct {
	Reservation *reservation.Service
	Bookings    *bookings.Service
	Query       *query.Service
	Users       *users.Service
	Admin       *admin.Service
}

type Config struct {
	Query query.Config
}

// Deps are the shared collaborators. Cache and Limiter are nil when Redis is
// not configured.
type Deps struct {
	Store    repository.Store
	Locker   lock.Locker
	Cache    *redisrepo.Cache
	Limiter  *redisrepo.SlidingWindowLimiter
	Notifier notify.Notifier
	Logger   *slog.Logger
}

func NewServices(deps Deps, cfg Config) *Services {
	resDeps := reservation.Deps{
		Notifier: deps.Notifier,
		Logger:   deps.Logger,
	}
	var adminCache admin.Cache
	// Avoid storing typed nil pointers in the interfaces.
	if deps.Cache != nil {
		resDeps.Cache = deps.Cache
		adminCache = deps.Cache
	}
	if deps.Limiter != nil {
		resDeps.Limiter = deps.Limiter
	}

	return &Services{
		Reservation: reservation.New(deps.Store, deps.Locker, resDeps),
		Bookings:    bookings.New(deps.Store),
		Query:       query.New(deps.Store, deps.Cache, cfg.Query),
		Users:       users.New(deps.Store),
		Admin:       admin.New(deps.Store, adminCache, deps.Logger),
	}
}
