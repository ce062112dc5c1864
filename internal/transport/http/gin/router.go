package httpgin

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/kirinyoku/skyseat/internal/domain"
	redisrepo "github.com/kirinyoku/skyseat/internal/repository/redis"
	"github.com/kirinyoku/skyseat/internal/service"
	"github.com/kirinyoku/skyseat/internal/service/admin"
	"github.com/kirinyoku/skyseat/internal/service/query"
	"github.com/kirinyoku/skyseat/internal/service/reservation"
	"github.com/kirinyoku/skyseat/internal/service/users"
	"github.com/kirinyoku/skyseat/internal/subscription"
	"github.com/kirinyoku/skyseat/internal/transport/websocket"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

const (
	defaultSubscribeTimeout = 30 * time.Second
	maxCatalogBytes         = 1 << 20
)

// Options carries the optional collaborators of the router. Nil fields
// disable the routes that need them, except Idempotency which only turns off
// replay of create-booking requests.
type Options struct {
	Idempotency      *redisrepo.IdempotencyStore
	Subscriptions    *subscription.Manager
	Hub              *websocket.Hub
	SubscribeTimeout time.Duration
	AdminToken       string
	SecureCookies    bool
}

func NewRouter(
	svcs *service.Services,
	opts Options,
	logger *slog.Logger,
	middlewares ...gin.HandlerFunc,
) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery(), LoggingMiddleware(logger), RequestIDMiddleware(), CORS())
	for _, m := range middlewares {
		if m != nil {
			r.Use(m)
		}
	}

	if opts.SubscribeTimeout <= 0 {
		opts.SubscribeTimeout = defaultSubscribeTimeout
	}

	// Swagger UI
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// health
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	auth := AuthMiddleware(svcs.Users)

	r.POST("/users", handleCreateUser(svcs))
	r.POST("/users/login", handleLogin(svcs, opts.SecureCookies))
	r.GET("/users/logout", handleLogout(svcs, opts.SecureCookies))

	r.GET("/flights", handleSearchFlights(svcs))
	r.GET("/flights/:id/booking-info", handleBookingInfo(svcs))
	if opts.Subscriptions != nil {
		r.POST("/flights/:id/subscribe", auth, handleSubscribe(opts.Subscriptions, opts.SubscribeTimeout))
	}
	if opts.Hub != nil {
		r.GET("/flights/:id/events", handleFlightEvents(opts.Hub))
	}

	bookings := r.Group("/bookings", auth)
	{
		bookings.POST("", handleCreateBooking(svcs, opts.Idempotency))
		bookings.GET("", handleListBookings(svcs))
		bookings.GET("/:id", handleGetBooking(svcs))
		bookings.DELETE("/:id", handleCancelBooking(svcs))
	}

	adminAPI := r.Group("/admin", AdminMiddleware(opts.AdminToken))
	{
		adminAPI.POST("/catalog", handleImportCatalog(svcs))
	}

	return r
}

// --- Handlers with Swagger annotations ---

// @Summary  Create user
// @Param    req body  CreateUserRequest true "payload"
// @Success  201 {object} CreateUserResponse
// @Failure  400 {object} ErrorResponse
// @Failure  409 {object} ErrorResponse "username taken"
// @Router   /users [post]
func handleCreateUser(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateUserRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		id, err := svcs.Users.Register(c.Request.Context(), req.Username, req.Password)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.Header("Location", "/users/"+strconv.FormatInt(id, 10))
		c.JSON(http.StatusCreated, CreateUserResponse{UserID: id})
	}
}

// @Summary  Log in, sets the authToken cookie
// @Param    req body  LoginRequest true "payload"
// @Success  204
// @Failure  401 {object} ErrorResponse
// @Router   /users/login [post]
func handleLogin(svcs *service.Services, secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		token, err := svcs.Users.Login(c.Request.Context(), req.Username, req.Password)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(authCookie, token, 0, "/", "", secure, true)
		c.Status(http.StatusNoContent)
	}
}

// @Summary  Log out, expires the authToken cookie
// @Success  204
// @Router   /users/logout [get]
func handleLogout(svcs *service.Services, secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, err := c.Cookie(authCookie); err == nil && token != "" {
			if u, err := svcs.Users.Authenticate(c.Request.Context(), token); err == nil {
				if err := svcs.Users.Logout(c.Request.Context(), u.ID); err != nil {
					respondErr(c, err)
					return
				}
			}
		}
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(authCookie, "", -1, "/", "", secure, true)
		c.Status(http.StatusNoContent)
	}
}

// @Summary  Search flights
// @Param    origin         query  string  true   "origin airport code or name"
// @Param    destination    query  string  true   "destination airport code or name"
// @Param    departureDate  query  string  false  "YYYY-MM-DD, origin local time"
// @Param    dayRange       query  int     false  "days either side of departureDate"
// @Success  200  {array}   FlightResponse
// @Failure  400  {object}  ErrorResponse
// @Router   /flights [get]
func handleSearchFlights(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		params := query.SearchParams{
			Origin:        c.Query("origin"),
			Destination:   c.Query("destination"),
			DepartureDate: c.Query("departureDate"),
		}
		if s := c.Query("dayRange"); s != "" {
			v, err := strconv.Atoi(s)
			if err != nil {
				badRequest(c, "invalid dayRange")
				return
			}
			params.DayRange = v
		}

		flights, err := svcs.Query.SearchFlights(c.Request.Context(), params)
		if err != nil {
			respondErr(c, err)
			return
		}

		resp := make([]FlightResponse, 0, len(flights))
		for _, f := range flights {
			resp = append(resp, toFlightResponse(f))
		}
		// ETag + Cache-Control 15s
		writeJSONWithCache(c, http.StatusOK, resp, "public, max-age=15", true)
	}
}

// @Summary  Booked seats, remaining seats and zones of a flight
// @Param    id  path  int  true  "Flight ID"
// @Success  200  {object}  BookingInfoResponse
// @Failure  404  {object}  ErrorResponse
// @Router   /flights/{id}/booking-info [get]
func handleBookingInfo(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		flightID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		info, err := svcs.Query.BookingInfo(c.Request.Context(), flightID)
		if err != nil {
			respondErr(c, err)
			return
		}
		// ETag + no-cache: clients revalidate every time
		writeJSONWithCache(c, http.StatusOK, toBookingInfoResponse(info), "no-cache", true)
	}
}

// @Summary  Wait until a flight has enough free seats (long-poll)
// @Param    id  path  int  true  "Flight ID"
// @Param    req body  SubscribeRequest false "payload"
// @Success  200  {object}  SubscribeResponse
// @Success  204  "timed out"
// @Failure  404  {object}  ErrorResponse
// @Router   /flights/{id}/subscribe [post]
func handleSubscribe(subs *subscription.Manager, timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		flightID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		req := SubscribeRequest{Seats: 1}
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				badRequest(c, err.Error())
				return
			}
		}
		if req.Seats < 1 {
			badRequest(c, "seats must be positive")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		free, err := subs.Wait(ctx, flightID, req.Seats)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				c.Status(http.StatusNoContent)
				return
			}
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, SubscribeResponse{FlightID: flightID, SeatsRemaining: free})
	}
}

// @Summary  Websocket stream of flight-changed messages
// @Param    id  path  int  true  "Flight ID"
// @Router   /flights/{id}/events [get]
func handleFlightEvents(hub *websocket.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		flightID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		hub.Serve(c.Writer, c.Request, flightID)
	}
}

// @Summary  Book seats (idempotent)
// @Param    req body  CreateBookingRequest true "payload"
// @Header   201 {string} Idempotency-Key "echo"
// @Header   201 {string} Location "/bookings/{id}"
// @Success  201 {object} BookingResponse
// @Failure  400 {object} ErrorResponse
// @Failure  401 {object} ErrorResponse
// @Failure  404 {object} ErrorResponse "flight not found"
// @Failure  409 {object} ErrorResponse "empty request / invalid seat / seat unavailable / busy"
// @Failure  429 {object} ErrorResponse "rate limited"
// @Router   /bookings [post]
func handleCreateBooking(
	svcs *service.Services,
	idem *redisrepo.IdempotencyStore,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateBookingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		userID := currentUserID(c)

		idemKey := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
		var idemStorageKey string
		if idem != nil && idemKey != "" {
			idemStorageKey = redisrepo.KeyIdemBooking(userID, idemKey)

			if payload, ok, _ := idem.GetResult(
				c.Request.Context(),
				idemStorageKey,
			); ok {
				replayBooking(c, idemKey, payload)
				return
			}

			locked, err := idem.AcquireLock(
				c.Request.Context(),
				idemStorageKey,
				60*time.Second,
			)
			if err != nil {
				respondErr(c, err)
				return
			}
			if !locked {
				if payload, ok, _ := idem.GetResult(
					c.Request.Context(),
					idemStorageKey,
				); ok {
					replayBooking(c, idemKey, payload)
					return
				}
				c.Header("Retry-After", "1")
				c.JSON(
					http.StatusConflict,
					ErrorResponse{Error: "idempotency key in progress"},
				)
				return
			}
		}

		rlKey := "user:" + strconv.FormatInt(userID, 10)

		b, err := svcs.Reservation.MakeBooking(
			c.Request.Context(),
			userID,
			req.FlightID,
			req.Seats,
			rlKey,
		)
		if err != nil {
			if idemStorageKey != "" {
				_ = idem.Release(c.Request.Context(), idemStorageKey)
			}
			respondErr(c, err)
			return
		}

		resp := toBookingResponse(b)

		if idemStorageKey != "" {
			payload, _ := json.Marshal(resp)
			_ = idem.SaveResult(c.Request.Context(), idemStorageKey, string(payload))
			c.Header("Idempotency-Key", idemKey)
		}

		c.Header("Location", "/bookings/"+resp.ID)
		c.JSON(http.StatusCreated, resp)
	}
}

// @Summary  List the current user's bookings
// @Success  200  {array}   BookingResponse
// @Failure  401  {object}  ErrorResponse
// @Router   /bookings [get]
func handleListBookings(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := svcs.Bookings.List(c.Request.Context(), currentUserID(c))
		if err != nil {
			respondErr(c, err)
			return
		}
		resp := make([]BookingResponse, 0, len(list))
		for _, b := range list {
			resp = append(resp, toBookingResponse(b))
		}
		c.JSON(http.StatusOK, resp)
	}
}

// @Summary  Get booking
// @Param    id  path  string  true  "Booking ID (uuid)"
// @Success  200  {object}  BookingResponse
// @Failure  404  {object}  ErrorResponse
// @Router   /bookings/{id} [get]
func handleGetBooking(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		b, err := svcs.Bookings.Get(c.Request.Context(), currentUserID(c), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, toBookingResponse(b))
	}
}

// @Summary  Cancel booking
// @Param    id  path  string  true  "Booking ID (uuid)"
// @Success  204
// @Failure  404  {object}  ErrorResponse
// @Failure  409  {object}  ErrorResponse "busy"
// @Router   /bookings/{id} [delete]
func handleCancelBooking(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		if _, err := svcs.Reservation.CancelBooking(c.Request.Context(), currentUserID(c), id); err != nil {
			respondErr(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// @Summary  Import a YAML catalog of airports, aircraft types and flights
// @Accept   application/x-yaml
// @Success  201  {object}  ImportCatalogResponse
// @Failure  400  {object}  ErrorResponse
// @Failure  409  {object}  ErrorResponse
// @Router   /admin/catalog [post]
func handleImportCatalog(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		body := http.MaxBytesReader(c.Writer, c.Request.Body, maxCatalogBytes)
		cat, err := svcs.Admin.ImportYAML(c.Request.Context(), body)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, ImportCatalogResponse{
			Airports:      len(cat.Airports),
			AircraftTypes: len(cat.AircraftTypes),
			Flights:       len(cat.Flights),
		})
	}
}

// --- Helpers ---

func parseInt64Param(c *gin.Context, name string) (int64, bool) {
	s := c.Param(name)
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return v, true
}

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	v, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, "invalid "+name)
		return uuid.Nil, false
	}
	return v, true
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

func replayBooking(c *gin.Context, idemKey, payload string) {
	var resp BookingResponse
	if err := json.Unmarshal([]byte(payload), &resp); err == nil && resp.ID != "" {
		c.Header("Location", "/bookings/"+resp.ID)
	}
	c.Header("Idempotency-Key", idemKey)
	c.Data(
		http.StatusCreated,
		"application/json; charset=utf-8",
		[]byte(payload),
	)
}

func respondErr(c *gin.Context, err error) {
	if err == nil {
		c.Status(http.StatusNoContent)
		return
	}

	var seatErr *domain.SeatError
	var rlErr reservation.RateLimitedError

	switch {
	// reservation service
	case errors.As(err, &rlErr):
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(rlErr.RetryAfter.Seconds()))))
		c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: "rate limited"})
		return
	case errors.Is(err, reservation.ErrRateLimited):
		c.Header("Retry-After", "60")
		c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: "rate limited"})
		return
	case errors.As(err, &seatErr):
		c.JSON(http.StatusConflict, ErrorResponse{Error: seatErr.Err.Error(), Seat: seatErr.Seat})
		return
	case errors.Is(err, reservation.ErrEmptyRequest):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "no seats requested"})
		return
	case errors.Is(err, reservation.ErrInvalidSeat):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "invalid seat"})
		return
	case errors.Is(err, reservation.ErrSeatUnavailable):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "seat unavailable"})
		return
	case errors.Is(err, reservation.ErrLockTimeout):
		c.Header("Retry-After", "1")
		c.JSON(http.StatusConflict, ErrorResponse{Error: "flight is busy, try again"})
		return
	case errors.Is(err, reservation.ErrFlightNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "flight not found"})
		return
	case errors.Is(err, reservation.ErrBookingNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "booking not found"})
		return
	// query service
	case errors.Is(err, query.ErrFlightNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "flight not found"})
		return
	case errors.Is(err, query.ErrInvalidQuery):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	// users service
	case errors.Is(err, users.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	case errors.Is(err, users.ErrUsernameTaken):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "username already taken"})
		return
	case errors.Is(err, users.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "username and password are required"})
		return
	// admin service
	case errors.Is(err, admin.ErrInvalidCatalog):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	case errors.Is(err, admin.ErrCatalogConflict):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "catalog conflicts with existing bookings"})
		return
	}

	// LoggingMiddleware logs errors attached to the context.
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}
