package httpgin_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kirinyoku/skyseat/internal/catalog"
	"github.com/kirinyoku/skyseat/internal/lock"
	"github.com/kirinyoku/skyseat/internal/notify"
	"github.com/kirinyoku/skyseat/internal/repository/memory"
	"github.com/kirinyoku/skyseat/internal/service"
	"github.com/kirinyoku/skyseat/internal/subscription"
	httpgin "github.com/kirinyoku/skyseat/internal/transport/http/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	router *gin.Engine
	subs   *subscription.Manager
}

func newTestServer(t *testing.T, adminToken string) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.NewStore()
	cat, err := catalog.Load("../../../../configs/catalog.yaml")
	require.NoError(t, err)
	require.NoError(t, store.ImportCatalog(context.Background(), cat))

	logger := slog.New(slog.DiscardHandler)

	// The manager needs the query service and the services need the manager
	// as notifier, so the notifier forwards through ts.subs.
	ts := &testServer{}
	svcs := service.NewServices(service.Deps{
		Store:  store,
		Locker: lock.NewLocal(time.Second),
		Notifier: notify.Func(func(ctx context.Context, flightID int64) error {
			return ts.subs.Notify(ctx, flightID)
		}),
		Logger: logger,
	}, service.Config{})
	ts.subs = subscription.NewManager(svcs.Query, logger)

	ts.router = httpgin.NewRouter(svcs, httpgin.Options{
		Subscriptions:    ts.subs,
		SubscribeTimeout: 100 * time.Millisecond,
		AdminToken:       adminToken,
	}, logger)

	return ts
}

func (ts *testServer) do(method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

// signUp registers username and returns its auth cookie.
func (ts *testServer) signUp(t *testing.T, username string) *http.Cookie {
	t.Helper()

	creds := map[string]string{"username": username, "password": "secret"}

	rec := ts.do(http.MethodPost, "/users", creds)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.True(t, strings.HasPrefix(rec.Header().Get("Location"), "/users/"))

	rec = ts.do(http.MethodPost, "/users/login", creds)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	for _, c := range rec.Result().Cookies() {
		if c.Name == "authToken" {
			require.NotEmpty(t, c.Value)
			return c
		}
	}
	t.Fatal("login did not set authToken cookie")
	return nil
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestRouter_Healthz(t *testing.T) {
	ts := newTestServer(t, "")

	rec := ts.do(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}

func TestRouter_Users(t *testing.T) {
	ts := newTestServer(t, "")
	ts.signUp(t, "alice")

	rec := ts.do(http.MethodPost, "/users", map[string]string{"username": "alice", "password": "x"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(http.MethodPost, "/users", map[string]string{"username": "bob"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(http.MethodPost, "/users/login", map[string]string{"username": "alice", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_LogoutInvalidatesToken(t *testing.T) {
	ts := newTestServer(t, "")
	cookie := ts.signUp(t, "alice")

	rec := ts.do(http.MethodGet, "/bookings", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(http.MethodGet, "/users/logout", nil, cookie)
	require.Equal(t, http.StatusNoContent, rec.Code)

	var expired bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == "authToken" && c.MaxAge < 0 {
			expired = true
		}
	}
	assert.True(t, expired)

	rec = ts.do(http.MethodGet, "/bookings", nil, cookie)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_BookingsRequireAuth(t *testing.T) {
	ts := newTestServer(t, "")

	rec := ts.do(http.MethodPost, "/bookings", map[string]any{"flight_id": 1, "seats": []string{"23J"}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(http.MethodGet, "/bookings", nil, &http.Cookie{Name: "authToken", Value: "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_BookingScenario(t *testing.T) {
	ts := newTestServer(t, "")
	alice := ts.signUp(t, "alice")
	bob := ts.signUp(t, "bob")

	rec := ts.do(http.MethodPost, "/bookings", map[string]any{
		"flight_id": 1,
		"seats":     []string{"23J", "36E", "58C"},
	}, alice)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	created := decode[httpgin.BookingResponse](t, rec)
	assert.EqualValues(t, 2025, created.TotalCost)
	assert.Equal(t, []string{"23J", "36E", "58C"}, created.Seats)
	assert.Equal(t, "/bookings/"+created.ID, rec.Header().Get("Location"))

	rec = ts.do(http.MethodPost, "/bookings", map[string]any{
		"flight_id": 1,
		"seats":     []string{"36E", "58C", "48J"},
	}, bob)
	require.Equal(t, http.StatusConflict, rec.Code)
	conflict := decode[httpgin.ErrorResponse](t, rec)
	assert.Equal(t, "seat unavailable", conflict.Error)
	assert.NotEmpty(t, conflict.Seat)

	rec = ts.do(http.MethodGet, "/flights/1/booking-info", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	info := decode[httpgin.BookingInfoResponse](t, rec)
	assert.Equal(t, []string{"23J", "36E", "58C"}, info.BookedSeats)
	assert.Equal(t, info.TotalSeats-3, info.SeatsRemaining)

	rec = ts.do(http.MethodGet, "/bookings", nil, alice)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]httpgin.BookingResponse](t, rec), 1)

	rec = ts.do(http.MethodGet, "/bookings", nil, bob)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]httpgin.BookingResponse](t, rec))

	path := "/bookings/" + created.ID

	rec = ts.do(http.MethodGet, path, nil, alice)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(http.MethodGet, path, nil, bob)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(http.MethodDelete, path, nil, bob)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(http.MethodDelete, path, nil, alice)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(http.MethodDelete, path, nil, alice)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(http.MethodGet, "/flights/1/booking-info", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	info = decode[httpgin.BookingInfoResponse](t, rec)
	assert.Empty(t, info.BookedSeats)
	assert.Equal(t, info.TotalSeats, info.SeatsRemaining)
}

func TestRouter_CreateBookingErrors(t *testing.T) {
	ts := newTestServer(t, "")
	alice := ts.signUp(t, "alice")

	tests := []struct {
		name   string
		body   map[string]any
		status int
	}{
		{"empty", map[string]any{"flight_id": 1, "seats": []string{}}, http.StatusConflict},
		{"invalid seat", map[string]any{"flight_id": 1, "seats": []string{"99Z"}}, http.StatusConflict},
		{"repeated seat", map[string]any{"flight_id": 1, "seats": []string{"23J", "23j"}}, http.StatusConflict},
		{"unknown flight", map[string]any{"flight_id": 999, "seats": []string{"23J"}}, http.StatusNotFound},
		{"missing flight", map[string]any{"seats": []string{"23J"}}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(http.MethodPost, "/bookings", tt.body, alice)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}

	rec := ts.do(http.MethodGet, "/bookings/not-a-uuid", nil, alice)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_SearchFlights(t *testing.T) {
	ts := newTestServer(t, "")

	rec := ts.do(http.MethodGet, "/flights?origin=akl&destination=sydney", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	flights := decode[[]httpgin.FlightResponse](t, rec)
	require.Len(t, flights, 2)
	assert.Equal(t, "NZ103", flights[0].Name)
	assert.Equal(t, "NZ105", flights[1].Name)
	assert.Equal(t, "2026-11-20T09:00:00+13:00", flights[0].DepartureTime)
	assert.Equal(t, "AKL", flights[0].Origin.Code)

	rec = ts.do(http.MethodGet, "/flights?origin=AKL&destination=SYD&departureDate=2026-11-21&dayRange=0", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	flights = decode[[]httpgin.FlightResponse](t, rec)
	require.Len(t, flights, 1)
	assert.Equal(t, "NZ105", flights[0].Name)

	for _, q := range []string{
		"origin=AKL",
		"origin=AKL&destination=SYD&departureDate=21-11-2026",
		"origin=AKL&destination=SYD&departureDate=2026-11-21&dayRange=-1",
		"origin=AKL&destination=SYD&dayRange=abc",
	} {
		rec = ts.do(http.MethodGet, "/flights?"+q, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestRouter_BookingInfoETag(t *testing.T) {
	ts := newTestServer(t, "")

	rec := ts.do(http.MethodGet, "/flights/999/booking-info", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(http.MethodGet, "/flights/abc/booking-info", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(http.MethodGet, "/flights/6/booking-info", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	tag := rec.Header().Get("ETag")
	require.NotEmpty(t, tag)
	info := decode[httpgin.BookingInfoResponse](t, rec)
	assert.Equal(t, 180, info.TotalSeats)
	assert.Equal(t, "Airbus A320", info.AircraftType)

	req := httptest.NewRequest(http.MethodGet, "/flights/6/booking-info", nil)
	req.Header.Set("If-None-Match", tag)
	rec = httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotModified, rec.Code)
}

func TestRouter_Subscribe(t *testing.T) {
	ts := newTestServer(t, "")
	alice := ts.signUp(t, "alice")

	rec := ts.do(http.MethodPost, "/flights/6/subscribe", map[string]int{"seats": 2}, alice)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 180, decode[httpgin.SubscribeResponse](t, rec).SeatsRemaining)

	rec = ts.do(http.MethodPost, "/flights/6/subscribe", map[string]int{"seats": 500}, alice)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(http.MethodPost, "/flights/999/subscribe", nil, alice)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(http.MethodPost, "/flights/6/subscribe", map[string]int{"seats": 1})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_ImportCatalog(t *testing.T) {
	ts := newTestServer(t, "s3cret")

	doc := `
airports:
  - {id: 1, code: AKL, name: Auckland International, timezone: Pacific/Auckland}
  - {id: 9, code: CHC, name: Christchurch, timezone: Pacific/Auckland}
aircraft:
  - id: 2
    name: Airbus A320
    zones:
      - {name: economy, rows: [1, 30], letters: ABCDEF, price: 189}
flights:
  - {id: 90, name: NZ500, origin: CHC, destination: AKL, aircraft: 2, departure: 2026-12-01T08:00:00+13:00}
`
	post := func(token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/admin/catalog", strings.NewReader(doc))
		req.Header.Set("Content-Type", "application/x-yaml")
		if token != "" {
			req.Header.Set("X-Admin-Token", token)
		}
		rec := httptest.NewRecorder()
		ts.router.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusForbidden, post("").Code)

	rec := post("s3cret")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	resp := decode[httpgin.ImportCatalogResponse](t, rec)
	assert.Equal(t, 2, resp.Airports)
	assert.Equal(t, 1, resp.AircraftTypes)
	assert.Equal(t, 1, resp.Flights)

	rec = ts.do(http.MethodGet, "/flights?origin=christchurch&destination=AKL", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]httpgin.FlightResponse](t, rec), 1)

	req := httptest.NewRequest(http.MethodPost, "/admin/catalog", strings.NewReader("airports: [oops"))
	req.Header.Set("X-Admin-Token", "s3cret")
	rec = httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
