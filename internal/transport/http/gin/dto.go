package httpgin

import (
	"time"

	"github.com/kirinyoku/skyseat/internal/domain"
	"github.com/kirinyoku/skyseat/internal/service/query"
)

type CreateUserRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type CreateBookingRequest struct {
	FlightID int64    `json:"flight_id" binding:"required,gt=0"`
	Seats    []string `json:"seats"`
}

type SubscribeRequest struct {
	Seats int `json:"seats"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Seat  string `json:"seat,omitempty"`
}

type CreateUserResponse struct {
	UserID int64 `json:"user_id"`
}

type AirportResponse struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	TimeZone string `json:"time_zone"`
}

type FlightResponse struct {
	ID             int64           `json:"id"`
	Name           string          `json:"name"`
	Origin         AirportResponse `json:"origin"`
	Destination    AirportResponse `json:"destination"`
	DepartureTime  string          `json:"departure_time"`
	AircraftType   string          `json:"aircraft_type"`
	SeatsRemaining int             `json:"seats_remaining"`
}

type ZoneResponse struct {
	Name      string `json:"name"`
	FirstRow  int    `json:"first_row"`
	LastRow   int    `json:"last_row"`
	Letters   string `json:"letters"`
	UnitPrice int64  `json:"unit_price"`
}

type BookingInfoResponse struct {
	FlightID       int64          `json:"flight_id"`
	FlightName     string         `json:"flight_name"`
	AircraftType   string         `json:"aircraft_type"`
	TotalSeats     int            `json:"total_seats"`
	SeatsRemaining int            `json:"seats_remaining"`
	BookedSeats    []string       `json:"booked_seats"`
	Zones          []ZoneResponse `json:"zones"`
}

type BookingResponse struct {
	ID        string    `json:"id"`
	FlightID  int64     `json:"flight_id"`
	Seats     []string  `json:"seats"`
	TotalCost int64     `json:"total_cost"`
	CreatedAt time.Time `json:"created_at"`
}

type SubscribeResponse struct {
	FlightID       int64 `json:"flight_id"`
	SeatsRemaining int   `json:"seats_remaining"`
}

type ImportCatalogResponse struct {
	Airports      int `json:"airports"`
	AircraftTypes int `json:"aircraft_types"`
	Flights       int `json:"flights"`
}

func toAirportResponse(a domain.Airport) AirportResponse {
	return AirportResponse{
		Code:     a.Code,
		Name:     a.Name,
		TimeZone: a.TimeZone,
	}
}

// toFlightResponse renders the departure time in the origin airport's zone.
func toFlightResponse(f *domain.Flight) FlightResponse {
	resp := FlightResponse{
		ID:             f.ID,
		Name:           f.Name,
		Origin:         toAirportResponse(f.Origin),
		Destination:    toAirportResponse(f.Destination),
		DepartureTime:  f.DepartureTime.In(query.Location(f.Origin)).Format(time.RFC3339),
		SeatsRemaining: f.SeatsRemaining(),
	}
	if f.Aircraft != nil {
		resp.AircraftType = f.Aircraft.Name
	}
	return resp
}

func toBookingInfoResponse(info *domain.BookingInfo) BookingInfoResponse {
	zones := make([]ZoneResponse, 0, len(info.Zones))
	for _, z := range info.Zones {
		zones = append(zones, ZoneResponse{
			Name:      z.Name,
			FirstRow:  z.FirstRow,
			LastRow:   z.LastRow,
			Letters:   z.Letters,
			UnitPrice: z.UnitPrice,
		})
	}

	booked := info.BookedSeats
	if booked == nil {
		booked = []string{}
	}

	return BookingInfoResponse{
		FlightID:       info.FlightID,
		FlightName:     info.FlightName,
		AircraftType:   info.AircraftType,
		TotalSeats:     info.TotalSeats,
		SeatsRemaining: info.SeatsRemaining,
		BookedSeats:    booked,
		Zones:          zones,
	}
}

func toBookingResponse(b *domain.FlightBooking) BookingResponse {
	return BookingResponse{
		ID:        b.ID.String(),
		FlightID:  b.FlightID,
		Seats:     b.Seats,
		TotalCost: b.TotalCost,
		CreatedAt: b.CreatedAt,
	}
}
