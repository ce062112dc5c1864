package domain

import "time"

type Airport struct {
	ID       int64
	Code     string
	Name     string
	TimeZone string
}

type User struct {
	ID           int64
	Username     string
	PasswordHash string
	AuthToken    string
	CreatedAt    time.Time
}

// BookingInfo is the public occupancy view of a flight.
type BookingInfo struct {
	FlightID       int64
	FlightName     string
	AircraftType   string
	TotalSeats     int
	SeatsRemaining int
	BookedSeats    []string
	Zones          []SeatingZone
}

// Catalog is the static data a deployment is seeded with.
type Catalog struct {
	Airports      []Airport
	AircraftTypes []*AircraftType
	Flights       []CatalogFlight
}

// CatalogFlight references its airports by code and its aircraft by id.
type CatalogFlight struct {
	ID             int64
	Name           string
	Origin         string
	Destination    string
	AircraftTypeID int64
	DepartureTime  time.Time
}
