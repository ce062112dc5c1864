package domain

// Price sums the zone price of every seat. It fails with a *SeatError
// wrapping ErrInvalidSeat on the first seat the chart does not know.
func Price(a *AircraftType, seats []string) (int64, error) {
	var total int64
	for _, code := range seats {
		if a == nil {
			return 0, &SeatError{Seat: code, Err: ErrInvalidSeat}
		}
		z, ok := a.ZoneOf(code)
		if !ok {
			return 0, &SeatError{Seat: code, Err: ErrInvalidSeat}
		}
		total += z.UnitPrice
	}

	return total, nil
}
