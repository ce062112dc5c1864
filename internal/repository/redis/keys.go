package redis

import "fmt"

const ns = "skyseat:v1"

func KeyFlightBookingInfo(flightID int64) string {
	return fmt.Sprintf("%s:flight:%d:booking-info", ns, flightID)
}

func KeyFlightLock(flightID int64) string {
	return fmt.Sprintf("%s:lock:flight:%d", ns, flightID)
}

func KeyRateLimit(scope, id string) string {
	return fmt.Sprintf("%s:rl:%s:%s", ns, scope, id)
}

func ChannelFlightsChanged() string {
	return ns + ":flights:changed"
}
