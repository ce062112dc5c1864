package admin

import (
	"errors"
)

var (
	ErrInvalidCatalog  = errors.New("invalid catalog")
	ErrCatalogConflict = errors.New("catalog conflicts with existing bookings")
)
