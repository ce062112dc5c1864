package query

import (
	"errors"
)

var (
	ErrFlightNotFound = errors.New("flight not found")
	ErrInvalidQuery   = errors.New("invalid search query")
)
