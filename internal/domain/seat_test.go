package domain_test

import (
	"testing"

	"github.com/kirinyoku/skyseat/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestParseSeat(t *testing.T) {
	tests := []struct {
		code string
		want string
		ok   bool
	}{
		{"23J", "23J", true},
		{" 7a ", "7A", true},
		{"1A", "1A", true},
		{"023J", "", false},
		{"0A", "", false},
		{"J23", "", false},
		{"23", "", false},
		{"FooBar", "", false},
		{"", "", false},
		{"2-3J", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			got, ok := domain.CanonicalSeat(tt.code)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSortSeats(t *testing.T) {
	codes := []string{"58C", "xx", "10B", "9J", "10A", "2C"}
	domain.SortSeats(codes)
	assert.Equal(t, []string{"2C", "9J", "10A", "10B", "58C", "xx"}, codes)
}
