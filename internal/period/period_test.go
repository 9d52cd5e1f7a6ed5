package period

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name      string
		year      int
		month     int
		length    int
		wantStart time.Time
		wantEnd   time.Time
	}{
		{"three months", 2024, 3, 3, date(2024, 1, 1), date(2024, 3, 31)},
		{"leap february", 2024, 2, 1, date(2024, 2, 1), date(2024, 2, 29)},
		{"crosses year", 2024, 2, 6, date(2023, 9, 1), date(2024, 2, 29)},
		{"six months back from january", 2024, 1, 6, date(2023, 8, 1), date(2024, 1, 31)},
		{"three years", 2025, 12, 36, date(2023, 1, 1), date(2025, 12, 31)},
		{"thirty day month", 2023, 11, 1, date(2023, 11, 1), date(2023, 11, 30)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := Resolve(tt.year, tt.month, tt.length)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStart, w.Start)
			assert.Equal(t, tt.wantEnd, w.End)
			assert.Equal(t, tt.length, w.Months)
		})
	}
}

func TestResolve_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		month  int
		length int
		want   error
	}{
		{"zero length", 5, 0, ErrInvalidLength},
		{"negative length", 5, -3, ErrInvalidLength},
		{"month zero", 0, 3, ErrInvalidMonth},
		{"month thirteen", 13, 3, ErrInvalidMonth},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(2024, tt.month, tt.length)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)

			var iwe *InvalidWindowError
			assert.True(t, errors.As(err, &iwe))
		})
	}
}

func TestYearToDateAndSeeded(t *testing.T) {
	w, err := YearToDate(2024, 4)
	require.NoError(t, err)
	assert.Equal(t, date(2024, 1, 1), w.Start)
	assert.Equal(t, date(2024, 4, 30), w.End)

	s := Seeded(w)
	assert.Equal(t, date(2023, 12, 1), s.Start)
	assert.Equal(t, w.End, s.End)
	assert.Equal(t, 5, s.Months)

	assert.True(t, w.Contains(date(2024, 1, 1)))
	assert.True(t, w.Contains(date(2024, 4, 30)))
	assert.False(t, w.Contains(date(2023, 12, 31)))
}

func TestResolver_RangeCheck(t *testing.T) {
	r := NewResolver(date(2022, 1, 3), date(2024, 6, 28))

	w, err := r.Resolve(2024, 6, 36)
	require.NoError(t, err, "a long window may start before the data")
	assert.Equal(t, date(2021, 7, 1), w.Start)

	_, err = r.Resolve(2024, 7, 3)
	assert.ErrorIs(t, err, ErrOutOfRange)

	_, err = r.Resolve(2021, 12, 1)
	assert.ErrorIs(t, err, ErrOutOfRange)

	_, err = r.Resolve(2024, 6, 0)
	assert.ErrorIs(t, err, ErrInvalidLength, "length is checked before range")

	var empty Resolver
	_, err = empty.Resolve(2024, 1, 1)
	assert.ErrorIs(t, err, ErrOutOfRange)
}
