package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDayIndex(t *testing.T) {
	assert.Equal(t, int64(0), DayIndex(time.Unix(0, 0)))
	assert.Equal(t, int64(0), DayIndex(time.Unix(86399, 0)))
	assert.Equal(t, int64(1), DayIndex(time.Unix(86400, 0)))
	assert.Equal(t, int64(-1), DayIndex(time.Unix(-1, 0)))
}

func TestDayIndexIgnoresLocation(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	instant := time.Date(2024, 3, 1, 23, 30, 0, 0, time.UTC)
	assert.Equal(t, DayIndex(instant), DayIndex(instant.In(loc)))
}

func TestDayHelpers(t *testing.T) {
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	assert.True(t, IsSameDay(base, base.Add(13*time.Hour)))
	assert.False(t, IsSameDay(base, base.Add(14*time.Hour)))
	assert.True(t, IsConsecutiveDay(base, base.Add(20*time.Hour)))
	assert.Equal(t, int64(3), DaysBetween(base.Add(72*time.Hour), base))
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), StartOfDay(base))
}

func TestFixedClock(t *testing.T) {
	c := &FixedClock{T: time.Unix(100, 0)}
	c.Advance(time.Hour)
	assert.Equal(t, time.Unix(3700, 0), c.Now())
}
