package phase

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimestamp_ToTime(t *testing.T) {
	fixed := time.Date(2025, time.March, 15, 12, 0, 0, 0, time.UTC)
	ts := Timestamp(fixed.Unix())
	assert.True(t, fixed.Equal(ts.ToTime()))
	assert.Contains(t, ts.String(), "2025-03-15T12:00:00Z")
}

func TestTimestamp_Add(t *testing.T) {
	ts := Timestamp(1000)
	assert.Equal(t, Timestamp(1500), ts.Add(500*time.Second))
	assert.Equal(t, Timestamp(400), ts.Add(-600*time.Second))
	assert.Equal(t, Timestamp(0), ts.Add(-time.Hour))
	assert.Equal(t, Timestamp(1000), ts.Add(999*time.Millisecond))
}

func TestTimestamp_AddSaturatesAboveInt64(t *testing.T) {
	high := Timestamp(math.MaxInt64 + 10)
	assert.Equal(t, Timestamp(math.MaxInt64+70), high.Add(time.Minute))
	assert.Equal(t, Timestamp(math.MaxInt64-50), high.Add(-time.Minute))

	top := Timestamp(math.MaxUint64 - 5)
	assert.Equal(t, Timestamp(math.MaxUint64), top.Add(time.Minute))
	assert.Equal(t, Timestamp(math.MaxUint64), top.Add(time.Duration(math.MaxInt64)))
}
