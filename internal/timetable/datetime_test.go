package timetable

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCombineDateTime(t *testing.T) {
	got := CombineDateTime(20220911, 830, berlin)
	assert.Equal(t, time.Date(2022, 9, 11, 8, 30, 0, 0, berlin), got)

	got = CombineDateTime(20221231, 2359, berlin)
	assert.Equal(t, time.Date(2022, 12, 31, 23, 59, 0, 0, berlin), got)
	assert.Equal(t, "2022-12-31", DateKey(got))

	got = CombineDateTime(20240101, 5, berlin)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 5, 0, 0, berlin), got)
}

func TestCombineDateTimeAcrossDST(t *testing.T) {
	// 2024-03-31 is the spring-forward day in Europe/Berlin.
	got := CombineDateTime(20240331, 1000, berlin)
	assert.Equal(t, 10, got.Hour())
	assert.Equal(t, 0, got.Minute())
}

func TestParseDateKey(t *testing.T) {
	d, err := ParseDateKey("2024-05-10", berlin)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 10, 0, 0, 0, 0, berlin), d)

	_, err = ParseDateKey("10.05.2024", berlin)
	assert.Error(t, err)
}

func TestSameDay(t *testing.T) {
	a := time.Date(2024, 5, 10, 23, 30, 0, 0, berlin)
	b := time.Date(2024, 5, 10, 0, 10, 0, 0, berlin)
	c := time.Date(2024, 5, 11, 0, 10, 0, 0, berlin)
	assert.True(t, SameDay(a, b, berlin))
	assert.False(t, SameDay(a, c, berlin))
}
