package timetable

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"untiswidget/internal/model"
)

var defaultCombine = CombineOptions{BreakMin: 420 * time.Second}

func TestCombineDoubleLesson(t *testing.T) {
	out := Combine([]model.Lesson{
		lesson(1, "MATH", 20240510, 800, 850),
		lesson(2, "MATH", 20240510, 850, 940),
	}, defaultCombine)

	require.Len(t, out, 1)
	assert.Equal(t, 1, out[0].ID)
	assert.Equal(t, at(20240510, 800), out[0].From)
	assert.Equal(t, at(20240510, 940), out[0].To)
	assert.Equal(t, 2, out[0].Duration)
	assert.Nil(t, out[0].Break)
}

func TestCombineAccumulatesBreaks(t *testing.T) {
	out := Combine([]model.Lesson{
		lesson(1, "M", 20240510, 800, 845),
		lesson(2, "M", 20240510, 850, 935),
		lesson(3, "M", 20240510, 937, 1020),
	}, defaultCombine)

	require.Len(t, out, 1)
	assert.Equal(t, 3, out[0].Duration)
	require.NotNil(t, out[0].Break)
	assert.Equal(t, 7*time.Minute, *out[0].Break)
}

func TestCombineThresholdBoundary(t *testing.T) {
	a := lesson(1, "M", 20240510, 800, 845)
	b := lesson(2, "M", 20240510, 852, 935)

	require.Len(t, Combine([]model.Lesson{a, b}, defaultCombine), 1)

	b.From = b.From.Add(time.Second)
	assert.Len(t, Combine([]model.Lesson{a, b}, defaultCombine), 2)

	long := CombineOptions{BreakMin: 420 * time.Second, IgnoreBreaks: true}
	assert.Len(t, Combine([]model.Lesson{a, b}, long), 1)
}

func TestCombineRequiresEqualDetails(t *testing.T) {
	a := lesson(1, "M", 20240510, 800, 845)
	b := lesson(2, "M", 20240510, 845, 930)
	b.Rooms = []model.Stateful[model.Room]{{Entity: model.Room{ID: 2, Name: "R202"}, State: model.ElementSubstituted}}
	b.State = model.StateRoomSubstituted

	assert.Len(t, Combine([]model.Lesson{a, b}, defaultCombine), 2)

	coarse := CombineOptions{BreakMin: 420 * time.Second, IgnoreDetails: true}
	assert.Len(t, Combine([]model.Lesson{a, b}, coarse), 1)
}

func TestCombineSubjectMustMatch(t *testing.T) {
	out := Combine([]model.Lesson{
		lesson(1, "M", 20240510, 800, 845),
		lesson(2, "D", 20240510, 845, 930),
		lesson(3, "", 20240510, 930, 1015),
		lesson(4, "", 20240510, 1015, 1100),
	}, defaultCombine)

	require.Len(t, out, 3)
	assert.Equal(t, 2, out[2].Duration)
	assert.Nil(t, out[2].Subject)
}

func TestCombineSingleLesson(t *testing.T) {
	in := []model.Lesson{lesson(1, "M", 20240510, 800, 845)}
	out := Combine(in, defaultCombine)
	require.Len(t, out, 1)
	assert.Equal(t, 1, out[0].Duration)
	assert.Nil(t, out[0].Break)
	assert.True(t, Equal(in[0], out[0]))
}

func TestCombineIdempotentAndConservesDuration(t *testing.T) {
	day := []model.Lesson{
		lesson(1, "M", 20240510, 800, 845),
		lesson(2, "M", 20240510, 845, 930),
		lesson(3, "D", 20240510, 950, 1035),
		lesson(4, "D", 20240510, 1040, 1125),
		lesson(5, "M", 20240510, 1125, 1210),
		lesson(6, "M", 20240510, 1300, 1345),
	}

	once := Combine(day, defaultCombine)
	twice := Combine(once, defaultCombine)

	require.Len(t, twice, len(once))
	for i := range once {
		assert.True(t, Equal(once[i], twice[i]), "block %d changed", i)
	}

	total := 0
	for _, l := range once {
		total += l.Duration
	}
	assert.Equal(t, len(day), total)
	assert.Len(t, once, 4)
}

func TestCombineWeekSortsDays(t *testing.T) {
	week := model.Week{"2024-05-10": {
		lesson(2, "M", 20240510, 845, 930),
		lesson(1, "M", 20240510, 800, 845),
	}}
	out := CombineWeek(week, defaultCombine)
	require.Len(t, out["2024-05-10"], 1)
	assert.Equal(t, 1, out["2024-05-10"][0].ID)
	assert.Equal(t, 2, out["2024-05-10"][0].Duration)

	// input untouched
	assert.Equal(t, 2, week["2024-05-10"][0].ID)
}

func TestEqualDetailsIgnoresVolatileFields(t *testing.T) {
	a := lesson(1, "M", 20240510, 800, 845)
	b := lesson(9, "M", 20240511, 1000, 1200)
	b.Duration = 3
	brk := time.Minute
	b.Break = &brk
	assert.True(t, EqualDetails(a, b))
	assert.False(t, Equal(a, b))

	b.Info = "x"
	assert.False(t, EqualDetails(a, b))
}
