package timetable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"untiswidget/internal/model"
	"untiswidget/internal/untis"
)

func testRoster() *Roster {
	return NewRoster([]untis.RawElement{
		{Type: untis.ElementGroup, ID: 10, Name: "5a", LongName: "Klasse 5a"},
		{Type: untis.ElementTeacher, ID: 20, Name: "MUE", LongName: "Müller"},
		{Type: untis.ElementTeacher, ID: 21, Name: "SCH"},
		{Type: untis.ElementSubject, ID: 30, Name: "M", LongName: "Mathematik"},
		{Type: untis.ElementSubject, ID: 31, Name: "D", LongName: "Deutsch"},
		{Type: untis.ElementRoom, ID: 40, Name: "R101", Capacity: 30},
		{Type: untis.ElementRoom, ID: 41, Name: "R202"},
	})
}

func TestResolveLessonPartitions(t *testing.T) {
	p, ok := testRoster().ResolveLesson(untis.RawLesson{ID: 1, Elements: []untis.RawElementRef{
		{Type: untis.ElementGroup, ID: 10, State: "REGULAR"},
		{Type: untis.ElementTeacher, ID: 20, State: "REGULAR"},
		{Type: untis.ElementSubject, ID: 30, State: "REGULAR"},
		{Type: untis.ElementRoom, ID: 40, State: "REGULAR"},
		{Type: untis.ElementStudent, ID: 99},
	}})
	require.True(t, ok)
	require.Len(t, p.Groups, 1)
	require.Len(t, p.Teachers, 1)
	require.Len(t, p.Rooms, 1)
	require.NotNil(t, p.Subject)

	assert.Equal(t, model.Teacher{ID: 20, Name: "MUE"}, p.Teachers[0].Entity)
	assert.Equal(t, "Mathematik", p.Subject.Entity.LongName)
	assert.Equal(t, 30, p.Rooms[0].Entity.Capacity)
	assert.Nil(t, p.Teachers[0].Original)
}

func TestResolveZeroOrgIDIsNoSubstitution(t *testing.T) {
	p, ok := testRoster().ResolveLesson(untis.RawLesson{ID: 1, Elements: []untis.RawElementRef{
		{Type: untis.ElementTeacher, ID: 20, OrgID: 0, State: "REGULAR"},
	}})
	require.True(t, ok)
	require.Len(t, p.Teachers, 1)
	assert.Nil(t, p.Teachers[0].Original)
	assert.False(t, p.Teachers[0].Changed())
}

func TestResolveOriginal(t *testing.T) {
	p, ok := testRoster().ResolveLesson(untis.RawLesson{ID: 1, Elements: []untis.RawElementRef{
		{Type: untis.ElementTeacher, ID: 21, OrgID: 20, State: "SUBSTITUTED"},
		{Type: untis.ElementRoom, ID: 41, OrgID: 777, State: "SUBSTITUTED"},
	}})
	require.True(t, ok)
	require.NotNil(t, p.Teachers[0].Original)
	assert.Equal(t, "MUE", p.Teachers[0].Original.Name)
	assert.Equal(t, "SCH", p.Teachers[0].Entity.Name)
	assert.Equal(t, model.ElementSubstituted, p.Teachers[0].State)

	// Missing original is tolerated.
	assert.Nil(t, p.Rooms[0].Original)
	assert.Equal(t, "R202", p.Rooms[0].Entity.Name)
}

func TestResolveAbsentPlaceholder(t *testing.T) {
	p, ok := testRoster().ResolveLesson(untis.RawLesson{ID: 1, Elements: []untis.RawElementRef{
		{Type: untis.ElementTeacher, ID: 0, OrgID: 20, State: "ABSENT"},
		{Type: untis.ElementSubject, ID: 30},
	}})
	require.True(t, ok)
	require.Len(t, p.Teachers, 1)
	assert.True(t, p.Teachers[0].Placeholder())
	assert.Equal(t, "MUE", p.Teachers[0].Original.Name)
}

func TestResolveSkipsUnknownReferences(t *testing.T) {
	p, ok := testRoster().ResolveLesson(untis.RawLesson{ID: 1, Elements: []untis.RawElementRef{
		{Type: untis.ElementTeacher, ID: 500},
		{Type: untis.ElementSubject, ID: 30},
	}})
	require.True(t, ok)
	assert.Empty(t, p.Teachers)
	assert.NotNil(t, p.Subject)

	_, ok = testRoster().ResolveLesson(untis.RawLesson{ID: 2, Elements: []untis.RawElementRef{
		{Type: untis.ElementTeacher, ID: 500},
		{Type: untis.ElementRoom, ID: 501},
	}})
	assert.False(t, ok)
}

func TestResolveKeepsFirstSubject(t *testing.T) {
	p, ok := testRoster().ResolveLesson(untis.RawLesson{ID: 1, Elements: []untis.RawElementRef{
		{Type: untis.ElementSubject, ID: 31},
		{Type: untis.ElementSubject, ID: 30},
	}})
	require.True(t, ok)
	assert.Equal(t, "D", p.Subject.Entity.Name)
}
