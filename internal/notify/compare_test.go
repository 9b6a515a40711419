package notify

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"untiswidget/internal/config"
	"untiswidget/internal/model"
)

type recorded struct{ title, body string }

type recordingSink struct{ got []recorded }

func (r *recordingSink) Schedule(title, body string) {
	r.got = append(r.got, recorded{title, body})
}

func (r *recordingSink) titles() []string {
	out := make([]string, 0, len(r.got))
	for _, g := range r.got {
		out = append(out, g.title)
	}
	return out
}

var berlin = func() *time.Location {
	loc, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		panic(err)
	}
	return loc
}()

func at(day, hour, minute int) time.Time {
	return time.Date(2024, 5, day, hour, minute, 0, 0, berlin)
}

func mathLesson(id int) model.Lesson {
	return model.Lesson{
		ID:       id,
		From:     at(13, 8, 0),
		To:       at(13, 8, 45),
		Duration: 1,
		Subject:  &model.Stateful[model.Subject]{Entity: model.Subject{ID: 1, Name: "M", LongName: "Mathe"}, State: model.ElementRegular},
		Teachers: []model.Stateful[model.Teacher]{{Entity: model.Teacher{ID: 7, Name: "SCH"}, State: model.ElementRegular}},
		Rooms:    []model.Stateful[model.Room]{{Entity: model.Room{ID: 3, Name: "R101"}, State: model.ElementRegular}},
		State:    model.StateNormal,
	}
}

func newNotifier(s *config.Settings) (*Notifier, *recordingSink) {
	sink := &recordingSink{}
	if s == nil {
		s = config.DefaultSettings()
	}
	return &Notifier{Sink: sink, Settings: s, Location: berlin}, sink
}

func week(lessons ...model.Lesson) model.Week {
	return model.Week{"2024-05-13": lessons}
}

func TestChanged(t *testing.T) {
	assert.False(t, Changed([]byte(`{"a":1}`), []byte(`{"a":1}`)))
	assert.True(t, Changed([]byte(`{"a":1}`), []byte(`{"a":2}`)))
}

func TestLessonsIdenticalSendsNothing(t *testing.T) {
	n, sink := newNotifier(nil)
	n.Lessons(week(mathLesson(1)), week(mathLesson(1)))
	assert.Empty(t, sink.got)
}

func TestLessonsAdded(t *testing.T) {
	n, sink := newNotifier(nil)
	n.Lessons(week(mathLesson(1), mathLesson(2)), week(mathLesson(1)))
	require.Len(t, sink.got, 1)
	assert.Equal(t, "Mathe was added", sink.got[0].title)
	assert.Equal(t, "Mon 13.05. 08:00-08:45", sink.got[0].body)
}

func TestLessonsAddedSkipsRescheduleTarget(t *testing.T) {
	target := mathLesson(2)
	target.RescheduleInfo = &model.RescheduleInfo{IsSource: false, OtherFrom: at(13, 10, 0), OtherTo: at(13, 10, 45)}
	n, sink := newNotifier(nil)
	n.Lessons(week(mathLesson(1), target), week(mathLesson(1)))
	assert.Empty(t, sink.got)
}

func TestLessonsDaysOnlyInOneSnapshotAreIgnored(t *testing.T) {
	n, sink := newNotifier(nil)
	n.Lessons(model.Week{"2024-05-14": {mathLesson(1)}}, week(mathLesson(1)))
	assert.Empty(t, sink.got)
}

func TestLessonsFirstDifferenceWins(t *testing.T) {
	fresh := mathLesson(1)
	fresh.Info = "Bring calculator"
	fresh.Note = "changed too"
	fresh.State = model.StateCanceled

	n, sink := newNotifier(nil)
	n.Lessons(week(fresh), week(mathLesson(1)))
	require.Len(t, sink.got, 1)
	assert.Equal(t, "Mathe: new info", sink.got[0].title)
	assert.Equal(t, "Bring calculator", sink.got[0].body)
}

func TestLessonsIgnoredInfoIsNotAChange(t *testing.T) {
	s := config.DefaultSettings()
	s.Subjects = map[string]config.SubjectConfig{
		"M": {LessonOverride: config.LessonOverride{IgnoreInfos: []string{"Hausaufgaben"}}},
	}
	fresh := mathLesson(1)
	fresh.Info = "Hausaufgaben"

	n, sink := newNotifier(s)
	n.Lessons(week(fresh), week(mathLesson(1)))
	assert.Empty(t, sink.got)
	assert.Equal(t, "Hausaufgaben", fresh.Info)
}

func TestLessonsCancelled(t *testing.T) {
	fresh := mathLesson(1)
	fresh.State = model.StateCanceled
	n, sink := newNotifier(nil)
	n.Lessons(week(fresh), week(mathLesson(1)))
	assert.Equal(t, []string{"Mathe was cancelled"}, sink.titles())
}

func TestLessonsClearedInfoFallsThroughToState(t *testing.T) {
	cached := mathLesson(1)
	cached.Info = "bring calculator"
	fresh := mathLesson(1)
	fresh.State = model.StateCanceled

	n, sink := newNotifier(nil)
	n.Lessons(week(fresh), week(cached))
	assert.Equal(t, []string{"Mathe was cancelled"}, sink.titles())
}

func TestLessonsClearedInfoAloneSendsNothing(t *testing.T) {
	cached := mathLesson(1)
	cached.Info = "bring calculator"

	n, sink := newNotifier(nil)
	n.Lessons(week(mathLesson(1)), week(cached))
	assert.Empty(t, sink.got)
}

func TestLessonsRoomSubstitution(t *testing.T) {
	fresh := mathLesson(1)
	fresh.State = model.StateRoomSubstituted
	fresh.Rooms = []model.Stateful[model.Room]{
		{Entity: model.Room{ID: 4, Name: "R202"}, State: model.ElementSubstituted, Original: &model.Room{ID: 3, Name: "R101"}},
		{Entity: model.Room{ID: 5, Name: "R303"}, State: model.ElementSubstituted, Original: &model.Room{ID: 6, Name: "R404"}},
	}
	n, sink := newNotifier(nil)
	n.Lessons(week(fresh), week(mathLesson(1)))
	require.Len(t, sink.got, 2)
	assert.True(t, strings.HasPrefix(sink.got[0].body, "room R202 instead of R101"))
	assert.True(t, strings.HasPrefix(sink.got[1].body, "room R303 instead of R404"))
}

func TestLessonsTeacherAbsent(t *testing.T) {
	fresh := mathLesson(1)
	fresh.State = model.StateTeacherSubstituted
	fresh.Teachers = []model.Stateful[model.Teacher]{
		{State: model.ElementAbsent, Original: &model.Teacher{ID: 7, Name: "SCH"}},
	}
	n, sink := newNotifier(nil)
	n.Lessons(week(fresh), week(mathLesson(1)))
	assert.Equal(t, []string{"Mathe: SCH is absent"}, sink.titles())
}

func TestLessonsTeacherSubstituted(t *testing.T) {
	fresh := mathLesson(1)
	fresh.State = model.StateTeacherSubstituted
	fresh.Teachers = []model.Stateful[model.Teacher]{
		{Entity: model.Teacher{ID: 8, Name: "MÜL"}, State: model.ElementSubstituted, Original: &model.Teacher{ID: 7, Name: "SCH"}},
	}
	n, sink := newNotifier(nil)
	n.Lessons(week(fresh), week(mathLesson(1)))
	require.Len(t, sink.got, 1)
	assert.Equal(t, "Mathe: substitute teacher", sink.got[0].title)
	assert.Contains(t, sink.got[0].body, "MÜL instead of SCH")
}

func TestLessonsGenericSubstitutionIsOneNotification(t *testing.T) {
	fresh := mathLesson(1)
	fresh.State = model.StateSubstituted
	fresh.Teachers = []model.Stateful[model.Teacher]{
		{Entity: model.Teacher{ID: 8, Name: "MÜL"}, State: model.ElementSubstituted, Original: &model.Teacher{ID: 7, Name: "SCH"}},
	}
	fresh.Rooms = []model.Stateful[model.Room]{
		{Entity: model.Room{ID: 4, Name: "R202"}, State: model.ElementSubstituted, Original: &model.Room{ID: 3, Name: "R101"}},
	}
	n, sink := newNotifier(nil)
	n.Lessons(week(fresh), week(mathLesson(1)))
	require.Len(t, sink.got, 1)
	assert.Equal(t, "Mathe was substituted", sink.got[0].title)
	assert.Equal(t, "MÜL instead of SCH, room R202 instead of R101, Mon 13.05. 08:00-08:45", sink.got[0].body)
}

func TestLessonsRescheduled(t *testing.T) {
	shifted := mathLesson(1)
	shifted.IsRescheduled = true
	shifted.RescheduleInfo = &model.RescheduleInfo{IsSource: true, OtherFrom: at(13, 11, 0), OtherTo: at(13, 11, 45)}

	moved := mathLesson(2)
	moved.IsRescheduled = true
	moved.RescheduleInfo = &model.RescheduleInfo{IsSource: true, OtherFrom: at(15, 9, 0), OtherTo: at(15, 9, 45)}

	target := mathLesson(3)
	target.RescheduleInfo = &model.RescheduleInfo{IsSource: false, OtherFrom: at(12, 9, 0), OtherTo: at(12, 9, 45)}

	n, sink := newNotifier(nil)
	n.Lessons(week(shifted, moved, target), week(mathLesson(1), mathLesson(2), mathLesson(3)))
	require.Len(t, sink.got, 2)
	assert.Equal(t, "Mathe was shifted", sink.got[0].title)
	assert.Equal(t, "Mon 13.05.: 11:00-11:45 instead of 08:00-08:45", sink.got[0].body)
	assert.Equal(t, "Mathe was rescheduled", sink.got[1].title)
	assert.Equal(t, "from Mon 13.05. 08:00-08:45 to Wed 15.05. 09:00-09:45", sink.got[1].body)
}

func TestLessonsExamAttached(t *testing.T) {
	fresh := mathLesson(1)
	fresh.Exam = &model.LessonExam{Name: "Klausur 2"}
	n, sink := newNotifier(nil)
	n.Lessons(week(fresh), week(mathLesson(1)))
	require.Len(t, sink.got, 1)
	assert.Equal(t, "Exam in Mathe", sink.got[0].title)
}

func TestExamsMatchedBySubjectTypeAndStart(t *testing.T) {
	cached := []model.Exam{{ID: 1, Subject: "M", Type: "KA", From: at(20, 8, 0)}}
	fresh := []model.Exam{
		{ID: 99, Subject: "M", Type: "KA", From: at(20, 8, 0)},
		{ID: 2, Subject: "D", Type: "KA", Name: "Gedichtanalyse", From: at(22, 10, 0)},
	}
	n, sink := newNotifier(nil)
	n.Exams(fresh, cached)
	require.Len(t, sink.got, 1)
	assert.Equal(t, "Exam scheduled: D", sink.got[0].title)
	assert.Equal(t, "Gedichtanalyse, Wed 22.05. 10:00", sink.got[0].body)
}

func TestGradesAndAbsences(t *testing.T) {
	grade := model.Grade{ID: 1, Subject: "M", Mark: "2", Date: at(10, 0, 0)}
	sameInUTC := grade
	sameInUTC.Date = grade.Date.UTC()

	n, sink := newNotifier(nil)
	n.Grades([]model.Grade{sameInUTC, {ID: 2, Subject: "D", Mark: "1-", Date: at(11, 0, 0)}}, []model.Grade{grade})
	assert.Equal(t, []string{"Grade received: D"}, sink.titles())

	sink.got = nil
	abs := model.Absence{ID: 1, From: at(13, 8, 0), To: at(13, 9, 30), Reason: "krank"}
	excused := abs
	excused.IsExcused = true
	n.Absences([]model.Absence{excused}, []model.Absence{abs})
	require.Len(t, sink.got, 1)
	assert.Equal(t, "Absence recorded", sink.got[0].title)
	assert.Equal(t, "Mon 13.05. 08:00-Mon 13.05. 09:30, krank", sink.got[0].body)
}

func TestFileSinkAppendsJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "notifications.jsonl")
	now := at(13, 8, 0)
	s := &FileSink{Path: path, Now: func() time.Time { return now }}
	s.Schedule("a", "b")
	s.Schedule("c", "")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"title":"a"`)
	assert.NotContains(t, lines[1], `"body"`)
}

func TestMultiFansOut(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}
	Multi{a, b}.Schedule("t", "x")
	assert.Equal(t, []string{"t"}, a.titles())
	assert.Equal(t, []string{"t"}, b.titles())
}
