package notify

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"untiswidget/internal/config"
	"untiswidget/internal/model"
	"untiswidget/internal/timetable"
)

const (
	timeLayout    = "15:04"
	dayTimeLayout = "Mon 02.01. 15:04"
)

// Changed is the fast path of every comparison: byte-identical snapshots
// never produce notifications.
func Changed(freshRaw, cachedRaw []byte) bool {
	return !bytes.Equal(freshRaw, cachedRaw)
}

// Notifier compares fresh and cached snapshots and schedules a
// notification per relevant difference. Inputs are never modified.
type Notifier struct {
	Sink     Sink
	Settings *config.Settings
	Location *time.Location
}

func (n *Notifier) loc() *time.Location {
	if n.Location != nil {
		return n.Location
	}
	return time.Local
}

func (n *Notifier) send(title, body string) {
	if n.Sink == nil {
		return
	}
	n.Sink.Schedule(title, body)
}

// Lessons compares the normalized lessons of the days present in both
// snapshots. At most one notification is sent per changed lesson, except
// for per-room and per-teacher substitutions.
func (n *Notifier) Lessons(fresh, cached model.Week) {
	for _, key := range timetable.SortedKeys(fresh) {
		old, ok := cached[key]
		if !ok {
			continue
		}
		byID := make(map[int]model.Lesson, len(old))
		for _, l := range old {
			byID[l.ID] = n.display(l)
		}
		for _, l := range fresh[key] {
			l = n.display(l)
			prev, ok := byID[l.ID]
			if !ok {
				// Targets are announced through their source slot.
				if l.RescheduleInfo != nil && !l.RescheduleInfo.IsSource {
					continue
				}
				n.send(l.Title()+" was added", n.slot(l))
				continue
			}
			if timetable.Equal(l, prev) {
				continue
			}
			n.lessonChanged(l, prev)
		}
	}
}

// display returns a copy of l with the display overrides applied, so
// ignored infos do not show up as changes.
func (n *Notifier) display(l model.Lesson) model.Lesson {
	timetable.ApplyOverrides(&l, n.Settings)
	return l
}

func (n *Notifier) slot(l model.Lesson) string {
	loc := n.loc()
	return fmt.Sprintf("%s-%s", l.From.In(loc).Format(dayTimeLayout), l.To.In(loc).Format(timeLayout))
}

// lessonChanged reports the first differing field in priority order.
// Cleared texts are not announced and fall through to the next check.
func (n *Notifier) lessonChanged(l, prev model.Lesson) {
	title := l.Title()
	texts := []struct{ label, now, before string }{
		{"new info", l.Info, prev.Info},
		{"new note", l.Note, prev.Note},
		{"new text", l.Text, prev.Text},
	}
	for _, t := range texts {
		if t.now == t.before || t.now == "" {
			continue
		}
		n.send(title+": "+t.label, t.now)
		return
	}

	switch {
	case !rescheduleEqual(l.RescheduleInfo, prev.RescheduleInfo):
		n.rescheduled(l)
	case l.Exam != nil && prev.Exam == nil:
		n.send("Exam in "+title, fmt.Sprintf("%s, %s", l.Exam.Name, n.slot(l)))
	case l.State != prev.State:
		n.stateChanged(l)
	}
}

func (n *Notifier) rescheduled(l model.Lesson) {
	ri := l.RescheduleInfo
	if ri == nil || !ri.IsSource {
		return
	}
	loc := n.loc()
	if timetable.SameDay(l.From, ri.OtherFrom, loc) {
		n.send(l.Title()+" was shifted", fmt.Sprintf("%s: %s-%s instead of %s-%s",
			l.From.In(loc).Format("Mon 02.01."),
			ri.OtherFrom.In(loc).Format(timeLayout), ri.OtherTo.In(loc).Format(timeLayout),
			l.From.In(loc).Format(timeLayout), l.To.In(loc).Format(timeLayout)))
		return
	}
	n.send(l.Title()+" was rescheduled", fmt.Sprintf("from %s to %s-%s",
		n.slot(l), ri.OtherFrom.In(loc).Format(dayTimeLayout), ri.OtherTo.In(loc).Format(timeLayout)))
}

func (n *Notifier) stateChanged(l model.Lesson) {
	title := l.Title()
	switch l.State {
	case model.StateCanceled, model.StateFree:
		n.send(title+" was cancelled", n.slot(l))

	case model.StateRoomSubstituted:
		for _, r := range l.Rooms {
			if !r.Changed() {
				continue
			}
			n.send(title+": room change", fmt.Sprintf("%s, %s", roomChange(r), n.slot(l)))
		}

	case model.StateTeacherSubstituted:
		for _, t := range l.Teachers {
			if !t.Changed() {
				continue
			}
			if t.Placeholder() {
				orig := "teacher"
				if t.Original != nil {
					orig = t.Original.Name
				}
				n.send(title+": "+orig+" is absent", n.slot(l))
				continue
			}
			n.send(title+": substitute teacher", fmt.Sprintf("%s, %s", teacherChange(t), n.slot(l)))
		}

	case model.StateSubstituted:
		var parts []string
		for _, t := range l.Teachers {
			if t.Changed() {
				parts = append(parts, teacherChange(t))
			}
		}
		for _, r := range l.Rooms {
			if r.Changed() {
				parts = append(parts, roomChange(r))
			}
		}
		parts = append(parts, n.slot(l))
		n.send(title+" was substituted", strings.Join(parts, ", "))
	}
}

func roomChange(r model.Stateful[model.Room]) string {
	if r.Original == nil {
		return "room " + r.Entity.Name
	}
	return fmt.Sprintf("room %s instead of %s", r.Entity.Name, r.Original.Name)
}

func teacherChange(t model.Stateful[model.Teacher]) string {
	if t.Placeholder() {
		if t.Original != nil {
			return t.Original.Name + " absent"
		}
		return "teacher absent"
	}
	if t.Original == nil {
		return t.Entity.Name
	}
	return fmt.Sprintf("%s instead of %s", t.Entity.Name, t.Original.Name)
}

func rescheduleEqual(a, b *model.RescheduleInfo) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.IsSource == b.IsSource && a.OtherFrom.Equal(b.OtherFrom) && a.OtherTo.Equal(b.OtherTo)
}

// Exams announces exams without a cached counterpart. Exams match by
// subject, type and start time since ids are reassigned on edits.
func (n *Notifier) Exams(fresh, cached []model.Exam) {
	loc := n.loc()
	for _, e := range fresh {
		known := false
		for _, c := range cached {
			if c.Subject == e.Subject && c.Type == e.Type && c.From.Equal(e.From) {
				known = true
				break
			}
		}
		if known {
			continue
		}
		title := "Exam scheduled"
		if e.Subject != "" {
			title += ": " + e.Subject
		}
		body := e.From.In(loc).Format(dayTimeLayout)
		if e.Name != "" {
			body = e.Name + ", " + body
		}
		n.send(title, body)
	}
}

// Grades announces grades without an identical cached entry.
func (n *Notifier) Grades(fresh, cached []model.Grade) {
	for _, g := range fresh {
		if containsFunc(cached, g, gradeEqual) {
			continue
		}
		body := g.Mark
		if g.Text != "" {
			body += ", " + g.Text
		}
		n.send("Grade received: "+g.Subject, body)
	}
}

// Absences announces absences without an identical cached entry.
func (n *Notifier) Absences(fresh, cached []model.Absence) {
	loc := n.loc()
	for _, a := range fresh {
		if containsFunc(cached, a, absenceEqual) {
			continue
		}
		body := fmt.Sprintf("%s-%s", a.From.In(loc).Format(dayTimeLayout), a.To.In(loc).Format(dayTimeLayout))
		if a.Reason != "" {
			body += ", " + a.Reason
		}
		n.send("Absence recorded", body)
	}
}

func containsFunc[T any](list []T, v T, eq func(a, b T) bool) bool {
	for _, x := range list {
		if eq(x, v) {
			return true
		}
	}
	return false
}

func gradeEqual(a, b model.Grade) bool {
	return a.ID == b.ID && a.Subject == b.Subject && a.Mark == b.Mark &&
		a.Value == b.Value && a.Text == b.Text && a.ExamType == b.ExamType &&
		a.Date.Equal(b.Date)
}

func absenceEqual(a, b model.Absence) bool {
	return a.ID == b.ID && a.From.Equal(b.From) && a.To.Equal(b.To) &&
		a.Reason == b.Reason && a.Text == b.Text && a.IsExcused == b.IsExcused
}
