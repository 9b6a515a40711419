package render

import (
	"fmt"
	"io"
	"strings"
	"time"

	"untiswidget/internal/model"
	"untiswidget/internal/timetable"
	"untiswidget/internal/widget"
)

// Backend turns a render pass into a display document.
type Backend interface {
	// Widget renders a successful pass.
	Widget(w io.Writer, res *widget.Result) error
	// Failure renders the fallback shown when a pass failed.
	Failure(w io.Writer, err error, now time.Time) error
}

// Font sizes in px for the adaptive layout.
const (
	MinFontSize = 11
	MaxFontSize = 22
	// lineFactor is the line height relative to the font size, including
	// the row padding of the stylesheet.
	lineFactor = 1.6
)

// FontSize picks the largest font size that fits rows lines into height
// pixels, clamped to [MinFontSize, MaxFontSize].
func FontSize(rows, height int) int {
	if rows <= 0 {
		return MaxFontSize
	}
	size := int(float64(height) / (float64(rows) * lineFactor))
	switch {
	case size < MinFontSize:
		return MinFontSize
	case size > MaxFontSize:
		return MaxFontSize
	}
	return size
}

type row struct {
	Time   string
	Title  string
	Detail string
	Color  string
	Class  string
}

type section struct {
	Title string
	Empty string
	Rows  []row
}

type page struct {
	Width     int
	Height    int
	FontSize  int
	Generated string
	RefreshAt string
	Sections  []section
	Error     string
}

func (p *page) rowCount() int {
	n := 0
	for _, s := range p.Sections {
		// Heading plus at least one line.
		n++
		if len(s.Rows) == 0 {
			n++
		}
		n += len(s.Rows)
	}
	return n
}

// NextDayPreview reduces the next day to one row per subject block,
// ignoring details and breaks.
func NextDayPreview(lessons []model.Lesson) []model.Lesson {
	sorted := append([]model.Lesson(nil), lessons...)
	timetable.SortDay(sorted)
	return timetable.Combine(sorted, timetable.CombineOptions{IgnoreDetails: true, IgnoreBreaks: true})
}

func buildPage(res *widget.Result, loc *time.Location, width, height int) page {
	p := page{
		Width:     width,
		Height:    height,
		Generated: res.GeneratedAt.In(loc).Format("Mon 02.01. 15:04"),
	}
	if !res.RefreshAt.IsZero() {
		p.RefreshAt = res.RefreshAt.In(loc).Format("15:04")
	}

	today := section{Title: "Today", Empty: "No more lessons today"}
	for _, l := range res.Lessons {
		today.Rows = append(today.Rows, lessonRow(l, loc))
	}
	p.Sections = append(p.Sections, today)

	if res.NextDayKey != "" {
		next := section{Title: res.NextDayKey, Empty: "No lessons"}
		if day, err := timetable.ParseDateKey(res.NextDayKey, loc); err == nil {
			next.Title = day.Format("Monday 02.01.")
		}
		for _, l := range NextDayPreview(res.NextDay) {
			r := lessonRow(l, loc)
			r.Detail = ""
			next.Rows = append(next.Rows, r)
		}
		p.Sections = append(p.Sections, next)
	}

	if len(res.Exams) > 0 {
		s := section{Title: "Exams"}
		for _, e := range res.Exams {
			title := e.Subject
			if e.Name != "" {
				title += ": " + e.Name
			}
			s.Rows = append(s.Rows, row{
				Time:   e.From.In(loc).Format("Mon 02.01."),
				Title:  title,
				Detail: e.Type,
				Class:  "exam",
			})
		}
		p.Sections = append(p.Sections, s)
	}

	if len(res.Grades) > 0 {
		s := section{Title: "Grades"}
		for _, g := range res.Grades {
			s.Rows = append(s.Rows, row{
				Time:   g.Date.In(loc).Format("02.01."),
				Title:  fmt.Sprintf("%s: %s", g.Subject, g.Mark),
				Detail: g.ExamType,
			})
		}
		p.Sections = append(p.Sections, s)
	}

	if len(res.Absences) > 0 {
		s := section{Title: "Absences"}
		for _, a := range res.Absences {
			r := row{
				Time:   a.From.In(loc).Format("02.01. 15:04"),
				Title:  a.Reason,
				Detail: "not excused",
				Class:  "absence",
			}
			if r.Title == "" {
				r.Title = "Absence"
			}
			if a.IsExcused {
				r.Detail = "excused"
			}
			s.Rows = append(s.Rows, r)
		}
		p.Sections = append(p.Sections, s)
	}

	if len(res.ClassRoles) > 0 {
		s := section{Title: "Duties"}
		for _, c := range res.ClassRoles {
			s.Rows = append(s.Rows, row{
				Time:  "until " + c.To.Add(-time.Second).In(loc).Format("02.01."),
				Title: c.Duty,
			})
		}
		p.Sections = append(p.Sections, s)
	}

	p.FontSize = FontSize(p.rowCount(), height)
	return p
}

func lessonRow(l model.Lesson, loc *time.Location) row {
	r := row{
		Time:  l.From.In(loc).Format("15:04") + "-" + l.To.In(loc).Format("15:04"),
		Title: l.Title(),
		Color: l.BackgroundColor,
		Class: stateClass(l.State),
	}
	var parts []string
	for _, room := range l.Rooms {
		parts = append(parts, changed(room, func(r model.Room) string { return r.Name }))
	}
	for _, t := range l.Teachers {
		parts = append(parts, changed(t, func(t model.Teacher) string { return t.Name }))
	}
	for _, s := range []string{l.Info, l.SubstitutionText} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	if l.Exam != nil {
		parts = append(parts, l.Exam.Name)
	}
	r.Detail = strings.Join(nonEmpty(parts), " · ")
	return r
}

// changed formats an element as "new (old)" when substituted.
func changed[T model.Entity](s model.Stateful[T], name func(T) string) string {
	if s.Placeholder() {
		if s.Original != nil {
			return "(" + name(*s.Original) + ")"
		}
		return ""
	}
	if s.Changed() && s.Original != nil {
		return name(s.Entity) + " (" + name(*s.Original) + ")"
	}
	return name(s.Entity)
}

func nonEmpty(in []string) []string {
	out := in[:0]
	for _, s := range in {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func stateClass(s model.LessonState) string {
	switch s {
	case model.StateCanceled, model.StateFree:
		return "canceled"
	case model.StateSubstituted, model.StateRoomSubstituted, model.StateTeacherSubstituted:
		return "substituted"
	case model.StateExam:
		return "exam"
	case model.StateRescheduled, model.StateAdditional:
		return "moved"
	}
	return ""
}
