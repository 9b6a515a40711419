package ics

import (
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"untiswidget/internal/model"
	"untiswidget/internal/timetable"
)

// ProductID identifies exported calendars.
const ProductID = "-//untiswidget//timetable//EN"

// Calendar builds a VCALENDAR with one VEVENT per combined lesson of
// week. Canceled and free lessons are kept with STATUS:CANCELLED so
// subscribed clients drop them instead of showing stale entries.
func Calendar(week model.Week, name string, stamp time.Time) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(ProductID)
	if name != "" {
		cal.SetXWRCalName(name)
	}

	for _, key := range timetable.SortedKeys(week) {
		for _, l := range week[key] {
			addLesson(cal, l, stamp)
		}
	}
	return cal
}

// Serialize renders week as an RFC 5545 document.
func Serialize(week model.Week, name string, stamp time.Time) string {
	return Calendar(week, name, stamp).Serialize()
}

// UID is stable across refreshes for the same lesson slot.
func UID(l model.Lesson) string {
	return fmt.Sprintf("%d-%s@untiswidget", l.ID, l.From.UTC().Format("20060102T1504"))
}

func addLesson(cal *ical.Calendar, l model.Lesson, stamp time.Time) {
	ev := cal.AddEvent(UID(l))
	ev.SetDtStampTime(stamp)
	ev.SetStartAt(l.From)
	ev.SetEndAt(l.To)
	ev.SetSummary(summary(l))

	if rooms := names(l.Rooms, func(r model.Room) string { return r.Name }); rooms != "" {
		ev.SetLocation(rooms)
	}
	if desc := description(l); desc != "" {
		ev.SetDescription(desc)
	}
	if l.State == model.StateCanceled || l.State == model.StateFree {
		ev.SetProperty(ical.ComponentPropertyStatus, "CANCELLED")
	} else {
		ev.SetProperty(ical.ComponentPropertyStatus, "CONFIRMED")
	}
	if l.BackgroundColor != "" {
		ev.SetProperty(ical.ComponentProperty("COLOR"), l.BackgroundColor)
	}
}

func summary(l model.Lesson) string {
	s := l.Title()
	if l.Exam != nil && l.Exam.Name != "" {
		s += " (" + l.Exam.Name + ")"
	}
	return s
}

func description(l model.Lesson) string {
	var lines []string
	if t := names(l.Teachers, func(t model.Teacher) string { return t.Name }); t != "" {
		lines = append(lines, "Teacher: "+t)
	}
	if l.State != model.StateNormal && l.State != "" {
		lines = append(lines, "State: "+string(l.State))
	}
	for _, s := range []string{l.Info, l.Note, l.Text, l.SubstitutionText} {
		if s != "" {
			lines = append(lines, s)
		}
	}
	return strings.Join(lines, "\n")
}

// names joins the non-placeholder entities of els.
func names[T model.Entity](els []model.Stateful[T], name func(T) string) string {
	out := make([]string, 0, len(els))
	for _, e := range els {
		if e.Placeholder() {
			continue
		}
		out = append(out, name(e.Entity))
	}
	return strings.Join(out, ", ")
}
