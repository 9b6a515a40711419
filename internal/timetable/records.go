package timetable

import (
	"sort"
	"strings"
	"time"

	"untiswidget/internal/model"
	"untiswidget/internal/untis"
)

// Exams normalizes raw exams, ordered by start.
func Exams(raw []untis.RawExam, loc *time.Location) []model.Exam {
	out := make([]model.Exam, 0, len(raw))
	for _, e := range raw {
		out = append(out, model.Exam{
			ID:       e.ID,
			Type:     e.ExamType,
			Name:     e.Name,
			Subject:  e.Subject,
			From:     CombineDateTime(e.ExamDate, e.StartTime, loc),
			To:       CombineDateTime(e.ExamDate, e.EndTime, loc),
			Teachers: e.Teachers,
			Rooms:    e.Rooms,
			Text:     e.Text,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].From.Before(out[j].From) })
	return out
}

// Grades normalizes raw grades, newest first.
func Grades(raw []untis.RawGrade, loc *time.Location) []model.Grade {
	out := make([]model.Grade, 0, len(raw))
	for _, g := range raw {
		examType := g.ExamType.LongName
		if examType == "" {
			examType = g.ExamType.Name
		}
		out = append(out, model.Grade{
			ID:       g.ID,
			Subject:  g.Subject,
			Mark:     g.Mark.Name,
			Value:    g.Mark.MarkDisplayValue,
			Text:     g.Text,
			ExamType: examType,
			Date:     Date(g.Date, loc),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out
}

// Absences normalizes raw absences, newest first.
func Absences(raw []untis.RawAbsence, loc *time.Location) []model.Absence {
	out := make([]model.Absence, 0, len(raw))
	for _, a := range raw {
		out = append(out, model.Absence{
			ID:        a.ID,
			From:      CombineDateTime(a.StartDate, a.StartTime, loc),
			To:        CombineDateTime(a.EndDate, a.EndTime, loc),
			Reason:    a.Reason,
			Text:      a.Text,
			IsExcused: a.IsExcused,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].From.After(out[j].From) })
	return out
}

// ClassRoles normalizes class duties. To is the end of the last day.
func ClassRoles(raw []untis.RawClassRole, loc *time.Location) []model.ClassRole {
	out := make([]model.ClassRole, 0, len(raw))
	for _, r := range raw {
		out = append(out, model.ClassRole{
			ID:   r.ID,
			Name: strings.TrimSpace(r.ForeName + " " + r.LongName),
			Duty: r.Duty.Label,
			Text: r.Text,
			From: Date(r.StartDate, loc),
			To:   Date(r.EndDate, loc).AddDate(0, 0, 1),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].From.Before(out[j].From) })
	return out
}

// SchoolYears normalizes school years. To is the end of the last day.
func SchoolYears(raw []untis.RawSchoolYear, loc *time.Location) []model.SchoolYear {
	out := make([]model.SchoolYear, 0, len(raw))
	for _, y := range raw {
		out = append(out, model.SchoolYear{
			ID:   y.ID,
			Name: y.Name,
			From: Date(y.StartDate, loc),
			To:   Date(y.EndDate, loc).AddDate(0, 0, 1),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].From.Before(out[j].From) })
	return out
}

// CurrentSchoolYear returns the year containing now.
func CurrentSchoolYear(years []model.SchoolYear, now time.Time) (model.SchoolYear, bool) {
	for _, y := range years {
		if !now.Before(y.From) && now.Before(y.To) {
			return y, true
		}
	}
	return model.SchoolYear{}, false
}

// UpcomingExams keeps exams that have not ended and start within scope.
func UpcomingExams(exams []model.Exam, now time.Time, scope time.Duration) []model.Exam {
	out := make([]model.Exam, 0)
	limit := now.Add(scope)
	for _, e := range exams {
		if e.To.After(now) && !e.From.After(limit) {
			out = append(out, e)
		}
	}
	return out
}

// RecentGrades keeps grades dated within scope before now.
func RecentGrades(grades []model.Grade, now time.Time, scope time.Duration) []model.Grade {
	out := make([]model.Grade, 0)
	limit := StartOfDay(now.Add(-scope))
	for _, g := range grades {
		if !g.Date.Before(limit) && !g.Date.After(now) {
			out = append(out, g)
		}
	}
	return out
}

// RecentAbsences keeps absences that started within scope before now.
func RecentAbsences(absences []model.Absence, now time.Time, scope time.Duration) []model.Absence {
	out := make([]model.Absence, 0)
	limit := now.Add(-scope)
	for _, a := range absences {
		if !a.From.Before(limit) && !a.From.After(now) {
			out = append(out, a)
		}
	}
	return out
}

// ActiveClassRoles keeps duties running at now.
func ActiveClassRoles(roles []model.ClassRole, now time.Time) []model.ClassRole {
	out := make([]model.ClassRole, 0)
	for _, r := range roles {
		if !now.Before(r.From) && now.Before(r.To) {
			out = append(out, r)
		}
	}
	return out
}
