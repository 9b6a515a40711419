package timetable

import (
	"time"

	"untiswidget/internal/config"
	appLog "untiswidget/internal/log"
	"untiswidget/internal/model"
	"untiswidget/internal/untis"
)

// Normalizer turns raw Untis periods into model.Lesson values.
type Normalizer struct {
	// Settings receives auto-registered subjects. May be nil.
	Settings *config.Settings
	Location *time.Location
}

func (n *Normalizer) loc() *time.Location {
	if n.Location == nil {
		return time.Local
	}
	return n.Location
}

func cellState(c string) model.LessonState {
	switch c {
	case untis.CellSubstitution:
		return model.StateSubstituted
	case untis.CellRoomSubstitution:
		return model.StateRoomSubstituted
	case untis.CellCancel:
		return model.StateCanceled
	case untis.CellFree:
		return model.StateFree
	case untis.CellExam:
		return model.StateExam
	case untis.CellShift:
		return model.StateRescheduled
	case untis.CellAdditional:
		return model.StateAdditional
	default:
		return model.StateNormal
	}
}

func anyChanged[T model.Entity](els []model.Stateful[T]) bool {
	for _, e := range els {
		if e.Changed() {
			return true
		}
	}
	return false
}

// deriveState applies the element checks in order teacher, room, subject,
// each one overwriting the previous result. Canceled and free lessons
// keep their cell state.
func deriveState(base model.LessonState, p Participants) model.LessonState {
	if base == model.StateCanceled || base == model.StateFree {
		return base
	}
	state := base
	if anyChanged(p.Teachers) {
		state = model.StateTeacherSubstituted
	}
	if anyChanged(p.Rooms) {
		if state == model.StateTeacherSubstituted {
			state = model.StateSubstituted
		} else {
			state = model.StateRoomSubstituted
		}
	}
	if p.Subject != nil && p.Subject.Changed() {
		state = model.StateSubstituted
	}
	return state
}

// Lesson builds the lesson for raw with already resolved participants.
func (n *Normalizer) Lesson(raw untis.RawLesson, p Participants) model.Lesson {
	loc := n.loc()

	l := model.Lesson{
		ID:               raw.ID,
		From:             CombineDateTime(raw.Date, raw.StartTime, loc),
		To:               CombineDateTime(raw.Date, raw.EndTime, loc),
		Duration:         1,
		Note:             raw.LessonText,
		Text:             raw.PeriodText,
		Info:             raw.PeriodInfo,
		SubstitutionText: raw.SubstText,
		Groups:           p.Groups,
		Teachers:         p.Teachers,
		Rooms:            p.Rooms,
		Subject:          p.Subject,
		State:            deriveState(cellState(raw.CellState), p),
		IsEvent:          raw.Is.Event,
		IsRescheduled:    raw.RescheduleInfo != nil,
	}

	if raw.RescheduleInfo != nil {
		ri := raw.RescheduleInfo
		l.RescheduleInfo = &model.RescheduleInfo{
			IsSource:  ri.IsSource,
			OtherFrom: CombineDateTime(ri.Date, ri.StartTime, loc),
			OtherTo:   CombineDateTime(ri.Date, ri.EndTime, loc),
		}
	}
	if raw.Exam != nil {
		l.Exam = &model.LessonExam{Name: raw.Exam.Name, MarkSchemaID: raw.Exam.MarkSchemaID}
	}

	if n.Settings != nil && n.Settings.Config.AutoAddSubjects && l.Subject != nil {
		if n.Settings.EnsureSubject(l.Subject.Entity.Name) {
			appLog.Info("registered new subject", "subject", l.Subject.Entity.Name)
		}
	}

	return l
}

// Week normalizes every period of raw into day buckets, in encounter
// order. Periods whose references do not resolve at all are skipped.
func (n *Normalizer) Week(raw untis.RawWeek) model.Week {
	roster := NewRoster(raw.Elements)
	week := make(model.Week)

	for _, rl := range raw.Lessons {
		p, ok := roster.ResolveLesson(rl)
		if !ok {
			appLog.Warn("skipping lesson without resolvable elements", "lesson_id", rl.ID, "date", rl.Date)
			continue
		}
		l := n.Lesson(rl, p)
		key := DateKey(l.From)
		week[key] = append(week[key], l)
	}
	return week
}
