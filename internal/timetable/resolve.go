package timetable

import (
	appLog "untiswidget/internal/log"
	"untiswidget/internal/model"
	"untiswidget/internal/untis"
)

type elementKey struct {
	typ untis.ElementType
	id  int
}

// Roster resolves element references of one fetched week.
type Roster struct {
	byKey map[elementKey]untis.RawElement
}

// NewRoster indexes the element definitions by (type, id). Later
// duplicates are ignored.
func NewRoster(elements []untis.RawElement) *Roster {
	r := &Roster{byKey: make(map[elementKey]untis.RawElement, len(elements))}
	for _, e := range elements {
		k := elementKey{e.Type, e.ID}
		if _, ok := r.byKey[k]; ok {
			continue
		}
		r.byKey[k] = e
	}
	return r
}

// Lookup finds the element of the given type and id.
func (r *Roster) Lookup(typ untis.ElementType, id int) (untis.RawElement, bool) {
	if r == nil {
		return untis.RawElement{}, false
	}
	e, ok := r.byKey[elementKey{typ, id}]
	return e, ok
}

// Participants are the resolved elements of one raw lesson.
type Participants struct {
	Groups   []model.Stateful[model.Group]
	Teachers []model.Stateful[model.Teacher]
	Rooms    []model.Stateful[model.Room]
	Subject  *model.Stateful[model.Subject]
}

func elementState(s string) model.ElementState {
	switch s {
	case untis.StateSubstituted:
		return model.ElementSubstituted
	case untis.StateAbsent:
		return model.ElementAbsent
	default:
		return model.ElementRegular
	}
}

// resolve looks up ref and, if present and nonzero, its original. A ref
// with id 0 and a resolvable original is a placeholder ("nobody") and
// resolves to the zero entity.
func resolve[T model.Entity](r *Roster, ref untis.RawElementRef, conv func(untis.RawElement) T) (model.Stateful[T], bool) {
	out := model.Stateful[T]{State: elementState(ref.State)}

	if ref.OrgID != 0 {
		if org, ok := r.Lookup(ref.Type, ref.OrgID); ok {
			o := conv(org)
			out.Original = &o
		}
	}

	if ref.ID == 0 && out.Original != nil {
		return out, true
	}

	e, ok := r.Lookup(ref.Type, ref.ID)
	if !ok {
		return out, false
	}
	out.Entity = conv(e)
	return out, true
}

func toTeacher(e untis.RawElement) model.Teacher {
	return model.Teacher{ID: e.ID, Name: e.Name}
}

func toGroup(e untis.RawElement) model.Group {
	return model.Group{ID: e.ID, Name: e.Name, LongName: e.LongName}
}

func toSubject(e untis.RawElement) model.Subject {
	return model.Subject{ID: e.ID, Name: e.Name, LongName: e.LongName}
}

func toRoom(e untis.RawElement) model.Room {
	return model.Room{ID: e.ID, Name: e.Name, LongName: e.LongName, Capacity: e.Capacity}
}

// ResolveLesson partitions the references of raw by type. Unresolvable
// references are logged and skipped. The second return value is false
// when the lesson has references but none of them resolved.
//
// A lesson with more than one subject keeps the first subject that
// resolved.
func (r *Roster) ResolveLesson(raw untis.RawLesson) (Participants, bool) {
	var p Participants
	resolved := 0
	considered := 0

	for _, ref := range raw.Elements {
		var ok bool
		switch ref.Type {
		case untis.ElementGroup:
			var g model.Stateful[model.Group]
			if g, ok = resolve(r, ref, toGroup); ok {
				p.Groups = append(p.Groups, g)
			}
		case untis.ElementTeacher:
			var t model.Stateful[model.Teacher]
			if t, ok = resolve(r, ref, toTeacher); ok {
				p.Teachers = append(p.Teachers, t)
			}
		case untis.ElementRoom:
			var rm model.Stateful[model.Room]
			if rm, ok = resolve(r, ref, toRoom); ok {
				p.Rooms = append(p.Rooms, rm)
			}
		case untis.ElementSubject:
			var s model.Stateful[model.Subject]
			if s, ok = resolve(r, ref, toSubject); ok {
				if p.Subject == nil {
					p.Subject = &s
				} else {
					appLog.Warn("lesson has more than one subject; keeping the first",
						"lesson_id", raw.ID,
						"kept", p.Subject.Entity.Name,
						"dropped", s.Entity.Name,
					)
				}
			}
		default:
			// Students and unknown types are not displayed.
			continue
		}

		considered++
		if ok {
			resolved++
			continue
		}
		appLog.Warn("element reference did not resolve",
			"lesson_id", raw.ID,
			"type", ref.Type.String(),
			"id", ref.ID,
			"org_id", ref.OrgID,
		)
	}

	if considered > 0 && resolved == 0 {
		return p, false
	}
	return p, true
}
