package timetable

import (
	"sort"
	"time"

	"untiswidget/internal/model"
)

// CombineOptions parameterizes the "same session" test.
type CombineOptions struct {
	// BreakMin is the longest gap between two lessons of one block.
	BreakMin time.Duration
	// IgnoreDetails compares only subject and gap.
	IgnoreDetails bool
	// IgnoreBreaks joins same-subject lessons regardless of the gap.
	IgnoreBreaks bool
}

// ShouldCombine reports whether next continues the block prev.
func ShouldCombine(prev, next model.Lesson, opts CombineOptions) bool {
	if prev.SubjectName() != next.SubjectName() {
		return false
	}
	if !opts.IgnoreBreaks && next.From.Sub(prev.To) > opts.BreakMin {
		return false
	}
	if opts.IgnoreDetails {
		return true
	}
	return EqualDetails(prev, next)
}

// Combine merges consecutive combinable lessons of one day. lessons must
// be sorted by From. The input is not modified.
func Combine(lessons []model.Lesson, opts CombineOptions) []model.Lesson {
	out := make([]model.Lesson, 0, len(lessons))
	for _, l := range lessons {
		if len(out) == 0 {
			out = append(out, l)
			continue
		}
		last := &out[len(out)-1]
		if !ShouldCombine(*last, l, opts) {
			out = append(out, l)
			continue
		}

		if gap := l.From.Sub(last.To); gap > 0 {
			var total time.Duration
			if last.Break != nil {
				total = *last.Break
			}
			total += gap
			last.Break = &total
		}
		// Overlapping lessons never shrink the block.
		if l.To.After(last.To) {
			last.To = l.To
		}
		last.Duration += l.Duration
	}
	return out
}

// SortDay orders lessons by From, keeping encounter order for ties.
func SortDay(lessons []model.Lesson) {
	sort.SliceStable(lessons, func(i, j int) bool {
		return lessons[i].From.Before(lessons[j].From)
	})
}

// CombineWeek sorts and combines every day of week into a new Week.
func CombineWeek(week model.Week, opts CombineOptions) model.Week {
	out := make(model.Week, len(week))
	for key, day := range week {
		sorted := append([]model.Lesson(nil), day...)
		SortDay(sorted)
		out[key] = Combine(sorted, opts)
	}
	return out
}

// EqualDetails compares two lessons field by field, ignoring the fields
// that differ between consecutive periods of one block: ID, From, To,
// Duration and Break.
func EqualDetails(a, b model.Lesson) bool {
	return a.Note == b.Note &&
		a.Text == b.Text &&
		a.Info == b.Info &&
		a.SubstitutionText == b.SubstitutionText &&
		a.State == b.State &&
		a.IsEvent == b.IsEvent &&
		a.IsRescheduled == b.IsRescheduled &&
		a.BackgroundColor == b.BackgroundColor &&
		equalStatefuls(a.Groups, b.Groups) &&
		equalStatefuls(a.Teachers, b.Teachers) &&
		equalStatefuls(a.Rooms, b.Rooms) &&
		equalStatefulPtr(a.Subject, b.Subject) &&
		equalExam(a.Exam, b.Exam) &&
		equalReschedule(a.RescheduleInfo, b.RescheduleInfo)
}

// Equal compares all fields of two lessons.
func Equal(a, b model.Lesson) bool {
	return a.ID == b.ID &&
		a.From.Equal(b.From) &&
		a.To.Equal(b.To) &&
		a.Duration == b.Duration &&
		equalDurationPtr(a.Break, b.Break) &&
		EqualDetails(a, b)
}

func equalStateful[T model.Entity](a, b model.Stateful[T]) bool {
	if a.Entity != b.Entity || a.State != b.State {
		return false
	}
	if (a.Original == nil) != (b.Original == nil) {
		return false
	}
	return a.Original == nil || *a.Original == *b.Original
}

func equalStatefuls[T model.Entity](a, b []model.Stateful[T]) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !equalStateful(a[i], b[i]) {
			return false
		}
	}
	return true
}

func equalStatefulPtr[T model.Entity](a, b *model.Stateful[T]) bool {
	if a == nil || b == nil {
		return a == b
	}
	return equalStateful(*a, *b)
}

func equalExam(a, b *model.LessonExam) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalReschedule(a, b *model.RescheduleInfo) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.IsSource == b.IsSource && a.OtherFrom.Equal(b.OtherFrom) && a.OtherTo.Equal(b.OtherTo)
}

func equalDurationPtr(a, b *time.Duration) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
