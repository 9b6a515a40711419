package timetable

import (
	"untiswidget/internal/config"
	"untiswidget/internal/model"
)

// resolveOverride picks the override for l: the subject entry, or the
// entry of the single matching teacher when the subject defines
// teacher-specific entries. Empty teacher fields fall back to the
// subject entry.
func resolveOverride(l model.Lesson, s *config.Settings) (config.LessonOverride, bool) {
	if s == nil || l.Subject == nil {
		return config.LessonOverride{}, false
	}
	sc, ok := s.Subject(l.Subject.Entity.Name)
	if !ok {
		return config.LessonOverride{}, false
	}
	o := sc.LessonOverride
	if len(sc.Teachers) == 0 {
		return o, true
	}

	var (
		match   config.LessonOverride
		matches int
	)
	for _, t := range l.Teachers {
		if to, ok := sc.Teachers[t.Entity.Name]; ok {
			match = to
			matches++
		}
	}
	if matches != 1 {
		return o, true
	}

	if match.Color != "" {
		o.Color = match.Color
	}
	if match.NameOverride != "" {
		o.NameOverride = match.NameOverride
	}
	if match.LongNameOverride != "" {
		o.LongNameOverride = match.LongNameOverride
	}
	if len(match.IgnoreInfos) > 0 {
		o.IgnoreInfos = match.IgnoreInfos
	}
	return o, true
}

func ignored(text string, ignore []string) bool {
	if text == "" {
		return false
	}
	for _, i := range ignore {
		if text == i {
			return true
		}
	}
	return false
}

// ApplyOverrides applies the per-subject display settings to l in place:
// ignored infos are blanked, subject names overridden and the background
// color set. The subject is copied before renaming so lessons sharing
// the pointer are not affected.
func ApplyOverrides(l *model.Lesson, s *config.Settings) {
	if s == nil {
		return
	}
	color := s.Config.DefaultColor

	if o, ok := resolveOverride(*l, s); ok {
		if ignored(l.Info, o.IgnoreInfos) {
			l.Info = ""
		}
		if ignored(l.Note, o.IgnoreInfos) {
			l.Note = ""
		}
		if ignored(l.Text, o.IgnoreInfos) {
			l.Text = ""
		}
		if o.NameOverride != "" || o.LongNameOverride != "" {
			subj := *l.Subject
			if o.NameOverride != "" {
				subj.Entity.Name = o.NameOverride
			}
			if o.LongNameOverride != "" {
				subj.Entity.LongName = o.LongNameOverride
			}
			l.Subject = &subj
		}
		if o.Color != "" {
			color = o.Color
		}
	}

	l.BackgroundColor = color
}

// ApplyWeekOverrides applies ApplyOverrides to every lesson of week.
func ApplyWeekOverrides(week model.Week, s *config.Settings) {
	for _, day := range week {
		for i := range day {
			ApplyOverrides(&day[i], s)
		}
	}
}
