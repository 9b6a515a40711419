package timetable

import (
	"context"
	"sort"
	"time"

	"untiswidget/internal/config"
	appLog "untiswidget/internal/log"
	"untiswidget/internal/model"
)

// WeekSource supplies the normalized and combined lessons of the ISO week
// containing anchor. next tells the source whether this is the follow-up
// week so it can cache both separately.
type WeekSource interface {
	Week(ctx context.Context, anchor time.Time, next bool) (model.Week, error)
}

// Assembler selects the lessons relevant for "now".
type Assembler struct {
	Source   WeekSource
	Settings *config.Settings
	Location *time.Location
}

// Assembly is the output of Assemble.
type Assembly struct {
	// Today holds today's lessons that have not ended yet.
	Today []model.Lesson
	// NextDay holds the lessons of the next day with lessons, if any.
	NextDay    []model.Lesson
	NextDayKey string
	// Week is the merged map of all fetched days, overrides applied.
	Week model.Week
}

// SortedKeys returns the date keys of week in chronological order.
func SortedKeys(week model.Week) []string {
	keys := make([]string, 0, len(week))
	for k := range week {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Assemble fetches the current week, and the following one when the
// current week holds no further day, and picks today's remaining lessons
// and the next day. Fetch errors are returned unchanged.
func (a *Assembler) Assemble(ctx context.Context, now time.Time) (Assembly, error) {
	loc := a.Location
	if loc == nil {
		loc = now.Location()
	}
	now = now.In(loc)

	week, err := a.Source.Week(ctx, now, false)
	if err != nil {
		return Assembly{}, err
	}
	merged := make(model.Week, len(week))
	for k, v := range week {
		merged[k] = v
	}

	todayKey := DateKey(now)
	keys := SortedKeys(merged)

	todayIdx := -1
	nextKey := ""
	for i, k := range keys {
		if k == todayKey {
			todayIdx = i
			continue
		}
		if k > todayKey && nextKey == "" {
			nextKey = k
		}
	}

	if nextKey != "" && dayPassed(nextKey, now, loc) {
		appLog.Debug("discarding next day that already passed", "next_day", nextKey, "now", now.Format(time.RFC3339))
		nextKey = ""
	}

	lastKnown := len(keys) > 0 && todayIdx == len(keys)-1
	if lastKnown || len(keys) == 0 || nextKey == "" {
		anchor := now.AddDate(0, 0, 7)
		if len(keys) > 0 {
			if first, err := ParseDateKey(keys[0], loc); err == nil {
				anchor = first.AddDate(0, 0, 7)
			}
		}

		following, err := a.Source.Week(ctx, anchor, true)
		if err != nil {
			return Assembly{}, err
		}
		for k, v := range following {
			if _, clash := merged[k]; clash {
				continue
			}
			merged[k] = v
		}
		if nextKey == "" {
			for _, k := range SortedKeys(following) {
				if k > todayKey && !dayPassed(k, now, loc) {
					nextKey = k
					break
				}
			}
		}
	}

	ApplyWeekOverrides(merged, a.Settings)

	today := make([]model.Lesson, 0)
	for _, l := range merged[todayKey] {
		if l.To.After(now) {
			today = append(today, l)
		}
	}

	var nextDay []model.Lesson
	if nextKey != "" {
		nextDay = merged[nextKey]
	}

	return Assembly{
		Today:      today,
		NextDay:    nextDay,
		NextDayKey: nextKey,
		Week:       merged,
	}, nil
}

// dayPassed reports whether the whole day of key lies before now.
func dayPassed(key string, now time.Time, loc *time.Location) bool {
	day, err := ParseDateKey(key, loc)
	if err != nil {
		return true
	}
	return !day.AddDate(0, 0, 1).After(now)
}
