package timetable

import (
	"time"

	"untiswidget/internal/config"
	"untiswidget/internal/model"
)

// RefreshConfig holds the planner thresholds.
type RefreshConfig struct {
	// BreakMax is the shortest break after which the display is refreshed
	// at the end of the running lesson instead of the start of the next.
	BreakMax       time.Duration
	NormalScope    time.Duration
	NormalInterval time.Duration
	LazyInterval   time.Duration
}

// RefreshConfigFrom reads the planner thresholds from settings.
func RefreshConfigFrom(s *config.Settings) RefreshConfig {
	return RefreshConfig{
		BreakMax:       config.Seconds(s.Config.BreakMax),
		NormalScope:    config.Seconds(s.Refresh.NormalScope),
		NormalInterval: config.Seconds(s.Refresh.NormalInterval),
		LazyInterval:   config.Seconds(s.Refresh.LazyInterval),
	}
}

// PlanRefresh returns when the display should next be regenerated. today
// holds the lessons of today that have not ended, in order; nextDay the
// lessons of the next day with lessons.
func PlanRefresh(now time.Time, today, nextDay []model.Lesson, cfg RefreshConfig) time.Time {
	if len(today) > 0 {
		first := today[0]
		if first.From.After(now) {
			return first.From
		}
		if len(today) > 1 {
			second := today[1]
			if second.From.Sub(first.To) < cfg.BreakMax {
				return second.From
			}
		}
		return first.To
	}

	if len(nextDay) == 0 {
		return now.Add(cfg.LazyInterval)
	}
	if len(nextDay) > 1 && nextDay[0].From.Sub(now) > cfg.NormalScope {
		return now.Add(cfg.LazyInterval)
	}
	return now.Add(cfg.NormalInterval)
}

// Earliest returns the minimum of the non-zero times, or the zero time if
// all are zero.
func Earliest(times ...time.Time) time.Time {
	var earliest time.Time
	for _, t := range times {
		if t.IsZero() {
			continue
		}
		if earliest.IsZero() || t.Before(earliest) {
			earliest = t
		}
	}
	return earliest
}
