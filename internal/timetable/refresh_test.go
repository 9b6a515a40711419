package timetable

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"untiswidget/internal/config"
	"untiswidget/internal/model"
)

var planCfg = RefreshConfig{
	BreakMax:       20 * time.Minute,
	NormalScope:    8 * time.Hour,
	NormalInterval: time.Hour,
	LazyInterval:   4 * time.Hour,
}

func TestPlanRefreshBeforeFirstLesson(t *testing.T) {
	now := at(20240510, 700)
	today := []model.Lesson{lesson(1, "M", 20240510, 800, 845)}
	assert.Equal(t, at(20240510, 800), PlanRefresh(now, today, nil, planCfg))
}

func TestPlanRefreshShortBreakSkipsToNextStart(t *testing.T) {
	now := at(20240510, 810)
	today := []model.Lesson{
		lesson(1, "M", 20240510, 800, 845),
		lesson(2, "D", 20240510, 850, 935),
	}
	assert.Equal(t, at(20240510, 850), PlanRefresh(now, today, nil, planCfg))
}

func TestPlanRefreshLongBreakRefreshesAtEnd(t *testing.T) {
	now := at(20240510, 810)
	today := []model.Lesson{
		lesson(1, "M", 20240510, 800, 845),
		lesson(2, "D", 20240510, 1000, 1045),
	}
	assert.Equal(t, at(20240510, 845), PlanRefresh(now, today, nil, planCfg))

	today[1] = lesson(2, "D", 20240510, 905, 950)
	assert.Equal(t, at(20240510, 845), PlanRefresh(now, today, nil, planCfg))

	assert.Equal(t, at(20240510, 845), PlanRefresh(now, today[:1], nil, planCfg))
}

func TestPlanRefreshNoLessonsLeft(t *testing.T) {
	now := at(20240510, 1800)

	assert.Equal(t, now.Add(4*time.Hour), PlanRefresh(now, nil, nil, planCfg))

	near := []model.Lesson{lesson(1, "M", 20240510, 2200, 2245), lesson(2, "D", 20240510, 2300, 2345)}
	assert.Equal(t, now.Add(time.Hour), PlanRefresh(now, nil, near, planCfg))

	far := []model.Lesson{lesson(1, "M", 20240513, 800, 845), lesson(2, "D", 20240513, 900, 945)}
	assert.Equal(t, now.Add(4*time.Hour), PlanRefresh(now, nil, far, planCfg))

	assert.Equal(t, now.Add(time.Hour), PlanRefresh(now, nil, far[:1], planCfg))
}

func TestRefreshConfigFrom(t *testing.T) {
	s := config.DefaultSettings()
	s.Config.BreakMax = 600
	cfg := RefreshConfigFrom(s)
	assert.Equal(t, 10*time.Minute, cfg.BreakMax)
	assert.Equal(t, time.Duration(s.Refresh.LazyInterval)*time.Second, cfg.LazyInterval)
}

func TestEarliest(t *testing.T) {
	a := at(20240510, 800)
	b := at(20240510, 700)
	assert.Equal(t, b, Earliest(time.Time{}, a, b))
	assert.True(t, Earliest().IsZero())
}
