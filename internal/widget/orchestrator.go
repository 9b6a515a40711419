package widget

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"untiswidget/internal/cache"
	"untiswidget/internal/config"
	appLog "untiswidget/internal/log"
	"untiswidget/internal/model"
	"untiswidget/internal/notify"
	"untiswidget/internal/timetable"
	"untiswidget/internal/untis"
)

// Cache keys, one per data domain.
const (
	KeyLessons     = "lessons"
	KeyLessonsNext = "lessons_next"
	KeyExams       = "exams"
	KeyGrades      = "grades"
	KeyAbsences    = "absences"
	KeySchoolYears = "school_years"
	KeyClassRoles  = "class_roles"
)

// Result is everything one render pass shows.
type Result struct {
	GeneratedAt time.Time `json:"generatedAt"`

	// Lessons are today's combined lessons that have not ended.
	Lessons    []model.Lesson `json:"lessons"`
	NextDay    []model.Lesson `json:"nextDay"`
	NextDayKey string         `json:"nextDayKey,omitempty"`
	Week       model.Week     `json:"week"`

	Exams      []model.Exam      `json:"exams"`
	Grades     []model.Grade     `json:"grades"`
	Absences   []model.Absence   `json:"absences"`
	ClassRoles []model.ClassRole `json:"classRoles"`
	SchoolYear *model.SchoolYear `json:"schoolYear,omitempty"`

	// RefreshAt is the earliest refresh time proposed by any domain.
	RefreshAt time.Time `json:"refreshAt"`
}

// Orchestrator runs one render pass: every domain is served from cache
// while fresh and fetched otherwise.
type Orchestrator struct {
	Source   untis.Source
	Store    cache.Store
	Settings *config.Settings
	// Notifier is optional; nil disables change notifications.
	Notifier *notify.Notifier
	Location *time.Location
}

func (o *Orchestrator) loc() *time.Location {
	if o.Location != nil {
		return o.Location
	}
	return time.Local
}

// pass collects the refresh proposals of one Run. Domains run
// concurrently, so the minimum is guarded.
type pass struct {
	now time.Time

	mu        sync.Mutex
	refreshAt time.Time
}

func (p *pass) propose(t time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refreshAt = timetable.Earliest(p.refreshAt, t)
}

// Run loads all domains concurrently and assembles the result. The first
// fetch failure cancels the others and is returned.
func (o *Orchestrator) Run(ctx context.Context, now time.Time) (*Result, error) {
	loc := o.loc()
	now = now.In(loc)
	s := o.Settings
	p := &pass{now: now}
	res := &Result{GeneratedAt: now}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		asm := &timetable.Assembler{
			Source:   &weekSource{o: o, p: p},
			Settings: s,
			Location: loc,
		}
		a, err := asm.Assemble(gctx, now)
		if err != nil {
			return fmt.Errorf("lessons: %w", err)
		}
		res.Lessons = a.Today
		res.NextDay = a.NextDay
		res.NextDayKey = a.NextDayKey
		res.Week = a.Week
		p.propose(timetable.PlanRefresh(now, a.Today, a.NextDay, timetable.RefreshConfigFrom(s)))
		return nil
	})

	g.Go(func() error {
		scope := config.Seconds(s.Views.Exams.Scope)
		exams, err := load(gctx, o, p, domain[[]model.Exam]{
			key:    KeyExams,
			maxAge: config.Seconds(s.Cache.Exams),
			notify: s.Notifications.Exams,
			fetch: func(ctx context.Context) ([]model.Exam, error) {
				raw, err := o.Source.Exams(ctx, timetable.StartOfDay(now), now.Add(scope))
				if err != nil {
					return nil, err
				}
				return timetable.Exams(raw, loc), nil
			},
			compare: o.notifier().Exams,
		})
		if err != nil {
			return fmt.Errorf("exams: %w", err)
		}
		res.Exams = timetable.UpcomingExams(exams, now, scope)
		return nil
	})

	g.Go(func() error {
		scope := config.Seconds(s.Views.Absences.Scope)
		absences, err := load(gctx, o, p, domain[[]model.Absence]{
			key:    KeyAbsences,
			maxAge: config.Seconds(s.Cache.Absences),
			notify: s.Notifications.Absences,
			fetch: func(ctx context.Context) ([]model.Absence, error) {
				raw, err := o.Source.Absences(ctx, timetable.StartOfDay(now.Add(-scope)), now)
				if err != nil {
					return nil, err
				}
				return timetable.Absences(raw, loc), nil
			},
			compare: o.notifier().Absences,
		})
		if err != nil {
			return fmt.Errorf("absences: %w", err)
		}
		res.Absences = timetable.RecentAbsences(absences, now, scope)
		return nil
	})

	// Grades and class roles are queried per school year.
	g.Go(func() error {
		years, err := load(gctx, o, p, domain[[]model.SchoolYear]{
			key:    KeySchoolYears,
			maxAge: config.Seconds(s.Cache.SchoolYears),
			fetch: func(ctx context.Context) ([]model.SchoolYear, error) {
				raw, err := o.Source.SchoolYears(ctx)
				if err != nil {
					return nil, err
				}
				return timetable.SchoolYears(raw, loc), nil
			},
		})
		if err != nil {
			return fmt.Errorf("school years: %w", err)
		}
		year, ok := timetable.CurrentSchoolYear(years, now)
		if !ok {
			appLog.Warn("no school year contains now, skipping grades and class roles", "now", now.Format(time.RFC3339))
			res.Grades = []model.Grade{}
			res.ClassRoles = []model.ClassRole{}
			return nil
		}
		res.SchoolYear = &year

		gradeScope := config.Seconds(s.Views.Grades.Scope)
		grades, err := load(gctx, o, p, domain[[]model.Grade]{
			key:    KeyGrades,
			maxAge: config.Seconds(s.Cache.Grades),
			notify: s.Notifications.Grades,
			fetch: func(ctx context.Context) ([]model.Grade, error) {
				raw, err := o.Source.Grades(ctx, year.From, year.To)
				if err != nil {
					return nil, err
				}
				return timetable.Grades(raw, loc), nil
			},
			compare: o.notifier().Grades,
		})
		if err != nil {
			return fmt.Errorf("grades: %w", err)
		}
		res.Grades = timetable.RecentGrades(grades, now, gradeScope)

		roles, err := load(gctx, o, p, domain[[]model.ClassRole]{
			key:    KeyClassRoles,
			maxAge: config.Seconds(s.Cache.ClassRoles),
			fetch: func(ctx context.Context) ([]model.ClassRole, error) {
				raw, err := o.Source.ClassRoles(ctx, year.From, year.To)
				if err != nil {
					return nil, err
				}
				return timetable.ClassRoles(raw, loc), nil
			},
		})
		if err != nil {
			return fmt.Errorf("class roles: %w", err)
		}
		res.ClassRoles = timetable.ActiveClassRoles(roles, now)
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	res.RefreshAt = p.refreshAt
	return res, nil
}

// notifier returns a Notifier that is never nil so method values can be
// taken unconditionally.
func (o *Orchestrator) notifier() *notify.Notifier {
	if o.Notifier != nil {
		return o.Notifier
	}
	return &notify.Notifier{Settings: o.Settings, Location: o.loc()}
}

// weekSource feeds the assembler from the two lesson cache keys. The
// normalized week is cached and compared; combination runs on every load.
type weekSource struct {
	o *Orchestrator
	p *pass
}

func (w *weekSource) Week(ctx context.Context, anchor time.Time, next bool) (model.Week, error) {
	o := w.o
	s := o.Settings
	key := KeyLessons
	if next {
		key = KeyLessonsNext
	}
	norm := &timetable.Normalizer{Settings: s, Location: o.loc()}

	week, err := load(ctx, o, w.p, domain[model.Week]{
		key:    key,
		maxAge: config.Seconds(s.Cache.Lessons),
		notify: s.Notifications.Lessons,
		fetch: func(ctx context.Context) (model.Week, error) {
			raw, err := o.Source.Timetable(ctx, anchor)
			if err != nil {
				return nil, err
			}
			return norm.Week(raw), nil
		},
		compare: o.notifier().Lessons,
		// The lesson refresh is planned from the timetable itself.
		noProposal: true,
	})
	if err != nil {
		return nil, err
	}
	return timetable.CombineWeek(week, timetable.CombineOptions{
		BreakMin: config.Seconds(s.Config.BreakMin),
	}), nil
}
