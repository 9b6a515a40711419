package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	appLog "untiswidget/internal/log"
)

// PlannedSchedule fires once at At. Once At has passed, or when no time
// was planned, it follows Fallback.
type PlannedSchedule struct {
	At       time.Time
	Fallback cron.Schedule
}

func (p PlannedSchedule) Next(t time.Time) time.Time {
	if !p.At.IsZero() && p.At.After(t) {
		return p.At
	}
	return p.Fallback.Next(t)
}

// Pass runs one render pass and returns when the next one is due. A zero
// time or an error selects the fallback schedule.
type Pass func(ctx context.Context) (time.Time, error)

// Runner executes passes at their planned times.
type Runner struct {
	pass     Pass
	fallback cron.Schedule
	cron     *cron.Cron

	mu    sync.Mutex
	entry cron.EntryID
	ctx   context.Context
}

// NewRunner parses the fallback spec (standard 5-field cron syntax).
func NewRunner(spec string, loc *time.Location, pass Pass) (*Runner, error) {
	fallback, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("scheduler: invalid cron spec %q: %w", spec, err)
	}
	if loc == nil {
		loc = time.Local
	}
	logger := cronLogger{}
	return &Runner{
		pass:     pass,
		fallback: fallback,
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
	}, nil
}

// Start runs the first pass synchronously and starts the cron loop.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	r.ctx = ctx
	r.mu.Unlock()

	at := r.runPass()
	r.cron.Start()
	r.reschedule(at)
}

// Stop halts the loop and waits for a running pass.
func (r *Runner) Stop() {
	<-r.cron.Stop().Done()
}

// Run starts the runner and blocks until ctx is canceled.
func (r *Runner) Run(ctx context.Context) {
	r.Start(ctx)
	<-ctx.Done()
	r.Stop()
}

// Next returns when the next pass is due, or the zero time.
func (r *Runner) Next() time.Time {
	r.mu.Lock()
	id := r.entry
	r.mu.Unlock()
	return r.cron.Entry(id).Next
}

func (r *Runner) runPass() time.Time {
	r.mu.Lock()
	ctx := r.ctx
	r.mu.Unlock()

	at, err := r.pass(ctx)
	if err != nil {
		appLog.Error("render pass failed, using fallback schedule", err)
		return time.Time{}
	}
	return at
}

func (r *Runner) job() {
	r.reschedule(r.runPass())
}

// reschedule replaces the pending entry. cron computes an entry's next
// run before the job returns, so every pass installs a fresh entry.
func (r *Runner) reschedule(at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.entry != 0 {
		r.cron.Remove(r.entry)
	}
	r.entry = r.cron.Schedule(PlannedSchedule{At: at, Fallback: r.fallback}, cron.FuncJob(r.job))
	appLog.Info("next render pass scheduled", "at", r.cron.Entry(r.entry).Next.Format(time.RFC3339))
}

// cronLogger forwards cron's logr-style logging to internal/log.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	appLog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	appLog.Error("cron: "+msg, err, keysAndValues...)
}
