package widget

import (
	"context"
	"time"

	"untiswidget/internal/cache"
	appLog "untiswidget/internal/log"
	"untiswidget/internal/notify"
	"untiswidget/internal/timetable"
)

type domain[T any] struct {
	key    string
	maxAge time.Duration
	// notify enables compare for this domain.
	notify  bool
	fetch   func(ctx context.Context) (T, error)
	compare func(fresh, cached T)
	// noProposal skips the cache-age refresh proposal.
	noProposal bool
}

// fresh reports whether e can be served without fetching: younger than
// maxAge and written on the same calendar day as now.
func fresh(e cache.Entry, now time.Time, maxAge time.Duration, loc *time.Location) bool {
	return e.Age(now) < maxAge && timetable.SameDay(e.LastModified, now, loc)
}

// load serves d from the store while fresh, otherwise fetches, writes the
// store and compares against the previous snapshot. A failed fetch is
// returned as-is and leaves the store untouched.
func load[T any](ctx context.Context, o *Orchestrator, p *pass, d domain[T]) (T, error) {
	var zero T
	loc := o.loc()

	entry, ok, err := o.Store.Read(d.key)
	if err != nil {
		appLog.Warn("cache read failed, fetching", "key", d.key, "err", err)
		ok = false
	}

	if ok && fresh(entry, p.now, d.maxAge, loc) {
		var v T
		err := cache.Decode(entry.Content, &v)
		if err == nil {
			appLog.Debug("serving from cache", "key", d.key, "age", entry.Age(p.now).String())
			if !d.noProposal {
				p.propose(entry.LastModified.Add(d.maxAge))
			}
			return v, nil
		}
		appLog.Warn("cache entry unreadable, fetching", "key", d.key, "err", err)
		ok = false
	}

	appLog.Debug("fetching", "key", d.key)
	v, err := d.fetch(ctx)
	if err != nil {
		return zero, err
	}
	data, err := cache.Encode(v)
	if err != nil {
		return zero, err
	}
	if err := o.Store.Write(d.key, data); err != nil {
		appLog.Error("cache write failed", err, "key", d.key)
	}
	if !d.noProposal {
		p.propose(p.now.Add(d.maxAge))
	}

	if ok && d.notify && d.compare != nil && notify.Changed(data, entry.Content) {
		var cached T
		if err := cache.Decode(entry.Content, &cached); err != nil {
			appLog.Warn("previous snapshot unreadable, skipping comparison", "key", d.key, "err", err)
		} else {
			d.compare(v, cached)
		}
	}
	return v, nil
}
