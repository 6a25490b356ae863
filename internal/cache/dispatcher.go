// Package cache evicts cached read views after writes.  Invalidation is
// coarse: a write to any instance of a kind drops every cached view of that
// kind, trading hit rate for never serving a view older than the last
// committed write plus the eviction delay.
package cache

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Kind identifies a watched entity type.
type Kind string

const (
	KindShowTheme       Kind = "show_theme"
	KindPlanetariumDome Kind = "planetarium_dome"
	KindAstronomyShow   Kind = "astronomy_show"
	KindShowSession     Kind = "show_session"
	KindReservation     Kind = "reservation"
)

// View returns the cache-key segment under which views of kind are stored.
// The response cache embeds it in every key so DefaultPatterns match.
func (k Kind) View() string { return string(k) + "_view" }

// DefaultPatterns maps every watched kind to the glob matching its views.
func DefaultPatterns() map[Kind]string {
	kinds := []Kind{KindShowTheme, KindPlanetariumDome, KindAstronomyShow, KindShowSession, KindReservation}
	m := make(map[Kind]string, len(kinds))
	for _, k := range kinds {
		m[k] = "*" + k.View() + "*"
	}
	return m
}

// Evictor removes every cache entry whose key matches pattern and reports
// how many were removed.
type Evictor interface {
	Evict(ctx context.Context, pattern string) (int64, error)
}

// Dispatcher runs the post-commit invalidation hooks.  The kind-to-pattern
// mapping is fixed at construction.
type Dispatcher struct {
	patterns map[Kind]string
	evictor  Evictor
	log      *zap.Logger
	timeout  time.Duration
}

// NewDispatcher copies patterns so later changes to the caller's map have
// no effect.  A nil evictor makes Invalidate a no-op.
func NewDispatcher(patterns map[Kind]string, evictor Evictor, log *zap.Logger, timeout time.Duration) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	p := make(map[Kind]string, len(patterns))
	for k, v := range patterns {
		p[k] = v
	}
	return &Dispatcher{patterns: p, evictor: evictor, log: log, timeout: timeout}
}

// Pattern returns the glob registered for kind.
func (d *Dispatcher) Pattern(kind Kind) (string, bool) {
	p, ok := d.patterns[kind]
	return p, ok
}

// Invalidate evicts the views of each kind.  Failures are logged and
// swallowed: the write that triggered the call has already committed and
// must not fail because the cache is unreachable.  The eviction outlives
// cancellation of ctx but is bounded by the dispatcher timeout.
func (d *Dispatcher) Invalidate(ctx context.Context, kinds ...Kind) {
	if d == nil || d.evictor == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	defer cancel()

	seen := make(map[Kind]bool, len(kinds))
	for _, kind := range kinds {
		if seen[kind] {
			continue
		}
		seen[kind] = true
		pattern, ok := d.patterns[kind]
		if !ok {
			d.log.Debug("no cache pattern for kind", zap.String("kind", string(kind)))
			continue
		}
		n, err := d.evictor.Evict(ctx, pattern)
		if err != nil {
			d.log.Warn("cache eviction failed",
				zap.String("kind", string(kind)),
				zap.String("pattern", pattern),
				zap.Error(err))
			continue
		}
		d.log.Debug("cache evicted",
			zap.String("kind", string(kind)),
			zap.String("pattern", pattern),
			zap.Int64("keys", n))
	}
}
