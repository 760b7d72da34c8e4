// Package where aggregates region readings from several probes and selects
// the most trustworthy one.
package where

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/where/internal/domain"
	"github.com/couchcryptid/where/internal/observability"
	"github.com/couchcryptid/where/internal/region"
)

// DefaultUpdateInterval is used for continuous probes that report no interval.
const DefaultUpdateInterval = 5 * time.Minute

// Config wires the collaborators of a Where.
type Config struct {
	// Probes run inline during Detect (locale, carrier, time zone).
	Probes []domain.Probe
	// AsyncProbes run on their own goroutine (IP address, location services).
	AsyncProbes []domain.AsyncProbe

	Clock   clockwork.Clock
	Logger  *slog.Logger
	Metrics *observability.Metrics

	// UpdateInterval is the fallback period for continuous async probes.
	UpdateInterval time.Duration
	// DisplayLocale selects the language of region names.
	DisplayLocale string
}

// Where holds the latest observation per source kind.
type Where struct {
	clock          clockwork.Clock
	logger         *slog.Logger
	metrics        *observability.Metrics
	updateInterval time.Duration
	displayLocale  string

	probes      []domain.Probe
	asyncProbes []domain.AsyncProbe

	// writers serializes probe runs per source so each slot has one writer.
	writers [domain.SourceCount]sync.Mutex

	mu       sync.Mutex
	slots    [domain.SourceCount]*Observation
	seq      uint64
	opts     Options
	detected bool
	runners  [domain.SourceCount]*runner
	// gen holds the context and WaitGroup of the runners started since the
	// last Stop. Stop swaps it before waiting on the old one.
	gen *generation

	subsMu  sync.Mutex
	subs    map[int]chan Change
	nextSub int
}

type generation struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func newGeneration() *generation {
	ctx, cancel := context.WithCancel(context.Background())
	return &generation{ctx: ctx, cancel: cancel}
}

// runner is the goroutine state of one async source.
type runner struct {
	stop       chan struct{}
	continuous bool
}

// New creates a Where. It panics if two probes share a source kind or a
// probe reports an invalid kind.
func New(cfg Config) *Where {
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observability.NewMetricsForTesting()
	}
	if cfg.UpdateInterval <= 0 {
		cfg.UpdateInterval = DefaultUpdateInterval
	}
	if cfg.DisplayLocale == "" {
		cfg.DisplayLocale = "en"
	}

	var seen [domain.SourceCount]bool
	claim := func(src domain.SourceKind) {
		if !src.Valid() {
			panic(fmt.Sprintf("where: probe with invalid source %s", src))
		}
		if seen[src] {
			panic(fmt.Sprintf("where: duplicate probe for source %s", src))
		}
		seen[src] = true
	}
	for _, p := range cfg.Probes {
		claim(p.Source())
	}
	for _, p := range cfg.AsyncProbes {
		claim(p.Source())
	}

	return &Where{
		clock:          cfg.Clock,
		logger:         cfg.Logger,
		metrics:        cfg.Metrics,
		updateInterval: cfg.UpdateInterval,
		displayLocale:  cfg.DisplayLocale,
		probes:         cfg.Probes,
		asyncProbes:    cfg.AsyncProbes,
		gen:            newGeneration(),
		subs:           make(map[int]chan Change),
	}
}

// Detect applies opts: it runs the synchronous probes inline and starts the
// asynchronous probes the options enable, without waiting for them. Async
// sources no longer enabled stop after any in-flight run. It returns the
// normalized options.
func (w *Where) Detect(ctx context.Context, opts Options) Options {
	opts = opts.Normalize()

	w.mu.Lock()
	w.opts = opts
	w.detected = true
	w.mu.Unlock()
	w.metrics.DetectOptions.Set(float64(opts))
	w.logger.Info("detect", "options", opts.String())

	w.runSync(ctx)

	w.mu.Lock()
	defer w.mu.Unlock()
	for _, p := range w.asyncProbes {
		src := p.Source()
		if prev := w.runners[src]; prev != nil {
			close(prev.stop)
			w.runners[src] = nil
		}
		if !opts.Enables(src) {
			continue
		}
		r := &runner{stop: make(chan struct{}), continuous: opts.Has(Continuous)}
		w.runners[src] = r
		w.gen.wg.Add(1)
		go w.run(w.gen, p, r, opts.Has(RequestPermission))
	}
	return opts
}

// DetectInstantly runs only the synchronous probes. Options are unchanged.
func (w *Where) DetectInstantly(ctx context.Context) {
	w.runSync(ctx)
}

func (w *Where) runSync(ctx context.Context) {
	for _, p := range w.probes {
		w.probe(ctx, p)
	}
}

func (w *Where) run(g *generation, p domain.AsyncProbe, r *runner, requestPermission bool) {
	defer g.wg.Done()
	ctx := g.ctx
	defer w.finish(p.Source(), r)

	if stopped(r) {
		return
	}
	if requestPermission {
		if pr, ok := p.(domain.PermissionRequester); ok {
			if err := pr.RequestPermission(ctx); err != nil {
				w.logger.Warn("permission request failed", "source", p.Source().String(), "error", err)
			}
		}
	}
	w.probe(ctx, p)
	if !r.continuous {
		return
	}

	interval := p.Interval()
	if interval <= 0 {
		interval = w.updateInterval
	}
	ticker := w.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stop:
			return
		case <-ticker.Chan():
			if stopped(r) {
				return
			}
			w.probe(ctx, p)
		}
	}
}

func stopped(r *runner) bool {
	select {
	case <-r.stop:
		return true
	default:
		return false
	}
}

func (w *Where) finish(src domain.SourceKind, r *runner) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.runners[src] == r {
		w.runners[src] = nil
	}
}

// probe runs p once and records the outcome in its slot.
func (w *Where) probe(ctx context.Context, p domain.Probe) {
	src := p.Source()
	w.writers[src].Lock()
	defer w.writers[src].Unlock()

	start := w.clock.Now()
	reading, err := p.Probe(ctx)
	w.metrics.ProbeDuration.WithLabelValues(src.String()).Observe(w.clock.Since(start).Seconds())

	if err != nil && errors.Is(ctx.Err(), context.Canceled) && !errors.Is(err, context.Canceled) {
		err = fmt.Errorf("%w: %w", err, context.Canceled)
	}

	var code string
	if err == nil {
		code, err = region.CanonicalizeStrict(reading.RegionCode)
	}
	if err != nil {
		w.fail(src, err)
		return
	}
	w.record(src, code, reading.Coordinate)
}

func (w *Where) record(src domain.SourceKind, code string, c *domain.Coordinate) {
	name := region.DisplayName(code, w.displayLocale)
	now := w.clock.Now()

	w.mu.Lock()
	w.seq++
	obs := newObservation(src, code, name, now, c, w.seq)
	w.slots[src] = &obs
	w.mu.Unlock()

	w.metrics.Observations.WithLabelValues(src.String()).Inc()
	w.logger.Info("observation", "source", src.String(), "region", code, "name", name)
	w.publish(Change{Source: src, Observation: &obs, At: now})
}

// fail clears a live slot. A canceled run leaves the slot alone.
func (w *Where) fail(src domain.SourceKind, err error) {
	reason := domain.Reason(err)
	w.metrics.ProbeFailures.WithLabelValues(src.String(), reason).Inc()
	if reason == "no_data" || reason == "canceled" {
		w.logger.Debug("probe produced no observation", "source", src.String(), "reason", reason, "error", err)
	} else {
		w.logger.Warn("probe failed", "source", src.String(), "reason", reason, "error", err)
	}
	if reason == "canceled" {
		return
	}

	w.mu.Lock()
	live := w.slots[src] != nil
	w.slots[src] = nil
	w.mu.Unlock()
	if !live {
		return
	}

	w.metrics.Removals.WithLabelValues(src.String()).Inc()
	w.logger.Info("observation removed", "source", src.String(), "reason", reason)
	w.publish(Change{Source: src, At: w.clock.Now()})
}

// Best returns the highest quality observation, if any.
func (w *Where) Best() (Observation, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	var best *Observation
	for _, o := range w.slots {
		if o != nil && (best == nil || Better(*o, *best)) {
			best = o
		}
	}
	if best == nil {
		return Observation{}, false
	}
	return *best, true
}

// All returns every live observation, best first. Equivalent observations
// keep insertion order.
func (w *Where) All() []Observation {
	w.mu.Lock()
	all := make([]Observation, 0, len(w.slots))
	for _, o := range w.slots {
		if o != nil {
			all = append(all, *o)
		}
	}
	w.mu.Unlock()

	slices.SortFunc(all, func(a, b Observation) int {
		if c := Compare(b, a); c != 0 {
			return c
		}
		return cmp.Compare(a.seq, b.seq)
	})
	return all
}

// ForSource returns the last observation of one source kind.
func (w *Where) ForSource(src domain.SourceKind) (Observation, bool) {
	if !src.Valid() {
		return Observation{}, false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if o := w.slots[src]; o != nil {
		return *o, true
	}
	return Observation{}, false
}

// Options returns the options applied by the last Detect.
func (w *Where) Options() Options {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.opts
}

// IsDetecting reports whether any asynchronous probe is pending or looping.
func (w *Where) IsDetecting() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, r := range w.runners {
		if r != nil {
			return true
		}
	}
	return false
}

// IsUpdating reports whether continuous updates are running.
func (w *Where) IsUpdating() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, r := range w.runners {
		if r != nil && r.continuous {
			return true
		}
	}
	return false
}

// Stop cancels all asynchronous probes, including in-flight runs, and waits
// for their goroutines. Detect may be called again afterwards, including
// concurrently with Stop; runners it starts are not affected.
func (w *Where) Stop() {
	w.mu.Lock()
	for src, r := range w.runners {
		if r != nil {
			close(r.stop)
			w.runners[src] = nil
		}
	}
	old := w.gen
	w.gen = newGeneration()
	w.mu.Unlock()

	old.cancel()
	old.wg.Wait()
	w.logger.Info("detection stopped")
}

// CheckReadiness returns nil once Detect has run and at least one
// observation exists.
func (w *Where) CheckReadiness(_ context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.detected {
		return errors.New("detection has not started")
	}
	for _, o := range w.slots {
		if o != nil {
			return nil
		}
	}
	return errors.New("no region observed yet")
}
