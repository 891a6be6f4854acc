// Package controller runs the wallpaper rotation: it logs in, fetches the
// catalog, picks a photo every interval, caches it and applies it.
package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"immich-wallpaper/internal/app/controller/planners"
	"immich-wallpaper/internal/immich"
)

const (
	DefaultChangeInterval = 5 * time.Minute
	MinChangeInterval     = time.Minute
	MaxChangeInterval     = 24 * time.Hour
	DefaultRetryDelay     = 300 * time.Second
)

// ErrNotActive is returned by [Controller.Advance] when there is no catalog
// to rotate through.
var ErrNotActive = errors.New("rotation is not active")

// Source is the immich side of a rotation. It is implemented by
// [immich.Client].
type Source interface {
	EnsureSession(ctx context.Context) (string, error)
	InvalidateSession()
	FetchCatalog(ctx context.Context, token string, albumID immich.AlbumID) (immich.Catalog, error)
	EnsureLocal(ctx context.Context, token string, md immich.AssetMetadata) (string, error)
	GetMetadata(ctx context.Context, token string, id immich.AssetID) (*immich.PhotoMetadata, error)
	Prune(ctx context.Context, catalog immich.Catalog, keep string) (int, error)
}

// Applier sets a local image file as the desktop wallpaper.
type Applier interface {
	Apply(ctx context.Context, path string) error
}

// Config holds the values that drive the rotation. It is read once at the
// start and on every restart; a change to any of it needs [Controller.Restart].
//
// This package does not handle parsing and has no expectation on how it will
// be initialized.
type Config struct {
	Source         Source
	AlbumID        immich.AlbumID
	ChangeInterval time.Duration
	RetryDelay     time.Duration
	PlanAlgorithm  planners.PlanAlgorithm
}

// ClampInterval bounds a change interval to [MinChangeInterval,
// MaxChangeInterval]. Zero means DefaultChangeInterval.
func ClampInterval(d time.Duration) time.Duration {
	switch {
	case d == 0:
		return DefaultChangeInterval
	case d < MinChangeInterval:
		return MinChangeInterval
	case d > MaxChangeInterval:
		return MaxChangeInterval
	}
	return d
}

func (conf Config) withDefaults() Config {
	conf.ChangeInterval = ClampInterval(conf.ChangeInterval)
	if conf.RetryDelay <= 0 {
		conf.RetryDelay = DefaultRetryDelay
	}
	if conf.Source == nil {
		conf.Source = immich.NewClient()
	}
	return conf
}

// Status is a snapshot of the scheduler, safe to read from any goroutine.
type Status struct {
	State       State          `json:"state"`
	Generation  uint64         `json:"generation"`
	AlbumID     immich.AlbumID `json:"album_id,omitempty"`
	PlanAlgo    string         `json:"plan_algorithm,omitempty"`
	CatalogSize int            `json:"catalog_size"`
	Index       int            `json:"index"`
	Current     string         `json:"current,omitempty"`
	CurrentID   immich.AssetID `json:"current_id,omitempty"`
	LastChange  time.Time      `json:"last_change,omitzero"`
	NextChange  time.Time      `json:"next_change,omitzero"`
	LastError   string         `json:"last_error,omitempty"`
}

// Controller is the rotation scheduler. All of its engine state is owned by
// one loop goroutine; network calls run in worker goroutines that post their
// results back to the loop. Results from before a restart are dropped.
type Controller struct {
	configure func() Config
	store     StateStore
	applier   Applier
	clock     Clock
	observers []Observer
	queues    []*eventQueue

	ops    chan func()
	quit   chan struct{}
	done   chan struct{}
	halted chan struct{}

	lifecycle sync.Mutex
	started   bool
	stopped   bool

	root    context.Context
	cancel  context.CancelFunc
	workers sync.WaitGroup

	state  atomic.Int32
	status atomic.Pointer[Status]

	// applyMu orders wallpaper changes of overlapping cycles.
	applyMu    sync.Mutex
	appliedSeq uint64

	s engineState
}

// engineState is only touched by the loop goroutine.
type engineState struct {
	gen    uint64
	conf   Config
	ctx    context.Context
	cancel context.CancelFunc

	token    string
	catalog  immich.Catalog
	index    int
	restored bool

	periodic Timer
	retry    Timer
	nextTick time.Time

	cycleSeq   uint64
	current    string
	currentID  immich.AssetID
	lastChange time.Time
	lastErr    error
}

// controllerOpt is used for configuring the [Controller].
type controllerOpt func(*Controller)

// WithClock replaces the wall clock, used by tests.
func WithClock(clock Clock) controllerOpt {
	return func(c *Controller) { c.clock = clock }
}

// WithObserver subscribes observers to scheduler events.
func WithObserver(obs ...Observer) controllerOpt {
	return func(c *Controller) { c.observers = append(c.observers, obs...) }
}

// New initializes the Controller. configure is called at the start of every
// generation to read the current Config.
func New(configure func() Config, store StateStore, applier Applier, opts ...controllerOpt) *Controller {
	c := &Controller{
		configure: configure,
		store:     store,
		applier:   applier,
		clock:     realClock{},
		ops:       make(chan func()),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
		halted:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.root, c.cancel = context.WithCancel(context.Background())
	c.status.Store(&Status{State: Idle})
	return c
}

// Start begins the rotation. It does nothing if the Controller was already
// started or stopped.
func (c *Controller) Start() {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()
	if c.started || c.stopped {
		return
	}
	c.started = true
	for _, obs := range c.observers {
		c.queues = append(c.queues, newEventQueue(obs))
	}
	go c.loop()
}

// Stop cancels timers and in-flight requests and waits for the workers to
// exit. It is safe to call more than once and before Start; every call
// returns only once the Controller is fully stopped.
func (c *Controller) Stop() {
	c.lifecycle.Lock()
	if c.stopped {
		c.lifecycle.Unlock()
		<-c.halted
		return
	}
	c.stopped = true
	started := c.started
	c.lifecycle.Unlock()
	defer close(c.halted)

	if !started {
		c.cancel()
		close(c.done)
		c.setState(Stopped, nil)
		return
	}
	close(c.quit)
	<-c.done
	c.workers.Wait()
	for _, q := range c.queues {
		q.close()
	}
}

// Restart drops the session and catalog and starts over from
// authentication, reading the Config again. Pending timers and in-flight
// requests are cancelled.
func (c *Controller) Restart() {
	if !c.running() {
		return
	}
	c.post(func() { c.restart("restart requested") })
}

// Advance runs one rotation cycle now and waits for it to finish. The
// periodic schedule is not touched. It fails with ErrNotActive unless a
// catalog is loaded.
func (c *Controller) Advance(ctx context.Context) error {
	if !c.running() {
		return ErrNotActive
	}
	reply := make(chan error, 1)
	if !c.post(func() { c.cycle("advance", reply) }) {
		return ErrNotActive
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return ErrNotActive
	}
}

// State returns the current state.
func (c *Controller) State() State {
	return State(c.state.Load())
}

// Status returns a snapshot of the scheduler.
func (c *Controller) Status() Status {
	return *c.status.Load()
}

func (c *Controller) running() bool {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()
	return c.started && !c.stopped
}

// post runs f on the loop goroutine. It reports false if the loop has
// exited.
func (c *Controller) post(f func()) bool {
	select {
	case c.ops <- f:
		return true
	case <-c.done:
		return false
	}
}

// spawn runs f in a tracked worker goroutine.
func (c *Controller) spawn(f func()) {
	c.workers.Add(1)
	go func() {
		defer c.workers.Done()
		f()
	}()
}

func (c *Controller) loop() {
	defer close(c.done)
	c.begin("start")
	for {
		select {
		case f := <-c.ops:
			f()
		case <-c.quit:
			c.shutdown()
			return
		}
	}
}

// begin starts a new generation: everything started before is cancelled and
// its results are dropped.
func (c *Controller) begin(reason string) {
	s := &c.s
	c.stopTimers()
	if s.cancel != nil {
		s.cancel()
	}
	s.gen++
	s.ctx, s.cancel = context.WithCancel(c.root)
	s.conf = c.configure().withDefaults()
	s.token = ""
	s.catalog = nil
	slog.Info("starting rotation",
		"reason", reason,
		"generation", s.gen,
		"album_id", s.conf.AlbumID,
		"interval", s.conf.ChangeInterval,
		"plan_algorithm", s.conf.PlanAlgorithm.String(),
	)
	c.authenticate()
}

func (c *Controller) restart(reason string) {
	s := &c.s
	if s.cancel != nil {
		s.cancel()
	}
	if s.conf.Source != nil {
		s.conf.Source.InvalidateSession()
	}
	// The persisted index stays until the next selection overwrites it.
	s.index = 0
	s.restored = true
	c.begin(reason)
}

func (c *Controller) shutdown() {
	s := &c.s
	c.stopTimers()
	s.gen++
	if s.cancel != nil {
		s.cancel()
	}
	c.cancel()
	c.setState(Stopped, nil)
	slog.Info("rotation stopped")
}

func (c *Controller) authenticate() {
	s := &c.s
	c.setState(Authenticating, nil)
	gen, ctx, src := s.gen, s.ctx, s.conf.Source
	c.spawn(func() {
		token, err := src.EnsureSession(ctx)
		c.post(func() { c.onSession(gen, token, err) })
	})
}

func (c *Controller) onSession(gen uint64, token string, err error) {
	s := &c.s
	if gen != s.gen {
		slog.Debug("dropping stale session result", "generation", gen)
		return
	}
	if err != nil {
		c.retryLater("auth", fmt.Errorf("authentication failed: %w", err))
		return
	}
	s.token = token
	c.fetchCatalog()
}

func (c *Controller) fetchCatalog() {
	s := &c.s
	c.setState(FetchingCatalog, nil)
	gen, ctx, src, token, albumID := s.gen, s.ctx, s.conf.Source, s.token, s.conf.AlbumID
	c.spawn(func() {
		catalog, err := src.FetchCatalog(ctx, token, albumID)
		c.post(func() { c.onCatalog(gen, catalog, err) })
	})
}

func (c *Controller) onCatalog(gen uint64, catalog immich.Catalog, err error) {
	s := &c.s
	if gen != s.gen {
		slog.Debug("dropping stale catalog", "generation", gen)
		return
	}
	if err != nil {
		if errors.Is(err, immich.ErrUnauthorized) {
			s.conf.Source.InvalidateSession()
			s.token = ""
		}
		c.retryLater("catalog", fmt.Errorf("failed to fetch catalog: %w", err))
		return
	}

	catalogSize.Set(float64(len(catalog)))
	if len(catalog) == 0 {
		slog.Warn("no photos available, waiting for a restart", "album_id", s.conf.AlbumID)
		s.catalog = nil
		c.setState(Idle, nil)
		c.emit(CatalogEmpty{AlbumID: s.conf.AlbumID})
		return
	}

	s.catalog = catalog
	if !s.restored {
		s.index = c.store.Load()
		s.restored = true
	}
	if i, ok := validIndex(s.index, catalog); !ok {
		slog.Info("rotation index out of range, starting over", "index", s.index, "catalog_size", len(catalog))
		s.index = i
		c.store.Save(i)
	}
	c.setState(Active, nil)
	c.cycle("catalog loaded", nil)
	s.nextTick = c.clock.Now().Add(s.conf.ChangeInterval)
	c.armPeriodic()
}

// retryLater enters RetryWait and arms the retry timer, replacing any
// pending one. stage names the step that failed.
func (c *Controller) retryLater(stage string, err error) {
	s := &c.s
	retriesTotal.WithLabelValues(stage).Inc()
	slog.Error("rotation paused, retrying later", "stage", stage, "error", err, "retry_in", s.conf.RetryDelay)
	s.lastErr = err
	c.stopTimers()
	gen := s.gen
	s.retry = c.clock.AfterFunc(s.conf.RetryDelay, func() {
		c.post(func() { c.onRetry(gen) })
	})
	c.setState(RetryWait, err)
}

func (c *Controller) onRetry(gen uint64) {
	s := &c.s
	if gen != s.gen || c.State() != RetryWait {
		return
	}
	s.retry = nil
	c.authenticate()
}

// armPeriodic arms the periodic timer for s.nextTick. Ticks missed while the
// process was suspended are skipped.
func (c *Controller) armPeriodic() {
	s := &c.s
	now := c.clock.Now()
	for !s.nextTick.After(now) {
		s.nextTick = s.nextTick.Add(s.conf.ChangeInterval)
	}
	if s.periodic != nil {
		s.periodic.Stop()
	}
	gen := s.gen
	s.periodic = c.clock.AfterFunc(s.nextTick.Sub(now), func() {
		c.post(func() { c.onTick(gen) })
	})
	c.publish()
}

func (c *Controller) onTick(gen uint64) {
	s := &c.s
	if gen != s.gen {
		return
	}
	s.periodic = nil
	if c.State() != Active {
		return
	}
	// Anchor on the armed time, not on when the tick was handled.
	s.nextTick = s.nextTick.Add(s.conf.ChangeInterval)
	c.cycle("tick", nil)
	c.armPeriodic()
}

func (c *Controller) stopTimers() {
	s := &c.s
	if s.periodic != nil {
		s.periodic.Stop()
		s.periodic = nil
	}
	if s.retry != nil {
		s.retry.Stop()
		s.retry = nil
	}
}

// cycle selects the next photo, persists the following index and starts the
// download in a worker. reply, if not nil, receives the cycle's result.
func (c *Controller) cycle(reason string, reply chan<- error) {
	s := &c.s
	if c.State() != Active || len(s.catalog) == 0 {
		if reply != nil {
			reply <- ErrNotActive
		}
		return
	}
	md, next := SelectNext(s.catalog, s.index, s.conf.PlanAlgorithm.Get())
	s.index = next
	c.store.Save(next)
	s.cycleSeq++
	c.publish()

	seq, gen, ctx, token, src := s.cycleSeq, s.gen, s.ctx, s.token, s.conf.Source
	started := c.clock.Now()
	slog.Debug("rotating wallpaper", "reason", reason, "id", md.ID, "next_index", next)
	c.spawn(func() {
		res := c.rotate(ctx, src, token, seq, md)
		posted := c.post(func() {
			c.onRotated(gen, md, started, res)
			if reply != nil {
				reply <- res.err
			}
		})
		if !posted && reply != nil {
			reply <- ErrNotActive
		}
	})
}

// rotation is the outcome of one cycle.
type rotation struct {
	path     string
	metadata *immich.PhotoMetadata
	err      error
	// superseded is set when a newer cycle already applied its wallpaper.
	superseded bool
}

// rotate downloads the photo and its metadata in parallel and applies the
// photo. Only a download or apply failure fails the cycle.
func (c *Controller) rotate(ctx context.Context, src Source, token string, seq uint64, md immich.AssetMetadata) rotation {
	var (
		res rotation
		g   errgroup.Group
	)
	g.Go(func() error {
		p, err := src.EnsureLocal(ctx, token, md)
		res.path = p
		return err
	})
	g.Go(func() error {
		pm, err := src.GetMetadata(ctx, token, md.ID)
		if err != nil {
			slog.Debug("failed to get photo metadata", "id", md.ID, "error", err)
			return nil
		}
		res.metadata = pm
		return nil
	})
	if err := g.Wait(); err != nil {
		res.err = err
		return res
	}

	c.applyMu.Lock()
	defer c.applyMu.Unlock()
	if err := ctx.Err(); err != nil {
		res.err = err
		return res
	}
	if seq < c.appliedSeq {
		res.superseded = true
		return res
	}
	if err := c.applier.Apply(ctx, res.path); err != nil {
		res.err = fmt.Errorf("failed to apply wallpaper: %w", err)
		return res
	}
	c.appliedSeq = seq
	return res
}

func (c *Controller) onRotated(gen uint64, md immich.AssetMetadata, started time.Time, res rotation) {
	s := &c.s
	if gen != s.gen {
		slog.Debug("dropping stale rotation result", "generation", gen, "id", md.ID)
		return
	}
	log := slog.With("id", md.ID, "name", md.Name)
	switch {
	case res.superseded:
		log.Debug("newer wallpaper already applied")
	case res.err != nil:
		rotationsTotal.WithLabelValues("failure").Inc()
		s.lastErr = res.err
		log.Error("failed to rotate wallpaper", "error", res.err)
		c.emit(CycleFailed{Asset: md, Err: res.err})
		if errors.Is(res.err, immich.ErrUnauthorized) {
			log.Warn("session rejected, logging in again")
			s.conf.Source.InvalidateSession()
			c.begin("session rejected")
			return
		}
	default:
		now := c.clock.Now()
		rotationsTotal.WithLabelValues("success").Inc()
		rotationDuration.Observe(now.Sub(started).Seconds())
		lastChangeTimestamp.Set(float64(now.Unix()))
		s.current, s.currentID, s.lastChange = res.path, md.ID, now
		s.lastErr = nil
		log.Info("changed wallpaper", "path", res.path)
		c.emit(WallpaperChanged{Path: res.path, Asset: md, Metadata: res.metadata})
		c.prune()
	}
	c.publish()
}

// prune trims local storage in a worker, keeping the current wallpaper and
// the catalog.
func (c *Controller) prune() {
	s := &c.s
	ctx, catalog, keep, src := s.ctx, s.catalog, s.current, s.conf.Source
	c.spawn(func() {
		n, err := src.Prune(ctx, catalog, keep)
		if err != nil {
			slog.Debug("failed to prune local storage", "error", err)
			return
		}
		prunedFilesTotal.Add(float64(n))
	})
}

func (c *Controller) setState(to State, err error) {
	from := State(c.state.Swap(int32(to)))
	if from != to {
		recordState(to)
		slog.Debug("rotation state changed", "from", from, "to", to)
		c.emit(StateChanged{From: from, To: to, Err: err})
	}
	c.publish()
}

func (c *Controller) emit(e Event) {
	for _, q := range c.queues {
		q.push(e)
	}
}

func (c *Controller) publish() {
	s := &c.s
	st := &Status{
		State:       c.State(),
		Generation:  s.gen,
		AlbumID:     s.conf.AlbumID,
		CatalogSize: len(s.catalog),
		Index:       s.index,
		Current:     s.current,
		CurrentID:   s.currentID,
		LastChange:  s.lastChange,
		PlanAlgo:    s.conf.PlanAlgorithm.String(),
	}
	if s.periodic != nil {
		st.NextChange = s.nextTick
	}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	c.status.Store(st)
}
