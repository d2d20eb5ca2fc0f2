// Statusphere - AT Protocol Status Indexer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/statusphere

package ingest

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/statusphere/internal/config"
	"github.com/tomtom215/statusphere/internal/cursor"
	"github.com/tomtom215/statusphere/internal/jetstream"
	"github.com/tomtom215/statusphere/internal/logging"
	"github.com/tomtom215/statusphere/internal/metrics"
	"github.com/tomtom215/statusphere/internal/models"
)

// Stream is one open subscription.
type Stream interface {
	Next(ctx context.Context) (*models.JetstreamEvent, error)
	Close() error
}

// Dialer opens subscriptions. cursor is a time_us to replay from, 0 for live.
type Dialer interface {
	Subscribe(ctx context.Context, cursor int64) (Stream, error)
}

// Projector applies validated mutations.
type Projector interface {
	Upsert(ctx context.Context, rec *models.StatusRecord) error
	Delete(ctx context.Context, uri string) error
}

// CursorStore persists the replay cursor.
type CursorStore interface {
	Load(ctx context.Context) (int64, error)
	Save(ctx context.Context, timeUS int64) error
}

// Preloader imports existing records before the first connection, such as
// a listRecords backfill.
type Preloader interface {
	Preload(ctx context.Context) error
}

// Config is the reconnect policy.
type Config struct {
	Collection  string
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	MaxAttempts int

	ResumeFromCursor    bool
	CursorFlushInterval time.Duration
	CursorRewind        time.Duration
}

// DefaultConfig returns the production reconnect policy.
func DefaultConfig() Config {
	return Config{
		Collection:          models.StatusCollection,
		BaseDelay:           time.Second,
		MaxDelay:            30 * time.Second,
		MaxAttempts:         10,
		ResumeFromCursor:    true,
		CursorFlushInterval: 5 * time.Second,
		CursorRewind:        5 * time.Second,
	}
}

// ConfigFrom converts the application's ingest section.
func ConfigFrom(cfg *config.IngestConfig) Config {
	return Config{
		Collection:          models.StatusCollection,
		BaseDelay:           cfg.BaseDelay,
		MaxDelay:            cfg.MaxDelay,
		MaxAttempts:         cfg.MaxAttempts,
		ResumeFromCursor:    cfg.ResumeFromCursor,
		CursorFlushInterval: cfg.CursorFlushInterval,
		CursorRewind:        cfg.CursorRewind,
	}
}

// Option customizes a Supervisor.
type Option func(*Supervisor)

// WithCursorStore enables cursor checkpointing and resume.
func WithCursorStore(store CursorStore) Option {
	return func(s *Supervisor) {
		s.cursors = store
	}
}

// WithPreloader runs p once before the first connection. Live events from
// the moment the preload started are replayed afterwards, so the stream
// overrides whatever the preload wrote.
func WithPreloader(p Preloader) Option {
	return func(s *Supervisor) {
		s.preloader = p
	}
}

// WithSleep replaces the backoff wait, for tests.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(s *Supervisor) {
		s.sleep = sleep
	}
}

// Supervisor owns the Jetstream consume loop. One goroutine reads, decodes,
// validates and projects each event to completion before reading the next,
// so two mutations of the same URI never race.
type Supervisor struct {
	dialer    Dialer
	projector Projector
	cursors   CursorStore
	tracker   *cursor.Tracker
	preloader Preloader
	cfg       Config
	sleep     func(ctx context.Context, d time.Duration) error

	preloaded  atomic.Bool
	replayFrom atomic.Int64 // time_us the preload started, 0 once streaming

	state    atomic.Int32
	attempt  atomic.Int64
	running  atomic.Bool
	stopping atomic.Bool

	mu            sync.Mutex
	stream        Stream
	cancelPreload context.CancelFunc
	lastErr       error
	done          chan struct{}
}

// New creates an idle supervisor.
func New(dialer Dialer, projector Projector, cfg Config, opts ...Option) *Supervisor {
	defaults := DefaultConfig()
	if cfg.Collection == "" {
		cfg.Collection = defaults.Collection
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = defaults.BaseDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = defaults.MaxDelay
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaults.MaxAttempts
	}
	if cfg.CursorFlushInterval <= 0 {
		cfg.CursorFlushInterval = defaults.CursorFlushInterval
	}

	s := &Supervisor{
		dialer:    dialer,
		projector: projector,
		cfg:       cfg,
		sleep:     sleepContext,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cursors != nil {
		s.tracker = cursor.NewTracker(s.cursors)
	}
	s.setState(StateIdle)
	return s
}

// State returns the current lifecycle state.
func (s *Supervisor) State() State {
	return State(s.state.Load())
}

// Attempt returns the number of consecutive failed connections.
func (s *Supervisor) Attempt() int {
	return int(s.attempt.Load())
}

// Err returns the error that ended the last run, or nil.
func (s *Supervisor) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Start begins consuming in a background goroutine. It is a no-op if the
// supervisor is already running.
func (s *Supervisor) Start(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		return
	}
	s.stopping.Store(false)
	done := make(chan struct{})
	s.mu.Lock()
	s.done = done
	s.mu.Unlock()

	go func() {
		defer close(done)
		defer s.running.Store(false)
		_ = s.run(ctx) // result kept in lastErr
	}()
}

// Wait blocks until a run started with Start returns.
func (s *Supervisor) Wait() {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Stop asks the loop to exit. The event being processed completes first.
// A pending backoff delay runs out normally, but no connection attempt
// follows it.
func (s *Supervisor) Stop() {
	s.stopping.Store(true)

	s.mu.Lock()
	stream := s.stream
	cancelPreload := s.cancelPreload
	s.mu.Unlock()
	if cancelPreload != nil {
		cancelPreload()
	}
	if stream != nil {
		_ = stream.Close() //nolint:errcheck // unblocks Next
	}
}

// Serve implements suture.Service. A halted supervisor (stopped or failed)
// returns suture.ErrDoNotRestart so the tree leaves it alone; /health and
// the state gauge report the failure instead.
func (s *Supervisor) Serve(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return errors.New("ingest: supervisor already running")
	}
	defer s.running.Store(false)
	s.stopping.Store(false)

	err := s.run(ctx)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, ErrRetriesExhausted) || errors.Is(err, ErrStopped) {
		return suture.ErrDoNotRestart
	}
	return err
}

// String implements fmt.Stringer for suture logs.
func (s *Supervisor) String() string {
	return "ingest-supervisor"
}

func (s *Supervisor) run(ctx context.Context) error {
	s.attempt.Store(0)
	s.setLastErr(nil)

	if s.tracker != nil {
		flushCtx, cancel := context.WithCancel(ctx)
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.tracker.Run(flushCtx, s.cfg.CursorFlushInterval)
		}()
		defer func() {
			cancel()
			wg.Wait()
		}()
	}

	s.preload(ctx)

	err := s.loop(ctx)
	s.setLastErr(err)
	return err
}

// preload runs the preloader once per supervisor lifetime. A failed preload
// is logged and streaming starts anyway.
func (s *Supervisor) preload(ctx context.Context) {
	if s.preloader == nil || !s.preloaded.CompareAndSwap(false, true) {
		return
	}

	preloadCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.mu.Lock()
	s.cancelPreload = cancel
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.cancelPreload = nil
		s.mu.Unlock()
	}()

	s.setState(StateConnecting)
	start := time.Now().UnixMicro()
	if err := s.preloader.Preload(preloadCtx); err != nil && !s.halted(ctx) {
		logging.Ctx(ctx).Warn().Err(err).Msg("Preload failed, streaming without it")
	}
	s.replayFrom.Store(start)
}

func (s *Supervisor) loop(ctx context.Context) error {
	for {
		if s.halted(ctx) {
			s.setState(StateIdle)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return ErrStopped
		}

		s.setState(StateConnecting)
		connCtx := logging.ContextWithNewCorrelationID(ctx)
		err := s.connectAndStream(connCtx)

		if s.halted(ctx) {
			continue
		}

		s.setState(StateBackoff)
		if int(s.attempt.Load()) >= s.cfg.MaxAttempts {
			s.setState(StateFailed)
			logging.Ctx(connCtx).Error().
				Err(err).
				Int("attempts", s.Attempt()).
				Msg("Jetstream reconnect attempts exhausted, ingestion halted; serving stale data")
			return ErrRetriesExhausted
		}

		attempt := int(s.attempt.Add(1))
		delay := BackoffDelay(s.cfg.BaseDelay, s.cfg.MaxDelay, attempt)
		metrics.RecordReconnect(delay)
		logging.Ctx(connCtx).Warn().
			Err(err).
			Int("attempt", attempt).
			Int("max_attempts", s.cfg.MaxAttempts).
			Dur("delay", delay).
			Msg("Jetstream connection lost, reconnecting")

		if err := s.sleep(ctx, delay); err != nil {
			s.setState(StateIdle)
			return err
		}
	}
}

// connectAndStream runs one connection until it ends. The returned error
// is always a *ConnectionError unless ctx was cancelled.
func (s *Supervisor) connectAndStream(ctx context.Context) error {
	cursorValue := s.resumeCursor(ctx)

	stream, err := s.dialer.Subscribe(ctx, cursorValue)
	if err != nil {
		return &ConnectionError{Op: "dial", Err: err}
	}

	s.mu.Lock()
	s.stream = stream
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.stream = nil
		s.mu.Unlock()
		_ = stream.Close() //nolint:errcheck // already finished with it
	}()

	// Stop may have landed between the dial and publishing the stream.
	if s.stopping.Load() {
		return &ConnectionError{Op: "read", Err: jetstream.ErrStreamClosed}
	}

	s.setState(StateStreaming)
	received := false

	for {
		evt, err := stream.Next(ctx)
		if err != nil && !errors.Is(err, jetstream.ErrMalformedEvent) {
			return &ConnectionError{Op: "read", Err: err}
		}

		// Only a delivered frame proves the connection healthy; a handshake
		// followed by an immediate drop keeps counting toward the limit.
		if !received {
			received = true
			s.replayFrom.Store(0)
			if prev := s.attempt.Swap(0); prev > 0 {
				logging.Ctx(ctx).Info().Int64("previous_attempts", prev).Msg("Jetstream stream recovered")
			}
		}

		if err != nil {
			metrics.RecordRejected(sourceJetstream, reasonDecode)
			logging.Ctx(ctx).Warn().Err(err).Msg("Dropping undecodable Jetstream frame")
			continue
		}

		if err := s.dispatch(ctx, evt); err != nil {
			logDispatchError(ctx, evt, err)
		}
		if s.tracker != nil {
			s.tracker.Observe(evt.TimeUS)
		}
	}
}

// resumeCursor picks the replay position for a new connection: the last
// processed or saved cursor, else the preload start, else live.
func (s *Supervisor) resumeCursor(ctx context.Context) int64 {
	last := s.savedCursor(ctx)
	if last == 0 {
		last = s.replayFrom.Load()
	}
	if last == 0 {
		return 0
	}

	resume := last - s.cfg.CursorRewind.Microseconds()
	if resume <= 0 {
		return 0
	}
	return resume
}

func (s *Supervisor) savedCursor(ctx context.Context) int64 {
	if s.tracker == nil || !s.cfg.ResumeFromCursor {
		return 0
	}
	if last := s.tracker.Last(); last != 0 {
		return last
	}
	saved, err := s.cursors.Load(ctx)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("Failed to load saved cursor")
		return 0
	}
	return saved
}

func (s *Supervisor) halted(ctx context.Context) bool {
	return s.stopping.Load() || ctx.Err() != nil
}

func (s *Supervisor) setState(state State) {
	s.state.Store(int32(state))
	metrics.IngestState.Set(float64(state))
}

func (s *Supervisor) setLastErr(err error) {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
}
