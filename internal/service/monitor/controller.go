package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/KNICEX/stock-alert/internal/schedule"
	"github.com/KNICEX/stock-alert/internal/service/analysis"
	"github.com/KNICEX/stock-alert/internal/service/quote"
	"github.com/google/uuid"
)

type SessionID string

// SessionInfo pairs a session id with its snapshot.
type SessionInfo struct {
	ID SessionID `json:"id"`
	Snapshot
}

// Controller validates requests, probes the ticker and runs each session on
// its own goroutine. Sessions share nothing but the stateless collaborators.
type Controller struct {
	source       quote.Source
	dispatcher   Dispatcher
	analyzer     analysis.Analyzer
	logger       *slog.Logger
	probeTimeout time.Duration
	interval     time.Duration
	newID        func() SessionID

	mu       sync.RWMutex
	sessions map[SessionID]*Session
	runner   *schedule.Runner
}

type ControllerOption func(c *Controller)

func WithSessionAnalyzer(analyzer analysis.Analyzer) ControllerOption {
	return func(c *Controller) {
		c.analyzer = analyzer
	}
}

func WithControllerLogger(logger *slog.Logger) ControllerOption {
	return func(c *Controller) {
		c.logger = logger
	}
}

func WithProbeTimeout(d time.Duration) ControllerOption {
	return func(c *Controller) {
		if d > 0 {
			c.probeTimeout = d
		}
	}
}

// WithDefaultInterval is used for sessions started without an interval.
func WithDefaultInterval(d time.Duration) ControllerOption {
	return func(c *Controller) {
		c.interval = d
	}
}

func NewController(source quote.Source, dispatcher Dispatcher, opts ...ControllerOption) *Controller {
	c := &Controller{
		source:       source,
		dispatcher:   dispatcher,
		logger:       slog.Default(),
		probeTimeout: 15 * time.Second,
		newID: func() SessionID {
			return SessionID(uuid.NewString())
		},
		sessions: make(map[SessionID]*Session),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.runner = schedule.NewRunner(c.logger)
	return c
}

// Start validates cfg, confirms the ticker has data and launches the polling
// loop in the background. Every error is returned before any goroutine starts.
func (c *Controller) Start(ctx context.Context, cfg Config) (SessionID, error) {
	if cfg.Interval <= 0 {
		cfg.Interval = c.interval
	}
	cfg = cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return "", err
	}
	for _, ch := range cfg.Channels() {
		if err := c.dispatcher.Check(ch); err != nil {
			return "", fmt.Errorf("%w: %s channel: %w", ErrInvalidConfig, ch, err)
		}
	}
	if err := c.probe(ctx, cfg.Ticker); err != nil {
		return "", err
	}

	opts := []Option{WithLogger(c.logger)}
	if c.analyzer != nil {
		opts = append(opts, WithAnalyzer(c.analyzer))
	}
	sess := NewSession(cfg, c.source, c.dispatcher, opts...)
	id := c.newID()

	c.mu.Lock()
	c.sessions[id] = sess
	c.mu.Unlock()

	c.runner.Go(sess, "session", id)
	c.logger.Info("monitor session started", "session", id, "ticker", cfg.Ticker)
	return id, nil
}

func (c *Controller) probe(ctx context.Context, ticker string) error {
	pctx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()
	samples, err := c.source.Fetch(pctx, ticker)
	if err != nil {
		return fmt.Errorf("probe fetch for %s: %w", ticker, err)
	}
	if len(samples) == 0 {
		return fmt.Errorf("%w: %s", ErrNoData, ticker)
	}
	return nil
}

func (c *Controller) get(id SessionID) (*Session, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	sess, ok := c.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return sess, nil
}

// Stop signals the session; it exits after the current tick.
func (c *Controller) Stop(id SessionID) error {
	sess, err := c.get(id)
	if err != nil {
		return err
	}
	sess.Stop()
	c.logger.Info("monitor session stop requested", "session", id, "ticker", sess.Config().Ticker)
	return nil
}

// Remove stops the session and forgets it.
func (c *Controller) Remove(id SessionID) error {
	if err := c.Stop(id); err != nil {
		return err
	}
	c.mu.Lock()
	delete(c.sessions, id)
	c.mu.Unlock()
	return nil
}

func (c *Controller) Status(id SessionID) (State, error) {
	sess, err := c.get(id)
	if err != nil {
		return StateIdle, err
	}
	return sess.State(), nil
}

func (c *Controller) Get(id SessionID) (SessionInfo, error) {
	sess, err := c.get(id)
	if err != nil {
		return SessionInfo{}, err
	}
	return SessionInfo{ID: id, Snapshot: sess.Snapshot()}, nil
}

func (c *Controller) List() []SessionInfo {
	c.mu.RLock()
	infos := make([]SessionInfo, 0, len(c.sessions))
	for id, sess := range c.sessions {
		infos = append(infos, SessionInfo{ID: id, Snapshot: sess.Snapshot()})
	}
	c.mu.RUnlock()
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].ID < infos[j].ID
	})
	return infos
}

// Shutdown stops every session and waits for the loops. When ctx expires
// first, in-flight ticks are cancelled.
func (c *Controller) Shutdown(ctx context.Context) error {
	c.mu.RLock()
	for _, sess := range c.sessions {
		sess.Stop()
	}
	c.mu.RUnlock()

	defer c.runner.Close()
	return c.runner.Wait(ctx)
}
