package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/KNICEX/stock-alert/internal/schedule"
	"github.com/KNICEX/stock-alert/internal/service/analysis"
	"github.com/KNICEX/stock-alert/internal/service/notification"
	"github.com/KNICEX/stock-alert/internal/service/quote"
	"github.com/KNICEX/stock-alert/pkg/decimalx"
	"github.com/shopspring/decimal"
)

// 生成分析时带上最近的K线数量
const narrativeWindow = 30

var _ schedule.Stoppable = (*Session)(nil)

// Session polls one ticker and dispatches alerts. Only the goroutine running
// Run mutates previousClose; everyone else reads through Snapshot.
type Session struct {
	cfg        Config
	source     quote.Source
	dispatcher Dispatcher
	analyzer   analysis.Analyzer
	logger     *slog.Logger

	mu            sync.RWMutex
	state         State
	previousClose *decimal.Decimal
	lastTickAt    time.Time
	ticks         int
	alerts        int

	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}
}

type Option func(s *Session)

func WithAnalyzer(analyzer analysis.Analyzer) Option {
	return func(s *Session) {
		s.analyzer = analyzer
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

func NewSession(cfg Config, source quote.Source, dispatcher Dispatcher, opts ...Option) *Session {
	s := &Session{
		cfg:        cfg.Normalize(),
		source:     source,
		dispatcher: dispatcher,
		logger:     slog.Default(),
		stopCh:     make(chan struct{}),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("ticker", s.cfg.Ticker)
	return s
}

func (s *Session) Name() string {
	return fmt.Sprintf("price monitor %s", s.cfg.Ticker)
}

func (s *Session) Config() Config {
	return s.cfg
}

// Run blocks until Stop is called or ctx is cancelled. Tick failures never end it.
func (s *Session) Run(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case StateRunning:
		s.mu.Unlock()
		return ErrAlreadyStarted
	case StateStopped:
		s.mu.Unlock()
		return nil
	}
	s.state = StateRunning
	s.previousClose = nil
	s.mu.Unlock()

	defer func() {
		s.setState(StateStopped)
		close(s.done)
		s.logger.Info("stopped monitoring")
	}()

	s.logger.Info("started monitoring", "threshold", s.cfg.ThresholdPercent, "interval", s.cfg.Interval)
	for {
		select {
		case <-s.stopCh:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if _, err := s.tick(ctx); err != nil {
			if errors.Is(err, quote.ErrTransport) {
				s.logger.Warn("failed to fetch quotes, retrying after interval", "error", err)
			} else {
				s.logger.Error("monitor tick failed", "error", err)
			}
		}

		if err := s.wait(ctx); err != nil {
			if errors.Is(err, errStopRequested) {
				return nil
			}
			return err
		}
	}
}

var errStopRequested = errors.New("stop requested")

func (s *Session) wait(ctx context.Context) error {
	timer := time.NewTimer(s.cfg.Interval)
	defer timer.Stop()
	select {
	case <-s.stopCh:
		return errStopRequested
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Stop asks the loop to exit; the tick in flight completes first.
func (s *Session) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		s.mu.Lock()
		if s.state == StateIdle {
			s.state = StateStopped
			close(s.done)
		}
		s.mu.Unlock()
	})
}

// Done is closed once the session has stopped.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{
		Ticker:     s.cfg.Ticker,
		State:      s.state,
		LastTickAt: s.lastTickAt,
		Ticks:      s.ticks,
		Alerts:     s.alerts,
	}
	if s.previousClose != nil {
		prev := *s.previousClose
		snap.PreviousClose = &prev
	}
	return snap
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func (s *Session) previous() (decimal.Decimal, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.previousClose == nil {
		return decimal.Zero, false
	}
	return *s.previousClose, true
}

func (s *Session) recordTick(latest decimal.Decimal, alerted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.previousClose = &latest
	s.lastTickAt = time.Now()
	s.ticks++
	if alerted {
		s.alerts++
	}
}

// tick runs one fetch/evaluate/dispatch cycle. An empty fetch is not an error.
func (s *Session) tick(ctx context.Context) (alert *AlertEvent, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in monitor tick: %v", r)
		}
	}()

	samples, err := s.source.Fetch(ctx, s.cfg.Ticker)
	if err != nil {
		return nil, err
	}
	latest, ok := quote.Latest(samples)
	if !ok {
		s.logger.Warn("no data fetched, retrying after interval", "interval", s.cfg.Interval)
		return nil, nil
	}
	s.logger.Debug("latest price fetched", "price", latest.Close, "at", latest.Timestamp)

	if prev, ok := s.previous(); ok {
		alert = s.evaluate(prev, latest)
		if alert != nil {
			s.dispatch(ctx, *alert, samples)
		}
	}

	s.recordTick(latest.Close, alert != nil)
	s.logger.Info("monitoring", "price", latest.Close)
	return alert, nil
}

func (s *Session) evaluate(prev decimal.Decimal, latest quote.PriceSample) *AlertEvent {
	change, ok := decimalx.PercentChange(prev, latest.Close)
	if !ok {
		s.logger.Warn("previous close is zero, skipping change evaluation", "price", latest.Close)
		return nil
	}
	s.logger.Debug("price change computed", "previous_close", prev, "change_percent", change.StringFixed(4))
	if !decimalx.ReachesThreshold(change, s.cfg.ThresholdPercent) {
		return nil
	}
	return &AlertEvent{
		Ticker:        s.cfg.Ticker,
		ChangePercent: change,
		PreviousClose: prev,
		Sample:        latest,
	}
}

// dispatch never fails the tick; every problem is logged and swallowed.
func (s *Session) dispatch(ctx context.Context, alert AlertEvent, samples []quote.PriceSample) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("alert dispatch panicked", "panic", r)
		}
	}()

	s.logger.Info("price change reached threshold", "change_percent", alert.ChangePercent.StringFixed(4),
		"threshold", s.cfg.ThresholdPercent)

	targets := s.cfg.Targets()
	if targets.Email == "" && targets.Phone == "" {
		s.logger.Warn("alert triggered but no notification channel is enabled")
		return
	}

	var narrative string
	if s.analyzer != nil {
		text, err := s.analyzer.Analyze(ctx, analysis.BatchFromSamples(samples, narrativeWindow))
		if err != nil {
			s.logger.Warn("narrative analysis failed, sending alert without it", "error", err)
		} else {
			narrative = text
		}
	}

	results := s.dispatcher.Dispatch(ctx, alert.Message(narrative), targets)
	sent := 0
	for _, res := range results {
		switch {
		case res.Failed():
			s.logger.Error("alert channel failed", "channel", res.Channel, "status", res.Status, "error", res.Err)
		case res.Status == notification.StatusSuccess:
			sent++
		}
	}
	if sent > 0 {
		s.logger.Info("alert sent", "change_percent", alert.ChangePercent.StringFixed(4), "channels", sent)
	}
}
