package focus

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

const (
	DefaultBlankURL           = "about:blank"
	DefaultCoverageExpression = "window.__coverage__ ?? null"
)

type Options struct {
	// Coverage enables coverage collection when a session stops on the URL
	// it was started with.
	Coverage           bool
	CoverageExpression string
	BlankURL           string
	WindowTimeout      time.Duration
}

func (o Options) withDefaults() Options {
	if o.CoverageExpression == "" {
		o.CoverageExpression = DefaultCoverageExpression
	}
	if o.BlankURL == "" {
		o.BlankURL = DefaultBlankURL
	}
	if o.WindowTimeout <= 0 {
		o.WindowTimeout = DefaultWindowTimeout
	}
	return o
}

type Stats struct {
	Active         int   `json:"active"`
	Idle           int   `json:"idle"`
	Busy           bool  `json:"busy"`
	QueuedStarts   int   `json:"queuedStarts"`
	QueuedStops    int   `json:"queuedStops"`
	WindowsCreated int64 `json:"windowsCreated"`
	WindowsLost    int64 `json:"windowsLost"`
	WindowsPruned  int64 `json:"windowsPruned"`
}

type Manager struct {
	driver Driver
	opts   Options
	pool   *windowPool
	reg    *registry
	ctrl   *controller
	gate   gate
	lost   atomic.Int64

	initMu sync.Mutex
	ctx    context.Context
}

func New(d Driver, opts Options) *Manager {
	opts = opts.withDefaults()
	pool := &windowPool{}
	return &Manager{
		driver: d,
		opts:   opts,
		pool:   pool,
		reg:    newRegistry(),
		ctrl: &controller{
			driver:  d,
			pool:    pool,
			timeout: opts.WindowTimeout,
			backoff: defaultBackoff,
		},
	}
}

// Initialize seeds the window pool with the windows the browser already has.
// ctx bounds every driver call the manager makes afterwards.
func (m *Manager) Initialize(ctx context.Context) error {
	m.initMu.Lock()
	defer m.initMu.Unlock()
	if m.ctx != nil {
		return ErrAlreadyInitialized
	}

	handles, err := m.driver.WindowHandles(ctx)
	if err != nil {
		return fmt.Errorf("list windows: %w", err)
	}
	for _, h := range handles {
		m.pool.put(h)
	}
	m.ctx = ctx
	slog.Info("focus manager initialized", "windows", len(handles), "coverage", m.opts.Coverage)
	return nil
}

func (m *Manager) baseContext() context.Context {
	m.initMu.Lock()
	defer m.initMu.Unlock()
	return m.ctx
}

func (m *Manager) IsActive(id string) bool {
	_, ok := m.reg.window(id)
	return ok
}

// Sessions returns the active sessions and the window each one holds.
func (m *Manager) Sessions() map[string]string {
	return m.reg.snapshot()
}

func (m *Manager) Stats() Stats {
	busy, starts, stops := m.gate.state()
	return Stats{
		Active:         len(m.reg.snapshot()),
		Idle:           m.pool.len(),
		Busy:           busy,
		QueuedStarts:   starts,
		QueuedStops:    stops,
		WindowsCreated: m.ctrl.created.Load(),
		WindowsLost:    m.lost.Load(),
		WindowsPruned:  m.ctrl.pruned.Load(),
	}
}

// QueueStartSession schedules id to be opened on url. The channel receives
// exactly one value once the window is focused and navigated, or the start
// failed.
func (m *Manager) QueueStartSession(id, url string) <-chan error {
	done := make(chan error, 1)
	ctx := m.baseContext()
	if ctx == nil {
		done <- ErrNotInitialized
		return done
	}
	m.gate.submitStart(func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("start session panicked", "session", id, "panic", r)
				done <- fmt.Errorf("start session %s: panic: %v", id, r)
			}
		}()
		done <- m.start(ctx, id, url)
	})
	return done
}

// QueueStopSession schedules id to be torn down. The channel receives exactly
// one outcome.
func (m *Manager) QueueStopSession(id string) <-chan StopOutcome {
	done := make(chan StopOutcome, 1)
	ctx := m.baseContext()
	if ctx == nil {
		done <- StopOutcome{Err: ErrNotInitialized}
		return done
	}
	m.gate.submitStop(func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("stop session panicked", "session", id, "panic", r)
				done <- StopOutcome{Err: fmt.Errorf("stop session %s: panic: %v", id, r)}
			}
		}()
		res, err := m.stop(ctx, id)
		done <- StopOutcome{Result: res, Err: err}
	})
	return done
}

// StartSession queues a start and waits for it. Cancelling ctx stops the
// wait only; the queued start still runs.
func (m *Manager) StartSession(ctx context.Context, id, url string) error {
	select {
	case err := <-m.QueueStartSession(id, url):
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// StopSession queues a stop and waits for its result.
func (m *Manager) StopSession(ctx context.Context, id string) (*SessionResult, error) {
	select {
	case out := <-m.QueueStopSession(id):
		return out.Result, out.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type pruneOutcome struct {
	n   int
	err error
}

// PruneWindows drops idle windows the browser no longer lists. It is queued
// like a stop, ahead of pending starts, and reports how many it dropped.
func (m *Manager) PruneWindows(ctx context.Context) (int, error) {
	base := m.baseContext()
	if base == nil {
		return 0, ErrNotInitialized
	}
	done := make(chan pruneOutcome, 1)
	m.gate.submitStop(func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("prune windows panicked", "panic", r)
				done <- pruneOutcome{err: fmt.Errorf("prune windows: panic: %v", r)}
			}
		}()
		n, err := m.prune(base)
		done <- pruneOutcome{n: n, err: err}
	})
	select {
	case out := <-done:
		return out.n, out.err
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func (m *Manager) prune(ctx context.Context) (int, error) {
	alive, err := m.driver.WindowHandles(ctx)
	if err != nil {
		return 0, fmt.Errorf("prune windows: list windows: %w", err)
	}
	dropped := m.pool.retain(alive)
	m.ctrl.pruned.Add(int64(len(dropped)))
	if len(dropped) > 0 {
		slog.Info("pruned closed idle windows", "windows", dropped)
	}
	return len(dropped), nil
}

func (m *Manager) start(ctx context.Context, id, url string) error {
	if m.IsActive(id) {
		return fmt.Errorf("start session %s: %w", id, ErrSessionActive)
	}

	m.reg.setURL(id, url)
	handle, err := m.ctrl.acquireWindow(ctx)
	if err != nil {
		m.reg.clearURL(id)
		return fmt.Errorf("start session %s: %w", id, err)
	}
	m.reg.bind(id, handle)
	defer func() {
		if r := recover(); r != nil {
			m.unwindStart(id)
			m.loseWindow(id, handle, fmt.Errorf("panic: %v", r))
			panic(r)
		}
	}()

	if err := m.ctrl.focus(ctx, handle); err != nil {
		m.unwindStart(id)
		m.loseWindow(id, handle, err)
		return fmt.Errorf("start session %s: %w", id, err)
	}
	if err := m.driver.Navigate(ctx, url); err != nil {
		m.unwindStart(id)
		_ = m.recycle(ctx, id, handle)
		return fmt.Errorf("start session %s: navigate %s: %w", id, url, err)
	}

	slog.Info("session started", "session", id, "window", handle, "url", url)
	return nil
}

func (m *Manager) stop(ctx context.Context, id string) (*SessionResult, error) {
	handle, ok := m.reg.unbind(id)
	if !ok {
		return nil, fmt.Errorf("stop session %s: %w", id, ErrUnknownSession)
	}
	expected := m.reg.url(id)
	m.reg.clearURL(id)
	defer func() {
		if r := recover(); r != nil {
			m.loseWindow(id, handle, fmt.Errorf("panic: %v", r))
			panic(r)
		}
	}()

	if err := m.ctrl.focus(ctx, handle); err != nil {
		m.loseWindow(id, handle, err)
		return nil, fmt.Errorf("stop session %s: %w", id, err)
	}

	result := &SessionResult{BrowserLogs: []any{}, Errors: []TestResultError{}}

	actual, err := m.driver.CurrentURL(ctx)
	if err != nil {
		m.loseWindow(id, handle, err)
		return nil, fmt.Errorf("stop session %s: current url: %w", id, err)
	}

	var coverageErr error
	if actual != expected {
		if navErr := navigationError([]string{expected, actual}); navErr != nil {
			slog.Warn("session navigated away", "session", id, "expected", expected, "actual", actual)
			result.Errors = append(result.Errors, *navErr)
		}
	} else if m.opts.Coverage {
		result.Coverage, coverageErr = m.collectCoverage(ctx)
	}

	if err := m.recycle(ctx, id, handle); err != nil {
		return nil, fmt.Errorf("stop session %s: %w", id, err)
	}

	if coverageErr != nil {
		return nil, fmt.Errorf("stop session %s: %w", id, coverageErr)
	}

	slog.Info("session stopped", "session", id, "window", handle, "errors", len(result.Errors), "coverage", result.Coverage != nil)
	return result, nil
}

func (m *Manager) collectCoverage(ctx context.Context) (CoverageMap, error) {
	raw, err := m.driver.ExecuteScript(ctx, m.opts.CoverageExpression)
	if err != nil {
		return nil, fmt.Errorf("collect coverage: %w", err)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	var cov CoverageMap
	if err := json.Unmarshal(raw, &cov); err != nil {
		return nil, fmt.Errorf("decode coverage: %w", err)
	}
	return cov, nil
}

// unwindStart removes what a start recorded once its window turned out to be
// unusable.
func (m *Manager) unwindStart(id string) {
	m.reg.unbind(id)
	m.reg.clearURL(id)
}

// recycle blanks the focused window and returns it to the pool. Leaving the
// page stops timers and reload loops it may have started.
func (m *Manager) recycle(ctx context.Context, id, handle string) error {
	if err := m.driver.Navigate(ctx, m.opts.BlankURL); err != nil {
		m.loseWindow(id, handle, err)
		return fmt.Errorf("navigate %s: %w", m.opts.BlankURL, err)
	}
	m.pool.put(handle)
	return nil
}

// loseWindow records a window whose page state is unknown after a failed
// operation. It is neither returned to the pool nor bound again.
func (m *Manager) loseWindow(id, handle string, err error) {
	m.lost.Add(1)
	slog.Warn("dropping window", "session", id, "window", handle, "err", err)
}
