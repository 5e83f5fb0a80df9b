package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
)

const newWindowURL = "about:blank"

type WindowEntry struct {
	Ctx    context.Context
	Cancel context.CancelFunc
}

// WindowManager keeps one attached chromedp context per page target and
// remembers which one has focus.
type WindowManager struct {
	browserCtx context.Context
	windows    map[string]*WindowEntry
	current    string
	mu         sync.RWMutex
}

func NewWindowManager(browserCtx context.Context) *WindowManager {
	return &WindowManager{
		browserCtx: browserCtx,
		windows:    make(map[string]*WindowEntry),
	}
}

func (wm *WindowManager) ListTargets(ctx context.Context) ([]*target.Info, error) {
	if wm.browserCtx == nil {
		return nil, fmt.Errorf("no browser connection")
	}
	runCtx, cancel := withCaller(wm.browserCtx, ctx)
	defer cancel()

	var targets []*target.Info
	if err := chromedp.Run(runCtx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			targets, err = target.GetTargets().Do(ctx)
			return err
		}),
	); err != nil {
		return nil, fmt.Errorf("get targets: %w", err)
	}
	return targets, nil
}

func (wm *WindowManager) WindowHandles(ctx context.Context) ([]string, error) {
	targets, err := wm.ListTargets(ctx)
	if err != nil {
		return nil, err
	}
	return pageHandles(targets), nil
}

func pageHandles(targets []*target.Info) []string {
	handles := make([]string, 0, len(targets))
	for _, t := range targets {
		if t.Type == TargetTypePage {
			handles = append(handles, string(t.TargetID))
		}
	}
	return handles
}

// NewWindow asks Chrome for a new blank window. The new target is picked up
// by the next WindowHandles call.
func (wm *WindowManager) NewWindow(ctx context.Context) error {
	if wm.browserCtx == nil {
		return fmt.Errorf("no browser connection")
	}
	runCtx, cancel := withCaller(wm.browserCtx, ctx)
	defer cancel()

	if err := chromedp.Run(runCtx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			id, err := target.CreateTarget(newWindowURL).WithNewWindow(true).Do(ctx)
			if err == nil {
				slog.Debug("requested window", "target", string(id))
			}
			return err
		}),
	); err != nil {
		return fmt.Errorf("create target: %w", err)
	}
	return nil
}

func (wm *WindowManager) SwitchToWindow(ctx context.Context, handle string) error {
	entry, err := wm.windowContext(handle)
	if err != nil {
		return err
	}
	runCtx, cancel := withCaller(entry.Ctx, ctx)
	defer cancel()

	if err := chromedp.Run(runCtx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			return target.ActivateTarget(target.ID(handle)).Do(ctx)
		}),
	); err != nil {
		return fmt.Errorf("activate target %s: %w", handle, err)
	}

	wm.mu.Lock()
	wm.current = handle
	wm.mu.Unlock()
	return nil
}

// Current returns the focused window and its context, or a nil context when
// nothing has been focused yet.
func (wm *WindowManager) Current() (string, context.Context) {
	wm.mu.RLock()
	defer wm.mu.RUnlock()
	if entry, ok := wm.windows[wm.current]; ok {
		return wm.current, entry.Ctx
	}
	return "", nil
}

func (wm *WindowManager) windowContext(handle string) (*WindowEntry, error) {
	wm.mu.RLock()
	if entry, ok := wm.windows[handle]; ok && entry.Ctx != nil {
		wm.mu.RUnlock()
		return entry, nil
	}
	wm.mu.RUnlock()

	wm.mu.Lock()
	defer wm.mu.Unlock()

	if entry, ok := wm.windows[handle]; ok && entry.Ctx != nil {
		return entry, nil
	}
	if wm.browserCtx == nil {
		return nil, fmt.Errorf("no browser connection")
	}

	ctx, cancel := chromedp.NewContext(wm.browserCtx,
		chromedp.WithTargetID(target.ID(handle)),
	)
	if err := chromedp.Run(ctx); err != nil {
		cancel()
		return nil, fmt.Errorf("window %s not found: %w", handle, err)
	}

	entry := &WindowEntry{Ctx: ctx, Cancel: cancel}
	wm.windows[handle] = entry
	return entry, nil
}

// RegisterWindow records an already attached context, such as the browser's
// initial target.
func (wm *WindowManager) RegisterWindow(handle string, ctx context.Context) {
	wm.mu.Lock()
	defer wm.mu.Unlock()
	wm.windows[handle] = &WindowEntry{Ctx: ctx}
}

func (wm *WindowManager) Close() {
	wm.mu.Lock()
	defer wm.mu.Unlock()
	for id, entry := range wm.windows {
		if entry.Cancel != nil {
			entry.Cancel()
		}
		delete(wm.windows, id)
	}
	wm.current = ""
}

// CleanStaleWindows drops contexts of targets that were closed outside the
// manager, e.g. by a test calling window.close(). After each sweep onSweep,
// when set, receives the handles whose contexts were dropped.
func (wm *WindowManager) CleanStaleWindows(ctx context.Context, interval time.Duration, onSweep func(removed []string)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		handles, err := wm.WindowHandles(ctx)
		if err != nil {
			slog.Debug("window sweep skipped", "err", err)
			continue
		}
		removed := wm.prune(handles)
		if onSweep != nil {
			onSweep(removed)
		}
	}
}

func (wm *WindowManager) prune(alive []string) []string {
	live := make(map[string]bool, len(alive))
	for _, h := range alive {
		live[h] = true
	}

	wm.mu.Lock()
	defer wm.mu.Unlock()
	var removed []string
	for id, entry := range wm.windows {
		if live[id] {
			continue
		}
		if entry.Cancel != nil {
			entry.Cancel()
		}
		delete(wm.windows, id)
		if wm.current == id {
			wm.current = ""
		}
		removed = append(removed, id)
		slog.Info("cleaned stale window", "id", id)
	}
	return removed
}
