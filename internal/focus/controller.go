package focus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
)

const DefaultWindowTimeout = 10 * time.Second

// controller hands out windows and moves driver focus between them.
type controller struct {
	driver  Driver
	pool    *windowPool
	timeout time.Duration
	backoff backoff
	created atomic.Int64
	pruned  atomic.Int64
}

// acquireWindow returns an idle window, opening a new one when the pool holds
// no window the browser still has.
func (c *controller) acquireWindow(ctx context.Context) (string, error) {
	before, err := c.driver.WindowHandles(ctx)
	if err != nil {
		return "", fmt.Errorf("list windows: %w", err)
	}
	if h, ok := c.takeLive(before); ok {
		slog.Debug("reusing idle window", "window", h)
		return h, nil
	}

	if err := c.driver.NewWindow(ctx); err != nil {
		return "", fmt.Errorf("open window: %w", err)
	}

	var after []string
	err = pollUntil(ctx, c.timeout, c.backoff, func(ctx context.Context) (bool, error) {
		handles, err := c.driver.WindowHandles(ctx)
		if err != nil {
			return false, err
		}
		if len(handles) == len(before) {
			return false, nil
		}
		after = handles
		return true, nil
	})
	if errors.Is(err, errPollTimeout) {
		return "", fmt.Errorf("%w after %v", ErrWindowTimeout, c.timeout)
	}
	if err != nil {
		return "", fmt.Errorf("list windows: %w", err)
	}

	added := newHandles(before, after)
	if len(added) != 1 {
		return "", fmt.Errorf("%w: %d windows before, %d after, %d new",
			ErrWindowSetInvariant, len(before), len(after), len(added))
	}

	c.created.Add(1)
	slog.Info("opened window", "window", added[0], "windows", len(after))
	return added[0], nil
}

// takeLive pops idle windows until it finds one listed in alive. Windows
// closed behind the manager's back are discarded.
func (c *controller) takeLive(alive []string) (string, bool) {
	live := handleSet(alive)
	for {
		h, ok := c.pool.take()
		if !ok {
			return "", false
		}
		if live[h] {
			return h, true
		}
		c.pruned.Add(1)
		slog.Warn("discarding closed idle window", "window", h)
	}
}

func (c *controller) focus(ctx context.Context, handle string) error {
	if err := c.driver.SwitchToWindow(ctx, handle); err != nil {
		return fmt.Errorf("focus window %s: %w", handle, err)
	}
	return nil
}

func newHandles(before, after []string) []string {
	seen := handleSet(before)
	var added []string
	for _, h := range after {
		if !seen[h] {
			added = append(added, h)
		}
	}
	return added
}
