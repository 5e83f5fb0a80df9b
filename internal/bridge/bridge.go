// Package bridge drives a Chrome instance over CDP and exposes it as a
// single-focus window driver: window handles are page target IDs.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/web-padawan/web/internal/config"
	"github.com/web-padawan/web/internal/focus"
)

var _ focus.Driver = (*Bridge)(nil)

var errNoFocus = errors.New("no focused window")

type Bridge struct {
	Config *config.RuntimeConfig
	*WindowManager

	// cancels tear down the browser and then its allocator.
	cancels []context.CancelFunc
}

// New wraps a started browser. cancels run in order on Close.
func New(browserCtx context.Context, cfg *config.RuntimeConfig, cancels ...context.CancelFunc) *Bridge {
	return &Bridge{
		Config:        cfg,
		WindowManager: NewWindowManager(browserCtx),
		cancels:       cancels,
	}
}

func (b *Bridge) Close() {
	b.WindowManager.Close()
	for _, cancel := range b.cancels {
		if cancel != nil {
			cancel()
		}
	}
}

// focused returns a context for the focused window bounded by the caller's
// ctx and the given timeout.
func (b *Bridge) focused(ctx context.Context, timeout timeoutKind) (context.Context, context.CancelFunc, error) {
	_, winCtx := b.Current()
	if winCtx == nil {
		return nil, nil, errNoFocus
	}
	runCtx, cancel := withCaller(winCtx, ctx)
	if d := b.timeout(timeout); d > 0 {
		tCtx, tCancel := context.WithTimeout(runCtx, d)
		return tCtx, func() { tCancel(); cancel() }, nil
	}
	return runCtx, cancel, nil
}

func (b *Bridge) Navigate(ctx context.Context, url string) error {
	tCtx, cancel, err := b.focused(ctx, navigateTimeout)
	if err != nil {
		return err
	}
	defer cancel()
	if err := NavigatePage(tCtx, url); err != nil {
		return fmt.Errorf("navigate: %w", err)
	}
	return nil
}

func (b *Bridge) CurrentURL(ctx context.Context) (string, error) {
	tCtx, cancel, err := b.focused(ctx, actionTimeout)
	if err != nil {
		return "", err
	}
	defer cancel()
	var url string
	if err := chromedp.Run(tCtx, chromedp.Location(&url)); err != nil {
		return "", fmt.Errorf("location: %w", err)
	}
	return url, nil
}

// ExecuteScript evaluates the script expression in the focused window and
// returns its JSON encoding. undefined comes back as null.
func (b *Bridge) ExecuteScript(ctx context.Context, script string) (json.RawMessage, error) {
	tCtx, cancel, err := b.focused(ctx, actionTimeout)
	if err != nil {
		return nil, err
	}
	defer cancel()
	var encoded string
	if err := chromedp.Run(tCtx, chromedp.Evaluate(stringifyExpr(script), &encoded)); err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}
	return json.RawMessage(encoded), nil
}

func stringifyExpr(script string) string {
	return "JSON.stringify((" + script + ") ?? null)"
}

type timeoutKind int

const (
	actionTimeout timeoutKind = iota
	navigateTimeout
)

func (b *Bridge) timeout(kind timeoutKind) time.Duration {
	if b.Config == nil {
		return 0
	}
	if kind == navigateTimeout {
		return b.Config.NavigateTimeout
	}
	return b.Config.ActionTimeout
}

// withCaller derives from parent and also ends when caller does.
func withCaller(parent, caller context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	stop := context.AfterFunc(caller, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
