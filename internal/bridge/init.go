package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/chromedp/chromedp"
	"github.com/web-padawan/web/internal/config"
)

// InitChrome starts Chrome, or attaches to the one at cfg.CdpURL, and returns
// the browser context. cancel closes the browser and then its allocator.
func InitChrome(cfg *config.RuntimeConfig) (browserCtx context.Context, cancel context.CancelFunc, err error) {
	slog.Info("starting chrome initialization", "headless", cfg.Headless, "profile", cfg.ProfileDir, "cdp", cfg.CdpURL)

	allocCtx, allocCancel := setupAllocator(cfg)

	browserCtx, browserCancel, err := startChrome(allocCtx)
	if err != nil {
		allocCancel()
		return nil, nil, fmt.Errorf("failed to start chrome: %w", err)
	}

	slog.Info("chrome initialized", "headless", cfg.Headless)
	return browserCtx, func() {
		browserCancel()
		allocCancel()
	}, nil
}

func setupAllocator(cfg *config.RuntimeConfig) (context.Context, context.CancelFunc) {
	if cfg.CdpURL != "" {
		slog.Debug("using remote allocator", "url", cfg.CdpURL)
		return chromedp.NewRemoteAllocator(context.Background(), cfg.CdpURL)
	}
	return chromedp.NewExecAllocator(context.Background(), allocatorOptions(cfg)...)
}

func allocatorOptions(cfg *config.RuntimeConfig) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)

	if cfg.Headless {
		opts = append(opts, chromedp.Headless)
	} else {
		opts = append(opts, chromedp.Flag("headless", false))
	}

	if cfg.ChromeBinary != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ChromeBinary))
	}
	if cfg.ProfileDir != "" {
		opts = append(opts, chromedp.UserDataDir(cfg.ProfileDir))
	}

	opts = append(opts,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("no-default-browser-check", true),
		// Background windows must keep running their timers while another
		// window holds focus.
		chromedp.Flag("disable-background-timer-throttling", true),
		chromedp.Flag("disable-backgrounding-occluded-windows", true),
		chromedp.Flag("disable-renderer-backgrounding", true),
	)

	for name, value := range parseExtraFlags(cfg.ChromeExtraFlags) {
		opts = append(opts, chromedp.Flag(name, value))
	}
	return opts
}

// parseExtraFlags turns "--a --b=c" into {"a": true, "b": "c"}.
func parseExtraFlags(s string) map[string]any {
	flags := make(map[string]any)
	for _, f := range strings.Fields(s) {
		f = strings.TrimLeft(f, "-")
		if f == "" {
			continue
		}
		if name, value, ok := strings.Cut(f, "="); ok {
			flags[name] = value
		} else {
			flags[f] = true
		}
	}
	return flags
}

func startChrome(allocCtx context.Context) (context.Context, context.CancelFunc, error) {
	browserCtx, cancel := chromedp.NewContext(allocCtx)

	if err := chromedp.Run(browserCtx); err != nil {
		cancel()
		slog.Error("failed to connect to chrome browser", "error", err.Error())
		return nil, nil, fmt.Errorf("failed to connect to chrome: %w", err)
	}
	return browserCtx, cancel, nil
}

// InitialWindow returns the target the browser context is attached to.
func InitialWindow(browserCtx context.Context) string {
	c := chromedp.FromContext(browserCtx)
	if c == nil || c.Target == nil {
		return ""
	}
	return string(c.Target.TargetID)
}
