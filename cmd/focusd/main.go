package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/web-padawan/web/internal/bridge"
	"github.com/web-padawan/web/internal/config"
	"github.com/web-padawan/web/internal/focus"
	"github.com/web-padawan/web/internal/handlers"
	"golang.org/x/sync/errgroup"
)

var version = "dev"

const staleWindowInterval = time.Minute

func main() {
	cfg := config.Load()
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLogLevel(cfg.LogLevel)})))

	if len(os.Args) > 1 && (os.Args[1] == "--version" || os.Args[1] == "-v") {
		fmt.Printf("focusd %s\n", version)
		os.Exit(0)
	}

	if len(os.Args) > 1 && os.Args[1] == "config" {
		config.HandleConfigCommand(cfg)
		os.Exit(0)
	}

	if err := run(cfg); err != nil {
		slog.Error("focusd", "err", err)
		os.Exit(1)
	}
}

func parseLogLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func managerOptions(cfg *config.RuntimeConfig) focus.Options {
	return focus.Options{
		Coverage:           cfg.Coverage,
		CoverageExpression: cfg.CoverageExpression,
		BlankURL:           cfg.BlankURL,
		WindowTimeout:      cfg.WindowTimeout,
	}
}

func launch(cfg *config.RuntimeConfig) (*bridge.Bridge, error) {
	if cfg.CdpURL == "" {
		if err := os.MkdirAll(cfg.ProfileDir, 0755); err != nil {
			return nil, fmt.Errorf("create profile dir: %w", err)
		}
		if bridge.WasUncleanExit(cfg.ProfileDir) {
			slog.Warn("previous chrome run did not exit cleanly", "profile", cfg.ProfileDir)
			bridge.ClearChromeSessions(cfg.ProfileDir)
		}
	}

	browserCtx, cancel, err := bridge.InitChrome(cfg)
	if err != nil && cfg.CdpURL == "" {
		slog.Warn("Chrome startup failed, clearing sessions and retrying once", "err", err)
		bridge.ClearChromeSessions(cfg.ProfileDir)
		bridge.MarkCleanExit(cfg.ProfileDir)
		browserCtx, cancel, err = bridge.InitChrome(cfg)
	}
	if err != nil {
		return nil, err
	}

	b := bridge.New(browserCtx, cfg, cancel)
	if initial := bridge.InitialWindow(browserCtx); initial != "" {
		b.RegisterWindow(initial, browserCtx)
		slog.Info("initial window", "id", initial)
	}
	return b, nil
}

func run(cfg *config.RuntimeConfig) error {
	b, err := launch(cfg)
	if err != nil {
		return err
	}
	defer func() {
		b.Close()
		if cfg.CdpURL == "" {
			bridge.MarkCleanExit(cfg.ProfileDir)
		}
		slog.Info("chrome closed")
	}()

	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	mgr := focus.New(b, managerOptions(cfg))
	if err := mgr.Initialize(ctx); err != nil {
		return fmt.Errorf("initialize focus manager: %w", err)
	}

	var once sync.Once
	doShutdown := func() {
		once.Do(func() {
			slog.Info("shutting down")
			cancel()
		})
	}

	mux := http.NewServeMux()
	handlers.New(mgr, cfg).RegisterRoutes(mux, doShutdown)

	srv := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           handlers.Chain(cfg, mgr, mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		b.CleanStaleWindows(gctx, staleWindowInterval, func(removed []string) {
			pruned, err := mgr.PruneWindows(gctx)
			if err != nil {
				if gctx.Err() == nil {
					slog.Warn("prune idle windows", "err", err)
				}
				return
			}
			if len(removed) > 0 || pruned > 0 {
				slog.Info("window sweep", "contexts", len(removed), "idle", pruned)
			}
		})
		return nil
	})
	g.Go(func() error {
		slog.Info("focusd listening", "addr", cfg.ListenAddr(), "cdp", cfg.CdpURL, "coverage", cfg.Coverage)
		if cfg.Token == "" {
			slog.Info("auth disabled (set FOCUSD_TOKEN to enable)")
		}
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
