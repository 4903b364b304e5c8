package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zjrosen/symtab/internal/cachemanager"
	"github.com/zjrosen/symtab/internal/config"
	"github.com/zjrosen/symtab/internal/flags"
	"github.com/zjrosen/symtab/internal/log"
	"github.com/zjrosen/symtab/internal/memguard"
	"github.com/zjrosen/symtab/internal/pubsub"
	"github.com/zjrosen/symtab/internal/server"
	"github.com/zjrosen/symtab/internal/symtab"
	"github.com/zjrosen/symtab/internal/tracing"
	"github.com/zjrosen/symtab/internal/watcher"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"daemon"},
	Short:   "Run the symbol table daemon",
	Long: `Run the symbol table as a daemon that exposes an HTTP API.

The daemon listens on server.addr (default: localhost:5555). Memory limits and
registry verbosity are reloaded when the config file changes.

Example:
  symtab serve                  # Start on the configured address
  symtab serve --addr :8080     # Start on port 8080
  symtab serve --addr :0        # Let the OS pick a port`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// daemon owns every long-lived component of a running server.
type daemon struct {
	reg      *symtab.Registry
	budget   *budget
	provider *tracing.Provider
	server   *server.Server
	watcher  *watcher.Watcher
}

// budget is the swappable memory guard installed on the registry.
type budget struct {
	fixed atomic.Pointer[memguard.Fixed]
}

// Limit returns the current byte limit, 0 when unlimited.
func (b *budget) Limit() int64 {
	if f := b.fixed.Load(); f != nil {
		return f.Limit()
	}
	return 0
}

// apply installs the guard described by m on reg. An enabled guard is
// updated in place so concurrent allocations keep a consistent view.
func (b *budget) apply(reg *symtab.Registry, m config.MemoryConfig) error {
	if !m.Enabled {
		b.fixed.Store(nil)
		reg.SetGuard(memguard.Unlimited())
		return nil
	}

	limit := m.LimitBytes
	if limit == 0 {
		var err error
		limit, err = memguard.PercentOfPhysical(m.LimitPercent)
		if err != nil {
			return fmt.Errorf("resolving memory limit: %w", err)
		}
	}

	if f := b.fixed.Load(); f != nil {
		f.SetLimit(limit)
		return nil
	}
	f := memguard.NewFixed(limit, reg.TotalMemoryUsed)
	b.fixed.Store(f)
	reg.SetGuard(f)
	return nil
}

func newDaemon(c config.Config, addr string) (*daemon, error) {
	reg := symtab.New(symtab.Config{
		Logger:  log.Default(),
		Verbose: c.Registry.Verbose,
		Events:  pubsub.NewBroker[symtab.Event](),
	})

	b := &budget{}
	if err := b.apply(reg, c.Memory); err != nil {
		return nil, err
	}

	tc := c.Tracing
	if tc.Enabled && tc.Exporter == "file" && tc.FilePath == "" {
		tc.FilePath = config.DefaultTracesFilePath()
	}
	provider, err := tracing.NewProvider(tracing.Config{TracingConfig: tc})
	if err != nil {
		return nil, fmt.Errorf("creating tracing provider: %w", err)
	}

	if addr == "" {
		addr = c.Server.Addr
	}

	srv, err := server.NewServer(server.ServerConfig{
		Addr:             addr,
		Registry:         reg,
		Flags:            flags.New(c.Flags),
		Tracer:           provider.Tracer(),
		MemoryLimit:      b.Limit,
		PreviewThreshold: c.Registry.PreviewThreshold,
		ReplayCache: cachemanager.NewInMemoryCacheManager[string, server.Replay](
			"idempotency", c.Cache.IdempotencyTTL, cachemanager.DefaultCleanupInterval),
		IdempotencyTTL: c.Cache.IdempotencyTTL,
		ReadTimeout:    c.Server.ReadTimeout,
		WriteTimeout:   c.Server.WriteTimeout,
	})
	if err != nil {
		_ = provider.Shutdown(context.Background())
		return nil, fmt.Errorf("creating API server: %w", err)
	}

	return &daemon{reg: reg, budget: b, provider: provider, server: srv}, nil
}

// watch reloads path whenever it changes until ctx is done.
func (d *daemon) watch(ctx context.Context, path string) error {
	w, err := watcher.New(watcher.DefaultConfig(path))
	if err != nil {
		return err
	}
	changes, err := w.Start()
	if err != nil {
		_ = w.Stop()
		return err
	}
	d.watcher = w

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-changes:
				if !ok {
					return
				}
				if err := d.reload(path); err != nil {
					log.ErrorErr(log.CatConfig, "Config reload failed", err, "path", path)
				}
			}
		}
	}()
	return nil
}

// reload re-reads path and applies the settings that can change at runtime.
func (d *daemon) reload(path string) error {
	c, _, err := loadConfig(viper.New(), path)
	if err != nil {
		return err
	}
	if err := d.budget.apply(d.reg, c.Memory); err != nil {
		return err
	}
	d.reg.SetVerbose(c.Registry.Verbose)

	log.Info(log.CatConfig, "Config reloaded", "path", path,
		"verbose", c.Registry.Verbose, "limit", d.budget.Limit())
	return nil
}

func (d *daemon) shutdown(ctx context.Context) {
	if d.watcher != nil {
		if err := d.watcher.Stop(); err != nil {
			log.Error(log.CatWatcher, "Error stopping watcher", "error", err)
		}
	}
	if err := d.server.Stop(ctx); err != nil {
		log.Error(log.CatAPI, "Error stopping API server", "error", err)
	}
	if err := d.provider.Shutdown(ctx); err != nil {
		log.Error(log.CatTrace, "Error flushing traces", "error", err)
	}
	if broker := d.reg.Events(); broker != nil {
		broker.Close()
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	// Initialize logging if debug mode enabled (via flag or env var)
	debug := os.Getenv("SYMTAB_DEBUG") != "" || debugFlag
	if debug {
		logPath := os.Getenv("SYMTAB_LOG")
		if logPath == "" {
			logPath = "debug.log"
		}

		cleanup, err := log.InitWithTeaLog(logPath, "symtab-daemon")
		if err != nil {
			return fmt.Errorf("initializing logging: %w", err)
		}
		defer cleanup()
	} else {
		log.InitWriter(cmd.ErrOrStderr(), log.LevelInfo)
	}
	log.Info(log.CatConfig, "symtab daemon starting", "debug", debug, "config", cfgPath)

	d, err := newDaemon(cfg, addrFlag)
	if err != nil {
		return err
	}

	// Handle shutdown signals
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfgPath != "" && flags.New(cfg.Flags).Enabled(flags.FlagConfigReload) {
		if err := d.watch(ctx, cfgPath); err != nil {
			log.Warn(log.CatWatcher, "Config reload disabled", "error", err)
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Start server in background
	errCh := make(chan error, 1)
	go func() {
		errCh <- d.server.Start()
	}()

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "symtab daemon listening on %s\n", d.server.Addr())
	_, _ = fmt.Fprintln(out, "Press Ctrl+C to stop")

	// Wait for shutdown signal or error
	select {
	case sig := <-sigCh:
		_, _ = fmt.Fprintf(out, "\nReceived %s, shutting down...\n", sig)
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	d.shutdown(shutdownCtx)

	_, _ = fmt.Fprintln(out, "Daemon stopped")
	return nil
}
