// Package daemon implements the isamd lifecycle: it loads captures into the
// snapshot store and serves them over HTTP and gRPC until shutdown.
package daemon

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	sd "github.com/coreos/go-systemd/v22/daemon"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/therealmichaelberna/nokia.isam/pkg/api"
	"github.com/therealmichaelberna/nokia.isam/pkg/cli"
	"github.com/therealmichaelberna/nokia.isam/pkg/config"
	"github.com/therealmichaelberna/nokia.isam/pkg/configstore"
	"github.com/therealmichaelberna/nokia.isam/pkg/facts"
	"github.com/therealmichaelberna/nokia.isam/pkg/flatten"
	"github.com/therealmichaelberna/nokia.isam/pkg/grpcapi"
	"github.com/therealmichaelberna/nokia.isam/pkg/logging"
	"github.com/therealmichaelberna/nokia.isam/pkg/metrics"
)

// Options configures the daemon.
type Options struct {
	ConfigFile string
	Config     *config.Config // used instead of ConfigFile when set

	// Overrides; nil keeps the configured value, an empty address disables
	// the listener.
	LogLevel *string
	APIAddr  *string
	GRPCAddr *string

	Shell     bool      // run the interactive shell on stdin
	LogWriter io.Writer // default os.Stderr
}

// Daemon is the isamd process.
type Daemon struct {
	opts     Options
	cfg      *config.Config
	log      *logging.Output
	metrics  *metrics.Metrics
	store    *configstore.Store
	gatherer *facts.Gatherer
}

// New loads the configuration, sets up logging and builds the snapshot
// store. Captures are read from disk by Run.
func New(opts Options) (*Daemon, error) {
	cfg := opts.Config
	if cfg == nil {
		var err error
		if cfg, err = config.Load(opts.ConfigFile); err != nil {
			return nil, err
		}
	}
	if opts.LogLevel != nil {
		cfg.Log.Level = *opts.LogLevel
	}
	if opts.APIAddr != nil {
		cfg.API.Addr = *opts.APIAddr
	}
	if opts.GRPCAddr != nil {
		cfg.GRPC.Addr = *opts.GRPCAddr
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	policy, err := flatten.ParsePolicy(cfg.Flatten.Policy)
	if err != nil {
		return nil, fmt.Errorf("flatten.policy: %w", err)
	}

	out, err := logging.Setup(logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Buffer: cfg.Log.Buffer,
		File:   cfg.Log.File,
		Writer: opts.LogWriter,

		Syslog:      cfg.Log.Syslog,
		SyslogLevel: cfg.Log.SyslogLevel,
	})
	if err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}
	slog.SetDefault(out.Logger)

	m := metrics.New()
	store, g := facts.NewStoreGatherer(
		configstore.Options{Dir: cfg.Source.Dir, History: cfg.Source.History},
		facts.WithPolicy(policy),
		facts.WithMetrics(m),
		facts.WithLogger(out.Logger),
	)

	return &Daemon{
		opts:     opts,
		cfg:      cfg,
		log:      out,
		metrics:  m,
		store:    store,
		gatherer: g,
	}, nil
}

// Config returns the effective configuration.
func (d *Daemon) Config() *config.Config { return d.cfg }

// Store returns the snapshot store.
func (d *Daemon) Store() *configstore.Store { return d.store }

// Events returns the in-memory log buffer.
func (d *Daemon) Events() *logging.EventBuffer { return d.log.Events }

// Run loads the capture directory, starts the configured servers and blocks
// until ctx is cancelled, a signal arrives, the shell exits or a server
// fails.
func (d *Daemon) Run(ctx context.Context) error {
	defer d.log.Close()

	slog.Info("starting isamd",
		"config", d.opts.ConfigFile,
		"source", d.cfg.Source.Dir,
		"policy", d.gatherer.Policy(),
		"pid", os.Getpid())

	if err := d.store.Load(); err != nil {
		slog.Warn("failed to load captures, starting with empty store", "err", err)
	} else {
		slog.Info("captures loaded", "dir", d.cfg.Source.Dir, "scopes", len(d.store.Scopes()))
	}

	// Handle signals for clean shutdown
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGTERM, syscall.SIGINT)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	eg, ctx := errgroup.WithContext(ctx)

	if d.cfg.Source.Reload > 0 {
		r := configstore.NewReloader(d.store, d.cfg.Source.Reload)
		eg.Go(func() error {
			r.Run(ctx)
			return nil
		})
	}

	if addr := d.cfg.API.Addr; addr != "" {
		srv := api.NewServer(api.Config{
			Addr:      addr,
			Auth:      api.NewAuthConfig(d.cfg.API.APIKeys, d.cfg.API.Users),
			RateLimit: rate.Limit(d.cfg.API.RateLimit),
			Burst:     d.cfg.API.Burst,
			Store:     d.store,
			Gatherer:  d.gatherer,
			EventBuf:  d.log.Events,
			Metrics:   d.metrics,
		})
		eg.Go(func() error {
			if err := srv.Run(ctx); err != nil {
				return fmt.Errorf("HTTP API: %w", err)
			}
			return nil
		})
	}

	if addr := d.cfg.GRPC.Addr; addr != "" {
		srv := grpcapi.NewServer(addr, grpcapi.Config{
			Store:    d.store,
			Gatherer: d.gatherer,
			Metrics:  d.metrics,
		})
		eg.Go(func() error {
			if err := srv.Run(ctx); err != nil {
				return fmt.Errorf("gRPC API: %w", err)
			}
			return nil
		})
	}

	if d.opts.Shell {
		shell := cli.New(d.store, d.gatherer, d.log.Events)
		eg.Go(func() error {
			defer cancel()
			if err := shell.Run(ctx); err != nil {
				return fmt.Errorf("CLI: %w", err)
			}
			return nil
		})
	}

	notify(sd.SdNotifyReady)
	<-ctx.Done()
	slog.Info("shutting down")
	notify(sd.SdNotifyStopping)

	err := eg.Wait()
	slog.Info("shutdown complete")
	return err
}

// notify sends state to systemd when running under a notify unit.
func notify(state string) {
	sent, err := sd.SdNotify(false, state)
	if err != nil {
		slog.Warn("systemd notify failed", "state", state, "err", err)
		return
	}
	if sent {
		slog.Debug("systemd notified", "state", state)
	}
}
