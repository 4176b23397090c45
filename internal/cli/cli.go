// Package cli implements the nbx command tree.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Sternrassler/netbox-inventory/pkg/aggregate"
	"github.com/Sternrassler/netbox-inventory/pkg/cache"
	"github.com/Sternrassler/netbox-inventory/pkg/client"
	"github.com/Sternrassler/netbox-inventory/pkg/config"
	"github.com/Sternrassler/netbox-inventory/pkg/logging"
	"github.com/Sternrassler/netbox-inventory/pkg/metrics"
	"github.com/Sternrassler/netbox-inventory/pkg/pagination"
	"github.com/Sternrassler/netbox-inventory/pkg/ratelimit"
	"github.com/Sternrassler/netbox-inventory/pkg/report"
)

// Process exit codes.
const (
	ExitOK        = 0
	ExitFailure   = 1
	ExitAuth      = 2
	ExitCancelled = 130
)

// Version is set at build time with -ldflags "-X .../internal/cli.Version=...".
var Version = "dev"

// ErrDegraded is returned after a report that contains unknown values was
// printed.
var ErrDegraded = errors.New("report is incomplete")

// App carries the state of one nbx invocation.
type App struct {
	v      *viper.Viper
	cfg    *config.Config
	out    io.Writer
	errOut io.Writer
	logger zerolog.Logger

	configPath string

	rp      *report.Reporter
	redis   *redis.Client
	metrics *metrics.Server
}

func newApp(stdout, stderr io.Writer) *App {
	return &App{
		v:      config.NewViper(),
		out:    stdout,
		errOut: stderr,
	}
}

// Execute runs nbx with args and returns the process exit code.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	app := newApp(stdout, stderr)
	defer app.close()

	root := NewRootCommand(app)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	code := exitCode(ctx, err)
	switch {
	case err == nil:
	case errors.Is(err, ErrDegraded):
		fmt.Fprintf(stderr, "Warning: %v\n", err)
	case code == ExitAuth:
		fmt.Fprintf(stderr, "Error: authentication failed, check api_token: %v\n", err)
	case code == ExitCancelled:
		fmt.Fprintln(stderr, "Interrupted")
	default:
		fmt.Fprintf(stderr, "Error: %v\n", err)
	}
	return code
}

func exitCode(ctx context.Context, err error) int {
	switch {
	case err == nil:
		return ExitOK
	case client.IsAuthFailure(err):
		return ExitAuth
	case client.IsCancelled(err) || ctx.Err() != nil:
		return ExitCancelled
	default:
		return ExitFailure
	}
}

// NewRootCommand builds the command tree bound to app.
func NewRootCommand(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:   "nbx",
		Short: "Read-only NetBox inventory browser",
		Long: `nbx browses a NetBox instance from the terminal: listings, object details,
search, exports, consistency checks and circuit, site and rack views.

Configuration is read from netbox_config.json (current directory or
~/.config/nbx/), a .env file and NETBOX_* environment variables.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: app.setup,
	}

	f := root.PersistentFlags()
	f.StringVar(&app.configPath, "config", "", "config file (default netbox_config.json in . or ~/.config/nbx)")
	f.String("url", "", "NetBox base URL")
	f.String("token", "", "NetBox API token")
	f.Int("cap", 0, "maximum records drained per collection (default 1000)")
	f.Int("concurrency", 0, "maximum collections drained at once (default 5)")
	f.Int("width", 0, "table cell width before truncation (default 50)")
	f.String("log-level", "", "log level: debug, info, warn, error, off (default warn)")

	for key, flag := range map[string]string{
		config.KeyNetBoxURL:            "url",
		config.KeyAPIToken:             "token",
		config.KeyMaxItems:             "cap",
		config.KeyPageConcurrency:      "concurrency",
		config.KeyDisplayTruncateWidth: "width",
		config.KeyLogLevel:             "log-level",
	} {
		_ = app.v.BindPFlag(key, f.Lookup(flag))
	}

	root.AddCommand(
		newListCommand(app),
		newShowCommand(app),
		newExportCommand(app),
		newSearchCommand(app),
		newStatusCommand(app),
		newValidateCommand(app),
		newCircuitsCommand(app),
		newSiteCommand(app),
		newRackCommand(app),
		newDeviceCommand(app),
		newConfigCommand(app),
		newVersionCommand(app),
	)
	return root
}

// setup loads the configuration and configures logging. It does not talk to
// NetBox; commands that need a connection call connect.
func (a *App) setup(cmd *cobra.Command, _ []string) error {
	if cmd.Name() == "version" {
		return nil
	}
	cfg, err := config.Load(a.v, a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.LogLevel),
		Pretty: cfg.LogPretty,
		Output: a.errOut,
	})
	a.logger = logging.NewLogger("cli")
	if cfg.File != "" {
		a.logger.Debug().Str("file", cfg.File).Msg("Loaded config file")
	}
	return nil
}

// connect validates the configuration and builds the reporter stack.
func (a *App) connect(ctx context.Context) (*report.Reporter, error) {
	if a.rp != nil {
		return a.rp, nil
	}
	cfg := a.cfg
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.MetricsAddr != "" {
		srv, err := metrics.Listen(cfg.MetricsAddr)
		if err != nil {
			return nil, err
		}
		a.metrics = srv
	}

	clientCfg := client.DefaultConfig(cfg.NetBoxURL, cfg.APIToken)
	clientCfg.UserAgent = "nbx/" + Version
	clientCfg.Timeout = cfg.Timeout
	clientCfg.VerifySSL = cfg.VerifySSL
	clientCfg.MaxAttempts = cfg.MaxAttempts
	clientCfg.Throttle = ratelimit.NewTracker(a.throttleStore(ctx), logging.NewLogger("ratelimit"))

	c, err := client.New(clientCfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
	}

	lookups, err := cache.NewManager(cfg.LookupCacheSize)
	if err != nil {
		return nil, err
	}

	drainer := pagination.NewDrainer(c, pagination.Config{
		PageSize: cfg.ItemsPerPage,
		MaxItems: cfg.MaxItems,
	})
	agg := aggregate.New(drainer, lookups, aggregate.Config{PageConcurrency: cfg.PageConcurrency})
	a.rp = report.New(c, drainer, agg)
	return a.rp, nil
}

// throttleStore shares the throttle window through Redis when redis_url is
// set and reachable, otherwise keeps it in memory.
func (a *App) throttleStore(ctx context.Context) ratelimit.Store {
	if a.cfg.RedisURL == "" {
		return nil
	}
	opts, err := redis.ParseURL(a.cfg.RedisURL)
	if err != nil {
		a.logger.Warn().Err(err).Msg("Ignoring invalid redis_url")
		return nil
	}
	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		a.logger.Warn().Err(err).Str("addr", opts.Addr).Msg("Redis unreachable, throttle state kept in memory")
		_ = rdb.Close()
		return nil
	}
	a.redis = rdb
	return ratelimit.NewRedisStore(rdb)
}

func (a *App) close() {
	if a.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := a.metrics.Close(ctx); err != nil {
			a.logger.Warn().Err(err).Msg("Metrics server shutdown failed")
		}
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
}

// render prints rep and reports whether it was degraded.
func (a *App) render(rep *report.Report) error {
	if err := rep.Render(a.out, a.cfg.DisplayTruncateWidth); err != nil {
		return err
	}
	if rep.Degraded() {
		return fmt.Errorf("%w: %d value(s) could not be fetched", ErrDegraded, len(rep.Failures))
	}
	return nil
}

// run connects, builds a report and renders it.
func (a *App) run(cmd *cobra.Command, build func(ctx context.Context, rp *report.Reporter) (*report.Report, error)) error {
	ctx := cmd.Context()
	rp, err := a.connect(ctx)
	if err != nil {
		return err
	}
	rep, err := build(ctx, rp)
	if err != nil {
		return err
	}
	return a.render(rep)
}
