package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Sternrassler/netbox-inventory/pkg/report"
)

func resourceHelp() string {
	return "Resources: " + strings.Join(report.ResourceNames(), ", ")
}

// parseFilters turns repeated key=value flags into report filters.
func parseFilters(raw []string) (report.Filters, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	filters := make(report.Filters, len(raw))
	for _, kv := range raw {
		key, value, ok := strings.Cut(kv, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid filter %q, expected key=value", kv)
		}
		filters[key] = strings.TrimSpace(value)
	}
	return filters, nil
}

func newListCommand(app *App) *cobra.Command {
	var filters []string
	cmd := &cobra.Command{
		Use:   "list <resource>",
		Short: "List the objects of a resource",
		Long:  "List the objects of a resource as a table.\n\n" + resourceHelp(),
		Example: `  nbx list devices
  nbx list devices --filter site=par1 --filter status=active
  nbx list circuits --cap 200`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := parseFilters(filters)
			if err != nil {
				return err
			}
			return app.run(cmd, func(ctx context.Context, rp *report.Reporter) (*report.Report, error) {
				return rp.List(ctx, args[0], f)
			})
		},
	}
	cmd.Flags().StringArrayVarP(&filters, "filter", "f", nil, "filter as key=value (repeatable)")
	return cmd
}

func newShowCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "show <resource> <name-or-id>",
		Short:   "Show one object with its related objects",
		Long:    "Show every attribute of one object, found by numeric id or by its lookup field.\n\n" + resourceHelp(),
		Example: "  nbx show devices sw1\n  nbx show circuits CID-1042\n  nbx show sites 3",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.run(cmd, func(ctx context.Context, rp *report.Reporter) (*report.Report, error) {
				return rp.Details(ctx, args[0], args[1])
			})
		},
	}
}

// exportFileName is the default export target, e.g.
// netbox_devices_20240115_093000.csv.
func exportFileName(resource string, format report.Format, now time.Time) string {
	return fmt.Sprintf("netbox_%s_%s.%s", strings.ReplaceAll(resource, "-", "_"), now.Format("20060102_150405"), format.Extension())
}

func newExportCommand(app *App) *cobra.Command {
	var (
		filters []string
		format  string
		output  string
	)
	cmd := &cobra.Command{
		Use:   "export <resource>",
		Short: "Export a resource to CSV or JSON",
		Long: `Export a resource without truncation. csv and json write flattened rows,
raw writes the records as returned by NetBox. Use --output - for stdout.

` + resourceHelp(),
		Example: "  nbx export devices\n  nbx export ip-addresses --format json --output ips.json\n  nbx export circuits --format raw --output -",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := parseFilters(filters)
			if err != nil {
				return err
			}
			fmtType, err := report.ParseFormat(format)
			if err != nil {
				return err
			}
			res, err := report.Lookup(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			rp, err := app.connect(ctx)
			if err != nil {
				return err
			}

			if output == "-" {
				_, err := rp.Export(ctx, res.Name, f, fmtType, app.out)
				return err
			}
			if output == "" {
				output = exportFileName(res.Name, fmtType, time.Now())
			}
			return exportToFile(ctx, app, rp, res.Name, f, fmtType, output)
		},
	}
	cmd.Flags().StringArrayVarP(&filters, "filter", "f", nil, "filter as key=value (repeatable)")
	cmd.Flags().StringVar(&format, "format", string(report.FormatCSV), "output format: csv, json, raw")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default netbox_<resource>_<timestamp>.<ext>)")
	return cmd
}

// exportToFile writes to a temporary file next to path and renames it once
// the export succeeded, so a failed drain leaves no partial file.
func exportToFile(ctx context.Context, app *App, rp *report.Reporter, resource string, filters report.Filters, format report.Format, path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".nbx-export-*")
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("create export file: %w", err)
	}

	sum, err := rp.Export(ctx, resource, filters, format, tmp)
	if cerr := tmp.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("write export file: %w", cerr)
	}
	if err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write export file: %w", err)
	}

	fmt.Fprintf(app.out, "Exported %d %s records to %s\n", sum.Records, resource, path)
	if sum.Truncated {
		fmt.Fprintf(app.out, "Showing %d of %d records (cap reached)\n", sum.Records, sum.Total)
	}
	return nil
}

func newSearchCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "search <term>",
		Short: "Search devices, sites, racks, prefixes, IP addresses, VLANs and circuits",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			term := strings.Join(args, " ")
			return app.run(cmd, func(ctx context.Context, rp *report.Reporter) (*report.Report, error) {
				return rp.Search(ctx, term)
			})
		},
	}
}

func newStatusCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Test the connection and show instance versions and object counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.run(cmd, func(ctx context.Context, rp *report.Reporter) (*report.Report, error) {
				return rp.Status(ctx)
			})
		},
	}
}

func newValidateCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Report common inventory inconsistencies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.run(cmd, func(ctx context.Context, rp *report.Reporter) (*report.Report, error) {
				return rp.Validate(ctx)
			})
		},
	}
}

func newCircuitsCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "circuits",
		Short: "Circuit views",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "stats",
			Short: "Circuit counts by status, provider and type",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return app.run(cmd, func(ctx context.Context, rp *report.Reporter) (*report.Report, error) {
					return rp.CircuitStats(ctx)
				})
			},
		},
		&cobra.Command{
			Use:   "providers",
			Short: "List providers with their circuit count",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return app.run(cmd, func(ctx context.Context, rp *report.Reporter) (*report.Report, error) {
					return rp.Providers(ctx)
				})
			},
		},
		&cobra.Command{
			Use:   "types",
			Short: "List circuit types with their circuit count",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return app.run(cmd, func(ctx context.Context, rp *report.Reporter) (*report.Report, error) {
					return rp.CircuitTypes(ctx)
				})
			},
		},
		&cobra.Command{
			Use:   "provider <name>",
			Short: "List the circuits of one provider with their termination sites",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return app.run(cmd, func(ctx context.Context, rp *report.Reporter) (*report.Report, error) {
					return rp.ProviderCircuits(ctx, args[0])
				})
			},
		},
	)
	return cmd
}

func newSiteCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{Use: "site", Short: "Site views"}
	cmd.AddCommand(&cobra.Command{
		Use:   "summary <name>",
		Short: "Site attributes with device, rack, location, cable and prefix counts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.run(cmd, func(ctx context.Context, rp *report.Reporter) (*report.Report, error) {
				return rp.SiteSummary(ctx, args[0])
			})
		},
	})
	return cmd
}

func newRackCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{Use: "rack", Short: "Rack views"}
	cmd.AddCommand(&cobra.Command{
		Use:   "elevation <name-or-id>",
		Short: "Per-unit front and rear occupancy of a rack",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.run(cmd, func(ctx context.Context, rp *report.Reporter) (*report.Report, error) {
				return rp.RackElevation(ctx, args[0])
			})
		},
	})
	return cmd
}

func newDeviceCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{Use: "device", Short: "Device views"}
	cmd.AddCommand(&cobra.Command{
		Use:   "interfaces <name-or-id>",
		Short: "Interfaces of a device with their IP addresses and peers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.run(cmd, func(ctx context.Context, rp *report.Reporter) (*report.Report, error) {
				return rp.DeviceInterfaces(ctx, args[0])
			})
		},
	})
	return cmd
}

func newConfigCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the resolved configuration with the token masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := app.cfg
			file := cfg.File
			if file == "" {
				file = "(none)"
			}
			rows := [][2]string{
				{"config file", file},
				{"netbox_url", cfg.NetBoxURL},
				{"api_token", cfg.MaskedToken()},
				{"timeout", cfg.Timeout.String()},
				{"verify_ssl", fmt.Sprint(cfg.VerifySSL)},
				{"items_per_page", fmt.Sprint(cfg.ItemsPerPage)},
				{"max_items", fmt.Sprint(cfg.MaxItems)},
				{"page_concurrency", fmt.Sprint(cfg.PageConcurrency)},
				{"display_truncate_width", fmt.Sprint(cfg.DisplayTruncateWidth)},
				{"lookup_cache_size", fmt.Sprint(cfg.LookupCacheSize)},
				{"max_attempts", fmt.Sprint(cfg.MaxAttempts)},
				{"redis_url", cfg.RedisURL},
				{"metrics_addr", cfg.MetricsAddr},
				{"log_level", cfg.LogLevel},
			}
			for _, r := range rows {
				fmt.Fprintf(app.out, "%-24s %s\n", r[0]+":", r[1])
			}
			if err := cfg.Validate(); err != nil {
				fmt.Fprintf(app.out, "\nConfiguration problem: %v\n", err)
			}
			return nil
		},
	}
}

func newVersionCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(app.out, "nbx %s\n", Version)
			fmt.Fprintf(app.out, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(app.out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}
