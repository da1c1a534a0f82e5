package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vshulcz/vnstat-exporter/internal/config"
	"github.com/vshulcz/vnstat-exporter/internal/domain"
	"github.com/vshulcz/vnstat-exporter/internal/logging"
	"github.com/vshulcz/vnstat-exporter/internal/misc"
	"github.com/vshulcz/vnstat-exporter/pkg/buildinfo"
)

func newRootCmd(d deps) *cobra.Command {
	var flags *config.Flags

	setup := func(cmd *cobra.Command) (config.ExporterConfig, *zap.Logger, error) {
		cfg, err := config.Resolve(cmd.Flags(), flags)
		if err != nil {
			return config.ExporterConfig{}, nil, err
		}
		log, err := logging.New(logging.Options{Level: cfg.LogLevel, Daemon: cfg.Daemon})
		if err != nil {
			return config.ExporterConfig{}, nil, err
		}
		return cfg, log, nil
	}

	root := &cobra.Command{
		Use:   "vnstat-exporter",
		Short: "Export vnstat interface traffic as Prometheus metrics",
		Long: `vnstat-exporter polls vnstat (or the kernel's interface counters) on a fixed
interval and serves the latest totals on /metrics.

Every flag can also be set through the environment as VNSTAT_EXPORTER_<FLAG>,
for example VNSTAT_EXPORTER_PORT=9469. Command line flags take precedence.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := setup(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, log, d)
		},
	}
	flags = config.RegisterFlags(root.PersistentFlags())

	var retries int
	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Sample the source once, print the metrics and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := setup(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			delays := misc.DefaultBackoff[:min(max(retries, 0), len(misc.DefaultBackoff))]
			return runCheck(cmd.Context(), cfg, log, d, delays, cmd.OutOrStdout())
		},
	}
	checkCmd.Flags().IntVar(&retries, "retries", len(misc.DefaultBackoff), "retries while the source is unavailable")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return buildinfo.Write(cmd.OutOrStdout())
		},
	}

	root.AddCommand(checkCmd, versionCmd)
	return root
}

// runCheck samples once, retrying while the source is unavailable, and renders the result.
func runCheck(ctx context.Context, cfg config.ExporterConfig, log *zap.Logger, d deps, delays []time.Duration, out io.Writer) error {
	reg := newRegistry(cfg)
	s := d.sampler(cfg)

	var samples []domain.InterfaceSample
	op := func(ctx context.Context) error {
		sctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
		var err error
		samples, err = s.Sample(sctx)
		if err != nil {
			log.Warn("sampling failed", zap.Error(err), zap.String("kind", domain.ErrorKind(err)))
		}
		return err
	}
	isUnavailable := func(err error) bool { return errors.Is(err, domain.ErrSourceUnavailable) }
	if err := misc.Retry(ctx, delays, isUnavailable, op); err != nil {
		return fmt.Errorf("check %s: %w", cfg.Source, err)
	}
	reg.Update(samples)
	return reg.Render(out)
}
