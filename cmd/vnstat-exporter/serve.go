package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vshulcz/vnstat-exporter/internal/adapters/http/ginserver"
	"github.com/vshulcz/vnstat-exporter/internal/adapters/http/ginserver/middlewares"
	"github.com/vshulcz/vnstat-exporter/internal/adapters/sampler/netio"
	"github.com/vshulcz/vnstat-exporter/internal/adapters/sampler/vnstat"
	"github.com/vshulcz/vnstat-exporter/internal/adapters/state/file"
	"github.com/vshulcz/vnstat-exporter/internal/adapters/state/postgres"
	"github.com/vshulcz/vnstat-exporter/internal/config"
	"github.com/vshulcz/vnstat-exporter/internal/domain"
	"github.com/vshulcz/vnstat-exporter/internal/ports"
	"github.com/vshulcz/vnstat-exporter/internal/services/persist"
	"github.com/vshulcz/vnstat-exporter/internal/services/publisher"
	"github.com/vshulcz/vnstat-exporter/internal/services/registry"
	"github.com/vshulcz/vnstat-exporter/internal/supervisor"
	"github.com/vshulcz/vnstat-exporter/pkg/observer"
)

const shutdownTimeout = 5 * time.Second

// deps are the process edges tests replace.
type deps struct {
	listen   func(network, addr string) (net.Listener, error)
	sampler  func(config.ExporterConfig) ports.Sampler
	state    func(context.Context, config.ExporterConfig, *zap.Logger) (ports.StateStore, func() error)
	notifier func(*zap.Logger) *supervisor.Notifier
	ready    func(net.Addr)
}

func defaultDeps() deps {
	return deps{
		listen:  net.Listen,
		sampler: newSampler,
		state:   openStateStore,
		notifier: func(log *zap.Logger) *supervisor.Notifier {
			return supervisor.New(log)
		},
		ready: func(net.Addr) {},
	}
}

func newSampler(cfg config.ExporterConfig) ports.Sampler {
	if cfg.Source == config.SourceNetIO {
		return netio.New(cfg.Interfaces)
	}
	return vnstat.New(cfg.VnstatPath, vnstat.WithInterfaces(cfg.Interfaces))
}

func newRegistry(cfg config.ExporterConfig) *registry.Registry {
	policy := registry.ResetOnDecrease
	if cfg.CounterDecrease == config.DecreaseClamp {
		policy = registry.ClampOnDecrease
	}
	return registry.New(registry.WithDecreasePolicy(policy))
}

// openStateStore prefers Postgres and falls back to the state file. A nil
// store means persistence is off.
func openStateStore(ctx context.Context, cfg config.ExporterConfig, log *zap.Logger) (ports.StateStore, func() error) {
	noop := func() error { return nil }
	if cfg.DatabaseDSN != "" {
		st, err := postgres.Open(ctx, cfg.DatabaseDSN)
		if err == nil {
			log.Info("state store: postgres")
			return st, st.Close
		}
		log.Warn("postgres state store unavailable", zap.Error(err))
	}
	if cfg.StateFile != "" {
		log.Info("state store: file", zap.String("path", cfg.StateFile))
		return file.New(cfg.StateFile), noop
	}
	return nil, noop
}

func serve(ctx context.Context, cfg config.ExporterConfig, log *zap.Logger, d deps) error {
	reg := newRegistry(cfg)
	reg.Registerer().MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewBuildInfoCollector(),
	)

	ln, err := d.listen("tcp", cfg.Addr())
	if err != nil {
		return fmt.Errorf("%w %s: %w", domain.ErrBind, cfg.Addr(), err)
	}

	notifier := d.notifier(log)
	events := observer.NewSubject[publisher.Outcome](notifier)

	store, closeStore := d.state(ctx, cfg, log)
	defer func() {
		if err := closeStore(); err != nil {
			log.Warn("close state store", zap.Error(err))
		}
	}()
	var flusher *persist.Flusher
	if store != nil {
		flusher = persist.New(store, reg, cfg.StoreInterval, persist.WithLogger(log))
		if cfg.Restore {
			if err := flusher.Restore(ctx); err != nil {
				log.Warn("state restore failed", zap.Error(err))
			}
		}
		events.Attach(flusher)
	}

	pub := publisher.New(d.sampler(cfg), reg, cfg.Interval, cfg.Timeout,
		publisher.WithLogger(log),
		publisher.WithRegisterer(reg.Registerer()),
		publisher.WithObserver(events),
	)

	gin.SetMode(gin.ReleaseMode)
	h := ginserver.NewHandler(reg, pub, promhttp.HandlerOpts{ErrorLog: zap.NewStdLog(log)})
	srv := &http.Server{
		Handler:           ginserver.NewRouter(h, middlewares.ZapLogger(log)),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error { return pub.Run(gctx) })
	g.Go(func() error { return notifier.Watchdog(gctx) })
	if flusher != nil {
		g.Go(func() error { return flusher.Run(gctx) })
	}
	g.Go(func() error {
		<-gctx.Done()
		notifier.Stopping()
		sctx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	log.Info("vnstat exporter started",
		zap.String("addr", ln.Addr().String()),
		zap.String("source", string(cfg.Source)),
		zap.Duration("interval", cfg.Interval),
	)
	notifier.Ready()
	d.ready(ln.Addr())

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("vnstat exporter stopped")
	return nil
}
