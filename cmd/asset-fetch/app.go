package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/snapetech/assetfetch/internal/config"
	"github.com/snapetech/assetfetch/internal/health"
	"github.com/snapetech/assetfetch/internal/httpclient"
	"github.com/snapetech/assetfetch/internal/ledger"
	"github.com/snapetech/assetfetch/internal/materializer"
	"github.com/snapetech/assetfetch/internal/metrics"
	"github.com/snapetech/assetfetch/internal/mirror"
	"github.com/snapetech/assetfetch/internal/pipeline"
	"github.com/snapetech/assetfetch/internal/platform"
)

// app is the wired pipeline plus the optional extras config enabled.
type app struct {
	cfg      *config.Config
	client   *platform.Client
	resolver *pipeline.Resolver
	metrics  *metrics.Metrics
	ledger   *ledger.Ledger
}

func newPlatformClient(cfg *config.Config) *platform.Client {
	return &platform.Client{
		HTTP:            httpclient.New(cfg.HTTPTimeout),
		DetailsBaseURL:  cfg.DetailsBaseURL,
		GamesBaseURL:    cfg.GamesBaseURL,
		DeliveryBaseURL: cfg.DeliveryBaseURL,
	}
}

// buildApp wires the resolver from cfg. The ledger, metrics and mirror are
// attached only when configured.
func buildApp(ctx context.Context, cfg *config.Config) (*app, error) {
	client := newPlatformClient(cfg)
	a := &app{cfg: cfg, client: client}
	a.resolver = &pipeline.Resolver{
		Platform:   client,
		Store:      &materializer.Local{Dir: cfg.OutputDir, Ext: cfg.FileExt, Client: client.HTTP},
		Credential: cfg.RobloxCookie,
		AssetType:  cfg.AssetType,
	}
	if cfg.MetricsAddr != "" {
		a.metrics = metrics.New(prometheus.NewRegistry())
		a.resolver.Observer = a.metrics
	}
	if cfg.LedgerPath != "" {
		l, err := ledger.Open(cfg.LedgerPath)
		if err != nil {
			return nil, err
		}
		a.ledger = l
		a.resolver.Recorders = append(a.resolver.Recorders, l)
	}
	if cfg.MirrorEnabled() {
		m, err := mirror.NewS3(ctx, mirror.Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Prefix:    cfg.S3Prefix,
		})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("s3 mirror: %w", err)
		}
		a.resolver.Mirror = m
		log.Printf("Mirroring downloads to s3://%s/%s", cfg.S3Bucket, cfg.S3Prefix)
	}
	if cfg.RobloxCookie == "" {
		log.Printf("No platform cookie configured; asset location lookups will be rejected")
	}
	return a, nil
}

func (a *app) Close() {
	if a.ledger != nil {
		if err := a.ledger.Close(); err != nil {
			log.Printf("Close ledger: %v", err)
		}
	}
}

// run calls entry with a context that is canceled when entry returns, and
// serves /metrics alongside it when a metrics address is configured.
func (a *app) run(ctx context.Context, entry func(ctx context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)
	if a.metrics != nil {
		g.Go(func() error { return serveMetrics(gctx, a.cfg.MetricsAddr, a.metrics.Handler()) })
	}
	g.Go(func() error {
		defer cancel()
		return entry(gctx)
	})
	return g.Wait()
}

func serveMetrics(ctx context.Context, addr string, h http.Handler) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", h)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	log.Printf("Metrics on http://%s/metrics", addr)
	select {
	case err := <-errc:
		return fmt.Errorf("metrics server: %w", err)
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// checkTargets lists the platform hosts for the check subcommand.
func checkTargets(c *platform.Client) []health.Target {
	hosts := c.Hosts()
	out := make([]health.Target, 0, len(hosts))
	for _, h := range hosts {
		out = append(out, health.Target{Name: h.Name, URL: h.BaseURL + "/"})
	}
	return out
}
