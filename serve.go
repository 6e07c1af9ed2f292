package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tusharganotra/portfolio/internal/analytics"
	"github.com/tusharganotra/portfolio/internal/config"
	"github.com/tusharganotra/portfolio/internal/content"
	"github.com/tusharganotra/portfolio/internal/feed"
	"github.com/tusharganotra/portfolio/internal/logging"
	"github.com/tusharganotra/portfolio/internal/metrics"
	"github.com/tusharganotra/portfolio/internal/site"
	"github.com/tusharganotra/portfolio/internal/store"
	"github.com/tusharganotra/portfolio/internal/theme"
)

func newServeCmd(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the web server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), *configFile)
		},
	}
}

func runServe(parent context.Context, configFile string) error {
	if parent == nil {
		parent = context.Background()
	}
	cfg, err := config.Load(config.New(), configFile)
	if err != nil {
		return err
	}

	log := logging.Init(logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
	})
	gin.SetMode(cfg.Server.Mode)

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := store.Open(ctx, cfg.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	pref, err := theme.Load(ctx, db)
	if err != nil {
		return err
	}
	siteContent, err := content.Load()
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.New(reg)
	if err != nil {
		return err
	}

	blog := feed.NewClient(feed.Config{
		Endpoint:   cfg.Feed.Endpoint,
		RSSURL:     cfg.Feed.RSSURL,
		ProfileURL: cfg.Feed.ProfileURL,
		Timeout:    cfg.Feed.Timeout,
	}, nil, m)

	var tracker *analytics.Tracker
	if cfg.Analytics.Enabled {
		tracker, err = analytics.NewTracker(db.DB(), cfg.Analytics.Retention)
		if err != nil {
			return err
		}
		if cfg.UsingDefaultAdmin() {
			log.Warn("using default admin credentials; set ADMIN_USERNAME and ADMIN_PASSWORD")
		}
	}

	srv, err := site.New(site.Options{
		Content:     siteContent,
		Theme:       pref,
		Feed:        blog,
		Tracker:     tracker,
		Metrics:     m,
		Gatherer:    reg,
		Admin:       cfg.Admin,
		CORSOrigins: cfg.CORS.AllowedOrigins,
		Debug:       gin.Mode() == gin.DebugMode,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              net.JoinHostPort("", cfg.Server.Port),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server starting", slog.String("addr", httpServer.Addr), slog.String("mode", gin.Mode()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	if tracker != nil {
		g.Go(func() error {
			return tracker.RunCleanup(gctx, cfg.Analytics.CleanupInterval)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		err := httpServer.Shutdown(shutdownCtx)
		if tracker != nil {
			tracker.Wait()
		}
		return err
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
