package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/jddeal/go-radolan/catalog"
	"github.com/jddeal/go-radolan/internal/config"
	"github.com/jddeal/go-radolan/internal/observability"
	"github.com/jddeal/go-radolan/internal/server"
	"github.com/sirupsen/logrus"
)

func openCatalog(ctx context.Context, cfg *config.Config) (catalog.Catalog, func(), error) {
	switch cfg.Source {
	case config.SourceS3:
		c, err := catalog.NewAnonymousS3Catalog(cfg.AWSRegion, cfg.Bucket, cfg.Prefix)
		return c, func() {}, err
	case config.SourceGCS:
		client, err := catalog.NewGCSClient(ctx, cfg.GCSCredentials)
		if err != nil {
			return nil, nil, err
		}
		return catalog.NewGCSCatalog(client, cfg.Bucket, cfg.Prefix), func() { client.Close() }, nil
	case config.SourceDir:
		return catalog.NewDirCatalog(cfg.DataDir), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown source %q", cfg.Source)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load config")
	}
	if err := observability.ConfigureLogging(cfg.LogLevel, cfg.LogFormat); err != nil {
		logrus.WithError(err).Fatal("failed to configure logging")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cat, closeCatalog, err := openCatalog(ctx, cfg)
	if err != nil {
		logrus.WithError(err).Fatal("failed to open catalog")
	}
	defer closeCatalog()

	logrus.WithFields(logrus.Fields{
		"source":     cfg.Source,
		"dir":        cfg.DataDir,
		"bucket":     cfg.Bucket,
		"prefix":     cfg.Prefix,
		"cache_size": cfg.CacheSize,
	}).Info("serving RADOLAN catalog")

	srv := server.New(cfg.HTTPAddr, cat, observability.NewMetrics(), cfg.CacheSize, cfg.MissingValue)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Error("http server error")
			stop()
		}
	}()

	<-ctx.Done()
	logrus.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("http server shutdown error")
	}
	logrus.Info("shutdown complete")
}
