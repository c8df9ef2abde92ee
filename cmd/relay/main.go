package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/weiawesome/wes-io-relay/internal/catalog"
	"github.com/weiawesome/wes-io-relay/internal/config"
	"github.com/weiawesome/wes-io-relay/internal/handler"
	"github.com/weiawesome/wes-io-relay/internal/hub"
	"github.com/weiawesome/wes-io-relay/internal/recorder"
	"github.com/weiawesome/wes-io-relay/internal/registry"
	"github.com/weiawesome/wes-io-relay/internal/service"
	pkglog "github.com/weiawesome/wes-io-relay/pkg/log"
	"github.com/weiawesome/wes-io-relay/pkg/pubsub"
	"github.com/weiawesome/wes-io-relay/pkg/storage"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		l := pkglog.L()
		l.Fatal().Err(err).Msg("failed to load configuration")
	}

	pkglog.Init(pkglog.Config{
		Level:       cfg.Log.Level,
		Pretty:      cfg.Log.Pretty,
		ServiceName: "relay",
	})
	logger := pkglog.L()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Storage decides both the recording sink and the catalog variant
	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		logger.Fatal().Err(err).Str("type", cfg.Storage.Type).Msg("failed to initialize storage")
	}

	var (
		backend recorder.Backend
		cat     catalog.Catalog
	)
	if local, ok := store.(*storage.LocalStorage); ok {
		backend = recorder.NewFileBackend(local, cfg.Recording.ContentType)
		cat = catalog.NewLocalCatalog(local, cfg.Recording.Extension, cfg.Recording.ContentType)
		logger.Info().Str("path", local.GetBasePath()).Msg("recordings stored on local disk")
	} else {
		backend = recorder.NewBufferBackend(store, cfg.Recording.Folder, cfg.Recording.ContentType, cfg.Recording.URLExpiry)
		cat = catalog.NewBlobCatalog(store, cfg.Recording.Folder, cfg.Recording.Extension, cfg.Recording.CatalogLimit, cfg.Recording.URLExpiry)
		logger.Info().Str("type", cfg.Storage.Type).Str("folder", cfg.Recording.Folder).Msg("recordings stored in object storage")
	}

	reg, err := registry.New(ctx, cfg.Registry)
	if err != nil {
		logger.Fatal().Err(err).Str("type", cfg.Registry.Type).Msg("failed to initialize live registry")
	}
	defer reg.Close()

	publisher, err := pubsub.NewPublisher(cfg.PubSub)
	if err != nil {
		logger.Warn().Err(err).Str("driver", cfg.PubSub.Driver).Msg("failed to create publisher, lifecycle events disabled")
		publisher = pubsub.NopPublisher{}
	}
	defer publisher.Close()

	finalizer := recorder.NewFinalizer(recorder.FinalizerConfig{
		Workers:   cfg.Recording.FinalizeWorkers,
		QueueSize: cfg.Recording.FinalizeQueueSize,
		Timeout:   cfg.Recording.FinalizeTimeout,
	})
	finalizer.Start()

	manager := recorder.NewManager(backend, finalizer, cfg.Recording.Extension)

	wsHub := hub.NewHub(cfg.WebSocket)
	go wsHub.Run()

	relaySvc := service.NewRelayService(wsHub, reg, manager, publisher, cfg.Chat.Prefix)

	// Setup Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(pkglog.GinMiddleware(logger))
	r.Use(handler.CORS())

	handler.NewHandler(relaySvc, cat).RegisterRoutes(r)
	handler.NewWSHandler(wsHub, relaySvc).RegisterRoutes(r)

	server := &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:     r,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", server.Addr).Msg("relay listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down relay")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}

	// Closing sockets runs each disconnect handler, which hands any open
	// recording to the finalizer before it drains.
	wsHub.CloseAll()
	drainCtx, drainCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer drainCancel()
	if err := wsHub.Wait(drainCtx); err != nil {
		logger.Warn().Err(err).Msg("connections still open after shutdown timeout")
	}
	finalizer.Stop()

	logger.Info().Msg("relay stopped")
}
