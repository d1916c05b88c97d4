// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jason-s-yu/sketchchain/internal/auth"
	"github.com/jason-s-yu/sketchchain/internal/cache"
	"github.com/jason-s-yu/sketchchain/internal/database"
	"github.com/jason-s-yu/sketchchain/internal/handlers"
	"github.com/jason-s-yu/sketchchain/internal/settings"
	"github.com/jason-s-yu/sketchchain/internal/words"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)
	if lvl, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		logger.SetLevel(lvl)
	}

	if err := auth.Init(); err != nil {
		logger.Fatalf("auth init: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Redis is optional: without it settings live in memory and actions are not archived.
	var store settings.Store = settings.NewMemoryStore()
	var publisher *cache.Publisher
	if err := cache.ConnectRedis(); err != nil {
		logger.Warnf("running without redis: %v", err)
	} else {
		store = settings.NewRedisStore(cache.Rdb, settings.StorageKey)
		publisher = cache.NewPublisher()
		logger.Infof("publishing session actions to %q", publisher.Queue)
	}

	mgr := settings.NewManager(ctx, store, logrus.NewEntry(logger))
	srv := handlers.NewServer(logger, mgr)

	pools := words.Embedded()
	if path := os.Getenv("WORDS_FILE"); path != "" {
		p, err := words.LoadFile(path)
		if err != nil {
			logger.Fatalf("load words: %v", err)
		}
		pools = p
	}
	srv.Words = words.NewPicker(pools, nil)
	if publisher != nil {
		srv.Actions = publisher
	}

	if os.Getenv("PG_HOST") != "" {
		if err := database.ConnectDB(ctx); err != nil {
			logger.Warnf("running without chain archive: %v", err)
		} else if err := database.Migrate(ctx, database.DB); err != nil {
			logger.Warnf("running without chain archive: %v", err)
		} else {
			srv.DB = database.DB
		}
	}

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	httpServer := &http.Server{
		Addr:    addr,
		Handler: srv.Routes(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warnf("shutdown: %v", err)
		}
	}()

	logger.Infof("Running on %s", addr)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("server exited: %v", err)
	}
	if database.DB != nil {
		database.DB.Close()
	}
	logger.Info("server stopped")
}
