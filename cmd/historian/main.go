// cmd/historian/main.go is an asynchronous historian service that pops session actions from a Redis queue and persists them to PostgreSQL.
package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/jason-s-yu/sketchchain/internal/cache"
	"github.com/jason-s-yu/sketchchain/internal/database"
	"github.com/jason-s-yu/sketchchain/internal/historian"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)
	if lvl, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		logger.SetLevel(lvl)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cache.ConnectRedis(); err != nil {
		logger.Fatalf("historian needs redis: %v", err)
	}
	defer cache.Rdb.Close()

	if err := database.ConnectDB(ctx); err != nil {
		logger.Fatalf("historian needs postgres: %v", err)
	}
	defer database.DB.Close()
	if err := database.Migrate(ctx, database.DB); err != nil {
		logger.Fatalf("migrate: %v", err)
	}

	cfg := historian.Config{
		Queue:      cache.QueueName(),
		BatchSize:  getEnvInt("HISTORIAN_BATCH_SIZE", 20),
		FlushDelay: time.Duration(getEnvInt("HISTORIAN_FLUSH_MS", 500)) * time.Millisecond,
		Inactivity: time.Duration(getEnvInt("SESSION_INACTIVITY_TIMEOUT_SEC", 600)) * time.Second,
	}
	hs := historian.New(cache.Rdb, historian.PGStore{Pool: database.DB}, cfg, logrus.NewEntry(logger))
	hs.Run(ctx)

	logger.Info("Historian shutdown complete.")
}

// getEnvInt retrieves an integer value from an environment variable or returns a default value.
func getEnvInt(key string, defVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defVal
	}
	return i
}
