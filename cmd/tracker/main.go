package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/pixperk/pixtracker/logger"
	"github.com/pixperk/pixtracker/tracker"
	"go.uber.org/zap"
)

func main() {
	log, err := logger.New(os.Getenv("LOG_LEVEL"))
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	log.Info("=== PiXTracker Server ===")

	cfg, err := tracker.LoadConfig(nil)
	if err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	redisAddr := getEnvOrDefault("REDIS_ADDR", "localhost:6379")
	presenceAddr := getEnvOrDefault("PRESENCE_REDIS_ADDR", redisAddr)
	redisPassword := getEnvOrDefault("REDIS_PASSWORD", "")
	redisDB, err := strconv.Atoi(getEnvOrDefault("REDIS_DB", "0"))
	if err != nil {
		log.Fatal("invalid REDIS_DB", zap.Error(err))
	}
	trackerAddr := getEnvOrDefault("TRACKER_ADDR", ":8080")

	log.Info("connecting to Redis",
		zap.String("swarms", redisAddr),
		zap.String("presence", presenceAddr),
		zap.Int("db", redisDB))

	swarmClient := tracker.NewRedisClient(redisAddr, redisPassword, redisDB)
	presenceClient := tracker.NewRedisClient(presenceAddr, redisPassword, redisDB)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := swarmClient.Ping(ctx).Err(); err != nil {
		log.Fatal("failed to connect to Redis", zap.String("addr", redisAddr), zap.Error(err))
	}
	if err := presenceClient.Ping(ctx).Err(); err != nil {
		log.Fatal("failed to connect to Redis", zap.String("addr", presenceAddr), zap.Error(err))
	}
	cancel()
	log.Info("connected to Redis successfully")

	t := tracker.New(cfg,
		tracker.NewRedisPresence(presenceClient),
		tracker.NewRedisSwarms(swarmClient),
		log)
	trackerServer := tracker.NewServer(trackerAddr, t, log)

	go func() {
		log.Info("tracker server starting",
			zap.String("addr", trackerAddr),
			zap.Bool("stats", cfg.Stats),
			zap.Bool("errors", cfg.Errors),
			zap.Duration("interval", cfg.Interval),
			zap.Duration("peer_ttl", cfg.PeerTTL),
			zap.Int("max_peers", cfg.MaxPeers))
		log.Info("endpoints: GET /announce, GET /scrape")

		if err := trackerServer.Start(); !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", zap.Error(err))
		}
	}()

	setupGracefulShutdown(log, trackerServer, t)
}

func setupGracefulShutdown(log *zap.Logger, trackerServer *tracker.Server, t *tracker.Tracker) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	sig := <-sigChan
	log.Info("received signal, shutting down", zap.Stringer("signal", sig))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := trackerServer.Server.Shutdown(ctx); err != nil {
		log.Error("error during server shutdown", zap.Error(err))
	} else {
		log.Info("HTTP server shut down")
	}

	if err := t.Close(); err != nil {
		log.Error("error closing storage", zap.Error(err))
	} else {
		log.Info("storage connections closed")
	}

	log.Info("tracker server stopped")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
