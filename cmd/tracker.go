package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pixperk/pixtracker/logger"
	"github.com/pixperk/pixtracker/tracker"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	trackerAddr       string
	trackerRedis      string
	trackerPresence   string
	trackerRedisDB    int
	trackerRedisPwd   string
	trackerMemory     bool
	trackerMemorySize int
	trackerLogLevel   string
	trackerCfg        = tracker.DefaultConfig()
)

var trackerCmd = &cobra.Command{
	Use:   "tracker",
	Short: "Start the BitTorrent tracker",
	Long:  `Start a BitTorrent tracker that keeps swarms in Redis (or in memory) and answers compact announces.`,
	RunE:  runTracker,
}

func init() {
	f := trackerCmd.Flags()
	f.StringVarP(&trackerAddr, "addr", "a", ":8080", "Address to listen on")
	f.StringVarP(&trackerRedis, "redis", "r", "localhost:6379", "Redis address for swarms")
	f.StringVar(&trackerPresence, "presence-redis", "", "Redis address for peer presence (defaults to --redis)")
	f.IntVarP(&trackerRedisDB, "redis-db", "d", 0, "Redis database number")
	f.StringVarP(&trackerRedisPwd, "redis-password", "P", "", "Redis password")
	f.BoolVarP(&trackerMemory, "memory", "m", false, "Use in-memory storage (no Redis)")
	f.IntVar(&trackerMemorySize, "memory-swarms", tracker.DefaultMemorySwarms, "Swarms kept by in-memory storage")
	f.StringVarP(&trackerLogLevel, "log-level", "l", "", "Log level (debug, info, warn, error)")

	f.BoolVar(&trackerCfg.Stats, "stats", trackerCfg.Stats, "Keep and report seeder/leecher counts")
	f.BoolVar(&trackerCfg.Errors, "errors", trackerCfg.Errors, "Send failure reasons to clients")
	f.DurationVar(&trackerCfg.Interval, "interval", trackerCfg.Interval, "Announce interval sent to clients")
	f.DurationVar(&trackerCfg.PeerTTL, "peer-ttl", trackerCfg.PeerTTL, "How long a silent peer stays present")
	f.IntVar(&trackerCfg.MaxPeers, "max-peers", trackerCfg.MaxPeers, "Peers returned per announce")
	f.BoolVar(&trackerCfg.RefreshPresence, "refresh-presence", trackerCfg.RefreshPresence, "Renew presence on every announce")
	f.BoolVar(&trackerCfg.TrustProxy, "trust-proxy", trackerCfg.TrustProxy, "Take peer address from X-Real-IP / X-Forwarded-For")

	rootCmd.AddCommand(trackerCmd)
}

func runTracker(cmd *cobra.Command, args []string) error {
	if err := trackerCfg.Validate(); err != nil {
		return err
	}

	log, err := logger.New(trackerLogLevel)
	if err != nil {
		return err
	}
	defer log.Sync()

	presence, swarms, err := openStores(cmd.Context())
	if err != nil {
		return err
	}

	t := tracker.New(trackerCfg, presence, swarms, log)
	srv := tracker.NewServer(trackerAddr, t, log)

	PrintLogoSmall()
	PrintHeader("TRACKER")

	PrintSection("Storage")
	if trackerMemory {
		PrintKeyValue("Backend", "in-memory")
	} else {
		PrintKeyValue("Swarms", fmt.Sprintf("redis://%s/%d", trackerRedis, trackerRedisDB))
		PrintKeyValue("Presence", fmt.Sprintf("redis://%s/%d", presenceAddr(), trackerRedisDB))
	}

	PrintSection("Settings")
	PrintKeyValueHighlight("Address", trackerAddr)
	PrintKeyValue("Interval", trackerCfg.Interval.String())
	PrintKeyValue("Peer TTL", trackerCfg.PeerTTL.String())
	PrintKeyValue("Max peers", fmt.Sprintf("%d", trackerCfg.MaxPeers))
	PrintToggle("Stats", trackerCfg.Stats)
	PrintToggle("Errors", trackerCfg.Errors)

	PrintSection("Endpoints")
	PrintKeyValue("Announce", fmt.Sprintf("GET http://%s/announce", trackerAddr))
	PrintKeyValue("Scrape", fmt.Sprintf("GET http://%s/scrape", trackerAddr))
	PrintDivider()

	if mp, ok := presence.(*tracker.MemoryPresence); ok {
		go func() {
			ticker := time.NewTicker(5 * time.Minute)
			defer ticker.Stop()
			for range ticker.C {
				if n := mp.Cleanup(); n > 0 {
					log.Debug("expired presence entries dropped", zap.Int("count", n))
				}
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return serve(srv, t, sigCh, log)
}

// serve runs srv until a signal arrives, then shuts it down and closes the
// stores before returning.
func serve(srv *tracker.Server, t *tracker.Tracker, sigCh <-chan os.Signal, log *zap.Logger) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		<-sigCh
		PrintInfo("Shutting down tracker...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Server.Shutdown(ctx)
		if err := t.Close(); err != nil {
			log.Warn("closing stores", zap.Error(err))
		}
	}()

	if err := srv.Start(); !errors.Is(err, http.ErrServerClosed) {
		t.Close()
		return err
	}
	<-done
	return nil
}

func presenceAddr() string {
	if trackerPresence != "" {
		return trackerPresence
	}
	return trackerRedis
}

func openStores(ctx context.Context) (tracker.PresenceStore, tracker.SwarmStore, error) {
	if trackerMemory {
		swarms, err := tracker.NewMemorySwarms(trackerMemorySize)
		if err != nil {
			return nil, nil, err
		}
		return tracker.NewMemoryPresence(), swarms, nil
	}

	swarmClient := tracker.NewRedisClient(trackerRedis, trackerRedisPwd, trackerRedisDB)
	presenceClient := tracker.NewRedisClient(presenceAddr(), trackerRedisPwd, trackerRedisDB)

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	for _, c := range []*redis.Client{swarmClient, presenceClient} {
		if err := c.Ping(ctx).Err(); err != nil {
			swarmClient.Close()
			presenceClient.Close()
			return nil, nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
	}

	return tracker.NewRedisPresence(presenceClient), tracker.NewRedisSwarms(swarmClient), nil
}
