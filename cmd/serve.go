package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/abhisek/cognitioflux/internal/config"
	"github.com/abhisek/cognitioflux/internal/server"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the REST API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		e, err := openEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		e.log.Info("starting server",
			"addr", e.cfg.Addr,
			"max_new_items", e.cfg.MaxNewItems,
			"learners", len(e.app.Learners()))
		return server.New(e.app, e.log).Run(ctx)
	},
}

func init() {
	d := config.Default()
	f := serveCmd.Flags()
	f.String(config.KeyAddr, d.Addr, "Listen address")
	f.Int(config.KeyMaxNewItems, d.MaxNewItems, "New lessons per daily feed")
	f.String(config.KeyRedisAddr, "", "Redis address for the feed cache (in-process cache when empty)")
	f.String(config.KeyRedisPassword, "", "Redis password")
	f.Duration(config.KeyFeedCacheTTL, d.FeedCacheTTL, "How long a composed feed is cached")
	f.Int(config.KeySnapshotKeep, d.SnapshotKeep, "Snapshots to retain")
	f.Duration(config.KeySnapshotInterval, d.SnapshotInterval, "Interval between periodic snapshots, 0 disables")
	f.Float64(config.KeyRateLimit, d.RateLimit, "Requests per second per client, 0 disables")
	f.Int(config.KeyRateBurst, d.RateBurst, "Rate limiter burst")
	f.Duration(config.KeyRequestTimeout, d.RequestTimeout, "Per-request timeout")
	f.Duration(config.KeyShutdownTimeout, d.ShutdownTimeout, "Graceful shutdown timeout")
	f.String(config.KeyBaseURL, d.BaseURL, "Public base URL used in syndicated feeds")
}
