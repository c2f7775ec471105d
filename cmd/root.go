package cmd

import (
	"github.com/abhisek/cognitioflux/internal/config"
	"github.com/abhisek/cognitioflux/internal/store"
	"github.com/spf13/cobra"
)

var (
	v       = config.New()
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "cognitioflux",
	Short: "Spaced-repetition review engine and daily lesson feed",
	Long: "CognitioFlux schedules lesson reviews with SM-2 and composes a prioritized " +
		"daily feed of overdue, due and new micro-lessons for each learner.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.BindFlags(v, cmd.Flags()); err != nil {
			return err
		}
		return config.ReadFile(v, cfgFile)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	d := config.Default()
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "Path to a YAML, TOML or JSON config file")
	pf.String(config.KeyDB, "", "Path to SQLite database file (overrides COGNITIOFLUX_DB env var)")
	pf.String(config.KeyLearner, "", "Learner email used by learner commands")
	pf.String(config.KeyLogMode, d.LogMode, "Log mode: dev, prod or quiet")
	pf.String(config.KeyTimezone, d.Timezone, "IANA time zone that day boundaries are computed in")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(topicCmd)
	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(feedCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig resolves the effective configuration after flags have been
// bound.
func loadConfig() (config.Config, error) {
	return config.Load(v)
}

// resolveDBPath returns the database path using --db or COGNITIOFLUX_DB
// (highest priority), then the default XDG path.
func resolveDBPath(cfg config.Config) (string, error) {
	if cfg.DBPath != "" {
		return cfg.DBPath, store.EnsureDir(cfg.DBPath)
	}
	return store.DefaultDBPath()
}
