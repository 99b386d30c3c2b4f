package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"bidstorm/internal/config"
)

var (
	cfgFile string

	// CLI flags, applied on top of the file/env configuration.
	baseURL   string
	users     int
	rampUpSec int
	holdSec   int
	spawnRate float64
	products  int
	topK      int
	rampRatio float64
	noVerify  bool
	noHistory bool
	logLevel  string
	logFormat string
	dbDSN     string
	redisAddr string
)

var rootCmd = &cobra.Command{
	Use:   "bidstorm",
	Short: "Bidstorm - auction service load harness",
	Long: `
Bidstorm drives a fleet of simulated bidders against an auction
service, ramps them up on a fixed schedule, and afterwards checks the
service's own stores for overselling.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return runHarness(cfg)
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(historyCmd)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./.bidstorm.yaml or $HOME/.bidstorm.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, json)")
	rootCmd.PersistentFlags().StringVar(&dbDSN, "db-dsn", "", "postgres DSN for verification")
	rootCmd.PersistentFlags().StringVar(&redisAddr, "redis-addr", "", "redis address for verification")

	rootCmd.Flags().StringVarP(&baseURL, "url", "u", "", "Auction service base URL")
	rootCmd.Flags().IntVarP(&users, "users", "U", 0, "Peak concurrent users")
	rootCmd.Flags().IntVar(&rampUpSec, "ramp-up", 0, "Ramp up duration in seconds")
	rootCmd.Flags().IntVar(&holdSec, "hold", 0, "Hold duration at peak in seconds")
	rootCmd.Flags().Float64Var(&spawnRate, "spawn-rate", 0, "Users spawned per second")
	rootCmd.Flags().IntVar(&products, "products", 0, "Auctions to create")
	rootCmd.Flags().IntVar(&topK, "k", 0, "Winner slots per auction")
	rootCmd.Flags().Float64Var(&rampRatio, "ramp-up-ratio", -1, "Fraction of aggressive early bidders (0..1)")
	rootCmd.Flags().BoolVar(&noVerify, "no-verify", false, "Skip post-run data verification")
	rootCmd.Flags().BoolVar(&noHistory, "no-history", false, "Do not record this run in history")
}

// loadConfig resolves file and env configuration, then lets any flag
// the user actually set override it.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	f := cmd.Flags()
	if f.Changed("url") {
		cfg.BaseURL = baseURL
	}
	if f.Changed("users") {
		cfg.Shape.MaxUsers = users
	}
	if f.Changed("ramp-up") {
		cfg.Shape.RampUpSec = rampUpSec
	}
	if f.Changed("hold") {
		cfg.Shape.HoldSec = holdSec
	}
	if f.Changed("spawn-rate") {
		cfg.Shape.SpawnRate = spawnRate
	}
	if f.Changed("products") {
		cfg.Run.Products = products
	}
	if f.Changed("k") {
		cfg.Run.K = topK
	}
	if f.Changed("ramp-up-ratio") {
		cfg.Run.RampUpRatio = rampRatio
	}
	if f.Changed("no-verify") {
		cfg.Verify.Enabled = !noVerify
	}
	if f.Changed("no-history") {
		cfg.History.Enabled = !noHistory
	}

	pf := cmd.Root().PersistentFlags()
	if pf.Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if pf.Changed("log-format") {
		cfg.Log.Format = logFormat
	}
	if pf.Changed("db-dsn") {
		cfg.Verify.DSN = dbDSN
	}
	if pf.Changed("redis-addr") {
		cfg.Verify.RedisAddr = redisAddr
	}

	return cfg, nil
}
