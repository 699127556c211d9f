package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"fermentation-backend/config"
	"fermentation-backend/internal/alerting"
	"fermentation-backend/internal/poller"
	"fermentation-backend/internal/store"
)

var (
	configPath string
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "fermentd",
	Short: "Coffee fermentation telemetry backend",
	Long: `fermentd polls the hydrometer feeds of active fermentation batches,
stores their readings, raises threshold alerts and serves them over HTTP.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			log.Warnf("failed to load .env file: %v", err)
		}

		if configPath == "" {
			configPath = os.Getenv("CONFIG_PATH")
		}
		if configPath == "" {
			configPath = "./config/config.yaml"
		}

		loaded, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load configuration from %s: %w", configPath, err)
		}
		cfg = loaded

		setupLogging(cfg.Log)
		log.Infof("configuration loaded from %s", configPath)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to the yaml config file (default $CONFIG_PATH or ./config/config.yaml)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

func setupLogging(lc config.LogConfig) {
	if strings.EqualFold(lc.Format, "json") {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}

	level, err := log.ParseLevel(lc.Level)
	if err != nil {
		log.Warnf("unknown log level %q, using info", lc.Level)
		level = log.InfoLevel
	}
	log.SetLevel(level)
}

// newPipeline wires the ingestion pipeline shared by every command.
func newPipeline(s store.Store, notifier poller.AlertNotifier) *poller.Pipeline {
	evaluator := alerting.NewEvaluator(alerting.ThresholdsFromConfig(cfg.Alerts))
	return poller.NewPipeline(s, poller.NewFeedClient(cfg.Poller), evaluator, notifier, cfg.Poller)
}
