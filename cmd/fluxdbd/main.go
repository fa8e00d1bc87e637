// Command fluxdbd runs the FluxDB server: it loads configuration from
// flags, environment variables, and an optional config file via
// cobra/viper, then starts internal/server and blocks until
// SIGINT/SIGTERM, shutting the listener and open databases down
// cleanly before exiting.
package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/PranavKndpl/FluxDB/internal/config"
	"github.com/PranavKndpl/FluxDB/internal/database"
	"github.com/PranavKndpl/FluxDB/internal/logger"
	"github.com/PranavKndpl/FluxDB/internal/metrics"
	"github.com/PranavKndpl/FluxDB/internal/pubsub"
	"github.com/PranavKndpl/FluxDB/internal/server"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "fluxdbd",
	Short: "FluxDB server",
	Long:  "fluxdbd serves the FluxDB line protocol over TCP with durable write-ahead logging.",
	RunE:  run,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to a config file (yaml/json/toml)")
	rootCmd.PersistentFlags().String("data-dir", "./data", "directory for database files")
	rootCmd.PersistentFlags().String("listen-addr", ":8080", "TCP address to listen on")
	rootCmd.PersistentFlags().Int("max-connections", 1024, "maximum concurrent client connections (0 = unbounded)")
	rootCmd.PersistentFlags().Duration("recv-timeout", 5*time.Second, "per-connection idle read timeout")
	rootCmd.PersistentFlags().String("require-password", "", "if set, clients must AUTH with this password")
	rootCmd.PersistentFlags().Bool("wal-fsync", true, "fsync the write-ahead log after every append")
	rootCmd.PersistentFlags().Uint64("wal-max-bytes", 10*1024*1024, "WAL size threshold that triggers a checkpoint")
	rootCmd.PersistentFlags().Duration("janitor-interval", 5*time.Second, "checkpoint-check interval")
	rootCmd.PersistentFlags().Duration("ttl-interval", 100*time.Millisecond, "expired-document sweep interval")
	rootCmd.PersistentFlags().Bool("adaptive", false, "enable adaptive indexing by default on new collections")
	rootCmd.PersistentFlags().Bool("pubsub-enabled", true, "enable the pub/sub module")
	rootCmd.PersistentFlags().Bool("metrics-enabled", true, "expose a Prometheus /metrics endpoint")
	rootCmd.PersistentFlags().String("metrics-addr", ":9090", "address for the metrics HTTP endpoint")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		fmt.Fprintf(os.Stderr, "failed to bind flags: %v\n", err)
		os.Exit(1)
	}
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to read config file %s: %v\n", cfgFile, err)
		}
	}
	viper.SetEnvPrefix("fluxdb")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func loadConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.DataDir = viper.GetString("data-dir")
	cfg.Server.ListenAddr = viper.GetString("listen-addr")
	cfg.Server.MaxConnections = viper.GetInt("max-connections")
	cfg.Server.RecvTimeout = viper.GetDuration("recv-timeout")
	cfg.Server.RequirePassword = viper.GetString("require-password")
	cfg.WAL.Fsync = viper.GetBool("wal-fsync")
	cfg.WAL.MaxSizeBytes = viper.GetUint64("wal-max-bytes")
	cfg.Coll.JanitorInterval = viper.GetDuration("janitor-interval")
	cfg.Coll.TTLInterval = viper.GetDuration("ttl-interval")
	cfg.Coll.Adaptive = viper.GetBool("adaptive")
	cfg.PubSub.Enabled = viper.GetBool("pubsub-enabled")
	cfg.Metrics.Enabled = viper.GetBool("metrics-enabled")
	cfg.Metrics.ListenAddr = viper.GetString("metrics-addr")
	return cfg
}

func run(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	log := logger.Default()
	log.Info("starting FluxDB")
	log.Info("data directory: %s", cfg.DataDir)
	log.Info("listen address: %s", cfg.Server.ListenAddr)

	dbManager, err := database.NewManager(cfg.DataDir, cfg.Coll, cfg.WAL, log)
	if err != nil {
		return fmt.Errorf("failed to initialize database manager: %w", err)
	}
	defer dbManager.CloseAll()

	if _, _, err := dbManager.OpenOrCreate(database.DefaultName); err != nil {
		return fmt.Errorf("failed to open default database: %w", err)
	}

	pubsubManager := pubsub.NewManager()
	pubsubManager.SetEnabled(cfg.PubSub.Enabled)

	var m *metrics.Metrics
	var metricsSrv *http.Server
	if cfg.Metrics.Enabled {
		m = metrics.New()
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		metricsSrv = &http.Server{Addr: cfg.Metrics.ListenAddr, Handler: mux}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("metrics server error: %v", err)
			}
		}()
		log.Info("metrics endpoint: %s/metrics", cfg.Metrics.ListenAddr)
	}

	srv := server.New(cfg.Server, dbManager, pubsubManager, m, log)
	if err := srv.Start(); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down")
	if err := srv.Stop(); err != nil {
		log.Error("error during shutdown: %v", err)
	}
	if metricsSrv != nil {
		metricsSrv.Close()
	}
	log.Info("FluxDB stopped")
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
