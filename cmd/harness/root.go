package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jeethualex/harness"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "harness",
	Short: "Machine learning server hosting pluggable recommendation engines",
	Long: `Harness hosts recommendation engines behind one HTTP API: create
engine instances, feed them events, run training jobs, and answer queries
against the trained models.

Configuration is read from a YAML file, HARNESS_* environment variables,
and flags, in rising precedence. Keys map to environment variables with
dots replaced by underscores, so store.backend becomes
HARNESS_STORE_BACKEND.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to config file (default ./harness.yaml)")
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("harness")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("/etc/harness")
	}

	viper.SetEnvPrefix("HARNESS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		// A missing file from the default search path is fine; an
		// explicit --config that fails to load is not.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			cobra.CheckErr(fmt.Errorf("read config: %w", err))
		}
	}
}

func setDefaults() {
	def := harness.DefaultConfig()

	viper.SetDefault("server.addr", def.Addr)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")

	viper.SetDefault("store.backend", "memory")
	viper.SetDefault("store.mongo.uri", "mongodb://localhost:27017")
	viper.SetDefault("store.mongo.database", "harness")
	viper.SetDefault("store.redis.addr", "localhost:6379")
	viper.SetDefault("store.redis.password", "")
	viper.SetDefault("store.redis.db", 0)
	viper.SetDefault("store.postgres.dsn", "postgres://localhost:5432/harness?sslmode=disable")

	viper.SetDefault("jobs.expire_after", def.JobExpireAfter)

	viper.SetDefault("trainer.max_concurrent", def.TrainConcurrency)
	viper.SetDefault("trainer.interval", "0s")
	viper.SetDefault("trainer.timeout", "0s")

	viper.SetDefault("compute.cancel_url", "")

	viper.SetDefault("shutdown.timeout", def.ShutdownTimeout)
}
