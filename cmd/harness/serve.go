package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	mongod "go.mongodb.org/mongo-driver/v2/mongo"
	mongoopts "go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/jeethualex/harness"
	"github.com/jeethualex/harness/server"
	"github.com/jeethualex/harness/store"
	"github.com/jeethualex/harness/store/memory"
	mongostore "github.com/jeethualex/harness/store/mongo"
	pgstore "github.com/jeethualex/harness/store/postgres"
	redisstore "github.com/jeethualex/harness/store/redis"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the harness server",
	Long: `Run the harness server: migrate the store, recover jobs left
mid-flight by the previous process, rebuild the hosted engines, and
serve the HTTP API until interrupted.

Example:
  harness serve
  harness serve --addr :8080 --store postgres
  HARNESS_STORE_BACKEND=redis harness serve`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "HTTP listen address")
	serveCmd.Flags().String("store", "", "Store backend (memory|mongo|redis|postgres)")
	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag("store.backend", serveCmd.Flags().Lookup("store"))
}

func runServe(cmd *cobra.Command, _ []string) error {
	logger, err := buildLogger()
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, cleanup, err := openStore(ctx, logger)
	if err != nil {
		return err
	}
	if cleanup != nil {
		defer func() {
			if closeErr := cleanup(context.Background()); closeErr != nil {
				logger.Error("store client close failed", slog.String("error", closeErr.Error()))
			}
		}()
	}

	cfg := harness.Config{
		Addr:             viper.GetString("server.addr"),
		JobExpireAfter:   viper.GetDuration("jobs.expire_after"),
		TrainConcurrency: viper.GetInt("trainer.max_concurrent"),
		TrainInterval:    viper.GetDuration("trainer.interval"),
		ShutdownTimeout:  viper.GetDuration("shutdown.timeout"),
		ComputeURL:       viper.GetString("compute.cancel_url"),
	}

	srv, err := server.Build(
		server.WithStore(st),
		server.WithLogger(logger),
		server.WithConfig(cfg),
		server.WithTrainTimeout(viper.GetDuration("trainer.timeout")),
	)
	if err != nil {
		return err
	}

	if err := srv.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	stop()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Stop(shutdownCtx)
}

func buildLogger() (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(viper.GetString("logging.level"))); err != nil {
		return nil, fmt.Errorf("parse logging.level: %w", err)
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	switch format := viper.GetString("logging.format"); format {
	case "json":
		return slog.New(slog.NewJSONHandler(os.Stderr, handlerOpts)), nil
	case "text":
		return slog.New(slog.NewTextHandler(os.Stderr, handlerOpts)), nil
	default:
		return nil, fmt.Errorf("unknown logging.format %q", format)
	}
}

// openStore opens the configured backend. The cleanup closes the client
// the store was built over, for backends where the caller owns it.
func openStore(ctx context.Context, logger *slog.Logger) (store.Store, func(context.Context) error, error) {
	backend := viper.GetString("store.backend")
	switch backend {
	case "memory":
		return memory.New(), nil, nil

	case "mongo":
		client, err := mongod.Connect(mongoopts.Client().ApplyURI(viper.GetString("store.mongo.uri")))
		if err != nil {
			return nil, nil, fmt.Errorf("connect mongo: %w", err)
		}
		db := client.Database(viper.GetString("store.mongo.database"))
		return mongostore.New(db, mongostore.WithLogger(logger)), client.Disconnect, nil

	case "redis":
		client := goredis.NewClient(&goredis.Options{
			Addr:     viper.GetString("store.redis.addr"),
			Password: viper.GetString("store.redis.password"),
			DB:       viper.GetInt("store.redis.db"),
		})
		closeClient := func(context.Context) error { return client.Close() }
		return redisstore.New(client, redisstore.WithLogger(logger)), closeClient, nil

	case "postgres":
		st, err := pgstore.New(ctx, viper.GetString("store.postgres.dsn"), pgstore.WithLogger(logger))
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		return st, nil, nil

	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", backend)
	}
}
