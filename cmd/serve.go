package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cyberinferno/gamesession/cacher"
	"github.com/cyberinferno/gamesession/config"
	"github.com/cyberinferno/gamesession/directory"
	"github.com/cyberinferno/gamesession/gameserver"
	"github.com/cyberinferno/gamesession/logger"
	"github.com/cyberinferno/gamesession/registry"
	"github.com/cyberinferno/gamesession/session"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// redisNamespace isolates daemon keys from other users of the database.
const redisNamespace = "gamesessiond:"

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the game session server until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(viper.New(), *configPath)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cfg, cmd.OutOrStdout())
		},
	}
}

func serve(ctx context.Context, cfg config.Config, out io.Writer) error {
	log, err := newLogger(cfg.Log, cfg.Server.Name, out)
	if err != nil {
		return err
	}
	defer log.Close()

	cache, closeCache, err := newDirectoryCache(ctx, cfg.Directory)
	if err != nil {
		log.Error("directory backend unavailable", logger.Field{Key: "backend", Value: cfg.Directory.Backend}, logger.Err(err))
		return err
	}
	defer closeCache()

	reg := registry.New()
	dir := directory.New(reg, cache, cfg.Directory.TTL, cfg.Directory.KeyPrefix)

	srv := gameserver.NewServer(gameserver.Options{
		Name:         cfg.Server.Name,
		Addr:         cfg.Server.Addr,
		Delimiter:    cfg.Server.DelimiterByte(),
		MaxFrameSize: cfg.Server.MaxFrameSize,
		ReadTimeout:  cfg.Server.ReadTimeout,
		Replies:      cfg.Server.Replies,
	}, reg, dir, log)

	if err := srv.Start(); err != nil {
		return err
	}

	<-ctx.Done()
	log.Info("shutting down",
		logger.Field{Key: "connections", Value: srv.Connections()},
		logger.Field{Key: "active_sessions", Value: srv.ActiveSessions()},
	)
	srv.Stop()

	// Stop released this server's directory entries; anything left belongs
	// to other servers sharing the backend.
	countCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if n, err := dir.Len(countCtx); err != nil {
		log.Warn("directory unavailable at shutdown", logger.Err(err))
	} else {
		log.Debug("directory entries remaining", logger.Field{Key: "entries", Value: n})
	}

	return nil
}

func newLogger(cfg config.LogConfig, service string, out io.Writer) (logger.Logger, error) {
	level, err := logger.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	switch {
	case cfg.Dir != "":
		return logger.NewZerologFileLogger(service, cfg.Dir, level)
	case cfg.Console:
		return logger.NewConsoleLogger(out, service, level), nil
	default:
		return logger.NewZerologLogger(zerolog.New(out), service, level), nil
	}
}

func newDirectoryCache(ctx context.Context, cfg config.DirectoryConfig) (cacher.Cacher[session.Session], func(), error) {
	switch cfg.Backend {
	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})

		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
		}

		return cacher.NewRedisCacher[session.Session](client, redisNamespace), func() { _ = client.Close() }, nil
	default:
		return cacher.NewMemoryCacher[session.Session](cfg.TTL, time.Minute), func() {}, nil
	}
}
