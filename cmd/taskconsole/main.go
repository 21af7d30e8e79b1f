package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/Joseda-hg/taskconsole/internal/api"
	"github.com/Joseda-hg/taskconsole/internal/cache"
	"github.com/Joseda-hg/taskconsole/internal/cli"
	"github.com/Joseda-hg/taskconsole/internal/config"
	"github.com/Joseda-hg/taskconsole/internal/db"
	"github.com/Joseda-hg/taskconsole/internal/exitcode"
	"github.com/Joseda-hg/taskconsole/internal/logging"
	"github.com/Joseda-hg/taskconsole/internal/tui"
	"github.com/Joseda-hg/taskconsole/internal/web"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPathFlag := flag.String("config", "", "config file path")
	apiFlag := flag.String("api", "", "task backend base URL")
	dbPathFlag := flag.String("db", "", "sqlite db path for the built-in backend")
	serveFlag := flag.Bool("serve", false, "also run the built-in backend")
	serveOnlyFlag := flag.Bool("serve-only", false, "run the built-in backend only")
	portFlag := flag.Int("port", 0, "built-in backend port")
	redisFlag := flag.String("redis", "", "redis URL for the task list cache")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	cfgPath, err := resolveConfigPath(*configPathFlag)
	if err != nil {
		return configFailure(err)
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return configFailure(err)
	}

	if *apiFlag != "" {
		cfg.APIURL = *apiFlag
	}
	if *dbPathFlag != "" {
		cfg.DBPath = *dbPathFlag
	}
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(filepath.Dir(cfgPath), "taskconsole.db")
	}
	if cfg.LogPath == "" {
		cfg.LogPath = filepath.Join(filepath.Dir(cfgPath), "taskconsole.log")
	}
	if *serveFlag || *serveOnlyFlag {
		cfg.ServeEnabled = true
	}
	if *portFlag != 0 {
		cfg.ServePort = *portFlag
	}
	if cfg.ServePort == 0 {
		cfg.ServePort = config.DefaultServePort
	}
	if *redisFlag != "" {
		cfg.RedisURL = *redisFlag
	}

	if err := config.Save(cfgPath, cfg); err != nil {
		return configFailure(err)
	}
	cfg = config.ApplyEnv(cfg, os.Getenv)
	if *apiFlag == "" && os.Getenv(config.EnvAPIURL) == "" && cfg.ServeEnabled {
		cfg.APIURL = cfg.LocalAPIURL()
	}

	timeout, err := cfg.Timeout()
	if err != nil {
		return configFailure(err)
	}

	args := flag.Args()
	lineMode := len(args) > 0 && cli.IsCommand(args[0])

	var log *logrus.Logger
	if lineMode || *serveOnlyFlag {
		log, err = logging.New(os.Stderr, cfg.LogLevel)
	} else {
		var closer io.Closer
		log, closer, err = logging.OpenFile(cfg.LogPath, cfg.LogLevel)
		if closer != nil {
			defer closer.Close()
		}
	}
	if err != nil {
		return configFailure(err)
	}

	if cfg.ServeEnabled {
		server, cleanup, err := newServer(ctx, cfg, log)
		if err != nil {
			log.WithError(err).Error("start backend failed")
			return exitcode.BackendError
		}
		defer cleanup()

		addr := fmt.Sprintf(":%d", cfg.ServePort)
		if *serveOnlyFlag {
			if err := server.ListenAndServe(ctx, addr); err != nil {
				log.WithError(err).Error("backend stopped")
				return exitcode.BackendError
			}
			return exitcode.Success
		}
		go func() {
			if err := server.ListenAndServe(ctx, addr); err != nil {
				log.WithError(err).Error("backend stopped")
			}
		}()
	}

	client := api.New(cfg.APIURL, api.WithTimeout(timeout), api.WithLogger(log))

	if len(args) > 0 {
		if !lineMode {
			fmt.Fprintf(os.Stderr, "error: unknown command: %s\n", args[0])
			return exitcode.UserError
		}
		return cli.NewRunner(client, os.Stdin, os.Stdout, os.Stderr, log).Run(ctx, args)
	}

	log.WithField("api_url", cfg.APIURL).Info("console starting")
	if err := tui.Run(ctx, client, tui.Options{APIURL: client.BaseURL(), Log: log}); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitcode.UserError
	}
	return exitcode.Success
}

// newServer opens the sqlite store and, when a redis URL is configured,
// puts the task list cache in front of it.
func newServer(ctx context.Context, cfg config.Config, log *logrus.Logger) (*web.Server, func(), error) {
	if err := config.EnsureDir(cfg.DBPath); err != nil {
		return nil, nil, err
	}
	sqlDB, err := db.Open(cfg.DBPath)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() { _ = sqlDB.Close() }

	var store web.Store = db.NewStore(sqlDB)
	if cfg.RedisURL != "" {
		ttl, err := cfg.CacheExpiry()
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		client, err := cache.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			// The backend still works without the cache.
			log.WithError(err).Warn("redis unavailable, serving without cache")
		} else {
			store = cache.New(db.NewStore(sqlDB), client, ttl, log)
			cleanup = func() {
				_ = client.Close()
				_ = sqlDB.Close()
			}
		}
	}

	server := web.NewServer(store,
		web.WithAllowedOrigins(cfg.AllowedOrigins),
		web.WithLogger(log),
	)
	return server, cleanup, nil
}

func resolveConfigPath(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	return config.DefaultConfigPath()
}

func configFailure(err error) int {
	fmt.Fprintf(os.Stderr, "error: config: %v\n", err)
	return exitcode.ConfigError
}
