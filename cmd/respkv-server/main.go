package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/basant256/respkv/internal/infra/buildinfo"
	"github.com/basant256/respkv/internal/infra/confloader"
	"github.com/basant256/respkv/internal/infra/shutdown"
	"github.com/basant256/respkv/internal/server/config"
	"github.com/basant256/respkv/internal/server/redisserver"
	"github.com/basant256/respkv/internal/storage/memory"
	"github.com/basant256/respkv/internal/telemetry/logger"
	"github.com/basant256/respkv/internal/telemetry/metric"
)

const shutdownTimeout = 10 * time.Second

// flagKeys maps command-line flags to configuration keys.
var flagKeys = map[string]string{
	"addr":         "server.redis.addr",
	"rate-limit":   "server.redis.rate_limit",
	"rate-burst":   "server.redis.rate_burst",
	"metrics-addr": "server.metrics.addr",
	"log-level":    "log.level",
	"log-format":   "log.format",
}

func main() {
	app := newApp(config.ParseArgs(os.Args[1:]))
	args := append([]string{os.Args[0]}, config.StripUnknownFlags(os.Args[1:], knownFlags(app))...)

	if err := app.Run(args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// newApp builds the CLI. rt holds the CONFIG GET settings, which are
// scanned from the raw arguments by config.ParseArgs and never come from
// the configuration file or the environment.
func newApp(rt *config.Runtime) *cli.App {
	return &cli.App{
		Name:            "respkv-server",
		Usage:           "in-memory key-value server speaking RESP",
		Version:         buildinfo.String(),
		UsageText:       "respkv-server [--dir value] [--dbfilename value] [options]",
		HideHelpCommand: true,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "path to YAML configuration file"},
			&cli.StringFlag{Name: "addr", Usage: "RESP listen address (default " + config.DefaultRedisAddr + ")"},
			&cli.IntFlag{Name: "rate-limit", Usage: "max commands per second per connection, 0 disables"},
			&cli.IntFlag{Name: "rate-burst", Usage: "rate limiter burst, defaults to --rate-limit"},
			&cli.StringFlag{Name: "metrics-addr", Usage: "Prometheus /metrics listen address, empty disables"},
			&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error"},
			&cli.StringFlag{Name: "log-format", Usage: "json or text"},
		},
		Action: func(c *cli.Context) error {
			return run(c, rt)
		},
	}
}

// knownFlags reports every flag name the app accepts and whether it takes
// a value.
func knownFlags(app *cli.App) map[string]bool {
	known := map[string]bool{"help": false, "h": false, "version": false, "v": false}
	for _, f := range app.Flags {
		_, isBool := f.(*cli.BoolFlag)
		for _, name := range f.Names() {
			known[name] = !isBool
		}
	}
	return known
}

// overrides collects the flags the user set, keyed by configuration key.
func overrides(c *cli.Context) map[string]any {
	out := make(map[string]any)
	for name, key := range flagKeys {
		if c.IsSet(name) {
			out[key] = c.Value(name)
		}
	}
	return out
}

// loadConfig layers defaults, the YAML file, RESPKV_* environment
// variables and flag overrides, then validates the result.
func loadConfig(path string, flags map[string]any) (*config.ServerConfig, error) {
	cfg := config.Default()

	loader := confloader.NewLoader(
		confloader.WithConfigFile(path),
		confloader.WithKeys(config.Keys()...),
	)
	if err := loader.Load(cfg); err != nil {
		return nil, err
	}
	if err := loader.LoadMap(flags); err != nil {
		return nil, err
	}
	if err := loader.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := config.Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func run(c *cli.Context, rt *config.Runtime) error {
	configPath := c.String("config")
	flags := overrides(c)

	cfg, err := loadConfig(configPath, flags)
	if err != nil {
		return err
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stderr,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	slog.SetDefault(log)

	_, dir, _ := rt.Get(config.SettingDir)
	_, dbFilename, _ := rt.Get(config.SettingDBFilename)

	info := buildinfo.Get()
	log.Info("starting respkv-server",
		"version", info.Version,
		"commit", info.Commit,
		"config", configPath,
		"dir", dir,
		"dbfilename", dbFilename)

	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()

	ks := memory.NewKeyspace()
	metrics := metric.NewRegistry()
	metrics.MustRegister(metric.NewCollector(ks))

	srv := redisserver.New(&redisserver.Config{
		Addr:      cfg.Server.Redis.Addr,
		ReadSize:  redisserver.DefaultReadSize,
		RateLimit: cfg.Server.Redis.RateLimit,
		RateBurst: cfg.Server.Redis.RateBurst,
	},
		redisserver.WithLogger(log),
		redisserver.WithMetrics(metrics),
		redisserver.WithKeyspace(ks),
		redisserver.WithRuntime(rt),
	)

	h := shutdown.NewHandler(shutdownTimeout)
	h.OnShutdown(func(ctx context.Context) error {
		log.Info("shutting down redis server")
		return srv.Shutdown(ctx)
	})

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(ctx)
		h.Trigger()
	}()

	if addr := cfg.Server.Metrics.Addr; addr != "" {
		ms := newMetricsServer(addr, metrics)
		h.OnShutdown(func(ctx context.Context) error {
			log.Info("shutting down metrics server")
			return ms.Shutdown(ctx)
		})
		go func() {
			log.Info("metrics server listening", "address", addr)
			if err := ms.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server error", "error", err)
			}
		}()
	}

	if configPath != "" {
		w, err := confloader.NewWatcher(configPath, confloader.WithWatcherLogger(log))
		if err != nil {
			log.Warn("config watch disabled", "error", err)
		} else {
			w.OnChange(func(path string) { reloadLogLevel(log, path, flags) })
			h.OnShutdown(func(context.Context) error { return w.Close() })
			go w.Run(ctx)
		}
	}

	if err := h.Wait(ctx); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}

	select {
	case err := <-serveErr:
		if err != nil {
			return err
		}
	default:
	}

	log.Info("server stopped")
	return nil
}

func newMetricsServer(addr string, metrics *metric.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// reloadLogLevel re-reads the configuration file and applies its log
// level. Other settings need a restart.
func reloadLogLevel(log *slog.Logger, path string, flags map[string]any) {
	cfg, err := loadConfig(path, flags)
	if err != nil {
		log.Warn("config reload failed", "file", path, "error", err)
		return
	}
	if cfg.Log.Level == logger.GetLevel() {
		return
	}
	if err := logger.SetLevel(cfg.Log.Level); err != nil {
		log.Warn("config reload failed", "file", path, "error", err)
		return
	}
	log.Info("log level changed", "level", cfg.Log.Level)
}
