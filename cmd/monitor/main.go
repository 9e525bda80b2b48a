package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	cli "github.com/urfave/cli/v3"

	"stock-advisor/internal/bootstrap"
	"stock-advisor/internal/engine"
	"stock-advisor/internal/events"
	"stock-advisor/internal/logger"
	"stock-advisor/internal/monitor"
	"stock-advisor/internal/runstore"
)

func main() {
	cmd := &cli.Command{
		Name:                  "monitor",
		Usage:                 "Serve run history and trigger analysis runs over HTTP",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to listen on (overrides monitor.port)",
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:    "store",
				Usage:   "Run store backend, memory or redis (overrides monitor.store)",
				Sources: cli.EnvVars("MONITOR_STORE"),
			},
			&cli.StringFlag{
				Name:    "redis-addr",
				Usage:   "Redis address for the run store (overrides monitor.redis_addr)",
				Sources: cli.EnvVars("REDIS_ADDR"),
			},
			&cli.StringFlag{
				Name:    "config",
				Usage:   "Path to the YAML config file",
				Value:   "config.yaml",
				Sources: cli.EnvVars("ADVISOR_CONFIG"),
			},
		},
		Action: runMonitor,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runMonitor(ctx context.Context, command *cli.Command) error {
	if err := bootstrap.Init(); err != nil {
		return err
	}
	defer bootstrap.Shutdown(context.Background())
	bootstrap.CompressOldLogs(ctx)

	cfg, err := bootstrap.LoadConfig(ctx, command.String("config"))
	if err != nil {
		return err
	}
	if p := command.Int("port"); p > 0 {
		cfg.Monitor.Port = p
	}
	if v := command.String("store"); v != "" {
		cfg.Monitor.Store = v
	}
	if v := command.String("redis-addr"); v != "" {
		cfg.Monitor.RedisAddr = v
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bus := events.NewBus()
	defer bus.Close()

	st, err := runstore.New(ctx, cfg)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to open run store", err)
		return err
	}
	defer st.Close()

	if err := monitor.Consume(ctx, bus, st); err != nil {
		return err
	}

	// A broken engine leaves the monitor read-only rather than down.
	advisor, err := engine.NewFromConfig(cfg, bus)
	if err != nil {
		logger.Warn(ctx, "Engine unavailable, POST /runs disabled", "error", err)
		advisor = nil
	}

	srv := monitor.NewServer(st, advisor)
	logger.Info(ctx, "Monitor listening",
		"port", cfg.Monitor.Port,
		"store", cfg.Monitor.Store,
	)
	return srv.Start(ctx, cfg.Monitor.Port)
}
