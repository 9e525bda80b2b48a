package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"

	"stock-advisor/internal/bootstrap"
	"stock-advisor/internal/declog"
	"stock-advisor/internal/engine"
	"stock-advisor/internal/logger"
	"stock-advisor/internal/types"
)

func main() {
	cmd := &cli.Command{
		Name:                  "advisor",
		Usage:                 "Run one multi-agent stock analysis and print the decision",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "ticker",
				Aliases:  []string{"t"},
				Usage:    "Ticker symbol to analyze",
				Required: true,
				Sources:  cli.EnvVars("TICKER"),
			},
			&cli.StringFlag{
				Name:    "start-date",
				Usage:   "Analysis window start (YYYY-MM-DD, defaults to a year before the end)",
				Sources: cli.EnvVars("START_DATE"),
			},
			&cli.StringFlag{
				Name:    "end-date",
				Usage:   "Analysis window end (YYYY-MM-DD, defaults to yesterday)",
				Sources: cli.EnvVars("END_DATE"),
			},
			&cli.FloatFlag{
				Name:    "cash",
				Usage:   "Available cash in the portfolio",
				Value:   100000,
				Sources: cli.EnvVars("PORTFOLIO_CASH"),
			},
			&cli.IntFlag{
				Name:    "stock",
				Usage:   "Shares of the ticker already held",
				Sources: cli.EnvVars("PORTFOLIO_STOCK"),
			},
			&cli.IntFlag{
				Name:    "news-count",
				Usage:   "Ticker news articles to feed the agents (config default when 0)",
				Sources: cli.EnvVars("NEWS_COUNT"),
			},
			&cli.StringFlag{
				Name:    "config",
				Usage:   "Path to the YAML config file",
				Value:   "config.yaml",
				Sources: cli.EnvVars("ADVISOR_CONFIG"),
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Log full agent reasoning",
				Sources: cli.EnvVars("ADVISOR_VERBOSE"),
			},
		},
		Action: runOnce,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runOnce(ctx context.Context, command *cli.Command) error {
	if err := bootstrap.Init(); err != nil {
		return err
	}
	defer bootstrap.Shutdown(context.Background())
	bootstrap.CompressOldLogs(ctx)

	cfg, err := bootstrap.LoadConfig(ctx, command.String("config"))
	if err != nil {
		return err
	}

	start, err := parseDate(command.String("start-date"))
	if err != nil {
		return fmt.Errorf("invalid start date: %w", err)
	}
	end, err := parseDate(command.String("end-date"))
	if err != nil {
		return fmt.Errorf("invalid end date: %w", err)
	}

	advisor, err := engine.NewFromConfig(cfg, nil)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to build engine", err)
		return err
	}

	req := types.RunRequest{
		RunID:     uuid.NewString(),
		Ticker:    strings.ToUpper(strings.TrimSpace(command.String("ticker"))),
		StartDate: start,
		EndDate:   end,
		Portfolio: types.Portfolio{
			Cash:  command.Float("cash"),
			Stock: command.Int("stock"),
		},
		NewsCount: command.Int("news-count"),
		Verbose:   command.Bool("verbose"),
	}

	decision, err := advisor.Run(ctx, req)
	if err != nil {
		return err
	}

	if err := declog.Append(declog.FromDecision(req.RunID, req.Ticker, decision)); err != nil {
		logger.Warn(ctx, "Failed to append decision log", "error", err)
	}

	b, err := json.MarshalIndent(decision, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}

// parseDate accepts YYYY-MM-DD and maps an empty flag to the zero time,
// which the engine replaces with its own window defaults.
func parseDate(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	return time.Parse("2006-01-02", v)
}
