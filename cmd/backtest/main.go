package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	cli "github.com/urfave/cli/v3"

	"stock-advisor/internal/backtest"
	"stock-advisor/internal/bootstrap"
	"stock-advisor/internal/engine"
	"stock-advisor/internal/logger"
	"stock-advisor/internal/marketdata"
	"stock-advisor/internal/marketdata/marketdataobs"
)

func main() {
	cmd := &cli.Command{
		Name:                  "backtest",
		Usage:                 "Replay the advisor over a date range against a simulated portfolio",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "ticker",
				Aliases:  []string{"t"},
				Usage:    "Ticker symbol to simulate",
				Required: true,
				Sources:  cli.EnvVars("TICKER"),
			},
			&cli.StringFlag{
				Name:     "start-date",
				Usage:    "First simulated day (YYYY-MM-DD)",
				Required: true,
				Sources:  cli.EnvVars("START_DATE"),
			},
			&cli.StringFlag{
				Name:     "end-date",
				Usage:    "Last simulated day (YYYY-MM-DD)",
				Required: true,
				Sources:  cli.EnvVars("END_DATE"),
			},
			&cli.FloatFlag{
				Name:    "capital",
				Usage:   "Starting cash",
				Value:   100000,
				Sources: cli.EnvVars("INITIAL_CAPITAL"),
			},
			&cli.IntFlag{
				Name:    "news-count",
				Usage:   "Ticker news articles per simulated day",
				Value:   5,
				Sources: cli.EnvVars("NEWS_COUNT"),
			},
			&cli.StringFlag{
				Name:    "config",
				Usage:   "Path to the YAML config file",
				Value:   "config.yaml",
				Sources: cli.EnvVars("ADVISOR_CONFIG"),
			},
		},
		Action: runBacktest,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runBacktest(ctx context.Context, command *cli.Command) error {
	if err := bootstrap.Init(); err != nil {
		return err
	}
	defer bootstrap.Shutdown(context.Background())
	bootstrap.CompressOldLogs(ctx)

	cfg, err := bootstrap.LoadConfig(ctx, command.String("config"))
	if err != nil {
		return err
	}

	start, err := time.Parse("2006-01-02", command.String("start-date"))
	if err != nil {
		return fmt.Errorf("invalid start date: %w", err)
	}
	end, err := time.Parse("2006-01-02", command.String("end-date"))
	if err != nil {
		return fmt.Errorf("invalid end date: %w", err)
	}

	advisor, err := engine.NewFromConfig(cfg, nil)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to build engine", err)
		return err
	}
	prices, err := marketdata.NewPriceProvider(cfg)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to build price provider", err)
		return err
	}

	bt, err := backtest.New(advisor, marketdataobs.Wrap(prices), cfg, backtest.Params{
		Ticker:         strings.ToUpper(strings.TrimSpace(command.String("ticker"))),
		StartDate:      start,
		EndDate:        end,
		InitialCapital: command.Float("capital"),
		NewsCount:      command.Int("news-count"),
	})
	if err != nil {
		return err
	}

	result, err := bt.Run(ctx)
	if err != nil {
		return err
	}

	printResult(result)
	return nil
}

func printResult(res *backtest.Result) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tACTION\tQTY\tFILLED\tPRICE\tCASH\tSTOCK\tVALUE\tRETURN")
	degraded := false
	for _, d := range res.Days {
		action := string(d.Action)
		if d.Degraded {
			action += " *"
			degraded = true
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%.2f\t%.2f\t%d\t%.2f\t%+.2f%%\n",
			d.Date.Format("2006-01-02"), action, d.Quantity, d.Executed,
			d.Price, d.Cash, d.Stock, d.Value, d.Return*100)
	}
	w.Flush()
	if degraded {
		fmt.Println("* decision fell back to hold after retries")
	}

	p := res.Performance
	fmt.Println()
	fmt.Printf("Trading days:    %d\n", p.TradingDays)
	fmt.Printf("Initial capital: %.2f\n", p.InitialCapital)
	fmt.Printf("Final value:     %.2f\n", p.FinalValue)
	fmt.Printf("Total return:    %+.2f%%\n", p.TotalReturn*100)
	fmt.Printf("Sharpe ratio:    %.3f\n", p.SharpeRatio)
	fmt.Printf("Max drawdown:    %.2f%%\n", p.MaxDrawdown*100)
}
