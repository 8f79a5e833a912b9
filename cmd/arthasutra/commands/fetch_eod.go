package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/arthasutra/backend/internal/contracts"
	"github.com/arthasutra/backend/internal/marketdata/yahoo"
	"github.com/arthasutra/backend/internal/store/postgres"
	"github.com/arthasutra/backend/pkg/config"
	"github.com/arthasutra/backend/pkg/database"
	"github.com/arthasutra/backend/pkg/httputil"
	"github.com/arthasutra/backend/pkg/logger"
)

var fetchEODCmd = &cobra.Command{
	Use:   "fetch-eod [symbols...]",
	Short: "Backfill EOD price history",
	Long: `Fetches daily OHLCV history for the given symbols and stores it.
Symbols take the "NSE:HDFCBANK" form; a bare symbol defaults to NSE.
Existing (security, date) rows are left untouched.

Example:
  go run ./cmd/arthasutra fetch-eod NSE:HDFCBANK BSE:500112 --start 2025-01-01 --end 2025-12-31`,
	Args: cobra.MinimumNArgs(1),
	RunE: runFetchEOD,
}

var (
	fetchStart string
	fetchEnd   string
)

func init() {
	rootCmd.AddCommand(fetchEODCmd)

	fetchEODCmd.Flags().StringVar(&fetchStart, "start", "", "range start, YYYY-MM-DD (required)")
	fetchEODCmd.Flags().StringVar(&fetchEnd, "end", "", "range end, YYYY-MM-DD (required)")
	fetchEODCmd.MarkFlagRequired("start")
	fetchEODCmd.MarkFlagRequired("end")
}

func runFetchEOD(cmd *cobra.Command, args []string) error {
	start, err := time.Parse("2006-01-02", fetchStart)
	if err != nil {
		return fmt.Errorf("invalid --start: %w", err)
	}
	end, err := time.Parse("2006-01-02", fetchEnd)
	if err != nil {
		return fmt.Errorf("invalid --end: %w", err)
	}
	if end.Before(start) {
		return fmt.Errorf("--end must not precede --start")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg)

	db, err := database.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	repos := postgres.NewRepos(db.Pool)
	yahooClient := yahoo.NewClient(httputil.New(log), cfg.Yahoo.BaseURL, log)

	ctx := context.Background()
	total := 0
	for _, token := range args {
		exchange, symbol := "NSE", strings.TrimSpace(token)
		if i := strings.Index(symbol, ":"); i >= 0 {
			exchange, symbol = symbol[:i], symbol[i+1:]
		}

		fetched, err := yahooClient.FetchDailyBars(ctx, symbol, exchange, start, end)
		if err != nil {
			return fmt.Errorf("fetch %s: %w", token, err)
		}

		sec, err := repos.Securities.GetBySymbolExchange(ctx, symbol, exchange)
		if err != nil {
			return err
		}
		if sec == nil {
			sec = &contracts.Security{Symbol: symbol, Exchange: exchange, Name: symbol}
			if err := repos.Securities.Save(ctx, sec); err != nil {
				return err
			}
		}

		bars := make([]*contracts.PriceBar, 0, len(fetched))
		for _, b := range fetched {
			bars = append(bars, &contracts.PriceBar{
				SecurityID: sec.ID,
				Date:       b.Date,
				Open:       b.Open,
				High:       b.High,
				Low:        b.Low,
				Close:      b.Close,
				Volume:     b.Volume,
			})
		}
		if err := repos.Bars.SaveBatch(ctx, bars); err != nil {
			return fmt.Errorf("save bars for %s: %w", token, err)
		}

		fmt.Printf("%s: %d bars\n", token, len(bars))
		total += len(bars)
	}

	fmt.Printf("Done, %d bars stored\n", total)
	return nil
}
