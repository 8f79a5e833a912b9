// Package jobs holds the scheduled job implementations.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/arthasutra/backend/internal/contracts"
	"github.com/arthasutra/backend/internal/marketdata/yahoo"
	"github.com/arthasutra/backend/pkg/logger"
)

// defaultLookbackDays covers the 200-day average plus weekends and
// holidays.
const defaultLookbackDays = 400

// EODSyncJob backfills daily bars for every held security after the
// session closes. Saves are idempotent, so retries and overlapping
// lookback windows are harmless.
type EODSyncJob struct {
	yahoo        *yahoo.Client
	securities   contracts.SecurityRepository
	bars         contracts.PriceBarRepository
	logger       *logger.Logger
	lookbackDays int
}

func NewEODSyncJob(
	yahooClient *yahoo.Client,
	securities contracts.SecurityRepository,
	bars contracts.PriceBarRepository,
	log *logger.Logger,
) *EODSyncJob {
	return &EODSyncJob{
		yahoo:        yahooClient,
		securities:   securities,
		bars:         bars,
		logger:       log,
		lookbackDays: defaultLookbackDays,
	}
}

func (j *EODSyncJob) Name() string {
	return "eod_sync"
}

// Schedule runs on weekdays at 18:00 market time, well after the close.
func (j *EODSyncJob) Schedule() string {
	return "0 0 18 * * MON-FRI"
}

func (j *EODSyncJob) Run(ctx context.Context) error {
	secs, err := j.securities.ListHeld(ctx)
	if err != nil {
		return fmt.Errorf("list held securities: %w", err)
	}

	end := time.Now()
	start := end.AddDate(0, 0, -j.lookbackDays)

	var failed int
	var saved int
	for _, sec := range secs {
		fetched, err := j.yahoo.FetchDailyBars(ctx, sec.Symbol, sec.Exchange, start, end)
		if err != nil {
			j.logger.WithError(err).WithField("symbol", sec.Key()).Warn("EOD fetch failed")
			failed++
			continue
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
		if err := j.bars.SaveBatch(ctx, bars); err != nil {
			return fmt.Errorf("save bars for %s: %w", sec.Key(), err)
		}
		saved += len(bars)
	}

	j.logger.WithFields(map[string]interface{}{
		"securities": len(secs),
		"saved":      saved,
		"failed":     failed,
	}).Info("EOD sync finished")

	if failed > 0 && failed == len(secs) {
		return fmt.Errorf("eod sync: all %d fetches failed", failed)
	}
	return nil
}
