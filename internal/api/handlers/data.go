package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/arthasutra/backend/internal/contracts"
	"github.com/arthasutra/backend/internal/importer"
	"github.com/arthasutra/backend/internal/marketdata/yahoo"
	"github.com/arthasutra/backend/pkg/logger"
)

// DataHandler handles price-data ingestion endpoints.
type DataHandler struct {
	importer   *importer.Service
	yahoo      *yahoo.Client
	securities contracts.SecurityRepository
	bars       contracts.PriceBarRepository
	logger     *logger.Logger
}

func NewDataHandler(
	importerSvc *importer.Service,
	yahooClient *yahoo.Client,
	securities contracts.SecurityRepository,
	bars contracts.PriceBarRepository,
	log *logger.Logger,
) *DataHandler {
	return &DataHandler{
		importer:   importerSvc,
		yahoo:      yahooClient,
		securities: securities,
		bars:       bars,
		logger:     log,
	}
}

// ImportPricesCSV handles POST /data/prices-eod/import-csv.
func (h *DataHandler) ImportPricesCSV(w http.ResponseWriter, r *http.Request) {
	body, err := uploadedFile(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Missing CSV payload")
		return
	}
	defer body.Close()

	rows, err := importer.ParseEODCSV(body)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Malformed CSV: "+err.Error())
		return
	}

	count, err := h.importer.ApplyEOD(r.Context(), rows)
	if err != nil {
		h.logger.WithError(err).Error("Failed to apply EOD import")
		respondError(w, http.StatusInternalServerError, "Failed to import prices")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"rows":   count,
	})
}

// FetchPrices handles POST /data/prices-eod/fetch. Query parameters:
// symbols (comma separated, "NSE:HDFCBANK" or bare symbol), start and end
// (both YYYY-MM-DD).
func (h *DataHandler) FetchPrices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	symbols := strings.TrimSpace(q.Get("symbols"))
	if symbols == "" {
		respondError(w, http.StatusBadRequest, "symbols is required")
		return
	}
	start, err := time.Parse("2006-01-02", q.Get("start"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "start must be YYYY-MM-DD")
		return
	}
	end, err := time.Parse("2006-01-02", q.Get("end"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "end must be YYYY-MM-DD")
		return
	}
	if end.Before(start) {
		respondError(w, http.StatusBadRequest, "end must not precede start")
		return
	}

	ctx := r.Context()
	total := 0
	for _, token := range strings.Split(symbols, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}

		exchange, symbol := "NSE", token
		if i := strings.Index(token, ":"); i >= 0 {
			exchange, symbol = token[:i], token[i+1:]
		}

		n, err := h.fetchSymbol(ctx, symbol, exchange, start, end)
		if err != nil {
			h.logger.WithError(err).WithField("symbol", token).Error("EOD fetch failed")
			respondError(w, http.StatusBadGateway, fmt.Sprintf("Fetch failed for %s", token))
			return
		}
		total += n
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"rows":   total,
	})
}

func (h *DataHandler) fetchSymbol(ctx context.Context, symbol, exchange string, start, end time.Time) (int, error) {
	fetched, err := h.yahoo.FetchDailyBars(ctx, symbol, exchange, start, end)
	if err != nil {
		return 0, err
	}

	sec, err := h.securities.GetBySymbolExchange(ctx, symbol, exchange)
	if err != nil {
		return 0, err
	}
	if sec == nil {
		sec = &contracts.Security{Symbol: symbol, Exchange: exchange, Name: symbol}
		if err := h.securities.Save(ctx, sec); err != nil {
			return 0, err
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
	if err := h.bars.SaveBatch(ctx, bars); err != nil {
		return 0, err
	}
	return len(bars), nil
}
