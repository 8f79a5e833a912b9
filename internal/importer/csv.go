// Package importer ingests holdings and EOD price history from CSV and
// applies them to the repositories.
package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// HoldingRow is one parsed holdings CSV line.
type HoldingRow struct {
	Symbol   string
	Exchange string
	Qty      float64
	AvgPrice float64
	Sector   string
}

// EODRow is one parsed EOD price CSV line.
type EODRow struct {
	Symbol   string
	Exchange string
	Date     time.Time
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   *float64
}

// header maps lowercased column aliases to canonical names so exports from
// different brokers parse the same way.
var holdingAliases = map[string][]string{
	"symbol":    {"symbol", "Symbol"},
	"exchange":  {"exchange", "Exchange"},
	"qty":       {"qty", "quantity", "Quantity"},
	"avg_price": {"avg_price", "avgPrice", "average_price"},
	"sector":    {"sector", "Sector"},
}

var eodAliases = map[string][]string{
	"symbol":   {"symbol", "Symbol"},
	"exchange": {"exchange", "Exchange"},
	"date":     {"date", "Date"},
	"open":     {"open", "Open"},
	"high":     {"high", "High"},
	"low":      {"low", "Low"},
	"close":    {"close", "Close"},
	"volume":   {"volume", "Volume"},
}

type record map[string]string

func readRecords(r io.Reader) ([]record, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	var out []record
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row: %w", err)
		}
		rec := make(record, len(header))
		for i, col := range header {
			if i < len(row) {
				rec[strings.TrimSpace(col)] = row[i]
			}
		}
		out = append(out, rec)
	}
	return out, nil
}

// get returns the first non-empty value among the aliases of the field.
func (r record) get(aliases map[string][]string, field string) string {
	for _, key := range aliases[field] {
		if v := strings.TrimSpace(r[key]); v != "" {
			return v
		}
	}
	return ""
}

// splitExchangeSymbol handles the combined "NSE:INFY" form. Without a colon
// the exchange comes back empty.
func splitExchangeSymbol(value string) (exchange, symbol string) {
	if i := strings.Index(value, ":"); i >= 0 {
		return strings.TrimSpace(value[:i]), strings.TrimSpace(value[i+1:])
	}
	return "", strings.TrimSpace(value)
}

func parseFloat(s string) float64 {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// ParseHoldingsCSV reads a holdings snapshot export. Rows without a symbol
// are skipped; a missing exchange defaults to NSE.
func ParseHoldingsCSV(r io.Reader) ([]HoldingRow, error) {
	records, err := readRecords(r)
	if err != nil {
		return nil, err
	}

	var rows []HoldingRow
	for _, rec := range records {
		symbol := rec.get(holdingAliases, "symbol")
		if symbol == "" {
			continue
		}
		exchange := rec.get(holdingAliases, "exchange")
		if exchange == "" {
			exchange, symbol = splitExchangeSymbol(symbol)
		}
		if exchange == "" {
			exchange = "NSE"
		}

		rows = append(rows, HoldingRow{
			Symbol:   symbol,
			Exchange: exchange,
			Qty:      parseFloat(rec.get(holdingAliases, "qty")),
			AvgPrice: parseFloat(rec.get(holdingAliases, "avg_price")),
			Sector:   rec.get(holdingAliases, "sector"),
		})
	}
	return rows, nil
}

// ParseEODCSV reads daily OHLCV history. Rows missing a symbol or a
// parseable ISO date are skipped; a missing exchange defaults to NSE.
func ParseEODCSV(r io.Reader) ([]EODRow, error) {
	records, err := readRecords(r)
	if err != nil {
		return nil, err
	}

	var rows []EODRow
	for _, rec := range records {
		symbol := rec.get(eodAliases, "symbol")
		dateStr := rec.get(eodAliases, "date")
		if symbol == "" || dateStr == "" {
			continue
		}
		date, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			continue
		}
		exchange := rec.get(eodAliases, "exchange")
		if exchange == "" {
			exchange = "NSE"
		}

		row := EODRow{
			Symbol:   symbol,
			Exchange: exchange,
			Date:     date,
			Open:     parseFloat(rec.get(eodAliases, "open")),
			High:     parseFloat(rec.get(eodAliases, "high")),
			Low:      parseFloat(rec.get(eodAliases, "low")),
			Close:    parseFloat(rec.get(eodAliases, "close")),
		}
		if v := rec.get(eodAliases, "volume"); v != "" {
			vol := parseFloat(v)
			row.Volume = &vol
		}
		rows = append(rows, row)
	}
	return rows, nil
}
