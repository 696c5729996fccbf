package marketdata

import (
	"math"
)

// AuditReport summarizes the lineage of a MarketData payload.
type AuditReport struct {
	Rows        int    `json:"rows"`
	Tickers     int    `json:"tickers"`
	DataPoints  int    `json:"data_points"`
	FirstDate   string `json:"first_date"`
	LastDate    string `json:"last_date"`
	NonFinite   int    `json:"non_finite"`
	InputRows   int    `json:"input_rows"`
	DroppedRows int    `json:"dropped_rows"`
	FilledCells int    `json:"filled_cells"`
}

// Audit counts rows and cells of the raw price table and reports any
// non-finite or missing cell.
func Audit(md *MarketData) AuditReport {
	if md == nil {
		return AuditReport{}
	}

	report := AuditReport{
		Rows:        len(md.RawPrices),
		Tickers:     len(md.Tickers),
		DataPoints:  len(md.RawPrices) * len(md.Tickers),
		InputRows:   md.Cleaning.InputRows,
		DroppedRows: md.Cleaning.DroppedRows,
		FilledCells: md.Cleaning.FilledCells,
	}
	if report.Rows > 0 {
		report.FirstDate = md.RawPrices[0].Date
		report.LastDate = md.RawPrices[report.Rows-1].Date
	}

	for _, row := range md.RawPrices {
		for _, t := range md.Tickers {
			v, ok := row.Prices[t]
			if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
				report.NonFinite++
			}
		}
	}
	return report
}
