package marketdata

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/aristath/frontier/internal/domain"
	"github.com/aristath/frontier/pkg/formulas"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

var (
	// ErrNoPriceData is returned when no row survives cleaning.
	ErrNoPriceData = errors.New("no price data after cleaning")
	// ErrInsufficientHistory is returned when fewer than two returns remain.
	ErrInsufficientHistory = errors.New("insufficient price history")
)

// minRows is the smallest clean table that yields a sample covariance.
const minRows = 3

// Cleaning records what BuildMarketData did to the raw table.
type Cleaning struct {
	InputRows   int `json:"input_rows" msgpack:"input_rows"`
	DroppedRows int `json:"dropped_rows" msgpack:"dropped_rows"`
	FilledCells int `json:"filled_cells" msgpack:"filled_cells"`
}

// MarketData is the full statistics payload for a ticker set.
type MarketData struct {
	Tickers          []string                      `json:"tickers" msgpack:"tickers"`
	Period           string                        `json:"period" msgpack:"period"`
	MeanReturns      domain.MeanReturns            `json:"mean_returns" msgpack:"mean_returns"`
	CovMatrix        domain.CovarianceMatrix       `json:"cov_matrix" msgpack:"cov_matrix"`
	CorrMatrix       map[string]map[string]float64 `json:"corr_matrix" msgpack:"corr_matrix"`
	LastPrices       map[string]float64            `json:"last_prices" msgpack:"last_prices"`
	NormalizedPrices domain.PriceSeries            `json:"normalized_prices" msgpack:"normalized_prices"`
	RawPrices        domain.PriceSeries            `json:"raw_prices" msgpack:"raw_prices"`
	Cleaning         Cleaning                      `json:"cleaning" msgpack:"cleaning"`
}

// BuildMarketData aligns the price histories of tickers by date, forward-fills
// gaps, drops rows that are still incomplete (leading gaps) and derives
// annualized log-return statistics from what remains.
//
// Mean returns and covariance are scaled by 252. Covariance is the sample
// (n-1) estimate. Correlations undefined for a constant series are reported as 0.
func BuildMarketData(tickers []string, prices map[string][]DailyPrice) (*MarketData, error) {
	if _, err := domain.NewUniverse(tickers); err != nil {
		return nil, err
	}

	dates, table := alignByDate(tickers, prices)
	cleaning := Cleaning{InputRows: len(dates)}
	cleaning.FilledCells = forwardFill(table)

	keptDates := make([]string, 0, len(dates))
	kept := make([][]float64, 0, len(table))
	for i, row := range table {
		if complete(row) {
			keptDates = append(keptDates, dates[i])
			kept = append(kept, row)
		}
	}
	cleaning.DroppedRows = len(dates) - len(kept)

	if len(kept) == 0 {
		for _, t := range tickers {
			if len(prices[t]) == 0 {
				return nil, fmt.Errorf("%w: no prices for %s", ErrNoPriceData, t)
			}
		}
		return nil, ErrNoPriceData
	}
	if len(kept) < minRows {
		return nil, fmt.Errorf("%w: %d rows, need %d", ErrInsufficientHistory, len(kept), minRows)
	}

	n := len(tickers)
	returns := mat.NewDense(len(kept)-1, n, nil)
	mean := make(domain.MeanReturns, n)
	column := make([]float64, len(kept))
	for c, t := range tickers {
		for r := range kept {
			column[r] = kept[r][c]
		}
		lr := formulas.LogReturns(column)
		returns.SetCol(c, lr)
		mean[t] = formulas.Mean(lr) * formulas.TradingDaysPerYear
	}

	var cov, corr mat.SymDense
	stat.CovarianceMatrix(&cov, returns, nil)
	cov.ScaleSym(formulas.TradingDaysPerYear, &cov)
	stat.CorrelationMatrix(&corr, returns, nil)

	md := &MarketData{
		Tickers:          append([]string(nil), tickers...),
		MeanReturns:      mean,
		CovMatrix:        toNested(tickers, &cov),
		CorrMatrix:       toNested(tickers, &corr),
		LastPrices:       make(map[string]float64, n),
		NormalizedPrices: make(domain.PriceSeries, len(kept)),
		RawPrices:        make(domain.PriceSeries, len(kept)),
		Cleaning:         cleaning,
	}

	first, last := kept[0], kept[len(kept)-1]
	for c, t := range tickers {
		md.LastPrices[t] = last[c]
	}
	for r, row := range kept {
		raw := make(map[string]float64, n)
		norm := make(map[string]float64, n)
		for c, t := range tickers {
			raw[t] = row[c]
			norm[t] = row[c] / first[c]
		}
		md.RawPrices[r] = domain.PriceRow{Date: keptDates[r], Prices: raw}
		md.NormalizedPrices[r] = domain.PriceRow{Date: keptDates[r], Prices: norm}
	}

	return md, nil
}

// alignByDate builds a date-ascending table with one column per ticker; cells
// without a price are NaN.
func alignByDate(tickers []string, prices map[string][]DailyPrice) ([]string, [][]float64) {
	index := make(map[string]int)
	var dates []string
	for _, t := range tickers {
		for _, p := range prices[t] {
			if _, ok := index[p.Date]; !ok {
				index[p.Date] = 0
				dates = append(dates, p.Date)
			}
		}
	}
	sort.Strings(dates)
	for i, d := range dates {
		index[d] = i
	}

	table := make([][]float64, len(dates))
	for i := range table {
		row := make([]float64, len(tickers))
		for c := range row {
			row[c] = math.NaN()
		}
		table[i] = row
	}
	for c, t := range tickers {
		for _, p := range prices[t] {
			table[index[p.Date]][c] = p.Close
		}
	}
	return dates, table
}

// forwardFill replaces each NaN with the last finite value above it and
// returns how many cells it filled.
func forwardFill(table [][]float64) int {
	filled := 0
	for r := 1; r < len(table); r++ {
		for c, v := range table[r] {
			if math.IsNaN(v) && !math.IsNaN(table[r-1][c]) {
				table[r][c] = table[r-1][c]
				filled++
			}
		}
	}
	return filled
}

func complete(row []float64) bool {
	for _, v := range row {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func toNested(tickers []string, m *mat.SymDense) map[string]map[string]float64 {
	out := make(map[string]map[string]float64, len(tickers))
	for i, a := range tickers {
		row := make(map[string]float64, len(tickers))
		for j, b := range tickers {
			v := m.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				v = 0
			}
			row[b] = v
		}
		out[a] = row
	}
	return out
}
