package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// DateKey is the reserved record key carrying the row date.
const DateKey = "Date"

// PriceRow is one date of a historical price table. On the wire it is a flat
// record {"Date": "...", "<ticker>": price, ...}.
type PriceRow struct {
	Date   string
	Prices map[string]float64
}

// Price returns the price of ticker on this row and whether it is present.
func (r PriceRow) Price(ticker string) (float64, bool) {
	v, ok := r.Prices[ticker]
	return v, ok
}

// MarshalJSON flattens the row into the record shape.
func (r PriceRow) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(r.Prices)+1)
	for t, v := range r.Prices {
		m[t] = v
	}
	m[DateKey] = r.Date
	return json.Marshal(m)
}

// UnmarshalJSON reads the record shape. Null prices are treated as absent.
func (r *PriceRow) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	row := PriceRow{Prices: make(map[string]float64, len(raw))}
	for key, value := range raw {
		if key == DateKey {
			if err := json.Unmarshal(value, &row.Date); err != nil {
				return fmt.Errorf("decode %s: %w", DateKey, err)
			}
			continue
		}
		if bytes.Equal(bytes.TrimSpace(value), []byte("null")) {
			continue
		}
		var price float64
		if err := json.Unmarshal(value, &price); err != nil {
			return fmt.Errorf("decode price of %s: %w", key, err)
		}
		row.Prices[key] = price
	}

	*r = row
	return nil
}

// PriceSeries is a date-ascending table of prices, rebased to 1.0 at the first
// row when used for backtests.
type PriceSeries []PriceRow

// Dates returns the row dates in order.
func (s PriceSeries) Dates() []string {
	out := make([]string, len(s))
	for i, r := range s {
		out[i] = r.Date
	}
	return out
}

// Validate checks the series against the tickers weights actually allocate to.
// Lenient mode accepts gaps and ordering as delivered.
func (s PriceSeries) Validate(weights Weights, mode ValidationMode) error {
	if !mode.Strict() {
		return nil
	}
	for i, row := range s {
		if i > 0 && row.Date < s[i-1].Date {
			return fmt.Errorf("%w: %s after %s", ErrUnorderedSeries, row.Date, s[i-1].Date)
		}
		for t, w := range weights {
			if w == 0 {
				continue
			}
			v, ok := row.Prices[t]
			if !ok {
				return fmt.Errorf("%w: %s on %s", ErrMissingPrice, t, row.Date)
			}
			if !isFinite(v) {
				return fmt.Errorf("%w: price of %s on %s", ErrNonFiniteInput, t, row.Date)
			}
		}
	}
	return nil
}
