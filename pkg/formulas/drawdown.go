package formulas

// DrawdownSeries returns the drawdown of every value from its running peak as a
// non-positive fraction. The peak starts at the first value and is updated with
// the current value before that value's drawdown is taken, so a new high always
// reports exactly 0. A non-positive peak yields 0.
func DrawdownSeries(values []float64) []float64 {
	if len(values) == 0 {
		return []float64{}
	}

	drawdowns := make([]float64, len(values))
	peak := values[0]
	for i, v := range values {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			dd := (v - peak) / peak
			if dd < 0 {
				drawdowns[i] = dd
			}
		}
	}
	return drawdowns
}

// MaxDrawdown returns the most negative drawdown of the series (0 when the
// series never falls below its running peak).
func MaxDrawdown(values []float64) float64 {
	maxDD := 0.0
	for _, dd := range DrawdownSeries(values) {
		if dd < maxDD {
			maxDD = dd
		}
	}
	return maxDD
}
