package simulation

import (
	"math"
	"slices"

	"github.com/aristath/frontier/internal/domain"
)

// DefaultBuckets is the frontier granularity used when none is given.
const DefaultBuckets = 20

// ExtractFrontier approximates the efficient frontier: it splits the observed
// volatility range into equal-width half-open buckets [lo, lo+size), with
// lo = minVol + k*size, and keeps the highest return point of each non-empty
// bucket, ties going to the earlier point. The result is sorted by ascending
// volatility and has at most buckets entries.
//
// Membership is tested against those computed edges, so the point at the
// maximum volatility is kept only when rounding lifts the last upper edge
// above it. A point kept by two adjacent buckets appears once. When every
// point shares one volatility the whole population is a single bucket.
func ExtractFrontier(points []domain.PortfolioPoint, buckets int) []domain.PortfolioPoint {
	if len(points) == 0 {
		return []domain.PortfolioPoint{}
	}
	if buckets <= 0 {
		buckets = DefaultBuckets
	}

	minVol, maxVol := math.Inf(1), math.Inf(-1)
	for _, p := range points {
		minVol = math.Min(minVol, p.Volatility)
		maxVol = math.Max(maxVol, p.Volatility)
	}

	width := maxVol - minVol
	if width <= 0 || math.IsNaN(width) {
		best := points[0]
		for _, p := range points[1:] {
			if p.Return > best.Return {
				best = p
			}
		}
		return []domain.PortfolioPoint{best}
	}

	size := width / float64(buckets)
	kept := make([]*domain.PortfolioPoint, 0, buckets)
	for k := 0; k < buckets; k++ {
		// The conversion keeps the edge a separate multiply and add on
		// every platform.
		lo := minVol + float64(float64(k)*size)
		hi := lo + size

		var best *domain.PortfolioPoint
		for i := range points {
			p := &points[i]
			if p.Volatility < lo || p.Volatility >= hi {
				continue
			}
			if best == nil || p.Return > best.Return {
				best = p
			}
		}
		if best != nil && (len(kept) == 0 || kept[len(kept)-1] != best) {
			kept = append(kept, best)
		}
	}

	frontier := make([]domain.PortfolioPoint, len(kept))
	for i, p := range kept {
		frontier[i] = *p
	}
	slices.SortStableFunc(frontier, func(a, b domain.PortfolioPoint) int {
		switch {
		case a.Volatility < b.Volatility:
			return -1
		case a.Volatility > b.Volatility:
			return 1
		default:
			return 0
		}
	})
	return frontier
}

// MaxSharpe returns the point with the highest Sharpe ratio, ties going to the
// earlier point. It reports false for an empty population.
func MaxSharpe(points []domain.PortfolioPoint) (domain.PortfolioPoint, bool) {
	if len(points) == 0 {
		return domain.PortfolioPoint{}, false
	}
	best := points[0]
	for _, p := range points[1:] {
		if p.Sharpe > best.Sharpe {
			best = p
		}
	}
	return best, true
}

// MinVolatility returns the least volatile point, ties going to the earlier point.
func MinVolatility(points []domain.PortfolioPoint) (domain.PortfolioPoint, bool) {
	if len(points) == 0 {
		return domain.PortfolioPoint{}, false
	}
	best := points[0]
	for _, p := range points[1:] {
		if p.Volatility < best.Volatility {
			best = p
		}
	}
	return best, true
}

// Stats summarizes a population. Non-finite Sharpe values are left out of the
// Sharpe average.
func Stats(points []domain.PortfolioPoint) domain.PopulationStats {
	if len(points) == 0 {
		return domain.PopulationStats{}
	}

	stats := domain.PopulationStats{
		Count:         len(points),
		MinReturn:     math.Inf(1),
		MaxReturn:     math.Inf(-1),
		MinVolatility: math.Inf(1),
		MaxVolatility: math.Inf(-1),
	}

	var sumRet, sumVol, sumSharpe float64
	var sharpes int
	for _, p := range points {
		sumRet += p.Return
		sumVol += p.Volatility
		if !math.IsNaN(p.Sharpe) && !math.IsInf(p.Sharpe, 0) {
			sumSharpe += p.Sharpe
			sharpes++
		}
		stats.MinReturn = math.Min(stats.MinReturn, p.Return)
		stats.MaxReturn = math.Max(stats.MaxReturn, p.Return)
		stats.MinVolatility = math.Min(stats.MinVolatility, p.Volatility)
		stats.MaxVolatility = math.Max(stats.MaxVolatility, p.Volatility)
	}

	n := float64(len(points))
	stats.AvgReturn = sumRet / n
	stats.AvgVolatility = sumVol / n
	if sharpes > 0 {
		stats.AvgSharpe = sumSharpe / float64(sharpes)
	}
	return stats
}

// Selection bundles the reductions a client usually wants next to a run.
type Selection struct {
	Frontier      []domain.PortfolioPoint `json:"frontier"`
	MaxSharpe     *domain.PortfolioPoint  `json:"max_sharpe"`
	MinVolatility *domain.PortfolioPoint  `json:"min_volatility"`
	Stats         domain.PopulationStats  `json:"stats"`
}

// Select computes the frontier, default selections and population stats.
// Selections are nil for an empty population.
func Select(points []domain.PortfolioPoint, buckets int) Selection {
	sel := Selection{
		Frontier: ExtractFrontier(points, buckets),
		Stats:    Stats(points),
	}
	if p, ok := MaxSharpe(points); ok {
		sel.MaxSharpe = &p
	}
	if p, ok := MinVolatility(points); ok {
		sel.MinVolatility = &p
	}
	return sel
}
