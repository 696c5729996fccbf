package simulation

import (
	"context"
	"math"
	"testing"

	"github.com/aristath/frontier/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func point(draw int, ret, vol, sharpe float64) domain.PortfolioPoint {
	return domain.PortfolioPoint{Draw: draw, Return: ret, Volatility: vol, Sharpe: sharpe}
}

func TestExtractFrontier_Empty(t *testing.T) {
	frontier := ExtractFrontier(nil, 20)
	assert.NotNil(t, frontier)
	assert.Empty(t, frontier)
}

func TestExtractFrontier_KeepsBestReturnPerBucket(t *testing.T) {
	points := []domain.PortfolioPoint{
		point(0, 0.05, 0.10, 0),
		point(1, 0.07, 0.12, 0), // bucket 0 winner
		point(2, 0.06, 0.25, 0),
		point(3, 0.09, 0.28, 0), // bucket 1 winner
		point(4, 0.20, 0.30, 0), // max volatility, outside the last half-open bucket
	}

	frontier := ExtractFrontier(points, 2)
	require.Len(t, frontier, 2)
	assert.Equal(t, 1, frontier[0].Draw)
	assert.Equal(t, 3, frontier[1].Draw)
}

func TestExtractFrontier_MaxVolatilityFollowsComputedEdges(t *testing.T) {
	points := []domain.PortfolioPoint{
		point(0, 0.05, 0.10, 0),
		point(1, 0.20, 0.48, 0),
		point(2, 0.30, 0.49, 0),
	}

	// With 20 buckets the last upper edge rounds to 0.49000000000000005.
	frontier := ExtractFrontier(points, 20)
	require.Len(t, frontier, 2)
	assert.Equal(t, 0, frontier[0].Draw)
	assert.Equal(t, 2, frontier[1].Draw)

	// With 3 buckets it is exactly 0.49 and the last point is left out.
	frontier = ExtractFrontier(points, 3)
	require.Len(t, frontier, 2)
	assert.Equal(t, 0, frontier[0].Draw)
	assert.Equal(t, 1, frontier[1].Draw)
}

func TestExtractFrontier_TiesGoToFirst(t *testing.T) {
	points := []domain.PortfolioPoint{
		point(0, 0.10, 0.10, 0),
		point(1, 0.10, 0.11, 0),
		point(2, 0.01, 0.50, 0),
	}

	frontier := ExtractFrontier(points, 1)
	require.Len(t, frontier, 1)
	assert.Equal(t, 0, frontier[0].Draw)
}

func TestExtractFrontier_DegenerateRange(t *testing.T) {
	points := []domain.PortfolioPoint{
		point(0, 0.10, 0.2, 0),
		point(1, 0.30, 0.2, 0),
		point(2, 0.30, 0.2, 0),
	}

	frontier := ExtractFrontier(points, 20)
	require.Len(t, frontier, 1)
	assert.Equal(t, 1, frontier[0].Draw)
}

func TestExtractFrontier_DefaultBuckets(t *testing.T) {
	points := make([]domain.PortfolioPoint, 200)
	for i := range points {
		points[i] = point(i, float64(i), float64(i), 0)
	}

	assert.Len(t, ExtractFrontier(points, 0), DefaultBuckets)
	assert.Len(t, ExtractFrontier(points, -3), DefaultBuckets)
}

func TestExtractFrontier_SortedAndBounded(t *testing.T) {
	sim := newTestSimulator(t, 4)
	result, err := sim.Run(context.Background(), threeAssetRequest(3000, 5))
	require.NoError(t, err)

	for _, buckets := range []int{1, 5, 20, 100} {
		frontier := ExtractFrontier(result.Points, buckets)
		assert.LessOrEqual(t, len(frontier), buckets)
		assert.NotEmpty(t, frontier)
		for i := 1; i < len(frontier); i++ {
			assert.Less(t, frontier[i-1].Volatility, frontier[i].Volatility)
		}
	}
}

func TestMaxSharpe(t *testing.T) {
	_, ok := MaxSharpe(nil)
	assert.False(t, ok)

	points := []domain.PortfolioPoint{
		point(0, 0, 0, 0.5),
		point(1, 0, 0, 1.2),
		point(2, 0, 0, 1.2),
		point(3, 0, 0, -1),
	}
	best, ok := MaxSharpe(points)
	require.True(t, ok)
	assert.Equal(t, 1, best.Draw)
}

func TestMinVolatility(t *testing.T) {
	_, ok := MinVolatility(nil)
	assert.False(t, ok)

	points := []domain.PortfolioPoint{
		point(0, 0, 0.3, 0),
		point(1, 0, 0.1, 0),
		point(2, 0, 0.1, 0),
	}
	best, ok := MinVolatility(points)
	require.True(t, ok)
	assert.Equal(t, 1, best.Draw)
}

func TestStats(t *testing.T) {
	assert.Equal(t, domain.PopulationStats{}, Stats(nil))

	points := []domain.PortfolioPoint{
		point(0, 0.10, 0.20, 1.0),
		point(1, 0.20, 0.10, math.NaN()),
		point(2, 0.30, 0.30, 2.0),
	}
	stats := Stats(points)

	assert.Equal(t, 3, stats.Count)
	assert.InDelta(t, 0.20, stats.AvgReturn, 1e-12)
	assert.InDelta(t, 0.20, stats.AvgVolatility, 1e-12)
	assert.InDelta(t, 1.5, stats.AvgSharpe, 1e-12)
	assert.Equal(t, 0.10, stats.MinReturn)
	assert.Equal(t, 0.30, stats.MaxReturn)
	assert.Equal(t, 0.10, stats.MinVolatility)
	assert.Equal(t, 0.30, stats.MaxVolatility)
}

func TestSelect(t *testing.T) {
	empty := Select(nil, 20)
	assert.Nil(t, empty.MaxSharpe)
	assert.Nil(t, empty.MinVolatility)
	assert.Empty(t, empty.Frontier)

	points := []domain.PortfolioPoint{
		point(0, 0.10, 0.20, 1.0),
		point(1, 0.20, 0.10, 3.0),
	}
	sel := Select(points, 20)
	require.NotNil(t, sel.MaxSharpe)
	require.NotNil(t, sel.MinVolatility)
	assert.Equal(t, 1, sel.MaxSharpe.Draw)
	assert.Equal(t, 1, sel.MinVolatility.Draw)
	assert.Len(t, sel.Frontier, 1)
}
