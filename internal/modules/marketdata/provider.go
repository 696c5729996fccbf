package marketdata

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aristath/frontier/internal/utils"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// DefaultPeriod is the lookback used when a request names none.
const DefaultPeriod = "1y"

const slowLoad = 5 * time.Second

// ErrInvalidPeriod is returned for an unknown lookback period.
var ErrInvalidPeriod = errors.New("invalid period")

// periodStarts maps a lookback period to the first date it covers. "max" has
// no lower bound.
var periodStarts = map[string]func(time.Time) time.Time{
	"1mo": func(t time.Time) time.Time { return t.AddDate(0, -1, 0) },
	"3mo": func(t time.Time) time.Time { return t.AddDate(0, -3, 0) },
	"6mo": func(t time.Time) time.Time { return t.AddDate(0, -6, 0) },
	"1y":  func(t time.Time) time.Time { return t.AddDate(-1, 0, 0) },
	"2y":  func(t time.Time) time.Time { return t.AddDate(-2, 0, 0) },
	"5y":  func(t time.Time) time.Time { return t.AddDate(-5, 0, 0) },
	"10y": func(t time.Time) time.Time { return t.AddDate(-10, 0, 0) },
	"max": nil,
}

// Provider serves MarketData for ticker sets out of the price history, caching
// computed payloads and coalescing identical concurrent loads.
type Provider struct {
	history *HistoryDB
	cache   *StatsCache
	ttl     time.Duration
	group   singleflight.Group
	now     func() time.Time
	log     zerolog.Logger
}

// NewProvider creates a new provider. A nil cache or non-positive ttl disables caching.
func NewProvider(history *HistoryDB, cache *StatsCache, ttl time.Duration, log zerolog.Logger) *Provider {
	return &Provider{
		history: history,
		cache:   cache,
		ttl:     ttl,
		now:     time.Now,
		log:     log.With().Str("component", "market_provider").Logger(),
	}
}

// periodStart returns the first date of period, or "" for unbounded history.
func (p *Provider) periodStart(period string) (string, error) {
	start, ok := periodStarts[period]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidPeriod, period)
	}
	if start == nil {
		return "", nil
	}
	return start(p.now().UTC()).Format(DateLayout), nil
}

// Load returns statistics for tickers over period, in the given ticker order.
// The returned value is shared between concurrent callers and must not be
// modified.
func (p *Provider) Load(ctx context.Context, tickers []string, period string) (*MarketData, error) {
	if period == "" {
		period = DefaultPeriod
	}
	from, err := p.periodStart(period)
	if err != nil {
		return nil, err
	}

	cleaned := make([]string, len(tickers))
	for i, t := range tickers {
		cleaned[i] = strings.TrimSpace(t)
	}
	key := cacheKey(cleaned, period)

	// The load outlives any single caller so that one disconnect does not
	// fail the others waiting on it.
	loadCtx := context.WithoutCancel(ctx)
	result, err, shared := p.group.Do(key, func() (interface{}, error) {
		return p.load(loadCtx, key, cleaned, period, from)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		p.log.Debug().Str("key", key[:8]).Msg("Coalesced market data load")
	}
	return result.(*MarketData), nil
}

func (p *Provider) load(ctx context.Context, key string, tickers []string, period, from string) (*MarketData, error) {
	defer utils.OperationTimer("market_data_load", slowLoad, p.log)()

	if p.caching() {
		md, ok, err := p.cache.Get(ctx, key)
		if err != nil {
			p.log.Warn().Err(err).Msg("Cache read failed, recomputing")
		} else if ok {
			p.log.Debug().
				Int("num_tickers", len(tickers)).
				Str("period", period).
				Msg("Using cached market data")
			return md, nil
		}
	}

	prices, err := p.history.GetPrices(ctx, tickers, from)
	if err != nil {
		return nil, err
	}

	md, err := BuildMarketData(tickers, prices)
	if err != nil {
		return nil, err
	}
	md.Period = period

	if p.caching() {
		if err := p.cache.Put(ctx, key, md, p.ttl); err != nil {
			p.log.Warn().Err(err).Msg("Cache write failed")
		}
	}

	p.log.Info().
		Int("num_tickers", len(tickers)).
		Str("period", period).
		Int("rows", len(md.RawPrices)).
		Msg("Computed market data")

	return md, nil
}

func (p *Provider) caching() bool {
	return p.cache != nil && p.ttl > 0
}

// IngestPrices stores prices for a ticker and drops cached statistics, which
// may now be stale.
func (p *Provider) IngestPrices(ctx context.Context, ticker string, prices []DailyPrice) error {
	if err := p.history.UpsertPrices(ctx, ticker, prices); err != nil {
		return err
	}
	if p.cache != nil {
		if err := p.cache.Clear(ctx); err != nil {
			p.log.Warn().Err(err).Msg("Failed to invalidate market data cache")
		}
	}
	return nil
}

// Tickers lists the tickers with stored history.
func (p *Provider) Tickers(ctx context.Context) ([]string, error) {
	return p.history.Tickers(ctx)
}
