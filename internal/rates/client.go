package rates

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/BumpBTC/bumpcore/internal/httpx"
	"github.com/BumpBTC/bumpcore/internal/metrics"
	"github.com/BumpBTC/bumpcore/internal/models"
)

// DefaultSymbols are the rate provider ids the wallet needs quotes for.
var DefaultSymbols = []string{
	string(models.CurrencyBitcoin),
	string(models.CurrencyLitecoin),
}

// Client fetches USD quotes from a CoinGecko-style simple-price endpoint.
// Rate fetches are read-only, so transport retries are enabled here unlike
// on the wallet gateway.
type Client struct {
	http    *httpx.Client
	symbols []string
	log     zerolog.Logger
}

// NewClient creates a rate provider client for the given base URL.
func NewClient(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	return &Client{
		http: httpx.New(
			httpx.WithBaseURL(baseURL),
			httpx.WithTimeout(timeout),
			httpx.WithRetries(2, 500*time.Millisecond),
		),
		symbols: DefaultSymbols,
		log:     log.With().Str("component", "rates_client").Logger(),
	}
}

// Fetch retrieves the current rate table. An empty or partially-empty
// response is an error; callers keep serving the previous table.
func (c *Client) Fetch(ctx context.Context) (models.ExchangeRateTable, error) {
	start := time.Now()

	resp, err := c.http.Get(ctx, "/simple/price", map[string]string{
		"ids":           strings.Join(c.symbols, ","),
		"vs_currencies": "usd",
	}, nil)
	if err != nil {
		metrics.RecordRateRefreshFailure()
		return nil, fmt.Errorf("rate fetch failed: %w", err)
	}

	var table models.ExchangeRateTable
	if err := resp.DecodeJSON(&table); err != nil {
		metrics.RecordRateRefreshFailure()
		return nil, fmt.Errorf("malformed rate response: %w", err)
	}

	for _, symbol := range c.symbols {
		if rate, ok := table[symbol]; !ok || rate.USD <= 0 {
			metrics.RecordRateRefreshFailure()
			return nil, fmt.Errorf("rate response missing usable quote for %s", symbol)
		}
	}

	metrics.RecordRateRefresh(time.Since(start).Seconds())
	return table, nil
}
