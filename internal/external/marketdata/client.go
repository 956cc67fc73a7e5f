package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/wonny/overnight/internal/contracts"
	"github.com/wonny/overnight/internal/metrics"
	"github.com/wonny/overnight/pkg/config"
	"github.com/wonny/overnight/pkg/httputil"
	"github.com/wonny/overnight/pkg/logger"
	"github.com/wonny/overnight/pkg/redis"
)

// Client fetches daily OHLC quotes from the chart endpoint. It implements
// contracts.MarketData: any failure for a ticker/date, timeouts included,
// surfaces as ErrDataUnavailable so the tracker can leave that signal
// PENDING and move on.
type Client struct {
	httpClient  *httputil.Client
	baseURL     string
	logger      *logger.Logger
	rateLimiter *redis.RateLimiter
	rateCfg     redis.RateLimitConfig
	metrics     *metrics.Metrics
}

// New creates a market data client.
func New(cfg *config.Config, log *logger.Logger, limiter *redis.RateLimiter, m *metrics.Metrics) *Client {
	httpClient := httputil.New(log, cfg.MarketData.Timeout).
		WithRateLimit(cfg.MarketData.RatePerSec, 2)

	return &Client{
		httpClient:  httpClient,
		baseURL:     strings.TrimRight(cfg.MarketData.BaseURL, "/"),
		logger:      log,
		rateLimiter: limiter,
		rateCfg: redis.RateLimitConfig{
			Key:    "marketdata",
			Limit:  60,
			Window: time.Minute,
		},
		metrics: m,
	}
}

// GetOpenClose returns the open/close prices for ticker on date.
func (c *Client) GetOpenClose(ctx context.Context, ticker string, date time.Time) (contracts.Quote, error) {
	if c.rateLimiter != nil {
		allowed, _, err := c.rateLimiter.Allow(ctx, c.rateCfg)
		if err == nil && !allowed {
			c.metrics.ObserveQuoteFetch(false)
			return contracts.Quote{}, fmt.Errorf("quote %s: shared rate limit exceeded: %w",
				ticker, contracts.ErrDataUnavailable)
		}
	}

	day := strings.ReplaceAll(date.Format("2006-01-02"), "-", "")
	fullURL := fmt.Sprintf(
		"%s/siseJson.naver?symbol=%s&requestType=1&startTime=%s&endTime=%s&timeframe=day",
		c.baseURL, ticker, day, day,
	)

	resp, err := c.httpClient.Get(ctx, fullURL)
	if err != nil {
		c.metrics.ObserveQuoteFetch(false)
		if errors.Is(err, context.DeadlineExceeded) {
			return contracts.Quote{}, fmt.Errorf("quote %s@%s: timeout: %w",
				ticker, date.Format("2006-01-02"), contracts.ErrDataUnavailable)
		}
		return contracts.Quote{}, fmt.Errorf("quote %s@%s: %v: %w",
			ticker, date.Format("2006-01-02"), err, contracts.ErrDataUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.metrics.ObserveQuoteFetch(false)
		return contracts.Quote{}, fmt.Errorf("quote %s@%s: status %d: %w",
			ticker, date.Format("2006-01-02"), resp.StatusCode, contracts.ErrDataUnavailable)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.ObserveQuoteFetch(false)
		return contracts.Quote{}, fmt.Errorf("quote %s@%s: read body: %w",
			ticker, date.Format("2006-01-02"), contracts.ErrDataUnavailable)
	}

	quote, err := parseQuote(string(body), date)
	if err != nil {
		c.metrics.ObserveQuoteFetch(false)
		return contracts.Quote{}, fmt.Errorf("quote %s@%s: %v: %w",
			ticker, date.Format("2006-01-02"), err, contracts.ErrDataUnavailable)
	}

	c.metrics.ObserveQuoteFetch(true)
	c.logger.WithFields(map[string]interface{}{
		"ticker": ticker,
		"date":   date.Format("2006-01-02"),
		"open":   quote.Open,
		"close":  quote.Close,
	}).Debug("Fetched quote")

	return quote, nil
}

// parseQuote parses the chart endpoint response: a quoted JSON array of rows
// [date, open, high, low, close, volume], first row being the header.
func parseQuote(body string, date time.Time) (contracts.Quote, error) {
	body = strings.TrimSpace(body)
	body = strings.ReplaceAll(body, "'", "\"")

	var rawData [][]interface{}
	if err := json.Unmarshal([]byte(body), &rawData); err != nil {
		return contracts.Quote{}, fmt.Errorf("parse response: %w", err)
	}

	want := strings.ReplaceAll(date.Format("2006-01-02"), "-", "")
	for i, row := range rawData {
		if i == 0 || len(row) < 5 {
			continue // Skip header
		}
		dateStr, ok := row[0].(string)
		if !ok {
			continue
		}
		if strings.Trim(dateStr, "\"") != want {
			continue
		}

		open := toFloat(row[1])
		closePrice := toFloat(row[4])
		if open <= 0 || closePrice <= 0 {
			return contracts.Quote{}, fmt.Errorf("non-positive prices in row %d", i)
		}
		return contracts.Quote{Open: open, Close: closePrice}, nil
	}

	return contracts.Quote{}, fmt.Errorf("no row for %s", date.Format("2006-01-02"))
}

func toFloat(v interface{}) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case string:
		var f float64
		fmt.Sscanf(strings.Trim(x, "\""), "%f", &f)
		return f
	default:
		return 0
	}
}
