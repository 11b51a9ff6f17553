package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"CoinCast/internal/domain/models"
	"CoinCast/internal/domain/repository"
	"CoinCast/internal/forecast"
	pkghttp "CoinCast/pkg/http"
	"CoinCast/pkg/logger"
)

// Client fetches close price history from the Yahoo Finance chart API.
// Responses are cached through the injected cache so repeated training
// and forecast calls for the same instrument do not hammer the upstream.
type Client struct {
	http       *pkghttp.Client
	baseURL    string
	cache      repository.Cache
	historyTTL time.Duration
	liveTTL    time.Duration
	log        *logger.Logger
}

// Option configures Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL. Used by tests.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithTTLs sets cache TTLs for history and live responses.
func WithTTLs(history, live time.Duration) Option {
	return func(c *Client) {
		c.historyTTL = history
		c.liveTTL = live
	}
}

// WithTimeout sets the HTTP request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.http = pkghttp.NewClient(
			pkghttp.WithTimeout(timeout),
			pkghttp.WithUserAgent("coincast/1.0"),
		)
	}
}

// NewClient creates a Yahoo chart API client.
func NewClient(cache repository.Cache, log *logger.Logger, opts ...Option) *Client {
	c := &Client{
		http:       pkghttp.NewClient(pkghttp.WithUserAgent("coincast/1.0")),
		baseURL:    "https://query1.finance.yahoo.com",
		cache:      cache,
		historyTTL: time.Hour,
		liveTTL:    5 * time.Minute,
		log:        log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// FetchSeries returns close prices for the ticker over the interval's
// lookback period, oldest first. Candles with a missing close are
// skipped.
func (c *Client) FetchSeries(ctx context.Context, ticker string, interval models.Interval) (*models.PriceSeries, error) {
	now := time.Now()
	from := now.AddDate(0, 0, -interval.LookbackDays())

	key := fmt.Sprintf("yahoo:series:%s:%s", ticker, interval)
	body, err := c.cache.GetOrFill(ctx, key, c.historyTTL, func(ctx context.Context) ([]byte, error) {
		return c.fetchChart(ctx, ticker, string(interval), from, now)
	})
	if err != nil {
		return nil, err
	}

	points, err := parseChart(body, ticker)
	if err != nil {
		return nil, err
	}

	return &models.PriceSeries{
		Ticker:   ticker,
		Interval: interval,
		Points:   points,
	}, nil
}

// FetchLivePrice returns the most recent close from a one-day hourly
// chart.
func (c *Client) FetchLivePrice(ctx context.Context, ticker string) (models.PricePoint, error) {
	now := time.Now()
	from := now.AddDate(0, 0, -1)

	key := fmt.Sprintf("yahoo:live:%s", ticker)
	body, err := c.cache.GetOrFill(ctx, key, c.liveTTL, func(ctx context.Context) ([]byte, error) {
		return c.fetchChart(ctx, ticker, "1h", from, now)
	})
	if err != nil {
		return models.PricePoint{}, err
	}

	points, err := parseChart(body, ticker)
	if err != nil {
		return models.PricePoint{}, err
	}
	return points[len(points)-1], nil
}

func (c *Client) fetchChart(ctx context.Context, ticker, interval string, from, to time.Time) ([]byte, error) {
	url := fmt.Sprintf("%s/v8/finance/chart/%s", c.baseURL, ticker)

	var body []byte
	err := c.http.SendAndParse(ctx, &pkghttp.RequestOptions{
		Method: pkghttp.MethodGet,
		URL:    url,
		QueryParams: map[string][]string{
			"period1":  {strconv.FormatInt(from.Unix(), 10)},
			"period2":  {strconv.FormatInt(to.Unix(), 10)},
			"interval": {interval},
		},
	}, &body)
	if err != nil {
		c.log.Warn("chart fetch failed",
			logger.String("ticker", ticker),
			logger.String("interval", interval),
			logger.Error(err),
		)
		return nil, fmt.Errorf("%w: %v", forecast.ErrDataUnavailable, err)
	}
	return body, nil
}

func parseChart(body []byte, ticker string) ([]models.PricePoint, error) {
	var parsed chartResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: decode chart: %v", forecast.ErrDataUnavailable, err)
	}
	if parsed.Chart.Error != nil {
		return nil, fmt.Errorf("%w: %s: %s",
			forecast.ErrDataUnavailable, parsed.Chart.Error.Code, parsed.Chart.Error.Description)
	}
	if len(parsed.Chart.Result) == 0 || len(parsed.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("%w: no chart result for %s", forecast.ErrDataUnavailable, ticker)
	}

	result := parsed.Chart.Result[0]
	closes := result.Indicators.Quote[0].Close

	points := make([]models.PricePoint, 0, len(closes))
	for i, cl := range closes {
		if cl == nil || i >= len(result.Timestamp) {
			continue
		}
		points = append(points, models.PricePoint{
			Time:  time.Unix(result.Timestamp[i], 0).UTC(),
			Close: *cl,
		})
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: no usable closes for %s", forecast.ErrDataUnavailable, ticker)
	}
	return points, nil
}
