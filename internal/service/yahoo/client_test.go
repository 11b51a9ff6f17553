package yahoo

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"CoinCast/internal/domain/models"
	"CoinCast/internal/forecast"
	"CoinCast/internal/service/cache"
	"CoinCast/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l, err := logger.New(&logger.Config{Level: "error", Format: "console", Output: "stderr"})
	require.NoError(t, err)
	return l
}

const chartBody = `{
	"chart": {
		"result": [{
			"timestamp": [1700000000, 1700086400, 1700172800, 1700259200],
			"indicators": {"quote": [{"close": [100.5, null, 102.25, 103.0]}]}
		}],
		"error": null
	}
}`

func TestFetchSeries(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "/v8/finance/chart/BTC-USD", r.URL.Path)
		assert.Equal(t, "1d", r.URL.Query().Get("interval"))
		assert.NotEmpty(t, r.URL.Query().Get("period1"))
		assert.NotEmpty(t, r.URL.Query().Get("period2"))
		fmt.Fprint(w, chartBody)
	}))
	defer srv.Close()

	c := NewClient(cache.NewTTLCache(), testLogger(t), WithBaseURL(srv.URL))

	series, err := c.FetchSeries(context.Background(), "BTC-USD", models.IntervalDay)
	require.NoError(t, err)

	assert.Equal(t, "BTC-USD", series.Ticker)
	assert.Equal(t, models.IntervalDay, series.Interval)
	// the null close is skipped
	require.Len(t, series.Points, 3)
	assert.Equal(t, 100.5, series.Points[0].Close)
	assert.Equal(t, 103.0, series.Points[2].Close)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), series.Points[0].Time)
}

func TestFetchSeriesCached(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, chartBody)
	}))
	defer srv.Close()

	c := NewClient(cache.NewTTLCache(), testLogger(t), WithBaseURL(srv.URL))

	_, err := c.FetchSeries(context.Background(), "BTC-USD", models.IntervalDay)
	require.NoError(t, err)
	_, err = c.FetchSeries(context.Background(), "BTC-USD", models.IntervalDay)
	require.NoError(t, err)

	assert.Equal(t, int64(1), hits.Load(), "second fetch must hit the cache")
}

func TestFetchSeriesNoResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"chart": {"result": [], "error": null}}`)
	}))
	defer srv.Close()

	c := NewClient(cache.NewTTLCache(), testLogger(t), WithBaseURL(srv.URL))

	_, err := c.FetchSeries(context.Background(), "NOPE-USD", models.IntervalDay)
	assert.ErrorIs(t, err, forecast.ErrDataUnavailable)
}

func TestFetchSeriesUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(cache.NewTTLCache(), testLogger(t), WithBaseURL(srv.URL))

	_, err := c.FetchSeries(context.Background(), "BTC-USD", models.IntervalDay)
	assert.ErrorIs(t, err, forecast.ErrDataUnavailable)
}

func TestFetchLivePrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1h", r.URL.Query().Get("interval"))
		fmt.Fprint(w, chartBody)
	}))
	defer srv.Close()

	c := NewClient(cache.NewTTLCache(), testLogger(t), WithBaseURL(srv.URL))

	point, err := c.FetchLivePrice(context.Background(), "BTC-USD")
	require.NoError(t, err)
	assert.Equal(t, 103.0, point.Close)
}
