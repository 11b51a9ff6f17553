package ticker

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"CoinCast/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopMetrics struct{}

func (nopMetrics) RecordTraining(string, string, string, float64) {}
func (nopMetrics) RecordForecast(string, string, int, float64)    {}
func (nopMetrics) RecordError(string)                             {}
func (nopMetrics) RecordLastPrice(string, float64)                {}
func (nopMetrics) RecordArtifactLookup(bool)                      {}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l, err := logger.New(&logger.Config{Level: "error", Format: "console", Output: "stderr"})
	require.NoError(t, err)
	return l
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestStreamPair(t *testing.T) {
	assert.Equal(t, "BTCUSDT", streamPair("BTC-USD"))
	assert.Equal(t, "AVAXUSDT", streamPair("AVAX-USD"))
}

func TestStreamUpdatesPrices(t *testing.T) {
	upgrader := websocket.Upgrader{}
	hold := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
		_ = conn.WriteJSON(map[string]interface{}{
			"e": "24hrMiniTicker", "s": "BTCUSDT", "c": "65000.5",
		})
		<-hold
	}))
	defer srv.Close()

	s := New(wsURL(srv), []string{"BTC-USD"}, 10*time.Millisecond, time.Minute, nopMetrics{}, testLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Connect(ctx))
	require.NoError(t, s.Subscribe(ctx))

	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		_, ok := s.Price("BTC-USD")
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	price, ok := s.Price("BTC-USD")
	require.True(t, ok)
	assert.Equal(t, 65000.5, price)

	cancel()
	_ = s.Close()
	close(hold)
	<-done
}

func TestStreamConnSwapIsGuarded(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	s := New(wsURL(srv), []string{"BTC-USD"}, time.Millisecond, time.Millisecond, nopMetrics{}, testLogger(t))
	ctx := context.Background()

	// Reconnects swap the connection while pings read it; run both
	// concurrently so the race detector can see an unguarded swap.
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 20; i++ {
			if err := s.Connect(ctx); err != nil {
				continue
			}
			_ = s.Subscribe(ctx)
			_ = s.Close()
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			s.ping()
		}
	}()
	wg.Wait()

	assert.NoError(t, s.Close())
}
