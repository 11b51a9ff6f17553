package ticker

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"CoinCast/internal/domain/repository"
	"CoinCast/pkg/logger"

	"github.com/gorilla/websocket"
)

// Stream keeps a live last-price snapshot from the Binance miniTicker
// WebSocket feed. It is optional; when disabled the API falls back to the
// chart endpoint for live prices.
type Stream struct {
	url            string
	tickers        []string
	reconnectDelay time.Duration
	pingInterval   time.Duration
	metrics        repository.Metrics
	log            *logger.Logger

	// connMu guards conn, which the reconnect loop swaps while the ping
	// and read loops are running. It also serializes writers.
	connMu sync.Mutex
	conn   *websocket.Conn

	mu     sync.RWMutex
	last   map[string]float64
	byPair map[string]string
}

// New creates a live price stream for the given Yahoo-style tickers
// (for example BTC-USD).
func New(url string, tickers []string, reconnectDelay, pingInterval time.Duration, metrics repository.Metrics, log *logger.Logger) *Stream {
	byPair := make(map[string]string, len(tickers))
	for _, t := range tickers {
		byPair[streamPair(t)] = t
	}
	return &Stream{
		url:            url,
		tickers:        tickers,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
		metrics:        metrics,
		log:            log,
		last:           make(map[string]float64),
		byPair:         byPair,
	}
}

// streamPair maps a Yahoo-style ticker to the exchange pair name:
// BTC-USD becomes BTCUSDT.
func streamPair(ticker string) string {
	base := strings.ToUpper(strings.TrimSuffix(ticker, "-USD"))
	return base + "USDT"
}

// Connect establishes the WebSocket connection.
func (s *Stream) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("ticker connect: %w", err)
	}
	s.connMu.Lock()
	s.conn = conn
	s.connMu.Unlock()
	s.log.Info("ticker stream connected", logger.String("url", s.url))
	return nil
}

// current returns the active connection, nil when disconnected.
func (s *Stream) current() *websocket.Conn {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	return s.conn
}

// Subscribe subscribes to the miniTicker channel for every pair.
func (s *Stream) Subscribe(ctx context.Context) error {
	params := make([]string, 0, len(s.tickers))
	for _, t := range s.tickers {
		params = append(params, strings.ToLower(streamPair(t))+"@miniTicker")
	}
	msg := map[string]interface{}{
		"method": "SUBSCRIBE",
		"params": params,
		"id":     1,
	}

	s.connMu.Lock()
	defer s.connMu.Unlock()
	if s.conn == nil {
		return fmt.Errorf("ticker stream not connected")
	}
	if err := s.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("ticker subscribe: %w", err)
	}
	s.log.Info("ticker stream subscribed", logger.Int("pairs", len(params)))
	return nil
}

type miniTicker struct {
	Event string `json:"e"`
	Pair  string `json:"s"`
	Close string `json:"c"`
}

// Run reads the feed until ctx is cancelled, reconnecting on errors.
func (s *Stream) Run(ctx context.Context) {
	pingCtx, cancelPing := context.WithCancel(ctx)
	defer cancelPing()
	go s.pingLoop(pingCtx)

	for {
		if err := s.readLoop(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			s.log.Warn("ticker stream dropped", logger.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(s.reconnectDelay):
		}

		_ = s.Close()
		if err := s.Connect(ctx); err != nil {
			s.log.Warn("ticker reconnect failed", logger.Error(err))
			continue
		}
		if err := s.Subscribe(ctx); err != nil {
			s.log.Warn("ticker resubscribe failed", logger.Error(err))
		}
	}
}

func (s *Stream) pingLoop(ctx context.Context) {
	t := time.NewTicker(s.pingInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.ping()
		}
	}
}

func (s *Stream) ping() {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	if s.conn != nil {
		_ = s.conn.WriteMessage(websocket.PingMessage, nil)
	}
}

func (s *Stream) readLoop(ctx context.Context) error {
	conn := s.current()
	if conn == nil {
		return fmt.Errorf("ticker stream not connected")
	}
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		_, b, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("ticker read: %w", err)
		}

		var m miniTicker
		if err := json.Unmarshal(b, &m); err != nil {
			continue
		}
		if m.Event != "24hrMiniTicker" {
			continue
		}
		ticker, ok := s.byPair[m.Pair]
		if !ok {
			continue
		}
		price, err := strconv.ParseFloat(m.Close, 64)
		if err != nil {
			continue
		}

		s.mu.Lock()
		s.last[ticker] = price
		s.mu.Unlock()
		s.metrics.RecordLastPrice(ticker, price)
	}
}

// Price returns the last seen price for a ticker.
func (s *Stream) Price(ticker string) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.last[ticker]
	return p, ok
}

// Snapshot returns a copy of all last seen prices.
func (s *Stream) Snapshot() map[string]float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]float64, len(s.last))
	for k, v := range s.last {
		out[k] = v
	}
	return out
}

// Close closes the WebSocket connection.
func (s *Stream) Close() error {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}
