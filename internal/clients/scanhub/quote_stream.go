package scanhub

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"math"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"

	"github.com/alevras/covercall/internal/domain"
)

const (
	writeWait   = 10 * time.Second
	dialTimeout = 30 * time.Second

	baseReconnectDelay   = 5 * time.Second
	maxReconnectDelay    = 5 * time.Minute
	maxReconnectAttempts = 10

	quoteStaleThreshold = 5 * time.Minute
)

// QuoteStream maintains a WebSocket subscription to live stock quotes and
// keeps the latest price per symbol in a thread-safe cache. Consumers poll
// Prices(); the stream reconnects on its own with exponential backoff.
type QuoteStream struct {
	url        string
	apiKey     string
	symbols    []string
	httpClient *http.Client
	conn       *websocket.Conn
	connCtx    context.Context
	cancelFunc context.CancelFunc
	mu         sync.RWMutex

	log zerolog.Logger

	connected    bool
	reconnecting bool
	stopChan     chan struct{}
	stopped      bool

	quoteCache map[string]domain.Quote
	lastUpdate time.Time
	cacheMu    sync.RWMutex
}

// createHTTP1Client creates an HTTP client that forces HTTP/1.1.
// CDN frontends negotiate HTTP/2 via TLS ALPN, but the WebSocket upgrade
// handshake requires HTTP/1.1.
func createHTTP1Client() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSClientConfig: &tls.Config{
				NextProtos: []string{"http/1.1"},
			},
			ForceAttemptHTTP2: false,
		},
	}
}

// NewQuoteStream creates a quote stream client for the given symbols
func NewQuoteStream(url, apiKey string, symbols []string, log zerolog.Logger) *QuoteStream {
	return &QuoteStream{
		url:        url,
		apiKey:     apiKey,
		symbols:    symbols,
		httpClient: createHTTP1Client(),
		log:        log.With().Str("component", "quote_stream").Logger(),
		quoteCache: make(map[string]domain.Quote),
		stopChan:   make(chan struct{}),
	}
}

// Start initializes the WebSocket connection and starts the read loop
func (qs *QuoteStream) Start() error {
	qs.log.Info().Int("symbols", len(qs.symbols)).Msg("Starting quote stream")

	if err := qs.Connect(); err != nil {
		qs.log.Warn().Err(err).Msg("Initial quote stream connection failed, will retry in background")
		go qs.reconnectLoop()
		return err
	}

	qs.mu.RLock()
	ctx := qs.connCtx
	qs.mu.RUnlock()
	go qs.readMessages(ctx)

	return nil
}

// Stop gracefully shuts down the stream
func (qs *QuoteStream) Stop() error {
	qs.mu.Lock()
	if qs.stopped {
		qs.mu.Unlock()
		return nil
	}
	qs.stopped = true
	qs.mu.Unlock()

	qs.log.Info().Msg("Stopping quote stream")
	close(qs.stopChan)
	return qs.Disconnect()
}

// Connect dials the WebSocket and subscribes to the symbol list
func (qs *QuoteStream) Connect() error {
	qs.mu.Lock()
	defer qs.mu.Unlock()

	wsURL := qs.url
	if qs.apiKey != "" {
		wsURL += "?api_key=" + qs.apiKey
	}

	dialCtx, dialCancel := context.WithTimeout(context.Background(), dialTimeout)
	defer dialCancel()

	conn, _, err := websocket.Dial(dialCtx, wsURL, &websocket.DialOptions{
		HTTPClient: qs.httpClient,
	})
	if err != nil {
		return fmt.Errorf("failed to dial quote stream: %w", err)
	}

	connCtx, connCancel := context.WithCancel(context.Background())
	qs.conn = conn
	qs.connCtx = connCtx
	qs.cancelFunc = connCancel
	qs.connected = true

	if err := qs.subscribe(connCtx); err != nil {
		connCancel()
		conn.Close(websocket.StatusNormalClosure, "subscribe failed")
		qs.conn = nil
		qs.connCtx = nil
		qs.cancelFunc = nil
		qs.connected = false
		return fmt.Errorf("failed to subscribe to quotes: %w", err)
	}

	qs.log.Info().Msg("Connected to quote stream")
	return nil
}

// Disconnect closes the WebSocket connection
func (qs *QuoteStream) Disconnect() error {
	qs.mu.Lock()
	defer qs.mu.Unlock()

	if qs.conn == nil {
		return nil
	}

	if qs.cancelFunc != nil {
		qs.cancelFunc()
		qs.cancelFunc = nil
	}

	err := qs.conn.Close(websocket.StatusNormalClosure, "")
	qs.conn = nil
	qs.connCtx = nil
	qs.connected = false

	if err != nil {
		return fmt.Errorf("error closing quote stream: %w", err)
	}
	return nil
}

// subscribe sends the symbol subscription. Protocol: ["quotes", [symbols...]]
func (qs *QuoteStream) subscribe(ctx context.Context) error {
	msg := []any{"quotes", qs.symbols}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal subscription: %w", err)
	}

	writeCtx, cancel := context.WithTimeout(ctx, writeWait)
	defer cancel()

	if err := qs.conn.Write(writeCtx, websocket.MessageText, data); err != nil {
		return fmt.Errorf("failed to send subscription: %w", err)
	}

	qs.log.Info().Int("symbols", len(qs.symbols)).Msg("Subscribed to quotes channel")
	return nil
}

// readMessages continuously reads messages until the connection drops
func (qs *QuoteStream) readMessages(ctx context.Context) {
	defer func() {
		qs.mu.RLock()
		stopped := qs.stopped
		qs.mu.RUnlock()
		if !stopped {
			go qs.reconnectLoop()
		}
	}()

	for {
		select {
		case <-qs.stopChan:
			return
		case <-ctx.Done():
			return
		default:
		}

		qs.mu.RLock()
		conn := qs.conn
		qs.mu.RUnlock()
		if conn == nil {
			return
		}

		msgType, message, err := conn.Read(ctx)
		if err != nil {
			closeStatus := websocket.CloseStatus(err)
			if closeStatus == websocket.StatusNormalClosure || closeStatus == websocket.StatusGoingAway {
				qs.log.Info().Int("status", int(closeStatus)).Msg("Quote stream closed normally")
			} else if ctx.Err() != nil {
				qs.log.Debug().Msg("Quote stream read cancelled")
			} else {
				qs.log.Error().Err(err).Msg("Unexpected quote stream read error")
			}
			return
		}

		if msgType != websocket.MessageText {
			continue
		}

		if err := qs.handleMessage(message); err != nil {
			// Keep reading despite parse errors
			qs.log.Error().Err(err).Msg("Failed to handle quote message")
		}
	}
}

// wsQuote is a single quote update on the wire
type wsQuote struct {
	Symbol string  `json:"symbol"`
	Last   float64 `json:"last"`
	Bid    float64 `json:"bid"`
	Ask    float64 `json:"ask"`
}

// handleMessage parses a ["channel", data] frame and updates the cache
func (qs *QuoteStream) handleMessage(message []byte) error {
	var frame []json.RawMessage
	if err := json.Unmarshal(message, &frame); err != nil {
		return fmt.Errorf("failed to parse message frame: %w", err)
	}
	if len(frame) < 2 {
		return fmt.Errorf("message frame too short: got %d elements", len(frame))
	}

	var channel string
	if err := json.Unmarshal(frame[0], &channel); err != nil {
		return fmt.Errorf("failed to parse channel: %w", err)
	}
	if channel != "quotes" {
		return nil
	}

	var quotes []wsQuote
	if err := json.Unmarshal(frame[1], &quotes); err != nil {
		return fmt.Errorf("failed to parse quotes: %w", err)
	}

	now := time.Now()
	qs.cacheMu.Lock()
	for _, q := range quotes {
		if q.Symbol == "" || q.Last <= 0 {
			continue
		}
		qs.quoteCache[q.Symbol] = domain.Quote{
			Symbol:    q.Symbol,
			Last:      q.Last,
			Bid:       q.Bid,
			Ask:       q.Ask,
			UpdatedAt: now,
		}
	}
	qs.lastUpdate = now
	qs.cacheMu.Unlock()

	return nil
}

// reconnectLoop retries the connection with exponential backoff
func (qs *QuoteStream) reconnectLoop() {
	qs.mu.Lock()
	if qs.reconnecting || qs.stopped {
		qs.mu.Unlock()
		return
	}
	qs.reconnecting = true
	qs.mu.Unlock()

	defer func() {
		qs.mu.Lock()
		qs.reconnecting = false
		qs.mu.Unlock()
	}()

	attempt := 0
	for {
		select {
		case <-qs.stopChan:
			return
		default:
		}

		qs.mu.RLock()
		stopped := qs.stopped
		qs.mu.RUnlock()
		if stopped {
			return
		}

		attempt++
		delay := calculateBackoff(attempt)

		if attempt <= maxReconnectAttempts {
			qs.log.Info().Int("attempt", attempt).Dur("delay", delay).Msg("Reconnecting to quote stream")
		} else {
			qs.log.Warn().Int("attempt", attempt).Dur("delay", delay).
				Msg("Reconnection attempt (exceeded max attempts, will keep retrying)")
		}

		select {
		case <-time.After(delay):
		case <-qs.stopChan:
			return
		}

		if err := qs.Connect(); err != nil {
			qs.log.Error().Err(err).Int("attempt", attempt).Msg("Reconnection failed")
			continue
		}

		qs.log.Info().Int("attempt", attempt).Msg("Reconnected to quote stream")

		qs.mu.RLock()
		ctx := qs.connCtx
		qs.mu.RUnlock()
		go qs.readMessages(ctx)
		return
	}
}

func calculateBackoff(attempt int) time.Duration {
	delay := float64(baseReconnectDelay) * math.Pow(2, float64(attempt-1))
	if delay > float64(maxReconnectDelay) {
		delay = float64(maxReconnectDelay)
	}
	return time.Duration(delay)
}

// Prices returns the latest last-price per symbol
func (qs *QuoteStream) Prices() map[string]float64 {
	qs.cacheMu.RLock()
	defer qs.cacheMu.RUnlock()

	prices := make(map[string]float64, len(qs.quoteCache))
	for symbol, quote := range qs.quoteCache {
		prices[symbol] = quote.Last
	}
	return prices
}

// Quote returns the latest quote for a symbol, nil if none seen
func (qs *QuoteStream) Quote(symbol string) *domain.Quote {
	qs.cacheMu.RLock()
	defer qs.cacheMu.RUnlock()

	quote, ok := qs.quoteCache[symbol]
	if !ok {
		return nil
	}
	return &quote
}

// IsCacheStale reports whether no quote has arrived recently
func (qs *QuoteStream) IsCacheStale() bool {
	qs.cacheMu.RLock()
	defer qs.cacheMu.RUnlock()

	if qs.lastUpdate.IsZero() {
		return true
	}
	return time.Since(qs.lastUpdate) > quoteStaleThreshold
}

// IsConnected returns current connection status
func (qs *QuoteStream) IsConnected() bool {
	qs.mu.RLock()
	defer qs.mu.RUnlock()
	return qs.connected
}
