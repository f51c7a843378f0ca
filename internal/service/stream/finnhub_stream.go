// Package stream implements the live quote feed over the Finnhub trade
// WebSocket. The feed is advisory: the REST quote chain stays the source
// of truth whenever the socket is down.
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"github.com/droskin133/AI-DayTrader-Pro-sub000/internal/domain/models"
	drepo "github.com/droskin133/AI-DayTrader-Pro-sub000/internal/domain/repository"
	"github.com/droskin133/AI-DayTrader-Pro-sub000/pkg/logger"
)

const defaultWebsocketURL = "wss://ws.finnhub.io"

// FinnhubStream implements a QuoteStream backed by the Finnhub trade feed.
type FinnhubStream struct {
	apiKey         string
	websocketURL   string
	reconnectDelay time.Duration
	pingInterval   time.Duration
	logger         *logger.Logger

	conn      *websocket.Conn
	connected bool
	symbols   []string
}

// NewFinnhubStream creates a live quote stream client.
func NewFinnhubStream(apiKey, websocketURL string, reconnectDelay, pingInterval time.Duration, log *logger.Logger) drepo.QuoteStream {
	if websocketURL == "" {
		websocketURL = defaultWebsocketURL
	}
	if reconnectDelay <= 0 {
		reconnectDelay = 3 * time.Second
	}
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	return &FinnhubStream{
		apiKey:         apiKey,
		websocketURL:   websocketURL,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
		logger:         log,
	}
}

// Connect establishes the WebSocket connection.
func (c *FinnhubStream) Connect(ctx context.Context) error {
	u := fmt.Sprintf("%s?token=%s", c.websocketURL, c.apiKey)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("quote stream connect: %w", err)
	}
	c.conn = conn
	c.connected = true
	c.logger.Info("quote stream connected")
	return nil
}

// Subscribe subscribes to the given symbols and remembers them for
// resubscription after a reconnect.
func (c *FinnhubStream) Subscribe(ctx context.Context, symbols []string) error {
	if c.conn == nil || !c.connected {
		return fmt.Errorf("quote stream not connected")
	}
	c.symbols = symbols
	for _, s := range symbols {
		msg := map[string]string{"type": "subscribe", "symbol": s}
		if err := c.conn.WriteJSON(msg); err != nil {
			return fmt.Errorf("subscribe %s: %w", s, err)
		}
		c.logger.Debug("quote stream subscribed", logger.String("symbol", s))
	}
	return nil
}

type tradeFrame struct {
	S string  `json:"s"`
	P float64 `json:"p"`
	T int64   `json:"t"` // ms
}

type streamMessage struct {
	Type string       `json:"type"`
	Data []tradeFrame `json:"data"`
}

// Read streams live quotes and transport errors. Quotes carry Live=true so
// consumers can tell them apart from REST snapshots. Slow consumers lose
// frames rather than stalling the socket.
func (c *FinnhubStream) Read(ctx context.Context) (<-chan *models.Quote, <-chan error) {
	quotes := make(chan *models.Quote, 1024)
	errs := make(chan error, 1)

	go func() {
		ticker := time.NewTicker(c.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if c.conn != nil {
					_ = c.conn.WriteMessage(websocket.PingMessage, nil)
				}
			}
		}
	}()

	go func() {
		defer close(quotes)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				if c.conn == nil {
					errs <- fmt.Errorf("quote stream conn nil")
					return
				}
				_, b, err := c.conn.ReadMessage()
				if err != nil {
					errs <- fmt.Errorf("quote stream read: %w", err)
					return
				}
				var m streamMessage
				if err := json.Unmarshal(b, &m); err != nil {
					// ignore non-trade frames
					continue
				}
				if m.Type != "trade" {
					continue
				}
				for _, d := range m.Data {
					q := &models.Quote{
						Symbol:    d.S,
						Price:     d.P,
						Timestamp: time.UnixMilli(d.T).UTC(),
						Live:      true,
					}
					select {
					case quotes <- q:
					default:
						// drop on backpressure
					}
				}
			}
		}
	}()

	return quotes, errs
}

// Reconnect closes, waits out the delay and re-subscribes.
func (c *FinnhubStream) Reconnect(ctx context.Context) error {
	_ = c.Close()
	select {
	case <-time.After(c.reconnectDelay):
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := c.Connect(ctx); err != nil {
		return err
	}
	return c.Subscribe(ctx, c.symbols)
}

// Close closes the WS connection.
func (c *FinnhubStream) Close() error {
	c.connected = false
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// IsConnected indicates status.
func (c *FinnhubStream) IsConnected() bool { return c.connected }
