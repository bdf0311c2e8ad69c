// Package stream collects realized liquidation events from the Binance
// futures forceOrder feed. Events are tagged REALIZED and kept in a bounded
// ring buffer; they are merged with the estimator's ESTIMATED output only at
// the presentation boundary, never inside the estimator.
package stream

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/rotorscan/rotorscan/internal/domain/liquidation"
)

const feedURL = "wss://fstream.binance.com/ws/!forceOrder@arr"

// forceOrder is the wire shape of one liquidation message.
type forceOrder struct {
	Order struct {
		Symbol   string `json:"s"`
		Side     string `json:"S"`
		Price    string `json:"p"`
		Quantity string `json:"q"`
		TradeAt  int64  `json:"T"`
	} `json:"o"`
}

// Collector maintains the websocket subscription and the recent-event
// buffer. Safe for concurrent readers.
type Collector struct {
	url      string
	tracked  map[string]string // exchange pair -> canonical symbol
	capacity int

	mu     sync.RWMutex
	events []liquidation.Event
}

// NewCollector tracks the given canonical symbols (BTC, ETH, ...). Events
// for untracked pairs are dropped.
func NewCollector(symbols []string, capacity int) *Collector {
	tracked := make(map[string]string, len(symbols))
	for _, s := range symbols {
		tracked[strings.ToUpper(s)+"USDT"] = strings.ToUpper(s)
	}
	return &Collector{url: feedURL, tracked: tracked, capacity: capacity}
}

// Run connects and consumes events until the context is cancelled,
// reconnecting with capped exponential backoff on failure.
func (c *Collector) Run(ctx context.Context) {
	backoff := time.Second
	for {
		if err := c.consume(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Warn().Err(err).Dur("backoff", backoff).Msg("liquidation feed disconnected")
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

func (c *Collector) consume(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	log.Info().Str("url", c.url).Msg("liquidation feed connected")
	for {
		var msg forceOrder
		if err := conn.ReadJSON(&msg); err != nil {
			return err
		}
		c.record(msg)
	}
}

func (c *Collector) record(msg forceOrder) {
	canonical, ok := c.tracked[msg.Order.Symbol]
	if !ok {
		return
	}
	price, err1 := strconv.ParseFloat(msg.Order.Price, 64)
	qty, err2 := strconv.ParseFloat(msg.Order.Quantity, 64)
	if err1 != nil || err2 != nil || price <= 0 {
		return
	}

	// A SELL force order closes a long position.
	side := liquidation.SideShort
	if msg.Order.Side == "SELL" {
		side = liquidation.SideLong
	}

	event := liquidation.Event{
		Symbol:      canonical,
		Price:       price,
		NotionalUSD: price * qty,
		Side:        side,
		DataType:    liquidation.Realized,
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	if len(c.events) > c.capacity {
		c.events = c.events[len(c.events)-c.capacity:]
	}
}

// Recent returns a copy of the buffered events for one symbol, newest last.
func (c *Collector) Recent(symbol string) []liquidation.Event {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]liquidation.Event, 0)
	for _, e := range c.events {
		if e.Symbol == symbol {
			out = append(out, e)
		}
	}
	return out
}
