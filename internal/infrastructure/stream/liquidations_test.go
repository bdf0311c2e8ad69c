package stream

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rotorscan/rotorscan/internal/domain/liquidation"
)

func msg(pair, side, price, qty string) forceOrder {
	var m forceOrder
	m.Order.Symbol = pair
	m.Order.Side = side
	m.Order.Price = price
	m.Order.Quantity = qty
	return m
}

func TestRecordTagsAndMapsSides(t *testing.T) {
	c := NewCollector([]string{"BTC"}, 10)

	// A SELL force order closes a long, a BUY closes a short.
	c.record(msg("BTCUSDT", "SELL", "50000", "2"))
	c.record(msg("BTCUSDT", "BUY", "51000", "1"))

	events := c.Recent("BTC")
	require.Len(t, events, 2)

	assert.Equal(t, liquidation.SideLong, events[0].Side)
	assert.Equal(t, 100000.0, events[0].NotionalUSD)
	assert.Equal(t, liquidation.Realized, events[0].DataType)
	assert.Equal(t, liquidation.SideShort, events[1].Side)
}

func TestRecordDropsUntrackedAndMalformed(t *testing.T) {
	c := NewCollector([]string{"BTC"}, 10)

	c.record(msg("DOGEUSDT", "SELL", "0.1", "1000")) // untracked pair
	c.record(msg("BTCUSDT", "SELL", "not-a-number", "1"))
	c.record(msg("BTCUSDT", "SELL", "-50", "1"))

	assert.Empty(t, c.Recent("BTC"))
}

func TestRingBufferCapsEvents(t *testing.T) {
	c := NewCollector([]string{"BTC"}, 3)

	for i := 0; i < 5; i++ {
		c.record(msg("BTCUSDT", "SELL", fmt.Sprintf("%d", 50000+i), "1"))
	}

	events := c.Recent("BTC")
	require.Len(t, events, 3)
	// Oldest events are evicted; the newest survive in order.
	assert.Equal(t, 50002.0, events[0].Price)
	assert.Equal(t, 50004.0, events[2].Price)
}

func TestRecentFiltersBySymbol(t *testing.T) {
	c := NewCollector([]string{"BTC", "ETH"}, 10)

	c.record(msg("BTCUSDT", "SELL", "50000", "1"))
	c.record(msg("ETHUSDT", "SELL", "3000", "1"))

	assert.Len(t, c.Recent("BTC"), 1)
	assert.Len(t, c.Recent("ETH"), 1)
	assert.Empty(t, c.Recent("SOL"))
}
