package subscribe

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/chainfeed/ingestd/internal/decode"
)

func addrString(b byte) string {
	var raw [32]byte
	raw[0] = b
	return decode.AddressString(raw)
}

func TestMarketIsOBAccountMatchesAnyOfBidsAsksEventQueue(t *testing.T) {
	var bids, asks, eq [32]byte
	bids[0], asks[0], eq[0] = 1, 2, 3
	m := &Market{ob: &obMarketInfo{descriptor: decode.ObMarketDescriptor{Bids: bids, Asks: asks, EventQueue: eq}}}

	assert.True(t, m.IsOBAccount(addrString(1)))
	assert.True(t, m.IsOBAccount(addrString(2)))
	assert.True(t, m.IsOBAccount(addrString(3)))
	assert.False(t, m.IsOBAccount(addrString(9)))
}

func TestMarketIsOBAccountFalseWhenUnresolved(t *testing.T) {
	m := &Market{}
	assert.False(t, m.IsOBAccount(addrString(1)))
}

func TestMarketIsGDAccountMatchesAllFiveAccounts(t *testing.T) {
	var bids, asks, balances [32]byte
	bids[0], asks[0], balances[0] = 1, 2, 3
	m := &Market{gd: &gdMarketInfo{
		descriptor:   decode.GdMarketDescriptor{Bids: bids, Asks: asks, Balances: balances},
		buyOrderLog:  "buy-log-addr",
		sellOrderLog: "sell-log-addr",
	}}

	assert.True(t, m.IsGDAccount(addrString(1)))
	assert.True(t, m.IsGDAccount(addrString(2)))
	assert.True(t, m.IsGDAccount(addrString(3)))
	assert.True(t, m.IsGDAccount("buy-log-addr"))
	assert.True(t, m.IsGDAccount("sell-log-addr"))
	assert.False(t, m.IsGDAccount(addrString(9)))
}
