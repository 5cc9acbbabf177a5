// Package subscribe bootstraps the known markets from the cache, resolves
// each venue's on-chain addresses, publishes the initial order books, and
// then runs the single-threaded account-update dispatch loop.
package subscribe

import "github.com/chainfeed/ingestd/internal/decode"

// Market is one configured trading pair, loaded from the cache's "markets"
// set and "market_info:{slug}" hashes.
type Market struct {
	Slug          string
	Name          string
	Status        string
	BaseDecimals  uint8
	QuoteDecimals uint8

	OBMarketAddress string
	GDMarketAddress string

	ob *obMarketInfo
	gd *gdMarketInfo
}

// obMarketInfo is the resolved set of OpenBook-style account addresses and
// lot sizes this engine needs once per market, fetched at startup.
type obMarketInfo struct {
	descriptor decode.ObMarketDescriptor
}

// gdMarketInfo is the resolved set of GigaDex account addresses, including
// the two program-derived trade-log addresses that never appear on the
// market account itself.
type gdMarketInfo struct {
	descriptor   decode.GdMarketDescriptor
	buyOrderLog  string
	sellOrderLog string
}

// IsOBAccount reports whether address is one of this market's OB accounts.
func (m *Market) IsOBAccount(address string) bool {
	if m.ob == nil {
		return false
	}
	d := m.ob.descriptor
	return addrEq(d.Bids, address) || addrEq(d.Asks, address) || addrEq(d.EventQueue, address)
}

// IsGDAccount reports whether address is one of this market's GD accounts.
func (m *Market) IsGDAccount(address string) bool {
	if m.gd == nil {
		return false
	}
	d := m.gd.descriptor
	return addrEq(d.Bids, address) || addrEq(d.Asks, address) || addrEq(d.Balances, address) ||
		address == m.gd.buyOrderLog || address == m.gd.sellOrderLog
}

func addrEq(raw [32]byte, address string) bool {
	return decode.AddressString(raw) == address
}
