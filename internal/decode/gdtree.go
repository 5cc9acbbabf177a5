package decode

import (
	"encoding/binary"

	"github.com/chainfeed/ingestd/internal/ingesterr"
)

const (
	gdDiscriminatorSize = 8 // Anchor account discriminator
	gdNodeSize          = 56
	gdOrderTreeCapacity = 1000
	gdTreeHeaderSize    = 16 // root_idx u64 + market_buy u64
)

// GdOrder is a single resting order read from a GigaDex order tree node.
type GdOrder struct {
	UID        uint64
	PriceLots  uint64
	AmountLots uint64
}

// ParseGdOrderTree reads all populated nodes (amount > 0) out of a GigaDex
// OrderTree account, in node-array order (unsorted; callers sort/aggregate).
func ParseGdOrderTree(data []byte) ([]GdOrder, error) {
	if len(data) < gdDiscriminatorSize+gdTreeHeaderSize {
		return nil, ingesterr.New(ingesterr.ErrDecodeMalformed, "gd order tree buffer too short")
	}
	body := data[gdDiscriminatorSize:]
	nodesStart := gdTreeHeaderSize
	need := nodesStart + gdNodeSize*gdOrderTreeCapacity
	if len(body) < need {
		return nil, ingesterr.Newf(ingesterr.ErrDecodeMalformed, "gd order tree body too short: have %d, need %d", len(body), need)
	}

	orders := make([]GdOrder, 0, gdOrderTreeCapacity)
	for i := 0; i < gdOrderTreeCapacity; i++ {
		off := nodesStart + i*gdNodeSize
		node := body[off : off+gdNodeSize]
		price := binary.LittleEndian.Uint64(node[0:8])
		amount := binary.LittleEndian.Uint64(node[8:16])
		uid := binary.LittleEndian.Uint64(node[16:24])
		if amount > 0 {
			orders = append(orders, GdOrder{UID: uid, PriceLots: price, AmountLots: amount})
		}
	}
	return orders, nil
}
