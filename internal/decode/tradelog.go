package decode

import (
	"encoding/binary"

	"github.com/chainfeed/ingestd/internal/ingesterr"
)

const gdTradeLogSize = 24 // amount u64 + total_value_lamports u64 + counter u64

// GdTradeLog is a single append-only fill record from a GigaDex buy/sell log
// PDA.
type GdTradeLog struct {
	Amount             uint64
	TotalValueLamports uint64
	Counter            uint64
}

// ParseGdTradeLog decodes a buy_order_log/sell_order_log account, skipping
// the 8-byte Anchor discriminator.
func ParseGdTradeLog(data []byte) (GdTradeLog, error) {
	if len(data) < gdDiscriminatorSize+gdTradeLogSize {
		return GdTradeLog{}, ingesterr.New(ingesterr.ErrDecodeMalformed, "gd trade log buffer too short")
	}
	body := data[gdDiscriminatorSize : gdDiscriminatorSize+gdTradeLogSize]
	return GdTradeLog{
		Amount:             binary.LittleEndian.Uint64(body[0:8]),
		TotalValueLamports: binary.LittleEndian.Uint64(body[8:16]),
		Counter:            binary.LittleEndian.Uint64(body[16:24]),
	}, nil
}
