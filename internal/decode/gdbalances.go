package decode

import (
	"encoding/binary"

	"github.com/chainfeed/ingestd/internal/ingesterr"
)

const (
	gdEntrySize         = 16 // lamports u64 + lots u64
	gdBalanceCapacity   = 10_000
	gdBalanceHeaderSize = 8 // num_users u64
)

// GdRawBalance is one user's claimable balance in raw lot/lamport units.
type GdRawBalance struct {
	UID        uint64
	Lamports   uint64
	AmountLots uint64
}

// ParseGdBalances reads entries 1..=num_users out of a GigaDex UserBalances
// account. Entry 0 is never populated (uids are 1-based).
func ParseGdBalances(data []byte) ([]GdRawBalance, error) {
	if len(data) < gdDiscriminatorSize+gdBalanceHeaderSize {
		return nil, ingesterr.New(ingesterr.ErrDecodeMalformed, "gd balances buffer too short")
	}
	body := data[gdDiscriminatorSize:]
	numUsers := binary.LittleEndian.Uint64(body[0:8])
	if numUsers >= gdBalanceCapacity {
		return nil, ingesterr.Newf(ingesterr.ErrDecodeMalformed, "gd balances num_users %d exceeds capacity %d", numUsers, gdBalanceCapacity)
	}

	entriesStart := gdBalanceHeaderSize
	need := entriesStart + gdEntrySize*gdBalanceCapacity
	if len(body) < need {
		return nil, ingesterr.Newf(ingesterr.ErrDecodeMalformed, "gd balances body too short: have %d, need %d", len(body), need)
	}

	out := make([]GdRawBalance, 0, numUsers)
	for uid := uint64(1); uid <= numUsers; uid++ {
		off := entriesStart + int(uid)*gdEntrySize
		entry := body[off : off+gdEntrySize]
		lamports := binary.LittleEndian.Uint64(entry[0:8])
		lots := binary.LittleEndian.Uint64(entry[8:16])
		out = append(out, GdRawBalance{UID: uid, Lamports: lamports, AmountLots: lots})
	}
	return out, nil
}
