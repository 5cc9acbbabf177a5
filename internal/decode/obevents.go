package decode

import (
	"encoding/binary"

	"github.com/chainfeed/ingestd/internal/ingesterr"
)

const (
	// The event queue carries only the 5-byte "serum" head as framing:
	// account_flags is the first field of the 32-byte header, unlike the
	// slab layout where it sits in the 13-byte prefix.
	eventQueuePrefixBytes = 5
	eventQueueHeaderSize  = 32 // account_flags, head, count, seq_num, all u64
	eventSize             = 88
)

// event flag bits, matching the dex crate's EventFlags bitfield.
const (
	eventFlagFill  = 0x1
	eventFlagOut   = 0x2
	eventFlagBid   = 0x4
	eventFlagMaker = 0x8
)

// ObFillEvent is a single fill (maker or taker, see IsMaker) pulled from an OpenBook-style event
// queue. Only EventFlags::FILL events are surfaced; OUT (cancel) events are
// skipped.
type ObFillEvent struct {
	IsBid             bool
	IsMaker           bool
	NativeQtyReleased uint64
	NativeQtyPaid     uint64
	NativeFeeOrRebate uint64
	OrderID           [2]uint64 // little-endian low/high 64-bit halves of the u128 order id
	Owner             [4]uint64
	ClientOrderID     uint64
}

// ParseObEventQueue decodes the circular event-queue buffer of an OpenBook
// market's event_queue account into an ordered slice of fill events (oldest
// first), skipping any event whose flags don't include FILL.
func ParseObEventQueue(data []byte) ([]ObFillEvent, error) {
	if len(data) < eventQueuePrefixBytes+slabSuffixBytes+eventQueueHeaderSize {
		return nil, ingesterr.New(ingesterr.ErrDecodeMalformed, "event queue buffer too short")
	}
	dataEnd := len(data) - slabSuffixBytes
	body := data[eventQueuePrefixBytes:dataEnd]
	if len(body) < eventQueueHeaderSize {
		return nil, ingesterr.New(ingesterr.ErrDecodeMalformed, "event queue body shorter than header")
	}

	header := body[:eventQueueHeaderSize]
	head := binary.LittleEndian.Uint64(header[8:16])
	count := binary.LittleEndian.Uint64(header[16:24])

	slotBytes := body[eventQueueHeaderSize:]
	capacity := uint64(len(slotBytes) / eventSize)
	if capacity == 0 {
		return nil, ingesterr.New(ingesterr.ErrDecodeMalformed, "event queue has zero capacity")
	}
	if count > capacity {
		return nil, ingesterr.Newf(ingesterr.ErrDecodeMalformed, "event queue count %d exceeds capacity %d", count, capacity)
	}

	out := make([]ObFillEvent, 0, count)
	for i := uint64(0); i < count; i++ {
		slot := (head + i) % capacity
		off := slot * eventSize
		e := slotBytes[off : off+eventSize]

		flags := e[0]
		if flags&eventFlagFill == 0 {
			continue
		}

		out = append(out, ObFillEvent{
			IsBid:             flags&eventFlagBid != 0,
			IsMaker:           flags&eventFlagMaker != 0,
			NativeQtyReleased: binary.LittleEndian.Uint64(e[8:16]),
			NativeQtyPaid:     binary.LittleEndian.Uint64(e[16:24]),
			NativeFeeOrRebate: binary.LittleEndian.Uint64(e[24:32]),
			OrderID: [2]uint64{
				binary.LittleEndian.Uint64(e[32:40]),
				binary.LittleEndian.Uint64(e[40:48]),
			},
			Owner: [4]uint64{
				binary.LittleEndian.Uint64(e[48:56]),
				binary.LittleEndian.Uint64(e[56:64]),
				binary.LittleEndian.Uint64(e[64:72]),
				binary.LittleEndian.Uint64(e[72:80]),
			},
			ClientOrderID: binary.LittleEndian.Uint64(e[80:88]),
		})
	}
	return out, nil
}
