package decode

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainfeed/ingestd/internal/ingesterr"
)

func buildEventQueue(t *testing.T, head, count uint64, slots [][]byte) []byte {
	t.Helper()
	capacity := len(slots)
	buf := make([]byte, eventQueuePrefixBytes+eventQueueHeaderSize+capacity*eventSize+slabSuffixBytes)
	dataEnd := len(buf) - slabSuffixBytes
	body := buf[eventQueuePrefixBytes:dataEnd]

	// account_flags occupies body[0:8]; head and count follow.
	binary.LittleEndian.PutUint64(body[8:16], head)
	binary.LittleEndian.PutUint64(body[16:24], count)

	slotBytes := body[eventQueueHeaderSize:]
	for i, s := range slots {
		copy(slotBytes[i*eventSize:(i+1)*eventSize], s)
	}
	return buf
}

func fillSlot(flags byte, qtyReleased, qtyPaid, fee, orderLo, orderHi, clientOrderID uint64) []byte {
	e := make([]byte, eventSize)
	e[0] = flags
	binary.LittleEndian.PutUint64(e[8:16], qtyReleased)
	binary.LittleEndian.PutUint64(e[16:24], qtyPaid)
	binary.LittleEndian.PutUint64(e[24:32], fee)
	binary.LittleEndian.PutUint64(e[32:40], orderLo)
	binary.LittleEndian.PutUint64(e[40:48], orderHi)
	binary.LittleEndian.PutUint64(e[80:88], clientOrderID)
	return e
}

func TestParseObEventQueueRejectsShortBuffer(t *testing.T) {
	_, err := ParseObEventQueue(make([]byte, 10))

	require.Error(t, err)
	assert.Equal(t, ingesterr.ErrDecodeMalformed, ingesterr.GetCode(err))
}

func TestParseObEventQueueSkipsNonFillEvents(t *testing.T) {
	fill := fillSlot(eventFlagFill|eventFlagBid|eventFlagMaker, 100, 200, 1, 10, 0, 42)
	cancel := fillSlot(eventFlagOut, 0, 0, 0, 0, 0, 0)
	buf := buildEventQueue(t, 0, 2, [][]byte{fill, cancel})

	events, err := ParseObEventQueue(buf)

	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.True(t, events[0].IsBid)
	assert.True(t, events[0].IsMaker)
	assert.Equal(t, uint64(100), events[0].NativeQtyReleased)
	assert.Equal(t, uint64(200), events[0].NativeQtyPaid)
	assert.Equal(t, uint64(1), events[0].NativeFeeOrRebate)
	assert.Equal(t, [2]uint64{10, 0}, events[0].OrderID)
	assert.Equal(t, uint64(42), events[0].ClientOrderID)
}

func TestParseObEventQueueHonorsHeadWraparound(t *testing.T) {
	first := fillSlot(eventFlagFill, 1, 0, 0, 0, 0, 1)
	second := fillSlot(eventFlagFill, 2, 0, 0, 0, 0, 2)
	// head=1, count=2 reads slot 1 then wraps to slot 0.
	buf := buildEventQueue(t, 1, 2, [][]byte{first, second})

	events, err := ParseObEventQueue(buf)

	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, uint64(2), events[0].ClientOrderID)
	assert.Equal(t, uint64(1), events[1].ClientOrderID)
}

func TestParseObEventQueueRejectsCountExceedingCapacity(t *testing.T) {
	slot := fillSlot(eventFlagFill, 0, 0, 0, 0, 0, 0)
	buf := buildEventQueue(t, 0, 5, [][]byte{slot})

	_, err := ParseObEventQueue(buf)

	require.Error(t, err)
	assert.Equal(t, ingesterr.ErrDecodeMalformed, ingesterr.GetCode(err))
}
