package decode

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildGdOrderTreeBuffer(populated map[int]GdOrder) []byte {
	buf := make([]byte, gdDiscriminatorSize+gdTreeHeaderSize+gdNodeSize*gdOrderTreeCapacity)
	nodesStart := gdDiscriminatorSize + gdTreeHeaderSize
	for idx, o := range populated {
		off := nodesStart + idx*gdNodeSize
		binary.LittleEndian.PutUint64(buf[off:off+8], o.PriceLots)
		binary.LittleEndian.PutUint64(buf[off+8:off+16], o.AmountLots)
		binary.LittleEndian.PutUint64(buf[off+16:off+24], o.UID)
	}
	return buf
}

func TestParseGdOrderTreeSkipsZeroAmountNodes(t *testing.T) {
	buf := buildGdOrderTreeBuffer(map[int]GdOrder{
		3:   {UID: 7, PriceLots: 150, AmountLots: 2},
		900: {UID: 8, PriceLots: 200, AmountLots: 0}, // zero amount, must be excluded
	})

	orders, err := ParseGdOrderTree(buf)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, GdOrder{UID: 7, PriceLots: 150, AmountLots: 2}, orders[0])
}

func TestParseGdOrderTreeRejectsShortBuffer(t *testing.T) {
	_, err := ParseGdOrderTree(make([]byte, 10))
	assert.Error(t, err)
}
