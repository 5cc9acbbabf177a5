package decode

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildSlabBuffer assembles a raw account buffer: 13-byte prefix, header,
// a node array, and a 7-byte suffix, mirroring the on-chain framing.
func buildSlabBuffer(rootNode uint32, leafCount uint64, nodes [][]byte) []byte {
	buf := make([]byte, slabPrefixBytes+slabHeaderSize+len(nodes)*nodeSize+slabSuffixBytes)
	off := slabPrefixBytes
	// header: bump_index, free_list_len, free_list_head, root_node, leaf_count
	binary.LittleEndian.PutUint64(buf[off:off+8], 0)
	binary.LittleEndian.PutUint64(buf[off+8:off+16], 0)
	binary.LittleEndian.PutUint32(buf[off+16:off+20], 0)
	binary.LittleEndian.PutUint32(buf[off+20:off+24], rootNode)
	binary.LittleEndian.PutUint64(buf[off+24:off+32], leafCount)
	off += slabHeaderSize
	for _, n := range nodes {
		copy(buf[off:off+nodeSize], n)
		off += nodeSize
	}
	return buf
}

func leafNodeBytes(priceLots, quantity uint64, ownerSlot uint8) []byte {
	b := make([]byte, nodeSize)
	binary.LittleEndian.PutUint32(b[0:4], uint32(tagLeaf))
	b[4] = ownerSlot
	binary.LittleEndian.PutUint64(b[16:24], priceLots)
	binary.LittleEndian.PutUint64(b[56:64], quantity)
	return b
}

func innerNodeBytes(left, right uint32) []byte {
	b := make([]byte, nodeSize)
	binary.LittleEndian.PutUint32(b[0:4], uint32(tagInner))
	binary.LittleEndian.PutUint32(b[24:28], left)
	binary.LittleEndian.PutUint32(b[28:32], right)
	return b
}

func TestSlabTraverseSingleLeaf(t *testing.T) {
	nodes := [][]byte{leafNodeBytes(100, 5, 2)}
	raw := buildSlabBuffer(0, 1, nodes)

	s, err := NewSlab(raw)
	require.NoError(t, err)

	leaves, err := s.Traverse(false)
	require.NoError(t, err)
	require.Len(t, leaves, 1)
	assert.Equal(t, uint64(100), leaves[0].Price())
	assert.Equal(t, uint64(5), leaves[0].Quantity128())
	assert.Equal(t, uint8(2), leaves[0].OwnerSlot)
}

func TestSlabTraverseOrderingAscendingAndDescending(t *testing.T) {
	// root -> inner(left=leaf@1 price 10, right=leaf@2 price 20)
	nodes := [][]byte{
		innerNodeBytes(1, 2),
		leafNodeBytes(10, 1, 0),
		leafNodeBytes(20, 1, 0),
	}
	raw := buildSlabBuffer(0, 2, nodes)
	s, err := NewSlab(raw)
	require.NoError(t, err)

	asc, err := s.Traverse(false)
	require.NoError(t, err)
	require.Len(t, asc, 2)
	assert.Equal(t, uint64(10), asc[0].Price())
	assert.Equal(t, uint64(20), asc[1].Price())

	desc, err := s.Traverse(true)
	require.NoError(t, err)
	require.Len(t, desc, 2)
	assert.Equal(t, uint64(20), desc[0].Price())
	assert.Equal(t, uint64(10), desc[1].Price())
}

func TestSlabTraverseEmptyTree(t *testing.T) {
	raw := buildSlabBuffer(0, 0, nil)
	s, err := NewSlab(raw)
	require.NoError(t, err)

	leaves, err := s.Traverse(false)
	require.NoError(t, err)
	assert.Empty(t, leaves)
}

func TestSlabTraverseRejectsOutOfRangeHandle(t *testing.T) {
	nodes := [][]byte{innerNodeBytes(1, 2)} // children point past the 1-node array
	raw := buildSlabBuffer(0, 1, nodes)
	s, err := NewSlab(raw)
	require.NoError(t, err)

	_, err = s.Traverse(false)
	assert.Error(t, err)
}

func TestSlabTraverseRejectsLeafCountMismatch(t *testing.T) {
	nodes := [][]byte{leafNodeBytes(1, 1, 0)}
	raw := buildSlabBuffer(0, 2, nodes) // header claims 2 leaves, tree has 1
	s, err := NewSlab(raw)
	require.NoError(t, err)

	_, err = s.Traverse(false)
	assert.Error(t, err)
}

func TestNewSlabRejectsShortBuffer(t *testing.T) {
	_, err := NewSlab(make([]byte, 10))
	assert.Error(t, err)
}
