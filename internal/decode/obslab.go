// Package decode interprets the raw account bytes of the four on-chain
// layouts this engine consumes: the OpenBook-style critbit slab (this
// file), the GigaDex order tree, the GigaDex balance table, and the trade
// log append record.
package decode

import (
	"encoding/binary"

	"github.com/chainfeed/ingestd/internal/ingesterr"
)

const (
	nodeSize         = 72
	slabHeaderSize   = 32 // 8+8+4+4+8, repr(packed) with no alignment padding
	slabPrefixBytes  = 13
	slabSuffixBytes  = 7
)

type nodeTag uint32

const (
	tagUninitialized nodeTag = 0
	tagInner         nodeTag = 1
	tagLeaf          nodeTag = 2
	tagFree          nodeTag = 3
	tagLastFree      nodeTag = 4
)

// LeafNode is a resting order in the OB critbit slab.
type LeafNode struct {
	OwnerSlot     uint8
	FeeTier       uint8
	Owner         [4]uint64
	Quantity      uint64
	ClientOrderID uint64
	priceLots     uint64
}

// Price returns the order's price in lots (the upper 64 bits of the leaf's
// 128-bit key).
func (l LeafNode) Price() uint64 { return l.priceLots }

// Quantity128 returns the leaf's resting quantity in lots.
func (l LeafNode) Quantity128() uint64 { return l.Quantity }

// Slab is a read-only view over a decoded OB critbit tree account.
type Slab struct {
	rootNode  uint32
	leafCount uint64
	nodes     []byte // nodeSize-aligned, header already stripped
}

// NewSlab frames and validates raw account bytes into a Slab, per the
// buffer-framing contract: skip a 13-byte prefix and 7-byte suffix, then
// truncate the remainder (after the header) to a whole number of nodes.
func NewSlab(raw []byte) (*Slab, error) {
	if len(raw) < slabPrefixBytes+slabSuffixBytes+slabHeaderSize {
		return nil, ingesterr.New(ingesterr.ErrDecodeMalformed, "slab buffer too short")
	}

	dataEnd := len(raw) - slabSuffixBytes
	body := raw[slabPrefixBytes:dataEnd]
	if len(body) < slabHeaderSize {
		return nil, ingesterr.New(ingesterr.ErrDecodeMalformed, "slab body shorter than header")
	}

	header := body[:slabHeaderSize]
	nodesBytes := body[slabHeaderSize:]
	slop := len(nodesBytes) % nodeSize
	nodesBytes = nodesBytes[:len(nodesBytes)-slop]

	rootNode := binary.LittleEndian.Uint32(header[20:24])
	leafCount := binary.LittleEndian.Uint64(header[24:32])

	return &Slab{rootNode: rootNode, leafCount: leafCount, nodes: nodesBytes}, nil
}

func (s *Slab) nodeCount() int { return len(s.nodes) / nodeSize }

func (s *Slab) nodeBytes(handle uint32) ([]byte, bool) {
	idx := int(handle)
	if idx < 0 || idx >= s.nodeCount() {
		return nil, false
	}
	return s.nodes[idx*nodeSize : (idx+1)*nodeSize], true
}

func (s *Slab) tagAt(handle uint32) (nodeTag, []byte, bool) {
	b, ok := s.nodeBytes(handle)
	if !ok {
		return 0, nil, false
	}
	return nodeTag(binary.LittleEndian.Uint32(b[0:4])), b, true
}

func leafFromBytes(b []byte) LeafNode {
	return LeafNode{
		OwnerSlot: b[4],
		FeeTier:   b[5],
		priceLots: binary.LittleEndian.Uint64(b[16:24]),
		Owner: [4]uint64{
			binary.LittleEndian.Uint64(b[24:32]),
			binary.LittleEndian.Uint64(b[32:40]),
			binary.LittleEndian.Uint64(b[40:48]),
			binary.LittleEndian.Uint64(b[48:56]),
		},
		Quantity:      binary.LittleEndian.Uint64(b[56:64]),
		ClientOrderID: binary.LittleEndian.Uint64(b[64:72]),
	}
}

// Traverse walks the tree from the root, yielding leaves in ascending key
// order (descending=false) or descending key order (descending=true). The
// result length equals the header's leaf_count when the tree is well formed.
func (s *Slab) Traverse(descending bool) ([]LeafNode, error) {
	out := make([]LeafNode, 0, s.leafCount)
	if s.leafCount == 0 {
		return out, nil
	}

	var walk func(handle uint32, depth int) error
	walk = func(handle uint32, depth int) error {
		if depth > s.nodeCount()+1 {
			return ingesterr.New(ingesterr.ErrDecodeMalformed, "slab traversal exceeded node count, possible cycle")
		}
		tag, b, ok := s.tagAt(handle)
		if !ok {
			return ingesterr.Newf(ingesterr.ErrDecodeMalformed, "slab node handle %d out of range", handle)
		}
		switch tag {
		case tagLeaf:
			out = append(out, leafFromBytes(b))
			return nil
		case tagInner:
			left := binary.LittleEndian.Uint32(b[24:28])
			right := binary.LittleEndian.Uint32(b[28:32])
			if descending {
				if err := walk(right, depth+1); err != nil {
					return err
				}
				return walk(left, depth+1)
			}
			if err := walk(left, depth+1); err != nil {
				return err
			}
			return walk(right, depth+1)
		default:
			return ingesterr.Newf(ingesterr.ErrDecodeMalformed, "slab node %d has non-inner/leaf tag %d", handle, tag)
		}
	}

	if err := walk(s.rootNode, 0); err != nil {
		return nil, err
	}
	if uint64(len(out)) != s.leafCount {
		return nil, ingesterr.Newf(ingesterr.ErrDecodeMalformed, "slab traversal yielded %d leaves, header says %d", len(out), s.leafCount)
	}
	return out, nil
}
