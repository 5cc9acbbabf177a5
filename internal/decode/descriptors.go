package decode

import (
	"encoding/binary"

	"github.com/mr-tron/base58"

	"github.com/chainfeed/ingestd/internal/ingesterr"
)

// PubkeyFromWords reverses the on-chain convention of storing a 32-byte
// pubkey as four little-endian u64 words: each word is re-expanded into its
// original 8-byte slot, recovering the opaque address bytes regardless of
// the words' numeric value.
func PubkeyFromWords(words [4]uint64) [32]byte {
	var out [32]byte
	for i, w := range words {
		binary.LittleEndian.PutUint64(out[i*8:i*8+8], w)
	}
	return out
}

// AddressString base58-encodes a 32-byte on-chain address, matching
// Pubkey::to_string()'s wire form so decoded addresses can be compared
// against the strings an update stream reports.
func AddressString(addr [32]byte) string {
	return base58.Encode(addr[:])
}

// AddressBytes decodes a base58 address string back into its raw 32-byte
// form, needed to build program-derived-address seeds.
func AddressBytes(address string) ([32]byte, error) {
	var out [32]byte
	raw, err := base58.Decode(address)
	if err != nil {
		return out, ingesterr.Wrap(err, ingesterr.ErrDecodeMalformed, "decode base58 address")
	}
	if len(raw) != 32 {
		return out, ingesterr.Newf(ingesterr.ErrDecodeMalformed, "address decodes to %d bytes, want 32", len(raw))
	}
	copy(out[:], raw)
	return out, nil
}

func readWords4(b []byte) [4]uint64 {
	var w [4]uint64
	for i := range w {
		w[i] = binary.LittleEndian.Uint64(b[i*8 : i*8+8])
	}
	return w
}

const (
	obMarketStatePrefixBytes = 5
	obMarketStateSize        = 47 * 8 // 47 u64-sized words, see field layout below
)

// ObMarketDescriptor is the subset of an OpenBook-style market account this
// engine needs to resolve bids/asks/event-queue addresses and lot sizes.
// Field offsets are counted in 8-byte words.
type ObMarketDescriptor struct {
	OwnAddress  [32]byte
	CoinMint    [32]byte
	PcMint      [32]byte
	EventQueue  [32]byte
	Bids        [32]byte
	Asks        [32]byte
	CoinLotSize uint64
	PcLotSize   uint64
}

// ParseObMarketState decodes a serum/OpenBook market account, skipping its
// 5-byte framing prefix.
func ParseObMarketState(data []byte) (ObMarketDescriptor, error) {
	if len(data) < obMarketStatePrefixBytes+obMarketStateSize {
		return ObMarketDescriptor{}, ingesterr.New(ingesterr.ErrDecodeMalformed, "ob market state buffer too short")
	}
	b := data[obMarketStatePrefixBytes:]

	word := func(idx int) []byte { return b[idx*8 : idx*8+8] }
	words4 := func(idx int) [4]uint64 { return readWords4(b[idx*8 : (idx+4)*8]) }

	return ObMarketDescriptor{
		OwnAddress:  PubkeyFromWords(words4(1)),
		CoinMint:    PubkeyFromWords(words4(6)),
		PcMint:      PubkeyFromWords(words4(10)),
		EventQueue:  PubkeyFromWords(words4(31)),
		Bids:        PubkeyFromWords(words4(35)),
		Asks:        PubkeyFromWords(words4(39)),
		CoinLotSize: binary.LittleEndian.Uint64(word(43)),
		PcLotSize:   binary.LittleEndian.Uint64(word(44)),
	}, nil
}

const (
	mintAccountSize    = 82
	mintDecimalsOffset = 44 // 4-byte authority option + 32-byte authority + 8-byte supply
)

// ParseMintDecimals reads the decimals exponent out of an SPL token mint
// account, used to populate base/quote decimals for OB markets at startup.
func ParseMintDecimals(data []byte) (uint8, error) {
	if len(data) < mintAccountSize {
		return 0, ingesterr.New(ingesterr.ErrDecodeMalformed, "mint account buffer too short")
	}
	return data[mintDecimalsOffset], nil
}

// GdMarketDescriptor is the borsh-serialized set of addresses a GigaDex
// market account points to.
type GdMarketDescriptor struct {
	Mint      [32]byte
	Balances  [32]byte
	WsolVault [32]byte
	LotVault  [32]byte
	Asks      [32]byte
	Bids      [32]byte
}

const gdMarketStateSize = 6 * 32

// ParseGdMarketState decodes a GigaDex market account, skipping the 8-byte
// Anchor discriminator.
func ParseGdMarketState(data []byte) (GdMarketDescriptor, error) {
	if len(data) < gdDiscriminatorSize+gdMarketStateSize {
		return GdMarketDescriptor{}, ingesterr.New(ingesterr.ErrDecodeMalformed, "gd market state buffer too short")
	}
	b := data[gdDiscriminatorSize:]

	var pk [6][32]byte
	for i := range pk {
		copy(pk[i][:], b[i*32:(i+1)*32])
	}

	return GdMarketDescriptor{
		Mint:      pk[0],
		Balances:  pk[1],
		WsolVault: pk[2],
		LotVault:  pk[3],
		Asks:      pk[4],
		Bids:      pk[5],
	}, nil
}
