package decode

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainfeed/ingestd/internal/ingesterr"
)

func TestPubkeyFromWordsRoundTripsThroughAddressString(t *testing.T) {
	words := [4]uint64{1, 2, 3, 4}
	addr := PubkeyFromWords(words)

	s := AddressString(addr)
	got, err := AddressBytes(s)

	require.NoError(t, err)
	assert.Equal(t, addr, got)
}

func TestAddressBytesRejectsInvalidBase58(t *testing.T) {
	_, err := AddressBytes("not-valid-base58-!!!")

	require.Error(t, err)
	assert.Equal(t, ingesterr.ErrDecodeMalformed, ingesterr.GetCode(err))
}

func TestAddressBytesRejectsWrongLength(t *testing.T) {
	_, err := AddressBytes(AddressString([32]byte{})[:4])

	require.Error(t, err)
	assert.Equal(t, ingesterr.ErrDecodeMalformed, ingesterr.GetCode(err))
}

func TestParseObMarketStateRejectsShortBuffer(t *testing.T) {
	_, err := ParseObMarketState(make([]byte, 10))

	require.Error(t, err)
	assert.Equal(t, ingesterr.ErrDecodeMalformed, ingesterr.GetCode(err))
}

func TestParseObMarketStateExtractsAddressesAndLotSizes(t *testing.T) {
	buf := make([]byte, obMarketStatePrefixBytes+obMarketStateSize)
	b := buf[obMarketStatePrefixBytes:]

	putWords4 := func(idx int, words [4]uint64) {
		for i, w := range words {
			binary.LittleEndian.PutUint64(b[(idx+i)*8:(idx+i)*8+8], w)
		}
	}
	putWords4(1, [4]uint64{10, 11, 12, 13})  // OwnAddress
	putWords4(6, [4]uint64{20, 21, 22, 23})  // CoinMint
	putWords4(10, [4]uint64{30, 31, 32, 33}) // PcMint
	putWords4(31, [4]uint64{40, 41, 42, 43}) // EventQueue
	putWords4(35, [4]uint64{50, 51, 52, 53}) // Bids
	putWords4(39, [4]uint64{60, 61, 62, 63}) // Asks
	binary.LittleEndian.PutUint64(b[43*8:43*8+8], 100)
	binary.LittleEndian.PutUint64(b[44*8:44*8+8], 200)

	desc, err := ParseObMarketState(buf)

	require.NoError(t, err)
	assert.Equal(t, PubkeyFromWords([4]uint64{10, 11, 12, 13}), desc.OwnAddress)
	assert.Equal(t, PubkeyFromWords([4]uint64{20, 21, 22, 23}), desc.CoinMint)
	assert.Equal(t, PubkeyFromWords([4]uint64{30, 31, 32, 33}), desc.PcMint)
	assert.Equal(t, PubkeyFromWords([4]uint64{40, 41, 42, 43}), desc.EventQueue)
	assert.Equal(t, PubkeyFromWords([4]uint64{50, 51, 52, 53}), desc.Bids)
	assert.Equal(t, PubkeyFromWords([4]uint64{60, 61, 62, 63}), desc.Asks)
	assert.Equal(t, uint64(100), desc.CoinLotSize)
	assert.Equal(t, uint64(200), desc.PcLotSize)
}

func TestParseMintDecimals(t *testing.T) {
	buf := make([]byte, mintAccountSize)
	buf[mintDecimalsOffset] = 9

	decimals, err := ParseMintDecimals(buf)

	require.NoError(t, err)
	assert.Equal(t, uint8(9), decimals)
}

func TestParseMintDecimalsRejectsShortBuffer(t *testing.T) {
	_, err := ParseMintDecimals(make([]byte, 40))

	require.Error(t, err)
	assert.Equal(t, ingesterr.ErrDecodeMalformed, ingesterr.GetCode(err))
}

func TestParseGdMarketStateRejectsShortBuffer(t *testing.T) {
	_, err := ParseGdMarketState(make([]byte, 10))

	require.Error(t, err)
	assert.Equal(t, ingesterr.ErrDecodeMalformed, ingesterr.GetCode(err))
}

func TestParseGdMarketStateExtractsEachAddress(t *testing.T) {
	buf := make([]byte, gdDiscriminatorSize+gdMarketStateSize)
	body := buf[gdDiscriminatorSize:]

	var want [6][32]byte
	for i := range want {
		for j := range want[i] {
			want[i][j] = byte(i*32 + j)
		}
		copy(body[i*32:(i+1)*32], want[i][:])
	}

	desc, err := ParseGdMarketState(buf)

	require.NoError(t, err)
	assert.Equal(t, want[0], desc.Mint)
	assert.Equal(t, want[1], desc.Balances)
	assert.Equal(t, want[2], desc.WsolVault)
	assert.Equal(t, want[3], desc.LotVault)
	assert.Equal(t, want[4], desc.Asks)
	assert.Equal(t, want[5], desc.Bids)
}
