package rediscache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	srv, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(srv.Close)
	rdb := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	return New(rdb), srv
}

func TestCacheSetGetRoundTrips(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v"))
	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, "v", got)
}

func TestCacheGetMissingKeyReturnsEmptyNoError(t *testing.T) {
	c, _ := newTestCache(t)
	got, err := c.Get(context.Background(), "nope")
	require.NoError(t, err)
	require.Equal(t, "", got)
}

func TestCacheSAddSMembers(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.SAdd(ctx, "markets", "sol-usdc", "eth-usdc"))
	members, err := c.SMembers(ctx, "markets")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"sol-usdc", "eth-usdc"}, members)
}

func TestCacheHSetHGetAllHDel(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.HSet(ctx, "market_info:sol-usdc", map[string]string{
		"name":           "SOL/USDC",
		"base_decimals":  "9",
		"quote_decimals": "6",
	}))
	fields, err := c.HGetAll(ctx, "market_info:sol-usdc")
	require.NoError(t, err)
	require.Equal(t, "SOL/USDC", fields["name"])

	require.NoError(t, c.HDel(ctx, "market_info:sol-usdc", "name"))
	fields, err = c.HGetAll(ctx, "market_info:sol-usdc")
	require.NoError(t, err)
	_, ok := fields["name"]
	require.False(t, ok)
}

func TestCacheHSetEmptyValuesIsANoOp(t *testing.T) {
	c, _ := newTestCache(t)
	require.NoError(t, c.HSet(context.Background(), "unused", nil))
}

func TestCacheLPushLRangeLTrim(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.LPush(ctx, "last_trade_data:sol-usdc", "t3", "t2", "t1"))
	vals, err := c.LRange(ctx, "last_trade_data:sol-usdc", 0, -1)
	require.NoError(t, err)
	require.Equal(t, []string{"t1", "t2", "t3"}, vals)

	require.NoError(t, c.LTrim(ctx, "last_trade_data:sol-usdc", 0, 0))
	vals, err = c.LRange(ctx, "last_trade_data:sol-usdc", 0, -1)
	require.NoError(t, err)
	require.Equal(t, []string{"t1"}, vals)
}

func TestCacheDel(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", "1"))
	require.NoError(t, c.Set(ctx, "b", "2"))
	require.NoError(t, c.Del(ctx, "a", "b"))

	got, err := c.Get(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, "", got)
}

func TestCacheDelNoKeysIsANoOp(t *testing.T) {
	c, _ := newTestCache(t)
	require.NoError(t, c.Del(context.Background()))
}
