package cache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/seat-booking-service/internal/config"
	"github.com/iliyamo/seat-booking-service/internal/model"
)

var testCfg = config.SeatCacheConfig{Enabled: true, TTL: 5 * time.Second, Prefix: "seats:available"}

func TestNewSeatCacheDisabled(t *testing.T) {
	rdb, _ := redismock.NewClientMock()
	assert.Nil(t, NewSeatCache(nil, testCfg, nil))
	assert.Nil(t, NewSeatCache(rdb, config.SeatCacheConfig{Enabled: false}, nil))

	var c *SeatCache
	_, ok := c.Generation(context.Background(), 7)
	assert.False(t, ok, "nil cache has no generation")
	_, ok = c.Get(context.Background(), 7, "0.0")
	assert.False(t, ok, "nil cache always misses")
	c.Set(context.Background(), 7, "0.0", nil)
	c.Invalidate(context.Background(), 7)
	c.InvalidateAll(context.Background())
}

func TestSeatCacheGeneration(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	c := NewSeatCache(rdb, testCfg, nil)

	mock.ExpectMGet("seats:available:epoch", "seats:available:7:ver").SetVal([]interface{}{nil, nil})
	mock.ExpectMGet("seats:available:epoch", "seats:available:7:ver").SetVal([]interface{}{"2", "5"})
	mock.ExpectMGet("seats:available:epoch", "seats:available:7:ver").SetErr(errors.New("connection refused"))

	gen, ok := c.Generation(context.Background(), 7)
	require.True(t, ok)
	assert.Equal(t, "0.0", gen)

	gen, ok = c.Generation(context.Background(), 7)
	require.True(t, ok)
	assert.Equal(t, "2.5", gen)

	_, ok = c.Generation(context.Background(), 7)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSeatCacheRoundTrip(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	c := NewSeatCache(rdb, testCfg, nil)
	seats := []model.Seat{{ID: 1, ResourceID: 7, Label: "A1", Status: model.SeatAvailable}}
	raw, err := json.Marshal(seats)
	require.NoError(t, err)

	mock.ExpectSet("seats:available:7:0.3", string(raw), 5*time.Second).SetVal("OK")
	mock.ExpectGet("seats:available:7:0.3").SetVal(string(raw))

	c.Set(context.Background(), 7, "0.3", seats)
	got, ok := c.Get(context.Background(), 7, "0.3")

	require.True(t, ok)
	assert.Equal(t, "A1", got[0].Label)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// A list that read the database before a lock must not be served after it.
func TestSeatCacheFillAfterInvalidateIsUnreachable(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	c := NewSeatCache(rdb, testCfg, nil)
	ctx := context.Background()
	stale := []model.Seat{{ID: 1, ResourceID: 7, Label: "A1", Status: model.SeatAvailable}}
	raw, err := json.Marshal(stale)
	require.NoError(t, err)

	// reader takes the generation, then the seat is locked, then the reader fills
	mock.ExpectMGet("seats:available:epoch", "seats:available:7:ver").SetVal([]interface{}{nil, "3"})
	mock.ExpectIncr("seats:available:7:ver").SetVal(4)
	mock.ExpectExpire("seats:available:7:ver", versionTTL).SetVal(true)
	mock.ExpectSet("seats:available:7:0.3", string(raw), 5*time.Second).SetVal("OK")
	// the next reader sees the bumped version and misses
	mock.ExpectMGet("seats:available:epoch", "seats:available:7:ver").SetVal([]interface{}{nil, "4"})
	mock.ExpectGet("seats:available:7:0.4").RedisNil()

	gen, ok := c.Generation(ctx, 7)
	require.True(t, ok)
	c.Invalidate(ctx, 7)
	c.Set(ctx, 7, gen, stale)

	next, ok := c.Generation(ctx, 7)
	require.True(t, ok)
	assert.NotEqual(t, gen, next)
	_, hit := c.Get(ctx, 7, next)
	assert.False(t, hit)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSeatCacheMissAndError(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	c := NewSeatCache(rdb, testCfg, nil)

	mock.ExpectGet("seats:available:7:0.0").RedisNil()
	mock.ExpectGet("seats:available:8:0.0").SetErr(errors.New("connection refused"))

	_, ok := c.Get(context.Background(), 7, "0.0")
	assert.False(t, ok)
	_, ok = c.Get(context.Background(), 8, "0.0")
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSeatCacheInvalidateAllBumpsEpoch(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	c := NewSeatCache(rdb, testCfg, nil)

	mock.ExpectIncr("seats:available:epoch").SetVal(1)
	c.InvalidateAll(context.Background())
	assert.NoError(t, mock.ExpectationsWereMet())
}
