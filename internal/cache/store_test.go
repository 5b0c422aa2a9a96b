package cache

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisPriceStoreGet(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewRedisPriceStore(client)

	mock.ExpectGet("slothfinance:price:BTC").SetVal("64250.12")

	price, ok, err := store.Get(context.Background(), "BTC")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 64250.12, price)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisPriceStoreGetMiss(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewRedisPriceStore(client)

	mock.ExpectGet("slothfinance:price:ETH").RedisNil()

	_, ok, err := store.Get(context.Background(), "ETH")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisPriceStoreGetGarbageValue(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewRedisPriceStore(client)

	mock.ExpectGet("slothfinance:price:ETH").SetVal("not-a-price")

	_, ok, err := store.Get(context.Background(), "ETH")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestRedisPriceStoreSet(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewRedisPriceStore(client)

	mock.ExpectSet("slothfinance:price:SOL", "142.5", 300*time.Second).SetVal("OK")

	err := store.Set(context.Background(), "SOL", 142.5, 300*time.Second)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
