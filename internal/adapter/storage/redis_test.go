package storage

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/purchase-lifecycle/internal/core/domain"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client, mr
}

func TestRedisCartRepository(t *testing.T) {
	client, _ := setupTestRedis(t)
	testCartRepository(t, NewRedisCartRepository(client))
}

func TestRedisCartRepository_StoresVersionedHash(t *testing.T) {
	client, mr := setupTestRedis(t)
	repo := NewRedisCartRepository(client)
	ctx := context.Background()

	cart := newCart(t, "customer-1", "p1")
	require.NoError(t, repo.Save(ctx, cart))

	key := cartKey(cart.ID().String())
	assert.Equal(t, "1", mr.HGet(key, "version"))
	assert.Contains(t, mr.HGet(key, "data"), `"product_id":"p1"`)

	members, err := mr.Members(customerCartsKey("customer-1"))
	require.NoError(t, err)
	assert.Equal(t, []string{cart.ID().String()}, members)
}

func TestRedisCartRepository_SkipsDanglingIndexEntries(t *testing.T) {
	client, mr := setupTestRedis(t)
	repo := NewRedisCartRepository(client)
	ctx := context.Background()

	cart := newCart(t, "customer-1", "p1")
	require.NoError(t, repo.Save(ctx, cart))
	mr.Del(cartKey(cart.ID().String()))

	carts, err := repo.FindByCustomerID(ctx, cart.CustomerID())
	require.NoError(t, err)
	assert.Empty(t, carts)
}

func TestRedisCartRepository_ConcurrentSavesOneWins(t *testing.T) {
	client, _ := setupTestRedis(t)
	repo := NewRedisCartRepository(client)
	ctx := context.Background()

	cart := newCart(t, "customer-1", "p1")
	require.NoError(t, repo.Save(ctx, cart))

	copies := make([]*domain.ShoppingCart, 10)
	for i := range copies {
		c, err := repo.FindByID(ctx, cart.ID())
		require.NoError(t, err)
		copies[i] = c
	}

	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
	)
	for _, c := range copies {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if repo.Save(ctx, c) == nil {
				succeeded.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), succeeded.Load())
}

func TestRedisLocker_ExclusiveUntilReleased(t *testing.T) {
	client, mr := setupTestRedis(t)
	locker := NewRedisLocker(client, time.Minute)
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "lock:cart:1")
	require.NoError(t, err)
	assert.True(t, mr.Exists("lock:cart:1"))

	short, cancel := context.WithTimeout(ctx, 60*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(short, "lock:cart:1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	assert.False(t, mr.Exists("lock:cart:1"))

	again, err := locker.Lock(ctx, "lock:cart:1")
	require.NoError(t, err)
	again()
}

func TestRedisLocker_ReleaseKeepsForeignToken(t *testing.T) {
	client, mr := setupTestRedis(t)
	locker := NewRedisLocker(client, time.Second)
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "lock:order:1")
	require.NoError(t, err)

	// the lock expired and another holder took it
	mr.FastForward(2 * time.Second)
	require.NoError(t, mr.Set("lock:order:1", "someone-else"))

	unlock()
	value, err := mr.Get("lock:order:1")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", value)
}

func TestRedisLocker_WaitsForHolder(t *testing.T) {
	client, _ := setupTestRedis(t)
	locker := NewRedisLocker(client, time.Minute)
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "k")
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		next, err := locker.Lock(ctx, "k")
		if err == nil {
			next()
		}
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("second lock acquired while held")
	case <-time.After(80 * time.Millisecond):
	}
	unlock()

	select {
	case <-acquired:
	case <-time.After(2 * time.Second):
		t.Fatal("second lock never acquired")
	}
}
