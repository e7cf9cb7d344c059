package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/rl1809/purchase-lifecycle/internal/core/domain"
	"github.com/rl1809/purchase-lifecycle/internal/port"
)

// MemoryCartRepository keeps cart snapshots in process memory.
type MemoryCartRepository struct {
	mu    sync.RWMutex
	carts map[domain.CartID]domain.CartSnapshot
}

func NewMemoryCartRepository() *MemoryCartRepository {
	return &MemoryCartRepository{carts: make(map[domain.CartID]domain.CartSnapshot)}
}

func (r *MemoryCartRepository) Save(_ context.Context, cart *domain.ShoppingCart) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, exists := r.carts[cart.ID()]
	if exists && current.Version != cart.Version() || !exists && cart.Version() != 0 {
		return port.ErrConcurrentModification
	}
	next := cart.Version() + 1
	snapshot := cart.Snapshot()
	snapshot.Version = next
	r.carts[cart.ID()] = snapshot
	cart.SetVersion(next)
	return nil
}

func (r *MemoryCartRepository) FindByID(_ context.Context, id domain.CartID) (*domain.ShoppingCart, error) {
	r.mu.RLock()
	snapshot, ok := r.carts[id]
	r.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return domain.RebuildShoppingCart(snapshot)
}

func (r *MemoryCartRepository) FindByCustomerID(_ context.Context, customerID domain.CustomerID) ([]*domain.ShoppingCart, error) {
	r.mu.RLock()
	var snapshots []domain.CartSnapshot
	for _, s := range r.carts {
		if s.CustomerID == customerID.String() {
			snapshots = append(snapshots, s)
		}
	}
	r.mu.RUnlock()

	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].CreatedAt.Before(snapshots[j].CreatedAt)
	})
	carts := make([]*domain.ShoppingCart, 0, len(snapshots))
	for _, s := range snapshots {
		cart, err := domain.RebuildShoppingCart(s)
		if err != nil {
			return nil, err
		}
		carts = append(carts, cart)
	}
	return carts, nil
}

func (r *MemoryCartRepository) Delete(_ context.Context, id domain.CartID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.carts, id)
	return nil
}

// MemoryOrderRepository keeps order snapshots in process memory.
type MemoryOrderRepository struct {
	mu     sync.RWMutex
	orders map[domain.OrderID]domain.OrderSnapshot
	byCart map[domain.CartID]domain.OrderID
}

func NewMemoryOrderRepository() *MemoryOrderRepository {
	return &MemoryOrderRepository{
		orders: make(map[domain.OrderID]domain.OrderSnapshot),
		byCart: make(map[domain.CartID]domain.OrderID),
	}
}

func (r *MemoryOrderRepository) Save(_ context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, exists := r.orders[order.ID()]
	if exists && current.Version != order.Version() || !exists && order.Version() != 0 {
		return port.ErrConcurrentModification
	}
	if owner, taken := r.byCart[order.CartID()]; taken && owner != order.ID() {
		return port.ErrConcurrentModification
	}
	next := order.Version() + 1
	snapshot := order.Snapshot()
	snapshot.Version = next
	r.orders[order.ID()] = snapshot
	r.byCart[order.CartID()] = order.ID()
	order.SetVersion(next)
	return nil
}

func (r *MemoryOrderRepository) FindByID(_ context.Context, id domain.OrderID) (*domain.Order, error) {
	r.mu.RLock()
	snapshot, ok := r.orders[id]
	r.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return domain.RebuildOrder(snapshot)
}

func (r *MemoryOrderRepository) FindByCartID(ctx context.Context, cartID domain.CartID) (*domain.Order, error) {
	r.mu.RLock()
	id, ok := r.byCart[cartID]
	r.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return r.FindByID(ctx, id)
}

// MemoryLocker serializes callers per key within one process.
type MemoryLocker struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	held chan struct{}
	refs int
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{locks: make(map[string]*keyLock)}
}

func (l *MemoryLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	kl, ok := l.locks[key]
	if !ok {
		kl = &keyLock{held: make(chan struct{}, 1)}
		l.locks[key] = kl
	}
	kl.refs++
	l.mu.Unlock()

	select {
	case kl.held <- struct{}{}:
	case <-ctx.Done():
		l.release(key, kl)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-kl.held
			l.release(key, kl)
		})
	}, nil
}

func (l *MemoryLocker) release(key string, kl *keyLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	kl.refs--
	if kl.refs == 0 {
		delete(l.locks, key)
	}
}
