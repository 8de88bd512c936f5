package orders

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// MemStore is an in-memory Store with the same transactional contract as
// PGStore: one writer at a time, full rollback on error. Unit tests run the
// service against it; it is not meant for production use.
type MemStore struct {
	mu       sync.Mutex
	products map[string]int            // product id -> stock
	orders   map[string]*Order         // order id -> order (items kept separately)
	items    map[string]map[string]int // order id -> product id -> qty
}

func NewMemStore() *MemStore {
	return &MemStore{
		products: map[string]int{},
		orders:   map[string]*Order{},
		items:    map[string]map[string]int{},
	}
}

// PutProduct seeds or overwrites a product's stock.
func (s *MemStore) PutProduct(id string, stock int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[id] = stock
}

// ProductStock reads a product's current stock.
func (s *MemStore) ProductStock(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products[id]
}

// TotalStock sums stock across all products.
func (s *MemStore) TotalStock() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, v := range s.products {
		n += v
	}
	return n
}

// ActiveReserved sums line-item quantities across non-deleted orders.
func (s *MemStore) ActiveReserved() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for oid, lis := range s.items {
		if o, ok := s.orders[oid]; !ok || o.Status != StatusActive {
			continue
		}
		for _, qty := range lis {
			n += qty
		}
	}
	return n
}

// OrderStatus reports the stored status, or "" for an unknown id.
func (s *MemStore) OrderStatus(id string) Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o, ok := s.orders[id]; ok {
		return o.Status
	}
	return ""
}

func (s *MemStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	if err := fn(&memTx{s: s}); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

func (s *MemStore) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getOrderLocked(orderID)
}

func (s *MemStore) ListOrdersByUser(ctx context.Context, userID string, limit, offset int) ([]Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Order
	for id, o := range s.orders {
		if o.UserID != userID || o.Status != StatusActive {
			continue
		}
		c, _ := s.getOrderLocked(id)
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemStore) getOrderLocked(orderID string) (*Order, error) {
	o, ok := s.orders[orderID]
	if !ok || o.Status != StatusActive {
		return nil, ErrOrderNotFound
	}
	c := *o
	c.Items = nil
	pids := make([]string, 0, len(s.items[orderID]))
	for pid := range s.items[orderID] {
		pids = append(pids, pid)
	}
	sort.Strings(pids)
	for _, pid := range pids {
		c.Items = append(c.Items, LineItem{ProductID: pid, Qty: s.items[orderID][pid]})
	}
	return &c, nil
}

type memSnapshot struct {
	products map[string]int
	orders   map[string]Order
	items    map[string]map[string]int
}

func (s *MemStore) snapshot() memSnapshot {
	snap := memSnapshot{
		products: map[string]int{},
		orders:   map[string]Order{},
		items:    map[string]map[string]int{},
	}
	for k, v := range s.products {
		snap.products[k] = v
	}
	for k, v := range s.orders {
		snap.orders[k] = *v
	}
	for oid, lis := range s.items {
		c := map[string]int{}
		for pid, qty := range lis {
			c[pid] = qty
		}
		snap.items[oid] = c
	}
	return snap
}

func (s *MemStore) restore(snap memSnapshot) {
	s.products = snap.products
	s.orders = map[string]*Order{}
	for k := range snap.orders {
		o := snap.orders[k]
		s.orders[k] = &o
	}
	s.items = snap.items
}

type memTx struct{ s *MemStore }

func (t *memTx) FindProductsForUpdate(ctx context.Context, ids []string) (map[string]int, error) {
	out := map[string]int{}
	for _, id := range ids {
		if stock, ok := t.s.products[id]; ok {
			out[id] = stock
		}
	}
	return out, nil
}

func (t *memTx) AdjustProductStock(ctx context.Context, productID string, delta int) error {
	if _, ok := t.s.products[productID]; !ok {
		return errors.New("product vanished mid-transaction: " + productID)
	}
	t.s.products[productID] += delta
	return nil
}

func (t *memTx) InsertOrder(ctx context.Context, o *Order) error {
	c := *o
	c.Items = nil
	t.s.orders[o.ID] = &c
	t.s.items[o.ID] = map[string]int{}
	return nil
}

func (t *memTx) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	o, ok := t.s.orders[orderID]
	if !ok || o.Status != StatusActive {
		return nil, ErrOrderNotFound
	}
	c := *o
	c.Items = nil
	return &c, nil
}

func (t *memTx) MarkOrderDeleted(ctx context.Context, orderID string) error {
	if o, ok := t.s.orders[orderID]; ok {
		o.Status = StatusDeleted
	}
	return nil
}

func (t *memTx) ListLineItems(ctx context.Context, orderID string) ([]LineItem, error) {
	pids := make([]string, 0, len(t.s.items[orderID]))
	for pid := range t.s.items[orderID] {
		pids = append(pids, pid)
	}
	sort.Strings(pids)
	out := make([]LineItem, 0, len(pids))
	for _, pid := range pids {
		out = append(out, LineItem{ProductID: pid, Qty: t.s.items[orderID][pid]})
	}
	return out, nil
}

func (t *memTx) AddLineItem(ctx context.Context, orderID, productID string, qty int) error {
	if t.s.items[orderID] == nil {
		t.s.items[orderID] = map[string]int{}
	}
	t.s.items[orderID][productID] = qty
	return nil
}

func (t *memTx) UpdateLineItemQuantity(ctx context.Context, orderID, productID string, qty int) error {
	t.s.items[orderID][productID] = qty
	return nil
}

func (t *memTx) RemoveLineItem(ctx context.Context, orderID, productID string) error {
	delete(t.s.items[orderID], productID)
	return nil
}
