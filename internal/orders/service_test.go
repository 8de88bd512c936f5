package orders

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	calls  int
	placed []string
}

func (f *fakePublisher) OrderPlaced(ctx context.Context, o *Order) {
	f.calls++
	f.placed = append(f.placed, o.ID)
}

func newTestService() (*Service, *MemStore, *fakePublisher) {
	store := NewMemStore()
	pub := &fakePublisher{}
	return &Service{Store: store, Publisher: pub}, store, pub
}

func TestPlaceOrderAdjustsStock(t *testing.T) {
	svc, store, pub := newTestService()
	store.PutProduct("p1", 5)
	store.PutProduct("p2", 10)

	o, err := svc.PlaceOrder(context.Background(), "u1", []ItemInput{
		{ProductID: "p1", Qty: 3},
		{ProductID: "p2", Qty: 5},
	})
	require.NoError(t, err)
	require.NotNil(t, o)

	assert.Equal(t, 2, store.ProductStock("p1"))
	assert.Equal(t, 5, store.ProductStock("p2"))
	assert.Equal(t, StatusActive, o.Status)
	assert.Equal(t, []LineItem{{ProductID: "p1", Qty: 3}, {ProductID: "p2", Qty: 5}}, o.Items)

	stored, err := store.GetOrder(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, "u1", stored.UserID)
	assert.ElementsMatch(t, o.Items, stored.Items)

	assert.Equal(t, 1, pub.calls)
	assert.Equal(t, []string{o.ID}, pub.placed)
}

func TestPlaceOrderInsufficientStock(t *testing.T) {
	svc, store, pub := newTestService()
	store.PutProduct("p1", 2)

	o, err := svc.PlaceOrder(context.Background(), "u1", []ItemInput{{ProductID: "p1", Qty: 5}})
	require.Nil(t, o)

	var se *StockError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 0, se.Index)
	assert.Equal(t, "p1", se.ProductID)
	assert.Equal(t, 5, se.Requested)
	assert.Equal(t, 2, se.Available)

	assert.Equal(t, 2, store.ProductStock("p1"))
	got, err := store.ListOrdersByUser(context.Background(), "u1", 10, 0)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Zero(t, pub.calls)
}

func TestPlaceOrderUnknownProduct(t *testing.T) {
	svc, store, _ := newTestService()
	store.PutProduct("p1", 5)

	_, err := svc.PlaceOrder(context.Background(), "u1", []ItemInput{
		{ProductID: "p1", Qty: 1},
		{ProductID: "ghost", Qty: 1},
	})
	var se *StockError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 1, se.Index)
	assert.Equal(t, "ghost", se.ProductID)
	assert.Equal(t, 0, se.Available)

	// first item's deduction rolled back with the rest
	assert.Equal(t, 5, store.ProductStock("p1"))
}

func TestPlaceOrderAtomicOnLaterFailure(t *testing.T) {
	svc, store, pub := newTestService()
	store.PutProduct("p1", 5)
	store.PutProduct("p2", 1)

	_, err := svc.PlaceOrder(context.Background(), "u1", []ItemInput{
		{ProductID: "p1", Qty: 4},
		{ProductID: "p2", Qty: 3},
	})
	var se *StockError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 1, se.Index)

	assert.Equal(t, 5, store.ProductStock("p1"))
	assert.Equal(t, 1, store.ProductStock("p2"))
	assert.Zero(t, pub.calls)
}

func TestUpdateOrderAdjustsQuantitiesAndStock(t *testing.T) {
	svc, store, pub := newTestService()
	store.PutProduct("p1", 10)
	store.PutProduct("p2", 20)
	store.PutProduct("p3", 30)
	store.PutProduct("p4", 40)

	o, err := svc.PlaceOrder(context.Background(), "u1", []ItemInput{
		{ProductID: "p1", Qty: 5},
		{ProductID: "p2", Qty: 10},
		{ProductID: "p3", Qty: 15},
		{ProductID: "p4", Qty: 20},
	})
	require.NoError(t, err)
	require.Equal(t, 5, store.ProductStock("p1"))
	require.Equal(t, 10, store.ProductStock("p2"))
	require.Equal(t, 15, store.ProductStock("p3"))
	require.Equal(t, 20, store.ProductStock("p4"))

	updated, err := svc.UpdateOrder(context.Background(), o.ID, []ItemInput{
		{ProductID: "p1", Qty: 5},  // same quantity
		{ProductID: "p2", Qty: 15}, // increase
		{ProductID: "p3", Qty: 10}, // decrease
		// p4 removed
	})
	require.NoError(t, err)

	assert.Equal(t, 5, store.ProductStock("p1"))
	assert.Equal(t, 5, store.ProductStock("p2"))
	assert.Equal(t, 20, store.ProductStock("p3"))
	assert.Equal(t, 40, store.ProductStock("p4"))

	assert.Equal(t, []LineItem{
		{ProductID: "p1", Qty: 5},
		{ProductID: "p2", Qty: 15},
		{ProductID: "p3", Qty: 10},
	}, updated.Items)

	stored, err := store.GetOrder(context.Background(), o.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, updated.Items, stored.Items)

	// only the initial placement publishes
	assert.Equal(t, 1, pub.calls)
}

func TestUpdateOrderNoOp(t *testing.T) {
	svc, store, _ := newTestService()
	store.PutProduct("p1", 10)
	store.PutProduct("p2", 10)

	o, err := svc.PlaceOrder(context.Background(), "u1", []ItemInput{
		{ProductID: "p1", Qty: 3},
		{ProductID: "p2", Qty: 4},
	})
	require.NoError(t, err)

	updated, err := svc.UpdateOrder(context.Background(), o.ID, []ItemInput{
		{ProductID: "p1", Qty: 3},
		{ProductID: "p2", Qty: 4},
	})
	require.NoError(t, err)

	assert.Equal(t, 7, store.ProductStock("p1"))
	assert.Equal(t, 6, store.ProductStock("p2"))
	assert.ElementsMatch(t, o.Items, updated.Items)
}

func TestUpdateOrderRemoveAllReleasesStock(t *testing.T) {
	svc, store, _ := newTestService()
	store.PutProduct("p1", 10)

	o, err := svc.PlaceOrder(context.Background(), "u1", []ItemInput{{ProductID: "p1", Qty: 3}})
	require.NoError(t, err)

	updated, err := svc.UpdateOrder(context.Background(), o.ID, nil)
	require.NoError(t, err)
	assert.Empty(t, updated.Items)
	assert.Equal(t, 10, store.ProductStock("p1"))

	stored, err := store.GetOrder(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Items)
}

func TestUpdateOrderAddsNewProduct(t *testing.T) {
	svc, store, _ := newTestService()
	store.PutProduct("p1", 5)
	store.PutProduct("p2", 8)

	o, err := svc.PlaceOrder(context.Background(), "u1", []ItemInput{{ProductID: "p1", Qty: 2}})
	require.NoError(t, err)

	updated, err := svc.UpdateOrder(context.Background(), o.ID, []ItemInput{
		{ProductID: "p1", Qty: 2},
		{ProductID: "p2", Qty: 4},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, store.ProductStock("p1"))
	assert.Equal(t, 4, store.ProductStock("p2"))
	assert.Equal(t, []LineItem{{ProductID: "p1", Qty: 2}, {ProductID: "p2", Qty: 4}}, updated.Items)
}

func TestUpdateOrderInsufficientStockRollsBack(t *testing.T) {
	svc, store, _ := newTestService()
	store.PutProduct("p1", 10)
	store.PutProduct("p2", 10)

	o, err := svc.PlaceOrder(context.Background(), "u1", []ItemInput{
		{ProductID: "p1", Qty: 8},
		{ProductID: "p2", Qty: 2},
	})
	require.NoError(t, err)
	require.Equal(t, 2, store.ProductStock("p1"))

	// p2's release would succeed, but p1's increase cannot be covered:
	// the whole update must roll back, including p2.
	_, err = svc.UpdateOrder(context.Background(), o.ID, []ItemInput{{ProductID: "p1", Qty: 20}})
	var se *StockError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, -1, se.Index)
	assert.Equal(t, "p1", se.ProductID)
	assert.Equal(t, 20, se.Requested)
	assert.Equal(t, 10, se.Available) // old reservation restored before the check

	assert.Equal(t, 2, store.ProductStock("p1"))
	assert.Equal(t, 8, store.ProductStock("p2"))
	stored, err := store.GetOrder(context.Background(), o.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, o.Items, stored.Items)
}

func TestUpdateOrderIncreaseWithinRestoredCapacity(t *testing.T) {
	svc, store, _ := newTestService()
	store.PutProduct("p1", 10)

	o, err := svc.PlaceOrder(context.Background(), "u1", []ItemInput{{ProductID: "p1", Qty: 8}})
	require.NoError(t, err)
	require.Equal(t, 2, store.ProductStock("p1"))

	// 10 > remaining 2, but fits once the old 8 are restored first
	updated, err := svc.UpdateOrder(context.Background(), o.ID, []ItemInput{{ProductID: "p1", Qty: 10}})
	require.NoError(t, err)
	assert.Equal(t, 0, store.ProductStock("p1"))
	assert.Equal(t, []LineItem{{ProductID: "p1", Qty: 10}}, updated.Items)
}

func TestUpdateOrderUnknownNewProduct(t *testing.T) {
	svc, store, _ := newTestService()
	store.PutProduct("p1", 5)

	o, err := svc.PlaceOrder(context.Background(), "u1", []ItemInput{{ProductID: "p1", Qty: 2}})
	require.NoError(t, err)

	_, err = svc.UpdateOrder(context.Background(), o.ID, []ItemInput{
		{ProductID: "p1", Qty: 2},
		{ProductID: "ghost", Qty: 1},
	})
	var se *StockError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "ghost", se.ProductID)
	assert.Equal(t, 3, store.ProductStock("p1"))
}

func TestUpdateOrderNotFound(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.UpdateOrder(context.Background(), "nope", []ItemInput{{ProductID: "p1", Qty: 1}})
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestDeleteOrderReleasesAndSoftDeletes(t *testing.T) {
	svc, store, _ := newTestService()
	store.PutProduct("p1", 10)

	o, err := svc.PlaceOrder(context.Background(), "u1", []ItemInput{{ProductID: "p1", Qty: 5}})
	require.NoError(t, err)
	require.Equal(t, 5, store.ProductStock("p1"))

	require.NoError(t, svc.DeleteOrder(context.Background(), o.ID))

	assert.Equal(t, 10, store.ProductStock("p1"))
	assert.Equal(t, StatusDeleted, store.OrderStatus(o.ID)) // retained, not removed

	_, err = store.GetOrder(context.Background(), o.ID)
	assert.ErrorIs(t, err, ErrOrderNotFound)
	got, err := store.ListOrdersByUser(context.Background(), "u1", 10, 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDeleteOrderTwice(t *testing.T) {
	svc, store, _ := newTestService()
	store.PutProduct("p1", 10)

	o, err := svc.PlaceOrder(context.Background(), "u1", []ItemInput{{ProductID: "p1", Qty: 5}})
	require.NoError(t, err)
	require.NoError(t, svc.DeleteOrder(context.Background(), o.ID))

	// second delete must not restore stock again
	err = svc.DeleteOrder(context.Background(), o.ID)
	assert.ErrorIs(t, err, ErrOrderNotFound)
	assert.Equal(t, 10, store.ProductStock("p1"))
}

func TestStockConservation(t *testing.T) {
	svc, store, _ := newTestService()
	store.PutProduct("p1", 10)
	store.PutProduct("p2", 20)
	store.PutProduct("p3", 30)
	initial := store.TotalStock()

	conserved := func() {
		t.Helper()
		assert.Equal(t, initial, store.TotalStock()+store.ActiveReserved())
	}

	o1, err := svc.PlaceOrder(context.Background(), "u1", []ItemInput{
		{ProductID: "p1", Qty: 4},
		{ProductID: "p2", Qty: 6},
	})
	require.NoError(t, err)
	conserved()

	o2, err := svc.PlaceOrder(context.Background(), "u2", []ItemInput{
		{ProductID: "p2", Qty: 5},
		{ProductID: "p3", Qty: 30},
	})
	require.NoError(t, err)
	conserved()

	_, err = svc.UpdateOrder(context.Background(), o1.ID, []ItemInput{
		{ProductID: "p1", Qty: 1},
	})
	require.NoError(t, err)
	conserved()

	_, err = svc.UpdateOrder(context.Background(), o2.ID, []ItemInput{{ProductID: "p3", Qty: 12}})
	require.NoError(t, err)
	conserved()

	require.NoError(t, svc.DeleteOrder(context.Background(), o1.ID))
	conserved()
	require.NoError(t, svc.DeleteOrder(context.Background(), o2.ID))
	conserved()
	assert.Equal(t, initial, store.TotalStock())
}

type failingStore struct {
	Store
	err error
}

func (f *failingStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	return f.err
}

func TestSystemFailureWrapsCause(t *testing.T) {
	cause := errors.New("connection refused")
	svc := &Service{Store: &failingStore{err: cause}}

	_, err := svc.PlaceOrder(context.Background(), "u1", []ItemInput{{ProductID: "p1", Qty: 1}})
	var pe *ProcessingError
	require.ErrorAs(t, err, &pe)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "place", pe.Op)

	err = svc.DeleteOrder(context.Background(), "o1")
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "delete", pe.Op)
}
