package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Publisher is invoked after a successful commit. Implementations must not
// block the caller; a publish failure never rolls back the order.
type Publisher interface {
	OrderPlaced(ctx context.Context, o *Order)
}

// Service reconciles order line items against shared product stock. Every
// operation runs as one all-or-nothing transaction; the service itself keeps
// no state between calls.
type Service struct {
	Store     Store
	Publisher Publisher
}

// PlaceOrder reserves stock for every requested item and creates the order.
// Items are checked in input order; the first invalid or uncoverable one
// aborts the whole operation with a *StockError carrying its index.
func (s *Service) PlaceOrder(ctx context.Context, userID string, items []ItemInput) (*Order, error) {
	now := time.Now().UTC()
	o := &Order{
		ID:        uuid.NewString(),
		UserID:    userID,
		Status:    StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.Store.WithinTx(ctx, func(tx Tx) error {
		ids := make([]string, 0, len(items))
		for _, it := range items {
			ids = append(ids, it.ProductID)
		}
		stocks, err := tx.FindProductsForUpdate(ctx, ids)
		if err != nil {
			return err
		}

		for i, it := range items {
			stock, ok := stocks[it.ProductID]
			if !ok || stock < it.Qty {
				return &StockError{Index: i, ProductID: it.ProductID, Requested: it.Qty, Available: stock}
			}
			stocks[it.ProductID] = stock - it.Qty
			if err := tx.AdjustProductStock(ctx, it.ProductID, -it.Qty); err != nil {
				return err
			}
			o.Items = append(o.Items, LineItem{ProductID: it.ProductID, Qty: it.Qty})
		}

		if err := tx.InsertOrder(ctx, o); err != nil {
			return err
		}
		for _, li := range o.Items {
			if err := tx.AddLineItem(ctx, o.ID, li.ProductID, li.Qty); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, classify("place", err)
	}

	// after commit, fire-and-forget
	if s.Publisher != nil {
		s.Publisher.OrderPlaced(ctx, o)
	}
	return o, nil
}

// UpdateOrder replaces the order's line items with the given set. Products
// omitted from items release their reservation, new ones reserve fresh
// stock, changed quantities restore the old reservation before deducting
// the new one so capacity freed by decreases is visible to later additions
// within the same transaction. No event is emitted on update.
func (s *Service) UpdateOrder(ctx context.Context, orderID string, items []ItemInput) (*Order, error) {
	var out *Order

	err := s.Store.WithinTx(ctx, func(tx Tx) error {
		o, err := tx.GetOrder(ctx, orderID)
		if err != nil {
			return err
		}
		existing, err := tx.ListLineItems(ctx, orderID)
		if err != nil {
			return err
		}

		requested := make(map[string]int, len(items))
		for _, it := range items {
			requested[it.ProductID] = it.Qty
		}

		// Lock every product involved, old and new, in one batch.
		ids := make([]string, 0, len(existing)+len(items))
		for _, li := range existing {
			ids = append(ids, li.ProductID)
		}
		for _, it := range items {
			ids = append(ids, it.ProductID)
		}
		stocks, err := tx.FindProductsForUpdate(ctx, ids)
		if err != nil {
			return err
		}

		final := make(map[string]int, len(items))
		onOrder := make(map[string]bool, len(existing))

		for _, li := range existing {
			onOrder[li.ProductID] = true
			newQty, keep := requested[li.ProductID]
			switch {
			case keep && newQty == li.Qty:
				// untouched
				final[li.ProductID] = li.Qty
			case keep:
				// restore the previous reservation first, then re-deduct
				restored := stocks[li.ProductID] + li.Qty
				if restored < newQty {
					return &StockError{Index: -1, ProductID: li.ProductID, Requested: newQty, Available: restored}
				}
				stocks[li.ProductID] = restored - newQty
				if err := tx.AdjustProductStock(ctx, li.ProductID, li.Qty-newQty); err != nil {
					return err
				}
				if err := tx.UpdateLineItemQuantity(ctx, orderID, li.ProductID, newQty); err != nil {
					return err
				}
				final[li.ProductID] = newQty
			default:
				// dropped from the request: release the reservation
				stocks[li.ProductID] += li.Qty
				if err := tx.AdjustProductStock(ctx, li.ProductID, li.Qty); err != nil {
					return err
				}
				if err := tx.RemoveLineItem(ctx, orderID, li.ProductID); err != nil {
					return err
				}
			}
		}

		// products new to the order, in input order
		for i, it := range items {
			if onOrder[it.ProductID] {
				continue
			}
			stock, ok := stocks[it.ProductID]
			if !ok || stock < it.Qty {
				return &StockError{Index: i, ProductID: it.ProductID, Requested: it.Qty, Available: stock}
			}
			stocks[it.ProductID] = stock - it.Qty
			if err := tx.AdjustProductStock(ctx, it.ProductID, -it.Qty); err != nil {
				return err
			}
			if err := tx.AddLineItem(ctx, orderID, it.ProductID, it.Qty); err != nil {
				return err
			}
			final[it.ProductID] = it.Qty
		}

		o.Items = make([]LineItem, 0, len(items))
		for _, it := range items {
			o.Items = append(o.Items, LineItem{ProductID: it.ProductID, Qty: final[it.ProductID]})
		}
		out = o
		return nil
	})
	if err != nil {
		return nil, classify("update", err)
	}
	return out, nil
}

// DeleteOrder releases every reservation back to stock and soft-deletes the
// order. The row is kept for history; active-order queries exclude it.
func (s *Service) DeleteOrder(ctx context.Context, orderID string) error {
	err := s.Store.WithinTx(ctx, func(tx Tx) error {
		o, err := tx.GetOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if !CanTransition(o.Status, StatusDeleted) {
			return ErrOrderNotFound
		}
		lis, err := tx.ListLineItems(ctx, orderID)
		if err != nil {
			return err
		}
		ids := make([]string, 0, len(lis))
		for _, li := range lis {
			ids = append(ids, li.ProductID)
		}
		// lock before restoring so concurrent placements see a consistent count
		if _, err := tx.FindProductsForUpdate(ctx, ids); err != nil {
			return err
		}
		for _, li := range lis {
			if err := tx.AdjustProductStock(ctx, li.ProductID, li.Qty); err != nil {
				return err
			}
		}
		return tx.MarkOrderDeleted(ctx, orderID)
	})
	return classify("delete", err)
}

// classify keeps validation errors and not-found as-is and wraps everything
// else so callers can tell bad requests from system failures.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StockError
	if errors.As(err, &se) || errors.Is(err, ErrOrderNotFound) {
		return err
	}
	return &ProcessingError{Op: op, Err: err}
}
