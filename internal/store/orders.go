// Settlement - Order Settlement Core for the BazaarHQ Commerce Platform
// Copyright 2026 BazaarHQ Engineering
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bazaarhq/settlement

package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	json "github.com/goccy/go-json"

	"github.com/bazaarhq/settlement/internal/models"
)

// CreateOrder persists a new order and its customer index entry.
// The stored version starts at 1 regardless of the caller's copy.
func (s *Store) CreateOrder(ctx context.Context, order *models.Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	order.Version = 1

	data, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("marshal order %s: %w", order.ID, err)
	}

	return s.update(func(txn *badger.Txn) error {
		if _, err := txn.Get(orderKey(order.ID)); err == nil {
			return fmt.Errorf("order %s already exists", order.ID)
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := txn.Set(orderKey(order.ID), data); err != nil {
			return err
		}
		return txn.Set(customerOrderKey(order.CustomerID, order.ID), []byte(order.ID))
	})
}

// GetOrder loads one order by id.
func (s *Store) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var order models.Order
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(orderKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrOrderNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &order)
		})
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ListOrdersByCustomer returns all orders for a customer, newest first.
func (s *Store) ListOrdersByCustomer(ctx context.Context, customerID string) ([]*models.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prefix := []byte(customerKeyPrefix + customerID + ":")
	var ids []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := it.Item().Value(func(val []byte) error {
				ids = append(ids, string(val))
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	orders := make([]*models.Order, 0, len(ids))
	for _, id := range ids {
		order, err := s.GetOrder(ctx, id)
		if errors.Is(err, ErrOrderNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	sort.Slice(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	return orders, nil
}

// UpdateOrder writes back a modified order. The write succeeds only if the
// stored version matches the version the caller read; on success the stored
// version is incremented and reflected in the caller's copy.
func (s *Store) UpdateOrder(ctx context.Context, order *models.Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var next uint64
	err := s.update(func(txn *badger.Txn) error {
		n, err := stageOrderCAS(txn, order, order.Version)
		if err != nil {
			return err
		}
		next = n
		return nil
	})
	if err != nil {
		return err
	}
	order.Version = next
	return nil
}

// stageOrderCAS verifies that the stored version still matches readVersion
// and stages doc at readVersion+1 inside the open transaction. The staged
// bytes come from a copy: callers fold the returned version into their
// in-memory order only after the transaction commits, so a commit-level
// retry re-runs the check against the version that was actually read.
func stageOrderCAS(txn *badger.Txn, doc *models.Order, readVersion uint64) (uint64, error) {
	item, err := txn.Get(orderKey(doc.ID))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, ErrOrderNotFound
	}
	if err != nil {
		return 0, err
	}

	var stored models.Order
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &stored)
	}); err != nil {
		return 0, err
	}
	if stored.Version != readVersion {
		return 0, fmt.Errorf("%w: order %s read at version %d, stored is %d",
			ErrVersionConflict, doc.ID, readVersion, stored.Version)
	}

	next := readVersion + 1
	clone := *doc
	clone.Version = next
	data, err := json.Marshal(&clone)
	if err != nil {
		return 0, fmt.Errorf("marshal order %s: %w", doc.ID, err)
	}
	if err := txn.Set(orderKey(doc.ID), data); err != nil {
		return 0, err
	}
	return next, nil
}

// ConfirmPayment commits a payment confirmation as one logical unit: the
// paid order state, the sold/revenue increments for every line item, and
// the ledger marker recording that this order's metrics were applied.
// If the marker already exists the deltas are skipped, so replaying a
// confirmation can never double-count.
func (s *Store) ConfirmPayment(ctx context.Context, order *models.Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var next uint64
	err := s.update(func(txn *badger.Txn) error {
		applied, err := hasLedgerMarker(txn, order.ID)
		if err != nil {
			return err
		}
		confirmed := *order
		confirmed.MetricsApplied = true
		n, err := stageOrderCAS(txn, &confirmed, order.Version)
		if err != nil {
			return err
		}
		next = n
		if applied {
			return nil
		}
		if err := applyProductDeltas(txn, order.Items, +1); err != nil {
			return err
		}
		return txn.Set(ledgerKey(order.ID), []byte{1})
	})
	if err != nil {
		return err
	}
	order.Version = next
	order.MetricsApplied = true
	return nil
}

// CancelOrder commits a cancellation as one logical unit. When the order
// had been paid and its metrics applied, the sold/revenue increments are
// reversed and the ledger marker removed in the same transaction; a
// cancellation of a never-paid order touches only the order document.
func (s *Store) CancelOrder(ctx context.Context, order *models.Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var (
		next     uint64
		reversed bool
	)
	err := s.update(func(txn *badger.Txn) error {
		applied, err := hasLedgerMarker(txn, order.ID)
		if err != nil {
			return err
		}
		reverse := order.Payment.Status == models.PaymentPaid && applied
		cancelled := *order
		if reverse {
			cancelled.MetricsApplied = false
		}
		n, err := stageOrderCAS(txn, &cancelled, order.Version)
		if err != nil {
			return err
		}
		next, reversed = n, reverse
		if !reverse {
			return nil
		}
		if err := applyProductDeltas(txn, order.Items, -1); err != nil {
			return err
		}
		return txn.Delete(ledgerKey(order.ID))
	})
	if err != nil {
		return err
	}
	order.Version = next
	if reversed {
		order.MetricsApplied = false
	}
	return nil
}

// ListPendingOlderThan returns orders still awaiting payment in their
// initial fulfillment state whose creation time is before cutoff. Used by
// the expiry sweeper.
func (s *Store) ListPendingOlderThan(ctx context.Context, cutoff time.Time) ([]*models.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prefix := []byte(orderKeyPrefix)
	var stale []*models.Order
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var order models.Order
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &order)
			}); err != nil {
				return err
			}
			if order.Payment.Status == models.PaymentPending &&
				order.Fulfillment.Status == models.FulfillmentCreated &&
				order.CreatedAt.Before(cutoff) {
				o := order
				stale = append(stale, &o)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stale, nil
}

// HasMetricsMarker reports whether the reconciliation ledger records the
// order's metrics as applied.
func (s *Store) HasMetricsMarker(ctx context.Context, orderID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	var applied bool
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		applied, err = hasLedgerMarker(txn, orderID)
		return err
	})
	return applied, err
}

func hasLedgerMarker(txn *badger.Txn, orderID string) (bool, error) {
	_, err := txn.Get(ledgerKey(orderID))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// forEachOrder iterates every stored order inside an open transaction.
func forEachOrder(txn *badger.Txn, fn func(*models.Order) error) error {
	prefix := []byte(orderKeyPrefix)
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		// Ledger keys do not share this prefix, but guard against any
		// future key family nesting under "order:".
		if bytes.IndexByte(it.Item().Key()[len(prefix):], ':') >= 0 {
			continue
		}
		var order models.Order
		if err := it.Item().Value(func(val []byte) error {
			return json.Unmarshal(val, &order)
		}); err != nil {
			return err
		}
		if err := fn(&order); err != nil {
			return err
		}
	}
	return nil
}
