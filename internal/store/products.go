// Settlement - Order Settlement Core for the BazaarHQ Commerce Platform
// Copyright 2026 BazaarHQ Engineering
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bazaarhq/settlement

package store

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	json "github.com/goccy/go-json"

	"github.com/bazaarhq/settlement/internal/models"
)

// PutProduct creates or replaces a product document. Used by the catalog
// seed path and by tests.
func (s *Store) PutProduct(ctx context.Context, product *models.Product) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(product)
	if err != nil {
		return err
	}
	return s.update(func(txn *badger.Txn) error {
		return txn.Set(productKey(product.ID), data)
	})
}

// GetProduct loads one product by id.
func (s *Store) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var product models.Product
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(productKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrProductNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &product)
		})
	})
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// ListProducts returns every product document.
func (s *Store) ListProducts(ctx context.Context) ([]*models.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prefix := []byte(productKeyPrefix)
	var products []*models.Product
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var product models.Product
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &product)
			}); err != nil {
				return err
			}
			p := product
			products = append(products, &p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return products, nil
}

// applyProductDeltas adjusts sold counts and revenue for every line item
// inside an open transaction. sign is +1 on payment confirmation and -1
// when a paid order's metrics are reversed. Line items referencing
// products no longer in the catalog are skipped.
func applyProductDeltas(txn *badger.Txn, items []models.OrderItem, sign int64) error {
	now := time.Now().UTC()
	for _, it := range items {
		item, err := txn.Get(productKey(it.ProductID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		var product models.Product
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &product)
		}); err != nil {
			return err
		}

		product.Sold += sign * it.Qty
		product.Revenue += sign * it.Price * it.Qty
		product.UpdatedAt = now

		data, err := json.Marshal(&product)
		if err != nil {
			return err
		}
		if err := txn.Set(productKey(it.ProductID), data); err != nil {
			return err
		}
	}
	return nil
}

// RecomputeMetrics rebuilds every product's sold count and revenue from
// the order history. An order contributes iff it was paid and not
// subsequently cancelled; ledger markers are rewritten to match, so
// incremental updates resume from a consistent baseline.
//
// The tallies come from one read snapshot and the writes go through a
// WriteBatch, which splits them across as many transactions as Badger
// needs. A single update transaction would hit ErrTxnTooBig once the
// order history outgrows the value log batch limit. The batch is not
// serialized against concurrent settlement traffic; this is the
// operator repair path and runs while the API is quiesced.
func (s *Store) RecomputeMetrics(ctx context.Context) (*models.ReconcileResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	summary := &models.ReconcileResponse{}

	type tally struct {
		sold    int64
		revenue int64
	}
	tallies := make(map[string]tally)
	var markers []string
	var cleared []string
	var flips []*models.Order
	var products []*models.Product

	err := s.db.View(func(txn *badger.Txn) error {
		if err := forEachOrder(txn, func(order *models.Order) error {
			summary.OrdersProcessed++
			counts := order.Payment.Status == models.PaymentPaid &&
				order.Fulfillment.Status != models.FulfillmentCancelled
			if counts {
				for _, it := range order.Items {
					t := tallies[it.ProductID]
					t.sold += it.Qty
					t.revenue += it.Price * it.Qty
					tallies[it.ProductID] = t
				}
				markers = append(markers, order.ID)
			} else {
				cleared = append(cleared, order.ID)
			}
			if order.MetricsApplied != counts {
				o := *order
				o.MetricsApplied = counts
				flips = append(flips, &o)
			}
			return nil
		}); err != nil {
			return err
		}

		prefix := []byte(productKeyPrefix)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var product models.Product
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &product)
			}); err != nil {
				return err
			}
			products = append(products, &product)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	now := time.Now().UTC()
	for _, product := range products {
		t := tallies[product.ID]
		product.Sold = t.sold
		product.Revenue = t.revenue
		product.UpdatedAt = now

		data, err := json.Marshal(product)
		if err != nil {
			return nil, err
		}
		if err := wb.Set(productKey(product.ID), data); err != nil {
			return nil, err
		}
		summary.ProductsUpdated++
		summary.TotalSold += t.sold
		summary.TotalRevenue += t.revenue
	}

	for _, id := range markers {
		if err := wb.Set(ledgerKey(id), []byte{1}); err != nil {
			return nil, err
		}
	}
	for _, id := range cleared {
		if err := wb.Delete(ledgerKey(id)); err != nil {
			return nil, err
		}
	}
	for _, o := range flips {
		o.Version++
		data, err := json.Marshal(o)
		if err != nil {
			return nil, err
		}
		if err := wb.Set(orderKey(o.ID), data); err != nil {
			return nil, err
		}
	}

	if err := wb.Flush(); err != nil {
		return nil, err
	}
	return summary, nil
}
