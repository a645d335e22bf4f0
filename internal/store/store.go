// Settlement - Order Settlement Core for the BazaarHQ Commerce Platform
// Copyright 2026 BazaarHQ Engineering
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bazaarhq/settlement

// Package store persists the settlement core's aggregates in BadgerDB.
//
// Three key families share one keyspace:
//
//	order:<id>                       Order document (JSON)
//	customer_orders:<customer>:<id>  index entry for per-customer listing
//	product:<id>                     Product document (JSON)
//	metrics_applied:<order-id>       reconciliation ledger marker
//
// Consistency model: Badger transactions run under serializable snapshot
// isolation, so read-modify-write inside one transaction either commits
// without interference or fails with ErrConflict and is retried. Two
// guarantees are built on that:
//
//   - every order write compares the stored version against the caller's
//     copy and rejects stale writes (optimistic concurrency);
//   - ConfirmPayment and CancelOrder commit the order mutation, the
//     per-product metric deltas, and the ledger marker as a single
//     transaction, so payment state can never diverge from the metrics.
package store

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/bazaarhq/settlement/internal/config"
	"github.com/bazaarhq/settlement/internal/logging"
)

// Sentinel errors surfaced to the service layer.
var (
	ErrOrderNotFound   = errors.New("order not found")
	ErrProductNotFound = errors.New("product not found")

	// ErrVersionConflict means the order was modified since it was read.
	// Callers should re-read and retry or surface a conflict.
	ErrVersionConflict = errors.New("order version conflict")
)

const (
	orderKeyPrefix    = "order:"
	customerKeyPrefix = "customer_orders:"
	productKeyPrefix  = "product:"
	ledgerKeyPrefix   = "metrics_applied:"

	// maxTxnRetries bounds retries of transactions that lose an SSI conflict.
	maxTxnRetries = 16
)

// Store is a BadgerDB-backed document store for orders and products.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) the store at the configured path.
func Open(cfg *config.DatabaseConfig) (*Store, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithLogger(badgerLogger{})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", cfg.Path, err)
	}
	return &Store{db: db}, nil
}

// OpenInMemory opens an ephemeral store. Used by tests and demo setups.
func OpenInMemory() (*Store, error) {
	return Open(&config.DatabaseConfig{InMemory: true})
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// update runs fn in a read-write transaction, retrying on SSI conflicts.
func (s *Store) update(fn func(txn *badger.Txn) error) error {
	var err error
	for i := 0; i < maxTxnRetries; i++ {
		err = s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return fmt.Errorf("transaction conflict persisted after %d retries: %w", maxTxnRetries, err)
}

func orderKey(id string) []byte {
	return []byte(orderKeyPrefix + id)
}

func customerOrderKey(customerID, orderID string) []byte {
	return []byte(customerKeyPrefix + customerID + ":" + orderID)
}

func productKey(id string) []byte {
	return []byte(productKeyPrefix + id)
}

func ledgerKey(orderID string) []byte {
	return []byte(ledgerKeyPrefix + orderID)
}

// badgerLogger routes Badger's internal logging through zerolog.
type badgerLogger struct{}

func (badgerLogger) Errorf(format string, args ...interface{}) {
	logging.Error().Str("component", "badger").Msgf(format, args...)
}

func (badgerLogger) Warningf(format string, args ...interface{}) {
	logging.Warn().Str("component", "badger").Msgf(format, args...)
}

func (badgerLogger) Infof(format string, args ...interface{}) {
	logging.Debug().Str("component", "badger").Msgf(format, args...)
}

func (badgerLogger) Debugf(format string, args ...interface{}) {
	logging.Debug().Str("component", "badger").Msgf(format, args...)
}
