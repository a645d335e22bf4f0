// Settlement - Order Settlement Core for the BazaarHQ Commerce Platform
// Copyright 2026 BazaarHQ Engineering
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bazaarhq/settlement

package models

import "time"

// Product is the minimal catalog record the settlement core needs: a target
// for the per-product sales metrics. Catalog management (descriptions,
// stock, approval workflow) lives outside this service.
type Product struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Price int64  `json:"price"`

	// Sold and Revenue are maintained solely by the metrics reconciler.
	Sold    int64 `json:"sold"`
	Revenue int64 `json:"revenue"`

	UpdatedAt time.Time `json:"updated_at"`
}
