// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

package chain

import (
	"github.com/lifecoin-project/lifecoind/pkg/core/data/block"
)

// TransactionProcessor is the unconfirmed-transaction subsystem this
// package consumes but does not implement: validation semantics, balance
// application, and the unconfirmed pool itself are opaque here.
type TransactionProcessor interface {
	// Unconfirmed returns the current unconfirmed pool, in no particular
	// order.
	Unconfirmed() []*block.Transaction

	// Validate runs the type-specific validate() contract on a
	// transaction. A NotCurrentlyValidError means validation may succeed
	// later; any other error is permanent.
	Validate(tx *block.Transaction) error

	// ApplyUnconfirmed applies a transaction's unconfirmed effect (e.g.
	// debiting a pending balance). ok is false on double-spend.
	ApplyUnconfirmed(tx *block.Transaction) (ok bool, err error)

	// Apply applies a transaction's confirmed effect once its containing
	// block is accepted: balances, the fee credited to generatorAccountID,
	// and any attachment side effects.
	Apply(tx *block.Transaction, blk *block.Block, generatorAccountID uint64) error

	// Remove drops a transaction from the unconfirmed pool without
	// requeuing it — used when a transaction proves permanently invalid.
	Remove(tx *block.Transaction)

	// Requeue returns transactions from a popped or failed block to the
	// unconfirmed pool for immediate reconsideration.
	Requeue(txs []*block.Transaction)

	// ProcessLater defers transactions from a rejected peer-supplied
	// branch for later reconsideration, separate from the immediate
	// unconfirmed pool.
	ProcessLater(txs []*block.Transaction)
}
