// Package database declares the storage contract the chain processor
// consumes: transactional begin/commit/rollback and block/transaction
// CRUD. Concrete drivers (see the heavy subpackage) implement it over
// LevelDB; the processor never imports a driver directly.
package database

import (
	"github.com/lifecoin-project/lifecoind/pkg/core/data/block"
)

// DB is a handle to the durable store. View opens a read-only transaction;
// Update opens a read-write transaction that commits if fn returns nil and
// rolls back otherwise.
type DB interface {
	View(fn func(Transaction) error) error
	Update(fn func(Transaction) error) error
	Close() error
}

// Transaction is a single store transaction: a consistent snapshot for
// reads, and — when opened writable — a batch of pending writes applied
// atomically on commit.
type Transaction interface {
	// StoreBlock persists a block header and its transactions, and
	// advances the tip pointer to it.
	StoreBlock(b *block.Block) error

	// DeleteBlock removes a block's header and transactions. It does not
	// move the tip pointer; callers set it explicitly via SetTip.
	DeleteBlock(b *block.Block) error

	// FetchBlockByHeight returns the block stored at the given height.
	FetchBlockByHeight(height uint32) (*block.Block, error)

	// FetchBlockByHash returns the block with the given header hash.
	FetchBlockByHash(hash []byte) (*block.Block, error)

	// FetchBlockByID returns the block with the given legacy numeric id.
	FetchBlockByID(id uint64) (*block.Block, error)

	// FetchTip returns the block currently at the head of the chain, or
	// ErrNoTip if the store is empty.
	FetchTip() (*block.Block, error)

	// SetTip repoints the head pointer without storing a new block — used
	// when rollback or rescan moves the head to an already-stored block.
	SetTip(b *block.Block) error

	// FetchCurrentHeight returns the height of the current tip, or 0 with
	// ErrNoTip if the store is empty.
	FetchCurrentHeight() (uint32, error)

	// FetchTxExists reports whether a transaction with the given full hash
	// has ever been persisted in an accepted block.
	FetchTxExists(fullHash []byte) (bool, error)

	// FetchTxByFullHash returns a previously persisted transaction by its
	// full hash.
	FetchTxByFullHash(fullHash []byte) (*block.Transaction, error)

	// Commit applies a writable transaction's pending writes atomically.
	Commit() error

	// Close releases the transaction's snapshot. It must be called exactly
	// once regardless of commit outcome.
	Close()
}

// DerivedTable is an append-only projection of chain state — account
// balances, asset ledgers, aliases — that tracks height so it can be
// rolled back, trimmed, or reset independently of the block store.
type DerivedTable interface {
	// Name identifies the table in logs and registration order.
	Name() string

	// Rollback undoes every change recorded above the given height.
	Rollback(height uint32) error

	// Trim compacts everything at or below the given height, discarding
	// history no longer needed for rollback.
	Trim(height uint32) error

	// Truncate resets the table to empty, as for a full rescan from
	// genesis.
	Truncate() error
}

// ErrNoTip is returned by FetchTip/FetchCurrentHeight when the store holds
// no blocks yet.
var ErrNoTip = noTipError{}

type noTipError struct{}

func (noTipError) Error() string { return "database: no tip stored" }
