// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

// Package tables holds the derived-table projections of chain state: data
// that is rebuilt from accepted blocks rather than stored as part of the
// blocks themselves, and that must be rolled back, trimmed, or truncated
// in step with the chain.
package tables

import (
	"github.com/asdine/storm/v3"
	"github.com/asdine/storm/v3/q"
)

// accountRecord is a single balance-affecting entry in a per-account
// ledger, indexed by height so it can be rolled back.
type accountRecord struct {
	ID        int    `storm:"id,increment"`
	AccountID uint64 `storm:"index"`
	Height    uint32 `storm:"index"`
	DeltaNQT  int64
}

// Accounts is the account-balance derived table: a height-indexed ledger
// of balance deltas, backed by a storm/bolt store so balances can be
// queried by range and rolled back by height.
type Accounts struct {
	db *storm.DB
}

// NewAccounts opens (or creates) the account ledger at path.
func NewAccounts(path string) (*Accounts, error) {
	db, err := storm.Open(path)
	if err != nil {
		return nil, err
	}

	return &Accounts{db: db}, nil
}

// Name identifies this table for registration-order logging.
func (a *Accounts) Name() string { return "accounts" }

// Apply records a balance delta for an account at a height, as part of a
// block's confirmed effect.
func (a *Accounts) Apply(accountID uint64, height uint32, deltaNQT int64) error {
	return a.db.Save(&accountRecord{AccountID: accountID, Height: height, DeltaNQT: deltaNQT})
}

// Balance sums every recorded delta for an account up to and including the
// given height.
func (a *Accounts) Balance(accountID uint64, uptoHeight uint32) (int64, error) {
	var records []accountRecord
	if err := a.db.Select(
		q.Eq("AccountID", accountID),
		q.Lte("Height", uptoHeight),
	).Find(&records); err != nil && err != storm.ErrNotFound {
		return 0, err
	}

	var total int64
	for _, r := range records {
		total += r.DeltaNQT
	}

	return total, nil
}

// Rollback deletes every ledger entry recorded above the given height.
func (a *Accounts) Rollback(height uint32) error {
	var stale []accountRecord
	if err := a.db.Select(q.Gt("Height", height)).Find(&stale); err != nil {
		if err == storm.ErrNotFound {
			return nil
		}
		return err
	}

	for _, r := range stale {
		if err := a.db.DeleteStruct(&r); err != nil {
			return err
		}
	}

	return nil
}

// Trim is a no-op for the account ledger: balances are cumulative sums, so
// there is no bounded history below a height to discard without also
// discarding the running total. Height accounting alone cannot identify
// entries that are safe to compact; a real compaction would need a
// per-account running-balance snapshot, which this table does not keep.
func (a *Accounts) Trim(height uint32) error {
	return nil
}

// Truncate deletes every account record, as for a full rescan from
// genesis.
func (a *Accounts) Truncate() error {
	return a.db.Drop(&accountRecord{})
}

// Close releases the underlying bolt handle.
func (a *Accounts) Close() error {
	return a.db.Close()
}
