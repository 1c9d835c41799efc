// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

package tables

import (
	"fmt"

	"github.com/tidwall/buntdb"
)

// Aliases is the alias-namespace derived table: a name-reservation
// registry where each name maps to the owning account and the height it
// was claimed at, backed by an in-memory indexed KV store so lookups by
// name are O(log n) and rollback-by-height can scan efficiently.
type Aliases struct {
	db *buntdb.DB
}

// NewAliases opens an in-memory alias index. Unlike the account ledger,
// alias state is small enough to rebuild from a rescan without disk
// persistence between runs.
func NewAliases() (*Aliases, error) {
	db, err := buntdb.Open(":memory:")
	if err != nil {
		return nil, err
	}

	if err := db.CreateIndex("height", "*", buntdb.IndexJSON("height")); err != nil {
		return nil, err
	}

	return &Aliases{db: db}, nil
}

// Name identifies this table for registration-order logging.
func (a *Aliases) Name() string { return "aliases" }

// Reserve claims name for accountID at height. Returns an error if the
// name is already reserved — the duplicate tracker is expected to have
// rejected the transaction before Reserve is ever called, so this is a
// consistency check rather than the primary defense.
func (a *Aliases) Reserve(name string, accountID uint64, height uint32) error {
	return a.db.Update(func(tx *buntdb.Tx) error {
		if _, err := tx.Get(name); err == nil {
			return fmt.Errorf("alias %q already reserved", name)
		}

		value := fmt.Sprintf(`{"account":%d,"height":%d}`, accountID, height)
		_, _, err := tx.Set(name, value, nil)
		return err
	})
}

// Rollback removes every alias reserved above the given height.
func (a *Aliases) Rollback(height uint32) error {
	return a.db.Update(func(tx *buntdb.Tx) error {
		var stale []string

		err := tx.AscendGreaterOrEqual("height", fmt.Sprintf(`{"height":%d}`, height+1), func(key, value string) bool {
			stale = append(stale, key)
			return true
		})
		if err != nil {
			return err
		}

		for _, k := range stale {
			if _, err := tx.Delete(k); err != nil && err != buntdb.ErrNotFound {
				return err
			}
		}

		return nil
	})
}

// Trim is a no-op: the alias namespace has no bounded history to discard
// below a height, since each entry is a live reservation rather than an
// append-only log of deltas.
func (a *Aliases) Trim(height uint32) error {
	return nil
}

// Truncate removes every reservation, as for a full rescan from genesis.
func (a *Aliases) Truncate() error {
	return a.db.Update(func(tx *buntdb.Tx) error {
		var keys []string
		if err := tx.Ascend("", func(key, value string) bool {
			keys = append(keys, key)
			return true
		}); err != nil {
			return err
		}

		for _, k := range keys {
			if _, err := tx.Delete(k); err != nil {
				return err
			}
		}

		return nil
	})
}

// Close releases the underlying store.
func (a *Aliases) Close() error {
	return a.db.Close()
}
