// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

package chain

import (
	"sync/atomic"

	"github.com/lifecoin-project/lifecoind/pkg/core/data/block"
	"github.com/lifecoin-project/lifecoind/pkg/core/database"
	"github.com/lifecoin-project/lifecoind/pkg/core/verifiers"
	"github.com/pkg/errors"
)

// Scan implements spec.md §4.4: replay persisted blocks from height,
// optionally re-validating each one, rebuilding derived-table state as it
// goes. It pauses the download loop for its duration.
func (c *Chain) Scan(height uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	prevGetMoreBlocks := c.GetMoreBlocks()
	c.SetGetMoreBlocks(false)
	defer c.SetGetMoreBlocks(prevGetMoreBlocks)

	atomic.StoreInt32(&c.scanning, 1)
	defer atomic.StoreInt32(&c.scanning, 0)

	currentHeight := c.Tip().Header.Height
	if height > currentHeight+1 {
		return errors.New("chain: scan height exceeds head+1")
	}

	minHeight := c.minRollbackHeightLocked()
	if height > 0 && height < minHeight {
		height = 0
	}

	if c.txProc != nil {
		c.txProc.Requeue(c.txProc.Unconfirmed())
	}

	for _, table := range c.derivedTables {
		var err error
		if height == 0 {
			err = table.Truncate()
		} else {
			err = table.Rollback(height - 1)
		}
		if err != nil {
			return errors.Wrapf(err, "rescan: table %q", table.Name())
		}
	}

	var startBlock *block.Block
	var err error
	if height == 0 {
		startBlock, err = c.fetchBlockByHeight(0)
	} else {
		startBlock, err = c.fetchBlockByHeight(height - 1)
	}
	if err != nil {
		return err
	}

	c.setTip(startBlock)
	c.bus.Fire(EventRescanBegin, startBlock)

	validate := atomic.LoadInt32(&c.validateAtScan) == 1
	nextHeight := height
	if height == 0 {
		nextHeight = 1
	}

	for {
		var blk *block.Block
		err := c.db.View(func(t database.Transaction) error {
			var ferr error
			blk, ferr = t.FetchBlockByHeight(nextHeight)
			return ferr
		})
		if err != nil {
			break // no more stored blocks
		}

		if blk.Header.PreviousBlockID != c.Tip().Header.ID {
			if rerr := c.failRescan(nextHeight); rerr != nil {
				return rerr
			}
			break
		}

		if validate {
			if verr := c.revalidate(blk); verr != nil {
				if rerr := c.failRescan(nextHeight); rerr != nil {
					return rerr
				}
				break
			}
		}

		if perr := c.db.Update(func(t database.Transaction) error { return t.SetTip(blk) }); perr != nil {
			return perr
		}
		c.setTip(blk)

		if aerr := c.accept(blk); aerr != nil {
			if rerr := c.failRescan(nextHeight); rerr != nil {
				return rerr
			}
			break
		}

		c.bus.Fire(EventBlockScanned, blk)
		nextHeight++
	}

	c.bus.Fire(EventRescanEnd, c.Tip())
	atomic.StoreInt32(&c.validateAtScan, 0)

	return nil
}

// failRescan deletes every stored block from failingHeight onward,
// requeues their transactions, and sets head to the new last-stored
// block.
func (c *Chain) failRescan(failingHeight uint32) error {
	var toDelete []*block.Block

	h := failingHeight
	for {
		var blk *block.Block
		err := c.db.View(func(t database.Transaction) error {
			var ferr error
			blk, ferr = t.FetchBlockByHeight(h)
			return ferr
		})
		if err != nil {
			break
		}
		toDelete = append(toDelete, blk)
		h++
	}

	err := c.db.Update(func(t database.Transaction) error {
		for _, blk := range toDelete {
			if derr := t.DeleteBlock(blk); derr != nil {
				return derr
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, blk := range toDelete {
		if c.txProc != nil {
			c.txProc.ProcessLater(blk.Txs)
		}
	}

	newHead, herr := c.fetchBlockByHeight(failingHeight - 1)
	if herr != nil {
		return herr
	}
	c.setTip(newHead)

	return c.db.Update(func(t database.Transaction) error {
		return t.SetTip(newHead)
	})
}

// revalidate re-checks signature, generation signature, version, and
// byte-round-trip for a stored block and each of its transactions.
func (c *Chain) revalidate(blk *block.Block) error {
	prev, err := c.fetchBlockByHeight(blk.Header.Height - 1)
	if err != nil {
		return err
	}

	if err := verifiers.CheckBlockSignature(blk); err != nil {
		return err
	}

	if err := verifiers.CheckGenerationSignature(prev, blk, c.allowFakeForging); err != nil {
		return err
	}

	wantVersion := verifiers.BlockVersionForHeight(prev.Header.Height, c.cfg.Chain.TransparentForgingHeight, c.cfg.Chain.NQTHeight)
	if blk.Header.Version != wantVersion {
		return errors.New("rescan: unexpected block version")
	}

	recomputedHash, err := blk.Header.CalculateHash()
	if err != nil {
		return err
	}
	if string(recomputedHash) != string(blk.Header.Hash) {
		return errors.New("rescan: block header byte round-trip mismatch")
	}

	for _, tx := range blk.Txs {
		decoded, err := block.DecodeTransaction(tx.Bytes())
		if err != nil {
			return err
		}
		if !decoded.Equals(tx) {
			return errors.New("rescan: transaction byte round-trip mismatch")
		}
	}

	return nil
}
