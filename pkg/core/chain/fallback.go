// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

package chain

import (
	"math/big"

	"github.com/lifecoin-project/lifecoind/pkg/core/data/block"
)

// blacklister receives the reason a peer is being dropped. It is the
// download loop's abstraction over peer.Blacklist, kept decoupled here so
// the fork reconciler has no dependency on the transport package.
type blacklister func(cause error)

// ProcessFork implements spec.md §4.3: roll back to the common ancestor,
// attempt the candidate branch, and restore the original branch if the
// candidate regresses cumulative difficulty or fails partway through.
func (c *Chain) ProcessFork(commonAncestorHeight uint32, forkBlocks []*block.Block, blacklist blacklister) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	// 1. Snapshot current cumulative difficulty.
	originalHead := c.Tip()
	snapshot := new(big.Int).Set(originalHead.Header.CumulativeDifficulty)

	// 2. Roll back to the common ancestor, keeping popped blocks.
	popped, err := c.popOffToLocked(commonAncestorHeight + 1)
	if err != nil {
		return err
	}

	// 3. Push fork blocks in order; on rejection, blacklist and stop.
	var pushedAny bool
	for _, fb := range forkBlocks {
		if err := c.pushBlockLocked(fb); err != nil {
			blacklist(err)
			break
		}
		pushedAny = true
	}

	newHead := c.Tip()

	// 4. Worse chain: undo, requeue the now-orphaned fork blocks'
	// transactions, restore the original branch.
	if pushedAny && newHead.Header.CumulativeDifficulty.Cmp(snapshot) < 0 {
		blacklist(&BlockNotAcceptedError{Reason: "fork regresses cumulative difficulty"})

		poppedFork, err := c.popOffToLocked(commonAncestorHeight + 1)
		if err != nil {
			return err
		}

		c.requeueBlocksLater(poppedFork)
		return c.restoreBranchLocked(popped)
	}

	// 5. No forked blocks pushed: restore the original branch. Otherwise
	// the fork is now the head; the original, now-orphaned branch's
	// transactions go to "process later".
	if !pushedAny {
		return c.restoreBranchLocked(popped)
	}

	c.requeueBlocksLater(popped)
	return nil
}

// restoreBranchLocked pushes previously popped blocks back in their
// original (ancestor-to-head) order.
func (c *Chain) restoreBranchLocked(popped []*block.Block) error {
	for i := len(popped) - 1; i >= 0; i-- {
		if err := c.pushBlockLocked(popped[i]); err != nil {
			return err
		}
	}
	return nil
}

func (c *Chain) requeueBlocksLater(blocks []*block.Block) {
	if c.txProc == nil {
		return
	}

	for _, b := range blocks {
		c.txProc.ProcessLater(b.Txs)
	}
}
