// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

package chain

import (
	"encoding/binary"
	"math/big"
	"strconv"
	"time"

	"github.com/lifecoin-project/lifecoind/pkg/core/data/block"
	"github.com/lifecoin-project/lifecoind/pkg/core/database"
	"github.com/lifecoin-project/lifecoind/pkg/core/verifiers"
)

// PushBlock validates a parsed candidate block against the current head
// and, on success, commits it: the eleven-step sequence of spec.md §4.1,
// executed under the chain mutex. Store reads and the final block write go
// through separate View/Update calls; no single store transaction spans
// the whole sequence.
func (c *Chain) PushBlock(blk *block.Block) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pushBlockLocked(blk)
}

func (c *Chain) pushBlockLocked(blk *block.Block) error {
	prev := c.Tip()
	now := time.Now()

	// 1. Chain continuity.
	if blk.Header.PreviousBlockID != prev.Header.ID {
		return &BlockOutOfOrderError{Reason: "previous block id does not match current head"}
	}

	// 2. Version gating.
	wantVersion := verifiers.BlockVersionForHeight(prev.Header.Height, c.cfg.Chain.TransparentForgingHeight, c.cfg.Chain.NQTHeight)
	if blk.Header.Version != wantVersion {
		return &BlockNotAcceptedError{Reason: "unexpected block version"}
	}

	// 3. Checksum gates, exactly at the two milestone heights.
	if prev.Header.Height == c.cfg.Chain.TransparentForgingHeight {
		if err := verifyChecksumAt(c.db, prev.Header.Height, c.cfg.Genesis.ChecksumTransparent); err != nil {
			return &BlockNotAcceptedError{Reason: err.Error()}
		}
	}
	if prev.Header.Height == c.cfg.Chain.NQTHeight {
		if err := verifyChecksumAt(c.db, prev.Header.Height, c.cfg.Genesis.ChecksumNQT); err != nil {
			return &BlockNotAcceptedError{Reason: err.Error()}
		}
	}

	// 4 & 5. Previous-block hash and timestamp window.
	if err := verifiers.CheckBlockHeader(prev, blk, c.cfg.Chain.TransparentForgingHeight, c.cfg.Chain.NQTHeight, now); err != nil {
		return &BlockOutOfOrderError{Reason: err.Error()}
	}

	// 6. Identity.
	if blk.Header.ID == 0 {
		return &BlockNotAcceptedError{Reason: "block id is zero"}
	}

	var alreadyStored bool
	if err := c.db.View(func(t database.Transaction) error {
		_, ferr := t.FetchBlockByID(blk.Header.ID)
		alreadyStored = ferr == nil
		return nil
	}); err != nil {
		return err
	}
	if alreadyStored {
		return &BlockNotAcceptedError{Reason: "duplicate block"}
	}

	// 7. Generation signature.
	if err := verifiers.CheckGenerationSignature(prev, blk, c.allowFakeForging); err != nil {
		return &BlockNotAcceptedError{Reason: err.Error()}
	}

	// 8. Block signature.
	if err := verifiers.CheckBlockSignature(blk); err != nil {
		return &BlockNotAcceptedError{Reason: err.Error()}
	}

	// 9. Per-transaction checks.
	if err := c.checkTransactions(prev, blk, now); err != nil {
		return err
	}

	// 10. Aggregate equality.
	if err := verifiers.CheckAggregates(blk); err != nil {
		return &BlockNotAcceptedError{Reason: err.Error()}
	}

	// 11. Commit.
	return c.commitBlock(prev, blk)
}

func (c *Chain) checkTransactions(prev, blk *block.Block, now time.Time) error {
	tracker := newDuplicateTracker()

	var existence func(hash []byte) (bool, error)
	existence = func(hash []byte) (bool, error) {
		var ok bool
		err := c.db.View(func(t database.Transaction) error {
			var e error
			ok, e = t.FetchTxExists(hash)
			return e
		})
		return ok, err
	}

	for _, tx := range blk.Txs {
		if err := verifiers.CheckTransactionTimestamps(tx, blk, prev.Header.Height, now); err != nil {
			return &TransactionNotAcceptedError{Reason: err.Error(), Tx: tx}
		}

		fullHash, err := tx.FullHash()
		if err != nil {
			return err
		}

		exists, err := existence(fullHash)
		if err != nil {
			return err
		}
		if exists {
			return &TransactionNotAcceptedError{Reason: "transaction already persisted", Tx: tx}
		}

		if tx.HasReference() {
			if err := c.checkReferenceChain(tx, blk, prev.Header.Height, existence); err != nil {
				return err
			}
		}

		if err := verifiers.CheckTransactionVersion(tx, prev.Header.Height, c.cfg.Chain.TransparentForgingHeight, c.cfg.Chain.NQTHeight); err != nil {
			return &TransactionNotAcceptedError{Reason: err.Error(), Tx: tx}
		}

		if err := verifiers.CheckTransactionSignature(tx); err != nil {
			return &TransactionNotAcceptedError{Reason: err.Error(), Tx: tx}
		}

		if err := verifiers.CheckTransactionIdentity(tx); err != nil {
			return &TransactionNotAcceptedError{Reason: err.Error(), Tx: tx}
		}

		if !tracker.admit(tx.Type, duplicateKey(tx)) {
			return &TransactionNotAcceptedError{Reason: "duplicate within block", Tx: tx}
		}

		if c.txProc != nil {
			if err := c.txProc.Validate(tx); err != nil {
				return err
			}
		}
	}

	return nil
}

// duplicateKey derives the discriminating key the tracker buckets a
// transaction under. The fine-grained, type-specific discriminator (e.g.
// an alias name encoded within the attachment) belongs to the
// transaction-type handlers this package never imports, so the attachment
// bytes themselves stand in as the key: two transactions of the same type
// carrying the same attachment collide, exactly as two alias registrations
// for the same name must. A transaction with no attachment falls back to
// its id, since an empty key would otherwise collide every no-attachment
// transaction of a type within the block.
func duplicateKey(tx *block.Transaction) string {
	if len(tx.Attachment) > 0 {
		return string(tx.Attachment)
	}

	id, _ := tx.ID()
	return strconv.FormatUint(id, 10)
}

// checkReferenceChain walks a transaction's referenced-transaction chain.
// Before the full-hash milestone only the immediate reference must exist;
// at or after, every hop must exist up to depth 10 and within
// 60*1440*60 seconds of the referencing timestamp.
func (c *Chain) checkReferenceChain(tx *block.Transaction, blk *block.Block, prevHeight uint32, existence func([]byte) (bool, error)) error {
	if prevHeight < c.cfg.Chain.ReferencedTxFullHashHeight {
		ok, err := existence(tx.ReferencedFullHash)
		if err != nil {
			return err
		}
		if !ok {
			return &NotCurrentlyValidError{Reason: "referenced transaction does not exist"}
		}
		return nil
	}

	const maxDepth = 10
	const maxAge = int64(60 * 1440 * 60)

	current := tx
	for depth := 0; depth < maxDepth; depth++ {
		if !current.HasReference() {
			return nil
		}

		var referenced *block.Transaction
		err := c.db.View(func(t database.Transaction) error {
			var ferr error
			referenced, ferr = t.FetchTxByFullHash(current.ReferencedFullHash)
			return ferr
		})
		if err != nil {
			return &NotCurrentlyValidError{Reason: "referenced transaction does not exist"}
		}

		if tx.Timestamp-referenced.Timestamp > maxAge {
			return &NotCurrentlyValidError{Reason: "referenced transaction chain too old"}
		}

		current = referenced
	}

	if current.HasReference() {
		return &NotCurrentlyValidError{Reason: "referenced transaction chain too deep"}
	}

	return nil
}

// commitBlock performs step 11: wire the block to its predecessor, fire
// BeforeBlockAccept, requeue the unconfirmed pool, run Accept, and only
// once that succeeds persist the block and set head. Running Accept before
// the store write means a rejected block is never left stored against a
// head that doesn't include it — store state and head always agree.
func (c *Chain) commitBlock(prev, blk *block.Block) error {
	blk.Header.CumulativeDifficulty = new(big.Int).Add(prev.Header.CumulativeDifficulty, big.NewInt(1))

	c.bus.Fire(EventBeforeBlockAccept, blk)

	if c.txProc != nil {
		c.txProc.Requeue(c.txProc.Unconfirmed())
	}

	if err := c.accept(blk); err != nil {
		return err
	}

	if err := c.db.Update(func(t database.Transaction) error {
		return t.StoreBlock(blk)
	}); err != nil {
		return err
	}

	c.setTip(blk)

	c.bus.Fire(EventBlockPushed, blk)

	return nil
}

// accept applies each transaction's unconfirmed effect, fires the two
// apply-boundary events, and notifies the transaction processor.
func (c *Chain) accept(blk *block.Block) error {
	if c.txProc == nil {
		return nil
	}

	for _, tx := range blk.Txs {
		ok, err := c.txProc.ApplyUnconfirmed(tx)
		if err != nil {
			return err
		}
		if !ok {
			return &ValidationError{Reason: "double-spend detected in applyUnconfirmed"}
		}
	}

	c.bus.Fire(EventBeforeBlockApply, blk)

	generatorAccountID := generatorAccountIDFromKey(blk.Header.GeneratorPublicKey)
	for _, tx := range blk.Txs {
		if err := c.txProc.Apply(tx, blk, generatorAccountID); err != nil {
			return err
		}
	}

	c.bus.Fire(EventAfterBlockApply, blk)

	return nil
}

// generatorAccountIDFromKey derives the numeric account id that receives
// a block's fees, the same truncated-hash convention as a transaction id.
func generatorAccountIDFromKey(publicKey []byte) uint64 {
	h, err := hashOf(publicKey)
	if err != nil || len(h) < 8 {
		return 0
	}

	return binary.LittleEndian.Uint64(h[:8])
}
