// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

package chain

import (
	"sort"

	"github.com/lifecoin-project/lifecoind/pkg/core/data/block"
	"github.com/lifecoin-project/lifecoind/pkg/core/verifiers"
	"github.com/pkg/errors"
	"golang.org/x/crypto/ed25519"
)

// GenerateBlock implements spec.md §4.5: select eligible unconfirmed
// transactions, assemble, sign, and submit a new block extending the
// current head.
func (c *Chain) GenerateBlock(forgerSecret ed25519.PrivateKey, targetTimestamp int64) (*block.Block, error) {
	c.mu.Lock()
	prev := c.Tip()
	c.mu.Unlock()

	if c.txProc == nil {
		return nil, errors.New("chain: no transaction processor configured for generation")
	}

	selected := c.selectTransactions(prev, targetTimestamp)

	sort.Slice(selected, func(i, j int) bool {
		return selected[i].CompareTo(selected[j]) < 0
	})

	blk := block.NewBlock()
	blk.SetPrevious(prev)
	for _, tx := range selected {
		blk.AddTx(tx)
	}

	version := verifiers.BlockVersionForHeight(prev.Header.Height, c.cfg.Chain.TransparentForgingHeight, c.cfg.Chain.NQTHeight)
	blk.Header.Version = version
	blk.Header.Timestamp = targetTimestamp

	amount, fee := blk.Totals()
	blk.Header.TotalAmountNQT = amount
	blk.Header.TotalFeeNQT = fee
	blk.Header.PayloadLength = uint32(len(blk.PayloadBytes()))

	payloadHash, err := hashOf(blk.PayloadBytes())
	if err != nil {
		return nil, err
	}
	blk.Header.PayloadHash = payloadHash

	publicKey := forgerSecret.Public().(ed25519.PublicKey)
	blk.Header.GeneratorPublicKey = publicKey

	genSigPreimage, err := verifiers.ExpectedGenerationSignature(prev, publicKey)
	if err != nil {
		return nil, err
	}

	if version == 1 {
		blk.Header.GenerationSignature = genSigPreimage
	} else {
		blk.Header.GenerationSignature = ed25519.Sign(forgerSecret, genSigPreimage)
		blk.Header.PreviousBlockHash = prev.Header.Hash
	}

	blk.Header.BlockSignature = ed25519.Sign(forgerSecret, blk.Header.UnsignedBytes())

	hashBytes, err := blk.CalculateHash()
	if err != nil {
		return nil, err
	}
	blk.Header.Hash = hashBytes
	blk.Header.ID = firstEightLE(hashBytes)

	if err := c.PushBlock(blk); err != nil {
		if tnErr, ok := err.(*TransactionNotAcceptedError); ok && tnErr.Tx != nil {
			c.txProc.Remove(tnErr.Tx)
		}
		return nil, err
	}

	c.bus.Fire(EventBlockGenerated, blk)

	return blk, nil
}

// selectTransactions runs the fixed-point selection loop: repeatedly scan
// the unconfirmed pool for transactions not yet chosen, admitting those
// that fit and pass every check, until an iteration adds nothing.
func (c *Chain) selectTransactions(prev *block.Block, targetTimestamp int64) []*block.Transaction {
	pool := c.txProc.Unconfirmed()
	chosen := make([]*block.Transaction, 0)
	chosenSet := make(map[*block.Transaction]bool)
	tracker := newDuplicateTracker()

	payloadLen := uint32(0)

	for {
		addedThisRound := false

		for _, tx := range pool {
			if chosenSet[tx] {
				continue
			}

			if len(chosen) >= c.cfg.Chain.MaxTransactionsPerBlock {
				break
			}

			size := uint32(tx.Size())
			if payloadLen+size > c.cfg.Chain.MaxPayloadLength {
				continue
			}

			wantVersion := verifiers.TxVersionForHeight(prev.Header.Height, c.cfg.Chain.TransparentForgingHeight, c.cfg.Chain.NQTHeight)
			if tx.Version != wantVersion {
				continue
			}

			if tx.Timestamp > targetTimestamp+verifiers.MaxFutureDriftSeconds {
				continue
			}

			if !tracker.admit(tx.Type, duplicateKey(tx)) {
				continue
			}

			if err := c.txProc.Validate(tx); err != nil {
				if _, notCurrentlyValid := err.(*NotCurrentlyValidError); notCurrentlyValid {
					continue
				}
				c.txProc.Remove(tx)
				continue
			}

			chosen = append(chosen, tx)
			chosenSet[tx] = true
			payloadLen += size
			addedThisRound = true
		}

		if !addedThisRound {
			break
		}
	}

	return chosen
}

func firstEightLE(h []byte) uint64 {
	var id uint64
	for i := 0; i < 8 && i < len(h); i++ {
		id |= uint64(h[i]) << (8 * i)
	}
	return id
}

