// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

package chain

import (
	"crypto/rand"
	"testing"

	"github.com/lifecoin-project/lifecoind/pkg/core/data/block"
	"github.com/lifecoin-project/lifecoind/pkg/core/verifiers"
	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/ed25519"
)

// fakeTxProcessor is a no-op TransactionProcessor: an empty unconfirmed
// pool and unconditionally successful apply/validate, enough to exercise
// PushBlock/GenerateBlock without inventing transaction semantics.
type fakeTxProcessor struct {
	pool         []*block.Transaction
	validateFunc func(tx *block.Transaction) error

	applied        []*block.Transaction
	removed        []*block.Transaction
	requeued       []*block.Transaction
	processedLater []*block.Transaction
}

func (p *fakeTxProcessor) Unconfirmed() []*block.Transaction { return p.pool }
func (p *fakeTxProcessor) Validate(tx *block.Transaction) error {
	if p.validateFunc != nil {
		return p.validateFunc(tx)
	}
	return nil
}
func (p *fakeTxProcessor) ApplyUnconfirmed(tx *block.Transaction) (bool, error) { return true, nil }
func (p *fakeTxProcessor) Apply(tx *block.Transaction, blk *block.Block, generatorAccountID uint64) error {
	p.applied = append(p.applied, tx)
	return nil
}
func (p *fakeTxProcessor) Remove(tx *block.Transaction)          { p.removed = append(p.removed, tx) }
func (p *fakeTxProcessor) Requeue(txs []*block.Transaction)      { p.requeued = append(p.requeued, txs...) }
func (p *fakeTxProcessor) ProcessLater(txs []*block.Transaction) { p.processedLater = append(p.processedLater, txs...) }

func generatorKey(t *testing.T) ed25519.PrivateKey {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	assert.NoError(t, err)
	return priv
}

func TestPushBlockAcceptsGeneratedBlock(t *testing.T) {
	assert := assert.New(t)

	c, _ := testChain(t)
	c.txProc = &fakeTxProcessor{}

	secret := generatorKey(t)

	var pushedFired *block.Block
	c.Subscribe(EventBlockPushed, func(b *block.Block) { pushedFired = b })

	blk, err := c.GenerateBlock(secret, c.Tip().Header.Timestamp+1)
	assert.NoError(err)
	assert.NotNil(blk)
	assert.Equal(uint32(1), c.Tip().Header.Height)
	assert.Equal(blk.Header.ID, c.Tip().Header.ID)
	assert.Equal(blk, pushedFired)
}

func TestPushBlockRejectsWrongPreviousID(t *testing.T) {
	assert := assert.New(t)

	c, _ := testChain(t)
	head := c.Tip()

	blk := block.NewBlock()
	blk.SetPrevious(head)
	blk.Header.PreviousBlockID = head.Header.ID + 999 // deliberately wrong

	err := c.PushBlock(blk)
	assert.Error(err)
	_, ok := err.(*BlockOutOfOrderError)
	assert.True(ok, "expected *BlockOutOfOrderError, got %T", err)
}

func TestPushBlockRejectsDuplicateBlock(t *testing.T) {
	assert := assert.New(t)

	c, _ := testChain(t)
	c.txProc = &fakeTxProcessor{}
	secret := generatorKey(t)

	blk, err := c.GenerateBlock(secret, c.Tip().Header.Timestamp+1)
	assert.NoError(err)

	// Re-push the same already-committed block: its previous id now
	// mismatches the new head, so it is rejected as out-of-order before
	// the duplicate-id check is ever reached.
	err = c.PushBlock(blk)
	assert.Error(err)
}

func TestPushBlockRejectsBadBlockSignature(t *testing.T) {
	assert := assert.New(t)

	c, _ := testChain(t)
	c.txProc = &fakeTxProcessor{}
	secret := generatorKey(t)

	head := c.Tip()

	blk := block.NewBlock()
	blk.SetPrevious(head)
	blk.Header.Version = 3
	blk.Header.Timestamp = head.Header.Timestamp + 1

	publicKey := secret.Public().(ed25519.PublicKey)
	blk.Header.GeneratorPublicKey = publicKey

	genSigPreimage, err := verifiers.ExpectedGenerationSignature(head, publicKey)
	assert.NoError(err)
	blk.Header.GenerationSignature = ed25519.Sign(secret, genSigPreimage)

	amount, fee := blk.Totals()
	blk.Header.TotalAmountNQT = amount
	blk.Header.TotalFeeNQT = fee
	blk.Header.PayloadLength = uint32(len(blk.PayloadBytes()))
	payloadHash, err := hashOf(blk.PayloadBytes())
	assert.NoError(err)
	blk.Header.PayloadHash = payloadHash

	// Tamper: sign with a different key than GeneratorPublicKey claims.
	other := generatorKey(t)
	blk.Header.BlockSignature = ed25519.Sign(other, blk.Header.UnsignedBytes())

	hashBytes, err := blk.CalculateHash()
	assert.NoError(err)
	blk.Header.Hash = hashBytes
	blk.Header.ID = firstEightLE(hashBytes)

	err = c.PushBlock(blk)
	assert.Error(err)
	_, ok := err.(*BlockNotAcceptedError)
	assert.True(ok, "expected *BlockNotAcceptedError, got %T", err)
}
