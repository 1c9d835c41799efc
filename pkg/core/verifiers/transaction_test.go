// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

package verifiers

import (
	"crypto/rand"
	"testing"
	"time"

	"github.com/lifecoin-project/lifecoind/pkg/core/data/block"
	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/ed25519"
)

func signedTx(t *testing.T, secret ed25519.PrivateKey, timestamp int64, deadline uint16) *block.Transaction {
	t.Helper()

	publicKey := secret.Public().(ed25519.PublicKey)
	tx := &block.Transaction{
		Version:   3,
		Timestamp: timestamp,
		Deadline:  deadline,
		SenderKey: publicKey,
		RecipientID: 42,
		AmountNQT: 100,
		FeeNQT:    1,
	}
	tx.Signature = ed25519.Sign(secret, tx.UnsignedBytes())
	return tx
}

func TestCheckTransactionTimestampsAcceptsWithinWindow(t *testing.T) {
	assert := assert.New(t)

	secret := generatorKeyForTest(t)
	now := time.Unix(1000, 0)
	blk := block.NewBlock()
	blk.Header.Timestamp = 1000

	tx := signedTx(t, secret, 990, 60) // expires at 990+3600=4590, well past block timestamp
	err := CheckTransactionTimestamps(tx, blk, 10, now)
	assert.NoError(err)
}

func TestCheckTransactionTimestampsRejectsFutureRelativeToClock(t *testing.T) {
	assert := assert.New(t)

	secret := generatorKeyForTest(t)
	now := time.Unix(1000, 0)
	blk := block.NewBlock()
	blk.Header.Timestamp = 2000

	tx := signedTx(t, secret, now.Unix()+int64(MaxFutureDriftSeconds)+1, 60)
	err := CheckTransactionTimestamps(tx, blk, 10, now)
	assert.Error(err)
}

func TestCheckTransactionTimestampsRejectsAheadOfBlock(t *testing.T) {
	assert := assert.New(t)

	secret := generatorKeyForTest(t)
	now := time.Unix(1000, 0)
	blk := block.NewBlock()
	blk.Header.Timestamp = 500

	tx := signedTx(t, secret, 500+int64(MaxFutureDriftSeconds)+1, 60)
	err := CheckTransactionTimestamps(tx, blk, 10, now)
	assert.Error(err)
}

func TestCheckTransactionTimestampsRejectsExpired(t *testing.T) {
	assert := assert.New(t)

	secret := generatorKeyForTest(t)
	now := time.Unix(10000, 0)
	blk := block.NewBlock()
	blk.Header.Timestamp = 9000

	tx := signedTx(t, secret, 100, 1) // expires at 100+60=160, long before block timestamp
	err := CheckTransactionTimestamps(tx, blk, 10, now)
	assert.Error(err)
}

func TestCheckTransactionTimestampsHonorsBlock303Exception(t *testing.T) {
	assert := assert.New(t)

	secret := generatorKeyForTest(t)
	now := time.Unix(10000, 0)
	blk := block.NewBlock()
	blk.Header.Timestamp = 9000

	tx := signedTx(t, secret, 100, 1) // would expire, but prevHeight is the exception
	err := CheckTransactionTimestamps(tx, blk, block303ExpirationException, now)
	assert.NoError(err)
}

func TestCheckTransactionVersionAcceptsExpected(t *testing.T) {
	assert := assert.New(t)

	tx := &block.Transaction{Version: 1}
	err := CheckTransactionVersion(tx, 5, 100, 200)
	assert.NoError(err)
}

func TestCheckTransactionVersionRejectsMismatch(t *testing.T) {
	assert := assert.New(t)

	tx := &block.Transaction{Version: 2}
	err := CheckTransactionVersion(tx, 5, 100, 200)
	assert.Error(err)
}

func TestCheckTransactionSignatureAcceptsValid(t *testing.T) {
	assert := assert.New(t)

	secret := generatorKeyForTest(t)
	tx := signedTx(t, secret, 1000, 60)
	assert.NoError(CheckTransactionSignature(tx))
}

func TestCheckTransactionSignatureRejectsTamperedSignature(t *testing.T) {
	assert := assert.New(t)

	secret := generatorKeyForTest(t)
	tx := signedTx(t, secret, 1000, 60)
	other := generatorKeyForTest(t)
	tx.Signature = ed25519.Sign(other, tx.UnsignedBytes())
	assert.Error(CheckTransactionSignature(tx))
}

func TestCheckTransactionSignatureRejectsMalformedSenderKey(t *testing.T) {
	assert := assert.New(t)

	secret := generatorKeyForTest(t)
	tx := signedTx(t, secret, 1000, 60)
	tx.SenderKey = tx.SenderKey[:16]
	assert.Error(CheckTransactionSignature(tx))
}

func TestCheckTransactionSignatureRejectsMalformedSignature(t *testing.T) {
	assert := assert.New(t)

	secret := generatorKeyForTest(t)
	tx := signedTx(t, secret, 1000, 60)
	tx.Signature = tx.Signature[:10]
	assert.Error(CheckTransactionSignature(tx))
}

func TestCheckTransactionIdentityAcceptsNonZeroID(t *testing.T) {
	assert := assert.New(t)

	secret := generatorKeyForTest(t)
	tx := signedTx(t, secret, 1000, 60)
	err := CheckTransactionIdentity(tx)
	assert.NoError(err)
}

func generatorKeyForTest(t *testing.T) ed25519.PrivateKey {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	assert.NoError(t, err)
	return priv
}
