// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

package chain

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"testing"

	"github.com/lifecoin-project/lifecoind/pkg/core/data/block"
	"github.com/lifecoin-project/lifecoind/pkg/core/database"
	"github.com/stretchr/testify/assert"
)

func TestVerifyChecksumAtEmptyWantIsNoop(t *testing.T) {
	assert := assert.New(t)

	db := newMemDB()
	storeGenesis(db)

	assert.NoError(verifyChecksumAt(db, 0, ""))
}

func TestVerifyChecksumAtMatchesComputedDigest(t *testing.T) {
	assert := assert.New(t)

	db := newMemDB()
	genesis := storeGenesis(db)

	tx := &block.Transaction{
		Version:   0,
		Type:      0,
		Timestamp: 100,
		SenderKey: make([]byte, 32),
		AmountNQT: 5,
		FeeNQT:    1,
		Signature: make([]byte, 64),
	}

	second := block.NewBlock()
	second.SetPrevious(genesis)
	second.Header.ID = 2
	second.AddTx(tx)
	_ = db.Update(func(dt database.Transaction) error { return dt.StoreBlock(second) })

	var txs []*block.Transaction
	_ = db.View(func(dt database.Transaction) error {
		for h := uint32(0); h <= 1; h++ {
			blk, err := dt.FetchBlockByHeight(h)
			assert.NoError(err)
			txs = append(txs, blk.Txs...)
		}
		return nil
	})
	sort.Slice(txs, func(i, j int) bool { return txs[i].CompareTo(txs[j]) < 0 })

	buf := new(bytes.Buffer)
	for _, t := range txs {
		buf.Write(t.Bytes())
	}
	wantSum := sha256.Sum256(buf.Bytes())

	assert.NoError(verifyChecksumAt(db, 1, hex.EncodeToString(wantSum[:])))
}

func TestVerifyChecksumAtRejectsMismatch(t *testing.T) {
	assert := assert.New(t)

	db := newMemDB()
	storeGenesis(db)

	wrong := make([]byte, 32)
	wrong[0] = 0xff

	assert.Error(verifyChecksumAt(db, 0, hex.EncodeToString(wrong)))
}

func TestVerifyChecksumAtRejectsMalformedWant(t *testing.T) {
	assert := assert.New(t)

	db := newMemDB()
	storeGenesis(db)

	assert.Error(verifyChecksumAt(db, 0, "not-hex"))
}
