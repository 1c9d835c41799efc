// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

package block

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func randTx(ts int64, amount uint64) *Transaction {
	return &Transaction{
		Version:   3,
		Type:      1,
		Timestamp: ts,
		Deadline:  1440,
		SenderKey: make([]byte, 32),
		AmountNQT: amount,
		FeeNQT:    1,
		Signature: make([]byte, 64),
	}
}

func TestTxFromBlock(t *testing.T) {
	assert := assert.New(t)

	blk := NewBlock()
	blk.AddTx(randTx(1000, 1))
	blk.AddTx(randTx(1001, 2))
	blk.AddTx(randTx(1002, 3))

	tx, err := blk.Tx([]byte{0, 0, 0, 0})
	assert.Error(err)
	assert.Nil(tx)

	for _, want := range blk.Txs {
		h, herr := want.FullHash()
		assert.NoError(herr)

		got, err := blk.Tx(h)
		assert.NoError(err)
		assert.NotNil(got)
		assert.True(want.Equals(got))
	}
}

func TestHeaderCopyIsIndependent(t *testing.T) {
	assert := assert.New(t)

	h := NewHeader()
	h.GeneratorPublicKey[0] = 0xAB
	h.CumulativeDifficulty.SetInt64(42)

	c := h.Copy()
	c.GeneratorPublicKey[0] = 0xFF
	c.CumulativeDifficulty.SetInt64(7)

	assert.EqualValues(0xAB, h.GeneratorPublicKey[0])
	assert.EqualValues(42, h.CumulativeDifficulty.Int64())
	assert.True(h.Equals(h))
	assert.False(h.Equals(c))
}

func TestBlockBytesDeterministic(t *testing.T) {
	assert := assert.New(t)

	blk := NewBlock()
	blk.Header.Version = 3
	blk.Header.Timestamp = 1000
	blk.AddTx(randTx(999, 5))

	first := blk.Bytes()
	second := blk.Bytes()
	assert.Equal(first, second)
}

func TestBlockEncodeDecodeRoundTrip(t *testing.T) {
	assert := assert.New(t)

	blk := NewBlock()
	blk.Header.Version = 2
	blk.Header.Timestamp = 123456
	blk.Header.Height = 42
	blk.Header.ID = 987654321
	blk.Header.PreviousBlockID = 111
	blk.Header.PreviousBlockHash = make([]byte, 32)
	blk.Header.PreviousBlockHash[0] = 0x11
	blk.Header.CumulativeDifficulty.SetInt64(1000)
	blk.Header.Hash = make([]byte, 32)
	blk.Header.Hash[0] = 0xAB
	blk.AddTx(randTx(1, 1))
	blk.AddTx(randTx(2, 2))

	raw, err := blk.Encode()
	assert.NoError(err)
	assert.NotEmpty(raw)

	got, err := Decode(raw)
	assert.NoError(err)

	assert.Equal(blk.Header.Height, got.Header.Height)
	assert.Equal(blk.Header.ID, got.Header.ID)
	assert.Equal(blk.Header.Hash, got.Header.Hash)
	assert.Equal(0, blk.Header.CumulativeDifficulty.Cmp(got.Header.CumulativeDifficulty))
	assert.Equal(blk.Header.Bytes(), got.Header.Bytes())
	assert.Len(got.Txs, 2)

	for i := range blk.Txs {
		assert.True(blk.Txs[i].Equals(got.Txs[i]))
	}
}

func TestBlockEncodeDecodeEmptyBlock(t *testing.T) {
	assert := assert.New(t)

	blk := NewBlock()
	raw, err := blk.Encode()
	assert.NoError(err)

	got, err := Decode(raw)
	assert.NoError(err)
	assert.Empty(got.Txs)
	assert.Equal(0, got.Header.CumulativeDifficulty.Cmp(blk.Header.CumulativeDifficulty))
}
