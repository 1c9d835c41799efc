// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

package block

import (
	"bytes"
	"encoding/binary"
	"math/big"

	"github.com/pkg/errors"
)

// Block is a header plus its ordered transactions. It is immutable after
// acceptance: every field is fixed by the time PushBlock commits it, and
// it is mutated again only by being popped off during rollback.
type Block struct {
	Header *Header
	Txs    []*Transaction
}

// NewBlock returns an empty block with a freshly zeroed header.
func NewBlock() *Block {
	return &Block{Header: NewHeader()}
}

// SetPrevious wires this block to its accepted predecessor: previous id and
// hash, height, and (by convention of the caller) leaves cumulative
// difficulty for the caller to add to, since that computation is
// consensus-weight specific.
func (b *Block) SetPrevious(prev *Block) {
	b.Header.PreviousBlockID = prev.Header.ID
	b.Header.PreviousBlockHash = prev.Header.Hash
	b.Header.Height = prev.Header.Height + 1
}

// AddTx appends a transaction to the block body.
func (b *Block) AddTx(tx *Transaction) {
	b.Txs = append(b.Txs, tx)
}

// PayloadBytes concatenates the canonical bytes of every transaction, in
// block order — the preimage of PayloadHash.
func (b *Block) PayloadBytes() []byte {
	buf := new(bytes.Buffer)
	for _, tx := range b.Txs {
		buf.Write(tx.Bytes())
	}
	return buf.Bytes()
}

// Totals sums amount and fee across the block's transactions.
func (b *Block) Totals() (amount uint64, fee uint64) {
	for _, tx := range b.Txs {
		amount += tx.AmountNQT
		fee += tx.FeeNQT
	}
	return amount, fee
}

// CalculateHash recomputes the block's identity hash from its header.
func (b *Block) CalculateHash() ([]byte, error) {
	return b.Header.CalculateHash()
}

// Tx returns the transaction in this block with the given full hash.
func (b *Block) Tx(fullHash []byte) (*Transaction, error) {
	for _, tx := range b.Txs {
		h, err := tx.FullHash()
		if err != nil {
			return nil, err
		}

		if bytes.Equal(h, fullHash) {
			return tx, nil
		}
	}

	return nil, errors.New("transaction not found in block")
}

// Equals reports whether two blocks carry identical headers and
// transaction sets, in order.
func (b *Block) Equals(other *Block) bool {
	if other == nil {
		return false
	}

	if !b.Header.Equals(other.Header) {
		return false
	}

	if len(b.Txs) != len(other.Txs) {
		return false
	}

	for i := range b.Txs {
		if !b.Txs[i].Equals(other.Txs[i]) {
			return false
		}
	}

	return true
}

// Bytes returns the canonical wire encoding of the full block: header
// bytes, transaction count, then each transaction's bytes in order.
func (b *Block) Bytes() []byte {
	buf := new(bytes.Buffer)
	buf.Write(b.Header.Bytes())

	_ = binary.Write(buf, binary.LittleEndian, uint32(len(b.Txs)))
	for _, tx := range b.Txs {
		txBytes := tx.Bytes()
		_ = binary.Write(buf, binary.LittleEndian, uint32(len(txBytes)))
		buf.Write(txBytes)
	}

	return buf.Bytes()
}

// Encode serializes the full block, including the chain-position metadata
// (height, id, cumulative difficulty, hash) that Bytes omits, so a peer
// receiving it over the wire can place it without recomputing anything.
func (b *Block) Encode() ([]byte, error) {
	buf := new(bytes.Buffer)

	headerBytes := b.Header.Bytes()
	if err := binary.Write(buf, binary.LittleEndian, uint32(len(headerBytes))); err != nil {
		return nil, err
	}
	buf.Write(headerBytes)

	if err := binary.Write(buf, binary.LittleEndian, b.Header.Height); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.LittleEndian, b.Header.ID); err != nil {
		return nil, err
	}

	cd := big.NewInt(0)
	if b.Header.CumulativeDifficulty != nil {
		cd = b.Header.CumulativeDifficulty
	}
	cdBytes := cd.Bytes()
	if err := binary.Write(buf, binary.LittleEndian, uint32(len(cdBytes))); err != nil {
		return nil, err
	}
	buf.Write(cdBytes)

	if err := binary.Write(buf, binary.LittleEndian, uint32(len(b.Header.Hash))); err != nil {
		return nil, err
	}
	buf.Write(b.Header.Hash)

	if err := binary.Write(buf, binary.LittleEndian, uint32(len(b.Txs))); err != nil {
		return nil, err
	}
	for _, tx := range b.Txs {
		txBytes := tx.Bytes()
		if err := binary.Write(buf, binary.LittleEndian, uint32(len(txBytes))); err != nil {
			return nil, err
		}
		buf.Write(txBytes)
	}

	return buf.Bytes(), nil
}

// Decode reverses Encode.
func Decode(data []byte) (*Block, error) {
	r := bytes.NewReader(data)

	var headerLen uint32
	if err := binary.Read(r, binary.LittleEndian, &headerLen); err != nil {
		return nil, err
	}
	headerBytes := make([]byte, headerLen)
	if _, err := r.Read(headerBytes); err != nil {
		return nil, err
	}

	h, err := DecodeHeader(headerBytes)
	if err != nil {
		return nil, err
	}

	if err := binary.Read(r, binary.LittleEndian, &h.Height); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &h.ID); err != nil {
		return nil, err
	}

	var cdLen uint32
	if err := binary.Read(r, binary.LittleEndian, &cdLen); err != nil {
		return nil, err
	}
	cdBytes := make([]byte, cdLen)
	if _, err := r.Read(cdBytes); err != nil {
		return nil, err
	}
	h.CumulativeDifficulty = new(big.Int).SetBytes(cdBytes)

	var hashLen uint32
	if err := binary.Read(r, binary.LittleEndian, &hashLen); err != nil {
		return nil, err
	}
	h.Hash = make([]byte, hashLen)
	if _, err := r.Read(h.Hash); err != nil {
		return nil, err
	}

	var txCount uint32
	if err := binary.Read(r, binary.LittleEndian, &txCount); err != nil {
		return nil, err
	}

	txs := make([]*Transaction, 0, txCount)
	for i := uint32(0); i < txCount; i++ {
		var txLen uint32
		if err := binary.Read(r, binary.LittleEndian, &txLen); err != nil {
			return nil, err
		}
		txBytes := make([]byte, txLen)
		if _, err := r.Read(txBytes); err != nil {
			return nil, err
		}
		tx, err := DecodeTransaction(txBytes)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}

	return &Block{Header: h, Txs: txs}, nil
}
