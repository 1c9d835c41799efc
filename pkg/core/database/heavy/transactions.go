// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

package heavy

import (
	"bytes"
	"encoding/binary"
	"math/big"

	"github.com/lifecoin-project/lifecoind/pkg/core/data/block"
	"github.com/lifecoin-project/lifecoind/pkg/core/database"
	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

const (
	// optionFsyncEnabled controls whether writes are flushed to disk
	// synchronously. False trades durability of the last few writes for
	// throughput; a process crash (not a machine crash) loses nothing.
	optionFsyncEnabled = false
	optionNoWriteMerge = false
)

// Key prefixes, chosen to provide prefix-based sort ordering within the
// single LevelDB keyspace.
var (
	// HeaderPrefix + hash -> encoded header.
	HeaderPrefix = []byte{0x01}
	// TxPrefix + hash -> encoded transaction list for that block.
	TxPrefix = []byte{0x02}
	// HeightPrefix + height(BE uint32) -> hash.
	HeightPrefix = []byte{0x03}
	// BlockIDPrefix + id(BE uint64) -> hash.
	BlockIDPrefix = []byte{0x04}
	// TxFullHashPrefix + fullHash -> encoded transaction.
	TxFullHashPrefix = []byte{0x05}
	// TipPrefix -> hash of the current head block.
	TipPrefix = []byte{0x06}
)

var writeOptions = &opt.WriteOptions{NoWriteMerge: optionNoWriteMerge, Sync: optionFsyncEnabled}

type transaction struct {
	writable bool
	db       *DB
	snapshot *leveldb.Snapshot
	batch    *leveldb.Batch
	closed   bool
}

func key(prefix []byte, suffix []byte) []byte {
	return append(append([]byte{}, prefix...), suffix...)
}

func heightKey(height uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, height)
	return key(HeightPrefix, b)
}

func idKey(id uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, id)
	return key(BlockIDPrefix, b)
}

// Close releases the snapshot backing this transaction. It must be called
// exactly once, regardless of commit/rollback outcome.
func (t *transaction) Close() {
	if t.closed {
		return
	}
	t.snapshot.Release()
	t.closed = true
}

// Commit applies the accumulated batch atomically. On a read-only
// transaction it returns an error.
func (t *transaction) Commit() error {
	if !t.writable {
		return errors.New("heavy: read-only transaction cannot commit")
	}

	if t.batch.Len() == 0 {
		return nil
	}

	return t.db.storage.Write(t.batch, writeOptions)
}

// StoreBlock persists a block's header and transactions and advances the
// tip to it.
func (t *transaction) StoreBlock(b *block.Block) error {
	if !t.writable {
		return errors.New("heavy: StoreBlock on read-only transaction")
	}

	if len(b.Header.Hash) != block.HeaderHashSize {
		return errors.New("heavy: StoreBlock called with an unhashed header")
	}

	headerBytes, err := encodeStoredHeader(b.Header)
	if err != nil {
		return err
	}

	txBytes, err := encodeTxList(b.Txs)
	if err != nil {
		return err
	}

	t.batch.Put(key(HeaderPrefix, b.Header.Hash), headerBytes)
	t.batch.Put(key(TxPrefix, b.Header.Hash), txBytes)
	t.batch.Put(heightKey(b.Header.Height), b.Header.Hash)
	t.batch.Put(idKey(b.Header.ID), b.Header.Hash)
	t.batch.Put(TipPrefix, b.Header.Hash)

	for _, tx := range b.Txs {
		fh, ferr := tx.FullHash()
		if ferr != nil {
			return ferr
		}

		encoded, eerr := encodeTx(tx)
		if eerr != nil {
			return eerr
		}

		t.batch.Put(key(TxFullHashPrefix, fh), encoded)
	}

	return nil
}

// SetTip repoints the head pointer to an already-stored block.
func (t *transaction) SetTip(b *block.Block) error {
	if !t.writable {
		return errors.New("heavy: SetTip on read-only transaction")
	}

	t.batch.Put(TipPrefix, b.Header.Hash)
	return nil
}

// DeleteBlock removes a block's stored header, transaction list, and
// height/id indices. It never touches the tip pointer.
func (t *transaction) DeleteBlock(b *block.Block) error {
	if !t.writable {
		return errors.New("heavy: DeleteBlock on read-only transaction")
	}

	t.batch.Delete(key(HeaderPrefix, b.Header.Hash))
	t.batch.Delete(key(TxPrefix, b.Header.Hash))
	t.batch.Delete(heightKey(b.Header.Height))
	t.batch.Delete(idKey(b.Header.ID))

	for _, tx := range b.Txs {
		fh, err := tx.FullHash()
		if err != nil {
			return err
		}
		t.batch.Delete(key(TxFullHashPrefix, fh))
	}

	return nil
}

func (t *transaction) fetchByHash(hash []byte) (*block.Block, error) {
	headerBytes, err := t.snapshot.Get(key(HeaderPrefix, hash), nil)
	if err != nil {
		return nil, errors.Wrap(err, "heavy: header not found")
	}

	header, err := decodeStoredHeader(headerBytes)
	if err != nil {
		return nil, err
	}

	txBytes, err := t.snapshot.Get(key(TxPrefix, hash), nil)
	if err != nil {
		return nil, errors.Wrap(err, "heavy: transactions not found")
	}

	txs, err := decodeTxList(txBytes)
	if err != nil {
		return nil, err
	}

	return &block.Block{Header: header, Txs: txs}, nil
}

// FetchBlockByHeight returns the block stored at the given height.
func (t *transaction) FetchBlockByHeight(height uint32) (*block.Block, error) {
	hash, err := t.snapshot.Get(heightKey(height), nil)
	if err != nil {
		return nil, errors.Wrap(err, "heavy: height not found")
	}

	return t.fetchByHash(hash)
}

// FetchBlockByHash returns the block with the given header hash.
func (t *transaction) FetchBlockByHash(hash []byte) (*block.Block, error) {
	return t.fetchByHash(hash)
}

// FetchBlockByID returns the block with the given legacy numeric id.
func (t *transaction) FetchBlockByID(id uint64) (*block.Block, error) {
	hash, err := t.snapshot.Get(idKey(id), nil)
	if err != nil {
		return nil, errors.Wrap(err, "heavy: block id not found")
	}

	return t.fetchByHash(hash)
}

// FetchTip returns the block currently at the head of the chain.
func (t *transaction) FetchTip() (*block.Block, error) {
	hash, err := t.snapshot.Get(TipPrefix, nil)
	if err != nil {
		return nil, database.ErrNoTip
	}

	return t.fetchByHash(hash)
}

// FetchCurrentHeight returns the height of the current tip.
func (t *transaction) FetchCurrentHeight() (uint32, error) {
	b, err := t.FetchTip()
	if err != nil {
		return 0, err
	}

	return b.Header.Height, nil
}

// FetchTxExists reports whether a transaction with the given full hash has
// been persisted.
func (t *transaction) FetchTxExists(fullHash []byte) (bool, error) {
	return t.snapshot.Has(key(TxFullHashPrefix, fullHash), nil)
}

// FetchTxByFullHash returns a previously persisted transaction by its full
// hash.
func (t *transaction) FetchTxByFullHash(fullHash []byte) (*block.Transaction, error) {
	encoded, err := t.snapshot.Get(key(TxFullHashPrefix, fullHash), nil)
	if err != nil {
		return nil, errors.Wrap(err, "heavy: transaction not found")
	}

	return decodeTx(bytes.NewReader(encoded))
}

// encodeStoredHeader serializes every header field needed to reconstruct
// chain position, independent of the canonical hash-preimage encoding in
// Header.Bytes — height and cumulative difficulty are chain-position
// metadata, not part of a block's signed identity.
func encodeStoredHeader(h *block.Header) ([]byte, error) {
	buf := new(bytes.Buffer)

	if err := binary.Write(buf, binary.LittleEndian, h.Version); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.LittleEndian, uint64(h.Timestamp)); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.LittleEndian, h.Height); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.LittleEndian, h.PreviousBlockID); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.LittleEndian, h.PayloadLength); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.LittleEndian, h.TotalAmountNQT); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.LittleEndian, h.TotalFeeNQT); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.LittleEndian, h.ID); err != nil {
		return nil, err
	}

	writeBytes(buf, h.PreviousBlockHash)
	writeBytes(buf, h.GeneratorPublicKey)
	writeBytes(buf, h.GenerationSignature)
	writeBytes(buf, h.BlockSignature)
	writeBytes(buf, h.PayloadHash)
	writeBytes(buf, h.Hash)

	cd := big.NewInt(0)
	if h.CumulativeDifficulty != nil {
		cd = h.CumulativeDifficulty
	}
	writeBytes(buf, cd.Bytes())

	return buf.Bytes(), nil
}

func decodeStoredHeader(data []byte) (*block.Header, error) {
	r := bytes.NewReader(data)
	h := &block.Header{CumulativeDifficulty: big.NewInt(0)}

	if err := binary.Read(r, binary.LittleEndian, &h.Version); err != nil {
		return nil, err
	}

	var ts uint64
	if err := binary.Read(r, binary.LittleEndian, &ts); err != nil {
		return nil, err
	}
	h.Timestamp = int64(ts)

	if err := binary.Read(r, binary.LittleEndian, &h.Height); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &h.PreviousBlockID); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &h.PayloadLength); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &h.TotalAmountNQT); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &h.TotalFeeNQT); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &h.ID); err != nil {
		return nil, err
	}

	var err error
	if h.PreviousBlockHash, err = readBytes(r); err != nil {
		return nil, err
	}
	if h.GeneratorPublicKey, err = readBytes(r); err != nil {
		return nil, err
	}
	if h.GenerationSignature, err = readBytes(r); err != nil {
		return nil, err
	}
	if h.BlockSignature, err = readBytes(r); err != nil {
		return nil, err
	}
	if h.PayloadHash, err = readBytes(r); err != nil {
		return nil, err
	}
	if h.Hash, err = readBytes(r); err != nil {
		return nil, err
	}

	cdBytes, err := readBytes(r)
	if err != nil {
		return nil, err
	}
	h.CumulativeDifficulty.SetBytes(cdBytes)

	return h, nil
}

func encodeTx(tx *block.Transaction) ([]byte, error) {
	buf := new(bytes.Buffer)

	b := tx.Bytes()
	if err := binary.Write(buf, binary.LittleEndian, uint32(len(b))); err != nil {
		return nil, err
	}
	buf.Write(b)

	appBytes, err := tx.FullHash()
	if err != nil {
		return nil, err
	}
	writeBytes(buf, appBytes)

	return buf.Bytes(), nil
}

func decodeTx(r *bytes.Reader) (*block.Transaction, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}

	raw := make([]byte, n)
	if _, err := r.Read(raw); err != nil {
		return nil, err
	}

	if _, err := readBytes(r); err != nil {
		return nil, err
	}

	return block.DecodeTransaction(raw)
}

func encodeTxList(txs []*block.Transaction) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, uint32(len(txs))); err != nil {
		return nil, err
	}

	for _, tx := range txs {
		encoded, err := encodeTx(tx)
		if err != nil {
			return nil, err
		}
		buf.Write(encoded)
	}

	return buf.Bytes(), nil
}

func decodeTxList(data []byte) ([]*block.Transaction, error) {
	r := bytes.NewReader(data)

	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}

	txs := make([]*block.Transaction, 0, n)
	for i := uint32(0); i < n; i++ {
		tx, err := decodeTx(r)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}

	return txs, nil
}

func writeBytes(buf *bytes.Buffer, b []byte) {
	_ = binary.Write(buf, binary.LittleEndian, uint32(len(b)))
	buf.Write(b)
}

func readBytes(r *bytes.Reader) ([]byte, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}

	b := make([]byte, n)
	if n > 0 {
		if _, err := r.Read(b); err != nil {
			return nil, err
		}
	}

	return b, nil
}
