// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

package chain

import (
	"encoding/hex"
	"sync"

	"github.com/lifecoin-project/lifecoind/pkg/core/data/block"
	"github.com/lifecoin-project/lifecoind/pkg/core/database"
)

// memDB is a minimal in-memory database.DB used only by this package's
// tests, standing in for the heavy/leveldb driver so chain logic can be
// exercised without touching disk.
type memDB struct {
	mu sync.Mutex

	byHeight map[uint32]*block.Block
	byHash   map[string]*block.Block
	byID     map[uint64]*block.Block
	byTxHash map[string]*block.Transaction

	tip     *block.Block
	hasTip  bool
}

func newMemDB() *memDB {
	return &memDB{
		byHeight: make(map[uint32]*block.Block),
		byHash:   make(map[string]*block.Block),
		byID:     make(map[uint64]*block.Block),
		byTxHash: make(map[string]*block.Transaction),
	}
}

func (d *memDB) View(fn func(database.Transaction) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return fn(&memTx{db: d})
}

func (d *memDB) Update(fn func(database.Transaction) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return fn(&memTx{db: d})
}

func (d *memDB) Close() error { return nil }

type memTx struct {
	db *memDB
}

func (t *memTx) StoreBlock(b *block.Block) error {
	t.db.byHeight[b.Header.Height] = b
	t.db.byHash[hex.EncodeToString(b.Header.Hash)] = b
	t.db.byID[b.Header.ID] = b
	for _, tx := range b.Txs {
		h, err := tx.FullHash()
		if err != nil {
			return err
		}
		t.db.byTxHash[hex.EncodeToString(h)] = tx
	}
	t.db.tip = b
	t.db.hasTip = true
	return nil
}

func (t *memTx) DeleteBlock(b *block.Block) error {
	delete(t.db.byHeight, b.Header.Height)
	delete(t.db.byHash, hex.EncodeToString(b.Header.Hash))
	delete(t.db.byID, b.Header.ID)
	return nil
}

func (t *memTx) FetchBlockByHeight(height uint32) (*block.Block, error) {
	b, ok := t.db.byHeight[height]
	if !ok {
		return nil, database.ErrNoTip
	}
	return b, nil
}

func (t *memTx) FetchBlockByHash(hash []byte) (*block.Block, error) {
	b, ok := t.db.byHash[hex.EncodeToString(hash)]
	if !ok {
		return nil, database.ErrNoTip
	}
	return b, nil
}

func (t *memTx) FetchBlockByID(id uint64) (*block.Block, error) {
	b, ok := t.db.byID[id]
	if !ok {
		return nil, database.ErrNoTip
	}
	return b, nil
}

func (t *memTx) FetchTip() (*block.Block, error) {
	if !t.db.hasTip {
		return nil, database.ErrNoTip
	}
	return t.db.tip, nil
}

func (t *memTx) SetTip(b *block.Block) error {
	t.db.tip = b
	t.db.hasTip = true
	return nil
}

func (t *memTx) FetchCurrentHeight() (uint32, error) {
	if !t.db.hasTip {
		return 0, database.ErrNoTip
	}
	return t.db.tip.Header.Height, nil
}

func (t *memTx) FetchTxExists(fullHash []byte) (bool, error) {
	_, ok := t.db.byTxHash[hex.EncodeToString(fullHash)]
	return ok, nil
}

func (t *memTx) FetchTxByFullHash(fullHash []byte) (*block.Transaction, error) {
	tx, ok := t.db.byTxHash[hex.EncodeToString(fullHash)]
	if !ok {
		return nil, database.ErrNoTip
	}
	return tx, nil
}

func (t *memTx) Commit() error { return nil }
func (t *memTx) Close()        {}

// storeGenesis seeds db with a bare genesis block at height 0, id 1. Its
// hash is computed from its own header bytes, exactly as a real block's
// would be, so that a block built on top of it via Block.SetPrevious
// passes CheckBlockHeader's previous-hash check.
func storeGenesis(db *memDB) *block.Block {
	genesis := block.NewBlock()
	genesis.Header.Height = 0
	genesis.Header.ID = 1
	genesis.Header.CumulativeDifficulty.SetInt64(1)

	hashBytes, err := genesis.CalculateHash()
	if err != nil {
		panic(err)
	}
	genesis.Header.Hash = hashBytes

	_ = db.Update(func(t database.Transaction) error {
		return t.StoreBlock(genesis)
	})

	return genesis
}
