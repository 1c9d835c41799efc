// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

// Package chain implements the blockchain processor: block ingestion,
// fork reconciliation, rescan, block generation, and the lifecycle event
// bus, all serialized through a single mutex per spec.md §5.
package chain

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lifecoin-project/lifecoind/pkg/config"
	"github.com/lifecoin-project/lifecoind/pkg/core/data/block"
	"github.com/lifecoin-project/lifecoind/pkg/core/database"
	"github.com/pkg/errors"
)

// Chain is the public façade: the control surface exposed to the wallet,
// admin interface, and download loop. All mutating operations serialize
// through mu; prevBlock/tip is additionally guarded by its own RWMutex so
// that read paths which only need the current head need not contend with
// an in-progress write.
type Chain struct {
	mu sync.Mutex

	db     database.DB
	txProc TransactionProcessor
	bus    *listenerBus

	derivedTables []database.DerivedTable

	tipMu sync.RWMutex
	tip   *block.Block

	cfg              config.Registry
	allowFakeForging map[string]bool

	getMoreBlocks  int32 // atomic bool
	scanning       int32 // atomic bool
	validateAtScan int32 // atomic bool
	lastTrimHeight uint32

	lastBlockchainFeeder       string
	lastBlockchainFeederHeight uint32

	sync *synchronizer
}

// New constructs the processor, bootstrapping genesis if the store is
// empty, and registers the four built-in listeners.
func New(db database.DB, txProc TransactionProcessor, derivedTables []database.DerivedTable, cfg config.Registry) (*Chain, error) {
	genesis, err := bootstrapGenesis(db, cfg)
	if err != nil {
		return nil, err
	}

	allow := make(map[string]bool, len(cfg.Chain.AllowFakeForging))
	for _, k := range cfg.Chain.AllowFakeForging {
		allow[k] = true
	}

	c := &Chain{
		db:               db,
		txProc:           txProc,
		bus:              newListenerBus(),
		derivedTables:    derivedTables,
		tip:              genesis,
		cfg:              cfg,
		allowFakeForging: allow,
	}

	atomic.StoreInt32(&c.getMoreBlocks, 1)
	if cfg.Chain.ForceValidate {
		atomic.StoreInt32(&c.validateAtScan, 1)
	}

	c.registerBuiltinListeners(cfg.Chain.TrimDerivedTables)

	if cfg.Chain.ForceScan {
		if serr := c.Scan(0); serr != nil {
			return nil, serr
		}
	}

	return c, nil
}

// Tip returns the block currently at the head of the chain.
func (c *Chain) Tip() *block.Block {
	c.tipMu.RLock()
	defer c.tipMu.RUnlock()
	return c.tip
}

func (c *Chain) setTip(b *block.Block) {
	c.tipMu.Lock()
	c.tip = b
	c.tipMu.Unlock()
}

// Subscribe registers a listener for a lifecycle event kind.
func (c *Chain) Subscribe(kind EventKind, l Listener) {
	c.bus.Subscribe(kind, l)
}

// RegisterDerivedTable appends t to the rollback/trim/truncate
// registration list. Order of registration is the order of rollback/trim.
func (c *Chain) RegisterDerivedTable(t database.DerivedTable) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.derivedTables = append(c.derivedTables, t)
}

// SetGetMoreBlocks toggles whether the download loop is permitted to run.
func (c *Chain) SetGetMoreBlocks(on bool) {
	v := int32(0)
	if on {
		v = 1
	}
	atomic.StoreInt32(&c.getMoreBlocks, v)
}

// GetMoreBlocks reports whether the download loop is currently permitted
// to run.
func (c *Chain) GetMoreBlocks() bool {
	return atomic.LoadInt32(&c.getMoreBlocks) == 1
}

// IsScanning reports whether a scan or fullReset is currently in
// progress.
func (c *Chain) IsScanning() bool {
	return atomic.LoadInt32(&c.scanning) == 1
}

// ValidateAtNextScan requests deep re-verification on the next scan.
func (c *Chain) ValidateAtNextScan() {
	atomic.StoreInt32(&c.validateAtScan, 1)
}

// GetMinRollbackHeight returns the lowest height to which the chain can
// currently be rewound: the last trim height if derived-table trimming is
// enabled, else head-MaxRollback, whichever is larger, floored at zero.
func (c *Chain) GetMinRollbackHeight() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.minRollbackHeightLocked()
}

func (c *Chain) minRollbackHeightLocked() uint32 {
	head := c.Tip().Header.Height

	floor := int64(0)
	if int64(head)-int64(c.cfg.Chain.MaxRollback) > floor {
		floor = int64(head) - int64(c.cfg.Chain.MaxRollback)
	}

	if c.cfg.Chain.TrimDerivedTables && int64(c.lastTrimHeight) > floor {
		floor = int64(c.lastTrimHeight)
	}

	return uint32(floor)
}

// GetLastBlockchainFeeder returns the address of the peer that most
// recently fed blocks to this chain, and the height at which it did so.
func (c *Chain) GetLastBlockchainFeeder() (string, uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastBlockchainFeeder, c.lastBlockchainFeederHeight
}

func (c *Chain) setLastBlockchainFeeder(addr string, height uint32) {
	c.mu.Lock()
	c.lastBlockchainFeeder = addr
	c.lastBlockchainFeederHeight = height
	c.mu.Unlock()
}

// FullReset truncates every derived table and re-scans from genesis,
// pausing the download loop for its duration and restoring it afterward
// regardless of outcome.
func (c *Chain) FullReset() error {
	prev := c.GetMoreBlocks()
	c.SetGetMoreBlocks(false)
	defer c.SetGetMoreBlocks(prev)

	return c.Scan(0)
}

// PopOffTo is the public entry to rollback: it removes blocks down to (but
// not including) height, never below genesis, and returns the popped
// blocks in head-to-ancestor order.
func (c *Chain) PopOffTo(height uint32) ([]*block.Block, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.popOffToLocked(height + 1)
}

func (c *Chain) popOffToLocked(height uint32) ([]*block.Block, error) {
	if height == 0 {
		height = 1 // genesis can never be popped
	}

	minHeight := c.minRollbackHeightLocked()
	if height < minHeight {
		return nil, errors.Errorf("chain: cannot roll back below height %d", minHeight)
	}

	var popped []*block.Block

	for {
		head := c.Tip()
		if head.Header.Height < height {
			break
		}
		if head.Header.Height == 0 {
			break
		}

		prev, err := c.fetchBlockByHeight(head.Header.Height - 1)
		if err != nil {
			return nil, err
		}

		if err := c.db.Update(func(t database.Transaction) error {
			if err := t.SetTip(prev); err != nil {
				return err
			}
			return t.DeleteBlock(head)
		}); err != nil {
			return nil, err
		}

		for _, table := range c.derivedTables {
			if err := table.Rollback(prev.Header.Height); err != nil {
				return nil, errors.Wrapf(err, "rolling back table %q", table.Name())
			}
		}

		c.setTip(prev)
		popped = append(popped, head)
		c.bus.Fire(EventBlockPopped, head)
	}

	return popped, nil
}

func (c *Chain) fetchBlockByHeight(height uint32) (*block.Block, error) {
	var b *block.Block
	err := c.db.View(func(t database.Transaction) error {
		var verr error
		b, verr = t.FetchBlockByHeight(height)
		return verr
	})
	return b, err
}

// blockByID returns the stored block with the given id.
func (c *Chain) blockByID(id uint64) (*block.Block, error) {
	var b *block.Block
	err := c.db.View(func(t database.Transaction) error {
		var verr error
		b, verr = t.FetchBlockByID(id)
		return verr
	})
	return b, err
}

// blockExists reports whether a block with the given id is stored
// locally.
func (c *Chain) blockExists(id uint64) bool {
	_, err := c.blockByID(id)
	return err == nil
}

// StartDownloadLoop runs the download loop of spec.md §4.2 on a 1 Hz
// ticker until ctx is cancelled, at which point it returns a StopError.
// It is meant to be run in its own goroutine by cmd/lifecoind.
func (c *Chain) StartDownloadLoop(ctx context.Context, peers PeerSource) error {
	c.sync = newSynchronizer(c, peers)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return &StopError{}
		case <-ticker.C:
			if err := c.sync.tick(); err != nil {
				log.WithError(err).Error("download loop tick failed")
			}
		}
	}
}

// Close releases the underlying store and every registered derived table.
func (c *Chain) Close() error {
	for _, t := range c.derivedTables {
		if closer, ok := t.(interface{ Close() error }); ok {
			if err := closer.Close(); err != nil {
				log.WithField("table", t.Name()).Errorf("close failed: %s", err.Error())
			}
		}
	}

	return c.db.Close()
}
