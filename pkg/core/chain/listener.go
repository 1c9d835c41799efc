// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

package chain

import (
	"sync"
	"sync/atomic"

	"github.com/lifecoin-project/lifecoind/pkg/core/data/block"
	logger "github.com/sirupsen/logrus"
)

// EventKind discriminates the nine lifecycle events the chain fires during
// block acceptance, rollback, generation, and rescan.
type EventKind uint8

// The nine lifecycle events, in the order a single block's acceptance
// fires them (BeforeBlockAccept and later), or independently (BlockPopped,
// BlockGenerated, RescanBegin, RescanEnd).
const (
	EventBlockPushed EventKind = iota
	EventBlockPopped
	EventBlockGenerated
	EventBlockScanned
	EventBeforeBlockAccept
	EventBeforeBlockApply
	EventAfterBlockApply
	EventRescanBegin
	EventRescanEnd
)

// Listener receives a block argument for every event it is subscribed to.
// A listener must not block; long-running work should be handed off to its
// own goroutine.
type Listener func(b *block.Block)

// listenerBus dispatches lifecycle events to subscribed listeners,
// synchronously, in registration order, on the goroutine performing the
// transition. Subscriber lists are copy-on-write so that registration
// during dispatch (e.g. a listener that registers another listener) never
// races a concurrent Fire.
type listenerBus struct {
	mu        sync.Mutex
	listeners atomic.Value // map[EventKind][]Listener
}

func newListenerBus() *listenerBus {
	b := &listenerBus{}
	b.listeners.Store(make(map[EventKind][]Listener))
	return b
}

// Subscribe registers a listener for kind, appended after any existing
// subscribers.
func (b *listenerBus) Subscribe(kind EventKind, l Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()

	old := b.listeners.Load().(map[EventKind][]Listener)
	next := make(map[EventKind][]Listener, len(old))
	for k, v := range old {
		next[k] = v
	}
	next[kind] = append(append([]Listener{}, next[kind]...), l)
	b.listeners.Store(next)
}

// Fire dispatches an event to every subscriber of kind, synchronously, in
// registration order. A listener panic is recovered and logged; it never
// aborts the in-progress transition or prevents later listeners from
// running.
func (b *listenerBus) Fire(kind EventKind, blk *block.Block) {
	subs := b.listeners.Load().(map[EventKind][]Listener)[kind]
	for _, l := range subs {
		b.invoke(l, blk)
	}
}

func (b *listenerBus) invoke(l Listener, blk *block.Block) {
	defer func() {
		if r := recover(); r != nil {
			log.WithField("event", "listener").Errorf("listener panicked: %v", r)
		}
	}()
	l(blk)
}

// registerBuiltinListeners wires the four built-in listeners the original
// processor registers at construction: a height counter logging every
// 5,000 blocks, a store analyzer invoked every 5,000 blocks and at
// RescanEnd, and — when derived-table trimming is enabled — a trim
// scheduler that compacts every registered derived table every 1,440
// blocks.
func (c *Chain) registerBuiltinListeners(trimDerivedTables bool) {
	c.bus.Subscribe(EventBlockScanned, c.heightLoggerListener)
	c.bus.Subscribe(EventBlockPushed, c.storeAnalyzerListener)
	c.bus.Subscribe(EventRescanEnd, func(b *block.Block) { c.analyzeStore() })

	if trimDerivedTables {
		c.bus.Subscribe(EventAfterBlockApply, c.trimSchedulerListener)
	}
}

func (c *Chain) heightLoggerListener(b *block.Block) {
	if b == nil || b.Header.Height%5000 != 0 {
		return
	}
	log.WithField("height", b.Header.Height).Info("block scanned")
}

func (c *Chain) storeAnalyzerListener(b *block.Block) {
	if b == nil || b.Header.Height%5000 != 0 {
		return
	}
	c.analyzeStore()
}

func (c *Chain) analyzeStore() {
	log.Debug("analyzing store")
}

func (c *Chain) trimSchedulerListener(b *block.Block) {
	if b == nil || b.Header.Height%1440 != 0 {
		return
	}

	lastTrim := int64(b.Header.Height) - int64(c.cfg.Chain.MaxRollback)
	if lastTrim < 0 {
		lastTrim = 0
	}

	// AfterBlockApply fires from accept, whose callers (pushBlockLocked and
	// Scan) already hold c.mu, so the field is written without relocking.
	c.lastTrimHeight = uint32(lastTrim)

	for _, t := range c.derivedTables {
		if err := t.Trim(uint32(lastTrim)); err != nil {
			log.WithField("table", t.Name()).Errorf("trim failed: %s", err.Error())
		}
	}
}

var log *logger.Entry = logger.WithFields(logger.Fields{"process": "chain"})
