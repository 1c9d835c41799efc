// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

package chain

import (
	"testing"

	"github.com/lifecoin-project/lifecoind/pkg/core/data/block"
	"github.com/stretchr/testify/assert"
)

func TestListenerBusDispatchesInRegistrationOrder(t *testing.T) {
	assert := assert.New(t)

	bus := newListenerBus()
	var order []int

	bus.Subscribe(EventBlockPushed, func(b *block.Block) { order = append(order, 1) })
	bus.Subscribe(EventBlockPushed, func(b *block.Block) { order = append(order, 2) })
	bus.Subscribe(EventBlockPushed, func(b *block.Block) { order = append(order, 3) })

	bus.Fire(EventBlockPushed, block.NewBlock())

	assert.Equal([]int{1, 2, 3}, order)
}

func TestListenerBusOnlyDispatchesSubscribedKind(t *testing.T) {
	assert := assert.New(t)

	bus := newListenerBus()
	fired := false

	bus.Subscribe(EventBlockPopped, func(b *block.Block) { fired = true })
	bus.Fire(EventBlockPushed, block.NewBlock())

	assert.False(fired)
}

func TestListenerBusRecoversPanickingListener(t *testing.T) {
	assert := assert.New(t)

	bus := newListenerBus()
	secondRan := false

	bus.Subscribe(EventBlockPushed, func(b *block.Block) { panic("boom") })
	bus.Subscribe(EventBlockPushed, func(b *block.Block) { secondRan = true })

	assert.NotPanics(func() { bus.Fire(EventBlockPushed, block.NewBlock()) })
	assert.True(secondRan)
}

func TestRegisterBuiltinListenersHeightLoggerFiresOnMultipleOf5000(t *testing.T) {
	assert := assert.New(t)

	c, _ := testChain(t)
	c.registerBuiltinListeners(false)

	blk := block.NewBlock()
	blk.Header.Height = 5000

	assert.NotPanics(func() { c.bus.Fire(EventBlockScanned, blk) })
}

func TestRegisterBuiltinListenersTrimSchedulerRunsWhenEnabled(t *testing.T) {
	assert := assert.New(t)

	c, _ := testChain(t)
	c.registerBuiltinListeners(true)

	blk := block.NewBlock()
	blk.Header.Height = 1440

	c.bus.Fire(EventAfterBlockApply, blk)
	// 1440 - MaxRollback (720 in testChain)
	assert.Equal(uint32(720), c.lastTrimHeight)
}

func TestRegisterBuiltinListenersTrimSchedulerSkipsNonBoundaryHeight(t *testing.T) {
	assert := assert.New(t)

	c, _ := testChain(t)
	c.registerBuiltinListeners(true)

	blk := block.NewBlock()
	blk.Header.Height = 1441

	c.bus.Fire(EventAfterBlockApply, blk)
	assert.Equal(uint32(0), c.lastTrimHeight)
}
