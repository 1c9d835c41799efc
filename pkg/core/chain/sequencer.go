// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

package chain

import (
	"sync"

	"github.com/lifecoin-project/lifecoind/pkg/core/data/block"
	"github.com/pkg/errors"
)

// sequencer orders fetched blocks that arrive out of height order during a
// single fetch round, so the caller can feed them to PushBlock or the fork
// reconciler in the order the chain needs them. It is its own small map
// guarded by a dedicated lock rather than the chain mutex, since the
// download loop assembles fork candidates before ever touching the chain.
type sequencer struct {
	lock      sync.RWMutex
	blockPool map[uint64]*block.Block
}

func newSequencer() *sequencer {
	return &sequencer{blockPool: make(map[uint64]*block.Block)}
}

func (s *sequencer) add(blk *block.Block) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.blockPool[uint64(blk.Header.Height)] = blk
}

func (s *sequencer) get(height uint64) (*block.Block, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	blk, ok := s.blockPool[height]
	if !ok {
		return nil, errors.New("sequencer: block not found")
	}

	return blk, nil
}

func (s *sequencer) remove(height uint64) {
	s.lock.Lock()
	defer s.lock.Unlock()
	delete(s.blockPool, height)
}

// successors returns blk followed by every directly-succeeding block
// already buffered, in height order, removing them from the pool as it
// goes. It stops at the first gap.
func (s *sequencer) successors(blk *block.Block) []*block.Block {
	blks := []*block.Block{blk}

	for h := uint64(blk.Header.Height) + 1; ; h++ {
		next, err := s.get(h)
		if err != nil {
			return blks
		}

		blks = append(blks, next)
		s.remove(h)
	}
}
