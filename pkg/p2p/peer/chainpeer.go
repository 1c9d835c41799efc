// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

package peer

import (
	"math/big"

	"github.com/lifecoin-project/lifecoind/pkg/core/data/block"
)

// ChainPeer is the abstraction the download loop consumes: the four
// request/response shapes of spec.md §6, plus the blacklist mechanism the
// chain processor invokes on protocol or content violations. Connection
// lifecycle belongs to the grpcpeer subpackage's Registry; ChainPeer is the
// narrow slice the chain processor is allowed to see.
type ChainPeer interface {
	// Address identifies the peer for logging and for
	// Chain.GetLastBlockchainFeeder.
	Address() string

	// GetCumulativeDifficulty returns the peer's head cumulative
	// difficulty and height.
	GetCumulativeDifficulty() (cumulativeDifficulty *big.Int, blockchainHeight uint32, err error)

	// GetMilestoneBlockIDs requests the next page of the milestone walk.
	// Exactly one of lastBlockID/lastMilestoneBlockID is set: the former
	// on the first request, the latter on every subsequent one.
	GetMilestoneBlockIDs(lastBlockID *uint64, lastMilestoneBlockID *uint64) (ids []uint64, last bool, err error)

	// GetNextBlockIDs requests up to 1440 block ids succeeding blockID.
	GetNextBlockIDs(blockID uint64) (ids []uint64, err error)

	// GetNextBlocks requests up to 1440 full blocks succeeding blockID.
	GetNextBlocks(blockID uint64) (blocks []*block.Block, err error)

	// Blacklist drops the peer for the given cause: a protocol violation,
	// a rejected block, or a regressive fork.
	Blacklist(cause error)
}
