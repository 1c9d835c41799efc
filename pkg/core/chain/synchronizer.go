// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

package chain

import (
	"math/big"
	"math/rand"
	"sort"
	"time"

	"github.com/lifecoin-project/lifecoind/pkg/core/data/block"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

// fetchRoundInterval bounds how often runFetchRounds may hit a single peer
// with getNextBlocks, so a slow or adversarial peer cannot be driven into a
// tight request loop.
const fetchRoundInterval = 100 * time.Millisecond

// PeerSource supplies the download loop with the connected, announced
// peer set to pick from. The connection manager implements this; the
// chain package never dials or tracks connections itself.
type PeerSource interface {
	ConnectedPeers() []ChainPeer
}

// ChainPeer is the slice of peer functionality the download loop
// consumes. It is defined here rather than imported from pkg/p2p/peer to
// avoid a dependency cycle (peer.ChainPeer already names this exact
// shape; grpcpeer.Peer satisfies both).
type ChainPeer interface {
	Address() string
	GetCumulativeDifficulty() (cumulativeDifficulty *big.Int, blockchainHeight uint32, err error)
	GetMilestoneBlockIDs(lastBlockID *uint64, lastMilestoneBlockID *uint64) (ids []uint64, last bool, err error)
	GetNextBlockIDs(blockID uint64) (ids []uint64, err error)
	GetNextBlocks(blockID uint64) (blocks []*block.Block, err error)
	Blacklist(cause error)
}

// synchronizer drives the download loop of spec.md §4.2: it asks a peer
// source for a candidate, walks milestones and forward ids to find a
// common ancestor, fetches blocks in rounds, and either pushes directly
// or hands a fork candidate list to the chain's fork reconciler.
type synchronizer struct {
	chain   *Chain
	peers   PeerSource
	seq     *sequencer
	limiter *rate.Limiter
}

func newSynchronizer(chain *Chain, peers PeerSource) *synchronizer {
	return &synchronizer{
		chain:   chain,
		peers:   peers,
		seq:     newSequencer(),
		limiter: rate.NewLimiter(rate.Every(fetchRoundInterval), 1),
	}
}

// tick runs a single iteration of the download loop. It is a no-op if
// the chain's getMoreBlocks flag is false or no peer is available.
func (s *synchronizer) tick() error {
	if !s.chain.GetMoreBlocks() {
		return nil
	}

	candidates := s.peers.ConnectedPeers()
	if len(candidates) == 0 {
		return nil
	}
	peer := candidates[rand.Intn(len(candidates))]

	head := s.chain.Tip()

	peerDifficulty, peerHeight, err := peer.GetCumulativeDifficulty()
	if err != nil {
		return nil // peer I/O failure: try again next tick
	}
	if peerDifficulty.Cmp(head.Header.CumulativeDifficulty) <= 0 {
		return nil
	}
	s.chain.setLastBlockchainFeeder(peer.Address(), peerHeight)

	ancestorID, err := s.walkMilestones(peer, head)
	if err != nil {
		peer.Blacklist(err)
		return nil
	}

	refinedAncestorID, ancestorHeight, err := s.walkForward(peer, ancestorID)
	if err != nil {
		peer.Blacklist(err)
		return nil
	}

	if head.Header.Height > ancestorHeight && head.Header.Height-ancestorHeight > s.chain.cfg.Chain.DeepForkLimit {
		err := errors.New("synchronizer: common ancestor exceeds deep-fork limit")
		peer.Blacklist(err)
		return nil
	}

	forkBlocks, err := s.runFetchRounds(peer, refinedAncestorID)
	if err != nil {
		if _, outOfOrder := err.(*BlockOutOfOrderError); !outOfOrder {
			peer.Blacklist(err)
		}
		return nil
	}

	if len(forkBlocks) == 0 {
		return nil
	}

	return s.chain.ProcessFork(ancestorHeight, forkBlocks, peer.Blacklist)
}

// walkMilestones implements step 3: repeatedly request milestone pages
// until a locally-known id is found or the peer signals the end.
func (s *synchronizer) walkMilestones(peer ChainPeer, head *block.Block) (uint64, error) {
	lastBlockID := head.Header.ID
	var lastMilestoneID *uint64

	for {
		var ids []uint64
		var last bool
		var err error

		if lastMilestoneID == nil {
			ids, last, err = peer.GetMilestoneBlockIDs(&lastBlockID, nil)
		} else {
			ids, last, err = peer.GetMilestoneBlockIDs(nil, lastMilestoneID)
		}
		if err != nil {
			return 0, err
		}
		if len(ids) > s.chain.cfg.Chain.MilestoneCap {
			return 0, errors.New("synchronizer: milestone list exceeds cap")
		}

		for _, id := range ids {
			if s.chain.blockExists(id) {
				return id, nil
			}
		}

		if last || len(ids) == 0 {
			return head.Header.ID, nil
		}

		next := ids[len(ids)-1]
		lastMilestoneID = &next
	}
}

// walkForward implements step 4: advance from the milestone candidate
// using getNextBlockIds until the first missing id is found; its
// predecessor is the refined common ancestor.
func (s *synchronizer) walkForward(peer ChainPeer, ancestorID uint64) (uint64, uint32, error) {
	cursor := ancestorID
	var cursorHeight uint32
	if blk, err := s.chain.blockByID(cursor); err == nil {
		cursorHeight = blk.Header.Height
	}

	for {
		ids, err := peer.GetNextBlockIDs(cursor)
		if err != nil {
			return 0, 0, err
		}
		if len(ids) > s.chain.cfg.Chain.NextBlockIDsCap {
			return 0, 0, errors.New("synchronizer: next-block-id list exceeds cap")
		}
		if len(ids) == 0 {
			return cursor, cursorHeight, nil
		}

		advanced := false
		for _, id := range ids {
			blk, err := s.chain.blockByID(id)
			if err != nil {
				return cursor, cursorHeight, nil
			}
			cursor = id
			cursorHeight = blk.Header.Height
			advanced = true
		}
		if !advanced {
			return cursor, cursorHeight, nil
		}
	}
}

// runFetchRounds implements step 6: fetch up to FetchRounds rounds or
// FetchBlocksCap blocks, pushing directly when a block extends the
// current head (draining any already-buffered successors via the
// sequencer, in case a round's response arrives out of height order) and
// accumulating the rest as fork candidates.
func (s *synchronizer) runFetchRounds(peer ChainPeer, ancestorID uint64) ([]*block.Block, error) {
	cursor := ancestorID
	forkCandidates := make(map[uint64]*block.Block)
	collected := 0

	maxRounds := s.chain.cfg.Chain.FetchRounds
	maxBlocks := s.chain.cfg.Chain.FetchBlocksCap

	for round := 0; round < maxRounds && collected < maxBlocks; round++ {
		now := time.Now()
		if delay := s.limiter.ReserveN(now, 1).DelayFrom(now); delay > 0 {
			time.Sleep(delay)
		}

		blocks, err := peer.GetNextBlocks(cursor)
		if err != nil {
			return nil, err
		}
		if len(blocks) == 0 {
			break
		}

	roundBlocks:
		for _, blk := range blocks {
			head := s.chain.Tip()

			switch {
			case blk.Header.PreviousBlockID == head.Header.ID:
				pushed, err := s.pushWithSuccessors(blk)
				if err != nil {
					if _, notValid := err.(*NotCurrentlyValidError); notValid {
						break roundBlocks
					}
					return nil, err
				}
				for _, id := range pushed {
					delete(forkCandidates, id)
				}
			case !s.chain.blockExists(blk.Header.ID):
				s.seq.add(blk)
				forkCandidates[blk.Header.ID] = blk
			}

			cursor = blk.Header.ID
			collected++
		}
	}

	result := make([]*block.Block, 0, len(forkCandidates))
	for _, blk := range forkCandidates {
		result = append(result, blk)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Header.Height < result[j].Header.Height
	})

	return result, nil
}

// pushWithSuccessors pushes blk, then drains and pushes every
// already-buffered block that directly succeeds it, in height order. It
// returns the ids of every block it successfully pushed.
func (s *synchronizer) pushWithSuccessors(blk *block.Block) ([]uint64, error) {
	var pushedIDs []uint64
	for _, next := range s.seq.successors(blk) {
		if err := s.chain.PushBlock(next); err != nil {
			return pushedIDs, err
		}
		pushedIDs = append(pushedIDs, next.Header.ID)
	}
	return pushedIDs, nil
}
