// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

package chain

import (
	"math/big"
	"testing"

	"github.com/lifecoin-project/lifecoind/pkg/config"
	"github.com/lifecoin-project/lifecoind/pkg/core/data/block"
	"github.com/lifecoin-project/lifecoind/pkg/core/database"
	"github.com/stretchr/testify/assert"
)

type fakePeer struct {
	addr string

	cumulativeDifficulty *big.Int
	height                uint32
	cdErr                 error

	milestoneIDs []uint64
	milestoneLast bool
	milestoneErr  error

	nextIDs    []uint64
	nextIDsErr error

	nextBlocks    []*block.Block
	nextBlocksErr error

	blacklisted bool
	blacklistCause error
}

func (p *fakePeer) Address() string { return p.addr }

func (p *fakePeer) GetCumulativeDifficulty() (*big.Int, uint32, error) {
	return p.cumulativeDifficulty, p.height, p.cdErr
}

func (p *fakePeer) GetMilestoneBlockIDs(lastBlockID *uint64, lastMilestoneBlockID *uint64) ([]uint64, bool, error) {
	return p.milestoneIDs, p.milestoneLast, p.milestoneErr
}

func (p *fakePeer) GetNextBlockIDs(blockID uint64) ([]uint64, error) {
	return p.nextIDs, p.nextIDsErr
}

func (p *fakePeer) GetNextBlocks(blockID uint64) ([]*block.Block, error) {
	return p.nextBlocks, p.nextBlocksErr
}

func (p *fakePeer) Blacklist(cause error) {
	p.blacklisted = true
	p.blacklistCause = cause
}

type fakePeerSource struct {
	peers []ChainPeer
}

func (s *fakePeerSource) ConnectedPeers() []ChainPeer { return s.peers }

func testChain(t *testing.T) (*Chain, *memDB) {
	t.Helper()

	db := newMemDB()
	genesis := storeGenesis(db)

	cfg := config.Registry{}
	cfg.Chain.MilestoneCap = 20
	cfg.Chain.NextBlockIDsCap = 1440
	cfg.Chain.DeepForkLimit = 720
	cfg.Chain.FetchRounds = 10
	cfg.Chain.FetchBlocksCap = 100
	cfg.Chain.MaxRollback = 720

	c := &Chain{
		db:  db,
		bus: newListenerBus(),
		cfg: cfg,
	}
	c.tip = genesis
	c.SetGetMoreBlocks(true)

	return c, db
}

func TestSynchronizerTickNoPeers(t *testing.T) {
	assert := assert.New(t)

	c, _ := testChain(t)
	sync := newSynchronizer(c, &fakePeerSource{})

	assert.NoError(sync.tick())
}

func TestSynchronizerTickDownloadDisabled(t *testing.T) {
	assert := assert.New(t)

	c, _ := testChain(t)
	c.SetGetMoreBlocks(false)

	peer := &fakePeer{addr: "peer1", cumulativeDifficulty: big.NewInt(1000)}
	sync := newSynchronizer(c, &fakePeerSource{peers: []ChainPeer{peer}})

	assert.NoError(sync.tick())
	assert.False(peer.blacklisted)
}

func TestSynchronizerTickPeerNotAhead(t *testing.T) {
	assert := assert.New(t)

	c, _ := testChain(t)
	head := c.Tip()

	peer := &fakePeer{
		addr:                  "peer1",
		cumulativeDifficulty: new(big.Int).Set(head.Header.CumulativeDifficulty),
	}
	sync := newSynchronizer(c, &fakePeerSource{peers: []ChainPeer{peer}})

	assert.NoError(sync.tick())
	assert.False(peer.blacklisted)
}

func TestSynchronizerTickPeerIOFailureIsNotBlacklisted(t *testing.T) {
	assert := assert.New(t)

	c, _ := testChain(t)

	peer := &fakePeer{addr: "peer1", cdErr: assertErr("dial refused")}
	sync := newSynchronizer(c, &fakePeerSource{peers: []ChainPeer{peer}})

	assert.NoError(sync.tick())
	assert.False(peer.blacklisted)
}

func TestWalkMilestonesFindsLocalAncestor(t *testing.T) {
	assert := assert.New(t)

	c, db := testChain(t)
	genesis := c.Tip()

	second := block.NewBlock()
	second.Header.Height = 1
	second.Header.ID = 2
	second.Header.PreviousBlockID = genesis.Header.ID
	second.Header.CumulativeDifficulty.SetInt64(2)
	second.Header.Hash = make([]byte, 32)
	second.Header.Hash[0] = 0x02
	_ = db.Update(func(t database.Transaction) error {
		return t.StoreBlock(second)
	})

	sync := newSynchronizer(c, &fakePeerSource{})
	peer := &fakePeer{milestoneIDs: []uint64{second.Header.ID, 999}, milestoneLast: true}

	ancestorID, err := sync.walkMilestones(peer, second)
	assert.NoError(err)
	assert.Equal(second.Header.ID, ancestorID)
}

func TestWalkMilestonesExhaustsWithNoMatch(t *testing.T) {
	assert := assert.New(t)

	c, _ := testChain(t)
	head := c.Tip()

	sync := newSynchronizer(c, &fakePeerSource{})
	peer := &fakePeer{milestoneIDs: nil, milestoneLast: true}

	ancestorID, err := sync.walkMilestones(peer, head)
	assert.NoError(err)
	assert.Equal(head.Header.ID, ancestorID)
}

func TestWalkMilestonesRejectsOversizedPage(t *testing.T) {
	assert := assert.New(t)

	c, _ := testChain(t)
	c.cfg.Chain.MilestoneCap = 1
	head := c.Tip()

	sync := newSynchronizer(c, &fakePeerSource{})
	peer := &fakePeer{milestoneIDs: []uint64{10, 20}, milestoneLast: false}

	_, err := sync.walkMilestones(peer, head)
	assert.Error(err)
}

func TestWalkForwardStopsAtFirstMissingID(t *testing.T) {
	assert := assert.New(t)

	c, _ := testChain(t)
	genesis := c.Tip()

	sync := newSynchronizer(c, &fakePeerSource{})
	peer := &fakePeer{nextIDs: []uint64{999}} // not stored locally

	ancestorID, ancestorHeight, err := sync.walkForward(peer, genesis.Header.ID)
	assert.NoError(err)
	assert.Equal(genesis.Header.ID, ancestorID)
	assert.Equal(genesis.Header.Height, ancestorHeight)
}

func TestRunFetchRoundsAccumulatesForkCandidates(t *testing.T) {
	assert := assert.New(t)

	c, _ := testChain(t)
	genesis := c.Tip()

	orphan := block.NewBlock()
	orphan.Header.Height = 5
	orphan.Header.ID = 500
	orphan.Header.PreviousBlockID = 400 // does not extend current head

	sync := newSynchronizer(c, &fakePeerSource{})
	peer := &fakePeer{nextBlocks: []*block.Block{orphan}}

	got, err := sync.runFetchRounds(peer, genesis.Header.ID)
	assert.NoError(err)
	assert.Len(got, 1)
	assert.Equal(orphan.Header.ID, got[0].Header.ID)
}

func TestRunFetchRoundsStopsOnEmptyResponse(t *testing.T) {
	assert := assert.New(t)

	c, _ := testChain(t)
	genesis := c.Tip()

	sync := newSynchronizer(c, &fakePeerSource{})
	peer := &fakePeer{nextBlocks: nil}

	got, err := sync.runFetchRounds(peer, genesis.Header.ID)
	assert.NoError(err)
	assert.Empty(got)
}

type testError string

func (e testError) Error() string { return string(e) }

func assertErr(msg string) error { return testError(msg) }
