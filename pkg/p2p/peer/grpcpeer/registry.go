// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

package grpcpeer

import (
	"context"
	"sync"

	"github.com/lifecoin-project/lifecoind/pkg/core/chain"
	logger "github.com/sirupsen/logrus"
)

var registryLog = logger.WithField("process", "grpcpeer.registry")

// Registry dials a fixed, configured set of seed addresses and satisfies
// chain.PeerSource over the live subset — the minimal connection manager
// this exercise needs, in place of a full peer-discovery/handshake
// pipeline.
type Registry struct {
	mu     sync.RWMutex
	peers  map[string]*Peer
	cancel context.CancelFunc
}

// NewRegistry dials every address in seeds, skipping (and logging) any
// that fail, starts each dialed peer's liveness ping loop, and returns a
// Registry ready to serve chain.PeerSource.
func NewRegistry(seeds []string) *Registry {
	ctx, cancel := context.WithCancel(context.Background())
	r := &Registry{peers: make(map[string]*Peer), cancel: cancel}

	for _, addr := range seeds {
		peer, err := Dial(addr, r.drop)
		if err != nil {
			registryLog.WithField("addr", addr).WithError(err).Warn("could not dial seed peer")
			continue
		}
		r.peers[addr] = peer
		go peer.StartLivenessPing(ctx)
	}

	return r
}

// ConnectedPeers implements chain.PeerSource.
func (r *Registry) ConnectedPeers() []chain.ChainPeer {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]chain.ChainPeer, 0, len(r.peers))
	for _, p := range r.peers {
		out = append(out, p)
	}

	return out
}

func (r *Registry) drop(addr string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.peers[addr]; ok {
		_ = p.Close()
		delete(r.peers, addr)
	}
}

// Close stops every liveness ping loop and closes every held connection.
func (r *Registry) Close() error {
	r.cancel()

	r.mu.Lock()
	defer r.mu.Unlock()

	for addr, p := range r.peers {
		_ = p.Close()
		delete(r.peers, addr)
	}

	return nil
}
