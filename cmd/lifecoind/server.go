// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

package main

import (
	"context"

	cfg "github.com/lifecoin-project/lifecoind/pkg/config"
	"github.com/lifecoin-project/lifecoind/pkg/core/chain"
	"github.com/lifecoin-project/lifecoind/pkg/core/database"
	"github.com/lifecoin-project/lifecoind/pkg/core/database/heavy"
	"github.com/lifecoin-project/lifecoind/pkg/core/database/tables"
	"github.com/lifecoin-project/lifecoind/pkg/p2p/peer/grpcpeer"
	"github.com/sirupsen/logrus"
)

var logServer = logrus.WithField("process", "server")

// Server is the main process of the node: the chain processor, its
// backing store, and the peer registry driving the download loop.
type Server struct {
	db       database.DB
	chain    *chain.Chain
	registry *grpcpeer.Registry

	cancelLoop context.CancelFunc
}

// Setup opens the store, wires the derived tables and the chain
// processor, dials the configured seed peers, and starts the download
// loop. Transaction-level semantics are an external collaborator per
// this project's design (application-level validation and balance
// application are opaque), so the chain is constructed with a nil
// TransactionProcessor here; a node embedding this core with a real
// transaction subsystem would pass its own.
func Setup() (*Server, error) {
	config := cfg.Get()

	db, err := heavy.NewDatabase(config.Database.Dir, false)
	if err != nil {
		logServer.WithError(err).Panic("could not open database")
	}

	accounts, err := tables.NewAccounts(config.Database.Dir + "/accounts.db")
	if err != nil {
		logServer.WithError(err).Panic("could not open accounts table")
	}

	aliases, err := tables.NewAliases()
	if err != nil {
		logServer.WithError(err).Panic("could not open aliases table")
	}

	derivedTables := []database.DerivedTable{accounts, aliases}

	c, err := chain.New(db, nil, derivedTables, config)
	if err != nil {
		logServer.WithError(err).Panic("could not start chain processor")
	}

	registry := grpcpeer.NewRegistry(config.Network.Seeder.Fixed)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		if err := c.StartDownloadLoop(ctx, registry); err != nil {
			logServer.WithError(err).Info("download loop stopped")
		}
	}()

	return &Server{db: db, chain: c, registry: registry, cancelLoop: cancel}, nil
}

// Close stops the download loop and releases the chain's resources.
func (s *Server) Close() {
	s.cancelLoop()
	_ = s.registry.Close()
	if err := s.chain.Close(); err != nil {
		logServer.WithError(err).Error("error closing chain")
	}
}
