// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

package config

type generalConfiguration struct {
	Network string
}

type loggerConfiguration struct {
	Level  string
	Output string
	Format string
}

type networkConfiguration struct {
	Port string

	MaxDupeMapItems  uint32
	MaxDupeMapExpire uint32

	// Fixed is a static seed peer list, useful for test networks.
	Seeder struct {
		Fixed []string
	}
}

// pkg/core/database package configs.
type databaseConfiguration struct {
	Driver string
	Dir    string
}

// walletConfiguration configures the external wallet/forging-key
// collaborator this core consumes but does not implement.
type walletConfiguration struct {
	File  string
	Store string
}

// chainConfiguration carries the processor's own tunables: the control
// surface's boolean flags (spec.md §6) and the embedded constants that
// gate version, checksum, and rollback behaviour.
type chainConfiguration struct {
	// TrimDerivedTables enables the periodic derived-table compaction
	// listener.
	TrimDerivedTables bool

	// ForceScan triggers a full rescan at startup.
	ForceScan bool

	// ForceValidate sets validateAtScan for the next rescan, requesting
	// the deep re-verification path.
	ForceValidate bool

	// MaxRollback bounds how far behind the head rollback/rescan may
	// reach before requiring a full rescan.
	MaxRollback uint32

	// DeepForkLimit rejects a fork whose common ancestor is more than
	// this many blocks behind the head.
	DeepForkLimit uint32

	// MilestoneCap bounds the milestone-block-id list length during
	// common-ancestor negotiation.
	MilestoneCap int

	// NextBlockIDsCap bounds the forward-walk id list length.
	NextBlockIDsCap int

	// FetchRounds bounds how many rounds the fetch loop runs per download
	// tick.
	FetchRounds int

	// FetchBlocksCap bounds how many blocks the fetch loop collects per
	// download tick.
	FetchBlocksCap int

	// MaxPayloadLength bounds a block's total transaction-bytes payload.
	MaxPayloadLength uint32

	// MaxTransactionsPerBlock bounds a block's transaction count.
	MaxTransactionsPerBlock int

	// TransparentForgingHeight, NQTHeight, and ReferencedTxFullHashHeight
	// are the three milestone heights gating version, checksum, and
	// referenced-transaction semantics.
	TransparentForgingHeight uint32
	NQTHeight                uint32
	ReferencedTxFullHashHeight uint32

	// AllowFakeForging lists generator public keys (hex-encoded) that
	// bypass generation-signature verification, for test networks.
	AllowFakeForging []string
}

// genesisConfiguration carries the per-network genesis constants: the
// hard-coded block identity, its embedded allocations, and the two
// milestone checksums.
type genesisConfiguration struct {
	BlockID            uint64
	Signature          string
	ChecksumTransparent string
	ChecksumNQT         string

	Recipients []string
	AmountsNQT []uint64
}

// performanceConfiguration carries a worker-pool size setting; no package
// in this repository reads AccumulatorWorkers.
type performanceConfiguration struct {
	AccumulatorWorkers int
}

// mempoolConfiguration configures the unconfirmed-transaction pool this
// core consumes but does not implement.
type mempoolConfiguration struct {
	MaxSizeMB   uint32
	MaxInvItems uint32
}
