package config

// A single point of constants definition.
//
// This package avoids importing any other lifecoind package to prevent
// cyclic-dependency issues, so these are plain values only; genesis block
// construction itself lives in pkg/core/chain, which has access to the
// block and crypto packages this file deliberately does not import.
const (
	// MaxRollback bounds how many blocks behind the head a popOffTo/rescan
	// may reach before the chain requires a full rescan instead.
	MaxRollback = uint32(1440)

	// DeepForkLimit rejects a fork whose common ancestor lies more than
	// this many blocks behind the current head.
	DeepForkLimit = uint32(720)

	// MilestoneCap bounds the length of the milestone block-id list
	// exchanged during common-ancestor negotiation with a peer.
	MilestoneCap = 20

	// NextBlockIDsCap bounds the length of the forward-walk block-id list
	// a peer may return in one request.
	NextBlockIDsCap = 1440

	// FetchRounds bounds how many request/response rounds the download
	// loop runs against a single peer per tick.
	FetchRounds = 10

	// MaxPayloadLength bounds a block's total transaction-bytes payload.
	MaxPayloadLength = uint32(255 * 1024)

	// MaxTransactionsPerBlock bounds a block's transaction count.
	MaxTransactionsPerBlock = 255

	// TestNetTransparentForgingHeight is the previous-height milestone at
	// which test-net blocks move from version 1 to version 2.
	TestNetTransparentForgingHeight = uint32(30000)

	// TestNetNQTHeight is the previous-height milestone at which test-net
	// blocks move from version 2 to version 3.
	TestNetNQTHeight = uint32(47000)

	// TestNetReferencedTxFullHashHeight is the previous-height milestone
	// at which referenced-transaction lookups switch from truncated id to
	// full hash.
	TestNetReferencedTxFullHashHeight = uint32(60000)

	// TestNetGenesisBlockID is the hard-coded id of the test-net genesis
	// block, the one block accepted without a predecessor.
	TestNetGenesisBlockID = uint64(2680262203532249785)

	// TestNetChecksumTransparentForging is the expected SHA-256 digest,
	// hex-encoded, of the canonical bytes of every transaction stored from
	// genesis through the transparent-forging milestone height, ordered by
	// id then timestamp.
	TestNetChecksumTransparentForging = "57a20d38c7b2949e98ac20a44dfc33ba89922a7aec8c6f6dcafd5bed52e6a356"

	// TestNetChecksumNQT is the expected SHA-256 digest, hex-encoded, of
	// the canonical bytes of every transaction stored from genesis through
	// the NQT milestone height, ordered by id then timestamp.
	TestNetChecksumNQT = "8e9fadf1e0d6527adbd6dcc3a3e00ea78e62c2c8e07a7ba9d489d6b6ee4a5d2a"
)
