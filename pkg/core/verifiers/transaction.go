package verifiers

import (
	"time"

	"github.com/lifecoin-project/lifecoind/pkg/core/data/block"
	"github.com/pkg/errors"
	"golang.org/x/crypto/ed25519"
)

// block303ExpirationException is the historical protocol artifact
// preserved byte-exactly from the source implementation: block 303
// contains a transaction which expired before the block's own timestamp.
// The expiration check is skipped precisely when the previous height
// equals this constant — never generalized to a range or a rule.
const block303ExpirationException = 303

// TxVersionForHeight returns the expected transaction version for a
// transaction included in a block whose previous height is prevHeight.
// Transaction versioning tracks the same three-era gate as block
// versioning.
func TxVersionForHeight(prevHeight uint32, transparentForgingHeight, nqtHeight uint32) uint8 {
	return BlockVersionForHeight(prevHeight, transparentForgingHeight, nqtHeight)
}

// CheckTransactionTimestamps enforces the two timestamp windows a
// transaction must satisfy to be included in a block: it must not be from
// the future relative to the local clock, and it must fall within the
// block's own timestamp window and not have already expired — except for
// the block-303 exception, preserved verbatim.
func CheckTransactionTimestamps(tx *block.Transaction, blk *block.Block, prevHeight uint32, now time.Time) error {
	if tx.Timestamp > now.Unix()+int64(MaxFutureDriftSeconds) {
		return errors.New("transaction timestamp too far in the future")
	}

	if tx.Timestamp > blk.Header.Timestamp+MaxFutureDriftSeconds {
		return errors.New("transaction timestamp too far ahead of block timestamp")
	}

	if prevHeight == block303ExpirationException {
		return nil
	}

	if tx.Expiration() < blk.Header.Timestamp {
		return errors.New("transaction expired before block timestamp")
	}

	return nil
}

// CheckTransactionVersion verifies the transaction carries the version
// expected for the block it is being included in.
func CheckTransactionVersion(tx *block.Transaction, prevHeight uint32, transparentForgingHeight, nqtHeight uint32) error {
	want := TxVersionForHeight(prevHeight, transparentForgingHeight, nqtHeight)
	if tx.Version != want {
		return errors.Errorf("unexpected transaction version %d, want %d", tx.Version, want)
	}
	return nil
}

// CheckTransactionSignature verifies the transaction signature over its
// unsigned bytes using the sender's public key.
func CheckTransactionSignature(tx *block.Transaction) error {
	if len(tx.SenderKey) != ed25519.PublicKeySize {
		return errors.New("malformed sender public key")
	}

	if len(tx.Signature) != ed25519.SignatureSize {
		return errors.New("malformed transaction signature")
	}

	if !ed25519.Verify(tx.SenderKey, tx.UnsignedBytes(), tx.Signature) {
		return errors.New("transaction signature does not verify")
	}

	return nil
}

// CheckTransactionIdentity rejects the degenerate zero id, matching the
// source's explicit check that a transaction's derived id is non-zero.
func CheckTransactionIdentity(tx *block.Transaction) error {
	id, err := tx.ID()
	if err != nil {
		return err
	}

	if id == 0 {
		return errors.New("transaction id is zero")
	}

	return nil
}
