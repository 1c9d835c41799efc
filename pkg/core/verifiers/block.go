// Package verifiers holds the stateless-relative-to-previous checks on a
// candidate block and its transactions: the part of block validation that
// depends only on the candidate and its immediate predecessor, not on
// store iteration, checksums, or the duplicate tracker — those live in
// the chain package's orchestration of the full acceptance sequence.
package verifiers

import (
	"bytes"
	"crypto/sha256"
	"time"

	"github.com/lifecoin-project/lifecoind/pkg/core/data/block"
	"github.com/pkg/errors"
	"golang.org/x/crypto/ed25519"
)

// MaxFutureDriftSeconds bounds how far ahead of the local clock a block or
// transaction timestamp may be before it is rejected.
const MaxFutureDriftSeconds = 15

// BlockVersionForHeight returns the expected block version for a block
// whose previous height is prevHeight, per the three-era version gate:
// v1 before the transparent-forging milestone, v2 before the NQT
// milestone, v3 after.
func BlockVersionForHeight(prevHeight uint32, transparentForgingHeight, nqtHeight uint32) uint8 {
	switch {
	case prevHeight < transparentForgingHeight:
		return 1
	case prevHeight < nqtHeight:
		return 2
	default:
		return 3
	}
}

// CheckBlockHeader performs the structural checks on a candidate block
// relative to its declared predecessor: continuity, version, previous-hash
// linkage, and the timestamp window. It does not check signatures,
// checksums, or per-transaction content.
func CheckBlockHeader(prev *block.Block, blk *block.Block, transparentForgingHeight, nqtHeight uint32, now time.Time) error {
	if blk.Header.PreviousBlockID != prev.Header.ID {
		return errors.New("previous block id does not match current head")
	}

	wantVersion := BlockVersionForHeight(prev.Header.Height, transparentForgingHeight, nqtHeight)
	if blk.Header.Version != wantVersion {
		return errors.Errorf("unexpected block version %d, want %d", blk.Header.Version, wantVersion)
	}

	if blk.Header.Version >= 2 {
		prevBytes := prev.Header.Bytes()
		prevHash, err := hashOf(prevBytes)
		if err != nil {
			return err
		}

		if !bytes.Equal(blk.Header.PreviousBlockHash, prevHash) {
			return errors.New("previous block hash mismatch")
		}
	}

	if blk.Header.Timestamp <= prev.Header.Timestamp {
		return errors.New("block timestamp does not exceed previous block timestamp")
	}

	if blk.Header.Timestamp > now.Unix()+MaxFutureDriftSeconds {
		return errors.New("block timestamp too far in the future")
	}

	return nil
}

// CheckGenerationSignature verifies the proof-of-stake generation
// signature against the generator's public key, unless the generator is
// on the allow-fake-forging list (used in test networks).
func CheckGenerationSignature(prev *block.Block, blk *block.Block, allowFakeForging map[string]bool) error {
	key := string(blk.Header.GeneratorPublicKey)
	if allowFakeForging[key] {
		return nil
	}

	expected, err := ExpectedGenerationSignature(prev, blk.Header.GeneratorPublicKey)
	if err != nil {
		return err
	}

	if blk.Header.Version == 1 {
		if !bytes.Equal(blk.Header.GenerationSignature, expected) {
			return errors.New("generation signature mismatch")
		}
		return nil
	}

	if len(blk.Header.GeneratorPublicKey) != ed25519.PublicKeySize {
		return errors.New("malformed generator public key")
	}

	if !ed25519.Verify(blk.Header.GeneratorPublicKey, expected, blk.Header.GenerationSignature) {
		return errors.New("generation signature does not verify")
	}

	return nil
}

// ExpectedGenerationSignature computes SHA-256(previous.generationSignature || publicKey),
// the preimage a v1 generation signature equals exactly and a v>=2
// generation signature is an ed25519 signature over.
func ExpectedGenerationSignature(prev *block.Block, publicKey []byte) ([]byte, error) {
	buf := append(append([]byte{}, prev.Header.GenerationSignature...), publicKey...)
	return hashOf(buf)
}

// CheckBlockSignature verifies the block signature over the unsigned
// header bytes using the generator's public key.
func CheckBlockSignature(blk *block.Block) error {
	if len(blk.Header.GeneratorPublicKey) != ed25519.PublicKeySize {
		return errors.New("malformed generator public key")
	}

	if len(blk.Header.BlockSignature) != ed25519.SignatureSize {
		return errors.New("malformed block signature")
	}

	if !ed25519.Verify(blk.Header.GeneratorPublicKey, blk.Header.UnsignedBytes(), blk.Header.BlockSignature) {
		return errors.New("block signature does not verify")
	}

	return nil
}

// CheckAggregates verifies that a block's claimed totals and payload hash
// match what its transaction list actually produces.
func CheckAggregates(blk *block.Block) error {
	amount, fee := blk.Totals()

	if amount != blk.Header.TotalAmountNQT {
		return errors.New("total amount does not match transaction sum")
	}

	if fee != blk.Header.TotalFeeNQT {
		return errors.New("total fee does not match transaction sum")
	}

	payloadHash, err := hashOf(blk.PayloadBytes())
	if err != nil {
		return err
	}

	if !bytes.Equal(payloadHash, blk.Header.PayloadHash) {
		return errors.New("payload hash mismatch")
	}

	if blk.Header.PayloadLength != uint32(len(blk.PayloadBytes())) {
		return errors.New("payload length mismatch")
	}

	return nil
}

func hashOf(b []byte) ([]byte, error) {
	sum := sha256.Sum256(b)
	return sum[:], nil
}
