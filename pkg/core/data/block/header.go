// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

package block

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"math/big"
)

const (
	// HeaderHashSize is the size of a block header hash in bytes.
	HeaderHashSize = 32
	// PublicKeySize is the size, in bytes, of a generator public key.
	PublicKeySize = 32
	// SignatureSize is the size, in bytes, of a block signature.
	SignatureSize = 64
)

// EmptyHash is the zero value for a hash-sized field.
var EmptyHash [32]byte

// Header carries everything about a block except its transactions: the
// fields needed to place it in the chain, verify its proof of stake, and
// recompute its identity.
type Header struct {
	Version   uint8  `json:"version"`
	Timestamp int64  `json:"timestamp"`
	Height    uint32 `json:"height"`

	PreviousBlockID   uint64 `json:"previous_block_id"`
	PreviousBlockHash []byte `json:"previous_block_hash"` // present for Version >= 2

	GeneratorPublicKey  []byte `json:"generator_public_key"`
	GenerationSignature []byte `json:"generation_signature"`
	BlockSignature      []byte `json:"block_signature"`

	PayloadHash   []byte `json:"payload_hash"`
	PayloadLength uint32 `json:"payload_length"`

	TotalAmountNQT uint64 `json:"total_amount_nqt"`
	TotalFeeNQT    uint64 `json:"total_fee_nqt"`

	// CumulativeDifficulty is the fork-choice metric: an arbitrary-precision
	// accumulation of proof-of-stake weight along the chain up to and
	// including this block.
	CumulativeDifficulty *big.Int `json:"cumulative_difficulty"`

	// Hash is the identity of the block: SHA-256 of the signed header
	// bytes. ID is its first eight bytes, little-endian — the legacy
	// numeric identifier used in peer protocol exchanges.
	Hash []byte `json:"hash"`
	ID   uint64 `json:"id"`
}

// NewHeader returns a zeroed header with correctly sized byte slices, ready
// to be filled in by the genesis bootstrap or the block generator.
func NewHeader() *Header {
	return &Header{
		Hash:                 EmptyHash[:],
		PreviousBlockHash:    EmptyHash[:],
		GeneratorPublicKey:   make([]byte, PublicKeySize),
		GenerationSignature:  make([]byte, SignatureSize),
		BlockSignature:       make([]byte, SignatureSize),
		PayloadHash:          EmptyHash[:],
		CumulativeDifficulty: big.NewInt(0),
	}
}

// Copy returns a deep copy of the header, safe to hand to multiple readers
// (e.g. fork-reconciliation snapshots, listener dispatch).
func (h *Header) Copy() *Header {
	c := &Header{
		Version:        h.Version,
		Timestamp:      h.Timestamp,
		Height:         h.Height,
		PreviousBlockID: h.PreviousBlockID,
		PayloadLength:  h.PayloadLength,
		TotalAmountNQT: h.TotalAmountNQT,
		TotalFeeNQT:    h.TotalFeeNQT,
		ID:             h.ID,
	}

	c.PreviousBlockHash = append([]byte(nil), h.PreviousBlockHash...)
	c.GeneratorPublicKey = append([]byte(nil), h.GeneratorPublicKey...)
	c.GenerationSignature = append([]byte(nil), h.GenerationSignature...)
	c.BlockSignature = append([]byte(nil), h.BlockSignature...)
	c.PayloadHash = append([]byte(nil), h.PayloadHash...)
	c.Hash = append([]byte(nil), h.Hash...)

	if h.CumulativeDifficulty != nil {
		c.CumulativeDifficulty = new(big.Int).Set(h.CumulativeDifficulty)
	} else {
		c.CumulativeDifficulty = big.NewInt(0)
	}

	return c
}

// UnsignedBytes returns the canonical header encoding with the block
// signature zeroed — what the generator signs and what signature
// verification re-derives.
func (h *Header) UnsignedBytes() []byte {
	return h.encode(false)
}

// Bytes returns the canonical, signed header encoding described in the
// peer protocol: version, timestamp, previousBlockId, payload metadata,
// payload hash, generator public key, generation signature (plus previous
// block hash for v>=2), and block signature.
func (h *Header) Bytes() []byte {
	return h.encode(true)
}

func (h *Header) encode(signed bool) []byte {
	buf := new(bytes.Buffer)

	_ = binary.Write(buf, binary.LittleEndian, h.Version)
	_ = binary.Write(buf, binary.LittleEndian, uint32(h.Timestamp))
	_ = binary.Write(buf, binary.LittleEndian, h.PreviousBlockID)
	_ = binary.Write(buf, binary.LittleEndian, h.PayloadLength)
	_ = binary.Write(buf, binary.LittleEndian, h.TotalAmountNQT)
	_ = binary.Write(buf, binary.LittleEndian, h.TotalFeeNQT)

	payloadHash := pad32(h.PayloadHash)
	buf.Write(payloadHash)

	genKey := pad(h.GeneratorPublicKey, PublicKeySize)
	buf.Write(genKey)

	if h.Version == 1 {
		buf.Write(pad(h.GenerationSignature, 64))
	} else {
		buf.Write(pad(h.GenerationSignature, 32))
		buf.Write(pad(h.PreviousBlockHash, 32))
	}

	sig := make([]byte, SignatureSize)
	if signed {
		copy(sig, h.BlockSignature)
	}
	buf.Write(sig)

	return buf.Bytes()
}

// DecodeHeader reverses Bytes: it reconstructs every field the canonical
// signed encoding carries. Height, ID, CumulativeDifficulty, and Hash are
// chain-position metadata outside that encoding and are left zeroed for
// the caller to fill in (Decode, in block.go, does so for full-block
// transport).
func DecodeHeader(data []byte) (*Header, error) {
	r := bytes.NewReader(data)
	h := &Header{CumulativeDifficulty: big.NewInt(0)}

	if err := binary.Read(r, binary.LittleEndian, &h.Version); err != nil {
		return nil, err
	}

	var ts uint32
	if err := binary.Read(r, binary.LittleEndian, &ts); err != nil {
		return nil, err
	}
	h.Timestamp = int64(ts)

	if err := binary.Read(r, binary.LittleEndian, &h.PreviousBlockID); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &h.PayloadLength); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &h.TotalAmountNQT); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &h.TotalFeeNQT); err != nil {
		return nil, err
	}

	h.PayloadHash = make([]byte, 32)
	if _, err := r.Read(h.PayloadHash); err != nil {
		return nil, err
	}

	h.GeneratorPublicKey = make([]byte, PublicKeySize)
	if _, err := r.Read(h.GeneratorPublicKey); err != nil {
		return nil, err
	}

	if h.Version == 1 {
		h.GenerationSignature = make([]byte, 64)
		if _, err := r.Read(h.GenerationSignature); err != nil {
			return nil, err
		}
		h.PreviousBlockHash = append([]byte(nil), EmptyHash[:]...)
	} else {
		h.GenerationSignature = make([]byte, 32)
		if _, err := r.Read(h.GenerationSignature); err != nil {
			return nil, err
		}
		h.PreviousBlockHash = make([]byte, 32)
		if _, err := r.Read(h.PreviousBlockHash); err != nil {
			return nil, err
		}
	}

	h.BlockSignature = make([]byte, SignatureSize)
	if _, err := r.Read(h.BlockSignature); err != nil {
		return nil, err
	}

	h.Hash = append([]byte(nil), EmptyHash[:]...)

	return h, nil
}

func pad32(b []byte) []byte { return pad(b, 32) }

func pad(b []byte, n int) []byte {
	out := make([]byte, n)
	copy(out, b)
	return out
}

// CalculateHash recomputes the header's identity hash from its signed
// bytes. It does not mutate the receiver; callers assign the result to
// Hash/ID themselves once a block is fully assembled.
func (h *Header) CalculateHash() ([]byte, error) {
	sum := sha256.Sum256(h.Bytes())
	return sum[:], nil
}

// Equals reports whether two headers carry identical fields.
func (h *Header) Equals(other *Header) bool {
	if other == nil {
		return false
	}

	if h.Version != other.Version || h.Timestamp != other.Timestamp ||
		h.Height != other.Height || h.PreviousBlockID != other.PreviousBlockID ||
		h.PayloadLength != other.PayloadLength ||
		h.TotalAmountNQT != other.TotalAmountNQT || h.TotalFeeNQT != other.TotalFeeNQT ||
		h.ID != other.ID {
		return false
	}

	if !bytes.Equal(h.PreviousBlockHash, other.PreviousBlockHash) ||
		!bytes.Equal(h.GeneratorPublicKey, other.GeneratorPublicKey) ||
		!bytes.Equal(h.GenerationSignature, other.GenerationSignature) ||
		!bytes.Equal(h.BlockSignature, other.BlockSignature) ||
		!bytes.Equal(h.PayloadHash, other.PayloadHash) ||
		!bytes.Equal(h.Hash, other.Hash) {
		return false
	}

	if (h.CumulativeDifficulty == nil) != (other.CumulativeDifficulty == nil) {
		return false
	}

	if h.CumulativeDifficulty != nil && h.CumulativeDifficulty.Cmp(other.CumulativeDifficulty) != 0 {
		return false
	}

	return true
}
