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
)

// TxType is the discriminator for a transaction's per-type behaviour. The
// concrete semantics of each type (balance effects, attachment shape) are
// opaque to this package; only the fields needed for chain-level validation
// live here.
type TxType uint8

// Deadlines are expressed in minutes; Expiration is timestamp + deadline*60.
const secondsPerDeadlineUnit = 60

// AppendageKind enumerates the optional appendages a transaction may carry.
type AppendageKind uint8

// Recognised appendage kinds, in fixed wire order.
const (
	AppendageMessage AppendageKind = iota
	AppendageEncryptedMessage
	AppendageEncryptToSelfMessage
	AppendagePublicKeyAnnouncement
)

// Appendage is an optional, independently-flagged extension of a
// transaction. Only one of each kind may appear on a transaction.
type Appendage struct {
	Kind AppendageKind
	Data []byte
}

// Transaction is a single signed operation included in a block. Its shape
// and byte encoding follow the canonical NQT-era wire format; validation of
// the attachment's semantics belongs to the transaction-type handlers this
// package never imports.
type Transaction struct {
	Version    uint8
	Type       TxType
	Subtype    uint8
	Timestamp  int64
	Deadline   uint16
	SenderKey  []byte // 32 bytes
	RecipientID uint64
	AmountNQT  uint64
	FeeNQT     uint64
	ReferencedFullHash []byte // 32 bytes, optional
	Signature  []byte         // 64 bytes

	ECBlockHeight uint32
	ECBlockID     uint64

	Attachment []byte
	Appendages []Appendage

	// id and fullHash are caches computed from the signed bytes; zero means
	// "not yet computed".
	id       uint64
	fullHash []byte
}

// Expiration returns the instant (same epoch as Timestamp) after which the
// transaction is no longer eligible for inclusion.
func (t *Transaction) Expiration() int64 {
	return t.Timestamp + int64(t.Deadline)*secondsPerDeadlineUnit
}

// HasReference reports whether the transaction references another
// transaction by full hash.
func (t *Transaction) HasReference() bool {
	return len(t.ReferencedFullHash) == 32 && !isZero(t.ReferencedFullHash)
}

func isZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}

// UnsignedBytes returns the canonical encoding of the transaction with the
// signature field zeroed, i.e. what gets signed and what gets re-hashed to
// verify a signature.
func (t *Transaction) UnsignedBytes() []byte {
	return t.bytes(false)
}

// Bytes returns the canonical, signed, wire encoding of the transaction.
func (t *Transaction) Bytes() []byte {
	return t.bytes(true)
}

func (t *Transaction) bytes(signed bool) []byte {
	buf := new(bytes.Buffer)

	_ = binary.Write(buf, binary.LittleEndian, t.Type)
	_ = binary.Write(buf, binary.LittleEndian, t.Subtype|(t.Version<<4))
	_ = binary.Write(buf, binary.LittleEndian, uint32(t.Timestamp))
	_ = binary.Write(buf, binary.LittleEndian, t.Deadline)

	sender := make([]byte, 32)
	copy(sender, t.SenderKey)
	buf.Write(sender)

	_ = binary.Write(buf, binary.LittleEndian, t.RecipientID)
	_ = binary.Write(buf, binary.LittleEndian, t.AmountNQT)
	_ = binary.Write(buf, binary.LittleEndian, t.FeeNQT)

	if t.HasReference() {
		buf.Write(t.ReferencedFullHash)
	} else {
		buf.Write(make([]byte, 32))
	}

	sig := make([]byte, 64)
	if signed {
		copy(sig, t.Signature)
	}
	buf.Write(sig)

	if t.Version > 0 {
		_ = binary.Write(buf, binary.LittleEndian, t.ECBlockHeight)
		_ = binary.Write(buf, binary.LittleEndian, t.ECBlockID)
	}

	_ = binary.Write(buf, binary.LittleEndian, uint32(len(t.Attachment)))
	buf.Write(t.Attachment)

	_ = binary.Write(buf, binary.LittleEndian, uint16(len(t.Appendages)))
	for _, a := range t.Appendages {
		_ = buf.WriteByte(byte(a.Kind))
		_ = binary.Write(buf, binary.LittleEndian, uint32(len(a.Data)))
		buf.Write(a.Data)
	}

	return buf.Bytes()
}

// DecodeTransaction parses the canonical wire encoding produced by Bytes,
// reconstructing a Transaction with its signature intact.
func DecodeTransaction(data []byte) (*Transaction, error) {
	r := bytes.NewReader(data)
	t := &Transaction{}

	var typeByte uint8
	if err := binary.Read(r, binary.LittleEndian, &typeByte); err != nil {
		return nil, err
	}
	t.Type = TxType(typeByte)

	var versionSubtype uint8
	if err := binary.Read(r, binary.LittleEndian, &versionSubtype); err != nil {
		return nil, err
	}
	t.Version = versionSubtype >> 4
	t.Subtype = versionSubtype & 0x0F

	var ts uint32
	if err := binary.Read(r, binary.LittleEndian, &ts); err != nil {
		return nil, err
	}
	t.Timestamp = int64(ts)

	if err := binary.Read(r, binary.LittleEndian, &t.Deadline); err != nil {
		return nil, err
	}

	t.SenderKey = make([]byte, 32)
	if _, err := r.Read(t.SenderKey); err != nil {
		return nil, err
	}

	if err := binary.Read(r, binary.LittleEndian, &t.RecipientID); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &t.AmountNQT); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &t.FeeNQT); err != nil {
		return nil, err
	}

	t.ReferencedFullHash = make([]byte, 32)
	if _, err := r.Read(t.ReferencedFullHash); err != nil {
		return nil, err
	}

	t.Signature = make([]byte, 64)
	if _, err := r.Read(t.Signature); err != nil {
		return nil, err
	}

	if t.Version > 0 {
		if err := binary.Read(r, binary.LittleEndian, &t.ECBlockHeight); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.LittleEndian, &t.ECBlockID); err != nil {
			return nil, err
		}
	}

	var attLen uint32
	if err := binary.Read(r, binary.LittleEndian, &attLen); err != nil {
		return nil, err
	}
	t.Attachment = make([]byte, attLen)
	if attLen > 0 {
		if _, err := r.Read(t.Attachment); err != nil {
			return nil, err
		}
	}

	var appCount uint16
	if err := binary.Read(r, binary.LittleEndian, &appCount); err != nil {
		return nil, err
	}

	for i := uint16(0); i < appCount; i++ {
		var kind uint8
		if err := binary.Read(r, binary.LittleEndian, &kind); err != nil {
			return nil, err
		}

		var dataLen uint32
		if err := binary.Read(r, binary.LittleEndian, &dataLen); err != nil {
			return nil, err
		}

		data := make([]byte, dataLen)
		if dataLen > 0 {
			if _, err := r.Read(data); err != nil {
				return nil, err
			}
		}

		t.Appendages = append(t.Appendages, Appendage{Kind: AppendageKind(kind), Data: data})
	}

	return t, nil
}

// Size returns the payload-length contribution of this transaction,
// matching MAX_PAYLOAD_LENGTH accounting during generation.
func (t *Transaction) Size() int {
	return len(t.Bytes())
}

// FullHash returns the SHA-256 digest of the signed transaction bytes,
// computing and caching it on first use.
func (t *Transaction) FullHash() ([]byte, error) {
	if len(t.fullHash) == 32 {
		return t.fullHash, nil
	}

	sum := sha256.Sum256(t.Bytes())
	h := sum[:]

	t.fullHash = h
	return h, nil
}

// ID returns the transaction's numeric identifier: the first eight bytes
// of its full hash, read little-endian, matching the NQT-era convention
// that a transaction id is derived from — not independent of — its bytes.
func (t *Transaction) ID() (uint64, error) {
	if t.id != 0 {
		return t.id, nil
	}

	h, err := t.FullHash()
	if err != nil {
		return 0, err
	}

	t.id = binary.LittleEndian.Uint64(h[:8])
	return t.id, nil
}

// Equals reports whether two transactions carry identical signed bytes.
func (t *Transaction) Equals(other *Transaction) bool {
	if other == nil {
		return false
	}
	return bytes.Equal(t.Bytes(), other.Bytes())
}

// CompareTo implements the natural transaction order used both for
// duplicate-free selection during generation and for the genesis
// transaction list: ascending id, ties broken by ascending timestamp.
func (t *Transaction) CompareTo(other *Transaction) int {
	tid, _ := t.ID()
	oid, _ := other.ID()

	switch {
	case tid < oid:
		return -1
	case tid > oid:
		return 1
	case t.Timestamp < other.Timestamp:
		return -1
	case t.Timestamp > other.Timestamp:
		return 1
	default:
		return 0
	}
}
