// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

package chain

import (
	"fmt"

	"github.com/lifecoin-project/lifecoind/pkg/core/data/block"
)

// BlockOutOfOrderError indicates the candidate block does not extend the
// current head: previous-id mismatch or a timestamp regression. Callers
// should try the next peer rather than blacklisting this one.
type BlockOutOfOrderError struct {
	Reason string
}

func (e *BlockOutOfOrderError) Error() string {
	return fmt.Sprintf("block out of order: %s", e.Reason)
}

// BlockNotAcceptedError indicates a structural failure of the block
// itself: bad version, signature, checksum, identity, or aggregate
// mismatch. The peer that supplied it should be blacklisted.
type BlockNotAcceptedError struct {
	Reason string
}

func (e *BlockNotAcceptedError) Error() string {
	return fmt.Sprintf("block not accepted: %s", e.Reason)
}

// TransactionNotAcceptedError reports a per-transaction failure discovered
// while validating a block. It carries the offending transaction so that
// the block generator can drop it from the unconfirmed pool.
type TransactionNotAcceptedError struct {
	Reason string
	Tx     *block.Transaction
}

func (e *TransactionNotAcceptedError) Error() string {
	return fmt.Sprintf("transaction not accepted: %s", e.Reason)
}

// NotCurrentlyValidError indicates validation that may succeed later, such
// as a missing referenced transaction. The download loop aborts its
// current round softly; the generator skips the transaction without
// removing it from the pool.
type NotCurrentlyValidError struct {
	Reason string
}

func (e *NotCurrentlyValidError) Error() string {
	return fmt.Sprintf("not currently valid: %s", e.Reason)
}

// ValidationError indicates permanent invalidity of a transaction or
// block; the generator removes the offending transaction from its pool.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", e.Reason)
}

// StopError is a cooperative cancellation signal raised by the download
// loop body. Callers log and return; it is never wrapped or blamed on a
// peer.
type StopError struct{}

func (e *StopError) Error() string { return "stopped" }
