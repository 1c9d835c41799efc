// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

package chain

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"

	"github.com/lifecoin-project/lifecoind/pkg/config"
	"github.com/lifecoin-project/lifecoind/pkg/core/data/block"
	"github.com/lifecoin-project/lifecoind/pkg/core/database"
	"github.com/pkg/errors"
)

func hashOf(b []byte) ([]byte, error) {
	sum := sha256.Sum256(b)
	return sum[:], nil
}

// buildGenesis constructs the network's genesis block from the embedded
// recipient/amount allocations and hard-coded identity in cfg.Genesis. The
// genesis id and signature are never recomputed from signed bytes — they
// are fixed per network, exactly as the original source treats them.
func buildGenesis(cfg config.Registry) (*block.Block, error) {
	h := block.NewHeader()
	h.Version = 1
	h.Height = 0
	h.PreviousBlockID = 0

	sig, err := hex.DecodeString(cfg.Genesis.Signature)
	if err != nil {
		return nil, errors.Wrap(err, "genesis: malformed embedded signature")
	}
	copy(h.GenerationSignature, sig)
	copy(h.BlockSignature, sig)

	b := &block.Block{Header: h}

	for i, recipient := range cfg.Genesis.Recipients {
		if i >= len(cfg.Genesis.AmountsNQT) {
			break
		}

		recipientID, perr := strconv.ParseUint(recipient, 10, 64)
		if perr != nil {
			return nil, errors.Wrapf(perr, "genesis: malformed recipient %q", recipient)
		}

		tx := &block.Transaction{
			Version:     0,
			Type:        0,
			RecipientID: recipientID,
			AmountNQT:   cfg.Genesis.AmountsNQT[i],
		}
		b.AddTx(tx)
	}

	amount, fee := b.Totals()
	h.TotalAmountNQT = amount
	h.TotalFeeNQT = fee
	h.PayloadLength = uint32(len(b.PayloadBytes()))

	payloadHash, err := hashOf(b.PayloadBytes())
	if err != nil {
		return nil, err
	}
	h.PayloadHash = payloadHash

	// The genesis id is hard-coded, not derived — see buildGenesis's doc
	// comment. CalculateHash still populates Hash so later blocks can link
	// to it via PreviousBlockHash, but ID is overwritten afterward.
	hashBytes, err := h.CalculateHash()
	if err != nil {
		return nil, err
	}
	h.Hash = hashBytes
	h.ID = cfg.Genesis.BlockID

	return b, nil
}

// bootstrapGenesis commits the genesis block if the store is empty. It is
// a no-op if a tip already exists.
func bootstrapGenesis(db database.DB, cfg config.Registry) (*block.Block, error) {
	var existing *block.Block

	err := db.View(func(t database.Transaction) error {
		var verr error
		existing, verr = t.FetchTip()
		return verr
	})

	if err == nil {
		return existing, nil
	}
	if err != database.ErrNoTip {
		return nil, err
	}

	genesis, err := buildGenesis(cfg)
	if err != nil {
		return nil, err
	}

	err = db.Update(func(t database.Transaction) error {
		return t.StoreBlock(genesis)
	})
	if err != nil {
		return nil, err
	}

	return genesis, nil
}
