// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

package chain

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"sort"

	"github.com/lifecoin-project/lifecoind/pkg/core/data/block"
	"github.com/lifecoin-project/lifecoind/pkg/core/database"
	"github.com/pkg/errors"
)

// verifyChecksumAt aggregates the canonical bytes of every transaction
// persisted at or below upToHeight, ordered by (id ASC, timestamp ASC), and
// compares their SHA-256 digest against want, a hex-encoded embedded
// constant. It is invoked exactly at the two milestone heights: the
// transparent-forging boundary and the NQT boundary.
func verifyChecksumAt(db database.DB, upToHeight uint32, want string) error {
	if want == "" {
		return nil
	}

	wantBytes, err := hex.DecodeString(want)
	if err != nil {
		return errors.Wrap(err, "checksum: malformed embedded digest")
	}

	var txs []*block.Transaction

	err = db.View(func(t database.Transaction) error {
		for h := uint32(0); h <= upToHeight; h++ {
			blk, ferr := t.FetchBlockByHeight(h)
			if ferr != nil {
				return ferr
			}
			txs = append(txs, blk.Txs...)
		}
		return nil
	})
	if err != nil {
		return err
	}

	sort.Slice(txs, func(i, j int) bool {
		return txs[i].CompareTo(txs[j]) < 0
	})

	buf := new(bytes.Buffer)
	for _, tx := range txs {
		buf.Write(tx.Bytes())
	}

	sum := sha256.Sum256(buf.Bytes())
	got := sum[:]

	if !bytes.Equal(got, wantBytes) {
		return errors.New("checksum mismatch at milestone height")
	}

	return nil
}
