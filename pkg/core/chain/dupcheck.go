// This Source Code Form is subject to the terms of the MIT License.
// If a copy of the MIT License was not distributed with this
// file, you can obtain one at https://opensource.org/licenses/MIT.
//
// Copyright (c) DUSK NETWORK. All rights reserved.

package chain

import (
	"github.com/lifecoin-project/lifecoind/pkg/core/data/block"
	cuckoo "github.com/seiflotfy/cuckoofilter"
)

// duplicateTracker rejects a transaction that collides with another
// transaction already admitted to the same block, keyed by type and a
// type-specific discriminating key (e.g. an alias name). It is rebuilt
// fresh for every candidate block.
//
// A cuckoo filter fronts an exact map so that the common case — no
// collision — resolves in O(1) without an allocation-heavy map probe; the
// map remains authoritative, so a filter false positive only costs an
// extra exact check and never admits a true duplicate.
type duplicateTracker struct {
	filter *cuckoo.Filter
	exact  map[block.TxType]map[string]struct{}
}

func newDuplicateTracker() *duplicateTracker {
	return &duplicateTracker{
		filter: cuckoo.NewFilter(1024),
		exact:  make(map[block.TxType]map[string]struct{}),
	}
}

// admit reports whether key is a first-time appearance within typ's bucket
// for this block, recording it if so.
func (d *duplicateTracker) admit(typ block.TxType, key string) bool {
	composite := dupKey(typ, key)

	if d.filter.Lookup([]byte(composite)) {
		bucket := d.exact[typ]
		if bucket != nil {
			if _, exists := bucket[key]; exists {
				return false
			}
		}
	}

	bucket, ok := d.exact[typ]
	if !ok {
		bucket = make(map[string]struct{})
		d.exact[typ] = bucket
	}
	bucket[key] = struct{}{}
	d.filter.Insert([]byte(composite))

	return true
}

func dupKey(typ block.TxType, key string) string {
	return string([]byte{byte(typ)}) + key
}
