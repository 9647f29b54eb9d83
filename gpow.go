// Copyright (c) 2025 Yawning Angel
//
// SPDX-License-Identifier: BSD-3-Clause

package dyadicsqrt

import (
	"math/big"

	"gitlab.com/yawning/dyadic-sqrt/field"
	"gitlab.com/yawning/dyadic-sqrt/internal/helpers"
)

// gpow sets `dst = (g^(2^i))^(e mod 2^elen)` via the window table, and
// returns `dst`.  `elen` MUST be non-zero and `i + elen` MUST be at
// most n.  Each window contributes one unconditional multiplication,
// so the count is exactly gpowCost(i, elen) regardless of the exponent
// value, zero windows included.  `e` is left untouched.
func (eng *Engine) gpow(c *Cost, dst *field.Element, i uint, e *big.Int, elen uint) *field.Element {
	if elen == 0 || i+elen > eng.n {
		panic("dyadicsqrt: gpow window out of range")
	}

	// A start that is not w-aligned is handled by shifting the
	// exponent up to the enclosing block boundary; the low zero bits
	// index identity entries.
	w := eng.w
	b0, r := i/w, i%w
	ee := new(big.Int).And(e, maskBits(elen))
	ee.Lsh(ee, r)

	nblocks := (elen + r + w - 1) / w
	eng.windowEntry(dst, b0, helpers.BigBits(ee, 0, w))
	tmp := field.NewElement()
	for j := uint(1); j < nblocks; j++ {
		eng.windowEntry(tmp, b0+j, helpers.BigBits(ee, j*w, w))
		eng.mulc(c, dst, dst, tmp)
	}
	return dst
}
