// Copyright (c) 2025 Yawning Angel
//
// SPDX-License-Identifier: BSD-3-Clause

package dyadicsqrt

import (
	"gitlab.com/yawning/dyadic-sqrt/field"
	"gitlab.com/yawning/dyadic-sqrt/internal/helpers"
	"gitlab.com/yawning/dyadic-sqrt/leafcfg"
)

// buildTower fills gpp with the squaring chain gpp[i] = g^(2^i), and
// checks the result against the field structure: g generates the full
// order 2^n subgroup iff the final rung is -1.
func (eng *Engine) buildTower(g *field.Element) error {
	n := eng.n
	eng.gpp = make([]field.Element, n)
	eng.gpp[0].Set(g)
	for i := uint(1); i < n; i++ {
		eng.fld.Square(&eng.gpp[i], &eng.gpp[i-1])
	}

	minusOne := eng.fld.Neg(field.NewElement(), field.NewElement().One())
	if eng.fld.Equal(&eng.gpp[n-1], minusOne) != 1 {
		return ErrNotPrimitive
	}
	return nil
}

// buildWindows fills gw with one 2^w entry block per w-bit boundary of
// the tower, gw[b][j] = g^(j * 2^(b*w)), so that a w-bit slice of an
// exponent resolves to a single table entry.
func (eng *Engine) buildWindows() {
	w := eng.w
	nblocks := (eng.n + w - 1) / w
	eng.gw = make([][]field.Element, nblocks)
	for b := uint(0); b < nblocks; b++ {
		base := &eng.gpp[b*w]
		blk := make([]field.Element, 1<<w)
		blk[0].One()
		for j := 1; j < len(blk); j++ {
			eng.fld.Mul(&blk[j], &blk[j-1], base)
		}
		eng.gw[b] = blk
	}
}

// windowEntry sets `dst` to entry `idx` of window table block `b`.
func (eng *Engine) windowEntry(dst *field.Element, b uint, idx uint64) *field.Element {
	blk := eng.gw[b]
	if !eng.hardened {
		return dst.Set(&blk[idx])
	}

	// Touch every entry in the block, keeping the match.
	dst.Set(&blk[0])
	for j := uint64(1); j < uint64(len(blk)); j++ {
		eng.fld.Select(dst, dst, &blk[j], helpers.Uint64Equal(idx, j))
	}
	return dst
}

// leafTable resolves discrete logs in the subgroup of order 2^width by
// direct lookup.  rev (or revBits, when compact keying is configured)
// maps a subgroup member to its exponent, and fwd holds the matching
// square root helpers fwd[ke] = t^(-ke) with t^2 = s, maintaining
// fwd[ke]^2 * pow[ke] = 1.
type leafTable struct {
	width uint

	key     *leafcfg.Key
	rev     map[string]uint64
	revBits map[uint64]uint64

	pow []field.Element // pow[k] = s^k, scanned by hardened lookups
	fwd []field.Element
}

// buildLeaf precomputes the leaf tables.  The subgroup enumeration
// always keys the zero element to exponent 0 as well, so that a lookup
// of a degenerate input stays total; invalid inputs are detected by
// parity downstream, never by a missing key.
func (eng *Engine) buildLeaf(key *leafcfg.Key) error {
	fld, n, lw := eng.fld, eng.n, eng.leafW
	lt := &eng.leaf
	lt.width = lw
	lt.key = key

	// s = g^(2^(n-lw)) generates the subgroup of order 2^lw.
	s := &eng.gpp[n-lw]
	size := uint64(1) << lw
	lt.pow = make([]field.Element, size)
	lt.pow[0].One()
	for k := uint64(1); k < size; k++ {
		fld.Mul(&lt.pow[k], &lt.pow[k-1], s)
	}

	zero := field.NewElement()
	if key != nil {
		lt.revBits = make(map[uint64]uint64, size+1)
		for k := uint64(0); k < size; k++ {
			kb := fld.Bits(&lt.pow[k], key.Offset, key.Width)
			if _, ok := lt.revBits[kb]; ok {
				return ErrLeafKeyCollision
			}
			lt.revBits[kb] = k
		}
		zk := fld.Bits(zero, key.Offset, key.Width)
		if _, ok := lt.revBits[zk]; ok {
			return ErrLeafKeyCollision
		}
		lt.revBits[zk] = 0
	} else {
		// Full canonical encodings of distinct elements cannot
		// collide, no check required.
		lt.rev = make(map[string]uint64, size+1)
		for k := uint64(0); k < size; k++ {
			lt.rev[string(fld.Bytes(&lt.pow[k]))] = k
		}
		lt.rev[string(fld.Bytes(zero))] = 0
	}

	lt.fwd = make([]field.Element, size+1)
	lt.fwd[0].One()
	if lw < n {
		// u = t^-1 steps the table, fwd[k] = fwd[k-1] * u.
		u := fld.Inv(field.NewElement(), &eng.gpp[n-lw-1])
		for k := uint64(1); k <= size; k++ {
			fld.Mul(&lt.fwd[k], &lt.fwd[k-1], u)
		}
	} else {
		// Degenerate lw = n: t would need order 2^(n+1), which the
		// field does not have.  Only even entries are meaningful, odd
		// entries are hit exactly when no square root exists.
		u := fld.Inv(field.NewElement(), s)
		for k := uint64(2); k <= size; k += 2 {
			fld.Mul(&lt.fwd[k], &lt.fwd[k-2], u)
		}
		for k := uint64(1); k <= size; k += 2 {
			lt.fwd[k].One()
		}
	}

	return nil
}

// lookup resolves the exponent of `h` in the leaf subgroup, returning
// the exponent at full table resolution and a 0/1 found mask.
func (lt *leafTable) lookup(fld *field.Field, h *field.Element, hardened bool) (uint64, uint64) {
	if !hardened {
		var (
			ke uint64
			ok bool
		)
		if lt.key != nil {
			ke, ok = lt.revBits[fld.Bits(h, lt.key.Offset, lt.key.Width)]
		} else {
			ke, ok = lt.rev[string(fld.Bytes(h))]
		}
		if !ok {
			return 0, 0
		}
		return ke, 1
	}

	// Walk the entire subgroup, then the zero sentinel.
	var ke, found uint64
	for k := range lt.pow {
		hit := fld.Equal(h, &lt.pow[k])
		ke = helpers.Uint64Select(ke, uint64(k), hit)
		found |= hit
	}
	isZero := fld.IsZero(h)
	ke = helpers.Uint64Select(ke, 0, isZero)
	found |= isZero

	return ke, found
}

// forward sets `d` to the square root helper for the full-resolution
// exponent `ke`.
func (lt *leafTable) forward(fld *field.Field, d *field.Element, ke uint64, hardened bool) {
	if !hardened {
		d.Set(&lt.fwd[ke])
		return
	}

	d.Set(&lt.fwd[0])
	for k := uint64(1); k < uint64(len(lt.fwd)); k++ {
		fld.Select(d, d, &lt.fwd[k], helpers.Uint64Equal(ke, k))
	}
}
