// Copyright (c) 2025 Yawning Angel
//
// SPDX-License-Identifier: BSD-3-Clause

package dyadicsqrt

import (
	"fmt"

	"gitlab.com/yawning/dyadic-sqrt/field"
)

// Cost tallies the field operations performed by a query.  Counters
// are accumulated per call rather than on the Engine, so queries on a
// shared Engine never race.
type Cost struct {
	// Squarings is the number of field squarings.
	Squarings uint64

	// Multiplications is the number of general field multiplications.
	Multiplications uint64
}

// String implements fmt.Stringer.
func (c Cost) String() string {
	return fmt.Sprintf("%dS+%dM", c.Squarings, c.Multiplications)
}

// mulc is Mul with the per-call counter bump.
func (eng *Engine) mulc(c *Cost, z, x, y *field.Element) *field.Element {
	c.Multiplications++
	return eng.fld.Mul(z, x, y)
}

// sqrc is Square with the per-call counter bump.
func (eng *Engine) sqrc(c *Cost, z, x *field.Element) *field.Element {
	c.Squarings++
	return eng.fld.Square(z, x)
}

// pow2kc sets `z = x^(2^k)` by `k` counted squarings.  `k` MUST be
// non-zero.
func (eng *Engine) pow2kc(c *Cost, z, x *field.Element, k uint) *field.Element {
	c.Squarings += uint64(k)
	return eng.fld.Pow2k(z, x, k)
}

// costModel predicts operation counts from the table geometry alone.
// The solver consults the same model when deciding whether handing a
// helper to its second recursion beats the squarings it replaces, so
// predictions and measurements cannot drift apart.
type costModel struct {
	n, w, leafW uint
}

func (eng *Engine) costModel() costModel {
	return costModel{n: eng.n, w: eng.w, leafW: eng.leafW}
}

// gpowCost returns the number of multiplications gpow(i, e, elen)
// performs: one per w-bit window beyond the first.
func (cm costModel) gpowCost(i, elen uint) uint64 {
	return uint64((elen+i%cm.w+cm.w-1)/cm.w) - 1
}

// helperWorthwhile reports whether deriving the second recursion's
// chain endpoint from the window table is cheaper than the
// ceil(lb1/2) squarings it saves.  The comparison prices squarings
// and multiplications equally.
func (cm costModel) helperWorthwhile(i, lb0, lb1 uint) bool {
	if lb1 <= cm.leafW {
		return false
	}
	k := (lb1 + 1) / 2
	return cm.gpowCost(i+k, lb0)+1 < uint64(k)
}

// solve accumulates the operation count of the matching Engine.solve
// call.  The structure mirrors the solver frame for frame.
func (cm costModel) solve(c *Cost, i uint, wantD, hasHelper bool) {
	lb := cm.n - i
	if lb <= cm.leafW {
		return
	}
	lb0, lb1 := lb/2, lb-lb/2

	if !hasHelper {
		c.Squarings += uint64(lb1)
	}
	cm.solve(c, i+lb1, false, false)

	if wantD {
		if i >= 1 {
			c.Multiplications += cm.gpowCost(i-1, lb0)
		} else {
			elen := lb0 - 1
			if elen == 0 {
				elen = 1
			}
			c.Multiplications += cm.gpowCost(0, elen)
		}
		c.Squarings++ // f^2
	} else {
		c.Multiplications += cm.gpowCost(i, lb0)
	}
	c.Multiplications++ // h1 = h * f^2

	forwarded := false
	if !hasHelper && cm.helperWorthwhile(i, lb0, lb1) {
		c.Multiplications += cm.gpowCost(i+(lb1+1)/2, lb0) + 1
		forwarded = true
	}
	cm.solve(c, i+lb0, wantD, forwarded)

	if wantD {
		c.Multiplications++ // d = d1 * f
	}
}

// PredictCost returns the exact operation count of a SqrtWithCost call
// on an Engine built with the given parameters, applying the same
// width defaulting and clamping as New.  Every query costs the same:
// the solver's work depends only on the table geometry, never on the
// input value.
func PredictCost(n, w, leafW uint) Cost {
	w, leafW = normalizeWidths(n, w, leafW)
	cm := costModel{n: n, w: w, leafW: leafW}

	var c Cost
	cm.solve(&c, 0, true, false)
	c.Multiplications += 3 // x * v, w * v, w * d
	return c
}
