// Copyright (c) 2025 Yawning Angel
//
// SPDX-License-Identifier: BSD-3-Clause

package dyadicsqrt

import (
	"math/big"

	"gitlab.com/yawning/dyadic-sqrt/field"
	"gitlab.com/yawning/dyadic-sqrt/internal/helpers"
)

// Dlog returns the discrete logarithm of `h` with respect to the
// subgroup generator: the unique e in [0, 2^n) with g^e = h, exact
// whenever h actually lies in the order 2^n subgroup.  For h outside
// the subgroup the result is an unspecified but deterministic value,
// and h = 0 resolves, by way of the zero sentinel in the leaf table,
// to an unspecified but deterministic even value.
func (eng *Engine) Dlog(h *field.Element) *big.Int {
	var c Cost
	return eng.solve(&c, 0, h, nil, nil)
}

// solve returns e in [0, 2^lb) with h = b^e, where b = g^(2^i) is the
// level `i` base of order 2^lb, lb = n - i.  A non-nil `d` is set to
// the inverse square root of h, d^2 * h = 1, halving the exponent one
// tower level down when i >= 1.  At i = 0 there is no level below, so
// the halving happens on the exponent itself and d is meaningful only
// for even e; e then degrades to its low bit, which is all the square
// root front end consumes.  A non-nil `helper` MUST equal
// h^(2^(lb-lb/2)) and is consumed in place of the squaring chain the
// split would otherwise perform.
//
// Operation counts depend only on (i, d == nil, helper == nil), never
// on the values involved.
func (eng *Engine) solve(c *Cost, i uint, h, d, helper *field.Element) *big.Int {
	fld, lb := eng.fld, eng.n-i

	// Leaf: a single reverse lookup at the table's resolution.  A
	// missing key scales to the odd sentinel e = 1, marking an input
	// that never was in the subgroup.
	if lb <= eng.leafW {
		shift := eng.leafW - lb
		ke, ok := eng.leaf.lookup(fld, h, eng.hardened)
		ke = helpers.Uint64Select(uint64(1)<<shift, ke, ok)
		if d != nil {
			eng.leaf.forward(fld, d, ke, eng.hardened)
		}
		return new(big.Int).SetUint64(ke >> shift)
	}

	lb0, lb1 := lb/2, lb-lb/2

	// h0 = h^(2^lb1) for the first recursion, either from the helper
	// handed down by the caller, or by a squaring chain whose midpoint
	// seeds our own hand-off below.
	h0, mid := helper, (*field.Element)(nil)
	if h0 == nil {
		k := (lb1 + 1) / 2
		mid = eng.pow2kc(c, field.NewElement(), h, k)
		h0 = mid
		if lb1 > k {
			h0 = eng.pow2kc(c, field.NewElement(), mid, lb1-k)
		}
	}
	e0 := eng.solve(c, i+lb1, h0, nil, nil)
	e0IsZero := helpers.Uint64IsZero(uint64(e0.Sign()))

	// Corrective factor f^2 = b^(2^lb0 - e0), so that h1 = h * f^2 =
	// (b^(2^lb0))^(e1 + 1).  Multiplying by b^(2^lb0 - e0) instead of
	// dividing by b^e0 keeps everything a table walk; the +1 is undone
	// after the second recursion.  When e0 = 0 the table exponent
	// wraps to zero, so the matching tower entry is selected over the
	// walk's result.
	exp := new(big.Int).Lsh(bigOne, lb0)
	exp.Sub(exp, e0)
	var f, f2 *field.Element
	if d != nil {
		// f itself feeds the d chain, so derive it one tower level
		// down where the exponent halves exactly.  At the bottom of
		// the tower no such level exists, and the halved exponent is
		// exact only for even e0.
		f = field.NewElement()
		if i >= 1 {
			eng.gpow(c, f, i-1, exp, lb0)
			fld.Select(f, f, &eng.gpp[i+lb0-1], e0IsZero)
		} else {
			elen := lb0 - 1
			if elen == 0 {
				elen = 1
			}
			half := new(big.Int).Rsh(exp, 1)
			eng.gpow(c, f, 0, half, elen)
			fld.Select(f, f, &eng.gpp[lb0-1], e0IsZero)
		}
		f2 = eng.sqrc(c, field.NewElement(), f)
	} else {
		f2 = eng.gpow(c, field.NewElement(), i, exp, lb0)
		fld.Select(f2, f2, &eng.gpp[i+lb0], e0IsZero)
	}
	h1 := eng.mulc(c, field.NewElement(), h, f2)

	// Hand the second recursion its chain endpoint when the window
	// table gets there cheaper than the squarings it would spend.
	var fwd *field.Element
	if mid != nil && eng.costModel().helperWorthwhile(i, lb0, lb1) {
		k := (lb1 + 1) / 2
		f2f := eng.gpow(c, field.NewElement(), i+k, exp, lb0)
		fld.Select(f2f, f2f, &eng.gpp[i+k+lb0], e0IsZero)
		fwd = eng.mulc(c, f2f, mid, f2f)
	}

	var d1 *field.Element
	if d != nil {
		d1 = field.NewElement()
	}
	e1 := eng.solve(c, i+lb0, h1, d1, fwd)

	// Undo the +1 from the corrective factor, e1 = (e1 - 1) mod 2^lb1,
	// then recombine e = e0 + e1 * 2^lb0.
	mask := maskBits(lb1)
	e1.Add(e1, mask)
	e1.And(e1, mask)
	e1.Lsh(e1, lb0)
	e1.Or(e1, e0)

	if d != nil {
		eng.mulc(c, d, d1, f)
	}
	return e1
}
