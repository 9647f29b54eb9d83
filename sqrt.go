// Copyright (c) 2025 Yawning Angel
//
// SPDX-License-Identifier: BSD-3-Clause

package dyadicsqrt

import (
	"gitlab.com/yawning/dyadic-sqrt/field"
	"gitlab.com/yawning/dyadic-sqrt/internal/helpers"
)

// Sqrt returns a square root of `x` and 1 iff one exists.  The root is
// zeroed when `x` is a non-square, and Sqrt(0) = (0, 1).  Which of the
// two roots of a square gets returned is deterministic for a given
// (field, Config), but not otherwise normalized; callers wanting a
// canonical root should pick by parity or sign themselves.
func (eng *Engine) Sqrt(x *field.Element) (*field.Element, uint64) {
	y, isSquare, _ := eng.SqrtWithCost(x)
	return y, isSquare
}

// SqrtWithCost is Sqrt, additionally reporting the field operations
// performed by this call.  The count excludes the one x^((m-1)/2)
// exponentiation by the odd cofactor, which is assumed delegated to a
// per-field addition chain, and matches PredictCost exactly for every
// input.
func (eng *Engine) SqrtWithCost(x *field.Element) (*field.Element, uint64, Cost) {
	var c Cost
	fld := eng.fld

	// v = x^((m-1)/2), the odd part of the work.
	v := fld.Exp(field.NewElement(), x, eng.mHalf)
	w := eng.mulc(&c, field.NewElement(), x, v) // x^((m+1)/2)
	h := eng.mulc(&c, field.NewElement(), w, v) // x^m, in the order 2^n subgroup

	// h = g^e with e even iff x is a square, and then d = g^(-e/2)
	// cancels the excess factor: y^2 = w^2 * d^2 = x * h * d^2 = x.
	d := field.NewElement()
	e := eng.solve(&c, 0, h, d, nil)

	y := eng.mulc(&c, field.NewElement(), w, d)
	isSquare := helpers.Uint64IsZero(uint64(e.Bit(0)))
	fld.Select(y, field.NewElement(), y, isSquare)

	return y, isSquare, c
}
