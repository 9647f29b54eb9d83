// Copyright (c) 2025 Yawning Angel
//
// SPDX-License-Identifier: BSD-3-Clause

// Package helpers provides internal helpers shared across packages,
// primarily branchless mask arithmetic on uint64 control values.
//
// Masks follow the "0 or 1" convention rather than "0 or ^0", matching
// the return values of the field package's predicates.
package helpers

import "math/big"

// Uint64IsZero returns 1 iff `a == 0`, 0 otherwise.
func Uint64IsZero(a uint64) uint64 {
	return (^(a | -a)) >> 63
}

// Uint64Equal returns 1 iff `a == b`, 0 otherwise.
func Uint64Equal(a, b uint64) uint64 {
	return Uint64IsZero(a ^ b)
}

// Uint64Select returns `a` iff `ctrl == 0` and `b` otherwise, without
// branching.  Behavior is undefined for ctrl values other than 0 or 1.
func Uint64Select(a, b, ctrl uint64) uint64 {
	mask := -ctrl
	return (a &^ mask) | (b & mask)
}

// BigBits returns the `width` bits of the non-negative integer `v`
// starting at bit `offset`, as a uint64.  `width` must be in [1, 64].
func BigBits(v *big.Int, offset, width uint) uint64 {
	if width == 0 || width > 64 {
		panic("helpers: bit window width out of range")
	}
	var out uint64
	for j := uint(0); j < width; j++ {
		out |= uint64(v.Bit(int(offset+j))) << j
	}
	return out
}
