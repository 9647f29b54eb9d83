// Copyright (c) 2025 Yawning Angel
//
// SPDX-License-Identifier: BSD-3-Clause

// Package disalloweq provides a method for disallowing struct comparisons
// with the `==` operator.
package disalloweq

// DisallowEqual can be used to cause the compiler to reject attempts to
// compare structs with the `==` operator.  Field elements in particular
// must go through the Field's Equal, since `==` on the embedded big.Int
// compares internals rather than values.
//
// See: https://twitter.com/bradfitz/status/860145039573385216
type DisallowEqual [0]func()
