// Copyright (c) 2025 Yawning Angel
//
// SPDX-License-Identifier: BSD-3-Clause

// Package field implements arithmetic in prime fields GF(q), where the
// modulus q is chosen at runtime.
//
// Unlike a fixed-modulus field, operations are methods on a Field (the
// modulus context) acting on Elements, which are plain always-reduced
// values.  Elements do not carry a reference to their Field; mixing
// elements across fields is a caller bug that this package makes no
// attempt to detect.
package field

import (
	"errors"
	"fmt"
	"io"
	"math/big"

	"gitlab.com/yawning/dyadic-sqrt/internal/disalloweq"
	"gitlab.com/yawning/dyadic-sqrt/internal/helpers"
)

// Masking to the modulus bit length keeps the per-attempt acceptance
// rate above 1/2 for every modulus, so 64 attempts bound the failure
// probability of an honest entropy source below 2^-64.
const sampleMaxAttempts = 64

var (
	// ErrInvalidModulus is returned when the modulus is nil, even,
	// or less than 3.
	ErrInvalidModulus = errors.New("field: modulus must be odd and at least 3")

	// ErrNotPrime is returned when the modulus fails the primality test.
	ErrNotPrime = errors.New("field: modulus is not prime")

	// ErrValueOutOfRange is returned when a serialized element is not
	// in the range [0, q).
	ErrValueOutOfRange = errors.New("field: value out of range")

	errRejectionSampling = errors.New("field: failed rejection sampling")

	bigOne = big.NewInt(1)
)

// Field is a prime field context.  It is immutable after New and safe
// for concurrent use.
type Field struct {
	q    *big.Int
	bits uint
	size int
}

// New creates a Field with modulus `q`.  The modulus must be an odd
// prime; primality is checked probabilistically (the usual Baillie-PSW
// plus Miller-Rabin rounds done by the math/big routine).
func New(q *big.Int) (*Field, error) {
	if q == nil || q.Sign() <= 0 || q.Bit(0) == 0 || q.Cmp(big.NewInt(3)) < 0 {
		return nil, ErrInvalidModulus
	}
	if !q.ProbablyPrime(20) {
		return nil, ErrNotPrime
	}

	qq := new(big.Int).Set(q)
	return &Field{
		q:    qq,
		bits: uint(qq.BitLen()),
		size: (qq.BitLen() + 7) / 8,
	}, nil
}

// Order returns the field order q.
func (f *Field) Order() *big.Int {
	return new(big.Int).Set(f.q)
}

// BitLen returns the bit length of the field order.
func (f *Field) BitLen() uint {
	return f.bits
}

// ElementSize returns the size of a canonically encoded element in bytes.
func (f *Field) ElementSize() int {
	return f.size
}

// Element is a field element in the range [0, q).  All arguments and
// receivers are allowed to alias.  The zero value is a valid zero
// element of every field.
type Element struct {
	_ disalloweq.DisallowEqual
	v big.Int
}

// NewElement returns a new zero Element.
func NewElement() *Element {
	return &Element{}
}

// NewElementFrom creates a new Element from another.
func NewElementFrom(other *Element) *Element {
	return NewElement().Set(other)
}

// Set sets `fe = a` and returns `fe`.
func (fe *Element) Set(a *Element) *Element {
	fe.v.Set(&a.v)
	return fe
}

// Zero sets `fe = 0` and returns `fe`.
func (fe *Element) Zero() *Element {
	fe.v.SetUint64(0)
	return fe
}

// One sets `fe = 1` and returns `fe`.
func (fe *Element) One() *Element {
	fe.v.SetUint64(1)
	return fe
}

// String returns the decimal representation of `fe`.
func (fe *Element) String() string {
	return fe.v.String()
}

// Add sets `z = x + y` and returns `z`.
func (f *Field) Add(z, x, y *Element) *Element {
	z.v.Add(&x.v, &y.v)
	if z.v.Cmp(f.q) >= 0 {
		z.v.Sub(&z.v, f.q)
	}
	return z
}

// Sub sets `z = x - y` and returns `z`.
func (f *Field) Sub(z, x, y *Element) *Element {
	z.v.Sub(&x.v, &y.v)
	if z.v.Sign() < 0 {
		z.v.Add(&z.v, f.q)
	}
	return z
}

// Neg sets `z = -x` and returns `z`.
func (f *Field) Neg(z, x *Element) *Element {
	z.v.Sub(f.q, &x.v)
	if z.v.Cmp(f.q) == 0 {
		z.v.SetUint64(0)
	}
	return z
}

// Mul sets `z = x * y` and returns `z`.
func (f *Field) Mul(z, x, y *Element) *Element {
	z.v.Mul(&x.v, &y.v)
	z.v.Mod(&z.v, f.q)
	return z
}

// Square sets `z = x * x` and returns `z`.
func (f *Field) Square(z, x *Element) *Element {
	z.v.Mul(&x.v, &x.v)
	z.v.Mod(&z.v, f.q)
	return z
}

// Pow2k sets `z = x ^ (2^k)` by repeated squaring and returns `z`.
// k MUST be non-zero.
func (f *Field) Pow2k(z, x *Element, k uint) *Element {
	if k == 0 {
		// This could just set z = x, but "don't do that".
		panic("field: k out of bounds")
	}

	f.Square(z, x)
	for i := uint(1); i < k; i++ {
		f.Square(z, z)
	}

	return z
}

// Exp sets `z = x^k` and returns `z`.  A negative `k` is interpreted as
// the modular inverse raised to `|k|`, which requires `x != 0`.
func (f *Field) Exp(z, x *Element, k *big.Int) *Element {
	z.v.Exp(&x.v, k, f.q)
	return z
}

// Inv sets `z = x^-1` and returns `z`, or sets `z = 0` when `x = 0`
// (zero has no inverse).
func (f *Field) Inv(z, x *Element) *Element {
	if x.v.Sign() == 0 {
		z.v.SetUint64(0)
		return z
	}
	z.v.ModInverse(&x.v, f.q)
	return z
}

// Equal returns 1 iff `x == y`, 0 otherwise.  Unlike a fixed-limb
// representation this comparison is not constant time; see Select for
// the hardening contract this package does honor.
func (f *Field) Equal(x, y *Element) uint64 {
	return helpers.Uint64IsZero(uint64(uint(x.v.Cmp(&y.v) & 1)))
}

// IsZero returns 1 iff `x == 0`, 0 otherwise.
func (f *Field) IsZero(x *Element) uint64 {
	return helpers.Uint64IsZero(uint64(x.v.Sign()))
}

// IsOne returns 1 iff `x == 1`, 0 otherwise.
func (f *Field) IsOne(x *Element) uint64 {
	return helpers.Uint64IsZero(uint64(uint(x.v.Cmp(bigOne) & 1)))
}

// IsOdd returns 1 iff `x % 2 == 1`, 0 otherwise.
func (f *Field) IsOdd(x *Element) uint64 {
	return uint64(x.v.Bit(0))
}

// Select sets `z = a` iff `ctrl == 0`, `z = b` otherwise, and returns
// `z`.  The selection between the two candidates does not branch on
// `ctrl`, though the underlying big.Int copy is length-dependent.
func (f *Field) Select(z, a, b *Element, ctrl uint64) *Element {
	from := [2]*Element{a, b}
	z.v.Set(&from[ctrl&1].v)
	return z
}

// Legendre returns the Legendre symbol of `x`: 1 if `x` is a non-zero
// square, -1 if it is a non-square, and 0 if `x = 0`.
func (f *Field) Legendre(x *Element) int {
	return big.Jacobi(&x.v, f.q)
}

// IsSquare returns 1 iff `x` has a square root in the field (including
// `x = 0`), 0 otherwise.
func (f *Field) IsSquare(x *Element) uint64 {
	if f.Legendre(x) == -1 {
		return 0
	}
	return 1
}

// SetBig sets `z` to `v` reduced modulo q and returns `z`.  Negative
// values reduce to their canonical non-negative representative.
func (f *Field) SetBig(z *Element, v *big.Int) *Element {
	z.v.Mod(v, f.q)
	return z
}

// SetUint64 sets `z` to `v` reduced modulo q and returns `z`.
func (f *Field) SetUint64(z *Element, v uint64) *Element {
	z.v.SetUint64(v)
	z.v.Mod(&z.v, f.q)
	return z
}

// Big returns the canonical integer representative of `x`.
func (f *Field) Big(x *Element) *big.Int {
	return new(big.Int).Set(&x.v)
}

// Bits returns `width` bits of the canonical integer representative of
// `x`, starting at bit `offset`, without copying the representative.
func (f *Field) Bits(x *Element, offset, width uint) uint64 {
	return helpers.BigBits(&x.v, offset, width)
}

// Bytes returns the canonical fixed-width big-endian encoding of `x`.
func (f *Field) Bytes(x *Element) []byte {
	return x.v.FillBytes(make([]byte, f.size))
}

// SetCanonicalBytes sets `z = src`, where `src` is the fixed-width
// big-endian encoding of a value in [0, q), and returns `z`.  If `src`
// is not a canonical encoding, SetCanonicalBytes returns nil and an
// error, and the receiver is unchanged.
func (f *Field) SetCanonicalBytes(z *Element, src []byte) (*Element, error) {
	if len(src) != f.size {
		return nil, fmt.Errorf("field: invalid encoding length: %d", len(src))
	}

	var v big.Int
	v.SetBytes(src)
	if v.Cmp(f.q) >= 0 {
		return nil, ErrValueOutOfRange
	}

	z.v.Set(&v)
	return z, nil
}

// MustElement creates a new Element from `v` reduced modulo q, or
// panics on a nil value.  Why are you using this for anything but
// test cases and pre-computed constants?
func (f *Field) MustElement(v *big.Int) *Element {
	if v == nil {
		panic("field: nil value")
	}
	return f.SetBig(NewElement(), v)
}

// Random sets `z` to an element sampled uniformly from [0, q) via
// rejection sampling from `rng`, and returns `z`.  Reader failures and
// statistically improbable rejection streaks are returned unchanged
// wrapped in an error.
func (f *Field) Random(z *Element, rng io.Reader) (*Element, error) {
	buf := make([]byte, f.size)
	topMask := byte(0xff >> (uint(f.size)*8 - f.bits))

	for i := 0; i < sampleMaxAttempts; i++ {
		if _, err := io.ReadFull(rng, buf); err != nil {
			return nil, fmt.Errorf("field: entropy source failure: %w", err)
		}
		buf[0] &= topMask

		var v big.Int
		if v.SetBytes(buf); v.Cmp(f.q) < 0 {
			z.v.Set(&v)
			return z, nil
		}
	}

	return nil, errRejectionSampling
}
