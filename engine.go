// Copyright (c) 2025 Yawning Angel
//
// SPDX-License-Identifier: BSD-3-Clause

// Package dyadicsqrt computes square roots in prime fields GF(q) whose
// order q = m * 2^n + 1 carries a large power-of-two factor, i.e. fields
// where the classic Tonelli-Shanks inner loop degrades to O(n^2)
// squarings.
//
// The heavy lifting is a divide-and-conquer discrete logarithm in the
// order 2^n subgroup, driven entirely by tables precomputed once per
// field.  Construction is deliberately expensive and queries are pure,
// so build one Engine per (field, Config) pair and share it freely.
package dyadicsqrt

import (
	"errors"
	"fmt"
	"io"
	"math/big"

	"golang.org/x/crypto/sha3"

	"gitlab.com/yawning/dyadic-sqrt/field"
	"gitlab.com/yawning/dyadic-sqrt/leafcfg"
)

const (
	// DefaultWindowWidth is the window width selected when the Config
	// does not provide one.
	DefaultWindowWidth = 6

	// MaxTableWidth is the largest window or leaf width accepted, each
	// additional bit doubling the size of the corresponding table.
	MaxTableWidth = 16

	nonResidueMaxAttempts = 256
)

var (
	// ErrInvalidOrder is the error returned when the field order is
	// even or less than 3, and has no dyadic decomposition.
	ErrInvalidOrder = errors.New("dyadicsqrt: field order must be odd and at least 3")

	// ErrNotPrimitive is the error returned when the derived generator
	// fails to span the full order 2^n subgroup.  This indicates a bug
	// in the underlying field arithmetic rather than bad luck, so
	// construction is aborted instead of retried.
	ErrNotPrimitive = errors.New("dyadicsqrt: generator does not span the dyadic subgroup")

	// ErrBadConfig is the error returned when a Config value is out of
	// bounds.
	ErrBadConfig = errors.New("dyadicsqrt: invalid configuration")

	// ErrLeafKeyCollision is the error returned when the compact leaf
	// key from the Config fails to distinguish the members of the leaf
	// subgroup.
	ErrLeafKeyCollision = errors.New("dyadicsqrt: leaf key bit window is not injective")

	errNonResidueSearch = errors.New("dyadicsqrt: failed to find a quadratic non-residue")

	bigOne = big.NewInt(1)
)

// Config is the optional Engine construction parameters.  The zero
// value is a sensible default.
type Config struct {
	// WindowWidth is the number of exponent bits resolved per window
	// table block (0 selects DefaultWindowWidth).
	WindowWidth uint

	// LeafWidth is the largest subgroup order, as a power-of-two
	// exponent, resolved by direct table lookup instead of recursion
	// (0 selects WindowWidth).
	LeafWidth uint

	// LeafKey optionally keys the leaf reverse table by the compact
	// bit window located by leafcfg.Search, instead of by the full
	// canonical encoding.
	LeafKey *leafcfg.Key

	// Rand is the entropy source used to find a quadratic non-residue
	// (nil selects a deterministic per-field XOF, which also makes the
	// choice between the two roots of each square reproducible).
	Rand io.Reader

	// HardenedLookups makes every secret-indexed table access touch
	// the entire table.  The underlying big.Int arithmetic remains
	// variable time, this only normalizes the table access pattern.
	HardenedLookups bool
}

// Engine computes square roots and dyadic discrete logarithms in a
// fixed field.  It is immutable after New, and safe for concurrent
// use.
type Engine struct {
	fld *field.Field

	m     *big.Int // odd cofactor of q - 1
	mHalf *big.Int // (m - 1) / 2
	n     uint     // 2-adic valuation of q - 1

	w     uint
	leafW uint

	gpp  []field.Element   // gpp[i] = g^(2^i), gpp[n-1] = -1
	gw   [][]field.Element // gw[b][j] = g^(j * 2^(b*w))
	leaf leafTable

	hardened bool
}

// New creates an Engine for the field `fld`.  Construction derives the
// decomposition q = m * 2^n + 1, finds a generator of the order 2^n
// subgroup, and precomputes the power tower, window, and leaf tables.
func New(fld *field.Field, cfg Config) (*Engine, error) {
	if fld == nil {
		return nil, fmt.Errorf("%w: nil field", ErrBadConfig)
	}

	q := fld.Order()
	if q.Bit(0) == 0 || q.Cmp(big.NewInt(3)) < 0 {
		// Unreachable via field.New, but the decomposition below is
		// nonsense without it.
		return nil, ErrInvalidOrder
	}
	if cfg.WindowWidth > MaxTableWidth || cfg.LeafWidth > MaxTableWidth {
		return nil, fmt.Errorf("%w: table width exceeds %d bits", ErrBadConfig, MaxTableWidth)
	}

	// q - 1 = m * 2^n, m odd.
	qm1 := new(big.Int).Sub(q, bigOne)
	n := qm1.TrailingZeroBits()
	m := new(big.Int).Rsh(qm1, n)

	w, leafW := normalizeWidths(n, cfg.WindowWidth, cfg.LeafWidth)

	rng := cfg.Rand
	if rng == nil {
		rng = defaultRand(fld)
	}
	g, err := deriveGenerator(fld, m, rng)
	if err != nil {
		return nil, err
	}

	eng := &Engine{
		fld:      fld,
		m:        m,
		mHalf:    new(big.Int).Rsh(m, 1),
		n:        n,
		w:        w,
		leafW:    leafW,
		hardened: cfg.HardenedLookups,
	}
	if err = eng.buildTower(g); err != nil {
		return nil, err
	}
	eng.buildWindows()
	if err = eng.buildLeaf(cfg.LeafKey); err != nil {
		return nil, err
	}

	return eng, nil
}

// normalizeWidths applies the Config width defaulting, and clamps both
// widths to the tower height.
func normalizeWidths(n, w, leafW uint) (uint, uint) {
	if w == 0 {
		w = DefaultWindowWidth
	}
	if w > n {
		w = n
	}
	if leafW == 0 {
		leafW = w
	}
	if leafW > n {
		leafW = n
	}
	return w, leafW
}

// defaultRand returns the deterministic XOF used to find a quadratic
// non-residue when the caller does not provide an entropy source.
// Keying it with the field order makes the generator, and therefore
// which of the two roots of each square gets returned, a pure function
// of (q, Config).
func defaultRand(fld *field.Field) io.Reader {
	xof := sha3.NewCShake256(nil, []byte("dyadic-sqrt: non-residue search"))
	_, _ = xof.Write(fld.Order().Bytes())
	return xof
}

// deriveGenerator samples field elements from `rng` until a quadratic
// non-residue turns up, and returns its m-th power, a generator of the
// order 2^n subgroup.  Half of all nonzero elements qualify, so the
// retry bound is unreachable short of a broken entropy source.
func deriveGenerator(fld *field.Field, m *big.Int, rng io.Reader) (*field.Element, error) {
	c := field.NewElement()
	for i := 0; i < nonResidueMaxAttempts; i++ {
		if _, err := fld.Random(c, rng); err != nil {
			return nil, fmt.Errorf("dyadicsqrt: failed to sample candidate: %w", err)
		}
		if fld.Legendre(c) == -1 {
			return fld.Exp(c, c, m), nil
		}
	}
	return nil, errNonResidueSearch
}

// Field returns the field the Engine operates in.
func (eng *Engine) Field() *field.Field {
	return eng.fld
}

// M returns the odd cofactor m of the decomposition q = m * 2^n + 1.
func (eng *Engine) M() *big.Int {
	return new(big.Int).Set(eng.m)
}

// N returns the 2-adic valuation n of q - 1.
func (eng *Engine) N() uint {
	return eng.n
}

// WindowWidth returns the effective window width, after defaulting and
// clamping.
func (eng *Engine) WindowWidth() uint {
	return eng.w
}

// LeafWidth returns the effective leaf width, after defaulting and
// clamping.
func (eng *Engine) LeafWidth() uint {
	return eng.leafW
}

// Generator returns the generator of the order 2^n subgroup.
func (eng *Engine) Generator() *field.Element {
	return field.NewElement().Set(&eng.gpp[0])
}

// maskBits returns 2^k - 1.
func maskBits(k uint) *big.Int {
	m := new(big.Int).Lsh(bigOne, k)
	return m.Sub(m, bigOne)
}
