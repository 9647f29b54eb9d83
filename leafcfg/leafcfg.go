// Copyright (c) 2025 Yawning Angel
//
// SPDX-License-Identifier: BSD-3-Clause

// Package leafcfg locates compact leaf table keys: the narrowest
// window of canonical-representation bits that still tells apart every
// member of a field's order 2^leafW subgroup, letting an engine key
// its leaf reverse table by a single uint64 instead of by the full
// encoding.
//
// The search is an offline tool concern.  Keys depend only on (q,
// leafW), so ship the result as a constant next to the field order.
package leafcfg

import (
	"errors"
	"fmt"
	"io"
	"math/big"

	"golang.org/x/crypto/sha3"

	"gitlab.com/yawning/dyadic-sqrt/field"
	"gitlab.com/yawning/dyadic-sqrt/internal/helpers"
)

const (
	defaultLeafWidth = 6
	maxLeafWidth     = 16
	maxKeyWidth      = 64 // keys are uint64s

	sampleMaxAttempts = 256
)

var (
	// ErrBadWidth is the error returned when the requested leaf width
	// is out of range.
	ErrBadWidth = errors.New("leafcfg: leaf width out of range")

	// ErrNoKey is the error returned when no uint64 sized bit window
	// distinguishes the subgroup members.
	ErrNoKey = errors.New("leafcfg: no distinguishing bit window")

	errNonResidueSearch = errors.New("leafcfg: failed to find a quadratic non-residue")

	bigOne = big.NewInt(1)
)

// Key locates a distinguishing bit window: Width bits of the canonical
// integer representative, starting at bit Offset.
type Key struct {
	Offset uint `json:"offset"`
	Width  uint `json:"width"`
}

// String implements fmt.Stringer.
func (k *Key) String() string {
	return fmt.Sprintf("leafcfg.Key{Offset: %d, Width: %d}", k.Offset, k.Width)
}

// Search returns the minimal distinguishing bit window for the order
// 2^leafW subgroup of GF(q), preferring narrower windows, and lower
// offsets within a width.  A leafW of 0 selects the engine default of
// 6, and widths are clamped to the 2-adic valuation of q - 1.  The
// window also separates the zero element, which engines key alongside
// the subgroup.
func Search(q *big.Int, leafW uint) (*Key, error) {
	fld, err := field.New(q)
	if err != nil {
		return nil, err
	}
	if leafW == 0 {
		leafW = defaultLeafWidth
	}
	if leafW > maxLeafWidth {
		return nil, fmt.Errorf("%w: %d > %d", ErrBadWidth, leafW, maxLeafWidth)
	}

	// q - 1 = m * 2^n, m odd.
	qm1 := new(big.Int).Sub(q, bigOne)
	n := qm1.TrailingZeroBits()
	m := new(big.Int).Rsh(qm1, n)
	if leafW > n {
		leafW = n
	}

	members, err := subgroupMembers(fld, m, n, leafW)
	if err != nil {
		return nil, err
	}

	// Fewer than leafW + 1 bits cannot name 2^leafW + 1 distinct
	// values, so the scan starts there.
	qbits := fld.BitLen()
	for width := leafW + 1; width <= maxKeyWidth; width++ {
		for offset := uint(0); offset < qbits; offset++ {
			if windowDistinct(members, offset, width) {
				return &Key{Offset: offset, Width: width}, nil
			}
		}
	}
	return nil, ErrNoKey
}

func windowDistinct(members []*big.Int, offset, width uint) bool {
	seen := make(map[uint64]struct{}, len(members))
	for _, v := range members {
		k := helpers.BigBits(v, offset, width)
		if _, dup := seen[k]; dup {
			return false
		}
		seen[k] = struct{}{}
	}
	return true
}

// subgroupMembers returns the canonical representatives of the order
// 2^leafW subgroup, preceded by the zero sentinel.  The subgroup is
// unique, so any generator enumerates the same member set.
func subgroupMembers(fld *field.Field, m *big.Int, n, leafW uint) ([]*big.Int, error) {
	rng := defaultRand(fld)
	c := field.NewElement()
	found := false
	for i := 0; i < sampleMaxAttempts; i++ {
		if _, err := fld.Random(c, rng); err != nil {
			return nil, fmt.Errorf("leafcfg: failed to sample candidate: %w", err)
		}
		if fld.Legendre(c) == -1 {
			found = true
			break
		}
	}
	if !found {
		return nil, errNonResidueSearch
	}

	// s = (c^m)^(2^(n-leafW)) generates the subgroup of order 2^leafW.
	exp := new(big.Int).Lsh(m, n-leafW)
	s := fld.Exp(field.NewElement(), c, exp)

	members := make([]*big.Int, 0, (1<<leafW)+1)
	members = append(members, new(big.Int))
	acc := field.NewElement().One()
	for k := 0; k < 1<<leafW; k++ {
		members = append(members, fld.Big(acc))
		fld.Mul(acc, acc, s)
	}
	return members, nil
}

// defaultRand returns the deterministic XOF driving the non-residue
// search.  Determinism only buys a reproducible search transcript, the
// resulting Key is generator-independent either way.
func defaultRand(fld *field.Field) io.Reader {
	xof := sha3.NewCShake256(nil, []byte("dyadic-sqrt/leafcfg: non-residue search"))
	_, _ = xof.Write(fld.Order().Bytes())
	return xof
}
