// Copyright (c) 2025 Yawning Angel
//
// SPDX-License-Identifier: BSD-3-Clause

package dyadicsqrt

import (
	"crypto/rand"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"gitlab.com/yawning/dyadic-sqrt/field"
	"gitlab.com/yawning/dyadic-sqrt/leafcfg"
)

const (
	randomTestIters = 1000

	// NIST P-224, the field that motivates all of this.
	p224Str = "0xffffffffffffffffffffffffffffffff000000000000000000000001"
)

// Fields with a large dyadic part show up all over the place: Fermat
// primes, the Kyber and Dilithium moduli, NTT-friendly primes, and
// NIST P-224.
var testFields = []struct {
	name string
	q    string
	m    string
	n    uint
}{
	{"q7", "7", "3", 1},
	{"q17", "17", "1", 4},
	{"kyber", "3329", "13", 8},
	{"dilithium", "8380417", "1023", 13},
	{"ntt", "998244353", "119", 23},
	{"p224", p224Str, "340282366920938463463374607431768211455", 96},
}

func mustBig(tb testing.TB, s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 0)
	require.True(tb, ok, "SetString(%q)", s)
	return v
}

func mustTestField(tb testing.TB, qStr string) *field.Field {
	fld, err := field.New(mustBig(tb, qStr))
	require.NoError(tb, err, "field.New(%s)", qStr)
	return fld
}

func mustEngine(tb testing.TB, qStr string, cfg Config) *Engine {
	eng, err := New(mustTestField(tb, qStr), cfg)
	require.NoError(tb, err, "New(%s, %+v)", qStr, cfg)
	return eng
}

func mustRandom(tb testing.TB, fld *field.Field) *field.Element {
	fe, err := fld.Random(field.NewElement(), rand.Reader)
	require.NoError(tb, err, "Random")
	return fe
}

func TestEngine(t *testing.T) {
	t.Run("Decomposition", testEngineDecomposition)
	t.Run("Tables", testEngineTables)
	t.Run("Determinism", testEngineDeterminism)
	t.Run("Config", testEngineConfig)
	t.Run("LeafKey", testEngineLeafKey)
}

func testEngineDecomposition(t *testing.T) {
	for _, tf := range testFields {
		t.Run(tf.name, func(t *testing.T) {
			eng := mustEngine(t, tf.q, Config{})
			fld := eng.Field()

			require.Equal(t, tf.n, eng.N(), "N")
			require.Zero(t, mustBig(t, tf.m).Cmp(eng.M()), "M")

			// q = m * 2^n + 1
			q := new(big.Int).Lsh(eng.M(), eng.N())
			q.Add(q, bigOne)
			require.Zero(t, fld.Order().Cmp(q), "m * 2^n + 1 == q")

			// The generator must be a non-residue of order exactly 2^n.
			g := eng.Generator()
			require.Equal(t, -1, fld.Legendre(g), "Legendre(g)")

			ord := new(big.Int).Lsh(bigOne, eng.N())
			gOrd := fld.Exp(field.NewElement(), g, ord)
			require.EqualValues(t, 1, fld.IsOne(gOrd), "g^(2^n) == 1")

			halfOrd := fld.Exp(field.NewElement(), g, new(big.Int).Rsh(ord, 1))
			minusOne := fld.Neg(field.NewElement(), field.NewElement().One())
			require.EqualValues(t, 1, fld.Equal(halfOrd, minusOne), "g^(2^(n-1)) == -1")

			// Accessors return copies.
			eng.M().SetInt64(69)
			require.Zero(t, mustBig(t, tf.m).Cmp(eng.M()), "M after mutation")
			eng.Generator().Zero()
			require.EqualValues(t, 1, fld.Equal(g, eng.Generator()), "Generator after mutation")
		})
	}
}

func testEngineTables(t *testing.T) {
	eng := mustEngine(t, "8380417", Config{WindowWidth: 4})
	fld, g, n := eng.Field(), eng.Generator(), eng.N()

	t.Run("Tower", func(t *testing.T) {
		require.Len(t, eng.gpp, int(n), "tower height")
		for i := uint(0); i < n; i++ {
			expected := fld.Exp(field.NewElement(), g, new(big.Int).Lsh(bigOne, i))
			require.EqualValues(t, 1, fld.Equal(&eng.gpp[i], expected), "gpp[%d]", i)
		}
	})

	t.Run("Windows", func(t *testing.T) {
		w := eng.WindowWidth()
		require.Len(t, eng.gw, int((n+w-1)/w), "window block count")
		for b := range eng.gw {
			require.Len(t, eng.gw[b], 1<<w, "block size")
			for _, j := range []uint{0, 1, 3, (1 << w) - 1} {
				exp := new(big.Int).Lsh(new(big.Int).SetUint64(uint64(j)), uint(b)*w)
				expected := fld.Exp(field.NewElement(), g, exp)
				require.EqualValues(t, 1, fld.Equal(&eng.gw[b][j], expected), "gw[%d][%d]", b, j)
			}
		}
	})

	t.Run("Leaf", func(t *testing.T) {
		lw := eng.LeafWidth()
		size := uint64(1) << lw
		require.Len(t, eng.leaf.pow, int(size), "leaf subgroup size")
		require.Len(t, eng.leaf.fwd, int(size)+1, "leaf forward size")

		// fwd[ke]^2 * pow[ke] == 1 for every reachable entry, and the
		// final entry squares back to s^(-2^lw) = 1.
		chk := field.NewElement()
		for ke := uint64(0); ke < size; ke++ {
			fld.Square(chk, &eng.leaf.fwd[ke])
			fld.Mul(chk, chk, &eng.leaf.pow[ke])
			require.EqualValues(t, 1, fld.IsOne(chk), "fwd[%d]^2 * pow[%d]", ke, ke)
		}
		fld.Square(chk, &eng.leaf.fwd[size])
		require.EqualValues(t, 1, fld.IsOne(chk), "fwd[2^lw]^2")

		// The reverse map must hit every member, and send zero to 0.
		for ke := uint64(0); ke < size; ke++ {
			have, ok := eng.leaf.lookup(fld, &eng.leaf.pow[ke], false)
			require.EqualValues(t, 1, ok, "lookup(pow[%d]) found", ke)
			require.Equal(t, ke, have, "lookup(pow[%d])", ke)
		}
		have, ok := eng.leaf.lookup(fld, field.NewElement(), false)
		require.EqualValues(t, 1, ok, "lookup(0) found")
		require.Zero(t, have, "lookup(0)")
	})
}

func testEngineDeterminism(t *testing.T) {
	for _, qStr := range []string{"3329", p224Str} {
		eng1 := mustEngine(t, qStr, Config{})
		eng2 := mustEngine(t, qStr, Config{})
		fld := eng1.Field()

		require.EqualValues(t, 1, fld.Equal(eng1.Generator(), eng2.Generator()), "generators agree")

		four := fld.MustElement(big.NewInt(4))
		y1, ok1 := eng1.Sqrt(four)
		y2, ok2 := eng2.Sqrt(four)
		require.EqualValues(t, 1, ok1, "Sqrt(4) exists")
		require.Equal(t, ok1, ok2, "Sqrt(4) masks agree")
		require.EqualValues(t, 1, fld.Equal(y1, y2), "Sqrt(4) roots agree")
	}
}

func testEngineConfig(t *testing.T) {
	fld := mustTestField(t, "3329")

	t.Run("NilField", func(t *testing.T) {
		eng, err := New(nil, Config{})
		require.ErrorIs(t, err, ErrBadConfig, "New(nil)")
		require.Nil(t, eng, "New(nil)")
	})

	t.Run("OversizedWidths", func(t *testing.T) {
		for _, cfg := range []Config{
			{WindowWidth: MaxTableWidth + 1},
			{LeafWidth: MaxTableWidth + 1},
		} {
			eng, err := New(fld, cfg)
			require.ErrorIs(t, err, ErrBadConfig, "New(%+v)", cfg)
			require.Nil(t, eng, "New(%+v)", cfg)
		}
	})

	t.Run("Clamping", func(t *testing.T) {
		// q = 17 has n = 4, everything clamps down to it.
		eng := mustEngine(t, "17", Config{})
		require.EqualValues(t, 4, eng.WindowWidth(), "default width clamped")
		require.EqualValues(t, 4, eng.LeafWidth(), "default leaf clamped")

		eng = mustEngine(t, "17", Config{WindowWidth: 2, LeafWidth: 9})
		require.EqualValues(t, 2, eng.WindowWidth(), "width kept")
		require.EqualValues(t, 4, eng.LeafWidth(), "leaf clamped")

		// Unset leaf width tracks the window width.
		eng = mustEngine(t, "8380417", Config{WindowWidth: 3})
		require.EqualValues(t, 3, eng.LeafWidth(), "leaf tracks width")
	})

	t.Run("CallerRand", func(t *testing.T) {
		eng := mustEngine(t, "3329", Config{Rand: rand.Reader})
		fld := eng.Field()
		negX := field.NewElement()
		for i := 0; i < 10; i++ {
			x := mustRandom(t, fld)
			sq := fld.Square(field.NewElement(), x)
			y, ok := eng.Sqrt(sq)
			require.EqualValues(t, 1, ok, "Sqrt(x^2) exists")
			fld.Neg(negX, x)
			require.EqualValues(t, 1, fld.Equal(y, x)|fld.Equal(y, negX), "Sqrt(x^2) = +/- x")
		}
	})
}

func testEngineLeafKey(t *testing.T) {
	for _, tf := range []struct {
		q     string
		leafW uint
	}{
		{"3329", 6},
		{"8380417", 6},
		{p224Str, 6},
	} {
		key, err := leafcfg.Search(mustBig(t, tf.q), tf.leafW)
		require.NoError(t, err, "leafcfg.Search(%s, %d)", tf.q, tf.leafW)

		plain := mustEngine(t, tf.q, Config{LeafWidth: tf.leafW})
		keyed := mustEngine(t, tf.q, Config{LeafWidth: tf.leafW, LeafKey: key})
		fld := plain.Field()

		for i := 0; i < 50; i++ {
			x := mustRandom(t, fld)
			y1, ok1 := plain.Sqrt(x)
			y2, ok2 := keyed.Sqrt(x)
			require.Equal(t, ok1, ok2, "masks agree, x = %s", x)
			require.EqualValues(t, 1, fld.Equal(y1, y2), "roots agree, x = %s", x)
		}
	}

	t.Run("Collision", func(t *testing.T) {
		// A 1-bit window cannot separate 2^6 + 1 values.
		eng, err := New(mustTestField(t, "3329"), Config{LeafKey: &leafcfg.Key{Offset: 0, Width: 1}})
		require.ErrorIs(t, err, ErrLeafKeyCollision, "New(degenerateKey)")
		require.Nil(t, eng, "New(degenerateKey)")
	})
}
