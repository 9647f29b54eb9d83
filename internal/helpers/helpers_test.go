package helpers

import (
	"math"
	"math/big"
	"testing"
)

func TestUint64IsZero(t *testing.T) {
	for _, v := range []uint64{
		0,
		1,
		math.MaxUint64,
	} {
		var expected uint64
		if v == 0 {
			expected = 1
		}
		if res := Uint64IsZero(v); res != expected {
			t.Errorf("Uint64IsZero(%d) = %d; want %d", v, res, expected)
		}
	}
}

func TestUint64Equal(t *testing.T) {
	for _, vec := range []struct {
		a, b     uint64
		expected uint64
	}{
		{0, 0, 1},
		{0, 1, 0},
		{math.MaxUint64, math.MaxUint64, 1},
		{math.MaxUint64, 1, 0},
	} {
		if res := Uint64Equal(vec.a, vec.b); res != vec.expected {
			t.Errorf("Uint64Equal(%d, %d) = %d; want %d", vec.a, vec.b, res, vec.expected)
		}
	}
}

func TestUint64Select(t *testing.T) {
	const (
		a = uint64(0xdeadbeefcafebabe)
		b = uint64(0x05ca1ab1e0ddba11)
	)
	if res := Uint64Select(a, b, 0); res != a {
		t.Errorf("Uint64Select(a, b, 0) = %x; want %x", res, a)
	}
	if res := Uint64Select(a, b, 1); res != b {
		t.Errorf("Uint64Select(a, b, 1) = %x; want %x", res, b)
	}
}

func TestBigBits(t *testing.T) {
	v := new(big.Int).SetUint64(0xfedcba9876543210)
	for _, vec := range []struct {
		offset, width uint
		expected      uint64
	}{
		{0, 4, 0x0},
		{4, 4, 0x1},
		{8, 16, 0x5432},
		{0, 64, 0xfedcba9876543210},
		{60, 8, 0xf}, // reads past the top bit, upper bits are zero
	} {
		if res := BigBits(v, vec.offset, vec.width); res != vec.expected {
			t.Errorf("BigBits(v, %d, %d) = %x; want %x", vec.offset, vec.width, res, vec.expected)
		}
	}
}
