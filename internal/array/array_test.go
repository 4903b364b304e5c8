package array

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

// === DType ===

func TestParseDType(t *testing.T) {
	tests := []struct {
		in   string
		want DType
	}{
		{"int64", Int64},
		{"int", Int64},
		{"UINT64", UInt64},
		{"uint8", UInt8},
		{"float", Float64},
		{"bool", Bool},
		{"bigint", BigInt},
		{"str", Str},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDType(tt.in)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}

	_, err := ParseDType("complex128")
	require.ErrorIs(t, err, ErrUnsupportedDType)
}

func TestDType_ItemSizeAndSupport(t *testing.T) {
	require.Equal(t, int64(8), Int64.ItemSize())
	require.Equal(t, int64(8), Float64.ItemSize())
	require.Equal(t, int64(1), Bool.ItemSize())
	require.Equal(t, int64(1), UInt8.ItemSize())
	require.Equal(t, int64(0), BigInt.ItemSize())

	require.True(t, Bool.Supported())
	require.False(t, BigInt.Supported())
	require.False(t, Str.Supported())
	require.True(t, Bool.Packed())
	require.False(t, Int64.Packed())
	require.Equal(t, "dtype(99)", DType(99).String())
}

// === Construction ===

func TestNew_ZeroFilled(t *testing.T) {
	e, err := New(5, Float64)
	require.NoError(t, err)

	require.Equal(t, Float64, e.DType())
	require.Equal(t, int64(5), e.Size())
	require.Equal(t, int64(8), e.ItemSize())
	require.Equal(t, int64(1), e.NDim())
	require.Equal(t, []int64{5}, e.Shape())

	a, ok := e.(*Array[float64])
	require.True(t, ok)
	require.Equal(t, []float64{0, 0, 0, 0, 0}, a.Values())
}

func TestNew_Unsupported(t *testing.T) {
	_, err := New(3, BigInt)
	require.ErrorIs(t, err, ErrUnsupportedDType)
}

func TestNewShaped(t *testing.T) {
	e, err := NewShaped(Int64, 2, 3)
	require.NoError(t, err)
	require.Equal(t, int64(6), e.Size())
	require.Equal(t, int64(2), e.NDim())

	shape := e.Shape()
	shape[0] = 99
	require.Equal(t, []int64{2, 3}, e.Shape(), "Shape must return a copy")

	_, err = NewShaped(Int64, -1)
	require.ErrorIs(t, err, ErrInvalidShape)

	_, err = NewShaped(Int64)
	require.ErrorIs(t, err, ErrInvalidShape)
}

func TestNewShaped_TooLarge(t *testing.T) {
	tests := []struct {
		name  string
		dt    DType
		shape []int64
	}{
		{"footprint wraps", Int64, []int64{1 << 61}},
		{"max elements", Float64, []int64{math.MaxInt64}},
		{"dimensions overflow", Int64, []int64{1 << 32, 1 << 32}},
		{"above max bytes", UInt8, []int64{MaxBytes + 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewShaped(tt.dt, tt.shape...)
			require.ErrorIs(t, err, ErrTooLarge)
		})
	}
}

func TestNewShaped_ZeroDimensionNeverOverflows(t *testing.T) {
	e, err := NewShaped(Int64, 1<<40, 0, 1<<40)
	require.NoError(t, err)
	require.Zero(t, e.Size())
}

func TestDType_Bytes(t *testing.T) {
	n, err := Int64.Bytes(4)
	require.NoError(t, err)
	require.Equal(t, int64(32), n)

	n, err = Bool.Bytes(4)
	require.NoError(t, err)
	require.Equal(t, int64(4), n)

	_, err = Int64.Bytes(math.MaxInt64/8 + 1)
	require.ErrorIs(t, err, ErrTooLarge)

	n, err = Str.Bytes(math.MaxInt64)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestFromSlice_SharesBuffer(t *testing.T) {
	data := []int64{1, 2, 3}
	a := FromSlice(data)

	require.Equal(t, Int64, a.DType())
	a.Set(0, 10)
	require.Equal(t, int64(10), data[0])
	require.Equal(t, int64(10), a.At(0))
}

func TestRelease(t *testing.T) {
	a := FromSlice([]bool{true, false})
	require.Equal(t, int64(2), Footprint(a))

	a.Release()

	require.True(t, a.Released())
	require.Equal(t, int64(0), a.Size())
}

// === FromStrings ===

func TestFromStrings(t *testing.T) {
	e, err := FromStrings(Int64, []string{"1", " -2 ", "3"})
	require.NoError(t, err)
	require.Equal(t, []int64{1, -2, 3}, e.(*Array[int64]).Values())

	e, err = FromStrings(Bool, []string{"true", "False"})
	require.NoError(t, err)
	require.Equal(t, []bool{true, false}, e.(*Array[bool]).Values())

	e, err = FromStrings(Float64, []string{"0.5", "nan", "-inf"})
	require.NoError(t, err)
	vals := e.(*Array[float64]).Values()
	require.Equal(t, 0.5, vals[0])
	require.True(t, math.IsNaN(vals[1]))
	require.True(t, math.IsInf(vals[2], -1))

	_, err = FromStrings(UInt8, []string{"256"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "element 0")

	_, err = FromStrings(Str, []string{"a"})
	require.ErrorIs(t, err, ErrUnsupportedDType)
}
