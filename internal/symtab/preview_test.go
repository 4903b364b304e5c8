package symtab

import (
	"math"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/zjrosen/symtab/internal/array"
)

// opaque is an entry type without element storage.
type opaque struct{ n int64 }

func (o *opaque) DType() array.DType { return array.Str }
func (o *opaque) Size() int64        { return o.n }
func (o *opaque) ItemSize() int64    { return 0 }
func (o *opaque) NDim() int64        { return 1 }
func (o *opaque) Shape() []int64     { return []int64{o.n} }

func iota64(n int) []int64 {
	out := make([]int64, n)
	for i := range out {
		out[i] = int64(i)
	}
	return out
}

// === FormatPreview ===

func TestFormatPreview(t *testing.T) {
	tests := []struct {
		name        string
		entry       array.Entry
		threshold   int64
		bare        string
		constructor string
	}{
		{"empty", array.FromSlice([]int64{}), 9, "[]", "array([])"},
		{"single", array.FromSlice([]int64{42}), 9, "[42]", "array([42])"},
		{"below threshold", array.FromSlice(iota64(5)), 9, "[0 1 2 3 4]", "array([0, 1, 2, 3, 4])"},
		{"six never truncates", array.FromSlice(iota64(6)), 1, "[0 1 2 3 4 5]", "array([0, 1, 2, 3, 4, 5])"},
		{"seven below threshold", array.FromSlice(iota64(7)), 9, "[0 1 2 3 4 5 6]", "array([0, 1, 2, 3, 4, 5, 6])"},
		{"exactly threshold", array.FromSlice(iota64(9)), 9, "[0 1 2 ... 6 7 8]", "array([0, 1, 2, ..., 6, 7, 8])"},
		{"far above threshold", array.FromSlice(iota64(100)), 9, "[0 1 2 ... 97 98 99]", "array([0, 1, 2, ..., 97, 98, 99])"},
		{"bool", array.FromSlice([]bool{true, false, true}), 9, "[True False True]", "array([True, False, True])"},
		{"uint8", array.FromSlice([]uint8{0, 255}), 9, "[0 255]", "array([0, 255])"},
		{"uint64", array.FromSlice([]uint64{math.MaxUint64}), 9, "[18446744073709551615]", "array([18446744073709551615])"},
		{"float", array.FromSlice([]float64{0.5, 1, 0.1}), 9, "[0.5 1.0 0.1]", "array([0.5, 1.0, 0.10000000000000001])"},
		{"float specials", array.FromSlice([]float64{math.NaN(), math.Inf(1), math.Inf(-1)}), 9, "[nan inf -inf]", "array([nan, inf, -inf])"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FormatPreview(tt.entry, tt.threshold, Bare)
			require.NoError(t, err)
			require.Equal(t, tt.bare, got)

			got, err = FormatPreview(tt.entry, tt.threshold, Constructor)
			require.NoError(t, err)
			require.Equal(t, tt.constructor, got)
		})
	}
}

func TestFormatPreview_Unsupported(t *testing.T) {
	got, err := FormatPreview(&opaque{n: 3}, 9, Bare)
	require.ErrorIs(t, err, ErrUnsupportedType)
	require.Empty(t, got)

	_, err = FormatPreview(nil, 9, Bare)
	require.ErrorIs(t, err, ErrUnsupportedType)
}

func TestFormatPreview_ElementCount(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 500).Draw(t, "size")
		threshold := rapid.Int64Range(0, 600).Draw(t, "threshold")

		got, err := FormatPreview(array.FromSlice(iota64(n)), threshold, Bare)
		require.NoError(t, err)

		fields := strings.Fields(strings.Trim(got, "[]"))
		if int64(n) < threshold || n <= 6 {
			require.Len(t, fields, n)
			require.NotContains(t, got, "...")
			return
		}
		require.Len(t, fields, 7)
		require.Equal(t, "...", fields[3])
		require.Equal(t, "0", fields[0])
		require.Equal(t, strconv.Itoa(n-1), fields[6])
	})
}

// === Registry.Preview ===

func TestRegistry_Preview(t *testing.T) {
	reg := newTestRegistry(t)
	_, err := reg.AdoptEntry("flags", array.FromSlice([]bool{false, true}))
	require.NoError(t, err)

	got, err := reg.Preview("flags", 100, Constructor)
	require.NoError(t, err)
	require.Equal(t, "array([False, True])", got)

	_, err = reg.Preview("missing", 100, Bare)
	require.ErrorIs(t, err, ErrUnknownSymbol)

	_, err = reg.AdoptEntry("blob", &opaque{n: 2})
	require.NoError(t, err)
	_, err = reg.Preview("blob", 100, Bare)
	require.ErrorIs(t, err, ErrUnsupportedType)
}

func TestParseStyle(t *testing.T) {
	s, err := ParseStyle("")
	require.NoError(t, err)
	require.Equal(t, Bare, s)

	s, err = ParseStyle("Constructor")
	require.NoError(t, err)
	require.Equal(t, Constructor, s)
	require.Equal(t, "constructor", s.String())

	_, err = ParseStyle("fancy")
	require.Error(t, err)
}

// === Attributes ===

func TestRegistry_Attributes(t *testing.T) {
	reg := newTestRegistry(t)
	_, err := reg.CreateEntry("id_1", 5, array.Int64)
	require.NoError(t, err)
	require.NoError(t, reg.RegisterAlias("id_1", "w"))

	attrs, err := reg.Attributes("w")
	require.NoError(t, err)
	require.Equal(t, Attributes{
		Name:       "w",
		DType:      "int64",
		Size:       5,
		NDim:       1,
		Shape:      []int64{5},
		ItemSize:   8,
		Registered: true,
	}, attrs)
	require.Equal(t, "w int64 5 1 (5) 8", attrs.String())

	_, err = reg.Attributes("nope")
	require.ErrorIs(t, err, ErrUnknownSymbol)
}

func TestAttributes_String_MultiDim(t *testing.T) {
	e, err := array.NewShaped(array.Float64, 2, 3)
	require.NoError(t, err)

	reg := newTestRegistry(t)
	_, err = reg.AdoptEntry("m", e)
	require.NoError(t, err)

	attrs, err := reg.Attributes("m")
	require.NoError(t, err)
	require.Equal(t, "m float64 6 2 (2, 3) 8", attrs.String())
}

func TestRegistry_DescribeAll(t *testing.T) {
	reg := newTestRegistry(t)
	_, err := reg.CreateEntry("b", 1, array.Bool)
	require.NoError(t, err)
	_, err = reg.CreateEntry("a", 2, array.UInt8)
	require.NoError(t, err)

	all := reg.DescribeAll()
	require.Len(t, all, 2)
	require.Equal(t, "b", all[0].Name)
	require.Equal(t, "a", all[1].Name)
	require.Equal(t, int64(1), all[1].ItemSize)

	require.Empty(t, New(Config{}).DescribeAll())
}

// === Dump ===

func TestRegistry_Dump(t *testing.T) {
	reg := newTestRegistry(t)
	_, err := reg.AdoptEntry("x", array.FromSlice([]int64{1, 2, 3}))
	require.NoError(t, err)
	_, err = reg.AdoptEntry("y", array.FromSlice(iota64(20)))
	require.NoError(t, err)

	require.Equal(t, "x int64 3 1 (3) 8\n[1 2 3]\n", reg.Dump("x", 10))
	require.Equal(t,
		"x int64 3 1 (3) 8\n[1 2 3]\n"+
			"y int64 20 1 (20) 8\n[0 1 2 ... 17 18 19]\n",
		reg.Dump(AllSymbols, 10))
}

func TestRegistry_Dump_Errors(t *testing.T) {
	reg := newTestRegistry(t)
	require.Equal(t, "Error: dump: undefined name: ghost", reg.Dump("ghost", 10))
	require.Equal(t, "", reg.Dump(AllSymbols, 10))

	_, err := reg.AdoptEntry("blob", &opaque{n: 1})
	require.NoError(t, err)
	require.Equal(t, "Error: dump: unsupported type: str", reg.Dump("blob", 10))
}
