// Package array provides the in-memory array objects held by the symbol table.
// An array is a flat, typed element buffer plus shape metadata. The set of
// element types with storage is closed: int64, uint64, uint8, float64 and bool.
package array

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrUnsupportedDType is returned when a dtype has no element storage.
var ErrUnsupportedDType = errors.New("unsupported dtype")

// ErrInvalidShape is returned for negative or empty shapes.
var ErrInvalidShape = errors.New("invalid shape")

// ErrTooLarge is returned when an array's byte footprint exceeds MaxBytes.
var ErrTooLarge = errors.New("array too large")

// MaxBytes is the largest element buffer an array may hold.
const MaxBytes int64 = 1 << 48

// DType identifies the element type of an array.
type DType int

const (
	Undef DType = iota
	Int64
	UInt64
	UInt8
	Float64
	Bool
	// BigInt and Str are recognized names without element storage here.
	BigInt
	Str
)

var dtypeNames = map[DType]string{
	Undef:   "undef",
	Int64:   "int64",
	UInt64:  "uint64",
	UInt8:   "uint8",
	Float64: "float64",
	Bool:    "bool",
	BigInt:  "bigint",
	Str:     "str",
}

// String returns the canonical lower-case dtype name.
func (d DType) String() string {
	if s, ok := dtypeNames[d]; ok {
		return s
	}
	return fmt.Sprintf("dtype(%d)", int(d))
}

// ParseDType converts a dtype name to a DType.
// Accepts the canonical names plus the short forms int, uint, float.
func ParseDType(s string) (DType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "int64", "int":
		return Int64, nil
	case "uint64", "uint":
		return UInt64, nil
	case "uint8":
		return UInt8, nil
	case "float64", "float":
		return Float64, nil
	case "bool":
		return Bool, nil
	case "bigint":
		return BigInt, nil
	case "str":
		return Str, nil
	}
	return Undef, fmt.Errorf("%w: %q", ErrUnsupportedDType, s)
}

// Supported reports whether the dtype has element storage.
func (d DType) Supported() bool {
	switch d {
	case Int64, UInt64, UInt8, Float64, Bool:
		return true
	default:
		return false
	}
}

// ItemSize returns the byte width of one element, or 0 without storage.
func (d DType) ItemSize() int64 {
	switch d {
	case Int64, UInt64, Float64:
		return 8
	case UInt8, Bool:
		return 1
	default:
		return 0
	}
}

// Packed reports whether the dtype is byte-packed, so its footprint is its size.
func (d DType) Packed() bool {
	return d == Bool
}

// Bytes returns the footprint of n elements of d. It fails with ErrTooLarge
// instead of overflowing.
func (d DType) Bytes(n int64) (int64, error) {
	item := d.ItemSize()
	if d.Packed() {
		item = 1
	}
	if item == 0 {
		return 0, nil
	}
	if n > math.MaxInt64/item || n*item > MaxBytes {
		return 0, fmt.Errorf("%w: %d %s elements", ErrTooLarge, n, d)
	}
	return n * item, nil
}
