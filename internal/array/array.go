package array

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Entry is the metadata view of an array shared by every name bound to it.
type Entry interface {
	DType() DType
	Size() int64
	ItemSize() int64
	NDim() int64
	Shape() []int64
}

// Releaser is optionally implemented by entries that free storage when the
// last name referencing them is removed.
type Releaser interface {
	Release()
}

// Element is the closed set of Go element types with storage.
type Element interface {
	int64 | uint64 | uint8 | float64 | bool
}

// Array is a typed element buffer. The buffer is shared, not copied, by every
// holder of the *Array, so writes through one reference are visible to all.
type Array[T Element] struct {
	dtype    DType
	shape    []int64
	data     []T
	released bool
}

// Ensure Array implements Entry and Releaser.
var (
	_ Entry    = (*Array[int64])(nil)
	_ Releaser = (*Array[int64])(nil)
)

// New allocates a zero-filled one-dimensional array.
func New(size int64, dt DType) (Entry, error) {
	return NewShaped(dt, size)
}

// NewShaped allocates a zero-filled array with the given shape.
func NewShaped(dt DType, shape ...int64) (Entry, error) {
	size, err := shapeSize(shape)
	if err != nil {
		return nil, err
	}
	if _, err := dt.Bytes(size); err != nil {
		return nil, err
	}
	shape = append([]int64(nil), shape...)

	switch dt {
	case Int64:
		return &Array[int64]{dtype: dt, shape: shape, data: make([]int64, size)}, nil
	case UInt64:
		return &Array[uint64]{dtype: dt, shape: shape, data: make([]uint64, size)}, nil
	case UInt8:
		return &Array[uint8]{dtype: dt, shape: shape, data: make([]uint8, size)}, nil
	case Float64:
		return &Array[float64]{dtype: dt, shape: shape, data: make([]float64, size)}, nil
	case Bool:
		return &Array[bool]{dtype: dt, shape: shape, data: make([]bool, size)}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDType, dt)
	}
}

// FromSlice wraps data in a one-dimensional array without copying it.
func FromSlice[T Element](data []T) *Array[T] {
	return &Array[T]{
		dtype: dtypeOf[T](),
		shape: []int64{int64(len(data))},
		data:  data,
	}
}

func dtypeOf[T Element]() DType {
	var zero T
	switch any(zero).(type) {
	case int64:
		return Int64
	case uint64:
		return UInt64
	case uint8:
		return UInt8
	case float64:
		return Float64
	case bool:
		return Bool
	}
	return Undef
}

func shapeSize(shape []int64) (int64, error) {
	if len(shape) == 0 {
		return 0, fmt.Errorf("%w: no dimensions", ErrInvalidShape)
	}
	size := int64(1)
	for _, d := range shape {
		if d < 0 {
			return 0, fmt.Errorf("%w: negative dimension %d", ErrInvalidShape, d)
		}
	}
	for _, d := range shape {
		if d == 0 {
			return 0, nil
		}
	}
	for _, d := range shape {
		if size > math.MaxInt64/d {
			return 0, fmt.Errorf("%w: shape %v overflows", ErrTooLarge, shape)
		}
		size *= d
	}
	return size, nil
}

// DType returns the element type.
func (a *Array[T]) DType() DType { return a.dtype }

// Size returns the number of elements.
func (a *Array[T]) Size() int64 { return int64(len(a.data)) }

// ItemSize returns the byte width of one element.
func (a *Array[T]) ItemSize() int64 { return a.dtype.ItemSize() }

// NDim returns the number of dimensions.
func (a *Array[T]) NDim() int64 { return int64(len(a.shape)) }

// Shape returns a copy of the dimensions.
func (a *Array[T]) Shape() []int64 { return append([]int64(nil), a.shape...) }

// At returns element i of the flattened buffer.
func (a *Array[T]) At(i int64) T { return a.data[i] }

// Set writes element i of the flattened buffer.
func (a *Array[T]) Set(i int64, v T) { a.data[i] = v }

// Values returns the shared backing buffer.
func (a *Array[T]) Values() []T { return a.data }

// Release drops the element buffer. Size reports 0 afterwards.
func (a *Array[T]) Release() {
	a.data = nil
	a.released = true
}

// Released reports whether Release has been called.
func (a *Array[T]) Released() bool { return a.released }

// Footprint returns size*itemsize for any entry.
func Footprint(e Entry) int64 {
	return e.Size() * e.ItemSize()
}

// FromStrings parses textual element values into a new one-dimensional array.
func FromStrings(dt DType, values []string) (Entry, error) {
	switch dt {
	case Int64:
		return parseInto(values, func(s string) (int64, error) { return strconv.ParseInt(s, 10, 64) })
	case UInt64:
		return parseInto(values, func(s string) (uint64, error) { return strconv.ParseUint(s, 10, 64) })
	case UInt8:
		return parseInto(values, func(s string) (uint8, error) {
			v, err := strconv.ParseUint(s, 10, 8)
			return uint8(v), err
		})
	case Float64:
		return parseInto(values, parseFloat)
	case Bool:
		return parseInto(values, func(s string) (bool, error) { return strconv.ParseBool(s) })
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDType, dt)
	}
}

func parseInto[T Element](values []string, parse func(string) (T, error)) (*Array[T], error) {
	data := make([]T, len(values))
	for i, s := range values {
		v, err := parse(strings.TrimSpace(s))
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		data[i] = v
	}
	return FromSlice(data), nil
}

func parseFloat(s string) (float64, error) {
	switch strings.ToLower(s) {
	case "nan":
		s = "NaN"
	case "inf", "+inf":
		s = "+Inf"
	case "-inf":
		s = "-Inf"
	}
	return strconv.ParseFloat(s, 64)
}
