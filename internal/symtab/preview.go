package symtab

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/zjrosen/symtab/internal/array"
)

// Style selects the preview notation.
type Style int

const (
	// Bare renders [a b c].
	Bare Style = iota
	// Constructor renders array([a, b, c]).
	Constructor
)

// String returns the style name accepted by ParseStyle.
func (s Style) String() string {
	if s == Constructor {
		return "constructor"
	}
	return "bare"
}

// ParseStyle converts a style name to a Style. The empty string is Bare.
func ParseStyle(s string) (Style, error) {
	switch strings.ToLower(s) {
	case "", "bare":
		return Bare, nil
	case "constructor", "repr":
		return Constructor, nil
	}
	return Bare, fmt.Errorf("unknown preview style %q", s)
}

// edgeItems is the number of elements shown on each side of a truncated preview.
const edgeItems = 3

// Preview renders the elements of the entry bound to name.
// Arrays of size >= threshold and larger than 6 are truncated to their first
// and last three elements.
func (r *Registry) Preview(name string, threshold int64, style Style) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.table[name]
	if !ok {
		return "", unknownSymbol(name)
	}
	// Held across formatting: releasing an entry requires the write lock.
	return FormatPreview(b.slot.entry, threshold, style)
}

// FormatPreview renders entry's elements. The caller must keep the entry
// alive for the duration of the call.
func FormatPreview(entry array.Entry, threshold int64, style Style) (string, error) {
	switch e := entry.(type) {
	case *array.Array[int64]:
		return render(e.Values(), threshold, style, func(v int64) string { return strconv.FormatInt(v, 10) }), nil
	case *array.Array[uint64]:
		return render(e.Values(), threshold, style, func(v uint64) string { return strconv.FormatUint(v, 10) }), nil
	case *array.Array[uint8]:
		return render(e.Values(), threshold, style, func(v uint8) string { return strconv.FormatUint(uint64(v), 10) }), nil
	case *array.Array[float64]:
		if style == Constructor {
			return render(e.Values(), threshold, style, formatFloatExact), nil
		}
		return render(e.Values(), threshold, style, formatFloat), nil
	case *array.Array[bool]:
		return render(e.Values(), threshold, style, formatBool), nil
	case nil:
		return "", fmt.Errorf("%w: nil entry", ErrUnsupportedType)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, entry.DType())
	}
}

func render[T array.Element](vals []T, threshold int64, style Style, format func(T) string) string {
	open, sep, closing := "[", " ", "]"
	if style == Constructor {
		open, sep, closing = "array([", ", ", "])"
	}

	n := int64(len(vals))
	if n == 0 {
		return open + closing
	}

	var b strings.Builder
	b.WriteString(open)
	if n < threshold || n <= 2*edgeItems {
		for i, v := range vals {
			if i > 0 {
				b.WriteString(sep)
			}
			b.WriteString(format(v))
		}
	} else {
		for i := int64(0); i < edgeItems; i++ {
			b.WriteString(format(vals[i]))
			b.WriteString(sep)
		}
		b.WriteString("...")
		for i := n - edgeItems; i < n; i++ {
			b.WriteString(sep)
			b.WriteString(format(vals[i]))
		}
	}
	b.WriteString(closing)
	return b.String()
}

func formatBool(v bool) string {
	if v {
		return "True"
	}
	return "False"
}

// formatFloat uses the shortest representation that round-trips.
func formatFloat(v float64) string {
	return floatText(v, -1)
}

// formatFloatExact always uses 17 significant digits.
func formatFloatExact(v float64) string {
	return floatText(v, 17)
}

func floatText(v float64, prec int) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	s := strconv.FormatFloat(v, 'g', prec, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}
