package symtab

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/zjrosen/symtab/internal/array"
)

// Attributes is the metadata view of one named entry.
type Attributes struct {
	Name       string  `json:"name"`
	DType      string  `json:"dtype"`
	Size       int64   `json:"size"`
	NDim       int64   `json:"ndim"`
	Shape      []int64 `json:"shape"`
	ItemSize   int64   `json:"itemsize"`
	Registered bool    `json:"registered"`
}

// String renders the attributes as space separated fields:
//
//	id_1 int64 5 1 (5) 8
func (a Attributes) String() string {
	return fmt.Sprintf("%s %s %d %d %s %d", a.Name, a.DType, a.Size, a.NDim, formatShape(a.Shape), a.ItemSize)
}

func formatShape(shape []int64) string {
	parts := make([]string, len(shape))
	for i, d := range shape {
		parts[i] = strconv.FormatInt(d, 10)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// Attributes returns the metadata of the entry bound to name.
func (r *Registry) Attributes(name string) (Attributes, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.table[name]
	if !ok {
		return Attributes{}, unknownSymbol(name)
	}
	return r.attributesLocked(name, b.slot.entry), nil
}

// DescribeAll returns the attributes of every bound name in insertion order.
func (r *Registry) DescribeAll() []Attributes {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := r.orderedNamesLocked()
	out := make([]Attributes, 0, len(names))
	for _, name := range names {
		out = append(out, r.attributesLocked(name, r.table[name].slot.entry))
	}
	return out
}

func (r *Registry) attributesLocked(name string, e array.Entry) Attributes {
	_, registered := r.aliases[name]
	return Attributes{
		Name:       name,
		DType:      e.DType().String(),
		Size:       e.Size(),
		NDim:       e.NDim(),
		Shape:      e.Shape(),
		ItemSize:   e.ItemSize(),
		Registered: registered,
	}
}
