package symtab

import (
	"strings"
)

// Dump returns a printable rendering of the entry bound to name, or of every
// entry when name is AllSymbols. Each entry is its attribute line followed by
// a bare preview. Failures are returned as an "Error: ..." string.
func (r *Registry) Dump(name string, threshold int64) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var names []string
	if name == AllSymbols {
		names = r.orderedNamesLocked()
	} else {
		if _, ok := r.table[name]; !ok {
			return "Error: dump: undefined name: " + name
		}
		names = []string{name}
	}

	var b strings.Builder
	for _, n := range names {
		entry := r.table[n].slot.entry
		preview, err := FormatPreview(entry, threshold, Bare)
		if err != nil {
			return "Error: dump: " + err.Error()
		}
		b.WriteString(r.attributesLocked(n, entry).String())
		b.WriteByte('\n')
		b.WriteString(preview)
		b.WriteByte('\n')
	}
	return b.String()
}
