package presentation

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	aliasStyle  = cellStyle.Foreground(lipgloss.Color("#73F59F"))
)

// Formatter handles output formatting
type Formatter struct {
	writer io.Writer
	json   bool
}

// NewFormatter creates a table formatter.
func NewFormatter(writer io.Writer) *Formatter {
	return &Formatter{writer: writer}
}

// NewJSONFormatter creates a formatter that writes indented JSON.
func NewJSONFormatter(writer io.Writer) *Formatter {
	return &Formatter{writer: writer, json: true}
}

// FormatSymbols writes a list of symbols.
func (f *Formatter) FormatSymbols(symbols []SymbolDTO) error {
	if f.json {
		return f.FormatJSON(symbols)
	}
	if len(symbols) == 0 {
		_, err := fmt.Fprintln(f.writer, "no symbols")
		return err
	}

	registered := make(map[int]bool, len(symbols))
	rows := make([][]string, len(symbols))
	for i, s := range symbols {
		registered[i] = s.Registered
		rows[i] = []string{
			s.Name,
			s.DType,
			strconv.FormatInt(s.Size, 10),
			formatShape(s.Shape),
			HumanBytes(s.Bytes),
			yesNo(s.Registered),
		}
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("NAME", "DTYPE", "SIZE", "SHAPE", "BYTES", "REGISTERED").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == 0 && registered[row] {
				return aliasStyle
			}
			return cellStyle
		})

	_, err := fmt.Fprintln(f.writer, t.Render())
	return err
}

// FormatSymbol writes one symbol.
func (f *Formatter) FormatSymbol(s SymbolDTO) error {
	if f.json {
		return f.FormatJSON(s)
	}
	return f.FormatSymbols([]SymbolDTO{s})
}

// FormatMemory writes the memory summary.
func (f *Formatter) FormatMemory(m MemoryDTO) error {
	if f.json {
		return f.FormatJSON(m)
	}

	limit := "unlimited"
	if m.LimitBytes > 0 {
		pct := float64(m.UsedBytes) / float64(m.LimitBytes) * 100
		limit = fmt.Sprintf("%s (%.1f%% used)", HumanBytes(m.LimitBytes), pct)
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Rows(
			[]string{"used", HumanBytes(m.UsedBytes)},
			[]string{"limit", limit},
			[]string{"entries", strconv.Itoa(m.Entries)},
			[]string{"names", strconv.Itoa(m.Names)},
			[]string{"registered", strconv.Itoa(m.Registered)},
		).
		StyleFunc(func(_, col int) lipgloss.Style {
			if col == 0 {
				return headerStyle
			}
			return cellStyle
		})

	_, err := fmt.Fprintln(f.writer, t.Render())
	return err
}

// FormatText writes preformatted text such as a dump, ensuring a trailing newline.
func (f *Formatter) FormatText(s string) error {
	if f.json {
		return f.FormatJSON(map[string]string{"text": s})
	}
	if !strings.HasSuffix(s, "\n") {
		s += "\n"
	}
	_, err := io.WriteString(f.writer, s)
	return err
}

// FormatJSON writes any value as indented JSON.
func (f *Formatter) FormatJSON(v any) error {
	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func formatShape(shape []int64) string {
	parts := make([]string, len(shape))
	for i, d := range shape {
		parts[i] = strconv.FormatInt(d, 10)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
