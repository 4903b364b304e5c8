package presentation

import (
	"fmt"

	"github.com/zjrosen/symtab/internal/symtab"
)

// SymbolDTO represents one named array for presentation.
type SymbolDTO struct {
	Name       string  `json:"name"`
	DType      string  `json:"dtype"`
	Size       int64   `json:"size"`
	NDim       int64   `json:"ndim"`
	Shape      []int64 `json:"shape"`
	ItemSize   int64   `json:"itemsize"`
	Bytes      int64   `json:"bytes"`
	Registered bool    `json:"registered"`
}

// MemoryDTO represents the daemon's memory accounting.
type MemoryDTO struct {
	UsedBytes  int64 `json:"used_bytes"`
	LimitBytes int64 `json:"limit_bytes"` // 0 means unlimited
	Entries    int   `json:"entries"`
	Names      int   `json:"names"`
	Registered int   `json:"registered"`
}

// FromAttributes converts registry attributes to a DTO.
func FromAttributes(a symtab.Attributes) SymbolDTO {
	return SymbolDTO{
		Name:       a.Name,
		DType:      a.DType,
		Size:       a.Size,
		NDim:       a.NDim,
		Shape:      a.Shape,
		ItemSize:   a.ItemSize,
		Bytes:      a.Size * a.ItemSize,
		Registered: a.Registered,
	}
}

// FromAttributesList converts a slice of attributes to DTOs.
func FromAttributesList(attrs []symtab.Attributes) []SymbolDTO {
	dtos := make([]SymbolDTO, len(attrs))
	for i, a := range attrs {
		dtos[i] = FromAttributes(a)
	}
	return dtos
}

// HumanBytes renders n with a binary unit suffix: 512 B, 1.5 KiB, 2.0 GiB.
func HumanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
