package server

import (
	"encoding/json"
	"time"

	"github.com/zjrosen/symtab/internal/symtab"
)

// === Request/Response Types ===

// CreateSymbolRequest is the request body for creating a symbol.
// Exactly one of Size and Values must be set.
type CreateSymbolRequest struct {
	// Name binds the new array. Optional, defaults to a fresh internal name.
	Name string `json:"name,omitempty"`
	// DType is the element type (required).
	DType string `json:"dtype"`
	// Size allocates a zero-filled array of this many elements.
	Size *int64 `json:"size,omitempty"`
	// Values are element literals: numbers, booleans, or strings such as "nan".
	Values []json.RawMessage `json:"values,omitempty"`
}

// CreateSymbolResponse is the response body for a created symbol.
type CreateSymbolResponse struct {
	Symbol  symtab.Attributes `json:"symbol"`
	Message string            `json:"message"`
}

// ListSymbolsResponse is the response body for listing symbols.
type ListSymbolsResponse struct {
	Symbols []symtab.Attributes `json:"symbols"`
	Total   int                 `json:"total"`
}

// AliasRequest is the request body for registering an alias.
type AliasRequest struct {
	Alias string `json:"alias"`
}

// AliasResponse is the response body for a registered alias.
type AliasResponse struct {
	Name  string `json:"name"`
	Alias string `json:"alias"`
}

// ListAliasesResponse is the response body for listing registered names.
type ListAliasesResponse struct {
	Aliases []string `json:"aliases"`
	Total   int      `json:"total"`
}

// ClearResponse is the response body for clearing the table.
type ClearResponse struct {
	Removed int `json:"removed"`
}

// PreviewResponse is the response body for a data preview.
type PreviewResponse struct {
	Name      string `json:"name"`
	Style     string `json:"style"`
	Threshold int64  `json:"threshold"`
	Text      string `json:"text"`
}

// FindResponse is the response body for a name search.
type FindResponse struct {
	Pattern string   `json:"pattern"`
	Names   []string `json:"names"`
}

// MemoryResponse is the response body for memory accounting.
type MemoryResponse struct {
	UsedBytes  int64 `json:"used_bytes"`
	LimitBytes int64 `json:"limit_bytes"` // 0 means unlimited
	Entries    int   `json:"entries"`
	Names      int   `json:"names"`
	Registered int   `json:"registered"`
}

// HealthResponse is the response body for the health endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Names  int    `json:"names"`
}

// EventResponse is the SSE data payload for one registry event.
type EventResponse struct {
	Type      string    `json:"type"`
	Name      string    `json:"name"`
	Target    string    `json:"target,omitempty"`
	DType     string    `json:"dtype,omitempty"`
	Size      int64     `json:"size,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorResponse is the response body for errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}
