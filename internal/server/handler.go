// Package server provides the HTTP API of the symtab daemon.
// It exposes REST endpoints for the symbol table and SSE for lifecycle events.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/symtab/internal/array"
	"github.com/zjrosen/symtab/internal/cachemanager"
	"github.com/zjrosen/symtab/internal/flags"
	"github.com/zjrosen/symtab/internal/log"
	"github.com/zjrosen/symtab/internal/symtab"
	"github.com/zjrosen/symtab/internal/tracing"
)

// DefaultPreviewThreshold is used when HandlerConfig.PreviewThreshold is zero.
const DefaultPreviewThreshold = 100

// maxBodyBytes caps request bodies.
const maxBodyBytes = 8 << 20

var errInvalidRequest = errors.New("invalid request")

// Handler provides HTTP endpoints for symbol table operations.
type Handler struct {
	reg       *symtab.Registry
	flags     *flags.Registry
	tracer    trace.Tracer
	limit     func() int64
	threshold int64
	replayTTL time.Duration
	creates   *cachemanager.ReadThroughCache[string, Replay, createInput]
}

// HandlerConfig configures the API handler.
type HandlerConfig struct {
	// Registry is the symbol table to expose (required).
	Registry *symtab.Registry
	// Flags gates optional endpoints. Nil uses the built-in defaults.
	Flags *flags.Registry
	// Tracer wraps every route in a server span. Nil disables tracing.
	Tracer trace.Tracer
	// MemoryLimit reports the current byte limit, 0 for unlimited. Optional.
	MemoryLimit func() int64
	// PreviewThreshold is the default truncation threshold.
	PreviewThreshold int64
	// ReplayCache stores create responses by Idempotency-Key. Optional.
	ReplayCache cachemanager.CacheManager[string, Replay]
	// IdempotencyTTL is how long a create response is replayable.
	IdempotencyTTL time.Duration
}

// NewHandler creates a new API handler wrapping the given registry.
func NewHandler(reg *symtab.Registry) *Handler {
	return NewHandlerWithConfig(HandlerConfig{Registry: reg})
}

// NewHandlerWithConfig creates a new API handler with full configuration.
func NewHandlerWithConfig(cfg HandlerConfig) *Handler {
	h := &Handler{
		reg:       cfg.Registry,
		flags:     cfg.Flags,
		tracer:    cfg.Tracer,
		limit:     cfg.MemoryLimit,
		threshold: cfg.PreviewThreshold,
		replayTTL: cfg.IdempotencyTTL,
	}
	if h.flags == nil {
		h.flags = flags.New(nil)
	}
	if h.limit == nil {
		h.limit = func() int64 { return 0 }
	}
	if h.threshold <= 0 {
		h.threshold = DefaultPreviewThreshold
	}
	if h.replayTTL <= 0 {
		h.replayTTL = cachemanager.DefaultExpiration
	}

	cache := cfg.ReplayCache
	if cache == nil {
		cache = cachemanager.NewInMemoryCacheManager[string, Replay]("idempotency", h.replayTTL, cachemanager.DefaultCleanupInterval)
	}
	h.creates = cachemanager.NewReadThroughCache[string, Replay, createInput](cache, h.create, !h.flags.Enabled(flags.FlagIdempotentCreate))
	return h
}

// Routes returns an http.Handler with all API routes registered.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	// Symbols
	h.handle(mux, "POST /symbols", h.CreateSymbol)
	h.handle(mux, "GET /symbols", h.ListSymbols)
	h.handle(mux, "POST /symbols/clear", h.Clear)
	h.handle(mux, "GET /symbols/{name}", h.GetSymbol)
	h.handle(mux, "DELETE /symbols/{name}", h.DeleteSymbol)
	h.handle(mux, "GET /symbols/{name}/preview", h.Preview)

	// Aliases
	h.handle(mux, "POST /symbols/{name}/alias", h.RegisterAlias)
	h.handle(mux, "GET /aliases", h.ListAliases)
	h.handle(mux, "DELETE /aliases/{alias}", h.UnregisterAlias)

	// Introspection
	h.handle(mux, "GET /dump/{name}", h.Dump)
	h.handle(mux, "GET /find", h.Find)
	h.handle(mux, "GET /memory", h.Memory)

	// Event streaming
	h.handle(mux, "GET /events", h.StreamEvents)

	// Health check
	h.handle(mux, "GET /health", h.Health)

	return tracing.RequestID(mux)
}

func (h *Handler) handle(mux *http.ServeMux, pattern string, fn http.HandlerFunc) {
	mux.Handle(pattern, tracing.Middleware(h.tracer, pattern, fn))
}

// === Handlers ===

// CreateSymbol allocates or adopts an array and binds it to a name.
// POST /symbols
func (h *Handler) CreateSymbol(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_body", "Failed to read body", err.Error())
		return
	}

	var req CreateSymbolRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_json", "Invalid JSON body", err.Error())
		return
	}

	span := trace.SpanFromContext(r.Context())
	in := createInput{req: req, fingerprint: fingerprint(body)}
	key := strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader))

	replay, hit, err := h.creates.Get(r.Context(), key, in, h.replayTTL)
	if err != nil {
		h.writeSymbolError(w, span, "create", err)
		return
	}
	if hit {
		if replay.Fingerprint != in.fingerprint {
			h.writeError(w, http.StatusUnprocessableEntity, "idempotency_mismatch",
				"Idempotency-Key was reused with a different request body", "")
			return
		}
		span.AddEvent(tracing.EventIdempotentReplay)
		w.Header().Set(ReplayedHeader, "true")
		log.Debug(log.CatAPI, "Replayed create", "key", key, "request_id", tracing.RequestIDFromContext(r.Context()))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(replay.Status)
	_, _ = w.Write(replay.Body)
}

// ListSymbols returns every bound name with its attributes.
// GET /symbols?registered=true
func (h *Handler) ListSymbols(w http.ResponseWriter, r *http.Request) {
	onlyRegistered, _ := strconv.ParseBool(r.URL.Query().Get("registered"))

	all := h.reg.DescribeAll()
	symbols := make([]symtab.Attributes, 0, len(all))
	for _, a := range all {
		if onlyRegistered && !a.Registered {
			continue
		}
		symbols = append(symbols, a)
	}

	h.writeJSON(w, http.StatusOK, ListSymbolsResponse{Symbols: symbols, Total: len(symbols)})
}

// GetSymbol returns the attributes of one name.
// GET /symbols/{name}
func (h *Handler) GetSymbol(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String(tracing.AttrSymbolName, name))

	attrs, err := h.reg.Attributes(name)
	if err != nil {
		h.writeSymbolError(w, span, "attributes", err)
		return
	}

	h.writeJSON(w, http.StatusOK, attrs)
}

// DeleteSymbol unbinds an unregistered name. Absent and registered names are
// left alone, so the response is always 204.
// DELETE /symbols/{name}
func (h *Handler) DeleteSymbol(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	trace.SpanFromContext(r.Context()).SetAttributes(attribute.String(tracing.AttrSymbolName, name))

	h.reg.DeleteEntry(name)
	w.WriteHeader(http.StatusNoContent)
}

// Clear removes every name.
// POST /symbols/clear
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	removed := h.reg.Clear()
	log.Info(log.CatAPI, "Cleared symbol table", "removed", removed)
	h.writeJSON(w, http.StatusOK, ClearResponse{Removed: removed})
}

// Preview renders the elements of one name.
// GET /symbols/{name}/preview?style=bare|constructor&threshold=N
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String(tracing.AttrSymbolName, name))

	style, err := symtab.ParseStyle(r.URL.Query().Get("style"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "validation_error", err.Error(), "")
		return
	}
	threshold, err := h.parseThreshold(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "validation_error", err.Error(), "")
		return
	}

	text, err := h.reg.Preview(name, threshold, style)
	if err != nil {
		h.writeSymbolError(w, span, "preview", err)
		return
	}

	h.writeJSON(w, http.StatusOK, PreviewResponse{
		Name:      name,
		Style:     style.String(),
		Threshold: threshold,
		Text:      text,
	})
}

// RegisterAlias binds a registered name to the entry of an existing name.
// POST /symbols/{name}/alias
func (h *Handler) RegisterAlias(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	span := trace.SpanFromContext(r.Context())

	var req AliasRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_json", "Invalid JSON body", err.Error())
		return
	}
	if req.Alias == "" {
		h.writeError(w, http.StatusBadRequest, "validation_error", "alias is required", "")
		return
	}
	span.SetAttributes(
		attribute.String(tracing.AttrSymbolName, name),
		attribute.String(tracing.AttrAliasName, req.Alias),
	)

	if err := h.reg.RegisterAlias(name, req.Alias); err != nil {
		h.writeSymbolError(w, span, "register", err)
		return
	}

	h.writeJSON(w, http.StatusCreated, AliasResponse{Name: name, Alias: req.Alias})
}

// ListAliases returns the registered names.
// GET /aliases
func (h *Handler) ListAliases(w http.ResponseWriter, r *http.Request) {
	aliases := h.reg.ListRegistered()
	if aliases == nil {
		aliases = []string{}
	}
	h.writeJSON(w, http.StatusOK, ListAliasesResponse{Aliases: aliases, Total: len(aliases)})
}

// UnregisterAlias removes a registered name.
// DELETE /aliases/{alias}
func (h *Handler) UnregisterAlias(w http.ResponseWriter, r *http.Request) {
	alias := r.PathValue("alias")
	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String(tracing.AttrAliasName, alias))

	if err := h.reg.UnregisterAlias(alias); err != nil {
		h.writeSymbolError(w, span, "unregister", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Dump writes the attribute line and preview of one name, or of every name
// for __AllSymbols__. Failures are reported in the text, not the status.
// GET /dump/{name}?threshold=N
func (h *Handler) Dump(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	trace.SpanFromContext(r.Context()).SetAttributes(attribute.String(tracing.AttrSymbolName, name))

	threshold, err := h.parseThreshold(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "validation_error", err.Error(), "")
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, h.reg.Dump(name, threshold))
}

// Find returns the names matching a regular expression.
// GET /find?pattern=<regex>
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	pattern := r.URL.Query().Get("pattern")

	names, err := h.reg.Find(pattern)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_pattern", "Invalid pattern", err.Error())
		return
	}
	if names == nil {
		names = []string{}
	}

	h.writeJSON(w, http.StatusOK, FindResponse{Pattern: pattern, Names: names})
}

// Memory returns the table's memory accounting.
// GET /memory
func (h *Handler) Memory(w http.ResponseWriter, r *http.Request) {
	stats := h.reg.Stats()
	limit := h.limit()

	trace.SpanFromContext(r.Context()).SetAttributes(attribute.Int64(tracing.AttrMemoryUsed, stats.UsedBytes))

	h.writeJSON(w, http.StatusOK, MemoryResponse{
		UsedBytes:  stats.UsedBytes,
		LimitBytes: limit,
		Entries:    stats.Entries,
		Names:      stats.Names,
		Registered: stats.Registered,
	})
}

// Health returns the daemon health status.
// GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Names: h.reg.Stats().Names})
}

// === Helpers ===

func (h *Handler) parseThreshold(r *http.Request) (int64, error) {
	s := r.URL.Query().Get("threshold")
	if s == "" {
		return h.threshold, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("threshold must be a non-negative integer, got %q", s)
	}
	return n, nil
}

// statusFor maps an error kind to its HTTP status and error code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, symtab.ErrUnknownSymbol):
		return http.StatusNotFound, "unknown_symbol"
	case errors.Is(err, symtab.ErrUnsupportedType), errors.Is(err, array.ErrUnsupportedDType):
		return http.StatusBadRequest, "unsupported_type"
	case errors.Is(err, symtab.ErrOutOfMemory), errors.Is(err, array.ErrTooLarge):
		return http.StatusInsufficientStorage, "out_of_memory"
	case errors.Is(err, errInvalidRequest), errors.Is(err, array.ErrInvalidShape):
		return http.StatusBadRequest, "validation_error"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func (h *Handler) writeSymbolError(w http.ResponseWriter, span trace.Span, op string, err error) {
	status, code := statusFor(err)
	tracing.RecordError(span, symtab.Kind(err), err)
	if status >= http.StatusInternalServerError {
		log.Warn(log.CatAPI, symtab.ErrorContext(err, op))
	} else {
		log.Debug(log.CatAPI, symtab.ErrorContext(err, op))
	}
	h.writeError(w, status, code, err.Error(), "")
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error(log.CatAPI, "Failed to encode JSON response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, message, details string) {
	h.writeJSON(w, status, ErrorResponse{
		Error:   message,
		Code:    code,
		Details: details,
	})
}
