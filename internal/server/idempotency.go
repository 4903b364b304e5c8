package server

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/symtab/internal/array"
	"github.com/zjrosen/symtab/internal/log"
	"github.com/zjrosen/symtab/internal/symtab"
	"github.com/zjrosen/symtab/internal/tracing"
)

// IdempotencyKeyHeader makes POST /symbols replayable.
const IdempotencyKeyHeader = "Idempotency-Key"

// ReplayedHeader is set on responses served from the replay cache.
const ReplayedHeader = "Idempotent-Replayed"

// Replay is a stored create response.
type Replay struct {
	Status      int
	Body        []byte
	Fingerprint string
}

type createInput struct {
	req         CreateSymbolRequest
	fingerprint string
}

func fingerprint(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// create performs the allocation behind POST /symbols. Only successful
// responses are returned as a Replay, so failures are never replayed.
func (h *Handler) create(ctx context.Context, in createInput) (Replay, error) {
	req := in.req
	span := trace.SpanFromContext(ctx)

	if req.DType == "" {
		return Replay{}, fmt.Errorf("%w: dtype is required", errInvalidRequest)
	}
	if req.Size != nil && req.Values != nil {
		return Replay{}, fmt.Errorf("%w: size and values are mutually exclusive", errInvalidRequest)
	}
	if req.Size == nil && req.Values == nil {
		return Replay{}, fmt.Errorf("%w: size or values is required", errInvalidRequest)
	}

	dt, err := array.ParseDType(req.DType)
	if err != nil {
		return Replay{}, fmt.Errorf("%w: %w", symtab.ErrUnsupportedType, err)
	}

	name := req.Name
	if name == "" {
		name = h.reg.NextName()
	}
	span.SetAttributes(
		attribute.String(tracing.AttrSymbolName, name),
		attribute.String(tracing.AttrSymbolDType, dt.String()),
	)

	var entry array.Entry
	if req.Size != nil {
		entry, err = h.reg.CreateEntry(name, *req.Size, dt)
	} else {
		entry, err = h.adoptValues(name, dt, req.Values)
	}
	if err != nil {
		return Replay{}, err
	}

	span.AddEvent(tracing.EventAllocation, trace.WithAttributes(
		attribute.Int64(tracing.AttrSymbolSize, entry.Size()),
		attribute.Int64(tracing.AttrMemoryRequested, array.Footprint(entry)),
		attribute.Int64(tracing.AttrMemoryUsed, h.reg.TotalMemoryUsed()),
	))

	attrs, err := h.reg.Attributes(name)
	if err != nil {
		return Replay{}, err
	}

	body, err := json.Marshal(CreateSymbolResponse{Symbol: attrs, Message: "created " + attrs.String()})
	if err != nil {
		return Replay{}, err
	}

	log.Debug(log.CatAPI, "Created symbol", "name", name, "dtype", dt.String(), "size", entry.Size())
	return Replay{Status: http.StatusCreated, Body: body, Fingerprint: in.fingerprint}, nil
}

func (h *Handler) adoptValues(name string, dt array.DType, raw []json.RawMessage) (array.Entry, error) {
	if !dt.Supported() {
		return nil, fmt.Errorf("%w: %s", symtab.ErrUnsupportedType, dt)
	}

	values := make([]string, len(raw))
	for i, v := range raw {
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			values[i] = s
			continue
		}
		values[i] = strings.TrimSpace(string(v))
	}

	entry, err := array.FromStrings(dt, values)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errInvalidRequest, err)
	}
	return h.reg.AdoptEntry(name, entry)
}
