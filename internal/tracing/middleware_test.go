package tracing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func newTestTracer(t *testing.T) (trace.Tracer, *tracetest.InMemoryExporter) {
	t.Helper()
	exp := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return tp.Tracer("test"), exp
}

func attrValue(attrs []attribute.KeyValue, key string) (attribute.Value, bool) {
	for _, kv := range attrs {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestMiddleware_NilTracerPassThrough(t *testing.T) {
	called := false
	h := Middleware(nil, "GET /health", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	require.True(t, called)
}

func TestMiddleware_RecordsServerSpan(t *testing.T) {
	tracer, exp := newTestTracer(t)

	h := RequestID(Middleware(tracer, "GET /symbols/{name}", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.True(t, trace.SpanFromContext(r.Context()).SpanContext().IsValid())
		w.WriteHeader(http.StatusNotFound)
	})))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/symbols/x", nil))
	require.Equal(t, http.StatusNotFound, w.Code)

	spans := exp.GetSpans()
	require.Len(t, spans, 1)
	span := spans[0]
	require.Equal(t, "http.GET /symbols/{name}", span.Name)
	require.Equal(t, trace.SpanKindServer, span.SpanKind)
	require.Equal(t, codes.Ok, span.Status.Code, "4xx is a client error, not a span error")

	status, ok := attrValue(span.Attributes, AttrHTTPStatus)
	require.True(t, ok)
	require.Equal(t, int64(http.StatusNotFound), status.AsInt64())

	reqID, ok := attrValue(span.Attributes, AttrRequestID)
	require.True(t, ok)
	require.Equal(t, w.Header().Get(RequestIDHeader), reqID.AsString())
}

func TestMiddleware_ServerErrorMarksSpan(t *testing.T) {
	tracer, exp := newTestTracer(t)

	h := Middleware(tracer, "POST /symbols", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "insufficient storage", http.StatusInsufficientStorage)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/symbols", nil))

	spans := exp.GetSpans()
	require.Len(t, spans, 1)
	require.Equal(t, codes.Error, spans[0].Status.Code)
}

func TestMiddleware_ExtractsParentContext(t *testing.T) {
	tracer, exp := newTestTracer(t)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	parent := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{0xaa},
		SpanID:     trace.SpanID{0xbb},
		TraceFlags: trace.FlagsSampled,
		Remote:     true,
	})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	otel.GetTextMapPropagator().Inject(trace.ContextWithRemoteSpanContext(context.Background(), parent), propagation.HeaderCarrier(req.Header))

	h := Middleware(tracer, "GET /health", http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	h.ServeHTTP(httptest.NewRecorder(), req)

	spans := exp.GetSpans()
	require.Len(t, spans, 1)
	require.Equal(t, parent.TraceID(), spans[0].SpanContext.TraceID())
	require.Equal(t, parent.SpanID(), spans[0].Parent.SpanID())
}

func TestMiddleware_FlushPassesThrough(t *testing.T) {
	tracer, _ := newTestTracer(t)

	h := Middleware(tracer, "GET /events", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f, ok := w.(http.Flusher)
		require.True(t, ok)
		_, _ = w.Write([]byte("data: x\n\n"))
		f.Flush()
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/events", nil))
	require.True(t, w.Flushed)
}
