package tracing

// Span attribute keys.
const (
	AttrSymbolName  = "symbol.name"
	AttrSymbolDType = "symbol.dtype"
	AttrSymbolSize  = "symbol.size"
	AttrAliasName   = "symbol.alias"

	AttrRequestID  = "request.id"
	AttrHTTPMethod = "http.method"
	AttrHTTPRoute  = "http.route"
	AttrHTTPStatus = "http.status_code"

	AttrMemoryRequested = "memory.requested_bytes"
	AttrMemoryUsed      = "memory.used_bytes"

	AttrErrorKind = "error.kind"
)

// SpanPrefixHTTP prefixes server span names: "http.GET /symbols/{name}".
const SpanPrefixHTTP = "http."

// Event names for span events.
const (
	EventIdempotentReplay = "idempotency.replay"
	EventAllocation       = "registry.allocate"
)
