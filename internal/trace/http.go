// Package trace - HTTP and WebSocket trace plumbing.
package trace

import (
	"encoding/json"
	"net/http"
)

// Middleware ensures every request runs under a trace context, honoring
// inbound W3C-style headers when the caller sends them.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := WithContext(r.Context(), headerContext(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// headerContext builds the request's trace context. The caller's span, if
// present, becomes this request's parent.
func headerContext(r *http.Request) Context {
	tc := Context{
		TraceID:      r.Header.Get(TraceIDKey),
		ParentSpanID: r.Header.Get(SpanIDKey),
		SpanID:       generateSpanID(),
	}
	if tc.TraceID == "" {
		tc.TraceID = generateTraceID()
	}
	return tc
}

// ExtractFromJSON pulls a trace_id out of a WebSocket JSON payload. The
// boolean reports whether the payload carried one; the returned context is
// usable either way.
func ExtractFromJSON(data []byte) (Context, bool) {
	var payload struct {
		TraceID string `json:"trace_id"`
	}
	if err := json.Unmarshal(data, &payload); err != nil || payload.TraceID == "" {
		return New(), false
	}
	return Context{
		TraceID: payload.TraceID,
		SpanID:  generateSpanID(),
	}, true
}
