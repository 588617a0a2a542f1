package observability

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TraceIDHeader carries the trace id between the web, transform and
// inference services.
const TraceIDHeader = "X-Trace-ID"

type Span struct {
	TraceID   string            `json:"trace_id"`
	SpanID    string            `json:"span_id"`
	ParentID  string            `json:"parent_id,omitempty"`
	Operation string            `json:"operation"`
	StartTime time.Time         `json:"start_time"`
	EndTime   *time.Time        `json:"end_time,omitempty"`
	Duration  *time.Duration    `json:"duration,omitempty"`
	Tags      map[string]string `json:"tags,omitempty"`
	Status    SpanStatus        `json:"status"`
	Error     string            `json:"error,omitempty"`
}

type SpanStatus string

const (
	SpanStatusOK    SpanStatus = "OK"
	SpanStatusError SpanStatus = "ERROR"
)

type spanContextKey struct{}

type remoteTraceKey struct{}

// StartSpan opens a span under the span already in ctx, or under the
// remote trace extracted from an incoming request.
func StartSpan(ctx context.Context, operation string) (context.Context, *Span) {
	span := &Span{
		TraceID:   newID(),
		SpanID:    newID(),
		Operation: operation,
		StartTime: time.Now(),
		Status:    SpanStatusOK,
		Tags:      make(map[string]string),
	}

	if parent := GetSpan(ctx); parent != nil {
		span.ParentID = parent.SpanID
		span.TraceID = parent.TraceID
	} else if remote, ok := ctx.Value(remoteTraceKey{}).(string); ok {
		span.TraceID = remote
	}

	return context.WithValue(ctx, spanContextKey{}, span), span
}

func (s *Span) Finish() {
	now := time.Now()
	s.EndTime = &now
	duration := now.Sub(s.StartTime)
	s.Duration = &duration
}

func (s *Span) SetTag(key, value string) {
	if s.Tags == nil {
		s.Tags = make(map[string]string)
	}
	s.Tags[key] = value
}

func (s *Span) SetError(err error) {
	s.Status = SpanStatusError
	if err != nil {
		s.Error = err.Error()
	}
}

func GetSpan(ctx context.Context) *Span {
	if span, ok := ctx.Value(spanContextKey{}).(*Span); ok {
		return span
	}
	return nil
}

// ExtractTrace stores the trace id sent by an upstream service in ctx.
func ExtractTrace(ctx context.Context, h http.Header) context.Context {
	if id := strings.TrimSpace(h.Get(TraceIDHeader)); id != "" {
		return context.WithValue(ctx, remoteTraceKey{}, id)
	}
	return ctx
}

// InjectHeaders copies the trace and request ids from ctx onto an outgoing
// request.
func InjectHeaders(ctx context.Context, h http.Header) {
	if span := GetSpan(ctx); span != nil {
		h.Set(TraceIDHeader, span.TraceID)
	}
	if id := GetRequestID(ctx); id != "" {
		h.Set(RequestIDHeader, id)
	}
}

func newID() string {
	id := uuid.New()
	return strings.ReplaceAll(id.String(), "-", "")[:16]
}
