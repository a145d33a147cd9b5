package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName     = "tasks-api"
	metricsMessage = "tasks.request.metrics"
)

// requestMetrics collects timings for a single task request and reports them
// once as a log entry and as the attributes of the request span.
type requestMetrics struct {
	logger            *log.Logger
	span              trace.Span
	op                string
	route             string
	method            string
	start             time.Time
	decodeDuration    time.Duration
	storeDuration     time.Duration
	taskID            string
	pageTokenProvided bool
	tasksReturned     int
	hasNextPage       bool
	errorStage        string
	cause             error
}

func newRequestMetrics(ctx context.Context, logger *log.Logger, op, method, route string) (*requestMetrics, context.Context) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "tasks."+op,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("http.route", route),
			attribute.String("http.method", method),
		),
	)
	return &requestMetrics{
		logger: logger,
		span:   span,
		op:     op,
		route:  route,
		method: method,
		start:  time.Now(),
	}, ctx
}

// startRequest opens the request span and swaps the echo request context for
// the span context.
func startRequest(c echo.Context, logger *log.Logger, op, route string) (*requestMetrics, context.Context) {
	req := c.Request()
	metrics, ctx := newRequestMetrics(req.Context(), logger, op, req.Method, route)
	c.SetRequest(req.WithContext(ctx))
	return metrics, ctx
}

func (m *requestMetrics) ObserveDecode(d time.Duration) {
	if d > 0 {
		m.decodeDuration = d
	}
}

func (m *requestMetrics) ObserveStore(d time.Duration) {
	if d > 0 {
		m.storeDuration = d
	}
}

func (m *requestMetrics) SetTaskID(id string) {
	m.taskID = id
}

func (m *requestMetrics) SetPageTokenProvided(provided bool) {
	m.pageTokenProvided = provided
}

func (m *requestMetrics) SetTasksReturned(count int) {
	if count < 0 {
		count = 0
	}
	m.tasksReturned = count
}

func (m *requestMetrics) SetHasNextPage(hasNext bool) {
	m.hasNextPage = hasNext
}

// Fail records the stage a request failed at and, optionally, the cause.
func (m *requestMetrics) Fail(stage string, cause error) {
	if stage == "" {
		return
	}
	m.errorStage = stage
	if cause != nil {
		m.cause = cause
	}
}

// Log ends the span and writes the metrics entry. err is the error returned
// by the handler itself, if any.
func (m *requestMetrics) Log(status int, err error) {
	if m == nil {
		return
	}
	total := time.Since(m.start)
	if err != nil && m.cause == nil {
		m.cause = err
	}

	if m.span != nil {
		attrs := []attribute.KeyValue{
			attribute.Int("http.status_code", status),
			attribute.String("tasks.op", m.op),
			attribute.Float64("tasks.total_ms", durationToMillis(total)),
		}
		if m.taskID != "" {
			attrs = append(attrs, attribute.String("tasks.task_id", m.taskID))
		}
		if m.op == "list" {
			attrs = append(attrs,
				attribute.Int("tasks.tasks_returned", m.tasksReturned),
				attribute.Bool("tasks.has_next_page", m.hasNextPage),
			)
		}
		if m.errorStage != "" {
			attrs = append(attrs, attribute.String("tasks.error_stage", m.errorStage))
		}
		m.span.SetAttributes(attrs...)
		if m.cause != nil && status >= http.StatusInternalServerError {
			m.span.RecordError(m.cause)
		}
		if status >= http.StatusInternalServerError {
			m.span.SetStatus(codes.Error, http.StatusText(status))
		} else {
			m.span.SetStatus(codes.Ok, "")
		}
		m.span.End()
	}

	if m.logger == nil {
		return
	}
	fields := log.Fields{
		"route":    m.route,
		"method":   m.method,
		"op":       m.op,
		"status":   status,
		"total_ms": durationToMillis(total),
	}
	if m.decodeDuration > 0 {
		fields["decode_ms"] = durationToMillis(m.decodeDuration)
	}
	if m.storeDuration > 0 {
		fields["store_ms"] = durationToMillis(m.storeDuration)
	}
	if m.taskID != "" {
		fields["task_id"] = m.taskID
	}
	if m.op == "list" {
		fields["page_token_provided"] = m.pageTokenProvided
		fields["tasks_returned"] = m.tasksReturned
		fields["has_next_page"] = m.hasNextPage
	}
	if m.errorStage != "" {
		fields["error_stage"] = m.errorStage
	}
	if m.cause != nil {
		fields["error"] = m.cause.Error()
	}
	if m.span != nil {
		if sc := m.span.SpanContext(); sc.HasTraceID() {
			fields["trace_id"] = sc.TraceID().String()
		}
	}

	entry := m.logger.WithFields(fields)
	switch {
	case status >= http.StatusInternalServerError:
		entry.Error(metricsMessage)
	case status >= http.StatusBadRequest:
		entry.Warn(metricsMessage)
	default:
		entry.Info(metricsMessage)
	}
}

func durationToMillis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}
