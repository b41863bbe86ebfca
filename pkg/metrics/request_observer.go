package metrics

import (
	"context"
	"time"
)

// RequestObserver provides observability hooks for the request handler.
// Set it as server.Config.Observer; the server then calls OnRequestStart for
// every Web3 request, recording metrics, a trace span, and structured logs.
type RequestObserver struct {
	collector *Collector
	tracer    Tracer
	logger    *Logger
}

// RequestObserverConfig configures a request observer.
type RequestObserverConfig struct {
	Collector *Collector
	Tracer    Tracer
	Logger    *Logger
}

// NewRequestObserver creates a new request observer.
func NewRequestObserver(cfg RequestObserverConfig) *RequestObserver {
	if cfg.Collector == nil {
		cfg.Collector = Global()
	}
	if cfg.Tracer == nil {
		cfg.Tracer = GetTracer()
	}
	if cfg.Logger == nil {
		cfg.Logger = GetLogger()
	}

	return &RequestObserver{
		collector: cfg.Collector,
		tracer:    cfg.Tracer,
		logger:    cfg.Logger.Named("handler"),
	}
}

// OnRequestStart should be called when a request begins handling.
func (o *RequestObserver) OnRequestStart(ctx context.Context, method string) (context.Context, func(failed bool)) {
	o.collector.RequestStarted()
	start := time.Now()
	ctx, endSpan := o.tracer.StartSpan(ctx, SpanHandleRequest, WithSpanKind(SpanKindServer),
		WithAttributes(SpanAttributes{Method: method}.ToMap()))

	o.logger.Debug("request started", Fields{"method": method})

	return ctx, func(failed bool) {
		duration := time.Since(start)
		o.collector.RecordRequestLatency(duration)
		o.collector.RequestEnded()

		var err error
		if failed {
			o.collector.RequestFailed()
			err = errRequestFailed
			o.logger.Warn("request failed", Fields{"method": method, "duration": duration.String()})
		} else {
			o.logger.Debug("request completed", Fields{"method": method, "duration": duration.String()})
		}
		endSpan(err)
	}
}

// errRequestFailed is a sentinel passed to span-ending closures so tracers
// that branch on error/ok can distinguish a JSON-RPC error result from a
// clean completion without the observer needing to carry the actual error
// value through the handler.
var errRequestFailed = &requestFailedError{}

type requestFailedError struct{}

func (*requestFailedError) Error() string { return "request returned a JSON-RPC error" }

// RecordMethodClass records which method-class bucket a request fell into.
func (o *RequestObserver) RecordMethodClass(class string) {
	switch class {
	case "pass-through":
		o.collector.RecordPassThrough()
	case "confidential-opaque", "confidential-encrypted-response":
		o.collector.RecordConfidential()
	case "refused":
		o.collector.RecordRefused()
	}
}

// OnEncrypt records encryption metrics.
func (o *RequestObserver) OnEncrypt(ctx context.Context) (context.Context, func(error)) {
	start := time.Now()
	ctx, endSpan := o.tracer.StartSpan(ctx, SpanEncrypt)

	return ctx, func(err error) {
		o.collector.RecordEncryptLatency(time.Since(start))
		if err != nil {
			o.collector.RecordEncryptError()
			o.logger.Debug("encrypt failed", Fields{"error": err.Error()})
		}
		endSpan(err)
	}
}

// OnDecrypt records decryption metrics.
func (o *RequestObserver) OnDecrypt(ctx context.Context) (context.Context, func(error)) {
	start := time.Now()
	ctx, endSpan := o.tracer.StartSpan(ctx, SpanDecrypt)

	return ctx, func(err error) {
		o.collector.RecordDecryptLatency(time.Since(start))
		if err != nil {
			o.collector.RecordDecryptError()
			o.logger.Debug("decrypt failed", Fields{"error": err.Error()})
		}
		endSpan(err)
	}
}

// OnUpstreamCall records an upstream POST round trip.
func (o *RequestObserver) OnUpstreamCall(ctx context.Context, url string) (context.Context, func(error)) {
	start := time.Now()
	o.collector.RecordUpstreamCall()
	ctx, endSpan := o.tracer.StartSpan(ctx, SpanUpstreamPost, WithSpanKind(SpanKindClient),
		WithAttributes(SpanAttributes{UpstreamURL: url}.ToMap()))

	return ctx, func(err error) {
		o.collector.RecordUpstreamLatency(time.Since(start))
		if err != nil {
			o.logger.Warn("upstream call failed", Fields{"url": url, "error": err.Error()})
		}
		endSpan(err)
	}
}

// OnParseError records a JSON-RPC parse error.
func (o *RequestObserver) OnParseError(err error) {
	o.collector.RecordParseError()
	o.logger.Warn("parse error", Fields{"error": err.Error()})
}

// Logger returns the observer's logger for custom logging.
func (o *RequestObserver) Logger() *Logger {
	return o.logger
}
