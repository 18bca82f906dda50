/*
Package tracing provides lightweight tracing for resolutions.

# Overview

Each resolution opens a root span and one child span per step (server,
sandbox, inject, wait, invoke, cleanup). Sandbox page fetches forward the
trace headers, so content server requests made on behalf of a resolution
land in the same trace. Finished spans are logged through zap.

# Usage

	tracer := tracing.New("composer", logger)
	defer tracer.Close()

	// HTTP middleware
	router.Use(tracing.HTTPMiddleware(tracer))

	// Manual span creation
	span, ctx := tracer.StartSpan(ctx, "invoke")
	result, err := invoke(ctx)
	tracer.End(span, err)

# Trace Format

Trace context travels in two headers:
- X-Trace-ID: identifier for the whole resolution
- X-Span-ID: identifier for the calling operation
*/
package tracing
