/*
Package monitoring provides performance monitoring and metrics collection.

# Overview

This package implements Prometheus-based metrics collection for composition
resolution, tracking each step of a resolution, the content server and the
sandbox page pool.

# Features

- Resolution outcome and latency per entry point
- Step timings (provision, inject, wait, invoke, cleanup)
- Injection retry and cleanup failure counters
- Content server request metrics (latency, status, size)
- Proxy download counters

Every collector owns a private registry, so creating several in one process
never panics on duplicate registration.

# Usage

	metrics := monitoring.NewMetrics()

	// Add middleware to Gin router
	router.Use(monitoring.Middleware(metrics))

	// Time steps
	timer := monitoring.NewTimer(metrics, "invoke")
	// ... perform step ...
	elapsed := timer.Stop()

# Metrics Endpoint

	router.GET("/metrics", gin.WrapH(monitoring.Handler(metrics)))
*/
package monitoring
