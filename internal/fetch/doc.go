// Package fetch is the outbound HTTP client shared by sandbox navigation and
// the asset cache.
//
// Built on go-resty/resty with a go-retryablehttp transport:
//   - Retries with exponential backoff on connection errors and 5xx
//   - Optional rate limiting per client instance
//   - A circuit breaker that opens when an origin keeps failing
//   - Trace headers forwarded from the request context
//
// Errors carry a Temporary() bool so callers can decide what to retry.
//
// Example Usage:
//
//	client := fetch.New(fetch.Options{Timeout: 10 * time.Second, Retries: 2})
//	html, err := client.GetString(ctx, "http://localhost:3000/index.html")
package fetch
