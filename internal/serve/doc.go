// Package serve runs the content server a sandbox page loads its bundle from.
//
// Two descriptor kinds are supported:
//   - Dir: a built bundle directory. Files are served as-is; when the
//     directory has no index.html one is generated that loads every script
//     found by **/*.js, shallowest first. Source maps next to the scripts are
//     parsed so sandbox stacks can be symbolicated.
//   - URL: the bundle is already served elsewhere. The local server still
//     starts to provide the asset proxy, health and metrics routes.
//
// Routes:
//   - GET /health        liveness
//   - GET /metrics       Prometheus exposition
//   - GET /proxy?src=    download through the asset cache, limited to
//     Descriptor.Concurrency requests at once
//   - everything else    bundle files (Dir only)
//
// Responses are gzip-compressed when the client accepts it.
package serve
