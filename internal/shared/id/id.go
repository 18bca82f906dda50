// Package id provides centralized ID generation for composer.
//
// IDs are ULIDs with a short type prefix so logs stay readable:
//   - res_*: one resolution request
//   - page_*: one sandbox page
//   - cache_*: one asset cache
//   - trace_* / span_*: tracing identifiers
//
// ULIDs sort by creation time, so ordering log lines by id matches the order
// resolutions started.
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ResolutionID identifies one resolution request
type ResolutionID string

// PageID identifies a sandbox page
type PageID string

// CacheID identifies an asset cache
type CacheID string

// TraceID identifies a trace
type TraceID string

// SpanID identifies a span within a trace
type SpanID string

const (
	ResolutionPrefix = "res"
	PagePrefix       = "page"
	CachePrefix      = "cache"
	TracePrefix      = "trace"
	SpanPrefix       = "span"
)

// Generator generates ULIDs with optional prefixes
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the singleton generator instance
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a generator backed by crypto/rand with monotonic
// entropy, so IDs minted within the same millisecond still sort.
func NewGenerator() *Generator {
	return NewGeneratorWithEntropy(ulid.Monotonic(rand.Reader, 0))
}

// NewGeneratorWithEntropy creates a generator with a custom entropy source.
// Useful for testing with deterministic entropy.
func NewGeneratorWithEntropy(entropy io.Reader) *Generator {
	return &Generator{entropy: entropy}
}

// Generate creates a new ULID
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateString creates a new ULID as a string
func (g *Generator) GenerateString() string {
	return g.Generate().String()
}

// GenerateWithPrefix creates a prefixed ULID string
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.GenerateString())
}

// NewResolutionID generates a new resolution ID
func NewResolutionID() ResolutionID {
	return ResolutionID(Default().GenerateWithPrefix(ResolutionPrefix))
}

// NewPageID generates a new page ID
func NewPageID() PageID {
	return PageID(Default().GenerateWithPrefix(PagePrefix))
}

// NewCacheID generates a new cache ID
func NewCacheID() CacheID {
	return CacheID(Default().GenerateWithPrefix(CachePrefix))
}

// NewTraceID generates a new trace ID
func NewTraceID() TraceID {
	return TraceID(Default().GenerateWithPrefix(TracePrefix))
}

// NewSpanID generates a new span ID
func NewSpanID() SpanID {
	return SpanID(Default().GenerateWithPrefix(SpanPrefix))
}

func (id ResolutionID) String() string { return string(id) }
func (id PageID) String() string       { return string(id) }
func (id CacheID) String() string      { return string(id) }
func (id TraceID) String() string      { return string(id) }
func (id SpanID) String() string       { return string(id) }

// IsValid checks if an ID string is a valid ULID
func IsValid(id string) bool {
	_, err := ulid.Parse(id)
	return err == nil
}

// Parse parses a ULID string, accepting an optional "prefix_" in front.
func Parse(id string) (ulid.ULID, error) {
	if i := strings.LastIndexByte(id, '_'); i >= 0 {
		id = id[i+1:]
	}
	return ulid.Parse(id)
}

// Timestamp extracts the creation time from a (possibly prefixed) ULID
func Timestamp(id string) (time.Time, error) {
	parsed, err := Parse(id)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(parsed.Time()), nil
}
