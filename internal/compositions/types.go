package compositions

import (
	"context"
	"time"

	"github.com/GriffinCanCode/composer/internal/infrastructure/logging"
	"github.com/GriffinCanCode/composer/internal/sandbox"
	"github.com/GriffinCanCode/composer/internal/serve"
)

// Page is one isolated execution context inside a sandbox instance.
// *sandbox.Page satisfies it.
type Page interface {
	AddInitScript(source string) error
	Goto(ctx context.Context, url string) error
	Evaluate(ctx context.Context, src string, args ...interface{}) (interface{}, error)
	WaitForFunction(ctx context.Context, predicate string, interval time.Duration) (interface{}, error)
	OnConsole(fn func(sandbox.ConsoleMessage)) func()
	OnPageError(fn func(*sandbox.PageError)) func()
	Close() error
}

// Browser is a sandbox instance that hands out pages
type Browser interface {
	NewPage(ctx context.Context) (Page, error)
	Close() error
}

// Server is a running content server. *serve.Server satisfies it.
type Server interface {
	URL() string
	Port() int
	SourceMaps() *serve.SourceMapContext
	Close() error
}

// AssetCache is the download cache scoped to one resolution.
// *assets.Cache satisfies it.
type AssetCache interface {
	serve.Downloader
	Destroy() error
}

// Launcher starts a sandbox instance
type Launcher func(ctx context.Context, opts SandboxOptions) (Browser, error)

// ServerStarter starts a content server
type ServerStarter func(ctx context.Context, d serve.Descriptor, opts serve.Options) (Server, error)

// CacheFactory creates an asset cache
type CacheFactory func() (AssetCache, error)

// SandboxOptions tunes a sandbox launched for a single resolution
type SandboxOptions struct {
	MaxPages       int
	LaunchTimeout  time.Duration
	MaxCallStack   int
	UserAgent      string
	DisableConsole bool
}

// ResolutionRequest describes one resolution. It is not modified.
type ResolutionRequest struct {
	// ID of the composition to resolve. Unused by ListCompositions.
	ID string

	// Exactly one of ServeURL and BundleDir is set
	ServeURL  string
	BundleDir string

	InputProps     map[string]interface{}
	EnvVariables   map[string]string
	FeatureToggles map[string]interface{}

	// Timeout bounds each step. nil selects the resolver default; zero,
	// negative or overflowing values fail with *InvalidTimeoutError.
	Timeout *time.Duration

	// Borrowed resources. They are used as-is and left running.
	Browser Browser
	Server  Server
	Cache   AssetCache

	// Port for the content server, 0 for an ephemeral one
	Port int

	Sandbox SandboxOptions
	Log     logging.LogOptions

	// OnBrowserLog observes every console line of the page
	OnBrowserLog func(sandbox.ConsoleMessage)
}

// CompositionMetadata is what a bundle reports about one composition
type CompositionMetadata struct {
	ID               string                 `json:"id"`
	Width            int                    `json:"width"`
	Height           int                    `json:"height"`
	FPS              float64                `json:"fps"`
	DurationInFrames int                    `json:"durationInFrames"`
	Props            map[string]interface{} `json:"props,omitempty"`

	// Raw is the object exactly as returned by the bundle
	Raw map[string]interface{} `json:"-"`
	// Digest is the sha256 of Raw's canonical JSON
	Digest string `json:"digest"`
}
