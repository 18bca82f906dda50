package sandbox

import (
	"errors"
	"fmt"
	"time"

	"github.com/GriffinCanCode/composer/internal/fetch"
	"github.com/GriffinCanCode/composer/internal/infrastructure/logging"
	"github.com/GriffinCanCode/composer/internal/infrastructure/monitoring"
)

var (
	ErrLaunch        = errors.New("sandbox failed to launch")
	ErrBrowserClosed = errors.New("sandbox browser is closed")
	ErrTooManyPages  = errors.New("sandbox page limit reached")
	ErrPageClosed    = errors.New("sandbox page is closed")
)

// Config defines sandbox configuration
type Config struct {
	MaxPages      int           // Open pages allowed at once
	LaunchTimeout time.Duration // Bound on Launch
	MaxCallStack  int           // goja call stack depth
	Console       bool          // Capture console output
	UserAgent     string        // navigator.userAgent

	Fetch   *fetch.Client
	Logger  *logging.Logger
	Metrics *monitoring.Metrics
}

// DefaultConfig returns the configuration used when nothing is set
func DefaultConfig() Config {
	return Config{
		MaxPages:      8,
		LaunchTimeout: 10 * time.Second,
		MaxCallStack:  1024,
		Console:       true,
		UserAgent:     "composer",
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.MaxPages == 0 {
		c.MaxPages = def.MaxPages
	}
	if c.LaunchTimeout <= 0 {
		c.LaunchTimeout = def.LaunchTimeout
	}
	if c.MaxCallStack <= 0 {
		c.MaxCallStack = def.MaxCallStack
	}
	if c.UserAgent == "" {
		c.UserAgent = def.UserAgent
	}
	if c.Logger == nil {
		c.Logger = logging.NewNop()
	}
	if c.Fetch == nil {
		c.Fetch = fetch.New(fetch.DefaultOptions())
	}
	return c
}

// ConsoleMessage is one console call made by page code
type ConsoleMessage struct {
	Type string // log, info, debug, warn, error
	Text string
	Time time.Time
}

// EvaluationError is an exception thrown or a rejection raised by code run
// through Evaluate.
type EvaluationError struct {
	Name    string
	Message string
	Stack   string
}

func (e *EvaluationError) Error() string {
	return formatJSError(e.Name, e.Message)
}

// PageError is an exception the page raised outside any Evaluate call:
// a throwing timer or script, or a promise rejection nobody handled.
type PageError struct {
	Name    string
	Message string
	Stack   string
}

func (e *PageError) Error() string {
	return formatJSError(e.Name, e.Message)
}

// NavigationError is a failed Goto.
type NavigationError struct {
	URL string
	Err error
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("navigate to %s: %v", e.URL, e.Err)
}

func (e *NavigationError) Unwrap() error { return e.Err }

// Temporary reports whether retrying the navigation may succeed.
func (e *NavigationError) Temporary() bool {
	return !errors.Is(e.Err, ErrPageClosed) && fetch.IsTemporary(e.Err)
}

func formatJSError(name, message string) string {
	switch {
	case name == "":
		return message
	case message == "":
		return name
	default:
		return name + ": " + message
	}
}
