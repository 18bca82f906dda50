package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/GriffinCanCode/composer/internal/infrastructure/logging"
	"github.com/GriffinCanCode/composer/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/composer/internal/infrastructure/tracing"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Options configures a Client.
type Options struct {
	Timeout           time.Duration
	Retries           int
	RetryWaitMin      time.Duration
	RetryWaitMax      time.Duration
	RequestsPerSecond float64 // 0 means unlimited
	UserAgent         string
	Logger            *logging.Logger
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		Timeout:      30 * time.Second,
		Retries:      3,
		RetryWaitMin: 100 * time.Millisecond,
		RetryWaitMax: 2 * time.Second,
		UserAgent:    "composer/1.0",
	}
}

// Client wraps resty with rate limiting, retries and a circuit breaker.
// Retries happen in the retryablehttp transport; resty itself never retries.
type Client struct {
	resty   *resty.Client
	limiter *rate.Limiter
	breaker *resilience.Breaker
	mu      sync.RWMutex
}

// Response is a fully read HTTP response.
type Response struct {
	URL        string
	StatusCode int
	Header     http.Header
	Body       []byte
}

// New creates a client from opts. Zero fields fall back to DefaultOptions.
func New(opts Options) *Client {
	def := DefaultOptions()
	if opts.Timeout <= 0 {
		opts.Timeout = def.Timeout
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.RetryWaitMin <= 0 {
		opts.RetryWaitMin = def.RetryWaitMin
	}
	if opts.RetryWaitMax <= 0 {
		opts.RetryWaitMax = def.RetryWaitMax
	}
	if opts.UserAgent == "" {
		opts.UserAgent = def.UserAgent
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = opts.Retries
	retryClient.RetryWaitMin = opts.RetryWaitMin
	retryClient.RetryWaitMax = opts.RetryWaitMax
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	retryClient.Logger = leveledLogger{opts.Logger.Sugar()}

	restyClient := resty.NewWithClient(retryClient.StandardClient()).
		SetTimeout(opts.Timeout).
		SetHeader("User-Agent", opts.UserAgent)

	breaker := resilience.New("fetch", resilience.Settings{
		MaxRequests: 2,
		Interval:    60 * time.Second,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			// Only origin trouble trips the breaker
			return err == nil || !IsTemporary(err)
		},
		OnStateChange: func(name string, from, to resilience.State) {
			opts.Logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.Stringer("from", from),
				zap.Stringer("to", to),
			)
		},
	})

	c := &Client{
		resty:   restyClient,
		breaker: breaker,
	}
	c.SetRateLimit(opts.RequestsPerSecond)
	return c
}

// SetRateLimit configures rate limiting (requests per second); <= 0 disables it.
func (c *Client) SetRateLimit(rps float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if rps <= 0 {
		c.limiter = rate.NewLimiter(rate.Inf, 0)
		return
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
}

// Request waits for the rate limiter and returns a request bound to ctx.
// Trace context carried by ctx is forwarded as headers.
func (c *Client) Request(ctx context.Context) (*resty.Request, error) {
	c.mu.RLock()
	limiter := c.limiter
	c.mu.RUnlock()

	if err := limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit error: %w", err)
	}

	req := c.resty.R().SetContext(ctx)
	tracing.InjectTraceContext(ctx, func(k, v string) { req.SetHeader(k, v) })
	return req, nil
}

// Get fetches url and reads the whole body. Non-2xx responses come back
// as *StatusError alongside the response.
func (c *Client) Get(ctx context.Context, url string) (*Response, error) {
	return resilience.Do(c.breaker, func() (*Response, error) {
		req, err := c.Request(ctx)
		if err != nil {
			return nil, err
		}

		resp, err := req.Get(url)
		if err != nil {
			return nil, &RequestError{URL: url, Err: err}
		}

		out := &Response{
			URL:        url,
			StatusCode: resp.StatusCode(),
			Header:     resp.Header(),
			Body:       resp.Body(),
		}
		if resp.IsError() {
			return out, &StatusError{URL: url, StatusCode: resp.StatusCode()}
		}
		return out, nil
	})
}

// GetString is Get for text bodies.
func (c *Client) GetString(ctx context.Context, url string) (string, error) {
	resp, err := c.Get(ctx, url)
	if err != nil {
		return "", err
	}
	return string(resp.Body), nil
}

// BreakerState returns the current circuit breaker state
func (c *Client) BreakerState() resilience.State {
	return c.breaker.State()
}

// BreakerCounts returns circuit breaker statistics
func (c *Client) BreakerCounts() resilience.Counts {
	return c.breaker.Counts()
}

// IsTemporary reports whether err is worth retrying later: connection
// failures, 5xx and 429 responses, and an open breaker.
func IsTemporary(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, resilience.ErrCircuitOpen) || errors.Is(err, resilience.ErrTooManyRequests) {
		return true
	}
	var t interface{ Temporary() bool }
	if errors.As(err, &t) {
		return t.Temporary()
	}
	return false
}

// leveledLogger routes retryablehttp's logging through zap
type leveledLogger struct {
	s *zap.SugaredLogger
}

func (l leveledLogger) Error(msg string, kv ...interface{}) { l.s.Errorw(msg, kv...) }
func (l leveledLogger) Warn(msg string, kv ...interface{})  { l.s.Warnw(msg, kv...) }
func (l leveledLogger) Info(msg string, kv ...interface{})  { l.s.Debugw(msg, kv...) }
func (l leveledLogger) Debug(msg string, kv ...interface{}) { l.s.Debugw(msg, kv...) }
