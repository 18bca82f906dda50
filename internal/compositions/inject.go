package compositions

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/GriffinCanCode/composer/internal/infrastructure/logging"
	"github.com/GriffinCanCode/composer/internal/infrastructure/monitoring"
	"github.com/bytedance/sonic"
	"go.uber.org/zap"
)

// RetryPolicy decides whether a failed injection attempt may be retried
type RetryPolicy func(err error) bool

// DefaultRetryPolicy retries errors that report themselves as temporary,
// such as a refused connection while the server is still coming up.
func DefaultRetryPolicy(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var t interface{ Temporary() bool }
	return errors.As(err, &t) && t.Temporary()
}

// TimeoutMillis converts a millisecond budget to a duration, rejecting
// zero, negative, NaN, infinite and overflowing values.
func TimeoutMillis(ms float64) (time.Duration, error) {
	if math.IsNaN(ms) || math.IsInf(ms, 0) || ms <= 0 || ms > float64(math.MaxInt64/int64(time.Millisecond)) {
		return 0, &InvalidTimeoutError{Value: fmt.Sprint(ms)}
	}
	return time.Duration(ms * float64(time.Millisecond)), nil
}

func validateTimeout(d time.Duration) error {
	if d <= 0 {
		return &InvalidTimeoutError{Value: fmt.Sprint(d.Milliseconds())}
	}
	return nil
}

// InjectOptions is the initial state pushed into a page
type InjectOptions struct {
	URL            string
	InputProps     map[string]interface{}
	EnvVariables   map[string]string
	Frame          *int // initial frame, nil outside rendering
	Timeout        time.Duration
	ProxyPort      int
	Retries        int // additional attempts after the first
	FeatureToggles map[string]interface{}
	RetryPolicy    RetryPolicy
	Log            logging.LogOptions
}

// initScript renders the globals a bundle reads on startup
func initScript(opts InjectOptions) (string, error) {
	props := opts.InputProps
	if props == nil {
		props = map[string]interface{}{}
	}
	env := opts.EnvVariables
	if env == nil {
		env = map[string]string{}
	}
	toggles := opts.FeatureToggles
	if toggles == nil {
		toggles = map[string]interface{}{}
	}

	// Props and env travel as JSON strings, the bundle parses them itself
	propsJSON, err := sonic.MarshalString(props)
	if err != nil {
		return "", fmt.Errorf("serialize input props: %w", err)
	}
	envJSON, err := sonic.MarshalString(env)
	if err != nil {
		return "", fmt.Errorf("serialize env variables: %w", err)
	}

	globals := []struct {
		name  string
		value interface{}
	}{
		{"remotion_inputProps", propsJSON},
		{"remotion_envVariables", envJSON},
		{"remotion_initialFrame", opts.Frame},
		{"remotion_proxyPort", opts.ProxyPort},
		{"remotion_timeoutInMilliseconds", opts.Timeout.Milliseconds()},
		{"remotion_featureToggles", toggles},
	}

	var sb strings.Builder
	for _, g := range globals {
		literal, err := sonic.MarshalString(g.value)
		if err != nil {
			return "", fmt.Errorf("serialize %s: %w", g.name, err)
		}
		fmt.Fprintf(&sb, "window.%s = %s;\n", g.name, literal)
	}
	return sb.String(), nil
}

// inject registers the initial state and navigates to opts.URL so the state
// exists before any bundle code runs. Navigation is retried up to
// opts.Retries times when opts.RetryPolicy allows it.
func inject(ctx context.Context, page Page, opts InjectOptions, logger *logging.Logger, metrics *monitoring.Metrics) error {
	if err := validateTimeout(opts.Timeout); err != nil {
		return err
	}
	if opts.RetryPolicy == nil {
		opts.RetryPolicy = DefaultRetryPolicy
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}

	script, err := initScript(opts)
	if err != nil {
		return &InjectionError{Attempts: 0, Err: err}
	}
	if err := page.AddInitScript(script); err != nil {
		return &InjectionError{Attempts: 0, Err: err}
	}

	var lastErr error
	attempts := 0
	for attempts < opts.Retries+1 {
		attempts++
		if metrics != nil {
			metrics.IncInjectionAttempts()
		}

		attemptCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
		lastErr = page.Goto(attemptCtx, opts.URL)
		cancel()
		if lastErr == nil {
			opts.Log.Verbose(logger, "Injected environment", zap.String("url", opts.URL), zap.Int("attempts", attempts))
			return nil
		}

		if ctx.Err() != nil || !opts.RetryPolicy(lastErr) {
			break
		}
		opts.Log.Verbose(logger, "Retrying injection",
			zap.Int("attempt", attempts),
			zap.Int("remaining", opts.Retries+1-attempts),
			zap.Error(lastErr),
		)
	}
	return &InjectionError{Attempts: attempts, Err: lastErr}
}
