package compositions

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/GriffinCanCode/composer/internal/assets"
	"github.com/GriffinCanCode/composer/internal/fetch"
	"github.com/GriffinCanCode/composer/internal/infrastructure/config"
	"github.com/GriffinCanCode/composer/internal/infrastructure/logging"
	"github.com/GriffinCanCode/composer/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/composer/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/composer/internal/sandbox"
	"github.com/GriffinCanCode/composer/internal/serve"
	"github.com/GriffinCanCode/composer/internal/shared/id"
	"go.uber.org/zap"
)

// Dependencies are the collaborators a Resolver provisions from
type Dependencies struct {
	Launch      Launcher
	StartServer ServerStarter
	NewCache    CacheFactory
}

// Options holds resolver-wide defaults
type Options struct {
	DefaultTimeout time.Duration
	InjectRetries  int
	RetryPolicy    RetryPolicy
	PollInterval   time.Duration // readiness polling
	ServerHost     string
	Concurrency    int // content server proxy slots
}

// DefaultOptions mirrors config.Default()
func DefaultOptions() Options {
	return Options{
		DefaultTimeout: 30 * time.Second,
		InjectRetries:  2,
		RetryPolicy:    DefaultRetryPolicy,
		PollInterval:   20 * time.Millisecond,
		ServerHost:     "127.0.0.1",
		Concurrency:    1,
	}
}

// OptionsFromConfig builds resolver options from loaded configuration
func OptionsFromConfig(cfg *config.Config) Options {
	opts := DefaultOptions()
	opts.DefaultTimeout = cfg.Resolve.Timeout()
	opts.InjectRetries = cfg.Resolve.InjectRetries
	opts.Concurrency = cfg.Resolve.Concurrency
	opts.ServerHost = cfg.Server.Host
	return opts
}

// Resolver resolves composition metadata. Each call provisions its own
// resources unless the request lends some; a Resolver is safe for
// concurrent use.
type Resolver struct {
	deps    Dependencies
	opts    Options
	logger  *logging.Logger
	metrics *monitoring.Metrics
	tracer  *tracing.Tracer
}

// NewResolver creates a resolver. logger may be nil.
func NewResolver(deps Dependencies, opts Options, logger *logging.Logger) *Resolver {
	def := DefaultOptions()
	if opts.DefaultTimeout == 0 {
		opts.DefaultTimeout = def.DefaultTimeout
	}
	if opts.RetryPolicy == nil {
		opts.RetryPolicy = def.RetryPolicy
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = def.PollInterval
	}
	if opts.ServerHost == "" {
		opts.ServerHost = def.ServerHost
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = def.Concurrency
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Resolver{deps: deps, opts: opts, logger: logger}
}

// WithMetrics adds metrics tracking to the resolver
func (r *Resolver) WithMetrics(metrics *monitoring.Metrics) *Resolver {
	r.metrics = metrics
	return r
}

// WithTracer records a span per resolution and per step
func (r *Resolver) WithTracer(tracer *tracing.Tracer) *Resolver {
	r.tracer = tracer
	return r
}

// SelectComposition resolves the metadata of req.ID
func (r *Resolver) SelectComposition(ctx context.Context, req ResolutionRequest) (*CompositionMetadata, error) {
	v, err := r.resolve(ctx, req, EntryPointCalculateComposition, []interface{}{req.ID})
	if err != nil {
		return nil, err
	}
	return toMetadata(EntryPointCalculateComposition, v, req.ID)
}

// ListCompositions resolves the metadata of every composition in the bundle
func (r *Resolver) ListCompositions(ctx context.Context, req ResolutionRequest) ([]CompositionMetadata, error) {
	v, err := r.resolve(ctx, req, EntryPointGetStaticCompositions, nil)
	if err != nil {
		return nil, err
	}

	items, ok := v.([]interface{})
	if !ok {
		return nil, &RemoteInvocationError{
			EntryPoint: EntryPointGetStaticCompositions,
			Err:        fmt.Errorf("malformed result: expected an array, got %T", v),
		}
	}
	out := make([]CompositionMetadata, 0, len(items))
	for _, item := range items {
		m, err := toMetadata(EntryPointGetStaticCompositions, item, "")
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, nil
}

// resolve drives one resolution to a single outcome. The step chain and the
// page's uncaught-exception channel race to settle it; cleanup runs once
// afterwards either way.
func (r *Resolver) resolve(ctx context.Context, req ResolutionRequest, entryPoint string, args []interface{}) (interface{}, error) {
	start := time.Now()
	resID := id.NewResolutionID()
	logger := logging.Wrap(r.logger.With(zap.String("resolution", resID.String()), zap.String("entry_point", entryPoint)))

	timeout := r.opts.DefaultTimeout
	if req.Timeout != nil {
		timeout = *req.Timeout
	}
	if err := validateTimeout(timeout); err != nil {
		r.record(entryPoint, err, time.Since(start))
		return nil, err
	}

	var span *tracing.Span
	if r.tracer != nil {
		span, ctx = r.tracer.StartSpan(ctx, "resolve "+entryPoint)
		span.SetTag("resolution", resID.String())
		span.SetTag("composition", req.ID)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	result := newOutcome[interface{}]()
	chain := NewCleanupChain(logger, req.Log, r.metrics)

	go func() {
		defer func() {
			if p := recover(); p != nil {
				logger.Error("Resolution panicked", zap.Any("panic", p), zap.ByteString("stack", debug.Stack()))
				result.reject(fmt.Errorf("resolution panicked: %v", p))
			}
		}()
		v, err := r.run(ctx, req, entryPoint, args, timeout, chain, result, logger)
		result.settle(v, err)
	}()

	select {
	case <-result.Done():
	case <-ctx.Done():
		result.reject(ctx.Err())
	}
	v, err := result.wait()

	// Stop whatever step is still running, then tear down
	cancel()
	if cerr := chain.RunAll(); cerr != nil {
		logger.Debug("Cleanup finished with errors", zap.Error(cerr))
	}

	d := time.Since(start)
	r.record(entryPoint, err, d)
	if span != nil {
		r.tracer.End(span, err)
	}
	if err != nil {
		req.Log.Log(logger, logging.LevelError, entryPoint+"() failed", zap.Error(err), zap.Duration("duration", d))
	} else {
		req.Log.Log(logger, logging.LevelInfo, entryPoint+"() resolved", zap.Duration("duration", d))
	}
	return v, err
}

// run is the linear step chain
func (r *Resolver) run(ctx context.Context, req ResolutionRequest, entryPoint string, args []interface{}, timeout time.Duration, chain *CleanupChain, result *outcome[interface{}], logger *logging.Logger) (interface{}, error) {
	var cache Resource[AssetCache]
	err := r.step(ctx, "cache", func(ctx context.Context) error {
		var err error
		cache, err = acquireCache(req.Cache, r.deps.NewCache)
		if err != nil {
			return err
		}
		chain.Register("cache", cache.Release)
		return nil
	})
	if err != nil {
		return nil, err
	}

	var server *ServerHandle
	err = r.step(ctx, "server", func(ctx context.Context) error {
		var err error
		server, err = makeOrReuseServer(ctx, req.Server, r.deps.StartServer, serve.Descriptor{
			URL:         req.ServeURL,
			Dir:         req.BundleDir,
			Host:        r.opts.ServerHost,
			Port:        req.Port,
			Concurrency: r.opts.Concurrency,
		}, serve.Options{
			Cache:   cache.Value(),
			Logger:  logger,
			Metrics: r.metrics,
			Tracer:  r.tracer,
		})
		if err != nil {
			return err
		}
		chain.Register("server", func() error { return server.Release(true) })
		return nil
	})
	if err != nil {
		return nil, err
	}

	var sb *SandboxHandle
	err = r.step(ctx, "sandbox", func(ctx context.Context) error {
		var err error
		sb, err = acquireSandbox(ctx, req.Browser, r.deps.Launch, req.Sandbox)
		if err != nil {
			return err
		}
		chain.Register("page", sb.Release)
		return nil
	})
	if err != nil {
		return nil, err
	}

	unsubscribe := subscribeErrors(sb.Page, server.SourceMaps, func(err error) { result.reject(err) })
	chain.Register("bridge", func() error { unsubscribe(); return nil })
	stopConsole := forwardConsole(sb.Page, req.Log, logger, req.OnBrowserLog)
	chain.Register("console", func() error { stopConsole(); return nil })

	err = r.step(ctx, "inject", func(ctx context.Context) error {
		return inject(ctx, sb.Page, InjectOptions{
			URL:            server.URL,
			InputProps:     req.InputProps,
			EnvVariables:   req.EnvVariables,
			Frame:          nil,
			Timeout:        timeout,
			ProxyPort:      server.Port,
			Retries:        r.opts.InjectRetries,
			FeatureToggles: req.FeatureToggles,
			RetryPolicy:    r.opts.RetryPolicy,
			Log:            req.Log,
		}, logger, r.metrics)
	})
	if err != nil {
		return nil, err
	}

	err = r.step(ctx, "ready", func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return waitUntilReady(ctx, sb.Page, r.opts.PollInterval)
	})
	if err != nil {
		return nil, err
	}

	var v interface{}
	err = r.step(ctx, "invoke", func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		state := []interface{}{map[string]interface{}{"type": "evaluation"}}
		if _, err := invoke(ctx, sb.Page, EntryPointSetInitialState, nil, state, server.SourceMaps, req.Log, logger); err != nil {
			return err
		}
		var err error
		v, err = invoke(ctx, sb.Page, entryPoint, nil, args, server.SourceMaps, req.Log, logger)
		return err
	})
	return v, err
}

// step times fn and traces it as a child of ctx's span
func (r *Resolver) step(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	timer := monitoring.NewTimer(r.metrics, name)
	var span *tracing.Span
	if r.tracer != nil {
		span, ctx = r.tracer.StartSpan(ctx, name)
	}

	err := fn(ctx)

	timer.Stop()
	if span != nil {
		r.tracer.End(span, err)
	}
	return err
}

func (r *Resolver) record(entryPoint string, err error, d time.Duration) {
	if r.metrics != nil {
		r.metrics.RecordResolution(entryPoint, outcomeLabel(err), d)
	}
}

// DefaultDependencies wires the goja sandbox, the gin content server and
// the on-disk asset cache.
func DefaultDependencies(cfg *config.Config, logger *logging.Logger, metrics *monitoring.Metrics) Dependencies {
	if logger == nil {
		logger = logging.NewNop()
	}
	client := fetch.New(fetch.Options{
		Timeout:           cfg.Fetch.Timeout,
		Retries:           cfg.Fetch.Retries,
		RequestsPerSecond: cfg.Fetch.RequestsPerSecond,
		Logger:            logger,
	})

	return Dependencies{
		Launch: func(ctx context.Context, opts SandboxOptions) (Browser, error) {
			sc := sandbox.Config{
				MaxPages:      cfg.Sandbox.MaxPages,
				LaunchTimeout: cfg.Sandbox.LaunchTimeout,
				MaxCallStack:  cfg.Sandbox.MaxCallStack,
				Console:       cfg.Sandbox.Console && !opts.DisableConsole,
				UserAgent:     opts.UserAgent,
				Fetch:         client,
				Logger:        logger,
				Metrics:       metrics,
			}
			if opts.MaxPages > 0 {
				sc.MaxPages = opts.MaxPages
			}
			if opts.LaunchTimeout > 0 {
				sc.LaunchTimeout = opts.LaunchTimeout
			}
			if opts.MaxCallStack > 0 {
				sc.MaxCallStack = opts.MaxCallStack
			}
			b, err := sandbox.Launch(ctx, sc)
			if err != nil {
				return nil, err
			}
			return browserAdapter{b}, nil
		},
		StartServer: func(ctx context.Context, d serve.Descriptor, opts serve.Options) (Server, error) {
			s, err := serve.Start(ctx, d, opts)
			if err != nil {
				return nil, err
			}
			return s, nil
		},
		NewCache: func() (AssetCache, error) {
			c, err := assets.New(assets.Options{
				Root:   cfg.Resolve.AssetDir,
				Client: client,
				Logger: logger,
			})
			if err != nil {
				return nil, err
			}
			return c, nil
		},
	}
}

// browserAdapter narrows *sandbox.Browser to the Browser interface
type browserAdapter struct {
	*sandbox.Browser
}

func (b browserAdapter) NewPage(ctx context.Context) (Page, error) {
	p, err := b.Browser.NewPage(ctx)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// NewBrowser lends an already launched sandbox to requests
func NewBrowser(b *sandbox.Browser) Browser {
	return browserAdapter{b}
}
