package compositions

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/GriffinCanCode/composer/internal/assets"
	"github.com/GriffinCanCode/composer/internal/sandbox"
	"github.com/GriffinCanCode/composer/internal/serve"
)

// tempErr is a transient communication failure
type tempErr struct{ msg string }

func (e tempErr) Error() string   { return e.msg }
func (e tempErr) Temporary() bool { return true }

type entryFunc func(ctx context.Context, p *fakePage, args []interface{}) (interface{}, error)

type fakePage struct {
	mu          sync.Mutex
	initScripts []string
	visited     []string
	calls       []string
	gotoErrs    []error // consumed one per Goto
	ready       interface{}
	readyErr    error
	entries     map[string]entryFunc

	nextListener int
	errListeners map[int]func(*sandbox.PageError)
	logListeners map[int]func(sandbox.ConsoleMessage)

	closes atomic.Int32
}

func newFakePage() *fakePage {
	return &fakePage{
		ready:        map[string]interface{}{"ready": true},
		entries:      map[string]entryFunc{},
		errListeners: map[int]func(*sandbox.PageError){},
		logListeners: map[int]func(sandbox.ConsoleMessage){},
	}
}

func (p *fakePage) AddInitScript(source string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.initScripts = append(p.initScripts, source)
	return nil
}

func (p *fakePage) Goto(ctx context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.visited = append(p.visited, url)
	if len(p.gotoErrs) > 0 {
		err := p.gotoErrs[0]
		p.gotoErrs = p.gotoErrs[1:]
		return err
	}
	return nil
}

func (p *fakePage) Evaluate(ctx context.Context, src string, args ...interface{}) (interface{}, error) {
	name, _ := args[0].(string)
	callArgs, _ := args[1].([]interface{})

	p.mu.Lock()
	p.calls = append(p.calls, name)
	fn := p.entries[name]
	p.mu.Unlock()

	if fn == nil {
		if name == EntryPointSetInitialState {
			return nil, nil
		}
		return nil, &sandbox.EvaluationError{Name: "TypeError", Message: "window.remotion_" + name + " is not a function"}
	}
	return fn(ctx, p, callArgs)
}

func (p *fakePage) WaitForFunction(ctx context.Context, predicate string, interval time.Duration) (interface{}, error) {
	if p.readyErr != nil {
		return nil, p.readyErr
	}
	if p.ready == nil {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return p.ready, nil
}

func (p *fakePage) OnConsole(fn func(sandbox.ConsoleMessage)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextListener++
	key := p.nextListener
	p.logListeners[key] = fn
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.logListeners, key)
	}
}

func (p *fakePage) OnPageError(fn func(*sandbox.PageError)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextListener++
	key := p.nextListener
	p.errListeners[key] = fn
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.errListeners, key)
	}
}

func (p *fakePage) Close() error {
	p.closes.Add(1)
	return nil
}

func (p *fakePage) emitPageError(err *sandbox.PageError) {
	p.mu.Lock()
	fns := make([]func(*sandbox.PageError), 0, len(p.errListeners))
	for _, fn := range p.errListeners {
		fns = append(fns, fn)
	}
	p.mu.Unlock()
	for _, fn := range fns {
		fn(err)
	}
}

func (p *fakePage) emitConsole(msg sandbox.ConsoleMessage) {
	p.mu.Lock()
	fns := make([]func(sandbox.ConsoleMessage), 0, len(p.logListeners))
	for _, fn := range p.logListeners {
		fns = append(fns, fn)
	}
	p.mu.Unlock()
	for _, fn := range fns {
		fn(msg)
	}
}

func (p *fakePage) listenerCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.errListeners) + len(p.logListeners)
}

func (p *fakePage) callLog() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

type fakeBrowser struct {
	page       *fakePage
	newPageErr error
	newPages   atomic.Int32
	closes     atomic.Int32
}

func (b *fakeBrowser) NewPage(ctx context.Context) (Page, error) {
	b.newPages.Add(1)
	if b.newPageErr != nil {
		return nil, b.newPageErr
	}
	return b.page, nil
}

func (b *fakeBrowser) Close() error {
	b.closes.Add(1)
	return nil
}

type fakeServer struct {
	url    string
	port   int
	closes atomic.Int32
}

func (s *fakeServer) URL() string                         { return s.url }
func (s *fakeServer) Port() int                           { return s.port }
func (s *fakeServer) SourceMaps() *serve.SourceMapContext { return nil }
func (s *fakeServer) Close() error {
	s.closes.Add(1)
	return nil
}

type fakeCache struct {
	destroys atomic.Int32
}

func (c *fakeCache) Download(ctx context.Context, src string) (assets.Entry, error) {
	return assets.Entry{}, errors.New("not used")
}

func (c *fakeCache) Destroy() error {
	c.destroys.Add(1)
	return nil
}

// harness provisions fakes and counts every provisioning call
type harness struct {
	page    *fakePage
	browser *fakeBrowser
	server  *fakeServer
	cache   *fakeCache

	launchErr error
	startErr  error

	launches    atomic.Int32
	starts      atomic.Int32
	cachesMade  atomic.Int32
	descriptors []serve.Descriptor
	mu          sync.Mutex
}

func newHarness() *harness {
	page := newFakePage()
	return &harness{
		page:    page,
		browser: &fakeBrowser{page: page},
		server:  &fakeServer{url: "http://localhost:3000", port: 4321},
		cache:   &fakeCache{},
	}
}

func (h *harness) deps() Dependencies {
	return Dependencies{
		Launch: func(ctx context.Context, opts SandboxOptions) (Browser, error) {
			h.launches.Add(1)
			if h.launchErr != nil {
				return nil, h.launchErr
			}
			return h.browser, nil
		},
		StartServer: func(ctx context.Context, d serve.Descriptor, opts serve.Options) (Server, error) {
			h.starts.Add(1)
			h.mu.Lock()
			h.descriptors = append(h.descriptors, d)
			h.mu.Unlock()
			if h.startErr != nil {
				return nil, h.startErr
			}
			return h.server, nil
		},
		NewCache: func() (AssetCache, error) {
			h.cachesMade.Add(1)
			return h.cache, nil
		},
	}
}

func (h *harness) resolver(opts Options) *Resolver {
	return NewResolver(h.deps(), opts, nil)
}

// provisioned is the number of provisioning calls made
func (h *harness) provisioned() int32 {
	return h.launches.Load() + h.starts.Load() + h.cachesMade.Load()
}

func durationPtr(d time.Duration) *time.Duration {
	return &d
}

func returns(v interface{}) entryFunc {
	return func(ctx context.Context, p *fakePage, args []interface{}) (interface{}, error) {
		return v, nil
	}
}

func writeFile(dir, name, content string) error {
	return os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644)
}
