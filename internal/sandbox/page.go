package sandbox

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/GriffinCanCode/composer/internal/shared/id"
	"github.com/PuerkitoBio/goquery"
	"github.com/bytedance/sonic"
	"github.com/dop251/goja"
	"go.uber.org/zap"
)

const blankURL = "about:blank"

// Page is one isolated execution context inside a Browser. Every VM access
// runs on the page's own loop goroutine; the exported methods are safe for
// concurrent use.
//
// Listeners registered with OnConsole and OnPageError are called on the loop
// goroutine. They must not block or call back into the page.
type Page struct {
	id      id.PageID
	browser *Browser
	cfg     Config
	loop    *loop

	rt *runtime // owned by the loop goroutine
	vm atomic.Pointer[goja.Runtime]

	mu          sync.Mutex
	url         string
	initScripts []string

	console listeners[ConsoleMessage]
	errors  listeners[*PageError]

	closeOnce sync.Once
}

type script struct {
	name   string
	source string
}

func newPage(b *Browser) (*Page, error) {
	p := &Page{
		id:      id.NewPageID(),
		browser: b,
		cfg:     b.cfg,
		loop:    newLoop(),
		url:     blankURL,
	}

	blank, _ := url.Parse(blankURL)
	rt, err := newRuntime(p, blank, blankDOM())
	if err != nil {
		return nil, err
	}
	p.rt = rt
	p.vm.Store(rt.vm)

	go p.loop.run(p.beforeJob, p.afterJob)
	return p, nil
}

func (p *Page) beforeJob() {
	p.rt.vm.ClearInterrupt()
}

func (p *Page) afterJob() {
	p.rt.flushRejections()
}

// ID returns the page identifier
func (p *Page) ID() id.PageID {
	return p.id
}

// URL returns the address of the current document
func (p *Page) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url
}

// AddInitScript registers source to run before any page script on every
// subsequent navigation.
func (p *Page) AddInitScript(source string) error {
	select {
	case <-p.loop.stopped():
		return ErrPageClosed
	default:
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.initScripts = append(p.initScripts, source)
	return nil
}

// Goto loads rawURL: it fetches the document, builds a fresh VM, runs init
// scripts and then the document's classic scripts in order. Exceptions
// raised by those scripts are page errors and do not fail navigation.
func (p *Page) Goto(ctx context.Context, rawURL string) error {
	target, err := url.Parse(rawURL)
	if err != nil || target.Scheme == "" {
		return &NavigationError{URL: rawURL, Err: fmt.Errorf("invalid url")}
	}

	dom := blankDOM()
	var scripts []script
	if target.Scheme != "about" {
		resp, err := p.cfg.Fetch.Get(ctx, rawURL)
		if err != nil {
			return &NavigationError{URL: rawURL, Err: err}
		}
		if dom, err = ParseDOM(string(resp.Body)); err != nil {
			return &NavigationError{URL: rawURL, Err: err}
		}
		if scripts, err = p.loadScripts(ctx, dom, target); err != nil {
			return &NavigationError{URL: rawURL, Err: err}
		}
	}

	p.mu.Lock()
	inits := append([]string(nil), p.initScripts...)
	p.mu.Unlock()

	done := make(chan error, 1)
	err = p.exec(ctx, func(old *runtime) {
		rt, err := newRuntime(p, target, dom)
		if err != nil {
			done <- err
			return
		}
		old.stopTimers()
		p.rt = rt
		p.vm.Store(rt.vm)

		p.mu.Lock()
		p.url = target.String()
		p.mu.Unlock()

		for i, src := range inits {
			rt.runScript(fmt.Sprintf("init-%d.js", i), src)
		}
		for _, s := range scripts {
			rt.runScript(s.name, s.source)
		}
		rt.runScript("load.js", `dispatchEvent({type: 'DOMContentLoaded'}); dispatchEvent({type: 'load'});`)
		done <- nil
	})
	if err != nil {
		return &NavigationError{URL: rawURL, Err: err}
	}

	select {
	case err := <-done:
		if err != nil {
			return &NavigationError{URL: rawURL, Err: err}
		}
		p.cfg.Logger.Debug("Page navigated", zap.String("page", p.id.String()), zap.String("url", rawURL), zap.Int("scripts", len(scripts)))
		return nil
	case <-ctx.Done():
		p.interrupt(ctx.Err())
		return &NavigationError{URL: rawURL, Err: ctx.Err()}
	case <-p.loop.stopped():
		return &NavigationError{URL: rawURL, Err: ErrPageClosed}
	}
}

// loadScripts collects classic scripts in document order, fetching external ones.
func (p *Page) loadScripts(ctx context.Context, dom *DOM, base *url.URL) ([]script, error) {
	var (
		scripts []script
		loadErr error
	)
	dom.Query("script").EachWithBreak(func(i int, s *goquery.Selection) bool {
		switch strings.ToLower(strings.TrimSpace(s.AttrOr("type", ""))) {
		case "", "text/javascript", "application/javascript":
		default:
			return true
		}

		src, external := s.Attr("src")
		if !external {
			scripts = append(scripts, script{
				name:   fmt.Sprintf("%s#inline-%d", base.String(), i),
				source: s.Text(),
			})
			return true
		}

		ref, err := base.Parse(src)
		if err != nil {
			loadErr = fmt.Errorf("script %q: %w", src, err)
			return false
		}
		body, err := p.cfg.Fetch.GetString(ctx, ref.String())
		if err != nil {
			loadErr = fmt.Errorf("script %s: %w", ref, err)
			return false
		}
		scripts = append(scripts, script{name: ref.String(), source: body})
		return true
	})
	return scripts, loadErr
}

// Evaluate calls the function expression src with args and returns its
// result. Args and result cross the boundary as JSON. A returned promise is
// awaited. Throws and rejections come back as *EvaluationError.
func (p *Page) Evaluate(ctx context.Context, src string, args ...interface{}) (interface{}, error) {
	encoded := make([]string, len(args))
	for i, arg := range args {
		text, err := sonic.MarshalString(arg)
		if err != nil {
			return nil, fmt.Errorf("encode argument %d: %w", i, err)
		}
		encoded[i] = text
	}

	type result struct {
		value interface{}
		err   error
	}
	res := make(chan result, 1)
	var once sync.Once
	deliver := func(v interface{}, err error) {
		once.Do(func() { res <- result{v, err} })
	}

	if err := p.exec(ctx, func(rt *runtime) { rt.evaluate(src, encoded, deliver) }); err != nil {
		return nil, err
	}

	select {
	case r := <-res:
		return r.value, r.err
	case <-ctx.Done():
		p.interrupt(ctx.Err())
		return nil, ctx.Err()
	case <-p.loop.stopped():
		return nil, ErrPageClosed
	}
}

// WaitForFunction polls predicate every interval until it returns a truthy
// value, which is returned. There is no timeout besides ctx.
func (p *Page) WaitForFunction(ctx context.Context, predicate string, interval time.Duration) (interface{}, error) {
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		v, err := p.Evaluate(ctx, predicate)
		if err != nil {
			return nil, err
		}
		if truthy(v) {
			return v, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-p.loop.stopped():
			return nil, ErrPageClosed
		case <-ticker.C:
		}
	}
}

// Content returns the current document as HTML
func (p *Page) Content(ctx context.Context) (string, error) {
	type result struct {
		html string
		err  error
	}
	res := make(chan result, 1)
	if err := p.exec(ctx, func(rt *runtime) {
		html, err := rt.dom.HTML()
		res <- result{html, err}
	}); err != nil {
		return "", err
	}
	select {
	case r := <-res:
		return r.html, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	case <-p.loop.stopped():
		return "", ErrPageClosed
	}
}

// OnConsole subscribes to console output. The returned func unsubscribes.
func (p *Page) OnConsole(fn func(ConsoleMessage)) func() {
	return p.console.add(fn)
}

// OnPageError subscribes to uncaught exceptions. The returned func unsubscribes.
func (p *Page) OnPageError(fn func(*PageError)) func() {
	return p.errors.add(fn)
}

// Close stops the page. Pending evaluations fail with ErrPageClosed.
func (p *Page) Close() error {
	p.closeOnce.Do(func() {
		p.interrupt(ErrPageClosed)
		p.loop.stop()
		p.rt.stopTimers()
		p.console.clear()
		p.errors.clear()
		p.browser.forget(p)
		p.cfg.Logger.Debug("Page closed", zap.String("page", p.id.String()))
	})
	return nil
}

func (p *Page) exec(ctx context.Context, job func(rt *runtime)) error {
	return p.loop.submit(ctx, func() {
		if ctx.Err() != nil {
			return
		}
		job(p.rt)
	})
}

func (p *Page) interrupt(reason interface{}) {
	if vm := p.vm.Load(); vm != nil {
		vm.Interrupt(reason)
	}
}

func (p *Page) emitConsole(msg ConsoleMessage) {
	p.console.emit(msg)
}

func (p *Page) emitPageError(err *PageError) {
	p.errors.emit(err)
}

// truthy mirrors JS truthiness for JSON-decoded values
func truthy(v interface{}) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case float64:
		return x != 0
	case string:
		return x != ""
	default:
		return true
	}
}

type listeners[T any] struct {
	mu   sync.Mutex
	next int
	fns  map[int]func(T)
}

func (l *listeners[T]) add(fn func(T)) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fns == nil {
		l.fns = make(map[int]func(T))
	}
	l.next++
	key := l.next
	l.fns[key] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			delete(l.fns, key)
		})
	}
}

func (l *listeners[T]) emit(v T) {
	l.mu.Lock()
	keys := make([]int, 0, len(l.fns))
	for k := range l.fns {
		keys = append(keys, k)
	}
	fns := make([]func(T), 0, len(keys))
	sort.Ints(keys)
	for _, k := range keys {
		fns = append(fns, l.fns[k])
	}
	l.mu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}

func (l *listeners[T]) clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fns = nil
}
