package sandbox

import (
	"context"
	"fmt"
	"sync"

	"github.com/GriffinCanCode/composer/internal/shared/id"
	"github.com/dop251/goja"
	"go.uber.org/zap"
)

// Browser is a launched sandbox instance that hosts isolated pages.
type Browser struct {
	cfg Config

	mu     sync.Mutex
	pages  map[id.PageID]*Page
	closed bool
}

// Launch validates cfg and checks that a VM can start and run a promise
// job within cfg.LaunchTimeout. Failures wrap ErrLaunch.
func Launch(ctx context.Context, cfg Config) (*Browser, error) {
	cfg = cfg.withDefaults()
	if cfg.MaxPages < 0 {
		return nil, fmt.Errorf("%w: max pages must not be negative", ErrLaunch)
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.LaunchTimeout)
	defer cancel()

	ready := make(chan error, 1)
	go func() {
		vm := goja.New()
		vm.SetMaxCallStackSize(cfg.MaxCallStack)
		_, err := vm.RunString(`var ok = false; Promise.resolve().then(function () { ok = true });`)
		// Jobs drain when the script returns, so ok must be true by now
		if err == nil && !vm.Get("ok").ToBoolean() {
			err = fmt.Errorf("promise jobs did not run")
		}
		ready <- err
	}()

	select {
	case err := <-ready:
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLaunch, err)
		}
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrLaunch, ctx.Err())
	}

	cfg.Logger.Debug("Sandbox launched", zap.Int("max_pages", cfg.MaxPages))
	return &Browser{
		cfg:   cfg,
		pages: make(map[id.PageID]*Page),
	}, nil
}

// NewPage opens a fresh page at about:blank.
func (b *Browser) NewPage(ctx context.Context) (*Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrBrowserClosed
	}
	if b.cfg.MaxPages > 0 && len(b.pages) >= b.cfg.MaxPages {
		return nil, ErrTooManyPages
	}

	p, err := newPage(b)
	if err != nil {
		return nil, err
	}
	b.pages[p.id] = p

	if b.cfg.Metrics != nil {
		b.cfg.Metrics.IncPagesActive()
	}
	b.cfg.Logger.Debug("Page opened", zap.String("page", p.id.String()))
	return p, nil
}

// Pages returns the number of open pages
func (b *Browser) Pages() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pages)
}

// Close closes every page. Safe to call twice.
func (b *Browser) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	pages := make([]*Page, 0, len(b.pages))
	for _, p := range b.pages {
		pages = append(pages, p)
	}
	b.mu.Unlock()

	for _, p := range pages {
		_ = p.Close()
	}
	b.cfg.Logger.Debug("Sandbox closed", zap.Int("pages", len(pages)))
	return nil
}

func (b *Browser) forget(p *Page) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.pages[p.id]; !ok {
		return
	}
	delete(b.pages, p.id)
	if b.cfg.Metrics != nil {
		b.cfg.Metrics.DecPagesActive()
	}
}
