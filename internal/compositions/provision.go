package compositions

import (
	"context"
	"errors"

	"github.com/GriffinCanCode/composer/internal/serve"
)

// SandboxHandle is a page owned by one resolution
type SandboxHandle struct {
	Page    Page
	release func() error
}

// Release disposes the page, and the sandbox instance when it was launched
// for this resolution.
func (h *SandboxHandle) Release() error {
	return h.release()
}

// acquireSandbox opens a page in existing, or in a freshly launched
// instance when existing is nil.
func acquireSandbox(ctx context.Context, existing Browser, launch Launcher, opts SandboxOptions) (*SandboxHandle, error) {
	var browser Resource[Browser]
	if existing != nil {
		browser = Borrowed(existing)
	} else {
		b, err := launch(ctx, opts)
		if err != nil {
			return nil, &ProvisionError{Resource: "sandbox", Err: err}
		}
		browser = Owned(b, b.Close)
	}

	page, err := browser.Value().NewPage(ctx)
	if err != nil {
		_ = browser.Release()
		return nil, &ProvisionError{Resource: "page", Err: err}
	}

	return &SandboxHandle{
		Page: page,
		release: func() error {
			return errors.Join(page.Close(), browser.Release())
		},
	}, nil
}

// ServerHandle is the content server a resolution navigates to
type ServerHandle struct {
	URL        string
	Port       int
	SourceMaps *serve.SourceMapContext

	server Resource[Server]
}

// Release stops an owned server when force is set. A borrowed server is
// never stopped.
func (h *ServerHandle) Release(force bool) error {
	if !force {
		return nil
	}
	return h.server.Release()
}

// Owned reports whether this resolution started the server
func (h *ServerHandle) Owned() bool {
	return h.server.IsOwned()
}

// makeOrReuseServer reuses existing verbatim or starts a server for d
func makeOrReuseServer(ctx context.Context, existing Server, start ServerStarter, d serve.Descriptor, opts serve.Options) (*ServerHandle, error) {
	var server Resource[Server]
	if existing != nil {
		server = Borrowed(existing)
	} else {
		s, err := start(ctx, d, opts)
		if err != nil {
			return nil, &ProvisionError{Resource: "server", Err: err}
		}
		server = Owned(s, s.Close)
	}

	s := server.Value()
	return &ServerHandle{
		URL:        s.URL(),
		Port:       s.Port(),
		SourceMaps: s.SourceMaps(),
		server:     server,
	}, nil
}

// acquireCache borrows existing or creates a cache for this resolution
func acquireCache(existing AssetCache, create CacheFactory) (Resource[AssetCache], error) {
	if existing != nil {
		return Borrowed(existing), nil
	}
	c, err := create()
	if err != nil {
		return Resource[AssetCache]{}, &ProvisionError{Resource: "cache", Err: err}
	}
	return Owned(c, c.Destroy), nil
}
