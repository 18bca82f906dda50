package assets

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/GriffinCanCode/composer/internal/fetch"
	"github.com/GriffinCanCode/composer/internal/infrastructure/logging"
	"github.com/GriffinCanCode/composer/internal/shared/id"
	"github.com/GriffinCanCode/composer/internal/shared/utils"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var (
	ErrDestroyed     = errors.New("asset cache destroyed")
	ErrInvalidSource = errors.New("invalid asset source")
)

// Entry describes one cached asset
type Entry struct {
	Source      string
	Path        string
	ContentType string
	Size        int64
}

// Options configures a Cache
type Options struct {
	Root   string // parent directory, os.TempDir() when empty
	Client *fetch.Client
	Logger *logging.Logger
}

// Cache is a disposable download cache scoped to one resolution
type Cache struct {
	id     id.CacheID
	dir    string
	client *fetch.Client
	logger *logging.Logger
	hasher *utils.Hasher
	group  singleflight.Group

	mu        sync.RWMutex
	entries   map[string]Entry
	destroyed bool
}

// New creates the cache directory
func New(opts Options) (*Cache, error) {
	root := opts.Root
	if root == "" {
		root = os.TempDir()
	}
	if opts.Client == nil {
		opts.Client = fetch.New(fetch.DefaultOptions())
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}

	dir := filepath.Join(root, "composer-assets-"+uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create asset cache: %w", err)
	}

	c := &Cache{
		id:      id.NewCacheID(),
		dir:     dir,
		client:  opts.Client,
		logger:  opts.Logger,
		hasher:  utils.DefaultHasher(),
		entries: make(map[string]Entry),
	}
	c.logger.Debug("Asset cache created", zap.String("cache", c.id.String()), zap.String("dir", dir))
	return c, nil
}

// ID returns the cache identifier
func (c *Cache) ID() id.CacheID {
	return c.id
}

// Dir returns the directory holding downloaded files
func (c *Cache) Dir() string {
	return c.dir
}

// Len returns the number of cached assets
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Lookup returns a previously downloaded asset
func (c *Cache) Lookup(src string) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[src]
	return e, ok
}

// Download returns the cached entry for src, fetching it on first use.
// Only http and https sources are accepted.
func (c *Cache) Download(ctx context.Context, src string) (Entry, error) {
	u, err := url.Parse(src)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Entry{}, fmt.Errorf("%w: %q", ErrInvalidSource, src)
	}

	c.mu.RLock()
	if c.destroyed {
		c.mu.RUnlock()
		return Entry{}, ErrDestroyed
	}
	if e, ok := c.entries[src]; ok {
		c.mu.RUnlock()
		return e, nil
	}
	c.mu.RUnlock()

	v, err, _ := c.group.Do(src, func() (interface{}, error) {
		return c.download(ctx, src, u)
	})
	if err != nil {
		return Entry{}, err
	}
	return v.(Entry), nil
}

func (c *Cache) download(ctx context.Context, src string, u *url.URL) (Entry, error) {
	if e, ok := c.Lookup(src); ok {
		return e, nil
	}
	resp, err := c.client.Get(ctx, src)
	if err != nil {
		return Entry{}, fmt.Errorf("download %s: %w", src, err)
	}

	detected := mimetype.Detect(resp.Body)
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" || strings.HasPrefix(contentType, "application/octet-stream") {
		contentType = detected.String()
	}
	ext := path.Ext(u.Path)
	if ext == "" {
		ext = detected.Extension()
	}

	entry := Entry{
		Source:      src,
		Path:        filepath.Join(c.dir, utils.Short(c.hasher.HashString(src), 24)+ext),
		ContentType: contentType,
		Size:        int64(len(resp.Body)),
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed {
		return Entry{}, ErrDestroyed
	}
	if err := os.WriteFile(entry.Path, resp.Body, 0o644); err != nil {
		return Entry{}, fmt.Errorf("store %s: %w", src, err)
	}
	c.entries[src] = entry

	c.logger.Debug("Asset downloaded",
		zap.String("cache", c.id.String()),
		zap.String("src", src),
		zap.String("content_type", contentType),
		zap.Int64("size", entry.Size),
	)
	return entry, nil
}

// Destroy removes the cache directory. Safe to call more than once; later
// downloads fail with ErrDestroyed.
func (c *Cache) Destroy() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed {
		return nil
	}
	c.destroyed = true
	c.entries = nil

	if err := os.RemoveAll(c.dir); err != nil {
		return fmt.Errorf("remove asset cache: %w", err)
	}
	c.logger.Debug("Asset cache destroyed", zap.String("cache", c.id.String()))
	return nil
}
