package serve

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/GriffinCanCode/composer/internal/assets"
	"github.com/GriffinCanCode/composer/internal/infrastructure/logging"
	"github.com/GriffinCanCode/composer/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/composer/internal/infrastructure/tracing"
	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzhttp"
	"go.uber.org/zap"
)

// Descriptor says what to serve. Exactly one of URL and Dir is set.
type Descriptor struct {
	URL         string // bundle already served elsewhere
	Dir         string // built bundle directory served by this server
	Host        string // bind host, 127.0.0.1 when empty
	Port        int    // 0 picks an ephemeral port
	Concurrency int    // simultaneous proxy downloads, 1 when unset
}

// Downloader fetches remote assets for the proxy route
type Downloader interface {
	Download(ctx context.Context, src string) (assets.Entry, error)
}

// Options carries the collaborators of a server
type Options struct {
	Cache   Downloader
	Logger  *logging.Logger
	Metrics *monitoring.Metrics
	Tracer  *tracing.Tracer
}

// Server is a running content server
type Server struct {
	url        string
	port       int
	sourceMaps *SourceMapContext

	http      *http.Server
	logger    *logging.Logger
	tracer    *tracing.Tracer
	ownTracer bool
	done      chan struct{}

	closeOnce sync.Once
	closeErr  error
}

// Start binds the listener and serves until Close. A port conflict, an
// unreadable bundle or an invalid descriptor is a *StartError.
func Start(ctx context.Context, d Descriptor, opts Options) (*Server, error) {
	if (d.URL == "") == (d.Dir == "") {
		return nil, &StartError{Err: errors.New("exactly one of URL and Dir must be set")}
	}
	if d.Host == "" {
		d.Host = "127.0.0.1"
	}
	if d.Concurrency <= 0 {
		d.Concurrency = 1
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	if opts.Metrics == nil {
		opts.Metrics = monitoring.NewMetrics()
	}
	ownTracer := opts.Tracer == nil
	if ownTracer {
		opts.Tracer = tracing.New("serve", opts.Logger)
	}

	var (
		b    *bundle
		maps = &SourceMapContext{}
		err  error
	)
	if d.Dir != "" {
		if b, err = openBundle(d.Dir); err != nil {
			return nil, &StartError{Err: err}
		}
		if maps, err = LoadSourceMaps(ctx, d.Dir); err != nil {
			return nil, &StartError{Err: err}
		}
	}

	addr := net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, &StartError{Addr: addr, Err: err}
	}
	port := ln.Addr().(*net.TCPAddr).Port

	s := &Server{
		port:       port,
		sourceMaps: maps,
		logger:     opts.Logger,
		tracer:     opts.Tracer,
		ownTracer:  ownTracer,
		done:       make(chan struct{}),
	}
	s.url = d.URL
	if d.Dir != "" {
		s.url = fmt.Sprintf("http://%s/%s", net.JoinHostPort(d.Host, strconv.Itoa(port)), indexFile)
	}

	router := newRouter(b, d, opts)
	s.http = &http.Server{
		Handler:           gzhttp.GzipHandler(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		defer close(s.done)
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Content server stopped", zap.Error(err))
		}
	}()

	s.logger.Info("Content server started",
		zap.String("url", s.url),
		zap.Int("port", port),
		zap.Int("source_maps", maps.Len()),
	)
	return s, nil
}

func newRouter(b *bundle, d Descriptor, opts Options) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(tracing.HTTPMiddleware(opts.Tracer))
	router.Use(monitoring.Middleware(opts.Metrics))
	router.Use(CORS(DefaultCORSConfig()))

	h := &handlers{bundle: b, cache: opts.Cache, metrics: opts.Metrics, logger: opts.Logger}

	router.GET("/health", h.health)
	router.GET("/metrics", gin.WrapH(monitoring.Handler(opts.Metrics)))
	router.GET("/proxy", ConcurrencyLimit(d.Concurrency), h.proxy)
	router.NoRoute(h.static)

	return router
}

// URL is the address a page should navigate to
func (s *Server) URL() string {
	return s.url
}

// Port is the local port, also used for proxied asset downloads
func (s *Server) Port() int {
	return s.port
}

// SourceMaps returns the bundle's source maps, empty for URL descriptors
func (s *Server) SourceMaps() *SourceMapContext {
	return s.sourceMaps
}

// Close stops the server and waits for in-flight requests. Safe to call twice.
func (s *Server) Close() error {
	s.closeOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := s.http.Shutdown(ctx); err != nil {
			s.closeErr = fmt.Errorf("shutdown content server: %w", err)
		}
		<-s.done
		if s.ownTracer {
			s.tracer.Close()
		}
		s.logger.Info("Content server stopped", zap.Int("port", s.port))
	})
	return s.closeErr
}
