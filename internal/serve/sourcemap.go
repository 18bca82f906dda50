package serve

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/charlievieth/fastwalk"
	"github.com/go-sourcemap/sourcemap"
)

// stackFrame matches "<file>.js:<line>:<column>" inside a stack trace
var stackFrame = regexp.MustCompile(`([^\s()]+\.js):(\d+):(\d+)`)

// SourceMapContext maps generated bundle positions back to original sources.
// A nil or empty context leaves stacks untouched.
type SourceMapContext struct {
	maps map[string]*sourcemap.Consumer // keyed by slash path of the generated file
}

// LoadSourceMaps parses every *.map file under dir
func LoadSourceMaps(ctx context.Context, dir string) (*SourceMapContext, error) {
	var (
		mu   sync.Mutex
		maps = make(map[string]*sourcemap.Consumer)
	)

	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, dir, func(p string, d os.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil || d.IsDir() || filepath.Ext(p) != ".map" {
			return nil
		}

		data, err := os.ReadFile(p)
		if err != nil {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return nil
		}
		consumer, err := sourcemap.Parse(filepath.ToSlash(rel), data)
		if err != nil {
			// A broken map only costs symbolication for that file
			return nil
		}

		mu.Lock()
		maps[strings.TrimSuffix(filepath.ToSlash(rel), ".map")] = consumer
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan source maps: %w", err)
	}
	return &SourceMapContext{maps: maps}, nil
}

// Len returns the number of loaded maps
func (s *SourceMapContext) Len() int {
	if s == nil {
		return 0
	}
	return len(s.maps)
}

// Resolve maps a generated position to its original source position
func (s *SourceMapContext) Resolve(file string, line, column int) (source string, srcLine, srcColumn int, ok bool) {
	consumer := s.lookup(file)
	if consumer == nil {
		return "", 0, 0, false
	}
	source, _, srcLine, srcColumn, ok = consumer.Source(line, column)
	return source, srcLine, srcColumn, ok
}

// Symbolicate rewrites every resolvable frame of stack to original positions.
// Stack columns are 1-based; map columns are 0-based.
func (s *SourceMapContext) Symbolicate(stack string) string {
	if s.Len() == 0 || stack == "" {
		return stack
	}
	return stackFrame.ReplaceAllStringFunc(stack, func(frame string) string {
		m := stackFrame.FindStringSubmatch(frame)
		line, _ := strconv.Atoi(m[2])
		column, _ := strconv.Atoi(m[3])
		if column > 0 {
			column--
		}
		source, srcLine, srcColumn, ok := s.Resolve(m[1], line, column)
		if !ok {
			return frame
		}
		return fmt.Sprintf("%s:%d:%d", source, srcLine, srcColumn+1)
	})
}

// lookup accepts a URL, an absolute path or a bare file name
func (s *SourceMapContext) lookup(file string) *sourcemap.Consumer {
	if s.Len() == 0 {
		return nil
	}
	if u, err := url.Parse(file); err == nil && u.Path != "" {
		file = u.Path
	}
	key := strings.TrimPrefix(path.Clean("/"+filepath.ToSlash(file)), "/")
	if c, ok := s.maps[key]; ok {
		return c
	}

	base := path.Base(key)
	for k, c := range s.maps {
		if path.Base(k) == base {
			return c
		}
	}
	return nil
}
