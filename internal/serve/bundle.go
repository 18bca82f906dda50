package serve

import (
	"fmt"
	"html"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

const indexFile = "index.html"

// bundle is a directory of already-built files
type bundle struct {
	dir   string
	index []byte // nil when the directory ships its own index.html
}

func openBundle(dir string) (*bundle, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	b := &bundle{dir: dir}
	if _, err := os.Stat(filepath.Join(dir, indexFile)); err == nil {
		return b, nil
	}

	scripts, err := entryScripts(os.DirFS(dir))
	if err != nil {
		return nil, err
	}
	if len(scripts) == 0 {
		return nil, fmt.Errorf("no %s and no scripts in %s", indexFile, dir)
	}
	b.index = generateIndex(scripts)
	return b, nil
}

// entryScripts lists every .js file in the bundle, shallowest first
func entryScripts(fsys fs.FS) ([]string, error) {
	matches, err := doublestar.Glob(fsys, "**/*.js")
	if err != nil {
		return nil, fmt.Errorf("glob scripts: %w", err)
	}
	sort.SliceStable(matches, func(i, j int) bool {
		di, dj := strings.Count(matches[i], "/"), strings.Count(matches[j], "/")
		if di != dj {
			return di < dj
		}
		return matches[i] < matches[j]
	})
	return matches, nil
}

func generateIndex(scripts []string) []byte {
	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>composer</title>\n</head>\n<body>\n<div id=\"container\"></div>\n")
	for _, s := range scripts {
		fmt.Fprintf(&sb, "<script src=\"/%s\"></script>\n", html.EscapeString(s))
	}
	sb.WriteString("</body>\n</html>\n")
	return []byte(sb.String())
}

// file resolves a request path inside the bundle. It never escapes dir.
func (b *bundle) file(requestPath string) (string, bool) {
	clean := filepath.FromSlash(strings.TrimPrefix(filepath.ToSlash(filepath.Clean("/"+requestPath)), "/"))
	if clean == "" || clean == "." {
		clean = indexFile
	}
	full := filepath.Join(b.dir, clean)
	info, err := os.Stat(full)
	if err != nil || info.IsDir() {
		return "", false
	}
	return full, true
}
