package serve

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Maps generated line 1 column 0 to src/index.ts line 1 column 0
const testMap = `{"version":3,"file":"bundle.js","sources":["src/index.ts"],"names":[],"mappings":"AAAA"}`

func TestLoadSourceMaps(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"bundle.js":        "throw new Error('x')",
		"bundle.js.map":    testMap,
		"chunks/a.js.map":  testMap,
		"broken.js.map":    "{not json",
		"notes/readme.txt": "ignored",
	})

	maps, err := LoadSourceMaps(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 2, maps.Len())

	source, _, _, ok := maps.Resolve("http://127.0.0.1:4000/bundle.js", 1, 0)
	require.True(t, ok)
	assert.True(t, strings.HasSuffix(source, "index.ts"), source)

	_, _, _, ok = maps.Resolve("/chunks/a.js", 1, 0)
	assert.True(t, ok)

	_, _, _, ok = maps.Resolve("other.js", 1, 0)
	assert.False(t, ok)
}

func TestSymbolicate(t *testing.T) {
	dir := writeFiles(t, map[string]string{"bundle.js.map": testMap})
	maps, err := LoadSourceMaps(context.Background(), dir)
	require.NoError(t, err)

	stack := "Error: boom\n\tat calculate (http://127.0.0.1:4000/bundle.js:1:1(4))\n\tat native"
	out := maps.Symbolicate(stack)

	assert.NotContains(t, out, "bundle.js:1:1")
	assert.Contains(t, out, "index.ts:")
	assert.Contains(t, out, "at native")
}

func TestSymbolicateWithoutMaps(t *testing.T) {
	var maps *SourceMapContext
	stack := "at x (bundle.js:1:1)"
	assert.Equal(t, stack, maps.Symbolicate(stack))
	assert.Equal(t, 0, maps.Len())
}
