package props

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	want := map[string]interface{}{
		"title": "Hello",
		"count": float64(3),
		"tags":  []interface{}{"a", "b"},
		"theme": map[string]interface{}{"dark": true},
	}

	tests := []struct {
		name string
		arg  func(t *testing.T) string
	}{
		{name: "inline json", arg: func(t *testing.T) string {
			return `{"title":"Hello","count":3,"tags":["a","b"],"theme":{"dark":true}}`
		}},
		{name: "json file", arg: func(t *testing.T) string {
			return writeFile(t, "props.json", `{"title":"Hello","count":3,"tags":["a","b"],"theme":{"dark":true}}`)
		}},
		{name: "yaml file", arg: func(t *testing.T) string {
			return writeFile(t, "props.yaml", "title: Hello\ncount: 3\ntags: [a, b]\ntheme:\n  dark: true\n")
		}},
		{name: "yml file", arg: func(t *testing.T) string {
			return writeFile(t, "props.yml", "title: Hello\ncount: 3\ntags:\n  - a\n  - b\ntheme: {dark: true}\n")
		}},
		{name: "toml file", arg: func(t *testing.T) string {
			return writeFile(t, "props.toml", "title = \"Hello\"\ncount = 3\ntags = [\"a\", \"b\"]\n\n[theme]\ndark = true\n")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Load(tt.arg(t))
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestLoadEdgeCases(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		got, err := Load("  ")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("empty yaml document", func(t *testing.T) {
		got, err := Load(writeFile(t, "empty.yaml", ""))
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("not an object", func(t *testing.T) {
		_, err := Load(writeFile(t, "list.json", `[1, 2]`))
		assert.ErrorIs(t, err, ErrNotObject)
	})

	t.Run("invalid json", func(t *testing.T) {
		_, err := Load(`{"title":`)
		assert.Error(t, err)
	})

	t.Run("unknown extension", func(t *testing.T) {
		_, err := Load(writeFile(t, "props.xml", "<a/>"))
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
		assert.Error(t, err)
	})

	t.Run("too deep", func(t *testing.T) {
		deep := strings.Repeat(`{"a":`, MaxDepth+1) + "1" + strings.Repeat("}", MaxDepth+1)
		_, err := Load(deep)
		assert.ErrorIs(t, err, ErrTooDeep)
	})
}

func TestValidator(t *testing.T) {
	v := NewValidator(16, 2)

	assert.NoError(t, v.ValidateSize([]byte(`{"a":1}`)))
	assert.ErrorIs(t, v.ValidateSize([]byte(`{"title":"a long title"}`)), ErrTooLarge)

	assert.NoError(t, v.ValidateDepth(map[string]interface{}{"a": []interface{}{1.0}}))
	assert.ErrorIs(t, v.ValidateDepth(map[string]interface{}{
		"a": []interface{}{map[string]interface{}{"b": 1.0}},
	}), ErrTooDeep)
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("REMOTION_API", "process")
	t.Setenv("REMOTION_KEEP", "kept")
	t.Setenv("UNRELATED_SECRET", "hidden")

	env, err := LoadEnv("")
	require.NoError(t, err)
	assert.Equal(t, "process", env["REMOTION_API"])
	assert.NotContains(t, env, "UNRELATED_SECRET")

	path := writeFile(t, ".env", "REMOTION_API=file\n# comment\nOTHER=from-file\n")
	env, err = LoadEnv(path)
	require.NoError(t, err)
	assert.Equal(t, "file", env["REMOTION_API"])
	assert.Equal(t, "kept", env["REMOTION_KEEP"])
	assert.Equal(t, "from-file", env["OTHER"])

	_, err = LoadEnv(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}

func TestParsePairs(t *testing.T) {
	env, err := ParsePairs([]string{"A=1", "B=x=y", "EMPTY="})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"A": "1", "B": "x=y", "EMPTY": ""}, env)

	_, err = ParsePairs([]string{"novalue"})
	assert.Error(t, err)
	_, err = ParsePairs([]string{"=x"})
	assert.Error(t, err)
}

func TestFromProcess(t *testing.T) {
	env := FromProcess([]string{"REMOTION_A=1", "PATH=/bin", "REMOTION_B", "REMOTION_C=a=b"})
	assert.Equal(t, map[string]string{"REMOTION_A": "1", "REMOTION_C": "a=b"}, env)
}
