package props

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"
)

// ErrNotObject is returned when props decode to anything but an object
var ErrNotObject = errors.New("input props must be an object")

// Load reads input props from arg. arg is either inline JSON (starting with
// "{") or a path to a .json, .yaml, .yml or .toml file. An empty arg yields
// empty props. Values are normalized to what JSON decoding would produce.
func Load(arg string) (map[string]interface{}, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return map[string]interface{}{}, nil
	}
	if strings.HasPrefix(arg, "{") {
		return Parse([]byte(arg), ".json")
	}

	data, err := os.ReadFile(arg)
	if err != nil {
		return nil, fmt.Errorf("read props: %w", err)
	}
	return Parse(data, filepath.Ext(arg))
}

// Parse decodes data in the format named by ext
func Parse(data []byte, ext string) (map[string]interface{}, error) {
	var parsed interface{}
	switch strings.ToLower(ext) {
	case ".json", "":
		if err := sonic.Unmarshal(data, &parsed); err != nil {
			return nil, fmt.Errorf("JSON parse error: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &parsed); err != nil {
			return nil, fmt.Errorf("YAML parse error: %w", err)
		}
	case ".toml":
		var m map[string]interface{}
		if err := toml.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("TOML parse error: %w", err)
		}
		parsed = m
	default:
		return nil, fmt.Errorf("unsupported props format %q", ext)
	}

	if parsed == nil {
		return map[string]interface{}{}, nil
	}
	return normalize(parsed)
}

// normalize round-trips v through JSON so every number is a float64, every
// map is keyed by string and non-JSON values (TOML dates) become strings.
func normalize(v interface{}) (map[string]interface{}, error) {
	data, err := sonic.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("props are not serializable: %w", err)
	}
	validator := DefaultValidator()
	if err := validator.ValidateSize(data); err != nil {
		return nil, err
	}
	var out interface{}
	if err := sonic.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("props are not serializable: %w", err)
	}
	m, ok := out.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w, got %T", ErrNotObject, out)
	}
	if err := validator.ValidateDepth(m); err != nil {
		return nil, err
	}
	return m, nil
}
