package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashString(t *testing.T) {
	h := DefaultHasher()

	// sha256("abc")
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", h.HashString("abc"))
	assert.Len(t, h.HashString(""), 64)
}

func TestHashJSONIsKeyOrderIndependent(t *testing.T) {
	h := DefaultHasher()

	a, err := h.HashJSON(map[string]interface{}{"fps": 30, "width": 1920, "height": 1080})
	require.NoError(t, err)
	b, err := h.HashJSON(map[string]interface{}{"height": 1080, "width": 1920, "fps": 30})
	require.NoError(t, err)

	assert.Equal(t, a, b)

	c, err := h.HashJSON(map[string]interface{}{"fps": 60, "width": 1920, "height": 1080})
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestHashJSONRejectsUnsupported(t *testing.T) {
	_, err := DefaultHasher().HashJSON(map[string]interface{}{"ch": make(chan int)})
	assert.Error(t, err)
}

func TestHashFields(t *testing.T) {
	h := DefaultHasher()
	assert.Equal(t, h.HashFields("a", "b"), h.HashFields("b", "a"))
	assert.NotEqual(t, h.HashFields("a", "b"), h.HashFields("a", "c"))
}

func TestShort(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"abcdef", 3, "abc"},
		{"ab", 8, "ab"},
		{"abc", 0, "abc"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Short(tt.in, tt.n))
	}
}
