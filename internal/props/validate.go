package props

import (
	"errors"
	"fmt"
)

// Limits on serialized input props
const (
	MaxSize  = 8 * 1024 * 1024 // bytes of canonical JSON
	MaxDepth = 64
)

var (
	ErrTooLarge = errors.New("input props too large")
	ErrTooDeep  = errors.New("input props nested too deeply")
)

// Validator bounds the size and nesting of props before they are
// serialized into a page.
type Validator struct {
	maxSize  int
	maxDepth int
}

// NewValidator creates a validator with the given limits
func NewValidator(maxSize, maxDepth int) *Validator {
	return &Validator{maxSize: maxSize, maxDepth: maxDepth}
}

// DefaultValidator uses MaxSize and MaxDepth
func DefaultValidator() *Validator {
	return NewValidator(MaxSize, MaxDepth)
}

// ValidateSize checks the encoded size of props
func (v *Validator) ValidateSize(data []byte) error {
	if len(data) > v.maxSize {
		return fmt.Errorf("%w: %d bytes exceeds maximum %d bytes", ErrTooLarge, len(data), v.maxSize)
	}
	return nil
}

// ValidateDepth checks the nesting depth of decoded props
func (v *Validator) ValidateDepth(data interface{}) error {
	return checkDepth(data, 0, v.maxDepth)
}

func checkDepth(data interface{}, depth, maxDepth int) error {
	if depth > maxDepth {
		return fmt.Errorf("%w: depth %d exceeds maximum %d", ErrTooDeep, depth, maxDepth)
	}

	switch v := data.(type) {
	case map[string]interface{}:
		for _, value := range v {
			if err := checkDepth(value, depth+1, maxDepth); err != nil {
				return err
			}
		}
	case []interface{}:
		for _, value := range v {
			if err := checkDepth(value, depth+1, maxDepth); err != nil {
				return err
			}
		}
	}
	return nil
}
