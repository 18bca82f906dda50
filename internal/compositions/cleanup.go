package compositions

import (
	"errors"
	"fmt"
	"sync"

	"github.com/GriffinCanCode/composer/internal/infrastructure/logging"
	"github.com/GriffinCanCode/composer/internal/infrastructure/monitoring"
	"go.uber.org/zap"
)

type cleanupAction struct {
	name string
	fn   func() error
}

// CleanupChain runs teardown actions in registration order once the
// resolution has settled. A failing or panicking action does not stop the
// ones after it.
type CleanupChain struct {
	mu      sync.Mutex
	actions []cleanupAction
	ran     bool

	logger  *logging.Logger
	log     logging.LogOptions
	metrics *monitoring.Metrics
}

// NewCleanupChain creates an empty chain. logger and metrics may be nil.
func NewCleanupChain(logger *logging.Logger, log logging.LogOptions, metrics *monitoring.Metrics) *CleanupChain {
	return &CleanupChain{logger: logger, log: log, metrics: metrics}
}

// Register appends a teardown action. Once RunAll has run, the action runs
// immediately instead, so a resource acquired after settlement is still
// released exactly once.
func (c *CleanupChain) Register(name string, fn func() error) {
	c.mu.Lock()
	if !c.ran {
		c.actions = append(c.actions, cleanupAction{name: name, fn: fn})
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	_ = c.run(cleanupAction{name: name, fn: fn})
}

// RunAll runs every registered action. Only the first call does work; the
// joined error is informational and never changes a resolution's outcome.
func (c *CleanupChain) RunAll() error {
	c.mu.Lock()
	if c.ran {
		c.mu.Unlock()
		return nil
	}
	c.ran = true
	actions := c.actions
	c.actions = nil
	c.mu.Unlock()

	var errs []error
	for _, a := range actions {
		if err := c.run(a); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Len returns the number of actions waiting to run
func (c *CleanupChain) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.actions)
}

func (c *CleanupChain) run(a cleanupAction) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cleanup %s panicked: %v", a.name, r)
		}
		if err != nil {
			c.log.Log(c.logger, logging.LevelWarn, "Cleanup failed", zap.String("action", a.name), zap.Error(err))
			if c.metrics != nil {
				c.metrics.RecordCleanupFailure(a.name)
			}
			return
		}
		c.log.Verbose(c.logger, "Cleaned up "+a.name)
	}()

	if err := a.fn(); err != nil {
		return fmt.Errorf("cleanup %s: %w", a.name, err)
	}
	return nil
}
