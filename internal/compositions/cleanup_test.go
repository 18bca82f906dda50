package compositions

import (
	"errors"
	"sync"
	"testing"

	"github.com/GriffinCanCode/composer/internal/infrastructure/logging"
	"github.com/GriffinCanCode/composer/internal/infrastructure/monitoring"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanupChainRunsInOrder(t *testing.T) {
	chain := NewCleanupChain(nil, logging.DefaultLogOptions(), nil)
	var order []string
	for _, name := range []string{"cache", "server", "page"} {
		name := name
		chain.Register(name, func() error {
			order = append(order, name)
			return nil
		})
	}
	assert.Equal(t, 3, chain.Len())

	require.NoError(t, chain.RunAll())
	assert.Equal(t, []string{"cache", "server", "page"}, order)
	assert.Equal(t, 0, chain.Len())
}

func TestCleanupChainRunsOnce(t *testing.T) {
	chain := NewCleanupChain(nil, logging.DefaultLogOptions(), nil)
	calls := 0
	chain.Register("page", func() error {
		calls++
		return nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = chain.RunAll()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, calls)
}

func TestCleanupChainContinuesAfterFailure(t *testing.T) {
	metrics := monitoring.NewMetrics()
	chain := NewCleanupChain(logging.NewNop(), logging.DefaultLogOptions(), metrics)

	var ran []string
	chain.Register("server", func() error {
		ran = append(ran, "server")
		return errors.New("shutdown timed out")
	})
	chain.Register("page", func() error {
		ran = append(ran, "page")
		panic("page already gone")
	})
	chain.Register("bridge", func() error {
		ran = append(ran, "bridge")
		return nil
	})

	err := chain.RunAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shutdown timed out")
	assert.Contains(t, err.Error(), "page already gone")
	assert.Equal(t, []string{"server", "page", "bridge"}, ran)

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.CleanupFailures.WithLabelValues("server")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.CleanupFailures.WithLabelValues("page")))
	assert.Equal(t, int64(2), metrics.Snapshot().CleanupFailures)
}

func TestCleanupChainRegisterAfterRun(t *testing.T) {
	chain := NewCleanupChain(nil, logging.DefaultLogOptions(), nil)
	require.NoError(t, chain.RunAll())

	calls := 0
	chain.Register("late", func() error {
		calls++
		return nil
	})
	assert.Equal(t, 1, calls, "late registration runs immediately")

	require.NoError(t, chain.RunAll())
	assert.Equal(t, 1, calls)
}

func TestOutcomeFirstSettleWins(t *testing.T) {
	o := newOutcome[int]()

	var wg sync.WaitGroup
	wins := make(chan int, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				if o.resolve(i) {
					wins <- i
				}
				return
			}
			if o.reject(errors.New("rejected")) {
				wins <- i
			}
		}(i)
	}
	wg.Wait()
	close(wins)

	assert.Len(t, wins, 1)
	winner := <-wins
	v, err := o.wait()
	if winner%2 == 0 {
		assert.NoError(t, err)
		assert.Equal(t, winner, v)
	} else {
		assert.EqualError(t, err, "rejected")
		assert.Zero(t, v)
	}

	select {
	case <-o.Done():
	default:
		t.Fatal("Done not closed after settlement")
	}
}

func TestResourceOwnership(t *testing.T) {
	released := 0
	owned := Owned("server", func() error {
		released++
		return nil
	})
	assert.True(t, owned.IsOwned())
	assert.Equal(t, "server", owned.Value())
	require.NoError(t, owned.Release())
	assert.Equal(t, 1, released)

	borrowed := Borrowed("server")
	assert.False(t, borrowed.IsOwned())
	require.NoError(t, borrowed.Release())
	assert.Equal(t, 1, released)
}
