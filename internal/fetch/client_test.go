package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/GriffinCanCode/composer/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/composer/internal/infrastructure/tracing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastOptions(retries int) Options {
	return Options{
		Timeout:      2 * time.Second,
		Retries:      retries,
		RetryWaitMin: time.Millisecond,
		RetryWaitMax: 5 * time.Millisecond,
	}
}

func TestClientGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "composer/1.0", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html></html>"))
	}))
	defer srv.Close()

	client := New(fastOptions(0))

	resp, err := client.Get(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/html", resp.Header.Get("Content-Type"))

	body, err := client.GetString(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "<html></html>", body)
}

func TestClientStatusErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		temporary bool
	}{
		{name: "not found", status: http.StatusNotFound, temporary: false},
		{name: "throttled", status: http.StatusTooManyRequests, temporary: true},
		{name: "bad gateway", status: http.StatusBadGateway, temporary: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			resp, err := New(fastOptions(0)).Get(context.Background(), srv.URL)
			require.Error(t, err)

			var statusErr *StatusError
			require.True(t, errors.As(err, &statusErr))
			assert.Equal(t, tt.status, statusErr.StatusCode)
			assert.Equal(t, tt.temporary, IsTemporary(err))
			require.NotNil(t, resp)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestClientRetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	body, err := New(fastOptions(3)).GetString(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "ok", body)
	assert.Equal(t, int32(3), hits.Load())
}

func TestClientConnectionFailureIsTemporary(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(fastOptions(0)).Get(context.Background(), url)
	require.Error(t, err)

	var reqErr *RequestError
	assert.True(t, errors.As(err, &reqErr))
	assert.True(t, IsTemporary(err))
}

func TestClientCancelledIsNotTemporary(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(fastOptions(0)).Get(ctx, "http://127.0.0.1:1")
	require.Error(t, err)
	assert.False(t, IsTemporary(err))
}

func TestClientBreakerOpens(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := New(fastOptions(0))
	for i := 0; i < 5; i++ {
		_, _ = client.Get(context.Background(), srv.URL)
	}
	assert.Equal(t, resilience.StateOpen, client.BreakerState())

	_, err := client.Get(context.Background(), srv.URL)
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.True(t, IsTemporary(err))
	assert.Equal(t, int32(5), hits.Load())
}

func TestClientClientErrorsDoNotTrip(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	client := New(fastOptions(0))
	for i := 0; i < 10; i++ {
		_, _ = client.Get(context.Background(), srv.URL)
	}
	assert.Equal(t, resilience.StateClosed, client.BreakerState())
	assert.Equal(t, uint32(10), client.BreakerCounts().TotalSuccesses)
}

func TestClientRateLimit(t *testing.T) {
	client := New(fastOptions(0))
	client.SetRateLimit(0.5)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Burst token is available, but a cancelled context still fails the wait
	_, err := client.Request(ctx)
	assert.Error(t, err)

	req, err := client.Request(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, req)
}

func TestClientForwardsTraceHeaders(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
	}))
	defer srv.Close()

	tracer := tracing.New("test", nil)
	defer tracer.Close()
	_, ctx := tracer.StartSpan(context.Background(), "goto")

	_, err := New(fastOptions(0)).Get(ctx, srv.URL)
	require.NoError(t, err)
	assert.Equal(t, tracing.GetTraceID(ctx).String(), got.Get(tracing.TraceHeader))
	assert.Equal(t, tracing.GetSpanID(ctx).String(), got.Get(tracing.SpanHeader))
}
