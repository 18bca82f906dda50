package compositions

import (
	"context"
	"testing"
	"time"

	"github.com/GriffinCanCode/composer/internal/infrastructure/config"
	"github.com/GriffinCanCode/composer/internal/infrastructure/logging"
	"github.com/GriffinCanCode/composer/internal/infrastructure/monitoring"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBundle = `(function () {
	const props = JSON.parse(window.remotion_inputProps);
	const env = JSON.parse(window.remotion_envVariables);
	if (window.remotion_initialFrame !== null) {
		throw new Error('initial frame should be null');
	}
	let mode = null;
	const compositions = [
		{id: 'MyComp', width: 1920, height: 1080, fps: 30, durationInFrames: 150, props: props},
		{id: 'Teaser', width: 640, height: 480, fps: 25, durationInFrames: 10, props: {}},
	];
	window.remotion_setInitialState = function (state) {
		mode = state.type;
	};
	window.remotion_getStaticCompositions = function () {
		return compositions;
	};
	window.remotion_calculateComposition = function (id) {
		if (mode !== 'evaluation') {
			throw new Error('not in evaluation mode');
		}
		if (id === 'Crash') {
			setTimeout(function () { throw new Error('async boom'); }, 5);
			return new Promise(function (resolve) {
				setTimeout(function () { resolve(compositions[0]); }, 200);
			});
		}
		return new Promise(function (resolve, reject) {
			setTimeout(function () {
				const found = compositions.find(function (c) { return c.id === id; });
				if (!found) {
					reject(new Error('Composition not found: ' + id));
					return;
				}
				resolve(Object.assign({}, found, {greeting: env.REMOTION_GREETING || null}));
			}, 5);
		});
	};
	setTimeout(function () { window.remotion_bundleReady = true; }, 10);
})();
`

func newE2EResolver(t *testing.T) (*Resolver, *monitoring.Metrics, string) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, writeFile(dir, "bundle.js", testBundle))

	cfg := config.Default()
	cfg.Resolve.AssetDir = t.TempDir()
	metrics := monitoring.NewMetrics()
	logger := logging.NewNop()

	r := NewResolver(DefaultDependencies(cfg, logger, metrics), OptionsFromConfig(cfg), logger).WithMetrics(metrics)
	return r, metrics, dir
}

func TestEndToEndSelectComposition(t *testing.T) {
	r, metrics, dir := newE2EResolver(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	meta, err := r.SelectComposition(ctx, ResolutionRequest{
		ID:           "MyComp",
		BundleDir:    dir,
		InputProps:   map[string]interface{}{"title": "Hello"},
		EnvVariables: map[string]string{"REMOTION_GREETING": "hi"},
		Timeout:      durationPtr(5 * time.Second),
	})
	require.NoError(t, err)

	assert.Equal(t, "MyComp", meta.ID)
	assert.Equal(t, 1920, meta.Width)
	assert.Equal(t, 1080, meta.Height)
	assert.Equal(t, float64(30), meta.FPS)
	assert.Equal(t, 150, meta.DurationInFrames)
	assert.Equal(t, map[string]interface{}{"title": "Hello"}, meta.Props)
	assert.Equal(t, "hi", meta.Raw["greeting"])

	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.PagesActive), "page closed")
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Resolutions.WithLabelValues(EntryPointCalculateComposition, "success")))
}

func TestEndToEndListCompositions(t *testing.T) {
	r, _, dir := newE2EResolver(t)

	list, err := r.ListCompositions(context.Background(), ResolutionRequest{BundleDir: dir})
	require.NoError(t, err)

	require.Len(t, list, 2)
	assert.Equal(t, "MyComp", list[0].ID)
	assert.Equal(t, "Teaser", list[1].ID)
	assert.Equal(t, 25.0, list[1].FPS)
}

func TestEndToEndCompositionNotFound(t *testing.T) {
	r, metrics, dir := newE2EResolver(t)

	_, err := r.SelectComposition(context.Background(), ResolutionRequest{ID: "Nope", BundleDir: dir})

	var invErr *RemoteInvocationError
	require.ErrorAs(t, err, &invErr)
	assert.Contains(t, invErr.Message, "Composition not found: Nope")
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Resolutions.WithLabelValues(EntryPointCalculateComposition, "remote_invocation")))
}

func TestEndToEndOutOfBandError(t *testing.T) {
	r, _, dir := newE2EResolver(t)

	start := time.Now()
	_, err := r.SelectComposition(context.Background(), ResolutionRequest{ID: "Crash", BundleDir: dir})

	var oob *OutOfBandError
	require.ErrorAs(t, err, &oob)
	assert.Equal(t, "async boom", oob.Message)
	assert.Less(t, time.Since(start), 2*time.Second)
}
