package compositions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/GriffinCanCode/composer/internal/infrastructure/logging"
	"github.com/GriffinCanCode/composer/internal/sandbox"
	"github.com/GriffinCanCode/composer/internal/serve"
	"github.com/GriffinCanCode/composer/internal/shared/utils"
	"go.uber.org/zap"
)

// Entry points a ready bundle exposes as window.remotion_<name>
const (
	EntryPointSetInitialState       = "setInitialState"
	EntryPointCalculateComposition  = "calculateComposition"
	EntryPointGetStaticCompositions = "getStaticCompositions"
)

const callEntryPoint = `(name, args) => {
	const fn = window['remotion_' + name];
	if (typeof fn !== 'function') {
		throw new TypeError('window.remotion_' + name + ' is not a function');
	}
	return fn.apply(window, args);
}`

// invoke calls entryPoint inside page with args. frame is nil for calls
// that are not tied to a frame. Exceptions raised by the entry point come
// back as *RemoteInvocationError with the stack symbolicated through maps.
func invoke(ctx context.Context, page Page, entryPoint string, frame *int, args []interface{}, maps *serve.SourceMapContext, log logging.LogOptions, logger *logging.Logger) (interface{}, error) {
	if args == nil {
		args = []interface{}{}
	}

	log.Verbose(logger, fmt.Sprintf("Running %s()...", entryPoint))
	start := time.Now()
	v, err := page.Evaluate(ctx, callEntryPoint, entryPoint, args)
	took := time.Since(start)
	log.Verbose(logger, fmt.Sprintf("%s() took %dms", entryPoint, took.Milliseconds()), zap.Duration("duration", took))

	if err == nil {
		return v, nil
	}

	invErr := &RemoteInvocationError{EntryPoint: entryPoint, Frame: frame}
	var evalErr *sandbox.EvaluationError
	if errors.As(err, &evalErr) {
		invErr.Name = evalErr.Name
		invErr.Message = evalErr.Message
		invErr.Stack = maps.Symbolicate(evalErr.Stack)
	} else {
		invErr.Err = err
	}
	return nil, invErr
}

// toMetadata converts an entry point result into metadata
func toMetadata(entryPoint string, v interface{}, fallbackID string) (*CompositionMetadata, error) {
	raw, ok := v.(map[string]interface{})
	if !ok {
		return nil, &RemoteInvocationError{
			EntryPoint: entryPoint,
			Err:        fmt.Errorf("malformed result: expected an object, got %T", v),
		}
	}

	digest, err := utils.DefaultHasher().HashJSON(raw)
	if err != nil {
		return nil, &RemoteInvocationError{EntryPoint: entryPoint, Err: err}
	}

	m := &CompositionMetadata{
		ID:               stringField(raw, "id"),
		Width:            intField(raw, "width"),
		Height:           intField(raw, "height"),
		FPS:              floatField(raw, "fps"),
		DurationInFrames: intField(raw, "durationInFrames"),
		Raw:              raw,
		Digest:           digest,
	}
	if m.ID == "" {
		m.ID = fallbackID
	}
	if p, ok := raw["props"].(map[string]interface{}); ok {
		m.Props = p
	} else if p, ok := raw["defaultProps"].(map[string]interface{}); ok {
		m.Props = p
	}
	return m, nil
}

func stringField(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	return s
}

func floatField(m map[string]interface{}, key string) float64 {
	f, _ := m[key].(float64)
	return f
}

func intField(m map[string]interface{}, key string) int {
	return int(floatField(m, key))
}
