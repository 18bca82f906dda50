package compositions

import (
	"context"
	"fmt"
	"time"
)

// readyPredicate is truthy once the bundle either finished loading or
// reported a load failure.
const readyPredicate = `() => {
	const err = window.remotion_bundleError;
	if (err) {
		return {
			error: true,
			message: String(err.message || err),
			stack: String(err.stack || ''),
		};
	}
	return window.remotion_bundleReady === true ? {ready: true} : false;
}`

// waitUntilReady blocks until the bundle marks itself ready. It has no
// deadline of its own; ctx bounds it.
func waitUntilReady(ctx context.Context, page Page, interval time.Duration) error {
	v, err := page.WaitForFunction(ctx, readyPredicate, interval)
	if err != nil {
		return &NotReadyError{Err: err}
	}

	state, ok := v.(map[string]interface{})
	if !ok {
		return &NotReadyError{Err: fmt.Errorf("unexpected readiness value %v", v)}
	}
	if failed, _ := state["error"].(bool); failed {
		message, _ := state["message"].(string)
		stack, _ := state["stack"].(string)
		return &NotReadyError{Message: message, Stack: stack}
	}
	return nil
}
