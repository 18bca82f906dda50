/*
Package resilience provides a circuit breaker for outbound calls.

# Overview

The content server proxies remote assets on behalf of sandbox pages. When an
origin starts failing, the breaker stops hammering it and fails fast until a
probe succeeds again.

# Usage

Wrap a call directly:

	breaker := resilience.New("assets", resilience.Settings{
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	body, err := resilience.Do(breaker, func() ([]byte, error) {
		return fetch(ctx, url)
	})

Or split admission from reporting when the call is driven by hooks:

	ticket, err := breaker.Allow()
	if err != nil {
		return err
	}
	// ... send ...
	breaker.Done(ticket, sendErr)

# States

	Closed --[failures]-> Open --[timeout]-> Half-Open --[successes]-> Closed
	                                           |
	                                    [failure]
	                                           |
	                                           v
	                                         Open
*/
package resilience
