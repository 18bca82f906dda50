/*
Package sandbox hosts untrusted bundle code in goja VMs that behave enough
like browser pages for a composition bundle to load and answer calls.

# Overview

A Browser is a launched sandbox instance. It owns any number of Pages, each
an isolated execution context with its own VM and its own event loop
goroutine. Nothing outside that goroutine touches the VM.

A Page provides:

  - Navigation: Goto fetches a document, parses it with goquery, then runs
    init scripts and the document's classic scripts in order
  - Evaluation: Evaluate calls a function expression with JSON arguments,
    awaits a returned promise and decodes the JSON result
  - Timers: setTimeout and setInterval backed by time.AfterFunc
  - Channels: console output (OnConsole) and uncaught exceptions
    (OnPageError), including promise rejections left unhandled at the end
    of a loop turn
  - DOM proxy: querySelector and friends over the parsed document

# Security Model

Page code cannot reach require, process, module or exports. It has no
network access of its own; only Goto fetches, through the shared client.
A context deadline on Goto or Evaluate interrupts the running script.

# Usage Example

	browser, err := sandbox.Launch(ctx, sandbox.Config{MaxPages: 4})
	if err != nil {
		return err
	}
	defer browser.Close()

	page, err := browser.NewPage(ctx)
	if err != nil {
		return err
	}
	defer page.Close()

	stop := page.OnPageError(func(err *sandbox.PageError) {
		logger.Warn("page error", zap.Error(err))
	})
	defer stop()

	if err := page.Goto(ctx, "http://127.0.0.1:3000/index.html"); err != nil {
		return err
	}
	v, err := page.Evaluate(ctx, "(a, b) => a + b", 1, 2)
*/
package sandbox
