// Package compositions resolves composition metadata by running a bundle
// inside a sandbox page.
//
// One resolution walks through these steps:
//
//	Idle -> ServerReady -> SandboxReady -> Injected -> BundleReady -> Invoking -> Settled
//
//   - ServerReady: a content server serves the bundle (or a caller's server is reused)
//   - SandboxReady: a page is opened in a fresh or caller-supplied sandbox
//   - Injected: input props, env variables, proxy port and timeout are set
//     as window globals before any bundle code runs, then the page navigates
//   - BundleReady: the bundle set window.remotion_bundleReady
//   - Invoking: window.remotion_setInitialState and the requested entry
//     point are called
//
// From SandboxReady on, the first uncaught exception on the page settles the
// resolution with an *OutOfBandError, even while a step is still running.
// Settlement is single-assignment: whichever of the step chain and the
// exception channel settles first wins.
//
// Every acquired resource is registered on a CleanupChain that runs exactly
// once after settlement, in registration order. Caller-supplied browsers,
// servers and caches are borrowed and never torn down.
//
// Errors:
//   - *InvalidTimeoutError: zero, negative or non-finite timeout, nothing provisioned
//   - *ProvisionError: sandbox, page, server or cache could not be acquired
//   - *InjectionError: navigation failed on every attempt
//   - *NotReadyError: the bundle reported window.remotion_bundleError or never got ready
//   - *RemoteInvocationError: the entry point threw or returned malformed data
//   - *OutOfBandError: uncaught exception outside the direct call
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	resolver := compositions.NewResolver(
//		compositions.DefaultDependencies(cfg, logger, metrics),
//		compositions.OptionsFromConfig(cfg),
//		logger,
//	).WithMetrics(metrics)
//
//	meta, err := resolver.SelectComposition(ctx, compositions.ResolutionRequest{
//		ID:       "MyComp",
//		ServeURL: "http://localhost:3000",
//	})
package compositions
