//go:build meshdebug

package derived

// debugChecks turns double releases into panics. Build with
// -tags=meshdebug.
const debugChecks = true
