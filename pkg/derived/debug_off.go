//go:build !meshdebug

package derived

const debugChecks = false
