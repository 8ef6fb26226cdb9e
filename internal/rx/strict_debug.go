//go:build rxdebug

package rx

// Debug builds treat contract violations as fatal.
const strictViolations = true
