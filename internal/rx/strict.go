//go:build !rxdebug

package rx

const strictViolations = false
