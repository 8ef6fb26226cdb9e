package rx

import (
	"sync/atomic"

	"go.uber.org/zap"
)

type handler func(error)

var (
	violationHandler atomic.Pointer[handler]
	errorHandler     atomic.Pointer[handler]
)

// SetViolationHandler installs fn as the receiver of contract violations,
// such as a value delivered after OnComplete. It returns a func that
// restores the previous handler. A nil fn restores the default.
func SetViolationHandler(fn func(error)) (restore func()) {
	return swap(&violationHandler, fn)
}

// SetErrorHandler installs fn as the receiver of errors that reached an
// observer without an error callback.
func SetErrorHandler(fn func(error)) (restore func()) {
	return swap(&errorHandler, fn)
}

func swap(slot *atomic.Pointer[handler], fn func(error)) func() {
	var next *handler
	if fn != nil {
		h := handler(fn)
		next = &h
	}
	prev := slot.Swap(next)
	return func() { slot.Store(prev) }
}

func reportViolation(err error) {
	if h := violationHandler.Load(); h != nil {
		(*h)(err)
		return
	}
	if strictViolations {
		panic(err)
	}
	zap.L().Error("stream contract violation", zap.Error(err))
}

func reportUnhandled(err error) {
	if h := errorHandler.Load(); h != nil {
		(*h)(err)
		return
	}
	zap.L().Error("unhandled stream error", zap.Error(err))
}
