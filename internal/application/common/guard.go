package common

import (
	"github.com/andrescamacho/pharmasim-go/internal/domain/shared"
)

// SafeCall runs fn, converting a returned error or a panic into a *shared.HookError.
func SafeCall(hook string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = shared.NewHookPanicError(hook, r)
		}
	}()
	if callErr := fn(); callErr != nil {
		return shared.NewHookError(hook, callErr)
	}
	return nil
}

// Guard runs fn through SafeCall and logs a failure at ERROR level.
// It reports whether fn succeeded. Processing continues either way.
func Guard(logger Logger, hook string, metadata map[string]interface{}, fn func() error) bool {
	err := SafeCall(hook, fn)
	if err == nil {
		return true
	}
	fields := make(map[string]interface{}, len(metadata)+2)
	for k, v := range metadata {
		fields[k] = v
	}
	fields["hook"] = hook
	fields["error"] = err.Error()
	OrNoOp(logger).Log(LevelError, "Callback failed", fields)
	return false
}
