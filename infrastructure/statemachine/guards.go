package statemachine

import (
	"github.com/felixgeelhaar/statekit"
)

// guardStepEnabled holds when the next chain edge can fire from the
// current zone.
func guardStepEnabled(ctx *Context, _ statekit.Event) bool {
	if ctx == nil || ctx.Graph == nil || ctx.Path == nil {
		return false
	}
	_, err := ctx.successor()
	return err == nil
}
