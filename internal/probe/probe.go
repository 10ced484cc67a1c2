package probe

import (
	"context"
	"fmt"
)

// Probe is evaluated once per aggregation pass.
type Probe interface {
	Run(ctx context.Context) Status
}

// Func adapts a function into a Probe.
type Func func(context.Context) Status

func (f Func) Run(ctx context.Context) Status { return f(ctx) }

// Static returns a probe that always reports st.
func Static(st Status) Func {
	return func(context.Context) Status { return st }
}

// Run executes p, folding a nil probe or a panic into a failed Status.
func Run(ctx context.Context, p Probe) (st Status) {
	if p == nil {
		return Unavailable("probe")
	}
	defer func() {
		if r := recover(); r != nil {
			st = Fail(DetailPanicked + ": " + fmt.Sprint(r))
		}
	}()
	return p.Run(ctx)
}
