package framework

import (
	"context"
	"time"
)

// Named is an abstraction for things with a name.
type Named interface {
	Name() string
}

// Runnable defines a generic interface for background runners.
type Runnable interface {
	Run(context.Context) error
}

// Ticker performs one poll-and-dispatch cycle and returns control.
type Ticker interface {
	Tick(now time.Time) error
}

// TickFunc is the func form of Ticker.
type TickFunc func(time.Time) error

// Tick implements Ticker.
func (f TickFunc) Tick(now time.Time) error {
	return f(now)
}

// LoopAdder provides specific logic to add components to loop.
type LoopAdder interface {
	AddToLoop(*Loop)
}
