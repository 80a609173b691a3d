package caps

import (
	"errors"
	"fmt"
	"sync"
)

// ErrNotImplemented indicates a declared method without handler.
var ErrNotImplemented = errors.New("method not implemented")

// MethodFunc handles a method invocation.
type MethodFunc func(args []string) (string, error)

// Dispatcher routes method invocations to handlers, restricted to the
// methods a Descriptor declares.
type Dispatcher struct {
	desc     *Descriptor
	handlers map[string]MethodFunc
	lock     sync.RWMutex
}

// NewDispatcher creates a Dispatcher bound to desc.
func NewDispatcher(desc *Descriptor) *Dispatcher {
	return &Dispatcher{desc: desc, handlers: make(map[string]MethodFunc)}
}

// Descriptor returns the contract of the dispatcher.
func (d *Dispatcher) Descriptor() *Descriptor {
	return d.desc
}

// Register installs the handler of a declared method.
func (d *Dispatcher) Register(method string, fn MethodFunc) error {
	if err := d.desc.CheckMethod(method); err != nil {
		return err
	}
	d.lock.Lock()
	d.handlers[method] = fn
	d.lock.Unlock()
	return nil
}

// Invoke runs a method. Undeclared or unhandled methods are rejected.
func (d *Dispatcher) Invoke(method string, args ...string) (string, error) {
	if err := d.desc.CheckMethod(method); err != nil {
		return "", err
	}
	d.lock.RLock()
	fn := d.handlers[method]
	d.lock.RUnlock()
	if fn == nil {
		return "", fmt.Errorf("%w: %q", ErrNotImplemented, method)
	}
	return fn(args)
}
