// Package input reads raw controller button bitmasks through the platform's
// controller APIs.
package input

import (
	"errors"

	"github.com/verte-zerg/switchlife/internal/model"
)

var (
	// ErrDisconnected means no controller answers at the requested index.
	ErrDisconnected = errors.New("controller disconnected")
	// ErrUnsupported means the selected input method has no implementation here.
	ErrUnsupported = errors.New("input method not supported on this platform")
)

// Backend is one concrete controller API.
type Backend interface {
	State(index uint32) (uint32, error)
	Close() error
}

// Factory builds the backend for a method.
type Factory func(method model.InputMethod) Backend

// Dynamic forwards to the backend of the currently selected method and
// rebuilds it when the method changes. It is meant for a single goroutine.
type Dynamic struct {
	method  model.InputMethod
	backend Backend
	factory Factory
}

// NewDynamic selects method using the platform backends.
func NewDynamic(method model.InputMethod) *Dynamic {
	return NewDynamicWith(method, NewBackend)
}

// NewDynamicWith selects method using factory.
func NewDynamicWith(method model.InputMethod, factory Factory) *Dynamic {
	return &Dynamic{method: method, backend: factory(method), factory: factory}
}

// State returns the raw button bitmask for the controller at index.
func (d *Dynamic) State(index uint32) (uint32, error) {
	if d.backend == nil {
		return 0, ErrUnsupported
	}
	return d.backend.State(index)
}

// SetMethod swaps the backend. Selecting the current method is a no-op.
func (d *Dynamic) SetMethod(method model.InputMethod) {
	if method == d.method && d.backend != nil {
		return
	}
	if d.backend != nil {
		_ = d.backend.Close()
	}
	d.method = method
	d.backend = d.factory(method)
}

// Method reports the selected input method.
func (d *Dynamic) Method() model.InputMethod {
	return d.method
}

// Close releases the current backend.
func (d *Dynamic) Close() error {
	if d.backend == nil {
		return nil
	}
	err := d.backend.Close()
	d.backend = nil
	return err
}

type unsupported struct{}

func (unsupported) State(uint32) (uint32, error) { return 0, ErrUnsupported }
func (unsupported) Close() error                 { return nil }
