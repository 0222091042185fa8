// Package registers provides an indexable facade over device register
// access callables, with single-address and range-batched reads and
// writes. Devices that expose a native batch entry point plug it in
// through an option; everything else falls back to per-address calls.
package registers

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRange is returned when a Range runs backwards.
	ErrInvalidRange = errors.New("invalid register range")

	// ErrValueCount is returned by SetRange and SetMulti when the number
	// of values does not match the number of addressed registers.
	ErrValueCount = errors.New("value count mismatch")
)

// Getter reads one register.
type Getter func(address uint32) (uint32, error)

// Setter writes one register.
type Setter func(address, value uint32) error

// MultiGetter reads a batch of registers in one native call.
type MultiGetter func(addresses []uint32) ([]uint32, error)

// MultiSetter writes a batch of registers in one native call.
type MultiSetter func(addresses, values []uint32) error

// Range addresses the half-open interval [Start, Stop) visited in Step
// increments. A zero Step means 1.
type Range struct {
	Start uint32
	Stop  uint32
	Step  uint32
}

// Addresses expands the range into the individual register addresses.
func (r Range) Addresses() ([]uint32, error) {
	if r.Stop < r.Start {
		return nil, fmt.Errorf("%w: [0x%X, 0x%X)", ErrInvalidRange, r.Start, r.Stop)
	}
	step := r.Step
	if step == 0 {
		step = 1
	}
	addresses := make([]uint32, 0, (r.Stop-r.Start)/step)
	for a := r.Start; a < r.Stop; a += step {
		addresses = append(addresses, a)
	}
	return addresses, nil
}

// Option customizes a Registers facade.
type Option func(*Registers)

// WithMultiGetter routes batched reads through one native call instead of
// the per-address fallback.
func WithMultiGetter(g MultiGetter) Option {
	return func(r *Registers) { r.multiGet = g }
}

// WithMultiSetter routes batched writes through one native call instead
// of the per-address fallback.
func WithMultiSetter(s MultiSetter) Option {
	return func(r *Registers) { r.multiSet = s }
}

// Registers wraps the access callables of one device.
type Registers struct {
	get      Getter
	set      Setter
	multiGet MultiGetter
	multiSet MultiSetter
}

// New builds a facade over the mandatory single-address callables.
func New(get Getter, set Setter, opts ...Option) *Registers {
	r := &Registers{get: get, set: set}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Get reads one register.
func (r *Registers) Get(address uint32) (uint32, error) {
	return r.get(address)
}

// Set writes one register.
func (r *Registers) Set(address, value uint32) error {
	return r.set(address, value)
}

// GetMulti reads the listed registers, through the batch callable when
// one is configured.
func (r *Registers) GetMulti(addresses []uint32) ([]uint32, error) {
	if r.multiGet != nil {
		return r.multiGet(addresses)
	}
	values := make([]uint32, len(addresses))
	for i, a := range addresses {
		v, err := r.get(a)
		if err != nil {
			return nil, fmt.Errorf("get register 0x%X: %w", a, err)
		}
		values[i] = v
	}
	return values, nil
}

// SetMulti writes the listed registers pairwise, through the batch
// callable when one is configured.
func (r *Registers) SetMulti(addresses, values []uint32) error {
	if len(values) != len(addresses) {
		return fmt.Errorf("%w: %d values for %d registers", ErrValueCount, len(values), len(addresses))
	}
	if r.multiSet != nil {
		return r.multiSet(addresses, values)
	}
	for i, a := range addresses {
		if err := r.set(a, values[i]); err != nil {
			return fmt.Errorf("set register 0x%X: %w", a, err)
		}
	}
	return nil
}

// GetRange reads every register the range addresses.
func (r *Registers) GetRange(rng Range) ([]uint32, error) {
	addresses, err := rng.Addresses()
	if err != nil {
		return nil, err
	}
	return r.GetMulti(addresses)
}

// SetRange writes every register the range addresses, one value each.
func (r *Registers) SetRange(rng Range, values []uint32) error {
	addresses, err := rng.Addresses()
	if err != nil {
		return err
	}
	return r.SetMulti(addresses, values)
}
