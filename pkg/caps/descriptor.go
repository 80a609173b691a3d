package caps

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/robotalks/rs4b/pkg/ident"
)

var (
	// ErrUnknownMethod indicates a method not declared by the descriptor.
	ErrUnknownMethod = errors.New("unknown method")
	// ErrUnknownProp indicates a property not declared by the descriptor.
	ErrUnknownProp = errors.New("unknown property")
)

// MethodSet is an ordered set of method names.
type MethodSet []string

// Has checks if name is in the set.
func (s MethodSet) Has(name string) bool {
	for _, m := range s {
		if m == name {
			return true
		}
	}
	return false
}

// Prop is a property name and its type name.
type Prop struct {
	Name string
	Type string
}

// PropSet is an ordered mapping of property name to type name.
type PropSet []Prop

// Type looks up the type name of a property.
func (s PropSet) Type(name string) (string, bool) {
	for _, p := range s {
		if p.Name == name {
			return p.Type, true
		}
	}
	return "", false
}

// Map returns the properties as a plain map.
func (s PropSet) Map() map[string]string {
	m := make(map[string]string, len(s))
	for _, p := range s {
		m[p.Name] = p.Type
	}
	return m
}

// Descriptor is the self-description of a device.
// It must not be modified once built.
type Descriptor struct {
	UUID    ident.ID
	Type    string
	Methods MethodSet
	Props   PropSet
}

// New builds a validated Descriptor.
func New(id ident.ID, typ string, methods []string, props []Prop) (*Descriptor, error) {
	d := &Descriptor{
		UUID:    id,
		Type:    typ,
		Methods: append(MethodSet(nil), methods...),
		Props:   append(PropSet(nil), props...),
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// Validate reports every violation found in the descriptor.
func (d *Descriptor) Validate() error {
	var errs *multierror.Error
	if _, err := ident.Parse(string(d.UUID)); err != nil {
		errs = multierror.Append(errs, err)
	}
	if d.Type == "" {
		errs = multierror.Append(errs, errors.New("type is required"))
	}
	seen := make(map[string]bool, len(d.Methods))
	for n, m := range d.Methods {
		if m == "" {
			errs = multierror.Append(errs, fmt.Errorf("methods[%d]: empty name", n))
		} else if seen[m] {
			errs = multierror.Append(errs, fmt.Errorf("methods[%d]: duplicated %q", n, m))
		}
		seen[m] = true
	}
	seen = make(map[string]bool, len(d.Props))
	for n, p := range d.Props {
		if p.Name == "" {
			errs = multierror.Append(errs, fmt.Errorf("props[%d]: empty name", n))
		} else if seen[p.Name] {
			errs = multierror.Append(errs, fmt.Errorf("props[%d]: duplicated %q", n, p.Name))
		}
		if p.Type == "" {
			errs = multierror.Append(errs, fmt.Errorf("props[%d]: %q has no type", n, p.Name))
		}
		seen[p.Name] = true
	}
	return errs.ErrorOrNil()
}

// CheckMethod rejects methods outside the descriptor.
func (d *Descriptor) CheckMethod(name string) error {
	if !d.Methods.Has(name) {
		return fmt.Errorf("%w: %q", ErrUnknownMethod, name)
	}
	return nil
}

// CheckProp rejects properties outside the descriptor.
func (d *Descriptor) CheckProp(name string) error {
	if _, ok := d.Props.Type(name); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownProp, name)
	}
	return nil
}

// WithUUID returns a copy bound to another device.
func (d *Descriptor) WithUUID(id ident.ID) (*Descriptor, error) {
	return New(id, d.Type, d.Methods, d.Props)
}

// Default declaration of a generic switchable light.
const (
	DefaultType = "set_generic"
)

// Default returns the descriptor used when none is declared.
func Default(id ident.ID) (*Descriptor, error) {
	return New(id, DefaultType,
		[]string{"SET_LIGHT", "GET_LIGHT"},
		[]Prop{{Name: "light", Type: "bool"}})
}
