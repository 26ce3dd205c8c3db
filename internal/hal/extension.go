package hal

import (
	"fmt"
	"strings"

	"github.com/coreman2200/ledhal/internal/settings"
)

// Field declares one sub-property of a backend property.
type Field struct {
	Name string
	Type settings.Type
	// Str or Int is the default, depending on Type.
	Str   string
	Int   int
	Check func(settings.Prop) error
}

// Extension declares the property a backend adds to the configuration tree.
type Extension struct {
	Property string
	Fields   []Field
}

// Defaults builds the property node holding every field's default.
func (e Extension) Defaults() (*settings.Node, error) {
	return settings.Build(e.Property, func(n *settings.Node) error {
		for _, f := range e.Fields {
			var err error
			switch f.Type {
			case settings.TypeInt:
				err = n.SetInt(f.Name, f.Int)
			case settings.TypeString:
				err = n.SetString(f.Name, f.Str)
			default:
				err = fmt.Errorf("%w: field %s has type %s", settings.ErrWrongType, f.Name, f.Type)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// Parse reads and validates every declared field of n. It returns a fresh
// node with exactly the declared fields, or an error and nothing.
func (e Extension) Parse(n *settings.Node) (*settings.Node, error) {
	return settings.Build(e.Property, func(out *settings.Node) error {
		for _, f := range e.Fields {
			var p settings.Prop
			switch f.Type {
			case settings.TypeInt:
				v, err := n.Int(f.Name)
				if err != nil {
					return err
				}
				p = settings.Prop{Name: f.Name, Type: f.Type, Int: v}
			case settings.TypeString:
				v, err := n.String(f.Name)
				if err != nil {
					return err
				}
				p = settings.Prop{Name: f.Name, Type: f.Type, Str: v}
			default:
				return fmt.Errorf("%w: field %s has type %s", settings.ErrWrongType, f.Name, f.Type)
			}
			if f.Check != nil {
				if err := f.Check(p); err != nil {
					return fmt.Errorf("%s.%s: %w", e.Property, f.Name, err)
				}
			}
			if p.Type == settings.TypeInt {
				if err := out.SetInt(p.Name, p.Int); err != nil {
					return err
				}
			} else if err := out.SetString(p.Name, p.Str); err != nil {
				return err
			}
		}
		return nil
	})
}

// NonNegative accepts integers >= 0.
func NonNegative(p settings.Prop) error {
	if p.Int < 0 {
		return fmt.Errorf("%w: %d is negative", settings.ErrInvalid, p.Int)
	}
	return nil
}

// NonEmpty accepts non-blank strings.
func NonEmpty(p settings.Prop) error {
	if strings.TrimSpace(p.Str) == "" {
		return fmt.Errorf("%w: empty", settings.ErrInvalid)
	}
	return nil
}

// IntRange accepts integers in [lo, hi].
func IntRange(lo, hi int) func(settings.Prop) error {
	return func(p settings.Prop) error {
		if p.Int < lo || p.Int > hi {
			return fmt.Errorf("%w: %d not in [%d, %d]", settings.ErrInvalid, p.Int, lo, hi)
		}
		return nil
	}
}

// OneOf accepts one of the listed strings.
func OneOf(values ...string) func(settings.Prop) error {
	return func(p settings.Prop) error {
		for _, v := range values {
			if p.Str == v {
				return nil
			}
		}
		return fmt.Errorf("%w: %q not one of %s", settings.ErrInvalid, p.Str, strings.Join(values, ", "))
	}
}
