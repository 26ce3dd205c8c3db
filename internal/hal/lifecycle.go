package hal

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/coreman2200/ledhal/internal/settings"
)

// InitInstance allocates the Instance of b on hw and registers the two
// bindings of ext: an apply binding on hw.PropName(ext.Property) anchored at
// the instance, and a serialize binding anchored at b. If anything fails, all
// bindings made so far are removed and no instance is returned.
func InitInstance(reg *settings.Registry, hw *Hardware, b Backend, ext Extension) (*Instance, error) {
	if reg == nil || hw == nil || b == nil {
		return nil, fmt.Errorf("%w: init needs a registry, hardware and backend", ErrInvalidArgument)
	}
	defaults, err := ext.Defaults()
	if err != nil {
		return nil, err
	}

	inst := &Instance{
		Session: uuid.New(),
		backend: b,
		hw:      hw,
		props:   map[string]*settings.Node{ext.Property: defaults},
	}
	if ch := hw.Chain(); ch != nil {
		inst.ledCount = ch.LEDCount()
	}
	inst.log = hw.Logger().With().Str("session", inst.Session.String()).Logger()

	name := hw.PropName(ext.Property)
	err = reg.RegisterApply(inst, name, func(n *settings.Node) error {
		return inst.applyProp(ext, n)
	})
	if err != nil {
		return nil, fmt.Errorf("register %s: %w", name, err)
	}
	inst.bindings = append(inst.bindings, binding{anchor: inst, name: name})

	err = reg.RegisterSerialize(b, func() (*settings.Node, error) {
		return inst.serializeProp(ext)
	})
	if err != nil {
		inst.unbind(reg)
		return nil, fmt.Errorf("register %s getter: %w", ext.Property, err)
	}
	inst.bindings = append(inst.bindings, binding{anchor: b, serialize: true})

	inst.log.Info().Str("property", name).Msg("instance initialized")
	return inst, nil
}

// DeinitInstance removes the bindings of inst in reverse order and releases
// it. A second call fails with ErrReleased.
func DeinitInstance(reg *settings.Registry, inst *Instance) error {
	if err := inst.check(); err != nil {
		return err
	}
	if reg == nil {
		return fmt.Errorf("%w: deinit needs a registry", ErrInvalidArgument)
	}
	err := inst.unbind(reg)
	if d := inst.Detach(); d != nil {
		if cerr := d.Close(); cerr != nil {
			inst.log.Warn().Err(cerr).Msg("closing device left open at deinit")
		}
	}
	inst.released = true
	inst.props = nil
	inst.stage = nil
	inst.log.Info().Msg("instance released")
	return err
}

func (i *Instance) unbind(reg *settings.Registry) error {
	var errs []error
	for k := len(i.bindings) - 1; k >= 0; k-- {
		b := i.bindings[k]
		if b.serialize {
			errs = append(errs, reg.UnregisterSerialize(b.anchor))
		} else {
			errs = append(errs, reg.UnregisterApply(b.anchor, b.name))
		}
	}
	i.bindings = nil
	return errors.Join(errs...)
}

func (i *Instance) applyProp(ext Extension, n *settings.Node) error {
	if err := i.check(); err != nil {
		return err
	}
	parsed, err := ext.Parse(n)
	if err != nil {
		i.log.Debug().Err(err).Str("property", ext.Property).Msg("property rejected")
		return err
	}
	i.props[ext.Property] = parsed
	for _, p := range parsed.Props() {
		ev := i.log.Debug().Str("property", ext.Property).Str("field", p.Name)
		if p.Type == settings.TypeInt {
			ev = ev.Int("value", p.Int)
		} else {
			ev = ev.Str("value", p.Str)
		}
		ev.Msg("property set")
	}
	return nil
}

func (i *Instance) serializeProp(ext Extension) (*settings.Node, error) {
	if err := i.check(); err != nil {
		return nil, err
	}
	cur := i.props[ext.Property]
	return settings.Build(ext.Property, func(n *settings.Node) error {
		for _, f := range ext.Fields {
			var err error
			switch f.Type {
			case settings.TypeInt:
				var v int
				if v, err = cur.Int(f.Name); err == nil {
					err = n.SetInt(f.Name, v)
				}
			default:
				var v string
				if v, err = cur.String(f.Name); err == nil {
					err = n.SetString(f.Name, v)
				}
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
}
