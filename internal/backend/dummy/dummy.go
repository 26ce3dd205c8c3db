// Package dummy is the reference backend. It accepts any device id and any
// pixel format, keeps nothing but the shared instance state and, at debug
// level, dumps what it is sent.
package dummy

import (
	"fmt"

	"github.com/coreman2200/ledhal/internal/diagnostics"
	"github.com/coreman2200/ledhal/internal/hal"
	"github.com/coreman2200/ledhal/internal/settings"
)

const Family = "dummy"

// Ext is the "foo" property every dummy hardware registers.
var Ext = hal.Extension{
	Property: "foo",
	Fields: []hal.Field{
		{Name: "bar", Type: settings.TypeString, Str: "foobar", Check: hal.NonEmpty},
		{Name: "baz", Type: settings.TypeInt, Int: 256, Check: hal.NonNegative},
	},
}

// Backend anchors its serialize binding on itself, so every New must
// return a distinct pointer; a zero-size struct would not.
type Backend struct {
	_ byte
}

func New() *Backend { return &Backend{} }

func (b *Backend) Descriptor() hal.Descriptor {
	return hal.Descriptor{
		Family:      Family,
		APIVersion:  hal.APIVersion,
		Version:     hal.Version{Major: 0, Minor: 0, Micro: 1},
		License:     "GPL",
		Author:      "coreman2200",
		Description: "Dummy hardware to exercise the host and as a reference",
		URL:         "https://github.com/coreman2200/ledhal",
		IDExample:   "any printable string",
	}
}

func (b *Backend) Init(reg *settings.Registry, hw *hal.Hardware) (*hal.Instance, error) {
	return hal.InitInstance(reg, hw, b, Ext)
}

func (b *Backend) Deinit(reg *settings.Registry, inst *hal.Instance) error {
	return hal.DeinitInstance(reg, inst)
}

func (b *Backend) HWInit(inst *hal.Instance, id string) error {
	if err := inst.Err(); err != nil {
		return err
	}
	did, err := hal.ParseDeviceID(id)
	if err != nil {
		return err
	}
	inst.SetID(did)
	log := inst.Logger()
	if ch := inst.Hardware().Chain(); ch != nil {
		log.Info().Stringer("format", ch.Format()).Msg("using pixel format")
	}
	log.Debug().Str("id", did.String()).Msg("dummy hardware initialized")
	return nil
}

func (b *Backend) HWDeinit(inst *hal.Instance) {
	if inst.Err() != nil {
		return
	}
	inst.Logger().Debug().Msg("dummy hardware deinitialized")
}

func (b *Backend) Get(inst *hal.Instance, kind hal.ObjectKind) (hal.Value, error) {
	return hal.GetState(inst, kind)
}

func (b *Backend) Set(inst *hal.Instance, kind hal.ObjectKind, v hal.Value) error {
	return hal.SetState(inst, kind, v)
}

// Send has no hardware to talk to. At debug level it logs the bytes of the
// transferred LEDs.
func (b *Backend) Send(inst *hal.Instance, chain hal.Chain, count, offset int) error {
	if err := inst.Err(); err != nil {
		return err
	}
	if chain == nil {
		return fmt.Errorf("%w: no chain", hal.ErrInvalidArgument)
	}
	log := inst.Logger()
	log.Trace().Msg("sending dummy data")
	if count == 0 {
		return nil
	}
	v, err := chain.View(count, offset)
	if err != nil {
		return err
	}
	diagnostics.HexDump(log, v)
	log.Debug().Int("leds", v.Pixels()).Msg("sent LED values to dummy hardware")
	return nil
}

func (b *Backend) Show(inst *hal.Instance) error {
	if err := inst.Err(); err != nil {
		return err
	}
	inst.Logger().Debug().Msg("showing dummy data")
	return nil
}
