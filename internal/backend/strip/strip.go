// Package strip implements staging backends: Send copies LEDs into the
// instance buffer, Show writes the whole buffer to a led.Driver opened by
// HWInit. The families only differ in how they open that driver and in the
// property they register.
package strip

import (
	"fmt"

	"github.com/coreman2200/ledhal/internal/hal"
	"github.com/coreman2200/ledhal/internal/led"
	"github.com/coreman2200/ledhal/internal/pixel"
	"github.com/coreman2200/ledhal/internal/settings"
)

// Opener opens the transport of inst for count LEDs of format f. The
// instance properties are already parsed and can be read from inst.
type Opener func(inst *hal.Instance, id hal.DeviceID, f pixel.Format, count int) (led.Driver, error)

// Family describes one staging backend.
type Family struct {
	Name        string
	Description string
	IDExample   string
	Ext         hal.Extension
	Open        Opener
	// Accept vets the chain format at HWInit; nil accepts everything.
	Accept func(pixel.Format) error
}

// BrightnessField, when an extension declares it, scales every frame by
// value/255 at Show. See also WhiteCapField and BudgetField.
const BrightnessField = "brightness"

type Backend struct {
	fam Family
}

func New(f Family) *Backend { return &Backend{fam: f} }

func (b *Backend) Descriptor() hal.Descriptor {
	return hal.Descriptor{
		Family:      b.fam.Name,
		APIVersion:  hal.APIVersion,
		Version:     hal.Version{Major: 0, Minor: 1, Micro: 0},
		License:     "GPL",
		Author:      "coreman2200",
		Description: b.fam.Description,
		URL:         "https://github.com/coreman2200/ledhal",
		IDExample:   b.fam.IDExample,
	}
}

func (b *Backend) Init(reg *settings.Registry, hw *hal.Hardware) (*hal.Instance, error) {
	return hal.InitInstance(reg, hw, b, b.fam.Ext)
}

func (b *Backend) Deinit(reg *settings.Registry, inst *hal.Instance) error {
	return hal.DeinitInstance(reg, inst)
}

func (b *Backend) HWInit(inst *hal.Instance, id string) error {
	if err := inst.Err(); err != nil {
		return err
	}
	if inst.Device() != nil {
		return fmt.Errorf("%w: device already open", hal.ErrInUse)
	}
	did, err := hal.ParseDeviceID(id)
	if err != nil {
		return err
	}
	chain := inst.Hardware().Chain()
	if chain == nil {
		return fmt.Errorf("%w: no chain", hal.ErrInvalidArgument)
	}
	f := chain.Format()
	if b.fam.Accept != nil {
		if err := b.fam.Accept(f); err != nil {
			return fmt.Errorf("%w: %s: %v", hal.ErrUnsupportedFormat, f, err)
		}
	}
	drv, err := b.fam.Open(inst, did, f, inst.LEDCount())
	if err != nil {
		return fmt.Errorf("open %s %s: %w", b.fam.Name, did, err)
	}
	inst.SetID(did)
	inst.Attach(drv)
	inst.Logger().Info().Str("id", did.String()).Stringer("format", f).Int("leds", inst.LEDCount()).Msg("transport open")
	return nil
}

func (b *Backend) HWDeinit(inst *hal.Instance) {
	if inst.Err() != nil {
		return
	}
	if d := inst.Detach(); d != nil {
		if err := d.Close(); err != nil {
			inst.Logger().Warn().Err(err).Msg("closing transport")
		}
	}
}

func (b *Backend) Get(inst *hal.Instance, kind hal.ObjectKind) (hal.Value, error) {
	return hal.GetState(inst, kind)
}

// Set refuses LED count changes while the transport is open, it was sized at
// HWInit.
func (b *Backend) Set(inst *hal.Instance, kind hal.ObjectKind, v hal.Value) error {
	if kind == hal.KindLEDCount && inst.Err() == nil && inst.Device() != nil {
		return fmt.Errorf("%w: ledcount while transport open", hal.ErrInUse)
	}
	return hal.SetState(inst, kind, v)
}

func (b *Backend) Send(inst *hal.Instance, chain hal.Chain, count, offset int) error {
	if err := inst.Err(); err != nil {
		return err
	}
	if chain == nil {
		return fmt.Errorf("%w: no chain", hal.ErrInvalidArgument)
	}
	if count == 0 {
		return nil
	}
	if inst.Device() == nil {
		return hal.ErrNoDevice
	}
	v, err := chain.View(count, offset)
	if err != nil {
		return err
	}
	if err := inst.Stage(v, offset); err != nil {
		return err
	}
	inst.Logger().Trace().Int("count", count).Int("offset", offset).Msg("staged")
	return nil
}

// Show writes the staging buffer. A failed write leaves the buffer staged so
// the next Show retries the same frame.
func (b *Backend) Show(inst *hal.Instance) error {
	if err := inst.Err(); err != nil {
		return err
	}
	d := inst.Device()
	if d == nil {
		return hal.ErrNoDevice
	}
	frame := inst.Staged()
	if len(frame) == 0 {
		return nil
	}
	frame = b.adjust(inst, frame)
	if err := d.Write(frame); err != nil {
		inst.Logger().Error().Err(err).Msg("show failed")
		return err
	}
	return nil
}

// adjust applies brightness and the power limiter to a copy of frame when
// the family declares them. The staged buffer is never modified.
func (b *Backend) adjust(inst *hal.Instance, frame []byte) []byte {
	prop := b.fam.Ext.Property
	lvl, lerr := inst.PropInt(prop, BrightnessField)
	whiteCap, werr := inst.PropInt(prop, WhiteCapField)
	budget, berr := inst.PropInt(prop, BudgetField)
	dim := lerr == nil && lvl < 255
	capped := werr == nil && berr == nil && (whiteCap < 100 || budget > 0)
	if !dim && !capped {
		return frame
	}
	out := make([]byte, len(frame))
	copy(out, frame)
	if dim {
		for i, v := range out {
			out[i] = byte(int(v) * lvl / 255)
		}
	}
	if capped {
		limit(out, inst.Hardware().Chain().Format().NumComponents(), whiteCap, budget)
	}
	return out
}
