package hal

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/coreman2200/ledhal/internal/pixel"
	"github.com/coreman2200/ledhal/internal/settings"
)

// Instance is the state of one bound hardware endpoint. It is created by
// InitInstance, owned by the hardware that initialized it, and released by
// DeinitInstance.
type Instance struct {
	// Session correlates log lines of one Init..Deinit lifetime.
	Session uuid.UUID

	backend  Backend
	hw       *Hardware
	log      zerolog.Logger
	id       DeviceID
	ledCount int
	props    map[string]*settings.Node
	dev      Device
	stage    []byte
	bindings []binding
	released bool
}

type binding struct {
	anchor    any
	name      string
	serialize bool
}

func (i *Instance) check() error {
	if i == nil {
		return ErrNotInitialized
	}
	if i.released {
		return ErrReleased
	}
	return nil
}

// Err reports ErrNotInitialized or ErrReleased when i can no longer be used.
func (i *Instance) Err() error { return i.check() }

func (i *Instance) Hardware() *Hardware     { return i.hw }
func (i *Instance) Logger() *zerolog.Logger { return &i.log }
func (i *Instance) ID() DeviceID            { return i.id }
func (i *Instance) LEDCount() int           { return i.ledCount }
func (i *Instance) Released() bool          { return i.released }

// SetID stores an already validated device id.
func (i *Instance) SetID(id DeviceID) { i.id = id }

func (i *Instance) SetLEDCount(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: LED count %d", ErrInvalidValue, n)
	}
	i.ledCount = n
	return nil
}

// Prop returns a copy of the applied values of the backend property name, or
// nil if the backend declared no such property.
func (i *Instance) Prop(name string) *settings.Node {
	return i.props[name].Clone()
}

// PropInt reads one integer field of an applied backend property.
func (i *Instance) PropInt(prop, field string) (int, error) {
	n, ok := i.props[prop]
	if !ok {
		return 0, fmt.Errorf("%w: %s", settings.ErrNoProperty, prop)
	}
	return n.Int(field)
}

// PropString reads one string field of an applied backend property.
func (i *Instance) PropString(prop, field string) (string, error) {
	n, ok := i.props[prop]
	if !ok {
		return "", fmt.Errorf("%w: %s", settings.ErrNoProperty, prop)
	}
	return n.String(field)
}

// Device returns the device opened by HWInit, or nil.
func (i *Instance) Device() Device { return i.dev }

// Attach hands an opened device to the instance.
func (i *Instance) Attach(d Device) { i.dev = d }

// Detach takes the device back from the instance so it can be closed.
func (i *Instance) Detach() Device {
	d := i.dev
	i.dev = nil
	return d
}

// Stage copies v into the staging buffer at LED offset. The buffer holds
// LEDCount pixels and is resized when the count or pixel size changes.
func (i *Instance) Stage(v pixel.View, offset int) error {
	bpp := v.BytesPerPixel()
	if need := i.ledCount * bpp; len(i.stage) != need {
		next := make([]byte, need)
		copy(next, i.stage)
		i.stage = next
	}
	start := offset * bpp
	if offset < 0 || start+v.Len() > len(i.stage) {
		return fmt.Errorf("%w: %d LEDs at offset %d, instance drives %d", pixel.ErrOutOfRange, v.Pixels(), offset, i.ledCount)
	}
	v.CopyTo(i.stage[start:])
	return nil
}

// Staged returns the staging buffer. Callers must not keep it past the call.
func (i *Instance) Staged() []byte { return i.stage }
