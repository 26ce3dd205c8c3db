// Package hal is the contract between the LED core and its hardware backends:
// backend descriptors and the family loader, instance lifecycle, property
// extension, generic object access and pixel transfer.
package hal

import (
	"fmt"

	"github.com/coreman2200/ledhal/internal/pixel"
	"github.com/coreman2200/ledhal/internal/settings"
)

// APIVersion is the contract version every backend must be built against.
const APIVersion = 1

// Version is a backend's own major.minor.micro version.
type Version struct {
	Major, Minor, Micro int
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Micro)
}

// Descriptor is the static metadata of a backend.
type Descriptor struct {
	Family      string
	APIVersion  int
	Version     Version
	License     string
	Author      string
	Description string
	URL         string
	// IDExample tells users what a device id looks like for this backend.
	IDExample string
}

// Chain is the host pixel chain as backends see it.
type Chain interface {
	Format() pixel.Format
	LEDCount() int
	View(count, offset int) (pixel.View, error)
}

// Device is an open output device owned by an Instance between HWInit and HWDeinit.
type Device interface {
	Write(frame []byte) error
	Close() error
}

// Backend drives one family of output hardware. The host calls it for one
// Instance at a time and never re-enters it.
type Backend interface {
	Descriptor() Descriptor

	// Init allocates an Instance for hw and registers its property bindings in reg.
	Init(reg *settings.Registry, hw *Hardware) (*Instance, error)
	// Deinit removes the bindings of inst and releases it.
	Deinit(reg *settings.Registry, inst *Instance) error

	// HWInit binds inst to the device called id (AnyDevice for any).
	HWInit(inst *Instance, id string) error
	// HWDeinit releases what HWInit opened.
	HWDeinit(inst *Instance)

	Get(inst *Instance, kind ObjectKind) (Value, error)
	Set(inst *Instance, kind ObjectKind, v Value) error

	// Send transfers count LEDs starting at offset from chain toward the device.
	// A failed Send may already have reached the device partially.
	Send(inst *Instance, chain Chain, count, offset int) error
	// Show latches previously sent data onto the LEDs.
	Show(inst *Instance) error
}
