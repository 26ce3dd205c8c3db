// Package pixel holds the host-side pixel chain: the negotiated pixel format
// and the buffer backends read from when data is sent to a device.
package pixel

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrFormat     = errors.New("invalid pixel format")
	ErrOutOfRange = errors.New("range outside chain")
)

// ComponentType is the storage type of one color component.
type ComponentType int

const (
	U8 ComponentType = iota + 1
	U16
)

func (t ComponentType) String() string {
	switch t {
	case U8:
		return "u8"
	case U16:
		return "u16"
	default:
		return fmt.Sprintf("ComponentType(%d)", int(t))
	}
}

// Size returns the number of bytes a component of this type occupies.
func (t ComponentType) Size() int {
	switch t {
	case U8:
		return 1
	case U16:
		return 2
	default:
		return 0
	}
}

// componentLetters are the channel names a format may use. Y is greyscale.
const componentLetters = "RGBWY"

// Format describes how a single LED is encoded, e.g. "RGB u8".
type Format struct {
	Components string
	Type       ComponentType
}

var (
	RGBu8  = Format{Components: "RGB", Type: U8}
	GRBu8  = Format{Components: "GRB", Type: U8}
	RGBWu8 = Format{Components: "RGBW", Type: U8}
	Yu8    = Format{Components: "Y", Type: U8}
)

// NumComponents returns the number of channels per LED.
func (f Format) NumComponents() int { return len(f.Components) }

// BytesPerPixel returns the encoded size of one LED.
func (f Format) BytesPerPixel() int { return f.NumComponents() * f.Type.Size() }

func (f Format) String() string { return f.Components + " " + f.Type.String() }

// Validate reports whether f names known, non-repeating channels and a known type.
func (f Format) Validate() error {
	if f.Components == "" {
		return fmt.Errorf("%w: no components", ErrFormat)
	}
	if f.Type.Size() == 0 {
		return fmt.Errorf("%w: %s", ErrFormat, f.Type)
	}
	seen := map[rune]bool{}
	for _, c := range f.Components {
		if !strings.ContainsRune(componentLetters, c) {
			return fmt.Errorf("%w: unknown component %q", ErrFormat, c)
		}
		if seen[c] {
			return fmt.Errorf("%w: duplicate component %q", ErrFormat, c)
		}
		seen[c] = true
	}
	return nil
}

// ParseFormat parses strings like "RGB u8" or "Y u16".
func ParseFormat(s string) (Format, error) {
	fields := strings.Fields(s)
	if len(fields) != 2 {
		return Format{}, fmt.Errorf("%w: %q", ErrFormat, s)
	}
	f := Format{Components: strings.ToUpper(fields[0])}
	switch strings.ToLower(fields[1]) {
	case "u8":
		f.Type = U8
	case "u16":
		f.Type = U16
	default:
		return Format{}, fmt.Errorf("%w: unknown type %q", ErrFormat, fields[1])
	}
	if err := f.Validate(); err != nil {
		return Format{}, err
	}
	return f, nil
}
