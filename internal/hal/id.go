package hal

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// MaxIDLen is the longest device id in bytes.
	MaxIDLen = 1023
	// AnyDevice asks the backend to pick any device it can drive.
	AnyDevice = "*"
)

// DeviceID is a validated device identifier. The zero value means unbound.
type DeviceID struct {
	s string
}

// ParseDeviceID trims surrounding whitespace and validates s. Identifiers
// longer than MaxIDLen are rejected, never truncated.
func ParseDeviceID(s string) (DeviceID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DeviceID{}, fmt.Errorf("%w: empty", ErrMalformedID)
	}
	if len(s) > MaxIDLen {
		return DeviceID{}, fmt.Errorf("%w: %d bytes, max %d", ErrIDTooLong, len(s), MaxIDLen)
	}
	if !utf8.ValidString(s) {
		return DeviceID{}, fmt.Errorf("%w: not valid UTF-8", ErrMalformedID)
	}
	for _, r := range s {
		if unicode.IsControl(r) {
			return DeviceID{}, fmt.Errorf("%w: control character %U", ErrMalformedID, r)
		}
	}
	return DeviceID{s: s}, nil
}

func (id DeviceID) String() string   { return id.s }
func (id DeviceID) IsZero() bool     { return id.s == "" }
func (id DeviceID) IsWildcard() bool { return id.s == AnyDevice }
