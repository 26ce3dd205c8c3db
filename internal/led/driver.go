// Package led holds the transports staging backends push frames through.
package led

import "errors"

// Driver abstracts an LED output sink.
type Driver interface {
	// Write pushes one frame to hardware. The frame holds LED count pixels
	// in the pixel format the driver was opened with.
	Write(frame []byte) error
	// Close releases resources.
	Close() error
}

var (
	ErrClosed      = errors.New("led: driver closed")
	ErrFrameSize   = errors.New("led: frame size does not match LED count")
	ErrFormat      = errors.New("led: pixel format not supported by transport")
	ErrUnsupported = errors.New("led: transport not supported on this platform")
)
