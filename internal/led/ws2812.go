package led

import (
	"fmt"
	"io"
	"sync"

	"github.com/coreman2200/ledhal/internal/pixel"
)

// WS2812 encodes pixels for WS2812 LEDs clocked from an SPI bus: every data
// bit becomes three SPI bits, 0b110 for one and 0b100 for zero, MSB first.
// speeds in the 2.4-3.2 MHz range fit the LED timing.
type WS2812 struct {
	idx   []int
	bpp   int
	reset int
	// byte -> 24 encoded bits
	lut [256][3]byte
}

// NewWS2812 prepares an encoder reading pixels of src and emitting channels
// in wire order, e.g. "GRB". resetUs is the latch time, 300-400µs is safe.
func NewWS2812(src pixel.Format, wire string, resetUs int) (*WS2812, error) {
	if wire == "" {
		wire = "GRB"
	}
	idx, err := channelMap(src, wire)
	if err != nil {
		return nil, err
	}
	if resetUs <= 0 {
		resetUs = 300
	}
	e := &WS2812{idx: idx, bpp: src.BytesPerPixel()}
	// one latch byte lasts about 3.3µs at 2.4MHz
	e.reset = (resetUs + 2) / 3
	if e.reset < 128 {
		e.reset = 128
	}
	for v := 0; v < 256; v++ {
		out := uint32(0)
		for i := 7; i >= 0; i-- {
			tri := uint32(0b100)
			if (v>>i)&1 == 1 {
				tri = 0b110
			}
			out = out<<3 | tri
		}
		e.lut[v] = [3]byte{byte(out >> 16), byte(out >> 8), byte(out)}
	}
	return e, nil
}

// EncodedLen is the size of the encoded stream for n pixels, latch excluded.
func (e *WS2812) EncodedLen(n int) int { return n * len(e.idx) * 3 }

// LatchLen is the number of zero bytes sent after each frame.
func (e *WS2812) LatchLen() int { return e.reset }

// Encode writes the encoding of frame into dst, which must hold
// EncodedLen(pixels) bytes.
func (e *WS2812) Encode(dst, frame []byte) {
	n := len(e.idx)
	px := make([]byte, n)
	for p := 0; p*e.bpp < len(frame); p++ {
		reorder(px, frame[p*e.bpp:p*e.bpp+e.bpp], e.bpp, e.idx)
		for i, v := range px {
			copy(dst[(p*n+i)*3:], e.lut[v][:])
		}
	}
}

// SPI drives a WS2812 strip through a raw spidev file.
type SPI struct {
	mu    sync.Mutex
	w     io.WriteCloser
	enc   *WS2812
	count int
	buf   []byte
	latch []byte
}

func newSPI(w io.WriteCloser, enc *WS2812, count int) *SPI {
	return &SPI{
		w:     w,
		enc:   enc,
		count: count,
		buf:   make([]byte, enc.EncodedLen(count)),
		latch: make([]byte, enc.LatchLen()),
	}
}

func (s *SPI) Write(frame []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.w == nil {
		return ErrClosed
	}
	if len(frame) != s.count*s.enc.bpp {
		return fmt.Errorf("%w: %d bytes for %d LEDs", ErrFrameSize, len(frame), s.count)
	}
	s.enc.Encode(s.buf, frame)
	if _, err := s.w.Write(s.buf); err != nil {
		return fmt.Errorf("spi write: %w", err)
	}
	if _, err := s.w.Write(s.latch); err != nil {
		return fmt.Errorf("spi latch: %w", err)
	}
	return nil
}

func (s *SPI) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.w == nil {
		return nil
	}
	err := s.w.Close()
	s.w = nil
	return err
}

// SPIConfig selects a spidev node and the strip behind it.
type SPIConfig struct {
	Device  string
	Count   int
	Format  pixel.Format
	Order   string
	SpeedHz int
	ResetUs int
}
