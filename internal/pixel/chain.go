package pixel

import "fmt"

// Chain is an ordered sequence of LED samples in one Format. The host owns it;
// backends only ever see read-only Views of it.
type Chain struct {
	format Format
	count  int
	buf    []byte
}

func NewChain(count int, f Format) (*Chain, error) {
	if count < 0 {
		return nil, fmt.Errorf("%w: negative LED count %d", ErrOutOfRange, count)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &Chain{format: f, count: count, buf: make([]byte, count*f.BytesPerPixel())}, nil
}

func (c *Chain) Format() Format { return c.format }
func (c *Chain) LEDCount() int  { return c.count }

// Bytes exposes the raw buffer so the host can render into it.
func (c *Chain) Bytes() []byte { return c.buf }

// SetPixel writes the encoded bytes of LED i.
func (c *Chain) SetPixel(i int, px []byte) error {
	bpp := c.format.BytesPerPixel()
	if i < 0 || i >= c.count {
		return fmt.Errorf("%w: pixel %d of %d", ErrOutOfRange, i, c.count)
	}
	if len(px) != bpp {
		return fmt.Errorf("%w: pixel has %d bytes, format %s needs %d", ErrFormat, len(px), c.format, bpp)
	}
	copy(c.buf[i*bpp:], px)
	return nil
}

// Fill sets every byte of the chain to b.
func (c *Chain) Fill(b byte) {
	for i := range c.buf {
		c.buf[i] = b
	}
}

// View returns count LEDs starting at LED offset.
func (c *Chain) View(count, offset int) (View, error) {
	if count < 0 || offset < 0 || offset+count > c.count {
		return View{}, fmt.Errorf("%w: %d LEDs at offset %d, chain has %d", ErrOutOfRange, count, offset, c.count)
	}
	bpp := c.format.BytesPerPixel()
	return View{b: c.buf[offset*bpp : (offset+count)*bpp : (offset+count)*bpp], bpp: bpp}, nil
}

// View is a read-only window into a Chain.
type View struct {
	b   []byte
	bpp int
}

// Len returns the number of bytes in the view.
func (v View) Len() int { return len(v.b) }

// Pixels returns the number of LEDs in the view.
func (v View) Pixels() int {
	if v.bpp == 0 {
		return 0
	}
	return len(v.b) / v.bpp
}

func (v View) BytesPerPixel() int { return v.bpp }

// At returns byte i of the view.
func (v View) At(i int) byte { return v.b[i] }

// CopyTo copies the view into dst and returns the number of bytes copied.
func (v View) CopyTo(dst []byte) int { return copy(dst, v.b) }
