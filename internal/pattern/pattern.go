// Package pattern paints bring-up test patterns into a pixel chain, one step
// per frame.
package pattern

import (
	"fmt"

	"github.com/coreman2200/ledhal/internal/layout"
	"github.com/coreman2200/ledhal/internal/pixel"
)

type Kind string

const (
	None       Kind = ""
	IndexSweep Kind = "index_sweep"
	RGBTest    Kind = "rgb_channels"
	PlaneZ     Kind = "plane_z"
	PlaneX     Kind = "plane_x"
)

var kinds = []Kind{IndexSweep, RGBTest, PlaneZ, PlaneX}

// Kinds lists the known patterns.
func Kinds() []Kind { return append([]Kind(nil), kinds...) }

func ParseKind(s string) (Kind, error) {
	for _, k := range kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return None, fmt.Errorf("unknown pattern %q", s)
}

type Runner struct {
	kind Kind
	step int
}

func NewRunner(k Kind) *Runner { return &Runner{kind: k} }
func (r *Runner) Kind() Kind   { return r.kind }

// Steps is the number of frames the pattern lasts on l.
func (r *Runner) Steps(l layout.Layout) int {
	switch r.kind {
	case IndexSweep:
		return l.Count()
	case RGBTest:
		return 3
	case PlaneZ:
		return l.Dim.Z
	case PlaneX:
		return l.Dim.X
	}
	return 0
}

// Step clears c and paints the next frame; returns false when complete.
// Channels are addressed by letter so any format works; greyscale chains
// light Y for every color.
func (r *Runner) Step(l layout.Layout, c *pixel.Chain) bool {
	if r.step >= r.Steps(l) {
		return false
	}
	c.Fill(0)
	n := c.LEDCount()
	switch r.kind {
	case IndexSweep:
		if r.step < n {
			paint(c, r.step, "RGBWY")
		}
	case RGBTest:
		ch := "RGB"[r.step : r.step+1]
		for i := 0; i < n; i++ {
			paint(c, i, ch+"Y")
		}
	case PlaneZ:
		for y := 0; y < l.Dim.Y; y++ {
			for x := 0; x < l.Dim.X; x++ {
				paint(c, l.Index(x, y, r.step), "GBY") // cyan
			}
		}
	case PlaneX:
		for z := 0; z < l.Dim.Z; z++ {
			for y := 0; y < l.Dim.Y; y++ {
				paint(c, l.Index(r.step, y, z), "RBY") // magenta
			}
		}
	}
	r.step++
	return true
}

// paint sets every channel of LED i named in chans to full scale.
func paint(c *pixel.Chain, i int, chans string) {
	f := c.Format()
	bpp := f.BytesPerPixel()
	if i < 0 || i >= c.LEDCount() {
		return
	}
	size := f.Type.Size()
	px := c.Bytes()[i*bpp : i*bpp+bpp]
	for k := 0; k < len(f.Components); k++ {
		for j := 0; j < len(chans); j++ {
			if f.Components[k] == chans[j] {
				for b := 0; b < size; b++ {
					px[k*size+b] = 0xff
				}
			}
		}
	}
}
