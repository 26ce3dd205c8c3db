package layout

import "fmt"

type Dim struct{ X, Y, Z int }

type Serpentine struct {
	XFlipEveryRow   bool
	YFlipEveryPanel bool
}

// Layout maps a cube (or a plain strip, Y = Z = 1) of LEDs onto chain
// indices.
type Layout struct {
	Dim   Dim
	Order Serpentine
}

// Linear is a single strip of n LEDs.
func Linear(n int) Layout { return Layout{Dim: Dim{X: n, Y: 1, Z: 1}} }

func (l Layout) Validate() error {
	if l.Dim.X <= 0 || l.Dim.Y <= 0 || l.Dim.Z <= 0 {
		return fmt.Errorf("layout: dimensions must be positive, got %dx%dx%d", l.Dim.X, l.Dim.Y, l.Dim.Z)
	}
	return nil
}

// Index maps x,y,z -> linear LED index (0..N-1)
func (l Layout) Index(x, y, z int) int {
	yy := y
	xx := x
	if (y%2 == 1) && l.Order.XFlipEveryRow {
		xx = l.Dim.X - 1 - x
	}
	if l.Order.YFlipEveryPanel && (z%2 == 1) {
		yy = l.Dim.Y - 1 - y
	}
	perPanel := l.Dim.X * l.Dim.Y
	return z*perPanel + yy*l.Dim.X + xx
}

func (l Layout) Count() int {
	return l.Dim.X * l.Dim.Y * l.Dim.Z
}
