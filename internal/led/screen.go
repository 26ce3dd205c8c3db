package led

import (
	"fmt"
	"image"
	"strings"
	"sync"

	"periph.io/x/extra/devices/screen"

	"github.com/coreman2200/ledhal/internal/pixel"
)

// Screen renders the strip as one row of ANSI colored blocks on stdout.
type Screen struct {
	mu    sync.Mutex
	dev   *screen.Dev
	img   *image.NRGBA
	f     pixel.Format
	count int
}

// OpenScreen accepts RGB formats in any order and greyscale "Y" formats.
func OpenScreen(count int, f pixel.Format) (*Screen, error) {
	if f.Type != pixel.U8 {
		return nil, fmt.Errorf("%w: %s, want 8 bit components", ErrFormat, f)
	}
	if !strings.Contains(f.Components, "Y") {
		if _, err := channelMap(f, "RGB"); err != nil {
			return nil, err
		}
	}
	return &Screen{
		dev:   screen.New(count),
		img:   image.NewNRGBA(image.Rect(0, 0, count, 1)),
		f:     f,
		count: count,
	}, nil
}

func (s *Screen) Write(frame []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dev == nil {
		return ErrClosed
	}
	if len(frame) != s.count*s.f.BytesPerPixel() {
		return fmt.Errorf("%w: %d bytes for %d LEDs", ErrFrameSize, len(frame), s.count)
	}
	toNRGBA(s.img, frame, s.f)
	return s.dev.Draw(s.dev.Bounds(), s.img, image.Point{})
}

func (s *Screen) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dev == nil {
		return nil
	}
	err := s.dev.Halt()
	s.dev = nil
	return err
}

// toNRGBA paints frame into the single row of img. Greyscale pixels are
// spread over the three color channels, a W channel is dropped.
func toNRGBA(img *image.NRGBA, frame []byte, f pixel.Format) {
	bpp := f.BytesPerPixel()
	y := strings.IndexByte(f.Components, 'Y')
	var idx []int
	if y < 0 {
		idx, _ = channelMap(f, "RGB")
	}
	for p := 0; p*bpp < len(frame) && p < img.Rect.Dx(); p++ {
		px := frame[p*bpp : p*bpp+bpp]
		o := img.PixOffset(p, 0)
		if y >= 0 {
			img.Pix[o], img.Pix[o+1], img.Pix[o+2] = px[y], px[y], px[y]
		} else {
			img.Pix[o], img.Pix[o+1], img.Pix[o+2] = px[idx[0]], px[idx[1]], px[idx[2]]
		}
		img.Pix[o+3] = 0xff
	}
}
