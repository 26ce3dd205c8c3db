package led

import (
	"fmt"
	"strings"

	"github.com/coreman2200/ledhal/internal/pixel"
)

// channelMap returns, for each channel of wire, the index of that channel in
// a pixel of src.
func channelMap(src pixel.Format, wire string) ([]int, error) {
	if src.Type != pixel.U8 {
		return nil, fmt.Errorf("%w: %s, want 8 bit components", ErrFormat, src)
	}
	idx := make([]int, len(wire))
	for i := 0; i < len(wire); i++ {
		j := strings.IndexByte(src.Components, wire[i])
		if j < 0 {
			return nil, fmt.Errorf("%w: %s has no %c channel for %s", ErrFormat, src, wire[i], wire)
		}
		idx[i] = j
	}
	return idx, nil
}

// reorder copies the pixels of src (bpp bytes each) into dst in the channel
// order given by idx. dst must hold len(idx) bytes per pixel.
func reorder(dst, src []byte, bpp int, idx []int) {
	n := len(idx)
	for p := 0; p*bpp < len(src); p++ {
		px := src[p*bpp : p*bpp+bpp]
		out := dst[p*n : p*n+n]
		for i, j := range idx {
			out[i] = px[j]
		}
	}
}
