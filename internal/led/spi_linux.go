//go:build linux

package led

import (
	"fmt"
	"os"
	"syscall"
	"unsafe"
)

const (
	spiIOCWriteMode        = 0x40016b01
	spiIOCWriteBitsPerWord = 0x40016b03
	spiIOCWriteMaxSpeedHz  = 0x40046b04
)

// OpenSPI opens the spidev node of cfg (e.g. "/dev/spidev0.0") in mode 0 with
// 8 bit words.
func OpenSPI(cfg SPIConfig) (*SPI, error) {
	if cfg.Count <= 0 {
		return nil, fmt.Errorf("%w: invalid LED count %d", ErrFrameSize, cfg.Count)
	}
	enc, err := NewWS2812(cfg.Format, cfg.Order, cfg.ResetUs)
	if err != nil {
		return nil, err
	}
	speed := uint32(cfg.SpeedHz)
	if speed == 0 {
		speed = 2400000
	}
	f, err := os.OpenFile(cfg.Device, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open spidev: %w", err)
	}
	mode, bpw := byte(0), byte(8)
	for _, c := range []struct {
		what string
		req  uintptr
		arg  unsafe.Pointer
	}{
		{"mode", spiIOCWriteMode, unsafe.Pointer(&mode)},
		{"bits-per-word", spiIOCWriteBitsPerWord, unsafe.Pointer(&bpw)},
		{"speed", spiIOCWriteMaxSpeedHz, unsafe.Pointer(&speed)},
	} {
		if _, _, e := syscall.Syscall(syscall.SYS_IOCTL, f.Fd(), c.req, uintptr(c.arg)); e != 0 {
			_ = f.Close()
			return nil, fmt.Errorf("SPI set %s: %w", c.what, e)
		}
	}
	return newSPI(f, enc, cfg.Count), nil
}
