//go:build !linux

package led

func OpenSPI(cfg SPIConfig) (*SPI, error) {
	return nil, ErrUnsupported
}
