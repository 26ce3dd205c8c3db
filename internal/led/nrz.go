package led

import (
	"fmt"
	"sync"

	"github.com/coreman2200/ledhal/internal/pixel"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/nrzled"
	"periph.io/x/host/v3"
)

// NRZFreq is the only SPI clock nrzled accepts.
const NRZFreq = 2500 * physic.KiloHertz

// PortOpener opens an SPI port by name, "" meaning the first one available.
type PortOpener func(name string) (spi.PortCloser, error)

var hostInit struct {
	once sync.Once
	err  error
}

// OpenHostSPI initializes the periph host drivers once and opens name from
// the SPI registry.
func OpenHostSPI(name string) (spi.PortCloser, error) {
	hostInit.once.Do(func() {
		_, hostInit.err = host.Init()
	})
	if hostInit.err != nil {
		return nil, fmt.Errorf("periph host init: %w", hostInit.err)
	}
	return spireg.Open(name)
}

type NRZConfig struct {
	// Port is an spireg name; "" picks the first port.
	Port   string
	Count  int
	Format pixel.Format
}

// NRZ drives WS281x LEDs through periph's nrzled encoder on an SPI port.
type NRZ struct {
	mu    sync.Mutex
	port  spi.PortCloser
	dev   *nrzled.Dev
	idx   []int
	bpp   int
	count int
	buf   []byte
}

// OpenNRZ opens cfg.Port through open, OpenHostSPI when nil.
func OpenNRZ(cfg NRZConfig, open PortOpener) (*NRZ, error) {
	wire := "RGB"
	if cfg.Format.NumComponents() == 4 {
		wire = "RGBW"
	}
	idx, err := channelMap(cfg.Format, wire)
	if err != nil {
		return nil, err
	}
	if open == nil {
		open = OpenHostSPI
	}
	port, err := open(cfg.Port)
	if err != nil {
		return nil, fmt.Errorf("open spi port %q: %w", cfg.Port, err)
	}
	dev, err := nrzled.NewSPI(port, &nrzled.Opts{
		NumPixels: cfg.Count,
		Channels:  len(wire),
		Freq:      NRZFreq,
	})
	if err != nil {
		_ = port.Close()
		return nil, err
	}
	return &NRZ{
		port:  port,
		dev:   dev,
		idx:   idx,
		bpp:   cfg.Format.BytesPerPixel(),
		count: cfg.Count,
		buf:   make([]byte, cfg.Count*len(wire)),
	}, nil
}

func (n *NRZ) String() string { return n.dev.String() }

func (n *NRZ) Write(frame []byte) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.port == nil {
		return ErrClosed
	}
	if len(frame) != n.count*n.bpp {
		return fmt.Errorf("%w: %d bytes for %d LEDs", ErrFrameSize, len(frame), n.count)
	}
	reorder(n.buf, frame, n.bpp, n.idx)
	_, err := n.dev.Write(n.buf)
	return err
}

// Close turns the LEDs off and releases the port.
func (n *NRZ) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.port == nil {
		return nil
	}
	herr := n.dev.Halt()
	cerr := n.port.Close()
	n.port = nil
	if herr != nil {
		return herr
	}
	return cerr
}
