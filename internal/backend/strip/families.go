package strip

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"github.com/coreman2200/ledhal/internal/hal"
	"github.com/coreman2200/ledhal/internal/led"
	"github.com/coreman2200/ledhal/internal/pixel"
	"github.com/coreman2200/ledhal/internal/settings"
)

// DefaultSPIDev is opened when a spidev hardware is bound to "*".
const DefaultSPIDev = "/dev/spidev0.0"

func brightness() hal.Field {
	return hal.Field{Name: BrightnessField, Type: settings.TypeInt, Int: 255, Check: hal.IntRange(0, 255)}
}

func rgb8(f pixel.Format) error {
	if f.Type != pixel.U8 {
		return errors.New("want 8 bit components")
	}
	return nil
}

// SPIDev drives WS2812 strips through the kernel spidev interface.
func SPIDev() Family {
	return Family{
		Name:        "spidev",
		Description: "WS2812 strips on a raw spidev node",
		IDExample:   DefaultSPIDev,
		Ext: hal.Extension{
			Property: "spi",
			Fields: append([]hal.Field{
				{Name: "speed_hz", Type: settings.TypeInt, Int: 2400000, Check: hal.IntRange(100000, 32000000)},
				{Name: "order", Type: settings.TypeString, Str: "GRB", Check: hal.OneOf("GRB", "RGB", "BRG", "RBG", "GBR", "BGR")},
				{Name: "reset_us", Type: settings.TypeInt, Int: 300, Check: hal.IntRange(50, 10000)},
				brightness(),
			}, limiterFields()...),
		},
		Accept: rgb8,
		Open: func(inst *hal.Instance, id hal.DeviceID, f pixel.Format, count int) (led.Driver, error) {
			dev := id.String()
			if id.IsWildcard() {
				dev = DefaultSPIDev
			}
			cfg := led.SPIConfig{Device: dev, Count: count, Format: f}
			var err error
			if cfg.SpeedHz, err = inst.PropInt("spi", "speed_hz"); err != nil {
				return nil, err
			}
			if cfg.Order, err = inst.PropString("spi", "order"); err != nil {
				return nil, err
			}
			if cfg.ResetUs, err = inst.PropInt("spi", "reset_us"); err != nil {
				return nil, err
			}
			return led.OpenSPI(cfg)
		},
	}
}

// NRZ drives WS281x strips with periph's nrzled encoder. open defaults to
// led.OpenHostSPI; "*" picks the first SPI port.
func NRZ(open led.PortOpener) Family {
	return Family{
		Name:        "nrz",
		Description: "WS281x strips through periph nrzled over SPI",
		IDExample:   "SPI0.0",
		Ext: hal.Extension{
			Property: "nrz",
			Fields:   append([]hal.Field{brightness()}, limiterFields()...),
		},
		Accept: rgb8,
		Open: func(inst *hal.Instance, id hal.DeviceID, f pixel.Format, count int) (led.Driver, error) {
			port := id.String()
			if id.IsWildcard() {
				port = ""
			}
			return led.OpenNRZ(led.NRZConfig{Port: port, Count: count, Format: f}, open)
		},
	}
}

// Console previews the strip in the terminal. The id only names the preview.
func Console() Family {
	return Family{
		Name:        "console",
		Description: "ANSI terminal preview of one strip",
		IDExample:   "stdout",
		Ext: hal.Extension{
			Property: "console",
			Fields:   []hal.Field{brightness()},
		},
		Accept: rgb8,
		Open: func(inst *hal.Instance, id hal.DeviceID, f pixel.Format, count int) (led.Driver, error) {
			return led.OpenScreen(count, f)
		},
	}
}

// WS streams frames to a websocket preview server whose URL is the device id.
// dialer may be nil.
func WS(dialer *websocket.Dialer) Family {
	return Family{
		Name:        "ws",
		Description: "binary frames to a websocket preview server",
		IDExample:   "ws://localhost:8080/frames",
		Ext: hal.Extension{
			Property: "ws",
			Fields: []hal.Field{
				{Name: "timeout_ms", Type: settings.TypeInt, Int: 1000, Check: hal.IntRange(1, 60000)},
			},
		},
		Open: func(inst *hal.Instance, id hal.DeviceID, f pixel.Format, count int) (led.Driver, error) {
			if id.IsWildcard() {
				return nil, fmt.Errorf("%w: ws needs a URL", hal.ErrMalformedID)
			}
			ms, err := inst.PropInt("ws", "timeout_ms")
			if err != nil {
				return nil, err
			}
			timeout := time.Duration(ms) * time.Millisecond
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			return led.DialWS(ctx, led.WSConfig{URL: id.String(), Count: count, Format: f, WriteTimeout: timeout, Dialer: dialer})
		},
	}
}
