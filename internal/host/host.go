// Package host brings configured hardware up and down and drives it.
package host

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/coreman2200/ledhal/internal/config"
	"github.com/coreman2200/ledhal/internal/hal"
	"github.com/coreman2200/ledhal/internal/layout"
	"github.com/coreman2200/ledhal/internal/pattern"
	"github.com/coreman2200/ledhal/internal/pixel"
	"github.com/coreman2200/ledhal/internal/settings"
)

// Strip is one hardware brought up from configuration, with the chain the
// host renders into.
type Strip struct {
	HW     *hal.Hardware
	Chain  *pixel.Chain
	Layout layout.Layout
	Config config.Hardware
}

type Host struct {
	mu     sync.Mutex
	log    zerolog.Logger
	loader *hal.Loader
	reg    *settings.Registry
	strips map[string]*Strip
}

func New(log zerolog.Logger, loader *hal.Loader, reg *settings.Registry) *Host {
	return &Host{log: log, loader: loader, reg: reg, strips: map[string]*Strip{}}
}

func (h *Host) Loader() *hal.Loader          { return h.loader }
func (h *Host) Registry() *settings.Registry { return h.reg }

// Up runs Init, applies the configured properties and binds the device. On
// failure the hardware is taken back down and forgotten.
func (h *Host) Up(hc config.Hardware) (*Strip, error) {
	f, err := hc.PixelFormat()
	if err != nil {
		return nil, err
	}
	l := hc.Layout()
	if err := l.Validate(); err != nil {
		return nil, err
	}
	chain, err := pixel.NewChain(l.Count(), f)
	if err != nil {
		return nil, err
	}
	hw, err := h.loader.NewHardware(hc.Name, hc.Family, chain, h.reg)
	if err != nil {
		return nil, err
	}
	if err := hw.Init(); err != nil {
		_ = h.loader.Drop(hc.Name)
		return nil, fmt.Errorf("init %s: %w", hc.Name, err)
	}
	for _, p := range hc.Properties {
		if err := hw.ApplyProperty(p); err != nil {
			return nil, h.abort(hw, fmt.Errorf("apply %s.%s: %w", hc.Name, p.Name, err))
		}
	}
	if err := hw.HWInit(hc.ID); err != nil {
		return nil, h.abort(hw, fmt.Errorf("hw_init %s: %w", hc.Name, err))
	}

	s := &Strip{HW: hw, Chain: chain, Layout: l, Config: hc}
	h.mu.Lock()
	h.strips[hc.Name] = s
	h.mu.Unlock()
	h.log.Info().Str("hw", hc.Name).Str("family", hc.Family).Int("leds", l.Count()).Msg("hardware up")
	return s, nil
}

func (h *Host) abort(hw *hal.Hardware, err error) error {
	if derr := hw.Deinit(); derr != nil {
		return errors.Join(err, derr)
	}
	return err
}

// UpAll brings up every configured hardware and keeps going past failures.
func (h *Host) UpAll(c *config.Config) error {
	var errs []error
	for _, hc := range c.Hardware {
		if _, err := h.Up(hc); err != nil {
			h.log.Error().Err(err).Str("hw", hc.Name).Msg("bring-up failed")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (h *Host) Down(name string) error {
	h.mu.Lock()
	s, ok := h.strips[name]
	h.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", hal.ErrUnknownHardware, name)
	}
	err := s.HW.Deinit()
	// keep the handle while the hardware still holds an instance
	if err != nil && s.HW.State() != hal.Deinitialized {
		return err
	}
	h.mu.Lock()
	if h.strips[name] == s {
		delete(h.strips, name)
	}
	h.mu.Unlock()
	return err
}

// Close takes every hardware down.
func (h *Host) Close() error {
	var errs []error
	for _, n := range h.Names() {
		errs = append(errs, h.Down(n))
	}
	return errors.Join(errs...)
}

func (h *Host) Strip(name string) (*Strip, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.strips[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", hal.ErrUnknownHardware, name)
	}
	return s, nil
}

func (h *Host) Names() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(h.strips))
	for n := range h.strips {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Frame sends the whole chain of s and shows it.
func (s *Strip) Frame() error {
	if err := s.HW.Send(s.Chain.LEDCount(), 0); err != nil {
		return err
	}
	return s.HW.Show()
}

// RunPattern plays kind on the named strip, one frame every interval, and
// returns the number of frames shown.
func (h *Host) RunPattern(ctx context.Context, name string, kind pattern.Kind, interval time.Duration) (int, error) {
	s, err := h.Strip(name)
	if err != nil {
		return 0, err
	}
	r := pattern.NewRunner(kind)
	frames := 0
	for r.Step(s.Layout, s.Chain) {
		if err := s.Frame(); err != nil {
			return frames, err
		}
		frames++
		if interval > 0 {
			select {
			case <-ctx.Done():
				return frames, ctx.Err()
			case <-time.After(interval):
			}
		}
	}
	s.Chain.Fill(0)
	return frames, s.Frame()
}

// Snapshot returns the CBOR encoding of the backend property of name.
func (h *Host) Snapshot(name string) ([]byte, error) {
	s, err := h.Strip(name)
	if err != nil {
		return nil, err
	}
	n, err := s.HW.Property()
	if err != nil {
		return nil, err
	}
	return settings.EncodeCBOR(n)
}

// Restore applies a property captured by Snapshot.
func (h *Host) Restore(name string, data []byte) error {
	s, err := h.Strip(name)
	if err != nil {
		return err
	}
	n, err := settings.DecodeCBOR(data)
	if err != nil {
		return err
	}
	return s.HW.ApplyProperty(n)
}
