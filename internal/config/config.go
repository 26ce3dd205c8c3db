package config

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/coreman2200/ledhal/internal/diagnostics"
	"github.com/coreman2200/ledhal/internal/hal"
	"github.com/coreman2200/ledhal/internal/layout"
	"github.com/coreman2200/ledhal/internal/pixel"
	"github.com/coreman2200/ledhal/internal/settings"
)

type Dim struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
	Z int `yaml:"z"`
}

// Hardware is one output endpoint the host brings up at start.
type Hardware struct {
	Name   string `yaml:"name"`
	Family string `yaml:"family"`
	ID     string `yaml:"id"`     // backend specific, "*" for any
	Format string `yaml:"format"` // e.g. "RGB u8"
	// Either a plain strip of LEDCount LEDs or a cube of Dim.
	LEDCount        int  `yaml:"led_count,omitempty"`
	Dim             *Dim `yaml:"dim,omitempty"`
	XFlipEveryRow   bool `yaml:"x_flip_every_row,omitempty"`
	YFlipEveryPanel bool `yaml:"y_flip_every_panel,omitempty"`

	// Properties are applied after Init, each through the binding of the
	// same name.
	Properties []*settings.Node `yaml:"properties,omitempty"`
}

func (h Hardware) Layout() layout.Layout {
	if h.Dim != nil {
		return layout.Layout{
			Dim:   layout.Dim{X: h.Dim.X, Y: h.Dim.Y, Z: h.Dim.Z},
			Order: layout.Serpentine{XFlipEveryRow: h.XFlipEveryRow, YFlipEveryPanel: h.YFlipEveryPanel},
		}
	}
	return layout.Linear(h.LEDCount)
}

func (h Hardware) PixelFormat() (pixel.Format, error) {
	if h.Format == "" {
		return pixel.RGBu8, nil
	}
	return pixel.ParseFormat(h.Format)
}

type Config struct {
	LogLevel string     `yaml:"log_level"`
	Hardware []Hardware `yaml:"hardware"`
}

// Default is a single dummy strip, enough to exercise the host.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Hardware: []Hardware{{Name: "dummy0", Family: "dummy", ID: "*", Format: "RGB u8", LEDCount: 10}},
	}
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &c, nil
}

func Save(path string, c *Config) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}

// Check reports everything that would make bring-up fail. families lists the
// registered backend families.
func (c *Config) Check(families []string) diagnostics.Report {
	var r diagnostics.Report
	if c.LogLevel != "" {
		if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
			r = append(r, diagnostics.Diagnostic{
				Severity: diagnostics.Warn, Code: "CFG.LOGLEVEL", Summary: "unknown log level",
				Detail: err.Error(), SuggestedFixes: []string{"use trace, debug, info, warn or error"},
			})
		}
	}
	known := map[string]bool{}
	for _, f := range families {
		known[f] = true
	}
	names := map[string]bool{}
	byFamily := map[string]string{}
	for i, h := range c.Hardware {
		ev := map[string]any{"index": i, "name": h.Name, "family": h.Family}
		fail := func(code, summary, detail string, fixes ...string) {
			r = append(r, diagnostics.Diagnostic{
				Severity: diagnostics.Err, Code: code, Summary: summary,
				Detail: detail, SuggestedFixes: fixes, Evidence: ev,
			})
		}
		switch {
		case h.Name == "":
			fail("CFG.NAME.EMPTY", "hardware without a name", "")
		case names[h.Name]:
			fail("CFG.NAME.DUP", "hardware name used twice", h.Name)
		}
		names[h.Name] = true

		if !known[h.Family] {
			fail("CFG.FAMILY.UNKNOWN", "unknown backend family", h.Family,
				fmt.Sprintf("pick one of %v", families))
		} else if prev, ok := byFamily[h.Family]; ok {
			fail("CFG.FAMILY.SHARED", "family drives more than one hardware",
				fmt.Sprintf("%s already uses %s", prev, h.Family),
				"a family serves one hardware at a time, split the chain or use another family")
		} else {
			byFamily[h.Family] = h.Name
		}

		if _, err := h.PixelFormat(); err != nil {
			fail("CFG.FORMAT", "bad pixel format", err.Error(), `use e.g. "RGB u8" or "GRB u8"`)
		}
		if h.Dim != nil && h.LEDCount != 0 {
			fail("CFG.COUNT.BOTH", "both led_count and dim given", "", "keep one of them")
		} else if err := h.Layout().Validate(); err != nil {
			fail("CFG.COUNT", "bad LED count", err.Error())
		}
		if _, err := hal.ParseDeviceID(h.ID); err != nil {
			fail("CFG.ID", "bad device id", err.Error(), `use "*" to let the backend pick`)
		}
		for _, p := range h.Properties {
			if p == nil {
				fail("CFG.PROPERTY", "empty property entry", "")
			}
		}
	}
	return r
}
