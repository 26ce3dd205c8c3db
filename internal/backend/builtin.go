// Package backend lists the backend families compiled into the host.
package backend

import (
	"github.com/coreman2200/ledhal/internal/backend/dummy"
	"github.com/coreman2200/ledhal/internal/backend/strip"
	"github.com/coreman2200/ledhal/internal/hal"
)

// Builtin returns one fresh backend per shipped family.
func Builtin() []hal.Backend {
	return []hal.Backend{
		dummy.New(),
		strip.New(strip.SPIDev()),
		strip.New(strip.NRZ(nil)),
		strip.New(strip.Console()),
		strip.New(strip.WS(nil)),
	}
}

// RegisterAll registers bs, Builtin() when empty, with l. It stops at the
// first failure.
func RegisterAll(l *hal.Loader, bs ...hal.Backend) error {
	if len(bs) == 0 {
		bs = Builtin()
	}
	for _, b := range bs {
		if err := l.Register(b); err != nil {
			return err
		}
	}
	return nil
}
