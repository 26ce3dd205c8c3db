package hal

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/coreman2200/ledhal/internal/settings"
)

// Loader keeps the loaded backends by family and the hardware using them.
type Loader struct {
	mu       sync.Mutex
	log      zerolog.Logger
	backends map[string]Backend
	hardware map[string]*Hardware
}

func NewLoader(log zerolog.Logger) *Loader {
	return &Loader{
		log:      log,
		backends: map[string]Backend{},
		hardware: map[string]*Hardware{},
	}
}

// Register loads b. Backends built against another API version and second
// backends of an already loaded family are rejected.
func (l *Loader) Register(b Backend) error {
	if b == nil {
		return fmt.Errorf("%w: nil backend", ErrInvalidArgument)
	}
	d := b.Descriptor()
	if d.Family == "" {
		return fmt.Errorf("%w: backend without family", ErrInvalidArgument)
	}
	if d.APIVersion != APIVersion {
		return fmt.Errorf("%w: %s has %d, host has %d", ErrAPIVersion, d.Family, d.APIVersion, APIVersion)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.backends[d.Family]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateFamily, d.Family)
	}
	l.backends[d.Family] = b
	l.log.Debug().Str("family", d.Family).Stringer("version", d.Version).Msg("backend loaded")
	return nil
}

// Unregister unloads a family. It fails while hardware still uses it.
func (l *Loader) Unregister(family string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.backends[family]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownFamily, family)
	}
	for _, hw := range l.hardware {
		if hw.backend.Descriptor().Family == family {
			return fmt.Errorf("%w: %s drives %s", ErrInUse, family, hw.name)
		}
	}
	delete(l.backends, family)
	return nil
}

func (l *Loader) Lookup(family string) (Backend, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.backends[family]
	return b, ok
}

// Families lists the loaded families in order.
func (l *Loader) Families() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, 0, len(l.backends))
	for k := range l.backends {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// NewHardware creates a hardware named name driven by the family backend.
func (l *Loader) NewHardware(name, family string, chain Chain, reg *settings.Registry) (*Hardware, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.backends[family]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFamily, family)
	}
	if _, ok := l.hardware[name]; ok {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateHardware, name)
	}
	hw, err := NewHardware(name, b, chain, reg, l.log)
	if err != nil {
		return nil, err
	}
	hw.loader = l
	l.hardware[name] = hw
	return hw, nil
}

func (l *Loader) Hardware(name string) (*Hardware, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	hw, ok := l.hardware[name]
	return hw, ok
}

// HardwareNames lists the hardware not yet deinitialized.
func (l *Loader) HardwareNames() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, 0, len(l.hardware))
	for k := range l.hardware {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (l *Loader) release(hw *Hardware) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.hardware[hw.name] == hw {
		delete(l.hardware, hw.name)
	}
}

// Drop forgets a hardware that never got past Loaded, e.g. after a failed
// Init. Initialized hardware must go through Deinit.
func (l *Loader) Drop(name string) error {
	hw, ok := l.Hardware(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownHardware, name)
	}
	// hw.mu before l.mu, as in Deinit
	hw.mu.Lock()
	defer hw.mu.Unlock()
	if hw.state != Loaded {
		return fmt.Errorf("%w: drop while %s", ErrInvalidState, hw.state)
	}
	hw.state = Unloaded
	l.release(hw)
	return nil
}
