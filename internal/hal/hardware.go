package hal

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/coreman2200/ledhal/internal/settings"
)

// State is the lifecycle position of a Hardware.
type State int

const (
	Unloaded State = iota
	Loaded
	Initialized
	HardwareBound
	Active
	Deinitialized
)

var stateNames = [...]string{"unloaded", "loaded", "initialized", "hardware-bound", "active", "deinitialized"}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Hardware is the host's handle on one output endpoint. It owns the Instance
// of its backend and only forwards calls that are legal in the current state,
// one at a time.
type Hardware struct {
	mu      sync.Mutex
	name    string
	backend Backend
	chain   Chain
	reg     *settings.Registry
	loader  *Loader
	log     zerolog.Logger

	inst  *Instance
	state State
}

// NewHardware creates a Loaded hardware named name that drives chain through b.
// Most hosts go through Loader.NewHardware instead.
func NewHardware(name string, b Backend, chain Chain, reg *settings.Registry, log zerolog.Logger) (*Hardware, error) {
	if name == "" || b == nil || reg == nil {
		return nil, fmt.Errorf("%w: hardware needs a name, backend and registry", ErrInvalidArgument)
	}
	return &Hardware{
		name:    name,
		backend: b,
		chain:   chain,
		reg:     reg,
		log:     log.With().Str("hw", name).Str("family", b.Descriptor().Family).Logger(),
		state:   Loaded,
	}, nil
}

func (h *Hardware) Name() string                 { return h.name }
func (h *Hardware) Backend() Backend             { return h.backend }
func (h *Hardware) Chain() Chain                 { return h.chain }
func (h *Hardware) Registry() *settings.Registry { return h.reg }
func (h *Hardware) Logger() *zerolog.Logger      { return &h.log }

// PropName namespaces a backend property to this hardware.
func (h *Hardware) PropName(prop string) string { return h.name + "." + prop }

func (h *Hardware) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Instance returns the bound instance, or nil outside Init..Deinit.
func (h *Hardware) Instance() *Instance {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.inst
}

func (h *Hardware) expect(op string, states ...State) error {
	for _, s := range states {
		if h.state == s {
			return nil
		}
	}
	return fmt.Errorf("%w: %s while %s", ErrInvalidState, op, h.state)
}

func (h *Hardware) Init() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.expect("init", Loaded); err != nil {
		return err
	}
	inst, err := h.backend.Init(h.reg, h)
	if err != nil {
		h.log.Error().Err(err).Msg("init failed")
		return err
	}
	if inst == nil {
		return fmt.Errorf("%w: backend returned no instance", ErrNotInitialized)
	}
	h.inst = inst
	h.state = Initialized
	return nil
}

func (h *Hardware) HWInit(id string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.expect("hw_init", Initialized); err != nil {
		return err
	}
	if err := h.backend.HWInit(h.inst, id); err != nil {
		h.log.Error().Err(err).Str("id", id).Msg("hw_init failed")
		return err
	}
	h.state = HardwareBound
	h.log.Info().Str("id", h.inst.ID().String()).Msg("hardware bound")
	return nil
}

func (h *Hardware) HWDeinit() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.expect("hw_deinit", HardwareBound, Active); err != nil {
		return err
	}
	h.hwDeinit()
	return nil
}

func (h *Hardware) hwDeinit() {
	h.backend.HWDeinit(h.inst)
	h.state = Initialized
}

// Deinit releases the instance. A still bound device is unbound first.
func (h *Hardware) Deinit() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state == HardwareBound || h.state == Active {
		h.hwDeinit()
	}
	if err := h.expect("deinit", Initialized); err != nil {
		return err
	}
	err := h.backend.Deinit(h.reg, h.inst)
	if err != nil {
		h.log.Error().Err(err).Msg("deinit failed")
		// an instance the backend already released cannot be retried
		if h.inst.Err() == nil {
			return err
		}
	}
	h.inst = nil
	h.state = Deinitialized
	if h.loader != nil {
		h.loader.release(h)
	}
	return err
}

func (h *Hardware) Get(kind ObjectKind) (Value, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.expect("get", Initialized, HardwareBound, Active); err != nil {
		return Value{}, err
	}
	return h.backend.Get(h.inst, kind)
}

func (h *Hardware) Set(kind ObjectKind, v Value) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.expect("set", Initialized, HardwareBound, Active); err != nil {
		return err
	}
	return h.backend.Set(h.inst, kind, v)
}

// Send transfers count LEDs from offset of the hardware's chain.
func (h *Hardware) Send(count, offset int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.expect("send", HardwareBound, Active); err != nil {
		return err
	}
	if h.chain == nil {
		return fmt.Errorf("%w: no chain", ErrInvalidArgument)
	}
	if err := h.backend.Send(h.inst, h.chain, count, offset); err != nil {
		return err
	}
	if count > 0 {
		h.state = Active
	}
	return nil
}

func (h *Hardware) Show() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.expect("show", HardwareBound, Active); err != nil {
		return err
	}
	if err := h.backend.Show(h.inst); err != nil {
		return err
	}
	h.state = HardwareBound
	return nil
}

// ApplyProperty hands n to the apply binding registered for this hardware
// under n.Name.
func (h *Hardware) ApplyProperty(n *settings.Node) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if n == nil {
		return fmt.Errorf("%w: nil property", ErrInvalidArgument)
	}
	if err := h.expect("apply", Initialized, HardwareBound, Active); err != nil {
		return err
	}
	return h.reg.Apply(h.inst, h.PropName(n.Name), n)
}

// Property reads the backend's property through its serialize binding.
func (h *Hardware) Property() (*settings.Node, error) {
	return h.reg.Serialize(h.backend)
}
