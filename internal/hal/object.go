package hal

import (
	"fmt"

	"github.com/coreman2200/ledhal/internal/settings"
)

// ObjectKind selects the piece of instance state a Get or Set targets.
// The set of kinds is closed; backends need not serve all of them.
type ObjectKind int

const (
	KindID ObjectKind = iota + 1
	KindLEDCount
	KindGain
	KindCustomProp
)

var kindNames = map[ObjectKind]string{
	KindID:         "id",
	KindLEDCount:   "ledcount",
	KindGain:       "gain",
	KindCustomProp: "custom-prop",
}

func (k ObjectKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("ObjectKind(%d)", int(k))
}

// Valid reports whether k belongs to the enumeration.
func (k ObjectKind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

// ParseObjectKind maps a name from String back to its kind.
func ParseObjectKind(s string) (ObjectKind, error) {
	for k, n := range kindNames {
		if n == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedKind, s)
}

// Gain is the brightness correction of the LED at Pos.
type Gain struct {
	Pos   int
	Value int
}

// Value carries the payload of one object kind; only the field matching the
// kind is meaningful.
type Value struct {
	ID       string
	LEDCount int
	Gain     Gain
	Custom   *settings.Node
}

// RejectGet is the Get policy for kinds a backend does not serve: fail and
// name the kind. The instance keeps operating.
func RejectGet(kind ObjectKind) error {
	return fmt.Errorf("%w: get %s", ErrUnsupportedKind, kind)
}

// IgnoreSet is the Set policy for kinds a backend does not serve: accept the
// call and change nothing.
func IgnoreSet(inst *Instance, kind ObjectKind) error {
	if inst != nil {
		inst.log.Debug().Stringer("kind", kind).Msg("ignoring set of unsupported object")
	}
	return nil
}

// GetState serves the kinds every backend shares, straight from inst.
func GetState(inst *Instance, kind ObjectKind) (Value, error) {
	if err := inst.check(); err != nil {
		return Value{}, err
	}
	switch kind {
	case KindID:
		return Value{ID: inst.id.String()}, nil
	case KindLEDCount:
		return Value{LEDCount: inst.ledCount}, nil
	case KindGain, KindCustomProp:
		// known kinds no built-in backend serves; same policy as unknown ones
		return Value{}, RejectGet(kind)
	default:
		return Value{}, RejectGet(kind)
	}
}

// SetState applies the kinds every backend shares to inst.
func SetState(inst *Instance, kind ObjectKind, v Value) error {
	if err := inst.check(); err != nil {
		return err
	}
	switch kind {
	case KindID:
		id, err := ParseDeviceID(v.ID)
		if err != nil {
			return err
		}
		inst.id = id
		return nil
	case KindLEDCount:
		return inst.SetLEDCount(v.LEDCount)
	case KindGain, KindCustomProp:
		// known but unserved, like unknown kinds
		return IgnoreSet(inst, kind)
	default:
		return IgnoreSet(inst, kind)
	}
}
