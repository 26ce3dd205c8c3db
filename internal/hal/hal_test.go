package hal

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/ledhal/internal/pixel"
	"github.com/coreman2200/ledhal/internal/settings"
)

// ---------------------------------------------------------------------------
// testBackend: the smallest real backend, built on the shared helpers
// ---------------------------------------------------------------------------

var testExt = Extension{
	Property: "foo",
	Fields: []Field{
		{Name: "bar", Type: settings.TypeString, Str: "foobar", Check: NonEmpty},
		{Name: "baz", Type: settings.TypeInt, Int: 256, Check: NonNegative},
	},
}

type testBackend struct {
	family string
	api    int
	opened []string
}

func (b *testBackend) Descriptor() Descriptor {
	api := b.api
	if api == 0 {
		api = APIVersion
	}
	return Descriptor{Family: b.family, APIVersion: api, Version: Version{0, 0, 1}}
}

func (b *testBackend) Init(reg *settings.Registry, hw *Hardware) (*Instance, error) {
	return InitInstance(reg, hw, b, testExt)
}
func (b *testBackend) Deinit(reg *settings.Registry, inst *Instance) error {
	return DeinitInstance(reg, inst)
}
func (b *testBackend) HWInit(inst *Instance, id string) error {
	did, err := ParseDeviceID(id)
	if err != nil {
		return err
	}
	inst.SetID(did)
	b.opened = append(b.opened, did.String())
	return nil
}
func (b *testBackend) HWDeinit(inst *Instance) {}
func (b *testBackend) Get(inst *Instance, kind ObjectKind) (Value, error) {
	return GetState(inst, kind)
}
func (b *testBackend) Set(inst *Instance, kind ObjectKind, v Value) error {
	return SetState(inst, kind, v)
}
func (b *testBackend) Send(inst *Instance, chain Chain, count, offset int) error {
	v, err := chain.View(count, offset)
	if err != nil {
		return err
	}
	return inst.Stage(v, offset)
}
func (b *testBackend) Show(inst *Instance) error { return nil }

// ---------------------------------------------------------------------------
// stubBackend: records the calls the hardware forwards
// ---------------------------------------------------------------------------

type stubBackend struct{ mock.Mock }

func (s *stubBackend) Descriptor() Descriptor {
	return Descriptor{Family: "stub", APIVersion: APIVersion}
}
func (s *stubBackend) Init(reg *settings.Registry, hw *Hardware) (*Instance, error) {
	ret := s.Called(reg, hw)
	var inst *Instance
	if ret.Get(0) != nil {
		inst = ret.Get(0).(*Instance)
	}
	return inst, ret.Error(1)
}
func (s *stubBackend) Deinit(reg *settings.Registry, inst *Instance) error {
	return s.Called(reg, inst).Error(0)
}
func (s *stubBackend) HWInit(inst *Instance, id string) error { return s.Called(inst, id).Error(0) }
func (s *stubBackend) HWDeinit(inst *Instance)                { s.Called(inst) }
func (s *stubBackend) Get(inst *Instance, kind ObjectKind) (Value, error) {
	ret := s.Called(inst, kind)
	return ret.Get(0).(Value), ret.Error(1)
}
func (s *stubBackend) Set(inst *Instance, kind ObjectKind, v Value) error {
	return s.Called(inst, kind, v).Error(0)
}
func (s *stubBackend) Send(inst *Instance, chain Chain, count, offset int) error {
	return s.Called(inst, chain, count, offset).Error(0)
}
func (s *stubBackend) Show(inst *Instance) error { return s.Called(inst).Error(0) }

func newTestHardware(t *testing.T, b Backend, leds int) (*Hardware, *settings.Registry) {
	t.Helper()
	chain, err := pixel.NewChain(leds, pixel.RGBu8)
	require.NoError(t, err)
	reg := settings.NewRegistry()
	hw, err := NewHardware("hw0", b, chain, reg, zerolog.Nop())
	require.NoError(t, err)
	return hw, reg
}

// ---------------------------------------------------------------------------

var deviceIDs = []struct {
	In     string
	Expect string
	Err    error
}{
	{"*", "*", nil},
	{"  /dev/spidev0.0 ", "/dev/spidev0.0", nil},
	{strings.Repeat("a", MaxIDLen), strings.Repeat("a", MaxIDLen), nil},
	{strings.Repeat("a", MaxIDLen+1), "", ErrIDTooLong},
	{"", "", ErrMalformedID},
	{"   ", "", ErrMalformedID},
	{"dev\x00ice", "", ErrMalformedID},
	{"\xff\xfe", "", ErrMalformedID},
}

func TestParseDeviceID(t *testing.T) {
	for _, v := range deviceIDs {
		id, err := ParseDeviceID(v.In)
		if v.Err != nil {
			assert.ErrorIs(t, err, v.Err, "%q", v.In)
			assert.True(t, id.IsZero())
			continue
		}
		require.NoError(t, err, "%q", v.In)
		assert.Equal(t, v.Expect, id.String())
	}
	id, _ := ParseDeviceID(AnyDevice)
	assert.True(t, id.IsWildcard())
}

func TestObjectKindNames(t *testing.T) {
	for _, k := range []ObjectKind{KindID, KindLEDCount, KindGain, KindCustomProp} {
		assert.True(t, k.Valid())
		back, err := ParseObjectKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, back)
	}
	assert.False(t, ObjectKind(99).Valid())
	assert.Equal(t, "ObjectKind(99)", ObjectKind(99).String())
	_, err := ParseObjectKind("brightness")
	assert.ErrorIs(t, err, ErrUnsupportedKind)
}

func TestLoaderRejectsDuplicateFamily(t *testing.T) {
	l := NewLoader(zerolog.Nop())
	require.NoError(t, l.Register(&testBackend{family: "dummy"}))

	second := &testBackend{family: "dummy"}
	assert.ErrorIs(t, l.Register(second), ErrDuplicateFamily)

	b, ok := l.Lookup("dummy")
	require.True(t, ok)
	assert.NotSame(t, second, b)
}

func TestLoaderRejectsAPIVersion(t *testing.T) {
	l := NewLoader(zerolog.Nop())
	err := l.Register(&testBackend{family: "old", api: APIVersion + 1})
	assert.ErrorIs(t, err, ErrAPIVersion)
	_, ok := l.Lookup("old")
	assert.False(t, ok)
	assert.Empty(t, l.Families())
}

func TestLoaderHardwareTracking(t *testing.T) {
	l := NewLoader(zerolog.Nop())
	require.NoError(t, l.Register(&testBackend{family: "b"}))
	require.NoError(t, l.Register(&testBackend{family: "a"}))
	assert.Equal(t, []string{"a", "b"}, l.Families())

	reg := settings.NewRegistry()
	_, err := l.NewHardware("hw0", "zzz", nil, reg)
	assert.ErrorIs(t, err, ErrUnknownFamily)

	hw, err := l.NewHardware("hw0", "a", nil, reg)
	require.NoError(t, err)
	_, err = l.NewHardware("hw0", "b", nil, reg)
	assert.ErrorIs(t, err, ErrDuplicateHardware)
	assert.ErrorIs(t, l.Unregister("a"), ErrInUse)

	require.NoError(t, hw.Init())
	assert.ErrorIs(t, l.Drop("hw0"), ErrInvalidState)
	require.NoError(t, hw.Deinit())
	assert.Empty(t, l.HardwareNames())

	_, err = l.NewHardware("spare", "b", nil, reg)
	require.NoError(t, err)
	require.NoError(t, l.Drop("spare"))
	assert.ErrorIs(t, l.Drop("spare"), ErrUnknownHardware)
	require.NoError(t, l.Unregister("a"))
	assert.ErrorIs(t, l.Unregister("a"), ErrUnknownFamily)
}

func TestInitDeinitRemovesBindings(t *testing.T) {
	b := &testBackend{family: "t"}
	hw, reg := newTestHardware(t, b, 4)

	require.NoError(t, hw.Init())
	assert.Equal(t, 2, reg.Len())
	inst := hw.Instance()
	assert.Equal(t, []string{"hw0.foo"}, reg.Names(inst))
	assert.Equal(t, 4, inst.LEDCount())

	require.NoError(t, hw.Deinit())
	assert.Equal(t, 0, reg.Len())
	n, _ := settings.NewNode("foo")
	assert.ErrorIs(t, reg.Apply(inst, "hw0.foo", n), settings.ErrNotFound)
	_, err := reg.Serialize(b)
	assert.ErrorIs(t, err, settings.ErrNotFound)
	assert.True(t, inst.Released())
}

func TestInitRollsBackOnBindingFailure(t *testing.T) {
	b := &testBackend{family: "t"}
	hw, reg := newTestHardware(t, b, 1)
	taken := func() (*settings.Node, error) { return settings.NewNode("other") }
	require.NoError(t, reg.RegisterSerialize(b, taken))

	err := hw.Init()
	assert.ErrorIs(t, err, settings.ErrExists)
	assert.Nil(t, hw.Instance())
	assert.Equal(t, Loaded, hw.State())
	assert.Equal(t, 1, reg.Len(), "apply binding must be rolled back")
}

func TestDeinitTwiceFails(t *testing.T) {
	b := &testBackend{family: "t"}
	hw, reg := newTestHardware(t, b, 1)
	require.NoError(t, hw.Init())
	inst := hw.Instance()
	require.NoError(t, hw.Deinit())

	assert.ErrorIs(t, hw.Deinit(), ErrInvalidState)
	assert.ErrorIs(t, b.Deinit(reg, inst), ErrReleased)
	assert.ErrorIs(t, b.Deinit(reg, nil), ErrNotInitialized)

	hw2, _ := newTestHardware(t, b, 1)
	assert.ErrorIs(t, hw2.Deinit(), ErrInvalidState)
}

func TestDeinitReleasesAfterUnbindFailure(t *testing.T) {
	l := NewLoader(zerolog.Nop())
	b := &testBackend{family: "t"}
	require.NoError(t, l.Register(b))
	reg := settings.NewRegistry()
	hw, err := l.NewHardware("hw0", "t", nil, reg)
	require.NoError(t, err)
	require.NoError(t, hw.Init())
	inst := hw.Instance()

	require.NoError(t, reg.UnregisterSerialize(b))
	assert.ErrorIs(t, hw.Deinit(), settings.ErrNotFound)
	assert.True(t, inst.Released())
	assert.Nil(t, hw.Instance())
	assert.Equal(t, Deinitialized, hw.State())
	assert.Equal(t, 0, reg.Len())
	assert.Empty(t, l.HardwareNames())

	assert.ErrorIs(t, hw.Deinit(), ErrInvalidState)
	require.NoError(t, l.Unregister("t"))
}

func TestPropertyRoundTripAndDefaults(t *testing.T) {
	b := &testBackend{family: "t"}
	hw, _ := newTestHardware(t, b, 1)
	require.NoError(t, hw.Init())

	n, err := hw.Property()
	require.NoError(t, err)
	bar, _ := n.String("bar")
	baz, _ := n.Int("baz")
	assert.Equal(t, "foobar", bar)
	assert.Equal(t, 256, baz)

	in, _ := settings.NewNode("foo")
	require.NoError(t, in.SetString("bar", "lamp"))
	require.NoError(t, in.SetInt("baz", 7))
	require.NoError(t, hw.ApplyProperty(in))

	n, err = hw.Property()
	require.NoError(t, err)
	bar, _ = n.String("bar")
	baz, _ = n.Int("baz")
	assert.Equal(t, "lamp", bar)
	assert.Equal(t, 7, baz)
}

func TestApplyIsAllOrNothing(t *testing.T) {
	b := &testBackend{family: "t"}
	hw, _ := newTestHardware(t, b, 1)
	require.NoError(t, hw.Init())

	bad, _ := settings.NewNode("foo")
	require.NoError(t, bad.SetString("bar", "changed"))
	require.NoError(t, bad.SetInt("baz", -1))
	assert.ErrorIs(t, hw.ApplyProperty(bad), settings.ErrInvalid)

	missing, _ := settings.NewNode("foo")
	require.NoError(t, missing.SetString("bar", "changed"))
	assert.ErrorIs(t, hw.ApplyProperty(missing), settings.ErrNoProperty)

	typed, _ := settings.NewNode("foo")
	require.NoError(t, typed.SetString("bar", "changed"))
	require.NoError(t, typed.SetString("baz", "1"))
	assert.ErrorIs(t, hw.ApplyProperty(typed), settings.ErrWrongType)

	bar, err := hw.Instance().PropString("foo", "bar")
	require.NoError(t, err)
	assert.Equal(t, "foobar", bar)
}

func TestKindDispatchAsymmetry(t *testing.T) {
	b := &testBackend{family: "t"}
	hw, _ := newTestHardware(t, b, 3)
	require.NoError(t, hw.Init())

	for _, k := range []ObjectKind{KindGain, KindCustomProp, ObjectKind(42)} {
		_, err := hw.Get(k)
		assert.ErrorIs(t, err, ErrUnsupportedKind)
		assert.Contains(t, err.Error(), k.String())

		require.NoError(t, hw.Set(k, Value{LEDCount: 99, ID: "x"}))
		v, err := hw.Get(KindLEDCount)
		require.NoError(t, err)
		assert.Equal(t, 3, v.LEDCount)
		v, _ = hw.Get(KindID)
		assert.Equal(t, "", v.ID)
	}
}

func TestLEDCountConsistency(t *testing.T) {
	b := &testBackend{family: "t"}
	hw, _ := newTestHardware(t, b, 1)
	require.NoError(t, hw.Init())

	for _, n := range []int{0, 1, 7, 1 << 16} {
		require.NoError(t, hw.Set(KindLEDCount, Value{LEDCount: n}))
		v, err := hw.Get(KindLEDCount)
		require.NoError(t, err)
		assert.Equal(t, n, v.LEDCount)
	}
	assert.ErrorIs(t, hw.Set(KindLEDCount, Value{LEDCount: -1}), ErrInvalidValue)
	assert.ErrorIs(t, hw.Set(KindID, Value{ID: strings.Repeat("x", MaxIDLen+1)}), ErrIDTooLong)
}

func TestHardwareEnforcesOrdering(t *testing.T) {
	s := &stubBackend{}
	hw, reg := newTestHardware(t, s, 2)

	assert.ErrorIs(t, hw.HWInit("*"), ErrInvalidState)
	assert.ErrorIs(t, hw.Send(1, 0), ErrInvalidState)
	assert.ErrorIs(t, hw.Show(), ErrInvalidState)
	_, err := hw.Get(KindID)
	assert.ErrorIs(t, err, ErrInvalidState)

	inst := &Instance{hw: hw, ledCount: 2}
	s.On("Init", reg, hw).Return(inst, nil).Once()
	s.On("HWInit", inst, "*").Return(nil).Once()
	s.On("Send", inst, hw.Chain(), 2, 0).Return(nil).Once()
	s.On("Show", inst).Return(nil).Once()
	s.On("HWDeinit", inst).Return().Once()
	s.On("Deinit", reg, inst).Return(nil).Once()

	require.NoError(t, hw.Init())
	assert.ErrorIs(t, hw.Init(), ErrInvalidState)
	assert.ErrorIs(t, hw.Send(2, 0), ErrInvalidState)
	require.NoError(t, hw.HWInit("*"))
	assert.Equal(t, HardwareBound, hw.State())
	require.NoError(t, hw.Send(2, 0))
	assert.Equal(t, Active, hw.State())
	require.NoError(t, hw.Show())
	assert.Equal(t, HardwareBound, hw.State())

	// Deinit while bound unbinds the device first.
	require.NoError(t, hw.Deinit())
	assert.Equal(t, Deinitialized, hw.State())
	s.AssertExpectations(t)
}

func TestHardwareInitFailureKeepsLoaded(t *testing.T) {
	s := &stubBackend{}
	hw, reg := newTestHardware(t, s, 1)
	s.On("Init", reg, hw).Return(nil, ErrInvalidArgument).Once()

	assert.ErrorIs(t, hw.Init(), ErrInvalidArgument)
	assert.Equal(t, Loaded, hw.State())
	assert.ErrorIs(t, hw.HWInit("*"), ErrInvalidState)
	s.AssertNotCalled(t, "HWInit", mock.Anything, mock.Anything)
}

func TestStageBounds(t *testing.T) {
	b := &testBackend{family: "t"}
	hw, _ := newTestHardware(t, b, 3)
	require.NoError(t, hw.Init())
	require.NoError(t, hw.HWInit("*"))

	chain := hw.Chain().(*pixel.Chain)
	require.NoError(t, chain.SetPixel(2, []byte{1, 2, 3}))
	require.NoError(t, hw.Send(1, 2))
	assert.Equal(t, []byte{0, 0, 0, 0, 0, 0, 1, 2, 3}, hw.Instance().Staged())

	require.NoError(t, hw.Set(KindLEDCount, Value{LEDCount: 1}))
	assert.ErrorIs(t, hw.Send(1, 2), pixel.ErrOutOfRange)
	assert.ErrorIs(t, hw.Send(5, 0), pixel.ErrOutOfRange)
}

func TestInstanceLogsCarrySession(t *testing.T) {
	var buf bytes.Buffer
	chain, _ := pixel.NewChain(1, pixel.RGBu8)
	hw, err := NewHardware("hw0", &testBackend{family: "t"}, chain, settings.NewRegistry(), zerolog.New(&buf))
	require.NoError(t, err)
	require.NoError(t, hw.Init())
	out := buf.String()
	assert.Contains(t, out, hw.Instance().Session.String())
	assert.Contains(t, out, `"hw":"hw0"`)
	assert.Contains(t, out, `"family":"t"`)
}
