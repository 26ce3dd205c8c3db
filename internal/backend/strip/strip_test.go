package strip

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spitest"

	"github.com/coreman2200/ledhal/internal/hal"
	"github.com/coreman2200/ledhal/internal/led"
	"github.com/coreman2200/ledhal/internal/pixel"
	"github.com/coreman2200/ledhal/internal/settings"
)

type simFamily struct {
	sims   []*led.Sim
	ids    []string
	failOn string
}

func (s *simFamily) family() Family {
	return Family{
		Name: "sim",
		Ext: hal.Extension{
			Property: "sim",
			Fields:   []hal.Field{brightness()},
		},
		Accept: rgb8,
		Open: func(inst *hal.Instance, id hal.DeviceID, f pixel.Format, count int) (led.Driver, error) {
			if id.String() == s.failOn {
				return nil, errors.New("no such strip")
			}
			sim := &led.Sim{}
			s.sims = append(s.sims, sim)
			s.ids = append(s.ids, id.String())
			return sim, nil
		},
	}
}

func newHardware(t *testing.T, b hal.Backend, leds int, f pixel.Format) (*hal.Hardware, *pixel.Chain) {
	t.Helper()
	chain, err := pixel.NewChain(leds, f)
	require.NoError(t, err)
	hw, err := hal.NewHardware("strip", b, chain, settings.NewRegistry(), zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, hw.Init())
	return hw, chain
}

func TestStageAndShow(t *testing.T) {
	fam := &simFamily{}
	hw, chain := newHardware(t, New(fam.family()), 3, pixel.RGBu8)
	require.NoError(t, hw.HWInit("left"))
	require.Len(t, fam.sims, 1)
	sim := fam.sims[0]

	require.NoError(t, chain.SetPixel(0, []byte{1, 2, 3}))
	require.NoError(t, chain.SetPixel(2, []byte{7, 8, 9}))
	require.NoError(t, hw.Send(1, 2))
	assert.Empty(t, sim.Frames(), "send only stages")

	require.NoError(t, hw.Show())
	assert.Equal(t, [][]byte{{0, 0, 0, 0, 0, 0, 7, 8, 9}}, sim.Frames())

	require.NoError(t, hw.Send(1, 0))
	require.NoError(t, hw.Show())
	assert.Equal(t, []byte{1, 2, 3, 0, 0, 0, 7, 8, 9}, sim.Frames()[1])

	require.NoError(t, hw.HWDeinit())
	assert.True(t, sim.Closed())
	assert.Nil(t, hw.Instance().Device())
}

func TestZeroLengthSendHasNoEffect(t *testing.T) {
	fam := &simFamily{}
	hw, _ := newHardware(t, New(fam.family()), 2, pixel.RGBu8)
	require.NoError(t, hw.HWInit("*"))
	require.NoError(t, hw.Send(0, 0))
	assert.Nil(t, hw.Instance().Staged())
	assert.Equal(t, hal.HardwareBound, hw.State())
	require.NoError(t, hw.Show())
	assert.Empty(t, fam.sims[0].Frames())
}

func TestBrightnessScalesFrames(t *testing.T) {
	fam := &simFamily{}
	hw, chain := newHardware(t, New(fam.family()), 1, pixel.RGBu8)
	n, _ := settings.NewNode("sim")
	require.NoError(t, n.SetInt(BrightnessField, 51))
	require.NoError(t, hw.ApplyProperty(n))
	require.NoError(t, hw.HWInit("*"))

	require.NoError(t, chain.SetPixel(0, []byte{255, 100, 0}))
	require.NoError(t, hw.Send(1, 0))
	require.NoError(t, hw.Show())
	assert.Equal(t, []byte{51, 20, 0}, fam.sims[0].Frames()[0])
	assert.Equal(t, []byte{255, 100, 0}, hw.Instance().Staged())

	n, _ = settings.NewNode("sim")
	require.NoError(t, n.SetInt(BrightnessField, 256))
	assert.ErrorIs(t, hw.ApplyProperty(n), settings.ErrInvalid)
}

func TestHWInitFailures(t *testing.T) {
	fam := &simFamily{failOn: "gone"}
	hw, _ := newHardware(t, New(fam.family()), 1, pixel.RGBu8)
	assert.Error(t, hw.HWInit("gone"))
	assert.Equal(t, hal.Initialized, hw.State())
	assert.True(t, hw.Instance().ID().IsZero())

	assert.ErrorIs(t, hw.HWInit(strings.Repeat("x", hal.MaxIDLen+1)), hal.ErrIDTooLong)

	wide, _ := newHardware(t, New((&simFamily{}).family()), 1, pixel.Format{Components: "RGB", Type: pixel.U16})
	assert.ErrorIs(t, wide.HWInit("*"), hal.ErrUnsupportedFormat)
}

func TestPipelineNeedsDevice(t *testing.T) {
	fam := &simFamily{}
	b := New(fam.family())
	hw, chain := newHardware(t, b, 2, pixel.RGBu8)
	inst := hw.Instance()
	assert.ErrorIs(t, b.Send(inst, chain, 1, 0), hal.ErrNoDevice)
	assert.ErrorIs(t, b.Show(inst), hal.ErrNoDevice)
	assert.NoError(t, b.Send(inst, chain, 0, 0))
}

func TestLEDCountLockedWhileOpen(t *testing.T) {
	fam := &simFamily{}
	hw, _ := newHardware(t, New(fam.family()), 2, pixel.RGBu8)
	require.NoError(t, hw.Set(hal.KindLEDCount, hal.Value{LEDCount: 1}))
	require.NoError(t, hw.HWInit("*"))
	assert.ErrorIs(t, hw.Set(hal.KindLEDCount, hal.Value{LEDCount: 2}), hal.ErrInUse)
	require.NoError(t, hw.HWDeinit())
	require.NoError(t, hw.Set(hal.KindLEDCount, hal.Value{LEDCount: 2}))
}

func TestDeinitClosesOpenTransport(t *testing.T) {
	fam := &simFamily{}
	hw, _ := newHardware(t, New(fam.family()), 1, pixel.RGBu8)
	require.NoError(t, hw.HWInit("*"))
	require.NoError(t, hw.Deinit())
	assert.True(t, fam.sims[0].Closed())
}

func TestNRZFamily(t *testing.T) {
	var buf bytes.Buffer
	var ports []string
	open := func(name string) (spi.PortCloser, error) {
		ports = append(ports, name)
		return spitest.NewRecordRaw(&buf), nil
	}
	hw, chain := newHardware(t, New(NRZ(open)), 2, pixel.GRBu8)
	require.NoError(t, hw.HWInit("*"))
	assert.Equal(t, []string{""}, ports)

	chain.Fill(0xff)
	require.NoError(t, hw.Send(2, 0))
	require.NoError(t, hw.Show())
	assert.Equal(t, 2*3*4+3, buf.Len())

	p, err := hw.Property()
	require.NoError(t, err)
	assert.Equal(t, "nrz", p.Name)
	require.NoError(t, hw.Deinit())
}

func TestNRZFamilyRejectsGreyscale(t *testing.T) {
	hw, _ := newHardware(t, New(NRZ(func(string) (spi.PortCloser, error) {
		return nil, errors.New("unused")
	})), 2, pixel.Yu8)
	assert.ErrorIs(t, hw.HWInit("*"), led.ErrFormat)
}

func TestWSFamily(t *testing.T) {
	frames := make(chan []byte, 1)
	up := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		var hello led.WSHello
		if conn.ReadJSON(&hello) != nil {
			return
		}
		_, b, err := conn.ReadMessage()
		if err == nil {
			frames <- b
		}
		_, _, _ = conn.ReadMessage()
	}))
	defer srv.Close()

	hw, chain := newHardware(t, New(WS(nil)), 1, pixel.RGBu8)
	assert.ErrorIs(t, hw.HWInit("*"), hal.ErrMalformedID)
	require.NoError(t, hw.HWInit("ws"+strings.TrimPrefix(srv.URL, "http")))
	require.NoError(t, chain.SetPixel(0, []byte{4, 5, 6}))
	require.NoError(t, hw.Send(1, 0))
	require.NoError(t, hw.Show())
	assert.Equal(t, []byte{4, 5, 6}, <-frames)
	require.NoError(t, hw.Deinit())
}

func TestFamilyDefaults(t *testing.T) {
	for _, f := range []Family{SPIDev(), NRZ(nil), Console(), WS(nil)} {
		d := New(f).Descriptor()
		assert.Equal(t, f.Name, d.Family)
		assert.NotEmpty(t, d.IDExample)
		_, err := f.Ext.Defaults()
		assert.NoError(t, err, f.Name)
	}
}

func TestLimitWhiteCap(t *testing.T) {
	frame := []byte{255, 255, 255, 30, 0, 0}
	limit(frame, 3, 50, 0)
	assert.Equal(t, []byte{127, 127, 127, 30, 0, 0}, frame)
}

func TestLimitBudget(t *testing.T) {
	// ten white pixels draw 600mA
	frame := bytes.Repeat([]byte{255}, 30)
	limit(frame, 3, 100, 300)
	var sum int
	for _, c := range frame {
		sum += int(c)
	}
	assert.LessOrEqual(t, float64(sum)*ChannelMilliamps/255, 300.0)
	assert.Greater(t, sum, 0)

	under := bytes.Repeat([]byte{10}, 30)
	limit(under, 3, 100, 300)
	assert.Equal(t, bytes.Repeat([]byte{10}, 30), under)
}

func TestLimiterAppliedAtShow(t *testing.T) {
	fam := &simFamily{}
	f := fam.family()
	f.Ext.Fields = append(f.Ext.Fields, limiterFields()...)
	hw, chain := newHardware(t, New(f), 1, pixel.RGBu8)
	n, _ := settings.NewNode("sim")
	require.NoError(t, n.SetInt(BrightnessField, 255))
	require.NoError(t, n.SetInt(WhiteCapField, 50))
	require.NoError(t, n.SetInt(BudgetField, 0))
	require.NoError(t, hw.ApplyProperty(n))
	require.NoError(t, hw.HWInit("*"))

	require.NoError(t, chain.SetPixel(0, []byte{255, 255, 255}))
	require.NoError(t, hw.Send(1, 0))
	require.NoError(t, hw.Show())
	assert.Equal(t, []byte{127, 127, 127}, fam.sims[0].Frames()[0])
	assert.Equal(t, []byte{255, 255, 255}, hw.Instance().Staged())
}

func TestPartialPropertyIsRejected(t *testing.T) {
	fam := &simFamily{}
	f := fam.family()
	f.Ext.Fields = append(f.Ext.Fields, limiterFields()...)
	hw, chain := newHardware(t, New(f), 1, pixel.RGBu8)
	require.NoError(t, hw.HWInit("*"))
	require.NoError(t, chain.SetPixel(0, []byte{9, 8, 7}))
	require.NoError(t, hw.Send(1, 0))

	n, _ := settings.NewNode("sim")
	require.NoError(t, n.SetInt(WhiteCapField, 10))
	assert.ErrorIs(t, hw.ApplyProperty(n), settings.ErrNoProperty)

	inst := hw.Instance()
	assert.Equal(t, []byte{9, 8, 7}, inst.Staged())
	for field, want := range map[string]int{BrightnessField: 255, WhiteCapField: 100, BudgetField: 0} {
		v, err := inst.PropInt("sim", field)
		require.NoError(t, err, field)
		assert.Equal(t, want, v, field)
	}
	require.NoError(t, hw.Show())
	assert.Equal(t, []byte{9, 8, 7}, fam.sims[0].Frames()[0])
}
