package output

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/mcp4921/config"
	"github.com/coreman2200/mcp4921/internal/fake"
	"github.com/coreman2200/mcp4921/model"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/spi"
)

type stubSetter struct {
	setErr    error
	sets      []int
	shutdowns int
}

func (s *stubSetter) SetValue(v int, gain int, buffered bool) error {
	if s.setErr != nil {
		return s.setErr
	}
	s.sets = append(s.sets, v)
	return nil
}

func (s *stubSetter) Shutdown() error {
	s.shutdowns++
	return nil
}

func newFakeRenderer(t *testing.T, kind string) (*Renderer, *fake.Log) {
	l := &fake.Log{}
	cfg := config.Default()
	d, err := NewDev(cfg, &fake.Port{Log: l}, fake.NewPin("CS0", l))
	require.NoError(t, err)
	w, err := model.New(kind, 0, 4095, 10*time.Millisecond)
	require.NoError(t, err)
	l.Reset()
	return NewRenderer(d, w, 2, true), l
}

func TestRender(t *testing.T) {
	s := &stubSetter{}
	r := NewRenderer(s, model.Constant{Value: 1600}, 1, false)
	require.NoError(t, r.Render(0))
	require.NoError(t, r.Render(time.Hour))
	require.NoError(t, r.Clear())
	require.NoError(t, r.Close())
	assert.Equal(t, []int{1600, 1600}, s.sets)
	assert.Equal(t, 1, s.shutdowns)
}

func TestRender_Frames(t *testing.T) {
	r, l := newFakeRenderer(t, model.KindSquare)
	require.NoError(t, r.Render(0))
	require.NoError(t, r.Render(6*time.Millisecond))
	require.NoError(t, r.Clear())
	assert.Equal(t, [][]byte{{0x5F, 0xFF}, {0x50, 0x00}, {0x00, 0x00}}, l.Writes())
}

func TestLooper_Stop(t *testing.T) {
	r, l := newFakeRenderer(t, model.KindSine)
	lp := NewLooper(r, time.Millisecond)

	done := make(chan error, 1)
	go func() { done <- lp.Start(context.Background()) }()

	assert.Eventually(t, func() bool { return len(l.Writes()) >= 5 }, 2*time.Second, time.Millisecond)
	lp.Stop()
	lp.Stop()
	require.NoError(t, <-done)

	w := l.Writes()
	assert.Equal(t, []byte{0x00, 0x00}, w[len(w)-1], "DAC is shut down on exit")
	assert.Equal(t, len(w)-1, lp.Frames())
	assert.Equal(t, l.Count(fake.EvLock), l.Count(fake.EvUnlock))
	assert.Equal(t, l.Count(fake.EvSelect), l.Count(fake.EvUnselect))
}

func TestLooper_ContextCancel(t *testing.T) {
	r, l := newFakeRenderer(t, model.KindRamp)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	require.NoError(t, NewLooper(r, time.Millisecond).Start(ctx))
	w := l.Writes()
	require.NotEmpty(t, w)
	assert.Equal(t, []byte{0x00, 0x00}, w[len(w)-1])
}

func TestLooper_RenderError(t *testing.T) {
	cause := errors.New("bus timeout")
	s := &stubSetter{setErr: cause}
	lp := NewLooper(NewRenderer(s, model.Constant{Value: 1}, 1, false), 0)

	err := lp.Start(context.Background())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 0, lp.Frames())
	assert.Equal(t, 1, s.shutdowns)
}

func TestConsole(t *testing.T) {
	r := NewRenderer(Console{}, model.Constant{Value: 4097}, 1, false)
	assert.NoError(t, r.Render(0))
	assert.NoError(t, r.Clear())
	assert.NoError(t, r.Close())
}

func fakeHost(p *fake.Port, openErr error) Host {
	return Host{
		Init: func() error { return nil },
		OpenPort: func(name string) (spi.PortCloser, error) {
			if openErr != nil {
				return nil, openErr
			}
			return p, nil
		},
		PinByName: func(name string) gpio.PinIO {
			if name == "CS0" {
				return fake.NewPin(name, p.Log)
			}
			return nil
		},
	}
}

func TestHostOpen(t *testing.T) {
	l := &fake.Log{}
	p := &fake.Port{Log: l}
	cfg := config.Default()
	cfg.SPI.CS = "CS0"

	d, c, err := fakeHost(p, nil).Open(cfg)
	require.NoError(t, err)
	l.Reset()
	require.NoError(t, d.SetValue(1600, 1, false))
	require.NoError(t, c.Close())
	assert.Equal(t, [][]byte{{0x36, 0x40}}, l.Writes())
	assert.Equal(t, []string{fake.EvLock, fake.EvSelect, fake.EvWrite, fake.EvUnselect, fake.EvUnlock}, l.Events())
	assert.True(t, p.Closed())
}

func TestHostOpen_MissingPort(t *testing.T) {
	cause := errors.New("no port SPI9.9")
	for _, port := range []string{"", "SPI9.9"} {
		cfg := config.Default()
		cfg.SPI.Port = port
		_, _, err := fakeHost(&fake.Port{Log: &fake.Log{}}, cause).Open(cfg)
		assert.ErrorIs(t, err, cause, port)
	}
}

func TestHostOpen_UnknownPin(t *testing.T) {
	p := &fake.Port{Log: &fake.Log{}}
	cfg := config.Default()
	cfg.SPI.CS = "GPIO99"
	_, _, err := fakeHost(p, nil).Open(cfg)
	assert.Error(t, err)
	assert.True(t, p.Closed(), "port is released on failure")
}

func TestInitRenderer(t *testing.T) {
	l := &fake.Log{}
	p := &fake.Port{Log: l}
	cfg := config.Default()
	cfg.Wave.Kind = model.KindConstant
	cfg.Wave.High = 1600

	r, err := fakeHost(p, nil).InitRenderer(cfg)
	require.NoError(t, err)
	assert.True(t, r.Spi)
	require.NoError(t, r.Render(0))
	require.NoError(t, r.Clear())
	require.NoError(t, r.Close())
	assert.Equal(t, [][]byte{{0x36, 0x40}, {0x00, 0x00}}, l.Writes())
	assert.True(t, p.Closed())
}

func TestInitRenderer_ConsoleFallback(t *testing.T) {
	l := &fake.Log{}
	cfg := config.Default()
	r, err := fakeHost(&fake.Port{Log: l}, errors.New("no SPI")).InitRenderer(cfg)
	require.NoError(t, err)
	assert.False(t, r.Spi)
	assert.NoError(t, r.Render(0))
	assert.NoError(t, r.Clear())
	assert.NoError(t, r.Close())
	assert.Empty(t, l.Writes())
}

func TestInitRenderer_NamedPortMissing(t *testing.T) {
	cause := errors.New("no port SPI9.9")
	cfg := config.Default()
	cfg.SPI.Port = "SPI9.9"
	_, err := fakeHost(&fake.Port{Log: &fake.Log{}}, cause).InitRenderer(cfg)
	assert.ErrorIs(t, err, cause)
}

func TestInitRenderer_BadWave(t *testing.T) {
	cfg := config.Default()
	cfg.Wave.Kind = "sawtooth"
	_, err := fakeHost(&fake.Port{Log: &fake.Log{}}, nil).InitRenderer(cfg)
	assert.Error(t, err)
}

func TestLooper_RunsOnce(t *testing.T) {
	s := &stubSetter{}
	lp := NewLooper(NewRenderer(s, model.Constant{Value: 1}, 1, false), time.Millisecond)
	lp.Stop()
	require.NoError(t, lp.Start(context.Background()))
	require.NoError(t, lp.Start(context.Background()))
	assert.Empty(t, s.sets)
	assert.Equal(t, 2, s.shutdowns)
}
