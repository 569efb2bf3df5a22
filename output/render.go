package output

import (
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/coreman2200/mcp4921/config"
	"github.com/coreman2200/mcp4921/mcp4921"
	"github.com/coreman2200/mcp4921/model"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// Setter is what a Renderer drives; *mcp4921.Dev implements it.
type Setter interface {
	SetValue(v int, gain int, buffered bool) error
	Shutdown() error
}

type Renderer struct {
	Wave     model.Waveform
	Gain     int
	Buffered bool
	// Spi is false when frames only go to the log.
	Spi bool

	out    Setter
	closer io.Closer
}

func NewRenderer(s Setter, w model.Waveform, gain int, buffered bool) *Renderer {
	return &Renderer{
		Wave:     w,
		Gain:     gain,
		Buffered: buffered,
		Spi:      true,
		out:      s,
	}
}

// Render outputs the waveform's code for t.
func (r *Renderer) Render(t time.Duration) error {
	return r.out.SetValue(r.Wave.Code(t), r.Gain, r.Buffered)
}

// Clear shuts the DAC down.
func (r *Renderer) Clear() error {
	return r.out.Shutdown()
}

// Close releases the SPI port, if one was opened. It does not touch the
// DAC; call Clear first to shut it down.
func (r *Renderer) Close() error {
	if r.closer == nil {
		return nil
	}
	err := r.closer.Close()
	r.closer = nil
	return err
}

// Host finds the SPI port and chip-select pin a config names.
type Host struct {
	Init      func() error
	OpenPort  func(name string) (spi.PortCloser, error)
	PinByName func(name string) gpio.PinIO
}

// DefaultHost uses periph's host drivers and registries.
var DefaultHost = Host{
	Init: func() error {
		_, err := host.Init()
		return err
	},
	OpenPort:  spireg.Open,
	PinByName: gpioreg.ByName,
}

// Open initializes the host and returns the DAC described by cfg, and the
// port to close when done. A missing port is an error.
func (h Host) Open(cfg *config.Config) (*mcp4921.Dev, io.Closer, error) {
	if err := h.Init(); err != nil {
		return nil, nil, fmt.Errorf("output: %w", err)
	}
	p, err := h.OpenPort(cfg.SPI.Port)
	if err != nil {
		return nil, nil, fmt.Errorf("output: %w", err)
	}
	var cs gpio.PinOut
	if cfg.SPI.CS != "" {
		pin := h.PinByName(cfg.SPI.CS)
		if pin == nil {
			p.Close()
			return nil, nil, fmt.Errorf("output: unknown chip-select pin %q", cfg.SPI.CS)
		}
		cs = pin
	}
	d, err := NewDev(cfg, p, cs)
	if err != nil {
		p.Close()
		return nil, nil, err
	}
	log.Info().Str("dev", d.String()).Msg("DAC ready")
	return d, p, nil
}

// InitRenderer opens the DAC described by cfg and drives it with the
// configured waveform. When cfg names no port and none can be found, frames
// go to the log instead and Spi is false.
func (h Host) InitRenderer(cfg *config.Config) (*Renderer, error) {
	w, err := model.New(cfg.Wave.Kind, cfg.Wave.Low, cfg.Wave.High, cfg.Period())
	if err != nil {
		return nil, err
	}
	d, c, err := h.Open(cfg)
	if err != nil {
		if cfg.SPI.Port != "" {
			return nil, err
		}
		log.Warn().Err(err).Msg("no SPI port; logging frames instead")
		r := NewRenderer(Console{}, w, cfg.Gain, cfg.Buffered)
		r.Spi = false
		return r, nil
	}
	r := NewRenderer(d, w, cfg.Gain, cfg.Buffered)
	r.closer = c
	return r, nil
}

// Open is DefaultHost.Open.
func Open(cfg *config.Config) (*mcp4921.Dev, io.Closer, error) {
	return DefaultHost.Open(cfg)
}

// InitRenderer is DefaultHost.InitRenderer.
func InitRenderer(cfg *config.Config) (*Renderer, error) {
	return DefaultHost.InitRenderer(cfg)
}

// NewDev builds the DAC on an already opened port.
func NewDev(cfg *config.Config, p spi.Port, cs gpio.PinOut) (*mcp4921.Dev, error) {
	return mcp4921.New(p, cs, &mcp4921.Opts{Freq: cfg.Freq()})
}

// Console is a Setter that logs the frames a DAC would receive.
type Console struct{}

func (Console) SetValue(v int, gain int, buffered bool) error {
	f := mcp4921.Encode(v, gain, buffered)
	log.Debug().Int("code", v&mcp4921.MaxCode).Hex("frame", f[:]).Msg("set")
	return nil
}

func (Console) Shutdown() error {
	f := mcp4921.ShutdownFrame
	log.Debug().Hex("frame", f[:]).Msg("shutdown")
	return nil
}
