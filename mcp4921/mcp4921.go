// Package mcp4921 drives the Microchip MCP4921, a single channel 12-bit
// digital to analog converter with a write-only SPI interface.
//
// Analog output = (v / 4096) * Vref * gain.
//
// # Datasheet
//
// http://ww1.microchip.com/downloads/en/DeviceDoc/22248a.pdf
package mcp4921

import (
	"errors"
	"fmt"
	"sync"

	"github.com/coreman2200/mcp4921/spics"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

// Flag is a bit of the high byte of a command frame.
type Flag byte

const (
	// Buffered buffers the Vref input. Input impedance rises but range and
	// frequency response shrink.
	Buffered Flag = 0x40
	// Gain1 selects an output gain of 1. When clear the gain is 2.
	Gain1 Flag = 0x20
	// NoShutdown keeps the device active. When clear the device is shut down.
	NoShutdown Flag = 0x10
)

const (
	// Resolution is the number of output steps.
	Resolution = 1 << 12
	// MaxCode is the highest output code.
	MaxCode = Resolution - 1
)

var (
	// ErrConfiguration is matched by errors from New.
	ErrConfiguration = errors.New("mcp4921: configuration failed")
	// ErrTransmission is matched by errors from SetValue and Shutdown.
	ErrTransmission = errors.New("mcp4921: bus transmission failed")
)

// Frame is a command as clocked out to the device, high byte first.
type Frame [2]byte

// ShutdownFrame powers the device down with its output disabled.
var ShutdownFrame = Frame{0x00, 0x00}

// Encode builds the frame for output code v.
//
// Only the low 12 bits of v are used; higher bits are dropped, not rejected.
// A gain of exactly 2 selects gain x2, anything else selects gain x1.
// Every such frame takes the device out of shutdown.
func Encode(v int, gain int, buffered bool) Frame {
	h := NoShutdown
	if buffered {
		h |= Buffered
	}
	if gain != 2 {
		h |= Gain1
	}
	h |= Flag((v >> 8) & 0x0F)
	return Frame{byte(h), byte(v & 0xFF)}
}

// Opts holds the configuration options.
type Opts struct {
	// Freq is the SPI clock. Zero means 400kHz.
	Freq physic.Frequency
	// Lock is shared by every device on the same physical bus. Nil gives
	// the device its own lock.
	Lock sync.Locker
}

// DefaultOpts is the recommended default options.
var DefaultOpts = Opts{
	Freq: 400 * physic.KiloHertz,
}

// Dev is a handle to an MCP4921. It keeps no device state.
//
// Calls on one Dev are not safe to interleave; callers serialize them.
type Dev struct {
	c *spics.Channel
}

// New configures p for a MCP4921 selected by cs. No data is sent.
//
// cs may be nil to use the SPI controller's own chip-select line.
func New(p spi.Port, cs gpio.PinOut, opts *Opts) (*Dev, error) {
	o := DefaultOpts
	if opts != nil {
		o.Lock = opts.Lock
		if opts.Freq != 0 {
			o.Freq = opts.Freq
		}
	}
	c, err := spics.Configure(p, cs, o.Freq, o.Lock)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	return &Dev{c: c}, nil
}

// SetValue sets the output to code v. See Encode for the handling of v and
// gain. When coming out of shutdown the output takes about 10us to settle.
func (d *Dev) SetValue(v int, gain int, buffered bool) error {
	return d.send(Encode(v, gain, buffered))
}

// Shutdown turns off most of the internal circuits. There is no analog
// output until the next SetValue.
func (d *Dev) Shutdown() error {
	return d.send(ShutdownFrame)
}

// Halt implements conn.Resource.
func (d *Dev) Halt() error {
	return d.Shutdown()
}

func (d *Dev) String() string {
	return "mcp4921{" + d.c.String() + "}"
}

func (d *Dev) send(f Frame) error {
	err := d.c.Tx(func(w spics.Writer) error {
		return w.Write(f[:])
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransmission, err)
	}
	return nil
}

var _ conn.Resource = &Dev{}
