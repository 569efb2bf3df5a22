// Package spics wraps a SPI port with a manually managed chip-select line
// and an exclusive bus lock, so that several chips on the same physical bus
// can take turns.
package spics

import (
	"errors"
	"fmt"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

// Writer is the part of a Channel exposed inside a transaction.
type Writer interface {
	Write(b []byte) error
}

// Error is returned when an operation on the channel fails.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return "spics: " + e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Channel is one chip on a SPI bus. The chip-select line is active low.
type Channel struct {
	c  spi.Conn
	cs gpio.PinOut
	l  sync.Locker
}

// Configure connects p at f in mode 0 with 8 bit words.
//
// When cs is nil or gpio.INVALID the controller drives its own CS line and
// Select/Unselect do nothing. Otherwise the controller CS is disabled and cs
// is driven to its idle level.
//
// l serializes access to the physical bus and should be shared by every
// Channel on it. A nil l gets a private mutex.
func Configure(p spi.Port, cs gpio.PinOut, f physic.Frequency, l sync.Locker) (*Channel, error) {
	if p == nil {
		return nil, errors.New("spics: port is required")
	}
	if f <= 0 {
		return nil, fmt.Errorf("spics: invalid clock frequency %s", f)
	}
	if cs == gpio.INVALID {
		cs = nil
	}
	mode := spi.Mode0
	if cs != nil {
		mode |= spi.NoCS
	}
	c, err := p.Connect(f, mode, 8)
	if err != nil {
		return nil, &Error{Op: "connect", Err: err}
	}
	if cs != nil {
		if err := cs.Out(gpio.High); err != nil {
			return nil, &Error{Op: "cs " + cs.Name(), Err: err}
		}
	}
	if l == nil {
		l = &sync.Mutex{}
	}
	return &Channel{c: c, cs: cs, l: l}, nil
}

// Lock takes exclusive ownership of the bus.
func (c *Channel) Lock() {
	c.l.Lock()
}

// Unlock releases the bus.
func (c *Channel) Unlock() {
	c.l.Unlock()
}

// Select asserts the chip-select line.
func (c *Channel) Select() error {
	if c.cs == nil {
		return nil
	}
	if err := c.cs.Out(gpio.Low); err != nil {
		return &Error{Op: "select", Err: err}
	}
	return nil
}

// Unselect deasserts the chip-select line.
func (c *Channel) Unselect() error {
	if c.cs == nil {
		return nil
	}
	if err := c.cs.Out(gpio.High); err != nil {
		return &Error{Op: "unselect", Err: err}
	}
	return nil
}

// Write sends b and discards whatever is clocked back.
func (c *Channel) Write(b []byte) error {
	if err := c.c.Tx(b, nil); err != nil {
		return &Error{Op: "write", Err: err}
	}
	return nil
}

// Tx runs fn with the bus locked and the chip selected. The chip is
// unselected and the bus unlocked on every return path, including when fn
// fails or panics. An error from fn takes precedence over one from Unselect.
func (c *Channel) Tx(fn func(w Writer) error) (err error) {
	c.Lock()
	defer c.Unlock()
	if err = c.Select(); err != nil {
		return err
	}
	defer func() {
		if uerr := c.Unselect(); err == nil {
			err = uerr
		}
	}()
	return fn(c)
}

func (c *Channel) String() string {
	if c.cs == nil {
		return c.c.String()
	}
	return c.c.String() + "/" + c.cs.Name()
}

var _ Writer = &Channel{}
var _ sync.Locker = &Channel{}
