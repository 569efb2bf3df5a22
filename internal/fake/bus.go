// Package fake has SPI bus doubles that record what a driver does with the
// bus, for headless tests.
package fake

import (
	"sync"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

// Bus event names.
const (
	EvLock     = "lock"
	EvUnlock   = "unlock"
	EvSelect   = "select"
	EvUnselect = "unselect"
	EvWrite    = "write"
)

// Log records bus events in order.
type Log struct {
	mu     sync.Mutex
	events []string
	writes [][]byte
}

func (l *Log) add(e string) {
	l.mu.Lock()
	l.events = append(l.events, e)
	l.mu.Unlock()
}

// Events returns a copy of the events recorded so far.
func (l *Log) Events() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

// Writes returns a copy of every buffer written so far.
func (l *Log) Writes() [][]byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([][]byte(nil), l.writes...)
}

// Count returns how many times e was recorded.
func (l *Log) Count(e string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, v := range l.events {
		if v == e {
			n++
		}
	}
	return n
}

// Reset forgets everything recorded.
func (l *Log) Reset() {
	l.mu.Lock()
	l.events = nil
	l.writes = nil
	l.mu.Unlock()
}

// Lock is a sync.Locker that records its use.
type Lock struct {
	Log *Log
	mu  sync.Mutex
}

func (l *Lock) Lock() {
	l.mu.Lock()
	l.Log.add(EvLock)
}

func (l *Lock) Unlock() {
	l.Log.add(EvUnlock)
	l.mu.Unlock()
}

// Pin is an active low chip-select line that records level changes.
type Pin struct {
	gpiotest.Pin
	Log *Log
	// Err, when set, is returned by Out and the level is left alone.
	Err error
}

// NewPin returns a Pin named name that records into l.
func NewPin(name string, l *Log) *Pin {
	return &Pin{Pin: gpiotest.Pin{N: name, Num: -1}, Log: l}
}

func (p *Pin) Out(l gpio.Level) error {
	if p.Err != nil {
		return p.Err
	}
	if l == gpio.Low {
		p.Log.add(EvSelect)
	} else {
		p.Log.add(EvUnselect)
	}
	return p.Pin.Out(l)
}

// Port is a spi.Port whose connection records every write.
type Port struct {
	Log *Log
	// ConnectErr is returned by Connect.
	ConnectErr error
	// TxErr is returned by every Tx, after the write is recorded.
	TxErr error

	mu     sync.Mutex
	closed bool
	freq   physic.Frequency
	mode   spi.Mode
	bits   int
}

func (p *Port) String() string {
	return "fake"
}

func (p *Port) Connect(f physic.Frequency, mode spi.Mode, bits int) (spi.Conn, error) {
	if p.ConnectErr != nil {
		return nil, p.ConnectErr
	}
	p.mu.Lock()
	p.freq, p.mode, p.bits = f, mode, bits
	p.mu.Unlock()
	return &portConn{p: p}, nil
}

func (p *Port) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return nil
}

// Closed reports whether Close was called.
func (p *Port) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *Port) LimitSpeed(f physic.Frequency) error {
	return nil
}

// Params returns what Connect was called with.
func (p *Port) Params() (physic.Frequency, spi.Mode, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.freq, p.mode, p.bits
}

type portConn struct {
	p *Port
}

func (c *portConn) String() string {
	return c.p.String()
}

func (c *portConn) Tx(w, r []byte) error {
	l := c.p.Log
	l.mu.Lock()
	l.events = append(l.events, EvWrite)
	l.writes = append(l.writes, append([]byte(nil), w...))
	l.mu.Unlock()
	return c.p.TxErr
}

func (c *portConn) TxPackets(pkts []spi.Packet) error {
	for _, pk := range pkts {
		if err := c.Tx(pk.W, pk.R); err != nil {
			return err
		}
	}
	return nil
}

func (c *portConn) Duplex() conn.Duplex {
	return conn.Full
}

var _ spi.PortCloser = &Port{}
var _ spi.Conn = &portConn{}
var _ gpio.PinOut = &Pin{}
var _ sync.Locker = &Lock{}
