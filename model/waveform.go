package model

import (
	"fmt"
	"math"
	"time"

	"github.com/coreman2200/mcp4921/mcp4921"
)

// Waveform kinds understood by New.
const (
	KindConstant = "constant"
	KindRamp     = "ramp"
	KindTriangle = "triangle"
	KindSquare   = "square"
	KindSine     = "sine"
)

// Waveform gives the DAC code to output at time t since start.
type Waveform interface {
	Code(t time.Duration) int
}

// Span is the range of codes a periodic waveform swings over.
type Span struct {
	Low    int
	High   int
	Period time.Duration
}

// phase returns where t falls within the period, in [0, 1).
func (s Span) phase(t time.Duration) float64 {
	if s.Period <= 0 {
		return 0
	}
	t %= s.Period
	if t < 0 {
		t += s.Period
	}
	return float64(t) / float64(s.Period)
}

// at maps x in [0, 1] onto the span.
func (s Span) at(x float64) int {
	return s.Low + int(math.Round(x*float64(s.High-s.Low)))
}

type Constant struct {
	Value int
}

func (c Constant) Code(time.Duration) int {
	return c.Value
}

// Ramp rises from Low to High then drops back.
type Ramp struct {
	Span
}

func (r Ramp) Code(t time.Duration) int {
	return r.at(r.phase(t))
}

type Triangle struct {
	Span
}

func (r Triangle) Code(t time.Duration) int {
	p := r.phase(t)
	if p < 0.5 {
		return r.at(2 * p)
	}
	return r.at(2 * (1 - p))
}

// Square is High for the first half of the period.
type Square struct {
	Span
}

func (s Square) Code(t time.Duration) int {
	if s.phase(t) < 0.5 {
		return s.High
	}
	return s.Low
}

// Sine starts at mid scale and rises first.
type Sine struct {
	Span
}

func (s Sine) Code(t time.Duration) int {
	return s.at((1 + math.Sin(2*math.Pi*s.phase(t))) / 2)
}

// New builds the waveform named kind. A constant waveform outputs high.
func New(kind string, low, high int, period time.Duration) (Waveform, error) {
	if low < 0 || high > mcp4921.MaxCode || low > high {
		return nil, fmt.Errorf("model: invalid code range [%d, %d]", low, high)
	}
	if kind == KindConstant {
		return Constant{Value: high}, nil
	}
	if period <= 0 {
		return nil, fmt.Errorf("model: invalid period %s", period)
	}
	s := Span{Low: low, High: high, Period: period}
	switch kind {
	case KindRamp:
		return Ramp{s}, nil
	case KindTriangle:
		return Triangle{s}, nil
	case KindSquare:
		return Square{s}, nil
	case KindSine:
		return Sine{s}, nil
	}
	return nil, fmt.Errorf("model: unknown waveform %q", kind)
}
