package model

import (
	"errors"
	"math"

	"github.com/coreman2200/mcp4921/mcp4921"

	"periph.io/x/conn/v3/physic"
)

var errInvalidVoltage = errors.New("model: voltage out of range")

// fullScale is the output at code 4096 for the given reference and gain.
func fullScale(vref physic.ElectricPotential, gain int) physic.ElectricPotential {
	if gain == 2 {
		return 2 * vref
	}
	return vref
}

// PotentialToCode converts an output voltage to the nearest DAC code. Any
// gain other than 2 counts as 1, like the device does.
func PotentialToCode(v, vref physic.ElectricPotential, gain int) (int, error) {
	if vref <= 0 {
		return 0, errors.New("model: invalid reference voltage")
	}
	fs := fullScale(vref, gain)
	if v < 0 || v > fs {
		return 0, errInvalidVoltage
	}
	code := int(math.Round(float64(v) / float64(fs) * mcp4921.Resolution))
	if code > mcp4921.MaxCode {
		code = mcp4921.MaxCode
	}
	return code, nil
}

// CodeToPotential is the output voltage for code: (code / 4096) * Vref * gain.
func CodeToPotential(code int, vref physic.ElectricPotential, gain int) physic.ElectricPotential {
	fs := fullScale(vref, gain)
	return physic.ElectricPotential(math.Round(float64(fs) * float64(code&mcp4921.MaxCode) / mcp4921.Resolution))
}
