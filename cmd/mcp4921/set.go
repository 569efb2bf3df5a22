package main

import (
	"fmt"
	"strconv"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"periph.io/x/conn/v3/physic"

	"github.com/coreman2200/mcp4921/mcp4921"
	"github.com/coreman2200/mcp4921/model"
)

const (
	GainOptionName     = "gain"
	BufferedOptionName = "buffered"
	VoltsOptionName    = "volts"
)

func NewSetCommand(o *options) *cobra.Command {
	var (
		gain     int
		buffered bool
		volts    float64
	)
	cmd := &cobra.Command{
		Use:   "set [code]",
		Short: "Set the DAC output code (0-4095) or, with --volts, an output voltage",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed(GainOptionName) {
				o.cfg.Gain = gain
			}
			if cmd.Flags().Changed(BufferedOptionName) {
				o.cfg.Buffered = buffered
			}
			if len(args) == 1 && cmd.Flags().Changed(VoltsOptionName) {
				return fmt.Errorf("set: give a code or --%s, not both", VoltsOptionName)
			}
			var code int
			switch {
			case cmd.Flags().Changed(VoltsOptionName):
				v := physic.ElectricPotential(volts * float64(physic.Volt))
				c, err := model.PotentialToCode(v, o.cfg.Vref(), o.cfg.Gain)
				if err != nil {
					return err
				}
				code = c
			case len(args) == 1:
				c, err := parseCode(args[0])
				if err != nil {
					return err
				}
				code = c
			default:
				return fmt.Errorf("set: a code or --%s is required", VoltsOptionName)
			}

			d, c, err := o.host.Open(o.cfg)
			if err != nil {
				return err
			}
			defer c.Close()
			if err := d.SetValue(code, o.cfg.Gain, o.cfg.Buffered); err != nil {
				return err
			}
			log.Info().
				Int("code", code).
				Int("gain", o.cfg.Gain).
				Bool("buffered", o.cfg.Buffered).
				Str("vout", model.CodeToPotential(code, o.cfg.Vref(), o.cfg.Gain).String()).
				Msg("output set")
			return nil
		},
	}
	cmd.Flags().IntVar(&gain, GainOptionName, 1, "Output gain, 1 or 2")
	cmd.Flags().BoolVar(&buffered, BufferedOptionName, false, "Buffer the Vref input")
	cmd.Flags().Float64Var(&volts, VoltsOptionName, 0, "Output voltage, converted through vref_mv and gain")
	return cmd
}

// parseCode accepts decimal, 0x hex or 0b binary. Codes above 4095 are
// accepted; the DAC only sees the low 12 bits.
func parseCode(s string) (int, error) {
	v, err := strconv.ParseInt(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("set: invalid code %q", s)
	}
	if v < 0 {
		return 0, fmt.Errorf("set: negative code %d", v)
	}
	if v > mcp4921.MaxCode {
		log.Warn().Int64("code", v).Int64("sent", v&mcp4921.MaxCode).Msg("code wraps to 12 bits")
	}
	return int(v), nil
}
