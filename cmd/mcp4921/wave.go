package main

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/coreman2200/mcp4921/config"
	"github.com/coreman2200/mcp4921/output"
)

type waveFlags struct {
	kind     string
	periodMs int
	rateHz   int
	low      int
	high     int
}

func (f *waveFlags) register(fl *pflag.FlagSet) {
	fl.StringVar(&f.kind, "kind", "sine", "Waveform: constant, ramp, triangle, square, sine")
	fl.IntVar(&f.periodMs, "period-ms", 1000, "Waveform period in milliseconds")
	fl.IntVar(&f.rateHz, "rate-hz", 100, "Output updates per second")
	fl.IntVar(&f.low, "low", 0, "Lowest code")
	fl.IntVar(&f.high, "high", 4095, "Highest code")
}

// apply copies the flags that were set on the command line into c.
func (f *waveFlags) apply(fl *pflag.FlagSet, c *config.Config) error {
	if fl.Changed("kind") {
		c.Wave.Kind = f.kind
	}
	if fl.Changed("period-ms") {
		c.Wave.PeriodMs = f.periodMs
	}
	if fl.Changed("rate-hz") {
		c.Wave.RateHz = f.rateHz
	}
	if fl.Changed("low") {
		c.Wave.Low = f.low
	}
	if fl.Changed("high") {
		c.Wave.High = f.high
	}
	return c.Validate()
}

func NewWaveCommand(o *options) *cobra.Command {
	f := &waveFlags{}
	cmd := &cobra.Command{
		Use:   "wave",
		Short: "Output a periodic waveform until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := f.apply(cmd.Flags(), o.cfg); err != nil {
				return err
			}
			r, err := o.host.InitRenderer(o.cfg)
			if err != nil {
				return err
			}
			log.Info().
				Str("kind", o.cfg.Wave.Kind).
				Dur("period", o.cfg.Period()).
				Int("rate_hz", o.cfg.Wave.RateHz).
				Bool("spi", r.Spi).
				Msg("waveform starting")
			err = output.NewLooper(r, o.cfg.Interval()).Start(cmd.Context())
			if cerr := r.Close(); err == nil {
				err = cerr
			}
			return err
		},
	}
	f.register(cmd.Flags())
	return cmd
}
