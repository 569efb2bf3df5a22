package main

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func NewShutdownCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "shutdown",
		Short: "Put the DAC in shutdown mode, output disabled",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, c, err := o.host.Open(o.cfg)
			if err != nil {
				return err
			}
			defer c.Close()
			if err := d.Shutdown(); err != nil {
				return err
			}
			log.Info().Msg("DAC shut down")
			return nil
		},
	}
}
