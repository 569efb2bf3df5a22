package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/coreman2200/mcp4921/config"
)

const ForceOptionName = "force"

func NewConfigCommand(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the config file",
		// The file may be missing or broken; do not load it.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := o.logLevel
			if level == "" {
				level = "info"
			}
			return initLog(cmd.ErrOrStderr(), level)
		},
	}
	cmd.AddCommand(NewConfigInitCommand(o))
	return cmd
}

func NewConfigInitCommand(o *options) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration to --config",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(o.configPath); err == nil && !force {
				return fmt.Errorf("config: %s exists; use --%s to overwrite", o.configPath, ForceOptionName)
			}
			if err := config.Save(o.configPath, config.Default()); err != nil {
				return err
			}
			log.Info().Str("path", o.configPath).Msg("config written")
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, ForceOptionName, false, "Overwrite an existing file")
	return cmd
}
