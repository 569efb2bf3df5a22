package main

import (
	"errors"
	"io"
	"io/fs"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/coreman2200/mcp4921/config"
	"github.com/coreman2200/mcp4921/output"
)

const (
	ConfigOptionName   = "config"
	LogLevelOptionName = "log-level"
)

type options struct {
	configPath string
	logLevel   string
	cfg        *config.Config
	host       output.Host
}

func NewRootCommand(out io.Writer) *cobra.Command {
	return newRootCommand(out, &options{cfg: config.Default(), host: output.DefaultHost})
}

func newRootCommand(out io.Writer, o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "mcp4921",
		Short:         "Drive a MCP4921 12-bit DAC over SPI",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return o.init(cmd.ErrOrStderr())
		},
	}
	cmd.SetOut(out)
	cmd.AddCommand(NewSetCommand(o))
	cmd.AddCommand(NewShutdownCommand(o))
	cmd.AddCommand(NewWaveCommand(o))
	cmd.AddCommand(NewConfigCommand(o))
	cmd.PersistentFlags().StringVar(&o.configPath, ConfigOptionName, "config.yaml", "Path to config.yaml")
	cmd.PersistentFlags().StringVar(&o.logLevel, LogLevelOptionName, "", "Log level: debug, info, warn, error")
	return cmd
}

// init sets up logging and loads the config file. A missing file is not an
// error; the defaults are used.
func (o *options) init(w io.Writer) error {
	missing := false
	if c, err := config.Load(o.configPath); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		missing = true
	} else {
		o.cfg = c
	}
	if o.logLevel != "" {
		o.cfg.LogLevel = o.logLevel
	}
	if err := initLog(w, o.cfg.LogLevel); err != nil {
		return err
	}
	if missing {
		log.Debug().Str("path", o.configPath).Msg("no config file; using defaults")
	}
	return o.cfg.Validate()
}

func initLog(w io.Writer, level string) error {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return err
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen})
	return nil
}
