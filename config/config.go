package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"periph.io/x/conn/v3/physic"
)

type SPI struct {
	Port    string `yaml:"port"`     // spireg name, "" for the first port
	CS      string `yaml:"cs"`       // gpioreg name, "" for the controller's CS
	SpeedHz int64  `yaml:"speed_hz"` // e.g. 400000
}

type Wave struct {
	Kind     string `yaml:"kind"` // constant | ramp | triangle | square | sine
	PeriodMs int    `yaml:"period_ms"`
	Low      int    `yaml:"low"`
	High     int    `yaml:"high"`
	RateHz   int    `yaml:"rate_hz"` // output updates per second
}

type Config struct {
	SPI      SPI    `yaml:"spi"`
	VrefMV   int    `yaml:"vref_mv"`
	Gain     int    `yaml:"gain"`
	Buffered bool   `yaml:"buffered"`
	Wave     Wave   `yaml:"wave"`
	LogLevel string `yaml:"log_level"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		SPI:    SPI{SpeedHz: 400000},
		VrefMV: 3300,
		Gain:   1,
		Wave: Wave{
			Kind:     "sine",
			PeriodMs: 1000,
			Low:      0,
			High:     4095,
			RateHz:   100,
		},
		LogLevel: "info",
	}
}

// Load reads path over the defaults, so a file only needs the keys it changes.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return c, nil
}

func Save(path string, c *Config) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}

func (c *Config) Validate() error {
	switch {
	case c.SPI.SpeedHz <= 0:
		return fmt.Errorf("config: invalid spi.speed_hz %d", c.SPI.SpeedHz)
	case c.VrefMV <= 0:
		return fmt.Errorf("config: invalid vref_mv %d", c.VrefMV)
	case c.Wave.RateHz <= 0:
		return fmt.Errorf("config: invalid wave.rate_hz %d", c.Wave.RateHz)
	case c.Wave.PeriodMs <= 0:
		return fmt.Errorf("config: invalid wave.period_ms %d", c.Wave.PeriodMs)
	case c.Wave.Low > c.Wave.High:
		return errors.New("config: wave.low is above wave.high")
	}
	return nil
}

func (c *Config) Freq() physic.Frequency {
	return physic.Frequency(c.SPI.SpeedHz) * physic.Hertz
}

func (c *Config) Vref() physic.ElectricPotential {
	return physic.ElectricPotential(c.VrefMV) * physic.MilliVolt
}

func (c *Config) Period() time.Duration {
	return time.Duration(c.Wave.PeriodMs) * time.Millisecond
}

// Interval is the time between two output updates.
func (c *Config) Interval() time.Duration {
	return time.Second / time.Duration(c.Wave.RateHz)
}
