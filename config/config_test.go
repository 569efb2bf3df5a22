package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/physic"
)

func TestLoadOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	doc := "spi:\n  cs: GPIO8\nbuffered: true\nwave:\n  kind: ramp\n  rate_hz: 50\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "GPIO8", c.SPI.CS)
	assert.Equal(t, int64(400000), c.SPI.SpeedHz)
	assert.True(t, c.Buffered)
	assert.Equal(t, "ramp", c.Wave.Kind)
	assert.Equal(t, 4095, c.Wave.High)
	assert.Equal(t, 20*time.Millisecond, c.Interval())
	assert.NoError(t, c.Validate())
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("gain: [1"), 0644))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	c := Default()
	c.Gain = 2
	c.SPI.Port = "SPI0.0"
	require.NoError(t, Save(path, c))
	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, c, got)
}

func TestDerived(t *testing.T) {
	c := Default()
	assert.Equal(t, 400*physic.KiloHertz, c.Freq())
	assert.Equal(t, 3300*physic.MilliVolt, c.Vref())
	assert.Equal(t, time.Second, c.Period())
	assert.Equal(t, 10*time.Millisecond, c.Interval())
}

func TestValidate(t *testing.T) {
	for name, mut := range map[string]func(c *Config){
		"speed":  func(c *Config) { c.SPI.SpeedHz = 0 },
		"vref":   func(c *Config) { c.VrefMV = -1 },
		"rate":   func(c *Config) { c.Wave.RateHz = 0 },
		"period": func(c *Config) { c.Wave.PeriodMs = 0 },
		"range":  func(c *Config) { c.Wave.Low = 10; c.Wave.High = 5 },
	} {
		c := Default()
		mut(c)
		assert.Error(t, c.Validate(), name)
	}
	assert.NoError(t, Default().Validate())
}
