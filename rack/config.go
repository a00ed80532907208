package rack

import (
	"bytes"
	"io"
	"os"

	"github.com/inrack/inrack/engine"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type (
	// Config is a rack file: the engine options and the plugin chain, in
	// processing order.
	Config struct {
		Engine  engine.Options `yaml:"engine"`
		Plugins []PluginConfig `yaml:"plugins"`
	}

	// PluginConfig describes one instance of the chain. Parameters and MIDI
	// controller mappings are addressed by parameter name. Unset optional
	// fields keep the instance defaults; Active defaults to true.
	PluginConfig struct {
		Label        string             `yaml:"label"`
		Name         string             `yaml:"name,omitempty"`
		Active       *bool              `yaml:"active,omitempty"`
		DryWet       *float64           `yaml:"drywet,omitempty"`
		Volume       *float64           `yaml:"volume,omitempty"`
		BalanceLeft  *float64           `yaml:"balanceleft,omitempty"`
		BalanceRight *float64           `yaml:"balanceright,omitempty"`
		CtrlChannel  *int8              `yaml:"ctrlchannel,omitempty"`
		Program      *int               `yaml:"program,omitempty"`
		Params       map[string]float64 `yaml:"params,omitempty"`
		MIDICC       map[string]int16   `yaml:"midicc,omitempty"`
		CustomData   map[string]string  `yaml:"customdata,omitempty"`
	}
)

var ErrEmptyLabel = errors.New("plugin without label")

// LoadConfig reads and parses a rack file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "could not read rack file")
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, errors.Wrapf(err, "rack file %v", path)
	}
	return cfg, nil
}

// ParseConfig decodes a rack file. Unknown fields are an error.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "could not parse rack")
	}
	for i, p := range cfg.Plugins {
		if p.Label == "" {
			return nil, errors.Wrapf(ErrEmptyLabel, "plugin %d", i)
		}
	}
	return &cfg, nil
}

// Marshal encodes the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
