// Package plugins holds the built-in native plugin types. Importing the
// package registers them with inrack.DefaultRegistry.
package plugins

import (
	"embed"
	"math"
	"sync/atomic"

	"github.com/golang/glog"
	"github.com/inrack/inrack"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

//go:embed presets/*
var presetFS embed.FS

type (
	// Preset is a named set of parameter values selectable as a MIDI
	// program. Values are in the units of the parameter before sample rate
	// scaling.
	Preset struct {
		Name    string             `yaml:"name"`
		Bank    uint32             `yaml:"bank"`
		Program uint32             `yaml:"program"`
		Params  map[string]float64 `yaml:"params"`
	}

	// Presets is the preset list of one plugin type.
	Presets []Preset

	// value is a parameter value shared between the control and audio
	// threads.
	value struct {
		bits atomic.Uint64
	}
)

func (v *value) Load() float64   { return math.Float64frombits(v.bits.Load()) }
func (v *value) Store(f float64) { v.bits.Store(math.Float64bits(f)) }

// LoadPresets decodes the embedded presets of a plugin type.
func LoadPresets(label string) (Presets, error) {
	data, err := presetFS.ReadFile("presets/" + label + ".yml")
	if err != nil {
		return nil, errors.Wrapf(err, "no presets for %q", label)
	}
	var ret Presets
	if err := yaml.UnmarshalStrict(data, &ret); err != nil {
		return nil, errors.Wrapf(err, "presets of %q", label)
	}
	return ret, nil
}

// Find returns the preset selected by bank and program.
func (p Presets) Find(bank, program uint32) (Preset, bool) {
	for _, preset := range p {
		if preset.Bank == bank && preset.Program == program {
			return preset, true
		}
	}
	return Preset{}, false
}

// MIDIPrograms lists the presets as a program table.
func (p Presets) MIDIPrograms() []inrack.MIDIProgram {
	ret := make([]inrack.MIDIProgram, len(p))
	for i, preset := range p {
		ret[i] = inrack.MIDIProgram{Bank: preset.Bank, Program: preset.Program, Name: preset.Name}
	}
	return ret
}

// initPrograms returns a descriptor Init function filling the program table
// from the embedded presets and storing them in dst.
func initPrograms(dst *Presets) func(d *inrack.Descriptor) {
	return func(d *inrack.Descriptor) {
		presets, err := LoadPresets(d.Label)
		if err != nil {
			glog.Errorf("plugin type %q: %v", d.Label, err)
			return
		}
		*dst = presets
		d.MIDIPrograms = presets.MIDIPrograms()
	}
}

// apply passes the parameter values of the preset at bank and program to
// set, addressed by the ports of d. It reports whether the preset exists.
func (p Presets) apply(d *inrack.Descriptor, bank, program uint32, set func(inrack.PortIndex, float64)) bool {
	preset, ok := p.Find(bank, program)
	if !ok {
		return false
	}
	for name, v := range preset.Params {
		index, ok := portIndex(d, name)
		if !ok {
			glog.Warningf("preset %q of %q: unknown parameter %q", preset.Name, d.Label, name)
			continue
		}
		set(index, v)
	}
	return true
}

// portIndex finds a port of d by name, or returns false.
func portIndex(d *inrack.Descriptor, name string) (inrack.PortIndex, bool) {
	for i, p := range d.Ports {
		if p.Name == name {
			return inrack.PortIndex(i), true
		}
	}
	return 0, false
}

func init() {
	inrack.Register(BypassDescriptor)
	inrack.Register(MIDIThroughDescriptor)
	inrack.Register(MIDISplitDescriptor)
	inrack.Register(GainDescriptor)
	inrack.Register(SineDescriptor)
}
