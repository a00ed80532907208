package native

import (
	"math"
	"sync/atomic"

	"github.com/golang/glog"
	"github.com/inrack/inrack"
)

type (
	// ParamID is the dense, instance-local index of a parameter. It maps to
	// a descriptor port through Parameter.RIndex.
	ParamID int

	// ParameterType is the direction of a parameter.
	ParameterType int

	// ParameterHints are the host-side flags of a parameter.
	ParameterHints uint32

	// Parameter is one entry of the parameter table. MIDIChannel and MIDICC
	// are the mapping at the time the entry was copied out of the plugin.
	Parameter struct {
		Type        ParameterType
		Hints       ParameterHints
		RIndex      inrack.PortIndex
		MIDIChannel uint8
		MIDICC      int16 // -1 when unmapped
		Ranges      inrack.ParameterRanges
	}

	// midiMapping holds the MIDI channel and controller of a parameter in
	// one word, so the audio thread never sees half of an update.
	midiMapping struct {
		bits atomic.Uint32
	}
)

const (
	ParameterUnknown ParameterType = iota
	ParameterInput
	ParameterOutput
)

const (
	ParameterIsBoolean ParameterHints = 1 << iota
	ParameterIsInteger
	ParameterIsLogarithmic
	ParameterIsEnabled
	ParameterIsAutomable
	ParameterUsesSampleRate
	ParameterUsesScalePoints
	ParameterUsesCustomText
)

// Parameter ids below zero address the host-side controls of an instance
// in notifications.
const (
	ParameterNull         = -1
	ParameterActive       = -2
	ParameterDryWet       = -3
	ParameterVolume       = -4
	ParameterBalanceLeft  = -5
	ParameterBalanceRight = -6
)

var portToParameterHints = [...]struct {
	port  inrack.PortHints
	param ParameterHints
}{
	{inrack.PortIsBoolean, ParameterIsBoolean},
	{inrack.PortIsInteger, ParameterIsInteger},
	{inrack.PortIsLogarithmic, ParameterIsLogarithmic},
	{inrack.PortIsEnabled, ParameterIsEnabled},
	{inrack.PortIsAutomable, ParameterIsAutomable},
	{inrack.PortUsesSampleRate, ParameterUsesSampleRate},
	{inrack.PortUsesScalePoints, ParameterUsesScalePoints},
	{inrack.PortUsesCustomText, ParameterUsesCustomText},
}

// newParameter builds the table entry of the parameter port at rindex from
// the ranges the handle reports. Broken ranges are repaired so that
// Min <= Default <= Max and Max > Min.
func newParameter(port inrack.Port, rindex inrack.PortIndex, native inrack.ParameterRanges, sampleRate float64) Parameter {
	p := Parameter{RIndex: rindex, MIDICC: -1, Type: ParameterInput}
	if port.IsOutput() {
		p.Type = ParameterOutput
	}
	for _, h := range portToParameterHints {
		if port.Hints&h.port != 0 {
			p.Hints |= h.param
		}
	}
	min, max, def := native.Min, native.Max, native.Default
	if min > max {
		max = min
	}
	if max-min == 0 {
		glog.Warningf("broken parameter %q: max - min == 0", port.Name)
		max = min + 0.1
	}
	if def < min {
		def = min
	} else if def > max {
		def = max
	}
	if p.Hints&ParameterUsesSampleRate != 0 {
		min *= sampleRate
		max *= sampleRate
		def *= sampleRate
	}
	r := inrack.ParameterRanges{Default: def, Min: min, Max: max}
	switch {
	case p.Hints&ParameterIsBoolean != 0:
		r.Step = max - min
		r.StepSmall = r.Step
		r.StepLarge = r.Step
	case p.Hints&ParameterIsInteger != 0:
		r.Step = 1
		r.StepSmall = 1
		r.StepLarge = 10
	default:
		span := max - min
		r.Step = span / 100
		r.StepSmall = span / 1000
		r.StepLarge = span / 10
	}
	p.Ranges = r
	return p
}

func (m *midiMapping) load() (channel uint8, cc int16) {
	b := m.bits.Load()
	return uint8(b), int16(b>>8) - 1
}

func (m *midiMapping) store(channel uint8, cc int16) {
	m.bits.Store(uint32(channel) | uint32(cc+1)<<8)
}

// IsInput reports whether the host writes this parameter.
func (p *Parameter) IsInput() bool { return p.Type == ParameterInput }

// IsAutomable reports whether control events may change the parameter.
func (p *Parameter) IsAutomable() bool { return p.Hints&ParameterIsAutomable != 0 }

// FromNormalized maps an automation value in [0, 1] to a plugin value,
// snapping booleans to Min or Max and rounding integers.
func (p *Parameter) FromNormalized(x float64) float64 {
	r := p.Ranges
	if p.Hints&ParameterIsBoolean != 0 {
		if x < 0.5 {
			return r.Min
		}
		return r.Max
	}
	v := r.Unnormalize(x)
	if p.Hints&ParameterIsInteger != 0 {
		v = math.Round(v)
	}
	return v
}

// ToNormalized maps a plugin value to [0, 1].
func (p *Parameter) ToNormalized(v float64) float64 {
	return p.Ranges.Normalize(v)
}
