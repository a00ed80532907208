package plugins

import (
	"math"
	"strconv"

	"github.com/inrack/inrack"
	"github.com/viterin/vek/vek32"
)

const (
	gainIndexGain inrack.PortIndex = 4
	gainIndexMute inrack.PortIndex = 5
	gainIndexPeak inrack.PortIndex = 6
)

var gainPresets Presets

// GainDescriptor is a stereo amplifier with mute and a peak meter.
var GainDescriptor = &inrack.Descriptor{
	Category:  inrack.CategoryDynamics,
	Name:      "Gain",
	Label:     "gain",
	Maker:     "inrack",
	Copyright: "MIT",
	Ports: []inrack.Port{
		{Type: inrack.PortTypeAudio, Name: "in-left"},
		{Type: inrack.PortTypeAudio, Name: "in-right"},
		{Type: inrack.PortTypeAudio, Name: "out-left", Hints: inrack.PortIsOutput},
		{Type: inrack.PortTypeAudio, Name: "out-right", Hints: inrack.PortIsOutput},
		{Type: inrack.PortTypeParameter, Name: "gain", Hints: inrack.PortIsEnabled | inrack.PortIsAutomable | inrack.PortIsLogarithmic | inrack.PortUsesCustomText},
		{Type: inrack.PortTypeParameter, Name: "mute", Hints: inrack.PortIsEnabled | inrack.PortIsAutomable | inrack.PortIsBoolean},
		{Type: inrack.PortTypeParameter, Name: "peak", Hints: inrack.PortIsOutput | inrack.PortIsEnabled},
	},
	Init: initPrograms(&gainPresets),
	Instantiate: func(_ *inrack.Descriptor, host inrack.Host) (inrack.Handle, error) {
		g := &gain{scratch: make([]float32, host.BufferSize())}
		g.gain.Store(1)
		return g, nil
	},
}

type gain struct {
	gain, mute, peak value
	scratch          []float32
}

func (g *gain) Process(in, out [][]float32, frames int, _ []inrack.MIDIEvent) {
	if g.mute.Load() >= 0.5 {
		for i := range out {
			clear(out[i][:frames])
		}
		g.peak.Store(0)
		return
	}
	amount := float32(g.gain.Load())
	var peak float32
	for i := range out {
		o := vek32.MulNumber_Into(out[i][:frames], in[i][:frames], amount)
		peak = max(peak, vek32.Max(vek32.Abs_Into(g.scratch[:frames], o)))
	}
	g.peak.Store(float64(peak))
}

func (g *gain) param(index inrack.PortIndex) *value {
	switch index {
	case gainIndexGain:
		return &g.gain
	case gainIndexMute:
		return &g.mute
	case gainIndexPeak:
		return &g.peak
	}
	return nil
}

func (g *gain) ParameterValue(index inrack.PortIndex) float64 {
	if v := g.param(index); v != nil {
		return v.Load()
	}
	return 0
}

func (g *gain) SetParameterValue(index inrack.PortIndex, v float64) {
	if index == gainIndexPeak {
		return
	}
	if p := g.param(index); p != nil {
		p.Store(v)
	}
}

func (g *gain) ParameterRanges(index inrack.PortIndex) inrack.ParameterRanges {
	r := inrack.DefaultParameterRanges
	switch index {
	case gainIndexGain:
		r.Default, r.Min, r.Max = 1, 0, 4
	case gainIndexMute:
		r.Step, r.StepSmall, r.StepLarge = 1, 1, 1
	}
	return r
}

func (g *gain) ParameterText(index inrack.PortIndex) string {
	if index != gainIndexGain {
		return ""
	}
	v := g.gain.Load()
	if v <= 0 {
		return "-inf"
	}
	return strconv.FormatFloat(20*math.Log10(v), 'f', 1, 64)
}

func (g *gain) ParameterUnit(index inrack.PortIndex) string {
	if index == gainIndexGain {
		return "dB"
	}
	return ""
}

func (g *gain) SetMIDIProgram(bank, program uint32) {
	gainPresets.apply(GainDescriptor, bank, program, g.SetParameterValue)
}
