package plugins

import (
	"fmt"

	"github.com/inrack/inrack"
)

type (
	// noParams is embedded by handles without parameter ports.
	noParams struct{}

	bypass struct {
		noParams
	}

	midiThrough struct {
		noParams
		host inrack.Host
	}

	midiSplit struct {
		noParams
		host inrack.Host
	}
)

func (noParams) ParameterValue(inrack.PortIndex) float64 { return 0 }
func (noParams) SetParameterValue(inrack.PortIndex, float64) {}
func (noParams) ParameterRanges(inrack.PortIndex) inrack.ParameterRanges {
	return inrack.DefaultParameterRanges
}

// BypassDescriptor copies its audio input to its output.
var BypassDescriptor = &inrack.Descriptor{
	Category:  inrack.CategoryNone,
	Name:      "Bypass",
	Label:     "bypass",
	Maker:     "inrack",
	Copyright: "MIT",
	Ports: []inrack.Port{
		{Type: inrack.PortTypeAudio, Name: "audio-in"},
		{Type: inrack.PortTypeAudio, Name: "audio-out", Hints: inrack.PortIsOutput},
	},
	Instantiate: func(*inrack.Descriptor, inrack.Host) (inrack.Handle, error) {
		return &bypass{}, nil
	},
}

func (*bypass) Process(in, out [][]float32, frames int, _ []inrack.MIDIEvent) {
	copy(out[0][:frames], in[0][:frames])
}

// MIDIThroughDescriptor re-emits every event it receives.
var MIDIThroughDescriptor = &inrack.Descriptor{
	Category:  inrack.CategoryUtility,
	Name:      "MIDI Through",
	Label:     "midi-through",
	Maker:     "inrack",
	Copyright: "MIT",
	Ports: []inrack.Port{
		{Type: inrack.PortTypeMIDI, Name: "midi-in"},
		{Type: inrack.PortTypeMIDI, Name: "midi-out", Hints: inrack.PortIsOutput},
	},
	Instantiate: func(_ *inrack.Descriptor, host inrack.Host) (inrack.Handle, error) {
		return &midiThrough{host: host}, nil
	},
}

func (m *midiThrough) Process(_, _ [][]float32, _ int, events []inrack.MIDIEvent) {
	for i := range events {
		ev := events[i]
		ev.PortOffset = 0
		if !m.host.WriteMIDIEvent(&ev) {
			return
		}
	}
}

// MIDISplitDescriptor routes every channel voice event to the output port
// of its channel.
var MIDISplitDescriptor = &inrack.Descriptor{
	Category:  inrack.CategoryUtility,
	Name:      "MIDI Split",
	Label:     "midi-split",
	Maker:     "inrack",
	Copyright: "MIT",
	Ports:     midiSplitPorts(),
	Instantiate: func(_ *inrack.Descriptor, host inrack.Host) (inrack.Handle, error) {
		return &midiSplit{host: host}, nil
	},
}

func midiSplitPorts() []inrack.Port {
	ports := []inrack.Port{{Type: inrack.PortTypeMIDI, Name: "midi-in"}}
	for ch := 1; ch <= 16; ch++ {
		ports = append(ports, inrack.Port{Type: inrack.PortTypeMIDI, Name: fmt.Sprintf("midi-out-%d", ch), Hints: inrack.PortIsOutput})
	}
	return ports
}

func (m *midiSplit) Process(_, _ [][]float32, _ int, events []inrack.MIDIEvent) {
	for i := range events {
		ev := events[i]
		ev.PortOffset = uint32(ev.Channel())
		if !m.host.WriteMIDIEvent(&ev) {
			return
		}
	}
}
