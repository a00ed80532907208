package native

import (
	"github.com/golang/glog"
	"github.com/inrack/inrack"
)

// host implements the callbacks a handle receives at instantiation.
type host struct {
	p *Plugin
}

var _ inrack.Host = host{}

func (h host) BufferSize() int            { return h.p.engine.BufferSize() }
func (h host) SampleRate() float64        { return h.p.engine.SampleRate() }
func (h host) TimeInfo() *inrack.TimeInfo { return h.p.engine.TimeInfo() }

// WriteMIDIEvent appends an event produced by the plugin. It only succeeds
// from within the handle's Process call on an enabled instance with MIDI
// outputs.
func (h host) WriteMIDIEvent(event *inrack.MIDIEvent) bool {
	p := h.p
	if event == nil || !p.enabled.Load() || len(p.midiOut) == 0 {
		return false
	}
	if !p.processing.Load() {
		glog.Errorf("plugin %q: MIDI event written outside the audio thread, ignoring", p.name)
		return false
	}
	return p.events.append(*event)
}
