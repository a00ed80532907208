//go:build plugin

package main

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/golang/glog"
	"github.com/inrack/inrack"
	"github.com/inrack/inrack/cmd"
	"github.com/inrack/inrack/rack"
	"gitlab.com/gomidi/midi/v2"
	"pipelined.dev/audio/vst2"

)

const (
	pluginID   = 0x696e726b // "inrk"
	pluginName = "inrack"
	maxFrames  = 8192
)

// defaultRack is used when no rack file is found.
const defaultRack = `
plugins:
  - label: midi-through
  - label: sine
  - label: gain
`

// instances finalizes the plugin types when the host closes the last
// instance.
var instances = &cmd.Instances{Registry: inrack.DefaultRegistry}

// vsti is the state of one plugin instance in the host.
type vsti struct {
	mu     sync.Mutex
	rack   *rack.Rack
	events []rack.Event
	in     [][]float32
	out    [][]float32
	closed bool
}

// rackFile returns the path of the rack loaded by new instances:
// $INRACK_VSTI_RACK, or inrack/vsti.yml in the user config directory.
func rackFile() string {
	if path := os.Getenv("INRACK_VSTI_RACK"); path != "" {
		return path
	}
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "inrack", "vsti.yml")
	}
	return ""
}

func loadRack(data []byte) (*rack.Rack, error) {
	cfg, err := rack.ParseConfig(data)
	if err != nil {
		return nil, err
	}
	return rack.New(cfg, inrack.DefaultRegistry)
}

func newVSTI() *vsti {
	instances.Acquire()
	data := []byte(defaultRack)
	if path := rackFile(); path != "" {
		if b, err := os.ReadFile(path); err == nil {
			data = b
		}
	}
	r, err := loadRack(data)
	if err != nil {
		glog.Errorf("inrack-vsti: %v, using the default rack", err)
		if r, err = loadRack([]byte(defaultRack)); err != nil {
			glog.Errorf("inrack-vsti: %v", err)
		}
	}
	v := &vsti{rack: r, events: make([]rack.Event, 0, 1024)}
	for ch := 0; ch < rack.Channels; ch++ {
		v.in = append(v.in, nil)
		v.out = append(v.out, nil)
	}
	return v
}

func (v *vsti) process(in, out vst2.FloatBuffer) {
	v.mu.Lock()
	defer v.mu.Unlock()
	frames := min(out.Frames, maxFrames)
	for ch := 0; ch < rack.Channels; ch++ {
		v.in[ch] = in.Channel(ch)
		v.out[ch] = out.Channel(ch)
	}
	if v.rack == nil {
		for _, b := range v.out {
			clear(b[:frames])
		}
	} else {
		v.rack.ProcessEvents(v.in, v.out, frames, v.events)
	}
	v.events = v.events[:0]
}

func (v *vsti) processEvents(ev *vst2.EventsPtr) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for i := 0; i < ev.NumEvents(); i++ {
		if m, ok := ev.Event(i).(*vst2.MIDIEvent); ok && len(v.events) < cap(v.events) {
			v.events = append(v.events, rack.Event{Frame: int(m.DeltaFrames), Msg: midi.Message{m.Data[0], m.Data[1], m.Data[2]}})
		}
	}
}

// chunk saves the current state of the rack as a rack file.
func (v *vsti) chunk() []byte {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.rack == nil {
		return nil
	}
	data, err := v.rack.Snapshot().Marshal()
	if err != nil {
		glog.Errorf("inrack-vsti: could not save the rack: %v", err)
		return nil
	}
	return data
}

// setChunk replaces the rack with one restored from a chunk.
func (v *vsti) setChunk(data []byte) {
	r, err := loadRack(data)
	if err != nil {
		glog.Errorf("inrack-vsti: could not restore the rack: %v", err)
		return
	}
	v.mu.Lock()
	old := v.rack
	v.rack = r
	v.mu.Unlock()
	if old != nil {
		old.Close()
	}
}

func (v *vsti) close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	v.closed = true
	if v.rack != nil {
		v.rack.Close()
		v.rack = nil
	}
	instances.Release()
}

func init() {
	vst2.PluginAllocator = func(vst2.Host) (vst2.Plugin, vst2.Dispatcher) {
		v := newVSTI()
		return vst2.Plugin{
				UniqueID:         pluginID,
				Version:          100,
				InputChannels:    rack.Channels,
				OutputChannels:   rack.Channels,
				Name:             pluginName,
				Vendor:           "inrack",
				Category:         vst2.PluginCategorySynth,
				Flags:            vst2.PluginIsSynth,
				ProcessFloatFunc: v.process,
			}, vst2.Dispatcher{
				CanDoFunc: func(pcds vst2.PluginCanDoString) vst2.CanDoResponse {
					switch pcds {
					case vst2.PluginCanReceiveEvents, vst2.PluginCanReceiveMIDIEvent:
						return vst2.YesCanDo
					}
					return vst2.NoCanDo
				},
				ProcessEventsFunc: v.processEvents,
				CloseFunc:         v.close,
				GetChunkFunc: func(isPreset bool) []byte {
					return v.chunk()
				},
				SetChunkFunc: func(data []byte, isPreset bool) {
					v.setChunk(data)
				},
			}
	}
}

func main() {}
