// Package rack chains native plugin instances in series and drives them
// from a realtime audio callback or an offline renderer.
package rack

import (
	"slices"
	"sort"

	"github.com/golang/glog"
	"github.com/inrack/inrack"
	"github.com/inrack/inrack/engine"
	"github.com/inrack/inrack/native"
	"github.com/pkg/errors"
	"gitlab.com/gomidi/midi/v2"
)

// Channels is the width of the rack's audio path.
const Channels = 2

// midiQueueSize is the capacity of the SendMIDI queue. Messages sent to a
// full queue are dropped.
const midiQueueSize = 1024

var (
	ErrUnknownParameter = errors.New("unknown parameter")
	ErrInvalidProgram   = errors.New("program index out of range")
)

type (
	// Rack is a serial chain of native plugin instances sharing one engine.
	Rack struct {
		engine  *engine.Engine
		plugins []*native.Plugin

		queue chan midi.Message
		frame uint64

		// owned by the audio thread
		midiEvents []engine.MIDIEvent
		controls   []engine.ControlEvent
		carry      []engine.MIDIEvent
		signal     [Channels][]float32
		cur        [][]float32
	}

	// Event is a MIDI message scheduled at a frame of an offline render.
	Event struct {
		Frame int
		Msg   midi.Message
	}
)

// New creates the engine and the instances of cfg, in order, and applies
// their settings. Nothing is left open when New fails. A nil registry means
// inrack.DefaultRegistry.
func New(cfg *Config, registry *inrack.Registry) (*Rack, error) {
	e, err := engine.New("inrack", cfg.Engine)
	if err != nil {
		return nil, errors.Wrap(err, "could not create engine")
	}
	bs := e.BufferSize()
	r := &Rack{
		engine:     e,
		queue:      make(chan midi.Message, midiQueueSize),
		midiEvents: make([]engine.MIDIEvent, 0, engine.MaxPortEvents),
		controls:   make([]engine.ControlEvent, 0, engine.MaxPortEvents),
		carry:      make([]engine.MIDIEvent, 0, engine.MaxPortEvents),
		cur:        make([][]float32, Channels),
	}
	for ch := 0; ch < Channels; ch++ {
		r.signal[ch] = make([]float32, bs)
	}
	for i := range cfg.Plugins {
		pc := &cfg.Plugins[i]
		p, err := native.New(e, registry, pc.Name, pc.Label)
		if err != nil {
			r.Close()
			return nil, errors.Wrapf(err, "plugin %d", i)
		}
		r.plugins = append(r.plugins, p)
		if err := configure(p, pc); err != nil {
			r.Close()
			return nil, errors.Wrapf(err, "plugin %d (%s)", i, p.Name())
		}
	}
	glog.Infof("rack: %d plugins, %v Hz, %d frames per cycle", len(r.plugins), e.SampleRate(), bs)
	return r, nil
}

// configure applies pc to p. The program goes first so that explicit
// parameter values override the preset.
func configure(p *native.Plugin, pc *PluginConfig) error {
	if pc.Program != nil {
		if *pc.Program < -1 || *pc.Program >= p.MIDIProgramCount() {
			return errors.Wrapf(ErrInvalidProgram, "%d", *pc.Program)
		}
		p.SetMIDIProgram(*pc.Program, false, false, false, true)
	}
	for _, name := range sortedKeys(pc.Params) {
		id := p.ParameterIndex(name)
		if id < 0 {
			return errors.Wrapf(ErrUnknownParameter, "%q", name)
		}
		p.SetParameterValue(id, pc.Params[name], false, false, false)
	}
	for _, name := range sortedKeys(pc.MIDICC) {
		id := p.ParameterIndex(name)
		if id < 0 {
			return errors.Wrapf(ErrUnknownParameter, "%q", name)
		}
		p.SetParameterMIDICC(id, pc.MIDICC[name])
	}
	for _, key := range sortedKeys(pc.CustomData) {
		p.SetCustomData(inrack.CustomDataString, key, pc.CustomData[key], false)
	}
	if pc.DryWet != nil {
		p.SetDryWet(*pc.DryWet, false, false)
	}
	if pc.Volume != nil {
		p.SetVolume(*pc.Volume, false, false)
	}
	if pc.BalanceLeft != nil {
		p.SetBalanceLeft(*pc.BalanceLeft, false, false)
	}
	if pc.BalanceRight != nil {
		p.SetBalanceRight(*pc.BalanceRight, false, false)
	}
	if pc.CtrlChannel != nil {
		p.SetCtrlInChannel(*pc.CtrlChannel)
	}
	p.SetActive(pc.Active == nil || *pc.Active, false, false)
	return nil
}

// Snapshot returns the configuration reproducing the current state of the
// rack: engine options, instance settings, parameter values and mappings.
func (r *Rack) Snapshot() *Config {
	cfg := &Config{Engine: r.engine.Options()}
	for _, p := range r.plugins {
		active, drywet, volume := p.IsActive(), p.DryWet(), p.Volume()
		left, right, ctrl := p.BalanceLeft(), p.BalanceRight(), p.CtrlInChannel()
		pc := PluginConfig{
			Label:        p.Label(),
			Name:         p.Name(),
			Active:       &active,
			DryWet:       &drywet,
			Volume:       &volume,
			BalanceLeft:  &left,
			BalanceRight: &right,
			CtrlChannel:  &ctrl,
			Params:       map[string]float64{},
		}
		if prog := p.CurrentMIDIProgram(); prog >= 0 {
			pc.Program = &prog
		}
		for id := 0; id < p.ParameterCount(); id++ {
			param, _ := p.Parameter(id)
			if !param.IsInput() {
				continue
			}
			name := p.ParameterName(id)
			pc.Params[name] = p.ParameterValue(id)
			if param.MIDICC >= 0 {
				if pc.MIDICC == nil {
					pc.MIDICC = map[string]int16{}
				}
				pc.MIDICC[name] = param.MIDICC
			}
		}
		for _, cd := range p.CustomData() {
			if pc.CustomData == nil {
				pc.CustomData = map[string]string{}
			}
			pc.CustomData[cd.Key] = cd.Value
		}
		cfg.Plugins = append(cfg.Plugins, pc)
	}
	return cfg
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Close closes every instance, last first, and the engine.
func (r *Rack) Close() error {
	for i := len(r.plugins) - 1; i >= 0; i-- {
		r.plugins[i].Close()
	}
	r.plugins = nil
	return r.engine.Close()
}

func (r *Rack) Engine() *engine.Engine    { return r.engine }
func (r *Rack) Plugins() []*native.Plugin { return r.plugins }
func (r *Rack) SampleRate() float64       { return r.engine.SampleRate() }

// Plugin returns the instance with the given plugin id, or nil.
func (r *Rack) Plugin(id int) *native.Plugin {
	for _, p := range r.plugins {
		if p.ID() == id {
			return p
		}
	}
	return nil
}

// SendMIDI queues a message for the next cycle. It never blocks and
// reports false when the queue is full.
func (r *Rack) SendMIDI(msg midi.Message) bool {
	select {
	case r.queue <- msg:
		return true
	default:
		return false
	}
}

// Idle reports the changes made on the audio thread of every instance.
func (r *Rack) Idle() {
	for _, p := range r.plugins {
		p.Idle()
	}
}

// Process renders frames of audio through the chain. in may have fewer
// than Channels channels, or none; out must have Channels channels of at
// least frames samples. Process is meant for the audio thread: it does not
// allocate and does not block on control operations.
func (r *Rack) Process(in, out [][]float32, frames int) {
	r.ProcessEvents(in, out, frames, nil)
}

// ProcessEvents is Process with MIDI events at frames of this call, sorted
// by frame. They follow the messages queued with SendMIDI.
func (r *Rack) ProcessEvents(in, out [][]float32, frames int, events []Event) {
	r.drainQueue()
	bs := r.engine.BufferSize()
	for off := 0; off < frames; off += bs {
		n := min(bs, frames-off)
		events = r.addEvents(events, off, n)
		r.cycle(in, out, off, n)
		r.midiEvents = r.midiEvents[:0]
		r.controls = r.controls[:0]
	}
}

// addEvents adds the events falling before off+n to the current cycle
// starting at off, and returns the rest.
func (r *Rack) addEvents(events []Event, off, n int) []Event {
	for len(events) > 0 && events[0].Frame < off+n {
		r.addMessage(uint32(max(events[0].Frame-off, 0)), events[0].Msg)
		events = events[1:]
	}
	return events
}

func (r *Rack) drainQueue() {
	for {
		select {
		case msg := <-r.queue:
			r.addMessage(0, msg)
		default:
			return
		}
	}
}

// addMessage sorts a message into the control events broadcast to every
// instance or the MIDI events fed to the chain.
func (r *Rack) addMessage(time uint32, msg midi.Message) {
	var ch, a, b uint8
	switch {
	case msg.GetControlChange(&ch, &a, &b):
		if len(r.controls) == cap(r.controls) {
			return
		}
		ev := engine.ControlEvent{Type: engine.ControlEventControlChange, Time: time, Channel: ch, Controller: uint16(a), Value: float64(b) / 127}
		switch a {
		case inrack.MIDIControlBankSelect:
			ev.Type, ev.Value = engine.ControlEventMIDIBankChange, float64(b)
		case inrack.MIDIControlAllSoundOff:
			ev.Type = engine.ControlEventAllSoundOff
		case inrack.MIDIControlAllNotesOff:
			ev.Type = engine.ControlEventAllNotesOff
		}
		r.controls = append(r.controls, ev)
	case msg.GetProgramChange(&ch, &a):
		if len(r.controls) == cap(r.controls) {
			return
		}
		r.controls = append(r.controls, engine.ControlEvent{Type: engine.ControlEventMIDIProgramChange, Time: time, Channel: ch, Value: float64(a)})
	default:
		data := msg.Bytes()
		if len(data) == 0 || len(data) > 3 || len(r.midiEvents) == cap(r.midiEvents) {
			return
		}
		ev := engine.MIDIEvent{Time: time, Size: uint8(len(data))}
		copy(ev.Data[:], data)
		r.midiEvents = append(r.midiEvents, ev)
	}
}

// cycle runs one engine cycle of n frames starting at frame off of in and
// out.
func (r *Rack) cycle(in, out [][]float32, off, n int) {
	r.engine.SetTimeInfo(inrack.TimeInfo{Playing: true, Frame: r.frame, Valid: true})
	for ch := 0; ch < Channels; ch++ {
		r.cur[ch] = r.signal[ch][:n]
		if ch < len(in) {
			copy(r.cur[ch], in[ch][off:off+n])
		} else if len(in) > 0 {
			copy(r.cur[ch], in[0][off:off+n])
		} else {
			clear(r.cur[ch])
		}
	}
	r.carry = append(r.carry[:0], r.midiEvents...)

	for _, p := range r.plugins {
		r.runPlugin(p, n)
	}
	for ch := 0; ch < Channels; ch++ {
		copy(out[ch][off:off+n], r.cur[ch])
	}
	r.frame += uint64(n)
}

// runPlugin feeds the current signal, the carried MIDI events and the
// control events to p, runs it and collects its outputs. A disabled
// instance silences the signal.
func (r *Rack) runPlugin(p *native.Plugin, n int) {
	if !p.BeginCycle() {
		for ch := range r.cur {
			clear(r.cur[ch])
		}
		r.carry = r.carry[:0]
		return
	}
	defer p.EndCycle()

	for i := 0; i < p.AudioInCount(); i++ {
		copy(p.AudioIn(i).Buffer[:n], r.cur[min(i, Channels-1)])
	}
	for i := 0; i < p.MIDIInCount(); i++ {
		p.MIDIIn(i).Clear()
	}
	if p.MIDIInCount() > 0 {
		port := p.MIDIIn(0)
		for i := range r.carry {
			ev := &r.carry[i]
			port.WriteEvent(ev.Time, ev.Data[:ev.Size])
		}
		r.carry = r.carry[:0]
	}
	if ctrl := p.ControlIn(); ctrl != nil {
		ctrl.Clear()
		for i := range r.controls {
			ev := &r.controls[i]
			ctrl.WriteEvent(ev.Type, ev.Time, ev.Channel, ev.Controller, ev.Value)
		}
	}

	p.Process(n, 0)

	if outs := p.AudioOutCount(); outs > 0 {
		for ch := 0; ch < Channels; ch++ {
			copy(r.cur[ch], p.AudioOut(min(ch, outs-1)).Buffer[:n])
		}
	}
	if outs := p.MIDIOutCount(); outs > 0 {
		for i := 0; i < outs; i++ {
			port := p.MIDIOut(i)
			for k := 0; k < port.EventCount() && len(r.carry) < cap(r.carry); k++ {
				r.carry = append(r.carry, *port.Event(k))
			}
		}
		if outs > 1 {
			slices.SortStableFunc(r.carry, func(a, b engine.MIDIEvent) int {
				return int(a.Time) - int(b.Time)
			})
		}
	}
}

// Render runs the chain offline for frames frames, delivering each event
// at its frame, and returns the interleaved stereo output. The engine is
// in offline mode and locked for every cycle, so control calls made
// concurrently wait for cycle boundaries.
func (r *Rack) Render(frames int, events []Event) []float32 {
	r.engine.SetOffline(true)
	defer r.engine.SetOffline(false)
	events = slices.Clone(events)
	slices.SortStableFunc(events, func(a, b Event) int { return a.Frame - b.Frame })

	bs := r.engine.BufferSize()
	out := [][]float32{make([]float32, bs), make([]float32, bs)}
	ret := make([]float32, 0, frames*Channels)
	for off := 0; off < frames; off += bs {
		n := min(bs, frames-off)
		events = r.addEvents(events, off, n)
		r.engine.Lock()
		r.cycle(nil, out, 0, n)
		r.engine.Unlock()
		r.midiEvents = r.midiEvents[:0]
		r.controls = r.controls[:0]
		ret = inrack.Interleave(ret, out, n)
		r.Idle()
	}
	return ret
}
