// Package native runs plugins implemented against the inrack descriptor
// ABI inside an engine. A Plugin owns the handle of one instance, derives
// its ports and parameters from the descriptor and drives it once per
// audio cycle through Process.
package native

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/golang/glog"
	"github.com/inrack/inrack"
	"github.com/inrack/inrack/engine"
	"github.com/pkg/errors"
)

// Hints are the capabilities of an instance, derived on every reload.
type Hints uint32

const (
	HintIsSynth Hints = 1 << iota
	HintHasGUI
	HintUsesSingleThread
	HintCanDryWet
	HintCanVolume
	HintCanBalance
)

type (
	// Plugin is one native plugin instance.
	//
	// Process is called from the audio thread. Every other method belongs
	// to the control thread; methods that change the topology or the
	// program stop the audio path while they run.
	Plugin struct {
		id       int
		name     string
		engine   *engine.Engine
		registry *inrack.Registry
		desc     *inrack.Descriptor
		handle   inrack.Handle
		client   *engine.Client

		ctrlMu     sync.Mutex
		closed     bool
		reloaded   bool
		customData []CustomData

		// Replaced only while the audio path is suspended.
		hints       Hints
		audioIn     []audioPort
		audioOut    []audioPort
		midiIn      []midiPort
		midiOut     []midiPort
		ctrlIn      *engine.ControlPort
		ctrlOut     *engine.ControlPort
		params      []Parameter
		mappings    []midiMapping
		programs    []inrack.MIDIProgram
		inBufs      [][]float32
		outBufs     [][]float32
		scratchLeft []float32
		scratch     []float32

		currentProgram atomic.Int32
		enabled        atomic.Bool
		inCycle        atomic.Int32
		processing     atomic.Bool
		active         atomic.Bool
		ctrlInChannel  atomic.Int32
		dryWet         atomicFloat64
		volume         atomicFloat64
		balanceLeft    atomicFloat64
		balanceRight   atomicFloat64

		// Owned by the audio thread, or by the control thread while
		// suspended.
		activeBefore bool
		nativeActive bool
		events       eventBuffer
		live         liveNotes

		notes     noteQueue
		postponed chan PostponedEvent
	}

	// CustomData is a key/value pair stored on the instance.
	CustomData struct {
		Type  inrack.CustomDataType
		Key   string
		Value string
	}

	audioPort struct {
		port   *engine.AudioPort
		rindex inrack.PortIndex
	}

	midiPort struct {
		port   *engine.MIDIPort
		rindex inrack.PortIndex
	}

	atomicFloat64 struct {
		bits atomic.Uint64
	}
)

var _ inrack.Plugin = &Plugin{}

func (f *atomicFloat64) Load() float64   { return math.Float64frombits(f.bits.Load()) }
func (f *atomicFloat64) Store(v float64) { f.bits.Store(math.Float64bits(v)) }

// New instantiates the descriptor registered under label and builds its
// ports. A nil registry means inrack.DefaultRegistry; an empty name means
// the descriptor name. Every resource is released when New fails.
func New(e *engine.Engine, registry *inrack.Registry, name, label string) (*Plugin, error) {
	if registry == nil {
		registry = inrack.DefaultRegistry
	}
	id, err := e.NewPluginID()
	if err != nil {
		return nil, errors.Wrapf(err, "could not add plugin %q", label)
	}
	desc, ok := registry.Lookup(label)
	if !ok {
		e.ReleasePluginID(id)
		return nil, errors.Wrapf(ErrInvalidLabel, "label %q", label)
	}
	registry.InitializeIfNeeded(desc)
	p := &Plugin{
		id:        id,
		engine:    e,
		registry:  registry,
		desc:      desc,
		postponed: make(chan PostponedEvent, maxPostponedEvents),
	}
	p.currentProgram.Store(-1)
	p.dryWet.Store(1)
	p.volume.Store(1)
	p.balanceLeft.Store(-1)
	p.balanceRight.Store(1)
	p.notes.reset()
	if desc.Instantiate == nil {
		e.ReleasePluginID(id)
		return nil, errors.Wrapf(ErrInstantiate, "label %q has no instantiate function", label)
	}
	handle, err := desc.Instantiate(desc, host{p})
	if err != nil || handle == nil {
		e.ReleasePluginID(id)
		return nil, errors.Wrapf(ErrInstantiate, "label %q: %v", label, err)
	}
	p.handle = handle
	if name == "" {
		name = desc.Name
	}
	p.name = e.UniqueName(name)
	if p.client, err = e.AddClient(p.name); err != nil {
		p.cleanupHandle()
		e.ReleaseName(p.name)
		e.ReleasePluginID(id)
		return nil, errors.Wrapf(ErrClientRegistration, "plugin %q: %v", p.name, err)
	}
	p.ctrlMu.Lock()
	err = p.reload()
	p.ctrlMu.Unlock()
	if err != nil {
		p.client.Close()
		p.cleanupHandle()
		e.ReleaseName(p.name)
		e.ReleasePluginID(id)
		return nil, err
	}
	p.enabled.Store(true)
	e.OSC().SendAddPlugin(id, p.name)
	glog.Infof("plugin %d %q (%s) added", id, p.name, label)
	return p, nil
}

// Close stops the instance, deactivates and cleans up its handle, and
// releases its ports, name and id. Closing twice is a no-op.
func (p *Plugin) Close() error {
	p.ctrlMu.Lock()
	if p.closed {
		p.ctrlMu.Unlock()
		return nil
	}
	p.closed = true
	resume := p.suspend()
	p.enabled.Store(false)
	p.deactivateNative()
	p.cleanupHandle()
	p.client.Close()
	resume()
	p.ctrlMu.Unlock()

	p.engine.ReleaseName(p.name)
	p.engine.ReleasePluginID(p.id)
	p.engine.OSC().SendRemovePlugin(p.id)
	p.engine.Notify(engine.CallbackPluginRemoved, p.id, 0, 0, 0)
	glog.Infof("plugin %d %q removed", p.id, p.name)
	return nil
}

func (p *Plugin) cleanupHandle() {
	if c, ok := p.handle.(inrack.Cleaner); ok {
		c.Cleanup()
	}
}

func (p *Plugin) activateNative() {
	if a, ok := p.handle.(inrack.Activator); ok {
		a.Activate()
	}
	p.nativeActive = true
}

func (p *Plugin) deactivateNative() {
	if !p.nativeActive {
		return
	}
	if a, ok := p.handle.(inrack.Activator); ok {
		a.Deactivate()
	}
	p.nativeActive = false
	p.live.reset()
}

func (p *Plugin) ID() int                        { return p.id }
func (p *Plugin) Name() string                   { return p.name }
func (p *Plugin) Label() string                  { return p.desc.Label }
func (p *Plugin) Maker() string                  { return p.desc.Maker }
func (p *Plugin) Copyright() string              { return p.desc.Copyright }
func (p *Plugin) RealName() string               { return p.desc.Name }
func (p *Plugin) Descriptor() *inrack.Descriptor { return p.desc }
func (p *Plugin) Engine() *engine.Engine         { return p.engine }
func (p *Plugin) Hints() Hints                   { return p.hints }

// Category returns the descriptor category, falling back to CategorySynth
// for synths that do not declare one.
func (p *Plugin) Category() inrack.Category {
	if p.desc.Category == inrack.CategoryNone && p.hints&HintIsSynth != 0 {
		return inrack.CategorySynth
	}
	return p.desc.Category
}

func (p *Plugin) AudioInCount() int  { return len(p.audioIn) }
func (p *Plugin) AudioOutCount() int { return len(p.audioOut) }
func (p *Plugin) MIDIInCount() int   { return len(p.midiIn) }
func (p *Plugin) MIDIOutCount() int  { return len(p.midiOut) }

// AudioIn returns the i-th audio input port. Ports may only be used between
// BeginCycle and EndCycle, or while the caller owns the control thread.
func (p *Plugin) AudioIn(i int) *engine.AudioPort {
	if i < 0 || i >= len(p.audioIn) {
		return nil
	}
	return p.audioIn[i].port
}

func (p *Plugin) AudioOut(i int) *engine.AudioPort {
	if i < 0 || i >= len(p.audioOut) {
		return nil
	}
	return p.audioOut[i].port
}

func (p *Plugin) MIDIIn(i int) *engine.MIDIPort {
	if i < 0 || i >= len(p.midiIn) {
		return nil
	}
	return p.midiIn[i].port
}

func (p *Plugin) MIDIOut(i int) *engine.MIDIPort {
	if i < 0 || i >= len(p.midiOut) {
		return nil
	}
	return p.midiOut[i].port
}

func (p *Plugin) ControlIn() *engine.ControlPort  { return p.ctrlIn }
func (p *Plugin) ControlOut() *engine.ControlPort { return p.ctrlOut }

func (p *Plugin) ParameterCount() int { return len(p.params) }

// Parameter returns a copy of the table entry of id.
func (p *Plugin) Parameter(id int) (Parameter, bool) {
	if id < 0 || id >= len(p.params) {
		return Parameter{}, false
	}
	ret := p.params[id]
	ret.MIDIChannel, ret.MIDICC = p.mappings[id].load()
	return ret, true
}

// ParameterIndex finds a parameter by port name, or returns -1.
func (p *Plugin) ParameterIndex(name string) int {
	for i := range p.params {
		if p.ParameterName(i) == name {
			return i
		}
	}
	return -1
}

func (p *Plugin) port(id int) (inrack.Port, bool) {
	if id < 0 || id >= len(p.params) {
		return inrack.Port{}, false
	}
	rindex := int(p.params[id].RIndex)
	if rindex >= len(p.desc.Ports) {
		return inrack.Port{}, false
	}
	return p.desc.Ports[rindex], true
}

func (p *Plugin) ParameterName(id int) string {
	port, ok := p.port(id)
	if !ok {
		return ""
	}
	return port.Name
}

func (p *Plugin) ParameterText(id int) string {
	t, ok := p.handle.(inrack.ParameterTexter)
	if !ok || id < 0 || id >= len(p.params) {
		return ""
	}
	return t.ParameterText(p.params[id].RIndex)
}

func (p *Plugin) ParameterUnit(id int) string {
	t, ok := p.handle.(inrack.ParameterTexter)
	if !ok || id < 0 || id >= len(p.params) {
		return ""
	}
	return t.ParameterUnit(p.params[id].RIndex)
}

func (p *Plugin) ParameterValue(id int) float64 {
	if id < 0 || id >= len(p.params) {
		return 0
	}
	return p.handle.ParameterValue(p.params[id].RIndex)
}

func (p *Plugin) ParameterScalePointCount(id int) int {
	port, ok := p.port(id)
	if !ok {
		return 0
	}
	return len(port.ScalePoints)
}

func (p *Plugin) ParameterScalePointValue(id, scalePoint int) float64 {
	port, ok := p.port(id)
	if !ok || scalePoint < 0 || scalePoint >= len(port.ScalePoints) {
		return 0
	}
	return port.ScalePoints[scalePoint].Value
}

func (p *Plugin) ParameterScalePointLabel(id, scalePoint int) string {
	port, ok := p.port(id)
	if !ok || scalePoint < 0 || scalePoint >= len(port.ScalePoints) {
		return ""
	}
	return port.ScalePoints[scalePoint].Label
}

// SetParameterValue clamps value into the parameter range and writes it to
// the handle directly, without stopping the audio path.
func (p *Plugin) SetParameterValue(id int, value float64, sendGUI, sendOSC, sendCallback bool) {
	if id < 0 || id >= len(p.params) {
		return
	}
	param := &p.params[id]
	value = param.Ranges.Fix(value)
	p.handle.SetParameterValue(param.RIndex, value)
	if sendGUI {
		if g, ok := p.handle.(inrack.GUIUpdater); ok {
			g.GUIParameterChanged(param.RIndex, value)
		}
	}
	p.notifyParameter(id, value, sendOSC, sendCallback)
}

func (p *Plugin) notifyParameter(id int, value float64, sendOSC, sendCallback bool) {
	if sendOSC {
		p.engine.OSC().SendSetParameterValue(p.id, id, value)
	}
	if sendCallback {
		p.engine.Notify(engine.CallbackParameterValueChanged, p.id, id, 0, value)
	}
}

// SetParameterMIDIChannel sets the channel a parameter listens to. The
// audio path keeps running.
func (p *Plugin) SetParameterMIDIChannel(id int, channel uint8) {
	if channel >= 16 {
		return
	}
	p.ctrlMu.Lock()
	defer p.ctrlMu.Unlock()
	if id < 0 || id >= len(p.mappings) {
		return
	}
	_, cc := p.mappings[id].load()
	p.mappings[id].store(channel, cc)
}

// SetParameterMIDICC maps a parameter to a MIDI controller; -1 unmaps it.
// The audio path keeps running.
func (p *Plugin) SetParameterMIDICC(id int, cc int16) {
	if cc < -1 || cc > 0x77 {
		return
	}
	p.ctrlMu.Lock()
	defer p.ctrlMu.Unlock()
	if id < 0 || id >= len(p.mappings) {
		return
	}
	channel, _ := p.mappings[id].load()
	p.mappings[id].store(channel, cc)
}

// IsActive reports whether the instance processes audio.
func (p *Plugin) IsActive() bool { return p.active.Load() }

// SetActive starts or stops processing. The handle is activated or
// deactivated by the next cycle.
func (p *Plugin) SetActive(active, sendOSC, sendCallback bool) {
	if p.active.Swap(active) == active {
		return
	}
	v := 0.0
	if active {
		v = 1
	}
	p.notifyParameter(ParameterActive, v, sendOSC, sendCallback)
}

func (p *Plugin) DryWet() float64       { return p.dryWet.Load() }
func (p *Plugin) Volume() float64       { return p.volume.Load() }
func (p *Plugin) BalanceLeft() float64  { return p.balanceLeft.Load() }
func (p *Plugin) BalanceRight() float64 { return p.balanceRight.Load() }

// SetDryWet sets the wet ratio, clamped to [0, 1].
func (p *Plugin) SetDryWet(value float64, sendOSC, sendCallback bool) {
	value = clampFloat(value, 0, 1)
	p.dryWet.Store(value)
	p.notifyParameter(ParameterDryWet, value, sendOSC, sendCallback)
}

// SetVolume sets the output gain, clamped to [0, 1.27].
func (p *Plugin) SetVolume(value float64, sendOSC, sendCallback bool) {
	value = clampFloat(value, 0, 1.27)
	p.volume.Store(value)
	p.notifyParameter(ParameterVolume, value, sendOSC, sendCallback)
}

// SetBalanceLeft sets the position of the left channel, clamped to [-1, 1].
func (p *Plugin) SetBalanceLeft(value float64, sendOSC, sendCallback bool) {
	value = clampFloat(value, -1, 1)
	p.balanceLeft.Store(value)
	p.notifyParameter(ParameterBalanceLeft, value, sendOSC, sendCallback)
}

// SetBalanceRight sets the position of the right channel, clamped to
// [-1, 1].
func (p *Plugin) SetBalanceRight(value float64, sendOSC, sendCallback bool) {
	value = clampFloat(value, -1, 1)
	p.balanceRight.Store(value)
	p.notifyParameter(ParameterBalanceRight, value, sendOSC, sendCallback)
}

// CtrlInChannel returns the MIDI channel of the host controls, or -1.
func (p *Plugin) CtrlInChannel() int8 { return int8(p.ctrlInChannel.Load()) }

// SetCtrlInChannel sets the MIDI channel whose breath, volume and balance
// controllers drive the host controls. Values outside [-1, 15] are ignored.
func (p *Plugin) SetCtrlInChannel(channel int8) {
	if channel < -1 || channel > 15 {
		return
	}
	p.ctrlInChannel.Store(int32(channel))
}

// SetCustomData passes a string key/value pair to the handle and stores
// it. Other data types are rejected. The handle is called while the audio
// path keeps running.
func (p *Plugin) SetCustomData(typ inrack.CustomDataType, key, value string, sendGUI bool) {
	if typ != inrack.CustomDataString {
		glog.Errorf("plugin %q: custom data %q has type %s, only string is supported", p.name, key, typ)
		return
	}
	if key == "" {
		glog.Errorf("plugin %q: custom data with empty key", p.name)
		return
	}
	if s, ok := p.handle.(inrack.CustomDataSetter); ok {
		s.SetCustomData(key, value)
	}
	if sendGUI {
		if g, ok := p.handle.(inrack.GUIUpdater); ok {
			g.GUICustomDataChanged(key, value)
		}
	}
	p.ctrlMu.Lock()
	defer p.ctrlMu.Unlock()
	for i := range p.customData {
		if p.customData[i].Key == key {
			p.customData[i] = CustomData{Type: typ, Key: key, Value: value}
			return
		}
	}
	p.customData = append(p.customData, CustomData{Type: typ, Key: key, Value: value})
}

// CustomData returns a snapshot of the stored custom data.
func (p *Plugin) CustomData() []CustomData {
	p.ctrlMu.Lock()
	defer p.ctrlMu.Unlock()
	ret := make([]CustomData, len(p.customData))
	copy(ret, p.customData)
	return ret
}

// SendMIDISingleNote queues a note for the next cycle; velocity 0 is a
// note-off. It returns false when the note is invalid, the instance has no
// MIDI input or the queue is full.
func (p *Plugin) SendMIDISingleNote(channel, note, velocity uint8, sendGUI, sendOSC, sendCallback bool) bool {
	if channel >= 16 || note >= 128 || velocity >= 128 || len(p.midiIn) == 0 {
		return false
	}
	if !p.notes.push(channel, note, velocity) {
		return false
	}
	g, hasGUI := p.handle.(inrack.GUIUpdater)
	if velocity > 0 {
		if sendGUI && hasGUI {
			g.GUINoteOn(channel, note, velocity)
		}
		if sendOSC {
			p.engine.OSC().SendNoteOn(p.id, int(channel), int(note), int(velocity))
		}
		if sendCallback {
			p.engine.Notify(engine.CallbackNoteOn, p.id, int(channel), int(note), float64(velocity))
		}
	} else {
		if sendGUI && hasGUI {
			g.GUINoteOff(channel, note)
		}
		if sendOSC {
			p.engine.OSC().SendNoteOff(p.id, int(channel), int(note))
		}
		if sendCallback {
			p.engine.Notify(engine.CallbackNoteOff, p.id, int(channel), int(note), 0)
		}
	}
	return true
}

// ShowGUI shows or hides the user interface of the handle, if it has one.
func (p *Plugin) ShowGUI(show bool) {
	if g, ok := p.handle.(inrack.GUI); ok {
		g.ShowGUI(show)
	}
}

// IdleGUI gives the user interface of the handle time to run.
func (p *Plugin) IdleGUI() {
	if g, ok := p.handle.(inrack.GUI); ok {
		g.IdleGUI()
	}
}

// Idle reports the changes made on the audio thread since the last call to
// the engine callback, the OSC controller and the handle's user interface.
func (p *Plugin) Idle() {
	g, hasGUI := p.handle.(inrack.GUIUpdater)
	osc := p.engine.OSC()
	p.ctrlMu.Lock()
	params, programs := p.params, p.programs
	p.ctrlMu.Unlock()
	for {
		var ev PostponedEvent
		select {
		case ev = <-p.postponed:
		default:
			return
		}
		switch ev.Type {
		case PostponedParameterChange:
			id := int(ev.Value1)
			if hasGUI && id >= 0 && id < len(params) {
				g.GUIParameterChanged(params[id].RIndex, ev.Value3)
			}
			osc.SendSetParameterValue(p.id, id, ev.Value3)
			p.engine.Notify(engine.CallbackParameterValueChanged, p.id, id, 0, ev.Value3)
		case PostponedProgramChange:
			p.engine.Notify(engine.CallbackProgramChanged, p.id, int(ev.Value1), 0, 0)
		case PostponedMIDIProgramChange:
			index := int(ev.Value1)
			if hasGUI && index >= 0 && index < len(programs) {
				g.GUIMIDIProgramChanged(programs[index].Bank, programs[index].Program)
			}
			osc.SendSetMIDIProgram(p.id, index)
			p.engine.Notify(engine.CallbackMIDIProgramChanged, p.id, index, 0, 0)
		case PostponedNoteOn:
			if hasGUI {
				g.GUINoteOn(uint8(ev.Value1), uint8(ev.Value2), uint8(ev.Value3))
			}
			osc.SendNoteOn(p.id, int(ev.Value1), int(ev.Value2), int(ev.Value3))
			p.engine.Notify(engine.CallbackNoteOn, p.id, int(ev.Value1), int(ev.Value2), ev.Value3)
		case PostponedNoteOff:
			if hasGUI {
				g.GUINoteOff(uint8(ev.Value1), uint8(ev.Value2))
			}
			osc.SendNoteOff(p.id, int(ev.Value1), int(ev.Value2))
			p.engine.Notify(engine.CallbackNoteOff, p.id, int(ev.Value1), int(ev.Value2), 0)
		}
	}
}

func clampFloat(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
