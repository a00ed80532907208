package native

import (
	"math"

	"github.com/inrack/inrack"
	"github.com/inrack/inrack/engine"
	"github.com/viterin/vek/vek32"
)

// Process runs one audio cycle of frames samples. Event times on the
// ports are frames of the engine buffer; framesOffset is the first frame of
// this cycle within it. Process returns false without touching any port
// when the plugin is disabled.
func (p *Plugin) Process(frames int, framesOffset uint32) bool {
	if !p.BeginCycle() {
		return false
	}
	defer p.EndCycle()
	if bs := p.engine.BufferSize(); frames > bs {
		frames = bs
	}
	if frames > 0 {
		p.process(frames, framesOffset)
	}
	return true
}

func (p *Plugin) process(frames int, framesOffset uint32) {
	var inPeaks, outPeaks [2]float32
	active := p.active.Load()

	p.events.clear()
	for i := range p.midiOut {
		p.midiOut[i].port.Clear()
	}
	if p.ctrlOut != nil {
		p.ctrlOut.Clear()
	}
	if !p.running() {
		return
	}

	// Input peaks
	for i := 0; i < len(p.audioIn) && i < 2; i++ {
		inPeaks[i] = p.peak(p.audioIn[i].port.Buffer[:frames])
	}
	if !p.running() {
		return
	}

	// Automation
	if p.ctrlIn != nil && active && p.activeBefore {
		p.processControlEvents(frames, framesOffset)
	}
	if !p.running() {
		return
	}

	// MIDI input
	if len(p.midiIn) > 0 && active && p.activeBefore {
		p.notes.drain(&p.events, MaxMIDIEvents, &p.live)
		if !p.running() {
			return
		}
		p.processMIDIInput(frames, framesOffset)
	}
	if !p.running() {
		return
	}

	// Plugin
	for i := range p.audioIn {
		p.inBufs[i] = p.audioIn[i].port.Buffer[:frames]
	}
	for i := range p.audioOut {
		p.outBufs[i] = p.audioOut[i].port.Buffer[:frames]
	}
	if active {
		if !p.activeBefore {
			if ch := p.CtrlInChannel(); len(p.midiIn) > 0 && ch >= 0 && ch < 16 {
				p.events.prepend2(controlChange(ch, inrack.MIDIControlAllSoundOff), controlChange(ch, inrack.MIDIControlAllNotesOff))
				p.live.reset()
			}
			if !p.nativeActive {
				p.activateNative()
			}
		}
		countBefore := p.events.count
		p.processing.Store(true)
		p.handle.Process(p.inBufs, p.outBufs, frames, p.events.events[:countBefore])
		p.processing.Store(false)
		if !p.running() {
			return
		}
		p.postProcess(frames, &outPeaks)
		if !p.running() {
			return
		}
		p.processMIDIOutput(countBefore, frames, framesOffset)
		p.processControlOutput(framesOffset)
	} else {
		if p.activeBefore {
			p.deactivateNative()
		}
		for _, b := range p.outBufs {
			clear(b)
		}
	}
	if !p.running() {
		return
	}

	// Peaks
	for ch := 0; ch < 2; ch++ {
		p.engine.SetInputPeak(p.id, ch, float64(inPeaks[ch]))
		p.engine.SetOutputPeak(p.id, ch, float64(outPeaks[ch]))
	}
	p.activeBefore = active
}

func (p *Plugin) peak(buf []float32) float32 {
	if len(buf) == 0 {
		return 0
	}
	return vek32.Max(vek32.Abs_Into(p.scratch[:len(buf)], buf))
}

func (p *Plugin) processControlEvents(frames int, framesOffset uint32) {
	ctrlCh := p.CtrlInChannel()
	allNotesOffSent := false
	var nextBank uint32
	if cur := p.CurrentMIDIProgram(); cur >= 0 && cur < len(p.programs) {
		nextBank = p.programs[cur].Bank
	}
	n := p.ctrlIn.EventCount()
	for i := 0; i < n; i++ {
		ev := p.ctrlIn.Event(i)
		if ev == nil || ev.Time < framesOffset || int(ev.Time-framesOffset) >= frames {
			continue
		}
		onCtrlCh := int8(ev.Channel) == ctrlCh
		switch ev.Type {
		case engine.ControlEventControlChange:
			if onCtrlCh && p.processHostControl(ev) {
				continue
			}
			for k := range p.params {
				param := &p.params[k]
				channel, cc := p.mappings[k].load()
				if channel != ev.Channel || cc < 0 || uint16(cc) != ev.Controller {
					continue
				}
				if !param.IsInput() || !param.IsAutomable() {
					continue
				}
				value := param.FromNormalized(ev.Value)
				p.handle.SetParameterValue(param.RIndex, value)
				p.postpone(PostponedParameterChange, int32(k), 0, value)
			}
		case engine.ControlEventMIDIBankChange:
			if onCtrlCh {
				nextBank = uint32(math.Round(ev.Value))
			}
		case engine.ControlEventMIDIProgramChange:
			if !onCtrlCh {
				continue
			}
			program := uint32(math.Round(ev.Value))
			for k := range p.programs {
				if p.programs[k].Bank == nextBank && p.programs[k].Program == program {
					p.setMIDIProgramRT(k)
					break
				}
			}
		case engine.ControlEventAllSoundOff:
			if !onCtrlCh {
				continue
			}
			if len(p.midiIn) > 0 && !allNotesOffSent {
				p.releaseLiveNotes(uint8(ctrlCh))
			}
			if a, ok := p.handle.(inrack.Activator); ok {
				a.Deactivate()
				a.Activate()
			}
			p.postpone(PostponedParameterChange, ParameterActive, 0, 0)
			p.postpone(PostponedParameterChange, ParameterActive, 0, 1)
			allNotesOffSent = true
		case engine.ControlEventAllNotesOff:
			if !onCtrlCh {
				continue
			}
			if len(p.midiIn) > 0 && !allNotesOffSent {
				p.releaseLiveNotes(uint8(ctrlCh))
			}
			allNotesOffSent = true
		}
	}
}

// processHostControl applies the breath, channel volume and balance
// controllers to the host controls. It reports whether ev was consumed.
func (p *Plugin) processHostControl(ev *engine.ControlEvent) bool {
	switch {
	case ev.Controller == inrack.MIDIControlBreath && p.hints&HintCanDryWet != 0:
		value := clampFloat(ev.Value, 0, 1)
		p.dryWet.Store(value)
		p.postpone(PostponedParameterChange, ParameterDryWet, 0, value)
	case ev.Controller == inrack.MIDIControlChannelVolume && p.hints&HintCanVolume != 0:
		value := clampFloat(ev.Value*127/100, 0, 1.27)
		p.volume.Store(value)
		p.postpone(PostponedParameterChange, ParameterVolume, 0, value)
	case ev.Controller == inrack.MIDIControlBalance && p.hints&HintCanBalance != 0:
		left, right := balanceFromControl(ev.Value)
		p.balanceLeft.Store(left)
		p.balanceRight.Store(right)
		p.postpone(PostponedParameterChange, ParameterBalanceLeft, 0, left)
		p.postpone(PostponedParameterChange, ParameterBalanceRight, 0, right)
	default:
		return false
	}
	return true
}

// balanceFromControl splits a balance controller value in [0, 1] into the
// left and right channel positions.
func balanceFromControl(value float64) (left, right float64) {
	v := value/0.5 - 1
	switch {
	case v < 0:
		return -1, v*2 + 1
	case v > 0:
		return v*2 - 1, 1
	}
	return -1, 1
}

// releaseLiveNotes queues a note-off for every live note of channel.
func (p *Plugin) releaseLiveNotes(channel uint8) {
	p.live.release(channel, func(note uint8) {
		if p.events.count < MaxMIDIEvents {
			p.events.append(noteOff(channel, note))
		}
		p.postpone(PostponedNoteOff, int32(channel), int32(note), 0)
	})
}

func (p *Plugin) processMIDIInput(frames int, framesOffset uint32) {
	for i := range p.midiIn {
		port := p.midiIn[i].port
		n := port.EventCount()
		for k := 0; k < n && p.events.count < MaxMIDIEvents; k++ {
			ev, ok := translateInbound(port.Event(k), i, frames, framesOffset)
			if !ok {
				continue
			}
			channel, note := ev.Channel(), ev.Data[1]
			switch ev.Status() {
			case inrack.MIDIStatusNoteOff:
				p.live.set(channel, note, false)
				p.postpone(PostponedNoteOff, int32(channel), int32(note), 0)
			case inrack.MIDIStatusNoteOn:
				p.live.set(channel, note, true)
				p.postpone(PostponedNoteOn, int32(channel), int32(note), float64(ev.Data[2]))
			}
			p.events.append(ev)
		}
	}
}

// postProcess applies dry/wet, balance and volume to the outputs and
// measures the output peaks.
func (p *Plugin) postProcess(frames int, outPeaks *[2]float32) {
	dryWet := float32(p.dryWet.Load())
	volume := float32(p.volume.Load())
	balL, balR := p.balanceLeft.Load(), p.balanceRight.Load()
	doDryWet := p.hints&HintCanDryWet != 0 && dryWet != 1
	doVolume := p.hints&HintCanVolume != 0 && volume != 1
	doBalance := p.hints&HintCanBalance != 0 && (balL != -1 || balR != 1)
	tmp := p.scratch[:frames]

	if doDryWet {
		for i, out := range p.outBufs {
			in := p.inBufs[0]
			if len(p.inBufs) > 1 {
				in = p.inBufs[i]
			}
			vek32.MulNumber_Inplace(out, dryWet)
			vek32.Add_Inplace(out, vek32.MulNumber_Into(tmp, in, 1-dryWet))
		}
	}
	rangeL := float32((balL + 1) / 2)
	rangeR := float32((balR + 1) / 2)
	for i, out := range p.outBufs {
		if doBalance {
			oldLeft := p.scratchLeft[:frames]
			if i%2 == 0 {
				copy(oldLeft, out)
				vek32.MulNumber_Into(out, oldLeft, 1-rangeL)
				vek32.Add_Inplace(out, vek32.MulNumber_Into(tmp, p.outBufs[i+1], 1-rangeR))
			} else {
				vek32.MulNumber_Inplace(out, rangeR)
				vek32.Add_Inplace(out, vek32.MulNumber_Into(tmp, oldLeft, rangeL))
			}
		}
		if doVolume {
			vek32.MulNumber_Inplace(out, volume)
		}
		if i < 2 {
			outPeaks[i] = p.peak(out)
		}
	}
}

// processMIDIOutput forwards the events the plugin wrote this cycle. Events
// for a missing port, longer than three bytes or timed past the cycle are
// dropped.
func (p *Plugin) processMIDIOutput(countBefore, frames int, framesOffset uint32) {
	if len(p.midiOut) == 0 {
		return
	}
	for i := countBefore; i < p.events.count; i++ {
		ev := &p.events.events[i]
		if int(ev.PortOffset) >= len(p.midiOut) || ev.Size == 0 || ev.Size > 3 || int(ev.Time) >= frames {
			continue
		}
		ev.NormalizeNoteOff()
		p.midiOut[ev.PortOffset].port.WriteEvent(ev.Time+framesOffset, ev.Bytes())
	}
}

func (p *Plugin) processControlOutput(framesOffset uint32) {
	if p.ctrlOut == nil {
		return
	}
	for k := range p.params {
		param := &p.params[k]
		channel, cc := p.mappings[k].load()
		if param.Type != ParameterOutput || cc <= 0 {
			continue
		}
		value := p.handle.ParameterValue(param.RIndex)
		p.ctrlOut.WriteEvent(engine.ControlEventControlChange, framesOffset, channel, uint16(cc), param.ToNormalized(value))
	}
}
