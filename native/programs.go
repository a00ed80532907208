package native

import (
	"github.com/golang/glog"
	"github.com/inrack/inrack"
	"github.com/inrack/inrack/engine"
)

func (p *Plugin) MIDIProgramCount() int { return len(p.programs) }

// CurrentMIDIProgram returns the selected program index, or -1.
func (p *Plugin) CurrentMIDIProgram() int { return int(p.currentProgram.Load()) }

// MIDIProgram returns the i-th entry of the program table.
func (p *Plugin) MIDIProgram(i int) (inrack.MIDIProgram, bool) {
	if i < 0 || i >= len(p.programs) {
		return inrack.MIDIProgram{}, false
	}
	return p.programs[i], true
}

// MIDIProgramIndex finds a program by name, or returns -1.
func (p *Plugin) MIDIProgramIndex(name string) int {
	for i, prog := range p.programs {
		if prog.Name == name {
			return i
		}
	}
	return -1
}

// SetMIDIProgram selects the program at index; -1 selects none. With block
// set the audio path is stopped around the native call; without it the
// caller must guarantee that no cycle runs concurrently.
func (p *Plugin) SetMIDIProgram(index int, sendGUI, sendOSC, sendCallback, block bool) {
	if block {
		p.ctrlMu.Lock()
		defer p.ctrlMu.Unlock()
		if p.closed {
			return
		}
	}
	p.setMIDIProgram(index, sendGUI, sendOSC, sendCallback, block)
}

func (p *Plugin) setMIDIProgram(index int, sendGUI, sendOSC, sendCallback, block bool) {
	if index < -1 {
		index = -1
	} else if index >= len(p.programs) {
		return
	}
	if index >= 0 {
		if s, ok := p.handle.(inrack.MIDIProgramSetter); ok {
			prog := p.programs[index]
			if block {
				resume := p.suspend()
				s.SetMIDIProgram(prog.Bank, prog.Program)
				resume()
			} else {
				s.SetMIDIProgram(prog.Bank, prog.Program)
			}
		}
	}
	p.currentProgram.Store(int32(index))
	if sendGUI && index >= 0 {
		if g, ok := p.handle.(inrack.GUIUpdater); ok {
			g.GUIMIDIProgramChanged(p.programs[index].Bank, p.programs[index].Program)
		}
	}
	if sendOSC {
		p.engine.OSC().SendSetMIDIProgram(p.id, index)
	}
	if sendCallback {
		p.engine.Notify(engine.CallbackMIDIProgramChanged, p.id, index, 0, 0)
	}
}

// setMIDIProgramRT selects a program from the audio thread and queues the
// notification for Idle.
func (p *Plugin) setMIDIProgramRT(index int) {
	if s, ok := p.handle.(inrack.MIDIProgramSetter); ok {
		s.SetMIDIProgram(p.programs[index].Bank, p.programs[index].Program)
	}
	p.currentProgram.Store(int32(index))
	p.postpone(PostponedMIDIProgramChange, int32(index), 0, 0)
}

// reloadPrograms rebuilds the program table and keeps the selection
// meaningful. It runs with the audio path suspended.
func (p *Plugin) reloadPrograms(initial bool) {
	oldCount := len(p.programs)
	current := p.CurrentMIDIProgram()

	var progs []inrack.MIDIProgram
	if l, ok := p.handle.(inrack.MIDIProgramLister); ok {
		progs = l.MIDIPrograms()
	} else {
		progs = p.desc.MIDIPrograms
	}
	p.programs = nil
	if len(progs) > 0 {
		p.programs = make([]inrack.MIDIProgram, len(progs))
		copy(p.programs, progs)
	}
	newCount := len(p.programs)

	if osc := p.engine.OSC(); osc != nil {
		osc.SendSetMIDIProgramCount(p.id, newCount)
		for i, prog := range p.programs {
			osc.SendSetMIDIProgramData(p.id, i, prog.Bank, prog.Program, prog.Name)
		}
	}

	if initial {
		if newCount > 0 {
			p.setMIDIProgram(0, false, false, false, false)
		} else {
			p.currentProgram.Store(-1)
		}
		return
	}

	p.engine.Notify(engine.CallbackReloadPrograms, p.id, 0, 0, 0)
	next, changed := reconcileProgram(oldCount, newCount, current)
	if changed {
		glog.V(1).Infof("plugin %q: program %d -> %d after reload", p.name, current, next)
		p.setMIDIProgram(next, true, true, true, false)
	}
}

// reconcileProgram picks the selection after the program table went from
// oldCount to newCount entries. A single added program is selected; an
// invalid or missing selection falls back to the first program, and to none
// when the table is empty.
func reconcileProgram(oldCount, newCount, current int) (int, bool) {
	switch {
	case newCount == oldCount+1:
		return oldCount, true
	case current >= newCount:
		if newCount == 0 {
			return -1, true
		}
		return 0, true
	case current < 0 && newCount > 0:
		return 0, true
	case current >= 0 && newCount == 0:
		return -1, true
	}
	return current, false
}
