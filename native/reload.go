package native

import (
	"github.com/golang/glog"
	"github.com/inrack/inrack"
	"github.com/pkg/errors"
)

// Reload rebuilds the ports, the parameter table and the program list of
// the instance from its descriptor, with the audio path stopped. When a
// port cannot be registered the instance is left without ports and the
// error is returned.
func (p *Plugin) Reload() error {
	p.ctrlMu.Lock()
	defer p.ctrlMu.Unlock()
	if p.closed {
		return ErrClosed
	}
	return p.reload()
}

func (p *Plugin) reload() error {
	resume := p.suspend()
	defer resume()
	initial := !p.reloaded
	p.reloaded = true

	glog.V(1).Infof("plugin %q: reload", p.name)
	p.client.Deactivate()
	p.client.RemoveAllPorts()
	p.clearTopology()

	d := p.desc
	aIns, aOuts, mIns, mOuts, nParams := d.Counts()
	if aIns > 0 {
		p.audioIn = make([]audioPort, 0, aIns)
		p.inBufs = make([][]float32, aIns)
	}
	if aOuts > 0 {
		p.audioOut = make([]audioPort, 0, aOuts)
		p.outBufs = make([][]float32, aOuts)
		p.scratchLeft = make([]float32, p.engine.BufferSize())
	}
	if aIns > 0 || aOuts > 0 {
		p.scratch = make([]float32, p.engine.BufferSize())
	}
	if mIns > 0 {
		p.midiIn = make([]midiPort, 0, mIns)
	}
	if mOuts > 0 {
		p.midiOut = make([]midiPort, 0, mOuts)
	}
	if nParams > 0 {
		p.params = make([]Parameter, 0, nParams)
		p.mappings = make([]midiMapping, nParams)
	}

	sampleRate := p.engine.SampleRate()
	needsCtrlIn, needsCtrlOut := false, false
	for i, port := range d.Ports {
		rindex := inrack.PortIndex(i)
		isInput := !port.IsOutput()
		switch port.Type {
		case inrack.PortTypeAudio:
			ap, err := p.client.AddAudioPort(p.engine.PortName(p.name, port.Name), isInput)
			if err != nil {
				return p.reloadFailed(err)
			}
			if isInput {
				p.audioIn = append(p.audioIn, audioPort{port: ap, rindex: rindex})
			} else {
				p.audioOut = append(p.audioOut, audioPort{port: ap, rindex: rindex})
				needsCtrlIn = true
			}
		case inrack.PortTypeMIDI:
			mp, err := p.client.AddMIDIPort(p.engine.PortName(p.name, port.Name), isInput)
			if err != nil {
				return p.reloadFailed(err)
			}
			if isInput {
				p.midiIn = append(p.midiIn, midiPort{port: mp, rindex: rindex})
				needsCtrlIn = true
			} else {
				p.midiOut = append(p.midiOut, midiPort{port: mp, rindex: rindex})
			}
		case inrack.PortTypeParameter:
			param := newParameter(port, rindex, p.handle.ParameterRanges(rindex), sampleRate)
			if param.IsInput() {
				needsCtrlIn = true
			} else {
				needsCtrlOut = true
			}
			p.mappings[len(p.params)].store(param.MIDIChannel, param.MIDICC)
			p.params = append(p.params, param)
		}
	}
	if needsCtrlIn {
		cp, err := p.client.AddControlPort(p.engine.PortName(p.name, "control-in"), true)
		if err != nil {
			return p.reloadFailed(err)
		}
		p.ctrlIn = cp
	}
	if needsCtrlOut {
		cp, err := p.client.AddControlPort(p.engine.PortName(p.name, "control-out"), false)
		if err != nil {
			return p.reloadFailed(err)
		}
		p.ctrlOut = cp
	}

	p.hints = 0
	if d.Hints&inrack.DescriptorIsSynth != 0 || (mIns > 0 && aOuts > 0) {
		p.hints |= HintIsSynth
	}
	if d.Hints&inrack.DescriptorHasGUI != 0 {
		p.hints |= HintHasGUI
	}
	if d.Hints&inrack.DescriptorUsesSingleThread != 0 {
		p.hints |= HintUsesSingleThread
	}
	if aOuts > 0 && (aIns == aOuts || aIns == 1) {
		p.hints |= HintCanDryWet
	}
	if aOuts > 0 {
		p.hints |= HintCanVolume
	}
	if aOuts >= 2 && aOuts%2 == 0 {
		p.hints |= HintCanBalance
	}

	p.reloadPrograms(initial)
	p.client.Activate()
	glog.V(1).Infof("plugin %q: %d/%d audio, %d/%d midi, %d parameters, %d programs",
		p.name, aIns, aOuts, mIns, mOuts, len(p.params), len(p.programs))
	return nil
}

func (p *Plugin) reloadFailed(err error) error {
	p.client.RemoveAllPorts()
	p.clearTopology()
	return errors.Wrapf(ErrPortRegistration, "plugin %q: %v", p.name, err)
}

func (p *Plugin) clearTopology() {
	p.audioIn, p.audioOut = nil, nil
	p.midiIn, p.midiOut = nil, nil
	p.ctrlIn, p.ctrlOut = nil, nil
	p.params, p.mappings = nil, nil
	p.inBufs, p.outBufs = nil, nil
	p.scratchLeft, p.scratch = nil, nil
	p.hints = 0
}
