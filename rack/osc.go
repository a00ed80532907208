package rack

import (
	"fmt"

	"github.com/9600org/go-osc/osc"
	"github.com/golang/glog"
	"github.com/inrack/inrack"
	"github.com/inrack/inrack/engine"
	"github.com/inrack/inrack/native"
)

// AddOSCHandlers registers the control methods of every instance on d,
// under /inrack/<plugin id>/<method>. Handlers run on the caller of
// Dispatch and must not be called from the audio thread.
func (r *Rack) AddOSCHandlers(d *engine.ExactDispatcher) error {
	for _, p := range r.plugins {
		p := p
		handlers := map[string]func(*osc.Message){
			"set_active": func(m *osc.Message) {
				if v, ok := intArg(m, 0); ok {
					p.SetActive(v != 0, false, true)
				}
			},
			"set_drywet": func(m *osc.Message) {
				if v, ok := floatArg(m, 0); ok {
					p.SetDryWet(v, false, true)
				}
			},
			"set_volume": func(m *osc.Message) {
				if v, ok := floatArg(m, 0); ok {
					p.SetVolume(v, false, true)
				}
			},
			"set_balance_left": func(m *osc.Message) {
				if v, ok := floatArg(m, 0); ok {
					p.SetBalanceLeft(v, false, true)
				}
			},
			"set_balance_right": func(m *osc.Message) {
				if v, ok := floatArg(m, 0); ok {
					p.SetBalanceRight(v, false, true)
				}
			},
			"set_parameter_value": func(m *osc.Message) {
				id, ok1 := intArg(m, 0)
				v, ok2 := floatArg(m, 1)
				if ok1 && ok2 {
					p.SetParameterValue(id, v, true, false, true)
				}
			},
			"set_parameter_midi_cc": func(m *osc.Message) {
				id, ok1 := intArg(m, 0)
				cc, ok2 := intArg(m, 1)
				if ok1 && ok2 {
					p.SetParameterMIDICC(id, int16(cc))
				}
			},
			"set_midi_program": func(m *osc.Message) {
				if v, ok := intArg(m, 0); ok {
					p.SetMIDIProgram(v, true, false, true, true)
				}
			},
			"set_custom_data": func(m *osc.Message) {
				k, ok1 := stringArg(m, 0)
				v, ok2 := stringArg(m, 1)
				if ok1 && ok2 {
					p.SetCustomData(inrack.CustomDataString, k, v, true)
				}
			},
			"note_on": func(m *osc.Message) {
				noteArgs(p, m, true)
			},
			"note_off": func(m *osc.Message) {
				noteArgs(p, m, false)
			},
		}
		for method, f := range handlers {
			addr := fmt.Sprintf("%s/%d/%s", engine.OSCPrefix, p.ID(), method)
			if err := d.AddMsgHandler(addr, f); err != nil {
				return err
			}
		}
	}
	return nil
}

func noteArgs(p *native.Plugin, m *osc.Message, on bool) {
	ch, ok1 := intArg(m, 0)
	note, ok2 := intArg(m, 1)
	velo := 0
	ok3 := true
	if on {
		velo, ok3 = intArg(m, 2)
	}
	if !ok1 || !ok2 || !ok3 || ch < 0 || note < 0 || velo < 0 {
		return
	}
	if !p.SendMIDISingleNote(uint8(ch), uint8(note), uint8(velo), true, false, true) {
		glog.Warningf("OSC %s: note rejected", m.Address)
	}
}

func intArg(m *osc.Message, i int) (int, bool) {
	if i < len(m.Arguments) {
		switch v := m.Arguments[i].(type) {
		case int32:
			return int(v), true
		case int64:
			return int(v), true
		case float32:
			return int(v), true
		}
	}
	glog.Warningf("OSC %s: argument %d is not an integer", m.Address, i)
	return 0, false
}

func floatArg(m *osc.Message, i int) (float64, bool) {
	if i < len(m.Arguments) {
		switch v := m.Arguments[i].(type) {
		case float32:
			return float64(v), true
		case float64:
			return v, true
		case int32:
			return float64(v), true
		}
	}
	glog.Warningf("OSC %s: argument %d is not a number", m.Address, i)
	return 0, false
}

func stringArg(m *osc.Message, i int) (string, bool) {
	if i < len(m.Arguments) {
		if v, ok := m.Arguments[i].(string); ok {
			return v, true
		}
	}
	glog.Warningf("OSC %s: argument %d is not a string", m.Address, i)
	return "", false
}
