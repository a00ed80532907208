package rack_test

import (
	"fmt"
	"testing"

	"github.com/9600org/go-osc/osc"
	"github.com/inrack/inrack"
	"github.com/inrack/inrack/engine"
	_ "github.com/inrack/inrack/plugins"
	"github.com/inrack/inrack/rack"
	"github.com/pkg/errors"
	"gitlab.com/gomidi/midi/v2"
)

const gainRack = `
engine:
  samplerate: 48000
  buffersize: 128
plugins:
  - label: gain
    params:
      gain: 2
`

func newRack(t *testing.T, src string) *rack.Rack {
	t.Helper()
	cfg, err := rack.ParseConfig([]byte(src))
	if err != nil {
		t.Fatalf("ParseConfig error: %v", err)
	}
	r, err := rack.New(cfg, nil)
	if err != nil {
		t.Fatalf("rack.New error: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func TestParseConfig(t *testing.T) {
	var tests = []struct {
		name    string
		src     string
		plugins int
		err     error
	}{
		{"empty", "", 0, nil},
		{"chain", "plugins:\n  - label: gain\n  - label: sine\n", 2, nil},
		{"unknown field", "plugins:\n  - label: gain\n    colour: red\n", 0, errors.New("")},
		{"no label", "plugins:\n  - name: lonely\n", 0, rack.ErrEmptyLabel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := rack.ParseConfig([]byte(tt.src))
			if tt.err == nil {
				if err != nil {
					t.Fatalf("ParseConfig error: %v", err)
				}
				if len(cfg.Plugins) != tt.plugins {
					t.Fatalf("plugins = %d, want %d", len(cfg.Plugins), tt.plugins)
				}
				return
			}
			if err == nil {
				t.Fatalf("ParseConfig succeeded, want error")
			}
			if tt.err == rack.ErrEmptyLabel && !errors.Is(err, rack.ErrEmptyLabel) {
				t.Errorf("error = %v, want %v", err, rack.ErrEmptyLabel)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	cfg, err := rack.LoadConfig("testdata/synth.yml")
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if len(cfg.Plugins) != 3 || cfg.Plugins[1].Label != "sine" || *cfg.Plugins[1].Program != 2 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if _, err := rack.LoadConfig("testdata/missing.yml"); err == nil {
		t.Errorf("LoadConfig of a missing file succeeded")
	}
}

func TestNewErrors(t *testing.T) {
	var tests = []struct {
		name string
		src  string
		err  error
	}{
		{"unknown parameter", "plugins:\n  - label: gain\n    params:\n      volume: 1\n", rack.ErrUnknownParameter},
		{"unknown midicc parameter", "plugins:\n  - label: gain\n    midicc:\n      volume: 7\n", rack.ErrUnknownParameter},
		{"program out of range", "plugins:\n  - label: gain\n    program: 9\n", rack.ErrInvalidProgram},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := rack.ParseConfig([]byte(tt.src))
			if err != nil {
				t.Fatalf("ParseConfig error: %v", err)
			}
			r, err := rack.New(cfg, nil)
			if err == nil {
				r.Close()
				t.Fatalf("rack.New succeeded, want %v", tt.err)
			}
			if !errors.Is(err, tt.err) {
				t.Errorf("error = %v, want %v", err, tt.err)
			}
		})
	}
	cfg, _ := rack.ParseConfig([]byte("plugins:\n  - label: no-such-plugin\n"))
	if _, err := rack.New(cfg, nil); err == nil {
		t.Errorf("rack.New with an unknown label succeeded")
	}
}

func process(r *rack.Rack, in float32, frames int) [][]float32 {
	input := []float32{}
	for i := 0; i < frames; i++ {
		input = append(input, in)
	}
	out := [][]float32{make([]float32, frames), make([]float32, frames)}
	r.Process([][]float32{input}, out, frames)
	return out
}

func TestGainChain(t *testing.T) {
	var tests = []struct {
		name  string
		extra string
		want  float32
	}{
		{"gain", "", 0.5},
		{"volume", "    volume: 0.5\n", 0.25},
		{"dry", "    drywet: 0\n", 0.25},
		{"inactive", "    active: false\n", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRack(t, gainRack+tt.extra)
			// more than one engine buffer per call
			out := process(r, 0.25, 300)
			for ch := range out {
				for i, v := range out[ch] {
					if v != tt.want {
						t.Fatalf("out[%d][%d] = %v, want %v", ch, i, v, tt.want)
					}
				}
			}
		})
	}
}

func TestRender(t *testing.T) {
	cfg, err := rack.LoadConfig("testdata/synth.yml")
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	r, err := rack.New(cfg, nil)
	if err != nil {
		t.Fatalf("rack.New error: %v", err)
	}
	defer r.Close()
	if r.SampleRate() != 48000 || len(r.Plugins()) != 3 {
		t.Fatalf("rack: %v Hz, %d plugins", r.SampleRate(), len(r.Plugins()))
	}
	if r.Plugins()[0].Name() != "keys" {
		t.Errorf("first plugin name = %q", r.Plugins()[0].Name())
	}
	buf := r.Render(4096, []rack.Event{
		{Frame: 600, Msg: midi.NoteOff(0, 69)},
		{Frame: 300, Msg: midi.NoteOn(0, 69, 127)},
	})
	if len(buf) != 8192 {
		t.Fatalf("rendered %d samples, want 8192", len(buf))
	}
	for i := 0; i < 2*300; i++ {
		if buf[i] != 0 {
			t.Fatalf("sample %d = %v before the note", i, buf[i])
		}
	}
	// square lead: the first half period is at full level
	if buf[2*300] != 0.25 || buf[2*300+1] != 0.25 {
		t.Errorf("first note samples = %v, want 0.25", buf[2*300:2*300+2])
	}
	// the release of square lead is shorter than the rest of the render
	if v := buf[len(buf)-1]; v != 0 {
		t.Errorf("last sample = %v, want silence after release", v)
	}
}

func TestSendMIDI(t *testing.T) {
	r := newRack(t, "engine:\n  buffersize: 128\nplugins:\n  - label: sine\n    program: 2\n")
	process(r, 0, 128)
	if !r.SendMIDI(midi.NoteOn(0, 69, 127)) {
		t.Fatalf("SendMIDI rejected a note")
	}
	out := process(r, 0, 128)
	if out[0][0] != 0.25 {
		t.Errorf("out[0] = %v, want 0.25", out[0][0])
	}
	r.Idle()
}

func TestOSC(t *testing.T) {
	r := newRack(t, gainRack)
	d := engine.NewExactDispatcher()
	if err := r.AddOSCHandlers(d); err != nil {
		t.Fatalf("AddOSCHandlers error: %v", err)
	}
	p := r.Plugins()[0]
	if r.Plugin(p.ID()) != p || r.Plugin(p.ID()+1) != nil {
		t.Errorf("Plugin lookup by id failed")
	}
	send := func(method string, args ...interface{}) {
		d.Dispatch(&osc.Message{Address: fmt.Sprintf("/inrack/%d/%s", p.ID(), method), Arguments: args})
	}
	gain := p.ParameterIndex("gain")

	send("set_volume", float32(0.5))
	send("set_volume", "loud")
	send("set_drywet", float32(0.25))
	send("set_balance_left", float32(-0.5))
	send("set_parameter_value", int32(gain), float32(3))
	send("set_parameter_value", int32(gain))
	send("set_midi_program", int32(2))
	send("set_custom_data", "colour", "red")
	send("set_active", int32(0))

	if p.Volume() != 0.5 {
		t.Errorf("volume = %v, want 0.5", p.Volume())
	}
	if p.DryWet() != 0.25 || p.BalanceLeft() != -0.5 {
		t.Errorf("drywet = %v, balance left = %v", p.DryWet(), p.BalanceLeft())
	}
	if p.CurrentMIDIProgram() != 2 {
		t.Errorf("program = %d, want 2", p.CurrentMIDIProgram())
	}
	if cd := p.CustomData(); len(cd) != 1 || cd[0].Value != "red" {
		t.Errorf("custom data = %+v", cd)
	}
	if p.IsActive() {
		t.Errorf("plugin still active")
	}
	send("set_active", int32(1))
	send("set_parameter_value", int32(gain), float32(3))
	if p.ParameterValue(gain) != 3 || !p.IsActive() {
		t.Errorf("gain = %v, active = %v", p.ParameterValue(gain), p.IsActive())
	}
}

func TestSnapshot(t *testing.T) {
	r := newRack(t, gainRack)
	p := r.Plugins()[0]
	gain := p.ParameterIndex("gain")
	p.SetMIDIProgram(1, false, false, false, true)
	p.SetParameterValue(gain, 3, false, false, false)
	p.SetParameterMIDICC(gain, 21)
	p.SetVolume(0.5, false, false)
	p.SetCustomData(inrack.CustomDataString, "colour", "red", false)

	data, err := r.Snapshot().Marshal()
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	restored := newRack(t, string(data))
	q := restored.Plugins()[0]
	if q.CurrentMIDIProgram() != 1 || q.ParameterValue(gain) != 3 || q.Volume() != 0.5 {
		t.Errorf("restored program %d, gain %v, volume %v", q.CurrentMIDIProgram(), q.ParameterValue(gain), q.Volume())
	}
	if param, _ := q.Parameter(gain); param.MIDICC != 21 {
		t.Errorf("restored MIDI CC = %d, want 21", param.MIDICC)
	}
	if cd := q.CustomData(); len(cd) != 1 || cd[0].Key != "colour" {
		t.Errorf("restored custom data = %+v", cd)
	}
	if restored.SampleRate() != 48000 {
		t.Errorf("restored sample rate = %v", restored.SampleRate())
	}
}

func TestProcessEvents(t *testing.T) {
	r := newRack(t, "engine:\n  buffersize: 128\nplugins:\n  - label: sine\n    program: 2\n")
	process(r, 0, 128)
	out := [][]float32{make([]float32, 256), make([]float32, 256)}
	r.ProcessEvents(nil, out, 256, []rack.Event{{Frame: 200, Msg: midi.NoteOn(0, 69, 127)}})
	if out[0][199] != 0 || out[0][200] != 0.25 || out[1][200] != 0.25 {
		t.Errorf("samples around the note = %v, %v", out[0][199], out[0][200])
	}
}
