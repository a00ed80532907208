package plugins

import (
	"math"
	"strconv"

	"github.com/golang/glog"
	"github.com/inrack/inrack"
	"github.com/viterin/vek/vek32"
)

const (
	sineIndexVolume   inrack.PortIndex = 3
	sineIndexWaveform inrack.PortIndex = 4
	sineIndexRelease  inrack.PortIndex = 5

	sinePolyphony = 16
	defaultTuning = 440
)

const (
	waveSine = iota
	waveTriangle
	waveSquare
)

var sinePresets Presets

// SineDescriptor is a polyphonic oscillator synth. The custom data key
// "tuning" sets the frequency of A4 in Hz.
var SineDescriptor = &inrack.Descriptor{
	Category:  inrack.CategorySynth,
	Hints:     inrack.DescriptorIsSynth,
	Name:      "Sine",
	Label:     "sine",
	Maker:     "inrack",
	Copyright: "MIT",
	Ports: []inrack.Port{
		{Type: inrack.PortTypeMIDI, Name: "midi-in"},
		{Type: inrack.PortTypeAudio, Name: "out-left", Hints: inrack.PortIsOutput},
		{Type: inrack.PortTypeAudio, Name: "out-right", Hints: inrack.PortIsOutput},
		{Type: inrack.PortTypeParameter, Name: "volume", Hints: inrack.PortIsEnabled | inrack.PortIsAutomable},
		{Type: inrack.PortTypeParameter, Name: "waveform",
			Hints: inrack.PortIsEnabled | inrack.PortIsAutomable | inrack.PortIsInteger | inrack.PortUsesScalePoints | inrack.PortUsesCustomText,
			ScalePoints: []inrack.ScalePoint{
				{Label: "sine", Value: waveSine},
				{Label: "triangle", Value: waveTriangle},
				{Label: "square", Value: waveSquare},
			}},
		{Type: inrack.PortTypeParameter, Name: "release", Hints: inrack.PortIsEnabled | inrack.PortUsesSampleRate},
	},
	Init: initPrograms(&sinePresets),
	Instantiate: func(_ *inrack.Descriptor, host inrack.Host) (inrack.Handle, error) {
		s := &sine{sampleRate: host.SampleRate()}
		s.volume.Store(0.5)
		s.release.Store(0.2 * s.sampleRate)
		s.tuning.Store(defaultTuning)
		return s, nil
	},
}

type (
	sine struct {
		volume, waveform, release, tuning value
		sampleRate                        float64
		voices                            [sinePolyphony]voice
		next                              int
	}

	voice struct {
		active    bool
		releasing bool
		channel   uint8
		note      uint8
		phase     float64
		step      float64
		amp       float32
		env       float32
	}
)

func (s *sine) Process(_, out [][]float32, frames int, events []inrack.MIDIEvent) {
	left := out[0][:frames]
	clear(left)
	pos := 0
	for i := range events {
		if t := min(int(events[i].Time), frames); t > pos {
			s.render(left[pos:t])
			pos = t
		}
		s.handle(&events[i])
	}
	s.render(left[pos:])
	vek32.MulNumber_Inplace(left, float32(s.volume.Load()))
	copy(out[1][:frames], left)
}

func (s *sine) handle(ev *inrack.MIDIEvent) {
	switch ev.Status() {
	case inrack.MIDIStatusNoteOn:
		if ev.Data[2] == 0 {
			s.noteOff(ev.Channel(), ev.Data[1])
			return
		}
		s.noteOn(ev.Channel(), ev.Data[1], ev.Data[2])
	case inrack.MIDIStatusNoteOff:
		s.noteOff(ev.Channel(), ev.Data[1])
	case inrack.MIDIStatusControlChange:
		switch ev.Data[1] {
		case inrack.MIDIControlAllSoundOff:
			s.voices = [sinePolyphony]voice{}
		case inrack.MIDIControlAllNotesOff:
			for i := range s.voices {
				s.voices[i].releasing = true
			}
		}
	}
}

func (s *sine) noteOn(channel, note, velocity uint8) {
	v := &s.voices[s.next]
	for i := range s.voices {
		if !s.voices[i].active {
			v = &s.voices[i]
			break
		}
	}
	s.next = (s.next + 1) % sinePolyphony
	freq := s.tuning.Load() * math.Pow(2, (float64(note)-69)/12)
	*v = voice{
		active:  true,
		channel: channel,
		note:    note,
		step:    freq / s.sampleRate,
		amp:     float32(velocity) / 127,
		env:     1,
	}
}

func (s *sine) noteOff(channel, note uint8) {
	for i := range s.voices {
		v := &s.voices[i]
		if v.active && v.channel == channel && v.note == note {
			v.releasing = true
		}
	}
}

func (s *sine) render(buf []float32) {
	if len(buf) == 0 {
		return
	}
	wave := int(math.Round(s.waveform.Load()))
	decay := float32(1 / max(s.release.Load(), 1))
	for i := range s.voices {
		v := &s.voices[i]
		for k := 0; k < len(buf) && v.active; k++ {
			buf[k] += oscillator(wave, v.phase) * v.amp * v.env
			v.phase += v.step
			if v.phase >= 1 {
				v.phase -= 1
			}
			if v.releasing {
				if v.env -= decay; v.env <= 0 {
					v.active = false
				}
			}
		}
	}
}

func oscillator(wave int, phase float64) float32 {
	switch wave {
	case waveTriangle:
		return float32(4*math.Abs(phase-0.5) - 1)
	case waveSquare:
		if phase < 0.5 {
			return 1
		}
		return -1
	}
	return float32(math.Sin(2 * math.Pi * phase))
}

func (s *sine) param(index inrack.PortIndex) *value {
	switch index {
	case sineIndexVolume:
		return &s.volume
	case sineIndexWaveform:
		return &s.waveform
	case sineIndexRelease:
		return &s.release
	}
	return nil
}

func (s *sine) ParameterValue(index inrack.PortIndex) float64 {
	if v := s.param(index); v != nil {
		return v.Load()
	}
	return 0
}

func (s *sine) SetParameterValue(index inrack.PortIndex, v float64) {
	if p := s.param(index); p != nil {
		p.Store(v)
	}
}

func (s *sine) ParameterRanges(index inrack.PortIndex) inrack.ParameterRanges {
	r := inrack.DefaultParameterRanges
	switch index {
	case sineIndexVolume:
		r.Default = 0.5
	case sineIndexWaveform:
		r.Default, r.Min, r.Max = waveSine, waveSine, waveSquare
	case sineIndexRelease:
		r.Default, r.Min, r.Max = 0.2, 0.001, 4
	}
	return r
}

func (s *sine) ParameterText(index inrack.PortIndex) string {
	if index != sineIndexWaveform {
		return ""
	}
	for _, sp := range SineDescriptor.Ports[sineIndexWaveform].ScalePoints {
		if sp.Value == math.Round(s.waveform.Load()) {
			return sp.Label
		}
	}
	return ""
}

func (s *sine) ParameterUnit(index inrack.PortIndex) string {
	if index == sineIndexRelease {
		return "samples"
	}
	return ""
}

// SetMIDIProgram applies a preset. Preset release times are in seconds.
func (s *sine) SetMIDIProgram(bank, program uint32) {
	sinePresets.apply(SineDescriptor, bank, program, func(index inrack.PortIndex, v float64) {
		if index == sineIndexRelease {
			v *= s.sampleRate
		}
		s.SetParameterValue(index, v)
	})
}

func (s *sine) SetCustomData(key, value string) {
	if key != "tuning" {
		glog.Warningf("sine: unknown custom data key %q", key)
		return
	}
	hz, err := strconv.ParseFloat(value, 64)
	if err != nil || hz <= 0 {
		glog.Warningf("sine: invalid tuning %q", value)
		return
	}
	s.tuning.Store(hz)
}

func (s *sine) Activate()   { s.voices = [sinePolyphony]voice{} }
func (s *sine) Deactivate() { s.voices = [sinePolyphony]voice{} }
