//go:build cgo

package cmd

import (
	"strings"

	"github.com/golang/glog"
	"github.com/pkg/errors"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

type midiInput struct {
	driver *rtmididrv.Driver
	in     drivers.In
	stop   func()
}

// MIDIInputs lists the names of the MIDI input devices.
func MIDIInputs() ([]string, error) {
	driver, err := rtmididrv.New()
	if err != nil {
		return nil, errors.Wrap(err, "could not open MIDI driver")
	}
	defer driver.Close()
	ins, err := driver.Ins()
	if err != nil {
		return nil, errors.Wrap(err, "could not list MIDI inputs")
	}
	names := make([]string, len(ins))
	for i, in := range ins {
		names[i] = in.String()
	}
	return names, nil
}

// OpenMIDIInput opens the first MIDI input whose name starts with prefix
// and passes its messages to send. Messages send rejects are dropped.
func OpenMIDIInput(prefix string, send func(midi.Message) bool) (MIDIInput, error) {
	driver, err := rtmididrv.New()
	if err != nil {
		return nil, errors.Wrap(err, "could not open MIDI driver")
	}
	ins, err := driver.Ins()
	if err != nil {
		driver.Close()
		return nil, errors.Wrap(err, "could not list MIDI inputs")
	}
	for _, in := range ins {
		if !strings.HasPrefix(in.String(), prefix) {
			continue
		}
		if err := in.Open(); err != nil {
			driver.Close()
			return nil, errors.Wrapf(err, "opening MIDI input %q failed", in.String())
		}
		stop, err := midi.ListenTo(in, func(msg midi.Message, _ int32) {
			if !send(msg) {
				glog.V(1).Infof("MIDI: queue full, dropped %v", msg)
			}
		})
		if err != nil {
			in.Close()
			driver.Close()
			return nil, errors.Wrapf(err, "listening to MIDI input %q failed", in.String())
		}
		glog.Infof("MIDI: listening to %q", in.String())
		return &midiInput{driver: driver, in: in, stop: stop}, nil
	}
	driver.Close()
	return nil, errors.Errorf("no MIDI input starting with %q", prefix)
}

func (m *midiInput) Close() error {
	m.stop()
	if m.in.IsOpen() {
		m.in.Close()
	}
	return m.driver.Close()
}
