//go:build !cgo

package cmd

import (
	"github.com/pkg/errors"
	"gitlab.com/gomidi/midi/v2"
)

// ErrNoMIDI is returned by the MIDI functions of binaries built without
// cgo, which have no MIDI driver.
var ErrNoMIDI = errors.New("MIDI input needs a build with cgo")

func MIDIInputs() ([]string, error) { return nil, ErrNoMIDI }

func OpenMIDIInput(string, func(midi.Message) bool) (MIDIInput, error) {
	return nil, ErrNoMIDI
}
