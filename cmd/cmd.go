// Package cmd holds the pieces shared by the inrack binaries.
package cmd

import (
	"sync"

	"github.com/inrack/inrack"
	"github.com/inrack/inrack/rack"

	// built-in plugin types
	_ "github.com/inrack/inrack/plugins"
)

// MIDIInput is an open MIDI input device.
type MIDIInput interface {
	Close() error
}

// NewRack loads a rack file and creates the rack with the built-in plugin
// types.
func NewRack(path string) (*rack.Rack, error) {
	cfg, err := rack.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return rack.New(cfg, inrack.DefaultRegistry)
}

// Instances counts the live plugin hosts of a process sharing a registry.
// The registry is shut down when the last one is released.
type Instances struct {
	Registry *inrack.Registry

	mu    sync.Mutex
	count int
}

// Acquire registers a live host.
func (i *Instances) Acquire() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.count++
}

// Release unregisters a host, shutting the registry down if it was the
// last one. Its racks must be closed before.
func (i *Instances) Release() {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.count == 0 {
		return
	}
	i.count--
	if i.count == 0 {
		i.Registry.Shutdown()
	}
}
