package engine

import (
	"strings"
	"sync"
	"sync/atomic"

	"github.com/golang/glog"
	"github.com/pkg/errors"
)

// Client owns the ports of one plugin instance.
type Client struct {
	engine *Engine
	name   string
	active atomic.Bool

	mu     sync.Mutex
	ports  []Port
	closed bool
}

// Name returns the client name.
func (c *Client) Name() string { return c.name }

// IsOK reports whether the client can still register ports.
func (c *Client) IsOK() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed
}

// Activate marks the client as processing.
func (c *Client) Activate() { c.active.Store(true) }

// Deactivate marks the client as not processing.
func (c *Client) Deactivate() { c.active.Store(false) }

// IsActive reports whether the client is processing.
func (c *Client) IsActive() bool { return c.active.Load() }

// AddAudioPort registers an audio port with a buffer of the engine buffer
// size.
func (c *Client) AddAudioPort(name string, isInput bool) (*AudioPort, error) {
	p := &AudioPort{portBase: portBase{name: name, isInput: isInput, client: c}}
	p.Buffer = make([]float32, c.engine.BufferSize())
	if err := c.addPort(p); err != nil {
		return nil, err
	}
	return p, nil
}

// AddMIDIPort registers a MIDI port.
func (c *Client) AddMIDIPort(name string, isInput bool) (*MIDIPort, error) {
	p := &MIDIPort{portBase: portBase{name: name, isInput: isInput, client: c}}
	if err := c.addPort(p); err != nil {
		return nil, err
	}
	return p, nil
}

// AddControlPort registers a control port.
func (c *Client) AddControlPort(name string, isInput bool) (*ControlPort, error) {
	p := &ControlPort{portBase: portBase{name: name, isInput: isInput, client: c}}
	if err := c.addPort(p); err != nil {
		return nil, err
	}
	return p, nil
}

func (c *Client) addPort(p Port) error {
	name := p.Name()
	if strings.TrimSpace(name) == "" {
		return errors.Wrapf(ErrPortName, "client %q", c.name)
	}
	if l := len(name); l > c.engine.MaxPortNameSize() {
		return errors.Wrapf(ErrPortName, "port %q is %d bytes, limit is %d", name, l, c.engine.MaxPortNameSize())
	}
	if err := c.engine.reservePort(); err != nil {
		return errors.Wrapf(err, "port %q", name)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		c.engine.releasePorts(1)
		return errors.Wrapf(ErrClientClosed, "client %q", c.name)
	}
	for _, e := range c.ports {
		if e.Name() == name {
			c.engine.releasePorts(1)
			return errors.Wrapf(ErrDuplicatePort, "port %q", name)
		}
	}
	c.ports = append(c.ports, p)
	glog.V(2).Infof("client %q: added %s %s port %q", c.name, direction(p.IsInput()), p.Type(), name)
	return nil
}

// Ports returns a snapshot of the registered ports.
func (c *Client) Ports() []Port {
	c.mu.Lock()
	defer c.mu.Unlock()
	ret := make([]Port, len(c.ports))
	copy(ret, c.ports)
	return ret
}

// RemoveAllPorts unregisters every port of the client.
func (c *Client) RemoveAllPorts() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.engine.releasePorts(len(c.ports))
	c.ports = nil
}

// Close deactivates the client, removes its ports and detaches it from the
// engine.
func (c *Client) Close() {
	c.Deactivate()
	c.RemoveAllPorts()
	c.mu.Lock()
	alreadyClosed := c.closed
	c.closed = true
	c.mu.Unlock()
	if !alreadyClosed {
		c.engine.removeClient(c)
	}
}

func direction(isInput bool) string {
	if isInput {
		return "input"
	}
	return "output"
}
