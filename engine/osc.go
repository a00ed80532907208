package engine

import (
	"fmt"
	"net"

	"github.com/9600org/go-osc/osc"
	"github.com/golang/glog"
	"github.com/pkg/errors"
)

// OSCPrefix is prepended to every address sent to or served for a
// controller.
const OSCPrefix = "/inrack"

type (
	// OSCClient sends packets to a controller.
	OSCClient interface {
		Send(osc.Packet) error
	}

	// UDPClient is an OSCClient writing to a connected UDP socket.
	UDPClient struct {
		Conn *net.UDPConn
	}

	// OSCController sends best-effort notifications about plugin state to a
	// registered controller. A nil *OSCController sends nothing.
	OSCController struct {
		client OSCClient
		conn   *net.UDPConn
	}
)

var _ OSCClient = &UDPClient{}

func (c *UDPClient) Send(p osc.Packet) error {
	data, err := p.MarshalBinary()
	if err != nil {
		return err
	}
	if _, err := c.Conn.Write(data); err != nil {
		return err
	}
	return nil
}

// RegisterOSCController connects the engine to a controller at addr
// (host:port), replacing any previous one.
func (e *Engine) RegisterOSCController(addr string) error {
	raddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return errors.Wrapf(err, "invalid OSC controller address %q", addr)
	}
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return errors.Wrapf(err, "could not connect to OSC controller %q", addr)
	}
	c := &OSCController{client: &UDPClient{Conn: conn}, conn: conn}
	e.setOSC(c)
	glog.Infof("engine %q: OSC controller registered at %s", e.name, addr)
	return nil
}

// SetOSCClient registers a controller reached through client. A nil client
// unregisters the controller.
func (e *Engine) SetOSCClient(client OSCClient) {
	if client == nil {
		e.setOSC(nil)
		return
	}
	e.setOSC(&OSCController{client: client})
}

func (e *Engine) setOSC(c *OSCController) {
	e.mu.Lock()
	old := e.osc
	e.osc = c
	e.mu.Unlock()
	if old != nil {
		old.Close()
	}
}

// OSC returns the registered controller, or nil.
func (e *Engine) OSC() *OSCController {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.osc
}

// IsOSCControllerRegistered reports whether notifications are sent.
func (e *Engine) IsOSCControllerRegistered() bool {
	return e.OSC() != nil
}

// Close closes the controller connection, if the controller owns one.
func (c *OSCController) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

func (c *OSCController) send(pluginID int, method string, args ...interface{}) {
	if c == nil {
		return
	}
	msg := &osc.Message{
		Address:   fmt.Sprintf("%s/%d/%s", OSCPrefix, pluginID, method),
		Arguments: args,
	}
	if err := c.client.Send(msg); err != nil {
		glog.Warningf("OSC %s failed: %v", msg.Address, err)
	}
}

func (c *OSCController) SendAddPlugin(pluginID int, name string) {
	c.send(pluginID, "add_plugin", name)
}

func (c *OSCController) SendRemovePlugin(pluginID int) {
	c.send(pluginID, "remove_plugin")
}

func (c *OSCController) SendSetParameterValue(pluginID, index int, value float64) {
	c.send(pluginID, "set_parameter_value", int32(index), float32(value))
}

func (c *OSCController) SendSetMIDIProgram(pluginID, index int) {
	c.send(pluginID, "set_midi_program", int32(index))
}

func (c *OSCController) SendSetMIDIProgramCount(pluginID, count int) {
	c.send(pluginID, "set_midi_program_count", int32(count))
}

func (c *OSCController) SendSetMIDIProgramData(pluginID, index int, bank, program uint32, name string) {
	c.send(pluginID, "set_midi_program_data", int32(index), int32(bank), int32(program), name)
}

func (c *OSCController) SendNoteOn(pluginID, channel, note, velocity int) {
	c.send(pluginID, "note_on", int32(channel), int32(note), int32(velocity))
}

func (c *OSCController) SendNoteOff(pluginID, channel, note int) {
	c.send(pluginID, "note_off", int32(channel), int32(note))
}
