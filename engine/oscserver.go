package engine

import (
	"context"
	"net"
	"strings"

	"github.com/9600org/go-osc/osc"
	"github.com/golang/glog"
	"github.com/pkg/errors"
)

// ExactDispatcher routes messages to handlers registered for their exact
// address.
type ExactDispatcher struct {
	handlers map[string]osc.Handler
}

var _ osc.Dispatcher = &ExactDispatcher{}

func NewExactDispatcher() *ExactDispatcher {
	return &ExactDispatcher{
		handlers: make(map[string]osc.Handler),
	}
}

func (s *ExactDispatcher) AddMsgHandler(addr string, f osc.HandlerFunc) error {
	if !strings.HasPrefix(addr, "/") {
		return errors.Errorf("invalid OSC address %q", addr)
	}
	s.handlers[addr] = f
	return nil
}

// Dispatch handles a message, or every message of a bundle in order.
func (s *ExactDispatcher) Dispatch(packet osc.Packet) {
	switch p := packet.(type) {
	case *osc.Message:
		handler, ok := s.handlers[p.Address]
		if !ok {
			glog.V(2).Infof("OSC: no handler for %s", p.Address)
			return
		}
		handler.HandleMessage(p)
	case *osc.Bundle:
		for _, m := range p.Messages {
			s.Dispatch(m)
		}
		for _, b := range p.Bundles {
			s.Dispatch(b)
		}
	}
}

// ServeOSC reads packets from conn and dispatches them until ctx is done or
// the connection fails. The connection is closed on return.
func ServeOSC(ctx context.Context, conn net.PacketConn, d osc.Dispatcher) error {
	go func() {
		<-ctx.Done()
		conn.Close()
	}()
	buf := make([]byte, 65535)
	for {
		n, addr, err := conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return errors.Wrap(err, "OSC read failed")
		}
		packet, err := osc.ParsePacket(string(buf[:n]))
		if err != nil {
			glog.Warningf("OSC: bad packet from %v: %v", addr, err)
			continue
		}
		d.Dispatch(packet)
	}
}
