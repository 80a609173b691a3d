package protocol

import (
	"fmt"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/rs4b/pkg/bus"
	"github.com/robotalks/rs4b/pkg/caps"
	fx "github.com/robotalks/rs4b/pkg/framework"
	"github.com/robotalks/rs4b/pkg/frame"
	"github.com/robotalks/rs4b/pkg/ident"
)

// Slave answers discovery and identification for one device.
type Slave struct {
	Transceiver *bus.Transceiver
	Monitor     Monitor

	desc       *caps.Descriptor
	dispatcher *caps.Dispatcher
	uuidReply  frame.Frame
	descReply  frame.Frame
}

// NewSlave creates the device context from its descriptor. Replies are
// built once here as the descriptor never changes.
func NewSlave(tr *bus.Transceiver, desc *caps.Descriptor) (*Slave, error) {
	if err := desc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid descriptor: %w", err)
	}
	s := &Slave{
		Transceiver: tr,
		Monitor:     LogMonitor{},
		desc:        desc,
		dispatcher:  caps.NewDispatcher(desc),
	}
	var err error
	if s.uuidReply, err = UUIDReply(desc.UUID); err != nil {
		return nil, err
	}
	if s.descReply, err = DescriptorReply(desc); err != nil {
		return nil, err
	}
	return s, nil
}

// ID returns the device identifier.
func (s *Slave) ID() ident.ID {
	return s.desc.UUID
}

// Descriptor returns the capability descriptor.
func (s *Slave) Descriptor() *caps.Descriptor {
	return s.desc
}

// Dispatcher returns the method dispatcher bound to the descriptor.
func (s *Slave) Dispatcher() *caps.Dispatcher {
	return s.dispatcher
}

// HandleFrame returns the reply to a received frame, if any.
func (s *Slave) HandleFrame(f frame.Frame) (frame.Frame, bool) {
	msg := Parse(f)
	switch msg.Kind {
	case KindWho:
		return s.uuidReply, true
	case KindIdentify:
		if msg.Arg == string(s.desc.UUID) {
			return s.descReply, true
		}
		glog.V(2).Infof("%s IDENTIFY for %q ignored", RoleSlave.Tag(), msg.Arg)
	default:
		glog.V(2).Infof("%s %s frame ignored: %s", RoleSlave.Tag(), msg.Kind, f)
	}
	return "", false
}

// Tick polls the bus and replies to every request addressed to this device.
func (s *Slave) Tick(time.Time) error {
	var errs fx.AggregatedError
	frames, err := s.Transceiver.Poll()
	errs.Add(err)
	for _, f := range frames {
		s.monitor().FrameReceived(RoleSlave, f)
		reply, ok := s.HandleFrame(f)
		if !ok {
			continue
		}
		if err := s.Transceiver.Send(reply); err != nil {
			errs.Add(fmt.Errorf("reply to %q: %w", string(f), err))
			continue
		}
		s.monitor().FrameSent(RoleSlave, reply)
	}
	return errs.Aggregate()
}

// AddToLoop implements LoopAdder.
func (s *Slave) AddToLoop(l *fx.Loop) {
	l.AddTicker(s)
}

func (s *Slave) monitor() Monitor {
	if s.Monitor == nil {
		return LogMonitor{}
	}
	return s.Monitor
}
