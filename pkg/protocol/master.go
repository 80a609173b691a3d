package protocol

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/rs4b/pkg/bus"
	"github.com/robotalks/rs4b/pkg/caps"
	fx "github.com/robotalks/rs4b/pkg/framework"
	"github.com/robotalks/rs4b/pkg/frame"
	"github.com/robotalks/rs4b/pkg/ident"
	"github.com/robotalks/rs4b/pkg/registry"
)

// DefaultResponseWindow is how long the master waits for replies.
const DefaultResponseWindow = 500 * time.Millisecond

// Master discovers and identifies the devices on the bus.
//
// DiscoverAll, Identify and Tick must be called from the loop goroutine.
// Submit may be called from anywhere.
type Master struct {
	Transceiver *bus.Transceiver
	Registry    *registry.Registry
	Monitor     Monitor
	// ResponseWindow bounds the wait for replies, zero waits forever.
	ResponseWindow time.Duration

	outstanding *Request

	pending     []*Request
	pendingLock sync.Mutex
}

// NewMaster creates a Master.
func NewMaster(tr *bus.Transceiver, reg *registry.Registry) *Master {
	return &Master{
		Transceiver:    tr,
		Registry:       reg,
		Monitor:        LogMonitor{},
		ResponseWindow: DefaultResponseWindow,
	}
}

// DiscoverAll broadcasts WHO. Replies are collected by later ticks.
func (m *Master) DiscoverAll(now time.Time) (*Request, error) {
	req := NewDiscoverRequest()
	return req, m.issue(req, now)
}

// Identify asks a device for its descriptor.
func (m *Master) Identify(id ident.ID, now time.Time) (*Request, error) {
	req := NewIdentifyRequest(id)
	return req, m.issue(req, now)
}

// SendRaw sends a console line as is. A line spelling out WHO or IDENTIFY
// is correlated like DiscoverAll or Identify.
func (m *Master) SendRaw(text string, now time.Time) error {
	return m.issue(NewRawRequest(text), now)
}

// Outstanding returns the request waiting for replies, if any.
func (m *Master) Outstanding() *Request {
	return m.outstanding
}

// Submit queues a request to be issued by a later Tick, one per tick.
func (m *Master) Submit(req *Request) *Request {
	m.pendingLock.Lock()
	m.pending = append(m.pending, req)
	m.pendingLock.Unlock()
	return req
}

// Tick polls the bus, handles all received frames, closes an expired
// response window and issues at most one submitted request.
func (m *Master) Tick(now time.Time) error {
	var errs fx.AggregatedError
	frames, err := m.Transceiver.Poll()
	errs.Add(err)
	for _, f := range frames {
		m.monitor().FrameReceived(RoleMaster, f)
		errs.Add(m.HandleFrame(f, now))
	}
	m.expire(now)
	if req := m.nextPending(); req != nil {
		errs.Add(m.issue(req, now))
	}
	return errs.Aggregate()
}

// AddToLoop implements LoopAdder.
func (m *Master) AddToLoop(l *fx.Loop) {
	l.AddTicker(m)
}

// HandleFrame processes one frame received from the bus.
func (m *Master) HandleFrame(f frame.Frame, now time.Time) error {
	msg := Parse(f)
	switch msg.Kind {
	case KindUUID:
		return m.handleUUID(msg, now)
	case KindDescriptor:
		return m.handleDescriptor(msg, now)
	default:
		glog.V(2).Infof("%s %s frame ignored: %s", RoleMaster.Tag(), msg.Kind, f)
	}
	return nil
}

// handleUUID accepts discovery replies at any time: refreshing an entry is
// idempotent.
func (m *Master) handleUUID(msg Message, now time.Time) error {
	id, err := ident.Parse(msg.Arg)
	if err != nil {
		return replyErr(ErrMalformedReply, msg.Frame)
	}
	if _, created := m.Registry.Observe(id, now); created {
		glog.Infof("%s discovered %s", RoleMaster.Tag(), id)
	}
	if req := m.outstanding; req != nil && req.Kind == RequestWho {
		req.addDevice(id)
	}
	return nil
}

func (m *Master) handleDescriptor(msg Message, now time.Time) error {
	req := m.outstanding
	if req == nil || req.Kind != RequestIdentify {
		return replyErr(ErrUnexpectedReply, msg.Frame)
	}
	desc, err := caps.Decode([]byte(msg.Frame))
	if err != nil {
		err = replyErr(fmt.Errorf("%w: %v", ErrMalformedReply, err), msg.Frame)
		m.finish(Result{Err: err})
		return err
	}
	if desc.UUID != req.Target {
		err = replyErr(ErrForeignReply, msg.Frame)
		m.finish(Result{Err: err})
		return err
	}
	entry, err := m.Registry.SetDescriptor(req.Target, desc, now)
	if errors.Is(err, registry.ErrUnknownDevice) {
		// identified without a prior WHO, the reply proves presence.
		m.Registry.Observe(req.Target, now)
		entry, err = m.Registry.SetDescriptor(req.Target, desc, now)
	}
	m.finish(Result{Err: err, Entry: entry})
	return nil
}

func (m *Master) issue(req *Request, now time.Time) error {
	f, err := m.requestFrame(req)
	if err != nil {
		req.complete(Result{Err: err})
		return err
	}
	if req.Kind != RequestRaw {
		m.supersede()
	}
	req.issuedAt = now
	if err = m.Transceiver.Send(f); err != nil {
		req.complete(Result{Err: err})
		return err
	}
	m.monitor().FrameSent(RoleMaster, f)
	if req.Kind == RequestRaw {
		req.complete(Result{})
		return nil
	}
	if m.ResponseWindow > 0 {
		req.deadline = now.Add(m.ResponseWindow)
	}
	m.outstanding = req
	return nil
}

// requestFrame builds the frame of a request. A raw line spelling out
// WHO or IDENTIFY becomes the corresponding request.
func (m *Master) requestFrame(req *Request) (frame.Frame, error) {
	switch req.Kind {
	case RequestWho:
		return Who(), nil
	case RequestIdentify:
		return Identify(req.Target)
	}
	f, err := frame.New(req.Text)
	if err != nil {
		return "", err
	}
	switch msg := Parse(f); msg.Kind {
	case KindWho:
		req.Kind = RequestWho
	case KindIdentify:
		req.Kind, req.Target = RequestIdentify, ident.ID(msg.Arg)
	}
	return f, nil
}

// supersede completes the outstanding request before a new one is sent.
func (m *Master) supersede() {
	req := m.outstanding
	if req == nil {
		return
	}
	if req.Kind == RequestWho {
		m.finish(Result{Devices: req.devices})
		return
	}
	m.finish(Result{Err: ErrNoReply})
}

func (m *Master) expire(now time.Time) {
	req := m.outstanding
	if req == nil || req.deadline.IsZero() || now.Before(req.deadline) {
		return
	}
	if req.Kind == RequestWho {
		glog.V(1).Infof("%s discovery window closed, %d replies", RoleMaster.Tag(), len(req.devices))
		m.finish(Result{Devices: req.devices})
		return
	}
	glog.Warningf("%s no reply from %s", RoleMaster.Tag(), req.Target)
	m.finish(Result{Err: ErrNoReply})
}

func (m *Master) finish(res Result) {
	if req := m.outstanding; req != nil {
		m.outstanding = nil
		req.complete(res)
	}
}

func (m *Master) nextPending() *Request {
	m.pendingLock.Lock()
	defer m.pendingLock.Unlock()
	if len(m.pending) == 0 {
		return nil
	}
	req := m.pending[0]
	m.pending[0] = nil
	m.pending = m.pending[1:]
	return req
}

func (m *Master) monitor() Monitor {
	if m.Monitor == nil {
		return LogMonitor{}
	}
	return m.Monitor
}
