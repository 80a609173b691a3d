package protocol

import (
	"fmt"
	"io"
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/rs4b/pkg/frame"
)

// Role is the role of a node on the bus.
type Role string

// Roles.
const (
	RoleMaster Role = "MASTER"
	RoleSlave  Role = "SLAVE"
)

// Tag returns the role tag used in diagnostics, e.g. [MASTER].
func (r Role) Tag() string {
	return "[" + string(r) + "]"
}

// Monitor observes frames crossing the bus. It must not affect the
// protocol.
type Monitor interface {
	FrameSent(Role, frame.Frame)
	FrameReceived(Role, frame.Frame)
}

// LogMonitor mirrors frames to glog at verbosity 1.
type LogMonitor struct{}

// FrameSent implements Monitor.
func (LogMonitor) FrameSent(role Role, f frame.Frame) {
	glog.V(1).Infof("%s sent: %s", role.Tag(), f)
}

// FrameReceived implements Monitor.
func (LogMonitor) FrameReceived(role Role, f frame.Frame) {
	glog.V(1).Infof("%s received: %s", role.Tag(), f)
}

// WriterMonitor mirrors frames as lines to a writer.
type WriterMonitor struct {
	W    io.Writer
	lock sync.Mutex
}

// FrameSent implements Monitor.
func (m *WriterMonitor) FrameSent(role Role, f frame.Frame) {
	m.lock.Lock()
	fmt.Fprintf(m.W, "%s sent: %s\n", role.Tag(), f)
	m.lock.Unlock()
}

// FrameReceived implements Monitor.
func (m *WriterMonitor) FrameReceived(role Role, f frame.Frame) {
	m.lock.Lock()
	fmt.Fprintf(m.W, "%s received: %s\n", role.Tag(), f)
	m.lock.Unlock()
}

// Monitors fans out to several monitors.
type Monitors []Monitor

// FrameSent implements Monitor.
func (ms Monitors) FrameSent(role Role, f frame.Frame) {
	for _, m := range ms {
		m.FrameSent(role, f)
	}
}

// FrameReceived implements Monitor.
func (ms Monitors) FrameReceived(role Role, f frame.Frame) {
	for _, m := range ms {
		m.FrameReceived(role, f)
	}
}
