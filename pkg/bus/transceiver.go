package bus

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/robotalks/rs4b/pkg/frame"
)

// Port is the serial line with direction control.
type Port interface {
	io.ReadWriter
	// SetTransmit enables (true) or disables (false) the line driver.
	SetTransmit(on bool) error
	// Drain blocks until all written bytes have left the UART.
	Drain() error
}

// Default guard intervals around a transmission.
const (
	DefaultGuardBefore = 50 * time.Microsecond
	DefaultGuardAfter  = time.Millisecond
)

// Transceiver sends and receives frames over a Port.
type Transceiver struct {
	Port        Port
	GuardBefore time.Duration
	GuardAfter  time.Duration
	// Sleep waits for guard intervals, time.Sleep when nil.
	Sleep func(time.Duration)

	splitter Splitter
	buf      []byte
	lock     sync.Mutex
}

// NewTransceiver creates a Transceiver with default guard intervals.
func NewTransceiver(port Port) *Transceiver {
	return &Transceiver{
		Port:        port,
		GuardBefore: DefaultGuardBefore,
		GuardAfter:  DefaultGuardAfter,
		buf:         make([]byte, 256),
	}
}

// WithMaxFrameLen limits the size of a frame being received.
func (t *Transceiver) WithMaxFrameLen(n int) *Transceiver {
	t.splitter.MaxFrameLen = n
	return t
}

func (t *Transceiver) sleep(d time.Duration) {
	if d <= 0 {
		return
	}
	if fn := t.Sleep; fn != nil {
		fn(d)
		return
	}
	time.Sleep(d)
}

// Send transmits a frame. The line driver is released even if the write
// fails. Reception is unavailable for the whole call.
func (t *Transceiver) Send(f frame.Frame) (err error) {
	if f == "" {
		return frame.ErrEmpty
	}
	if strings.IndexByte(string(f), frame.Delimiter) >= 0 {
		return frame.ErrDelimiter
	}
	t.lock.Lock()
	defer t.lock.Unlock()
	if err = t.Port.SetTransmit(true); err != nil {
		return fmt.Errorf("enable transmit: %w", err)
	}
	defer func() {
		t.sleep(t.GuardAfter)
		if e := t.Port.SetTransmit(false); e != nil && err == nil {
			err = fmt.Errorf("disable transmit: %w", e)
		}
	}()
	t.sleep(t.GuardBefore)
	if _, err = f.WriteTo(t.Port); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	if err = t.Port.Drain(); err != nil {
		return fmt.Errorf("drain: %w", err)
	}
	return nil
}

// Poll drains the bytes currently buffered by the port and returns the
// frames completed so far. Partial frames are kept for the next call.
func (t *Transceiver) Poll() ([]frame.Frame, error) {
	t.lock.Lock()
	defer t.lock.Unlock()
	if t.buf == nil {
		t.buf = make([]byte, 256)
	}
	var frames []frame.Frame
	for {
		n, err := t.Port.Read(t.buf)
		if n > 0 {
			frames = t.splitter.Feed(t.buf[:n], frames)
		}
		if err != nil {
			if os.IsTimeout(err) {
				return frames, nil
			}
			return frames, err
		}
		if n == 0 {
			return frames, nil
		}
	}
}
