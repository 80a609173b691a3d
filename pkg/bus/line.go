package bus

import "sync"

// Line is an in-memory shared half-duplex medium. Bytes written on one
// Tap reach every other Tap currently listening.
type Line struct {
	taps []*Tap
	lock sync.Mutex
}

// NewLine creates an empty Line.
func NewLine() *Line {
	return &Line{}
}

// Tap attaches a new node to the line.
func (l *Line) Tap() *Tap {
	t := &Tap{line: l}
	l.lock.Lock()
	l.taps = append(l.taps, t)
	l.lock.Unlock()
	return t
}

// Tap is a Port attached to a Line.
type Tap struct {
	line     *Line
	transmit bool
	closed   bool
	rx       []byte
	// Lost counts bytes missed while transmitting.
	Lost int
}

// Read implements io.Reader. It never blocks.
func (t *Tap) Read(p []byte) (int, error) {
	t.line.lock.Lock()
	defer t.line.lock.Unlock()
	if t.closed {
		return 0, ErrClosed
	}
	n := copy(p, t.rx)
	t.rx = t.rx[n:]
	return n, nil
}

// Write implements io.Writer.
func (t *Tap) Write(p []byte) (int, error) {
	t.line.lock.Lock()
	defer t.line.lock.Unlock()
	if t.closed {
		return 0, ErrClosed
	}
	if !t.transmit {
		return 0, ErrNotTransmitting
	}
	for _, peer := range t.line.taps {
		if peer == t || peer.closed {
			continue
		}
		if peer.transmit {
			peer.Lost += len(p)
			continue
		}
		peer.rx = append(peer.rx, p...)
	}
	return len(p), nil
}

// Inject delivers bytes to this tap as if they came from the bus.
func (t *Tap) Inject(p []byte) {
	t.line.lock.Lock()
	defer t.line.lock.Unlock()
	if t.transmit {
		t.Lost += len(p)
		return
	}
	t.rx = append(t.rx, p...)
}

// SetTransmit implements Port.
func (t *Tap) SetTransmit(on bool) error {
	t.line.lock.Lock()
	t.transmit = on
	t.line.lock.Unlock()
	return nil
}

// Transmitting reports whether the line driver is enabled.
func (t *Tap) Transmitting() bool {
	t.line.lock.Lock()
	defer t.line.lock.Unlock()
	return t.transmit
}

// Drain implements Port.
func (t *Tap) Drain() error {
	return nil
}

// Close detaches the tap.
func (t *Tap) Close() error {
	t.line.lock.Lock()
	t.closed = true
	t.line.lock.Unlock()
	return nil
}
