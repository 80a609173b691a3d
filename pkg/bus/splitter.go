package bus

import (
	"github.com/golang/glog"

	"github.com/robotalks/rs4b/pkg/frame"
)

// DefaultMaxFrameLen bounds a partial frame kept between polls.
const DefaultMaxFrameLen = 1024

// Splitter reassembles frames from arbitrarily fragmented input.
type Splitter struct {
	MaxFrameLen int

	pending  []byte
	overflow bool
}

// Feed consumes bytes and appends every completed, non-empty frame to out.
func (s *Splitter) Feed(p []byte, out []frame.Frame) []frame.Frame {
	maxLen := s.MaxFrameLen
	if maxLen <= 0 {
		maxLen = DefaultMaxFrameLen
	}
	for _, b := range p {
		if b == frame.Delimiter {
			if !s.overflow {
				if f, ok := frame.Decode(s.pending); ok {
					out = append(out, f)
				}
			}
			s.pending, s.overflow = s.pending[:0], false
			continue
		}
		if s.overflow {
			continue
		}
		if len(s.pending) >= maxLen {
			glog.Warningf("frame exceeds %d bytes, dropped", maxLen)
			s.pending, s.overflow = s.pending[:0], true
			continue
		}
		s.pending = append(s.pending, b)
	}
	return out
}

// Pending returns the number of buffered bytes not yet terminated.
func (s *Splitter) Pending() int {
	return len(s.pending)
}

// Reset drops any partial frame.
func (s *Splitter) Reset() {
	s.pending, s.overflow = s.pending[:0], false
}
