package protocol

import (
	"time"

	"github.com/golang/glog"

	fx "github.com/robotalks/rs4b/pkg/framework"
)

// Scanner discovers the bus periodically and identifies new devices.
type Scanner struct {
	Master *Master
	Every  time.Duration
	// Expire prunes entries not seen for that long after each scan, zero
	// keeps them forever.
	Expire time.Duration

	last time.Time
	// scans are submitted WHO requests not yet completed. Without a
	// response window a WHO only completes when the next request
	// supersedes it.
	scans []*Request
}

// Tick implements Ticker. It must run on the loop of the master.
func (s *Scanner) Tick(now time.Time) error {
	pending := s.scans[:0]
	for _, req := range s.scans {
		select {
		case res := <-req.ResultChan():
			s.scanned(res, now)
		default:
			pending = append(pending, req)
		}
	}
	s.scans = pending
	if !s.last.IsZero() && now.Sub(s.last) < s.Every {
		return nil
	}
	s.last = now
	s.scans = append(s.scans, s.Master.Submit(NewDiscoverRequest()))
	return nil
}

// AddToLoop implements LoopAdder.
func (s *Scanner) AddToLoop(l *fx.Loop) {
	l.AddTicker(s)
}

func (s *Scanner) scanned(res Result, now time.Time) {
	if res.Err != nil {
		glog.Warningf("%s scan failed: %v", RoleMaster.Tag(), res.Err)
		return
	}
	for _, id := range res.Devices {
		if e, ok := s.Master.Registry.Get(id); ok && !e.Identified() {
			s.Master.Submit(NewIdentifyRequest(id))
		}
	}
	if s.Expire > 0 {
		for _, id := range s.Master.Registry.Prune(now.Add(-s.Expire)) {
			glog.Infof("%s %s expired", RoleMaster.Tag(), id)
		}
	}
}
