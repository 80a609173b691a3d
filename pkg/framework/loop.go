package framework

import (
	"context"
	"sync"
	"time"

	"github.com/golang/glog"
)

// DefaultInterval is the default period between two iterations.
const DefaultInterval = 5 * time.Millisecond

// Loop is the cooperative host loop. Each iteration calls every Ticker
// in registration order on the loop goroutine.
type Loop struct {
	Interval time.Duration
	// Now is the time source, time.Now when nil.
	Now func() time.Time

	tickers []Ticker
	runners []Runnable
	lock    sync.Mutex

	wakeUpCh chan struct{}
}

// NewLoop creates a Loop.
func NewLoop() *Loop {
	return &Loop{Interval: DefaultInterval, wakeUpCh: make(chan struct{}, 1)}
}

// Add adds LoopAdders.
func (l *Loop) Add(adders ...LoopAdder) *Loop {
	for _, adder := range adders {
		adder.AddToLoop(l)
	}
	return l
}

// AddTicker registers tickers.
func (l *Loop) AddTicker(tickers ...Ticker) *Loop {
	l.lock.Lock()
	l.tickers = append(l.tickers, tickers...)
	l.lock.Unlock()
	return l
}

// AddRunnable adds Runnables started along with the loop.
func (l *Loop) AddRunnable(runnables ...Runnable) *Loop {
	l.runners = append(l.runners, runnables...)
	return l
}

// TriggerNext schedules the next iteration immediately.
func (l *Loop) TriggerNext() {
	select {
	case l.wakeUpCh <- struct{}{}:
	default:
	}
}

// Step runs a single iteration. Errors are logged, never returned.
func (l *Loop) Step() {
	now := time.Now
	if l.Now != nil {
		now = l.Now
	}
	l.lock.Lock()
	tickers := l.tickers
	l.lock.Unlock()
	for _, t := range tickers {
		if err := t.Tick(now()); err != nil {
			glog.Errorf("tick error: %v", err)
		}
	}
}

// Run implements Runnable.
func (l *Loop) Run(ctx context.Context) error {
	if l.wakeUpCh == nil {
		l.wakeUpCh = make(chan struct{}, 1)
	}

	runner := NewRunnerWith(ctx)
	runner.Go(l.runners...)
	defer runner.Wait()

	interval := l.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			l.Step()
		case <-l.wakeUpCh:
			l.Step()
		}
	}
}
