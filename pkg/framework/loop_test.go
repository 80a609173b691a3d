package framework

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoopStep(t *testing.T) {
	now := time.Unix(1000, 0)
	var order []string
	l := NewLoop()
	l.Now = func() time.Time { return now }
	l.AddTicker(
		TickFunc(func(ts time.Time) error {
			require.Equal(t, now, ts)
			order = append(order, "a")
			return errors.New("ignored")
		}),
		TickFunc(func(time.Time) error {
			order = append(order, "b")
			return nil
		}),
	)
	l.Step()
	l.Step()
	require.Equal(t, []string{"a", "b", "a", "b"}, order)
}

func TestLoopRun(t *testing.T) {
	ticked := make(chan struct{}, 1)
	l := NewLoop()
	l.Interval = time.Hour
	l.AddTicker(TickFunc(func(time.Time) error {
		select {
		case ticked <- struct{}{}:
		default:
		}
		return nil
	}))
	started := make(chan struct{})
	l.AddRunnable(RunFunc(func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- l.Run(ctx) }()
	<-started
	l.TriggerNext()
	select {
	case <-ticked:
	case <-time.After(time.Second):
		t.Fatal("timeout")
	}
	cancel()
	require.Equal(t, context.Canceled, <-errCh)
}

func TestRunner(t *testing.T) {
	boom := errors.New("boom")
	r := NewRunner()
	r.Go(
		NamedRun("fails", RunFunc(func(context.Context) error { return boom })),
		RunFunc(func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}),
	)
	r.Stop()
	err := r.Wait()
	require.ErrorIs(t, err, boom)
}

func TestAggregatedError(t *testing.T) {
	var errs AggregatedError
	require.NoError(t, errs.Add(nil).Aggregate())
	a, b := errors.New("a"), errors.New("b")
	err := errs.Add(a).Aggregate()
	require.Equal(t, "a", err.Error())
	err = errs.Add(b).Aggregate()
	require.Equal(t, "Multiple errors:\na\nb", err.Error())
	require.ErrorIs(t, err, b)
}
