package bus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/rs4b/pkg/frame"
)

func TestLine(t *testing.T) {
	line := NewLine()
	a, b, c := line.Tap(), line.Tap(), line.Tap()
	ta, tb := NewTransceiver(a), NewTransceiver(b)
	ta.Sleep, tb.Sleep = skipSleep, skipSleep

	require.NoError(t, ta.Send(frame.MustNew("WHO")))
	require.False(t, a.Transmitting())

	frames, err := tb.Poll()
	require.NoError(t, err)
	require.Equal(t, []frame.Frame{"WHO"}, frames)

	frames, err = NewTransceiver(c).Poll()
	require.NoError(t, err)
	require.Equal(t, []frame.Frame{"WHO"}, frames)

	frames, err = ta.Poll()
	require.NoError(t, err)
	require.Empty(t, frames)
}

func TestLineLosesBytesWhileTransmitting(t *testing.T) {
	line := NewLine()
	a, b := line.Tap(), line.Tap()
	require.NoError(t, a.SetTransmit(true))
	require.NoError(t, b.SetTransmit(true))
	n, err := b.Write([]byte("UUID:x\n"))
	require.NoError(t, err)
	require.Equal(t, 7, n)
	require.Equal(t, 7, a.Lost)
	require.NoError(t, a.SetTransmit(false))
	frames, err := NewTransceiver(a).Poll()
	require.NoError(t, err)
	require.Empty(t, frames)
}

func TestLineWriteRequiresTransmit(t *testing.T) {
	a := NewLine().Tap()
	_, err := a.Write([]byte("x"))
	require.Equal(t, ErrNotTransmitting, err)
	require.NoError(t, a.Close())
	_, err = a.Read(make([]byte, 1))
	require.Equal(t, ErrClosed, err)
}

func skipSleep(time.Duration) {}
