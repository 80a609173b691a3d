package protocol

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/rs4b/pkg/bus"
	"github.com/robotalks/rs4b/pkg/caps"
	"github.com/robotalks/rs4b/pkg/frame"
	"github.com/robotalks/rs4b/pkg/ident"
	"github.com/robotalks/rs4b/pkg/registry"
)

var t0 = time.Unix(1700000000, 0)

func newTestTransceiver(tap *bus.Tap) *bus.Transceiver {
	tr := bus.NewTransceiver(tap)
	tr.Sleep = func(time.Duration) {}
	return tr
}

func newTestSlave(t *testing.T, line *bus.Line, id ident.ID) *Slave {
	desc, err := caps.Default(id)
	require.NoError(t, err)
	s, err := NewSlave(newTestTransceiver(line.Tap()), desc)
	require.NoError(t, err)
	return s
}

type testBus struct {
	t      *testing.T
	line   *bus.Line
	tap    *bus.Tap
	master *Master
	slaves []*Slave
}

func newTestBus(t *testing.T, ids ...ident.ID) *testBus {
	b := &testBus{t: t, line: bus.NewLine()}
	b.tap = b.line.Tap()
	b.master = NewMaster(newTestTransceiver(b.tap), registry.New())
	for _, id := range ids {
		b.slaves = append(b.slaves, newTestSlave(t, b.line, id))
	}
	return b
}

func (b *testBus) tickSlaves() {
	for _, s := range b.slaves {
		require.NoError(b.t, s.Tick(t0))
	}
}

func expectResult(t *testing.T, req *Request) Result {
	select {
	case res, ok := <-req.ResultChan():
		require.True(t, ok)
		return res
	default:
		t.Fatal("request not completed")
	}
	return Result{}
}

func expectPending(t *testing.T, req *Request) {
	select {
	case <-req.ResultChan():
		t.Fatal("request completed unexpectedly")
	default:
	}
}

func TestSlaveReplies(t *testing.T) {
	line := bus.NewLine()
	host := newTestTransceiver(line.Tap())
	slave := newTestSlave(t, line, "rs4b-ABCDEF")

	testCases := []struct {
		name   string
		in     string
		expect []frame.Frame
	}{
		{"WHO", "WHO", []frame.Frame{"UUID:rs4b-ABCDEF"}},
		{"who", "who", []frame.Frame{"UUID:rs4b-ABCDEF"}},
		{"Who", "Who", []frame.Frame{"UUID:rs4b-ABCDEF"}},
		{"WHO with padding", "  WHO\r", []frame.Frame{"UUID:rs4b-ABCDEF"}},
		{"WHOM", "WHOM", nil},
		{"not addressed", "IDENTIFY:rs4b-000000", nil},
		{"id is case sensitive", "IDENTIFY:rs4b-abcdef", nil},
		{"prefix is case sensitive", "identify:rs4b-ABCDEF", nil},
		{"unknown", "SET_LIGHT:1", nil},
		{"reply of another slave", "UUID:rs4b-000001", nil},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.NoError(t, host.Send(frame.Frame(tc.in)))
			require.NoError(t, slave.Tick(t0))
			frames, err := host.Poll()
			require.NoError(t, err)
			require.Equal(t, tc.expect, frames)
		})
	}
}

func TestSlaveIdentify(t *testing.T) {
	line := bus.NewLine()
	host := newTestTransceiver(line.Tap())
	slave := newTestSlave(t, line, "rs4b-ABCDEF")

	require.NoError(t, host.Send(frame.MustNew("IDENTIFY:rs4b-ABCDEF")))
	require.NoError(t, slave.Tick(t0))
	frames, err := host.Poll()
	require.NoError(t, err)
	require.Len(t, frames, 1)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(frames[0]), &raw))
	require.Equal(t, "rs4b-ABCDEF", raw["uuid"])
	require.Equal(t, "set_generic", raw["type"])
	require.Equal(t, []interface{}{"SET_LIGHT", "GET_LIGHT"}, raw["methods"])
	require.Equal(t, map[string]interface{}{"light": "bool"}, raw["props"])

	desc, err := caps.Decode([]byte(frames[0]))
	require.NoError(t, err)
	require.Equal(t, slave.Descriptor(), desc)
}

func TestSlaveDispatcherFollowsDescriptor(t *testing.T) {
	slave := newTestSlave(t, bus.NewLine(), "rs4b-ABCDEF")
	require.ErrorIs(t, slave.Dispatcher().Register("REBOOT", nil), caps.ErrUnknownMethod)
	require.NoError(t, slave.Dispatcher().Register("GET_LIGHT", func([]string) (string, error) { return "true", nil }))
	out, err := slave.Dispatcher().Invoke("GET_LIGHT")
	require.NoError(t, err)
	require.Equal(t, "true", out)
}

func TestNewSlaveInvalidDescriptor(t *testing.T) {
	_, err := NewSlave(newTestTransceiver(bus.NewLine().Tap()), &caps.Descriptor{UUID: "rs4b-ABCDEF"})
	require.Error(t, err)
}

func TestParse(t *testing.T) {
	testCases := []struct {
		in   frame.Frame
		kind Kind
		arg  string
	}{
		{"WHO", KindWho, ""},
		{"wHo", KindWho, ""},
		{"UUID:rs4b-000001", KindUUID, "rs4b-000001"},
		{"uuid:rs4b-000001", KindUnknown, ""},
		{"IDENTIFY:rs4b-000001", KindIdentify, "rs4b-000001"},
		{"IDENTIFY:", KindIdentify, ""},
		{`{"uuid":"x"}`, KindDescriptor, ""},
		{"hello", KindUnknown, ""},
	}
	for _, tc := range testCases {
		t.Run(string(tc.in), func(t *testing.T) {
			msg := Parse(tc.in)
			require.Equal(t, tc.kind, msg.Kind)
			require.Equal(t, tc.arg, msg.Arg)
			require.Equal(t, tc.in, msg.Frame)
		})
	}
	require.Equal(t, "descriptor", KindDescriptor.String())
}
