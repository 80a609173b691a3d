package caps

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDispatcher(t *testing.T) {
	d, err := Default(testID)
	require.NoError(t, err)
	disp := NewDispatcher(d)
	require.Same(t, d, disp.Descriptor())

	light := "false"
	require.NoError(t, disp.Register("GET_LIGHT", func([]string) (string, error) {
		return light, nil
	}))
	require.ErrorIs(t, disp.Register("REBOOT", func([]string) (string, error) {
		t.Fatal("must not run")
		return "", nil
	}), ErrUnknownMethod)

	out, err := disp.Invoke("GET_LIGHT")
	require.NoError(t, err)
	require.Equal(t, "false", out)

	_, err = disp.Invoke("SET_LIGHT", "true")
	require.ErrorIs(t, err, ErrNotImplemented)
	_, err = disp.Invoke("REBOOT")
	require.ErrorIs(t, err, ErrUnknownMethod)
}
