package forecast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seq(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i)
	}
	return out
}

func TestMakeWindowsCount(t *testing.T) {
	for _, tc := range []struct {
		length, size, want int
	}{
		{100, 60, 40},
		{61, 60, 1},
		{10, 3, 7},
	} {
		windows, targets, err := MakeWindows(seq(tc.length), tc.size)
		require.NoError(t, err)
		assert.Len(t, windows, tc.want, "length=%d size=%d", tc.length, tc.size)
		assert.Len(t, targets, tc.want)
	}
}

func TestMakeWindowsContents(t *testing.T) {
	windows, targets, err := MakeWindows(seq(6), 3)
	require.NoError(t, err)

	assert.Equal(t, []float64{0, 1, 2}, windows[0])
	assert.Equal(t, 3.0, targets[0])
	assert.Equal(t, []float64{2, 3, 4}, windows[2])
	assert.Equal(t, 5.0, targets[2])
}

func TestMakeWindowsInsufficient(t *testing.T) {
	_, _, err := MakeWindows(seq(60), 60)
	assert.ErrorIs(t, err, ErrInsufficientData)

	_, _, err = MakeWindows(seq(10), 60)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestMakeWindowsCopies(t *testing.T) {
	series := seq(5)
	windows, _, err := MakeWindows(series, 3)
	require.NoError(t, err)

	series[0] = 999
	assert.Equal(t, 0.0, windows[0][0], "window must not alias the input")
}

func TestRollingWindowPush(t *testing.T) {
	r := NewRollingWindow([]float64{1, 2, 3})
	r.Push(4)
	assert.Equal(t, []float64{2, 3, 4}, r.Values())
	r.Push(5)
	assert.Equal(t, []float64{3, 4, 5}, r.Values())
	assert.Equal(t, 3, r.Len())
}
