package forecast

import "fmt"

// DefaultWindowSize is the supervised window width.
const DefaultWindowSize = 60

// MakeWindows converts a scaled series into supervised (window, target)
// pairs: each window of size consecutive values predicts the value that
// follows it. A series of length L yields exactly L-size pairs.
func MakeWindows(series []float64, size int) (windows [][]float64, targets []float64, err error) {
	if size <= 0 {
		return nil, nil, fmt.Errorf("window size must be positive, got %d", size)
	}
	if len(series) <= size {
		return nil, nil, fmt.Errorf("%w: need more than %d points, got %d",
			ErrInsufficientData, size, len(series))
	}

	n := len(series) - size
	windows = make([][]float64, n)
	targets = make([]float64, n)
	for i := 0; i < n; i++ {
		w := make([]float64, size)
		copy(w, series[i:i+size])
		windows[i] = w
		targets[i] = series[i+size]
	}
	return windows, targets, nil
}

// RollingWindow is a fixed-width window that slides forward one value at
// a time during autoregressive rollout.
type RollingWindow struct {
	buf []float64
}

// NewRollingWindow seeds a rolling window from the given values.
func NewRollingWindow(seed []float64) *RollingWindow {
	buf := make([]float64, len(seed))
	copy(buf, seed)
	return &RollingWindow{buf: buf}
}

// Push drops the oldest value and appends v.
func (r *RollingWindow) Push(v float64) {
	copy(r.buf, r.buf[1:])
	r.buf[len(r.buf)-1] = v
}

// Values returns the current window contents, oldest first.
func (r *RollingWindow) Values() []float64 {
	out := make([]float64, len(r.buf))
	copy(out, r.buf)
	return out
}

// Len returns the window width.
func (r *RollingWindow) Len() int {
	return len(r.buf)
}
