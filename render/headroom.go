package render

import "math"

// Headroom tracks the unused fraction of the block budget.  Min is the
// smallest value over the last Window blocks; Avg is an exponential moving
// average.
type Headroom struct {
	recent []float64
	i      int
	full   bool
	alpha  float64
	avg    float64
	seeded bool
}

func NewHeadroom(window int, alpha float64) *Headroom {
	if window < 1 {
		window = 1
	}
	return &Headroom{recent: make([]float64, window), alpha: alpha, avg: 1}
}

func (h *Headroom) Add(x float64) {
	h.recent[h.i] = x
	h.i++
	if h.i == len(h.recent) {
		h.i, h.full = 0, true
	}
	if !h.seeded {
		h.avg, h.seeded = x, true
	} else {
		h.avg += h.alpha * (x - h.avg)
	}
}

func (h *Headroom) Min() float64 {
	n := h.i
	if h.full {
		n = len(h.recent)
	}
	if n == 0 {
		return 1
	}
	m := math.Inf(1)
	for _, x := range h.recent[:n] {
		m = math.Min(m, x)
	}
	return m
}

func (h *Headroom) Avg() float64 { return h.avg }
