package monitor

import "sync"

// DefaultHistorySize is the number of cycles retained per device.
const DefaultHistorySize = 60

type sample struct {
	cpu, memory float64
}

// series is the rolling sample window for one device. peak covers every
// sample pushed since creation, not only the retained window.
type series struct {
	samples []sample
	next    int
	full    bool
	peak    float64
	seen    bool
}

func (s *series) add(v sample) {
	s.samples[s.next] = v
	s.next++
	if s.next == len(s.samples) {
		s.next = 0
		s.full = true
	}
	if !s.seen || v.memory > s.peak {
		s.peak = v.memory
	}
	s.seen = true
}

func (s *series) len() int {
	if s.full {
		return len(s.samples)
	}
	return s.next
}

// last returns up to n samples, oldest first.
func (s *series) last(n int) []sample {
	if n > s.len() {
		n = s.len()
	}
	if n <= 0 {
		return nil
	}
	out := make([]sample, 0, n)
	start := s.next - n
	if start < 0 {
		start += len(s.samples)
	}
	for i := 0; i < n; i++ {
		out = append(out, s.samples[(start+i)%len(s.samples)])
	}
	return out
}

// History keeps recent CPU and memory percentages per device for the
// dashboard. It is safe for concurrent use.
type History struct {
	mu      sync.RWMutex
	size    int
	devices map[string]*series
}

// NewHistory creates a history retaining size samples per device.
func NewHistory(size int) *History {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &History{size: size, devices: make(map[string]*series)}
}

// Push records a snapshot. Nil snapshots (gaps) are ignored.
func (h *History) Push(device string, snap *Snapshot) {
	if snap == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	s, ok := h.devices[device]
	if !ok {
		s = &series{samples: make([]sample, h.size)}
		h.devices[device] = s
	}
	s.add(sample{cpu: snap.CPUPercent, memory: snap.MemoryPercent})
}

// CPU returns up to n CPU percentages for device, oldest first.
func (h *History) CPU(device string, n int) []float64 {
	return h.values(device, n, func(s sample) float64 { return s.cpu })
}

// Memory returns up to n memory percentages for device, oldest first.
func (h *History) Memory(device string, n int) []float64 {
	return h.values(device, n, func(s sample) float64 { return s.memory })
}

func (h *History) values(device string, n int, pick func(sample) float64) []float64 {
	h.mu.RLock()
	defer h.mu.RUnlock()

	s, ok := h.devices[device]
	if !ok {
		return nil
	}
	samples := s.last(n)
	if samples == nil {
		return nil
	}
	out := make([]float64, len(samples))
	for i, v := range samples {
		out[i] = pick(v)
	}
	return out
}

// Peak returns the highest memory percentage seen for device.
func (h *History) Peak(device string) (float64, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	s, ok := h.devices[device]
	if !ok || !s.seen {
		return 0, false
	}
	return s.peak, true
}

// Count returns the number of retained samples for device.
func (h *History) Count(device string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if s, ok := h.devices[device]; ok {
		return s.len()
	}
	return 0
}

// Clear drops everything recorded for device.
func (h *History) Clear(device string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.devices, device)
}
