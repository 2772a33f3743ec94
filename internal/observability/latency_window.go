package observability

import (
	"maps"
	"math"
	"slices"
	"strings"
	"sync"
	"time"
)

// Latency stages tracked by the rolling window.
const (
	StageCompletion   = "completion"
	StageUpload       = "upload"
	StageVoiceCapture = "voice_capture"
)

// stageTargetsMS are the p95 budgets reported next to each stage.
var stageTargetsMS = map[string]int64{
	StageCompletion:   8000,
	StageUpload:       5000,
	StageVoiceCapture: 12000,
}

type StageStats struct {
	Stage       string `json:"stage"`
	Samples     int    `json:"samples"`
	LastMS      int64  `json:"last_ms"`
	P50MS       int64  `json:"p50_ms"`
	P95MS       int64  `json:"p95_ms"`
	TargetP95MS int64  `json:"target_p95_ms,omitempty"`
	OverTarget  bool   `json:"over_target"`
}

type Indicator struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type LatencySnapshot struct {
	GeneratedAt time.Time    `json:"generated_at"`
	WindowSize  int          `json:"window_size"`
	Stages      []StageStats `json:"stages"`
	Indicators  []Indicator  `json:"indicators,omitempty"`
}

// LatencyWindow keeps the most recent samples per stage and counts non-ok outcomes.
type LatencyWindow struct {
	mu         sync.Mutex
	size       int
	samples    map[string][]int64
	indicators map[string]int
}

func NewLatencyWindow(size int) *LatencyWindow {
	if size <= 0 {
		size = 256
	}
	w := &LatencyWindow{size: size}
	w.clear()
	return w
}

func (w *LatencyWindow) clear() {
	w.samples = make(map[string][]int64)
	w.indicators = make(map[string]int)
}

// Observe records ms for stage, evicting the oldest sample once the window is full.
func (w *LatencyWindow) Observe(stage string, ms int64) {
	if stage == "" || ms < 0 {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	s := append(w.samples[stage], ms)
	if len(s) > w.size {
		s = s[len(s)-w.size:]
	}
	w.samples[stage] = s
}

func (w *LatencyWindow) ObserveIndicator(name string) {
	if name = strings.TrimSpace(name); name == "" {
		return
	}
	w.mu.Lock()
	w.indicators[name]++
	w.mu.Unlock()
}

func (w *LatencyWindow) Snapshot() LatencySnapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	snap := LatencySnapshot{GeneratedAt: time.Now().UTC(), WindowSize: w.size, Stages: []StageStats{}}
	for _, stage := range slices.Sorted(maps.Keys(w.samples)) {
		raw := w.samples[stage]
		if len(raw) == 0 {
			continue
		}
		sorted := slices.Clone(raw)
		slices.Sort(sorted)
		st := StageStats{
			Stage:       stage,
			Samples:     len(sorted),
			LastMS:      raw[len(raw)-1],
			P50MS:       percentile(sorted, 50),
			P95MS:       percentile(sorted, 95),
			TargetP95MS: stageTargetsMS[stage],
		}
		st.OverTarget = st.TargetP95MS > 0 && st.P95MS > st.TargetP95MS
		snap.Stages = append(snap.Stages, st)
	}
	for _, name := range slices.Sorted(maps.Keys(w.indicators)) {
		snap.Indicators = append(snap.Indicators, Indicator{Name: name, Count: w.indicators[name]})
	}
	return snap
}

func (w *LatencyWindow) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.clear()
}

// percentile uses the nearest-rank method on an ascending slice.
func percentile(sorted []int64, p int) int64 {
	rank := int(math.Ceil(float64(p) / 100 * float64(len(sorted))))
	return sorted[max(rank, 1)-1]
}
