package classify

import "time"

// Sample is one training observation for a predictor.
type Sample struct {
	SeenAt time.Time `json:"seen_at"`
	Text   string    `json:"text"`
	Label  string    `json:"label"`
	Amount float64   `json:"amount"`
}

// trainingWindow is a fixed-capacity ring buffer of the most recent
// training samples. Appending beyond capacity drops the oldest sample.
type trainingWindow struct {
	samples []Sample
	cap     int
}

func newTrainingWindow(capacity int) *trainingWindow {
	if capacity <= 0 {
		capacity = defaultWindowCap
	}
	return &trainingWindow{cap: capacity}
}

// append adds a sample, evicting the oldest when full.
func (w *trainingWindow) append(sample Sample) {
	w.samples = append(w.samples, sample)
	if len(w.samples) > w.cap {
		w.samples = w.samples[len(w.samples)-w.cap:]
	}
}

// trimToHalf keeps only the most recent half of the window.
func (w *trainingWindow) trimToHalf() {
	if len(w.samples) <= 1 {
		return
	}
	keep := (len(w.samples) + 1) / 2
	w.samples = w.samples[len(w.samples)-keep:]
}

func (w *trainingWindow) len() int {
	return len(w.samples)
}

// labels returns the distinct labels present in the window.
func (w *trainingWindow) labels() []string {
	seen := make(map[string]bool)
	var labels []string
	for _, sample := range w.samples {
		if !seen[sample.Label] {
			seen[sample.Label] = true
			labels = append(labels, sample.Label)
		}
	}
	return labels
}
