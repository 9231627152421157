package cognitive

// EmotionalState is the four-scalar affect model. Valence is set at
// construction and never updated by the pipeline; stability converges
// toward 1.0 regardless of input.
type EmotionalState struct {
	Valence   float64 `json:"valence"`
	Arousal   float64 `json:"arousal"`
	Dominance float64 `json:"dominance"`
	Stability float64 `json:"stability"`
}

// Update evolves arousal and dominance by exponential smoothing from the
// two activation tiers. Empty sequences contribute a mean of 0.
func (e *EmotionalState) Update(fastActivations, deepActivations []float64) {
	e.Arousal = e.Arousal*0.9 + mean(fastActivations)*0.1
	e.Dominance = e.Dominance*0.9 + mean(deepActivations)*0.1
	e.Stability = e.Stability*0.95 + 0.05
}
