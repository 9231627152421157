package cognitive

import (
	"math"
	"time"
)

// AdaptationEvent records one processing cycle against which user feedback
// may later be applied. Feedback starts at 0 and is written at most once.
type AdaptationEvent struct {
	Timestamp time.Time          `json:"timestamp"`
	Category  string             `json:"category"`
	Feedback  float64            `json:"feedback"`
	Context   string             `json:"context"`
	Delta     map[string]float64 `json:"delta,omitempty"`
}

// metricWeights maps well-known metric names to their influence weight.
// Unrecognized metrics fall back to defaultMetricWeight.
var metricWeights = map[string]float64{
	"creativity":    0.3,
	"analytical":    0.2,
	"empathy":       0.25,
	"assertiveness": 0.15,
}

const defaultMetricWeight = 0.1

// PersonalityProfile holds named metrics in [-1,1] and a bounded-rate
// adaptation mechanism driven by user feedback.
type PersonalityProfile struct {
	OwnerID      string             `json:"owner_id"`
	Metrics      map[string]float64 `json:"metrics"`
	History      []AdaptationEvent  `json:"adaptation_history"`
	LearningRate float64            `json:"learning_rate"`

	// HistoryLimit caps the adaptation history length, evicting the
	// oldest events first. Zero keeps the history unbounded.
	HistoryLimit int `json:"history_limit,omitempty"`
}

// NewPersonalityProfile creates a profile with no metrics set and the
// default learning rate.
func NewPersonalityProfile(ownerID string) *PersonalityProfile {
	return &PersonalityProfile{
		OwnerID:      ownerID,
		Metrics:      make(map[string]float64),
		LearningRate: 0.01,
	}
}

// Influence folds all stored metrics into a single scalar in (-1,1) and
// appends a zero-feedback adaptation event for this cycle.
func (p *PersonalityProfile) Influence(taskCategory, context string) float64 {
	var influence float64
	for name, value := range p.Metrics {
		weight, ok := metricWeights[name]
		if !ok {
			weight = defaultMetricWeight
		}
		influence += value * weight
	}

	p.History = append(p.History, AdaptationEvent{
		Timestamp: time.Now(),
		Category:  taskCategory,
		Context:   context,
	})
	if p.HistoryLimit > 0 && len(p.History) > p.HistoryLimit {
		p.History = p.History[len(p.History)-p.HistoryLimit:]
	}

	return math.Tanh(influence)
}

// SetMetric stores a metric value clamped to [-1,1], overwriting any
// prior value under the same name.
func (p *PersonalityProfile) SetMetric(name string, value float64) {
	p.Metrics[name] = clamp(value, -1, 1)
}

// ApplyFeedback writes clamped feedback into the most recent adaptation
// event and adjusts every stored metric. A no-op when the history is empty.
func (p *PersonalityProfile) ApplyFeedback(feedback float64) {
	if len(p.History) == 0 {
		return
	}
	feedback = clamp(feedback, -1, 1)
	p.History[len(p.History)-1].Feedback = feedback

	lr := p.LearningRate
	for name, value := range p.Metrics {
		switch name {
		case "creativity":
			if feedback > 0.5 {
				value += lr * 0.1
			} else if feedback < -0.5 {
				value -= lr * 0.1
			}
		case "analytical":
			if feedback > 0.3 {
				value += lr * 0.05
			}
		default:
			value += lr * feedback * 0.02
		}
		p.Metrics[name] = clamp(value, -1, 1)
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
