package cognitive

import "math"

// adaptationWindow is how many recent feedback values the rolling
// adaptation score averages over.
const adaptationWindow = 10

// Confidence derives a [0,1] scalar from the spread of the two activation
// tiers, damped by emotional stability. Uses population standard deviation;
// an empty sequence contributes a deviation of 0.
func Confidence(fastActivations, deepActivations []float64, stability float64) float64 {
	spread := (stddev(fastActivations) + stddev(deepActivations)) / 2.0
	return clamp(spread*stability, 0, 1)
}

// AdaptationScore averages the feedback of the most recent adaptation
// events, clamped to [-1,1]. Returns exactly 0 for an empty history.
func AdaptationScore(history []AdaptationEvent) float64 {
	if len(history) == 0 {
		return 0
	}
	window := history
	if len(window) > adaptationWindow {
		window = window[len(window)-adaptationWindow:]
	}
	var total float64
	for _, ev := range window {
		total += ev.Feedback
	}
	return clamp(total/float64(len(window)), -1, 1)
}

// stddev returns the population standard deviation, 0 for empty input.
func stddev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := mean(values)
	var sum float64
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)))
}
