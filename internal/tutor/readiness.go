package tutor

import "math"

// DefaultThreshold is the readiness at which the tutor suggests taking the
// graded assessment.
const DefaultThreshold = 75

// minTurnsForConfidence is the number of exchanges after which readiness
// is no longer damped.
const minTurnsForConfidence = 3

// Exchange is the scored part of a practice turn.
type Exchange struct {
	Score int
	Topic string
}

// ComputeReadiness scores readiness 0-100 from the whole practice
// conversation. Later exchanges weigh more (weight i+1 for the i-th). The
// mean is damped until minTurnsForConfidence exchanges exist and scaled by
// topic coverage: half credit with no topics touched, full credit with all
// of them. An empty topic list disables the coverage factor.
func ComputeReadiness(exchanges []Exchange, topics []string) int {
	n := len(exchanges)
	if n == 0 {
		return 0
	}

	var sum, weights float64
	for i, ex := range exchanges {
		w := float64(i + 1)
		sum += w * float64(min(max(ex.Score, 0), 100))
		weights += w
	}
	mean := sum / weights

	confidence := math.Min(1, float64(n)/minTurnsForConfidence)

	coverage := 1.0
	if len(topics) > 0 {
		known := make(map[string]bool, len(topics))
		for _, t := range topics {
			known[t] = true
		}
		covered := map[string]bool{}
		for _, ex := range exchanges {
			if known[ex.Topic] {
				covered[ex.Topic] = true
			}
		}
		coverage = 0.5 + 0.5*float64(len(covered))/float64(len(known))
	}

	r := int(math.Round(mean * confidence * coverage))
	return min(max(r, 0), 100)
}
