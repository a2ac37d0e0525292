package domain

import "fmt"

// Confidence is a normalized confidence container. Engines disagree about
// how to report confidence: some return a float, some return high/medium/low,
// some return nothing. We keep both representations and normalize at the
// point of comparison instead of at construction.
//
// Invariant: if Score is set it lies in [0, 1]. An empty Level means absent.
type Confidence struct {
	Score *float64        `json:"score,omitempty"`
	Level ConfidenceLevel `json:"level,omitempty"`
}

// NewConfidence builds a Confidence, rejecting out-of-range scores.
func NewConfidence(score *float64, level ConfidenceLevel) (*Confidence, error) {
	if score != nil && (*score < 0 || *score > 1) {
		return nil, fmt.Errorf("confidence score %v out of range [0, 1]", *score)
	}
	if level != "" && !ValidConfidenceLevels[level] {
		return nil, fmt.Errorf("unknown confidence level %q", level)
	}
	return &Confidence{Score: score, Level: level}, nil
}

// ScoreOf wraps a raw score into a Confidence without a level. Panics on
// out-of-range input; callers pass literals or already-validated values.
func ScoreOf(s float64) *Confidence {
	c, err := NewConfidence(&s, "")
	if err != nil {
		panic(err)
	}
	return c
}

// LevelOf wraps a qualitative level into a Confidence without a score.
func LevelOf(l ConfidenceLevel) *Confidence {
	return &Confidence{Level: l}
}

// ConfidenceNumber collapses a Confidence into a single comparable number.
// The level mapping is a deliberate lossy approximation: high=0.85,
// medium=0.60, low=0.30, unknown=0.
func ConfidenceNumber(c *Confidence) float64 {
	if c == nil {
		return 0.0
	}
	if c.Score != nil {
		return *c.Score
	}
	switch c.Level {
	case ConfidenceHigh:
		return 0.85
	case ConfidenceMedium:
		return 0.60
	case ConfidenceLow:
		return 0.30
	}
	return 0.0
}

var levelRank = map[ConfidenceLevel]int{
	ConfidenceLow:    0,
	ConfidenceMedium: 1,
	ConfidenceHigh:   2,
}

// AggregateConfidence folds many optional confidences into one.
//
// Policy:
//   - If any numeric scores exist, the result is their arithmetic mean with
//     no level; averaging never invents a qualitative label.
//   - Else, if any levels exist, the result is the worst level present
//     (low < medium < high). A single low-confidence unit drags the whole
//     batch down, since consumers gate manual review on this signal.
//   - Else nil: nothing is known.
func AggregateConfidence(cs []*Confidence) *Confidence {
	var scores []float64
	var levels []ConfidenceLevel

	for _, c := range cs {
		if c == nil {
			continue
		}
		if c.Score != nil {
			scores = append(scores, *c.Score)
		}
		if c.Level != "" {
			levels = append(levels, c.Level)
		}
	}

	if len(scores) > 0 {
		sum := 0.0
		for _, s := range scores {
			sum += s
		}
		avg := sum / float64(len(scores))
		return &Confidence{Score: &avg}
	}

	if len(levels) > 0 {
		worst := levels[0]
		for _, l := range levels[1:] {
			if levelRank[l] < levelRank[worst] {
				worst = l
			}
		}
		return &Confidence{Level: worst}
	}

	return nil
}
