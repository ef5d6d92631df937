// Package scoring turns graded answers into an overall score, a pass/fail
// decision, a competency level and narrated feedback.
package scoring

import "math"

// CompetencyLevel is an ordered band of the overall score.
type CompetencyLevel string

const (
	Novice     CompetencyLevel = "novice"
	Competent  CompetencyLevel = "competent"
	Proficient CompetencyLevel = "proficient"
	Expert     CompetencyLevel = "expert"
)

// Band lower bounds. A score belongs to the highest band whose bound it
// reaches.
const (
	competentFrom  = 60
	proficientFrom = 75
	expertFrom     = 90
)

// Band maps a 0-100 score to its competency level.
func Band(score int) CompetencyLevel {
	switch {
	case score >= expertFrom:
		return Expert
	case score >= proficientFrom:
		return Proficient
	case score >= competentFrom:
		return Competent
	default:
		return Novice
	}
}

// Rank orders levels from 0 (novice) to 3 (expert).
func (l CompetencyLevel) Rank() int {
	switch l {
	case Competent:
		return 1
	case Proficient:
		return 2
	case Expert:
		return 3
	}
	return 0
}

// Passed reports whether score meets the unit's passing threshold.
func Passed(score, threshold int) bool {
	return score >= threshold
}

// Item is one graded answer's contribution to the overall score.
type Item struct {
	Score  int     // 0-100
	Weight float64 // 1 unless the unit overrides it
}

// Aggregate returns the weighted mean of the item scores rounded to the
// nearest integer and clamped to [0,100]. Items with non-positive weight
// are ignored; with no weight at all the score is 0.
func Aggregate(items []Item) int {
	var sum, total float64
	for _, it := range items {
		if it.Weight <= 0 {
			continue
		}
		sum += float64(min(max(it.Score, 0), 100)) * it.Weight
		total += it.Weight
	}
	if total == 0 {
		return 0
	}
	return min(max(int(math.Round(sum/total)), 0), 100)
}
