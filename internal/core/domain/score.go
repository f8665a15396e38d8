package domain

import "math"

// ScoreReport grades a profile against the scoring rubric. It is derived
// state: recomputed from the current ProfileRecord on every read and never
// persisted, so it can never go stale.
type ScoreReport struct {
	TotalScore    float64        `json:"totalScore"`
	MaxTotalScore float64        `json:"maxTotalScore"`
	Percentage    int            `json:"percentage"`
	Grade         string         `json:"grade"`
	Sections      []SectionScore `json:"sections"`
}

// SectionScore is the per-section breakdown. A section may own several
// criteria; their scores and maxima sum.
type SectionScore struct {
	Section  string   `json:"section"`
	Score    float64  `json:"score"`
	MaxScore float64  `json:"maxScore"`
	Details  []string `json:"details"`
}

// gradeBreakpoints maps minimum percentage to letter grade, highest first.
var gradeBreakpoints = []struct {
	min   int
	grade string
}{
	{90, "A+"}, {85, "A"}, {80, "A-"},
	{75, "B+"}, {70, "B"}, {65, "B-"},
	{60, "C+"}, {55, "C"}, {50, "C-"},
	{45, "D+"}, {40, "D"}, {35, "D-"},
}

// LetterGrade maps a percentage to its letter grade. Anything under the
// lowest breakpoint is an F.
func LetterGrade(percentage int) string {
	for _, bp := range gradeBreakpoints {
		if percentage >= bp.min {
			return bp.grade
		}
	}
	return "F"
}

// Percent computes round(100 * score / max), clamped to [0, 100].
// A zero max yields 0 so the report is always well-defined.
func Percent(score, max float64) int {
	if max <= 0 {
		return 0
	}
	pct := int(math.Round(100 * score / max))
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}
