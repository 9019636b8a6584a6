package grade

import "math"

const (
	PassScore = 60.0

	regularWeight = 0.4
	examWeight    = 0.6
)

// FinalScore weighs the regular score at 40% and the exam score at 60%.
func FinalScore(regular, exam float64) float64 {
	return round2(regular*regularWeight + exam*examWeight)
}

// ComputeStats aggregates the final scores of the given enrollments.
// Enrollments without a final score only count in EnrolledCount.
func ComputeStats(enrollments []Enrollment) Stats {
	stats := Stats{EnrolledCount: len(enrollments)}

	var total float64
	var passed int
	for _, e := range enrollments {
		if e.FinalScore == nil {
			continue
		}
		score := *e.FinalScore
		if stats.GradedCount == 0 || score > stats.MaxScore {
			stats.MaxScore = score
		}
		if stats.GradedCount == 0 || score < stats.MinScore {
			stats.MinScore = score
		}
		if score >= PassScore {
			passed++
		}
		total += score
		stats.GradedCount++
	}

	if stats.GradedCount > 0 {
		stats.AverageScore = round2(total / float64(stats.GradedCount))
		stats.PassRate = float64(passed) / float64(stats.GradedCount)
	}
	return stats
}

// ValidScore reports whether v is a finite score in [0, 100].
func ValidScore(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0 && v <= 100
}

// round2 rounds half away from zero to 2 decimals.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
