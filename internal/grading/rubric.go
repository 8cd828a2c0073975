package grading

import "fmt"

// Mark is a teacher-entered mark for one question.
type Mark struct {
	Key       string  `json:"questionId"`
	Awarded   float64 `json:"awarded"`
	MaxPoints float64 `json:"max"`
}

// ScoreManual totals teacher marks, clamping each to [0, MaxPoints]. A zero
// MaxPoints means the question carries the default weight of one mark.
func ScoreManual(marks []Mark) (float64, []string) {
	total := 0.0
	notes := make([]string, 0, len(marks))
	for _, m := range marks {
		max := m.MaxPoints
		if max <= 0 {
			max = 1
		}
		v := m.Awarded
		if v < 0 {
			v = 0
		}
		if v > max {
			v = max
		}
		total += v
		notes = append(notes, fmt.Sprintf("%s:%.2f", m.Key, v))
	}
	return total, notes
}
