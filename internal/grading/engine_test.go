package grading

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mcq(correct int) Q { return Q{Type: "mcq", Correct: correct, Options: 4} }

func TestGradeCountsCorrectIndices(t *testing.T) {
	qs := []Q{mcq(0), mcq(1), mcq(2)}

	out := Grade(qs, []int{0, 1, 1})
	assert.Equal(t, 2, out.Score)
	assert.Equal(t, 3, out.Total)
	assert.True(t, out.Passed)
	assert.Equal(t, "passed", out.Status())
	assert.Equal(t, []bool{true, true, false}, correctness(out))
}

func TestGradeAllSkippedFails(t *testing.T) {
	qs := []Q{mcq(0), mcq(1), mcq(2)}

	out := Grade(qs, []int{-1, -1, -1})
	assert.Equal(t, 0, out.Score)
	assert.False(t, out.Passed)
	assert.Equal(t, "failed", out.Status())
	for _, it := range out.Items {
		assert.True(t, it.Skipped)
		assert.False(t, it.Correct)
	}
}

func TestGradeNormalisesAnswerLength(t *testing.T) {
	qs := []Q{mcq(0), mcq(1), mcq(2), mcq(3)}

	short := Grade(qs, []int{0})
	require.Len(t, short.Items, 4)
	assert.Equal(t, 1, short.Score)
	assert.True(t, short.Items[3].Skipped)

	long := Grade(qs[:1], []int{0, 1, 2})
	require.Len(t, long.Items, 1)
	assert.Equal(t, 1, long.Score)
}

func TestGradeScoreBounded(t *testing.T) {
	qs := []Q{mcq(1), mcq(1), mcq(1), mcq(1), mcq(1)}
	inputs := [][]int{
		{1, 1, 1, 1, 1},
		{0, 0, 0, 0, 0},
		{1, 0, 1, -1, 7},
		{},
	}
	for _, in := range inputs {
		out := Grade(qs, in)
		assert.GreaterOrEqual(t, out.Score, 0)
		assert.LessOrEqual(t, out.Score, len(qs))

		want := 0
		for i := range qs {
			if i < len(in) && in[i] == qs[i].Correct {
				want++
			}
		}
		assert.Equal(t, want, out.Score)
	}
}

func TestPassedThreshold(t *testing.T) {
	tests := []struct {
		score, total int
		want         bool
	}{
		{2, 5, true},
		{1, 5, false},
		{4, 10, true},
		{3, 10, false},
		{1, 3, false},
		{2, 3, true},
		{0, 0, true},
	}
	for _, tt := range tests {
		assert.Equalf(t, tt.want, Passed(tt.score, tt.total), "Passed(%d, %d)", tt.score, tt.total)
	}
}

func TestGradeManualTypesNeverAutoCorrect(t *testing.T) {
	qs := []Q{{Type: "subjective", Correct: 0}, {Type: "coding"}, {Type: "essay"}}

	out := Grade(qs, []int{0, 0, -1})
	assert.Equal(t, 0, out.Score)
	for _, it := range out.Items {
		assert.True(t, it.NeedsManual)
	}
	assert.True(t, out.Items[2].Skipped)
}

func TestGradeMarksAreInformational(t *testing.T) {
	qs := []Q{{Type: "mcq", Correct: 0, Marks: 5}, {Type: "mcq", Correct: 1}}

	out := Grade(qs, []int{1, 1})
	assert.Equal(t, 1, out.Score)
	assert.Equal(t, 1.0, out.Marks)
	assert.Equal(t, 6.0, out.MaxMarks)
	assert.True(t, out.Passed)
}

func TestRestoreKeepsStoredFigures(t *testing.T) {
	qs := []Q{{Type: "mcq", Correct: 2, Marks: 3}, mcq(2)}
	items := []Item{{Selected: 0, Correct: true}, {Selected: Unanswered, Skipped: true}}

	out := Restore(qs, items, 1, 2, true)
	assert.Equal(t, 1, out.Score)
	assert.Equal(t, 2, out.Total)
	assert.Equal(t, "passed", out.Status())
	assert.Equal(t, []int{0, Unanswered}, out.Answers())
	assert.Equal(t, 3.0, out.Marks)
	assert.Equal(t, 4.0, out.MaxMarks)
}

func TestScoreManualClamps(t *testing.T) {
	total, notes := ScoreManual([]Mark{
		{Key: "q1", Awarded: 3, MaxPoints: 2},
		{Key: "q2", Awarded: -1, MaxPoints: 2},
		{Key: "q3", Awarded: 0.5},
	})
	assert.Equal(t, 2.5, total)
	assert.Equal(t, []string{"q1:2.00", "q2:0.00", "q3:0.50"}, notes)
}

func correctness(o Outcome) []bool {
	out := make([]bool, len(o.Items))
	for i, it := range o.Items {
		out[i] = it.Correct
	}
	return out
}
