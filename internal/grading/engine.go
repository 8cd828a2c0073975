package grading

// PassRatio is the fraction of questions that must be answered correctly for
// an attempt to pass. It applies to the question count, not to marks.
const PassRatio = 0.4

// Unanswered marks an answer slot with no recorded option.
const Unanswered = -1

// Q is a minimal view of a question needed for grading.
// Keep this in sync with assessment.Question.
type Q struct {
	Type    string
	Correct int
	Marks   float64
	Options int
}

// Item is the outcome of grading a single answer slot.
type Item struct {
	Selected    int
	Correct     bool
	Skipped     bool
	NeedsManual bool
}

// Outcome is the graded result of a whole answer array.
type Outcome struct {
	Score    int
	Total    int
	Passed   bool
	Items    []Item
	Marks    float64 // informational only: status is decided on Score
	MaxMarks float64
}

// Status is the persisted status string for the outcome.
func (o Outcome) Status() string {
	if o.Passed {
		return "passed"
	}
	return "failed"
}

// Answers is the normalised answer array the outcome was graded from.
func (o Outcome) Answers() []int {
	out := make([]int, len(o.Items))
	for i, it := range o.Items {
		out[i] = it.Selected
	}
	return out
}

// Strategy grades a single answer slot.
type Strategy interface {
	Grade(q Q, selected int) Item
}

// Grader routes by question type to the correct Strategy.
type Grader struct {
	strategies map[string]Strategy
	fallback   Strategy
}

// NewDefaultGrader installs built-in strategies.
func NewDefaultGrader() *Grader {
	return &Grader{
		strategies: map[string]Strategy{
			"":           indexStrategy{},
			"mcq":        indexStrategy{},
			"subjective": manualStrategy{},
			"coding":     manualStrategy{},
		},
		fallback: manualStrategy{},
	}
}

// Grade scores answers against qs. The answer array is normalised to len(qs):
// missing trailing slots count as unanswered and extra slots are ignored.
func (g *Grader) Grade(qs []Q, answers []int) Outcome {
	out := Outcome{Total: len(qs), Items: make([]Item, len(qs))}
	for i, q := range qs {
		sel := Unanswered
		if i < len(answers) {
			sel = answers[i]
		}
		s, ok := g.strategies[q.Type]
		if !ok {
			s = g.fallback
		}
		it := s.Grade(q, sel)
		out.Items[i] = it
		out.MaxMarks += marksOf(q)
		if it.Correct {
			out.Score++
			out.Marks += marksOf(q)
		}
	}
	out.Passed = Passed(out.Score, out.Total)
	return out
}

// Passed reports whether score meets PassRatio of total, using a plain
// real-valued comparison (5 questions → 2 correct passes).
func Passed(score, total int) bool {
	return float64(score) >= float64(total)*PassRatio
}

// Restore rebuilds an outcome from items and a score that were stored earlier.
// The stored figures are kept as they are; only marks are derived from qs.
func Restore(qs []Q, items []Item, score, total int, passed bool) Outcome {
	out := Outcome{Score: score, Total: total, Passed: passed, Items: items}
	for i, q := range qs {
		out.MaxMarks += marksOf(q)
		if i < len(items) && items[i].Correct {
			out.Marks += marksOf(q)
		}
	}
	return out
}

// Grade is a convenience wrapper around the default grader.
func Grade(qs []Q, answers []int) Outcome {
	return defaultGrader.Grade(qs, answers)
}

var defaultGrader = NewDefaultGrader()

// --- Strategies ---

type indexStrategy struct{}

func (indexStrategy) Grade(q Q, selected int) Item {
	it := Item{Selected: selected}
	if selected < 0 {
		it.Selected = Unanswered
		it.Skipped = true
		return it
	}
	it.Correct = selected == q.Correct
	return it
}

type manualStrategy struct{}

func (manualStrategy) Grade(_ Q, selected int) Item {
	if selected < 0 {
		selected = Unanswered
	}
	return Item{Selected: selected, Skipped: selected == Unanswered, NeedsManual: true}
}

func marksOf(q Q) float64 {
	if q.Marks <= 0 {
		return 1
	}
	return q.Marks
}
