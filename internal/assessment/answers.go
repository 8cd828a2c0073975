package assessment

import (
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/mind-engage/eduhub-assess/internal/grading"
)

// Score grades answers against the assessment's answer key.
func Score(a Assessment, answers []int) grading.Outcome {
	return grading.Grade(a.GradingView(), answers)
}

// QuestionKey is the identity stored in answer records: the stable question
// id, or the stringified position for questions created without one.
func QuestionKey(q Question, index int) string {
	if id := strings.TrimSpace(q.ID); id != "" {
		return id
	}
	return strconv.Itoa(index)
}

// BuildRecords normalises a graded answer array into one record per question.
func BuildRecords(a Assessment, out grading.Outcome) []AnswerRecord {
	recs := make([]AnswerRecord, len(a.Questions))
	for i, q := range a.Questions {
		it := grading.Item{Selected: grading.Unanswered, Skipped: true}
		if i < len(out.Items) {
			it = out.Items[i]
		}
		recs[i] = AnswerRecord{
			QuestionID:     QuestionKey(q, i),
			SelectedOption: it.Selected,
			IsCorrect:      it.Correct,
		}
	}
	return recs
}

// ReconstructAnswers rebuilds the answer array of a stored result. Records
// are matched by stable question id first, then by numeric position; records
// matching neither are skipped and leave their slot unanswered.
func ReconstructAnswers(a Assessment, records []AnswerRecord) []int {
	answers := NewAnswers(len(a.Questions))
	idx := questionIndex(a)
	for _, rec := range records {
		if i, ok := idx(rec.QuestionID); ok {
			answers[i] = rec.SelectedOption
		}
	}
	return answers
}

// QuestionIndex resolves an answer record's questionId to a position.
func QuestionIndex(a Assessment, key string) (int, bool) {
	return questionIndex(a)(key)
}

func questionIndex(a Assessment) func(string) (int, bool) {
	byID := make(map[string]int, len(a.Questions))
	for i, q := range a.Questions {
		if q.ID != "" {
			byID[q.ID] = i
		}
	}
	return func(key string) (int, bool) {
		i, ok := byID[key]
		if !ok {
			n, err := strconv.Atoi(strings.TrimSpace(key))
			if err != nil {
				return 0, false
			}
			i = n
		}
		if i < 0 || i >= len(a.Questions) {
			return 0, false
		}
		return i, true
	}
}

// NewAnswers returns an answer array of n unanswered slots.
func NewAnswers(n int) []int {
	answers := make([]int, n)
	for i := range answers {
		answers[i] = grading.Unanswered
	}
	return answers
}

// FindResult scans results for the one recorded against assessmentID.
// Either reference shape (bare id or populated object) matches.
func FindResult(results []Result, assessmentID string) (Result, bool) {
	for _, r := range results {
		if IDOf(r.Assessment) == assessmentID {
			return r, true
		}
	}
	return Result{}, false
}

// AssignQuestionIDs gives every question without an id an opaque one. A
// question keeps the id of the question at the same position in prev, so
// editing an assessment does not orphan the answer records stored against it.
func AssignQuestionIDs(a *Assessment, prev []Question) {
	for i := range a.Questions {
		if strings.TrimSpace(a.Questions[i].ID) == "" {
			if i < len(prev) && prev[i].ID != "" {
				a.Questions[i].ID = prev[i].ID
			} else {
				a.Questions[i].ID = uuid.NewString()
			}
		}
		if a.Questions[i].Type == "" {
			a.Questions[i].Type = "mcq"
		}
	}
}

// SameAnswerKey reports whether two question lists grade identically: same
// ids, types, option counts and correct answers in the same order. Question
// and option wording may differ.
func SameAnswerKey(a, b []Question) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		x, y := a[i], b[i]
		if x.ID != y.ID || typeOf(x) != typeOf(y) || len(x.Options) != len(y.Options) ||
			x.CorrectAnswer != y.CorrectAnswer {
			return false
		}
	}
	return true
}

func typeOf(q Question) string {
	if q.Type == "" {
		return "mcq"
	}
	return q.Type
}

// RestoreOutcome rebuilds the outcome of a stored final result from the
// result's own score, status and correctness flags. Edits made to the answer
// key after the attempt do not change it.
func RestoreOutcome(a Assessment, r Result) grading.Outcome {
	items := make([]grading.Item, len(a.Questions))
	for i, q := range a.Questions {
		items[i] = grading.Item{Selected: grading.Unanswered, Skipped: true, NeedsManual: typeOf(q) != "mcq"}
	}
	idx := questionIndex(a)
	for _, rec := range r.Answers {
		i, ok := idx(rec.QuestionID)
		if !ok {
			continue
		}
		items[i].Selected = rec.SelectedOption
		items[i].Skipped = rec.SelectedOption < 0
		items[i].Correct = rec.IsCorrect
		if items[i].Skipped {
			items[i].Selected = grading.Unanswered
		}
	}
	total := r.TotalMarks
	if total <= 0 {
		total = len(a.Questions)
	}
	var passed bool
	switch r.Status {
	case StatusPassed:
		passed = true
	case StatusFailed:
		passed = false
	default:
		passed = grading.Passed(r.Score, total)
	}
	return grading.Restore(a.GradingView(), items, r.Score, total, passed)
}
