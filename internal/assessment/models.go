package assessment

import (
	"time"

	"github.com/mind-engage/eduhub-assess/internal/grading"
)

type Kind string

const (
	KindQuiz       Kind = "quiz"
	KindTest       Kind = "test"
	KindExam       Kind = "exam"
	KindAssignment Kind = "assignment"
	KindCoding     Kind = "coding"
)

// Scored reports whether results for this kind live in the results collection
// rather than in file submissions.
func (k Kind) Scored() bool {
	switch k {
	case KindQuiz, KindTest, KindExam, "":
		return true
	}
	return false
}

type Question struct {
	ID            string   `json:"id"`
	Text          string   `json:"text" validate:"required"`
	Options       []string `json:"options,omitempty"`
	CorrectAnswer int      `json:"correctAnswer"`
	Marks         float64  `json:"marks,omitempty"`
	Type          string   `json:"type,omitempty"` // mcq, subjective, coding
}

type Assessment struct {
	ID          string     `json:"id"`
	Title       string     `json:"title" validate:"required"`
	Description string     `json:"description,omitempty"`
	Course      Ref        `json:"course"`
	Kind        Kind       `json:"type,omitempty"`
	Questions   []Question `json:"questions" validate:"dive"`
	Duration    int        `json:"duration,omitempty"`  // legacy, minutes
	TimeLimit   int        `json:"timeLimit,omitempty"` // minutes
	DueDate     *time.Time `json:"dueDate,omitempty"`
	Teacher     string     `json:"teacher,omitempty"`
	Status      string     `json:"status,omitempty"` // draft|published
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Minutes is the attempt time limit, preferring timeLimit over the legacy field.
func (a Assessment) Minutes() int {
	if a.TimeLimit > 0 {
		return a.TimeLimit
	}
	return a.Duration
}

// GradingView projects the questions for the scoring engine.
func (a Assessment) GradingView() []grading.Q {
	out := make([]grading.Q, len(a.Questions))
	for i, q := range a.Questions {
		out[i] = grading.Q{Type: q.Type, Correct: q.CorrectAnswer, Marks: q.Marks, Options: len(q.Options)}
	}
	return out
}

type Assignment struct {
	ID          string    `json:"id"`
	Title       string    `json:"title" validate:"required"`
	Description string    `json:"description,omitempty"`
	Course      Ref       `json:"course"`
	Teacher     string    `json:"teacher,omitempty"`
	DueDate     time.Time `json:"dueDate"`
	CreatedAt   time.Time `json:"createdAt"`
}

type ResultStatus string

const (
	StatusInProgress ResultStatus = "in-progress"
	StatusPassed     ResultStatus = "passed"
	StatusFailed     ResultStatus = "failed"
	StatusCompleted  ResultStatus = "completed"
)

// Final reports whether the result closes the attempt.
func (s ResultStatus) Final() bool {
	return s == StatusPassed || s == StatusFailed || s == StatusCompleted
}

type AnswerRecord struct {
	QuestionID     string `json:"questionId"`
	SelectedOption int    `json:"selectedOption"`
	IsCorrect      bool   `json:"isCorrect"`
}

type Result struct {
	ID          string         `json:"id"`
	Student     Ref            `json:"student"`
	Assessment  Ref            `json:"assessment"`
	Score       int            `json:"score"`
	TotalMarks  int            `json:"totalMarks"`
	Status      ResultStatus   `json:"status"`
	Answers     []AnswerRecord `json:"answers"`
	ManualScore *float64       `json:"manualScore,omitempty"`
	Feedback    string         `json:"feedback,omitempty"`
	StartedAt   *time.Time     `json:"startedAt,omitempty"`
	CompletedAt *time.Time     `json:"completedAt,omitempty"`
	GradedAt    *time.Time     `json:"gradedAt,omitempty"`
	AttemptedAt time.Time      `json:"attemptedAt"`
	CreatedAt   time.Time      `json:"createdAt"`
}

type SubmissionStatus string

const (
	SubmissionPending SubmissionStatus = "pending"
	SubmissionGraded  SubmissionStatus = "graded"
)

type Submission struct {
	ID         string           `json:"id"`
	Assignment Ref              `json:"assignment"`
	Student    Ref              `json:"student"`
	Content    string           `json:"content,omitempty"`
	FileURL    string           `json:"fileUrl,omitempty"`
	Grade      *float64         `json:"grade,omitempty"`
	Feedback   string           `json:"feedback,omitempty"`
	Status     SubmissionStatus `json:"status"`
	CreatedAt  time.Time        `json:"createdAt"`
	UpdatedAt  time.Time        `json:"updatedAt"`
}

// ManualGrade is a teacher's grade for a result or submission.
type ManualGrade struct {
	Grade    *float64       `json:"grade,omitempty"`
	Marks    []grading.Mark `json:"marks,omitempty"`
	Feedback string         `json:"feedback,omitempty"`
	GradedBy string         `json:"-"`
}

// Resolve returns the grade to store: explicit grade wins, otherwise the
// clamped total of per-question marks.
func (g ManualGrade) Resolve() (float64, bool) {
	if g.Grade != nil {
		return *g.Grade, true
	}
	if len(g.Marks) > 0 {
		total, _ := grading.ScoreManual(g.Marks)
		return total, true
	}
	return 0, false
}
