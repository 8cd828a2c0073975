// Package review rebuilds submitted work for a teacher to read and grade.
package review

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mind-engage/eduhub-assess/internal/assessment"
)

// TimeLayout is how submission times are shown to reviewers.
const TimeLayout = "Jan 2, 2006 3:04 PM"

const (
	StatusGraded  = "graded"
	StatusPending = "pending"
)

var ErrNotGradable = errors.New("record can not be graded")

// Source is the read and grade surface the reviewer needs. Both the API
// client and an assessment.Store satisfy it.
type Source interface {
	GetAssessment(ctx context.Context, id string) (assessment.Assessment, error)
	GetAssignment(ctx context.Context, id string) (assessment.Assignment, error)
	ListResults(ctx context.Context, f assessment.ResultFilter) ([]assessment.Result, error)
	ListSubmissions(ctx context.Context, f assessment.SubmissionFilter) ([]assessment.Submission, error)
	GradeResult(ctx context.Context, id string, g assessment.ManualGrade) (assessment.Result, error)
	GradeSubmission(ctx context.Context, id string, g assessment.ManualGrade) (assessment.Submission, error)
}

// Target is the assessment or assignment being reviewed.
type Target struct {
	ID        string
	Title     string
	Kind      assessment.Kind
	Questions []assessment.Question
	// Results is true when records live in the results collection.
	Results bool

	quiz assessment.Assessment
}

type Answer struct {
	Index      int    `json:"index"`
	QuestionID string `json:"questionId"`
	Question   string `json:"question"`
	Selected   int    `json:"selectedOption"`
	Choice     string `json:"choice,omitempty"`
	Correct    bool   `json:"isCorrect"`
}

// Submission is one student's record normalised for review.
type Submission struct {
	ID          string    `json:"id"`
	StudentID   string    `json:"studentId"`
	StudentName string    `json:"studentName"`
	ShortID     string    `json:"shortId"`
	SubmittedAt time.Time `json:"submittedAt"`
	Submitted   string    `json:"submitted"`
	Status      string    `json:"status"`
	Score       *float64  `json:"score,omitempty"`
	Total       int       `json:"total,omitempty"`
	Feedback    string    `json:"feedback,omitempty"`
	Content     string    `json:"content,omitempty"`
	FileURL     string    `json:"fileUrl,omitempty"`
	Answers     []Answer  `json:"answers,omitempty"`
}

type Reviewer struct {
	src Source
	loc *time.Location
}

type Option func(*Reviewer)

// WithLocation sets the zone used for formatted times (default Local).
func WithLocation(loc *time.Location) Option { return func(r *Reviewer) { r.loc = loc } }

func New(src Source, opts ...Option) *Reviewer {
	r := &Reviewer{src: src, loc: time.Local}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Resolve looks id up as an assessment first, then as an assignment.
func (r *Reviewer) Resolve(ctx context.Context, id string) (Target, error) {
	a, err := r.src.GetAssessment(ctx, id)
	if err == nil {
		return Target{
			ID: a.ID, Title: a.Title, Kind: a.Kind, Questions: a.Questions,
			Results: a.Kind.Scored(), quiz: a,
		}, nil
	}
	if !errors.Is(err, assessment.ErrNotFound) {
		return Target{}, fmt.Errorf("resolve %s: %w", id, err)
	}
	as, err := r.src.GetAssignment(ctx, id)
	if err != nil {
		return Target{}, fmt.Errorf("resolve %s: %w", id, err)
	}
	return Target{ID: as.ID, Title: as.Title, Kind: assessment.KindAssignment}, nil
}

// Submissions resolves id and returns every record submitted against it.
func (r *Reviewer) Submissions(ctx context.Context, id string) (Target, []Submission, error) {
	t, err := r.Resolve(ctx, id)
	if err != nil {
		return Target{}, nil, err
	}
	if t.Results {
		results, err := r.src.ListResults(ctx, assessment.ResultFilter{AssessmentID: t.ID})
		if err != nil {
			return t, nil, fmt.Errorf("list results: %w", err)
		}
		out := make([]Submission, 0, len(results))
		for _, res := range results {
			if res.Status == assessment.StatusInProgress {
				continue
			}
			out = append(out, r.fromResult(t, res))
		}
		return t, out, nil
	}
	subs, err := r.src.ListSubmissions(ctx, assessment.SubmissionFilter{AssignmentID: t.ID})
	if err != nil {
		return t, nil, fmt.Errorf("list submissions: %w", err)
	}
	out := make([]Submission, 0, len(subs))
	for _, s := range subs {
		out = append(out, r.fromSubmission(s))
	}
	return t, out, nil
}

// Grade stores a manual grade against one record of t.
func (r *Reviewer) Grade(ctx context.Context, t Target, recordID string, g assessment.ManualGrade) (Submission, error) {
	if _, ok := g.Resolve(); !ok && strings.TrimSpace(g.Feedback) == "" {
		return Submission{}, fmt.Errorf("%w: grade or feedback required", ErrNotGradable)
	}
	if t.Results {
		res, err := r.src.GradeResult(ctx, recordID, g)
		if err != nil {
			return Submission{}, err
		}
		return r.fromResult(t, res), nil
	}
	s, err := r.src.GradeSubmission(ctx, recordID, g)
	if err != nil {
		return Submission{}, err
	}
	return r.fromSubmission(s), nil
}

func (r *Reviewer) fromResult(t Target, res assessment.Result) Submission {
	at := res.AttemptedAt
	if res.CompletedAt != nil {
		at = *res.CompletedAt
	}
	score := float64(res.Score)
	if res.ManualScore != nil {
		score = *res.ManualScore
	}
	v := r.base(res.ID, res.Student, at)
	v.Status = statusOf(string(res.Status))
	v.Score = &score
	v.Total = res.TotalMarks
	v.Feedback = res.Feedback
	v.Answers = answers(t.quiz, res.Answers)
	return v
}

func (r *Reviewer) fromSubmission(s assessment.Submission) Submission {
	at := s.UpdatedAt
	if at.IsZero() {
		at = s.CreatedAt
	}
	v := r.base(s.ID, s.Student, at)
	v.Status = statusOf(string(s.Status))
	v.Score = s.Grade
	v.Feedback = s.Feedback
	v.Content = s.Content
	v.FileURL = s.FileURL
	return v
}

func (r *Reviewer) base(id string, student assessment.Ref, at time.Time) Submission {
	sid := assessment.IDOf(student)
	name := strings.TrimSpace(student.Name)
	if name == "" {
		name = "Unknown Student"
	}
	v := Submission{ID: id, StudentID: sid, StudentName: name, ShortID: ShortID(sid), SubmittedAt: at}
	if !at.IsZero() {
		v.Submitted = at.In(r.loc).Format(TimeLayout)
	}
	return v
}

func answers(a assessment.Assessment, recs []assessment.AnswerRecord) []Answer {
	out := make([]Answer, 0, len(recs))
	for _, rec := range recs {
		ans := Answer{Index: -1, QuestionID: rec.QuestionID, Selected: rec.SelectedOption, Correct: rec.IsCorrect}
		if i, ok := assessment.QuestionIndex(a, rec.QuestionID); ok {
			q := a.Questions[i]
			ans.Index = i
			ans.Question = q.Text
			if rec.SelectedOption >= 0 && rec.SelectedOption < len(q.Options) {
				ans.Choice = q.Options[rec.SelectedOption]
			}
		}
		out = append(out, ans)
	}
	return out
}

var gradedStatuses = map[string]bool{
	"graded":    true,
	"passed":    true,
	"failed":    true,
	"completed": true,
}

func statusOf(s string) string {
	if gradedStatuses[s] {
		return StatusGraded
	}
	return StatusPending
}

// ShortID is the last six characters of id, upper-cased.
func ShortID(id string) string {
	if len(id) > 6 {
		id = id[len(id)-6:]
	}
	return strings.ToUpper(id)
}
