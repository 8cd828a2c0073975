package assessment

import (
	"context"
	"errors"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrAlreadySubmitted = errors.New("result already submitted")
	// ErrLocked rejects answer key changes once an attempt has started.
	ErrLocked = errors.New("assessment has attempts")
)

type ListOpts struct {
	CourseID string
	Kind     Kind
	Limit    int
	Offset   int
}

type ResultFilter struct {
	StudentID    string
	AssessmentID string
}

type SubmissionFilter struct {
	StudentID    string
	AssignmentID string
}

type Store interface {
	PutAssessment(ctx context.Context, a Assessment) (Assessment, error)
	GetAssessment(ctx context.Context, id string) (Assessment, error)
	ListAssessments(ctx context.Context, opts ListOpts) ([]Assessment, error)
	DeleteAssessment(ctx context.Context, id string) error

	PutAssignment(ctx context.Context, a Assignment) (Assignment, error)
	GetAssignment(ctx context.Context, id string) (Assignment, error)
	ListAssignments(ctx context.Context, opts ListOpts) ([]Assignment, error)

	// SaveResult upserts by (student, assessment). A final result can not be
	// replaced: saving over one returns ErrAlreadySubmitted.
	SaveResult(ctx context.Context, r Result) (Result, error)
	GetResult(ctx context.Context, id string) (Result, error)
	ListResults(ctx context.Context, f ResultFilter) ([]Result, error)
	GradeResult(ctx context.Context, id string, g ManualGrade) (Result, error)

	// SaveSubmission upserts by (assignment, student).
	SaveSubmission(ctx context.Context, s Submission) (Submission, error)
	GetSubmission(ctx context.Context, id string) (Submission, error)
	ListSubmissions(ctx context.Context, f SubmissionFilter) ([]Submission, error)
	GradeSubmission(ctx context.Context, id string, g ManualGrade) (Submission, error)
}
