package assessment

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is the in-process Store used by tests and offline demos.
type MemoryStore struct {
	mu          sync.RWMutex
	assessments map[string]Assessment
	assignments map[string]Assignment
	results     map[string]Result
	submissions map[string]Submission
	names       map[string]string
	now         func() time.Time
}

func NewInMemoryStore() *MemoryStore {
	return &MemoryStore{
		assessments: map[string]Assessment{},
		assignments: map[string]Assignment{},
		results:     map[string]Result{},
		submissions: map[string]Submission{},
		names:       map[string]string{},
		now:         time.Now,
	}
}

// SetDisplayName records the name used to populate student references.
func (m *MemoryStore) SetDisplayName(userID, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.names[userID] = name
}

func (m *MemoryStore) populate(r Ref) Ref {
	if n, ok := m.names[r.ID]; ok && r.Name == "" {
		r.Name = n
	}
	return r
}

func (m *MemoryStore) PutAssessment(_ context.Context, a Assessment) (Assessment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now().UTC()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if prev, ok := m.assessments[a.ID]; ok {
		AssignQuestionIDs(&a, prev.Questions)
		a.CreatedAt = prev.CreatedAt
	} else {
		AssignQuestionIDs(&a, nil)
		a.CreatedAt = now
	}
	a.UpdatedAt = now
	m.assessments[a.ID] = a
	return a, nil
}

func (m *MemoryStore) GetAssessment(_ context.Context, id string) (Assessment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.assessments[id]
	if !ok {
		return Assessment{}, fmt.Errorf("assessment %q: %w", id, ErrNotFound)
	}
	a.Questions = append([]Question(nil), a.Questions...)
	return a, nil
}

func (m *MemoryStore) ListAssessments(_ context.Context, opts ListOpts) ([]Assessment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Assessment, 0, len(m.assessments))
	for _, a := range m.assessments {
		if opts.CourseID != "" && IDOf(a.Course) != opts.CourseID {
			continue
		}
		if opts.Kind != "" && a.Kind != opts.Kind {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, opts.Limit, opts.Offset), nil
}

func (m *MemoryStore) DeleteAssessment(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.assessments[id]; !ok {
		return fmt.Errorf("assessment %q: %w", id, ErrNotFound)
	}
	delete(m.assessments, id)
	return nil
}

func (m *MemoryStore) PutAssignment(_ context.Context, a Assignment) (Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = m.now().UTC()
	}
	m.assignments[a.ID] = a
	return a, nil
}

func (m *MemoryStore) GetAssignment(_ context.Context, id string) (Assignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.assignments[id]
	if !ok {
		return Assignment{}, fmt.Errorf("assignment %q: %w", id, ErrNotFound)
	}
	return a, nil
}

func (m *MemoryStore) ListAssignments(_ context.Context, opts ListOpts) ([]Assignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Assignment, 0, len(m.assignments))
	for _, a := range m.assignments {
		if opts.CourseID != "" && IDOf(a.Course) != opts.CourseID {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueDate.Before(out[j].DueDate) })
	return page(out, opts.Limit, opts.Offset), nil
}

func (m *MemoryStore) SaveResult(_ context.Context, r Result) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var existing *Result
	for _, cur := range m.results {
		if IDOf(cur.Student) == IDOf(r.Student) && IDOf(cur.Assessment) == IDOf(r.Assessment) {
			cur := cur
			existing = &cur
			break
		}
	}
	merged, err := mergeResult(existing, r, m.now().UTC())
	if err != nil {
		return Result{}, err
	}
	m.results[merged.ID] = merged
	merged.Student = m.populate(merged.Student)
	return merged, nil
}

func (m *MemoryStore) GetResult(_ context.Context, id string) (Result, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.results[id]
	if !ok {
		return Result{}, fmt.Errorf("result %q: %w", id, ErrNotFound)
	}
	r.Student = m.populate(r.Student)
	return r, nil
}

func (m *MemoryStore) ListResults(_ context.Context, f ResultFilter) ([]Result, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Result{}
	for _, r := range m.results {
		if f.StudentID != "" && IDOf(r.Student) != f.StudentID {
			continue
		}
		if f.AssessmentID != "" && IDOf(r.Assessment) != f.AssessmentID {
			continue
		}
		r.Student = m.populate(r.Student)
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryStore) GradeResult(_ context.Context, id string, g ManualGrade) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.results[id]
	if !ok {
		return Result{}, fmt.Errorf("result %q: %w", id, ErrNotFound)
	}
	applyResultGrade(&r, g, m.now().UTC())
	m.results[id] = r
	r.Student = m.populate(r.Student)
	return r, nil
}

func (m *MemoryStore) SaveSubmission(_ context.Context, s Submission) (Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now().UTC()
	for id, cur := range m.submissions {
		if IDOf(cur.Assignment) == IDOf(s.Assignment) && IDOf(cur.Student) == IDOf(s.Student) {
			s.ID = id
			s.CreatedAt = cur.CreatedAt
			break
		}
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
		s.CreatedAt = now
	}
	if s.Status == "" {
		s.Status = SubmissionPending
	}
	s.UpdatedAt = now
	m.submissions[s.ID] = s
	s.Student = m.populate(s.Student)
	return s, nil
}

func (m *MemoryStore) GetSubmission(_ context.Context, id string) (Submission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.submissions[id]
	if !ok {
		return Submission{}, fmt.Errorf("submission %q: %w", id, ErrNotFound)
	}
	s.Student = m.populate(s.Student)
	return s, nil
}

func (m *MemoryStore) ListSubmissions(_ context.Context, f SubmissionFilter) ([]Submission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Submission{}
	for _, s := range m.submissions {
		if f.StudentID != "" && IDOf(s.Student) != f.StudentID {
			continue
		}
		if f.AssignmentID != "" && IDOf(s.Assignment) != f.AssignmentID {
			continue
		}
		s.Student = m.populate(s.Student)
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryStore) GradeSubmission(_ context.Context, id string, g ManualGrade) (Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.submissions[id]
	if !ok {
		return Submission{}, fmt.Errorf("submission %q: %w", id, ErrNotFound)
	}
	applySubmissionGrade(&s, g, m.now().UTC())
	m.submissions[id] = s
	s.Student = m.populate(s.Student)
	return s, nil
}

// mergeResult applies the upsert rules shared by every Store: an in-progress
// marker is created once, a final result completes it, and nothing replaces
// a final result.
func mergeResult(existing *Result, in Result, now time.Time) (Result, error) {
	if in.Status == "" {
		in.Status = StatusCompleted
	}
	if existing == nil {
		if in.ID == "" {
			in.ID = uuid.NewString()
		}
		in.CreatedAt = now
		in.AttemptedAt = now
		if in.Status == StatusInProgress {
			if in.StartedAt == nil {
				in.StartedAt = &now
			}
		} else {
			in.CompletedAt = &now
		}
		if in.Answers == nil {
			in.Answers = []AnswerRecord{}
		}
		return in, nil
	}
	if existing.Status.Final() {
		return Result{}, fmt.Errorf("result %s: %w", existing.ID, ErrAlreadySubmitted)
	}
	if in.Status == StatusInProgress {
		return *existing, nil
	}
	out := *existing
	out.Score = in.Score
	out.TotalMarks = in.TotalMarks
	out.Status = in.Status
	out.Answers = in.Answers
	if out.Answers == nil {
		out.Answers = []AnswerRecord{}
	}
	out.CompletedAt = &now
	return out, nil
}

func applyResultGrade(r *Result, g ManualGrade, now time.Time) {
	if v, ok := g.Resolve(); ok {
		r.ManualScore = &v
	}
	if g.Feedback != "" {
		r.Feedback = g.Feedback
	}
	r.GradedAt = &now
}

func applySubmissionGrade(s *Submission, g ManualGrade, now time.Time) {
	if v, ok := g.Resolve(); ok {
		s.Grade = &v
	}
	if g.Feedback != "" {
		s.Feedback = g.Feedback
	}
	s.Status = SubmissionGraded
	s.UpdatedAt = now
}

func page[T any](in []T, limit, offset int) []T {
	if offset >= len(in) {
		return []T{}
	}
	in = in[offset:]
	if limit > 0 && limit < len(in) {
		in = in[:limit]
	}
	return in
}
