package assessment

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type SQLStore struct {
	db     *sql.DB
	driver string // "sqlite" or "postgres"
	now    func() time.Time
}

func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: driver, now: time.Now}
}

// ---- assessments ----

func (s *SQLStore) PutAssessment(ctx context.Context, a Assessment) (Assessment, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	now := s.now().UTC().Truncate(time.Second)
	if prev, err := s.GetAssessment(ctx, a.ID); err == nil {
		AssignQuestionIDs(&a, prev.Questions)
		a.CreatedAt = prev.CreatedAt
	} else if errors.Is(err, ErrNotFound) {
		AssignQuestionIDs(&a, nil)
		a.CreatedAt = now
	} else {
		return Assessment{}, err
	}
	qj, err := json.Marshal(a.Questions)
	if err != nil {
		return Assessment{}, err
	}
	a.UpdatedAt = now
	if a.Kind == "" {
		a.Kind = KindQuiz
	}
	if a.Status == "" {
		a.Status = "published"
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO assessments
		(id,title,description,course_id,kind,questions_json,duration,time_limit,due_date,teacher_id,status,created_at,updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		ON CONFLICT (id) DO UPDATE SET title=EXCLUDED.title, description=EXCLUDED.description,
		  course_id=EXCLUDED.course_id, kind=EXCLUDED.kind, questions_json=EXCLUDED.questions_json,
		  duration=EXCLUDED.duration, time_limit=EXCLUDED.time_limit, due_date=EXCLUDED.due_date,
		  teacher_id=EXCLUDED.teacher_id, status=EXCLUDED.status, updated_at=EXCLUDED.updated_at`,
		a.ID, a.Title, a.Description, IDOf(a.Course), string(a.Kind), string(qj), a.Duration, a.TimeLimit,
		unixPtr(a.DueDate), a.Teacher, a.Status, a.CreatedAt.Unix(), a.UpdatedAt.Unix())
	if err != nil {
		return Assessment{}, err
	}
	return a, nil
}

const assessmentCols = `id,title,description,course_id,kind,questions_json,duration,time_limit,due_date,teacher_id,status,created_at,updated_at`

func scanAssessment(sc interface{ Scan(...any) error }) (Assessment, error) {
	var (
		a         Assessment
		courseID  string
		kind      string
		qjson     string
		due       sql.NullInt64
		createdAt int64
		updatedAt int64
	)
	if err := sc.Scan(&a.ID, &a.Title, &a.Description, &courseID, &kind, &qjson, &a.Duration, &a.TimeLimit,
		&due, &a.Teacher, &a.Status, &createdAt, &updatedAt); err != nil {
		return Assessment{}, err
	}
	if err := json.Unmarshal([]byte(qjson), &a.Questions); err != nil {
		return Assessment{}, fmt.Errorf("questions_json: %w", err)
	}
	a.Course = RefTo(courseID)
	a.Kind = Kind(kind)
	a.DueDate = timePtr(due)
	a.CreatedAt = time.Unix(createdAt, 0).UTC()
	a.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return a, nil
}

func (s *SQLStore) GetAssessment(ctx context.Context, id string) (Assessment, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+assessmentCols+` FROM assessments WHERE id=$1`, id)
	a, err := scanAssessment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Assessment{}, fmt.Errorf("assessment %q: %w", id, ErrNotFound)
		}
		return Assessment{}, err
	}
	return a, nil
}

func (s *SQLStore) ListAssessments(ctx context.Context, opts ListOpts) ([]Assessment, error) {
	where, args := []string{}, []any{}
	if opts.CourseID != "" {
		args = append(args, opts.CourseID)
		where = append(where, fmt.Sprintf("course_id=$%d", len(args)))
	}
	if opts.Kind != "" {
		args = append(args, string(opts.Kind))
		where = append(where, fmt.Sprintf("kind=$%d", len(args)))
	}
	q := `SELECT ` + assessmentCols + ` FROM assessments` + whereClause(where) + ` ORDER BY created_at DESC` + limitClause(opts.Limit, opts.Offset)
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Assessment{}
	for rows.Next() {
		a, err := scanAssessment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SQLStore) DeleteAssessment(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM assessments WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("assessment %q: %w", id, ErrNotFound)
	}
	return nil
}

// ---- assignments ----

func (s *SQLStore) PutAssignment(ctx context.Context, a Assignment) (Assignment, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = s.now().UTC().Truncate(time.Second)
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO assignments (id,title,description,course_id,teacher_id,due_date,created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (id) DO UPDATE SET title=EXCLUDED.title, description=EXCLUDED.description,
		  course_id=EXCLUDED.course_id, teacher_id=EXCLUDED.teacher_id, due_date=EXCLUDED.due_date`,
		a.ID, a.Title, a.Description, IDOf(a.Course), a.Teacher, a.DueDate.Unix(), a.CreatedAt.Unix())
	if err != nil {
		return Assignment{}, err
	}
	return a, nil
}

const assignmentCols = `id,title,description,course_id,teacher_id,due_date,created_at`

func scanAssignment(sc interface{ Scan(...any) error }) (Assignment, error) {
	var (
		a         Assignment
		courseID  string
		due       int64
		createdAt int64
	)
	if err := sc.Scan(&a.ID, &a.Title, &a.Description, &courseID, &a.Teacher, &due, &createdAt); err != nil {
		return Assignment{}, err
	}
	a.Course = RefTo(courseID)
	a.DueDate = time.Unix(due, 0).UTC()
	a.CreatedAt = time.Unix(createdAt, 0).UTC()
	return a, nil
}

func (s *SQLStore) GetAssignment(ctx context.Context, id string) (Assignment, error) {
	a, err := scanAssignment(s.db.QueryRowContext(ctx, `SELECT `+assignmentCols+` FROM assignments WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Assignment{}, fmt.Errorf("assignment %q: %w", id, ErrNotFound)
		}
		return Assignment{}, err
	}
	return a, nil
}

func (s *SQLStore) ListAssignments(ctx context.Context, opts ListOpts) ([]Assignment, error) {
	where, args := []string{}, []any{}
	if opts.CourseID != "" {
		args = append(args, opts.CourseID)
		where = append(where, "course_id=$1")
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+assignmentCols+` FROM assignments`+whereClause(where)+` ORDER BY due_date`+limitClause(opts.Limit, opts.Offset), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Assignment{}
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ---- results ----

const resultCols = `r.id,r.student_id,COALESCE(u.name,''),r.assessment_id,r.score,r.total_marks,r.status,r.answers_json,
	r.manual_score,r.feedback,r.started_at,r.completed_at,r.graded_at,r.attempted_at,r.created_at`

const resultFrom = ` FROM assessment_results r LEFT JOIN users u ON u.id = r.student_id`

func scanResult(sc interface{ Scan(...any) error }) (Result, error) {
	var (
		r                             Result
		studentID, studentName        string
		assessmentID, status, answers string
		manual                        sql.NullFloat64
		started, completed, graded    sql.NullInt64
		attempted, created            int64
	)
	if err := sc.Scan(&r.ID, &studentID, &studentName, &assessmentID, &r.Score, &r.TotalMarks, &status, &answers,
		&manual, &r.Feedback, &started, &completed, &graded, &attempted, &created); err != nil {
		return Result{}, err
	}
	r.Student = Ref{ID: studentID, Name: studentName}
	r.Assessment = RefTo(assessmentID)
	r.Status = ResultStatus(status)
	if err := json.Unmarshal([]byte(answers), &r.Answers); err != nil {
		r.Answers = []AnswerRecord{}
	}
	if manual.Valid {
		v := manual.Float64
		r.ManualScore = &v
	}
	r.StartedAt = timePtr(started)
	r.CompletedAt = timePtr(completed)
	r.GradedAt = timePtr(graded)
	r.AttemptedAt = time.Unix(attempted, 0).UTC()
	r.CreatedAt = time.Unix(created, 0).UTC()
	return r, nil
}

func (s *SQLStore) SaveResult(ctx context.Context, in Result) (Result, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Result{}, err
	}
	defer func() { _ = tx.Rollback() }()

	var existing *Result
	row := tx.QueryRowContext(ctx, `SELECT `+resultCols+resultFrom+` WHERE r.student_id=$1 AND r.assessment_id=$2`,
		IDOf(in.Student), IDOf(in.Assessment))
	cur, err := scanResult(row)
	switch {
	case err == nil:
		existing = &cur
	case errors.Is(err, sql.ErrNoRows):
	default:
		return Result{}, err
	}

	merged, err := mergeResult(existing, in, s.now().UTC().Truncate(time.Second))
	if err != nil {
		return Result{}, err
	}
	aj, err := json.Marshal(merged.Answers)
	if err != nil {
		return Result{}, err
	}
	if existing == nil {
		_, err = tx.ExecContext(ctx, `INSERT INTO assessment_results
			(id,student_id,assessment_id,score,total_marks,status,answers_json,feedback,started_at,completed_at,attempted_at,created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
			merged.ID, IDOf(merged.Student), IDOf(merged.Assessment), merged.Score, merged.TotalMarks, string(merged.Status),
			string(aj), merged.Feedback, unixPtr(merged.StartedAt), unixPtr(merged.CompletedAt),
			merged.AttemptedAt.Unix(), merged.CreatedAt.Unix())
	} else if merged.Status != existing.Status {
		_, err = tx.ExecContext(ctx, `UPDATE assessment_results
			SET score=$1, total_marks=$2, status=$3, answers_json=$4, completed_at=$5 WHERE id=$6`,
			merged.Score, merged.TotalMarks, string(merged.Status), string(aj), unixPtr(merged.CompletedAt), merged.ID)
	}
	if err != nil {
		return Result{}, err
	}
	if err := tx.Commit(); err != nil {
		return Result{}, err
	}
	return s.GetResult(ctx, merged.ID)
}

func (s *SQLStore) GetResult(ctx context.Context, id string) (Result, error) {
	r, err := scanResult(s.db.QueryRowContext(ctx, `SELECT `+resultCols+resultFrom+` WHERE r.id=$1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Result{}, fmt.Errorf("result %q: %w", id, ErrNotFound)
		}
		return Result{}, err
	}
	return r, nil
}

func (s *SQLStore) ListResults(ctx context.Context, f ResultFilter) ([]Result, error) {
	where, args := []string{}, []any{}
	if f.StudentID != "" {
		args = append(args, f.StudentID)
		where = append(where, fmt.Sprintf("r.student_id=$%d", len(args)))
	}
	if f.AssessmentID != "" {
		args = append(args, f.AssessmentID)
		where = append(where, fmt.Sprintf("r.assessment_id=$%d", len(args)))
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+resultCols+resultFrom+whereClause(where)+` ORDER BY r.created_at`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Result{}
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLStore) GradeResult(ctx context.Context, id string, g ManualGrade) (Result, error) {
	r, err := s.GetResult(ctx, id)
	if err != nil {
		return Result{}, err
	}
	applyResultGrade(&r, g, s.now().UTC().Truncate(time.Second))
	var manual any
	if r.ManualScore != nil {
		manual = *r.ManualScore
	}
	if _, err := s.db.ExecContext(ctx, `UPDATE assessment_results SET manual_score=$1, feedback=$2, graded_at=$3 WHERE id=$4`,
		manual, r.Feedback, unixPtr(r.GradedAt), id); err != nil {
		return Result{}, err
	}
	return r, nil
}

// ---- submissions ----

const submissionCols = `s.id,s.assignment_id,s.student_id,COALESCE(u.name,''),s.content,s.file_url,s.grade,s.feedback,s.status,s.created_at,s.updated_at`

const submissionFrom = ` FROM submissions s LEFT JOIN users u ON u.id = s.student_id`

func scanSubmission(sc interface{ Scan(...any) error }) (Submission, error) {
	var (
		sub                           Submission
		assignmentID, studentID, name string
		status                        string
		grade                         sql.NullFloat64
		created, updated              int64
	)
	if err := sc.Scan(&sub.ID, &assignmentID, &studentID, &name, &sub.Content, &sub.FileURL, &grade, &sub.Feedback,
		&status, &created, &updated); err != nil {
		return Submission{}, err
	}
	sub.Assignment = RefTo(assignmentID)
	sub.Student = Ref{ID: studentID, Name: name}
	sub.Status = SubmissionStatus(status)
	if grade.Valid {
		v := grade.Float64
		sub.Grade = &v
	}
	sub.CreatedAt = time.Unix(created, 0).UTC()
	sub.UpdatedAt = time.Unix(updated, 0).UTC()
	return sub, nil
}

func (s *SQLStore) SaveSubmission(ctx context.Context, sub Submission) (Submission, error) {
	now := s.now().UTC().Truncate(time.Second)
	if sub.Status == "" {
		sub.Status = SubmissionPending
	}
	var id string
	err := s.db.QueryRowContext(ctx, `SELECT id FROM submissions WHERE assignment_id=$1 AND student_id=$2`,
		IDOf(sub.Assignment), IDOf(sub.Student)).Scan(&id)
	switch {
	case err == nil:
		_, err = s.db.ExecContext(ctx, `UPDATE submissions SET content=$1, file_url=$2, status=$3, updated_at=$4 WHERE id=$5`,
			sub.Content, sub.FileURL, string(sub.Status), now.Unix(), id)
	case errors.Is(err, sql.ErrNoRows):
		id = uuid.NewString()
		_, err = s.db.ExecContext(ctx, `INSERT INTO submissions
			(id,assignment_id,student_id,content,file_url,feedback,status,created_at,updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			id, IDOf(sub.Assignment), IDOf(sub.Student), sub.Content, sub.FileURL, sub.Feedback, string(sub.Status),
			now.Unix(), now.Unix())
	}
	if err != nil {
		return Submission{}, err
	}
	return s.GetSubmission(ctx, id)
}

func (s *SQLStore) GetSubmission(ctx context.Context, id string) (Submission, error) {
	sub, err := scanSubmission(s.db.QueryRowContext(ctx, `SELECT `+submissionCols+submissionFrom+` WHERE s.id=$1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Submission{}, fmt.Errorf("submission %q: %w", id, ErrNotFound)
		}
		return Submission{}, err
	}
	return sub, nil
}

func (s *SQLStore) ListSubmissions(ctx context.Context, f SubmissionFilter) ([]Submission, error) {
	where, args := []string{}, []any{}
	if f.StudentID != "" {
		args = append(args, f.StudentID)
		where = append(where, fmt.Sprintf("s.student_id=$%d", len(args)))
	}
	if f.AssignmentID != "" {
		args = append(args, f.AssignmentID)
		where = append(where, fmt.Sprintf("s.assignment_id=$%d", len(args)))
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+submissionCols+submissionFrom+whereClause(where)+` ORDER BY s.created_at`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Submission{}
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

func (s *SQLStore) GradeSubmission(ctx context.Context, id string, g ManualGrade) (Submission, error) {
	sub, err := s.GetSubmission(ctx, id)
	if err != nil {
		return Submission{}, err
	}
	applySubmissionGrade(&sub, g, s.now().UTC().Truncate(time.Second))
	var grade any
	if sub.Grade != nil {
		grade = *sub.Grade
	}
	if _, err := s.db.ExecContext(ctx, `UPDATE submissions SET grade=$1, feedback=$2, status=$3, updated_at=$4 WHERE id=$5`,
		grade, sub.Feedback, string(sub.Status), sub.UpdatedAt.Unix(), id); err != nil {
		return Submission{}, err
	}
	return sub, nil
}

// ---- helpers ----

func whereClause(conds []string) string {
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}

func limitClause(limit, offset int) string {
	if limit <= 0 {
		return ""
	}
	return fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)
}

func unixPtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Unix()
}

func timePtr(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(v.Int64, 0).UTC()
	return &t
}
