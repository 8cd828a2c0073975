package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/eduhub-assess/internal/assessment"
	auth "github.com/mind-engage/eduhub-assess/internal/auth/middleware"
	"github.com/mind-engage/eduhub-assess/internal/rbac"
)

// GET /api/assessments?course=&kind=&limit=&offset=
func ListAssessmentsHandler(store assessment.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		kind := q.Get("kind")
		if kind == "" {
			kind = q.Get("type")
		}
		list, err := store.ListAssessments(r.Context(), assessment.ListOpts{
			CourseID: q.Get("course"),
			Kind:     assessment.Kind(kind),
			Limit:    queryInt(r, "limit"),
			Offset:   queryInt(r, "offset"),
		})
		if err != nil {
			fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func GetAssessmentHandler(store assessment.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := store.GetAssessment(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}

// POST /api/assessments
func CreateAssessmentHandler(store assessment.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var a assessment.Assessment
		if err := decode(r, &a); err != nil {
			fail(w, err)
			return
		}
		if err := checkQuestions(a); err != nil {
			fail(w, err)
			return
		}
		a.Teacher = auth.SubjectFromContext(r.Context())
		a.CreatedAt, a.UpdatedAt = time.Time{}, time.Time{}
		normalize(&a)
		out, err := store.PutAssessment(r.Context(), a)
		if err != nil {
			fail(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, out)
	}
}

// PUT /api/assessments/{id}
func UpdateAssessmentHandler(store assessment.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		prev, err := store.GetAssessment(r.Context(), id)
		if err != nil {
			fail(w, err)
			return
		}
		if !ownsAssessment(r, prev) {
			fail(w, errForbidden)
			return
		}
		var a assessment.Assessment
		if err := decode(r, &a); err != nil {
			fail(w, err)
			return
		}
		if err := checkQuestions(a); err != nil {
			fail(w, err)
			return
		}
		a.ID = id
		a.Teacher = prev.Teacher
		normalize(&a)
		assessment.AssignQuestionIDs(&a, prev.Questions)
		if !assessment.SameAnswerKey(prev.Questions, a.Questions) {
			started, err := store.ListResults(r.Context(), assessment.ResultFilter{AssessmentID: id})
			if err != nil {
				fail(w, err)
				return
			}
			if len(started) > 0 {
				fail(w, fmt.Errorf("%s: %d attempts: %w", id, len(started), assessment.ErrLocked))
				return
			}
		}
		out, err := store.PutAssessment(r.Context(), a)
		if err != nil {
			fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func DeleteAssessmentHandler(store assessment.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		prev, err := store.GetAssessment(r.Context(), id)
		if err != nil {
			fail(w, err)
			return
		}
		if !ownsAssessment(r, prev) {
			fail(w, errForbidden)
			return
		}
		if err := store.DeleteAssessment(r.Context(), id); err != nil {
			fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"id": id})
	}
}

// ownsAssessment lets teachers change only their own assessments.
func ownsAssessment(r *http.Request, a assessment.Assessment) bool {
	if rbac.RoleFromContext(r.Context()) != rbac.RoleTeacher || a.Teacher == "" {
		return true
	}
	return a.Teacher == auth.SubjectFromContext(r.Context())
}

// normalize keeps timeLimit and the legacy duration field in sync.
func normalize(a *assessment.Assessment) {
	switch {
	case a.TimeLimit > 0:
		a.Duration = a.TimeLimit
	case a.Duration > 0:
		a.TimeLimit = a.Duration
	}
	if a.Kind == "" {
		a.Kind = assessment.KindQuiz
	}
	if a.Status == "" {
		a.Status = "published"
	}
}

func checkQuestions(a assessment.Assessment) error {
	for i, q := range a.Questions {
		if q.Type != "" && q.Type != "mcq" {
			continue
		}
		if len(q.Options) < 2 {
			return badRequest("question %d: at least two options required", i+1)
		}
		if q.CorrectAnswer < 0 || q.CorrectAnswer >= len(q.Options) {
			return badRequest("question %d: correctAnswer out of range", i+1)
		}
	}
	return nil
}

// GET /api/assignments?course=
func ListAssignmentsHandler(store assessment.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := store.ListAssignments(r.Context(), assessment.ListOpts{
			CourseID: r.URL.Query().Get("course"),
			Limit:    queryInt(r, "limit"),
			Offset:   queryInt(r, "offset"),
		})
		if err != nil {
			fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func GetAssignmentHandler(store assessment.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := store.GetAssignment(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}

func CreateAssignmentHandler(store assessment.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Title       string         `json:"title" validate:"required"`
			Description string         `json:"description"`
			Course      assessment.Ref `json:"course"`
			DueDate     time.Time      `json:"dueDate" validate:"required"`
		}
		if err := decode(r, &req); err != nil {
			fail(w, err)
			return
		}
		out, err := store.PutAssignment(r.Context(), assessment.Assignment{
			Title:       req.Title,
			Description: req.Description,
			Course:      req.Course,
			Teacher:     auth.SubjectFromContext(r.Context()),
			DueDate:     req.DueDate,
		})
		if err != nil {
			fail(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, out)
	}
}
