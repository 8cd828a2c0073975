package http

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/eduhub-assess/internal/assessment"
	auth "github.com/mind-engage/eduhub-assess/internal/auth/middleware"
	"github.com/mind-engage/eduhub-assess/internal/notify"
	"github.com/mind-engage/eduhub-assess/internal/rbac"
	syncx "github.com/mind-engage/eduhub-assess/internal/sync"
)

// ownerFilter returns the student id a listing of resource is restricted to:
// the caller unless their role reads every student's records.
func ownerFilter(r *http.Request, resource, requested string) string {
	if rbac.ScopeOf(r, resource) == rbac.ScopeAll {
		return requested
	}
	return auth.SubjectFromContext(r.Context())
}

// GET /api/assessment-results?studentId=&assessmentId=
func ListResultsHandler(store assessment.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		list, err := store.ListResults(r.Context(), assessment.ResultFilter{
			StudentID:    ownerFilter(r, "result", q.Get("studentId")),
			AssessmentID: q.Get("assessmentId"),
		})
		if err != nil {
			fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

type resultReq struct {
	Student    assessment.Ref            `json:"student"`
	Assessment assessment.Ref            `json:"assessment"`
	Score      int                       `json:"score" validate:"gte=0"`
	TotalMarks int                       `json:"totalMarks" validate:"gte=0"`
	Status     assessment.ResultStatus   `json:"status" validate:"omitempty,oneof=in-progress passed failed completed"`
	Answers    []assessment.AnswerRecord `json:"answers" validate:"dive"`
	StartedAt  *time.Time                `json:"startedAt"`
}

// POST /api/assessment-results
//
// An in-progress body records the start of an attempt. Any other status is a
// completed attempt; it is re-scored against the stored answer key when the
// assessment exists. A second completed result for the same pair is a 409.
func CreateResultHandler(store assessment.Store, ev EventRecorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req resultReq
		if err := decode(r, &req); err != nil {
			fail(w, err)
			return
		}
		res := assessment.Result{
			Student:    assessment.RefTo(ownerFilter(r, "result", assessment.IDOf(req.Student))),
			Assessment: assessment.RefTo(assessment.IDOf(req.Assessment)),
			Score:      req.Score,
			TotalMarks: req.TotalMarks,
			Status:     req.Status,
			Answers:    req.Answers,
			StartedAt:  req.StartedAt,
		}
		if assessment.IDOf(res.Student) == "" || assessment.IDOf(res.Assessment) == "" {
			fail(w, badRequest("student and assessment required"))
			return
		}
		if res.Status == "" {
			res.Status = assessment.StatusCompleted
		}
		if res.Status.Final() {
			if err := rescore(r, store, &res); err != nil {
				fail(w, err)
				return
			}
		}
		out, err := store.SaveResult(r.Context(), res)
		if err != nil {
			fail(w, err)
			return
		}
		if out.Status.Final() {
			record(r.Context(), ev, syncx.ResultRecorded, out.ID, out)
		}
		writeJSON(w, http.StatusCreated, out)
	}
}

func rescore(r *http.Request, store assessment.Store, res *assessment.Result) error {
	a, err := store.GetAssessment(r.Context(), assessment.IDOf(res.Assessment))
	if errors.Is(err, assessment.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	out := assessment.Score(a, assessment.ReconstructAnswers(a, res.Answers))
	if out.Score != res.Score && res.Score != 0 {
		log.Printf("api: result for %s/%s rescored %d -> %d",
			assessment.IDOf(res.Student), a.ID, res.Score, out.Score)
	}
	res.Score = out.Score
	res.TotalMarks = out.Total
	res.Status = assessment.ResultStatus(out.Status())
	res.Answers = assessment.BuildRecords(a, out)
	return nil
}

// PUT /api/assessment-results/{id}/grade
func GradeResultHandler(store assessment.Store, notes notify.Store, ev EventRecorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g, err := decodeGrade(r)
		if err != nil {
			fail(w, err)
			return
		}
		out, err := store.GradeResult(r.Context(), chi.URLParam(r, "id"), g)
		if err != nil {
			fail(w, err)
			return
		}
		record(r.Context(), ev, syncx.ResultGraded, out.ID, out)
		tell(r, notes, assessment.IDOf(out.Student), "Assessment Graded",
			fmt.Sprintf("Your result for %s has been reviewed", assessmentLabel(out.Assessment)))
		writeJSON(w, http.StatusOK, out)
	}
}

func decodeGrade(r *http.Request) (assessment.ManualGrade, error) {
	var g assessment.ManualGrade
	if err := decode(r, &g); err != nil {
		return g, err
	}
	if _, ok := g.Resolve(); !ok && g.Feedback == "" {
		return g, badRequest("grade, marks or feedback required")
	}
	g.GradedBy = auth.SubjectFromContext(r.Context())
	return g, nil
}

// tell sends a best-effort notification; failures are only logged.
func tell(r *http.Request, notes notify.Store, user, title, msg string) {
	if notes == nil || user == "" {
		return
	}
	_, err := notes.Create(r.Context(), notify.Notification{User: user, Title: title, Message: msg, Type: "grade"})
	if err != nil {
		log.Printf("api: notify %s: %v", user, err)
	}
}

func assessmentLabel(ref assessment.Ref) string {
	if ref.Name != "" {
		return ref.Name
	}
	return assessment.IDOf(ref)
}
