package http

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/eduhub-assess/internal/assessment"
	"github.com/mind-engage/eduhub-assess/internal/notify"
	syncx "github.com/mind-engage/eduhub-assess/internal/sync"
)

// GET /api/submissions?assignmentId=&studentId=
func ListSubmissionsHandler(store assessment.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		list, err := store.ListSubmissions(r.Context(), assessment.SubmissionFilter{
			StudentID:    ownerFilter(r, "submission", q.Get("studentId")),
			AssignmentID: q.Get("assignmentId"),
		})
		if err != nil {
			fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

type submissionReq struct {
	Assignment assessment.Ref `json:"assignment"`
	Student    assessment.Ref `json:"student"`
	Content    string         `json:"content" validate:"required_without=FileURL"`
	FileURL    string         `json:"fileUrl" validate:"required_without=Content"`
}

// POST /api/submissions
func CreateSubmissionHandler(store assessment.Store, ev EventRecorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req submissionReq
		if err := decode(r, &req); err != nil {
			fail(w, err)
			return
		}
		asg := assessment.IDOf(req.Assignment)
		if asg == "" {
			fail(w, badRequest("assignment required"))
			return
		}
		if _, err := store.GetAssignment(r.Context(), asg); err != nil {
			fail(w, err)
			return
		}
		out, err := store.SaveSubmission(r.Context(), assessment.Submission{
			Assignment: assessment.RefTo(asg),
			Student:    assessment.RefTo(ownerFilter(r, "submission", assessment.IDOf(req.Student))),
			Content:    req.Content,
			FileURL:    req.FileURL,
		})
		if err != nil {
			fail(w, err)
			return
		}
		record(r.Context(), ev, syncx.SubmissionSaved, out.ID, out)
		writeJSON(w, http.StatusCreated, out)
	}
}

// PUT /api/submissions/{id}/grade
func GradeSubmissionHandler(store assessment.Store, notes notify.Store, ev EventRecorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g, err := decodeGrade(r)
		if err != nil {
			fail(w, err)
			return
		}
		out, err := store.GradeSubmission(r.Context(), chi.URLParam(r, "id"), g)
		if err != nil {
			fail(w, err)
			return
		}
		record(r.Context(), ev, syncx.SubmissionGraded, out.ID, out)
		tell(r, notes, assessment.IDOf(out.Student), "Assignment Graded",
			fmt.Sprintf("Your submission for %s has been graded", assessmentLabel(out.Assignment)))
		writeJSON(w, http.StatusOK, out)
	}
}
