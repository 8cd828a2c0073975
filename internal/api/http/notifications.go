package http

import (
	"net/http"

	auth "github.com/mind-engage/eduhub-assess/internal/auth/middleware"
	"github.com/mind-engage/eduhub-assess/internal/notify"
	"github.com/mind-engage/eduhub-assess/internal/rbac"
)

// notifyTarget is the user a notification call acts on. Without
// notification:manage callers only see and address their own.
func notifyTarget(r *http.Request, requested string) string {
	if requested != "" && rbac.Can(r, "notification:manage") {
		return requested
	}
	return auth.SubjectFromContext(r.Context())
}

// GET /api/notifications?userId=&limit=
func ListNotificationsHandler(notes notify.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := notes.List(r.Context(), notifyTarget(r, r.URL.Query().Get("userId")), queryInt(r, "limit"))
		if err != nil {
			fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// POST /api/notifications
func CreateNotificationHandler(notes notify.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			User    string `json:"user"`
			Title   string `json:"title" validate:"required"`
			Message string `json:"message" validate:"required"`
			Type    string `json:"type" validate:"omitempty,oneof=course_update assignment system grade"`
			Link    string `json:"link"`
		}
		if err := decode(r, &req); err != nil {
			fail(w, err)
			return
		}
		out, err := notes.Create(r.Context(), notify.Notification{
			User:    notifyTarget(r, req.User),
			Title:   req.Title,
			Message: req.Message,
			Type:    req.Type,
			Link:    req.Link,
		})
		if err != nil {
			fail(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, out)
	}
}

// PUT /api/notifications {"ids": [...]}
func MarkNotificationsReadHandler(notes notify.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			IDs []string `json:"ids" validate:"required,min=1,dive,required"`
		}
		if err := decode(r, &req); err != nil {
			fail(w, err)
			return
		}
		if err := notes.MarkRead(r.Context(), req.IDs); err != nil {
			fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"updated": len(req.IDs)})
	}
}
