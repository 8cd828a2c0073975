package http

import (
	"context"
	"log"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/eduhub-assess/internal/assessment"
	"github.com/mind-engage/eduhub-assess/internal/notify"
	"github.com/mind-engage/eduhub-assess/internal/rbac"
	"github.com/mind-engage/eduhub-assess/internal/storage"
	"github.com/mind-engage/eduhub-assess/internal/users"
)

// EventRecorder appends to the event log.
type EventRecorder interface {
	Record(ctx context.Context, typ, key string, data any) error
}

// Accounts is the users surface the API exposes.
type Accounts interface {
	Get(ctx context.Context, sub string) (users.User, error)
	ChangePassword(ctx context.Context, id, oldPassword, newPassword string) error
}

// Directory lists and imports accounts.
type Directory interface {
	List(ctx context.Context, role string) ([]users.User, error)
	Upsert(ctx context.Context, accounts []users.Account) (inserted, updated int, err error)
}

type Deps struct {
	Store    assessment.Store
	Notes    notify.Store
	Blobs    storage.BlobStore
	Events   EventRecorder // optional
	Accounts Accounts      // optional
	Users    Directory     // optional
}

// Mount registers the /api routes on a router that already authenticates.
func Mount(r chi.Router, d Deps) {
	r.Route("/assessments", func(r chi.Router) {
		r.With(rbac.Require("assessment:view")).Get("/", ListAssessmentsHandler(d.Store))
		r.With(rbac.Require("assessment:create")).Post("/", CreateAssessmentHandler(d.Store))
		r.With(rbac.Require("assessment:view")).Get("/{id}", GetAssessmentHandler(d.Store))
		r.With(rbac.Require("assessment:update")).Put("/{id}", UpdateAssessmentHandler(d.Store))
		r.With(rbac.Require("assessment:delete")).Delete("/{id}", DeleteAssessmentHandler(d.Store))
	})
	r.Route("/assignments", func(r chi.Router) {
		r.With(rbac.Require("assignment:view")).Get("/", ListAssignmentsHandler(d.Store))
		r.With(rbac.Require("assignment:create")).Post("/", CreateAssignmentHandler(d.Store))
		r.With(rbac.Require("assignment:view")).Get("/{id}", GetAssignmentHandler(d.Store))
	})
	r.Route("/assessment-results", func(r chi.Router) {
		r.With(rbac.RequireAny("result:view-own", "result:view-all")).Get("/", ListResultsHandler(d.Store))
		r.With(rbac.Require("result:create")).Post("/", CreateResultHandler(d.Store, d.Events))
		r.With(rbac.Require("result:grade")).Put("/{id}/grade", GradeResultHandler(d.Store, d.Notes, d.Events))
	})
	r.Route("/submissions", func(r chi.Router) {
		r.With(rbac.RequireAny("submission:view-own", "submission:view-all")).Get("/", ListSubmissionsHandler(d.Store))
		r.With(rbac.Require("submission:create")).Post("/", CreateSubmissionHandler(d.Store, d.Events))
		r.With(rbac.Require("submission:grade")).Put("/{id}/grade", GradeSubmissionHandler(d.Store, d.Notes, d.Events))
	})
	r.Route("/notifications", func(r chi.Router) {
		r.Use(rbac.RequireAny("notification:own", "notification:manage"))
		r.Get("/", ListNotificationsHandler(d.Notes))
		r.Post("/", CreateNotificationHandler(d.Notes))
		r.Put("/", MarkNotificationsReadHandler(d.Notes))
	})
	if d.Blobs != nil {
		r.With(rbac.Require("file:upload")).Post("/upload", UploadHandler(d.Blobs))
		r.With(rbac.Require("file:view")).Get("/files/*", FileHandler(d.Blobs))
	}
	if d.Accounts != nil {
		r.Get("/users/me", MeHandler(d.Accounts))
		r.Put("/users/me/password", ChangePasswordHandler(d.Accounts))
	}
	if d.Users != nil {
		r.With(rbac.Require("users:list")).Get("/users", ListUsersHandler(d.Users))
		r.With(rbac.Require("users:bulk_upsert")).Post("/users/bulk", BulkUpsertUsersHandler(d.Users))
	}
}

func record(ctx context.Context, ev EventRecorder, typ, key string, data any) {
	if ev == nil {
		return
	}
	if err := ev.Record(ctx, typ, key, data); err != nil {
		log.Printf("api: event %s %s: %v", typ, key, err)
	}
}
