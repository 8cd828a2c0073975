package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	api "github.com/mind-engage/eduhub-assess/internal/api/http"
	"github.com/mind-engage/eduhub-assess/internal/assessment"
	auth "github.com/mind-engage/eduhub-assess/internal/auth/middleware"
	"github.com/mind-engage/eduhub-assess/internal/client"
	"github.com/mind-engage/eduhub-assess/internal/notify"
	"github.com/mind-engage/eduhub-assess/internal/rbac"
	"github.com/mind-engage/eduhub-assess/internal/users"
)

type accounts map[string]users.User

func (a accounts) Get(_ context.Context, sub string) (users.User, error) {
	if u, ok := a[sub]; ok {
		return u, nil
	}
	return users.User{}, users.ErrNotFound
}

func (a accounts) ChangePassword(context.Context, string, string, string) error { return nil }

// tokens maps bearer tokens onto users.
var tokens = accounts{
	"stu": {ID: "stu-1", Username: "amina", Name: "Amina", Role: rbac.RoleStudent},
	"tea": {ID: "tea-1", Username: "tom", Name: "Tom", Role: rbac.RoleTeacher},
}

func fakeAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := tokens[strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")]
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		ctx := auth.WithSubject(r.Context(), u.ID)
		ctx = rbac.WithRole(ctx, u.Role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func setup(t *testing.T) (*assessment.MemoryStore, string) {
	t.Helper()
	store := assessment.NewInMemoryStore()
	store.SetDisplayName("stu-1", "Amina")
	_, err := store.PutAssessment(context.Background(), assessment.Assessment{
		ID: "quiz-1", Title: "Basics", Kind: assessment.KindQuiz,
		Questions: []assessment.Question{
			{ID: "q1", Text: "2+2?", Options: []string{"4", "5"}, CorrectAnswer: 0},
			{ID: "q2", Text: "Capital of Kenya?", Options: []string{"Mombasa", "Nairobi"}, CorrectAnswer: 1},
		},
	})
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Route("/api", func(pr chi.Router) {
		pr.Use(fakeAuth)
		api.Mount(pr, api.Deps{Store: store, Notes: notify.NewInMemoryStore(), Accounts: tokens})
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return store, srv.URL
}

func newCLI(base, token, input string) (*commandLine, *bytes.Buffer) {
	out := &bytes.Buffer{}
	return &commandLine{
		api: client.New(client.Config{BaseURL: base, Token: token}),
		in:  strings.NewReader(input),
		out: out,
	}, out
}

func TestRunHelp(t *testing.T) {
	cli, out := newCLI("http://unused", "", "")
	assert.ErrorIs(t, cli.run([]string{"quizctl"}), errHelp)
	assert.Contains(t, out.String(), "Usage:")
	assert.ErrorIs(t, cli.run([]string{"quizctl", "lol"}), errHelp)
	assert.ErrorIs(t, cli.run([]string{"quizctl", "take"}), errHelp)
	assert.ErrorIs(t, cli.run([]string{"quizctl", "grade", "-id", "x"}), errHelp)
}

func TestLoginPrintsToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/login", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok-123"}`))
	}))
	defer srv.Close()

	prev := readPasswordFunc
	readPasswordFunc = func(int) ([]byte, error) { return []byte("secret"), nil }
	defer func() { readPasswordFunc = prev }()

	cli, out := newCLI(srv.URL, "", "")
	require.NoError(t, cli.run([]string{"quizctl", "login", "-username", "amina"}))
	assert.Contains(t, out.String(), "export QUIZCTL_TOKEN=tok-123")

	readPasswordFunc = func(int) ([]byte, error) { return nil, nil }
	assert.ErrorIs(t, cli.run([]string{"quizctl", "login", "-username", "amina"}), errHelp)
}

func TestTakeScoresAndPersists(t *testing.T) {
	store, base := setup(t)
	cli, out := newCLI(base, "stu", "\n3\n1\n2\n")

	require.NoError(t, cli.run([]string{"quizctl", "take", "-id", "quiz-1"}))
	assert.Contains(t, out.String(), "Question 1 of 2")
	assert.Contains(t, out.String(), "Choose 1-2.")
	assert.Contains(t, out.String(), "Score: 2/2 (passed)")

	results, err := store.ListResults(context.Background(), assessment.ResultFilter{StudentID: "stu-1"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, assessment.StatusPassed, results[0].Status)
	assert.Equal(t, 2, results[0].Score)

	// a second run restores the completed attempt
	cli, out = newCLI(base, "stu", "")
	require.NoError(t, cli.run([]string{"quizctl", "take", "-id", "quiz-1"}))
	assert.Contains(t, out.String(), "already completed")
	assert.Contains(t, out.String(), "Score: 2/2")
}

func TestTakeSubmitEarly(t *testing.T) {
	store, base := setup(t)
	cli, out := newCLI(base, "stu", "\n2\ns\n")

	require.NoError(t, cli.run([]string{"quizctl", "take", "-id", "quiz-1"}))
	assert.Contains(t, out.String(), "Score: 0/2 (failed)")

	results, err := store.ListResults(context.Background(), assessment.ResultFilter{StudentID: "stu-1"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, assessment.StatusFailed, results[0].Status)
}

func TestReviewAndGrade(t *testing.T) {
	store, base := setup(t)
	cli, _ := newCLI(base, "stu", "\n1\n1\n")
	require.NoError(t, cli.run([]string{"quizctl", "take", "-id", "quiz-1"}))

	results, err := store.ListResults(context.Background(), assessment.ResultFilter{AssessmentID: "quiz-1"})
	require.NoError(t, err)
	require.Len(t, results, 1)

	cli, out := newCLI(base, "tea", "")
	require.NoError(t, cli.run([]string{"quizctl", "review", "-id", "quiz-1", "-answers"}))
	assert.Contains(t, out.String(), "Basics (quiz): 1 submissions")
	assert.Contains(t, out.String(), "Amina")
	assert.Contains(t, out.String(), "1/2")
	assert.Contains(t, out.String(), "[ok] 2+2?: 4")

	cli, out = newCLI(base, "tea", "")
	require.NoError(t, cli.run([]string{"quizctl", "grade", "-id", "quiz-1", "-record", "stu-1", "-grade", "2", "-feedback", "ok"}))
	assert.Contains(t, out.String(), "graded 2/2")

	got, err := store.GetResult(context.Background(), results[0].ID)
	require.NoError(t, err)
	require.NotNil(t, got.ManualScore)
	assert.Equal(t, 2.0, *got.ManualScore)

	assert.Error(t, cli.run([]string{"quizctl", "grade", "-id", "quiz-1", "-record", "nope", "-grade", "1"}))
}
