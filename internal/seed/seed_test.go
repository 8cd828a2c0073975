package seed

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/eduhub-assess/internal/assessment"
	"github.com/mind-engage/eduhub-assess/internal/users"
)

const sample = `
users:
  - id: stu-1
    username: alex
    name: Alex Johnson
    role: student
    password: student
assessments:
  - id: asm-web
    title: Web basics
    course: course-1
    type: quiz
    timeLimit: 10
    questions:
      - id: q-html
        text: HTML stands for?
        options: [HyperText Markup Language, High Text Machine Language]
        correctAnswer: 0
      - text: CSS is for?
        options: [Styling, Databases]
        correctAnswer: 0
assignments:
  - id: as-essay
    title: Essay
    course: course-1
    dueDate: 2026-03-10T00:00:00Z
`

type recordUsers struct{ got []users.Account }

func (r *recordUsers) Upsert(_ context.Context, a []users.Account) (int, int, error) {
	r.got = append(r.got, a...)
	return len(a), 0, nil
}

func TestLoadAndApply(t *testing.T) {
	p := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(p, []byte(sample), 0o600))

	f, err := Load(p)
	require.NoError(t, err)
	require.Len(t, f.Users, 1)
	assert.Equal(t, "Alex Johnson", f.Users[0].Name)
	assert.Equal(t, "student", f.Users[0].Password)

	us := &recordUsers{}
	store := assessment.NewInMemoryStore()
	require.NoError(t, Apply(context.Background(), f, us, store))
	assert.Len(t, us.got, 1)

	a, err := store.GetAssessment(context.Background(), "asm-web")
	require.NoError(t, err)
	assert.Equal(t, assessment.KindQuiz, a.Kind)
	assert.Equal(t, 10, a.Minutes())
	assert.Equal(t, "course-1", assessment.IDOf(a.Course))
	require.Len(t, a.Questions, 2)
	assert.Equal(t, "q-html", a.Questions[0].ID)
	assert.NotEmpty(t, a.Questions[1].ID)

	as, err := store.GetAssignment(context.Background(), "as-essay")
	require.NoError(t, err)
	assert.Equal(t, 2026, as.DueDate.Year())
}

func TestLoadRejectsBadYAML(t *testing.T) {
	p := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(p, []byte("users: [\n"), 0o600))
	_, err := Load(p)
	assert.Error(t, err)
}
