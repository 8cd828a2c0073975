// Package seed loads demo users, assessments and assignments from YAML.
package seed

import (
	"context"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mind-engage/eduhub-assess/internal/assessment"
	"github.com/mind-engage/eduhub-assess/internal/users"
)

type File struct {
	Users       []users.Account `yaml:"users"`
	Assessments []Assessment    `yaml:"assessments"`
	Assignments []Assignment    `yaml:"assignments"`
}

type Question struct {
	ID            string   `yaml:"id"`
	Text          string   `yaml:"text"`
	Options       []string `yaml:"options"`
	CorrectAnswer int      `yaml:"correctAnswer"`
	Marks         float64  `yaml:"marks"`
	Type          string   `yaml:"type"`
}

type Assessment struct {
	ID          string     `yaml:"id"`
	Title       string     `yaml:"title"`
	Description string     `yaml:"description"`
	Course      string     `yaml:"course"`
	Kind        string     `yaml:"type"`
	TimeLimit   int        `yaml:"timeLimit"`
	Teacher     string     `yaml:"teacher"`
	Questions   []Question `yaml:"questions"`
}

type Assignment struct {
	ID          string    `yaml:"id"`
	Title       string    `yaml:"title"`
	Description string    `yaml:"description"`
	Course      string    `yaml:"course"`
	Teacher     string    `yaml:"teacher"`
	DueDate     time.Time `yaml:"dueDate"`
}

func Load(path string) (File, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return File{}, err
	}
	var f File
	if err := yaml.Unmarshal(b, &f); err != nil {
		return File{}, fmt.Errorf("seed %s: %w", path, err)
	}
	return f, nil
}

// UserUpserter is the part of users.Repo seeding needs.
type UserUpserter interface {
	Upsert(ctx context.Context, accounts []users.Account) (int, int, error)
}

// Apply writes f. Existing records with the same ids are replaced.
func Apply(ctx context.Context, f File, us UserUpserter, store assessment.Store) error {
	if len(f.Users) > 0 {
		if _, _, err := us.Upsert(ctx, f.Users); err != nil {
			return fmt.Errorf("seed users: %w", err)
		}
	}
	for _, a := range f.Assessments {
		if _, err := store.PutAssessment(ctx, a.model()); err != nil {
			return fmt.Errorf("seed assessment %s: %w", a.ID, err)
		}
	}
	for _, a := range f.Assignments {
		_, err := store.PutAssignment(ctx, assessment.Assignment{
			ID: a.ID, Title: a.Title, Description: a.Description,
			Course: assessment.RefTo(a.Course), Teacher: a.Teacher, DueDate: a.DueDate,
		})
		if err != nil {
			return fmt.Errorf("seed assignment %s: %w", a.ID, err)
		}
	}
	return nil
}

func (a Assessment) model() assessment.Assessment {
	qs := make([]assessment.Question, len(a.Questions))
	for i, q := range a.Questions {
		qs[i] = assessment.Question{
			ID: q.ID, Text: q.Text, Options: q.Options,
			CorrectAnswer: q.CorrectAnswer, Marks: q.Marks, Type: q.Type,
		}
	}
	return assessment.Assessment{
		ID: a.ID, Title: a.Title, Description: a.Description,
		Course: assessment.RefTo(a.Course), Kind: assessment.Kind(a.Kind),
		TimeLimit: a.TimeLimit, Duration: a.TimeLimit, Teacher: a.Teacher,
		Status: "published", Questions: qs,
	}
}
