package review

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/eduhub-assess/internal/assessment"
	"github.com/mind-engage/eduhub-assess/internal/grading"
)

func seeded(t *testing.T) *assessment.MemoryStore {
	t.Helper()
	ctx := context.Background()
	s := assessment.NewInMemoryStore()
	s.SetDisplayName("64f1a2b3c4d5e6f7a8b9c0d1", "Alex Johnson")

	_, err := s.PutAssessment(ctx, assessment.Assessment{
		ID: "asm-1", Title: "Web basics", Kind: assessment.KindQuiz,
		Questions: []assessment.Question{
			{ID: "q1", Text: "HTML stands for?", Options: []string{"HyperText", "HighText"}, CorrectAnswer: 0},
			{ID: "q2", Text: "CSS is for?", Options: []string{"Style", "Logic"}, CorrectAnswer: 0},
		},
	})
	require.NoError(t, err)
	_, err = s.SaveResult(ctx, assessment.Result{
		Student:    assessment.RefTo("64f1a2b3c4d5e6f7a8b9c0d1"),
		Assessment: assessment.RefTo("asm-1"),
		Score:      1, TotalMarks: 2, Status: assessment.StatusPassed,
		Answers: []assessment.AnswerRecord{
			{QuestionID: "q1", SelectedOption: 0, IsCorrect: true},
			{QuestionID: "abc", SelectedOption: 1},
		},
	})
	require.NoError(t, err)
	_, err = s.SaveResult(ctx, assessment.Result{
		Student:    assessment.RefTo("stu-2"),
		Assessment: assessment.RefTo("asm-1"),
		Status:     assessment.StatusInProgress,
	})
	require.NoError(t, err)

	_, err = s.PutAssignment(ctx, assessment.Assignment{ID: "as-1", Title: "Essay", DueDate: time.Now()})
	require.NoError(t, err)
	_, err = s.SaveSubmission(ctx, assessment.Submission{
		Assignment: assessment.RefTo("as-1"), Student: assessment.RefTo("stu-3"), FileURL: "/api/files/essay.pdf",
	})
	require.NoError(t, err)
	return s
}

func TestSubmissionsFromResults(t *testing.T) {
	r := New(seeded(t), WithLocation(time.UTC))
	target, subs, err := r.Submissions(context.Background(), "asm-1")
	require.NoError(t, err)
	assert.True(t, target.Results)
	assert.Equal(t, "Web basics", target.Title)

	require.Len(t, subs, 1, "in-progress markers are not listed")
	v := subs[0]
	assert.Equal(t, "Alex Johnson", v.StudentName)
	assert.Equal(t, "B9C0D1", v.ShortID)
	assert.Equal(t, StatusGraded, v.Status)
	require.NotNil(t, v.Score)
	assert.Equal(t, 1.0, *v.Score)
	assert.Equal(t, 2, v.Total)
	assert.NotEmpty(t, v.Submitted)

	require.Len(t, v.Answers, 2)
	assert.Equal(t, "HTML stands for?", v.Answers[0].Question)
	assert.Equal(t, "HyperText", v.Answers[0].Choice)
	assert.True(t, v.Answers[0].Correct)
	assert.Equal(t, -1, v.Answers[1].Index)
	assert.Empty(t, v.Answers[1].Question)
}

func TestSubmissionsFallBackToAssignment(t *testing.T) {
	r := New(seeded(t))
	target, subs, err := r.Submissions(context.Background(), "as-1")
	require.NoError(t, err)
	assert.False(t, target.Results)
	assert.Equal(t, assessment.KindAssignment, target.Kind)
	require.Len(t, subs, 1)
	assert.Equal(t, StatusPending, subs[0].Status)
	assert.Equal(t, "Unknown Student", subs[0].StudentName)
	assert.Equal(t, "STU-3", subs[0].ShortID)
	assert.Nil(t, subs[0].Score)
}

func TestResolveUnknown(t *testing.T) {
	_, err := New(seeded(t)).Resolve(context.Background(), "nope")
	assert.ErrorIs(t, err, assessment.ErrNotFound)
}

func TestGradeWritesBack(t *testing.T) {
	ctx := context.Background()
	s := seeded(t)
	r := New(s)

	target, subs, err := r.Submissions(ctx, "as-1")
	require.NoError(t, err)
	g := 9.0
	v, err := r.Grade(ctx, target, subs[0].ID, assessment.ManualGrade{Grade: &g, Feedback: "well argued"})
	require.NoError(t, err)
	assert.Equal(t, StatusGraded, v.Status)
	assert.Equal(t, 9.0, *v.Score)

	quiz, results, err := r.Submissions(ctx, "asm-1")
	require.NoError(t, err)
	v, err = r.Grade(ctx, quiz, results[0].ID, assessment.ManualGrade{
		Marks: []grading.Mark{{Key: "q1", Awarded: 1, MaxPoints: 1}, {Key: "q2", Awarded: 5, MaxPoints: 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, 2.0, *v.Score)

	_, err = r.Grade(ctx, quiz, results[0].ID, assessment.ManualGrade{})
	assert.ErrorIs(t, err, ErrNotGradable)
}

func TestStatusAndShortID(t *testing.T) {
	for _, s := range []string{"graded", "passed", "failed", "completed"} {
		assert.Equal(t, StatusGraded, statusOf(s), s)
	}
	for _, s := range []string{"pending", "in-progress", ""} {
		assert.Equal(t, StatusPending, statusOf(s), s)
	}
	assert.Equal(t, "ABC", ShortID("abc"))
	assert.Equal(t, "C0FFEE", ShortID("deadbeefc0ffee"))
}
