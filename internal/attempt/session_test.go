package attempt

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/eduhub-assess/internal/assessment"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func quiz() assessment.Assessment {
	return assessment.Assessment{
		ID:        "asm-1",
		Title:     "Web basics",
		TimeLimit: 10,
		Questions: []assessment.Question{
			{ID: "q1", Text: "HTML stands for?", Options: []string{"a", "b", "c"}, CorrectAnswer: 0},
			{ID: "q2", Text: "CSS is for?", Options: []string{"a", "b", "c"}, CorrectAnswer: 1},
			{ID: "q3", Text: "JS runs in?", Options: []string{"a", "b", "c"}, CorrectAnswer: 2},
		},
	}
}

func apply(t *testing.T, s Session, evs ...Event) Session {
	t.Helper()
	for _, ev := range evs {
		var err error
		s, err = s.Apply(ev)
		require.NoError(t, err, "%T", ev)
	}
	return s
}

func TestLoadedWithoutPriorGoesToIntro(t *testing.T) {
	s := apply(t, NewSession(), Loaded{Assessment: quiz()})
	assert.Equal(t, Intro, s.Phase)
	assert.Equal(t, []int{-1, -1, -1}, s.Answers)
	assert.Equal(t, 10*time.Minute, s.Remaining)
	assert.True(t, s.Deadline.IsZero())
}

func TestAnsweringAllQuestionsSubmitsWithFinalAnswer(t *testing.T) {
	s := apply(t, NewSession(),
		Loaded{Assessment: quiz()},
		Start{At: t0},
		Select{Option: 0}, Next{},
		Select{Option: 1}, Next{},
		Select{Option: 1}, Next{},
	)
	require.Equal(t, Completed, s.Phase)
	assert.Equal(t, CauseManual, s.Cause)
	assert.Equal(t, []int{0, 1, 1}, s.Answers)
	require.NotNil(t, s.Outcome)
	assert.Equal(t, 2, s.Outcome.Score)
	assert.Equal(t, 3, s.Outcome.Total)
	assert.Equal(t, "passed", s.Outcome.Status())
}

func TestNextRequiresSelection(t *testing.T) {
	s := apply(t, NewSession(), Loaded{Assessment: quiz()}, Start{At: t0})
	got, err := s.Apply(Next{})
	assert.ErrorIs(t, err, ErrNoSelection)
	assert.Equal(t, 0, got.Index)

	_, err = s.Apply(Select{Option: 3})
	assert.ErrorIs(t, err, ErrInvalidOption)
}

func TestNextClearsSelectionAndAdvances(t *testing.T) {
	s := apply(t, NewSession(), Loaded{Assessment: quiz()}, Start{At: t0}, Select{Option: 2}, Next{})
	assert.Equal(t, 1, s.Index)
	assert.Equal(t, -1, s.Selected)
	assert.Equal(t, []int{2, -1, -1}, s.Answers)
}

func TestApplyDoesNotMutateReceiver(t *testing.T) {
	s := apply(t, NewSession(), Loaded{Assessment: quiz()}, Start{At: t0}, Select{Option: 2})
	_ = apply(t, s, Next{})
	assert.Equal(t, []int{-1, -1, -1}, s.Answers)
}

func TestTimeoutSubmitsRecordedAnswers(t *testing.T) {
	s := apply(t, NewSession(), Loaded{Assessment: quiz()}, Start{At: t0}, Select{Option: 0}, Next{}, Select{Option: 1})

	s = apply(t, s, Tick{Now: t0.Add(time.Minute)})
	assert.Equal(t, Active, s.Phase)
	assert.Equal(t, 9*time.Minute, s.Remaining)

	s = apply(t, s, Tick{Now: t0.Add(10 * time.Minute)})
	require.Equal(t, Completed, s.Phase)
	assert.Equal(t, CauseTimeout, s.Cause)
	assert.Equal(t, time.Duration(0), s.Remaining)
	assert.Equal(t, []int{0, -1, -1}, s.Answers)
	assert.Equal(t, 1, s.Outcome.Score)
	assert.Equal(t, "failed", s.Outcome.Status())
}

func TestAllSkippedFails(t *testing.T) {
	s := apply(t, NewSession(), Loaded{Assessment: quiz()}, Start{At: t0}, Submit{})
	assert.Len(t, s.Answers, 3)
	assert.Equal(t, 0, s.Outcome.Score)
	assert.Equal(t, "failed", s.Outcome.Status())
}

func TestCompletedIsTerminal(t *testing.T) {
	s := apply(t, NewSession(), Loaded{Assessment: quiz()}, Start{At: t0}, Submit{})
	for _, ev := range []Event{Start{At: t0}, Select{Option: 0}, Next{}, Tick{Now: t0}, Submit{}} {
		got, err := s.Apply(ev)
		assert.ErrorIs(t, err, ErrClosed)
		assert.Equal(t, Completed, got.Phase)
	}
}

func TestInvalidTransitions(t *testing.T) {
	_, err := NewSession().Apply(Start{At: t0})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	intro := apply(t, NewSession(), Loaded{Assessment: quiz()})
	_, err = intro.Apply(Next{})
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = intro.Apply(Loaded{Assessment: quiz()})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestReentryRestoresCompletedResult(t *testing.T) {
	done := apply(t, NewSession(), Loaded{Assessment: quiz()}, Start{At: t0},
		Select{Option: 0}, Next{}, Select{Option: 1}, Next{}, Select{Option: 1}, Next{})
	res, ok := done.Result("stu-1")
	require.True(t, ok)
	res.ID = "r1"

	again := apply(t, NewSession(), Loaded{Assessment: quiz(), Prior: &res})
	require.Equal(t, Completed, again.Phase)
	assert.Equal(t, CauseRestored, again.Cause)
	assert.Equal(t, "r1", again.PriorID)
	assert.Equal(t, done.Answers, again.Answers)
	assert.Equal(t, done.Outcome.Score, again.Outcome.Score)
}

func TestReentryAfterAssessmentEdit(t *testing.T) {
	ctx := context.Background()
	store := assessment.NewInMemoryStore()
	body := func(firstText string, key int) assessment.Assessment {
		a := quiz()
		for i := range a.Questions {
			a.Questions[i].ID = ""
		}
		a.Questions[0].Text = firstText
		a.Questions[2].CorrectAnswer = key
		return a
	}

	a, err := store.PutAssessment(ctx, body("HTML stands for?", 2))
	require.NoError(t, err)
	done := apply(t, NewSession(), Loaded{Assessment: a}, Start{At: t0},
		Select{Option: 0}, Next{}, Select{Option: 1}, Next{}, Select{Option: 1}, Next{})
	res, ok := done.Result("stu-1")
	require.True(t, ok)
	saved, err := store.SaveResult(ctx, res)
	require.NoError(t, err)
	require.Equal(t, 2, saved.Score)

	// reworded question, then a changed answer key
	for _, edit := range []assessment.Assessment{body("What does HTML stand for?", 2), body("HTML stands for?", 1)} {
		_, err = store.PutAssessment(ctx, edit)
		require.NoError(t, err)
		current, err := store.GetAssessment(ctx, "asm-1")
		require.NoError(t, err)

		again := apply(t, NewSession(), Loaded{Assessment: current, Prior: &saved})
		require.Equal(t, Completed, again.Phase)
		assert.Equal(t, []int{0, 1, 1}, again.Answers)
		assert.Equal(t, 2, again.Outcome.Score)
		assert.Equal(t, "passed", again.Outcome.Status())
	}
}

func TestReentryToleratesMalformedRecords(t *testing.T) {
	prior := assessment.Result{
		Status: assessment.StatusFailed,
		Answers: []assessment.AnswerRecord{
			{QuestionID: "q1", SelectedOption: 0},
			{QuestionID: "abc", SelectedOption: 1},
			{QuestionID: "2", SelectedOption: 2},
		},
	}
	s := apply(t, NewSession(), Loaded{Assessment: quiz(), Prior: &prior})
	assert.Equal(t, []int{0, -1, 2}, s.Answers)
}

func TestInProgressMarkerKeepsDeadline(t *testing.T) {
	started := t0
	prior := assessment.Result{ID: "r1", Status: assessment.StatusInProgress, StartedAt: &started}

	s := apply(t, NewSession(), Loaded{Assessment: quiz(), Prior: &prior})
	require.Equal(t, Intro, s.Phase)
	assert.Equal(t, t0.Add(10*time.Minute), s.Deadline)

	s = apply(t, s, Start{At: t0.Add(4 * time.Minute)})
	assert.Equal(t, Active, s.Phase)
	assert.Equal(t, 6*time.Minute, s.Remaining)
	assert.Equal(t, t0, s.StartedAt)

	expired := apply(t, NewSession(), Loaded{Assessment: quiz(), Prior: &prior}, Start{At: t0.Add(time.Hour)})
	assert.Equal(t, Completed, expired.Phase)
	assert.Equal(t, CauseTimeout, expired.Cause)
}

func TestUntimedAssessmentIgnoresTicks(t *testing.T) {
	a := quiz()
	a.TimeLimit = 0
	s := apply(t, NewSession(), Loaded{Assessment: a}, Start{At: t0}, Tick{Now: t0.Add(24 * time.Hour)})
	assert.Equal(t, Active, s.Phase)
}

func TestEmptyAssessmentCompletesOnStart(t *testing.T) {
	a := quiz()
	a.Questions = nil
	s := apply(t, NewSession(), Loaded{Assessment: a}, Start{At: t0})
	require.Equal(t, Completed, s.Phase)
	assert.Empty(t, s.Answers)
	assert.Equal(t, "passed", s.Outcome.Status())
}

func TestResultRecordsUseQuestionIDs(t *testing.T) {
	s := apply(t, NewSession(), Loaded{Assessment: quiz()}, Start{At: t0}, Select{Option: 0}, Next{}, Submit{})
	res, ok := s.Result("stu-1")
	require.True(t, ok)
	assert.Equal(t, "stu-1", assessment.IDOf(res.Student))
	assert.Equal(t, "asm-1", assessment.IDOf(res.Assessment))
	assert.Equal(t, assessment.StatusFailed, res.Status)
	require.Len(t, res.Answers, 3)
	assert.Equal(t, assessment.AnswerRecord{QuestionID: "q1", SelectedOption: 0, IsCorrect: true}, res.Answers[0])
	assert.Equal(t, assessment.AnswerRecord{QuestionID: "q3", SelectedOption: -1}, res.Answers[2])

	_, ok = NewSession().Result("stu-1")
	assert.False(t, ok)
}
