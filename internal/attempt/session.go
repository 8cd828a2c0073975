// Package attempt runs a single student's timed attempt at an assessment.
//
// A Session is a plain value; every change goes through Apply, which returns
// the next Session. The Controller owns the only live copy and feeds it events
// from the caller and from its countdown ticker.
package attempt

import (
	"errors"
	"fmt"
	"time"

	"github.com/mind-engage/eduhub-assess/internal/assessment"
	"github.com/mind-engage/eduhub-assess/internal/grading"
)

type Phase int

const (
	Loading Phase = iota
	Intro
	Active
	Completed
)

func (p Phase) String() string {
	switch p {
	case Loading:
		return "loading"
	case Intro:
		return "intro"
	case Active:
		return "active"
	case Completed:
		return "completed"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// Cause records how a session reached Completed.
type Cause string

const (
	CauseNone     Cause = ""
	CauseManual   Cause = "manual"
	CauseTimeout  Cause = "timeout"
	CauseRestored Cause = "restored"
)

var (
	ErrNoSelection       = errors.New("no option selected")
	ErrInvalidOption     = errors.New("option out of range")
	ErrClosed            = errors.New("attempt already completed")
	ErrInvalidTransition = errors.New("invalid transition")
)

type Session struct {
	Phase      Phase
	Assessment assessment.Assessment

	Index    int   // current question
	Selected int   // transient selection on screen, -1 = none
	Answers  []int // len == question count once loaded

	StartedAt time.Time
	Deadline  time.Time // zero for untimed assessments
	Remaining time.Duration

	Outcome *grading.Outcome
	Cause   Cause
	// PriorID is the stored result this session was loaded with, if any.
	PriorID string
}

// Event is anything Apply accepts.
type Event interface{ event() }

type (
	Loaded struct {
		Assessment assessment.Assessment
		Prior      *assessment.Result
	}
	Start  struct{ At time.Time }
	Select struct{ Option int }
	Next   struct{}
	Tick   struct{ Now time.Time }
	Submit struct{}
)

func (Loaded) event() {}
func (Start) event()  {}
func (Select) event() {}
func (Next) event()   {}
func (Tick) event()   {}
func (Submit) event() {}

func NewSession() Session { return Session{Phase: Loading, Selected: grading.Unanswered} }

// Apply returns the session that results from ev. On error the receiver is
// returned unchanged.
func (s Session) Apply(ev Event) (Session, error) {
	if s.Phase == Completed {
		return s, ErrClosed
	}
	next := s.clone()
	switch e := ev.(type) {
	case Loaded:
		if s.Phase != Loading {
			break
		}
		return next.load(e), nil
	case Start:
		if s.Phase != Intro {
			break
		}
		return next.start(e.At), nil
	case Select:
		if s.Phase != Active {
			break
		}
		q := next.Assessment.Questions[next.Index]
		if e.Option < 0 || e.Option >= len(q.Options) {
			return s, fmt.Errorf("%w: %d of %d", ErrInvalidOption, e.Option, len(q.Options))
		}
		next.Selected = e.Option
		return next, nil
	case Next:
		if s.Phase != Active {
			break
		}
		if next.Selected < 0 {
			return s, ErrNoSelection
		}
		next.Answers[next.Index] = next.Selected
		next.Selected = grading.Unanswered
		if next.Index == len(next.Answers)-1 {
			return next.complete(CauseManual), nil
		}
		next.Index++
		return next, nil
	case Tick:
		if s.Phase != Active {
			break
		}
		if next.Deadline.IsZero() {
			return next, nil
		}
		next.Remaining = remaining(next.Deadline, e.Now)
		if next.Remaining == 0 {
			return next.complete(CauseTimeout), nil
		}
		return next, nil
	case Submit:
		if s.Phase != Active {
			break
		}
		return next.complete(CauseManual), nil
	}
	return s, fmt.Errorf("%w: %T in %s", ErrInvalidTransition, ev, s.Phase)
}

func (s Session) load(e Loaded) Session {
	s.Assessment = e.Assessment
	s.Answers = assessment.NewAnswers(len(e.Assessment.Questions))
	if d := time.Duration(e.Assessment.Minutes()) * time.Minute; d > 0 {
		s.Remaining = d
	}
	switch p := e.Prior; {
	case p == nil:
		s.Phase = Intro
	case p.Status.Final():
		s.PriorID = p.ID
		if p.StartedAt != nil {
			s.StartedAt = *p.StartedAt
		}
		// the stored score stands even if the answer key changed since
		out := assessment.RestoreOutcome(e.Assessment, *p)
		s.Answers = out.Answers()
		s.Outcome = &out
		s.Phase = Completed
		s.Cause = CauseRestored
		return s
	default:
		// in-progress marker: keep the original deadline for the coming Start
		s.PriorID = p.ID
		s.Phase = Intro
		if p.StartedAt != nil {
			s.StartedAt = *p.StartedAt
			if s.Remaining > 0 {
				s.Deadline = s.StartedAt.Add(s.Remaining)
			}
		}
	}
	return s
}

func (s Session) start(at time.Time) Session {
	s.Phase = Active
	if s.StartedAt.IsZero() {
		s.StartedAt = at
	}
	if len(s.Answers) == 0 {
		return s.complete(CauseManual)
	}
	if s.Deadline.IsZero() && s.Remaining > 0 {
		s.Deadline = at.Add(s.Remaining)
	}
	if s.Deadline.IsZero() {
		return s
	}
	s.Remaining = remaining(s.Deadline, at)
	if s.Remaining == 0 {
		return s.complete(CauseTimeout)
	}
	return s
}

func (s Session) complete(c Cause) Session {
	out := assessment.Score(s.Assessment, s.Answers)
	s.Answers = out.Answers()
	s.Outcome = &out
	s.Phase = Completed
	s.Cause = c
	s.Selected = grading.Unanswered
	if c == CauseTimeout {
		s.Remaining = 0
	}
	return s
}

// Result is the record persisted for a completed session.
func (s Session) Result(studentID string) (assessment.Result, bool) {
	if s.Phase != Completed || s.Outcome == nil {
		return assessment.Result{}, false
	}
	return assessment.Result{
		Student:    assessment.RefTo(studentID),
		Assessment: assessment.RefTo(s.Assessment.ID),
		Score:      s.Outcome.Score,
		TotalMarks: s.Outcome.Total,
		Status:     assessment.ResultStatus(s.Outcome.Status()),
		Answers:    assessment.BuildRecords(s.Assessment, *s.Outcome),
	}, true
}

// Question returns the question on screen while active.
func (s Session) Question() (assessment.Question, bool) {
	if s.Phase != Active || s.Index >= len(s.Assessment.Questions) {
		return assessment.Question{}, false
	}
	return s.Assessment.Questions[s.Index], true
}

func (s Session) clone() Session {
	s.Answers = append([]int(nil), s.Answers...)
	return s
}

func remaining(deadline, now time.Time) time.Duration {
	if d := deadline.Sub(now); d > 0 {
		return d
	}
	return 0
}
