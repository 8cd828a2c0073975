package attempt

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mind-engage/eduhub-assess/internal/assessment"
	"github.com/mind-engage/eduhub-assess/internal/notify"
)

// Backend is what a Controller needs from the API.
type Backend interface {
	GetAssessment(ctx context.Context, id string) (assessment.Assessment, error)
	ListResults(ctx context.Context, f assessment.ResultFilter) ([]assessment.Result, error)
	CreateResult(ctx context.Context, r assessment.Result) (assessment.Result, error)
	Notify(ctx context.Context, n notify.Notification) error
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(c *Controller) { c.now = now } }

// WithTickInterval sets the countdown resolution (default one second).
func WithTickInterval(d time.Duration) Option { return func(c *Controller) { c.tick = d } }

// WithWarningHandler receives persistence failures. It is called from a
// background goroutine and must not block for long.
func WithWarningHandler(fn func(error)) Option { return func(c *Controller) { c.warn = fn } }

// WithStartMarker controls whether Start records an in-progress result so a
// restarted client resumes the original deadline. On by default.
func WithStartMarker(on bool) Option { return func(c *Controller) { c.marker = on } }

// WithBackgroundTimeout bounds each best-effort write.
func WithBackgroundTimeout(d time.Duration) Option { return func(c *Controller) { c.bgTimeout = d } }

type request struct {
	ev    Event
	reply chan reply
}

type reply struct {
	s   Session
	err error
}

// Controller drives one Session. All transitions run on a single loop
// goroutine; callers and the countdown ticker talk to it by sending events.
type Controller struct {
	backend      Backend
	studentID    string
	assessmentID string

	now       func() time.Time
	tick      time.Duration
	warn      func(error)
	marker    bool
	bgTimeout time.Duration

	reqs    chan request
	updates chan Session
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once
	snap    atomic.Pointer[Session]
	bg      sync.WaitGroup
	// marked closes once the start marker write returns; loop goroutine only.
	marked chan struct{}
}

func NewController(b Backend, studentID, assessmentID string, opts ...Option) *Controller {
	c := &Controller{
		backend:      b,
		studentID:    studentID,
		assessmentID: assessmentID,
		now:          time.Now,
		tick:         time.Second,
		warn:         func(err error) { log.Printf("attempt: %v", err) },
		marker:       true,
		bgTimeout:    15 * time.Second,
		reqs:         make(chan request),
		updates:      make(chan Session, 16),
		done:         make(chan struct{}),
		stopped:      make(chan struct{}),
	}
	for _, o := range opts {
		o(c)
	}
	s := NewSession()
	c.snap.Store(&s)
	go c.loop(s)
	return c
}

// Load fetches the assessment and any prior result, then moves the session
// out of loading. On error the session stays in loading.
func (c *Controller) Load(ctx context.Context) (Session, error) {
	a, err := c.backend.GetAssessment(ctx, c.assessmentID)
	if err != nil {
		return c.Snapshot(), fmt.Errorf("load assessment %s: %w", c.assessmentID, err)
	}
	results, err := c.backend.ListResults(ctx, assessment.ResultFilter{StudentID: c.studentID})
	if err != nil {
		return c.Snapshot(), fmt.Errorf("load results: %w", err)
	}
	ev := Loaded{Assessment: a}
	if r, ok := assessment.FindResult(results, a.ID); ok {
		ev.Prior = &r
	}
	return c.dispatch(ctx, ev)
}

func (c *Controller) Start(ctx context.Context) (Session, error) {
	return c.dispatch(ctx, Start{At: c.now()})
}

func (c *Controller) Select(ctx context.Context, option int) (Session, error) {
	return c.dispatch(ctx, Select{Option: option})
}

func (c *Controller) Next(ctx context.Context) (Session, error) {
	return c.dispatch(ctx, Next{})
}

func (c *Controller) Submit(ctx context.Context) (Session, error) {
	return c.dispatch(ctx, Submit{})
}

// Snapshot is the latest published session.
func (c *Controller) Snapshot() Session { return *c.snap.Load() }

// Updates publishes every session change. Slow readers see the most recent
// states; older ones are dropped.
func (c *Controller) Updates() <-chan Session { return c.updates }

// Close stops the loop and the countdown, then waits for in-flight
// persistence to finish.
func (c *Controller) Close() {
	c.once.Do(func() { close(c.done) })
	<-c.stopped
	c.bg.Wait()
}

var errStopped = errors.New("attempt controller closed")

func (c *Controller) dispatch(ctx context.Context, ev Event) (Session, error) {
	req := request{ev: ev, reply: make(chan reply, 1)}
	select {
	case c.reqs <- req:
	case <-c.done:
		return c.Snapshot(), errStopped
	case <-ctx.Done():
		return c.Snapshot(), ctx.Err()
	}
	select {
	case r := <-req.reply:
		return r.s, r.err
	case <-c.done:
		return c.Snapshot(), errStopped
	}
}

func (c *Controller) loop(s Session) {
	defer close(c.stopped)
	var stopTimer context.CancelFunc
	defer func() {
		if stopTimer != nil {
			stopTimer()
		}
	}()
	for {
		select {
		case <-c.done:
			return
		case req := <-c.reqs:
			next, err := s.Apply(req.ev)
			if err != nil {
				req.reply <- reply{s: s, err: err}
				continue
			}
			prev := s
			s = next
			c.publish(s)

			if prev.Phase != Active && s.Phase == Active {
				var ctx context.Context
				ctx, stopTimer = context.WithCancel(context.Background())
				go c.countdown(ctx)
				if c.marker && prev.PriorID == "" {
					started := s
					marked := make(chan struct{})
					c.marked = marked
					c.background(nil, func(ctx context.Context) {
						defer close(marked)
						c.markStarted(ctx, started)
					})
				}
			}
			if prev.Phase == Active && s.Phase != Active && stopTimer != nil {
				stopTimer()
				stopTimer = nil
			}
			if s.Phase == Completed && s.Cause != CauseRestored {
				c.persist(s)
			}
			req.reply <- reply{s: s}
		}
	}
}

func (c *Controller) countdown(ctx context.Context) {
	t := time.NewTicker(c.tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if _, err := c.dispatch(ctx, Tick{Now: c.now()}); err != nil {
				return
			}
		}
	}
}

func (c *Controller) publish(s Session) {
	c.snap.Store(&s)
	for {
		select {
		case c.updates <- s:
			return
		default:
		}
		select {
		case <-c.updates:
		default:
		}
	}
}

// persist writes the result, then sends the notification. Neither blocks
// the session: it is already completed when this runs.
func (c *Controller) persist(s Session) {
	res, ok := s.Result(c.studentID)
	if !ok {
		return
	}
	// the final result must not race the marker for the (student, assessment) row
	c.background(c.marked, func(ctx context.Context) {
		if _, err := c.backend.CreateResult(ctx, res); err != nil {
			c.warn(fmt.Errorf("save result: %w", err))
		}
		n := notify.Notification{
			User:    c.studentID,
			Title:   "Assessment Completed",
			Message: fmt.Sprintf("You scored %d/%d on %s", res.Score, res.TotalMarks, s.Assessment.Title),
			Type:    "grade",
		}
		if err := c.backend.Notify(ctx, n); err != nil {
			log.Printf("attempt: notify %s: %v", c.studentID, err)
		}
	})
}

func (c *Controller) markStarted(ctx context.Context, s Session) {
	started := s.StartedAt
	_, err := c.backend.CreateResult(ctx, assessment.Result{
		Student:    assessment.RefTo(c.studentID),
		Assessment: assessment.RefTo(s.Assessment.ID),
		TotalMarks: len(s.Assessment.Questions),
		Status:     assessment.StatusInProgress,
		StartedAt:  &started,
	})
	if err != nil {
		log.Printf("attempt: start marker %s: %v", s.Assessment.ID, err)
	}
}

// background runs fn on its own goroutine once after (if non-nil) is closed.
func (c *Controller) background(after <-chan struct{}, fn func(ctx context.Context)) {
	c.bg.Add(1)
	go func() {
		defer c.bg.Done()
		if after != nil {
			<-after
		}
		ctx, cancel := context.WithTimeout(context.Background(), c.bgTimeout)
		defer cancel()
		fn(ctx)
	}()
}
