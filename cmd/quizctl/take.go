package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/mind-engage/eduhub-assess/internal/attempt"
)

func (cli *commandLine) take(ctx context.Context, assessmentID string) error {
	me, err := cli.api.Me(ctx)
	if err != nil {
		return fmt.Errorf("who am i: %w", err)
	}
	opts := []attempt.Option{
		attempt.WithWarningHandler(func(err error) { fmt.Fprintf(cli.out, "warning: %v\n", err) }),
	}
	if cli.tick > 0 {
		opts = append(opts, attempt.WithTickInterval(cli.tick))
	}
	ctrl := attempt.NewController(cli.api, me.ID, assessmentID, opts...)
	defer ctrl.Close()

	s, err := ctrl.Load(ctx)
	if err != nil {
		return err
	}
	if s.Phase == attempt.Completed {
		fmt.Fprintln(cli.out, "You have already completed this assessment.")
		cli.printOutcome(s)
		return nil
	}

	lines := readLines(cli.in)
	cli.printIntro(s)
	select {
	case _, ok := <-lines:
		if !ok {
			return nil
		}
	case <-ctx.Done():
		return ctx.Err()
	}
	if s, err = ctrl.Start(ctx); err != nil {
		return err
	}

	shown := -1
	for s.Phase == attempt.Active {
		if s.Index != shown {
			cli.printQuestion(s)
			shown = s.Index
		}
		select {
		case line, ok := <-lines:
			if !ok {
				s, err = ctrl.Submit(ctx)
			} else {
				s, err = cli.answer(ctx, ctrl, s, line)
			}
			if errors.Is(err, attempt.ErrClosed) {
				s, err = ctrl.Snapshot(), nil
			}
			if err != nil {
				return err
			}
		case <-ctrl.Updates():
			s = ctrl.Snapshot()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if s.Cause == attempt.CauseTimeout {
		fmt.Fprintln(cli.out, "Time is up.")
	}
	cli.printOutcome(s)
	return nil
}

// answer applies one line of input: an option number, or "s" to submit.
func (cli *commandLine) answer(ctx context.Context, ctrl *attempt.Controller, s attempt.Session, line string) (attempt.Session, error) {
	line = strings.TrimSpace(line)
	if strings.EqualFold(line, "s") || strings.EqualFold(line, "submit") {
		return ctrl.Submit(ctx)
	}
	n, err := strconv.Atoi(line)
	if err != nil {
		fmt.Fprintln(cli.out, "Enter an option number, or s to submit.")
		return s, nil
	}
	_, err = ctrl.Select(ctx, n-1)
	if errors.Is(err, attempt.ErrInvalidOption) {
		q, _ := s.Question()
		fmt.Fprintf(cli.out, "Choose 1-%d.\n", len(q.Options))
		return s, nil
	}
	if err != nil {
		return s, err
	}
	return ctrl.Next(ctx)
}

func (cli *commandLine) printIntro(s attempt.Session) {
	a := s.Assessment
	fmt.Fprintf(cli.out, "%s\n", a.Title)
	if a.Description != "" {
		fmt.Fprintf(cli.out, "%s\n", a.Description)
	}
	fmt.Fprintf(cli.out, "%d questions", len(a.Questions))
	if m := a.Minutes(); m > 0 {
		fmt.Fprintf(cli.out, ", %d minutes", m)
	}
	fmt.Fprintln(cli.out)
	if !s.Deadline.IsZero() {
		fmt.Fprintf(cli.out, "Resuming an attempt started %s; it ends %s.\n",
			s.StartedAt.In(cli.location()).Format(time.Kitchen), s.Deadline.In(cli.location()).Format(time.Kitchen))
	}
	fmt.Fprintln(cli.out, "Press Enter to start.")
}

func (cli *commandLine) printQuestion(s attempt.Session) {
	q, ok := s.Question()
	if !ok {
		return
	}
	fmt.Fprintf(cli.out, "\nQuestion %d of %d", s.Index+1, len(s.Answers))
	if s.Remaining > 0 {
		fmt.Fprintf(cli.out, " (%s left)", s.Remaining.Round(time.Second))
	}
	fmt.Fprintf(cli.out, "\n%s\n", q.Text)
	for i, opt := range q.Options {
		fmt.Fprintf(cli.out, "  %d) %s\n", i+1, opt)
	}
	fmt.Fprint(cli.out, "> ")
}

func (cli *commandLine) printOutcome(s attempt.Session) {
	if s.Outcome == nil {
		return
	}
	o := s.Outcome
	fmt.Fprintf(cli.out, "Score: %d/%d (%s)\n", o.Score, o.Total, o.Status())
	for i, q := range s.Assessment.Questions {
		mark := "x"
		if i < len(o.Items) && o.Items[i].Correct {
			mark = "ok"
		}
		fmt.Fprintf(cli.out, "  %2d. [%s] %s\n", i+1, mark, q.Text)
	}
}

func (cli *commandLine) location() *time.Location {
	if cli.loc != nil {
		return cli.loc
	}
	return time.Local
}

// readLines feeds input lines to a channel so the countdown can end the
// attempt while a read is pending.
func readLines(r io.Reader) <-chan string {
	ch := make(chan string)
	go func() {
		defer close(ch)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			ch <- sc.Text()
		}
	}()
	return ch
}
