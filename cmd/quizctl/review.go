package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/mind-engage/eduhub-assess/internal/assessment"
	"github.com/mind-engage/eduhub-assess/internal/review"
)

func (cli *commandLine) reviewer() *review.Reviewer {
	return review.New(cli.api, review.WithLocation(cli.location()))
}

func (cli *commandLine) review(ctx context.Context, id string, withAnswers bool) error {
	t, subs, err := cli.reviewer().Submissions(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%s (%s): %d submissions\n", t.Title, t.Kind, len(subs))
	if len(subs) == 0 {
		return nil
	}
	tw := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RECORD\tSTUDENT\tNAME\tSUBMITTED\tSTATUS\tSCORE")
	for _, s := range subs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", s.ID, s.ShortID, s.StudentName, s.Submitted, s.Status, scoreText(s))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if !withAnswers {
		return nil
	}
	for _, s := range subs {
		fmt.Fprintf(cli.out, "\n%s %s\n", s.ShortID, s.StudentName)
		if s.Content != "" {
			fmt.Fprintf(cli.out, "  %s\n", s.Content)
		}
		if s.FileURL != "" {
			fmt.Fprintf(cli.out, "  file: %s\n", s.FileURL)
		}
		for _, a := range s.Answers {
			mark := "x"
			if a.Correct {
				mark = "ok"
			}
			q := a.Question
			if q == "" {
				q = "(unknown question " + a.QuestionID + ")"
			}
			fmt.Fprintf(cli.out, "  [%s] %s: %s\n", mark, q, a.Choice)
		}
		if s.Feedback != "" {
			fmt.Fprintf(cli.out, "  feedback: %s\n", s.Feedback)
		}
	}
	return nil
}

// grade accepts a record id or the student's short id printed by review.
func (cli *commandLine) grade(ctx context.Context, id, record string, g assessment.ManualGrade) error {
	rv := cli.reviewer()
	t, subs, err := rv.Submissions(ctx, id)
	if err != nil {
		return err
	}
	recordID := ""
	for _, s := range subs {
		if s.ID == record || strings.EqualFold(s.ShortID, record) {
			recordID = s.ID
			break
		}
	}
	if recordID == "" {
		return fmt.Errorf("no submission %q for %s", record, t.Title)
	}
	s, err := rv.Grade(ctx, t, recordID, g)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%s %s: %s %s\n", s.ShortID, s.StudentName, s.Status, scoreText(s))
	return nil
}

func scoreText(s review.Submission) string {
	switch {
	case s.Score == nil:
		return "-"
	case s.Total > 0:
		return fmt.Sprintf("%g/%d", *s.Score, s.Total)
	default:
		return fmt.Sprintf("%g", *s.Score)
	}
}
