package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/mind-engage/eduhub-assess/internal/assessment"
	"github.com/mind-engage/eduhub-assess/internal/client"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	api  *client.Client
	in   io.Reader
	out  io.Writer
	tick time.Duration
	loc  *time.Location
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  login  -username USERNAME                        - get a token (password is prompted)")
	fmt.Fprintln(cli.out, "  take   -id ASSESSMENT                            - take a quiz")
	fmt.Fprintln(cli.out, "  review -id ASSESSMENT|ASSIGNMENT [-answers]      - list submissions")
	fmt.Fprintln(cli.out, "  grade  -id ASSESSMENT|ASSIGNMENT -record ID [-grade N] [-feedback TEXT]")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loginCmd := flag.NewFlagSet("login", flag.ContinueOnError)
	loginUname := loginCmd.String("username", "", "Username or user id. The password will be prompted next.")

	takeCmd := flag.NewFlagSet("take", flag.ContinueOnError)
	takeID := takeCmd.String("id", "", "Assessment id.")

	reviewCmd := flag.NewFlagSet("review", flag.ContinueOnError)
	reviewID := reviewCmd.String("id", "", "Assessment or assignment id.")
	reviewAnswers := reviewCmd.Bool("answers", false, "Print each student's answers.")

	gradeCmd := flag.NewFlagSet("grade", flag.ContinueOnError)
	gradeID := gradeCmd.String("id", "", "Assessment or assignment id.")
	gradeRecord := gradeCmd.String("record", "", "Result or submission id.")
	gradeValue := gradeCmd.Float64("grade", -1, "Grade to record.")
	gradeFeedback := gradeCmd.String("feedback", "", "Feedback for the student.")

	for _, fs := range []*flag.FlagSet{loginCmd, takeCmd, reviewCmd, gradeCmd} {
		fs.SetOutput(cli.out)
	}

	switch args[1] {
	case "login":
		if err := loginCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *loginUname == "" {
			loginCmd.Usage()
			return errHelp
		}
		fmt.Fprint(cli.out, "Enter password:")
		pwd, err := readPasswordFunc(int(syscall.Stdin))
		fmt.Fprintln(cli.out)
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			loginCmd.Usage()
			return errHelp
		}
		return cli.login(ctx, *loginUname, string(pwd))
	case "take":
		if err := takeCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *takeID == "" {
			takeCmd.Usage()
			return errHelp
		}
		return cli.take(ctx, *takeID)
	case "review":
		if err := reviewCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *reviewID == "" {
			reviewCmd.Usage()
			return errHelp
		}
		return cli.review(ctx, *reviewID, *reviewAnswers)
	case "grade":
		if err := gradeCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *gradeID == "" || *gradeRecord == "" {
			gradeCmd.Usage()
			return errHelp
		}
		g := assessment.ManualGrade{Feedback: *gradeFeedback}
		if *gradeValue >= 0 {
			v := *gradeValue
			g.Grade = &v
		}
		return cli.grade(ctx, *gradeID, *gradeRecord, g)
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) login(ctx context.Context, username, password string) error {
	tok, err := cli.api.Login(ctx, username, password)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "export QUIZCTL_TOKEN=%s\n", tok)
	return nil
}
