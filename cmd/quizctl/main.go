package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/mind-engage/eduhub-assess/internal/client"
)

func main() {
	_ = godotenv.Load()

	base := os.Getenv("QUIZCTL_URL")
	if base == "" {
		base = "http://localhost:8080"
	}
	cli := &commandLine{
		api: client.New(client.Config{BaseURL: base, Token: os.Getenv("QUIZCTL_TOKEN"), Timeout: 30 * time.Second}),
		in:  bufio.NewReader(os.Stdin),
		out: os.Stdout,
	}
	if err := cli.run(os.Args); err != nil {
		if errors.Is(err, errHelp) {
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, "quizctl:", err)
		os.Exit(1)
	}
}
