// Command quizlint checks a module's quiz definition for authoring mistakes.
//
//	quizlint module.json        module resource as served by the LMS
//	quizlint -steps 4 quiz.json bare quiz_data
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"trainhub/internal/assessment"
	"trainhub/internal/model"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("quizlint", flag.ContinueOnError)
	fs.SetOutput(stderr)
	steps := fs.Int("steps", -1, "step count for module_index checks on bare quiz_data")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "usage: quizlint [-steps N] <module.json|quiz.json>")
		return 2
	}

	data, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(stderr, "Failed to read %s: %v\n", fs.Arg(0), err)
		return 2
	}

	questions, stepCount, err := load(data, *steps)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to parse %s: %v\n", fs.Arg(0), err)
		return 2
	}

	issues := assessment.Lint(questions, stepCount)
	for _, issue := range issues {
		fmt.Fprintln(stdout, issue.String())
	}
	fmt.Fprintf(stdout, "%d questions, %ds budget, %d issues\n", len(questions), assessment.Budget(questions), len(issues))
	if len(issues) > 0 {
		return 1
	}
	return 0
}

// load accepts a module resource or bare quiz_data
func load(data []byte, steps int) ([]model.QuizQuestion, int, error) {
	var module model.Module
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte("{")) && json.Unmarshal(data, &module) == nil && module.QuizData != "" {
		questions, err := assessment.ParseQuizDataStrict(module.QuizData)
		return questions, len(module.Steps), err
	}
	questions, err := assessment.ParseQuizDataStrict(string(data))
	return questions, steps, err
}
