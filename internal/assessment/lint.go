package assessment

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"trainhub/internal/model"
)

// Issue is an authoring problem the engine would otherwise grade around
type Issue struct {
	Position int    `json:"position"`
	Field    string `json:"field"`
	Message  string `json:"message"`
}

func (i Issue) String() string {
	return fmt.Sprintf("question %d: %s: %s", i.Position+1, i.Field, i.Message)
}

// Lint checks a quiz definition against the authoring invariants.
// stepCount < 0 skips the module_index check.
func Lint(questions []model.QuizQuestion, stepCount int) []Issue {
	var issues []Issue
	add := func(pos int, field, format string, args ...interface{}) {
		issues = append(issues, Issue{Position: pos, Field: field, Message: fmt.Sprintf(format, args...)})
	}

	for i, q := range questions {
		if strings.TrimSpace(q.Question) == "" {
			add(i, "question", "empty prompt")
		}

		switch q.Type {
		case model.QuestionTypeMCQ:
			lintOptions(i, q, add)
		case model.QuestionTypeFill:
			if strings.TrimSpace(q.CorrectAnswer) == "" {
				add(i, "correct_answer", "empty answer can never be matched meaningfully")
			}
		case model.QuestionTypeNumerical:
			if _, err := decimal.NewFromString(strings.TrimSpace(q.CorrectAnswer)); err != nil {
				add(i, "correct_answer", "%q is not a number", q.CorrectAnswer)
			}
			if q.Tolerance < 0 {
				add(i, "tolerance", "negative tolerance %v", q.Tolerance)
			}
		default:
			add(i, "type", "unknown type %q, graded as mcq", q.Type)
			lintOptions(i, q, add)
		}

		if q.ModuleIndex != nil && stepCount >= 0 && (*q.ModuleIndex < 0 || *q.ModuleIndex >= stepCount) {
			add(i, "module_index", "%d does not name one of %d steps", *q.ModuleIndex, stepCount)
		}
	}
	return issues
}

func lintOptions(pos int, q model.QuizQuestion, add func(int, string, string, ...interface{})) {
	if len(q.Options) == 0 {
		add(pos, "options", "mcq without options")
		return
	}
	seen := make(map[string]bool, len(q.Options))
	found := false
	for _, opt := range q.Options {
		if seen[opt] {
			add(pos, "options", "duplicate option %q", opt)
		}
		seen[opt] = true
		if opt == q.CorrectAnswer {
			found = true
		}
	}
	if !found {
		add(pos, "correct_answer", "%q is not one of the options", q.CorrectAnswer)
	}
}
