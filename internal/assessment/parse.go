// Package assessment is the quiz engine of a module visit: it parses a
// module's quiz definition, randomizes it, runs the countdown, grades
// the learner's answers and points missed questions back at content.
package assessment

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"

	"trainhub/internal/model"
)

var ErrMalformedQuiz = errors.New("quiz_data is neither a question array nor an object with questions")

// ParseQuizData decodes quiz_data, tolerating anything malformed as an
// empty quiz
func ParseQuizData(raw string) []model.QuizQuestion {
	questions, err := ParseQuizDataStrict(raw)
	if err != nil {
		return nil
	}
	return questions
}

// ParseQuizDataStrict decodes quiz_data and reports why it could not.
// Accepted shapes: [ {...}, ... ] and {"questions": [ {...}, ... ]}.
// An empty string is an empty quiz, not an error.
func ParseQuizDataStrict(raw string) ([]model.QuizQuestion, error) {
	data := bytes.TrimSpace([]byte(raw))
	if len(data) == 0 {
		return nil, nil
	}

	switch data[0] {
	case '[':
		var questions []model.QuizQuestion
		if err := json.Unmarshal(data, &questions); err != nil {
			return nil, err
		}
		return questions, nil
	case '{':
		var wrapped struct {
			Questions *[]model.QuizQuestion `json:"questions"`
		}
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return nil, err
		}
		if wrapped.Questions == nil {
			return nil, ErrMalformedQuiz
		}
		return *wrapped.Questions, nil
	}

	if strings.EqualFold(string(data), "null") {
		return nil, nil
	}
	return nil, ErrMalformedQuiz
}
