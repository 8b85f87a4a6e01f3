package model

import "encoding/json"

// QuestionType defines how a quiz question is answered and graded
type QuestionType string

const (
	QuestionTypeMCQ       QuestionType = "mcq"       // Pick one option, exact match
	QuestionTypeFill      QuestionType = "fill"      // Free text, case/whitespace-insensitive
	QuestionTypeNumerical QuestionType = "numerical" // Number within tolerance, partial credit
)

// QuizQuestion is one assessable item as authored in a module's quiz_data
type QuizQuestion struct {
	Question      string       `json:"question" bson:"question"`
	Type          QuestionType `json:"type" bson:"type"`
	Options       []string     `json:"options,omitempty" bson:"options,omitempty"` // MCQ only
	CorrectAnswer string       `json:"correct_answer" bson:"correct_answer"`
	Tolerance     float64      `json:"tolerance,omitempty" bson:"tolerance,omitempty"` // NUMERICAL only
	Explanation   string       `json:"explanation,omitempty" bson:"explanation,omitempty"`
	ModuleIndex   *int         `json:"module_index,omitempty" bson:"module_index,omitempty"` // Step that taught this
}

// UnmarshalJSON applies the mcq default for a missing or empty type.
// Backend-generated quizzes carry correct_answer and tolerance in loose
// shapes, so numbers are accepted where strings are expected.
func (q *QuizQuestion) UnmarshalJSON(data []byte) error {
	var raw struct {
		Question      string          `json:"question"`
		Type          QuestionType    `json:"type"`
		Options       []string        `json:"options"`
		CorrectAnswer json.RawMessage `json:"correct_answer"`
		Tolerance     *float64        `json:"tolerance"`
		Explanation   string          `json:"explanation"`
		ModuleIndex   *int            `json:"module_index"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*q = QuizQuestion{
		Question:    raw.Question,
		Type:        raw.Type,
		Options:     raw.Options,
		Explanation: raw.Explanation,
		ModuleIndex: raw.ModuleIndex,
	}
	if q.Type == "" {
		q.Type = QuestionTypeMCQ
	}
	if raw.Tolerance != nil {
		q.Tolerance = *raw.Tolerance
	}
	q.CorrectAnswer = looseString(raw.CorrectAnswer)
	return nil
}

// IsMCQ reports whether the question uses the exact-match option rule.
// Unknown types fall back to it, the same as an unset type.
func (q QuizQuestion) IsMCQ() bool {
	return q.Type != QuestionTypeFill && q.Type != QuestionTypeNumerical
}

// Clone returns a deep copy so shuffled working copies never alias the
// fetched definition
func (q QuizQuestion) Clone() QuizQuestion {
	c := q
	if q.Options != nil {
		c.Options = append([]string(nil), q.Options...)
	}
	if q.ModuleIndex != nil {
		idx := *q.ModuleIndex
		c.ModuleIndex = &idx
	}
	return c
}

// Public strips the fields a learner must never see during an attempt
func (q QuizQuestion) Public() PublicQuestion {
	pq := PublicQuestion{
		Question: q.Question,
		Type:     q.Type,
	}
	if q.IsMCQ() {
		pq.Options = append([]string{}, q.Options...)
	}
	return pq
}

// PublicQuestion is the learner-facing rendition of a QuizQuestion.
// No correct answer, no explanation.
type PublicQuestion struct {
	Question string       `json:"question"`
	Type     QuestionType `json:"type"`
	Options  []string     `json:"options,omitempty"`
}

func looseString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}
