package model

import "time"

// Phase is the assessment session state. It only moves forward.
type Phase string

const (
	PhaseNotStarted Phase = "not_started"
	PhaseInProgress Phase = "in_progress"
	PhaseSubmitted  Phase = "submitted"
)

// SubmitTrigger records what caused a session to be graded
type SubmitTrigger string

const (
	TriggerManual SubmitTrigger = "manual"
	TriggerTimer  SubmitTrigger = "timer"
)

// Grade is the outcome for one question
type Grade struct {
	Correct bool    `json:"correct" bson:"correct"`
	Score   float64 `json:"score" bson:"score"` // 0-1, partial credit for numerical
}

// Remediation points a missed question back at the step that taught it
type Remediation struct {
	Position  int    `json:"position"`
	StepIndex int    `json:"stepIndex"`
	StepTitle string `json:"stepTitle"`
}

// QuizResult is the frozen outcome of a submitted session
type QuizResult struct {
	Grades      []Grade       `json:"grades"`
	Total       float64       `json:"total"`
	Percentage  int           `json:"percentage"`
	Trigger     SubmitTrigger `json:"trigger"`
	SubmittedAt time.Time     `json:"submittedAt"`
}

// QuizView is the learner-facing snapshot of an assessment session
type QuizView struct {
	Phase         Phase            `json:"phase"`
	Questions     []PublicQuestion `json:"questions"`
	Answers       map[int]string   `json:"answers"`
	Results       map[int]bool     `json:"results,omitempty"` // Only after submission
	Scores        map[int]float64  `json:"scores,omitempty"`  // Only after submission
	TimeRemaining int              `json:"timeRemaining"`
	TimeDisplay   string           `json:"timeDisplay"`
	LowTime       bool             `json:"lowTime"`
	Total         *float64         `json:"total,omitempty"`
	MaxScore      int              `json:"maxScore"`
	Percentage    *int             `json:"percentage,omitempty"`
	Remediations  []Remediation    `json:"remediations,omitempty"`
}

// ViewMode says which screen of a module visit is showing
type ViewMode string

const (
	ModeContent  ViewMode = "content"
	ModeQuiz     ViewMode = "quiz"
	ModeComplete ViewMode = "complete"
)

// ModuleView is the full state of one learner's visit to a module
type ModuleView struct {
	ID             string      `json:"id"`
	ModuleID       int         `json:"moduleId"`
	Title          string      `json:"title"`
	Description    string      `json:"description"`
	Objectives     string      `json:"objectives,omitempty"`
	Mode           ViewMode    `json:"mode"`
	StepCount      int         `json:"stepCount"`
	CurrentStep    int         `json:"currentStep"`
	Step           *ModuleStep `json:"step,omitempty"`
	CompletedSteps []int       `json:"completedSteps"`
	HasQuiz        bool        `json:"hasQuiz"`
	Quiz           *QuizView   `json:"quiz,omitempty"`
}
