package model

// TickEvent is pushed to a view's connections once per countdown second
type TickEvent struct {
	TimeRemaining int    `json:"timeRemaining"`
	TimeDisplay   string `json:"timeDisplay"`
	LowTime       bool   `json:"lowTime"`
}

// SubmittedEvent is pushed once when the quiz is graded
type SubmittedEvent struct {
	Trigger    SubmitTrigger `json:"trigger"`
	Total      float64       `json:"total"`
	MaxScore   int           `json:"maxScore"`
	Percentage int           `json:"percentage"`
	AttemptID  string        `json:"attemptId,omitempty"`
}
