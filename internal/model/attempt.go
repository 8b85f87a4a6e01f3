package model

import "time"

// AttemptRecord is a submitted attempt kept in the archive.
// Only graded attempts are stored, never in-progress answers.
type AttemptRecord struct {
	ID            string            `json:"id" bson:"_id"`
	ModuleID      int               `json:"moduleId" bson:"moduleId"`
	Learner       string            `json:"learner" bson:"learner"`
	Questions     []QuizQuestion    `json:"-" bson:"questions"` // Randomized order as presented
	Answers       map[string]string `json:"answers" bson:"answers"`
	Grades        []Grade           `json:"grades" bson:"grades"`
	Total         float64           `json:"total" bson:"total"`
	MaxScore      int               `json:"maxScore" bson:"maxScore"`
	Percentage    int               `json:"percentage" bson:"percentage"`
	Trigger       SubmitTrigger     `json:"trigger" bson:"trigger"`
	BudgetSec     int               `json:"budgetSec" bson:"budgetSec"`
	TimeRemaining int               `json:"timeRemaining" bson:"timeRemaining"`
	StartedAt     time.Time         `json:"startedAt" bson:"startedAt"`
	SubmittedAt   time.Time         `json:"submittedAt" bson:"submittedAt"`
}

// ScoreEntry is one row of a module's best-score board
type ScoreEntry struct {
	Learner    string `json:"learner"`
	Percentage int    `json:"percentage"`
	Rank       int    `json:"rank"`
}

// Scoreboard is a module's top scores and the caller's own rank, -1
// when they have no score there yet
type Scoreboard struct {
	Entries []ScoreEntry `json:"entries"`
	MyRank  int64        `json:"myRank"`
}
