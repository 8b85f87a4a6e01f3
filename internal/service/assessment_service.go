package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"trainhub/internal/assessment"
	"trainhub/internal/cache"
	"trainhub/internal/model"
	"trainhub/internal/repository"
)

var (
	ErrViewNotFound    = errors.New("view not found")
	ErrAttemptNotFound = errors.New("attempt not found")
)

const archiveTimeout = 5 * time.Second

type viewEntry struct {
	viewer   *assessment.Viewer
	learner  string
	moduleID int
	lastSeen time.Time
}

// AssessmentService owns the live module visits and their timed quizzes.
// Visits are in-memory only; graded attempts are archived after submission.
type AssessmentService struct {
	mu    sync.Mutex
	views map[string]*viewEntry

	fetcher     ModuleFetcher
	modules     cache.ModuleCache
	attempts    repository.AttemptRepo
	board       cache.ScoreBoard
	broadcaster Broadcaster

	randomizer *assessment.Randomizer
	ticker     assessment.NewTicker
	now        func() time.Time
}

// NewAssessmentService creates a new assessment service
func NewAssessmentService(
	fetcher ModuleFetcher,
	modules cache.ModuleCache,
	attempts repository.AttemptRepo,
	board cache.ScoreBoard,
) *AssessmentService {
	return &AssessmentService{
		views:       make(map[string]*viewEntry),
		fetcher:     fetcher,
		modules:     modules,
		attempts:    attempts,
		board:       board,
		broadcaster: noopBroadcaster{},
		randomizer:  assessment.NewRandomizer(nil),
		ticker:      assessment.SecondTicker,
		now:         time.Now,
	}
}

// SetBroadcaster sets the broadcaster for WebSocket events
func (s *AssessmentService) SetBroadcaster(b Broadcaster) {
	if b != nil {
		s.broadcaster = b
	}
}

// OpenView fetches the module and opens a fresh visit on its first step
func (s *AssessmentService) OpenView(ctx context.Context, learner *model.Learner, moduleID int) (*model.ModuleView, error) {
	module, err := s.loadModule(ctx, learner, moduleID)
	if err != nil {
		return nil, err
	}

	id := uuid.New().String()
	entry := &viewEntry{
		learner:  learner.EmployeeCode,
		moduleID: module.ID,
		lastSeen: s.now(),
	}
	entry.viewer = assessment.NewViewer(id, module, assessment.SessionOptions{
		Randomizer: s.randomizer,
		Ticker:     s.ticker,
		Now:        s.now,
		OnTick: func(remaining int) {
			s.broadcaster.BroadcastToView(id, EventTick, model.TickEvent{
				TimeRemaining: remaining,
				TimeDisplay:   assessment.FormatRemaining(remaining),
				LowTime:       assessment.IsLowTime(remaining),
			})
		},
		OnSubmit: func(result model.QuizResult) {
			s.handleSubmitted(id, entry, result)
		},
	})

	s.mu.Lock()
	s.views[id] = entry
	s.mu.Unlock()

	log.Printf("View %s opened: module %d for %s", id, module.ID, learner.EmployeeCode)
	view := entry.viewer.View()
	return &view, nil
}

func (s *AssessmentService) loadModule(ctx context.Context, learner *model.Learner, moduleID int) (*model.Module, error) {
	if s.modules != nil {
		module, err := s.modules.GetModule(ctx, moduleID)
		if err != nil {
			log.Printf("Warning: module cache read failed for %d: %v", moduleID, err)
		} else if module != nil {
			return module, nil
		}
	}

	module, err := s.fetcher.GetModule(ctx, learner.Token, moduleID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch module %d: %w", moduleID, err)
	}

	if s.modules != nil {
		if err := s.modules.SetModule(ctx, module); err != nil {
			log.Printf("Warning: module cache write failed for %d: %v", moduleID, err)
		}
	}
	return module, nil
}

// lookup resolves a view owned by learner; other learners' views do not exist
func (s *AssessmentService) lookup(learner *model.Learner, viewID string) (*viewEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.views[viewID]
	if !ok || entry.learner != learner.EmployeeCode {
		return nil, ErrViewNotFound
	}
	entry.lastSeen = s.now()
	return entry, nil
}

// GetView returns the current state of a visit
func (s *AssessmentService) GetView(learner *model.Learner, viewID string) (*model.ModuleView, error) {
	entry, err := s.lookup(learner, viewID)
	if err != nil {
		return nil, err
	}
	view := entry.viewer.View()
	return &view, nil
}

// CompleteStep finishes the current step, starting the quiz after the last one
func (s *AssessmentService) CompleteStep(learner *model.Learner, viewID string) (*model.ModuleView, error) {
	entry, err := s.lookup(learner, viewID)
	if err != nil {
		return nil, err
	}

	session, err := entry.viewer.CompleteStep()
	if err != nil {
		return nil, err
	}
	if session != nil {
		log.Printf("View %s: quiz started, %d questions, %ds", viewID, len(session.Questions()), session.Budget())
	}

	view := entry.viewer.View()
	return &view, nil
}

// GoToStep jumps to a content step, e.g. from a remediation link
func (s *AssessmentService) GoToStep(learner *model.Learner, viewID string, idx int) (*model.ModuleView, error) {
	entry, err := s.lookup(learner, viewID)
	if err != nil {
		return nil, err
	}
	if err := entry.viewer.GoToStep(idx); err != nil {
		return nil, err
	}
	view := entry.viewer.View()
	return &view, nil
}

// ResumeQuiz switches a visit back to its quiz
func (s *AssessmentService) ResumeQuiz(learner *model.Learner, viewID string) (*model.ModuleView, error) {
	entry, err := s.lookup(learner, viewID)
	if err != nil {
		return nil, err
	}
	if err := entry.viewer.ResumeQuiz(); err != nil {
		return nil, err
	}
	view := entry.viewer.View()
	return &view, nil
}

// Answer records an answer. It reports false when the quiz no longer
// takes answers, which is not an error.
func (s *AssessmentService) Answer(learner *model.Learner, viewID string, pos int, value string) (*model.ModuleView, bool, error) {
	entry, err := s.lookup(learner, viewID)
	if err != nil {
		return nil, false, err
	}
	session := entry.viewer.Quiz()
	if session == nil {
		return nil, false, assessment.ErrNoQuiz
	}

	accepted, err := session.Answer(pos, value)
	if err != nil {
		return nil, false, err
	}
	view := entry.viewer.View()
	return &view, accepted, nil
}

// Submit grades the quiz on the learner's request. Repeated calls
// return the same graded view.
func (s *AssessmentService) Submit(learner *model.Learner, viewID string) (*model.ModuleView, error) {
	entry, err := s.lookup(learner, viewID)
	if err != nil {
		return nil, err
	}
	session := entry.viewer.Quiz()
	if session == nil {
		return nil, assessment.ErrNoQuiz
	}

	session.Submit(model.TriggerManual)
	view := entry.viewer.View()
	return &view, nil
}

// CloseView discards a visit. A running quiz is stopped without grading.
func (s *AssessmentService) CloseView(learner *model.Learner, viewID string) error {
	s.mu.Lock()
	entry, ok := s.views[viewID]
	if !ok || entry.learner != learner.EmployeeCode {
		s.mu.Unlock()
		return ErrViewNotFound
	}
	delete(s.views, viewID)
	s.mu.Unlock()

	s.discard(viewID, entry)
	log.Printf("View %s closed by %s", viewID, learner.EmployeeCode)
	return nil
}

func (s *AssessmentService) discard(viewID string, entry *viewEntry) {
	entry.viewer.Close()
	s.broadcaster.BroadcastToView(viewID, EventClosed, map[string]string{"viewId": viewID})
	s.broadcaster.DisconnectView(viewID)
}

func (s *AssessmentService) handleSubmitted(viewID string, entry *viewEntry, result model.QuizResult) {
	session := entry.viewer.Quiz()
	if session == nil {
		return
	}
	log.Printf("View %s: quiz submitted (%s) by %s, %d%%", viewID, result.Trigger, entry.learner, result.Percentage)

	ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
	defer cancel()

	attemptID := s.archive(ctx, entry, session, result)

	if s.board != nil {
		if err := s.board.RecordBest(ctx, entry.moduleID, entry.learner, result.Percentage); err != nil {
			log.Printf("Warning: failed to update score board for module %d: %v", entry.moduleID, err)
		}
	}

	if result.Trigger == model.TriggerTimer {
		s.broadcaster.BroadcastToView(viewID, EventExpired, model.TickEvent{TimeDisplay: assessment.FormatRemaining(0), LowTime: true})
	}
	s.broadcaster.BroadcastToView(viewID, EventSubmitted, model.SubmittedEvent{
		Trigger:    result.Trigger,
		Total:      result.Total,
		MaxScore:   len(result.Grades),
		Percentage: result.Percentage,
		AttemptID:  attemptID,
	})
}

func (s *AssessmentService) archive(ctx context.Context, entry *viewEntry, session *assessment.Session, result model.QuizResult) string {
	if s.attempts == nil {
		return ""
	}

	answers := make(map[string]string)
	for pos, a := range session.Answers() {
		answers[strconv.Itoa(pos)] = a
	}
	record := &model.AttemptRecord{
		ID:            uuid.New().String(),
		ModuleID:      entry.moduleID,
		Learner:       entry.learner,
		Questions:     session.Questions(),
		Answers:       answers,
		Grades:        result.Grades,
		Total:         result.Total,
		MaxScore:      len(result.Grades),
		Percentage:    result.Percentage,
		Trigger:       result.Trigger,
		BudgetSec:     session.Budget(),
		TimeRemaining: session.Remaining(),
		StartedAt:     session.StartedAt(),
		SubmittedAt:   result.SubmittedAt,
	}
	if err := s.attempts.Create(ctx, record); err != nil {
		log.Printf("Warning: failed to archive attempt for module %d: %v", entry.moduleID, err)
		return ""
	}
	return record.ID
}

// Attempts lists the learner's archived attempts at a module, newest first
func (s *AssessmentService) Attempts(ctx context.Context, learner *model.Learner, moduleID int, limit int) ([]model.AttemptRecord, error) {
	if s.attempts == nil {
		return []model.AttemptRecord{}, nil
	}
	attempts, err := s.attempts.ListByLearnerModule(ctx, learner.EmployeeCode, moduleID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}
	return attempts, nil
}

// Attempt returns one of the learner's archived attempts
func (s *AssessmentService) Attempt(ctx context.Context, learner *model.Learner, attemptID string) (*model.AttemptRecord, error) {
	if s.attempts == nil {
		return nil, ErrAttemptNotFound
	}
	attempt, err := s.attempts.GetByID(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}
	if attempt == nil || attempt.Learner != learner.EmployeeCode {
		return nil, ErrAttemptNotFound
	}
	return attempt, nil
}

// Scoreboard returns the best percentages for a module and where the
// learner stands
func (s *AssessmentService) Scoreboard(ctx context.Context, learner *model.Learner, moduleID int, limit int) (*model.Scoreboard, error) {
	if s.board == nil {
		return &model.Scoreboard{Entries: []model.ScoreEntry{}, MyRank: -1}, nil
	}
	entries, err := s.board.GetTop(ctx, moduleID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get scoreboard: %w", err)
	}
	rank, err := s.board.GetRank(ctx, moduleID, learner.EmployeeCode)
	if err != nil {
		return nil, fmt.Errorf("failed to get rank: %w", err)
	}
	return &model.Scoreboard{Entries: entries, MyRank: rank}, nil
}

// SweepIdle discards visits untouched for maxIdle. Visits with a quiz
// still running are left to their timer.
func (s *AssessmentService) SweepIdle(maxIdle time.Duration) int {
	cutoff := s.now().Add(-maxIdle)

	s.mu.Lock()
	stale := make(map[string]*viewEntry)
	for id, entry := range s.views {
		if entry.lastSeen.After(cutoff) {
			continue
		}
		if q := entry.viewer.Quiz(); q != nil && q.Phase() == model.PhaseInProgress {
			continue
		}
		stale[id] = entry
		delete(s.views, id)
	}
	s.mu.Unlock()

	for id, entry := range stale {
		s.discard(id, entry)
		log.Printf("View %s swept after %v idle", id, maxIdle)
	}
	return len(stale)
}

// ViewCount returns the number of open visits
func (s *AssessmentService) ViewCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.views)
}

// Shutdown discards every open visit
func (s *AssessmentService) Shutdown() {
	s.mu.Lock()
	views := s.views
	s.views = make(map[string]*viewEntry)
	s.mu.Unlock()

	for id, entry := range views {
		s.discard(id, entry)
	}
	log.Printf("Assessment service stopped, %d views discarded", len(views))
}
