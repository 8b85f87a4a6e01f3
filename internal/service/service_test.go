package service

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand/v2"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trainhub/internal/assessment"
	"trainhub/internal/cache"
	"trainhub/internal/model"
)

type fakeFetcher struct {
	mu      sync.Mutex
	modules map[int]*model.Module
	calls   int
	err     error
}

func (f *fakeFetcher) GetModule(_ context.Context, token string, moduleID int) (*model.Module, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	m, ok := f.modules[moduleID]
	if !ok {
		return nil, ErrModuleNotFound
	}
	copied := *m
	return &copied, nil
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeAttemptRepo struct {
	mu       sync.Mutex
	attempts []model.AttemptRecord
}

func (r *fakeAttemptRepo) Create(_ context.Context, a *model.AttemptRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts = append(r.attempts, *a)
	return nil
}

func (r *fakeAttemptRepo) GetByID(_ context.Context, id string) (*model.AttemptRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.attempts {
		if a.ID == id {
			return &a, nil
		}
	}
	return nil, nil
}

func (r *fakeAttemptRepo) ListByLearnerModule(_ context.Context, learner string, moduleID int, limit int) ([]model.AttemptRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []model.AttemptRecord{}
	for i := len(r.attempts) - 1; i >= 0; i-- {
		a := r.attempts[i]
		if a.Learner == learner && a.ModuleID == moduleID {
			out = append(out, a)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeAttemptRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.attempts)
}

type sentEvent struct {
	viewID  string
	msgType string
	payload interface{}
}

type recordingBroadcaster struct {
	mu           sync.Mutex
	events       []sentEvent
	disconnected []string
}

func (b *recordingBroadcaster) BroadcastToView(viewID, msgType string, payload interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, sentEvent{viewID, msgType, payload})
}

func (b *recordingBroadcaster) DisconnectView(viewID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.disconnected = append(b.disconnected, viewID)
}

func (b *recordingBroadcaster) types() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []string
	for _, e := range b.events {
		if e.msgType != EventTick {
			out = append(out, e.msgType)
		}
	}
	return out
}

// stepTicker is a tick source driven by the test
type stepTicker struct {
	ch chan time.Time
}

func (s *stepTicker) C() <-chan time.Time { return s.ch }
func (s *stepTicker) Stop()               {}

func (s *stepTicker) tick(t *testing.T) {
	t.Helper()
	select {
	case s.ch <- time.Now():
	case <-time.After(2 * time.Second):
		t.Fatal("countdown did not take the tick")
	}
}

var (
	alice = &model.Learner{EmployeeCode: "E100", Token: "alice-token"}
	bob   = &model.Learner{EmployeeCode: "E200", Token: "bob-token"}
)

func quizJSON(t *testing.T, questions []model.QuizQuestion) string {
	t.Helper()
	data, err := json.Marshal(questions)
	require.NoError(t, err)
	return string(data)
}

func idx(i int) *int { return &i }

type testEnv struct {
	svc         *AssessmentService
	fetcher     *fakeFetcher
	attempts    *fakeAttemptRepo
	board       cache.ScoreBoard
	broadcaster *recordingBroadcaster
	ticker      *stepTicker
	clock       *time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	fetcher := &fakeFetcher{modules: map[int]*model.Module{
		1: {
			ID:    1,
			Title: "Lockout tagout",
			Steps: []model.ModuleStep{{Title: "Isolate"}, {Title: "Verify"}},
			QuizData: quizJSON(t, []model.QuizQuestion{
				{Question: "First?", Type: model.QuestionTypeMCQ, Options: []string{"isolate", "verify"}, CorrectAnswer: "isolate", ModuleIndex: idx(0)},
				{Question: "Then?", Type: model.QuestionTypeFill, CorrectAnswer: "verify", ModuleIndex: idx(1)},
			}),
		},
		2: {ID: 2, Title: "Reading only", Steps: []model.ModuleStep{{Title: "Read"}}},
	}}
	attempts := &fakeAttemptRepo{}
	board := cache.NewScoreBoard(rdb)
	broadcaster := &recordingBroadcaster{}
	ticker := &stepTicker{ch: make(chan time.Time)}

	svc := NewAssessmentService(fetcher, cache.NewModuleCache(rdb, time.Minute), attempts, board)
	svc.SetBroadcaster(broadcaster)
	svc.randomizer = assessment.NewRandomizer(rand.NewPCG(1, 1))
	svc.ticker = func() assessment.TickSource { return ticker }

	clock := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	env := &testEnv{svc, fetcher, attempts, board, broadcaster, ticker, &clock}
	svc.now = func() time.Time { return *env.clock }
	t.Cleanup(svc.Shutdown)
	return env
}

// startQuiz opens module 1 for learner and walks to its quiz
func (e *testEnv) startQuiz(t *testing.T, learner *model.Learner) *model.ModuleView {
	t.Helper()
	view, err := e.svc.OpenView(context.Background(), learner, 1)
	require.NoError(t, err)
	for i := 0; i < view.StepCount; i++ {
		view, err = e.svc.CompleteStep(learner, view.ID)
		require.NoError(t, err)
	}
	require.Equal(t, model.ModeQuiz, view.Mode)
	return view
}

func answerFor(q model.PublicQuestion) string {
	if q.Type == model.QuestionTypeFill {
		return "Verify"
	}
	return "isolate"
}

func TestOpenViewUsesModuleCache(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	view, err := env.svc.OpenView(ctx, alice, 1)
	require.NoError(t, err)
	assert.Equal(t, model.ModeContent, view.Mode)
	assert.Equal(t, "Lockout tagout", view.Title)
	assert.True(t, view.HasQuiz)

	_, err = env.svc.OpenView(ctx, bob, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, env.fetcher.callCount(), "second open served from cache")
	assert.Equal(t, 2, env.svc.ViewCount())
}

func TestOpenViewModuleNotFound(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.svc.OpenView(context.Background(), alice, 404)
	assert.ErrorIs(t, err, ErrModuleNotFound)
	assert.Zero(t, env.svc.ViewCount())

	env.fetcher.err = ErrLMSUnavailable
	_, err = env.svc.OpenView(context.Background(), alice, 3)
	assert.ErrorIs(t, err, ErrLMSUnavailable)
}

func TestViewsAreOwnedByLearner(t *testing.T) {
	env := newTestEnv(t)
	view, err := env.svc.OpenView(context.Background(), alice, 1)
	require.NoError(t, err)

	_, err = env.svc.GetView(bob, view.ID)
	assert.ErrorIs(t, err, ErrViewNotFound)
	_, err = env.svc.CompleteStep(bob, view.ID)
	assert.ErrorIs(t, err, ErrViewNotFound)
	assert.ErrorIs(t, env.svc.CloseView(bob, view.ID), ErrViewNotFound)
	_, err = env.svc.GetView(alice, view.ID)
	assert.NoError(t, err)

	_, err = env.svc.GetView(alice, "missing")
	assert.ErrorIs(t, err, ErrViewNotFound)
}

func TestManualSubmitArchivesAndRanks(t *testing.T) {
	env := newTestEnv(t)
	view := env.startQuiz(t, alice)
	require.NotNil(t, view.Quiz)
	assert.Equal(t, 360, view.Quiz.TimeRemaining)

	for pos, q := range view.Quiz.Questions {
		_, accepted, err := env.svc.Answer(alice, view.ID, pos, answerFor(q))
		require.NoError(t, err)
		assert.True(t, accepted)
	}

	_, _, err := env.svc.Answer(alice, view.ID, 9, "x")
	assert.ErrorIs(t, err, assessment.ErrQuestionOutOfRange)

	view, err = env.svc.Submit(alice, view.ID)
	require.NoError(t, err)
	require.NotNil(t, view.Quiz.Percentage)
	assert.Equal(t, 100, *view.Quiz.Percentage)
	assert.Equal(t, model.PhaseSubmitted, view.Quiz.Phase)

	// Submitting again changes nothing.
	again, err := env.svc.Submit(alice, view.ID)
	require.NoError(t, err)
	assert.Equal(t, view.Quiz.Percentage, again.Quiz.Percentage)

	_, accepted, err := env.svc.Answer(alice, view.ID, 0, "verify")
	require.NoError(t, err)
	assert.False(t, accepted)

	require.Equal(t, 1, env.attempts.count())
	attempts, err := env.svc.Attempts(context.Background(), alice, 1, 10)
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	a := attempts[0]
	assert.Equal(t, "E100", a.Learner)
	assert.Equal(t, 100, a.Percentage)
	assert.Equal(t, model.TriggerManual, a.Trigger)
	assert.Equal(t, 360, a.BudgetSec)
	assert.Len(t, a.Answers, 2)
	assert.Equal(t, *env.clock, a.StartedAt)

	got, err := env.svc.Attempt(context.Background(), alice, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)
	_, err = env.svc.Attempt(context.Background(), bob, a.ID)
	assert.ErrorIs(t, err, ErrAttemptNotFound)

	board, err := env.svc.Scoreboard(context.Background(), alice, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, []model.ScoreEntry{{Learner: "E100", Percentage: 100, Rank: 1}}, board.Entries)
	assert.Equal(t, int64(1), board.MyRank)

	board, err = env.svc.Scoreboard(context.Background(), bob, 1, 10)
	require.NoError(t, err)
	assert.Len(t, board.Entries, 1)
	assert.Equal(t, int64(-1), board.MyRank, "no score yet")

	assert.Equal(t, []string{EventSubmitted}, env.broadcaster.types())
}

func TestTimerExpirySubmits(t *testing.T) {
	env := newTestEnv(t)
	view := env.startQuiz(t, alice)

	// Leave everything unanswered and let the clock run out.
	for i := 0; i < 360; i++ {
		env.ticker.tick(t)
	}

	require.Eventually(t, func() bool { return len(env.broadcaster.types()) == 2 }, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, 1, env.attempts.count())

	view, err := env.svc.GetView(alice, view.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PhaseSubmitted, view.Quiz.Phase)
	assert.Zero(t, view.Quiz.TimeRemaining)
	assert.Equal(t, 0, *view.Quiz.Percentage)
	assert.Len(t, view.Quiz.Remediations, 2)

	assert.Equal(t, []string{EventExpired, EventSubmitted}, env.broadcaster.types())
	assert.Equal(t, model.TriggerTimer, env.attempts.attempts[0].Trigger)

	// A late manual submit does not archive twice.
	_, err = env.svc.Submit(alice, view.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, env.attempts.count())

	board, err := env.svc.Scoreboard(context.Background(), alice, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), board.MyRank)
}

func TestRemediationJumpAndResume(t *testing.T) {
	env := newTestEnv(t)
	view := env.startQuiz(t, alice)

	_, err := env.svc.GoToStep(alice, view.ID, 0)
	assert.ErrorIs(t, err, assessment.ErrQuizInProgress)

	view, err = env.svc.Submit(alice, view.ID)
	require.NoError(t, err)
	require.NotEmpty(t, view.Quiz.Remediations)

	target := view.Quiz.Remediations[0].StepIndex
	view, err = env.svc.GoToStep(alice, view.ID, target)
	require.NoError(t, err)
	assert.Equal(t, model.ModeContent, view.Mode)
	assert.Equal(t, target, view.CurrentStep)

	_, err = env.svc.GoToStep(alice, view.ID, 5)
	assert.ErrorIs(t, err, assessment.ErrStepOutOfRange)

	view, err = env.svc.ResumeQuiz(alice, view.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ModeQuiz, view.Mode)
	assert.Equal(t, model.PhaseSubmitted, view.Quiz.Phase)
}

func TestModuleWithoutQuizCompletes(t *testing.T) {
	env := newTestEnv(t)
	view, err := env.svc.OpenView(context.Background(), alice, 2)
	require.NoError(t, err)
	assert.False(t, view.HasQuiz)

	view, err = env.svc.CompleteStep(alice, view.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ModeComplete, view.Mode)

	_, err = env.svc.Submit(alice, view.ID)
	assert.ErrorIs(t, err, assessment.ErrNoQuiz)
	_, _, err = env.svc.Answer(alice, view.ID, 0, "x")
	assert.ErrorIs(t, err, assessment.ErrNoQuiz)
	_, err = env.svc.ResumeQuiz(alice, view.ID)
	assert.ErrorIs(t, err, assessment.ErrNoQuiz)
}

func TestCloseViewDiscardsUngraded(t *testing.T) {
	env := newTestEnv(t)
	view := env.startQuiz(t, alice)

	require.NoError(t, env.svc.CloseView(alice, view.ID))
	assert.Zero(t, env.svc.ViewCount())
	assert.Zero(t, env.attempts.count(), "navigating away never archives")
	assert.Equal(t, []string{view.ID}, env.broadcaster.disconnected)

	_, err := env.svc.GetView(alice, view.ID)
	assert.ErrorIs(t, err, ErrViewNotFound)
}

func TestSweepIdle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	idle, err := env.svc.OpenView(ctx, alice, 2)
	require.NoError(t, err)
	running := env.startQuiz(t, bob)

	*env.clock = env.clock.Add(3 * time.Hour)
	fresh, err := env.svc.OpenView(ctx, alice, 2)
	require.NoError(t, err)

	assert.Equal(t, 1, env.svc.SweepIdle(2*time.Hour))
	assert.Equal(t, 2, env.svc.ViewCount())

	_, err = env.svc.GetView(alice, idle.ID)
	assert.ErrorIs(t, err, ErrViewNotFound)
	_, err = env.svc.GetView(alice, fresh.ID)
	assert.NoError(t, err)
	_, err = env.svc.GetView(bob, running.ID)
	assert.NoError(t, err, "running quizzes are left to their timer")
}

func TestSweeperSchedule(t *testing.T) {
	_, err := NewSweeper(&AssessmentService{}, "not a schedule", time.Minute)
	assert.Error(t, err)

	env := newTestEnv(t)
	_, err = env.svc.OpenView(context.Background(), alice, 2)
	require.NoError(t, err)
	*env.clock = env.clock.Add(time.Hour)

	sw, err := NewSweeper(env.svc, "@every 1h", time.Minute)
	require.NoError(t, err)
	sw.Run()
	assert.Zero(t, env.svc.ViewCount())

	sw.Start()
	<-sw.Stop().Done()
}

func TestAuthService(t *testing.T) {
	auth := NewAuthService("secret")

	token, err := auth.IssueLearnerToken("E100", time.Hour)
	require.NoError(t, err)
	learner, err := auth.ValidateLearnerToken(token)
	require.NoError(t, err)
	assert.Equal(t, "E100", learner.EmployeeCode)
	assert.Equal(t, token, learner.Token)

	_, err = NewAuthService("other").ValidateLearnerToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, err := auth.IssueLearnerToken("E100", -time.Minute)
	require.NoError(t, err)
	_, err = auth.ValidateLearnerToken(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	anonymous, err := auth.IssueLearnerToken("", time.Hour)
	require.NoError(t, err)
	_, err = auth.ValidateLearnerToken(anonymous)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = auth.ValidateLearnerToken("garbage")
	assert.True(t, errors.Is(err, ErrInvalidToken))
}

func TestAttemptsNewestFirst(t *testing.T) {
	env := newTestEnv(t)
	for i := 0; i < 3; i++ {
		view := env.startQuiz(t, alice)
		_, err := env.svc.Submit(alice, view.ID)
		require.NoError(t, err)
		*env.clock = env.clock.Add(time.Minute)
	}

	attempts, err := env.svc.Attempts(context.Background(), alice, 1, 2)
	require.NoError(t, err)
	require.Len(t, attempts, 2)
	times := []time.Time{attempts[0].SubmittedAt, attempts[1].SubmittedAt}
	assert.True(t, sort.SliceIsSorted(times, func(i, j int) bool { return times[i].After(times[j]) }))

	none, err := env.svc.Attempts(context.Background(), bob, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}
