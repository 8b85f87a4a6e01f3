package assessment

import (
	"errors"
	"sync"
	"time"

	"trainhub/internal/model"
)

var (
	ErrEmptyQuiz          = errors.New("quiz has no questions")
	ErrQuestionOutOfRange = errors.New("question position out of range")
)

// SessionOptions wires a session to its collaborators
type SessionOptions struct {
	Randomizer *Randomizer
	Ticker     NewTicker
	Steps      []model.ModuleStep // Resolves module_index remediation links
	Now        func() time.Time

	OnTick   func(remaining int)
	OnSubmit func(result model.QuizResult)
}

// Session is one timed attempt at a module's quiz.
// Phase moves not_started -> in_progress -> submitted and never back.
type Session struct {
	mu sync.Mutex

	questions []model.QuizQuestion // Randomized, fixed for the attempt
	answers   map[int]string
	result    *model.QuizResult // nil until submitted
	budget    int
	remaining int
	phase     model.Phase
	closed    bool
	startedAt time.Time

	countdown *Countdown
	opts      SessionOptions
}

// NewSession randomizes questions into a fresh, not yet started attempt
func NewSession(questions []model.QuizQuestion, opts SessionOptions) (*Session, error) {
	if len(questions) == 0 {
		return nil, ErrEmptyQuiz
	}
	if opts.Randomizer == nil {
		opts.Randomizer = NewRandomizer(nil)
	}
	if opts.Ticker == nil {
		opts.Ticker = SecondTicker
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	shuffled := opts.Randomizer.Shuffle(questions)
	budget := Budget(shuffled)
	return &Session{
		questions: shuffled,
		answers:   make(map[int]string),
		budget:    budget,
		remaining: budget,
		phase:     model.PhaseNotStarted,
		opts:      opts,
	}, nil
}

// Start puts the session in progress and starts the countdown
func (s *Session) Start() {
	s.mu.Lock()
	if s.phase != model.PhaseNotStarted || s.closed {
		s.mu.Unlock()
		return
	}
	s.phase = model.PhaseInProgress
	s.startedAt = s.opts.Now()
	s.countdown = NewCountdown(s.budget, s.opts.Ticker(), s.handleTick, s.handleExpire)
	cd := s.countdown
	s.mu.Unlock()

	cd.Start()
}

func (s *Session) handleTick(remaining int) {
	s.mu.Lock()
	if s.phase != model.PhaseInProgress || s.closed {
		s.mu.Unlock()
		return
	}
	s.remaining = remaining
	onTick := s.opts.OnTick
	s.mu.Unlock()

	if onTick != nil {
		onTick(remaining)
	}
}

func (s *Session) handleExpire() {
	s.Submit(model.TriggerTimer)
}

// Answer records the answer at pos. Answers are only taken while the
// session is in progress; otherwise the call is ignored and reports false.
func (s *Session) Answer(pos int, value string) (bool, error) {
	if pos < 0 || pos >= len(s.questions) {
		return false, ErrQuestionOutOfRange
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != model.PhaseInProgress || s.closed {
		return false, nil
	}
	s.answers[pos] = value
	return true, nil
}

// Submit grades the attempt and freezes it. Only the first call while in
// progress grades; every later call (timer or manual) returns the stored
// result and false.
func (s *Session) Submit(trigger model.SubmitTrigger) (model.QuizResult, bool) {
	s.mu.Lock()
	if s.phase == model.PhaseSubmitted {
		res := *s.result
		s.mu.Unlock()
		return res, false
	}
	if s.phase != model.PhaseInProgress || s.closed {
		s.mu.Unlock()
		return model.QuizResult{}, false
	}

	grades := GradeAll(s.questions, s.answers)
	total, pct := Summarize(grades)
	s.result = &model.QuizResult{
		Grades:      grades,
		Total:       total,
		Percentage:  pct,
		Trigger:     trigger,
		SubmittedAt: s.opts.Now(),
	}
	s.phase = model.PhaseSubmitted
	if trigger == model.TriggerTimer {
		s.remaining = 0
	}
	res := *s.result
	cd := s.countdown
	onSubmit := s.opts.OnSubmit
	s.mu.Unlock()

	if cd != nil {
		cd.Stop()
	}
	if onSubmit != nil {
		onSubmit(res)
	}
	return res, true
}

// Close tears the session down without grading it
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	cd := s.countdown
	s.mu.Unlock()

	if cd != nil {
		cd.Stop()
	}
}

// Phase returns the current phase
func (s *Session) Phase() model.Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Remaining returns the seconds left, frozen once submitted
func (s *Session) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remaining
}

// Budget returns the seconds allotted at the start
func (s *Session) Budget() int {
	return s.budget
}

// StartedAt returns when the session went in progress
func (s *Session) StartedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startedAt
}

// Questions returns a copy of the randomized question set
func (s *Session) Questions() []model.QuizQuestion {
	out := make([]model.QuizQuestion, len(s.questions))
	for i, q := range s.questions {
		out[i] = q.Clone()
	}
	return out
}

// Answers returns a copy of the answer map
func (s *Session) Answers() map[int]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int]string, len(s.answers))
	for k, v := range s.answers {
		out[k] = v
	}
	return out
}

// Result returns the graded result once submitted
func (s *Session) Result() (model.QuizResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return model.QuizResult{}, false
	}
	return *s.result, true
}

// Remediations lists, for every missed question whose module_index
// names an existing step, a pointer back to that step. Empty before
// submission.
func (s *Session) Remediations() []model.Remediation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remediationsLocked()
}

func (s *Session) remediationsLocked() []model.Remediation {
	if s.result == nil {
		return nil
	}
	var out []model.Remediation
	for i, g := range s.result.Grades {
		if g.Correct {
			continue
		}
		idx := s.questions[i].ModuleIndex
		if idx == nil || *idx < 0 || *idx >= len(s.opts.Steps) {
			continue
		}
		out = append(out, model.Remediation{
			Position:  i,
			StepIndex: *idx,
			StepTitle: s.opts.Steps[*idx].Title,
		})
	}
	return out
}

// View is the learner-facing snapshot: no correct answers or
// explanations, grades only after submission
func (s *Session) View() model.QuizView {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := model.QuizView{
		Phase:         s.phase,
		Questions:     make([]model.PublicQuestion, len(s.questions)),
		Answers:       make(map[int]string, len(s.answers)),
		TimeRemaining: s.remaining,
		TimeDisplay:   FormatRemaining(s.remaining),
		LowTime:       IsLowTime(s.remaining),
		MaxScore:      len(s.questions),
	}
	for i, q := range s.questions {
		v.Questions[i] = q.Public()
	}
	for k, a := range s.answers {
		v.Answers[k] = a
	}

	if s.result != nil {
		v.Results = make(map[int]bool, len(s.result.Grades))
		v.Scores = make(map[int]float64, len(s.result.Grades))
		for i, g := range s.result.Grades {
			v.Results[i] = g.Correct
			v.Scores[i] = g.Score
		}
		total, pct := s.result.Total, s.result.Percentage
		v.Total = &total
		v.Percentage = &pct
		v.Remediations = s.remediationsLocked()
	}
	return v
}
