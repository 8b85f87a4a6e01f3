package assessment

import (
	"errors"
	"sort"
	"sync"

	"trainhub/internal/model"
)

var (
	ErrStepOutOfRange  = errors.New("step index out of range")
	ErrNoQuiz          = errors.New("no quiz started for this module")
	ErrQuizInProgress  = errors.New("quiz in progress")
	ErrQuizSubmitted   = errors.New("quiz already submitted")
	ErrModuleCompleted = errors.New("module already completed")
)

// Viewer walks a learner through a module's content steps and hands
// over to the timed quiz after the last one
type Viewer struct {
	mu sync.Mutex

	id        string
	module    *model.Module
	questions []model.QuizQuestion // As fetched; never mutated
	current   int
	completed map[int]bool
	mode      model.ViewMode
	session   *Session
	opts      SessionOptions
}

// NewViewer opens a module visit positioned on the first step
func NewViewer(id string, module *model.Module, opts SessionOptions) *Viewer {
	opts.Steps = module.Steps
	return &Viewer{
		id:        id,
		module:    module,
		questions: ParseQuizData(module.QuizData),
		completed: make(map[int]bool),
		mode:      model.ModeContent,
		opts:      opts,
	}
}

// ID returns the visit identifier
func (v *Viewer) ID() string {
	return v.id
}

// Module returns the module being viewed
func (v *Viewer) Module() *model.Module {
	return v.module
}

// Mode returns which screen is showing
func (v *Viewer) Mode() model.ViewMode {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.mode
}

// Quiz returns the assessment session, nil until the content is done
func (v *Viewer) Quiz() *Session {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.session
}

// CompleteStep marks the current step done and moves on. After the
// last step it starts the quiz, or completes the module when the quiz
// has no questions. It returns the session when this call started it.
func (v *Viewer) CompleteStep() (*Session, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	switch v.mode {
	case model.ModeComplete:
		return nil, ErrModuleCompleted
	case model.ModeQuiz:
		if v.session != nil && v.session.Phase() == model.PhaseSubmitted {
			return nil, ErrQuizSubmitted
		}
		return nil, ErrQuizInProgress
	}

	if len(v.module.Steps) > 0 {
		v.completed[v.current] = true
	}
	if v.current < len(v.module.Steps)-1 {
		v.current++
		return nil, nil
	}

	if len(v.questions) == 0 {
		v.mode = model.ModeComplete
		return nil, nil
	}

	// Coming back through the content after a remediation jump
	// returns to the same attempt.
	if v.session != nil {
		v.mode = model.ModeQuiz
		return nil, nil
	}

	session, err := NewSession(v.questions, v.opts)
	if err != nil {
		return nil, err
	}
	v.session = session
	v.mode = model.ModeQuiz
	session.Start()
	return session, nil
}

// GoToStep moves the cursor to a content step, e.g. following a
// remediation link. The quiz state is left alone.
func (v *Viewer) GoToStep(idx int) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.module.HasStep(idx) {
		return ErrStepOutOfRange
	}
	if v.session != nil && v.session.Phase() == model.PhaseInProgress {
		return ErrQuizInProgress
	}
	v.current = idx
	v.mode = model.ModeContent
	return nil
}

// ResumeQuiz switches back to the quiz screen
func (v *Viewer) ResumeQuiz() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.session == nil {
		return ErrNoQuiz
	}
	v.mode = model.ModeQuiz
	return nil
}

// Close discards the visit; a running quiz is stopped ungraded
func (v *Viewer) Close() {
	v.mu.Lock()
	session := v.session
	v.mu.Unlock()
	if session != nil {
		session.Close()
	}
}

// View renders the visit for the presentation layer
func (v *Viewer) View() model.ModuleView {
	v.mu.Lock()
	defer v.mu.Unlock()

	mv := model.ModuleView{
		ID:             v.id,
		ModuleID:       v.module.ID,
		Title:          v.module.Title,
		Description:    v.module.Description,
		Objectives:     v.module.Objectives,
		Mode:           v.mode,
		StepCount:      len(v.module.Steps),
		CurrentStep:    v.current,
		CompletedSteps: make([]int, 0, len(v.completed)),
		HasQuiz:        len(v.questions) > 0,
	}
	for idx := range v.completed {
		mv.CompletedSteps = append(mv.CompletedSteps, idx)
	}
	sort.Ints(mv.CompletedSteps)

	if v.module.HasStep(v.current) {
		step := v.module.Steps[v.current]
		mv.Step = &step
	}
	if v.session != nil {
		qv := v.session.View()
		mv.Quiz = &qv
	}
	return mv
}
