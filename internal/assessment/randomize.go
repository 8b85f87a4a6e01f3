package assessment

import (
	"math/rand/v2"
	"sync"

	"trainhub/internal/model"
)

// Randomizer derives the presentation order of a quiz attempt
type Randomizer struct {
	mu  sync.Mutex
	rng *rand.Rand // nil uses the auto-seeded global source
}

// NewRandomizer creates a randomizer over src. A nil src uses the
// runtime's auto-seeded generator.
func NewRandomizer(src rand.Source) *Randomizer {
	if src == nil {
		return &Randomizer{}
	}
	return &Randomizer{rng: rand.New(src)}
}

// Shuffle returns a deep copy of questions with the question order and
// every MCQ's options independently permuted. The input is not touched;
// correct answers and module_index travel with their question.
func (r *Randomizer) Shuffle(questions []model.QuizQuestion) []model.QuizQuestion {
	out := make([]model.QuizQuestion, len(questions))
	for i, q := range questions {
		out[i] = q.Clone()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	for i := range out {
		if !out[i].IsMCQ() || len(out[i].Options) < 2 {
			continue
		}
		opts := out[i].Options
		r.shuffle(len(opts), func(a, b int) {
			opts[a], opts[b] = opts[b], opts[a]
		})
	}
	return out
}

// shuffle is Fisher-Yates via the configured source
func (r *Randomizer) shuffle(n int, swap func(i, j int)) {
	if r.rng != nil {
		r.rng.Shuffle(n, swap)
		return
	}
	rand.Shuffle(n, swap)
}
