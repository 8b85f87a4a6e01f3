package assessment

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"trainhub/internal/model"
)

// minPartialCredit is the floor for any in-tolerance numerical answer
const minPartialCredit = 0.5

// Grade scores one submitted answer against its question. It never
// fails: anything unparseable is simply wrong.
func Grade(q model.QuizQuestion, answer string) model.Grade {
	switch q.Type {
	case model.QuestionTypeFill:
		return gradeFill(q, answer)
	case model.QuestionTypeNumerical:
		return gradeNumerical(q, answer)
	default:
		return gradeMCQ(q, answer)
	}
}

func gradeMCQ(q model.QuizQuestion, answer string) model.Grade {
	return fullOrNothing(answer == q.CorrectAnswer)
}

func gradeFill(q model.QuizQuestion, answer string) model.Grade {
	given := strings.TrimSpace(strings.ToLower(answer))
	want := strings.TrimSpace(strings.ToLower(q.CorrectAnswer))
	return fullOrNothing(given == want)
}

// maxExactExponent bounds the decimal path. Rescaling to a common
// exponent costs about 10^|exp|, so anything beyond is compared as float64.
const maxExactExponent = 64

// gradeNumerical gives full credit for an exact value, linear partial
// credit down to 0.5 inside the tolerance band, nothing outside it
func gradeNumerical(q model.QuizQuestion, answer string) model.Grade {
	givenText := strings.TrimSpace(answer)
	wantText := strings.TrimSpace(q.CorrectAnswer)

	given, err := decimal.NewFromString(givenText)
	if err != nil {
		return model.Grade{}
	}
	want, err := decimal.NewFromString(wantText)
	if err != nil {
		// Authoring error; the question cannot be answered correctly.
		return model.Grade{}
	}

	tol := 0.0
	if q.Tolerance > 0 && !math.IsInf(q.Tolerance, 0) {
		tol = q.Tolerance
	}
	tolerance := decimal.NewFromFloat(tol)

	if !exactRange(given) || !exactRange(want) || !exactRange(tolerance) {
		return gradeFloat(givenText, wantText, tol)
	}

	diff := given.Sub(want).Abs()
	switch {
	case diff.GreaterThan(tolerance):
		return model.Grade{}
	case diff.IsZero():
		return model.Grade{Correct: true, Score: 1}
	}
	return partialCredit(diff.Div(tolerance).InexactFloat64())
}

func exactRange(d decimal.Decimal) bool {
	exp := d.Exponent()
	return exp >= -maxExactExponent && exp <= maxExactExponent
}

// gradeFloat grades values whose exponent is out of exactRange. A value
// that overflows float64 is wrong; one that underflows reads as zero.
func gradeFloat(givenText, wantText string, tolerance float64) model.Grade {
	given, ok := parseFinite(givenText)
	if !ok {
		return model.Grade{}
	}
	want, ok := parseFinite(wantText)
	if !ok {
		return model.Grade{}
	}

	diff := math.Abs(given - want)
	switch {
	case math.IsInf(diff, 0) || diff > tolerance:
		return model.Grade{}
	case diff == 0:
		return model.Grade{Correct: true, Score: 1}
	}
	return partialCredit(diff / tolerance)
}

func parseFinite(s string) (float64, bool) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

func partialCredit(ratio float64) model.Grade {
	return model.Grade{
		Correct: true,
		Score:   math.Max(minPartialCredit, 1-minPartialCredit*ratio),
	}
}

func fullOrNothing(ok bool) model.Grade {
	if ok {
		return model.Grade{Correct: true, Score: 1}
	}
	return model.Grade{}
}

// GradeAll grades every position. A missing answer grades as "".
func GradeAll(questions []model.QuizQuestion, answers map[int]string) []model.Grade {
	grades := make([]model.Grade, len(questions))
	for i, q := range questions {
		grades[i] = Grade(q, answers[i])
	}
	return grades
}

// Summarize totals the scores and turns them into a rounded percentage
// of the question count. No questions is 0%.
func Summarize(grades []model.Grade) (total float64, percentage int) {
	for _, g := range grades {
		total += g.Score
	}
	if len(grades) == 0 {
		return total, 0
	}
	return total, int(math.Round(100 * total / float64(len(grades))))
}
