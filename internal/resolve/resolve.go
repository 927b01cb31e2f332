// Package resolve maps a student's free-text submitted answer back to a
// canonical choice letter.
package resolve

import (
	"log/slog"

	"github.com/kevinhitt/canvas-grading/internal/gradebook"
	"github.com/kevinhitt/canvas-grading/internal/model"
	"github.com/kevinhitt/canvas-grading/internal/textnorm"
)

// Resolver resolves raw answers against one question's lettered options.
// Options keep their letter order, so ties resolve to the first letter seen.
type Resolver struct {
	opts      []model.Option
	norms     []string
	threshold float64
}

// New builds a resolver for the given ordered options. threshold is the
// minimum similarity ratio accepted by the fuzzy pass.
func New(opts []model.Option, threshold float64) *Resolver {
	norms := make([]string, len(opts))
	for i, o := range opts {
		norms[i] = textnorm.Normalize(o.Text)
	}
	return &Resolver{opts: opts, norms: norms, threshold: threshold}
}

// Resolve returns the letter for a raw answer, or "" when unresolved.
// An exact match on normalized text wins outright, even when another
// option scores higher on the fuzzy ratio; otherwise the best-scoring
// option wins only if it reaches the threshold. An empty normalized
// answer resolves to "" without any comparison.
func (r *Resolver) Resolve(raw string) string {
	norm := textnorm.Normalize(raw)
	if norm == "" {
		return ""
	}
	for i, n := range r.norms {
		if n == norm {
			return r.opts[i].Letter
		}
	}
	var bestLetter string
	var bestScore float64
	for i, n := range r.norms {
		if score := textnorm.Ratio(norm, n); score > bestScore {
			bestLetter, bestScore = r.opts[i].Letter, score
		}
	}
	if bestScore >= r.threshold {
		return bestLetter
	}
	return ""
}

// Rewrite replaces every flag cell of the gradebook with the letter the
// student's submitted answer resolves to, matching each question header to
// a wide-table row by normalized question text. Headers with no wide-table
// entry are warned about and their flag column blanked.
func Rewrite(t *gradebook.Table, wide []model.WideQuestion, threshold float64) {
	byText := make(map[string][]model.Option, len(wide))
	for _, w := range wide {
		if norm := textnorm.Normalize(w.QuestionText); norm != "" {
			byText[norm] = w.LetterOptions()
		}
	}

	for _, p := range t.Pairs {
		opts, ok := byText[textnorm.Normalize(p.Text)]
		if !ok {
			slog.Warn("no matching question text for header", "header", p.Header)
			for _, row := range t.Rows {
				row[p.Flag] = ""
			}
			continue
		}
		r := New(opts, threshold)
		for _, row := range t.Rows {
			row[p.Flag] = r.Resolve(row[p.Question])
		}
	}
}
