package model

// MaxChoices is the number of letter columns (A-D) in the wide question table.
const MaxChoices = 4

// Letter returns the choice letter for a zero-based position ("A" for 0).
func Letter(pos int) string {
	return string(rune('A' + pos))
}

// Choice is one selectable answer option within an Item.
type Choice struct {
	ResponseID string
	Text       string
	IsCorrect  bool
}

// Item is one exam question plus its choices, in document order.
type Item struct {
	QuestionID   string
	QuestionText string
	Choices      []Choice
}

// CorrectLabel returns the letter of the first correct choice, or "".
func (it Item) CorrectLabel() string {
	for i, c := range it.Choices {
		if c.IsCorrect {
			return Letter(i)
		}
	}
	return ""
}

// Mapping associates one extracted item with a gradebook question header.
// An empty Header means no candidate scored at or above the threshold; the
// score is still recorded so an operator can inspect near misses.
type Mapping struct {
	Group   int     // zero-based item index in extraction order
	Header  string  // raw gradebook header, "" when unmatched
	Score   float64 // similarity ratio in [0,1]
	Snippet string  // leading runes of the raw question text, for review
}

// Matched reports whether the mapping cleared the acceptance threshold.
func (m Mapping) Matched() bool {
	return m.Header != ""
}

// WideQuestion is one row of the wide question table: choices pivoted into
// fixed letter columns by position.
type WideQuestion struct {
	QuestionID   string
	QuestionText string
	Options      [MaxChoices]string
	CorrectLabel string
}

// LetterOptions returns the non-empty options as ordered (letter, text)
// pairs, the shape the answer resolver consumes.
func (w WideQuestion) LetterOptions() []Option {
	var opts []Option
	for i, text := range w.Options {
		if text != "" {
			opts = append(opts, Option{Letter: Letter(i), Text: text})
		}
	}
	return opts
}

// Option is one lettered answer option offered to the resolver.
type Option struct {
	Letter string
	Text   string
}

// Config holds the reconciliation parameters for one pipeline run.
// Zero values are not usable; build it with DefaultConfig and override.
type Config struct {
	// Threshold is the minimum question-to-header similarity ratio for a
	// mapping to be accepted.
	Threshold float64
	// FuzzyThreshold is the minimum answer-to-choice similarity ratio for
	// the fuzzy pass of the letter resolver.
	FuzzyThreshold float64
	// FrontColumns are the leading identity columns of the gradebook.
	FrontColumns []string
	// SummaryColumns are the trailing summary columns of the gradebook.
	SummaryColumns []string
	// Strict requires every question header to carry an "id:" prefix.
	Strict bool
}

// DefaultConfig returns the documented defaults for a Canvas export.
func DefaultConfig() Config {
	return Config{
		Threshold:      0.75,
		FuzzyThreshold: 0.75,
		FrontColumns: []string{
			"name", "id", "sis_id", "section", "section_id",
			"section_sis_id", "submitted", "attempt",
		},
		SummaryColumns: []string{"n correct", "n incorrect", "score"},
	}
}

// Resolution is one student's resolved letter for one gradebook question.
type Resolution struct {
	Student string
	Header  string
	Letter  string
}

// RunInfo describes one recorded pipeline run.
type RunInfo struct {
	SourceXML      string
	Gradebook      string
	Threshold      float64
	FuzzyThreshold float64
	CompletedAt    string
}
