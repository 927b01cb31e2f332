// Package report composes per-student Markdown reports of incorrectly
// answered questions, with the correct choice highlighted green and the
// student's pick highlighted red for the HTML rendering stage.
package report

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/kevinhitt/canvas-grading/internal/gradebook"
	"github.com/kevinhitt/canvas-grading/internal/i18n"
	"github.com/kevinhitt/canvas-grading/internal/model"
)

var unsafeRe = regexp.MustCompile(`[^\p{L}\p{N}_-]`)

// ChoiceView is one lettered choice as shown in a report.
type ChoiceView struct {
	Letter  string
	Text    string
	Correct bool
}

// ResponseMap joins accepted mappings with extracted items, keyed by the
// raw gradebook header each item matched. At most the first four choices
// of an item are shown, mirroring the letter columns of the wide table.
func ResponseMap(items []model.Item, mappings []model.Mapping) map[string][]ChoiceView {
	rm := make(map[string][]ChoiceView)
	for _, m := range mappings {
		if !m.Matched() || m.Group < 0 || m.Group >= len(items) {
			continue
		}
		it := items[m.Group]
		var views []ChoiceView
		for i, c := range it.Choices {
			if i >= model.MaxChoices {
				break
			}
			views = append(views, ChoiceView{
				Letter:  model.Letter(i),
				Text:    c.Text,
				Correct: c.IsCorrect,
			})
		}
		rm[m.Header] = views
	}
	return rm
}

// Write generates one Markdown file per student row in dir. The gradebook's
// flag columns must be binary; a non-binary value aborts the whole batch.
func Write(ctx context.Context, t *gradebook.Table, responses map[string][]ChoiceView, dir string) error {
	if err := t.ValidateFlags(); err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}

	idCol, err := t.Column("id")
	if err != nil {
		return err
	}
	nameCol, err := t.Column("name")
	if err != nil {
		return err
	}

	for _, row := range t.Rows {
		sid, name := row[idCol], row[nameCol]
		body := Compose(ctx, t, responses, row)
		path := filepath.Join(dir, Filename(sid, name))
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			return fmt.Errorf("write report for %s: %w", sid, err)
		}
	}
	slog.Info("generated student reports", "count", len(t.Rows), "dir", dir)
	return nil
}

// Compose builds the Markdown body for a single student row.
func Compose(ctx context.Context, t *gradebook.Table, responses map[string][]ChoiceView, row []string) string {
	lines := []string{
		fmt.Sprintf("# %s – %s", field(t, row, "id"), field(t, row, "name")),
		"### " + field(t, row, "section"),
		"### " + i18n.Td(ctx, "ScoreLine", map[string]any{"Score": field(t, row, "score")}),
		"### " + i18n.T(ctx, "IncorrectHeader"),
		"",
	}

	missed := false
	for seq, p := range t.Pairs {
		cell := strings.TrimSpace(row[p.Flag])
		if cell == "" {
			continue
		}
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil || v != 0 {
			continue
		}
		missed = true
		studAns := strings.TrimSpace(row[p.Question])

		lines = append(lines, fmt.Sprintf("**%s** %s",
			i18n.Td(ctx, "QuestionN", map[string]any{"N": seq + 1}), p.Text))
		for _, cv := range responses[p.Header] {
			display := fmt.Sprintf("%s. %s", cv.Letter, cv.Text)
			if cv.Correct {
				display = fmt.Sprintf(`<span style="color:green;border: 1px solid green;border-radius: 10px;">%s</span>`, display)
			}
			if strings.TrimSpace(cv.Text) == studAns {
				display = fmt.Sprintf(`<span style="color:red">%s</span>`, display)
			}
			lines = append(lines, "  "+display)
		}
		lines = append(lines, "")
	}

	if !missed {
		lines = append(lines, "_"+i18n.T(ctx, "NoIncorrect")+"_")
	}
	return strings.Join(lines, "\n")
}

// Filename builds a filesystem-safe report name for a student.
func Filename(id, name string) string {
	return unsafeRe.ReplaceAllString(id+"_"+name, "_") + ".md"
}

// field returns the named column's value for a row, or "" when the
// gradebook has no such column.
func field(t *gradebook.Table, row []string, name string) string {
	idx, err := t.Column(name)
	if err != nil {
		return ""
	}
	return row[idx]
}
