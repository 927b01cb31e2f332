// Package bank handles the flat question/choice table and its pivot into
// the wide per-question form.
//
// The flat table is the exchange format between the extractor and the rest
// of the pipeline: one row per question with a blank response_id, followed
// by that question's choice rows. The wide table assigns choices to fixed
// letter columns A-D by position.
package bank

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/kevinhitt/canvas-grading/internal/model"
	"github.com/kevinhitt/canvas-grading/internal/textnorm"
)

var flatHeader = []string{"question_id", "response_id", "text", "is_correct"}

var wideHeader = []string{"question_id", "question_text", "A", "B", "C", "D", "correct_label"}

// WriteFlat writes items as the flat CSV table.
func WriteFlat(w io.Writer, items []model.Item) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(flatHeader); err != nil {
		return err
	}
	for _, it := range items {
		if err := cw.Write([]string{it.QuestionID, "", it.QuestionText, ""}); err != nil {
			return err
		}
		for _, c := range it.Choices {
			flag := "0"
			if c.IsCorrect {
				flag = "1"
			}
			if err := cw.Write([]string{it.QuestionID, c.ResponseID, c.Text, flag}); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadFlat reads a flat CSV table back into items, grouping rows by
// question_id in first-appearance order. Groups that never had a question
// row (blank response_id) are dropped with a warning.
func ReadFlat(r io.Reader) ([]model.Item, error) {
	cr := csv.NewReader(r)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read question bank: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("read question bank: empty file")
	}
	if !equalFields(records[0], flatHeader) {
		return nil, fmt.Errorf("read question bank: unexpected header %v", records[0])
	}

	type group struct {
		item        model.Item
		hasQuestion bool
	}
	var order []string
	groups := make(map[string]*group)
	for _, rec := range records[1:] {
		qid, rid, text, correct := rec[0], rec[1], rec[2], rec[3]
		g, ok := groups[qid]
		if !ok {
			g = &group{item: model.Item{QuestionID: qid}}
			groups[qid] = g
			order = append(order, qid)
		}
		if rid == "" {
			if !g.hasQuestion {
				g.item.QuestionText = text
				g.hasQuestion = true
			}
			continue
		}
		g.item.Choices = append(g.item.Choices, model.Choice{
			ResponseID: rid,
			Text:       text,
			IsCorrect:  correct == "1",
		})
	}

	var items []model.Item
	for _, qid := range order {
		g := groups[qid]
		if !g.hasQuestion {
			slog.Warn("skipping group with no question-text row", "question_id", qid)
			continue
		}
		items = append(items, g.item)
	}
	return items, nil
}

// ReadFlatFile reads the flat table at path.
func ReadFlatFile(path string) ([]model.Item, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open question bank: %w", err)
	}
	defer f.Close()
	return ReadFlat(f)
}

// BuildWide pivots items into one wide row per question. Items with zero
// choices are skipped with a warning; items with a choice count other than
// four warn and proceed, truncating to the first four when over.
func BuildWide(items []model.Item) []model.WideQuestion {
	var rows []model.WideQuestion
	for _, it := range items {
		if len(it.Choices) == 0 {
			slog.Warn("no responses for question, skipping", "question_id", it.QuestionID)
			continue
		}
		if len(it.Choices) != model.MaxChoices {
			slog.Warn("unexpected response count",
				"question_id", it.QuestionID,
				"got", len(it.Choices),
				"want", model.MaxChoices)
		}
		row := model.WideQuestion{
			QuestionID:   it.QuestionID,
			QuestionText: strings.TrimSpace(textnorm.StripTags(it.QuestionText)),
			CorrectLabel: it.CorrectLabel(),
		}
		for i, c := range it.Choices {
			if i >= model.MaxChoices {
				break
			}
			row.Options[i] = strings.TrimSpace(c.Text)
		}
		rows = append(rows, row)
	}
	return rows
}

// WriteWide writes the wide table as CSV.
func WriteWide(w io.Writer, rows []model.WideQuestion) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(wideHeader); err != nil {
		return err
	}
	for _, row := range rows {
		rec := []string{row.QuestionID, row.QuestionText}
		rec = append(rec, row.Options[:]...)
		rec = append(rec, row.CorrectLabel)
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadWide reads a wide CSV table.
func ReadWide(r io.Reader) ([]model.WideQuestion, error) {
	cr := csv.NewReader(r)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read wide questions: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("read wide questions: empty file")
	}
	if !equalFields(records[0], wideHeader) {
		return nil, fmt.Errorf("read wide questions: unexpected header %v", records[0])
	}
	var rows []model.WideQuestion
	for _, rec := range records[1:] {
		row := model.WideQuestion{
			QuestionID:   rec[0],
			QuestionText: rec[1],
			CorrectLabel: rec[6],
		}
		copy(row.Options[:], rec[2:6])
		rows = append(rows, row)
	}
	return rows, nil
}

// ReadWideFile reads the wide table at path.
func ReadWideFile(path string) ([]model.WideQuestion, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open wide questions: %w", err)
	}
	defer f.Close()
	return ReadWide(f)
}

func equalFields(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
