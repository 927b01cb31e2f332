// Package match aligns extracted questions with gradebook column headers.
//
// The two sources share no key: the exam XML identifies questions by opaque
// idents while the gradebook uses human-entered "id: question text" labels.
// Matching is therefore by similarity of normalized text, with a threshold
// below which an item is left unmatched. Unmatched items are kept in the
// output so an operator can review near misses.
package match

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/kevinhitt/canvas-grading/internal/model"
	"github.com/kevinhitt/canvas-grading/internal/textnorm"
)

const snippetRunes = 60

var mappingHeader = []string{"xml_group", "matched_header", "score", "xml_snippet"}

// Candidate is one gradebook question header offered to the matcher.
type Candidate struct {
	Header string // raw header text
	Norm   string // normalized text after the leading "id:" prefix
}

// NewCandidate builds a candidate from a raw header. Only the text after
// the first ":" is semantically meaningful; the whole header is used when
// there is none.
func NewCandidate(header string) Candidate {
	body := header
	if _, after, ok := strings.Cut(header, ":"); ok {
		body = after
	}
	return Candidate{Header: header, Norm: textnorm.Normalize(body)}
}

// Map produces one mapping per item against the candidate headers. The
// best-scoring candidate is accepted when its ratio reaches threshold;
// otherwise the mapping is recorded unmatched with the score it did reach.
// Ties resolve to the first candidate in input order.
func Map(items []model.Item, cands []Candidate, threshold float64) []model.Mapping {
	mappings := make([]model.Mapping, 0, len(items))
	for i, it := range items {
		norm := textnorm.Normalize(it.QuestionText)
		var bestHeader string
		var bestScore float64
		for _, c := range cands {
			if score := textnorm.Ratio(norm, c.Norm); score > bestScore {
				bestHeader, bestScore = c.Header, score
			}
		}
		m := model.Mapping{
			Group:   i,
			Score:   bestScore,
			Snippet: snippet(it.QuestionText),
		}
		if bestScore >= threshold {
			m.Header = bestHeader
		}
		mappings = append(mappings, m)
	}
	return mappings
}

func snippet(raw string) string {
	r := []rune(raw)
	if len(r) > snippetRunes {
		r = r[:snippetRunes]
	}
	return string(r) + "…"
}

// WriteCSV writes the mapping table. Unmatched headers are written empty.
func WriteCSV(w io.Writer, mappings []model.Mapping) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(mappingHeader); err != nil {
		return err
	}
	for _, m := range mappings {
		rec := []string{
			strconv.Itoa(m.Group),
			m.Header,
			strconv.FormatFloat(m.Score, 'f', 3, 64),
			m.Snippet,
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV reads a mapping table back.
func ReadCSV(r io.Reader) ([]model.Mapping, error) {
	cr := csv.NewReader(r)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read question mapping: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("read question mapping: empty file")
	}
	if len(records[0]) != len(mappingHeader) || records[0][0] != mappingHeader[0] {
		return nil, fmt.Errorf("read question mapping: unexpected header %v", records[0])
	}
	var mappings []model.Mapping
	for _, rec := range records[1:] {
		group, err := strconv.Atoi(rec[0])
		if err != nil {
			return nil, fmt.Errorf("read question mapping: bad group %q: %w", rec[0], err)
		}
		score, err := strconv.ParseFloat(rec[2], 64)
		if err != nil {
			return nil, fmt.Errorf("read question mapping: bad score %q: %w", rec[2], err)
		}
		mappings = append(mappings, model.Mapping{
			Group:   group,
			Header:  rec[1],
			Score:   score,
			Snippet: rec[3],
		})
	}
	return mappings, nil
}

// ReadFile reads the mapping table at path.
func ReadFile(path string) ([]model.Mapping, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open question mapping: %w", err)
	}
	defer f.Close()
	return ReadCSV(f)
}
