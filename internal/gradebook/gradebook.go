// Package gradebook loads the per-student CSV export and validates its
// column layout against an explicit schema: configured identity columns,
// configured trailing summary columns, and everything between as
// alternating (question header, correctness flag) pairs. A layout that
// does not fit the schema fails at load time rather than being guessed at.
package gradebook

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/kevinhitt/canvas-grading/internal/model"
)

// Pair is one (question header, flag) column pair.
type Pair struct {
	Question int    // index of the question column
	Flag     int    // index of the flag column
	Header   string // raw question header
	Text     string // header text after the leading "id:" prefix
}

// Table is a loaded gradebook: the raw grid plus the resolved schema.
type Table struct {
	Columns []string
	Rows    [][]string
	Pairs   []Pair
}

// Load reads a gradebook CSV and resolves its schema from cfg. With
// cfg.Strict set, every question header must carry an "id:" prefix.
func Load(r io.Reader, cfg model.Config) (*Table, error) {
	cr := csv.NewReader(r)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read gradebook: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("read gradebook: empty file")
	}

	t := &Table{Columns: records[0], Rows: records[1:]}

	known := make(map[string]bool)
	for _, c := range append(append([]string{}, cfg.FrontColumns...), cfg.SummaryColumns...) {
		known[strings.ToLower(strings.TrimSpace(c))] = true
	}
	var middle []int
	for i, col := range t.Columns {
		if !known[strings.ToLower(strings.TrimSpace(col))] {
			middle = append(middle, i)
		}
	}
	if len(middle)%2 != 0 {
		return nil, fmt.Errorf("gradebook shape mismatch: %d question/flag columns do not pair up", len(middle))
	}

	for i := 0; i < len(middle); i += 2 {
		header := t.Columns[middle[i]]
		body, hasID := header, false
		if _, after, ok := strings.Cut(header, ":"); ok {
			body, hasID = after, true
		}
		if cfg.Strict && !hasID {
			return nil, fmt.Errorf("question header %q missing %q", header, ":")
		}
		t.Pairs = append(t.Pairs, Pair{
			Question: middle[i],
			Flag:     middle[i+1],
			Header:   header,
			Text:     strings.TrimSpace(body),
		})
	}
	return t, nil
}

// LoadFile loads the gradebook CSV at path.
func LoadFile(path string, cfg model.Config) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gradebook: %w", err)
	}
	defer f.Close()
	t, err := Load(f, cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// ValidateFlags checks that every flag cell holds 0, 1, or blank.
func (t *Table) ValidateFlags() error {
	for _, p := range t.Pairs {
		for _, row := range t.Rows {
			cell := strings.TrimSpace(row[p.Flag])
			if cell == "" {
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil || (v != 0 && v != 1) {
				return fmt.Errorf("flag column %q has non-binary value %q", t.Columns[p.Flag], cell)
			}
		}
	}
	return nil
}

// Column returns the index of the named column, matching case-insensitively.
func (t *Table) Column(name string) (int, error) {
	for i, col := range t.Columns {
		if strings.EqualFold(strings.TrimSpace(col), name) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("gradebook column %q not found", name)
}

// Write writes the table, including any rewritten flag cells, as CSV.
func (t *Table) Write(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return err
	}
	for _, row := range t.Rows {
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
