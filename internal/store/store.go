// Package store persists the artifacts of a pipeline run in SQLite so an
// operator can inspect questions, mappings, and resolved answers after the
// fact, for example through the inspection server.
package store

import (
	"database/sql"
	"fmt"

	"github.com/kevinhitt/canvas-grading/internal/model"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS questions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		question_id TEXT NOT NULL,
		question_text TEXT NOT NULL,
		position INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS choices (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		question_rowid INTEGER NOT NULL REFERENCES questions(id),
		response_id TEXT NOT NULL,
		text TEXT NOT NULL,
		is_correct INTEGER NOT NULL,
		position INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS mappings (
		grp INTEGER PRIMARY KEY,
		matched_header TEXT,
		score REAL NOT NULL,
		snippet TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS resolutions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		student TEXT NOT NULL,
		header TEXT NOT NULL,
		letter TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS run_metadata (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// ReplaceItems overwrites the stored question bank with items.
func (s *Store) ReplaceItems(items []model.Item) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM choices`); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM questions`); err != nil {
		return err
	}
	for pos, it := range items {
		res, err := tx.Exec(
			`INSERT INTO questions (question_id, question_text, position) VALUES (?, ?, ?)`,
			it.QuestionID, it.QuestionText, pos,
		)
		if err != nil {
			return err
		}
		qid, err := res.LastInsertId()
		if err != nil {
			return err
		}
		for cpos, c := range it.Choices {
			correct := 0
			if c.IsCorrect {
				correct = 1
			}
			_, err := tx.Exec(
				`INSERT INTO choices (question_rowid, response_id, text, is_correct, position)
				 VALUES (?, ?, ?, ?, ?)`,
				qid, c.ResponseID, c.Text, correct, cpos,
			)
			if err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

// ListItems returns the stored question bank in extraction order.
func (s *Store) ListItems() ([]model.Item, error) {
	rows, err := s.db.Query(
		`SELECT id, question_id, question_text FROM questions ORDER BY position`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []model.Item
	var rowids []int64
	for rows.Next() {
		var rowid int64
		var it model.Item
		if err := rows.Scan(&rowid, &it.QuestionID, &it.QuestionText); err != nil {
			return nil, err
		}
		items = append(items, it)
		rowids = append(rowids, rowid)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, rowid := range rowids {
		choices, err := s.listChoices(rowid)
		if err != nil {
			return nil, err
		}
		items[i].Choices = choices
	}
	return items, nil
}

func (s *Store) listChoices(questionRowID int64) ([]model.Choice, error) {
	rows, err := s.db.Query(
		`SELECT response_id, text, is_correct FROM choices
		 WHERE question_rowid = ? ORDER BY position`, questionRowID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var choices []model.Choice
	for rows.Next() {
		var c model.Choice
		var correct int
		if err := rows.Scan(&c.ResponseID, &c.Text, &correct); err != nil {
			return nil, err
		}
		c.IsCorrect = correct == 1
		choices = append(choices, c)
	}
	return choices, rows.Err()
}

// ReplaceMappings overwrites the stored mapping table.
func (s *Store) ReplaceMappings(mappings []model.Mapping) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM mappings`); err != nil {
		return err
	}
	for _, m := range mappings {
		header := sql.NullString{String: m.Header, Valid: m.Matched()}
		_, err := tx.Exec(
			`INSERT INTO mappings (grp, matched_header, score, snippet) VALUES (?, ?, ?, ?)`,
			m.Group, header, m.Score, m.Snippet,
		)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ListMappings returns the stored mapping table in group order.
func (s *Store) ListMappings() ([]model.Mapping, error) {
	rows, err := s.db.Query(
		`SELECT grp, matched_header, score, snippet FROM mappings ORDER BY grp`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var mappings []model.Mapping
	for rows.Next() {
		var m model.Mapping
		var header sql.NullString
		if err := rows.Scan(&m.Group, &header, &m.Score, &m.Snippet); err != nil {
			return nil, err
		}
		m.Header = header.String
		mappings = append(mappings, m)
	}
	return mappings, rows.Err()
}

// ReplaceResolutions overwrites the stored resolved answers.
func (s *Store) ReplaceResolutions(resolutions []model.Resolution) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM resolutions`); err != nil {
		return err
	}
	for _, r := range resolutions {
		_, err := tx.Exec(
			`INSERT INTO resolutions (student, header, letter) VALUES (?, ?, ?)`,
			r.Student, r.Header, r.Letter,
		)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ListResolutions returns the stored resolved answers.
func (s *Store) ListResolutions() ([]model.Resolution, error) {
	rows, err := s.db.Query(
		`SELECT student, header, letter FROM resolutions ORDER BY id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var resolutions []model.Resolution
	for rows.Next() {
		var r model.Resolution
		if err := rows.Scan(&r.Student, &r.Header, &r.Letter); err != nil {
			return nil, err
		}
		resolutions = append(resolutions, r)
	}
	return resolutions, rows.Err()
}
