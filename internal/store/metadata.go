package store

import (
	"database/sql"
	"strconv"

	"github.com/kevinhitt/canvas-grading/internal/model"
)

// SetMetadata upserts a key-value pair in the run_metadata table.
func (s *Store) SetMetadata(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO run_metadata (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = ?`,
		key, value, value,
	)
	return err
}

// GetMetadata returns the value for a metadata key.
// Returns empty string and nil error if the key is missing.
func (s *Store) GetMetadata(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM run_metadata WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// SetRunInfo stores all RunInfo fields as metadata rows.
func (s *Store) SetRunInfo(info model.RunInfo) error {
	pairs := []struct{ k, v string }{
		{"source_xml", info.SourceXML},
		{"gradebook", info.Gradebook},
		{"threshold", strconv.FormatFloat(info.Threshold, 'f', -1, 64)},
		{"fuzzy_threshold", strconv.FormatFloat(info.FuzzyThreshold, 'f', -1, 64)},
		{"completed_at", info.CompletedAt},
	}
	for _, p := range pairs {
		if err := s.SetMetadata(p.k, p.v); err != nil {
			return err
		}
	}
	return nil
}

// GetRunInfo reads all RunInfo fields from metadata.
func (s *Store) GetRunInfo() (model.RunInfo, error) {
	var info model.RunInfo
	var err error

	if info.SourceXML, err = s.GetMetadata("source_xml"); err != nil {
		return info, err
	}
	if info.Gradebook, err = s.GetMetadata("gradebook"); err != nil {
		return info, err
	}
	if info.CompletedAt, err = s.GetMetadata("completed_at"); err != nil {
		return info, err
	}
	th, err := s.GetMetadata("threshold")
	if err != nil {
		return info, err
	}
	if th != "" {
		if info.Threshold, err = strconv.ParseFloat(th, 64); err != nil {
			return info, err
		}
	}
	fth, err := s.GetMetadata("fuzzy_threshold")
	if err != nil {
		return info, err
	}
	if fth != "" {
		if info.FuzzyThreshold, err = strconv.ParseFloat(fth, 64); err != nil {
			return info, err
		}
	}
	return info, nil
}
