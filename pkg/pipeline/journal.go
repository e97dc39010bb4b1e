package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// JournalFileName is the append-only audit trail inside a project
// directory, consumed by downstream reporting.
const JournalFileName = "journal.yml"

// Record is one audit entry describing a successful step: which stage
// ran, what it did, and the iteration counters after the step.
type Record struct {
	Stage       string         `yaml:"stage" json:"stage"`
	Description string         `yaml:"description" json:"description"`
	Iteration   map[string]int `yaml:"iteration" json:"iteration"`
	At          time.Time      `yaml:"at" json:"at"`
}

// Journal persists step audit records.
type Journal struct {
	path string
}

// NewJournal creates a journal for the project directory.
func NewJournal(projectDir string) *Journal {
	return &Journal{path: filepath.Join(projectDir, JournalFileName)}
}

// Read returns all records in order. A missing journal is empty, not an
// error.
func (j *Journal) Read() ([]Record, error) {
	data, err := os.ReadFile(j.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read journal: %w", err)
	}

	var recs []Record
	if err := yaml.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("parse journal: %w", err)
	}
	return recs, nil
}

// Append adds a record to the end of the journal.
func (j *Journal) Append(rec Record) error {
	recs, err := j.Read()
	if err != nil {
		return err
	}
	recs = append(recs, rec)

	data, err := yaml.Marshal(recs)
	if err != nil {
		return fmt.Errorf("marshal journal: %w", err)
	}
	return WriteFileAtomic(j.path, data)
}
