package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

const alertsDirName = "alerts"

// Alert is the persisted, human-actionable record written when a
// provider reports quota exhaustion. The loop never deletes alerts;
// operators acknowledge them with `conveyor alerts ack`.
type Alert struct {
	Provider       string    `yaml:"provider" json:"provider"`
	Model          string    `yaml:"model,omitempty" json:"model,omitempty"`
	Reason         string    `yaml:"reason" json:"reason"`
	Timestamp      time.Time `yaml:"timestamp" json:"timestamp"`
	RequiredAction string    `yaml:"required_action" json:"required_action"`
	Snapshot       *State    `yaml:"state_snapshot,omitempty" json:"state_snapshot,omitempty"`
}

// AlertFile pairs a persisted alert with its file name.
type AlertFile struct {
	Name  string
	Alert *Alert
}

// AlertStore reads and writes quota alerts under <project>/alerts.
type AlertStore struct {
	dir string
}

// NewAlertStore creates an alert store for the project directory.
func NewAlertStore(projectDir string) *AlertStore {
	return &AlertStore{dir: filepath.Join(projectDir, alertsDirName)}
}

// Write persists a new alert and returns its path.
func (a *AlertStore) Write(alert *Alert) (string, error) {
	if err := os.MkdirAll(a.dir, 0755); err != nil {
		return "", fmt.Errorf("create alerts directory: %w", err)
	}

	data, err := yaml.Marshal(alert)
	if err != nil {
		return "", fmt.Errorf("marshal alert: %w", err)
	}

	name := fmt.Sprintf("quota-%s.yml", alert.Timestamp.UTC().Format("20060102T150405Z"))
	path := filepath.Join(a.dir, name)
	if err := WriteFileAtomic(path, data); err != nil {
		return "", fmt.Errorf("write alert: %w", err)
	}
	return path, nil
}

// List returns all pending alerts, oldest first.
func (a *AlertStore) List() ([]AlertFile, error) {
	entries, err := os.ReadDir(a.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read alerts directory: %w", err)
	}

	var alerts []AlertFile
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".yml" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(a.dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read alert %s: %w", entry.Name(), err)
		}
		var alert Alert
		if err := yaml.Unmarshal(data, &alert); err != nil {
			return nil, fmt.Errorf("parse alert %s: %w", entry.Name(), err)
		}
		alerts = append(alerts, AlertFile{Name: entry.Name(), Alert: &alert})
	}

	sort.Slice(alerts, func(i, j int) bool {
		return alerts[i].Alert.Timestamp.Before(alerts[j].Alert.Timestamp)
	})
	return alerts, nil
}

// Ack removes an acknowledged alert by file name.
func (a *AlertStore) Ack(name string) error {
	path := filepath.Join(a.dir, filepath.Base(name))
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("no such alert: %s", name)
		}
		return fmt.Errorf("remove alert: %w", err)
	}
	return nil
}
