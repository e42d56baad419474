package reporting

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Storage persists per-run artifacts under outputDir/<run_id>/, trimming to
// the last keepLastN runs by start time, the same retention shape the
// teacher's report storage used for flat report files.
type Storage struct {
	outputDir string
	keepLastN int
	logger    *Logger
}

// NewStorage creates a storage root, creating outputDir if necessary.
func NewStorage(outputDir string, keepLastN int, logger *Logger) (*Storage, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &Storage{outputDir: outputDir, keepLastN: keepLastN, logger: logger}, nil
}

func (s *Storage) runDir(runID string) string {
	return filepath.Join(s.outputDir, runID)
}

// SaveArtifact writes one of the four per-run artifacts and returns its path.
func (s *Storage) SaveArtifact(runID string, kind ArtifactKind, v interface{}) (string, error) {
	dir := s.runDir(runID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create run directory: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("%s.%s", kind, kind.fileExt()))

	var data []byte
	var err error
	if kind.fileExt() == "json" {
		data, err = json.MarshalIndent(v, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to marshal %s: %w", kind, err)
		}
	} else {
		var buf bytes.Buffer
		if err := gob.NewEncoder(&buf).Encode(v); err != nil {
			return "", fmt.Errorf("failed to gob-encode %s: %w", kind, err)
		}
		data = buf.Bytes()
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", kind, err)
	}

	s.logger.Info("artifact saved", "run_id", runID, "kind", string(kind), "path", path)

	if s.keepLastN > 0 {
		if err := s.cleanupOldRuns(); err != nil {
			s.logger.Warn("failed to cleanup old runs", "error", err)
		}
	}

	return path, nil
}

// LoadArtifact reads one of the four per-run artifacts into v.
func (s *Storage) LoadArtifact(runID string, kind ArtifactKind, v interface{}) error {
	path := filepath.Join(s.runDir(runID), fmt.Sprintf("%s.%s", kind, kind.fileExt()))
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", kind, err)
	}

	if kind.fileExt() == "json" {
		if err := json.Unmarshal(data, v); err != nil {
			return fmt.Errorf("failed to unmarshal %s: %w", kind, err)
		}
		return nil
	}

	buf := bytes.NewReader(data)
	if err := gob.NewDecoder(buf).Decode(v); err != nil {
		return fmt.Errorf("failed to gob-decode %s: %w", kind, err)
	}
	return nil
}

// ListRuns lists all run directories under the storage root, newest first.
func (s *Storage) ListRuns() ([]RunSummary, error) {
	entries, err := os.ReadDir(s.outputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read output directory: %w", err)
	}

	summaries := make([]RunSummary, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		summaries = append(summaries, RunSummary{
			RunID:     entry.Name(),
			StartTime: info.ModTime(),
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].StartTime.After(summaries[j].StartTime)
	})

	return summaries, nil
}

// cleanupOldRuns removes the oldest run directories beyond keepLastN.
func (s *Storage) cleanupOldRuns() error {
	summaries, err := s.ListRuns()
	if err != nil {
		return err
	}
	if len(summaries) <= s.keepLastN {
		return nil
	}

	for _, summary := range summaries[s.keepLastN:] {
		dir := s.runDir(summary.RunID)
		if err := os.RemoveAll(dir); err != nil {
			s.logger.Warn("failed to delete old run", "run_id", summary.RunID, "error", err)
		} else {
			s.logger.Debug("deleted old run", "run_id", summary.RunID)
		}
	}
	return nil
}

// GetOutputDir returns the storage root.
func (s *Storage) GetOutputDir() string {
	return s.outputDir
}

// ArtifactPath returns the path an artifact of the given kind would be
// written to for a run, without reading or writing it.
func (s *Storage) ArtifactPath(runID string, kind ArtifactKind) string {
	return filepath.Join(s.runDir(runID), fmt.Sprintf("%s.%s", kind, kind.fileExt()))
}

// RemoveRun deletes everything persisted for a run. Called when a run is
// cancelled before it produced anything worth keeping.
func (s *Storage) RemoveRun(runID string) error {
	return os.RemoveAll(s.runDir(runID))
}
