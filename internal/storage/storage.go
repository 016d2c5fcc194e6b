package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Artifact is one rejected pipeline attempt kept on disk for offline
// inspection of bad model output.
type Artifact struct {
	Stage     string    `json:"stage"`
	Attempt   int       `json:"attempt"`
	Issues    []string  `json:"issues"`
	Payload   string    `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}

// ArtifactStore provides file-based storage for rejected attempts.
type ArtifactStore struct {
	basePath string
	logger   *zap.Logger
}

// NewArtifactStore creates the store and ensures the base directory
// exists.
func NewArtifactStore(basePath string, logger *zap.Logger) (*ArtifactStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create artifact directory %s: %w", basePath, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ArtifactStore{basePath: basePath, logger: logger}, nil
}

// sanitizeTimestamp makes the timestamp safe for filenames.
func sanitizeTimestamp(ts string) string {
	return strings.ReplaceAll(ts, ":", "-")
}

func (s *ArtifactStore) artifactPath(stage string, attempt int, ts time.Time) string {
	filename := fmt.Sprintf("%s_attempt%d_%s.json",
		stage, attempt, sanitizeTimestamp(ts.Format(time.RFC3339Nano)))
	return filepath.Join(s.basePath, filename)
}

// RecordRejected writes one rejected attempt to disk. Failures are
// logged and swallowed; diagnostics must never break the pipeline.
func (s *ArtifactStore) RecordRejected(stage string, attempt int, payload string, issues []string) {
	now := time.Now().UTC()
	art := Artifact{
		Stage:     stage,
		Attempt:   attempt,
		Issues:    issues,
		Payload:   payload,
		Timestamp: now,
	}
	data, err := json.MarshalIndent(art, "", "  ")
	if err != nil {
		s.logger.Warn("failed to marshal artifact", zap.Error(err))
		return
	}
	path := s.artifactPath(stage, attempt, now)
	if err := os.WriteFile(path, data, 0644); err != nil {
		s.logger.Warn("failed to write artifact", zap.String("path", path), zap.Error(err))
	}
}

// Load reads one artifact file back.
func (s *ArtifactStore) Load(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact file: %w", err)
	}
	var art Artifact
	if err := json.Unmarshal(data, &art); err != nil {
		return nil, fmt.Errorf("failed to unmarshal artifact: %w", err)
	}
	return &art, nil
}

// List returns the artifact files of one stage, oldest first. An empty
// stage lists everything.
func (s *ArtifactStore) List(stage string) ([]string, error) {
	pattern := filepath.Join(s.basePath, "*.json")
	if stage != "" {
		pattern = filepath.Join(s.basePath, fmt.Sprintf("%s_*.json", stage))
	}
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to glob artifacts: %w", err)
	}
	sort.Strings(matches)
	return matches, nil
}

// Prune removes all stored artifacts of one stage.
func (s *ArtifactStore) Prune(stage string) error {
	matches, err := s.List(stage)
	if err != nil {
		return err
	}
	for _, match := range matches {
		if err := os.Remove(match); err != nil {
			return fmt.Errorf("failed to remove artifact %s: %w", match, err)
		}
	}
	return nil
}
