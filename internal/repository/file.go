package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/windfall/phonoecho_service/internal/capt"
)

// FileRepository stores documents as JSON files under
// {dir}/{user}/lesson_{lesson}_*.json.
type FileRepository struct {
	dir string
}

// NewFileRepository creates a repository rooted at dir. The directory is
// created on first write.
func NewFileRepository(dir string) *FileRepository {
	return &FileRepository{dir: dir}
}

func (r *FileRepository) path(key capt.LessonKey, name string) (string, error) {
	if err := key.Validate(); err != nil {
		return "", err
	}
	return filepath.Join(r.dir, key.UserID, name), nil
}

func (r *FileRepository) SaveGuidanceCard(ctx context.Context, key capt.LessonKey, card *capt.GuidanceCard) error {
	p, err := r.path(key, guidanceName(key))
	if err != nil {
		return err
	}
	return writeDocument(p, card)
}

func (r *FileRepository) GetGuidanceCard(ctx context.Context, key capt.LessonKey) (*capt.GuidanceCard, error) {
	p, err := r.path(key, guidanceName(key))
	if err != nil {
		return nil, err
	}
	data, err := readDocument(p)
	if err != nil {
		return nil, err
	}
	return decodeCard(data)
}

func (r *FileRepository) SaveAttemptSummary(ctx context.Context, key capt.LessonKey, s *capt.AttemptSummary) error {
	p, err := r.path(key, attemptName(key, s.AttemptNumber))
	if err != nil {
		return err
	}
	if err := writeDocument(p, s); err != nil {
		return err
	}
	latest, _ := r.path(key, latestName(key))
	return writeDocument(latest, s)
}

func (r *FileRepository) GetLatestAttemptSummary(ctx context.Context, key capt.LessonKey) (*capt.AttemptSummary, error) {
	p, err := r.path(key, latestName(key))
	if err != nil {
		return nil, err
	}
	data, err := readDocument(p)
	if err != nil {
		return nil, err
	}
	return decodeSummary(data)
}

// writeDocument replaces path atomically so readers never see a partial file.
func writeDocument(path string, v any) error {
	data, err := encode(v)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create history dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

func readDocument(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}
