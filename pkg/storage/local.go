package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// LocalStorage writes files below a directory that the API serves statically.
type LocalStorage struct {
	basePath string
	baseURL  string
}

// NewLocalStorage creates basePath when missing. baseURL is the public prefix, e.g. "/uploads".
func NewLocalStorage(basePath, baseURL string) (*LocalStorage, error) {
	if strings.TrimSpace(basePath) == "" {
		return nil, fmt.Errorf("storage base path required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	return &LocalStorage{
		basePath: basePath,
		baseURL:  "/" + strings.Trim(baseURL, "/"),
	}, nil
}

// BasePath is the directory served under the public prefix.
func (s *LocalStorage) BasePath() string {
	return s.basePath
}

func (s *LocalStorage) Put(ctx context.Context, key string, content io.Reader) (string, error) {
	fullPath, err := s.resolve(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", fmt.Errorf("create directory: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	if _, err := io.Copy(file, content); err != nil {
		_ = file.Close()
		_ = os.Remove(fullPath)
		return "", fmt.Errorf("write file: %w", err)
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("close file: %w", err)
	}
	return s.URL(key), nil
}

func (s *LocalStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	fullPath, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(fullPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, notFound(key)
		}
		return nil, fmt.Errorf("open file: %w", err)
	}
	return file, nil
}

func (s *LocalStorage) Delete(ctx context.Context, key string) error {
	fullPath, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete file: %w", err)
	}
	return nil
}

func (s *LocalStorage) URL(key string) string {
	return path.Join(s.baseURL, key)
}

func (s *LocalStorage) Exists(ctx context.Context, key string) (bool, error) {
	fullPath, err := s.resolve(key)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(fullPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat file: %w", err)
	}
	return true, nil
}

// resolve rejects keys that would escape basePath.
func (s *LocalStorage) resolve(key string) (string, error) {
	clean := filepath.Clean("/" + key)
	if clean == "/" {
		return "", fmt.Errorf("storage key required")
	}
	return filepath.Join(s.basePath, clean), nil
}
