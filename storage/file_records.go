package storage

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ruteri/zkkb/interfaces"
)

const recordSuffix = ".json"

// FileRecordStore keeps each record in its own file under baseDir/<namespace>/.
type FileRecordStore struct {
	mu          sync.RWMutex
	baseDir     string
	log         *slog.Logger
	locationURI string
}

func NewFileRecordStore(baseDir string, log *slog.Logger) (*FileRecordStore, error) {
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	return &FileRecordStore{
		baseDir:     baseDir,
		log:         log,
		locationURI: fmt.Sprintf("file://%s", baseDir),
	}, nil
}

func (s *FileRecordStore) path(namespace interfaces.RecordNamespace, key string) string {
	return filepath.Join(s.baseDir, string(namespace), url.PathEscape(key)+recordSuffix)
}

func (s *FileRecordStore) Get(ctx context.Context, namespace interfaces.RecordNamespace, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.path(namespace, key))
	if os.IsNotExist(err) {
		return nil, interfaces.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read record: %w", err)
	}
	return data, nil
}

func (s *FileRecordStore) Put(ctx context.Context, namespace interfaces.RecordNamespace, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.path(namespace, key)
	if err := writeFileAtomic(path, value); err != nil {
		return err
	}

	s.log.Debug("Stored record in file",
		slog.String("namespace", string(namespace)),
		slog.String("path", path),
		slog.Int("size", len(value)))
	return nil
}

func (s *FileRecordStore) Delete(ctx context.Context, namespace interfaces.RecordNamespace, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(namespace, key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	return nil
}

func (s *FileRecordStore) List(ctx context.Context, namespace interfaces.RecordNamespace) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(filepath.Join(s.baseDir, string(namespace)))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}

	var keys []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, recordSuffix) {
			continue
		}
		key, err := url.PathUnescape(strings.TrimSuffix(name, recordSuffix))
		if err != nil {
			continue
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func (s *FileRecordStore) Available(ctx context.Context) bool {
	_, err := os.Stat(s.baseDir)
	return err == nil
}

func (s *FileRecordStore) Name() string {
	return fmt.Sprintf("file-records-%s", filepath.Base(s.baseDir))
}

func (s *FileRecordStore) LocationURI() string {
	return s.locationURI
}
