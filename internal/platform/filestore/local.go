package filestore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/yungbote/docchat-backend/internal/platform/logger"
)

// Store persists uploaded payloads under a single root directory. Names are
// flattened to their base so callers cannot escape the root.
type Store interface {
	Save(name string, data []byte) (path string, err error)
	Load(name string) ([]byte, error)
	Delete(name string) error
}

type localStore struct {
	root string
	log  *logger.Logger
}

func NewLocalStore(root string, baseLog *logger.Logger) (Store, error) {
	if baseLog == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("file store root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create file store root %q: %w", root, err)
	}
	return &localStore{root: root, log: baseLog.With("service", "LocalFileStore")}, nil
}

func (s *localStore) path(name string) (string, error) {
	base := filepath.Base(filepath.Clean(name))
	if base == "." || base == ".." || base == string(filepath.Separator) {
		return "", fmt.Errorf("invalid file name %q", name)
	}
	return filepath.Join(s.root, base), nil
}

func (s *localStore) Save(name string, data []byte) (string, error) {
	p, err := s.path(name)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return "", fmt.Errorf("write %q: %w", p, err)
	}
	return p, nil
}

func (s *localStore) Load(name string) ([]byte, error) {
	p, err := s.path(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", p, err)
	}
	return data, nil
}

func (s *localStore) Delete(name string) error {
	p, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove %q: %w", p, err)
	}
	return nil
}
