package credentials

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/user/campus-assistant/internal/repository"
	"github.com/user/campus-assistant/pkg/utils"
	"gopkg.in/yaml.v3"
)

// FileStore serves portal passwords from a YAML mapping of mobile number to
// password, with an optional shared fallback password.
type FileStore struct {
	passwords map[string]string
	fallback  string
}

// NewFileStore loads path (if non-empty) and keeps fallback for numbers the
// file does not list. Keys are normalized like request numbers.
func NewFileStore(path, fallback string) (*FileStore, error) {
	s := &FileStore{passwords: map[string]string{}, fallback: fallback}
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && fallback != "" {
			return s, nil
		}
		return nil, fmt.Errorf("read credentials file: %w", err)
	}

	var raw map[string]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode credentials file %s: %w", path, err)
	}
	for mobile, password := range raw {
		key, err := utils.NormalizeMobile(mobile)
		if err != nil {
			return nil, fmt.Errorf("credentials file %s: %q: %w", path, mobile, err)
		}
		s.passwords[key] = password
	}
	return s, nil
}

func (s *FileStore) PasswordFor(_ context.Context, mobileNumber string) (string, error) {
	if p, ok := s.passwords[mobileNumber]; ok && p != "" {
		return p, nil
	}
	if s.fallback != "" {
		return s.fallback, nil
	}
	return "", repository.ErrNotFound
}

// Len reports how many numbers have a dedicated password.
func (s *FileStore) Len() int { return len(s.passwords) }
