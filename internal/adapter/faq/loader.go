package faq

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/user/campus-assistant/internal/entity"
	"gopkg.in/yaml.v3"
)

var ErrEmptyCorpus = errors.New("faq corpus has no usable entries")

// Load reads a corpus of question/answer pairs from a .json, .yaml or .yml file.
// Entries missing either field are skipped.
func Load(path string) ([]entity.FAQEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read faq corpus: %w", err)
	}

	var entries []entity.FAQEntry
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		err = json.Unmarshal(data, &entries)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &entries)
	default:
		return nil, fmt.Errorf("unsupported faq corpus format %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("decode faq corpus %s: %w", path, err)
	}

	out := entries[:0]
	for _, e := range entries {
		if strings.TrimSpace(e.Question) == "" || strings.TrimSpace(e.Answer) == "" {
			continue
		}
		out = append(out, e)
	}
	if len(out) == 0 {
		return nil, ErrEmptyCorpus
	}
	return out, nil
}
