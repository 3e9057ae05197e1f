package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// sourceFile is the wire form of one additional-source entry. Durations are
// plain seconds, matching the documented JSON format.
type sourceFile struct {
	Name         string         `json:"name" yaml:"name"`
	URL          string         `json:"url" yaml:"url"`
	Timeout      float64        `json:"timeout" yaml:"timeout"`
	MaxRetries   int            `json:"max_retries" yaml:"max_retries"`
	RetryBackoff float64        `json:"retry_backoff" yaml:"retry_backoff"`
	Language     string         `json:"language" yaml:"language"`
	Country      string         `json:"country" yaml:"country"`
	Kind         string         `json:"kind" yaml:"kind"`
	Options      map[string]any `json:"options" yaml:"options"`
}

// LoadSourcesFile reads an array of additional source configs from path.
// JSON is the documented format; files ending in .yaml/.yml are parsed as
// YAML with the same field names. An empty path yields no sources.
func LoadSourcesFile(path string) ([]Source, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read sources file: %w", err)
	}

	var entries []sourceFile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, &entries)
	default:
		err = json.Unmarshal(raw, &entries)
	}
	if err != nil {
		return nil, fmt.Errorf("parse sources file %s: %w", path, err)
	}

	out := make([]Source, 0, len(entries))
	for i, e := range entries {
		src := Source{
			Name:         e.Name,
			URL:          e.URL,
			MaxRetries:   e.MaxRetries,
			RetryBackoff: e.RetryBackoff,
			Language:     e.Language,
			Country:      e.Country,
			Kind:         e.Kind,
			Options:      e.Options,
		}
		if e.Timeout > 0 {
			src.Timeout = time.Duration(e.Timeout * float64(time.Second))
		}
		if src.Kind == "" {
			src.Kind = KindRSS
		}
		if err := src.Validate(); err != nil {
			return nil, fmt.Errorf("sources file %s entry %d: %w", path, i, err)
		}
		out = append(out, src)
	}
	return out, nil
}
