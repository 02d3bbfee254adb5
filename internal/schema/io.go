package schema

import (
	"encoding/json"
	"fmt"
	"os"
)

// ReadFile loads a schema snapshot from a JSON file, as produced by an
// external extractor, and validates it.
func ReadFile(path string) (*DatabaseSchema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema %s: %w", path, err)
	}
	var s DatabaseSchema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse schema %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("schema %s: %w", path, err)
	}
	return &s, nil
}

// WriteFile stores a snapshot as indented JSON.
func WriteFile(path string, s *DatabaseSchema) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
