package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Parse decodes manifest YAML. Fields missing from data stay absent and
// unknown keys are ignored. Empty input yields an empty manifest.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// parseEmbedded decodes manifest YAML found inside a source file comment.
// Keys are read as leniently as Parse does, but the document must be a
// mapping so that ordinary prose is not taken for a manifest.
func parseEmbedded(text string) (*Manifest, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(text), &doc); err != nil {
		return nil, err
	}
	if len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, errors.New("comment is not a YAML mapping")
	}
	var m Manifest
	if err := doc.Content[0].Decode(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Serialize encodes m as YAML with two-space indentation.
func Serialize(m *Manifest) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return nil, fmt.Errorf("encoding manifest: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encoding manifest: %w", err)
	}
	return buf.Bytes(), nil
}

// ExtractBlockComment returns the trimmed body of the first /* ... */
// comment in text. It reports false when no complete block comment exists.
func ExtractBlockComment(text string) (string, bool) {
	start := strings.Index(text, "/*")
	if start < 0 {
		return "", false
	}
	rest := text[start+2:]
	end := strings.Index(rest, "*/")
	if end < 0 {
		return "", false
	}
	return strings.TrimSpace(rest[:end]), true
}

// ValidationError holds multiple validation failures.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("manifest validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

// Validate checks a Manifest for semantic correctness.
// Returns a list of validation error messages (empty if valid).
func Validate(m *Manifest) []string {
	var errs []string
	for i, dep := range m.Dependencies {
		errs = append(errs, validateDependency(i, dep)...)
	}
	return append(errs, DuplicateLocalPaths(m)...)
}

// ValidateDependency reports the required fields dep is missing.
func ValidateDependency(dep Dependency) []string {
	return validateDependency(-1, dep)
}

func validateDependency(i int, dep Dependency) []string {
	prefix := fmt.Sprintf("dependency[%d]", i)
	if dep.LocalPath != "" {
		prefix = fmt.Sprintf("dependency '%s'", dep.LocalPath)
	} else if i < 0 {
		prefix = "dependency"
	}

	var errs []string
	if dep.Repo == "" {
		errs = append(errs, fmt.Sprintf("%s: 'repo' is required", prefix))
	}
	if dep.Hash == "" {
		errs = append(errs, fmt.Sprintf("%s: 'hash' is required", prefix))
	}
	if dep.RemotePath == "" {
		errs = append(errs, fmt.Sprintf("%s: 'remote_path' is required", prefix))
	}
	if dep.LocalPath == "" {
		errs = append(errs, fmt.Sprintf("%s: 'local_path' is required", prefix))
	}
	return errs
}

// DuplicateLocalPaths reports every local_path declared more than once.
func DuplicateLocalPaths(m *Manifest) []string {
	var errs []string
	seen := make(map[string]bool)
	for _, dep := range m.Dependencies {
		if dep.LocalPath == "" {
			continue
		}
		if seen[dep.LocalPath] {
			errs = append(errs, fmt.Sprintf("dependency '%s': duplicate local_path '%s'", dep.LocalPath, dep.LocalPath))
		}
		seen[dep.LocalPath] = true
	}
	return errs
}
