package source

import (
	"fmt"
	"path/filepath"
)

// WorkingCopy is an ephemeral checkout of a repository at a single revision.
// It is owned by the resolver that created it and released with Dispose.
type WorkingCopy struct {
	Dir string
	Ref RepoRef
}

// Path returns the absolute location of rel inside the working copy.
func (w *WorkingCopy) Path(rel string) string {
	return filepath.Join(w.Dir, rel)
}

// SourceError represents an error associated with a specific repository operation.
type SourceError struct {
	Repo      string
	Operation string
	Err       error
	Hint      string
}

func (e *SourceError) Error() string {
	msg := fmt.Sprintf("%s: %s failed: %s", e.Repo, e.Operation, e.Err)
	if e.Hint != "" {
		msg += " (" + e.Hint + ")"
	}
	return msg
}

func (e *SourceError) Unwrap() error {
	return e.Err
}
