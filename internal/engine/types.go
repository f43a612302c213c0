package engine

import (
	"github.com/bianoble/blend/internal/manifest"
)

// Workflow steps reported by StepError.
const (
	StepValidate    = "validate"
	StepMaterialize = "materialize"
	StepResolve     = "resolve"
	StepLock        = "lock"
	StepSave        = "save"
	StepCopy        = "copy"
)

// StepError is a fatal failure of one step of the add workflow.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return e.Step + ": " + e.Err.Error()
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// AddResult holds the outcome of an add operation.
type AddResult struct {
	// Dependency is the record built from this fetch.
	Dependency manifest.Dependency

	// Added is false when a dependency was already declared at the same
	// local path. The files are refreshed either way.
	Added bool

	// Existing is the record already declared at the local path, if any.
	Existing *manifest.Dependency

	ManifestPath string
	Destination  string

	// Upstream is the manifest shipped with the payload, if any. Informational only.
	Upstream *manifest.Manifest
}
