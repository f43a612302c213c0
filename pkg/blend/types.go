package blend

import (
	"github.com/bianoble/blend/internal/engine"
	"github.com/bianoble/blend/internal/manifest"
	"github.com/bianoble/blend/internal/source"
)

// Type aliases re-export the internal types used by the public API.

type AddResult = engine.AddResult
type StepError = engine.StepError
type Dependency = manifest.Dependency
type Manifest = manifest.Manifest
type Hooks = manifest.Hooks
type SourceError = source.SourceError

// ManifestFileName is the name of the project manifest.
const ManifestFileName = manifest.FileName
