package engine

import (
	"context"
	"errors"
	"path"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/bianoble/blend/internal/manifest"
	"github.com/bianoble/blend/internal/sandbox"
	"github.com/bianoble/blend/internal/source"
)

// RootLocalPath is the local path recorded for a payload copied into the
// project root.
const RootLocalPath = "."

// Resolver materializes repository references as ephemeral working copies.
type Resolver interface {
	Materialize(ctx context.Context, ref source.RepoRef) (*source.WorkingCopy, error)
	ResolvedRevision(ctx context.Context, wc *source.WorkingCopy) (string, error)
	Dispose(wc *source.WorkingCopy) error
}

// AddEngine vendors a path from a repository into the project and declares
// it in the project's manifest.
type AddEngine struct {
	Resolver    Resolver
	Store       *manifest.Store
	ProjectRoot string
	Logger      hclog.Logger
}

// AddOptions configures an add operation.
type AddOptions struct {
	// Repo is <url> or <url>#<ref>.
	Repo       string
	RemotePath string

	// LocalPath is relative to the project root. Empty means the project
	// root itself, recorded as ".".
	LocalPath string
}

func (e *AddEngine) logger() hclog.Logger {
	if e.Logger == nil {
		return hclog.NewNullLogger()
	}
	return e.Logger
}

func (e *AddEngine) root() string {
	if e.ProjectRoot == "" {
		return "."
	}
	return e.ProjectRoot
}

func (e *AddEngine) store() *manifest.Store {
	if e.Store == nil {
		return manifest.NewStore(e.logger().Named("manifest"))
	}
	return e.Store
}

// Add fetches opts.Repo, pins its resolved commit in the project manifest
// and copies opts.RemotePath to the local path.
//
// A dependency already declared at the same local path is left untouched in
// the manifest, but its files are still overwritten with the fetched content.
// The manifest is written before the files are copied. The working copy is
// removed on every return path.
func (e *AddEngine) Add(ctx context.Context, opts AddOptions) (*AddResult, error) {
	ref, err := source.ParseRepoRef(opts.Repo)
	if err != nil {
		return nil, &StepError{Step: StepValidate, Err: err}
	}
	if strings.TrimSpace(opts.RemotePath) == "" {
		return nil, &StepError{Step: StepValidate, Err: errors.New("remote path is required")}
	}
	remotePath := cleanRel(opts.RemotePath)

	localPath := RootLocalPath
	if strings.TrimSpace(opts.LocalPath) != "" {
		localPath = cleanRel(opts.LocalPath)
	}
	if _, err := sandbox.ValidatePath(e.root(), localPath); err != nil {
		return nil, &StepError{Step: StepValidate, Err: err}
	}

	wc, err := e.Resolver.Materialize(ctx, ref)
	if err != nil {
		return nil, &StepError{Step: StepMaterialize, Err: err}
	}
	defer func() {
		if err := e.Resolver.Dispose(wc); err != nil {
			e.logger().Warn("failed to remove working copy", "dir", wc.Dir, "error", err)
		}
	}()

	srcPath, err := sandbox.ValidatePath(wc.Dir, remotePath)
	if err != nil {
		return nil, &StepError{Step: StepValidate, Err: err}
	}

	hash, err := e.Resolver.ResolvedRevision(ctx, wc)
	if err != nil {
		return nil, &StepError{Step: StepResolve, Err: err}
	}
	e.logger().Debug("resolved", "repo", ref.String(), "hash", hash)

	result := &AddResult{
		Dependency: manifest.Dependency{
			Repo:       ref.URL,
			Hash:       hash,
			RemotePath: remotePath,
			LocalPath:  localPath,
		},
		ManifestPath: filepath.Join(e.root(), manifest.FileName),
		Upstream:     e.store().Load(srcPath),
	}

	if errs := manifest.ValidateDependency(result.Dependency); len(errs) > 0 {
		return nil, &StepError{Step: StepValidate, Err: &manifest.ValidationError{Errors: errs}}
	}
	if err := e.declare(result); err != nil {
		return nil, err
	}

	// The payload never replaces the project manifest or its lock.
	dest, err := sandbox.CopyInto(e.root(), localPath, srcPath, manifest.FileName, manifest.FileName+".lock")
	if err != nil {
		return nil, &StepError{Step: StepCopy, Err: err}
	}
	result.Destination = dest
	e.logger().Debug("copied", "from", srcPath, "to", dest)

	return result, nil
}

// declare merges result.Dependency into the project manifest and saves it,
// holding the manifest lock for the duration.
func (e *AddEngine) declare(result *AddResult) error {
	lk, err := manifest.Lock(result.ManifestPath)
	if err != nil {
		return &StepError{Step: StepLock, Err: err}
	}
	defer func() {
		if err := lk.Unlock(); err != nil {
			e.logger().Warn("failed to release manifest lock", "path", lk.Path(), "error", err)
		}
	}()

	local := e.store().Load(e.root())
	if local == nil {
		local = &manifest.Manifest{}
	}

	result.Added = local.AddDependencyIfAbsent(result.Dependency)
	if !result.Added {
		existing, _ := local.Find(result.Dependency.LocalPath)
		result.Existing = &existing
		e.logger().Info("dependency already declared, not added", "local_path", existing.LocalPath, "repo", existing.Repo, "hash", existing.Hash)
	}

	if err := e.store().Save(result.ManifestPath, local); err != nil {
		return &StepError{Step: StepSave, Err: err}
	}
	return nil
}

// cleanRel normalizes a user-supplied relative path to slash form so that
// "vendor/foo/" and "./vendor/foo" name the same dependency.
func cleanRel(p string) string {
	return path.Clean(filepath.ToSlash(strings.TrimSpace(p)))
}
