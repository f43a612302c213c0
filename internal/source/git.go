package source

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/hashicorp/go-hclog"
)

// GitResolver materializes repositories by shelling out to git.
type GitResolver struct {
	Logger hclog.Logger

	// TempDir is the parent for working copies. Empty means os.TempDir().
	TempDir string
}

func (g *GitResolver) logger() hclog.Logger {
	if g.Logger == nil {
		return hclog.NewNullLogger()
	}
	return g.Logger
}

// Materialize clones ref.URL into a fresh temporary directory and checks
// out ref.Ref when one is given. On failure nothing is left on disk.
func (g *GitResolver) Materialize(ctx context.Context, ref RepoRef) (*WorkingCopy, error) {
	if ref.URL == "" {
		return nil, &SourceError{Repo: ref.String(), Operation: "clone", Err: fmt.Errorf("repository URL is required")}
	}

	tmpDir, err := os.MkdirTemp(g.TempDir, "blend-git-*")
	if err != nil {
		return nil, &SourceError{Repo: ref.URL, Operation: "clone", Err: fmt.Errorf("creating temp dir: %w", err)}
	}
	wc := &WorkingCopy{Dir: tmpDir, Ref: ref}

	g.logger().Debug("cloning", "repo", ref.URL, "dir", tmpDir)
	if err := gitClone(ctx, ref.URL, tmpDir); err != nil {
		_ = g.Dispose(wc)
		return nil, &SourceError{Repo: ref.URL, Operation: "clone", Err: err, Hint: "check repo URL and authentication"}
	}

	if ref.Ref != "" {
		g.logger().Debug("checking out", "repo", ref.URL, "ref", ref.Ref)
		if err := gitCheckout(ctx, tmpDir, ref.Ref); err != nil {
			_ = g.Dispose(wc)
			return nil, &SourceError{Repo: ref.URL, Operation: "checkout", Err: err, Hint: "check that the branch, tag or commit exists"}
		}
	}

	return wc, nil
}

// ResolvedRevision returns the commit hash the working copy has checked out.
func (g *GitResolver) ResolvedRevision(ctx context.Context, wc *WorkingCopy) (string, error) {
	commit, err := gitRevParse(ctx, wc.Dir, "HEAD")
	if err != nil {
		return "", &SourceError{Repo: wc.Ref.URL, Operation: "resolve", Err: fmt.Errorf("resolving commit: %w", err)}
	}
	if commit == "" {
		return "", &SourceError{Repo: wc.Ref.URL, Operation: "resolve", Err: errors.New("git rev-parse returned no commit")}
	}
	return commit, nil
}

// Dispose removes the working copy and everything in it.
func (g *GitResolver) Dispose(wc *WorkingCopy) error {
	if wc == nil || wc.Dir == "" {
		return nil
	}
	if err := os.RemoveAll(wc.Dir); err != nil {
		return fmt.Errorf("removing working copy %s: %w", wc.Dir, err)
	}
	g.logger().Debug("removed working copy", "dir", wc.Dir)
	return nil
}

func gitClone(ctx context.Context, repo, dest string) error {
	cmd := exec.CommandContext(ctx, "git", "clone", "--quiet", "--", repo, dest)
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("git clone failed: %s: %w", strings.TrimSpace(string(output)), err)
	}
	return nil
}

func gitCheckout(ctx context.Context, dir, ref string) error {
	cmd := exec.CommandContext(ctx, "git", "-C", dir, "checkout", "--quiet", ref)
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("git checkout %s failed: %s: %w", ref, strings.TrimSpace(string(output)), err)
	}
	return nil
}

func gitRevParse(ctx context.Context, repoDir, rev string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", "-C", repoDir, "rev-parse", rev)
	output, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(output)), nil
}
