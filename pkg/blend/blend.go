// Package blend provides the public Go library API for blend.
//
// blend vendors a path from a git repository into a project and records
// its origin and pinned commit in the project's blend.yml.
//
// # Basic Usage
//
//	client, err := blend.New(blend.Options{ProjectRoot: "/path/to/project"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := client.Add(ctx, "https://github.com/org/lib.git#v1.2.0", "src/util", "vendor/util")
package blend

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/hashicorp/go-hclog"

	"github.com/bianoble/blend/internal/engine"
	"github.com/bianoble/blend/internal/manifest"
	"github.com/bianoble/blend/internal/source"
)

// Options configures a blend client.
type Options struct {
	// ProjectRoot is the directory holding blend.yml. Default: the working directory.
	ProjectRoot string

	// Logger receives diagnostics. Default: discard.
	Logger hclog.Logger

	// TempDir is where working copies are cloned. Default: os.TempDir().
	TempDir string
}

// Client is the main entry point for the blend library.
type Client struct {
	projectRoot string
	logger      hclog.Logger
	store       *manifest.Store
	resolver    *source.GitResolver
}

// New creates a new blend Client.
func New(opts Options) (*Client, error) {
	root := opts.ProjectRoot
	if root == "" {
		root = "."
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving project root: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	return &Client{
		projectRoot: abs,
		logger:      logger,
		store:       manifest.NewStore(logger.Named("manifest")),
		resolver:    &source.GitResolver{Logger: logger.Named("source"), TempDir: opts.TempDir},
	}, nil
}

// ProjectRoot returns the absolute project directory.
func (c *Client) ProjectRoot() string {
	return c.projectRoot
}

// Add vendors remotePath from repo (<url> or <url>#<ref>) to localPath and
// declares it in the project manifest. An empty localPath copies the payload
// into the project root, recorded as local path ".".
func (c *Client) Add(ctx context.Context, repo, remotePath, localPath string) (*AddResult, error) {
	eng := &engine.AddEngine{
		Resolver:    c.resolver,
		Store:       c.store,
		ProjectRoot: c.projectRoot,
		Logger:      c.logger.Named("engine"),
	}
	return eng.Add(ctx, engine.AddOptions{
		Repo:       repo,
		RemotePath: remotePath,
		LocalPath:  localPath,
	})
}

// Manifest returns the project's manifest, or an empty one when it is
// missing or unreadable.
func (c *Client) Manifest() *Manifest {
	if m := c.store.Load(c.projectRoot); m != nil {
		return m
	}
	return &Manifest{}
}
