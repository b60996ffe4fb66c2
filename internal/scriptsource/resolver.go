// Package scriptsource resolves a pipeline document's script_directory
// into a local filesystem path, transparently cloning it first when it
// names a git remote instead of a path already on disk.
package scriptsource

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	git "github.com/go-git/go-git/v5"
	"github.com/google/uuid"

	"github.com/jsprague/orchestra/internal/ports"
)

// Resolver maps a document's script_directory value to a local directory,
// cloning git remotes into a per-run scratch root named with a fresh
// UUID so concurrent runs never collide.
type Resolver struct {
	CacheRoot string
	Logger    ports.Logger
}

// NewResolver constructs a Resolver that clones into a freshly named
// subdirectory of baseDir.
func NewResolver(baseDir string, logger ports.Logger) *Resolver {
	return &Resolver{
		CacheRoot: filepath.Join(baseDir, uuid.NewString()),
		Logger:    logger,
	}
}

// Resolve returns a local directory scripts can be read from. A plain
// filesystem path is returned unchanged; a git remote is cloned (or reused,
// if this Resolver already cloned it during the current run) into the
// cache root and that clone's path is returned.
func (r *Resolver) Resolve(ctx context.Context, raw string) (string, error) {
	if !looksLikeGitRemote(raw) {
		return raw, nil
	}

	dest := filepath.Join(r.CacheRoot, cloneDirName(raw))

	if repo, err := git.PlainOpen(dest); err == nil {
		if r.Logger != nil {
			r.Logger.Debug(ctx, "reusing cloned script directory", "url", raw, "dest", dest)
		}
		if err := refresh(ctx, repo); err != nil && r.Logger != nil {
			r.Logger.Warn(ctx, "refresh of cloned script directory failed, using existing checkout",
				"url", raw, "error", err.Error())
		}
		return dest, nil
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", fmt.Errorf("scriptsource: create cache dir: %w", err)
	}

	if r.Logger != nil {
		r.Logger.Info(ctx, "cloning script directory", "url", raw, "dest", dest)
	}

	if _, err := git.PlainCloneContext(ctx, dest, false, &git.CloneOptions{URL: raw}); err != nil {
		return "", fmt.Errorf("scriptsource: clone %s: %w", raw, err)
	}

	return dest, nil
}

func refresh(ctx context.Context, repo *git.Repository) error {
	wt, err := repo.Worktree()
	if err != nil {
		return err
	}
	err = wt.PullContext(ctx, &git.PullOptions{})
	if err != nil && err != git.NoErrAlreadyUpToDate {
		return err
	}
	return nil
}

func looksLikeGitRemote(raw string) bool {
	switch {
	case strings.HasPrefix(raw, "http://"), strings.HasPrefix(raw, "https://"):
		return true
	case strings.HasPrefix(raw, "git@"), strings.HasPrefix(raw, "ssh://"):
		return true
	case strings.HasSuffix(raw, ".git"):
		return true
	default:
		return false
	}
}

func cloneDirName(url string) string {
	sum := sha1.Sum([]byte(url))
	return hex.EncodeToString(sum[:])
}
