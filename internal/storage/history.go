// Records store changes in a git repository using go-git.

package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// ErrForeignStaged is returned by History.Commit when the index holds changes
// to files other than the store.
var ErrForeignStaged = errors.New("other files are staged")

// Commit is one entry of the store history.
type Commit struct {
	Hash    string
	Message string
	Author  string
	When    time.Time
}

// History commits the store file to the git repository of its directory.
//
// The repository is created on open if the directory is not one already.
type History struct {
	repo  *gogit.Repository
	file  string // Path of the store file relative to the worktree, slash separated.
	name  string
	email string
	mu    sync.Mutex
}

// OpenHistory opens or initializes the repository holding storePath.
func OpenHistory(storePath, name, email string) (*History, error) {
	if name == "" {
		name = "jsonkv"
	}
	if email == "" {
		email = "jsonkv@localhost"
	}
	abs, err := filepath.Abs(storePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", storePath, err)
	}
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:gosec // G301: 0o755 is intentional for data directories
		return nil, fmt.Errorf("failed to create repo directory: %w", err)
	}

	repo, err := gogit.PlainOpen(dir)
	if errors.Is(err, gogit.ErrRepositoryNotExists) {
		repo, err = gogit.PlainInit(dir, false)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize git repo: %w", err)
		}
		cfg, err := repo.Config()
		if err != nil {
			return nil, fmt.Errorf("failed to read git config: %w", err)
		}
		cfg.User.Name = name
		cfg.User.Email = email
		if err := repo.SetConfig(cfg); err != nil {
			return nil, fmt.Errorf("failed to write git config: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to open git repo: %w", err)
	}

	return &History{
		repo:  repo,
		file:  filepath.Base(abs),
		name:  name,
		email: email,
	}, nil
}

// Commit stages the store file and commits it if it changed.
//
// It returns ErrForeignStaged without committing when other paths are staged.
func (h *History) Commit(_ context.Context, msg string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	w, err := h.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}
	if _, err := w.Add(h.file); err != nil {
		return fmt.Errorf("failed to stage %s: %w", h.file, err)
	}
	status, err := w.Status()
	if err != nil {
		return fmt.Errorf("failed to get worktree status: %w", err)
	}
	if fs, ok := status[h.file]; !ok || fs.Staging == gogit.Unmodified {
		return nil
	}
	// A commit takes the whole index; never sweep in changes staged by someone
	// else in a shared repository.
	for path, fs := range status {
		if path != h.file && fs.Staging != gogit.Unmodified && fs.Staging != gogit.Untracked {
			return fmt.Errorf("%w: %s", ErrForeignStaged, path)
		}
	}

	now := time.Now()
	sig := &object.Signature{Name: h.name, Email: h.email, When: now}
	if _, err := w.Commit(msg, &gogit.CommitOptions{Author: sig, Committer: sig}); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// Log returns up to n commits touching the store file, newest first.
func (h *History) Log(n int) ([]Commit, error) {
	if n <= 0 || n > 1000 {
		n = 1000
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	file := h.file
	iter, err := h.repo.Log(&gogit.LogOptions{FileName: &file})
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		// No commits yet.
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read log: %w", err)
	}
	defer iter.Close()

	var commits []Commit
	for range n {
		c, err := iter.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read log: %w", err)
		}
		subject, _, _ := strings.Cut(c.Message, "\n")
		commits = append(commits, Commit{
			Hash:    c.Hash.String(),
			Message: subject,
			Author:  c.Author.Name,
			When:    c.Author.When,
		})
	}
	return commits, nil
}
