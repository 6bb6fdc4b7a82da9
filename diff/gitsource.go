package diff

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// GitSource provides reference text from the git index (the staged version
// of a file), and stages applied hunks back into it. Untracked paths and
// missing repositories degrade to "no reference" instead of failing.
type GitSource struct {
	// Path is the absolute path of the file backing the buffer.
	Path string

	Logger *slog.Logger
}

func (s *GitSource) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return s.Logger
}

// Attach reads the staged blob for the path and pushes it as reference.
func (s *GitSource) Attach(b *Buffer) error {
	s.load(b)
	return nil
}

// Detach drops the reference.
func (s *GitSource) Detach(b *Buffer) { b.ClearRef() }

// Refresh re-reads the staged blob, e.g. after an external git operation
// touched the index.
func (s *GitSource) Refresh(b *Buffer) { s.load(b) }

// load resolves the repo, locates the index entry, and sets or clears the
// buffer's reference accordingly.
func (s *GitSource) load(b *Buffer) {
	text, ok, err := s.readStaged()
	if err != nil {
		s.logger().Debug("git reference unavailable", "path", s.Path, "error", err)
		b.ClearRef()
		return
	}
	if !ok {
		b.ClearRef()
		return
	}
	b.SetRef(text)
}

// readStaged returns the staged content of the path; ok is false when the
// path is not tracked.
func (s *GitSource) readStaged() (string, bool, error) {
	repo, rel, err := s.open()
	if err != nil {
		return "", false, err
	}
	idx, err := repo.Storer.Index()
	if err != nil {
		return "", false, fmt.Errorf("read index: %w", err)
	}
	entry, err := idx.Entry(rel)
	if err != nil {
		return "", false, nil // untracked
	}
	blob, err := repo.BlobObject(entry.Hash)
	if err != nil {
		return "", false, fmt.Errorf("read blob %s: %w", entry.Hash, err)
	}
	rd, err := blob.Reader()
	if err != nil {
		return "", false, err
	}
	defer rd.Close()
	data, err := io.ReadAll(rd)
	if err != nil {
		return "", false, err
	}
	return string(data), true, nil
}

// ApplyHunks writes the patched reference as a new blob and points the
// index entry at it, staging the selected changes.
func (s *GitSource) ApplyHunks(b *Buffer, hunks []Hunk) error {
	snap, ok := b.e.Snapshot(b.ID())
	if !ok || !snap.HasRef {
		return fmt.Errorf("diff: no reference to apply hunks to")
	}
	patched := ApplyHunks(snap.RefText, b.Lines(), hunks)

	repo, rel, err := s.open()
	if err != nil {
		return err
	}

	obj := repo.Storer.NewEncodedObject()
	obj.SetType(plumbing.BlobObject)
	w, err := obj.Writer()
	if err != nil {
		return err
	}
	if _, err := w.Write([]byte(patched)); err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	hash, err := repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return fmt.Errorf("write blob: %w", err)
	}

	idx, err := repo.Storer.Index()
	if err != nil {
		return fmt.Errorf("read index: %w", err)
	}
	entry, err := idx.Entry(rel)
	if err != nil {
		return fmt.Errorf("path %s not in index: %w", rel, err)
	}
	entry.Hash = hash
	entry.Size = uint32(len(patched))
	if err := repo.Storer.SetIndex(idx); err != nil {
		return fmt.Errorf("update index: %w", err)
	}

	b.SetRef(patched)
	return nil
}

// open locates the repository above the path and returns it with the
// slash-separated worktree-relative path.
func (s *GitSource) open() (*git.Repository, string, error) {
	repo, err := git.PlainOpenWithOptions(filepath.Dir(s.Path),
		&git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, "", fmt.Errorf("open repository: %w", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, "", err
	}
	rel, err := filepath.Rel(wt.Filesystem.Root(), s.Path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return nil, "", fmt.Errorf("path %s outside worktree", s.Path)
	}
	return repo, filepath.ToSlash(rel), nil
}
