package picker

import (
	"bufio"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// flushEvery batches streamed items so a large listing does not push one
// update per line into the event loop.
const flushEvery = 250 * time.Millisecond

// FilesSource lists files under root, honoring gitignore patterns, and
// streams them into the picker as they are found.
type FilesSource struct {
	Root string
}

func (s FilesSource) Run(push func(items []any)) error {
	matcher, err := ignoreMatcher(s.Root)
	if err != nil {
		return err
	}

	var (
		items []any
		last  time.Time
	)
	err = filepath.WalkDir(s.Root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(s.Root, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		isDir := d.IsDir()
		if isDir && d.Name() == ".git" {
			return filepath.SkipDir
		}
		if matcher.Match(strings.Split(rel, string(os.PathSeparator)), isDir) {
			if isDir {
				return filepath.SkipDir
			}
			return nil
		}
		if isDir {
			return nil
		}
		items = append(items, filepath.ToSlash(rel))
		if time.Since(last) > flushEvery {
			push(append([]any(nil), items...))
			last = time.Now()
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("walk %s: %w", s.Root, err)
	}
	push(items)
	return nil
}

// ignoreMatcher reads gitignore patterns under root into a matcher.
func ignoreMatcher(root string) (gitignore.Matcher, error) {
	fs := osfs.New(root)
	patterns, err := gitignore.ReadPatterns(fs, nil)
	if err != nil {
		return nil, fmt.Errorf("read gitignore patterns: %w", err)
	}
	return gitignore.NewMatcher(patterns), nil
}

// CommandSource runs an external listing command and streams its stdout
// line by line into the picker. A non-zero exit or empty output degrades to
// "no items" at the call site; it is not a picker failure.
type CommandSource struct {
	Name string
	Args []string
	Dir  string
}

func (s CommandSource) Run(push func(items []any)) error {
	cmd := exec.Command(s.Name, s.Args...)
	cmd.Dir = s.Dir
	out, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", s.Name, err)
	}

	var (
		items []any
		last  time.Time
	)
	scanner := bufio.NewScanner(out)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		items = append(items, line)
		if time.Since(last) > flushEvery {
			push(append([]any(nil), items...))
			last = time.Now()
		}
	}
	push(items)

	if err := scanner.Err(); err != nil {
		_ = cmd.Wait()
		return fmt.Errorf("read %s output: %w", s.Name, err)
	}
	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("%s: %w", s.Name, err)
	}
	return nil
}

// StaticSource resolves a fixed item list after an optional delay; used by
// tests and by callers that already hold their items.
type StaticSource struct {
	Items []any
	Delay time.Duration
}

func (s StaticSource) Run(push func(items []any)) error {
	if s.Delay > 0 {
		time.Sleep(s.Delay)
	}
	push(s.Items)
	return nil
}
