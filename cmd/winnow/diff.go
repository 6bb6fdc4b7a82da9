package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mvank/winnow/diff"
)

// DiffCmd contains the arguments for the 'diff' subcommand
type DiffCmd struct {
	Summary bool          `arg:"-s,--summary" help:"Print only the added/changed/deleted counts"`
	Apply   bool          `arg:"--apply" help:"Stage every hunk back into the index"`
	Timeout time.Duration `arg:"--timeout" help:"Bound a single diff computation; 0 means exact"`
	File    string        `arg:"positional,required" help:"File to diff against its staged version"`
}

// DiffRunner encapsulates the state and behavior for the diff subcommand
type DiffRunner struct {
	Args DiffCmd
	Path string
}

// NewDiffRunner creates and initializes a new DiffRunner
func NewDiffRunner(cmdArgs DiffCmd) (*DiffRunner, error) {
	path, err := filepath.Abs(cmdArgs.File)
	if err != nil {
		return nil, err
	}
	return &DiffRunner{Args: cmdArgs, Path: path}, nil
}

// Run diffs the working-tree file against the git index and prints (or
// stages) the hunks.
func (r *DiffRunner) Run() error {
	data, err := os.ReadFile(r.Path)
	if err != nil {
		return err
	}

	logger := newLogger()
	e, err := diff.NewEngine(diff.Options{Timeout: r.Args.Timeout, Logger: logger})
	if err != nil {
		return err
	}
	defer e.Close()

	const buf = 1
	if err := e.Enable(buf, fileLines(data), &diff.GitSource{Path: r.Path, Logger: logger}); err != nil {
		return err
	}
	e.RecomputeNow(buf)

	snap, _ := e.Snapshot(buf)
	if !snap.HasRef {
		return fmt.Errorf("%s has no staged version (untracked, or not in a git repository)", r.Args.File)
	}

	if r.Args.Apply {
		if len(snap.Hunks) == 0 {
			fmt.Println("nothing to stage")
			return nil
		}
		if err := e.ApplyHunks(buf, snap.Hunks); err != nil {
			return err
		}
		fmt.Printf("staged %d hunk(s) in %s\n", len(snap.Hunks), r.Args.File)
		return nil
	}

	s := snap.Summary
	fmt.Printf("%s: +%d ~%d -%d\n", r.Args.File, s.Add, s.Change, s.Delete)
	if r.Args.Summary {
		return nil
	}

	refLines := fileLines([]byte(snap.RefText))
	curLines := e.Lines(buf)
	for _, h := range snap.Hunks {
		fmt.Printf("@@ -%d,%d +%d,%d @@ %s\n",
			h.RefStart, h.RefCount, h.CurStart, h.CurCount, h.Type)
		for i := 0; i < h.RefCount; i++ {
			fmt.Printf("-%s\n", lineOrEmpty(refLines, h.RefStart+i))
		}
		for i := 0; i < h.CurCount; i++ {
			fmt.Printf("+%s\n", lineOrEmpty(curLines, h.CurStart+i))
		}
	}
	return nil
}

// fileLines splits file content into lines without a trailing empty entry.
func fileLines(data []byte) []string {
	text := strings.TrimSuffix(string(data), "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

// lineOrEmpty returns 1-based line n, or "" out of range.
func lineOrEmpty(lines []string, n int) string {
	if n < 1 || n > len(lines) {
		return ""
	}
	return lines[n-1]
}
