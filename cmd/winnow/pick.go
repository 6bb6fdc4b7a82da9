package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/atotto/clipboard"

	"github.com/mvank/winnow/picker"
)

// newLogger builds the CLI logger: warnings and up on stderr, so library
// noise never mixes into picked output on stdout.
func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
}

// PickCmd contains the arguments for the 'pick' subcommand
type PickCmd struct {
	Cmd       string `arg:"--cmd" help:"Stream items from this command's stdout instead of walking files"`
	Copy      bool   `arg:"-c,--copy" help:"Also copy the picked items to the clipboard"`
	NoHistory bool   `arg:"--no-history" help:"Do not record picks or rank items by past picks"`
	History   string `arg:"--history" help:"Path of the history database (default: user cache dir)"`
	Dir       string `arg:"positional" help:"Directory to pick files from (default: current directory)"`
}

// PickRunner encapsulates the state and behavior for the pick subcommand
type PickRunner struct {
	Args     PickCmd
	RootPath string
	History  *picker.History
	Logger   *slog.Logger
}

// NewPickRunner creates and initializes a new PickRunner
func NewPickRunner(cmdArgs PickCmd) (*PickRunner, error) {
	rootPath := cmdArgs.Dir
	if rootPath == "" {
		rootPath = "."
	}
	info, err := os.Stat(rootPath)
	if err != nil {
		return nil, fmt.Errorf("cannot access %s: %w", rootPath, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", rootPath)
	}

	r := &PickRunner{Args: cmdArgs, RootPath: rootPath, Logger: newLogger()}
	if !cmdArgs.NoHistory {
		path, err := historyPath(cmdArgs.History)
		if err == nil {
			r.History, err = picker.OpenHistory(path, r.Logger)
		}
		if err != nil {
			// history is a convenience; picking works fine without it
			r.Logger.Warn("pick history unavailable", "error", err)
		}
	}
	return r, nil
}

// historyPath resolves the database location, defaulting under the user
// cache directory.
func historyPath(override string) (string, error) {
	if override != "" {
		return override, nil
	}
	cache, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(cache, "winnow")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return filepath.Join(dir, "history.db"), nil
}

// Run starts the interactive picker and prints the picked items to stdout.
func (r *PickRunner) Run() error {
	if r.History != nil {
		defer r.History.Close()
	}

	var src picker.Source
	if r.Args.Cmd != "" {
		fields := strings.Fields(r.Args.Cmd)
		src = picker.CommandSource{Name: fields[0], Args: fields[1:], Dir: r.RootPath}
	} else {
		src = picker.FilesSource{Root: r.RootPath}
	}
	src = r.rankedByHistory(src)

	opts := picker.Options{
		Source:  src,
		Caching: true,
		Logger:  r.Logger,
	}
	if r.Args.Cmd == "" {
		opts.Preview = r.previewFile
	}
	p, err := picker.New(opts)
	if err != nil {
		return err
	}

	res, err := p.Start()
	if err != nil {
		return err
	}
	if res.Aborted {
		return nil
	}

	picked := res.Marked
	if len(picked) == 0 {
		picked = []any{res.Item}
	}
	var texts []string
	for _, item := range picked {
		text := fmt.Sprint(item)
		texts = append(texts, text)
		fmt.Println(text)
		if r.History != nil {
			if err := r.History.Record(text); err != nil {
				r.Logger.Warn("record pick", "error", err)
			}
		}
	}

	if r.Args.Copy {
		if err := clipboard.WriteAll(strings.Join(texts, "\n")); err != nil {
			return fmt.Errorf("failed to copy to clipboard: %v", err)
		}
		fmt.Fprintln(os.Stderr, "Picked items copied to clipboard")
	}
	return nil
}

// rankedByHistory reorders each pushed batch so previously picked items come
// first, most recent first. Items outside the history keep their order.
func (r *PickRunner) rankedByHistory(src picker.Source) picker.Source {
	if r.History == nil {
		return src
	}
	recent, err := r.History.Recent(100)
	if err != nil || len(recent) == 0 {
		return src
	}
	rank := make(map[string]int, len(recent))
	for i, text := range recent {
		rank[text] = i
	}

	return picker.SourceFunc(func(push func(items []any)) error {
		return src.Run(func(items []any) {
			sort.SliceStable(items, func(i, j int) bool {
				ri, iok := rank[fmt.Sprint(items[i])]
				rj, jok := rank[fmt.Sprint(items[j])]
				if iok != jok {
					return iok
				}
				return iok && ri < rj
			})
			push(items)
		})
	})
}

const previewLimit = 64 * 1024

// previewFile shows the head of the file under the cursor.
func (r *PickRunner) previewFile(item any) string {
	path := filepath.Join(r.RootPath, fmt.Sprint(item))
	f, err := os.Open(path)
	if err != nil {
		return err.Error()
	}
	defer f.Close()

	buf := make([]byte, previewLimit)
	n, _ := f.Read(buf)
	return string(buf[:n])
}
