package main

import (
	"fmt"
	"log"
	"os"

	"github.com/alexflint/go-arg"
)

// Args defines the command-line arguments with subcommands
type Args struct {
	Pick *PickCmd `arg:"subcommand:pick" help:"Interactively pick an item from files or a command's output"`
	Diff *DiffCmd `arg:"subcommand:diff" help:"Show hunks of a file against its staged version"`
}

// Runner dispatches to the appropriate subcommand
type Runner struct {
	Args Args
}

func NewRunner(args Args) *Runner {
	return &Runner{Args: args}
}

func (r *Runner) Run() error {
	switch {
	case r.Args.Pick != nil:
		pickRunner, err := NewPickRunner(*r.Args.Pick)
		if err != nil {
			return err
		}
		return pickRunner.Run()
	case r.Args.Diff != nil:
		diffRunner, err := NewDiffRunner(*r.Args.Diff)
		if err != nil {
			return err
		}
		return diffRunner.Run()
	default:
		return fmt.Errorf("no subcommand specified, use 'pick' or 'diff'")
	}
}

// main is our entrypoint: parse args and run the application
func main() {
	var args Args
	parser := arg.MustParse(&args)

	if args.Pick == nil && args.Diff == nil {
		parser.WriteHelp(os.Stderr)
		os.Exit(1)
	}

	runner := NewRunner(args)
	if err := runner.Run(); err != nil {
		log.Fatal(err)
	}
}
