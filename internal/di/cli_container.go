package di

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
)

// ErrMissingPrompt is returned when no prompt is given outside interactive mode
var ErrMissingPrompt = errors.New("a prompt is required unless --interactive is set")

// CLIFlags contains all command line flags for the CLI application
type CLIFlags struct {
	Prompt      string
	Interactive bool
	Draft       bool
	Verbose     bool
	JSON        bool
	NoHTML      bool
	History     int

	JSONLog    bool
	ConfigFile string
}

// ParseFlags parses command line arguments. Flags may appear before or
// after the prompt words.
func ParseFlags(name string, args []string, output io.Writer) (*CLIFlags, error) {
	flags := &CLIFlags{}
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(output)
	fs.Usage = func() {
		fmt.Fprintf(output, "Usage: %s [flags] \"prompt\"\n\n", name)
		fmt.Fprintf(output, "Example:\n  %s \"Email sam@example.com that the report is ready. Draft only.\"\n\nFlags:\n", name)
		fs.PrintDefaults()
	}

	fs.BoolVar(&flags.Interactive, "interactive", false, "Run in interactive mode")
	fs.BoolVar(&flags.Interactive, "i", false, "Shorthand for --interactive")
	fs.BoolVar(&flags.Draft, "draft", false, "Save as a draft instead of sending")
	fs.BoolVar(&flags.Draft, "d", false, "Shorthand for --draft")
	fs.BoolVar(&flags.Verbose, "verbose", false, "Show full output and debug logs")
	fs.BoolVar(&flags.Verbose, "v", false, "Shorthand for --verbose")
	fs.BoolVar(&flags.JSON, "json", false, "Print results as JSON")
	fs.BoolVar(&flags.NoHTML, "no-html", false, "Send plain text only")
	fs.IntVar(&flags.History, "history", 0, "List the latest N recorded runs and exit")
	fs.BoolVar(&flags.JSONLog, "json-log", false, "Output logs in JSON format")
	fs.StringVar(&flags.ConfigFile, "config", "", "Path to config file")

	var words []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		args = fs.Args()
		if len(args) == 0 {
			break
		}
		words = append(words, args[0])
		args = args[1:]
	}
	flags.Prompt = strings.TrimSpace(strings.Join(words, " "))

	return flags, nil
}

// Validate checks that the flags describe something to do
func (f *CLIFlags) Validate() error {
	if f.History < 0 {
		return fmt.Errorf("--history must not be negative")
	}
	if f.Prompt == "" && !f.Interactive && f.History == 0 {
		return ErrMissingPrompt
	}
	return nil
}
