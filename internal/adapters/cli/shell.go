package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mikey/llm-email-agent/internal/core"
	"github.com/mikey/llm-email-agent/internal/utils"
	"go.uber.org/zap"
)

const draftPrefix = "draft:"

// Runner runs one prompt through the email pipeline
type Runner interface {
	Run(ctx context.Context, prompt string, useHTML bool) (*core.DeliveryResult, error)
}

// Options controls how the shell renders results
type Options struct {
	Verbose       bool
	JSON          bool
	UseHTML       bool
	MaxPromptSize int
}

// Shell is the command-line front end of the email agent
type Shell struct {
	runner Runner
	text   *utils.TextProcessor
	logger *zap.Logger
	out    io.Writer
	opts   Options
}

// NewShell creates a new shell writing to out
func NewShell(runner Runner, text *utils.TextProcessor, logger *zap.Logger, out io.Writer, opts Options) *Shell {
	return &Shell{
		runner: runner,
		text:   text,
		logger: logger,
		out:    out,
		opts:   opts,
	}
}

// RunOnce runs a single prompt and prints the outcome
func (s *Shell) RunOnce(ctx context.Context, prompt string) (*core.DeliveryResult, error) {
	prompt = s.text.PreparePrompt(prompt, s.opts.MaxPromptSize)
	s.logger.Debug("Running prompt", zap.Int("length", len(prompt)))

	start := time.Now()
	result, err := s.runner.Run(ctx, prompt, s.opts.UseHTML)
	if err != nil {
		s.logger.Error("Pipeline failed", zap.Error(err))
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return nil, err
	}
	s.logger.Debug("Pipeline finished", zap.Duration("duration", time.Since(start)))

	s.PrintResult(result)
	return result, nil
}

// RunInteractive reads prompts from in until EOF or a quit command.
// Errors are printed and the loop carries on.
func (s *Shell) RunInteractive(ctx context.Context, in io.Reader) error {
	fmt.Fprintf(s.out, "Email agent interactive mode. Type 'quit' to exit.\n")
	fmt.Fprintf(s.out, "Prefix a prompt with 'draft:' to save it as a draft.\n")

	scanner := bufio.NewScanner(in)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		fmt.Fprintf(s.out, "\n> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if isQuit(line) {
			break
		}
		if _, err := s.RunOnce(ctx, RewriteDraft(line)); err != nil && ctx.Err() != nil {
			return ctx.Err()
		}
	}
	fmt.Fprintf(s.out, "Goodbye!\n")
	return scanner.Err()
}

// PrintResult renders a delivery result as text or JSON
func (s *Shell) PrintResult(result *core.DeliveryResult) {
	if s.opts.JSON {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			fmt.Fprintf(s.out, "Error: %v\n", err)
			return
		}
		fmt.Fprintf(s.out, "%s\n", data)
		return
	}

	fmt.Fprintf(s.out, "\n=== Result ===\n")
	if !result.OK {
		fmt.Fprintf(s.out, "Error: %s\n", result.Error)
		if s.opts.Verbose && result.Parsed != nil {
			parsed, _ := json.MarshalIndent(result.Parsed, "", "  ")
			fmt.Fprintf(s.out, "Parsed: %s\n", parsed)
		}
		return
	}

	if result.Mode == core.ActionDraft {
		fmt.Fprintf(s.out, "Draft saved\n")
	} else {
		fmt.Fprintf(s.out, "Email sent\n")
	}
	fmt.Fprintf(s.out, "To: %s\n", result.To)
	fmt.Fprintf(s.out, "Subject: %s\n", result.Subject)

	if result.Preview != nil {
		if s.opts.Verbose {
			fmt.Fprintf(s.out, "\nBody:\n%s\n\n", result.Preview.Plain)
		} else {
			fmt.Fprintf(s.out, "Preview: %s\n", s.text.Preview(result.Preview.Plain))
		}
	}

	if result.DraftID != "" {
		fmt.Fprintf(s.out, "Draft ID: %s\n", result.DraftID)
	} else {
		fmt.Fprintf(s.out, "Message ID: %s\n", result.MessageID)
	}
}

// PrintHistory lists the latest n recorded runs on out
func PrintHistory(ctx context.Context, out io.Writer, repo core.HistoryRepository, n int, asJSON bool) error {
	entries, err := repo.Recent(ctx, n)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}
	if asJSON {
		data, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s\n", data)
		return nil
	}

	fmt.Fprintf(out, "=== History (%d) ===\n", len(entries))
	for _, e := range entries {
		status := "ok"
		if !e.OK {
			status = "failed: " + e.Error
		}
		fmt.Fprintf(out, "%s  %-5s  %s  %q  %s  %s\n",
			e.CreatedAt.Local().Format(time.DateTime), e.Mode, e.To, e.Subject, e.ProviderID, status)
	}
	return nil
}

// RewriteDraft turns a "draft:" prefixed line into a draft request
func RewriteDraft(line string) string {
	if len(line) >= len(draftPrefix) && strings.EqualFold(line[:len(draftPrefix)], draftPrefix) {
		return "Draft " + strings.TrimSpace(line[len(draftPrefix):])
	}
	return line
}

// DraftPrompt forces a prompt to be saved as a draft
func DraftPrompt(prompt string) string {
	return "Draft " + prompt
}

func isQuit(line string) bool {
	switch strings.ToLower(line) {
	case "quit", "exit", "q":
		return true
	}
	return false
}
