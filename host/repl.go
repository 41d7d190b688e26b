package host

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"github.com/fatih/color"
)

const (
	// PromptUser is printed before reading the user input
	PromptUser = "You: "
	// PromptAssistant is printed before the final answer
	PromptAssistant = "Assistant: "
)

// State is the state of the host loop
type State int

const (
	// StateAwaitingInput waits for a line of user input
	StateAwaitingInput State = iota
	// StateProcessingTurn runs the model and tool calls of one input
	StateProcessingTurn
	// StateTerminated is the final state, entered on exit, quit or end of input
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateAwaitingInput:
		return "AWAITING_USER_INPUT"
	case StateProcessingTurn:
		return "PROCESSING_TURN"
	case StateTerminated:
		return "TERMINATED"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// IsExitCommand returns true for exit and quit, ignoring case and spaces.
func IsExitCommand(input string) bool {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "exit", "quit":
		return true
	}
	return false
}

// Renderer formats the final answer for the terminal.
type Renderer interface {
	Render(text string) (string, error)
}

// PlainRenderer prints the answer as is.
type PlainRenderer struct{}

func (PlainRenderer) Render(text string) (string, error) {
	return text, nil
}

// MarkdownRenderer renders the answer as markdown.
type MarkdownRenderer struct {
	tr *glamour.TermRenderer
}

// NewMarkdownRenderer returns the markdown renderer with the word wrap width,
// the style follows the terminal background.
func NewMarkdownRenderer(width int) (*MarkdownRenderer, error) {
	tr, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create markdown renderer")
	}
	return &MarkdownRenderer{tr: tr}, nil
}

func (r *MarkdownRenderer) Render(text string) (string, error) {
	out, err := r.tr.Render(text)
	if err != nil {
		return "", errors.Wrap(err, "failed to render markdown")
	}
	return strings.Trim(out, "\n"), nil
}

// Run is the interactive loop: it reads a line from in, processes the turn
// and prints the answer to out, until exit, quit or the end of input.
// Blank lines are ignored. A turn over the tool calls limit prints
// ToolCallLimitNotice and the loop continues, any other failed turn ends
// the loop with the error.
func (h *Host) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	userLabel := PromptUser
	assistantLabel := PromptAssistant
	if h.color {
		userLabel = color.New(color.FgCyan, color.Bold).Sprint(PromptUser)
		assistantLabel = color.New(color.FgGreen, color.Bold).Sprint(PromptAssistant)
	}

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	h.state = StateAwaitingInput
	defer func() {
		h.state = StateTerminated
	}()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		fmt.Fprint(out, userLabel)
		if !scanner.Scan() {
			fmt.Fprintln(out)
			if err := scanner.Err(); err != nil {
				return errors.Wrap(err, "failed to read input")
			}
			return nil
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if IsExitCommand(input) {
			logger.ContextKV(ctx, xlog.DEBUG, "host", h.name, "status", "exit")
			return nil
		}

		h.state = StateProcessingTurn
		answer, err := h.Turn(ctx, input)
		if err != nil {
			if !errors.Is(err, ErrToolCallLimit) {
				return err
			}
			logger.ContextKV(ctx, xlog.WARNING, "host", h.name, "status", "tool_call_limit", "err", err.Error())
			answer = ToolCallLimitNotice
		}
		h.state = StateAwaitingInput

		rendered, err := h.renderer.Render(answer)
		if err != nil {
			logger.ContextKV(ctx, xlog.WARNING, "host", h.name, "status", "render_failed", "err", err.Error())
			rendered = answer
		}
		fmt.Fprintf(out, "%s%s\n", assistantLabel, rendered)
	}
}
