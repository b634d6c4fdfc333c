// ABOUTME: Interactive chat command and its read-eval-print loop
// ABOUTME: Recognizes quit/exit and history; every other line is sent as a user turn
package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/harper/converse-standalone/internal/config"
	"github.com/harper/converse-standalone/internal/core"
	"github.com/harper/converse-standalone/internal/llm"
)

const (
	usageHint = "Type 'quit' to exit the application or 'history' to look at the history"
	// maxInputLine bounds a single line of user input
	maxInputLine = 1024 * 1024
)

var noGreeting bool

var errLineTooLong = fmt.Errorf("input line is longer than %d bytes", maxInputLine)

// chatFlagKeys maps chat flags onto config keys
var chatFlagKeys = map[string]string{
	"endpoint":      config.KeyEndpoint,
	"max-tokens":    config.KeyMaxTokens,
	"temperature":   config.KeyTemperature,
	"system":        config.KeySystemMessage,
	"timeout":       config.KeyTimeout,
	"history-width": config.KeyHistoryWidth,
}

// NewChatCmd creates the chat command
func NewChatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive conversation",
		Long: `Start an interactive conversation with the completion service.

The conversation opens with a system message and, unless --no-greeting is
set, the service's first reply. Each line you type is sent together with
the whole conversation so far.

Commands:
  history   Show every turn of the conversation
  quit      Exit (also: exit)

Examples:
  converse chat
  converse chat --temperature 0 --max-tokens 500
  converse chat --config ~/.config/converse.yaml`,
		Args: cobra.NoArgs,
		RunE: runChat,
	}

	addChatFlags(cmd)

	return cmd
}

func addChatFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("endpoint", "", "Completion endpoint URL (overrides OPENAI_URI)")
	f.Int("max-tokens", config.DefaultMaxTokens, "Maximum tokens per reply")
	f.Float64("temperature", config.DefaultTemperature, "Sampling temperature (0-2)")
	f.String("system", config.DefaultSystemMessage, "System message that opens the conversation")
	f.Duration("timeout", 0, "HTTP timeout per request (0 keeps the transport default)")
	f.Int("history-width", config.DefaultHistoryWidth, "Characters of each turn shown by 'history'")
	f.BoolVar(&noGreeting, "no-greeting", false, "Skip the opening reply and wait for input")
}

func runChat(cmd *cobra.Command, args []string) error {
	// Load .env for credentials
	_ = godotenv.Load()

	v := config.NewViper()
	for flagName, key := range chatFlagKeys {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(flagName)); err != nil {
			return fmt.Errorf("binding --%s: %w", flagName, err)
		}
	}

	cfg, err := config.Load(v, configFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := newLogger(cmd.ErrOrStderr())

	gateway, err := llm.NewGateway(llm.GatewayConfig{
		Endpoint: cfg.Endpoint,
		Client:   llm.NewHTTPClient(cfg.APIKey, cfg.Timeout),
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("initializing gateway: %w", err)
	}

	session := core.NewSession(gateway, core.Options{
		MaxTokens:     cfg.MaxTokens,
		Temperature:   cfg.Temperature,
		SystemMessage: cfg.SystemMessage,
	}, logger)
	logger.Debug("session started", "id", session.ID(), "max_tokens", cfg.MaxTokens, "temperature", cfg.Temperature)

	loop := &chatLoop{
		session:      session,
		in:           cmd.InOrStdin(),
		out:          cmd.OutOrStdout(),
		styles:       newStyles(cmd.OutOrStdout()),
		historyWidth: cfg.HistoryWidth,
		greet:        !noGreeting,
		quiet:        quiet,
		logger:       logger,
	}
	return loop.run(cmd.Context())
}

type inputKind int

const (
	inputMessage inputKind = iota
	inputEmpty
	inputQuit
	inputHistory
)

// classifyInput decides what a trimmed input line asks for
func classifyInput(line string) inputKind {
	switch {
	case line == "":
		return inputEmpty
	case strings.EqualFold(line, "quit"), strings.EqualFold(line, "exit"):
		return inputQuit
	case strings.EqualFold(line, "history"):
		return inputHistory
	}
	return inputMessage
}

// chatLoop reads lines from in and runs one exchange per message
type chatLoop struct {
	session      *core.Session
	in           io.Reader
	out          io.Writer
	styles       styles
	historyWidth int
	greet        bool
	quiet        bool
	logger       *log.Logger
}

func (c *chatLoop) run(ctx context.Context) error {
	if c.greet {
		c.exchange(ctx, c.session.Greet)
	}
	if !c.quiet {
		_, _ = fmt.Fprintln(c.out, c.styles.hint.Render(usageHint))
		_, _ = fmt.Fprintln(c.out)
	}

	reader := bufio.NewReader(c.in)

	for {
		c.printPrompt()
		raw, err := readLine(reader)
		switch {
		case errors.Is(err, errLineTooLong):
			_, _ = fmt.Fprintln(c.out, c.styles.err.Render("Error: "+err.Error()))
			_, _ = fmt.Fprintln(c.out)
			continue
		case errors.Is(err, io.EOF):
			return nil
		case err != nil:
			return fmt.Errorf("reading input: %w", err)
		}

		line := strings.TrimSpace(raw)
		switch classifyInput(line) {
		case inputEmpty:
			continue
		case inputQuit:
			_, _ = fmt.Fprintln(c.out, "Goodbye!")
			return nil
		case inputHistory:
			c.printHistory()
			continue
		}

		c.exchange(ctx, func(ctx context.Context) (llm.Completion, error) {
			return c.session.Ask(ctx, line)
		})
	}
}

// readLine returns the next line without its terminator. A line longer than
// maxInputLine is consumed whole and reported as errLineTooLong.
func readLine(r *bufio.Reader) (string, error) {
	var line []byte
	tooLong := false
	for {
		frag, isPrefix, err := r.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) && (len(line) > 0 || tooLong) {
				break
			}
			return "", err
		}
		if !tooLong {
			if len(line)+len(frag) > maxInputLine {
				tooLong = true
				line = nil
			} else {
				line = append(line, frag...)
			}
		}
		if !isPrefix {
			break
		}
	}
	if tooLong {
		return "", errLineTooLong
	}
	return string(line), nil
}

// exchange runs one completion and prints its reply or error.
// Failures are reported and the loop carries on. An interrupt while the
// request is in flight cancels that request only; at the prompt it exits.
func (c *chatLoop) exchange(ctx context.Context, complete func(context.Context) (llm.Completion, error)) {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	completion, err := complete(ctx)
	if err != nil {
		c.logger.Debug("exchange failed", "status", llm.StatusCode(err), "error", err)
		_, _ = fmt.Fprintln(c.out, c.styles.err.Render("Error: "+err.Error()))
		_, _ = fmt.Fprintln(c.out)
		return
	}
	_, _ = fmt.Fprintln(c.out)
	_, _ = fmt.Fprintln(c.out, c.styles.reply.Render(completion.Text))
	_, _ = fmt.Fprintln(c.out)
}

func (c *chatLoop) printPrompt() {
	if c.quiet {
		return
	}
	usage := c.session.Usage()
	status := fmt.Sprintf("Tokens In: %d Out: %d --> What is your question?", usage.PromptTokens, usage.CompletionTokens)
	_, _ = fmt.Fprintln(c.out, c.styles.status.Render(status))
}

func (c *chatLoop) printHistory() {
	for _, turn := range c.session.History() {
		_, _ = fmt.Fprintln(c.out, core.RenderForDisplay(turn, c.historyWidth))
	}
	_, _ = fmt.Fprintln(c.out)
}
