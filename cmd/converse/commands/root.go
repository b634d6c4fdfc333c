// ABOUTME: Root command and global flags for the converse CLI
// ABOUTME: Running the root command with no subcommand starts a chat
package commands

import (
	"github.com/spf13/cobra"
)

var (
	verbose    bool
	quiet      bool
	configFile string
)

const banner = `
 ██████  ██████  ███    ██ ██    ██ ███████ ██████  ███████ ███████
██      ██    ██ ████   ██ ██    ██ ██      ██   ██ ██      ██
██      ██    ██ ██ ██  ██ ██    ██ █████   ██████  ███████ █████
██      ██    ██ ██  ██ ██  ██  ██  ██      ██   ██      ██ ██
 ██████  ██████  ██   ████   ████   ███████ ██   ██ ███████ ███████
`

// NewRootCmd creates the root command with all subcommands attached
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "converse",
		Short: "Chat with a completion service from the terminal",
		Long: banner + `
Converse keeps a running conversation with a chat-completion endpoint
and prints each reply with the tokens used so far.

The service is configured with OPENAI_KEY and OPENAI_URI, read from the
environment or a .env file in the working directory.

Examples:
  converse
  converse --max-tokens 400 --temperature 0.7
  converse --system "You are a terse reviewer" --no-greeting`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE:          runChat,
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log requests and usage to stderr")
	cmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Only print replies and errors")
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "Read settings from a YAML config file")
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	addChatFlags(cmd)

	cmd.AddCommand(NewChatCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}
