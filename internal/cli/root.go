// Package cli implements the codecritic command tree.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "0.1.0"

// Exit codes.
const (
	ExitSuccess      = 0
	ExitUsageError   = 2
	ExitRuntimeError = 4
)

var (
	flagConfig  string
	flagEnvFile string
)

// NewRootCommand builds the command tree. out receives command output.
func NewRootCommand(out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "codecritic",
		Short:         "Automated review comments for pull and merge requests",
		Long:          "CodeCritic receives pull request webhooks, runs static analysis and a generative review over the changed files, and posts one summary comment.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			loadEnv(cmd.ErrOrStderr())
		},
	}
	root.SetOut(out)

	root.PersistentFlags().StringVar(&flagConfig, "config", "config.yaml", "Path to config file")
	root.PersistentFlags().StringVar(&flagEnvFile, "env-file", "", "Path to .env file (optional)")

	root.AddCommand(newServeCommand())
	root.AddCommand(newReviewCommand())
	root.AddCommand(newVersionCommand())
	return root
}

// Run executes the root command and returns an exit code.
func Run() int {
	root := NewRootCommand(os.Stdout)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		var uerr usageError
		if errors.As(err, &uerr) {
			return ExitUsageError
		}
		return ExitRuntimeError
	}
	return ExitSuccess
}

// usageError marks bad flags or arguments.
type usageError struct{ error }

// loadEnv loads the given .env file, or the default locations when none is
// given. Variables already set in the environment win.
func loadEnv(stderr io.Writer) {
	if flagEnvFile != "" {
		if err := godotenv.Load(flagEnvFile); err != nil {
			fmt.Fprintf(stderr, "Warning: could not load env file %s: %v\n", flagEnvFile, err)
		}
		return
	}
	_ = godotenv.Load(".env")
	_ = godotenv.Load("/etc/codecritic/codecritic.env")
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print codecritic version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "codecritic v%s\n", Version)
		},
	}
}
