package main

import (
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the Burrow CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "burrow",
		Short: "Burrow - account and leaderboard backend for whack-a-mole",
		Long: `Burrow is the account, session, and leaderboard backend for the
whack-a-mole game. It serves a form-in, JSON-out HTTP API with
server-side sessions, CSRF protection, and a password reset flow.`,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())

	return cmd
}
