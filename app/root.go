// Package app implements the main application commands.
package app

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "go-auth-core",
	Short: "GoAuthCore is a standalone authentication and authorization service",
	Long: `GoAuthCore is a standalone authentication and authorization service
providing permission-based access control, per-device sessions, role
templates and multi-provider OAuth account linking over a JSON API.`,
	Args: cobra.OnlyValidArgs,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
