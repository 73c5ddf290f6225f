package cli

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "debrepo",
		Short: "Build and sign static Debian package repositories",
		Long: `Debrepo turns a flat pool of .deb packages into a complete apt
repository: per-architecture package indexes, a checksummed Release
descriptor, and armored OpenPGP signatures, verified before the tool
exits.

The resulting tree can be served by any static file server.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Setup logging
			verbose, _ := cmd.Flags().GetBool("verbose")
			if verbose {
				logrus.SetLevel(logrus.DebugLevel)
			} else {
				logrus.SetLevel(logrus.InfoLevel)
			}
		},
	}

	// Global flags
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	rootCmd.AddCommand(NewBuildCmd())
	rootCmd.AddCommand(NewVerifyCmd())
	rootCmd.AddCommand(NewKeysCmd())

	return rootCmd
}
