package main

import (
	"github.com/spf13/cobra"

	"github.com/ericfisherdev/otpdeck/internal/config"
)

// newRootCmd builds the command tree around a. Tests build a fresh tree per
// case.
func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "otpctl",
		Short: "Manage the accounts on an otpdeck device",
		Long: `otpctl edits the device's authoritative configuration directly.

Unlike uploads through the web page, console changes are not staged: each
command validates, then atomically replaces the stored document.`,
		SilenceUsage: true,
	}

	config.RegisterFlags(cmd.PersistentFlags())
	cmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log store operations to stderr")

	cmd.AddCommand(
		newListCmd(a),
		newAddCmd(a),
		newRemoveCmd(a),
		newImportCmd(a),
		newExportCmd(a),
		newURICmd(a),
		newSecretCmd(),
		newPromoteCmd(a),
		newStatusCmd(a),
		newResetCmd(a),
	)

	return cmd
}
