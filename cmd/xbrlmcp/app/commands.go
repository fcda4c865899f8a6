// Package app provides the entry point for the xbrlmcp command-line application.
package app

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hamid-vakilzadeh/xbrl-us-mcp/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:               "xbrlmcp",
	DisableAutoGenTag: true,
	Short:             "xbrlmcp exposes XBRL-US financial data as MCP tools",
	Long: `xbrlmcp is an MCP (Model Context Protocol) server for the XBRL-US financial data API.
It exposes company search, financial fact retrieval, concept search and filings lookup
as callable tools, authenticating each MCP session against the XBRL-US token endpoint
with the caller's own credentials and reusing access tokens across calls.`,
	Run: func(cmd *cobra.Command, _ []string) {
		// If no subcommand is provided, print help
		if err := cmd.Help(); err != nil {
			logger.Errorf("Error displaying help: %v", err)
		}
	},
}

// NewRootCmd creates a new root command for the xbrlmcp CLI.
func NewRootCmd() *cobra.Command {
	// Add persistent flags
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug mode")
	if err := viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug")); err != nil {
		logger.Errorf("Error binding debug flag: %v", err)
	}

	// Add subcommands
	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}
