// Package main is the entry point for the XBRL-US MCP server CLI.
package main

import (
	"os"

	"github.com/hamid-vakilzadeh/xbrl-us-mcp/cmd/xbrlmcp/app"
	"github.com/hamid-vakilzadeh/xbrl-us-mcp/pkg/logger"
)

func main() {
	// Initialize the logger
	logger.Initialize()

	if err := app.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
