// Package main is the entry point for the zotero-mcp server.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via ldflags.
var version = "dev"

var console bool

// rootCmd runs the MCP server; subcommands cover everything else.
var rootCmd = &cobra.Command{
	Use:   "zotero-mcp",
	Short: "MCP server for a personal Zotero library",
	Long: `zotero-mcp exposes a personal Zotero library to MCP clients over stdio.

The server speaks the Model Context Protocol on stdin/stdout and provides
tools for searching and reading library items, creating items, uploading
attachments, and managing collections. Configuration comes from ZOTERO_*
environment variables; ZOTERO_API_KEY and ZOTERO_USER_ID are required for
any tool that touches the library.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	rootCmd.Flags().BoolVar(&console, "console", false, "pretty console logs on stderr instead of JSON")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
