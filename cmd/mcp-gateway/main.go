// Command mcp-gateway serves a validated read-only query gateway over the
// Model Context Protocol. One backend is selected per process (sql, fs,
// jira, or rest); the server speaks MCP over stdio by default or over HTTP
// when configured.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is overridden at build time via -ldflags.
var version = "dev"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "mcp-gateway",
	Short: "MCP server exposing validated read-only queries",
	Long: `mcp-gateway serves query tools over the Model Context Protocol.

Every query is validated against a per-backend security policy before
execution, results are normalized into flat JSON records, and repeated
queries are answered from a bounded TTL cache.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Version:       version,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the YAML configuration file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "mcp-gateway: %v\n", err)
		os.Exit(1)
	}
}
