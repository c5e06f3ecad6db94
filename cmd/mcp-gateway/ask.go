package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jatzz10/mcp-gateway/config"
	"github.com/jatzz10/mcp-gateway/proposer"
)

var askBackend string

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a natural-language question through the query pipeline",
	Long: `ask sends the question to the configured LLM provider together with
the backend's metadata, parses the proposed query, and runs it through the
same validation, caching, and normalization pipeline the MCP tools use.
The normalized records are printed as JSON.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAsk(cmd, strings.Join(args, " "))
	},
}

func init() {
	askCmd.Flags().StringVarP(&askBackend, "backend", "b", "sql", "backend to query (sql, filesystem, jira, rest)")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, question string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	applyLogLevel(cfg.Logging.Level)

	ctx := cmd.Context()
	gw, err := buildGateway(ctx, askBackend, cfg)
	if err != nil {
		return err
	}
	defer gw.Close()

	prop, err := proposer.New(ctx, proposer.Config{
		Provider:     cfg.Proposer.Provider,
		Model:        cfg.Proposer.Model,
		APIKey:       cfg.Proposer.APIKey,
		MaxTokens:    cfg.Proposer.MaxTokens,
		DefaultLimit: cfg.Proposer.DefaultLimit,
	}, gw.Backend().Kind())
	if err != nil {
		return err
	}

	meta, err := gw.Metadata(ctx)
	if err != nil {
		return fmt.Errorf("loading backend metadata: %w", err)
	}

	desc, err := prop.Propose(ctx, question, *meta)
	if err != nil {
		return err
	}

	result, err := gw.Query(ctx, desc)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(map[string]any{
		"cached":  result.Cached,
		"count":   len(result.Records),
		"records": result.Records,
	}, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, string(out))
	return nil
}
