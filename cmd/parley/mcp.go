package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	parley "github.com/parleyflow/parley"
	"github.com/parleyflow/parley/pkg/adapters/httpcall"
	"github.com/parleyflow/parley/pkg/adapters/llm/anthropic"
	"github.com/parleyflow/parley/pkg/adapters/llm/openai"
	"github.com/parleyflow/parley/pkg/adapters/mcp"
	"github.com/parleyflow/parley/pkg/config"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp <flows-dir>",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Starts the flows in the given directory as an MCP server over stdio.
AI agents (like Claude Desktop) can then drive conversations as tools:
start_session, process_turn, get_session and end_session.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runMCP(args[0]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(dir string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	opts := []parley.Option{
		parley.WithActionCaller(httpcall.New()),
		parley.WithActionTimeout(cfg.ActionTimeout),
	}
	if cfg.OpenAIKey != "" {
		opts = append(opts, parley.WithCompleter("openai", openai.New(cfg.OpenAIKey)))
	}
	if cfg.AnthropicKey != "" {
		opts = append(opts, parley.WithCompleter("anthropic", anthropic.New(cfg.AnthropicKey)))
	}
	if cfg.DefaultProvider != "" {
		opts = append(opts, parley.WithDefaultProvider(cfg.DefaultProvider))
	}

	defs, err := loadFlowsDir(dir)
	if err != nil {
		return err
	}
	if len(defs) == 0 {
		return fmt.Errorf("no flow documents found in %s", dir)
	}

	runners := make(map[string]mcp.FlowRunner, len(defs))
	for _, def := range defs {
		fl, err := parley.New(def, opts...)
		if err != nil {
			return fmt.Errorf("flow %q: %w", def.ID, err)
		}
		runners[def.ID] = fl
	}

	srv := mcp.NewServer(parley.Version, runners)

	// Logs must not corrupt JSON-RPC on stdout.
	log.SetOutput(os.Stderr)
	return srv.ServeStdio()
}
