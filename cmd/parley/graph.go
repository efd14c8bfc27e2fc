package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/parleyflow/parley/internal/presentation/graph"
	"github.com/parleyflow/parley/pkg/flow"
)

var graphCmd = &cobra.Command{
	Use:   "graph <flow-file>",
	Short: "Export the flow as a Mermaid diagram",
	Long:  `Loads a flow document and outputs a Mermaid flowchart (graph TD) of its nodes and transitions.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		def, err := flow.LoadFile(args[0])
		if err != nil {
			fmt.Printf("Error loading flow: %v\n", err)
			os.Exit(1)
		}
		fmt.Print(graph.GenerateMermaid(def, nil))
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}
