package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/parleyflow/parley/internal/validator"
	"github.com/parleyflow/parley/pkg/domain"
	"github.com/parleyflow/parley/pkg/flow"
)

var validateCmd = &cobra.Command{
	Use:   "validate <flow-file>",
	Short: "Check a flow definition for consistency",
	Long:  `Loads a flow document and reports every integrity violation: unknown node references, malformed conditions, missing prompts and the like.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		def, err := flow.LoadFile(args[0])
		if err != nil {
			var ierr *domain.IntegrityError
			if errors.As(err, &ierr) {
				fmt.Printf("Flow %s is invalid:\n", args[0])
				for _, v := range ierr.Violations {
					fmt.Printf("  - %s\n", v)
				}
			} else {
				fmt.Printf("Validation failed: %v\n", err)
			}
			os.Exit(1)
		}
		if orphans := validator.UnreachableNodes(def); len(orphans) > 0 {
			fmt.Println("Warning: unreachable nodes:")
			for _, id := range orphans {
				fmt.Printf("  - %s\n", id)
			}
		}
		fmt.Printf("Flow %q is valid (%d nodes) ✅\n", def.ID, len(def.Nodes))
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
